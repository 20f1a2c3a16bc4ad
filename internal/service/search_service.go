package service

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"go.uber.org/zap"

	"annotator/internal/docxml"
	"annotator/internal/domain"
	"annotator/internal/embedding"
	"annotator/internal/features"
	"annotator/internal/logging"
	"annotator/internal/vectorstore"
)

// SimilarPrefix marks a query for documents similar to the named one.
const SimilarPrefix = "similar:"

var (
	ErrUnknownDocument = errors.New("unknown document")
	ErrNoFeatures      = errors.New("no feature vectors indexed")
)

// Searcher answers queries over an annotated document list: category term
// queries through TF-IDF over categories_ws, and similarity queries through
// the decoded sf_hi feature vectors.
type Searcher struct {
	embedder     embedding.Embedder
	terms        vectorstore.Storage
	feats        vectorstore.Storage
	summarizer   domain.Summarizer
	summaryTerms int
	logger       *zap.Logger

	entries  []domain.Entry
	features map[string][]float64
}

// NewSearcher wires the search collaborators. feats may be nil when
// similarity queries are not wanted.
func NewSearcher(embedder embedding.Embedder, terms, feats vectorstore.Storage, summarizer domain.Summarizer, summaryTerms int, logger *zap.Logger) *Searcher {
	return &Searcher{
		embedder:     embedder,
		terms:        terms,
		feats:        feats,
		summarizer:   summarizer,
		summaryTerms: summaryTerms,
		logger:       logging.OrNop(logger),
	}
}

// Index replaces the indexed collection with list and returns a summary of
// its categories. Documents without categories_ws are left out.
func (s *Searcher) Index(list *docxml.DocumentList) (string, error) {
	var entries []domain.Entry
	var corpus []string
	var featEntries []domain.Entry
	var featVecs [][]float64
	dim := 0
	for i, doc := range list.Docs {
		cats, ok := doc.Get(docxml.FieldCategories)
		if !ok {
			continue
		}
		id := doc.ID()
		if id == "" {
			id = documentKey(doc)
		}
		if id == "" {
			id = fmt.Sprintf("#%d", i)
		}
		e := domain.Entry{ID: id, Categories: cats}
		entries = append(entries, e)
		corpus = append(corpus, cats)

		hist, ok := doc.Get(docxml.FieldFeatureHist)
		if !ok || s.feats == nil {
			continue
		}
		vec, err := featureVector(hist)
		if err != nil {
			s.logger.Warn("feature vector skipped", zap.String("id", id), zap.Error(err))
			continue
		}
		if dim == 0 {
			dim = len(vec)
		}
		if len(vec) != dim {
			s.logger.Warn("feature vector skipped", zap.String("id", id), zap.Int("dimension", len(vec)), zap.Int("expected", dim))
			continue
		}
		featEntries = append(featEntries, e)
		featVecs = append(featVecs, vec)
	}
	if len(entries) == 0 {
		return "", fmt.Errorf("no annotated documents (field %s) found", docxml.FieldCategories)
	}

	// Prepare embedder with corpus
	if err := s.embedder.Prepare(corpus); err != nil {
		return "", err
	}
	if err := s.terms.Clear(); err != nil {
		return "", err
	}
	if err := s.terms.Init(s.embedder.Dimension()); err != nil {
		return "", err
	}
	vectors := make([][]float64, len(entries))
	for i := range entries {
		vec, err := s.embedder.Embed(entries[i].Categories)
		if err != nil {
			return "", err
		}
		vectors[i] = vec
	}
	if err := s.terms.Upsert(entries, vectors); err != nil {
		return "", err
	}
	s.entries = entries

	s.features = make(map[string][]float64, len(featEntries))
	if len(featEntries) > 0 {
		if err := s.feats.Clear(); err != nil {
			return "", err
		}
		if err := s.feats.Init(dim); err != nil {
			return "", err
		}
		if err := s.feats.Upsert(featEntries, featVecs); err != nil {
			return "", err
		}
		for i, e := range featEntries {
			s.features[e.ID] = featVecs[i]
		}
	}
	s.logger.Info("collection indexed",
		zap.Int("documents", len(entries)),
		zap.Int("feature_vectors", len(featEntries)),
		zap.Int("terms", s.embedder.Dimension()),
	)

	return s.summarizer.Summarize(corpus, s.summaryTerms)
}

// Search runs a similarity query for "similar:<id>" and a category query
// otherwise.
func (s *Searcher) Search(query string, topK int) ([]domain.SearchResult, error) {
	if id, ok := strings.CutPrefix(strings.TrimSpace(query), SimilarPrefix); ok {
		return s.Similar(strings.TrimSpace(id), topK)
	}
	return s.Query(query, topK)
}

// Query ranks documents by TF-IDF similarity of their categories to the
// query terms, falling back to term overlap when TF-IDF finds nothing.
func (s *Searcher) Query(query string, topK int) ([]domain.SearchResult, error) {
	vec, err := s.embedder.Embed(normalizeQuery(query))
	if err != nil {
		return nil, err
	}
	// Detect zero vector (no known terms)
	zero := true
	for _, v := range vec {
		if v != 0 {
			zero = false
			break
		}
	}
	if zero {
		return s.lexicalSearch(query, topK), nil
	}
	res, err := s.terms.Search(vec, topK)
	if err != nil {
		return nil, err
	}
	allZero := true
	for _, r := range res {
		if r.Score > 1e-9 {
			allZero = false
			break
		}
	}
	if allZero {
		return s.lexicalSearch(query, topK), nil
	}
	return res, nil
}

// Similar ranks documents by cosine similarity of their feature vectors to
// the one of document id. The document itself is not returned.
func (s *Searcher) Similar(id string, topK int) ([]domain.SearchResult, error) {
	if len(s.features) == 0 {
		return nil, ErrNoFeatures
	}
	vec, ok := s.features[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDocument, id)
	}
	if topK <= 0 {
		topK = 5
	}
	res, err := s.feats.Search(vec, topK+1)
	if err != nil {
		return nil, err
	}
	out := make([]domain.SearchResult, 0, topK)
	for _, r := range res {
		if r.ID == id {
			continue
		}
		if len(out) == topK {
			break
		}
		out = append(out, r)
	}
	return out, nil
}

// featureVector decodes an sf_hi value into an L2 normalized vector.
func featureVector(hist string) ([]float64, error) {
	q, err := features.DecodeHist(hist)
	if err != nil {
		return nil, err
	}
	v := features.Dequantize(q)
	norm := 0.0
	for _, x := range v {
		norm += x * x
	}
	if norm == 0 {
		return nil, features.ErrDegenerateVector
	}
	norm = math.Sqrt(norm)
	for i := range v {
		v[i] /= norm
	}
	return v, nil
}

// normalizeQuery treats every part of a comma separated query as one label,
// so "golden retriever, tabby" matches golden_retriever.
func normalizeQuery(q string) string {
	q = strings.TrimSpace(q)
	if strings.Contains(q, ",") {
		parts := strings.Split(q, ",")
		for i, p := range parts {
			parts[i] = strings.Join(strings.Fields(p), "_")
		}
		return strings.Join(parts, " ")
	}
	return q
}

func (s *Searcher) lexicalSearch(query string, topK int) []domain.SearchResult {
	qset := toTokenSet(query)
	type pair struct {
		idx   int
		score float64
	}
	scores := make([]pair, len(s.entries))
	for i, e := range s.entries {
		scores[i] = pair{i, overlapOchiai(qset, e.Categories)}
	}
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].score > scores[j].score })
	if topK <= 0 {
		topK = 5
	}
	if topK > len(scores) {
		topK = len(scores)
	}
	out := make([]domain.SearchResult, 0, topK)
	for i := 0; i < topK; i++ {
		p := scores[i]
		out = append(out, domain.SearchResult{Entry: s.entries[p.idx], Score: p.score})
	}
	return out
}

// toTokenSet splits on whitespace and underscores so partial label words
// ("retriever") still overlap with joined labels.
func toTokenSet(s string) map[string]struct{} {
	tokens := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return r == '_' || r == ',' || r == ' ' || r == '\t' || r == '\n'
	})
	m := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		m[t] = struct{}{}
	}
	return m
}

func overlapOchiai(qset map[string]struct{}, text string) float64 {
	seen := toTokenSet(text)
	inter := 0
	for t := range seen {
		if _, ok := qset[t]; ok {
			inter++
		}
	}
	if len(qset) == 0 || len(seen) == 0 {
		return 0
	}
	// Ochiai coefficient: |A∩B| / sqrt(|A||B|)
	return float64(inter) / math.Sqrt(float64(len(qset))*float64(len(seen)))
}
