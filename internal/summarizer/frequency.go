package summarizer

import (
	"fmt"
	"sort"
	"strings"
)

// TermCount is a category and the number of documents it was found in.
type TermCount struct {
	Term string
	Docs int
	// Weight is the summed repetition count, i.e. confidence in tenths.
	Weight int
}

// FrequencySummarizer ranks categories by how many documents carry them.
type FrequencySummarizer struct {
	stopwords map[string]struct{}
}

// NewFrequencySummarizer creates a category frequency summarizer. Terms in
// ignore are left out of the summary.
func NewFrequencySummarizer(ignore ...string) *FrequencySummarizer {
	m := make(map[string]struct{}, len(ignore))
	for _, w := range ignore {
		m[strings.ToLower(w)] = struct{}{}
	}
	return &FrequencySummarizer{stopwords: m}
}

// Summarize returns a one line overview of the most common categories,
// e.g. "120 documents; top categories: tabby (14), tiger_cat (9)".
func (s *FrequencySummarizer) Summarize(corpus []string, maxTerms int) (string, error) {
	if maxTerms <= 0 {
		maxTerms = 5
	}
	top := s.Top(corpus, maxTerms)
	if len(top) == 0 {
		return fmt.Sprintf("%d documents; no categories", len(corpus)), nil
	}
	parts := make([]string, len(top))
	for i, t := range top {
		parts[i] = fmt.Sprintf("%s (%d)", t.Term, t.Docs)
	}
	return fmt.Sprintf("%d documents; top categories: %s", len(corpus), strings.Join(parts, ", ")), nil
}

// Top returns the n categories found in most documents. Ties are broken by
// total weight, then alphabetically.
func (s *FrequencySummarizer) Top(corpus []string, n int) []TermCount {
	counts := map[string]*TermCount{}
	for _, text := range corpus {
		seen := map[string]struct{}{}
		for _, tok := range strings.Fields(strings.ToLower(text)) {
			if _, ok := s.stopwords[tok]; ok {
				continue
			}
			tc, ok := counts[tok]
			if !ok {
				tc = &TermCount{Term: tok}
				counts[tok] = tc
			}
			tc.Weight++
			if _, ok := seen[tok]; !ok {
				seen[tok] = struct{}{}
				tc.Docs++
			}
		}
	}
	out := make([]TermCount, 0, len(counts))
	for _, tc := range counts {
		out = append(out, *tc)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Docs != out[j].Docs {
			return out[i].Docs > out[j].Docs
		}
		if out[i].Weight != out[j].Weight {
			return out[i].Weight > out[j].Weight
		}
		return out[i].Term < out[j].Term
	})
	if n > 0 && n < len(out) {
		out = out[:n]
	}
	return out
}
