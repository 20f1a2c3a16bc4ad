package service

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"annotator/internal/docxml"
	"annotator/internal/domain"
	"annotator/internal/features"
	"annotator/internal/logging"
)

// ErrNoImage is returned for a document with neither a local file nor an
// image URL.
var ErrNoImage = errors.New("document has no image")

// ImageLoader decodes an image file at the classifier's input size.
type ImageLoader interface {
	Load(path string) (image.Image, error)
}

// AnnotateOptions tune what the annotator writes.
type AnnotateOptions struct {
	// TopK predictions become category terms.
	TopK int
	// DropLocalField removes localimagefile from annotated documents.
	DropLocalField bool
	// URLStripPrefix derives imgurl from the local path by cutting this
	// prefix. Empty disables.
	URLStripPrefix string
	// KeepDownloaded leaves fetched images in the temp directory.
	KeepDownloaded bool
}

// DefaultAnnotateOptions returns top 5 categories and no field rewriting.
func DefaultAnnotateOptions() AnnotateOptions {
	return AnnotateOptions{TopK: 5}
}

// Annotator adds categories_ws and, when a feature extractor is set,
// sf_hi/sf_ha to every document of a list. Fields of a document are staged
// and committed only once every step succeeded.
type Annotator struct {
	fetcher    domain.ImageFetcher
	loader     ImageLoader
	classifier domain.Classifier
	extractor  domain.FeatureExtractor
	encoder    domain.FeatureEncoder
	opts       AnnotateOptions
	logger     *zap.Logger
}

// NewAnnotator wires the annotation collaborators. extractor may be nil to
// skip feature fields; encoder defaults to the raw encoding.
func NewAnnotator(fetcher domain.ImageFetcher, loader ImageLoader, classifier domain.Classifier, extractor domain.FeatureExtractor, encoder domain.FeatureEncoder, opts AnnotateOptions, logger *zap.Logger) *Annotator {
	if encoder == nil {
		encoder = features.Raw{}
	}
	if opts.TopK <= 0 {
		opts.TopK = 5
	}
	return &Annotator{
		fetcher:    fetcher,
		loader:     loader,
		classifier: classifier,
		extractor:  extractor,
		encoder:    encoder,
		opts:       opts,
		logger:     logging.OrNop(logger),
	}
}

// Run annotates the document list at in and writes it to out. Document
// failures end up in the report; only I/O on the lists themselves fails
// the run.
func (a *Annotator) Run(ctx context.Context, in, out string) (*domain.Report, error) {
	rep := &domain.Report{RunID: uuid.NewString(), Input: in, Output: out, Started: time.Now()}
	list, err := docxml.ReadFile(in)
	if err != nil {
		return nil, err
	}
	a.logger.Info("annotation started",
		zap.String("run_id", rep.RunID),
		zap.String("input", in),
		zap.Int("documents", list.Len()),
		zap.String("classifier", a.classifier.Name()),
	)
	rep.Results = a.Annotate(ctx, list)
	if err := list.WriteFile(out); err != nil {
		return nil, err
	}
	rep.Finished = time.Now()
	a.logger.Info("annotation finished",
		zap.String("run_id", rep.RunID),
		zap.String("output", out),
		zap.Int("succeeded", rep.Succeeded()),
		zap.Int("failed", rep.Failed()),
		zap.Duration("took", rep.Finished.Sub(rep.Started)),
	)
	return rep, nil
}

// Annotate processes the documents in order and returns one result per
// document. Processing continues after a failure; once ctx is done the
// remaining documents are reported as failed.
func (a *Annotator) Annotate(ctx context.Context, list *docxml.DocumentList) []domain.Result {
	results := make([]domain.Result, 0, list.Len())
	for i, doc := range list.Docs {
		key := documentKey(doc)
		if err := ctx.Err(); err != nil {
			results = append(results, domain.Result{Index: i, Key: key, Status: domain.StatusFailed, Reason: err.Error()})
			continue
		}
		staged, err := a.annotate(ctx, doc)
		if err != nil {
			a.logger.Warn("document skipped", zap.Int("index", i), zap.String("image", key), zap.Error(err))
			results = append(results, domain.Result{Index: i, Key: key, Status: domain.StatusFailed, Reason: err.Error()})
			continue
		}
		doc.Fields = staged.Apply(doc.Fields)
		a.logger.Debug("document annotated", zap.Int("index", i), zap.String("image", key), zap.Strings("fields", staged.Names()))
		results = append(results, domain.Result{Index: i, Key: key, Status: domain.StatusOK, Fields: staged.Names()})
	}
	return results
}

func (a *Annotator) annotate(ctx context.Context, doc *docxml.Document) (*domain.FieldSet, error) {
	staged := &domain.FieldSet{}
	local, hasLocal := doc.Get(docxml.FieldLocalImageFile)
	local = strings.TrimSpace(local)

	path := local
	if path == "" {
		remote, _ := doc.Get(docxml.FieldImageURL)
		if strings.TrimSpace(remote) == "" {
			return nil, ErrNoImage
		}
		p, cleanup, err := a.fetcher.Fetch(ctx, remote)
		if err != nil {
			return nil, fmt.Errorf("fetch image: %w", err)
		}
		if !a.opts.KeepDownloaded {
			defer cleanup()
		}
		path = p
	}

	img, err := a.loader.Load(path)
	if err != nil {
		return nil, err
	}
	preds, err := a.classifier.Classify(ctx, img, a.opts.TopK)
	if err != nil {
		return nil, fmt.Errorf("classify: %w", err)
	}
	if len(preds) > a.opts.TopK {
		preds = preds[:a.opts.TopK]
	}
	staged.Stage(docxml.FieldCategories, features.TermString(preds))

	if a.extractor != nil {
		vec, err := a.extractor.Extract(ctx, img)
		if err != nil {
			return nil, fmt.Errorf("extract features: %w", err)
		}
		q, err := features.Quantize(vec)
		if err != nil {
			return nil, err
		}
		hist, hashes, err := a.encoder.Encode(ctx, q)
		if err != nil {
			return nil, fmt.Errorf("encode features: %w", err)
		}
		staged.Stage(docxml.FieldFeatureHist, hist)
		staged.Stage(docxml.FieldFeatureHashes, hashes)
	}

	if local != "" && a.opts.URLStripPrefix != "" {
		staged.StageRemoval(docxml.FieldImageURL)
		staged.Stage(docxml.FieldImageURL, strings.TrimPrefix(local, a.opts.URLStripPrefix))
	}
	if hasLocal && a.opts.DropLocalField {
		staged.StageRemoval(docxml.FieldLocalImageFile)
	}
	return staged, nil
}

// documentKey names a document in logs and reports.
func documentKey(doc *docxml.Document) string {
	for _, name := range []string{docxml.FieldLocalImageFile, docxml.FieldImageURL, docxml.FieldID} {
		if v, ok := doc.Get(name); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
