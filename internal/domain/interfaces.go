package domain

import (
	"context"
	"image"
)

// Prediction is one (label, confidence) pair returned by a classifier.
type Prediction struct {
	Label      string
	Confidence float64
}

// Classifier returns the top-K predictions for an image that was already
// resized to the model's input size.
type Classifier interface {
	Name() string
	Classify(ctx context.Context, img image.Image, topK int) ([]Prediction, error)
}

// FeatureExtractor returns a global feature vector for an image.
type FeatureExtractor interface {
	Name() string
	Extract(ctx context.Context, img image.Image) ([]float64, error)
}

// FeatureEncoder turns a quantized feature vector into the two strings
// stored in the index: the histogram representation and its hashes.
// Implementations may return an empty hashes string.
type FeatureEncoder interface {
	Name() string
	Encode(ctx context.Context, quantized []int16) (hist string, hashes string, err error)
}

// ImageFetcher makes a remote image available as a local file. The returned
// cleanup removes whatever was created and is never nil on success.
type ImageFetcher interface {
	Fetch(ctx context.Context, url string) (path string, cleanup func(), err error)
}

// Entry is an annotated document as the search side sees it.
type Entry struct {
	ID         string
	Categories string
}

// SearchResult is a ranked annotated document.
type SearchResult struct {
	Entry
	Score float64
}

// Summarizer describes a corpus of category term strings.
type Summarizer interface {
	Summarize(corpus []string, maxTerms int) (string, error)
}
