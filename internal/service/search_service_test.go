package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"annotator/internal/docxml"
	"annotator/internal/embedding/tfidf"
	"annotator/internal/summarizer"
	"annotator/internal/vectorstore/memory"
)

func annotatedList() *docxml.DocumentList {
	return docxml.NewDocumentList(
		docxml.NewDocument(
			field("id", "cat-1"),
			field("categories_ws", "tabby tabby tabby tabby tiger_cat tiger_cat "),
			field("sf_hi", "32766;-32768;-32768;"),
		),
		docxml.NewDocument(
			field("id", "cat-2"),
			field("categories_ws", "tiger_cat tiger_cat tiger_cat tabby "),
			field("sf_hi", "32766;-20000;-32768;"),
		),
		docxml.NewDocument(
			field("id", "dog-1"),
			field("categories_ws", "golden_retriever golden_retriever golden_retriever tennis_ball "),
			field("sf_hi", "-32768;32766;-32768;"),
		),
		docxml.NewDocument(field("id", "plain")),
	)
}

func newTestSearcher(t *testing.T) (*Searcher, string) {
	t.Helper()
	s := NewSearcher(tfidf.NewEmbedder(), memory.NewStorage(), memory.NewStorage(), summarizer.NewFrequencySummarizer(), 2, nil)
	summary, err := s.Index(annotatedList())
	require.NoError(t, err)
	return s, summary
}

func TestSearcher_IndexSummary(t *testing.T) {
	_, summary := newTestSearcher(t)
	assert.Equal(t, "3 documents; top categories: tabby (2), tiger_cat (2)", summary)
}

func TestSearcher_Query(t *testing.T) {
	s, _ := newTestSearcher(t)

	res, err := s.Query("tabby", 2)
	require.NoError(t, err)
	require.Len(t, res, 2)
	assert.Equal(t, "cat-1", res[0].ID)
	assert.Equal(t, "cat-2", res[1].ID)

	res, err = s.Search("golden retriever, tennis ball", 1)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "dog-1", res[0].ID)
}

func TestSearcher_LexicalFallback(t *testing.T) {
	s, _ := newTestSearcher(t)
	res, err := s.Query("retriever", 1)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "dog-1", res[0].ID)
	assert.Greater(t, res[0].Score, 0.0)
}

func TestSearcher_Similar(t *testing.T) {
	s, _ := newTestSearcher(t)
	res, err := s.Search("similar: cat-1", 1)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "cat-2", res[0].ID)

	res, err = s.Similar("cat-1", 10)
	require.NoError(t, err)
	assert.Len(t, res, 2)
	for _, r := range res {
		assert.NotEqual(t, "cat-1", r.ID)
	}

	_, err = s.Similar("nope", 1)
	assert.ErrorIs(t, err, ErrUnknownDocument)
}

func TestSearcher_WithoutFeatureStore(t *testing.T) {
	s := NewSearcher(tfidf.NewEmbedder(), memory.NewStorage(), nil, summarizer.NewFrequencySummarizer(), 2, nil)
	_, err := s.Index(annotatedList())
	require.NoError(t, err)
	_, err = s.Similar("cat-1", 1)
	assert.ErrorIs(t, err, ErrNoFeatures)
}

func TestSearcher_IndexErrors(t *testing.T) {
	s := NewSearcher(tfidf.NewEmbedder(), memory.NewStorage(), nil, summarizer.NewFrequencySummarizer(), 2, nil)
	_, err := s.Index(docxml.NewDocumentList(docxml.NewDocument(field("id", "x"))))
	assert.Error(t, err)
}

func TestFeatureVector(t *testing.T) {
	v, err := featureVector("-1;-1;")
	require.NoError(t, err)
	assert.InDelta(t, 0.7071, v[0], 1e-3)

	_, err = featureVector("-32768;-32768;")
	assert.Error(t, err)
	_, err = featureVector("")
	assert.Error(t, err)
}
