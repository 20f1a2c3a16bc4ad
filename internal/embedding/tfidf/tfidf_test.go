package tfidf

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbedder_PrepareAndEmbed(t *testing.T) {
	e := NewEmbedder()
	_, err := e.Embed("tabby")
	assert.Error(t, err, "unprepared")

	require.NoError(t, e.Prepare([]string{
		"tabby tabby tabby tiger_cat ",
		"golden_retriever golden_retriever tennis_ball ",
		"Tabby Egyptian_cat ",
	}))
	assert.Equal(t, "tfidf", e.Name())
	assert.Equal(t, 5, e.Dimension())

	v, err := e.Embed("tabby tabby tiger_cat")
	require.NoError(t, err)
	norm := 0.0
	for _, x := range v {
		norm += x * x
	}
	assert.InDelta(t, 1, math.Sqrt(norm), 1e-9)
	assert.Greater(t, v[e.vocabulary["tabby"]], 0.0)
	assert.Zero(t, v[e.vocabulary["tennis_ball"]])

	zero, err := e.Embed("unicorn")
	require.NoError(t, err)
	for _, x := range zero {
		assert.Zero(t, x)
	}
}

func TestEmbedder_RepetitionRaisesWeight(t *testing.T) {
	e := NewEmbedder()
	require.NoError(t, e.Prepare([]string{"a b", "a c", "b c"}))
	once, err := e.Embed("a b")
	require.NoError(t, err)
	thrice, err := e.Embed("a a a b")
	require.NoError(t, err)
	ia := e.vocabulary["a"]
	assert.Greater(t, thrice[ia], once[ia])
}

func TestEmbedder_IgnoreAndEmptyCorpus(t *testing.T) {
	e := NewEmbedder("Background")
	assert.Error(t, e.Prepare(nil))
	assert.Error(t, e.Prepare([]string{"background   "}))

	require.NoError(t, e.Prepare([]string{"background tabby"}))
	assert.Equal(t, 1, e.Dimension())
}
