package summarizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrequencySummarizer_Top(t *testing.T) {
	s := NewFrequencySummarizer("background")
	top := s.Top([]string{
		"tabby tabby tabby tiger_cat ",
		"tabby background ",
		"golden_retriever golden_retriever golden_retriever golden_retriever ",
		"tiger_cat ",
	}, 3)
	require.Len(t, top, 3)
	assert.Equal(t, TermCount{Term: "tabby", Docs: 2, Weight: 4}, top[0])
	assert.Equal(t, TermCount{Term: "tiger_cat", Docs: 2, Weight: 2}, top[1])
	assert.Equal(t, "golden_retriever", top[2].Term)
}

func TestFrequencySummarizer_Summarize(t *testing.T) {
	s := NewFrequencySummarizer()
	got, err := s.Summarize([]string{"b a ", "a "}, 0)
	require.NoError(t, err)
	assert.Equal(t, "2 documents; top categories: a (2), b (1)", got)

	got, err = s.Summarize([]string{"", " "}, 3)
	require.NoError(t, err)
	assert.Equal(t, "2 documents; no categories", got)
}
