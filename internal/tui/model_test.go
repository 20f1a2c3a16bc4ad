package tui

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"annotator/internal/domain"
)

type fakeSearch struct {
	queries []string
	err     error
}

func (f *fakeSearch) Search(query string, topK int) ([]domain.SearchResult, error) {
	f.queries = append(f.queries, query)
	if f.err != nil {
		return nil, f.err
	}
	return []domain.SearchResult{
		{Entry: domain.Entry{ID: "cat-1", Categories: "tabby tabby tiger_cat "}, Score: 0.9},
		{Entry: domain.Entry{ID: "cat-2", Categories: "tiger_cat "}, Score: 0.4},
	}, nil
}

func typeQuery(m Model, q string) Model {
	m.input.SetValue(q)
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	return next.(Model)
}

func TestModel_QueryAndNavigate(t *testing.T) {
	svc := &fakeSearch{}
	m := New(svc, "2 documents", 5)
	next, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	m = next.(Model)

	m = typeQuery(m, "tabby")
	require.Len(t, m.results, 2)
	assert.Equal(t, []string{"tabby"}, svc.queries)
	assert.Contains(t, m.View(), "cat-1")

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m = next.(Model)
	assert.Equal(t, 1, m.cursor)
	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyUp})
	m = next.(Model)
	assert.Equal(t, 0, m.cursor)

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyCtrlS})
	m = next.(Model)
	assert.Equal(t, "similar:cat-1", svc.queries[1])
}

func TestModel_SearchError(t *testing.T) {
	m := New(&fakeSearch{err: errors.New("boom")}, "", 0)
	m = typeQuery(m, "tabby")
	assert.Empty(t, m.results)
	assert.True(t, strings.HasPrefix(m.status, "Error: boom"))
}

func TestCountTerms(t *testing.T) {
	assert.Equal(t, []termCount{{"tabby", 2}, {"tiger_cat", 1}}, countTerms("tabby tabby tiger_cat "))
	assert.Equal(t, "(no categories)", highlightCategories("", "x"))
	assert.Contains(t, highlightCategories("tiger_cat ", "similar:a"), "tiger_cat x1")
}
