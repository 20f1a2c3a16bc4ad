package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"annotator/internal/domain"
)

// SearchPort is the TUI-facing subset of the search service.
type SearchPort interface {
	Search(query string, topK int) ([]domain.SearchResult, error)
}

// similarPrefix must match the prefix understood by the search service.
const similarPrefix = "similar:"

// Model is the Bubble Tea model for the TUI application.
type Model struct {
	service   SearchPort
	topK      int
	input     textinput.Model
	viewport  viewport.Model
	results   []domain.SearchResult
	summary   string
	status    string
	cursor    int
	ready     bool
	lastQuery string
}

// New creates a new TUI model instance.
func New(service SearchPort, summary string, topK int) Model {
	if topK <= 0 {
		topK = 10
	}
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Categories (tabby, golden retriever) or similar:<id>, Enter to search"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	return Model{service: service, topK: topK, input: ti, viewport: vp, summary: summary, status: "Loaded. Type to search, ctrl+s finds images similar to the shown one."}
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key and window events and updates the view state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		// account for frames around result and query boxes
		_, rh := resultBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		totalHeaderLines := 2                                    // header + summary
		totalFooterLines := 1                                    // status
		reserved := totalHeaderLines + totalFooterLines + qh + 1 // 1 spacer
		vh := msg.Height - reserved
		if vh < 3 {
			vh = 3
		}
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, vh-rh)
		m.viewport.SetContent(m.renderCurrentResult())
		return m, nil
	case tea.KeyMsg:
		// Global quits
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		switch msg.String() {
		case "enter":
			q := strings.TrimSpace(m.input.Value())
			if q != "" {
				m = m.runQuery(q)
				return m, nil
			}
		case "ctrl+s":
			if len(m.results) > 0 {
				q := similarPrefix + m.results[m.cursor].ID
				m.input.SetValue(q)
				m = m.runQuery(q)
				return m, nil
			}
		case "down":
			if len(m.results) > 0 {
				m.cursor = (m.cursor + 1) % len(m.results)
				m.viewport.SetContent(m.renderCurrentResult())
				return m, nil
			}
		case "up":
			if len(m.results) > 0 {
				m.cursor = (m.cursor - 1 + len(m.results)) % len(m.results)
				m.viewport.SetContent(m.renderCurrentResult())
				return m, nil
			}
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) runQuery(q string) Model {
	res, err := m.service.Search(q, m.topK)
	if err != nil {
		m.status = "Error: " + err.Error()
		m.results = nil
	} else {
		m.status = fmt.Sprintf("%d results for %q", len(res), q)
		m.results = res
		m.cursor = 0
		m.lastQuery = q
	}
	m.viewport.SetContent(m.renderCurrentResult())
	return m
}

// View renders the TUI layout and current result.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("Image Category Search")
	summary := lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render(m.summary)
	input := queryBoxStyle.Render(m.input.View())
	status := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render(m.status)
	results := resultBoxStyle.Render(m.viewport.View())
	return header + "\n" + summary + "\n" + results + "\n" + input + "\n" + status
}

func (m Model) renderCurrentResult() string {
	if len(m.results) == 0 {
		return "No results yet."
	}
	r := m.results[m.cursor]
	title := fmt.Sprintf("Result %d/%d  score=%.3f", m.cursor+1, len(m.results), r.Score)
	body := r.ID + "\n\n" + highlightCategories(r.Categories, m.lastQuery)
	return title + "\n" + body
}

var (
	resultBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	highlightStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
)

type termCount struct {
	term  string
	count int
}

// countTerms collapses a repeated term string into terms with counts,
// keeping first-seen order.
func countTerms(categories string) []termCount {
	var out []termCount
	pos := map[string]int{}
	for _, t := range strings.Fields(categories) {
		if i, ok := pos[t]; ok {
			out[i].count++
			continue
		}
		pos[t] = len(out)
		out = append(out, termCount{term: t, count: 1})
	}
	return out
}

// highlightCategories renders "tabby x4  tiger_cat x2", highlighting the
// terms that match the query.
func highlightCategories(categories, query string) string {
	terms := countTerms(categories)
	if len(terms) == 0 {
		return "(no categories)"
	}
	q := toTokenSet(query)
	parts := make([]string, len(terms))
	for i, tc := range terms {
		s := fmt.Sprintf("%s x%d", tc.term, tc.count)
		if matches(q, tc.term) {
			s = highlightStyle.Render(s)
		}
		parts[i] = s
	}
	return strings.Join(parts, "  ")
}

func toTokenSet(s string) map[string]struct{} {
	if strings.HasPrefix(strings.TrimSpace(s), similarPrefix) {
		return nil
	}
	tokens := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return r == ' ' || r == ',' || r == '_' || r == '\t'
	})
	m := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		m[t] = struct{}{}
	}
	return m
}

func matches(q map[string]struct{}, term string) bool {
	for _, w := range strings.Split(strings.ToLower(term), "_") {
		if _, ok := q[w]; ok {
			return true
		}
	}
	return false
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
