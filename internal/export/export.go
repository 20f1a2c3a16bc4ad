// Package export renders a parsed weights set as a table, a JSON tree or a
// search-engine document list.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strings"

	"annotator/internal/docxml"
	"annotator/internal/domain"
	"annotator/internal/weights"
)

// Format selects the output shape.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
	FormatJSON Format = "json"
	FormatXML  Format = "xml"
)

// ParseFormat accepts a format name or a file extension.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), ".")); f {
	case FormatCSV, FormatXLSX, FormatJSON, FormatXML:
		return f, nil
	case "", "table":
		return FormatCSV, nil
	case "tree":
		return FormatJSON, nil
	}
	return "", fmt.Errorf("unknown export format %q", s)
}

// Write renders set in the given format. Tabular formats leave out records
// whose class count differs from expected (zero disables the check) and
// return the diagnostics of the rows they had to leave out.
func Write(w io.Writer, format Format, set *weights.Set, expected int) ([]weights.Diagnostic, error) {
	switch format {
	case FormatCSV:
		t, diags := NewTable(set, expected)
		return diags, WriteCSV(w, t)
	case FormatXLSX:
		t, diags := NewTable(set, expected)
		return diags, WriteXLSX(w, t)
	case FormatJSON:
		return nil, WriteJSON(w, set)
	case FormatXML:
		return nil, SearchDocuments(set).Write(w)
	}
	return nil, fmt.Errorf("unknown export format %q", format)
}

// Tree maps image key -> class -> weight. Records with a wrong class count
// are included as they are.
func Tree(set *weights.Set) map[string]map[string]float64 {
	out := make(map[string]map[string]float64, set.Len())
	for _, r := range set.Records() {
		out[r.Key] = r.Weights()
	}
	return out
}

// WriteJSON writes Tree(set) as JSON.
func WriteJSON(w io.Writer, set *weights.Set) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(Tree(set))
}

// ClassTerms repeats every class identifier round(weight) times, half to
// even, separated by single spaces.
func ClassTerms(pairs []weights.Pair) string {
	var sb strings.Builder
	for _, p := range pairs {
		n := int(math.RoundToEven(p.Weight))
		for i := 0; i < n; i++ {
			if sb.Len() > 0 {
				sb.WriteByte(' ')
			}
			sb.WriteString(p.Class)
		}
	}
	return sb.String()
}

// SearchDocuments returns one document per record with the image key as id
// and the class terms in classes_ws.
func SearchDocuments(set *weights.Set) *docxml.DocumentList {
	list := docxml.NewDocumentList()
	for _, r := range set.Records() {
		list.Docs = append(list.Docs, docxml.NewDocument(
			domain.Field{Name: docxml.FieldID, Value: r.Key},
			domain.Field{Name: docxml.FieldClasses, Value: ClassTerms(r.Pairs)},
		))
	}
	return list
}
