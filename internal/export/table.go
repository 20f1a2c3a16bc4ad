package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/xuri/excelize/v2"

	"annotator/internal/weights"
)

// Row is one image of a table; Values align with Table.Columns.
type Row struct {
	Key    string
	Values []float64
}

// Table is the image x class matrix of a weights set.
type Table struct {
	Columns []string
	Rows    []Row
}

// NewTable lays out every record against the sorted class vocabulary of the
// whole set. A record is left out, with a diagnostic, unless it carries a
// weight for exactly the vocabulary's classes and, when expected > 0,
// exactly expected class lines.
func NewTable(set *weights.Set, expected int) (Table, []weights.Diagnostic) {
	t := Table{Columns: set.Vocabulary()}
	var diags []weights.Diagnostic
	for _, r := range set.Records() {
		w := r.Weights()
		if expected > 0 && r.Count() != expected {
			diags = append(diags, weights.Diagnostic{Kind: weights.LengthMismatch, Key: r.Key, Count: r.Count()})
			continue
		}
		row := Row{Key: r.Key, Values: make([]float64, 0, len(t.Columns))}
		if len(w) == len(t.Columns) {
			for _, c := range t.Columns {
				v, ok := w[c]
				if !ok {
					break
				}
				row.Values = append(row.Values, v)
			}
		}
		if len(row.Values) != len(t.Columns) {
			diags = append(diags, weights.Diagnostic{Kind: weights.LengthMismatch, Key: r.Key, Count: len(w)})
			continue
		}
		t.Rows = append(t.Rows, row)
	}
	return t, diags
}

func formatWeight(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// WriteCSV writes the table with an empty corner cell, class columns and
// one line per image.
func WriteCSV(w io.Writer, t Table) error {
	cw := csv.NewWriter(w)
	header := append([]string{""}, t.Columns...)
	if err := cw.Write(header); err != nil {
		return err
	}
	rec := make([]string, len(t.Columns)+1)
	for _, r := range t.Rows {
		rec[0] = r.Key
		for i, v := range r.Values {
			rec[i+1] = formatWeight(v)
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

const sheetName = "Weights"

// WriteXLSX writes the table as a single-sheet workbook.
func WriteXLSX(w io.Writer, t Table) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return err
	}
	for i, c := range t.Columns {
		cell, err := excelize.CoordinatesToCellName(i+2, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheetName, cell, c); err != nil {
			return err
		}
	}
	for ri, r := range t.Rows {
		row := ri + 2
		cell, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetCellValue(sheetName, cell, r.Key); err != nil {
			return err
		}
		for ci, v := range r.Values {
			cell, _ := excelize.CoordinatesToCellName(ci+2, row)
			if err := f.SetCellValue(sheetName, cell, v); err != nil {
				return err
			}
		}
	}
	// freeze the key column and header row
	if err := f.SetPanes(sheetName, &excelize.Panes{
		Freeze:      true,
		XSplit:      1,
		YSplit:      1,
		TopLeftCell: "B2",
		ActivePane:  "bottomRight",
	}); err != nil {
		return err
	}
	_ = f.SetColWidth(sheetName, "A", "A", 48)

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("xlsx write: %w", err)
	}
	return nil
}
