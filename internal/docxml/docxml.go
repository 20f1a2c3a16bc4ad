// Package docxml reads and writes search-engine document lists:
//
//	<add>
//	  <doc>
//	    <field name="id">...</field>
//	    <field name="localimagefile">...</field>
//	  </doc>
//	</add>
//
// Element names and attributes of the root, the documents and the fields are
// preserved. Other children of a document are kept verbatim and written
// after its fields.
package docxml

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"annotator/internal/domain"
)

// Well known field names.
const (
	FieldID             = "id"
	FieldLocalImageFile = "localimagefile"
	FieldImageURL       = "imgurl"
	FieldCategories     = "categories_ws"
	FieldClasses        = "classes_ws"
	FieldFeatureHist    = "sf_hi"
	FieldFeatureHashes  = "sf_ha"
)

// Node is a child element of a document that is not a field. It is kept
// verbatim and written back after the fields.
type Node struct {
	XMLName xml.Name
	Attrs   []xml.Attr `xml:",any,attr"`
	Inner   string     `xml:",innerxml"`
}

// Document is one entry of a document list.
type Document struct {
	XMLName xml.Name
	Attrs   []xml.Attr     `xml:",any,attr"`
	Fields  []domain.Field `xml:"field"`
	Extra   []Node         `xml:",any"`
}

// NewDocument creates a "doc" element with the given fields.
func NewDocument(fields ...domain.Field) *Document {
	return &Document{XMLName: xml.Name{Local: "doc"}, Fields: fields}
}

// Get returns the first value of the named field.
func (d *Document) Get(name string) (string, bool) {
	for _, f := range d.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return "", false
}

// All returns every value of the named field in document order.
func (d *Document) All(name string) []string {
	var out []string
	for _, f := range d.Fields {
		if f.Name == name {
			out = append(out, f.Value)
		}
	}
	return out
}

// Add appends a field.
func (d *Document) Add(name, value string) {
	d.Fields = append(d.Fields, domain.Field{Name: name, Value: value})
}

// Remove drops every field with the given name and returns how many were
// removed.
func (d *Document) Remove(name string) int {
	kept := d.Fields[:0]
	n := 0
	for _, f := range d.Fields {
		if f.Name == name {
			n++
			continue
		}
		kept = append(kept, f)
	}
	d.Fields = kept
	return n
}

// ID returns the trimmed value of the id field.
func (d *Document) ID() string {
	v, _ := d.Get(FieldID)
	return strings.TrimSpace(v)
}

// DocumentList is the root element of a document file.
type DocumentList struct {
	XMLName xml.Name
	Attrs   []xml.Attr  `xml:",any,attr"`
	Docs    []*Document `xml:",any"`
}

// NewDocumentList creates an "add" root holding docs.
func NewDocumentList(docs ...*Document) *DocumentList {
	return &DocumentList{XMLName: xml.Name{Local: "add"}, Docs: docs}
}

// Len returns the number of documents.
func (l *DocumentList) Len() int { return len(l.Docs) }

// Read decodes a document list.
func Read(r io.Reader) (*DocumentList, error) {
	var list DocumentList
	if err := xml.NewDecoder(r).Decode(&list); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("empty document list")
		}
		return nil, fmt.Errorf("decode document list: %w", err)
	}
	return &list, nil
}

// ReadFile decodes the document list stored at path.
func ReadFile(path string) (*DocumentList, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	list, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return list, nil
}

// Write encodes the list with an XML header and two-space indentation.
func (l *DocumentList) Write(w io.Writer) error {
	out := *l
	if out.XMLName.Local == "" {
		out.XMLName = xml.Name{Local: "add"}
	}
	for _, d := range out.Docs {
		if d.XMLName.Local == "" {
			d.XMLName = xml.Name{Local: "doc"}
		}
	}
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(&out); err != nil {
		return fmt.Errorf("encode document list: %w", err)
	}
	if err := enc.Flush(); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}

// WriteFile writes the list to path, replacing an existing file.
func (l *DocumentList) WriteFile(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := l.Write(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// OutputPath returns the annotated file name for in: the extension is
// replaced by "_cat.xml".
func OutputPath(in string) string {
	return strings.TrimSuffix(in, filepath.Ext(in)) + "_cat.xml"
}
