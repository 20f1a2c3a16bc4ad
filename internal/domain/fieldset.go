package domain

import "encoding/xml"

// Field is a named text value of a document. Attrs holds any attribute
// besides name, such as boost or update.
type Field struct {
	Name  string     `xml:"name,attr"`
	Attrs []xml.Attr `xml:",any,attr"`
	Value string     `xml:",chardata"`
}

// FieldSet collects fields for a document before they are committed.
// Removals are staged as well so a failed document is left untouched.
type FieldSet struct {
	add    []Field
	remove map[string]struct{}
}

// Stage queues a field to be appended on commit.
func (s *FieldSet) Stage(name, value string) {
	s.add = append(s.add, Field{Name: name, Value: value})
}

// StageRemoval queues the removal of every field with the given name.
func (s *FieldSet) StageRemoval(name string) {
	if s.remove == nil {
		s.remove = make(map[string]struct{})
	}
	s.remove[name] = struct{}{}
}

// Added returns the staged fields in staging order.
func (s *FieldSet) Added() []Field { return s.add }

// Removed reports whether fields named name are staged for removal.
func (s *FieldSet) Removed(name string) bool {
	_, ok := s.remove[name]
	return ok
}

// Names returns the names of the staged fields.
func (s *FieldSet) Names() []string {
	out := make([]string, len(s.add))
	for i, f := range s.add {
		out[i] = f.Name
	}
	return out
}

// Apply returns fields with the staged removals and additions applied.
// The input slice is not modified.
func (s *FieldSet) Apply(fields []Field) []Field {
	out := make([]Field, 0, len(fields)+len(s.add))
	for _, f := range fields {
		if s.Removed(f.Name) {
			continue
		}
		out = append(out, f)
	}
	return append(out, s.add...)
}
