package weights

import (
	"fmt"
	"sort"
)

// Pair is one class weight collected for an image.
type Pair struct {
	Class  string
	Weight float64
}

// Record holds the class weights found for one image, in log order.
type Record struct {
	Key   string
	Pairs []Pair
}

// Count is the number of class lines collected for the record.
func (r *Record) Count() int { return len(r.Pairs) }

// Weights returns class -> weight. A class listed twice keeps its last weight.
func (r *Record) Weights() map[string]float64 {
	m := make(map[string]float64, len(r.Pairs))
	for _, p := range r.Pairs {
		m[p.Class] = p.Weight
	}
	return m
}

// Set is the result of one parsing pass: records keyed by image, in the
// order the images first appeared in the log.
type Set struct {
	order   []string
	records map[string]*Record
}

func newSet() *Set {
	return &Set{records: make(map[string]*Record)}
}

// NewSet builds a set from records, later duplicates replacing earlier ones.
func NewSet(records ...Record) *Set {
	s := newSet()
	for i := range records {
		r := records[i]
		s.put(&r)
	}
	return s
}

// put stores r and reports whether it replaced an existing key. Only blocks
// that reached the class list are put, so a repeated image line without a
// marker leaves the earlier record untouched.
func (s *Set) put(r *Record) bool {
	if _, ok := s.records[r.Key]; ok {
		s.records[r.Key] = r
		return true
	}
	s.order = append(s.order, r.Key)
	s.records[r.Key] = r
	return false
}

// Len returns the number of records.
func (s *Set) Len() int { return len(s.order) }

// Get returns the record for key.
func (s *Set) Get(key string) (*Record, bool) {
	r, ok := s.records[key]
	return r, ok
}

// Records returns the records in input order.
func (s *Set) Records() []*Record {
	out := make([]*Record, 0, len(s.order))
	for _, k := range s.order {
		out = append(out, s.records[k])
	}
	return out
}

// Vocabulary returns every distinct class identifier of the set, sorted as
// strings.
func (s *Set) Vocabulary() []string {
	seen := make(map[string]struct{})
	for _, r := range s.records {
		for _, p := range r.Pairs {
			seen[p.Class] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for c := range seen {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// DiagnosticKind classifies advisory findings of parsing and export.
type DiagnosticKind string

const (
	CountMismatch  DiagnosticKind = "count_mismatch"
	MissingWeight  DiagnosticKind = "missing_weight"
	DuplicateKey   DiagnosticKind = "duplicate_key"
	LengthMismatch DiagnosticKind = "length_mismatch"
)

// Diagnostic is a non-fatal consistency finding. Line is 1-based and zero
// when the finding is not tied to an input line.
type Diagnostic struct {
	Kind  DiagnosticKind
	Key   string
	Count int
	Line  int
}

func (d Diagnostic) String() string {
	switch d.Kind {
	case CountMismatch:
		return fmt.Sprintf("%s: %d", d.Key, d.Count)
	case MissingWeight:
		return fmt.Sprintf("%s: class line %d has no weight", d.Key, d.Line)
	case DuplicateKey:
		return fmt.Sprintf("%s: duplicate image at line %d replaces earlier record", d.Key, d.Line)
	case LengthMismatch:
		return fmt.Sprintf("length mismatch, could not add image %s (%d classes)", d.Key, d.Count)
	}
	return fmt.Sprintf("%s: %s", d.Kind, d.Key)
}
