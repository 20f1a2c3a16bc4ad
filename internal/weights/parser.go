// Package weights parses the per-image classification weights log.
//
// A log is a sequence of blank-line separated blocks. A block starts with a
// line naming an image file, is followed by a "found classes:" marker and
// then one line per class carrying a NN.NN.NN identifier and a trailing
// weight:
//
//	./train/0001.png
//	...
//	found classes:
//	  01.02.03 some label  5.00
//	  04.05.06 other label 10.00
//
// Records are collected in a single forward pass.
package weights

import (
	"bufio"
	"io"
	"regexp"
	"strconv"
	"strings"
)

// State of the line classifier.
type State int

const (
	Idle State = iota
	AwaitingMarker
	Collecting
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case AwaitingMarker:
		return "awaiting_marker"
	case Collecting:
		return "collecting"
	}
	return "unknown"
}

const marker = "found classes:"

var (
	classRe  = regexp.MustCompile(`\d\d\.\d\d\.\d\d`)
	weightRe = regexp.MustCompile(`\d+\.\d\d$`)
)

// ClassID returns the first class identifier found in line.
func ClassID(line string) (string, bool) {
	id := classRe.FindString(line)
	return id, id != ""
}

// Options parametrize a parser.
type Options struct {
	// ExpectedCount is the number of classes every record should carry.
	// Zero disables the check.
	ExpectedCount int
	// KeyPrefixLen characters are cut from the image line to form the key.
	KeyPrefixLen int
	// KeyRoot is prepended to every key.
	KeyRoot string
	// NormalizeSlashes turns backslashes into slashes and collapses "//".
	NormalizeSlashes bool
}

// DefaultOptions returns the options of the 32 class log.
func DefaultOptions() Options {
	return Options{ExpectedCount: 32, KeyPrefixLen: 2}
}

// Parser is the three state line classifier. Feed it lines in order and
// call Close once at the end of input.
type Parser struct {
	opts    Options
	state   State
	current *Record
	line    int
	set     *Set
	diags   []Diagnostic
}

// NewParser creates a parser in the Idle state.
func NewParser(opts Options) *Parser {
	return &Parser{opts: opts, set: newSet()}
}

// State returns the current state.
func (p *Parser) State() State { return p.state }

// Feed consumes one line of the log.
func (p *Parser) Feed(raw string) {
	p.line++
	l := strings.TrimSpace(raw)
	if l == "" {
		p.finish()
		return
	}
	lower := strings.ToLower(l)
	if p.state == Idle && (strings.HasSuffix(lower, ".png") || strings.HasSuffix(lower, ".jpg")) {
		p.current = &Record{Key: p.key(l)}
		p.state = AwaitingMarker
		return
	}
	if p.state == AwaitingMarker && lower == marker {
		p.state = Collecting
		return
	}
	if p.state == Collecting {
		id, ok := ClassID(l)
		if !ok {
			return
		}
		w := weightRe.FindString(l)
		if w == "" {
			p.diags = append(p.diags, Diagnostic{Kind: MissingWeight, Key: p.current.Key, Line: p.line})
			return
		}
		weight, err := strconv.ParseFloat(w, 64)
		if err != nil {
			p.diags = append(p.diags, Diagnostic{Kind: MissingWeight, Key: p.current.Key, Line: p.line})
			return
		}
		p.current.Pairs = append(p.current.Pairs, Pair{Class: id, Weight: weight})
	}
}

// finish closes the open block. Records that never reached the class list
// are dropped and do not replace an earlier record with the same key.
func (p *Parser) finish() {
	if p.state == Collecting && p.current != nil {
		n := p.current.Count()
		if p.opts.ExpectedCount > 0 && n != p.opts.ExpectedCount {
			p.diags = append(p.diags, Diagnostic{Kind: CountMismatch, Key: p.current.Key, Count: n, Line: p.line})
		}
		if p.set.put(p.current) {
			p.diags = append(p.diags, Diagnostic{Kind: DuplicateKey, Key: p.current.Key, Line: p.line})
		}
	}
	p.current = nil
	p.state = Idle
}

func (p *Parser) key(l string) string {
	k := l
	if n := p.opts.KeyPrefixLen; n > 0 {
		if len(k) <= n {
			k = ""
		} else {
			k = k[n:]
		}
	}
	if p.opts.NormalizeSlashes {
		k = strings.ReplaceAll(k, `\`, "/")
	}
	k = p.opts.KeyRoot + k
	if p.opts.NormalizeSlashes {
		k = strings.ReplaceAll(k, "//", "/")
	}
	return k
}

// Close finalizes the last block and returns the records and diagnostics
// collected so far. The parser must not be fed afterwards.
func (p *Parser) Close() (*Set, []Diagnostic) {
	p.finish()
	return p.set, p.diags
}

// Parse runs a parser over every line of r.
func Parse(r io.Reader, opts Options) (*Set, []Diagnostic, error) {
	p := NewParser(opts)
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		p.Feed(sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, nil, err
	}
	set, diags := p.Close()
	return set, diags, nil
}
