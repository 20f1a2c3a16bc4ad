package domain

import "time"

// Status is the outcome of processing one item of a batch.
type Status string

const (
	StatusOK     Status = "ok"
	StatusFailed Status = "failed"
)

// Result records what happened to one document of an annotation run.
// Fields lists the names of the fields that were committed on success.
type Result struct {
	Index  int
	Key    string
	Status Status
	Reason string
	Fields []string
}

// OK reports whether the document was fully annotated.
func (r Result) OK() bool { return r.Status == StatusOK }

// Report is the batch-level view of an annotation run.
type Report struct {
	RunID    string
	Input    string
	Output   string
	Started  time.Time
	Finished time.Time
	Results  []Result
}

// Succeeded returns the number of documents annotated without error.
func (r *Report) Succeeded() int {
	n := 0
	for _, res := range r.Results {
		if res.OK() {
			n++
		}
	}
	return n
}

// Failed returns the number of documents that were skipped.
func (r *Report) Failed() int { return len(r.Results) - r.Succeeded() }

// Failures returns the failed results in input order.
func (r *Report) Failures() []Result {
	var out []Result
	for _, res := range r.Results {
		if !res.OK() {
			out = append(out, res)
		}
	}
	return out
}
