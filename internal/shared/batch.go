package shared

import "fmt"

// BatchFailure records one item that failed during batch processing.
type BatchFailure struct {
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

// BatchResult carries the outcome of a per-item batch operation. A batch
// never fails outright because one item failed; failures are collected
// alongside the success count.
type BatchResult struct {
	Processed int            `json:"processed"`
	Failures  []BatchFailure `json:"failures,omitempty"`
}

// RecordFailure appends a failure for the given item id.
func (r *BatchResult) RecordFailure(id string, err error) {
	r.Failures = append(r.Failures, BatchFailure{ID: id, Reason: err.Error()})
}

// Errors renders the failures as plain strings for API payloads.
func (r *BatchResult) Errors() []string {
	if len(r.Failures) == 0 {
		return nil
	}
	out := make([]string, len(r.Failures))
	for i, f := range r.Failures {
		out[i] = fmt.Sprintf("%s: %s", f.ID, f.Reason)
	}
	return out
}
