package models

import "time"

// OutcomeKind classifies how a single date's fetch ended.
type OutcomeKind string

const (
	OutcomeSuccess           OutcomeKind = "success"
	OutcomeSkippedNotFound   OutcomeKind = "skipped_not_found"
	OutcomeSkippedExhausted  OutcomeKind = "skipped_transient_exhausted"
	OutcomeSkippedOtherError OutcomeKind = "skipped_other_error"
)

// DownloadRecord describes one date's fetch within a collection run.
// Records live only for the duration of the run; they are surfaced in
// logs and the failure notification, never persisted.
type DownloadRecord struct {
	Date    time.Time
	URL     string
	Path    string // saved file path, empty unless Outcome is success
	Outcome OutcomeKind
	Message string // failure detail for skipped_other_error
}

// Succeeded reports whether the record's date produced a saved file.
func (r DownloadRecord) Succeeded() bool {
	return r.Outcome == OutcomeSuccess
}

// CountOutcomes tallies records per outcome kind.
func CountOutcomes(records []DownloadRecord) map[OutcomeKind]int {
	counts := make(map[OutcomeKind]int)
	for _, r := range records {
		counts[r.Outcome]++
	}
	return counts
}
