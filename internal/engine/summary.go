package engine

// Status classifies the outcome of one candidate row.
type Status int

const (
	StatusApplied Status = iota // revisions synthesized into the target cell
	StatusSkipped               // no change needed; document untouched
	StatusFailed                // row could not be processed; document untouched for this row
)

// String returns the string representation of the Status.
func (s Status) String() string {
	switch s {
	case StatusApplied:
		return "applied"
	case StatusSkipped:
		return "skipped"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// RowOutcome is the per-row result of a sync pass.
type RowOutcome struct {
	RowIndex int
	Status   Status
	Changes  int   // Delete/Insert spans applied; 0 unless StatusApplied
	Err      error // nil unless StatusFailed
}

// Summary aggregates the outcomes of one sync pass.
type Summary struct {
	Rows    []RowOutcome
	Applied int
	Skipped int
	Failed  int
}

func (s *Summary) record(o RowOutcome) {
	s.Rows = append(s.Rows, o)
	switch o.Status {
	case StatusApplied:
		s.Applied++
	case StatusSkipped:
		s.Skipped++
	case StatusFailed:
		s.Failed++
	}
}

// Candidates returns the number of rows the pass attempted.
func (s *Summary) Candidates() int {
	return len(s.Rows)
}
