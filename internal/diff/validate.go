package diff

import (
	"fmt"
	"strings"
)

// validate checks the Script invariants and returns an error on the first violation.
func (s Script) validate() error {
	var beforeConcat, afterConcat strings.Builder
	for i, e := range s.Edits {
		if e.Text == "" {
			return fmt.Errorf("edit[%d]: empty Text", i)
		}
		if i > 0 && s.Edits[i-1].Op == e.Op {
			return fmt.Errorf("edit[%d]: adjacent edits share op %s", i, e.Op)
		}
		switch e.Op {
		case OpEqual:
			beforeConcat.WriteString(e.Text)
			afterConcat.WriteString(e.Text)
		case OpDelete:
			beforeConcat.WriteString(e.Text)
		case OpInsert:
			afterConcat.WriteString(e.Text)
		default:
			return fmt.Errorf("edit[%d]: unknown op %d", i, int(e.Op))
		}
	}

	if s.BeforeText != beforeConcat.String() {
		return fmt.Errorf("script: edits do not reconstruct BeforeText")
	}
	if s.AfterText != afterConcat.String() {
		return fmt.Errorf("script: edits do not reconstruct AfterText")
	}
	return nil
}
