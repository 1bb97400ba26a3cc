package diff

// Op is an operation from before text to after text.
type Op int

// Operations from before text to after text. There is deliberately no
// "replace": the tracked-change markup downstream has delete and insert
// elements only, so a replacement is always a Delete followed by an Insert.
const (
	OpEqual Op = iota
	OpDelete
	OpInsert
)

// String returns the string representation of the Op.
func (op Op) String() string {
	switch op {
	case OpEqual:
		return "equal"
	case OpDelete:
		return "delete"
	case OpInsert:
		return "insert"
	default:
		return "unknown"
	}
}

// Edit is one contiguous run of the edit script. Text is the joined token
// text the run covers.
//
// Operations:
//   - OpEqual: Text occurs in both before and after.
//   - OpDelete: Text occurs only in before.
//   - OpInsert: Text occurs only in after.
type Edit struct {
	Op   Op
	Text string
}

// Script is an ordered edit script from BeforeText to AfterText.
//
// Invariants:
//   - concat(Edits where Op != OpInsert) == BeforeText
//   - concat(Edits where Op != OpDelete) == AfterText
//   - no Edit has empty Text
//   - no two adjacent Edits share an Op
type Script struct {
	BeforeText string
	AfterText  string
	Edits      []Edit
}

// HasChanges reports whether the script contains any Delete or Insert.
func (s Script) HasChanges() bool {
	for _, e := range s.Edits {
		if e.Op != OpEqual {
			return true
		}
	}
	return false
}
