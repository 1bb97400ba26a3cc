package revision

import (
	"fmt"

	"github.com/beevik/etree"

	"github.com/tracksync/tracksync/internal/docx"
)

// ReplaceCellContent installs fragment as the cell's run-level content: the
// first paragraph keeps its properties (w:pPr) and receives the fragment; any
// further paragraphs are removed (their text is already represented inside
// the fragment, which was diffed against the whole cell).
//
// The substitution is atomic with respect to failure: all checks happen
// before the first mutation, and the mutations themselves cannot fail, so an
// error always means the cell is untouched.
func ReplaceCellContent(cell *etree.Element, fragment []*etree.Element) error {
	paras := docx.Descendants(cell, "w", "p")
	if len(paras) == 0 {
		return fmt.Errorf("cell has no paragraph to replace")
	}
	first := paras[0]

	// Mutation starts here.
	for _, extra := range paras[1:] {
		if parent := extra.Parent(); parent != nil {
			parent.RemoveChild(extra)
		}
	}
	for _, child := range first.ChildElements() {
		if child.Space == "w" && child.Tag == "pPr" {
			continue
		}
		first.RemoveChild(child)
	}
	for _, el := range fragment {
		first.AddChild(el)
	}
	return nil
}
