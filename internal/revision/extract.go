// Package revision reconstructs the textual states of revision-tracked table
// cells and synthesizes new tracked-change markup from edit scripts.
//
// Within a paragraph, tracked content appears as three span kinds in document
// order: plain runs (w:r), deletions (w:del), and insertions (w:ins). The
// "before" state of a cell is its plain + deleted text; the "after" state is
// its plain + inserted text.
package revision

import (
	"errors"
	"fmt"
	"strings"

	"github.com/beevik/etree"

	"github.com/tracksync/tracksync/internal/docx"
)

// ErrMalformedMarkup reports revision spans that violate the document-order
// partition invariant (for example a deletion nested inside an insertion).
// It is surfaced to the caller rather than auto-repaired.
var ErrMalformedMarkup = errors.New("malformed revision markup")

// CellHasRevisions reports whether cell contains at least one tracked
// deletion or insertion, directly or transitively. It is cheap enough to use
// as a row filter before any extraction work.
func CellHasRevisions(cell *etree.Element) bool {
	return len(docx.Descendants(cell, "w", "del")) > 0 ||
		len(docx.Descendants(cell, "w", "ins")) > 0
}

// ExtractStates reconstructs the before and after text states of cell.
//
// Paragraphs are traversed in order; each paragraph boundary beyond the first
// contributes one "\n" to both states, so multi-paragraph cells diff as a
// whole. Direct children of each paragraph route text by span kind:
// plain runs to both states, deletions to before only, insertions to after
// only.
func ExtractStates(cell *etree.Element) (before, after string, err error) {
	var beforeB, afterB strings.Builder

	for i, para := range docx.Descendants(cell, "w", "p") {
		if i > 0 {
			beforeB.WriteString("\n")
			afterB.WriteString("\n")
		}
		for _, child := range para.ChildElements() {
			if child.Space != "w" {
				continue
			}
			switch child.Tag {
			case "r":
				text := spanText(child)
				beforeB.WriteString(text)
				afterB.WriteString(text)
			case "del":
				if len(docx.Descendants(child, "w", "ins")) > 0 {
					return "", "", fmt.Errorf("%w: w:ins nested inside w:del", ErrMalformedMarkup)
				}
				beforeB.WriteString(spanText(child))
			case "ins":
				if len(docx.Descendants(child, "w", "del")) > 0 {
					return "", "", fmt.Errorf("%w: w:del nested inside w:ins", ErrMalformedMarkup)
				}
				afterB.WriteString(spanText(child))
			}
		}
	}

	return beforeB.String(), afterB.String(), nil
}

// ExtractPlainText returns the visible text of cell: the concatenation of all
// normal text leaves (w:t) in document order, with one "\n" per paragraph
// boundary. Deleted text (w:delText) is not visible and is excluded, so for a
// cell with revisions this is the "after" view; for a cell without revisions,
// before == after == ExtractPlainText.
func ExtractPlainText(cell *etree.Element) string {
	var b strings.Builder
	for i, para := range docx.Descendants(cell, "w", "p") {
		if i > 0 {
			b.WriteString("\n")
		}
		for _, t := range docx.Descendants(para, "w", "t") {
			b.WriteString(t.Text())
		}
	}
	return b.String()
}

// spanText concatenates the text leaves (w:t and w:delText) under span in
// document order.
func spanText(span *etree.Element) string {
	var b strings.Builder
	collectSpanText(span, &b)
	return b.String()
}

func collectSpanText(el *etree.Element, b *strings.Builder) {
	for _, ch := range el.ChildElements() {
		if ch.Space == "w" && (ch.Tag == "t" || ch.Tag == "delText") {
			b.WriteString(ch.Text())
			continue
		}
		collectSpanText(ch, b)
	}
}
