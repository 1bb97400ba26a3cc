package docx

import (
	"fmt"

	"github.com/beevik/etree"
)

// Rows returns every table row (w:tr) in the document, in document order.
//
// Row indices are positional: they are re-derived from the current tree on
// every call and are not stable across structural edits.
func (p *Package) Rows() []*etree.Element {
	root := p.doc.Root()
	if root == nil {
		return nil
	}
	return Descendants(root, "w", "tr")
}

// RowCells returns the cells (w:tc) of row, in document order.
func RowCells(row *etree.Element) []*etree.Element {
	return Descendants(row, "w", "tc")
}

// FindCell locates the cell at (rowIndex, colIndex) by positional traversal of
// the current tree. It returns ErrNotFound when either index is out of range.
func (p *Package) FindCell(rowIndex, colIndex int) (*etree.Element, error) {
	if rowIndex < 0 || colIndex < 0 {
		return nil, fmt.Errorf("cell (%d, %d): %w", rowIndex, colIndex, ErrNotFound)
	}
	rows := p.Rows()
	if rowIndex >= len(rows) {
		return nil, fmt.Errorf("row %d of %d: %w", rowIndex, len(rows), ErrNotFound)
	}
	cells := RowCells(rows[rowIndex])
	if colIndex >= len(cells) {
		return nil, fmt.Errorf("column %d of %d in row %d: %w", colIndex, len(cells), rowIndex, ErrNotFound)
	}
	return cells[colIndex], nil
}

// Descendants returns all descendant elements of el with the given namespace
// prefix and tag, in document (pre-order) order. el itself is not included.
func Descendants(el *etree.Element, space, tag string) []*etree.Element {
	var out []*etree.Element
	for _, ch := range el.ChildElements() {
		if ch.Space == space && ch.Tag == tag {
			out = append(out, ch)
		}
		out = append(out, Descendants(ch, space, tag)...)
	}
	return out
}
