package revision

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/beevik/etree"
)

// idAttrPattern matches every w:id attribute occurrence in serialized XML.
// The scan is intentionally format-wide rather than scoped to w:del/w:ins:
// other annotation mechanisms (comments, bookmarks) share the same attribute,
// and colliding with any of them is unacceptable.
var idAttrPattern = regexp.MustCompile(`w:id="(\d+)"`)

// Allocator issues revision identifiers for one document instance. Every call
// to Next returns a value strictly greater than any identifier present in the
// document at initialization time and strictly greater than every value it
// has previously returned.
//
// The high-water mark is recomputed from the loaded document on every
// construction; it is never carried over between runs. One Allocator serves
// one document; it is not safe for concurrent use.
type Allocator struct {
	next uint64
}

// NewAllocator scans the serialized document for used identifiers and returns
// an allocator starting just past the highest one (or at 0 if none exist).
func NewAllocator(doc *etree.Document) (*Allocator, error) {
	raw, err := doc.WriteToBytes()
	if err != nil {
		return nil, fmt.Errorf("scan revision ids: %w", err)
	}
	return NewAllocatorFromXML(raw), nil
}

// NewAllocatorFromXML is NewAllocator over already-serialized XML.
func NewAllocatorFromXML(raw []byte) *Allocator {
	var next uint64
	for _, m := range idAttrPattern.FindAllSubmatch(raw, -1) {
		id, err := strconv.ParseUint(string(m[1]), 10, 64)
		if err != nil {
			continue
		}
		if id+1 > next {
			next = id + 1
		}
	}
	return &Allocator{next: next}
}

// Next returns the next free identifier.
func (a *Allocator) Next() uint64 {
	id := a.next
	a.next++
	return id
}
