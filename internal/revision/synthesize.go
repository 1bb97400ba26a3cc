package revision

import (
	"strconv"
	"strings"
	"time"

	"github.com/beevik/etree"

	"github.com/tracksync/tracksync/internal/diff"
)

// dateFormat is the ISO-8601 UTC form Word writes on revision elements.
const dateFormat = "2006-01-02T15:04:05Z"

// SynthesizeOptions carry the revision metadata stamped onto every Delete and
// Insert span.
type SynthesizeOptions struct {
	Author string
	// Timestamp is recorded on each span; the zero value means time.Now.
	Timestamp time.Time
	// EmitDateUTC additionally stamps w16du:dateUtc, as modern Word does.
	// Callers should set it only when the document declares the w16du
	// namespace.
	EmitDateUTC bool
}

// Synthesize turns an edit script into a run-level content fragment:
//
//   - Equal: a plain run (w:r > w:t) with the text verbatim.
//   - Delete: a w:del span with a fresh identifier wrapping w:r > w:delText.
//   - Insert: a w:ins span with a fresh identifier wrapping w:r > w:t.
//
// Any text leaf whose content starts or ends with a space carries
// xml:space="preserve"; the host format collapses leading/trailing spaces on
// reserialization otherwise. Metacharacter escaping happens when the tree is
// serialized.
//
// The fragment is built entirely off-tree; installing it is the caller's
// (atomic) step.
func Synthesize(script diff.Script, alloc *Allocator, opts SynthesizeOptions) []*etree.Element {
	ts := opts.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	date := ts.UTC().Format(dateFormat)

	stamp := func(el *etree.Element) {
		el.CreateAttr("w:id", strconv.FormatUint(alloc.Next(), 10))
		el.CreateAttr("w:author", opts.Author)
		el.CreateAttr("w:date", date)
		if opts.EmitDateUTC {
			el.CreateAttr("w16du:dateUtc", date)
		}
	}

	var fragment []*etree.Element
	for _, e := range script.Edits {
		if e.Text == "" {
			continue
		}
		switch e.Op {
		case diff.OpEqual:
			run := etree.NewElement("w:r")
			setTextLeaf(run.CreateElement("w:t"), e.Text)
			fragment = append(fragment, run)
		case diff.OpDelete:
			del := etree.NewElement("w:del")
			stamp(del)
			run := del.CreateElement("w:r")
			setTextLeaf(run.CreateElement("w:delText"), e.Text)
			fragment = append(fragment, del)
		case diff.OpInsert:
			ins := etree.NewElement("w:ins")
			stamp(ins)
			run := ins.CreateElement("w:r")
			setTextLeaf(run.CreateElement("w:t"), e.Text)
			fragment = append(fragment, ins)
		}
	}
	return fragment
}

func setTextLeaf(leaf *etree.Element, text string) {
	if strings.HasPrefix(text, " ") || strings.HasSuffix(text, " ") {
		leaf.CreateAttr("xml:space", "preserve")
	}
	leaf.SetText(text)
}
