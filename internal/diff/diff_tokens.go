package diff

import (
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// DiffTokens diffs beforeTokens to afterTokens, returning a Script.
//
// Alignment is an LCS-style match at token granularity: each distinct token is
// encoded as one rune, the rune sequences are diffed, and runs are decoded back
// to token text. A changed region comes out as a Delete run followed by an
// Insert run, never a combined replace.
func DiffTokens(beforeTokens, afterTokens []string) Script {
	beforeText := strings.Join(beforeTokens, "")
	afterText := strings.Join(afterTokens, "")

	dmp := diffmatchpatch.New()
	rBefore, rAfter, tokenTable := tokensToRunes(beforeTokens, afterTokens)
	runeDiffs := dmp.DiffMainRunes(rBefore, rAfter, false)
	runeDiffs = dmp.DiffCleanupMerge(runeDiffs)
	// Fold small equalities sandwiched between changes (one rune == one token
	// here), so "is changing" -> "has changed" is one delete + one insert
	// instead of two pairs bridged by the space token.
	runeDiffs = dmp.DiffCleanupSemantic(runeDiffs)

	// Decode rune-strings back to token text using the tokenTable mapping.
	decode := func(s string) string {
		var b strings.Builder
		for _, r := range s {
			b.WriteString(tokenTable[runeToIndex(r)])
		}
		return b.String()
	}

	var edits []Edit
	for _, d := range runeDiffs {
		text := decode(d.Text)
		if text == "" {
			continue
		}
		var op Op
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			op = OpEqual
		case diffmatchpatch.DiffDelete:
			op = OpDelete
		case diffmatchpatch.DiffInsert:
			op = OpInsert
		}
		// DiffCleanupMerge coalesces same-type runs, but decoding can surface
		// an empty run; re-coalesce so adjacent ops stay distinct.
		if len(edits) > 0 && edits[len(edits)-1].Op == op {
			edits[len(edits)-1].Text += text
			continue
		}
		edits = append(edits, Edit{Op: op, Text: text})
	}

	script := Script{BeforeText: beforeText, AfterText: afterText, Edits: edits}

	if err := script.validate(); err != nil {
		panic(fmt.Errorf("DiffTokens: validate failed with %v", err))
	}

	return script
}

// surrogateBase marks the start of the UTF-16 surrogate block, which Go
// strings cannot carry; token indices at or past it are shifted over it.
const surrogateBase = 0xD800
const surrogateSize = 0x800

// tokensToRunes encodes each distinct token as a unique rune and returns both
// sequences re-encoded, plus the index->token table for decoding.
func tokensToRunes(beforeTokens, afterTokens []string) ([]rune, []rune, []string) {
	table := make([]string, 0, len(beforeTokens)+len(afterTokens))
	index := make(map[string]int, len(beforeTokens)+len(afterTokens))

	encode := func(tokens []string) []rune {
		out := make([]rune, 0, len(tokens))
		for _, tok := range tokens {
			i, ok := index[tok]
			if !ok {
				i = len(table)
				table = append(table, tok)
				index[tok] = i
			}
			out = append(out, indexToRune(i))
		}
		return out
	}

	rBefore := encode(beforeTokens)
	rAfter := encode(afterTokens)
	return rBefore, rAfter, table
}

func indexToRune(i int) rune {
	// Start at 1 and skip the surrogate block so every index survives a
	// rune -> string -> rune round trip inside diffmatchpatch.
	r := i + 1
	if r >= surrogateBase {
		r += surrogateSize
	}
	return rune(r)
}

func runeToIndex(r rune) int {
	i := int(r)
	if i >= surrogateBase+surrogateSize {
		i -= surrogateSize
	}
	return i - 1
}
