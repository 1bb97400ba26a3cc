// Package tokenize splits raw cell text into the comparison units the diff
// engine aligns. The split is a lossless partition: concatenating the returned
// tokens in order always reproduces the input exactly.
//
// Two modes exist, chosen per input by script detection:
//   - dense-script mode (CJK-heavy text): Unicode word segmentation, so that
//     multi-character words like 改变 diff as units instead of per character.
//   - delimiter mode (whitespace-delimited scripts): split on whitespace runs,
//     keeping the runs themselves as tokens.
package tokenize

import (
	"unicode"

	"github.com/clipperhouse/uax29/v2/words"
)

// denseScriptThreshold is the fraction of non-space runes that must be CJK
// ideographs before dense-script segmentation is used.
const denseScriptThreshold = 0.3

// Tokenize splits text into diff tokens. Empty input yields nil.
//
// Invariant: strings.Join(Tokenize(text), "") == text.
func Tokenize(text string) []string {
	if text == "" {
		return nil
	}
	if isDenseScript(text) {
		return segmentWords(text)
	}
	return splitWhitespaceRuns(text)
}

// isDenseScript reports whether text is dominated by CJK ideographs.
// Inputs with no non-space runes default to delimiter mode.
func isDenseScript(text string) bool {
	var ideographic, total int
	for _, r := range text {
		if r == ' ' {
			continue
		}
		total++
		if unicode.Is(unicode.Han, r) {
			ideographic++
		}
	}
	if total == 0 {
		return false
	}
	return float64(ideographic)/float64(total) > denseScriptThreshold
}

// segmentWords partitions text into UAX #29 word segments. Whitespace and
// punctuation come back as their own segments, so the partition is lossless.
func segmentWords(text string) []string {
	var tokens []string
	iter := words.FromString(text)
	for iter.Next() {
		if v := iter.Value(); v != "" {
			tokens = append(tokens, v)
		}
	}
	return tokens
}

// splitWhitespaceRuns splits text into alternating runs of non-whitespace and
// whitespace, keeping both. Zero-length runs are never emitted.
func splitWhitespaceRuns(text string) []string {
	var tokens []string
	start := 0
	inSpace := false
	for i, r := range text {
		sp := unicode.IsSpace(r)
		if i == 0 {
			inSpace = sp
			continue
		}
		if sp != inSpace {
			tokens = append(tokens, text[start:i])
			start = i
			inSpace = sp
		}
	}
	if start < len(text) {
		tokens = append(tokens, text[start:])
	}
	return tokens
}
