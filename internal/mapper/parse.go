package mapper

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/tracksync/tracksync/internal/engine"
)

type proposalJSON struct {
	RowIndex    *int     `json:"row_index"`
	TargetAfter *string  `json:"target_after"`
	Confidence  *float64 `json:"confidence"`
	Explanation string   `json:"explanation"`
}

// defaultConfidence is assumed when the model omits the field.
const defaultConfidence = 0.8

// parseProposals parses a full response strictly, falling back to salvage
// when the strict parse fails (wrapping prose, truncation).
func parseProposals(text string) []engine.Proposal {
	body := stripCodeFence(text)

	var items []proposalJSON
	if err := json.Unmarshal([]byte(body), &items); err == nil {
		return normalize(items)
	}

	// Some models wrap the array in {"results": [...]}.
	var wrapped struct {
		Results []proposalJSON `json:"results"`
	}
	if err := json.Unmarshal([]byte(body), &wrapped); err == nil && wrapped.Results != nil {
		return normalize(wrapped.Results)
	}

	return salvageProposals(body)
}

// objectPattern matches a balanced brace-free JSON object containing a
// row_index field. It cannot match objects whose strings contain braces; such
// rows simply fail and are retried.
var objectPattern = regexp.MustCompile(`\{[^{}]*"row_index"\s*:\s*\d+[^{}]*\}`)

// salvageProposals extracts every complete proposal object from text, which
// may be a truncated or prose-wrapped response. Complete leading objects
// survive; the unparsable tail is dropped.
func salvageProposals(text string) []engine.Proposal {
	body := stripCodeFence(text)

	var items []proposalJSON
	for _, chunk := range objectPattern.FindAllString(body, -1) {
		var item proposalJSON
		if err := json.Unmarshal([]byte(chunk), &item); err != nil {
			continue
		}
		items = append(items, item)
	}
	return normalize(items)
}

// normalize drops items missing required fields and applies defaults.
func normalize(items []proposalJSON) []engine.Proposal {
	var out []engine.Proposal
	for _, item := range items {
		if item.RowIndex == nil || item.TargetAfter == nil {
			continue
		}
		confidence := defaultConfidence
		if item.Confidence != nil {
			confidence = *item.Confidence
		}
		out = append(out, engine.Proposal{
			RowIndex:    *item.RowIndex,
			TargetAfter: *item.TargetAfter,
			Confidence:  confidence,
			Explanation: item.Explanation,
		})
	}
	return out
}

// stripCodeFence removes a markdown code fence (```json ... ```) if present.
func stripCodeFence(text string) string {
	if !strings.Contains(text, "```") {
		return strings.TrimSpace(text)
	}
	start := strings.Index(text, "```")
	if nl := strings.IndexByte(text[start:], '\n'); nl != -1 {
		start += nl + 1
	} else {
		start += 3
	}
	if end := strings.Index(text[start:], "```"); end != -1 {
		return strings.TrimSpace(text[start : start+end])
	}
	return strings.TrimSpace(text[start:])
}
