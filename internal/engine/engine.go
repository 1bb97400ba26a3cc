// Package engine orchestrates one sync pass over a bilingual document:
// extract tracked revisions from the source column, ask the semantic mapper
// for the corresponding target text, and apply the difference to the target
// column as fresh tracked changes.
//
// A pass owns its Package exclusively for its whole duration. Rows are
// processed independently and sequentially in row order; a per-row failure
// never aborts the pass.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tracksync/tracksync/internal/diff"
	"github.com/tracksync/tracksync/internal/docx"
	"github.com/tracksync/tracksync/internal/revision"
	"github.com/tracksync/tracksync/internal/simplelogger"
	"github.com/tracksync/tracksync/internal/tokenize"
)

// ErrNoChangeNeeded reports that a row's current and proposed target texts
// are identical. It is a skip signal, not a failure: the caller counts the
// row as skipped and the document is untouched.
var ErrNoChangeNeeded = errors.New("no change needed")

// ErrSynthesisFailed reports a failure while constructing or installing the
// replacement fragment. The original subtree is guaranteed untouched.
var ErrSynthesisFailed = errors.New("synthesis failed")

// RowPair is one revised source row paired with its current target text.
type RowPair struct {
	RowIndex      int    `json:"row_index"`
	SourceBefore  string `json:"source_before"`
	SourceAfter   string `json:"source_after"`
	TargetCurrent string `json:"target_current"`
}

// Proposal is the mapper's answer for one row. Confidence is informational
// only; the engine never acts on it.
type Proposal struct {
	RowIndex    int
	TargetAfter string
	Confidence  float64
	Explanation string
}

// Mapper is the external semantic collaborator: it decides what the target
// text should become. The engine treats its output as opaque and tolerates
// TargetAfter == TargetCurrent (meaning "no edit needed"). Rows missing from
// the result are counted as failed.
type Mapper interface {
	Map(ctx context.Context, pairs []RowPair) ([]Proposal, error)
}

// Config parameterizes a sync pass. The engine takes no configuration beyond
// this; provider and model selection belong to the Mapper.
type Config struct {
	SourceColumn int // 0-based column holding the tracked revisions
	TargetColumn int // 0-based column to receive synthesized revisions
	Author       string
	// Timestamp stamps every synthesized revision; zero means time of call.
	Timestamp time.Time
}

// Engine runs sync passes. One Engine may be reused across documents, but a
// single Package must never be synced concurrently.
type Engine struct {
	mapper Mapper
	cfg    Config
}

func New(mapper Mapper, cfg Config) *Engine {
	return &Engine{mapper: mapper, cfg: cfg}
}

// ExtractPairs scans the document for rows whose source cell carries tracked
// revisions and returns their reconstructed states plus the target cell's
// current text. Rows that lack either column are not candidates and are
// skipped silently; rows with malformed source markup are reported in failed.
func (e *Engine) ExtractPairs(pkg *docx.Package) (pairs []RowPair, failed []RowOutcome) {
	for idx, row := range pkg.Rows() {
		cells := docx.RowCells(row)
		if e.cfg.SourceColumn >= len(cells) || e.cfg.TargetColumn >= len(cells) {
			continue
		}
		source := cells[e.cfg.SourceColumn]
		if !revision.CellHasRevisions(source) {
			continue
		}
		before, after, err := revision.ExtractStates(source)
		if err != nil {
			failed = append(failed, RowOutcome{RowIndex: idx, Status: StatusFailed, Err: err})
			continue
		}
		pairs = append(pairs, RowPair{
			RowIndex:      idx,
			SourceBefore:  before,
			SourceAfter:   after,
			TargetCurrent: revision.ExtractPlainText(cells[e.cfg.TargetColumn]),
		})
	}
	return pairs, failed
}

// Sync runs one full pass over pkg. The returned Summary always reflects
// every candidate row; a non-nil error means the pass aborted before any
// mutation (mapper failure or identifier scan failure).
func (e *Engine) Sync(ctx context.Context, pkg *docx.Package) (*Summary, error) {
	summary := &Summary{}

	pairs, failed := e.ExtractPairs(pkg)
	for _, f := range failed {
		summary.record(f)
	}
	if len(pairs) == 0 {
		return summary, nil
	}
	simplelogger.Log("sync: %d candidate rows", len(pairs))

	proposals, err := e.mapper.Map(ctx, pairs)
	if err != nil {
		return summary, fmt.Errorf("map revisions: %w", err)
	}
	byRow := make(map[int]Proposal, len(proposals))
	for _, p := range proposals {
		byRow[p.RowIndex] = p
	}

	alloc, err := revision.NewAllocator(pkg.Document())
	if err != nil {
		return summary, err
	}

	opts := revision.SynthesizeOptions{
		Author:      e.cfg.Author,
		Timestamp:   e.cfg.Timestamp,
		EmitDateUTC: documentDeclaresDateUTC(pkg),
	}

	// Replacements are applied sequentially in row order: each one changes
	// node identity under the tree, so no two may interleave.
	for _, pair := range pairs {
		prop, ok := byRow[pair.RowIndex]
		if !ok || prop.TargetAfter == "" {
			summary.record(RowOutcome{
				RowIndex: pair.RowIndex,
				Status:   StatusFailed,
				Err:      fmt.Errorf("mapper returned no proposal for row %d", pair.RowIndex),
			})
			continue
		}

		changes, err := e.applyRow(pkg, alloc, opts, pair.RowIndex, pair.TargetCurrent, prop.TargetAfter)
		switch {
		case errors.Is(err, ErrNoChangeNeeded):
			summary.record(RowOutcome{RowIndex: pair.RowIndex, Status: StatusSkipped})
		case err != nil:
			summary.record(RowOutcome{RowIndex: pair.RowIndex, Status: StatusFailed, Err: err})
		default:
			summary.record(RowOutcome{RowIndex: pair.RowIndex, Status: StatusApplied, Changes: changes})
		}
	}

	return summary, nil
}

// applyRow diffs current against after and swaps the synthesized fragment
// into the target cell. It returns the number of Delete/Insert spans applied,
// or ErrNoChangeNeeded when the texts agree.
func (e *Engine) applyRow(pkg *docx.Package, alloc *revision.Allocator, opts revision.SynthesizeOptions, rowIndex int, current, after string) (int, error) {
	if current == after {
		return 0, ErrNoChangeNeeded
	}

	script := diff.DiffTokens(tokenize.Tokenize(current), tokenize.Tokenize(after))
	if !script.HasChanges() {
		return 0, ErrNoChangeNeeded
	}

	cell, err := pkg.FindCell(rowIndex, e.cfg.TargetColumn)
	if err != nil {
		return 0, err
	}

	fragment := revision.Synthesize(script, alloc, opts)
	if err := revision.ReplaceCellContent(cell, fragment); err != nil {
		return 0, fmt.Errorf("%w: row %d: %v", ErrSynthesisFailed, rowIndex, err)
	}

	var changes int
	for _, edit := range script.Edits {
		if edit.Op != diff.OpEqual {
			changes++
		}
	}
	simplelogger.Log("sync: row %d applied %d changes", rowIndex, changes)
	return changes, nil
}

// documentDeclaresDateUTC reports whether the document root declares the
// w16du namespace; only then may synthesized spans carry w16du:dateUtc.
func documentDeclaresDateUTC(pkg *docx.Package) bool {
	root := pkg.Document().Root()
	return root != nil && root.SelectAttr("xmlns:w16du") != nil
}
