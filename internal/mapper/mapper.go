// Package mapper implements the semantic mapper collaborator: given a source
// revision (before/after) and the target column's current text, it asks a
// language model what the target text should become.
//
// The sync core treats the mapper as a pure function per row; everything
// messy about talking to providers (batching, output-limit truncation,
// salvage parsing) is contained here.
package mapper

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/tiktoken-go/tokenizer"

	"github.com/tracksync/tracksync/internal/engine"
)

// Strategy selects how rows are packed into model calls.
type Strategy string

const (
	// StrategyMaxTokens sends every pending row each call and lets the model
	// fill its output limit; complete objects are salvaged from possibly
	// truncated output and the remaining rows go into the next call.
	StrategyMaxTokens Strategy = "max-tokens"

	// StrategyBatch pre-estimates per-row output cost and sizes batches so
	// each call completes without truncation; responses parse strictly.
	StrategyBatch Strategy = "batch"
)

// Defaults mirroring the tuning the pipeline ships with.
const (
	defaultMaxOutputTokens = 4096
	defaultMaxRetries      = 2

	// batch strategy tuning
	outputSafetyRatio = 0.7
	rowBaseTokens     = 80
	retryShrinkRatio  = 0.6
	minOutputBudget   = 200
)

// Options configure an LLM mapper. Provider is required; Model and APIKey
// fall back to the provider's default model and key environment variable.
type Options struct {
	Provider   string
	Model      string
	APIKey     string
	Strategy   Strategy
	SourceLang string
	TargetLang string

	// MaxOutputTokens caps each completion; 0 means the default.
	MaxOutputTokens int

	Logger *slog.Logger

	// baseURL overrides the provider endpoint. Tests point it at a local
	// server.
	baseURL string
}

// LLM maps revisions through an OpenAI-compatible chat-completions endpoint.
type LLM struct {
	client    openai.Client
	provider  Provider
	model     string
	strategy  Strategy
	source    string
	target    string
	maxOutput int
	logger    *slog.Logger
	codec     tokenizer.Codec // token estimation for batch sizing; may be nil
}

var _ engine.Mapper = (*LLM)(nil)

// NewLLM constructs a mapper for the given provider.
//
// Key resolution order: Options.APIKey, then the provider's key environment
// variable. A missing key is a construction-time error so a sync pass never
// starts without credentials.
func NewLLM(opts Options) (*LLM, error) {
	provider, err := LookupProvider(opts.Provider)
	if err != nil {
		return nil, err
	}

	key := opts.APIKey
	if key == "" {
		key = os.Getenv(provider.KeyEnv)
	}
	if key == "" {
		return nil, fmt.Errorf("API key required for %s: set %s or pass --api-key", provider.Name, provider.KeyEnv)
	}

	model := opts.Model
	if model == "" {
		model = provider.DefaultModel
	}
	strategy := opts.Strategy
	if strategy == "" {
		strategy = StrategyMaxTokens
	}
	maxOutput := opts.MaxOutputTokens
	if maxOutput <= 0 {
		maxOutput = defaultMaxOutputTokens
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	baseURL := opts.baseURL
	if baseURL == "" {
		baseURL = provider.BaseURL
	}

	// cl100k is close enough for budget estimation across providers; when the
	// codec is unavailable a character heuristic takes over (see estimateRow).
	codec, err := tokenizer.Get(tokenizer.Cl100kBase)
	if err != nil {
		codec = nil
	}

	return &LLM{
		client:    openai.NewClient(option.WithAPIKey(key), option.WithBaseURL(baseURL)),
		provider:  provider,
		model:     model,
		strategy:  strategy,
		source:    opts.SourceLang,
		target:    opts.TargetLang,
		maxOutput: maxOutput,
		logger:    logger,
		codec:     codec,
	}, nil
}

// Map implements engine.Mapper. Results come back in input order; rows the
// model never answered for (even after retries) are simply absent.
func (m *LLM) Map(ctx context.Context, pairs []engine.RowPair) ([]engine.Proposal, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	if m.strategy == StrategyBatch {
		return m.mapBatch(ctx, pairs)
	}
	return m.mapMaxTokens(ctx, pairs)
}

// mapMaxTokens sends all pending rows each round and salvages whatever
// complete objects the output limit allowed, requeueing the rest.
func (m *LLM) mapMaxTokens(ctx context.Context, pairs []engine.RowPair) ([]engine.Proposal, error) {
	results := make(map[int]engine.Proposal)
	pending := pairs

	for attempt := 0; attempt <= defaultMaxRetries && len(pending) > 0; attempt++ {
		m.logger.Info("mapper call", "strategy", m.strategy, "attempt", attempt+1, "rows", len(pending))

		text, finish, err := m.complete(ctx, pending)
		if err != nil {
			if attempt == defaultMaxRetries || ctx.Err() != nil {
				return orderedResults(pairs, results), err
			}
			continue
		}

		parsed := salvageProposals(text)
		if truncated(finish) && len(parsed) > 0 {
			// The last object may itself be cut mid-string yet still parse;
			// drop it rather than trust it.
			parsed = parsed[:len(parsed)-1]
		}
		for _, p := range parsed {
			results[p.RowIndex] = p
		}
		pending = missingRows(pending, results)
	}

	return orderedResults(pairs, results), nil
}

// mapBatch pre-sizes batches under the output budget so each call should
// complete without truncation, shrinking the budget on retries.
func (m *LLM) mapBatch(ctx context.Context, pairs []engine.RowPair) ([]engine.Proposal, error) {
	results := make(map[int]engine.Proposal)
	pending := pairs
	budget := int(float64(m.maxOutput) * outputSafetyRatio)

	for attempt := 0; attempt <= defaultMaxRetries && len(pending) > 0; attempt++ {
		batches := m.buildBatches(pending, budget)
		m.logger.Info("mapper call", "strategy", m.strategy, "attempt", attempt+1, "rows", len(pending), "batches", len(batches))

		for _, batch := range batches {
			text, finish, err := m.complete(ctx, batch)
			if err != nil {
				if ctx.Err() != nil {
					return orderedResults(pairs, results), err
				}
				continue // whole batch retried next attempt
			}
			parsed := parseProposals(text)
			if truncated(finish) && len(parsed) > 0 {
				parsed = parsed[:len(parsed)-1]
			}
			for _, p := range parsed {
				results[p.RowIndex] = p
			}
		}

		pending = missingRows(pending, results)
		if budget = int(float64(budget) * retryShrinkRatio); budget < minOutputBudget {
			budget = minOutputBudget
		}
	}

	return orderedResults(pairs, results), nil
}

// complete performs one chat-completions call over the given rows and returns
// the raw response text plus the finish reason.
func (m *LLM) complete(ctx context.Context, batch []engine.RowPair) (text, finishReason string, err error) {
	user, err := userMessage(batch)
	if err != nil {
		return "", "", err
	}

	resp, err := m.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(m.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt(m.source, m.target)),
			openai.UserMessage(user),
		},
		MaxTokens:   openai.Int(int64(m.maxOutput)),
		Temperature: openai.Float(0),
	})
	if err != nil {
		m.logger.Warn("mapper call failed", "provider", m.provider.ID, "err", err)
		return "", "", fmt.Errorf("%s completion: %w", m.provider.ID, err)
	}
	if len(resp.Choices) == 0 {
		return "", "", fmt.Errorf("%s completion: empty response", m.provider.ID)
	}
	choice := resp.Choices[0]
	return choice.Message.Content, string(choice.FinishReason), nil
}

func truncated(finishReason string) bool {
	return finishReason == "length" || finishReason == "max_tokens"
}

// buildBatches greedily packs rows into batches whose estimated output stays
// under budget. A single oversized row still gets its own batch.
func (m *LLM) buildBatches(rows []engine.RowPair, budget int) [][]engine.RowPair {
	var batches [][]engine.RowPair
	var current []engine.RowPair
	used := 0

	for _, row := range rows {
		cost := m.estimateRow(row)
		if len(current) > 0 && used+cost > budget {
			batches = append(batches, current)
			current = nil
			used = 0
		}
		current = append(current, row)
		used += cost
	}
	if len(current) > 0 {
		batches = append(batches, current)
	}
	return batches
}

// estimateRow estimates the output tokens a row will cost: a fixed overhead
// for the JSON wrapper plus the token count of the longest text the model
// must echo back.
func (m *LLM) estimateRow(row engine.RowPair) int {
	longest := row.SourceBefore
	if len(row.SourceAfter) > len(longest) {
		longest = row.SourceAfter
	}
	if len(row.TargetCurrent) > len(longest) {
		longest = row.TargetCurrent
	}
	return rowBaseTokens + m.countTokens(longest)
}

func (m *LLM) countTokens(text string) int {
	if m.codec != nil {
		if n, err := m.codec.Count(text); err == nil {
			return n
		}
	}
	// ~4 characters per token.
	return len(text)/4 + 1
}

func missingRows(pending []engine.RowPair, results map[int]engine.Proposal) []engine.RowPair {
	var out []engine.RowPair
	for _, row := range pending {
		if _, ok := results[row.RowIndex]; !ok {
			out = append(out, row)
		}
	}
	return out
}

func orderedResults(pairs []engine.RowPair, results map[int]engine.Proposal) []engine.Proposal {
	var out []engine.Proposal
	for _, pair := range pairs {
		if p, ok := results[pair.RowIndex]; ok {
			out = append(out, p)
		}
	}
	return out
}

// systemPrompt instructs the model on the mapping task and the output shape.
func systemPrompt(sourceLang, targetLang string) string {
	return fmt.Sprintf(`You are a professional bilingual legal translator.

Task
- Understand semantic changes from source_before to source_after in %s
- Apply minimal necessary changes to target_current in %s
- Return the full target_after text

Output format (JSON array only, no extra text)
Each item must include:
- row_index (int)
- target_after (string)
- confidence (0-1, float)
- explanation (string, optional)`, sourceLang, targetLang)
}

type rowPayload struct {
	RowIndex      int    `json:"row_index"`
	SourceBefore  string `json:"source_before"`
	SourceAfter   string `json:"source_after"`
	TargetCurrent string `json:"target_current"`
}

func userMessage(batch []engine.RowPair) (string, error) {
	payload := make([]rowPayload, 0, len(batch))
	for _, row := range batch {
		payload = append(payload, rowPayload{
			RowIndex:      row.RowIndex,
			SourceBefore:  row.SourceBefore,
			SourceAfter:   row.SourceAfter,
			TargetCurrent: row.TargetCurrent,
		})
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal rows: %w", err)
	}
	return "Process the following JSON array and return a JSON array of results.\n" +
		"Do not include any text outside the JSON array.\n\n" +
		"INPUT_JSON:\n" + string(b) + "\n", nil
}
