package mapper

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tracksync/tracksync/internal/engine"
)

func TestLookupProvider(t *testing.T) {
	p, err := LookupProvider("deepseek")
	require.NoError(t, err)
	require.Equal(t, "deepseek-chat", p.DefaultModel)
	require.Equal(t, "DEEPSEEK_API_KEY", p.KeyEnv)

	_, err = LookupProvider("nonesuch")
	require.ErrorContains(t, err, "unknown provider")
	require.ErrorContains(t, err, "anthropic")
}

func TestProviderIDs(t *testing.T) {
	ids := ProviderIDs()
	require.True(t, sort.StringsAreSorted(ids))
	for _, want := range []string{"anthropic", "deepseek", "qwen", "doubao", "zhipu", "openai"} {
		require.Contains(t, ids, want)
	}
}

func TestNewLLM_MissingKey(t *testing.T) {
	t.Setenv("ZHIPU_API_KEY", "")
	_, err := NewLLM(Options{Provider: "zhipu"})
	require.ErrorContains(t, err, "ZHIPU_API_KEY")
}

func TestNewLLM_Defaults(t *testing.T) {
	m, err := NewLLM(Options{Provider: "qwen", APIKey: "k"})
	require.NoError(t, err)
	require.Equal(t, "qwen-plus", m.model)
	require.Equal(t, StrategyMaxTokens, m.strategy)
	require.Equal(t, defaultMaxOutputTokens, m.maxOutput)
}

func TestBuildBatches(t *testing.T) {
	m := &LLM{} // nil codec: character heuristic
	long := strings.Repeat("a", 2000) // ~500 tokens + base

	rows := []engine.RowPair{
		{RowIndex: 0, SourceAfter: long},
		{RowIndex: 1, SourceAfter: long},
		{RowIndex: 2, SourceAfter: "short"},
	}
	batches := m.buildBatches(rows, 700)
	require.Len(t, batches, 3)

	// Every row lands in exactly one batch, input order preserved.
	var flat []int
	for _, b := range batches {
		for _, r := range b {
			flat = append(flat, r.RowIndex)
		}
	}
	require.Equal(t, []int{0, 1, 2}, flat)

	// A generous budget puts everything in one call.
	batches = m.buildBatches(rows, 100000)
	require.Len(t, batches, 1)
	require.Len(t, batches[0], 3)

	// An oversized single row still gets a batch of its own.
	batches = m.buildBatches(rows[:1], 10)
	require.Len(t, batches, 1)
}

func TestEstimateRow_UsesLongestField(t *testing.T) {
	m := &LLM{}
	short := engine.RowPair{SourceBefore: "ab", SourceAfter: "cd", TargetCurrent: "ef"}
	long := engine.RowPair{SourceBefore: "ab", SourceAfter: strings.Repeat("x", 400), TargetCurrent: "ef"}
	require.Greater(t, m.estimateRow(long), m.estimateRow(short))
	require.GreaterOrEqual(t, m.estimateRow(short), rowBaseTokens)
}

// completionResponse builds a minimal chat-completions response body.
func completionResponse(content, finishReason string) map[string]any {
	return map[string]any{
		"id":      "cmpl-test",
		"object":  "chat.completion",
		"created": 1,
		"model":   "test-model",
		"choices": []map[string]any{{
			"index":         0,
			"message":       map[string]any{"role": "assistant", "content": content},
			"finish_reason": finishReason,
		}},
	}
}

// newTestLLM points a mapper at a local server that replies from the given
// queue of responses, one per call.
func newTestLLM(t *testing.T, strategy Strategy, responses []map[string]any) (*LLM, *int) {
	t.Helper()
	calls := new(int)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		i := *calls
		*calls++
		require.LessOrEqual(t, i, len(responses)-1, "more calls than queued responses")
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(responses[i]))
	}))
	t.Cleanup(srv.Close)

	m, err := NewLLM(Options{
		Provider:   "openai",
		APIKey:     "test-key",
		Strategy:   strategy,
		SourceLang: "Chinese",
		TargetLang: "English",
		baseURL:    srv.URL,
	})
	require.NoError(t, err)
	return m, calls
}

func TestMap_SingleCall(t *testing.T) {
	m, calls := newTestLLM(t, StrategyMaxTokens, []map[string]any{
		completionResponse(`[{"row_index": 4, "target_after": "updated text", "confidence": 0.9}]`, "stop"),
	})

	got, err := m.Map(context.Background(), []engine.RowPair{
		{RowIndex: 4, SourceBefore: "旧", SourceAfter: "新", TargetCurrent: "old text"},
	})
	require.NoError(t, err)
	require.Equal(t, 1, *calls)
	require.Equal(t, []engine.Proposal{
		{RowIndex: 4, TargetAfter: "updated text", Confidence: 0.9},
	}, got)
}

func TestMap_EmptyInput(t *testing.T) {
	m, calls := newTestLLM(t, StrategyMaxTokens, nil)
	got, err := m.Map(context.Background(), nil)
	require.NoError(t, err)
	require.Empty(t, got)
	require.Equal(t, 0, *calls)
}

func TestMap_TruncationRequeuesTail(t *testing.T) {
	// First call truncates: the last salvaged object is dropped as suspect
	// and its row is retried together with the row that never appeared.
	first := `[{"row_index": 0, "target_after": "row zero"}, {"row_index": 1, "target_after": "row one but suspect"}`
	second := `[{"row_index": 1, "target_after": "row one"}, {"row_index": 2, "target_after": "row two"}]`
	m, calls := newTestLLM(t, StrategyMaxTokens, []map[string]any{
		completionResponse(first, "length"),
		completionResponse(second, "stop"),
	})

	pairs := []engine.RowPair{{RowIndex: 0}, {RowIndex: 1}, {RowIndex: 2}}
	got, err := m.Map(context.Background(), pairs)
	require.NoError(t, err)
	require.Equal(t, 2, *calls)
	require.Len(t, got, 3)
	require.Equal(t, "row zero", got[0].TargetAfter)
	require.Equal(t, "row one", got[1].TargetAfter)
	require.Equal(t, "row two", got[2].TargetAfter)
}

func TestMap_MissingRowsAbsentAfterRetries(t *testing.T) {
	resp := completionResponse(`[{"row_index": 0, "target_after": "only row zero"}]`, "stop")
	m, calls := newTestLLM(t, StrategyMaxTokens, []map[string]any{resp, resp, resp})

	got, err := m.Map(context.Background(), []engine.RowPair{{RowIndex: 0}, {RowIndex: 7}})
	require.NoError(t, err)
	require.Equal(t, 3, *calls) // initial call plus both retries for row 7
	require.Len(t, got, 1)
	require.Equal(t, 0, got[0].RowIndex)
}

func TestMap_BatchStrategy(t *testing.T) {
	m, calls := newTestLLM(t, StrategyBatch, []map[string]any{
		completionResponse("```json\n[{\"row_index\": 0, \"target_after\": \"a\"}, {\"row_index\": 1, \"target_after\": \"b\"}]\n```", "stop"),
	})

	got, err := m.Map(context.Background(), []engine.RowPair{
		{RowIndex: 0, TargetCurrent: "x"},
		{RowIndex: 1, TargetCurrent: "y"},
	})
	require.NoError(t, err)
	require.Equal(t, 1, *calls)
	require.Len(t, got, 2)
	require.Equal(t, "a", got[0].TargetAfter)
	require.Equal(t, "b", got[1].TargetAfter)
}

func TestUserMessage(t *testing.T) {
	msg, err := userMessage([]engine.RowPair{
		{RowIndex: 3, SourceBefore: "甲", SourceAfter: "乙", TargetCurrent: "current"},
	})
	require.NoError(t, err)
	require.Contains(t, msg, `"row_index":3`)
	require.Contains(t, msg, `"source_before":"甲"`)
	require.Contains(t, msg, "INPUT_JSON:")
}

func TestSystemPrompt_NamesLanguages(t *testing.T) {
	p := systemPrompt("Chinese", "Spanish")
	require.Contains(t, p, "Chinese")
	require.Contains(t, p, "Spanish")
	require.Contains(t, p, "target_after")
}
