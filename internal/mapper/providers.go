package mapper

import (
	"fmt"
	"sort"
	"strings"
)

// Provider describes an inference provider: identity, endpoint, default
// model, and the environment variable conventionally holding its API key.
//
// Every provider is served through the OpenAI-compatible chat-completions
// surface; only the base URL and credentials differ.
type Provider struct {
	ID           string
	Name         string
	BaseURL      string
	KeyEnv       string
	DefaultModel string
}

var providers = map[string]Provider{
	"anthropic": {
		ID:           "anthropic",
		Name:         "Anthropic Claude",
		BaseURL:      "https://api.anthropic.com/v1",
		KeyEnv:       "ANTHROPIC_API_KEY",
		DefaultModel: "claude-sonnet-4-20250514",
	},
	"deepseek": {
		ID:           "deepseek",
		Name:         "DeepSeek",
		BaseURL:      "https://api.deepseek.com",
		KeyEnv:       "DEEPSEEK_API_KEY",
		DefaultModel: "deepseek-chat",
	},
	"qwen": {
		ID:           "qwen",
		Name:         "Alibaba Qwen",
		BaseURL:      "https://dashscope.aliyuncs.com/compatible-mode/v1",
		KeyEnv:       "QWEN_API_KEY",
		DefaultModel: "qwen-plus",
	},
	"doubao": {
		ID:           "doubao",
		Name:         "ByteDance Doubao",
		BaseURL:      "https://ark.cn-beijing.volces.com/api/v3",
		KeyEnv:       "DOUBAO_API_KEY",
		DefaultModel: "doubao-pro-32k",
	},
	"zhipu": {
		ID:           "zhipu",
		Name:         "Zhipu GLM",
		BaseURL:      "https://open.bigmodel.cn/api/paas/v4",
		KeyEnv:       "ZHIPU_API_KEY",
		DefaultModel: "glm-4",
	},
	"openai": {
		ID:           "openai",
		Name:         "OpenAI",
		BaseURL:      "https://api.openai.com/v1",
		KeyEnv:       "OPENAI_API_KEY",
		DefaultModel: "gpt-4o",
	},
}

// LookupProvider returns the provider with the given id.
func LookupProvider(id string) (Provider, error) {
	p, ok := providers[id]
	if !ok {
		return Provider{}, fmt.Errorf("unknown provider %q (available: %s)", id, strings.Join(ProviderIDs(), ", "))
	}
	return p, nil
}

// ProviderIDs returns the known provider ids, sorted.
func ProviderIDs() []string {
	ids := make([]string, 0, len(providers))
	for id := range providers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
