// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"fmt"
	"sort"
	"strings"
)

// =============================================================================
// MODEL INFO TYPE
// =============================================================================

// ModelInfo describes a model suggested for one of the providers. The catalog
// is advisory: any model string is passed through to the provider as-is.
type ModelInfo struct {
	// ID is the model identifier used in API calls
	ID string `json:"id"`

	// Name is the human-readable display name
	Name string `json:"name"`

	// Provider is the provider display name (OpenAI, Gemini, Claude, Groq, Vertex)
	Provider string `json:"provider"`

	// Reasoning is true for models that emit <think> spans
	Reasoning bool `json:"reasoning,omitempty"`

	// WebSearch is true when the provider can ground this model with search
	WebSearch bool `json:"web_search,omitempty"`

	// MaxTokens is the maximum context window size
	MaxTokens int `json:"max_tokens"`
}

// =============================================================================
// MODEL CATALOG
// =============================================================================

// Catalog lists well-known models per provider.
var Catalog = []ModelInfo{
	{ID: "gpt-4o", Name: "GPT-4o", Provider: "OpenAI", MaxTokens: 128000},
	{ID: "gpt-4o-mini", Name: "GPT-4o Mini", Provider: "OpenAI", MaxTokens: 128000},

	{ID: "gemini-2.0-flash", Name: "Gemini 2.0 Flash", Provider: "Gemini", MaxTokens: 1048576},
	{ID: "gemini-2.5-flash", Name: "Gemini 2.5 Flash", Provider: "Gemini", MaxTokens: 1048576},

	{ID: "claude-sonnet-4-20250514", Name: "Claude Sonnet 4", Provider: "Claude", MaxTokens: 200000},

	{ID: "qwen/qwen3-32b", Name: "Qwen3 32B", Provider: "Groq", Reasoning: true, MaxTokens: 131072},
	{ID: "llama-3.3-70b-versatile", Name: "Llama 3.3 70B", Provider: "Groq", MaxTokens: 131072},
	{ID: "groq/compound", Name: "Compound", Provider: "Groq", WebSearch: true, MaxTokens: 131072},

	{ID: "gemini-2.5-flash", Name: "Gemini 2.5 Flash", Provider: "Vertex", WebSearch: true, MaxTokens: 1048576},
	{ID: "gemini-2.5-pro", Name: "Gemini 2.5 Pro", Provider: "Vertex", WebSearch: true, MaxTokens: 1048576},
}

// ContextString returns a formatted context window string.
func (m ModelInfo) ContextString() string {
	if m.MaxTokens >= 1000000 {
		return fmt.Sprintf("%.1fM tokens", float64(m.MaxTokens)/1000000)
	}
	if m.MaxTokens >= 1000 {
		return fmt.Sprintf("%dK tokens", m.MaxTokens/1000)
	}
	return fmt.Sprintf("%d tokens", m.MaxTokens)
}

// =============================================================================
// MODEL LOOKUP FUNCTIONS
// =============================================================================

// ModelsByProvider returns the catalog entries for a provider display name.
func ModelsByProvider(provider string) []ModelInfo {
	result := []ModelInfo{}
	for _, info := range Catalog {
		if strings.EqualFold(info.Provider, provider) {
			result = append(result, info)
		}
	}
	return result
}

// LookupModel finds a model by ID, optionally restricted to a provider.
func LookupModel(provider, id string) (ModelInfo, bool) {
	for _, info := range Catalog {
		if info.ID != id {
			continue
		}
		if provider == "" || strings.EqualFold(info.Provider, provider) {
			return info, true
		}
	}
	return ModelInfo{}, false
}

// Providers returns the sorted provider names present in the catalog.
func Providers() []string {
	seen := map[string]bool{}
	for _, info := range Catalog {
		seen[info.Provider] = true
	}
	out := make([]string, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
