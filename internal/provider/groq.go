// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

import (
	"fmt"
	"strings"

	"github.com/openai/openai-go/packages/param"

	"github.com/jeranaias/amadeus-tui/internal/model"
)

// Groq endpoint and defaults.
const (
	GroqURL            = "https://api.groq.com/openai/v1/chat/completions"
	GroqDefaultModel   = "qwen/qwen3-32b"
	GroqWebSearchModel = "groq/compound"

	groqTemperature = 0.85
	groqTopP        = 0.9
)

// groqFamilies are substrings of model names Groq serves. Anything else
// (typically a model name left over from another provider) is replaced by
// GroqDefaultModel.
var groqFamilies = []string{"llama", "mixtral", "gemma", "qwen", "deepseek", "compound"}

// GroqClient speaks chat-completions with Groq's sampling and reasoning knobs.
type GroqClient struct {
	url string
}

// NewGroq creates the Groq client.
func NewGroq() *GroqClient {
	return &GroqClient{url: GroqURL}
}

// WithURL overrides the endpoint.
func (c *GroqClient) WithURL(url string) *GroqClient {
	c.url = url
	return c
}

func (c *GroqClient) Kind() Kind             { return KindGroq }
func (c *GroqClient) Name() string           { return KindGroq.String() }
func (c *GroqClient) StreamsByDefault() bool { return true }

// ResolveModel applies the web-search override and the family fallback.
func (c *GroqClient) ResolveModel(sel Selection) string {
	if sel.WebSearch {
		return GroqWebSearchModel
	}
	m := strings.ToLower(strings.TrimSpace(sel.Model))
	for _, family := range groqFamilies {
		if strings.Contains(m, family) {
			return strings.TrimSpace(sel.Model)
		}
	}
	return GroqDefaultModel
}

// BuildRequest builds a chat-completions request for Groq.
func (c *GroqClient) BuildRequest(history []model.Message, sel Selection) (*Request, error) {
	if strings.TrimSpace(sel.Credential) == "" {
		return nil, &ProviderError{Provider: KindGroq, Err: ErrMissingCredential}
	}

	m := c.ResolveModel(sel)
	params := chatParams(history, m)
	params.Temperature = param.NewOpt(groqTemperature)
	params.TopP = param.NewOpt(groqTopP)
	if strings.Contains(strings.ToLower(m), "qwen") {
		// Keeps <think> spans out of the content channel.
		params.SetExtraFields(map[string]any{"reasoning_format": "hidden"})
	}

	body, err := marshalChat(params, sel.Stream)
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", c.Name(), err)
	}

	req := newRequest(c.url, body, sel.Stream, sel.Credential)
	req.Header.Set("Authorization", "Bearer "+sel.Credential)
	return req, nil
}

func (c *GroqClient) DecodeBatch(body []byte) (string, error) {
	return batchContent(KindGroq, body, "choices.0.message.content", "message", "content")
}

func (c *GroqClient) DecodeStreamChunk(prev, chunk []byte) (string, []byte, error) {
	return decodeSSE(KindGroq, prev, chunk, chatDelta)
}
