// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

import (
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/jeranaias/amadeus-tui/internal/extract"
	"github.com/jeranaias/amadeus-tui/internal/model"
)

// Claude endpoint and defaults.
const (
	ClaudeURL          = "https://api.anthropic.com/v1/messages"
	ClaudeDefaultModel = "claude-sonnet-4-20250514"
	ClaudeAPIVersion   = "2023-06-01"
)

// ClaudeClient speaks the Anthropic messages API.
type ClaudeClient struct {
	url string
}

// NewClaude creates the Claude client.
func NewClaude() *ClaudeClient {
	return &ClaudeClient{url: ClaudeURL}
}

// WithURL overrides the endpoint.
func (c *ClaudeClient) WithURL(url string) *ClaudeClient {
	c.url = url
	return c
}

func (c *ClaudeClient) Kind() Kind             { return KindClaude }
func (c *ClaudeClient) Name() string           { return KindClaude.String() }
func (c *ClaudeClient) StreamsByDefault() bool { return false }

// BuildRequest builds a messages request. The system prompt travels in its
// own top-level field.
func (c *ClaudeClient) BuildRequest(history []model.Message, sel Selection) (*Request, error) {
	if strings.TrimSpace(sel.Credential) == "" {
		return nil, &ProviderError{Provider: KindClaude, Err: ErrMissingCredential}
	}

	body, err := marshalClaude(claudeParams(history, orDefault(sel.Model, ClaudeDefaultModel)), sel.Stream)
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", c.Name(), err)
	}

	req := newRequest(c.url, body, sel.Stream, sel.Credential)
	req.Header.Set("x-api-key", sel.Credential)
	req.Header.Set("anthropic-version", ClaudeAPIVersion)
	return req, nil
}

// claudeParams converts history into messages params. The last system
// entry wins; Claude takes it as a top-level block, not a message.
func claudeParams(history []model.Message, modelName string) anthropic.MessageNewParams {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(modelName),
		MaxTokens: int64(defaultMaxTokens),
		Messages:  make([]anthropic.MessageParam, 0, len(history)),
	}
	for _, m := range history {
		switch m.Role {
		case model.RoleSystem:
			params.System = []anthropic.TextBlockParam{{Text: m.Content}}
		case model.RoleAssistant:
			params.Messages = append(params.Messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		default:
			params.Messages = append(params.Messages, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}
	return params
}

// marshalClaude serializes params and sets the stream flag, which the SDK
// leaves to its streaming entry point.
func marshalClaude(params anthropic.MessageNewParams, stream bool) ([]byte, error) {
	body, err := params.MarshalJSON()
	if err != nil {
		return nil, err
	}
	if stream {
		return sjson.SetBytes(body, "stream", true)
	}
	return body, nil
}

func (c *ClaudeClient) DecodeBatch(body []byte) (string, error) {
	return batchContent(KindClaude, body, "content.0.text", "content", "text")
}

func (c *ClaudeClient) DecodeStreamChunk(prev, chunk []byte) (string, []byte, error) {
	return decodeSSE(KindClaude, prev, chunk, claudeDelta)
}

// claudeDelta extracts text from content_block_delta events only.
func claudeDelta(payload string) string {
	if extract.Valid(payload) {
		if gjson.Get(payload, "type").String() != "content_block_delta" {
			return ""
		}
		return gjson.Get(payload, "delta.text").String()
	}
	s, _ := extract.StringAfter(payload, "delta", "text")
	return s
}
