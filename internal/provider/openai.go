// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

import (
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/tidwall/sjson"

	"github.com/jeranaias/amadeus-tui/internal/model"
)

// OpenAI endpoint and defaults.
const (
	OpenAIURL          = "https://api.openai.com/v1/chat/completions"
	OpenAIDefaultModel = "gpt-4o"

	// defaultMaxTokens caps replies for every provider.
	defaultMaxTokens = 2048
)

// OpenAIClient speaks the chat-completions wire format.
type OpenAIClient struct {
	url string
}

// NewOpenAI creates the OpenAI client.
func NewOpenAI() *OpenAIClient {
	return &OpenAIClient{url: OpenAIURL}
}

// WithURL overrides the endpoint.
func (c *OpenAIClient) WithURL(url string) *OpenAIClient {
	c.url = url
	return c
}

func (c *OpenAIClient) Kind() Kind             { return KindOpenAI }
func (c *OpenAIClient) Name() string           { return KindOpenAI.String() }
func (c *OpenAIClient) StreamsByDefault() bool { return false }

// BuildRequest builds a chat-completions request.
func (c *OpenAIClient) BuildRequest(history []model.Message, sel Selection) (*Request, error) {
	if strings.TrimSpace(sel.Credential) == "" {
		return nil, &ProviderError{Provider: KindOpenAI, Err: ErrMissingCredential}
	}

	m := strings.TrimSpace(sel.Model)
	if m == "" {
		m = OpenAIDefaultModel
	}
	params := chatParams(history, m)

	body, err := marshalChat(params, sel.Stream)
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", c.Name(), err)
	}

	req := newRequest(c.url, body, sel.Stream, sel.Credential)
	req.Header.Set("Authorization", "Bearer "+sel.Credential)
	return req, nil
}

func (c *OpenAIClient) DecodeBatch(body []byte) (string, error) {
	return batchContent(KindOpenAI, body, "choices.0.message.content", "message", "content")
}

func (c *OpenAIClient) DecodeStreamChunk(prev, chunk []byte) (string, []byte, error) {
	return decodeSSE(KindOpenAI, prev, chunk, chatDelta)
}

// =============================================================================
// CHAT-COMPLETIONS HELPERS (shared with Groq)
// =============================================================================

// chatParams converts history into chat-completions params.
func chatParams(history []model.Message, modelName string) openai.ChatCompletionNewParams {
	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, len(history))
	for _, m := range history {
		switch m.Role {
		case model.RoleSystem:
			msgs = append(msgs, openai.SystemMessage(m.Content))
		case model.RoleAssistant:
			msgs = append(msgs, openai.AssistantMessage(m.Content))
		default:
			msgs = append(msgs, openai.UserMessage(m.Content))
		}
	}

	params := openai.ChatCompletionNewParams{
		Model:    modelName,
		Messages: msgs,
	}
	params.MaxTokens = openai.Int(defaultMaxTokens)
	return params
}

// marshalChat serializes params and sets the stream flag, which the params
// type leaves to the SDK's streaming entry point.
func marshalChat(params openai.ChatCompletionNewParams, stream bool) ([]byte, error) {
	body, err := params.MarshalJSON()
	if err != nil {
		return nil, err
	}
	if stream {
		return sjson.SetBytes(body, "stream", true)
	}
	return body, nil
}

func chatDelta(payload string) string {
	s, _ := pathOrAnchor(payload, "choices.0.delta.content", "delta", "content")
	return s
}
