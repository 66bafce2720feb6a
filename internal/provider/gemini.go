// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"
	"google.golang.org/genai"

	"github.com/jeranaias/amadeus-tui/internal/extract"
	"github.com/jeranaias/amadeus-tui/internal/model"
)

// Gemini endpoint and defaults.
const (
	GeminiBaseURL      = "https://generativelanguage.googleapis.com/v1beta/models"
	GeminiDefaultModel = "gemini-2.0-flash"
)

// contentBody is the structured-content request shared by Gemini and Vertex.
type contentBody struct {
	SystemInstruction *genai.Content          `json:"system_instruction,omitempty"`
	Contents          []*genai.Content        `json:"contents"`
	GenerationConfig  *genai.GenerationConfig `json:"generationConfig,omitempty"`
	Tools             []*genai.Tool           `json:"tools,omitempty"`
}

// buildContentBody maps history onto structured content. The system message
// becomes system_instruction and assistant turns use the "model" role.
func buildContentBody(history []model.Message, webSearch bool) ([]byte, error) {
	b := contentBody{
		Contents:         make([]*genai.Content, 0, len(history)),
		GenerationConfig: &genai.GenerationConfig{MaxOutputTokens: defaultMaxTokens},
	}
	for _, m := range history {
		switch m.Role {
		case model.RoleSystem:
			b.SystemInstruction = &genai.Content{Parts: []*genai.Part{genai.NewPartFromText(m.Content)}}
		case model.RoleAssistant:
			b.Contents = append(b.Contents, &genai.Content{
				Role:  string(genai.RoleModel),
				Parts: []*genai.Part{genai.NewPartFromText(m.Content)},
			})
		default:
			b.Contents = append(b.Contents, &genai.Content{
				Role:  string(genai.RoleUser),
				Parts: []*genai.Part{genai.NewPartFromText(m.Content)},
			})
		}
	}
	if webSearch {
		b.Tools = []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}}
	}
	return json.Marshal(b)
}

// contentDelta concatenates every text part of a streamed candidate.
func contentDelta(payload string) string {
	if extract.Valid(payload) {
		var sb strings.Builder
		for _, r := range gjson.Get(payload, "candidates.0.content.parts.#.text").Array() {
			sb.WriteString(r.String())
		}
		return sb.String()
	}
	return strings.Join(extract.All(payload, "text"), "")
}

func decodeContentBatch(kind Kind, body []byte) (string, error) {
	return batchContent(kind, body, "candidates.0.content.parts.0.text", "", "text")
}

// GeminiClient speaks the public Generative Language API.
type GeminiClient struct {
	baseURL string
}

// NewGemini creates the Gemini client.
func NewGemini() *GeminiClient {
	return &GeminiClient{baseURL: GeminiBaseURL}
}

// WithBaseURL overrides the models endpoint.
func (c *GeminiClient) WithBaseURL(u string) *GeminiClient {
	c.baseURL = strings.TrimSuffix(u, "/")
	return c
}

func (c *GeminiClient) Kind() Kind             { return KindGemini }
func (c *GeminiClient) Name() string           { return KindGemini.String() }
func (c *GeminiClient) StreamsByDefault() bool { return false }

// BuildRequest builds a generateContent request. The key travels in the query.
func (c *GeminiClient) BuildRequest(history []model.Message, sel Selection) (*Request, error) {
	if strings.TrimSpace(sel.Credential) == "" {
		return nil, &ProviderError{Provider: KindGemini, Err: ErrMissingCredential}
	}

	body, err := buildContentBody(history, false)
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", c.Name(), err)
	}

	m := url.PathEscape(orDefault(sel.Model, GeminiDefaultModel))
	key := url.QueryEscape(sel.Credential)
	var endpoint string
	if sel.Stream {
		endpoint = fmt.Sprintf("%s/%s:streamGenerateContent?alt=sse&key=%s", c.baseURL, m, key)
	} else {
		endpoint = fmt.Sprintf("%s/%s:generateContent?key=%s", c.baseURL, m, key)
	}
	return newRequest(endpoint, body, sel.Stream, sel.Credential), nil
}

func (c *GeminiClient) DecodeBatch(body []byte) (string, error) {
	return decodeContentBatch(KindGemini, body)
}

func (c *GeminiClient) DecodeStreamChunk(prev, chunk []byte) (string, []byte, error) {
	return decodeSSE(KindGemini, prev, chunk, contentDelta)
}
