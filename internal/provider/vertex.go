// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/jeranaias/amadeus-tui/internal/model"
)

// Vertex defaults.
const (
	VertexDefaultModel    = "gemini-2.0-flash"
	VertexDefaultLocation = "us-central1"
	VertexGlobalLocation  = "global"
)

// VertexClient speaks the regional Vertex AI endpoint. The credential is an
// OAuth access token; region selection and retry belong to the caller.
type VertexClient struct {
	// hostFor returns the scheme and host for a location. Tests override it.
	hostFor func(location string) string
}

// NewVertex creates the Vertex client.
func NewVertex() *VertexClient {
	return &VertexClient{hostFor: VertexHost}
}

// WithHost pins every location to one base URL.
func (c *VertexClient) WithHost(base string) *VertexClient {
	base = strings.TrimSuffix(base, "/")
	c.hostFor = func(string) string { return base }
	return c
}

// VertexHost returns the base URL for a location.
func VertexHost(location string) string {
	if location == VertexGlobalLocation {
		return "https://aiplatform.googleapis.com"
	}
	return "https://" + location + "-aiplatform.googleapis.com"
}

func (c *VertexClient) Kind() Kind             { return KindVertex }
func (c *VertexClient) Name() string           { return KindVertex.String() }
func (c *VertexClient) StreamsByDefault() bool { return true }

// Endpoint returns the request URL for a location.
func (c *VertexClient) Endpoint(project, location, modelName string, stream bool) string {
	method := "generateContent"
	if stream {
		method = "streamGenerateContent?alt=sse"
	}
	return fmt.Sprintf("%s/v1/projects/%s/locations/%s/publishers/google/models/%s:%s",
		c.hostFor(location), url.PathEscape(project), url.PathEscape(location), url.PathEscape(modelName), method)
}

// BuildRequest builds a request for sel.Region. Web search adds the Google
// Search grounding tool.
func (c *VertexClient) BuildRequest(history []model.Message, sel Selection) (*Request, error) {
	if strings.TrimSpace(sel.Project) == "" || strings.TrimSpace(sel.Credential) == "" {
		return nil, &ProviderError{Provider: KindVertex, Err: ErrMissingCredential}
	}

	body, err := buildContentBody(history, sel.WebSearch)
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", c.Name(), err)
	}

	location := strings.TrimSpace(sel.Region)
	if location == "" {
		location = VertexDefaultLocation
	}
	endpoint := c.Endpoint(sel.Project, location, orDefault(sel.Model, VertexDefaultModel), sel.Stream)

	req := newRequest(endpoint, body, sel.Stream, sel.Credential)
	req.Header.Set("Authorization", "Bearer "+sel.Credential)
	return req, nil
}

func (c *VertexClient) DecodeBatch(body []byte) (string, error) {
	return decodeContentBatch(KindVertex, body)
}

func (c *VertexClient) DecodeStreamChunk(prev, chunk []byte) (string, []byte, error) {
	return decodeSSE(KindVertex, prev, chunk, contentDelta)
}
