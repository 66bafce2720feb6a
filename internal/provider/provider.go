// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/jeranaias/amadeus-tui/internal/model"
)

// =============================================================================
// PROVIDER KIND
// =============================================================================

// Kind identifies a provider. The numeric values are the persisted provider
// index and must not be reordered.
type Kind int

const (
	KindOpenAI Kind = iota
	KindGemini
	KindClaude
	KindGroq
	KindVertex
)

var kindNames = map[Kind]string{
	KindOpenAI: "OpenAI",
	KindGemini: "Gemini",
	KindClaude: "Claude",
	KindGroq:   "Groq",
	KindVertex: "Vertex",
}

// String returns the display name of the provider.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Valid reports whether k names a known provider.
func (k Kind) Valid() bool {
	_, ok := kindNames[k]
	return ok
}

// ParseKind accepts a provider name (case-insensitive) or its index.
func ParseKind(s string) (Kind, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		if k := Kind(n); k.Valid() {
			return k, nil
		}
		return 0, fmt.Errorf("%w: index %d", ErrUnknownProvider, n)
	}
	for k, name := range kindNames {
		if strings.EqualFold(name, s) {
			return k, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownProvider, s)
}

// =============================================================================
// REQUEST TYPES
// =============================================================================

// Selection is everything a client needs from settings for one request.
type Selection struct {
	Provider   Kind
	Credential string // API key, or access token for Vertex
	Model      string
	Region     string // Vertex location
	Project    string // Vertex project
	WebSearch  bool
	Stream     bool
}

// Request is a transport-neutral HTTP request.
type Request struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte
	Stream bool

	// Fingerprint identifies the credential in logs without exposing it.
	Fingerprint string
}

// Client builds requests and decodes responses for one provider. Clients hold
// no connection state and never perform I/O.
type Client interface {
	Kind() Kind
	Name() string
	StreamsByDefault() bool
	BuildRequest(history []model.Message, sel Selection) (*Request, error)
	DecodeBatch(body []byte) (string, error)
	DecodeStreamChunk(prev []byte, chunk []byte) (delta string, buf []byte, err error)
}

// newRequest creates a POST request with a JSON body.
func newRequest(url string, body []byte, stream bool, secret string) *Request {
	h := make(http.Header)
	h.Set("Content-Type", "application/json")
	if stream {
		h.Set("Accept", "text/event-stream")
	}
	return &Request{
		Method:      http.MethodPost,
		URL:         url,
		Header:      h,
		Body:        body,
		Stream:      stream,
		Fingerprint: Fingerprint(secret),
	}
}

// Fingerprint returns a short SHA-256 fingerprint of a secret for logging.
// SECURITY: Never log key fragments, only the fingerprint.
func Fingerprint(secret string) string {
	if secret == "" {
		return "none"
	}
	h := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(h[:4])
}

// orDefault returns model unless it is empty or names an OpenAI model, which
// happens when a single legacy model setting is shared across providers.
func orDefault(model, def string) string {
	m := strings.TrimSpace(model)
	if m == "" || strings.HasPrefix(m, "gpt") {
		return def
	}
	return m
}

// =============================================================================
// REGISTRY
// =============================================================================

// Registry maps provider kinds to clients.
type Registry struct {
	mu      sync.RWMutex
	clients map[Kind]Client
}

// NewRegistry creates a registry holding the given clients.
func NewRegistry(clients ...Client) *Registry {
	r := &Registry{clients: make(map[Kind]Client, len(clients))}
	for _, c := range clients {
		r.clients[c.Kind()] = c
	}
	return r
}

// DefaultRegistry registers all built-in providers.
func DefaultRegistry() *Registry {
	return NewRegistry(
		NewOpenAI(),
		NewGemini(),
		NewClaude(),
		NewGroq(),
		NewVertex(),
	)
}

// Register adds or replaces a client.
func (r *Registry) Register(c Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[c.Kind()] = c
}

// Get returns the client for kind.
func (r *Registry) Get(kind Kind) (Client, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.clients[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, kind)
	}
	return c, nil
}

// Kinds returns the registered kinds in index order.
func (r *Registry) Kinds() []Kind {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Kind, 0, len(r.clients))
	for k := range r.clients {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
