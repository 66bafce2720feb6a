// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"
)

// Transport constants.
const (
	// DefaultTimeout bounds batch requests. Streams are bounded by context.
	DefaultTimeout = 60 * time.Second

	// MaxResponseSize is the maximum allowed response body size.
	// SECURITY: Response size limit prevents memory exhaustion.
	MaxResponseSize = 10 * 1024 * 1024 // 10MB limit

	// StreamHeaderTimeout bounds the wait for response headers on a stream.
	// Batch replies send headers only once generation ends, so they rely
	// on DefaultTimeout instead.
	StreamHeaderTimeout = 30 * time.Second

	// defaultRequestInterval spaces consecutive requests.
	defaultRequestInterval = 250 * time.Millisecond
	defaultRequestBurst    = 4
)

var (
	// PERFORMANCE: Connection pooling reduces TCP handshake overhead.
	sharedHTTPClient = &http.Client{
		Transport: newPooledTransport(0),
		Timeout:   DefaultTimeout,
	}

	// sharedStreamingClient has no overall timeout. A stalled stream is
	// caught by StreamHeaderTimeout and StreamIdleTimeout.
	sharedStreamingClient = &http.Client{
		Transport: newPooledTransport(StreamHeaderTimeout),
	}
)

func newPooledTransport(headerTimeout time.Duration) *http.Transport {
	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: headerTimeout,
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
	}
}

// Response is the status and body of a completed round trip. Body must be
// closed by the caller.
type Response struct {
	Status int
	Header http.Header
	Body   io.ReadCloser
}

// Transport performs a Request.
type Transport interface {
	Do(ctx context.Context, req *Request) (*Response, error)
}

// HTTPTransport is the production Transport.
type HTTPTransport struct {
	client       *http.Client
	streamClient *http.Client
	limiter      *rate.Limiter
}

// NewHTTPTransport creates a transport using the shared pooled clients.
func NewHTTPTransport() *HTTPTransport {
	return &HTTPTransport{
		client:       sharedHTTPClient,
		streamClient: sharedStreamingClient,
		limiter:      rate.NewLimiter(rate.Every(defaultRequestInterval), defaultRequestBurst),
	}
}

// WithHTTPClient replaces both clients, used by tests with httptest servers.
func (t *HTTPTransport) WithHTTPClient(c *http.Client) *HTTPTransport {
	t.client = c
	t.streamClient = c
	return t
}

// WithRateLimit sets the client-side request spacing.
func (t *HTTPTransport) WithRateLimit(limit rate.Limit, burst int) *HTTPTransport {
	t.limiter = rate.NewLimiter(limit, burst)
	return t
}

// Do sends req. Errors are classified as ErrTimeout or ErrNetworkUnreachable
// where possible; a cancelled context is returned as-is.
func (t *HTTPTransport) Do(ctx context.Context, req *Request) (*Response, error) {
	if t.limiter != nil {
		if err := t.limiter.Wait(ctx); err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, bytes.NewReader(req.Body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}

	logRequest(req)

	client := t.client
	if req.Stream {
		client = t.streamClient
	}
	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, classifyTransportError(ctx, err)
	}
	log.Printf("API Response: %d %s", resp.StatusCode, httpReq.URL.Host)

	return &Response{
		Status: resp.StatusCode,
		Header: resp.Header,
		Body:   resp.Body,
	}, nil
}

// logRequest logs method and host only.
// SECURITY: Never log headers, query strings or bodies; they carry keys.
func logRequest(req *Request) {
	host := req.URL
	if u, err := url.Parse(req.URL); err == nil {
		host = u.Host
	}
	log.Printf("API Request: %s %s (key=%s, stream=%v)", req.Method, host, req.Fingerprint, req.Stream)
}

// classifyTransportError maps a transport failure onto the sentinels.
func classifyTransportError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			return fmt.Errorf("%w: %w", ErrTimeout, err)
		}
		return ctxErr
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}

	var dnsErr *net.DNSError
	var opErr *net.OpError
	if errors.As(err, &dnsErr) || errors.As(err, &opErr) {
		return fmt.Errorf("%w: %w", ErrNetworkUnreachable, err)
	}
	return fmt.Errorf("request failed: %w", err)
}
