// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync/atomic"
	"time"
)

// streamReadSize is the read buffer for streaming bodies.
const streamReadSize = 4096

// StreamIdleTimeout is how long a stream may go without a single byte
// before it is abandoned as ErrTimeout.
var StreamIdleTimeout = 60 * time.Second

// Send performs a batch exchange and returns the decoded assistant text.
func Send(ctx context.Context, t Transport, c Client, req *Request) (string, error) {
	resp, err := t.Do(ctx, req)
	if err != nil {
		return "", wrapTransport(c.Kind(), err)
	}
	defer resp.Body.Close()

	// SECURITY: Limit response size to prevent memory exhaustion
	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize))
	if err != nil {
		return "", wrapTransport(c.Kind(), classifyTransportError(ctx, err))
	}
	if resp.Status < 200 || resp.Status >= 300 {
		return "", NewStatusError(c.Kind(), resp.Status, body)
	}
	return c.DecodeBatch(body)
}

// Stream performs a streaming exchange. onDelta is called with each non-empty
// text delta in arrival order. The returned string is the full raw text
// received, also on error, so callers can tell whether anything was delivered.
func Stream(ctx context.Context, t Transport, c Client, req *Request, onDelta func(string)) (string, error) {
	resp, err := t.Do(ctx, req)
	if err != nil {
		return "", wrapTransport(c.Kind(), err)
	}
	defer resp.Body.Close()

	if resp.Status < 200 || resp.Status >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize))
		return "", NewStatusError(c.Kind(), resp.Status, body)
	}

	// RELIABILITY: A server that stops sending without closing would block
	// Read forever. Closing the body from the watchdog unblocks it.
	var stalled atomic.Bool
	watchdog := time.AfterFunc(StreamIdleTimeout, func() {
		stalled.Store(true)
		resp.Body.Close()
	})
	defer watchdog.Stop()

	var (
		full    strings.Builder
		pending []byte
		buf     = make([]byte, streamReadSize)
	)
	emit := func(delta string) {
		if delta == "" {
			return
		}
		full.WriteString(delta)
		onDelta(delta)
	}

	for {
		// Check for context cancellation between reads
		select {
		case <-ctx.Done():
			return full.String(), ctx.Err()
		default:
		}

		n, rerr := resp.Body.Read(buf)
		if n > 0 {
			watchdog.Reset(StreamIdleTimeout)
			delta, rest, derr := c.DecodeStreamChunk(pending, buf[:n])
			pending = rest
			emit(delta)
			if derr != nil {
				return full.String(), derr
			}
			if full.Len() > MaxResponseSize {
				return full.String(), &ProviderError{Provider: c.Kind(), Err: fmt.Errorf("%w: stream exceeded %d bytes", ErrDecodeFailure, MaxResponseSize)}
			}
		}

		if errors.Is(rerr, io.EOF) {
			if len(pending) > 0 {
				// The final line may lack a terminating newline.
				delta, _, derr := c.DecodeStreamChunk(pending, []byte("\n"))
				emit(delta)
				if derr != nil {
					return full.String(), derr
				}
			}
			return full.String(), nil
		}
		if rerr != nil {
			if stalled.Load() && ctx.Err() == nil {
				return full.String(), &ProviderError{Provider: c.Kind(), Err: fmt.Errorf("%w: no data for %s", ErrTimeout, StreamIdleTimeout)}
			}
			return full.String(), wrapTransport(c.Kind(), classifyTransportError(ctx, rerr))
		}
	}
}

// wrapTransport wraps a transport failure in a ProviderError. Context
// cancellation passes through untouched so callers can recognise it.
func wrapTransport(kind Kind, err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		return err
	}
	return &ProviderError{Provider: kind, Err: err}
}
