// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// fetchTimeout bounds a shared refresh, which outlives any one caller.
const fetchTimeout = 30 * time.Second

// ErrTokenUnavailable wraps every failure to obtain an access token.
var ErrTokenUnavailable = errors.New("access token unavailable")

// TokenSource yields a bearer access token.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// Token is an access token with its expiry.
type Token struct {
	Value  string
	Expiry time.Time
}

// valid reports whether the token can still be used at now.
func (t Token) valid(now time.Time) bool {
	return t.Value != "" && now.Before(t.Expiry)
}

// Fetcher obtains a fresh token.
type Fetcher interface {
	Fetch(ctx context.Context) (Token, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context) (Token, error)

// Fetch calls f.
func (f FetcherFunc) Fetch(ctx context.Context) (Token, error) { return f(ctx) }

// =============================================================================
// CACHE
// =============================================================================

// Cache is a TokenSource that refreshes lazily.
//
// RELIABILITY: Concurrent callers that find the token expired share one
// refresh through singleflight; readers never block on each other. The
// refresh runs detached from the caller that started it, so one cancelled
// caller does not fail the rest.
type Cache struct {
	fetcher Fetcher
	now     func() time.Time

	mu    sync.RWMutex
	token Token

	group singleflight.Group
}

// NewCache wraps fetcher.
func NewCache(fetcher Fetcher) *Cache {
	return &Cache{fetcher: fetcher, now: time.Now}
}

// WithClock overrides the time source, used by tests.
func (c *Cache) WithClock(now func() time.Time) *Cache {
	c.now = now
	return c
}

// Token returns the cached token or fetches a new one.
func (c *Cache) Token(ctx context.Context) (string, error) {
	c.mu.RLock()
	tok := c.token
	c.mu.RUnlock()
	if tok.valid(c.now()) {
		return tok.Value, nil
	}

	ch := c.group.DoChan("token", func() (any, error) {
		// Another caller may have refreshed while we waited.
		c.mu.RLock()
		cur := c.token
		c.mu.RUnlock()
		if cur.valid(c.now()) {
			return cur.Value, nil
		}

		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), fetchTimeout)
		defer cancel()
		fresh, err := c.fetcher.Fetch(fctx)
		if err != nil {
			log.Printf("[auth] token refresh failed: %v", err)
			return "", err
		}
		if fresh.Value == "" {
			return "", errors.New("empty access token")
		}

		c.mu.Lock()
		c.token = fresh
		c.mu.Unlock()
		log.Printf("[auth] token refreshed, expires %s", fresh.Expiry.Format(time.RFC3339))
		return fresh.Value, nil
	})

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			if errors.Is(res.Err, ErrTokenUnavailable) {
				return "", res.Err
			}
			return "", errors.Join(ErrTokenUnavailable, res.Err)
		}
		return res.Val.(string), nil
	}
}

// Invalidate drops the cached token so the next call refreshes.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.token = Token{}
	c.mu.Unlock()
}

// Static is a TokenSource returning a fixed token.
type Static string

// Token returns s.
func (s Static) Token(context.Context) (string, error) {
	if s == "" {
		return "", ErrTokenUnavailable
	}
	return string(s), nil
}
