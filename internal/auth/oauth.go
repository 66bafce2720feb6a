// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// OAuth constants.
const (
	// GoogleTokenURL is the OAuth 2.0 token endpoint.
	GoogleTokenURL = "https://oauth2.googleapis.com/token"

	// DefaultExpiresIn is assumed when the response omits expires_in.
	DefaultExpiresIn = 3600 * time.Second

	// RefreshBuffer is subtracted from the lifetime so tokens refresh early.
	// Short lifetimes give up at most half.
	RefreshBuffer = 5 * time.Minute
)

// OAuthConfig holds the installed-app credentials.
type OAuthConfig struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
	TokenURL     string
}

// OAuthFetcher exchanges a refresh token for an access token.
type OAuthFetcher struct {
	cfg    OAuthConfig
	client *http.Client
	now    func() time.Time

	mu sync.Mutex
	// OnRefreshToken is called when the server rotates the refresh token so
	// the caller can persist it.
	OnRefreshToken func(token string)
}

// NewOAuthFetcher creates a fetcher for cfg.
func NewOAuthFetcher(cfg OAuthConfig) *OAuthFetcher {
	if cfg.TokenURL == "" {
		cfg.TokenURL = GoogleTokenURL
	}
	return &OAuthFetcher{
		cfg:    cfg,
		client: &http.Client{Timeout: 30 * time.Second},
		now:    time.Now,
	}
}

// WithHTTPClient overrides the HTTP client.
func (o *OAuthFetcher) WithHTTPClient(c *http.Client) *OAuthFetcher {
	o.client = c
	return o
}

// Fetch performs the refresh_token grant.
func (o *OAuthFetcher) Fetch(ctx context.Context) (Token, error) {
	o.mu.Lock()
	cfg := o.cfg
	o.mu.Unlock()

	if cfg.ClientID == "" || cfg.ClientSecret == "" || cfg.RefreshToken == "" {
		return Token{}, fmt.Errorf("%w: OAuth client id, secret and refresh token are required", ErrTokenUnavailable)
	}

	endpoint := google.Endpoint
	endpoint.TokenURL = cfg.TokenURL
	conf := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint:     endpoint,
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, o.client)
	tok, err := conf.TokenSource(ctx, &oauth2.Token{RefreshToken: cfg.RefreshToken}).Token()
	if err != nil {
		return Token{}, fmt.Errorf("%w: %w", ErrTokenUnavailable, err)
	}

	if rotated := tok.RefreshToken; rotated != "" && rotated != cfg.RefreshToken {
		o.mu.Lock()
		o.cfg.RefreshToken = rotated
		cb := o.OnRefreshToken
		o.mu.Unlock()
		if cb != nil {
			cb(rotated)
		}
	}

	// Expiry is measured on our own clock; the library stamps its own.
	lifetime := DefaultExpiresIn
	if tok.ExpiresIn > 0 {
		lifetime = time.Duration(tok.ExpiresIn) * time.Second
	}
	return Token{Value: tok.AccessToken, Expiry: o.now().Add(lifetime - refreshBuffer(lifetime))}, nil
}

// refreshBuffer is RefreshBuffer capped at half of lifetime, so a token
// that lives five minutes or less is still used before it is refreshed.
func refreshBuffer(lifetime time.Duration) time.Duration {
	if half := lifetime / 2; RefreshBuffer > half {
		return half
	}
	return RefreshBuffer
}

// NewOAuthSource returns a cached OAuth token source.
func NewOAuthSource(cfg OAuthConfig) (*Cache, *OAuthFetcher) {
	f := NewOAuthFetcher(cfg)
	return NewCache(f), f
}
