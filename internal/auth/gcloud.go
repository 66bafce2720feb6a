// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// GcloudLifetime is how long a CLI-issued token is trusted. gcloud tokens
// last an hour; refreshing early avoids mid-request expiry.
const GcloudLifetime = 50 * time.Minute

// DefaultGcloudCommand prints an access token for the active account.
var DefaultGcloudCommand = []string{"gcloud", "auth", "print-access-token"}

// GcloudFetcher runs the gcloud CLI.
type GcloudFetcher struct {
	Command []string
	now     func() time.Time
}

// NewGcloudFetcher creates a fetcher running command, or the default one
// when command is empty.
func NewGcloudFetcher(command []string) *GcloudFetcher {
	if len(command) == 0 {
		command = DefaultGcloudCommand
	}
	return &GcloudFetcher{Command: command, now: time.Now}
}

// Fetch runs the command and returns its first output line.
func (g *GcloudFetcher) Fetch(ctx context.Context) (Token, error) {
	// SECURITY: Arguments are passed directly, never through a shell.
	cmd := exec.CommandContext(ctx, g.Command[0], g.Command[1:]...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return Token{}, fmt.Errorf("%w: %s: %w", ErrTokenUnavailable, g.Command[0], err)
		}
		return Token{}, fmt.Errorf("%w: %s: %s", ErrTokenUnavailable, g.Command[0], firstLine(msg))
	}

	value := firstLine(strings.TrimSpace(stdout.String()))
	if value == "" {
		return Token{}, fmt.Errorf("%w: %s printed no token", ErrTokenUnavailable, g.Command[0])
	}
	return Token{Value: value, Expiry: g.now().Add(GcloudLifetime)}, nil
}

// NewGcloudSource returns a cached gcloud token source.
func NewGcloudSource(command []string) *Cache {
	return NewCache(NewGcloudFetcher(command))
}

func firstLine(s string) string {
	if i := strings.IndexAny(s, "\r\n"); i >= 0 {
		return s[:i]
	}
	return s
}
