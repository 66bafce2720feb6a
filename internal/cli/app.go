// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// app.go - Wiring shared by the TUI and line mode.

package cli

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/jeranaias/amadeus-tui/internal/auth"
	"github.com/jeranaias/amadeus-tui/internal/chat"
	"github.com/jeranaias/amadeus-tui/internal/config"
	"github.com/jeranaias/amadeus-tui/internal/memory"
	"github.com/jeranaias/amadeus-tui/internal/persona"
	"github.com/jeranaias/amadeus-tui/internal/provider"
	"github.com/jeranaias/amadeus-tui/internal/storage"
	"github.com/jeranaias/amadeus-tui/internal/ui/styles"
)

// Data file names under the data directory.
const (
	MemoryFile  = "memory.json"
	BacklogFile = "backlog.db"
	LogFile     = "amadeus.log"
	HistoryFile = "chat_history"
)

// App holds the long-lived pieces a conversation needs.
type App struct {
	Store   *config.Store
	Memory  *memory.Manager
	Backlog *storage.BacklogStore
	Persona string
	Tokens  auth.TokenSource
	DataDir string

	// Transport replaces the HTTP transport when set.
	Transport provider.Transport
}

// OpenApp loads configuration, memory, the backlog and the persona.
//
// A backlog that cannot be opened is not fatal: the conversation runs
// without one and a warning is printed.
func OpenApp(store *config.Store) (*App, error) {
	cfg := store.Config()

	dataDir, err := cfg.DataDir()
	if err != nil {
		return nil, err
	}

	base, err := persona.LoadBase(cfg.Chat.PersonaFile)
	if err != nil {
		return nil, err
	}

	app := &App{
		Store:   store,
		Memory:  memory.Load(filepath.Join(dataDir, MemoryFile)),
		Persona: base,
		DataDir: dataDir,
	}

	backlog, err := storage.Open(filepath.Join(dataDir, BacklogFile))
	if err != nil {
		fmt.Fprintln(os.Stderr, styles.RenderWarning(fmt.Sprintf("backlog disabled: %v", err)))
	} else {
		app.Backlog = backlog
	}

	app.Tokens = vertexTokens(store)
	return app, nil
}

// vertexTokens builds the Vertex credential source from the configured
// auth mode. A rotated OAuth refresh token is written back to the config.
func vertexTokens(store *config.Store) auth.TokenSource {
	v := store.Config().Vertex
	if v.AuthMode == config.AuthOAuth {
		src, fetcher := auth.NewOAuthSource(auth.OAuthConfig{
			ClientID:     v.ClientID,
			ClientSecret: v.ClientSecret,
			RefreshToken: v.RefreshToken,
		})
		fetcher.OnRefreshToken = func(token string) {
			err := store.Update(func(c *config.Config) {
				c.Vertex.RefreshToken = token
			})
			if err != nil {
				log.Printf("[auth] could not persist rotated refresh token: %v", err)
			}
		}
		return src
	}
	// CONFIG: gcloud_command is split on whitespace, never passed to a shell.
	return auth.NewGcloudSource(strings.Fields(v.GcloudCommand))
}

// ChatOptions returns orchestrator options wired to the app. The caller
// supplies Post and, for line mode, a Surface.
func (a *App) ChatOptions() chat.Options {
	opts := chat.Options{
		Settings:  a.Store,
		Tokens:    a.Tokens,
		Memory:    a.Memory,
		Persona:   a.Persona,
		Transport: a.Transport,
	}
	// Avoid a typed nil in the interface when the backlog is disabled.
	if a.Backlog != nil {
		opts.Backlog = a.Backlog
	}
	return opts
}

// Title describes the active provider for headers.
func (a *App) Title() string {
	s := a.Store.Settings()
	return fmt.Sprintf("%s / %s", s.Provider, s.Model)
}

// Close flushes memory and closes the backlog.
func (a *App) Close() error {
	var errs []error
	if err := a.Memory.Save(); err != nil {
		errs = append(errs, fmt.Errorf("save memory: %w", err))
	}
	if a.Backlog != nil {
		if err := a.Backlog.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close backlog: %w", err))
		}
	}
	return errors.Join(errs...)
}
