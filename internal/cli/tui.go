// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// tui.go - Full-screen dialogue interface.

package cli

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/amadeus-tui/internal/config"
	"github.com/jeranaias/amadeus-tui/internal/ui/dialogue"
)

// RunTUI runs the dialogue screen until the user quits.
func RunTUI(app *App) error {
	// The alt screen owns stdout; log lines go to a file instead.
	logPath := filepath.Join(app.DataDir, LogFile)
	if f, err := tea.LogToFile(logPath, ""); err == nil {
		defer f.Close()
		if err := os.Chmod(logPath, 0600); err != nil {
			log.Printf("[ui] could not restrict log file permissions: %v", err)
		}
	} else {
		fmt.Fprintf(os.Stderr, "Warning: could not open log file: %v\n", err)
	}

	m := dialogue.New(dialogue.Options{
		Chat:    app.ChatOptions(),
		Backlog: backlogSource(app),
		Title:   app.Title(),
	})

	p := tea.NewProgram(m, tea.WithAltScreen())

	// Settings edits apply live. The watcher fires on its own goroutine, so
	// the program reference is published under a lock.
	var (
		programMu sync.Mutex
		program   *tea.Program
	)
	watcher, err := config.NewWatcher(app.Store, 0, func(s config.Settings) {
		programMu.Lock()
		defer programMu.Unlock()
		if program != nil {
			program.Send(dialogue.SettingsMsg(s))
		}
	})
	if err == nil {
		if err := watcher.Start(); err != nil {
			log.Printf("[config] watcher not started: %v", err)
		}
		defer watcher.Close()
	} else {
		log.Printf("[config] hot reload disabled: %v", err)
	}

	programMu.Lock()
	program = p
	programMu.Unlock()

	log.Printf("[ui] starting, provider %s", app.Title())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running amadeus: %w", err)
	}
	return nil
}

// backlogSource returns the store as an overlay source, or nil when the
// backlog is disabled.
func backlogSource(app *App) dialogue.BacklogSource {
	if app.Backlog == nil {
		return nil
	}
	return app.Backlog
}
