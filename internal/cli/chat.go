// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// chat.go - Line editing for line mode.
//
// USABILITY: Arrow keys walk earlier questions, which persist between runs.
// Continue prompts are not remembered.

package cli

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"

	"github.com/jeranaias/amadeus-tui/internal/util"
)

// ChatCLI wraps liner with a question history stored under the data dir.
type ChatCLI struct {
	line        *liner.State
	historyFile string
}

// NewChatCLI opens the line editor. An empty dir keeps history in the
// system temp directory.
func NewChatCLI(dir string) *ChatCLI {
	if dir == "" {
		dir = os.TempDir()
	}
	c := &ChatCLI{
		line:        liner.NewLiner(),
		historyFile: filepath.Join(dir, HistoryFile),
	}
	// Ctrl+C returns liner.ErrPromptAborted instead of a blank line.
	c.line.SetCtrlCAborts(true)
	c.LoadHistory()
	return c
}

// LoadHistory reads earlier questions. A missing file is not an error.
func (c *ChatCLI) LoadHistory() {
	f, err := os.Open(c.historyFile)
	if err != nil {
		return
	}
	defer f.Close()
	_, _ = c.line.ReadHistory(f)
}

// ReadInput prompts for a question. Non-blank answers join the history.
func (c *ChatCLI) ReadInput(prompt string) (string, error) {
	text, err := c.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) != "" {
		c.line.AppendHistory(text)
	}
	return text, nil
}

// WaitAdvance blocks on the continue prompt and discards what was typed.
func (c *ChatCLI) WaitAdvance(prompt string) error {
	_, err := c.line.Prompt(prompt)
	return err
}

// SaveHistory writes the question history. Failures are ignored; history
// is a convenience.
func (c *ChatCLI) SaveHistory() {
	if util.EnsureDir(filepath.Dir(c.historyFile)) != nil {
		return
	}
	// SECURITY: questions may hold personal details, so owner-only.
	f, err := os.OpenFile(c.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return
	}
	defer f.Close()
	_, _ = c.line.WriteHistory(f)
}

// Close saves history and restores the terminal.
func (c *ChatCLI) Close() {
	c.SaveHistory()
	_ = c.line.Close()
}
