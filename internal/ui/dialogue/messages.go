// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package dialogue

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/amadeus-tui/internal/chat"
	"github.com/jeranaias/amadeus-tui/internal/config"
	"github.com/jeranaias/amadeus-tui/internal/storage"
)

// =============================================================================
// REQUEST EVENTS
// =============================================================================

// EventMsg delivers a request result from the orchestrator's worker
// goroutine into the update loop.
type EventMsg chat.Event

// waitForEvent blocks on the event channel. It is re-armed after every
// delivery so exactly one reader is outstanding.
func waitForEvent(events <-chan chat.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return nil
		}
		return EventMsg(ev)
	}
}

// =============================================================================
// PRESENTATION CLOCK
// =============================================================================

// TickInterval drives reveal pacing (~30fps).
const TickInterval = chat.DefaultTick

// tickMsg advances presentation time.
type tickMsg time.Time

func tickCmd() tea.Cmd {
	return tea.Tick(TickInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// =============================================================================
// OVERLAYS AND SETTINGS
// =============================================================================

// backlogLoadedMsg carries entries for the backlog overlay.
type backlogLoadedMsg struct {
	entries []storage.Entry
	err     error
}

// SettingsMsg is sent when the config file changes on disk.
type SettingsMsg config.Settings

// noticeExpiredMsg clears a status bar notice.
type noticeExpiredMsg struct{ id int }
