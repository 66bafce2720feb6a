// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package dialogue provides the full-screen visual novel interface.
//
// The screen is a portrait that changes with Kurisu's emotion, a dialogue
// box that reveals text at the configured speed, an input line and a status
// bar. The backlog and help are blocking overlays that pause presentation.
//
// # Key Types
//
//   - Model: Bubble Tea model that owns a chat.Orchestrator
//   - KeyMap: Key bindings, also rendered as the help page
//   - SettingsMsg: Sent by the config watcher to apply new pacing
//
// # Usage
//
//	m := dialogue.New(dialogue.Options{
//		Chat:    chat.Options{Settings: store, Memory: mem, Backlog: backlog},
//		Backlog: backlog,
//		Title:   "gemini / gemini-2.5-flash",
//	})
//	p := tea.NewProgram(m, tea.WithAltScreen())
//	_, err := p.Run()
package dialogue
