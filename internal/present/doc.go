// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package present paces reply text like a visual novel dialogue box.
//
// A turn moves through InputReady, WaitingResponse, Revealing (batch) or
// StreamRevealing, and AwaitingAdvance. Streamed replies break into pages at
// sentence ends; each page is logged to the backlog before the reader
// continues. A blocking overlay freezes every timer.
//
// # Key Types
//
//   - Machine: the turn state machine, driven by Tick and input events
//   - PausableTimer: a step-driven countdown that keeps its remaining time
//   - View: one frame for a Surface to draw
//
// # Usage
//
//	m := present.NewMachine(backlog, present.DefaultPacing())
//	_ = m.BeginWaiting()
//	_ = m.StartReveal("[SMILE]-free text", tagparse.Smile)
//	m.Tick(33 * time.Millisecond)
//	surface.Render(m.View())
package present
