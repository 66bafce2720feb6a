// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package present

import "time"

// PausableTimer is a countdown driven by explicit time steps. It never reads
// the wall clock, so pausing it stores the remaining duration exactly and a
// test can step it deterministically.
type PausableTimer struct {
	remaining time.Duration
	running   bool
	paused    bool
}

// Start arms the timer for d. A non-positive d fires on the next Advance.
func (t *PausableTimer) Start(d time.Duration) {
	if d < 0 {
		d = 0
	}
	t.remaining = d
	t.running = true
	t.paused = false
}

// Stop disarms the timer.
func (t *PausableTimer) Stop() {
	t.running = false
	t.paused = false
	t.remaining = 0
}

// Pause freezes the remaining duration. Advance is a no-op until Resume.
func (t *PausableTimer) Pause() {
	if t.running {
		t.paused = true
	}
}

// Resume continues a paused timer from where it stopped.
func (t *PausableTimer) Resume() {
	t.paused = false
}

// Running reports whether the timer is armed, paused or not.
func (t *PausableTimer) Running() bool {
	return t.running
}

// Paused reports whether the timer is frozen.
func (t *PausableTimer) Paused() bool {
	return t.paused
}

// Remaining returns the time left before the timer fires.
func (t *PausableTimer) Remaining() time.Duration {
	return t.remaining
}

// Advance moves the timer forward by dt. When it fires, left is the part of
// dt not consumed, so callers can chain several short delays inside one tick.
func (t *PausableTimer) Advance(dt time.Duration) (left time.Duration, fired bool) {
	if !t.running || t.paused {
		return 0, false
	}
	if dt < t.remaining {
		t.remaining -= dt
		return 0, false
	}
	left = dt - t.remaining
	t.running = false
	t.remaining = 0
	return left, true
}
