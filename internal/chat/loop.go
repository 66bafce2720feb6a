// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"time"
)

// DefaultTick is the presentation frame interval (about 30 fps).
const DefaultTick = 33 * time.Millisecond

// eventBuffer holds request events while the loop is busy with a command.
const eventBuffer = 256

// Loop serialises everything that touches an Orchestrator for drivers that
// have no event loop of their own (line mode, tests). The Bubble Tea UI uses
// its Update loop instead.
type Loop struct {
	tick     time.Duration
	events   chan Event
	commands chan func()
	done     chan struct{}
}

// NewLoop creates a loop. A tick of zero uses DefaultTick.
func NewLoop(tick time.Duration) *Loop {
	if tick <= 0 {
		tick = DefaultTick
	}
	return &Loop{
		tick:     tick,
		events:   make(chan Event, eventBuffer),
		commands: make(chan func()),
		done:     make(chan struct{}),
	}
}

// Post queues an event. It is the Options.Post of the orchestrator the loop
// drives and is safe from any goroutine. Events posted after the loop stops
// are dropped.
func (l *Loop) Post(ev Event) {
	select {
	case l.events <- ev:
	case <-l.done:
	}
}

// Do runs fn on the loop goroutine and waits for it to return. It reports
// false if the loop has stopped.
func (l *Loop) Do(fn func()) bool {
	finished := make(chan struct{})
	select {
	case l.commands <- func() { fn(); close(finished) }:
	case <-l.done:
		return false
	}
	select {
	case <-finished:
		return true
	case <-l.done:
		return false
	}
}

// Run drives o until ctx is done. Time advances by the measured interval
// between ticks, so a slow frame does not slow the reveal.
func (l *Loop) Run(ctx context.Context, o *Orchestrator) {
	defer close(l.done)
	defer o.Close()

	ticker := time.NewTicker(l.tick)
	defer ticker.Stop()
	last := time.Now()

	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-l.events:
			o.Handle(ev)
		case fn := <-l.commands:
			fn()
		case now := <-ticker.C:
			o.Tick(now.Sub(last))
			last = now
		}
	}
}
