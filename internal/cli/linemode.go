// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// linemode.go - Plain-text conversation for pipes and small terminals.
//
// The same orchestrator drives line mode: a textSurface prints revealed text
// as it appears and asks the input goroutine for a line or a continue key.

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"time"

	"github.com/peterh/liner"

	"github.com/jeranaias/amadeus-tui/internal/chat"
	"github.com/jeranaias/amadeus-tui/internal/present"
)

// =============================================================================
// TEXT SURFACE
// =============================================================================

// need is what the surface wants from the reader next.
type need int

const (
	needInput need = iota
	needAdvance
	needSkip
)

// textSurface renders views as a growing transcript.
type textSurface struct {
	mu  sync.Mutex
	out io.Writer
	tty bool
	// instant reveals every page at once.
	instant bool

	needs chan need

	state        present.State
	printed      string
	lineStart    bool
	thinking     bool
	advanceAsked bool
	skipPending  bool
}

func newTextSurface(out io.Writer, tty, instant bool) *textSurface {
	return &textSurface{
		out:       out,
		tty:       tty,
		instant:   instant,
		needs:     make(chan need, 16),
		state:     present.InputReady,
		lineStart: true,
	}
}

// Render is called on the loop goroutine. It never blocks.
func (s *textSurface) Render(v present.View) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.state
	s.state = v.State

	switch v.State {
	case present.InputReady:
		s.clearThinking()
		s.printed = ""
		s.advanceAsked = false
		if prev != present.InputReady {
			s.endLine()
			s.signal(needInput)
		}
		return

	case present.WaitingResponse:
		if !s.thinking && s.tty {
			fmt.Fprint(s.out, DimStyle.Render("..."))
			s.thinking = true
			s.lineStart = false
		}
		return
	}

	s.clearThinking()
	s.write(v)

	waiting := v.WaitingIndicator && v.Indicator == present.AdvanceMark
	switch {
	case waiting && !s.advanceAsked:
		s.advanceAsked = true
		s.signal(needAdvance)
	case !waiting && s.instant && !s.skipPending:
		s.skipPending = true
		s.signal(needSkip)
	}
}

// write prints the part of the page not shown yet. A page that does not
// extend the printed text starts a new line with the speaker.
func (s *textSurface) write(v present.View) {
	if v.Text == "" {
		// A cleared page; whatever comes next starts a new line.
		s.printed = ""
		return
	}
	if s.printed == "" || !strings.HasPrefix(v.Text, s.printed) {
		s.endLine()
		speaker := v.Speaker
		if speaker == "" {
			speaker = "Kurisu"
		}
		fmt.Fprintf(s.out, "%s %s ", speakerStyle(speaker).Render(speaker+":"), DimStyle.Render(v.Emotion.Face()))
		s.printed = ""
	}
	rest := v.Text[len(s.printed):]
	if rest == "" {
		return
	}
	fmt.Fprint(s.out, rest)
	s.printed = v.Text
	s.lineStart = strings.HasSuffix(rest, "\n")
	// New text means any later continue mark belongs to a new pause.
	s.advanceAsked = false
}

func (s *textSurface) clearThinking() {
	if !s.thinking {
		return
	}
	s.thinking = false
	fmt.Fprint(s.out, "\r\x1b[K")
	s.lineStart = true
}

// endLine moves to a fresh line.
func (s *textSurface) endLine() {
	if !s.lineStart {
		fmt.Fprintln(s.out)
		s.lineStart = true
	}
}

// EndLine is called by the reader before it prompts.
func (s *textSurface) EndLine() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.endLine()
}

func (s *textSurface) skipDone() {
	s.mu.Lock()
	s.skipPending = false
	s.mu.Unlock()
}

// signal queues n without blocking the loop goroutine.
func (s *textSurface) signal(n need) {
	select {
	case s.needs <- n:
	default:
	}
}

// =============================================================================
// LINE MODE SESSION
// =============================================================================

// LineOptions configures a line mode session.
type LineOptions struct {
	// Question, when set, is asked once and the session ends after the reply.
	Question string
	Instant  bool
	Out      io.Writer
}

// RunLine runs a conversation on stdin/stdout.
func RunLine(app *App, opts LineOptions) error {
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	surface := newTextSurface(opts.Out, IsStdoutTTY(), opts.Instant)

	loop := chat.NewLoop(chat.DefaultTick)
	copts := app.ChatOptions()
	copts.Surface = surface
	copts.Post = loop.Post
	orch := chat.New(copts)

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		loop.Run(ctx, orch)
		close(stopped)
	}()
	defer func() {
		cancel()
		<-stopped
	}()

	session := &lineSession{app: app, loop: loop, orch: orch, surface: surface, out: opts.Out}
	if opts.Question != "" {
		return session.oneShot(opts.Question)
	}
	return session.interactive()
}

type lineSession struct {
	app     *App
	loop    *chat.Loop
	orch    *chat.Orchestrator
	surface *textSurface
	out     io.Writer
}

func (s *lineSession) submit(text string) error {
	var err error
	s.loop.Do(func() { err = s.orch.Submit(text) })
	return err
}

// oneShot asks one question and returns after the reply, advancing pages
// without a prompt.
func (s *lineSession) oneShot(question string) error {
	if err := s.submit(question); err != nil {
		return err
	}
	for n := range s.surface.needs {
		switch n {
		case needInput:
			s.surface.EndLine()
			return nil
		case needAdvance:
			s.loop.Do(s.orch.Advance)
		case needSkip:
			s.surface.skipDone()
			s.loop.Do(s.orch.Skip)
		}
	}
	return nil
}

// interactive reads lines until /quit, Ctrl+C at the prompt or EOF.
// Prompts are plain text; liner miscounts the width of escape sequences.
func (s *lineSession) interactive() error {
	cli := NewChatCLI(s.app.DataDir)
	defer cli.Close()

	fmt.Fprintln(s.out, TitleStyle.Render("Amadeus · "+s.app.Title()))
	fmt.Fprintln(s.out, DimStyle.Render("Type /help for commands. Ctrl+C cancels a reply in progress."))

	interrupts := make(chan os.Signal, 1)
	signal.Notify(interrupts, os.Interrupt)
	defer signal.Stop(interrupts)

	next := needInput
	for {
		switch next {
		case needInput:
			line, err := cli.ReadInput("> ")
			if err != nil {
				if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
					return nil
				}
				return err
			}
			quit, handled := s.command(strings.TrimSpace(line))
			if quit {
				return nil
			}
			if handled {
				continue
			}
			if err := s.submit(line); err != nil {
				if !errors.Is(err, chat.ErrEmptyInput) {
					fmt.Fprintln(s.out, ErrorStyle.Render(err.Error()))
				}
				continue
			}

		case needAdvance:
			s.surface.EndLine()
			if err := cli.WaitAdvance(present.AdvanceMark + " "); err != nil {
				if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
					return nil
				}
				return err
			}
			s.loop.Do(s.orch.Advance)

		case needSkip:
			s.surface.skipDone()
			s.loop.Do(s.orch.Skip)
		}

		select {
		case next = <-s.surface.needs:
		case <-interrupts:
			s.loop.Do(s.orch.Cancel)
			fmt.Fprintln(s.out, WarningStyle.Render("\n(cancelled)"))
			next = s.drainToInput()
		}
	}
}

// drainToInput discards stale needs after a cancel.
func (s *lineSession) drainToInput() need {
	for {
		select {
		case <-s.surface.needs:
		case <-time.After(50 * time.Millisecond):
			return needInput
		}
	}
}

// command runs a slash command. It reports whether the session should end
// and whether line was a command at all.
func (s *lineSession) command(line string) (quit, handled bool) {
	if !strings.HasPrefix(line, "/") {
		return false, false
	}
	switch strings.ToLower(strings.Fields(line)[0]) {
	case "/quit", "/exit", "/q":
		return true, true
	case "/clear":
		var err error
		s.loop.Do(func() { err = s.orch.ResetConversation() })
		if err != nil {
			fmt.Fprintln(s.out, ErrorStyle.Render(err.Error()))
		} else {
			fmt.Fprintln(s.out, SuccessStyle.Render("Conversation cleared."))
		}
	case "/auto":
		var on bool
		s.loop.Do(func() {
			on = !s.orch.View().AutoMode
			s.orch.SetAutoMode(on)
		})
		fmt.Fprintln(s.out, DimStyle.Render(fmt.Sprintf("Auto mode: %v", on)))
	case "/backlog":
		if s.app.Backlog == nil {
			fmt.Fprintln(s.out, WarningStyle.Render("Backlog is disabled."))
			break
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		entries, err := s.app.Backlog.Recent(ctx, 20)
		if err != nil {
			fmt.Fprintln(s.out, ErrorStyle.Render(err.Error()))
			break
		}
		for _, e := range entries {
			fmt.Fprintln(s.out, e.Format())
		}
	case "/help":
		fmt.Fprintln(s.out, DimStyle.Render("/clear  forget this conversation\n/auto   toggle auto mode\n/backlog  recent lines\n/quit   exit"))
	default:
		fmt.Fprintln(s.out, WarningStyle.Render("Unknown command: "+line))
	}
	return false, true
}
