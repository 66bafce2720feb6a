// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package dialogue

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/amadeus-tui/internal/chat"
	"github.com/jeranaias/amadeus-tui/internal/config"
	"github.com/jeranaias/amadeus-tui/internal/present"
	"github.com/jeranaias/amadeus-tui/internal/storage"
	"github.com/jeranaias/amadeus-tui/internal/ui/styles"
)

// =============================================================================
// CONSTANTS
// =============================================================================

const (
	// BacklogLimit is how many entries the backlog overlay loads.
	BacklogLimit = 200

	// noticeTTL is how long a status notice stays visible.
	noticeTTL = 4 * time.Second

	// maxInputChars bounds a single message.
	maxInputChars = 4096
)

// Overlay identifies which blocking overlay is open.
type Overlay int

const (
	OverlayNone Overlay = iota
	OverlayBacklog
	OverlayHelp
)

// BacklogSource loads backlog entries for the overlay.
type BacklogSource interface {
	Recent(ctx context.Context, n int) ([]storage.Entry, error)
}

// =============================================================================
// MODEL
// =============================================================================

// Model is the Bubble Tea model for the dialogue screen. The orchestrator
// is owned by the update loop: every call into it happens in Update.
type Model struct {
	orch    *chat.Orchestrator
	events  chan chat.Event
	backlog BacklogSource

	theme   *styles.Theme
	keys    KeyMap
	input   textinput.Model
	spinner spinner.Model
	pager   viewport.Model

	overlay  Overlay
	entries  []storage.Entry
	helpText string

	title    string
	width    int
	height   int
	lastTick time.Time

	notice   string
	noticeID int
	quitting bool
}

// Options configures a Model.
type Options struct {
	Chat    chat.Options
	Backlog BacklogSource
	// Title is shown in the header, e.g. the provider and model.
	Title string
}

// New creates the dialogue model and its orchestrator. Request events are
// routed through a buffered channel read by a tea.Cmd.
func New(opts Options) Model {
	events := make(chan chat.Event, 256)
	copts := opts.Chat
	copts.Post = func(ev chat.Event) {
		events <- ev
	}

	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Say something to Kurisu..."
	ti.CharLimit = maxInputChars
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Spinner{
		Frames: []string{"·  ", "·· ", "···", " ··", "  ·", "   "},
		FPS:    time.Second / 6,
	}

	theme := styles.NewTheme()
	ti.PromptStyle = theme.InputPrompt
	ti.PlaceholderStyle = theme.InputPlaceholder
	sp.Style = theme.WaitingDots

	return Model{
		orch:    chat.New(copts),
		events:  events,
		backlog: opts.Backlog,
		theme:   theme,
		keys:    DefaultKeyMap(),
		input:   ti,
		spinner: sp,
		pager:   viewport.New(80, 20),
		title:   opts.Title,
		width:   80,
		height:  24,
	}
}

// Orchestrator exposes the conversation owner, mainly for tests.
func (m Model) Orchestrator() *chat.Orchestrator {
	return m.orch
}

// Init starts the event reader, the presentation clock and the cursor blink.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		waitForEvent(m.events),
		tickCmd(),
		textinput.Blink,
		m.spinner.Tick,
	)
}

// =============================================================================
// UPDATE
// =============================================================================

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleResize(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)

	case EventMsg:
		m.orch.Handle(chat.Event(msg))
		return m, waitForEvent(m.events)

	case tickMsg:
		now := time.Time(msg)
		if !m.lastTick.IsZero() {
			m.orch.Tick(now.Sub(m.lastTick))
		}
		m.lastTick = now
		return m, tickCmd()

	case SettingsMsg:
		s := config.Settings(msg)
		m.orch.ApplySettings(s)
		return m.setNotice("Settings reloaded")

	case backlogLoadedMsg:
		if msg.err != nil {
			log.Printf("[ui] backlog load failed: %v", msg.err)
			return m.setNotice("Backlog unavailable")
		}
		m.entries = msg.entries
		m.refreshBacklog()
		m.pager.GotoBottom()
		return m, nil

	case noticeExpiredMsg:
		if msg.id == m.noticeID {
			m.notice = ""
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m.updateInput(msg)
}

func (m Model) handleResize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width = msg.Width
	m.height = msg.Height
	m.theme.SetSize(msg.Width, msg.Height)
	m.input.Width = max(10, msg.Width-6)
	m.pager.Width = max(20, msg.Width-4)
	m.pager.Height = max(5, msg.Height-6)
	switch m.overlay {
	case OverlayBacklog:
		m.refreshBacklog()
	case OverlayHelp:
		m.helpText = renderHelp(m.keys, m.pager.Width)
		m.pager.SetContent(m.helpText)
	}
	return m, nil
}

// handleKey routes keys. Overlays capture everything except quit; the
// dialogue box gets advance keys unless the input box is active.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		m.quitting = true
		m.orch.Close()
		return m, tea.Quit
	}

	if m.overlay != OverlayNone {
		return m.handleOverlayKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Backlog):
		return m.openBacklog()
	case key.Matches(msg, m.keys.Help):
		return m.openHelp()
	case key.Matches(msg, m.keys.Auto):
		on := !m.orch.View().AutoMode
		m.orch.SetAutoMode(on)
		if on {
			return m.setNotice("Auto mode on")
		}
		return m.setNotice("Auto mode off")
	}

	state := m.orch.State()
	if state == present.InputReady {
		switch {
		case key.Matches(msg, m.keys.Submit):
			return m.submit()
		case key.Matches(msg, m.keys.Reset):
			if err := m.orch.ResetConversation(); err != nil {
				return m.setNotice("Cannot reset right now")
			}
			return m.setNotice("Conversation cleared")
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.Cancel):
		if state == present.WaitingResponse || state == present.StreamRevealing {
			m.orch.Cancel()
			return m.setNotice("Request cancelled")
		}
	case key.Matches(msg, m.keys.Advance):
		m.orch.Advance()
	case key.Matches(msg, m.keys.Skip):
		m.orch.Skip()
	}
	return m, nil
}

func (m Model) handleOverlayKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Cancel),
		m.overlay == OverlayBacklog && key.Matches(msg, m.keys.Backlog),
		m.overlay == OverlayHelp && key.Matches(msg, m.keys.Help):
		return m.closeOverlay()
	case key.Matches(msg, m.keys.Up):
		m.pager.LineUp(1)
	case key.Matches(msg, m.keys.Down):
		m.pager.LineDown(1)
	case key.Matches(msg, m.keys.PageUp):
		m.pager.HalfViewUp()
	case key.Matches(msg, m.keys.PageDown):
		m.pager.HalfViewDown()
	}
	return m, nil
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	text := m.input.Value()
	err := m.orch.Submit(text)
	switch {
	case err == nil:
		m.input.Reset()
		return m, nil
	case errors.Is(err, chat.ErrEmptyInput):
		return m, nil
	case errors.Is(err, chat.ErrBusy):
		return m.setNotice("Kurisu is still talking")
	default:
		log.Printf("[ui] submit failed: %v", err)
		return m.setNotice(err.Error())
	}
}

func (m Model) updateInput(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// =============================================================================
// OVERLAYS
// =============================================================================

func (m Model) openBacklog() (tea.Model, tea.Cmd) {
	m.overlay = OverlayBacklog
	m.orch.SetOverlay(true)
	m.entries = nil
	m.pager.SetContent("Loading...")
	return m, m.loadBacklog()
}

func (m Model) openHelp() (tea.Model, tea.Cmd) {
	m.overlay = OverlayHelp
	m.orch.SetOverlay(true)
	m.helpText = renderHelp(m.keys, m.pager.Width)
	m.pager.SetContent(m.helpText)
	m.pager.GotoTop()
	return m, nil
}

func (m Model) closeOverlay() (tea.Model, tea.Cmd) {
	m.overlay = OverlayNone
	m.orch.SetOverlay(false)
	return m, nil
}

func (m Model) loadBacklog() tea.Cmd {
	src := m.backlog
	if src == nil {
		return func() tea.Msg {
			return backlogLoadedMsg{}
		}
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		entries, err := src.Recent(ctx, BacklogLimit)
		return backlogLoadedMsg{entries: entries, err: err}
	}
}

func (m *Model) refreshBacklog() {
	m.pager.SetContent(m.renderBacklog(m.pager.Width))
}

// setNotice shows a transient message in the status bar.
func (m Model) setNotice(text string) (tea.Model, tea.Cmd) {
	m.noticeID++
	m.notice = text
	id := m.noticeID
	return m, tea.Tick(noticeTTL, func(time.Time) tea.Msg {
		return noticeExpiredMsg{id: id}
	})
}
