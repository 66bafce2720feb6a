// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package present

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/jeranaias/amadeus-tui/internal/model"
	"github.com/jeranaias/amadeus-tui/internal/tagparse"
)

// =============================================================================
// STATES
// =============================================================================

// State is the turn phase the surface is in.
type State int

const (
	InputReady State = iota
	WaitingResponse
	Revealing
	StreamRevealing
	AwaitingAdvance
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case InputReady:
		return "InputReady"
	case WaitingResponse:
		return "WaitingResponse"
	case Revealing:
		return "Revealing"
	case StreamRevealing:
		return "StreamRevealing"
	case AwaitingAdvance:
		return "AwaitingAdvance"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// ErrInvalidTransition is returned when an event does not apply to the
// current state.
var ErrInvalidTransition = errors.New("invalid state transition")

// =============================================================================
// PACING
// =============================================================================

// Pacing constants.
const (
	BaseCharDelay       = 100 * time.Millisecond
	MinSpeed            = 0.1
	DefaultAutoInterval = 3 * time.Second
	IndicatorInterval   = 400 * time.Millisecond
)

// AdvanceMark is shown while the machine waits for the reader to continue.
const AdvanceMark = "▼"

// Pacing controls reveal speed and auto-advance.
type Pacing struct {
	// Speed multiplies reveal speed. 1.0 is one rune per BaseCharDelay.
	Speed float64
	// AutoMode continues pages and turns after AutoInterval without input.
	AutoMode     bool
	AutoInterval time.Duration
}

// DefaultPacing returns normal speed with auto mode off.
func DefaultPacing() Pacing {
	return Pacing{Speed: 1.0, AutoInterval: DefaultAutoInterval}
}

func (p Pacing) base() time.Duration {
	speed := p.Speed
	if speed < MinSpeed {
		speed = MinSpeed
	}
	return time.Duration(float64(BaseCharDelay) / speed)
}

func (p Pacing) interval() time.Duration {
	if p.AutoInterval <= 0 {
		return DefaultAutoInterval
	}
	return p.AutoInterval
}

// delay returns the wait after revealing r. Sentence enders only get the
// long delay in batch reveal; streamed reveal pauses on them instead.
func (p Pacing) delay(r rune, batch bool) time.Duration {
	base := p.base()
	switch {
	case batch && isSentenceEnd(r):
		return base * 4
	case r == '、' || r == ',' || r == '…':
		return time.Duration(float64(base) * 2.5)
	case r == '」' || r == '）':
		return time.Duration(float64(base) * 1.5)
	default:
		return base
	}
}

func isSentenceEnd(r rune) bool {
	switch r {
	case '。', '！', '？', '!', '?':
		return true
	}
	return false
}

func isPageBreak(r rune) bool {
	return isSentenceEnd(r) || r == '\n'
}

// isCloser reports runes that keep a sentence end on the same page.
func isCloser(r rune) bool {
	switch r {
	case '」', '）', ')', '』', '”':
		return true
	}
	return false
}

// =============================================================================
// SURFACE
// =============================================================================

// View is everything a surface needs to draw the dialogue box.
type View struct {
	State   State
	Speaker string
	Text    string
	Emotion tagparse.Emotion
	// WaitingIndicator is true while a response is pending or the reader is
	// expected to continue. Indicator holds the glyphs to draw.
	WaitingIndicator bool
	Indicator        string
	AutoMode         bool
	Overlay          bool
}

// Surface draws views.
type Surface interface {
	Render(View)
}

// BacklogSink records revealed pages. It is observational only.
type BacklogSink interface {
	Append(speaker, text string)
}

type nopSink struct{}

func (nopSink) Append(string, string) {}

// =============================================================================
// MACHINE
// =============================================================================

// Machine paces reply text and gates input for one conversation.
//
// It has no goroutines and never reads the clock: time only moves through
// Tick. The owner delivers every event from a single loop.
type Machine struct {
	state   State
	pacing  Pacing
	emotion tagparse.Emotion
	backlog BacklogSink
	speaker string

	// Reveal source. For a stream it grows through AppendStream.
	text      []rune
	cursor    int
	page      []rune
	streaming bool
	complete  bool

	paused     bool
	skipping   bool
	lastLogged string

	char PausableTimer
	auto PausableTimer

	dots     PausableTimer
	dotCount int

	overlay bool
}

// NewMachine creates a machine in InputReady. A nil backlog discards pages.
func NewMachine(backlog BacklogSink, pacing Pacing) *Machine {
	if backlog == nil {
		backlog = nopSink{}
	}
	return &Machine{
		state:   InputReady,
		pacing:  pacing,
		emotion: tagparse.Neutral,
		backlog: backlog,
		speaker: model.RoleAssistant.Speaker(),
	}
}

// State returns the current state.
func (m *Machine) State() State {
	return m.state
}

// Emotion returns the emotion currently shown.
func (m *Machine) Emotion() tagparse.Emotion {
	return m.emotion
}

// Paused reports whether a streamed page is waiting to be continued.
func (m *Machine) Paused() bool {
	return m.paused
}

// Overlay reports whether a blocking overlay is open.
func (m *Machine) Overlay() bool {
	return m.overlay
}

// Pacing returns the active pacing.
func (m *Machine) Pacing() Pacing {
	return m.pacing
}

// SetPacing replaces the pacing. Toggling auto mode while the reader is
// expected to continue arms or disarms the auto timer at once.
func (m *Machine) SetPacing(p Pacing) {
	wasAuto := m.pacing.AutoMode
	m.pacing = p
	if wasAuto == p.AutoMode {
		return
	}
	if !p.AutoMode {
		m.auto.Stop()
		return
	}
	if m.paused || m.state == AwaitingAdvance {
		m.auto.Start(p.interval())
		if m.overlay {
			m.auto.Pause()
		}
	}
}

// SetAutoMode toggles auto-advance.
func (m *Machine) SetAutoMode(on bool) {
	p := m.pacing
	p.AutoMode = on
	m.SetPacing(p)
}

// =============================================================================
// TURN EVENTS
// =============================================================================

func (m *Machine) expect(want ...State) error {
	for _, s := range want {
		if m.state == s {
			return nil
		}
	}
	return fmt.Errorf("%w: in %s", ErrInvalidTransition, m.state)
}

// BeginWaiting moves InputReady to WaitingResponse.
func (m *Machine) BeginWaiting() error {
	if err := m.expect(InputReady); err != nil {
		return err
	}
	m.clearReveal()
	m.state = WaitingResponse
	m.dotCount = 1
	m.dots.Start(IndicatorInterval)
	if m.overlay {
		m.dots.Pause()
	}
	return nil
}

// StartReveal begins a batch reveal of text with emotion. It is also the
// path for in-character error messages.
func (m *Machine) StartReveal(text string, emotion tagparse.Emotion) error {
	if err := m.expect(WaitingResponse); err != nil {
		return err
	}
	m.beginReveal(Revealing, emotion)
	m.text = []rune(text)
	m.complete = true
	m.runReveal(0)
	return nil
}

// StartStream begins a streamed reveal once the turn emotion is known.
func (m *Machine) StartStream(emotion tagparse.Emotion) error {
	if err := m.expect(WaitingResponse); err != nil {
		return err
	}
	m.beginReveal(StreamRevealing, emotion)
	m.streaming = true
	return nil
}

// AppendStream adds display-safe text to the stream buffer.
func (m *Machine) AppendStream(text string) error {
	if err := m.expect(StreamRevealing); err != nil {
		return err
	}
	m.text = append(m.text, []rune(text)...)
	m.runReveal(0)
	return nil
}

// EndStream marks the stream complete. The machine moves to AwaitingAdvance
// once the buffer is fully revealed.
func (m *Machine) EndStream() error {
	if err := m.expect(StreamRevealing); err != nil {
		return err
	}
	m.complete = true
	if m.paused && m.cursor >= len(m.text) {
		// The last page is already on screen and logged.
		m.paused = false
		m.auto.Stop()
		m.finish()
		return nil
	}
	m.runReveal(0)
	return nil
}

// InterruptStream ends a stream that failed after text was shown. Text
// already on screen stays, and msg follows on a new page with the error
// emotion.
func (m *Machine) InterruptStream(msg string) error {
	if err := m.expect(StreamRevealing); err != nil {
		return err
	}
	m.emotion = tagparse.ErrorEmotion
	m.text = append(m.text, '\n')
	m.text = append(m.text, []rune(msg)...)
	m.complete = true
	m.runReveal(0)
	return nil
}

// Reset abandons whatever is on screen and returns to InputReady.
func (m *Machine) Reset() {
	m.enterInputReady()
}

func (m *Machine) beginReveal(state State, emotion tagparse.Emotion) {
	m.clearReveal()
	m.dots.Stop()
	m.state = state
	m.emotion = emotion
}

func (m *Machine) clearReveal() {
	m.text = nil
	m.cursor = 0
	m.page = nil
	m.streaming = false
	m.complete = false
	m.paused = false
	m.skipping = false
	m.lastLogged = ""
	m.char.Stop()
	m.auto.Stop()
}

func (m *Machine) enterInputReady() {
	m.clearReveal()
	m.dots.Stop()
	m.state = InputReady
	m.emotion = tagparse.Neutral
}

// =============================================================================
// INPUT EVENTS
// =============================================================================

// Advance is the reader's continue key. It finishes the page being revealed,
// continues a paused page, or closes a finished reply.
func (m *Machine) Advance() {
	if m.overlay {
		return
	}
	switch m.state {
	case Revealing:
		m.skip()
	case StreamRevealing:
		if m.paused {
			m.resume()
			m.runReveal(0)
		} else {
			m.skip()
		}
	case AwaitingAdvance:
		m.enterInputReady()
	}
}

// Skip reveals the rest of the current page at once. Unlike Advance it never
// leaves a page or a finished reply.
func (m *Machine) Skip() {
	if m.overlay || m.paused {
		return
	}
	if m.state == Revealing || m.state == StreamRevealing {
		m.skip()
	}
}

func (m *Machine) skip() {
	m.skipping = true
	m.char.Stop()
	m.runReveal(0)
}

// SetOverlay opens or closes a blocking overlay. While open, no timer moves
// and input is ignored.
func (m *Machine) SetOverlay(open bool) {
	if open == m.overlay {
		return
	}
	m.overlay = open
	for _, t := range []*PausableTimer{&m.char, &m.auto, &m.dots} {
		if open {
			t.Pause()
		} else {
			t.Resume()
		}
	}
	if !open {
		m.runReveal(0)
	}
}

// Tick moves time forward by dt.
func (m *Machine) Tick(dt time.Duration) {
	if m.overlay || dt < 0 {
		return
	}
	switch m.state {
	case WaitingResponse:
		for {
			left, fired := m.dots.Advance(dt)
			if !fired {
				return
			}
			m.dotCount = m.dotCount%3 + 1
			m.dots.Start(IndicatorInterval)
			dt = left
		}
	case Revealing, StreamRevealing:
		m.runReveal(dt)
	case AwaitingAdvance:
		if _, fired := m.auto.Advance(dt); fired {
			m.enterInputReady()
		}
	}
}

// =============================================================================
// REVEAL
// =============================================================================

// runReveal spends budget revealing runes. Several runes may appear in one
// call when their delays fit inside it.
func (m *Machine) runReveal(budget time.Duration) {
	if m.overlay {
		return
	}
	for m.state == Revealing || m.state == StreamRevealing {
		if m.paused {
			left, fired := m.auto.Advance(budget)
			if !fired {
				return
			}
			budget = left
			m.resume()
			continue
		}
		if m.char.Running() {
			left, fired := m.char.Advance(budget)
			if !fired {
				return
			}
			budget = left
		}
		if !m.revealNext() {
			return
		}
	}
}

// revealNext shows the next rune. It returns false when nothing more can be
// shown until new text arrives or the reply finished.
func (m *Machine) revealNext() bool {
	if !m.streaming {
		if m.skipping {
			m.cursor = len(m.text)
			m.page = m.text
		}
		if m.cursor >= len(m.text) {
			m.finish()
			return false
		}
		r := m.text[m.cursor]
		m.cursor++
		m.page = m.text[:m.cursor]
		m.char.Start(m.pacing.delay(r, true))
		return true
	}

	if m.cursor >= len(m.text) {
		if m.complete {
			m.finish()
		}
		// A skip covers what had arrived; later chunks are paced again.
		m.skipping = false
		return false
	}
	r := m.text[m.cursor]
	m.cursor++
	if len(m.page) == 0 && unicode.IsSpace(r) {
		return true
	}
	m.page = append(m.page, r)

	last := m.cursor >= len(m.text)
	if isPageBreak(r) && !(last && m.complete) && (last || !isCloser(m.text[m.cursor])) {
		m.pause()
		return true
	}
	if m.skipping {
		m.char.Start(0)
	} else {
		m.char.Start(m.pacing.delay(r, false))
	}
	return true
}

func (m *Machine) pause() {
	m.paused = true
	m.skipping = false
	m.char.Stop()
	m.logPage()
	if m.pacing.AutoMode {
		m.auto.Start(m.pacing.interval())
	}
}

// resume continues after a page break. The page is only cleared when more
// text is coming.
func (m *Machine) resume() {
	m.paused = false
	m.auto.Stop()
	if m.cursor < len(m.text) || !m.complete {
		m.page = nil
		m.lastLogged = ""
	}
}

func (m *Machine) finish() {
	if text := strings.TrimSpace(string(m.page)); text != m.lastLogged {
		m.logPage()
	}
	m.state = AwaitingAdvance
	m.skipping = false
	m.char.Stop()
	if m.pacing.AutoMode {
		m.auto.Start(m.pacing.interval())
	}
}

func (m *Machine) logPage() {
	text := strings.TrimSpace(string(m.page))
	if text == "" {
		return
	}
	m.backlog.Append(m.speaker, text)
	m.lastLogged = text
}

// =============================================================================
// VIEW
// =============================================================================

// View returns the current frame.
func (m *Machine) View() View {
	v := View{
		State:    m.state,
		Speaker:  m.speaker,
		Emotion:  m.emotion,
		AutoMode: m.pacing.AutoMode,
		Overlay:  m.overlay,
	}
	switch m.state {
	case WaitingResponse:
		v.WaitingIndicator = true
		v.Indicator = strings.Repeat(".", m.dotCount)
	case Revealing, StreamRevealing:
		v.Text = string(m.page)
		if m.paused {
			v.WaitingIndicator = true
			v.Indicator = AdvanceMark
		}
	case AwaitingAdvance:
		v.Text = string(m.page)
		v.WaitingIndicator = true
		v.Indicator = AdvanceMark
	}
	return v
}
