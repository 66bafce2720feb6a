// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/jeranaias/amadeus-tui/internal/auth"
	"github.com/jeranaias/amadeus-tui/internal/config"
	"github.com/jeranaias/amadeus-tui/internal/failover"
	"github.com/jeranaias/amadeus-tui/internal/memory"
	"github.com/jeranaias/amadeus-tui/internal/model"
	"github.com/jeranaias/amadeus-tui/internal/persona"
	"github.com/jeranaias/amadeus-tui/internal/present"
	"github.com/jeranaias/amadeus-tui/internal/provider"
	"github.com/jeranaias/amadeus-tui/internal/tagparse"
)

// =============================================================================
// EVENTS
// =============================================================================

// EventKind identifies what a request goroutine is reporting.
type EventKind int

const (
	EventToken EventKind = iota
	EventDone
	EventBatch
	EventError
)

// Event carries a request result back to the owning loop. Turn tags the
// request so events from a cancelled request are dropped.
type Event struct {
	Turn uint64
	Kind EventKind
	Text string
	Err  error
}

// SettingsSource supplies resolved settings at the start of each turn.
type SettingsSource interface {
	Settings() config.Settings
}

// BacklogSink records what was said. It is observational only.
type BacklogSink = present.BacklogSink

// Options wires an Orchestrator.
type Options struct {
	Settings  SettingsSource
	Registry  *provider.Registry
	Transport provider.Transport
	// Tokens authenticates Vertex requests.
	Tokens  auth.TokenSource
	Policy  *failover.Policy
	Memory  *memory.Manager
	Backlog BacklogSink
	Surface present.Surface
	// Persona is the base persona prompt; empty uses persona.Base.
	Persona string
	// Post delivers events to the loop that owns the orchestrator. It must
	// be safe to call from any goroutine.
	Post func(Event)
}

// =============================================================================
// ORCHESTRATOR
// =============================================================================

// Orchestrator owns the conversation and runs one turn at a time:
// submit, wait, receive or stream, settle.
//
// Every method must be called from a single goroutine (the Bubble Tea update
// loop or a Loop). Network I/O runs on its own goroutine and reports back
// through Options.Post.
type Orchestrator struct {
	opts    Options
	conv    *model.Conversation
	machine *present.Machine

	// autoOverride is the session's auto mode toggle. It holds until the
	// saved setting changes away from autoBase, its value at toggle time.
	autoOverride *bool
	autoBase     bool

	turn     int
	reqID    uint64
	inFlight bool
	cancel   context.CancelFunc

	// Stream session for the request in flight.
	parser    *tagparse.Parser
	raw       strings.Builder
	started   time.Time
	gotFirst  bool
	streaming bool
}

// New creates an orchestrator in InputReady.
func New(opts Options) *Orchestrator {
	if opts.Registry == nil {
		opts.Registry = provider.DefaultRegistry()
	}
	if opts.Transport == nil {
		opts.Transport = provider.NewHTTPTransport()
	}
	if opts.Policy == nil {
		opts.Policy = failover.NewPolicy()
	}
	if opts.Memory == nil {
		opts.Memory = memory.New("")
	}
	if opts.Persona == "" {
		opts.Persona = persona.Base
	}
	if opts.Post == nil {
		opts.Post = func(Event) {}
	}

	o := &Orchestrator{
		opts: opts,
		conv: model.NewConversation(),
	}
	s := o.settings()
	o.machine = present.NewMachine(opts.Backlog, pacing(s))
	o.conv.SetSystem(o.systemPrompt(s))
	return o
}

func (o *Orchestrator) settings() config.Settings {
	if o.opts.Settings == nil {
		return config.Default().Settings()
	}
	return o.opts.Settings.Settings()
}

func pacing(s config.Settings) present.Pacing {
	return present.Pacing{
		Speed:        s.TextSpeed,
		AutoMode:     s.AutoMode,
		AutoInterval: s.AutoInterval,
	}
}

// applyPacing sets pacing from s, keeping a session auto mode toggle.
func (o *Orchestrator) applyPacing(s config.Settings) {
	if o.autoOverride != nil && s.AutoMode != o.autoBase {
		o.autoOverride = nil
	}
	p := pacing(s)
	if o.autoOverride != nil {
		p.AutoMode = *o.autoOverride
	}
	o.machine.SetPacing(p)
}

func (o *Orchestrator) systemPrompt(s config.Settings) string {
	mem := o.opts.Memory
	return persona.Build(o.opts.Persona, mem.MemoryContext(), mem.DynamicContext(o.turn), s.WebSearch)
}

// =============================================================================
// ACCESSORS
// =============================================================================

// State returns the presentation state.
func (o *Orchestrator) State() present.State {
	return o.machine.State()
}

// View returns the current frame.
func (o *Orchestrator) View() present.View {
	return o.machine.View()
}

// InFlight reports whether a request is outstanding.
func (o *Orchestrator) InFlight() bool {
	return o.inFlight
}

// Turn returns the number of submitted turns since the last reset.
func (o *Orchestrator) Turn() int {
	return o.turn
}

// History returns a copy of the conversation.
func (o *Orchestrator) History() []model.Message {
	return o.conv.Snapshot()
}

// Memory returns the long-term memory manager.
func (o *Orchestrator) Memory() *memory.Manager {
	return o.opts.Memory
}

func (o *Orchestrator) render() {
	if o.opts.Surface != nil {
		o.opts.Surface.Render(o.machine.View())
	}
}

// =============================================================================
// INPUT
// =============================================================================

// Submit starts a turn with the user's text.
func (o *Orchestrator) Submit(text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyInput
	}
	if o.inFlight || o.machine.State() != present.InputReady {
		return ErrBusy
	}

	s := o.settings()
	o.applyPacing(s)

	o.conv.Append(model.NewUserMessage(text))
	o.turn++

	window := s.HistoryWindow
	if window < 1 {
		window = memory.DefaultWindow
	}
	if trimmed, summary := o.opts.Memory.TrimHistory(o.conv.Snapshot(), window); summary != "" {
		o.conv.Replace(trimmed)
	}

	o.opts.Memory.RecordInteraction()
	o.conv.SetSystem(o.systemPrompt(s))

	if o.opts.Backlog != nil {
		o.opts.Backlog.Append(model.RoleUser.Speaker(), text)
	}
	if err := o.machine.BeginWaiting(); err != nil {
		return fmt.Errorf("%w: %v", ErrBusy, err)
	}

	o.start(s)
	o.render()
	return nil
}

// Advance forwards the continue key to the state machine.
func (o *Orchestrator) Advance() {
	o.machine.Advance()
	o.render()
}

// Skip reveals the current page at once.
func (o *Orchestrator) Skip() {
	o.machine.Skip()
	o.render()
}

// SetOverlay pauses or resumes presentation for a blocking overlay.
func (o *Orchestrator) SetOverlay(open bool) {
	o.machine.SetOverlay(open)
	o.render()
}

// SetAutoMode toggles auto-advance for the current and later turns. The
// toggle outlives the saved setting until that setting is changed.
func (o *Orchestrator) SetAutoMode(on bool) {
	o.autoOverride = &on
	o.autoBase = o.settings().AutoMode
	o.machine.SetAutoMode(on)
	o.render()
}

// ApplySettings updates pacing after a settings change mid-turn.
func (o *Orchestrator) ApplySettings(s config.Settings) {
	o.applyPacing(s)
}

// Tick moves presentation time forward.
func (o *Orchestrator) Tick(dt time.Duration) {
	before := o.machine.View()
	o.machine.Tick(dt)
	if after := o.machine.View(); after != before {
		o.render()
	}
}

// Cancel abandons the request in flight. Nothing is committed for the
// assistant; the user message stays.
func (o *Orchestrator) Cancel() {
	if !o.inFlight {
		return
	}
	o.cancel()
	o.reqID++
	o.settle()
	o.machine.Reset()
	log.Printf("[chat] turn %d cancelled", o.turn)
	o.render()
}

// Close cancels any request in flight.
func (o *Orchestrator) Close() {
	o.Cancel()
}

// ResetConversation clears history but keeps the system message.
func (o *Orchestrator) ResetConversation() error {
	if o.inFlight || o.machine.State() != present.InputReady {
		return ErrBusy
	}
	o.conv.Clear()
	o.turn = 0
	o.conv.SetSystem(o.systemPrompt(o.settings()))
	return nil
}

// =============================================================================
// REQUEST
// =============================================================================

// start launches the request goroutine for the current history.
func (o *Orchestrator) start(s config.Settings) {
	ctx, cancel := context.WithCancel(context.Background())
	o.reqID++
	o.inFlight = true
	o.cancel = cancel
	o.parser = tagparse.New(s.Lookahead)
	o.raw.Reset()
	o.started = time.Now()
	o.gotFirst = false

	id := o.reqID
	history := o.conv.Snapshot()
	post := func(ev Event) {
		ev.Turn = id
		o.opts.Post(ev)
	}

	client, err := o.opts.Registry.Get(s.Provider)
	if err != nil {
		go post(Event{Kind: EventError, Err: err})
		return
	}

	sel := provider.Selection{
		Provider:   s.Provider,
		Credential: s.APIKey,
		Model:      s.Model,
		Region:     s.VertexLocation,
		Project:    s.VertexProject,
		WebSearch:  s.WebSearch,
		Stream:     wantStream(s.StreamMode, client),
	}
	o.streaming = sel.Stream

	log.Printf("[chat] turn %d: %s model=%q stream=%v", o.turn, client.Name(), sel.Model, sel.Stream)
	if client.Kind() == provider.KindVertex {
		go o.runRegions(ctx, client, history, sel, post)
	} else {
		go o.runSingle(ctx, client, history, sel, post)
	}
}

func wantStream(mode string, c provider.Client) bool {
	switch mode {
	case config.StreamAlways:
		return true
	case config.StreamNever:
		return false
	default:
		return c.StreamsByDefault()
	}
}

// exchange performs one request and posts its tokens or batch text. It
// reports whether any token was posted.
func (o *Orchestrator) exchange(ctx context.Context, c provider.Client, history []model.Message, sel provider.Selection, post func(Event)) (bool, error) {
	req, err := c.BuildRequest(history, sel)
	if err != nil {
		return false, err
	}

	if !sel.Stream {
		text, err := provider.Send(ctx, o.opts.Transport, c, req)
		if err != nil {
			return false, err
		}
		post(Event{Kind: EventBatch, Text: text})
		return false, nil
	}

	delivered := false
	_, err = provider.Stream(ctx, o.opts.Transport, c, req, func(delta string) {
		delivered = true
		post(Event{Kind: EventToken, Text: delta})
	})
	return delivered, err
}

// runSingle serves single-region providers. Failures surface at once.
func (o *Orchestrator) runSingle(ctx context.Context, c provider.Client, history []model.Message, sel provider.Selection, post func(Event)) {
	delivered, err := o.exchange(ctx, c, history, sel, post)
	switch {
	case err == nil:
		if sel.Stream {
			post(Event{Kind: EventDone})
		}
	case delivered:
		post(Event{Kind: EventError, Err: fmt.Errorf("%w: %w", failover.ErrStreamInterrupted, err)})
	default:
		post(Event{Kind: EventError, Err: err})
	}
}

// runRegions serves Vertex: one token, then regions in failover order.
func (o *Orchestrator) runRegions(ctx context.Context, c provider.Client, history []model.Message, sel provider.Selection, post func(Event)) {
	if o.opts.Tokens == nil || strings.TrimSpace(sel.Project) == "" {
		post(Event{Kind: EventError, Err: provider.ErrMissingCredential})
		return
	}
	token, err := o.opts.Tokens.Token(ctx)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			err = fmt.Errorf("%w: %w", ErrCredentialAcquisition, err)
		}
		post(Event{Kind: EventError, Err: err})
		return
	}
	sel.Credential = token

	regions := failover.Candidates(sel.Region, nil)
	res, err := o.opts.Policy.Run(ctx, regions, func(ctx context.Context, region string) (failover.Outcome, error) {
		attempt := sel
		attempt.Region = region
		delivered, err := o.exchange(ctx, c, history, attempt, post)
		return failover.Outcome{Delivered: delivered}, err
	})
	if res.Retries > 0 {
		log.Printf("[chat] vertex: %d retries, last region %s", res.Retries, res.Region)
	}
	if err != nil {
		if errors.Is(err, provider.ErrAuthFailed) {
			if inv, ok := o.opts.Tokens.(interface{ Invalidate() }); ok {
				inv.Invalidate()
			}
		}
		post(Event{Kind: EventError, Err: err})
		return
	}
	if sel.Stream {
		post(Event{Kind: EventDone})
	}
}

// =============================================================================
// EVENT HANDLING
// =============================================================================

// Handle applies one event from the request goroutine. Events for a request
// that is no longer current are ignored.
func (o *Orchestrator) Handle(ev Event) {
	if !o.inFlight || ev.Turn != o.reqID {
		return
	}
	switch ev.Kind {
	case EventToken:
		o.onToken(ev.Text)
	case EventDone:
		o.onDone()
	case EventBatch:
		o.onBatch(ev.Text)
	case EventError:
		o.onError(ev.Err)
	}
	o.render()
}

func (o *Orchestrator) markFirst() {
	if o.gotFirst {
		return
	}
	o.gotFirst = true
	// PERFORMANCE: time to first token is the latency users feel.
	log.Printf("[chat] turn %d: first token after %v", o.turn, time.Since(o.started).Round(time.Millisecond))
}

func (o *Orchestrator) onToken(delta string) {
	o.markFirst()
	o.raw.WriteString(delta)
	o.forward(o.parser.Feed(delta))
}

// forward hands parser output to the state machine. Reveal starts once the
// turn emotion is known.
func (o *Orchestrator) forward(r tagparse.Result) {
	if r.Resolved && o.machine.State() == present.WaitingResponse {
		if err := o.machine.StartStream(r.Emotion); err != nil {
			log.Printf("[chat] %v", err)
			return
		}
	}
	if r.Text != "" && o.machine.State() == present.StreamRevealing {
		if err := o.machine.AppendStream(r.Text); err != nil {
			log.Printf("[chat] %v", err)
		}
	}
}

func (o *Orchestrator) onDone() {
	_, text := tagparse.Clean(o.raw.String())
	if text == "" {
		o.onError(fmt.Errorf("%w: empty stream", provider.ErrDecodeFailure))
		return
	}

	// Finish always resolves; an untagged reply is neutral.
	o.forward(o.parser.Finish())
	o.commit(text, o.parser.Emotion())
	if err := o.machine.EndStream(); err != nil {
		log.Printf("[chat] %v", err)
	}
	o.settle()
}

func (o *Orchestrator) onBatch(body string) {
	o.markFirst()
	emotion, text := tagparse.Clean(body)
	if text == "" {
		o.onError(fmt.Errorf("%w: empty reply", provider.ErrDecodeFailure))
		return
	}
	o.commit(text, emotion)
	if err := o.machine.StartReveal(text, emotion); err != nil {
		log.Printf("[chat] %v", err)
	}
	o.settle()
}

// commit records the assistant reply in history and memory.
func (o *Orchestrator) commit(text string, emotion tagparse.Emotion) {
	o.conv.Append(model.NewAssistantMessage(text))
	if o.opts.Memory.RecordEmotion(emotion.String()) {
		log.Printf("[chat] emotion %s repeated 3+ times", emotion)
	}
}

func (o *Orchestrator) onError(err error) {
	kind, msg := UserMessage(err)
	log.Printf("[chat] turn %d failed (%s): %v", o.turn, kind, err)

	switch o.machine.State() {
	case present.StreamRevealing:
		_ = o.machine.InterruptStream(msg)
	case present.WaitingResponse:
		_ = o.machine.StartReveal(msg, tagparse.ErrorEmotion)
	}
	o.settle()
}

// settle ends the request; the stream session does not outlive it.
func (o *Orchestrator) settle() {
	if o.cancel != nil {
		o.cancel()
		o.cancel = nil
	}
	o.inFlight = false
	o.parser = nil
	o.raw.Reset()
}
