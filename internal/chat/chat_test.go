// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/amadeus-tui/internal/auth"
	"github.com/jeranaias/amadeus-tui/internal/config"
	"github.com/jeranaias/amadeus-tui/internal/failover"
	"github.com/jeranaias/amadeus-tui/internal/model"
	"github.com/jeranaias/amadeus-tui/internal/present"
	"github.com/jeranaias/amadeus-tui/internal/provider"
	"github.com/jeranaias/amadeus-tui/internal/tagparse"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

type staticSettings config.Settings

func (s staticSettings) Settings() config.Settings { return config.Settings(s) }

func openAISettings(stream string) staticSettings {
	s := config.Default().Settings()
	s.Provider = provider.KindOpenAI
	s.APIKey = "sk-test"
	s.StreamMode = stream
	return staticSettings(s)
}

// fakeTransport answers each request with the next handler result.
type fakeTransport struct {
	mu    sync.Mutex
	urls  []string
	reply func(n int, req *provider.Request) (*provider.Response, error)
}

func (f *fakeTransport) Do(ctx context.Context, req *provider.Request) (*provider.Response, error) {
	f.mu.Lock()
	n := len(f.urls)
	f.urls = append(f.urls, req.URL)
	f.mu.Unlock()
	return f.reply(n, req)
}

func (f *fakeTransport) calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.urls...)
}

func respond(status int, body string) (*provider.Response, error) {
	return &provider.Response{
		Status: status,
		Header: http.Header{},
		Body:   io.NopCloser(strings.NewReader(body)),
	}, nil
}

func chatSSE(deltas ...string) string {
	var sb strings.Builder
	for _, d := range deltas {
		fmt.Fprintf(&sb, "data: {\"choices\":[{\"delta\":{\"content\":%q}}]}\n\n", d)
	}
	sb.WriteString("data: [DONE]\n\n")
	return sb.String()
}

type recordBacklog struct {
	pages []string
}

func (b *recordBacklog) Append(speaker, text string) {
	b.pages = append(b.pages, speaker+": "+text)
}

type harness struct {
	orch    *Orchestrator
	events  chan Event
	backlog *recordBacklog
	tr      *fakeTransport
}

func newHarness(t *testing.T, settings SettingsSource, tr *fakeTransport, mutate func(*Options)) *harness {
	t.Helper()
	h := &harness{
		events:  make(chan Event, 256),
		backlog: &recordBacklog{},
		tr:      tr,
	}
	opts := Options{
		Settings:  settings,
		Transport: tr,
		Backlog:   h.backlog,
		Policy: &failover.Policy{
			Sleep:     func(context.Context, time.Duration) error { return nil },
			Rand:      func() float64 { return 0 },
			Retryable: failover.Temporary,
		},
		Post: func(ev Event) { h.events <- ev },
	}
	if mutate != nil {
		mutate(&opts)
	}
	h.orch = New(opts)
	t.Cleanup(h.orch.Close)
	return h
}

// pump applies request events until the request settles.
func (h *harness) pump(t *testing.T) {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for h.orch.InFlight() {
		select {
		case ev := <-h.events:
			h.orch.Handle(ev)
		case <-deadline:
			t.Fatal("request did not settle")
		}
	}
}

// reveal ticks and advances through pages until the reply is fully shown.
func (h *harness) reveal(t *testing.T) {
	t.Helper()
	for i := 0; i < 1000; i++ {
		if h.orch.State() == present.AwaitingAdvance {
			return
		}
		if v := h.orch.View(); v.State == present.StreamRevealing && v.Indicator == present.AdvanceMark {
			h.orch.Advance()
			continue
		}
		h.orch.Tick(time.Second)
	}
	t.Fatalf("reply never finished, state %s", h.orch.State())
}

func lastAssistant(history []model.Message) (string, bool) {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == model.RoleAssistant {
			return history[i].Content, true
		}
	}
	return "", false
}

// =============================================================================
// TURN TESTS
// =============================================================================

func TestSubmit_StreamEndToEnd(t *testing.T) {
	tr := &fakeTransport{reply: func(int, *provider.Request) (*provider.Response, error) {
		return respond(http.StatusOK, chatSSE("[SMILE] ", "Hi the", "re!"))
	}}
	h := newHarness(t, openAISettings(config.StreamAlways), tr, nil)

	require.NoError(t, h.orch.Submit("  hi  "))
	assert.Equal(t, present.WaitingResponse, h.orch.State())

	h.pump(t)
	h.reveal(t)

	v := h.orch.View()
	assert.Equal(t, tagparse.Smile, v.Emotion)
	assert.Equal(t, "Hi there!", v.Text)
	assert.Equal(t, "Kurisu", v.Speaker)

	history := h.orch.History()
	require.Len(t, history, 3)
	assert.Equal(t, model.RoleSystem, history[0].Role)
	assert.Equal(t, "hi", history[1].Content)
	assert.Equal(t, "Hi there!", history[2].Content)

	assert.Equal(t, []string{"User: hi", "Kurisu: Hi there!"}, h.backlog.pages)
	assert.Equal(t, []string{"SMILE"}, h.orch.Memory().Snapshot().RecentEmotions)

	h.orch.Advance()
	assert.Equal(t, present.InputReady, h.orch.State())
	assert.Equal(t, 1, h.orch.Turn())
	assert.Len(t, tr.calls(), 1)
}

func TestSubmit_Batch(t *testing.T) {
	tr := &fakeTransport{reply: func(int, *provider.Request) (*provider.Response, error) {
		return respond(http.StatusOK, `{"choices":[{"message":{"role":"assistant","content":"[SAD] <think>hmm</think>……そう。"}}]}`)
	}}
	h := newHarness(t, openAISettings(config.StreamNever), tr, nil)

	require.NoError(t, h.orch.Submit("ねえ"))
	h.pump(t)
	assert.Equal(t, present.Revealing, h.orch.State())
	h.reveal(t)

	v := h.orch.View()
	assert.Equal(t, tagparse.Sad, v.Emotion)
	assert.Equal(t, "……そう。", v.Text)

	text, ok := lastAssistant(h.orch.History())
	require.True(t, ok)
	assert.Equal(t, "……そう。", text)
}

func TestSubmit_RejectsWhileBusy(t *testing.T) {
	release := make(chan struct{})
	tr := &fakeTransport{reply: func(int, *provider.Request) (*provider.Response, error) {
		<-release
		return respond(http.StatusOK, `{"choices":[{"message":{"content":"ok"}}]}`)
	}}
	h := newHarness(t, openAISettings(config.StreamNever), tr, nil)

	assert.ErrorIs(t, h.orch.Submit("   "), ErrEmptyInput)

	require.NoError(t, h.orch.Submit("first"))
	assert.ErrorIs(t, h.orch.Submit("second"), ErrBusy)

	close(release)
	h.pump(t)
	assert.ErrorIs(t, h.orch.Submit("third"), ErrBusy, "input is refused until the reply is acknowledged")

	h.reveal(t)
	h.orch.Advance()
	require.NoError(t, h.orch.Submit("fourth"))
	h.pump(t)

	var users []string
	for _, m := range h.orch.History() {
		if m.Role == model.RoleUser {
			users = append(users, m.Content)
		}
	}
	assert.Equal(t, []string{"first", "fourth"}, users)
}

// mutableSettings lets a test change saved settings mid-session.
type mutableSettings struct{ s config.Settings }

func (m *mutableSettings) Settings() config.Settings { return m.s }

func TestSetAutoMode_SurvivesSubmitAndSettings(t *testing.T) {
	tr := &fakeTransport{reply: func(int, *provider.Request) (*provider.Response, error) {
		return respond(http.StatusOK, `{"choices":[{"message":{"content":"ok"}}]}`)
	}}
	settings := &mutableSettings{s: config.Settings(openAISettings(config.StreamNever))}
	settings.s.AutoMode = false
	h := newHarness(t, settings, tr, nil)

	h.orch.SetAutoMode(true)
	require.NoError(t, h.orch.Submit("hi"))
	assert.True(t, h.orch.View().AutoMode)
	h.pump(t)

	// Saving unrelated settings keeps the toggle.
	settings.s.TextSpeed = 2
	h.orch.ApplySettings(settings.s)
	assert.True(t, h.orch.View().AutoMode)

	// Changing the saved auto mode itself wins.
	settings.s.AutoMode = true
	h.orch.ApplySettings(settings.s)
	settings.s.AutoMode = false
	h.orch.ApplySettings(settings.s)
	assert.False(t, h.orch.View().AutoMode)
}

func TestSubmit_ErrorMessages(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   string
	}{
		{"unauthorized", http.StatusUnauthorized, msgInvalidCredential},
		{"forbidden", http.StatusForbidden, msgForbidden},
		{"rate limited", http.StatusTooManyRequests, msgRateLimited},
		{"not found", http.StatusNotFound, msgModelNotFound},
		{"server fault", http.StatusInternalServerError, msgServerFault},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := &fakeTransport{reply: func(int, *provider.Request) (*provider.Response, error) {
				return respond(tt.status, `{"error":{"message":"nope"}}`)
			}}
			h := newHarness(t, openAISettings(config.StreamNever), tr, nil)

			require.NoError(t, h.orch.Submit("hi"))
			h.pump(t)
			h.reveal(t)

			v := h.orch.View()
			assert.Equal(t, tt.want, v.Text)
			assert.Equal(t, tagparse.ErrorEmotion, v.Emotion)

			_, ok := lastAssistant(h.orch.History())
			assert.False(t, ok, "failed turns commit no assistant message")
		})
	}
}

func TestSubmit_MissingCredential(t *testing.T) {
	s := openAISettings(config.StreamNever)
	s.APIKey = ""
	tr := &fakeTransport{reply: func(int, *provider.Request) (*provider.Response, error) {
		t.Error("no request expected without a credential")
		return respond(http.StatusOK, "")
	}}
	h := newHarness(t, s, tr, nil)

	require.NoError(t, h.orch.Submit("hi"))
	h.pump(t)
	h.reveal(t)
	assert.Equal(t, msgMissingCredential, h.orch.View().Text)
}

func TestSubmit_EmptyReplyIsDecodeFailure(t *testing.T) {
	tr := &fakeTransport{reply: func(int, *provider.Request) (*provider.Response, error) {
		return respond(http.StatusOK, chatSSE("[SMILE]", "  "))
	}}
	h := newHarness(t, openAISettings(config.StreamAlways), tr, nil)

	require.NoError(t, h.orch.Submit("hi"))
	h.pump(t)
	h.reveal(t)

	v := h.orch.View()
	assert.Equal(t, msgDecodeFailure, v.Text)
	assert.Equal(t, tagparse.ErrorEmotion, v.Emotion)
}

// failingBody yields one chunk and then a read error.
type failingBody struct {
	chunk []byte
	sent  bool
}

func (b *failingBody) Read(p []byte) (int, error) {
	if !b.sent {
		b.sent = true
		return copy(p, b.chunk), nil
	}
	return 0, errors.New("connection reset by peer")
}

func (b *failingBody) Close() error { return nil }

func TestSubmit_StreamInterrupted(t *testing.T) {
	tr := &fakeTransport{reply: func(int, *provider.Request) (*provider.Response, error) {
		body := &failingBody{chunk: []byte("data: {\"choices\":[{\"delta\":{\"content\":\"[SMILE] こんにちは\"}}]}\n\n")}
		return &provider.Response{Status: http.StatusOK, Header: http.Header{}, Body: body}, nil
	}}
	h := newHarness(t, openAISettings(config.StreamAlways), tr, nil)

	require.NoError(t, h.orch.Submit("hi"))
	h.pump(t)
	h.reveal(t)

	v := h.orch.View()
	assert.Equal(t, msgStreamInterrupted, v.Text)
	assert.Equal(t, tagparse.ErrorEmotion, v.Emotion)
	assert.Contains(t, h.backlog.pages, "Kurisu: こんにちは")

	_, ok := lastAssistant(h.orch.History())
	assert.False(t, ok)
}

func TestCancel_DropsStaleEvents(t *testing.T) {
	tr := &fakeTransport{reply: func(_ int, _ *provider.Request) (*provider.Response, error) {
		return nil, context.Canceled
	}}
	h := newHarness(t, openAISettings(config.StreamNever), tr, nil)

	require.NoError(t, h.orch.Submit("hi"))
	stale := h.orch.reqID
	h.orch.Cancel()

	assert.False(t, h.orch.InFlight())
	assert.Equal(t, present.InputReady, h.orch.State())

	h.orch.Handle(Event{Turn: stale, Kind: EventBatch, Text: "[SMILE] late"})
	assert.Equal(t, present.InputReady, h.orch.State())
	_, ok := lastAssistant(h.orch.History())
	assert.False(t, ok)
}

func TestResetConversation(t *testing.T) {
	tr := &fakeTransport{reply: func(int, *provider.Request) (*provider.Response, error) {
		return respond(http.StatusOK, `{"choices":[{"message":{"content":"[WINK] ok"}}]}`)
	}}
	h := newHarness(t, openAISettings(config.StreamNever), tr, nil)

	require.NoError(t, h.orch.Submit("hi"))
	assert.ErrorIs(t, h.orch.ResetConversation(), ErrBusy)

	h.pump(t)
	h.reveal(t)
	h.orch.Advance()

	require.NoError(t, h.orch.ResetConversation())
	history := h.orch.History()
	require.Len(t, history, 1)
	assert.Equal(t, model.RoleSystem, history[0].Role)
	assert.Equal(t, 0, h.orch.Turn())
}

func TestSubmit_TrimsHistoryIntoMemory(t *testing.T) {
	s := openAISettings(config.StreamNever)
	s.HistoryWindow = 2
	tr := &fakeTransport{reply: func(int, *provider.Request) (*provider.Response, error) {
		return respond(http.StatusOK, `{"choices":[{"message":{"content":"うん。"}}]}`)
	}}
	h := newHarness(t, s, tr, nil)

	for _, msg := range []string{"one", "two", "three"} {
		require.NoError(t, h.orch.Submit(msg))
		h.pump(t)
		h.reveal(t)
		h.orch.Advance()
	}

	history := h.orch.History()
	assert.LessOrEqual(t, len(history)-1, 2)
	assert.NotEmpty(t, h.orch.Memory().Snapshot().Summaries)
}

// =============================================================================
// VERTEX FAILOVER TESTS
// =============================================================================

func vertexHarness(t *testing.T, tr *fakeTransport) *harness {
	s := config.Default().Settings()
	s.Provider = provider.KindVertex
	s.VertexProject = "proj"
	s.VertexLocation = "us-central1"
	s.StreamMode = config.StreamAlways
	return newHarness(t, staticSettings(s), tr, func(o *Options) {
		o.Registry = provider.NewRegistry(provider.NewVertex().WithHost("http://vertex.test"))
		o.Tokens = auth.Static("ya29.token")
	})
}

func TestVertex_FailsOverToNextRegion(t *testing.T) {
	tr := &fakeTransport{reply: func(n int, req *provider.Request) (*provider.Response, error) {
		assert.Equal(t, "Bearer ya29.token", req.Header.Get("Authorization"))
		if n == 0 {
			return respond(http.StatusTooManyRequests, `{"error":{"message":"quota"}}`)
		}
		return respond(http.StatusOK, "data: {\"candidates\":[{\"content\":{\"parts\":[{\"text\":\"[THINKING] 次のリージョンね。\"}]}}]}\n\n")
	}}
	h := vertexHarness(t, tr)

	require.NoError(t, h.orch.Submit("hi"))
	h.pump(t)
	h.reveal(t)

	calls := tr.calls()
	require.Len(t, calls, 2)
	regions := failover.Candidates("us-central1", nil)
	assert.Contains(t, calls[0], "/locations/"+regions[0]+"/")
	assert.Contains(t, calls[1], "/locations/"+regions[1]+"/")

	v := h.orch.View()
	assert.Equal(t, tagparse.Thinking, v.Emotion)
	assert.Equal(t, "次のリージョンね。", v.Text)
}

func TestVertex_AllRegionsExhausted(t *testing.T) {
	tr := &fakeTransport{reply: func(int, *provider.Request) (*provider.Response, error) {
		return respond(http.StatusServiceUnavailable, `{"error":{"message":"busy"}}`)
	}}
	h := vertexHarness(t, tr)

	require.NoError(t, h.orch.Submit("hi"))
	h.pump(t)
	h.reveal(t)

	assert.Len(t, tr.calls(), len(failover.Candidates("us-central1", nil)))
	assert.Equal(t, msgAllRegionsExhausted, h.orch.View().Text)
}

func TestVertex_NonRetryableStops(t *testing.T) {
	tr := &fakeTransport{reply: func(int, *provider.Request) (*provider.Response, error) {
		return respond(http.StatusUnauthorized, `{"error":{"message":"bad token"}}`)
	}}
	h := vertexHarness(t, tr)

	require.NoError(t, h.orch.Submit("hi"))
	h.pump(t)
	h.reveal(t)

	assert.Len(t, tr.calls(), 1)
	assert.Equal(t, msgInvalidCredential, h.orch.View().Text)
}

func TestVertex_TokenFailure(t *testing.T) {
	tr := &fakeTransport{reply: func(int, *provider.Request) (*provider.Response, error) {
		t.Error("no request expected without a token")
		return respond(http.StatusOK, "")
	}}
	h := vertexHarness(t, tr)
	h.orch.opts.Tokens = auth.NewCache(auth.FetcherFunc(func(context.Context) (auth.Token, error) {
		return auth.Token{}, errors.New("gcloud not found")
	}))

	require.NoError(t, h.orch.Submit("hi"))
	h.pump(t)
	h.reveal(t)
	assert.Equal(t, msgCredentialAcquisition, h.orch.View().Text)
}

// =============================================================================
// CLASSIFICATION TESTS
// =============================================================================

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"nil", nil, KindUnknown},
		{"plain", errors.New("boom"), KindUnknown},
		{"missing", provider.ErrMissingCredential, KindMissingCredential},
		{"unknown provider", provider.ErrUnknownProvider, KindUnknownProvider},
		{"timeout", fmt.Errorf("wrapped: %w", provider.ErrTimeout), KindTimeout},
		{"network", provider.ErrNetworkUnreachable, KindNetworkUnreachable},
		{"decode", provider.ErrDecodeFailure, KindDecodeFailure},
		{"forbidden", provider.ErrForbidden, KindInvalidCredential},
		{"token", fmt.Errorf("%w: %w", ErrCredentialAcquisition, errors.New("exit 1")), KindCredentialAcquisition},
		{"interrupted wins", fmt.Errorf("%w: %w", failover.ErrStreamInterrupted, provider.ErrServerFault), KindStreamInterrupted},
		{"exhausted wins", &failover.ExhaustedError{Attempts: []failover.Attempt{{Region: "r", Err: provider.ErrRateLimited}}}, KindAllRegionsExhausted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}

func TestUserMessage_Forbidden(t *testing.T) {
	_, msg := UserMessage(provider.ErrForbidden)
	assert.Equal(t, msgForbidden, msg)
	_, msg = UserMessage(provider.ErrAuthFailed)
	assert.Equal(t, msgInvalidCredential, msg)
}

// =============================================================================
// LOOP TESTS
// =============================================================================

type chanSurface struct {
	frames chan present.View
}

func (s chanSurface) Render(v present.View) {
	select {
	case s.frames <- v:
	default:
	}
}

func TestLoop_DrivesTurn(t *testing.T) {
	s := openAISettings(config.StreamAlways)
	s.TextSpeed = config.MaxTextSpeed
	tr := &fakeTransport{reply: func(int, *provider.Request) (*provider.Response, error) {
		return respond(http.StatusOK, chatSSE("[BLUSH] ok"))
	}}

	loop := NewLoop(5 * time.Millisecond)
	surface := chanSurface{frames: make(chan present.View, 64)}
	orch := New(Options{
		Settings:  s,
		Transport: tr,
		Surface:   surface,
		Post:      loop.Post,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go loop.Run(ctx, orch)

	var err error
	require.True(t, loop.Do(func() { err = orch.Submit("hi") }))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		var st present.State
		loop.Do(func() { st = orch.State() })
		return st == present.AwaitingAdvance
	}, 5*time.Second, 10*time.Millisecond)

	var v present.View
	loop.Do(func() { v = orch.View() })
	assert.Equal(t, "ok", v.Text)
	assert.Equal(t, tagparse.Blush, v.Emotion)

	cancel()
	assert.Eventually(t, func() bool { return !loop.Do(func() {}) }, time.Second, 5*time.Millisecond)
}

func TestLoop_PostAfterStop(t *testing.T) {
	loop := NewLoop(0)
	ctx, cancel := context.WithCancel(context.Background())
	orch := New(Options{Settings: openAISettings(config.StreamNever), Post: loop.Post})

	done := make(chan struct{})
	go func() {
		loop.Run(ctx, orch)
		close(done)
	}()
	cancel()
	<-done

	for i := 0; i < eventBuffer+1; i++ {
		loop.Post(Event{Kind: EventToken, Text: "x"})
	}
	assert.False(t, loop.Do(func() {}))
}
