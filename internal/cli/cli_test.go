// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/amadeus-tui/internal/config"
	"github.com/jeranaias/amadeus-tui/internal/memory"
	"github.com/jeranaias/amadeus-tui/internal/present"
	"github.com/jeranaias/amadeus-tui/internal/provider"
	"github.com/jeranaias/amadeus-tui/internal/storage"
	"github.com/jeranaias/amadeus-tui/internal/tagparse"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

// setupHome points the config directory at a temp dir.
func setupHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	for _, env := range []string{"AMADEUS_PROVIDER", "AMADEUS_API_KEY", "AMADEUS_DATA_DIR", "AMADEUS_STREAM"} {
		t.Setenv(env, "")
	}
	return home
}

func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

// =============================================================================
// COMMANDS
// =============================================================================

func TestVersionCommand(t *testing.T) {
	setupHome(t)
	out, err := runCmd(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "amadeus "+Version)
}

func TestConfigCommands(t *testing.T) {
	home := setupHome(t)
	path := filepath.Join(home, ".amadeus", "config.toml")

	out, err := runCmd(t, "config", "path")
	require.NoError(t, err)
	assert.Equal(t, path, strings.TrimSpace(out))

	_, err = runCmd(t, "config", "set", "display.text_speed", "2.5")
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	out, err = runCmd(t, "config", "get", "display.text_speed")
	require.NoError(t, err)
	assert.Equal(t, "2.5", strings.TrimSpace(out))

	// Values are clamped, not rejected.
	_, err = runCmd(t, "config", "set", "display.text_speed", "99")
	require.NoError(t, err)
	out, err = runCmd(t, "config", "get", "display.text_speed")
	require.NoError(t, err)
	assert.Equal(t, "5", strings.TrimSpace(out))

	_, err = runCmd(t, "config", "set", "no.such_key", "1")
	assert.Error(t, err)
}

func TestConfigCommand_MasksSecrets(t *testing.T) {
	setupHome(t)

	out, err := runCmd(t, "config", "set", "provider.openai_key", "sk-very-secret")
	require.NoError(t, err)
	assert.NotContains(t, out, "sk-very-secret")

	out, err = runCmd(t, "config", "get", "provider.openai_key")
	require.NoError(t, err)
	assert.Equal(t, secretMask, strings.TrimSpace(out))

	out, err = runCmd(t, "config")
	require.NoError(t, err)
	assert.NotContains(t, out, "sk-very-secret")
	assert.Contains(t, out, "display.text_speed")
}

func TestMemoryCommands(t *testing.T) {
	setupHome(t)

	_, err := runCmd(t, "memory", "name", "Okabe", "Rintaro")
	require.NoError(t, err)
	_, err = runCmd(t, "memory", "fact", "works at the Future Gadget Lab")
	require.NoError(t, err)

	out, err := runCmd(t, "memory")
	require.NoError(t, err)
	assert.Contains(t, out, "Okabe Rintaro")
	assert.Contains(t, out, "works at the Future Gadget Lab")

	_, err = runCmd(t, "memory", "clear")
	require.NoError(t, err)
	out, err = runCmd(t, "memory")
	require.NoError(t, err)
	assert.NotContains(t, out, "Okabe")
}

func TestBacklogCommands(t *testing.T) {
	home := setupHome(t)

	store, err := storage.Open(filepath.Join(home, ".amadeus", BacklogFile))
	require.NoError(t, err)
	ctx := context.Background()
	session := store.Session()
	_, err = store.Add(ctx, "User", "What is a D-Mail?")
	require.NoError(t, err)
	_, err = store.Add(ctx, "Kurisu", "A message sent to the past.")
	require.NoError(t, err)
	require.NoError(t, store.Close())

	out, err := runCmd(t, "backlog")
	require.NoError(t, err)
	assert.Contains(t, out, "What is a D-Mail?")
	assert.Contains(t, out, "A message sent to the past.")
	assert.Less(t, strings.Index(out, "D-Mail"), strings.Index(out, "sent to the past"), "oldest first")

	out, err = runCmd(t, "backlog", "search", "past")
	require.NoError(t, err)
	assert.Contains(t, out, "A message sent to the past.")
	assert.NotContains(t, out, "D-Mail")

	out, err = runCmd(t, "backlog", "sessions")
	require.NoError(t, err)
	assert.Contains(t, out, "What is a D-Mail?")

	out, err = runCmd(t, "backlog", "show", session[:8])
	require.NoError(t, err)
	assert.Contains(t, out, "A message sent to the past.")

	_, err = runCmd(t, "backlog", "show", "zzzz")
	assert.Error(t, err)

	_, err = runCmd(t, "backlog", "clear")
	require.NoError(t, err)
	out, err = runCmd(t, "backlog")
	require.NoError(t, err)
	assert.Contains(t, out, "Nothing has been said yet.")
}

func TestModelsCommand(t *testing.T) {
	setupHome(t)

	out, err := runCmd(t, "models")
	require.NoError(t, err)
	assert.Contains(t, out, "gpt-4o")
	assert.Contains(t, out, "groq/compound")
	assert.NotContains(t, out, "is not in the list")

	out, err = runCmd(t, "models", "-p", "Claude")
	require.NoError(t, err)
	assert.Contains(t, out, "claude-sonnet-4-20250514")
	assert.NotContains(t, out, "gpt-4o")

	_, err = runCmd(t, "models", "-p", "Nowhere")
	assert.Error(t, err)
}

func TestDisplayValue(t *testing.T) {
	assert.Equal(t, secretMask, displayValue("provider.api_key", "abc"))
	assert.Equal(t, "(not set)", displayValue("vertex.refresh_token", ""))
	assert.Equal(t, "gpt-4o", displayValue("provider.model", "gpt-4o"))
}

// =============================================================================
// LINE MODE
// =============================================================================

func TestTextSurface_Transcript(t *testing.T) {
	var buf bytes.Buffer
	s := newTextSurface(&buf, false, false)

	s.Render(present.View{State: present.WaitingResponse, WaitingIndicator: true, Indicator: "."})
	assert.Empty(t, buf.String(), "no dots without a terminal")

	s.Render(present.View{State: present.Revealing, Speaker: "Kurisu", Text: "Hel", Emotion: tagparse.Smile})
	s.Render(present.View{State: present.Revealing, Speaker: "Kurisu", Text: "Hello.", Emotion: tagparse.Smile})
	s.Render(present.View{
		State: present.AwaitingAdvance, Speaker: "Kurisu", Text: "Hello.", Emotion: tagparse.Smile,
		WaitingIndicator: true, Indicator: present.AdvanceMark,
	})
	require.Equal(t, needAdvance, <-s.needs)

	// Repeated frames of the same pause do not ask twice.
	s.Render(present.View{
		State: present.AwaitingAdvance, Speaker: "Kurisu", Text: "Hello.", Emotion: tagparse.Smile,
		WaitingIndicator: true, Indicator: present.AdvanceMark,
	})

	s.Render(present.View{State: present.InputReady})
	assert.Equal(t, needInput, <-s.needs)

	out := buf.String()
	assert.Equal(t, 1, strings.Count(out, "Hello."), "text is printed once")
	assert.Contains(t, out, "Kurisu:")
	assert.Contains(t, out, tagparse.Smile.Face())
	assert.True(t, strings.HasSuffix(out, "Hello.\n"))
}

func TestTextSurface_NewPageStartsNewLine(t *testing.T) {
	var buf bytes.Buffer
	s := newTextSurface(&buf, false, false)

	s.Render(present.View{State: present.StreamRevealing, Speaker: "Kurisu", Text: "First."})
	s.Render(present.View{State: present.StreamRevealing, Speaker: "Kurisu", Text: "Second."})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "First.")
	assert.Contains(t, lines[1], "Second.")
}

type batchTransport struct {
	content string
}

func (b batchTransport) Do(ctx context.Context, req *provider.Request) (*provider.Response, error) {
	body := `{"choices":[{"message":{"content":"` + b.content + `"}}]}`
	return &provider.Response{
		Status: http.StatusOK,
		Header: http.Header{},
		Body:   io.NopCloser(strings.NewReader(body)),
	}, nil
}

func TestRunLine_OneShot(t *testing.T) {
	cfg := config.Default()
	cfg.Provider.Index = int(provider.KindOpenAI)
	cfg.Provider.OpenAIKey = "sk-test"
	cfg.Provider.Stream = config.StreamNever

	app := &App{
		Store:     config.NewStore(cfg, ""),
		Memory:    memory.New(""),
		DataDir:   t.TempDir(),
		Transport: batchTransport{content: "[SMUG] Of course. It is basic physics."},
	}

	var out bytes.Buffer
	err := RunLine(app, LineOptions{Question: "Can you explain?", Instant: true, Out: &out})
	require.NoError(t, err)

	assert.Contains(t, out.String(), "Of course. It is basic physics.")
	assert.Contains(t, out.String(), tagparse.Smug.Face())
	assert.Equal(t, 1, app.Memory.Snapshot().TotalInteractions)
}
