// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/amadeus-tui/internal/provider"
)

// clearEnv unsets every override so the host environment cannot leak in.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"AMADEUS_PROVIDER", "AMADEUS_API_KEY", "AMADEUS_MODEL",
		"AMADEUS_OPENAI_KEY", "AMADEUS_GEMINI_KEY", "AMADEUS_CLAUDE_KEY", "AMADEUS_GROQ_KEY",
		"AMADEUS_VERTEX_PROJECT", "AMADEUS_VERTEX_LOCATION",
		"AMADEUS_STREAM", "AMADEUS_WEB_SEARCH", "AMADEUS_DATA_DIR",
	} {
		t.Setenv(k, "")
	}
}

// TestConfig_Default tests that Default() returns the documented defaults.
func TestConfig_Default(t *testing.T) {
	cfg := Default()
	s := cfg.Settings()

	if s.Provider != provider.KindOpenAI {
		t.Errorf("Expected provider OpenAI, got %v", s.Provider)
	}
	if s.Model != "gpt-4o" {
		t.Errorf("Expected model gpt-4o, got %q", s.Model)
	}
	if s.TextSpeed != 1.0 {
		t.Errorf("Expected text speed 1.0, got %v", s.TextSpeed)
	}
	if s.AutoInterval != 3*time.Second {
		t.Errorf("Expected auto interval 3s, got %v", s.AutoInterval)
	}
	if s.Lookahead != 24 || s.HistoryWindow != 30 {
		t.Errorf("Unexpected chat defaults: %+v", s)
	}
	if s.StreamMode != StreamAuto || s.VertexLocation != "us-central1" {
		t.Errorf("Unexpected provider defaults: %+v", s)
	}
}

// TestConfig_Clamp tests range clamping.
func TestConfig_Clamp(t *testing.T) {
	tests := []struct {
		name  string
		apply func(c *Config)
		check func(t *testing.T, c *Config)
	}{
		{
			name:  "provider out of range",
			apply: func(c *Config) { c.Provider.Index = 9 },
			check: func(t *testing.T, c *Config) { assert.Equal(t, 0, c.Provider.Index) },
		},
		{
			name:  "negative provider",
			apply: func(c *Config) { c.Provider.Index = -1 },
			check: func(t *testing.T, c *Config) { assert.Equal(t, 0, c.Provider.Index) },
		},
		{
			name:  "text speed too low",
			apply: func(c *Config) { c.Display.TextSpeed = 0 },
			check: func(t *testing.T, c *Config) { assert.Equal(t, MinTextSpeed, c.Display.TextSpeed) },
		},
		{
			name:  "text speed too high",
			apply: func(c *Config) { c.Display.TextSpeed = 12 },
			check: func(t *testing.T, c *Config) { assert.Equal(t, MaxTextSpeed, c.Display.TextSpeed) },
		},
		{
			name:  "auto interval bounds",
			apply: func(c *Config) { c.Display.AutoInterval = 0.1 },
			check: func(t *testing.T, c *Config) { assert.Equal(t, MinAutoInterval, c.Display.AutoInterval) },
		},
		{
			name:  "auto interval high",
			apply: func(c *Config) { c.Display.AutoInterval = 90 },
			check: func(t *testing.T, c *Config) { assert.Equal(t, MaxAutoInterval, c.Display.AutoInterval) },
		},
		{
			name:  "unknown stream mode",
			apply: func(c *Config) { c.Provider.Stream = "sometimes" },
			check: func(t *testing.T, c *Config) { assert.Equal(t, StreamAuto, c.Provider.Stream) },
		},
		{
			name:  "unknown auth mode",
			apply: func(c *Config) { c.Vertex.AuthMode = "saml" },
			check: func(t *testing.T, c *Config) { assert.Equal(t, AuthGcloud, c.Vertex.AuthMode) },
		},
		{
			name:  "in range untouched",
			apply: func(c *Config) { c.Display.TextSpeed = 2.5 },
			check: func(t *testing.T, c *Config) { assert.Equal(t, 2.5, c.Display.TextSpeed) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.apply(c)
			c.Clamp()
			tt.check(t, c)
		})
	}
}

// TestConfig_LegacyFallback tests per-provider keys and models falling back
// to the single legacy setting.
func TestConfig_LegacyFallback(t *testing.T) {
	c := Default()
	c.Provider.APIKey = "legacy-key"
	c.Provider.Model = "legacy-model"
	c.Provider.ClaudeKey = "claude-key"
	c.Provider.GroqModel = "qwen/qwen3-32b"

	assert.Equal(t, "claude-key", c.Credential(provider.KindClaude))
	assert.Equal(t, "legacy-key", c.Credential(provider.KindGemini))
	assert.Empty(t, c.Credential(provider.KindVertex))

	assert.Equal(t, "qwen/qwen3-32b", c.ModelFor(provider.KindGroq))
	assert.Equal(t, "legacy-model", c.ModelFor(provider.KindOpenAI))

	c.Provider.Index = int(provider.KindClaude)
	s := c.Settings()
	assert.Equal(t, "claude-key", s.APIKey)
	assert.Equal(t, "legacy-model", s.Model)
}

// TestConfig_LoadFormats tests loading each supported format.
func TestConfig_LoadFormats(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()

	files := map[string]string{
		"config.toml": "[provider]\nindex = 2\nclaude_key = \"k\"\n\n[display]\ntext_speed = 2.0\n",
		"config.json": `{"provider":{"index":2,"claude_key":"k"},"display":{"text_speed":2.0}}`,
		"config.yaml": "provider:\n  index: 2\n  claude_key: k\ndisplay:\n  text_speed: 2.0\n",
	}
	for name, body := range files {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			require.NoError(t, os.WriteFile(path, []byte(body), 0644))

			cfg, err := LoadFromPath(path)
			require.NoError(t, err)
			s := cfg.Settings()
			assert.Equal(t, provider.KindClaude, s.Provider)
			assert.Equal(t, "k", s.APIKey)
			assert.Equal(t, 2.0, s.TextSpeed)
			// Absent keys keep defaults.
			assert.Equal(t, 30, s.HistoryWindow)

			info, err := os.Stat(path)
			require.NoError(t, err)
			assert.Equal(t, os.FileMode(0600), info.Mode().Perm(), "permissions tightened on load")
		})
	}
}

// TestConfig_LoadInvalid tests that a malformed file is reported.
func TestConfig_LoadInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[provider\nindex ="), 0600))
	_, err := LoadFromPath(path)
	assert.Error(t, err)
}

// TestConfig_EnvOverrides tests AMADEUS_* overrides.
func TestConfig_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("AMADEUS_PROVIDER", "groq")
	t.Setenv("AMADEUS_GROQ_KEY", "gk")
	t.Setenv("AMADEUS_WEB_SEARCH", "true")
	t.Setenv("AMADEUS_STREAM", "never")

	c := Default()
	c.ApplyEnvOverrides()
	s := c.Settings()
	assert.Equal(t, provider.KindGroq, s.Provider)
	assert.Equal(t, "gk", s.APIKey)
	assert.True(t, s.WebSearch)
	assert.Equal(t, StreamNever, s.StreamMode)

	t.Setenv("AMADEUS_PROVIDER", "4")
	c.ApplyEnvOverrides()
	assert.Equal(t, int(provider.KindVertex), c.Provider.Index)
}

// TestConfig_SaveRoundTrip tests that a saved TOML file loads back.
func TestConfig_SaveRoundTrip(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "nested", "config.toml")

	c := Default()
	c.Provider.Index = int(provider.KindVertex)
	c.Vertex.Project = "my-project"
	c.Display.AutoMode = true
	require.NoError(t, SaveTOML(c, path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded, err := LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, c.Settings(), loaded.Settings())
}

// TestConfig_GetSet tests Get and Set methods with dot notation.
func TestConfig_GetSet(t *testing.T) {
	cfg := Default()

	val, err := cfg.Get("display.text_speed")
	require.NoError(t, err)
	assert.Equal(t, 1.0, val)

	require.NoError(t, cfg.Set("provider.openai_key", "sk-test"))
	val, _ = cfg.Get("provider.openai_key")
	assert.Equal(t, "sk-test", val)

	require.NoError(t, cfg.Set("display.auto_mode", "yes"))
	assert.True(t, cfg.Display.AutoMode)

	// Set clamps.
	require.NoError(t, cfg.Set("display.text_speed", "99"))
	assert.Equal(t, MaxTextSpeed, cfg.Display.TextSpeed)

	_, err = cfg.Get("invalid.key")
	var verr ValidationError
	assert.ErrorAs(t, err, &verr)

	err = cfg.Set("chat.history_window", "many")
	assert.ErrorAs(t, err, &verr)

	assert.Error(t, cfg.Set("display", "x"), "sections cannot be set")
}

// TestConfig_GetAllKeys tests that every listed key resolves.
func TestConfig_GetAllKeys(t *testing.T) {
	cfg := Default()
	keys := GetAllKeys()
	assert.Contains(t, keys, "provider.index")
	assert.Contains(t, keys, "vertex.refresh_token")
	for _, k := range keys {
		_, err := cfg.Get(k)
		assert.NoError(t, err, k)
	}
}

// TestConfig_StringRedacts tests that secrets never reach String().
func TestConfig_StringRedacts(t *testing.T) {
	c := Default()
	c.Provider.OpenAIKey = "sk-very-secret"
	c.Vertex.RefreshToken = "1//refresh"
	out := c.String()
	assert.NotContains(t, out, "sk-very-secret")
	assert.NotContains(t, out, "1//refresh")
	assert.Equal(t, "sk-very-secret", c.Provider.OpenAIKey, "original untouched")

	assert.True(t, IsSecret("provider.groq_key"))
	assert.True(t, IsSecret("vertex.client_secret"))
	assert.False(t, IsSecret("provider.model"))
}

// =============================================================================
// STORE TESTS
// =============================================================================

// TestStore_ConcurrentAccess tests that readers and writers can run together.
// Run with: go test -race -v ./internal/config/
func TestStore_ConcurrentAccess(t *testing.T) {
	store := NewStore(Default(), "")

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(speed float64) {
			defer wg.Done()
			_ = store.Update(func(c *Config) { c.Display.TextSpeed = speed })
		}(float64(i%5) + 0.5)
		go func() {
			defer wg.Done()
			s := store.Settings()
			if s.TextSpeed < MinTextSpeed || s.TextSpeed > MaxTextSpeed {
				t.Errorf("text speed out of range: %v", s.TextSpeed)
			}
		}()
	}
	wg.Wait()
}

// TestStore_UpdatePersists tests that Update writes the file and Reload
// picks up external edits.
func TestStore_UpdatePersists(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	store := NewStore(Default(), path)

	require.NoError(t, store.Update(func(c *Config) { c.Provider.Index = int(provider.KindGemini) }))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), "index = 1"))

	edited := strings.Replace(string(data), "index = 1", "index = 3", 1)
	require.NoError(t, os.WriteFile(path, []byte(edited), 0600))
	require.NoError(t, store.Reload())
	assert.Equal(t, provider.KindGroq, store.Settings().Provider)
}

// TestStore_ConfigIsCopy tests that callers cannot mutate the store.
func TestStore_ConfigIsCopy(t *testing.T) {
	store := NewStore(Default(), "")
	c := store.Config()
	c.Display.TextSpeed = 4
	assert.Equal(t, 1.0, store.Settings().TextSpeed)
}

// TestWatcher_ReloadsOnWrite tests hot reload through fsnotify.
func TestWatcher_ReloadsOnWrite(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, SaveTOML(Default(), path))
	store := NewStore(Default(), path)

	changed := make(chan Settings, 4)
	w, err := NewWatcher(store, 20*time.Millisecond, func(s Settings) { changed <- s })
	require.NoError(t, err)
	require.NoError(t, w.Start())
	defer w.Close()

	c := Default()
	c.Display.AutoMode = true
	require.NoError(t, SaveTOML(c, path))

	select {
	case s := <-changed:
		assert.True(t, s.AutoMode)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not reload")
	}
}

// TestWatcher_RequiresPath tests that an in-memory store cannot be watched.
func TestWatcher_RequiresPath(t *testing.T) {
	_, err := NewWatcher(NewStore(nil, ""), 0, nil)
	assert.Error(t, err)
}
