// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/jeranaias/amadeus-tui/internal/provider"
	"github.com/jeranaias/amadeus-tui/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete amadeus configuration file.
type Config struct {
	Version string `toml:"version" json:"version" yaml:"version"`

	// Provider selection, credentials and models
	Provider ProviderConfig `toml:"provider" json:"provider" yaml:"provider"`

	// Vertex AI project, region and authentication
	Vertex VertexConfig `toml:"vertex" json:"vertex" yaml:"vertex"`

	// Text reveal and auto mode
	Display DisplayConfig `toml:"display" json:"display" yaml:"display"`

	// Conversation tuning and storage
	Chat ChatConfig `toml:"chat" json:"chat" yaml:"chat"`
}

// ProviderConfig selects the provider and holds its credentials.
//
// APIKey and Model are the legacy single-provider settings. Each provider
// falls back to them when its own field is empty.
type ProviderConfig struct {
	// Index is the active provider: 0 OpenAI, 1 Gemini, 2 Claude, 3 Groq, 4 Vertex.
	Index     int    `toml:"index" json:"index" yaml:"index"`
	WebSearch bool   `toml:"web_search" json:"web_search" yaml:"web_search"`
	Stream    string `toml:"stream" json:"stream" yaml:"stream"`

	APIKey string `toml:"api_key" json:"api_key" yaml:"api_key"`
	Model  string `toml:"model" json:"model" yaml:"model"`

	OpenAIKey   string `toml:"openai_key" json:"openai_key" yaml:"openai_key"`
	OpenAIModel string `toml:"openai_model" json:"openai_model" yaml:"openai_model"`
	GeminiKey   string `toml:"gemini_key" json:"gemini_key" yaml:"gemini_key"`
	GeminiModel string `toml:"gemini_model" json:"gemini_model" yaml:"gemini_model"`
	ClaudeKey   string `toml:"claude_key" json:"claude_key" yaml:"claude_key"`
	ClaudeModel string `toml:"claude_model" json:"claude_model" yaml:"claude_model"`
	GroqKey     string `toml:"groq_key" json:"groq_key" yaml:"groq_key"`
	GroqModel   string `toml:"groq_model" json:"groq_model" yaml:"groq_model"`
}

// VertexConfig configures the multi-region Vertex AI provider.
type VertexConfig struct {
	Project  string `toml:"project" json:"project" yaml:"project"`
	Location string `toml:"location" json:"location" yaml:"location"`
	Model    string `toml:"model" json:"model" yaml:"model"`

	// AuthMode is "gcloud" (CLI access token) or "oauth" (refresh token).
	AuthMode      string `toml:"auth_mode" json:"auth_mode" yaml:"auth_mode"`
	GcloudCommand string `toml:"gcloud_command" json:"gcloud_command" yaml:"gcloud_command"`
	ClientID      string `toml:"client_id" json:"client_id" yaml:"client_id"`
	ClientSecret  string `toml:"client_secret" json:"client_secret" yaml:"client_secret"`
	RefreshToken  string `toml:"refresh_token" json:"refresh_token" yaml:"refresh_token"`
}

// DisplayConfig controls pacing.
type DisplayConfig struct {
	// TextSpeed multiplies reveal speed, clamped to [0.1, 5].
	TextSpeed float64 `toml:"text_speed" json:"text_speed" yaml:"text_speed"`
	// AutoInterval is the auto-advance wait in seconds, clamped to [0.5, 30].
	AutoInterval float64 `toml:"auto_interval" json:"auto_interval" yaml:"auto_interval"`
	AutoMode     bool    `toml:"auto_mode" json:"auto_mode" yaml:"auto_mode"`
}

// ChatConfig tunes the conversation pipeline.
type ChatConfig struct {
	// Lookahead is how many runes an unclosed "[" may hold back display.
	Lookahead int `toml:"lookahead" json:"lookahead" yaml:"lookahead"`
	// HistoryWindow is the number of non-system messages kept verbatim.
	HistoryWindow int `toml:"history_window" json:"history_window" yaml:"history_window"`
	// DataDir overrides ~/.amadeus for memory and backlog storage.
	DataDir string `toml:"data_dir" json:"data_dir" yaml:"data_dir"`
	// PersonaFile replaces the built-in persona prompt.
	PersonaFile string `toml:"persona_file" json:"persona_file" yaml:"persona_file"`
}

// Stream modes.
const (
	StreamAuto   = "auto"
	StreamAlways = "always"
	StreamNever  = "never"
)

// Vertex auth modes.
const (
	AuthGcloud = "gcloud"
	AuthOAuth  = "oauth"
)

// Clamping bounds.
const (
	MinTextSpeed    = 0.1
	MaxTextSpeed    = 5.0
	MinAutoInterval = 0.5
	MaxAutoInterval = 30.0
)

// =============================================================================
// DEFAULTS
// =============================================================================

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Version: "1.0.0",
		Provider: ProviderConfig{
			Index:  int(provider.KindOpenAI),
			Stream: StreamAuto,
			Model:  "gpt-4o",
		},
		Vertex: VertexConfig{
			Location:      "us-central1",
			AuthMode:      AuthGcloud,
			GcloudCommand: "gcloud auth print-access-token",
		},
		Display: DisplayConfig{
			TextSpeed:    1.0,
			AutoInterval: 3.0,
		},
		Chat: ChatConfig{
			Lookahead:     24,
			HistoryWindow: 30,
		},
	}
}

// Clamp brings numeric settings into range and resets unknown enum values.
// No other validation is applied.
func (c *Config) Clamp() {
	d := Default()

	if !provider.Kind(c.Provider.Index).Valid() {
		c.Provider.Index = d.Provider.Index
	}
	switch c.Provider.Stream {
	case StreamAuto, StreamAlways, StreamNever:
	default:
		c.Provider.Stream = StreamAuto
	}
	if strings.TrimSpace(c.Provider.Model) == "" {
		c.Provider.Model = d.Provider.Model
	}

	if strings.TrimSpace(c.Vertex.Location) == "" {
		c.Vertex.Location = d.Vertex.Location
	}
	if c.Vertex.AuthMode != AuthGcloud && c.Vertex.AuthMode != AuthOAuth {
		c.Vertex.AuthMode = d.Vertex.AuthMode
	}
	if strings.TrimSpace(c.Vertex.GcloudCommand) == "" {
		c.Vertex.GcloudCommand = d.Vertex.GcloudCommand
	}

	c.Display.TextSpeed = clampFloat(c.Display.TextSpeed, MinTextSpeed, MaxTextSpeed)
	c.Display.AutoInterval = clampFloat(c.Display.AutoInterval, MinAutoInterval, MaxAutoInterval)

	if c.Chat.Lookahead < 1 {
		c.Chat.Lookahead = d.Chat.Lookahead
	}
	if c.Chat.HistoryWindow < 1 {
		c.Chat.HistoryWindow = d.Chat.HistoryWindow
	}
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the amadeus configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".amadeus"), nil
}

func configPath(name string) (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, name), nil
}

// ConfigPathTOML returns the path to the TOML config file.
func ConfigPathTOML() (string, error) { return configPath("config.toml") }

// ConfigPathJSON returns the path to the JSON config file.
func ConfigPathJSON() (string, error) { return configPath("config.json") }

// ConfigPathYAML returns the path to the YAML config file.
func ConfigPathYAML() (string, error) { return configPath("config.yaml") }

// DataDir returns where memory and backlog files live.
func (c *Config) DataDir() (string, error) {
	if c.Chat.DataDir != "" {
		return c.Chat.DataDir, nil
	}
	return ConfigDir()
}

// ensureSecurePermissions checks and fixes permissions on config files.
// SECURITY: Config files hold API keys and must be 0600.
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if mode := info.Mode().Perm(); mode != 0600 {
		if err := os.Chmod(path, 0600); err != nil {
			return fmt.Errorf("failed to fix insecure permissions (was %o): %w", mode, err)
		}
	}
	return nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads configuration from the first config file found, trying TOML,
// then JSON, then YAML, and falls back to defaults. Environment overrides
// are applied last.
//
// The returned path is the file that was read, or the TOML path when none
// exists so that a later save creates it.
func Load() (*Config, string, error) {
	var loadErr error
	for _, pathFn := range []func() (string, error){ConfigPathTOML, ConfigPathJSON, ConfigPathYAML} {
		path, err := pathFn()
		if err != nil {
			loadErr = err
			continue
		}
		if _, statErr := os.Stat(path); statErr != nil {
			continue
		}
		cfg, err := LoadFromPath(path)
		if err != nil {
			loadErr = err
			continue
		}
		return cfg, path, nil
	}

	cfg := Default()
	cfg.ApplyEnvOverrides()
	cfg.Clamp()

	path, _ := ConfigPathTOML()
	return cfg, path, loadErr
}

// LoadFromPath loads one file. The format follows the extension; anything
// other than .json, .yaml or .yml is read as TOML.
func LoadFromPath(path string) (*Config, error) {
	// SECURITY: Check and fix file permissions if needed
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	cfg := Default()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = json.Unmarshal(data, cfg)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	default:
		_, err = toml.Decode(string(data), cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode config %s: %w", path, err)
	}

	cfg.ApplyEnvOverrides()
	cfg.Clamp()
	return cfg, nil
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save writes cfg to path in the format its extension names.
func Save(cfg *Config, path string) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return SaveJSON(cfg, path)
	case ".yaml", ".yml":
		return SaveYAML(cfg, path)
	default:
		return SaveTOML(cfg, path)
	}
}

// SaveTOML saves the configuration to a TOML file.
// SECURITY: Written with 0600 permissions (owner read/write only).
func SaveTOML(cfg *Config, path string) error {
	var b strings.Builder
	b.WriteString("# amadeus configuration file\n")
	b.WriteString("# Generated by amadeus - edit with care\n\n")
	if err := toml.NewEncoder(&b).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return writeConfig(path, []byte(b.String()))
}

// SaveJSON saves the configuration to a JSON file.
func SaveJSON(cfg *Config, path string) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return writeConfig(path, data)
}

// SaveYAML saves the configuration to a YAML file.
func SaveYAML(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return writeConfig(path, data)
}

// RELIABILITY: Atomic write so a crash never leaves a half-written config.
func writeConfig(path string, data []byte) error {
	if err := util.AtomicWriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides to the config.
//
// Supported environment variables:
//   - AMADEUS_PROVIDER: provider name or index
//   - AMADEUS_API_KEY, AMADEUS_MODEL: legacy key and model
//   - AMADEUS_OPENAI_KEY, AMADEUS_GEMINI_KEY, AMADEUS_CLAUDE_KEY, AMADEUS_GROQ_KEY
//   - AMADEUS_VERTEX_PROJECT, AMADEUS_VERTEX_LOCATION
//   - AMADEUS_STREAM: auto, always or never
//   - AMADEUS_WEB_SEARCH: "1" or "true" to enable
//   - AMADEUS_DATA_DIR: overrides chat.data_dir
func (c *Config) ApplyEnvOverrides() {
	if p := os.Getenv("AMADEUS_PROVIDER"); p != "" {
		if k, err := provider.ParseKind(p); err == nil {
			c.Provider.Index = int(k)
		} else {
			fmt.Fprintf(os.Stderr, "Warning: ignoring AMADEUS_PROVIDER: %v\n", err)
		}
	}

	setString := func(env string, dst *string) {
		if v := os.Getenv(env); v != "" {
			*dst = v
		}
	}
	setString("AMADEUS_API_KEY", &c.Provider.APIKey)
	setString("AMADEUS_MODEL", &c.Provider.Model)
	setString("AMADEUS_OPENAI_KEY", &c.Provider.OpenAIKey)
	setString("AMADEUS_GEMINI_KEY", &c.Provider.GeminiKey)
	setString("AMADEUS_CLAUDE_KEY", &c.Provider.ClaudeKey)
	setString("AMADEUS_GROQ_KEY", &c.Provider.GroqKey)
	setString("AMADEUS_VERTEX_PROJECT", &c.Vertex.Project)
	setString("AMADEUS_VERTEX_LOCATION", &c.Vertex.Location)
	setString("AMADEUS_STREAM", &c.Provider.Stream)
	setString("AMADEUS_DATA_DIR", &c.Chat.DataDir)

	if ws := os.Getenv("AMADEUS_WEB_SEARCH"); ws != "" {
		c.Provider.WebSearch = parseBool(ws)
	}
}

func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "1" || s == "true" || s == "yes" || s == "on"
}

// =============================================================================
// RESOLVED SETTINGS
// =============================================================================

// Settings is the per-turn view of the configuration: the active provider
// with its credential and model already resolved.
type Settings struct {
	Provider   provider.Kind
	APIKey     string
	Model      string
	WebSearch  bool
	StreamMode string

	VertexProject  string
	VertexLocation string

	TextSpeed    float64
	AutoMode     bool
	AutoInterval time.Duration

	Lookahead     int
	HistoryWindow int
}

// Credential returns the API key for kind, falling back to the legacy key.
func (c *Config) Credential(kind provider.Kind) string {
	var key string
	switch kind {
	case provider.KindOpenAI:
		key = c.Provider.OpenAIKey
	case provider.KindGemini:
		key = c.Provider.GeminiKey
	case provider.KindClaude:
		key = c.Provider.ClaudeKey
	case provider.KindGroq:
		key = c.Provider.GroqKey
	case provider.KindVertex:
		// Vertex authenticates with access tokens, never API keys.
		return ""
	}
	if strings.TrimSpace(key) == "" {
		key = c.Provider.APIKey
	}
	return strings.TrimSpace(key)
}

// ModelFor returns the model for kind, falling back to the legacy model.
func (c *Config) ModelFor(kind provider.Kind) string {
	var m string
	switch kind {
	case provider.KindOpenAI:
		m = c.Provider.OpenAIModel
	case provider.KindGemini:
		m = c.Provider.GeminiModel
	case provider.KindClaude:
		m = c.Provider.ClaudeModel
	case provider.KindGroq:
		m = c.Provider.GroqModel
	case provider.KindVertex:
		m = c.Vertex.Model
	}
	if strings.TrimSpace(m) == "" {
		m = c.Provider.Model
	}
	return strings.TrimSpace(m)
}

// Settings resolves the configuration for the active provider.
func (c *Config) Settings() Settings {
	kind := provider.Kind(c.Provider.Index)
	return Settings{
		Provider:       kind,
		APIKey:         c.Credential(kind),
		Model:          c.ModelFor(kind),
		WebSearch:      c.Provider.WebSearch,
		StreamMode:     c.Provider.Stream,
		VertexProject:  strings.TrimSpace(c.Vertex.Project),
		VertexLocation: strings.TrimSpace(c.Vertex.Location),
		TextSpeed:      c.Display.TextSpeed,
		AutoMode:       c.Display.AutoMode,
		AutoInterval:   time.Duration(c.Display.AutoInterval * float64(time.Second)),
		Lookahead:      c.Chat.Lookahead,
		HistoryWindow:  c.Chat.HistoryWindow,
	}
}

// =============================================================================
// GET/SET HELPERS (DOT NOTATION)
// =============================================================================

// ValidationError reports a rejected key or value.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// lookup walks a dot-notation key to its field.
func (c *Config) lookup(key string) (reflect.Value, error) {
	if strings.TrimSpace(key) == "" {
		return reflect.Value{}, errors.New("empty key")
	}
	parts := strings.Split(key, ".")

	v := reflect.ValueOf(c).Elem()
	for i, part := range parts {
		fieldName := normalizeFieldName(part)
		field := v.FieldByNameFunc(func(name string) bool {
			return strings.EqualFold(name, fieldName)
		})
		if !field.IsValid() {
			return reflect.Value{}, ValidationError{Field: strings.Join(parts[:i+1], "."), Message: "unknown field"}
		}
		if i == len(parts)-1 {
			return field, nil
		}
		if field.Kind() != reflect.Struct {
			return reflect.Value{}, ValidationError{Field: strings.Join(parts[:i+1], "."), Message: "not a section"}
		}
		v = field
	}
	return reflect.Value{}, fmt.Errorf("invalid key: %s", key)
}

// Get retrieves a configuration value using dot notation (e.g. "display.text_speed").
func (c *Config) Get(key string) (interface{}, error) {
	field, err := c.lookup(key)
	if err != nil {
		return nil, err
	}
	return field.Interface(), nil
}

// Set sets a configuration value using dot notation and clamps the result.
func (c *Config) Set(key string, value interface{}) error {
	field, err := c.lookup(key)
	if err != nil {
		return err
	}
	if field.Kind() == reflect.Struct {
		return ValidationError{Field: key, Message: "is a section, not a value"}
	}
	if err := setFieldValue(field, value); err != nil {
		return ValidationError{Field: key, Message: err.Error()}
	}
	c.Clamp()
	return nil
}

// normalizeFieldName converts a snake_case or kebab-case name to its Go field equivalent.
func normalizeFieldName(name string) string {
	parts := strings.FieldsFunc(name, func(r rune) bool {
		return r == '_' || r == '-'
	})

	var result strings.Builder
	for _, part := range parts {
		if len(part) > 0 {
			result.WriteString(strings.ToUpper(part[:1]))
			result.WriteString(strings.ToLower(part[1:]))
		}
	}
	return result.String()
}

// setFieldValue sets a reflect.Value from an interface{} value with type conversion.
func setFieldValue(field reflect.Value, value interface{}) error {
	if strVal, ok := value.(string); ok {
		switch field.Kind() {
		case reflect.String:
			field.SetString(strVal)
			return nil
		case reflect.Int, reflect.Int64:
			intVal, err := strconv.ParseInt(strings.TrimSpace(strVal), 10, 64)
			if err != nil {
				return fmt.Errorf("invalid integer value: %v", err)
			}
			field.SetInt(intVal)
			return nil
		case reflect.Float64:
			floatVal, err := strconv.ParseFloat(strings.TrimSpace(strVal), 64)
			if err != nil {
				return fmt.Errorf("invalid float value: %v", err)
			}
			field.SetFloat(floatVal)
			return nil
		case reflect.Bool:
			field.SetBool(parseBool(strVal))
			return nil
		}
	}

	val := reflect.ValueOf(value)
	if !val.IsValid() {
		return errors.New("nil value")
	}
	if val.Type().AssignableTo(field.Type()) {
		field.Set(val)
		return nil
	}
	if val.Type().ConvertibleTo(field.Type()) {
		field.Set(val.Convert(field.Type()))
		return nil
	}
	return fmt.Errorf("cannot assign %T to %s", value, field.Type())
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// GetAllKeys returns all configuration keys in dot notation.
func GetAllKeys() []string {
	var keys []string
	var walk func(t reflect.Type, prefix string)
	walk = func(t reflect.Type, prefix string) {
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			name := strings.Split(f.Tag.Get("toml"), ",")[0]
			if name == "" {
				name = strings.ToLower(f.Name)
			}
			if f.Type.Kind() == reflect.Struct {
				walk(f.Type, prefix+name+".")
				continue
			}
			keys = append(keys, prefix+name)
		}
	}
	walk(reflect.TypeOf(Config{}), "")
	return keys
}

// IsSecret reports whether key holds a credential.
func IsSecret(key string) bool {
	k := strings.ToLower(key)
	return strings.HasSuffix(k, "_key") || strings.HasSuffix(k, "secret") || strings.HasSuffix(k, "token")
}

// Clone returns a copy of the configuration. Config holds no reference
// types, so a value copy is deep.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// String returns a string representation of the config for debugging.
// SECURITY: Redacts credentials so the output is safe to log.
func (c *Config) String() string {
	safe := c.Clone()
	for _, s := range []*string{
		&safe.Provider.APIKey, &safe.Provider.OpenAIKey, &safe.Provider.GeminiKey,
		&safe.Provider.ClaudeKey, &safe.Provider.GroqKey,
		&safe.Vertex.ClientSecret, &safe.Vertex.RefreshToken,
	} {
		if *s != "" {
			*s = "[REDACTED]"
		}
	}
	data, _ := json.MarshalIndent(safe, "", "  ")
	return string(data)
}
