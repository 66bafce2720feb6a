// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles provides the visual styling system for the Amadeus TUI.
// All colors use Lip Gloss AdaptiveColor for automatic light/dark detection.
package styles

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/amadeus-tui/internal/tagparse"
)

// =============================================================================
// PRIMARY ACCENT COLORS
// =============================================================================

// Crimson - Brand color, the Amadeus frame and speaker name
var Crimson = lipgloss.AdaptiveColor{Light: "#B91C1C", Dark: "#F87171"}

// CrimsonDeep - Darker crimson for frame backgrounds
var CrimsonDeep = lipgloss.AdaptiveColor{Light: "#7F1D1D", Dark: "#450A0A"}

// Steel - Lab-equipment blue for the user and input prompt
var Steel = lipgloss.AdaptiveColor{Light: "#1D4ED8", Dark: "#93C5FD"}

// Emerald - Success states
var Emerald = lipgloss.AdaptiveColor{Light: "#059669", Dark: "#34D399"}

// Amber - Warnings, auto mode badge
var Amber = lipgloss.AdaptiveColor{Light: "#D97706", Dark: "#FBBF24"}

// Rose - Errors
var Rose = lipgloss.AdaptiveColor{Light: "#E11D48", Dark: "#FB7185"}

// =============================================================================
// SURFACE COLORS
// =============================================================================

// Surface - Dialogue box background
var Surface = lipgloss.AdaptiveColor{Light: "#FFFFFF", Dark: "#111118"}

// SurfaceDim - Status bar and overlay backgrounds
var SurfaceDim = lipgloss.AdaptiveColor{Light: "#F5F5F5", Dark: "#0B0B10"}

// Overlay - Borders, separators
var Overlay = lipgloss.AdaptiveColor{Light: "#E5E5E5", Dark: "#313244"}

// =============================================================================
// TEXT COLORS
// =============================================================================

// TextPrimary - Dialogue text
var TextPrimary = lipgloss.AdaptiveColor{Light: "#1F2937", Dark: "#E5E7EB"}

// TextSecondary - Labels
var TextSecondary = lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#A6ADC8"}

// TextMuted - Hints, timestamps
var TextMuted = lipgloss.AdaptiveColor{Light: "#9CA3AF", Dark: "#6C7086"}

// TextInverse - Text on colored backgrounds
var TextInverse = lipgloss.AdaptiveColor{Light: "#FFFFFF", Dark: "#111118"}

// =============================================================================
// EMOTION COLORS
// =============================================================================

// emotionColors tints the portrait frame by expression.
var emotionColors = map[tagparse.Emotion]lipgloss.AdaptiveColor{
	tagparse.Normal:    {Light: "#6B7280", Dark: "#A6ADC8"},
	tagparse.Smile:     {Light: "#059669", Dark: "#6EE7B7"},
	tagparse.Angry:     {Light: "#DC2626", Dark: "#F87171"},
	tagparse.Sad:       {Light: "#2563EB", Dark: "#93C5FD"},
	tagparse.Surprised: {Light: "#D97706", Dark: "#FCD34D"},
	tagparse.Blush:     {Light: "#DB2777", Dark: "#F9A8D4"},
	tagparse.Wink:      {Light: "#7C3AED", Dark: "#C4B5FD"},
	tagparse.Disgust:   {Light: "#4D7C0F", Dark: "#BEF264"},
	tagparse.Smug:      {Light: "#9333EA", Dark: "#D8B4FE"},
	tagparse.Thinking:  {Light: "#0891B2", Dark: "#67E8F9"},
	tagparse.Panic:     {Light: "#EA580C", Dark: "#FDBA74"},
}

// EmotionColor returns the frame color for e. Unknown emotions use the
// neutral color.
func EmotionColor(e tagparse.Emotion) lipgloss.AdaptiveColor {
	if c, ok := emotionColors[e]; ok {
		return c
	}
	return emotionColors[tagparse.Neutral]
}

// =============================================================================
// ACCESSIBILITY: Shapes alongside colors
// =============================================================================

// StatusIndicatorSet contains text indicators for status states.
type StatusIndicatorSet struct {
	Success string
	Error   string
	Warning string
	Info    string
}

// StatusIndicators provides ASCII shape indicators alongside colors.
var StatusIndicators = StatusIndicatorSet{
	Success: "[OK]",
	Error:   "[X]",
	Warning: "[!]",
	Info:    "[i]",
}

// RenderSuccess renders a success message with its indicator.
func RenderSuccess(message string) string {
	return lipgloss.NewStyle().Foreground(Emerald).Bold(true).
		Render(StatusIndicators.Success + " " + message)
}

// RenderError renders an error message with its indicator.
func RenderError(message string) string {
	return lipgloss.NewStyle().Foreground(Rose).Bold(true).
		Render(StatusIndicators.Error + " " + message)
}

// RenderWarning renders a warning message with its indicator.
func RenderWarning(message string) string {
	return lipgloss.NewStyle().Foreground(Amber).Bold(true).
		Render(StatusIndicators.Warning + " " + message)
}

// RenderInfo renders an info message with its indicator.
func RenderInfo(message string) string {
	return lipgloss.NewStyle().Foreground(Steel).Bold(true).
		Render(StatusIndicators.Info + " " + message)
}
