// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/jeranaias/amadeus-tui/internal/tagparse"
)

// Theme holds all the styled components for the application.
// It detects the terminal's color capability and adjusts accordingly.
type Theme struct {
	// Terminal capabilities
	IsDark       bool
	HasTrueColor bool
	ColorProfile termenv.Profile

	// Layout dimensions
	Width  int
	Height int

	// ==========================================================================
	// HEADER
	// ==========================================================================

	Header      lipgloss.Style
	HeaderBrand lipgloss.Style
	HeaderInfo  lipgloss.Style

	// ==========================================================================
	// PORTRAIT AND DIALOGUE BOX
	// ==========================================================================

	Portrait     lipgloss.Style
	DialogueBox  lipgloss.Style
	SpeakerName  lipgloss.Style
	SpeakerUser  lipgloss.Style
	DialogueText lipgloss.Style
	Indicator    lipgloss.Style
	WaitingDots  lipgloss.Style

	// ==========================================================================
	// INPUT AREA
	// ==========================================================================

	InputContainer   lipgloss.Style
	InputPrompt      lipgloss.Style
	InputPlaceholder lipgloss.Style

	// ==========================================================================
	// STATUS BAR
	// ==========================================================================

	StatusBar    lipgloss.Style
	AutoBadge    lipgloss.Style
	ShortcutKey  lipgloss.Style
	ShortcutDesc lipgloss.Style
	Notice       lipgloss.Style

	// ==========================================================================
	// OVERLAYS
	// ==========================================================================

	OverlayBox     lipgloss.Style
	OverlayTitle   lipgloss.Style
	BacklogSpeaker lipgloss.Style
	BacklogTime    lipgloss.Style
	BacklogText    lipgloss.Style
}

// NewTheme creates a new theme with all styles configured.
func NewTheme() *Theme {
	colorProfile := termenv.ColorProfile()
	t := &Theme{
		IsDark:       termenv.HasDarkBackground(),
		HasTrueColor: colorProfile == termenv.TrueColor,
		ColorProfile: colorProfile,
	}
	t.initStyles()
	return t
}

// initStyles initializes all the lip gloss styles.
func (t *Theme) initStyles() {
	// Header
	t.Header = lipgloss.NewStyle().
		Background(SurfaceDim).
		Padding(0, 1)

	t.HeaderBrand = lipgloss.NewStyle().
		Bold(true).
		Foreground(Crimson)

	t.HeaderInfo = lipgloss.NewStyle().
		Foreground(TextSecondary)

	// Portrait and dialogue box
	t.Portrait = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(EmotionColor(tagparse.Neutral)).
		Padding(0, 2).
		Align(lipgloss.Center)

	t.DialogueBox = lipgloss.NewStyle().
		Background(Surface).
		BorderStyle(lipgloss.DoubleBorder()).
		BorderForeground(Crimson).
		Padding(0, 2)

	t.SpeakerName = lipgloss.NewStyle().
		Bold(true).
		Foreground(Crimson)

	t.SpeakerUser = lipgloss.NewStyle().
		Bold(true).
		Foreground(Steel)

	t.DialogueText = lipgloss.NewStyle().
		Foreground(TextPrimary)

	t.Indicator = lipgloss.NewStyle().
		Foreground(Crimson).
		Bold(true).
		Blink(true)

	t.WaitingDots = lipgloss.NewStyle().
		Foreground(TextSecondary).
		Bold(true)

	// Input area
	t.InputContainer = lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderTop(true).
		BorderForeground(Overlay).
		Padding(0, 1)

	t.InputPrompt = lipgloss.NewStyle().
		Foreground(Steel).
		Bold(true)

	t.InputPlaceholder = lipgloss.NewStyle().
		Foreground(TextMuted).
		Italic(true)

	// Status bar
	t.StatusBar = lipgloss.NewStyle().
		Background(SurfaceDim).
		Foreground(TextSecondary).
		Padding(0, 1)

	t.AutoBadge = lipgloss.NewStyle().
		Background(Amber).
		Foreground(TextInverse).
		Bold(true).
		Padding(0, 1)

	t.ShortcutKey = lipgloss.NewStyle().
		Foreground(Crimson).
		Bold(true)

	t.ShortcutDesc = lipgloss.NewStyle().
		Foreground(TextMuted)

	t.Notice = lipgloss.NewStyle().
		Foreground(Amber)

	// Overlays
	t.OverlayBox = lipgloss.NewStyle().
		Background(SurfaceDim).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Crimson).
		Padding(0, 1)

	t.OverlayTitle = lipgloss.NewStyle().
		Bold(true).
		Foreground(Crimson)

	t.BacklogSpeaker = lipgloss.NewStyle().
		Bold(true).
		Foreground(Steel)

	t.BacklogTime = lipgloss.NewStyle().
		Foreground(TextMuted)

	t.BacklogText = lipgloss.NewStyle().
		Foreground(TextPrimary)
}

// PortraitFor returns the portrait style tinted for e.
func (t *Theme) PortraitFor(e tagparse.Emotion) lipgloss.Style {
	return t.Portrait.BorderForeground(EmotionColor(e))
}

// SetSize updates the theme dimensions for responsive layouts.
func (t *Theme) SetSize(width, height int) {
	t.Width = width
	t.Height = height
}

// GetLayoutMode returns the current layout mode based on width.
func (t *Theme) GetLayoutMode() LayoutMode {
	if t.Width < 60 {
		return LayoutNarrow
	}
	if t.Width < 100 {
		return LayoutMedium
	}
	return LayoutWide
}

// LayoutMode represents the current responsive layout mode.
type LayoutMode int

const (
	LayoutNarrow LayoutMode = iota // < 60 columns, portrait hidden
	LayoutMedium                   // 60-100 columns
	LayoutWide                     // > 100 columns
)
