// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package dialogue

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/amadeus-tui/internal/present"
	"github.com/jeranaias/amadeus-tui/internal/ui/styles"
	"github.com/jeranaias/amadeus-tui/internal/util"
)

// dialogueLines is the fixed text height of the dialogue box.
const dialogueLines = 4

// View renders the screen.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if m.overlay != OverlayNone {
		return lipgloss.JoinVertical(lipgloss.Left,
			m.renderHeader(),
			m.renderOverlay(),
			m.renderStatus(m.orch.View()),
		)
	}

	v := m.orch.View()
	parts := []string{m.renderHeader()}

	body := m.renderDialogue(v)
	if m.theme.GetLayoutMode() != styles.LayoutNarrow {
		body = lipgloss.JoinHorizontal(lipgloss.Bottom, m.renderPortrait(v), " ", body)
	}

	// Push the box to the bottom like a visual novel.
	used := lipgloss.Height(parts[0]) + lipgloss.Height(body) + 4
	if pad := m.height - used; pad > 0 {
		parts = append(parts, strings.Repeat("\n", pad-1))
	}
	parts = append(parts, body, m.renderInput(v), m.renderStatus(v))
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

// =============================================================================
// HEADER
// =============================================================================

func (m Model) renderHeader() string {
	brand := m.theme.HeaderBrand.Render("AMADEUS")
	room := max(m.width-lipgloss.Width(brand)-3, 0)
	info := m.theme.HeaderInfo.Render(util.TruncateWidth(m.title, room))
	gap := max(m.width-lipgloss.Width(brand)-lipgloss.Width(info)-2, 1)
	return m.theme.Header.Width(m.width).Render(brand + strings.Repeat(" ", gap) + info)
}

// =============================================================================
// PORTRAIT AND DIALOGUE BOX
// =============================================================================

func (m Model) renderPortrait(v present.View) string {
	face := v.Emotion.Face()
	label := m.theme.HeaderInfo.Render(v.Emotion.String())
	return m.theme.PortraitFor(v.Emotion).
		Height(dialogueLines).
		Render(lipgloss.JoinVertical(lipgloss.Center, "", face, "", label))
}

// dialogueWidth is the text width inside the dialogue box.
func (m Model) dialogueWidth() int {
	w := m.width - 6
	if m.theme.GetLayoutMode() != styles.LayoutNarrow {
		w -= 22
	}
	return max(w, 10)
}

func (m Model) renderDialogue(v present.View) string {
	width := m.dialogueWidth()

	speaker := v.Speaker
	if speaker == "" {
		speaker = "Kurisu"
	}
	name := m.theme.SpeakerName.Render(speaker)

	var body string
	switch {
	case v.State == present.WaitingResponse:
		body = m.theme.WaitingDots.Render(v.Indicator)
	case v.State == present.InputReady && v.Text == "":
		body = m.theme.DialogueText.Render("...")
	default:
		lines := Wrap(v.Text, width)
		// Keep the newest lines when a page is taller than the box.
		if len(lines) > dialogueLines {
			lines = lines[len(lines)-dialogueLines:]
		}
		body = m.theme.DialogueText.Render(strings.Join(lines, "\n"))
		if v.WaitingIndicator && v.Indicator != "" {
			body += " " + m.theme.Indicator.Render(v.Indicator)
		}
	}

	return m.theme.DialogueBox.
		Width(width + 4).
		Height(dialogueLines + 1).
		Render(name + "\n" + body)
}

// =============================================================================
// INPUT AND STATUS
// =============================================================================

func (m Model) renderInput(v present.View) string {
	if v.State != present.InputReady {
		hint := "Enter to continue, Tab to skip"
		if v.State == present.WaitingResponse {
			hint = m.spinner.View() + " Esc to cancel"
		}
		return m.theme.InputContainer.Width(m.width).Render(m.theme.ShortcutDesc.Render(hint))
	}
	return m.theme.InputContainer.Width(m.width).Render(m.input.View())
}

func (m Model) renderStatus(v present.View) string {
	var left []string
	if v.AutoMode {
		left = append(left, m.theme.AutoBadge.Render("AUTO"))
	}
	if m.notice != "" {
		left = append(left, m.theme.Notice.Render(m.notice))
	}

	var hints []string
	for _, b := range m.keys.ShortHelp() {
		h := b.Help()
		hints = append(hints, m.theme.ShortcutKey.Render(h.Key)+" "+m.theme.ShortcutDesc.Render(h.Desc))
	}

	l := strings.Join(left, " ")
	r := strings.Join(hints, "  ")
	gap := m.width - lipgloss.Width(l) - lipgloss.Width(r) - 2
	if gap < 1 {
		// Narrow terminals drop the hints first.
		r = m.theme.ShortcutKey.Render("F1") + " " + m.theme.ShortcutDesc.Render("help")
		gap = max(1, m.width-lipgloss.Width(l)-lipgloss.Width(r)-2)
	}
	return m.theme.StatusBar.Width(m.width).Render(l + strings.Repeat(" ", gap) + r)
}

// =============================================================================
// OVERLAY
// =============================================================================

func (m Model) renderOverlay() string {
	title := "Backlog"
	if m.overlay == OverlayHelp {
		title = "Help"
	}
	header := m.theme.OverlayTitle.Render(title) + "  " +
		m.theme.ShortcutDesc.Render(fmt.Sprintf("%3.f%%  Esc to close", m.pager.ScrollPercent()*100))
	return m.theme.OverlayBox.
		Width(m.width - 2).
		Render(header + "\n" + m.pager.View())
}

// renderBacklog formats the loaded entries for the pager.
func (m Model) renderBacklog(width int) string {
	if len(m.entries) == 0 {
		return m.theme.ShortcutDesc.Render("Nothing has been said yet.")
	}
	var b strings.Builder
	for i, e := range m.entries {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(m.theme.BacklogTime.Render(e.CreatedAt.Format("01/02 15:04")))
		b.WriteString(" ")
		b.WriteString(m.theme.BacklogSpeaker.Render(e.Speaker))
		b.WriteString("\n")
		for _, line := range Wrap(e.Text, max(width-2, 10)) {
			b.WriteString("  ")
			b.WriteString(m.theme.BacklogText.Render(line))
			b.WriteString("\n")
		}
	}
	return b.String()
}
