// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package dialogue

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

// =============================================================================
// CONTENT WRAPPING WITH RUNEWIDTH SUPPORT
// =============================================================================

// Wrap breaks text into lines no wider than width cells. Japanese text has
// no spaces, so a line may break between any two runes; ASCII words are kept
// whole when they fit on a line of their own. Kinsoku: a closing bracket or
// sentence mark is never moved to the start of a line.
func Wrap(text string, width int) []string {
	if width <= 0 {
		return strings.Split(text, "\n")
	}

	var lines []string
	for _, para := range strings.Split(text, "\n") {
		lines = append(lines, wrapLine(para, width)...)
	}
	return lines
}

func wrapLine(line string, width int) []string {
	if runewidth.StringWidth(line) <= width {
		return []string{line}
	}

	var (
		out     []string
		current []rune
		cells   int
		// lastSpace is the index in current just after the last space.
		lastSpace = -1
	)

	flush := func(upTo int) {
		out = append(out, strings.TrimRight(string(current[:upTo]), " "))
		rest := append([]rune(nil), current[upTo:]...)
		current = []rune(strings.TrimLeft(string(rest), " "))
		cells = runewidth.StringWidth(string(current))
		lastSpace = -1
	}

	for _, r := range line {
		w := runewidth.RuneWidth(r)
		if cells+w > width && len(current) > 0 {
			switch {
			case lastSpace > 0 && isASCIIWord(r):
				flush(lastSpace)
			case noLineStart(r):
				// Pull the previous rune down with the closer.
				if len(current) > 1 {
					flush(len(current) - 1)
				}
			default:
				flush(len(current))
			}
		}
		current = append(current, r)
		cells += w
		if r == ' ' {
			lastSpace = len(current)
		}
	}
	if len(current) > 0 || len(out) == 0 {
		out = append(out, string(current))
	}
	return out
}

// noLineStart reports runes that must not begin a line.
func noLineStart(r rune) bool {
	switch r {
	case '。', '、', '，', '．', '！', '？', '」', '』', '）', '…', 'ー', '!', '?', ',', '.', ')':
		return true
	}
	return false
}

func isASCIIWord(r rune) bool {
	return r < 0x80 && r != ' '
}
