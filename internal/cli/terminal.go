// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// terminal.go - Which end of the conversation is a terminal.
//
// USABILITY: The dialogue screen needs a terminal on both ends. Piped input
// or output falls back to line mode with colors off.

package cli

import (
	"os"
	"sync"

	"github.com/muesli/termenv"
	"golang.org/x/term"
)

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// IsTTY reports whether questions can be typed interactively.
func IsTTY() bool { return isTerminal(os.Stdin) }

// IsStdoutTTY reports whether replies can be revealed in place. When false,
// replies are printed a page at a time with no pacing.
func IsStdoutTTY() bool { return isTerminal(os.Stdout) }

// Interactive reports whether the dialogue screen can run.
func Interactive() bool {
	return IsTTY() && IsStdoutTTY()
}

// Width bounds for listings that fit one entry per line.
const (
	DefaultTerminalWidth = 80
	MinTerminalWidth     = 40
)

// GetTerminalWidth returns the stdout width, never below MinTerminalWidth.
// Piped output gets DefaultTerminalWidth.
func GetTerminalWidth() int {
	w, _, err := term.GetSize(int(os.Stdout.Fd()))
	switch {
	case err != nil || w <= 0:
		return DefaultTerminalWidth
	case w < MinTerminalWidth:
		return MinTerminalWidth
	}
	return w
}

// =============================================================================
// COLOR
// =============================================================================

// colorChoice is computed once; the environment does not change mid-run.
var colorChoice = sync.OnceValue(func() bool {
	// CONFIG: NO_COLOR (https://no-color.org/) wins over FORCE_COLOR.
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if os.Getenv("FORCE_COLOR") != "" {
		return true
	}
	return IsStdoutTTY()
})

// ColorsEnabled reports whether subcommand output may be styled.
func ColorsEnabled() bool { return colorChoice() }

// GetColorProfile returns Ascii when colors are off, otherwise whatever the
// terminal advertises.
func GetColorProfile() termenv.Profile {
	if !ColorsEnabled() {
		return termenv.Ascii
	}
	return termenv.ColorProfile()
}
