// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tagparse

import (
	"strings"
	"unicode/utf8"
)

// Clean prepares a complete reply for display and history. Reasoning spans
// are removed (an unclosed span truncates the text), the first allow-listed
// tag anywhere becomes the emotion, and every allow-listed tag is removed.
//
// Clean is idempotent on its own output.
func Clean(text string) (Emotion, string) {
	emotion := Neutral
	found := false

	s := text
	for {
		before := s
		s = StripReasoning(s)
		if !found {
			if e, ok := FirstTag(s); ok {
				emotion, found = e, true
			}
		}
		s = StripTags(s)
		// Removing a tag can splice together a new marker or tag.
		if s == before {
			break
		}
	}
	return emotion, strings.TrimSpace(s)
}

// StripReasoning removes every complete reasoning span and truncates at an
// unclosed one.
func StripReasoning(s string) string {
	for {
		i := strings.Index(s, ReasoningOpen)
		if i < 0 {
			return s
		}
		j := strings.Index(s[i+len(ReasoningOpen):], ReasoningClose)
		if j < 0 {
			return s[:i]
		}
		s = s[:i] + s[i+len(ReasoningOpen)+j+len(ReasoningClose):]
	}
}

// StripTags removes every allow-listed tag and leaves other brackets alone.
func StripTags(s string) string {
	out, _ := elide(s, true, 0)
	return out
}

// FirstTag returns the first allow-listed tag in s.
func FirstTag(s string) (Emotion, bool) {
	for {
		i := indexOpener(s)
		if i < 0 {
			return "", false
		}
		body, _, closed := splitTag(s[i:])
		if !closed {
			return "", false
		}
		if e, ok := Lookup(body); ok {
			return e, true
		}
		_, size := utf8.DecodeRuneInString(s[i:])
		s = s[i+size:]
	}
}
