// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package memory

import (
	"strings"
	"time"

	"github.com/jeranaias/amadeus-tui/internal/model"
	"github.com/jeranaias/amadeus-tui/internal/util"
)

// Trim limits.
const (
	// DefaultWindow is the number of non-system messages kept in history.
	DefaultWindow = 30

	// trimSlack removes a few extra messages so trimming does not run on
	// every turn once the window is full.
	trimSlack = 4

	summaryEntryRunes = 50
	summaryRunes      = 300
	summaryTimeLayout = "01/02 15:04"
)

// Trim removes the oldest non-system messages once more than window remain.
// It returns the new history and a summary of what was removed, or "" when
// nothing was removed. The input slice is not modified.
//
// The system message at index 0 is always kept, and so is the newest message
// unless window is 0. After trimming, the number of non-system messages is at
// most window.
func Trim(history []model.Message, window int, now time.Time) ([]model.Message, string) {
	if window < 0 {
		window = 0
	}

	count := 0
	for _, m := range history {
		if !m.IsSystem() {
			count++
		}
	}
	if count <= window {
		return history, ""
	}

	start := 0
	if len(history) > 0 && history[0].IsSystem() {
		start = 1
	}

	remove := count - window + trimSlack
	avail := len(history) - start
	if window > 0 {
		// The newest message is the one being answered.
		avail--
	}
	if remove > avail {
		remove = avail
	}

	removed := history[start : start+remove]
	out := make([]model.Message, 0, len(history)-remove)
	out = append(out, history[:start]...)
	out = append(out, history[start+remove:]...)

	return out, summarize(removed, now)
}

// summarize renders removed messages as one memory line.
func summarize(removed []model.Message, now time.Time) string {
	if len(removed) == 0 {
		return ""
	}
	entries := make([]string, len(removed))
	for i, m := range removed {
		entries[i] = util.ClipRunes(string(m.Role)+": "+m.Content, summaryEntryRunes)
	}
	summary := "[" + now.Format(summaryTimeLayout) + "の会話] " + strings.Join(entries, " / ")
	return util.ClipRunes(summary, summaryRunes)
}
