// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package tagparse finds Kurisu's emotion tag in reply text and removes
// markup that must never reach the screen.
//
// Replies open with a bracketed tag such as [SMUG], in ASCII or full-width
// brackets. Reasoning models may also wrap a <think> span around their
// scratch work.
//
// # Key Types
//
//   - Emotion: One of the portrait emotions, with a text face for line mode
//   - Parser: Incremental cleaner for streamed chunks
//   - Result: Displayable text produced by one Feed or Finish call
//
// # Usage
//
// Whole replies:
//
//	emotion, text := tagparse.Clean(reply)
//
// Streams:
//
//	p := tagparse.New(tagparse.DefaultLookahead)
//	for chunk := range chunks {
//		r := p.Feed(chunk)
//		show(r.Text)
//	}
//	show(p.Finish().Text)
//
// A Parser holds back only as much text as could still turn into a tag or
// a reasoning marker. Everything else is released immediately.
package tagparse
