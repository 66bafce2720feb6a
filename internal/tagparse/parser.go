// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tagparse

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Reasoning span markers emitted by reasoning models (qwen3, deepseek-r1).
const (
	ReasoningOpen  = "<think>"
	ReasoningClose = "</think>"
)

// DefaultLookahead is how many runes an unterminated "[" may hold back
// display before it is treated as literal text.
const DefaultLookahead = 24

// Result reports what a Feed or Finish call released.
type Result struct {
	// Text is display-safe output released by this call.
	Text string
	// Emotion is the turn emotion once Resolved is true.
	Emotion Emotion
	// Resolved is true once the leading tag decision has been made.
	Resolved bool
	// NeedMore is true while some input is withheld pending more chunks.
	NeedMore bool
}

// Parser incrementally removes reasoning spans and the leading emotion tag
// from a streamed reply.
//
// STREAMING: Two stages run over every chunk. The reasoning stage drops text
// between ReasoningOpen and ReasoningClose and holds back a tail that could
// be the start of a marker. The tag stage decides the turn emotion from the
// first allow-listed [TAG] and, after that, elides any further allow-listed
// tags while leaving other bracketed text alone.
//
// A Parser is not safe for concurrent use; the orchestrator feeds it from a
// single event loop.
type Parser struct {
	lookahead int

	pending     string
	inReasoning bool

	tagBuf   string
	resolved bool
	emotion  Emotion
	started  bool
}

// New creates a parser. A lookahead below 1 uses DefaultLookahead.
func New(lookahead int) *Parser {
	if lookahead < 1 {
		lookahead = DefaultLookahead
	}
	return &Parser{lookahead: lookahead}
}

// Feed consumes the next chunk.
func (p *Parser) Feed(chunk string) Result {
	p.pending += chunk
	return p.result(p.drain(false))
}

// Finish flushes everything at end of stream. An unclosed reasoning span is
// discarded from its open marker onward; held partial markers and brackets
// are released as literal text.
func (p *Parser) Finish() Result {
	return p.result(p.drain(true))
}

// Resolved reports whether the emotion decision has been made.
func (p *Parser) Resolved() bool {
	return p.resolved
}

// Emotion returns the resolved emotion, or Neutral before resolution.
func (p *Parser) Emotion() Emotion {
	if !p.resolved {
		return Neutral
	}
	return p.emotion
}

// Reset clears all state for reuse on a new turn.
func (p *Parser) Reset() {
	*p = Parser{lookahead: p.lookahead}
}

func (p *Parser) result(text string) Result {
	r := Result{
		Text:     text,
		Resolved: p.resolved,
		NeedMore: !p.resolved || p.inReasoning || p.pending != "" || p.tagBuf != "",
	}
	if p.resolved {
		r.Emotion = p.emotion
	}
	return r
}

// =============================================================================
// REASONING STAGE
// =============================================================================

func (p *Parser) drain(final bool) string {
	var out strings.Builder

	for {
		if p.inReasoning {
			idx := strings.Index(p.pending, ReasoningClose)
			if idx < 0 {
				if final {
					p.pending = ""
				} else {
					p.pending = tail(p.pending, len(ReasoningClose)-1)
				}
				break
			}
			p.pending = p.pending[idx+len(ReasoningClose):]
			p.inReasoning = false
			continue
		}

		idx := strings.Index(p.pending, ReasoningOpen)
		if idx >= 0 {
			out.WriteString(p.tagStage(p.pending[:idx], false))
			p.pending = p.pending[idx+len(ReasoningOpen):]
			p.inReasoning = true
			continue
		}

		hold := 0
		if !final {
			hold = partialPrefixLen(p.pending, ReasoningOpen)
		}
		cut := len(p.pending) - hold
		out.WriteString(p.tagStage(p.pending[:cut], false))
		p.pending = p.pending[cut:]
		break
	}

	if final {
		out.WriteString(p.tagStage("", true))
	}
	return out.String()
}

// partialPrefixLen returns the length of the longest proper prefix of marker
// that s ends with.
func partialPrefixLen(s, marker string) int {
	n := len(marker) - 1
	if len(s) < n {
		n = len(s)
	}
	for k := n; k > 0; k-- {
		if strings.HasSuffix(s, marker[:k]) {
			return k
		}
	}
	return 0
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}

// =============================================================================
// TAG STAGE
// =============================================================================

func (p *Parser) tagStage(s string, final bool) string {
	p.tagBuf += s
	if !p.resolved && !p.resolveLeading(final) {
		return ""
	}

	out, held := elide(p.tagBuf, final, p.lookahead)
	p.tagBuf = held
	if !p.started {
		out = strings.TrimLeftFunc(out, unicode.IsSpace)
		if out != "" {
			p.started = true
		}
	}
	return out
}

// resolveLeading decides the turn emotion from the start of tagBuf. It
// returns false when more input is needed.
func (p *Parser) resolveLeading(final bool) bool {
	t := strings.TrimLeftFunc(p.tagBuf, unicode.IsSpace)
	if t == "" {
		if final {
			p.resolveNeutral("")
			return true
		}
		return false
	}

	if isOpener(firstRune(t)) {
		body, rest, closed := splitTag(t)
		if closed {
			if e, ok := Lookup(body); ok {
				p.emotion = e
				p.resolved = true
				p.tagBuf = strings.TrimLeftFunc(rest, unicode.IsSpace)
				return true
			}
			// Not ours: keep the bracket as literal text.
			p.resolveNeutral(t)
			return true
		}
		if !final && utf8.RuneCountInString(t) < p.lookahead {
			return false
		}
	}

	p.resolveNeutral(t)
	return true
}

func (p *Parser) resolveNeutral(buf string) {
	p.emotion = Neutral
	p.resolved = true
	p.tagBuf = buf
}

// elide removes allow-listed tags from s. An opener without a closer near the
// end of s is held back unless final is set or more than lookahead runes
// remain.
func elide(s string, final bool, lookahead int) (out, held string) {
	var b strings.Builder
	for {
		i := indexOpener(s)
		if i < 0 {
			b.WriteString(s)
			return b.String(), ""
		}
		b.WriteString(s[:i])
		rest := s[i:]

		body, after, closed := splitTag(rest)
		if closed {
			if _, ok := Lookup(body); ok {
				s = after
				continue
			}
		} else if !final && utf8.RuneCountInString(rest) < lookahead {
			return b.String(), rest
		}

		_, size := utf8.DecodeRuneInString(rest)
		b.WriteString(rest[:size])
		s = rest[size:]
	}
}

// splitTag splits s, which starts with an opener, at the first closer.
func splitTag(s string) (body, rest string, closed bool) {
	_, size := utf8.DecodeRuneInString(s)
	inner := s[size:]
	j := strings.IndexFunc(inner, isCloser)
	if j < 0 {
		return "", "", false
	}
	_, csize := utf8.DecodeRuneInString(inner[j:])
	return inner[:j], inner[j+csize:], true
}

func indexOpener(s string) int {
	return strings.IndexFunc(s, isOpener)
}

func isOpener(r rune) bool {
	return r == '[' || r == '［'
}

func isCloser(r rune) bool {
	return r == ']' || r == '］'
}

func firstRune(s string) rune {
	r, _ := utf8.DecodeRuneInString(s)
	return r
}
