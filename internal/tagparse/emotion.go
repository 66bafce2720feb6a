// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tagparse

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/width"
)

// =============================================================================
// EMOTION TYPE
// =============================================================================

// Emotion is one of the fixed expression identifiers a reply may lead with.
type Emotion string

const (
	Normal    Emotion = "NORMAL"
	Smile     Emotion = "SMILE"
	Angry     Emotion = "ANGRY"
	Sad       Emotion = "SAD"
	Surprised Emotion = "SURPRISED"
	Blush     Emotion = "BLUSH"
	Wink      Emotion = "WINK"
	Disgust   Emotion = "DISGUST"
	Smug      Emotion = "SMUG"
	Thinking  Emotion = "THINKING"
	Panic     Emotion = "PANIC"
)

// Neutral is shown when a reply carries no tag and whenever input is idle.
const Neutral = Normal

// ErrorEmotion accompanies in-character error messages.
const ErrorEmotion = Angry

// Emotions lists the allow-list in display order.
var Emotions = []Emotion{
	Normal, Smile, Angry, Sad, Surprised, Blush, Wink, Disgust, Smug, Thinking, Panic,
}

var allowed = func() map[Emotion]bool {
	m := make(map[Emotion]bool, len(Emotions))
	for _, e := range Emotions {
		m[e] = true
	}
	return m
}()

var upper = cases.Upper(language.Und)

// Lookup normalizes a tag body and reports whether it names an allow-listed
// emotion. Matching ignores case, surrounding spaces and full-width forms.
func Lookup(body string) (Emotion, bool) {
	norm := upper.String(strings.TrimSpace(width.Narrow.String(body)))
	e := Emotion(norm)
	return e, allowed[e]
}

// String returns the identifier.
func (e Emotion) String() string {
	return string(e)
}

// Face returns a short kaomoji for terminal surfaces.
func (e Emotion) Face() string {
	switch e {
	case Smile:
		return "(^_^)"
	case Angry:
		return "(｀へ´)"
	case Sad:
		return "(´・ω・`)"
	case Surprised:
		return "(ﾟДﾟ)"
	case Blush:
		return "(〃▽〃)"
	case Wink:
		return "(^_-)"
	case Disgust:
		return "(-_-;)"
	case Smug:
		return "(￣ー￣)"
	case Thinking:
		return "(・・?)"
	case Panic:
		return "(((;ﾟДﾟ)))"
	default:
		return "(・_・)"
	}
}
