// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package extract pulls individual fields out of JSON text that may be
// incomplete.
//
// Provider responses arrive either as whole documents or as fragments cut at
// arbitrary byte offsets. Everything in this package reports "not found"
// instead of failing, so callers can wait for the next chunk or fall back.
package extract

import (
	"strings"

	"github.com/kaptinlin/jsonrepair"
	"github.com/tidwall/gjson"
)

// =============================================================================
// FIELD SCANNING
// =============================================================================

// Kind classifies a scanned value.
type Kind int

const (
	// KindString is a quoted JSON string.
	KindString Kind = iota
	// KindScalar is a number, boolean, null or other unquoted word.
	// Objects and arrays are never scanned as values.
	KindScalar
)

// Value is the raw result of a field scan.
type Value struct {
	Kind Kind
	// Raw holds the value as it appears in the text. For strings the
	// surrounding quotes are removed but escapes are left untouched.
	Raw string
	// End is the offset in the scanned text just past the value.
	End int
}

// Field returns the value of the first occurrence of the key name in text.
//
// STREAMING: A string value counts as present only once its closing quote
// has arrived. A quote closes the string only when the run of backslashes
// before it has even length. Scalars end at the first ',' or '}', or at the
// end of the input when neither appears. A key holding an object or array
// is reported as not found.
func Field(text, name string) (Value, bool) {
	return fieldFrom(text, name, 0)
}

// FieldAfter is Field restricted to the text following the first occurrence
// of the anchor key. It covers nested lookups such as "delta" → "content"
// without a full parse.
func FieldAfter(text, anchor, name string) (Value, bool) {
	start, ok := keyIndex(text, anchor, 0)
	if !ok {
		return Value{}, false
	}
	return fieldFrom(text, name, start)
}

// String returns the unescaped string value of the first occurrence of name.
// Scalars are reported as not found.
func String(text, name string) (string, bool) {
	v, ok := Field(text, name)
	if !ok || v.Kind != KindString {
		return "", false
	}
	return Unescape(v.Raw), true
}

// StringAfter is String scoped past the anchor key, like FieldAfter.
func StringAfter(text, anchor, name string) (string, bool) {
	v, ok := FieldAfter(text, anchor, name)
	if !ok || v.Kind != KindString {
		return "", false
	}
	return Unescape(v.Raw), true
}

// All returns every complete string value stored under name, in order.
func All(text, name string) []string {
	var out []string
	pos := 0
	for pos < len(text) {
		v, ok := fieldFrom(text, name, pos)
		if !ok {
			break
		}
		if v.Kind == KindString {
			out = append(out, Unescape(v.Raw))
		}
		if v.End <= pos {
			break
		}
		pos = v.End
	}
	return out
}

func fieldFrom(text, name string, from int) (Value, bool) {
	pos := from
	for {
		valueStart, ok := keyIndex(text, name, pos)
		if !ok {
			return Value{}, false
		}
		i := skipSpace(text, valueStart)
		if i >= len(text) {
			return Value{}, false
		}
		if text[i] == '"' {
			end, closed := scanString(text, i+1)
			if !closed {
				return Value{}, false
			}
			return Value{Kind: KindString, Raw: text[i+1 : end], End: end + 1}, true
		}
		if text[i] == '{' || text[i] == '[' {
			return Value{}, false
		}
		end := i
		for end < len(text) && text[end] != ',' && text[end] != '}' {
			end++
		}
		raw := strings.TrimSpace(text[i:end])
		if raw == "" {
			pos = end
			continue
		}
		return Value{Kind: KindScalar, Raw: raw, End: end}, true
	}
}

// keyIndex finds `"name"` followed by optional whitespace and a colon at or
// after from. It returns the offset just past the colon.
func keyIndex(text, name string, from int) (int, bool) {
	needle := `"` + name + `"`
	pos := from
	for pos < len(text) {
		idx := strings.Index(text[pos:], needle)
		if idx < 0 {
			return 0, false
		}
		at := pos + idx
		// A string value that happens to equal name is not followed by ':'.
		after := skipSpace(text, at+len(needle))
		if after < len(text) && text[after] == ':' {
			return after + 1, true
		}
		pos = at + len(needle)
	}
	return 0, false
}

// scanString returns the index of the closing quote of a string whose body
// starts at i.
func scanString(text string, i int) (int, bool) {
	for j := i; j < len(text); j++ {
		if text[j] != '"' {
			continue
		}
		backslashes := 0
		for k := j - 1; k >= i && text[k] == '\\'; k-- {
			backslashes++
		}
		if backslashes%2 == 0 {
			return j, true
		}
	}
	return 0, false
}

func skipSpace(text string, i int) int {
	for i < len(text) {
		switch text[i] {
		case ' ', '\t', '\n', '\r':
			i++
		default:
			return i
		}
	}
	return i
}

// =============================================================================
// PATH LOOKUP (COMPLETE PAYLOADS)
// =============================================================================

// Path looks up a gjson path in a complete payload. Invalid JSON gets one
// repair attempt before giving up. Strings come back unescaped.
func Path(text, path string) (string, bool) {
	if gjson.Valid(text) {
		return lookup(text, path)
	}
	fixed, err := jsonrepair.JSONRepair(text)
	if err != nil || !gjson.Valid(fixed) {
		return "", false
	}
	return lookup(fixed, path)
}

func lookup(doc, path string) (string, bool) {
	r := gjson.Get(doc, path)
	if !r.Exists() || r.Type == gjson.Null {
		return "", false
	}
	return r.String(), true
}

// Valid reports whether text is a complete JSON document.
func Valid(text string) bool {
	return gjson.Valid(text)
}
