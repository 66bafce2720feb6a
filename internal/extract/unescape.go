// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package extract

import (
	"strconv"
	"strings"
	"unicode/utf16"
	"unicode/utf8"
)

// Unescape resolves JSON string escapes in s.
//
// Handles \n \r \t \" \\ \/ \b \f and \uXXXX, including surrogate pairs.
// Unknown or truncated escapes are kept verbatim.
func Unescape(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))

	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i+1 >= len(s) {
			b.WriteByte(c)
			continue
		}
		i++
		switch s[i] {
		case 'n':
			b.WriteByte('\n')
		case 'r':
			b.WriteByte('\r')
		case 't':
			b.WriteByte('\t')
		case 'b':
			b.WriteByte('\b')
		case 'f':
			b.WriteByte('\f')
		case '"':
			b.WriteByte('"')
		case '\\':
			b.WriteByte('\\')
		case '/':
			b.WriteByte('/')
		case 'u':
			r, width, ok := decodeUnicode(s, i+1)
			if !ok {
				b.WriteString(`\u`)
				continue
			}
			b.WriteRune(r)
			i += width
		default:
			b.WriteByte('\\')
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

// decodeUnicode decodes the hex digits after a \u at s[i:]. When the code
// unit is a high surrogate followed by an escaped low surrogate, both are
// combined. width is the number of bytes consumed after the 'u'.
func decodeUnicode(s string, i int) (rune, int, bool) {
	r1, ok := hex4(s, i)
	if !ok {
		return 0, 0, false
	}
	if utf16.IsSurrogate(r1) {
		if i+10 <= len(s) && s[i+4] == '\\' && s[i+5] == 'u' {
			if r2, ok := hex4(s, i+6); ok {
				if r := utf16.DecodeRune(r1, r2); r != utf8.RuneError {
					return r, 10, true
				}
			}
		}
		return utf8.RuneError, 4, true
	}
	return r1, 4, true
}

func hex4(s string, i int) (rune, bool) {
	if i+4 > len(s) {
		return 0, false
	}
	n, err := strconv.ParseUint(s[i:i+4], 16, 32)
	if err != nil {
		return 0, false
	}
	return rune(n), true
}
