// Copyright 2023 Ross Light
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//		 https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0

package inlinemark

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
)

// Limits on the number of characters in a [character reference].
//
// [character reference]: https://spec.commonmark.org/0.31.2/#entity-and-numeric-character-references
const (
	maxEntityNameLength     = 32
	maxDecimalReference     = 7
	maxHexadecimalReference = 6
)

// unescapeString replaces [backslash escapes] and [character references] in s
// with the characters they represent.
//
// [backslash escapes]: https://spec.commonmark.org/0.31.2/#backslash-escapes
// [character references]: https://spec.commonmark.org/0.31.2/#entity-and-numeric-character-references
func unescapeString(s string) string {
	if !strings.ContainsAny(s, `\&`) {
		return s
	}
	sb := new(strings.Builder)
	sb.Grow(len(s))
	for i := 0; i < len(s); {
		switch s[i] {
		case '\\':
			if i+1 < len(s) && isASCIIPunctuation(rune(s[i+1])) {
				sb.WriteByte(s[i+1])
				i += 2
				continue
			}
		case '&':
			if n, decoded := scanCharacterReference(s[i:]); n > 0 {
				sb.WriteString(decoded)
				i += n
				continue
			}
		}
		sb.WriteByte(s[i])
		i++
	}
	return sb.String()
}

// scanCharacterReference decodes a character reference at the start of s.
// It returns the number of bytes in the reference and the decoded text,
// or zero if s does not start with a valid reference.
func scanCharacterReference(s string) (n int, decoded string) {
	if len(s) < 3 || s[0] != '&' {
		return 0, ""
	}
	if s[1] == '#' {
		return scanNumericReference(s)
	}
	if !isASCIILetter(rune(s[1])) {
		return 0, ""
	}
	i := 2
	for i < len(s) && i-1 < maxEntityNameLength && isASCIIAlnum(rune(s[i])) {
		i++
	}
	if i >= len(s) || s[i] != ';' {
		return 0, ""
	}
	name := s[:i+1]
	decoded = html.UnescapeString(name)
	// html.UnescapeString also accepts prefixes of names without a semicolon
	// (e.g. "&notit;" decodes as "¬it;"), which are not references here.
	if decoded == name || strings.HasSuffix(decoded, name[len(name)-2:]) {
		return 0, ""
	}
	return len(name), decoded
}

func scanNumericReference(s string) (n int, decoded string) {
	i := 2
	var base rune = 10
	maxDigits := maxDecimalReference
	if i < len(s) && (s[i] == 'x' || s[i] == 'X') {
		base = 16
		maxDigits = maxHexadecimalReference
		i++
	}
	start := i
	var value rune
	for i < len(s) && i-start < maxDigits {
		d, ok := digitValue(rune(s[i]), base)
		if !ok {
			break
		}
		value = value*base + d
		i++
	}
	if i == start || i >= len(s) || s[i] != ';' {
		return 0, ""
	}
	if value == 0 || !utf8.ValidRune(value) {
		value = utf8.RuneError
	}
	return i + 1, string(value)
}

func digitValue(c rune, base rune) (rune, bool) {
	switch {
	case isASCIIDigit(c):
		return c - '0', true
	case base == 16 && 'a' <= c && c <= 'f':
		return c - 'a' + 10, true
	case base == 16 && 'A' <= c && c <= 'F':
		return c - 'A' + 10, true
	default:
		return 0, false
	}
}
