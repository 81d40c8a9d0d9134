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

import "unicode"

// charSet is a set of ASCII characters.
type charSet [2]uint64

func (cs *charSet) add(c byte) {
	cs[c/64] |= 1 << (c % 64)
}

func (cs *charSet) has(c rune) bool {
	return 0 <= c && c < 128 && cs[c/64]&(1<<(c%64)) != 0
}

// isUnicodeWhitespace reports whether c is a [Unicode whitespace character].
//
// [Unicode whitespace character]: https://spec.commonmark.org/0.31.2/#unicode-whitespace-character
func isUnicodeWhitespace(c rune) bool {
	switch c {
	case '\t', '\n', '\f', '\r':
		return true
	}
	return unicode.Is(unicode.Zs, c)
}

// isUnicodePunctuation reports whether c is a [Unicode punctuation character].
//
// [Unicode punctuation character]: https://spec.commonmark.org/0.31.2/#unicode-punctuation-character
func isUnicodePunctuation(c rune) bool {
	if c < 0x80 {
		return c >= 0 && isASCIIPunctuation(c)
	}
	return unicode.IsPunct(c) || unicode.IsSymbol(c)
}

// isASCIIPunctuation reports whether c is an [ASCII punctuation character].
//
// [ASCII punctuation character]: https://spec.commonmark.org/0.31.2/#ascii-punctuation-character
func isASCIIPunctuation(c rune) bool {
	return '!' <= c && c <= '/' ||
		':' <= c && c <= '@' ||
		'[' <= c && c <= '`' ||
		'{' <= c && c <= '~'
}

func isASCIILetter(c rune) bool {
	return 'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z'
}

func isASCIIDigit(c rune) bool {
	return '0' <= c && c <= '9'
}

func isASCIIAlnum(c rune) bool {
	return isASCIILetter(c) || isASCIIDigit(c)
}

func isHexDigit(c rune) bool {
	return isASCIIDigit(c) || 'a' <= c && c <= 'f' || 'A' <= c && c <= 'F'
}
