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
	"unicode"
	"unicode/utf8"
)

const (
	// maxLinkLabelLength is the maximum number of characters in a [link label].
	//
	// [link label]: https://spec.commonmark.org/0.31.2/#link-label
	maxLinkLabelLength = 999

	// maxLinkDestinationParens is the maximum nesting depth
	// of parentheses in a [link destination].
	//
	// [link destination]: https://spec.commonmark.org/0.31.2/#link-destination
	maxLinkDestinationParens = 32
)

// parseLinkDestination parses a [link destination]
// and returns its unescaped value.
//
// [link destination]: https://spec.commonmark.org/0.31.2/#link-destination
func parseLinkDestination(s *Scanner) (string, bool) {
	start := s.Position()
	if !scanLinkDestination(s) {
		return "", false
	}
	raw := s.Text(start, s.Position())
	if strings.HasPrefix(raw, "<") {
		raw = raw[1 : len(raw)-1]
	}
	return unescapeString(raw), true
}

// parseLinkTitle parses a [link title]
// and returns its unescaped value.
// The scanner's position is undefined if parseLinkTitle returns false.
//
// [link title]: https://spec.commonmark.org/0.31.2/#link-title
func parseLinkTitle(s *Scanner) (string, bool) {
	start := s.Position()
	if !scanLinkTitle(s) {
		return "", false
	}
	raw := s.Text(start, s.Position())
	return unescapeString(raw[1 : len(raw)-1]), true
}

// parseLinkLabel parses a bracketed [link label]
// and returns the text between the brackets.
// The label may be empty.
//
// [link label]: https://spec.commonmark.org/0.31.2/#link-label
func parseLinkLabel(s *Scanner) (string, bool) {
	if !s.NextIf('[') {
		return "", false
	}
	start := s.Position()
	if !scanLinkLabelContent(s) {
		return "", false
	}
	end := s.Position()
	if !s.NextIf(']') {
		return "", false
	}
	label := s.Text(start, end)
	if utf8.RuneCountInString(label) > maxLinkLabelLength {
		return "", false
	}
	return label, true
}

func scanLinkLabelContent(s *Scanner) bool {
	for s.HasNext() {
		switch s.Peek() {
		case '\\':
			s.Next()
			if isASCIIPunctuation(s.Peek()) {
				s.Next()
			}
		case ']':
			return true
		case '[':
			return false
		default:
			s.Next()
		}
	}
	return true
}

func scanLinkDestination(s *Scanner) bool {
	if !s.HasNext() {
		return false
	}
	if !s.NextIf('<') {
		return scanLinkDestinationWithBalancedParens(s)
	}
	for s.HasNext() {
		switch s.Peek() {
		case '\\':
			s.Next()
			if isASCIIPunctuation(s.Peek()) {
				s.Next()
			}
		case '\n', '<':
			return false
		case '>':
			s.Next()
			return true
		default:
			s.Next()
		}
	}
	return false
}

func scanLinkDestinationWithBalancedParens(s *Scanner) bool {
	parens := 0
	empty := true
	for s.HasNext() {
		c := s.Peek()
		switch {
		case c == ' ':
			return !empty && parens == 0
		case c == '\\':
			s.Next()
			if isASCIIPunctuation(s.Peek()) {
				s.Next()
			}
		case c == '(':
			parens++
			if parens > maxLinkDestinationParens {
				return false
			}
			s.Next()
		case c == ')':
			if parens == 0 {
				return true
			}
			parens--
			s.Next()
		case unicode.IsControl(c):
			return !empty && parens == 0
		default:
			s.Next()
		}
		empty = false
	}
	return parens == 0
}

func scanLinkTitle(s *Scanner) bool {
	var end rune
	switch s.Peek() {
	case '"':
		end = '"'
	case '\'':
		end = '\''
	case '(':
		end = ')'
	default:
		return false
	}
	s.Next()
	if !scanLinkTitleContent(s, end) {
		return false
	}
	return s.NextIf(end)
}

func scanLinkTitleContent(s *Scanner, end rune) bool {
	for s.HasNext() {
		c := s.Peek()
		switch {
		case c == '\\':
			s.Next()
			if isASCIIPunctuation(s.Peek()) {
				s.Next()
			}
		case c == end:
			return true
		case end == ')' && c == '(':
			return false
		default:
			s.Next()
		}
	}
	return true
}
