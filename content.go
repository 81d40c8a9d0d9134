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

import "strings"

// An InlineContentParser parses self-contained inline elements
// that begin with one of its trigger characters, like code spans.
// InlineContentParsers must be safe to call from multiple goroutines.
type InlineContentParser interface {
	// Triggers returns the ASCII characters that may start an element.
	Triggers() []byte
	// ParseInline is called with the scanner positioned at a trigger character.
	// It returns the parsed node with the scanner positioned after the element,
	// or nil if no element starts here.
	// The scanner position is restored when ParseInline returns nil.
	ParseInline(s *Scanner) *Inline
}

var builtinContentParsers = []InlineContentParser{
	backslashParser{},
	codeSpanParser{},
	entityParser{},
	autolinkParser{},
	rawHTMLParser{},
}

// backslashParser handles [backslash escapes]
// and hard line breaks written as a backslash at the end of a line.
//
// [backslash escapes]: https://spec.commonmark.org/0.31.2/#backslash-escapes
type backslashParser struct{}

func (backslashParser) Triggers() []byte { return []byte{'\\'} }

func (backslashParser) ParseInline(s *Scanner) *Inline {
	s.Next()
	switch c := s.Peek(); {
	case c == '\n':
		s.Next()
		return NewInline(HardLineBreakKind)
	case isASCIIPunctuation(c):
		s.Next()
		return NewText(string(c))
	default:
		return NewText(`\`)
	}
}

// codeSpanParser handles [code spans].
//
// [code spans]: https://spec.commonmark.org/0.31.2/#code-spans
type codeSpanParser struct{}

func (codeSpanParser) Triggers() []byte { return []byte{'`'} }

func (codeSpanParser) ParseInline(s *Scanner) *Inline {
	n := s.MatchMultiple('`')
	content, ok := matchFencedSpan(s, '`', n)
	fence := strings.Repeat("`", n)
	if !ok {
		return NewText(fence)
	}
	return NewCodeSpan(fence, content)
}

// matchFencedSpan searches for a closing run of exactly n fence characters,
// assuming the scanner is positioned after an opening run of n characters.
// On success, the scanner is positioned after the closing run
// and the normalized content is returned.
// Otherwise, the scanner position is unchanged.
func matchFencedSpan(s *Scanner, fence rune, n int) (content string, ok bool) {
	afterOpening := s.Position()
	for s.Find(fence) >= 0 {
		beforeClosing := s.Position()
		if s.MatchMultiple(fence) == n {
			return normalizeSpanContent(s.Text(afterOpening, beforeClosing)), true
		}
	}
	s.SetPosition(afterOpening)
	return "", false
}

// normalizeSpanContent converts line endings to spaces
// and strips a single space from both ends of content
// if it has a space on both ends and is not entirely spaces.
func normalizeSpanContent(content string) string {
	content = strings.ReplaceAll(content, "\n", " ")
	if len(content) >= 3 &&
		content[0] == ' ' &&
		content[len(content)-1] == ' ' &&
		strings.Trim(content, " ") != "" {
		content = content[1 : len(content)-1]
	}
	return content
}

// entityParser handles [entity and numeric character references].
//
// [entity and numeric character references]: https://spec.commonmark.org/0.31.2/#entity-and-numeric-character-references
type entityParser struct{}

func (entityParser) Triggers() []byte { return []byte{'&'} }

func (entityParser) ParseInline(s *Scanner) *Inline {
	// References are ASCII and never span lines.
	n, decoded := scanCharacterReference(s.line[s.index:])
	if n == 0 {
		return nil
	}
	s.index += n
	return NewText(decoded)
}

// autolinkParser handles [autolinks].
//
// [autolinks]: https://spec.commonmark.org/0.31.2/#autolinks
type autolinkParser struct{}

func (autolinkParser) Triggers() []byte { return []byte{'<'} }

func (autolinkParser) ParseInline(s *Scanner) *Inline {
	s.Next()
	textStart := s.Position()
	for {
		c := s.Peek()
		if c == '>' {
			break
		}
		if c == End || c == '<' || c == ' ' || c < 0x20 || c == 0x7f {
			return nil
		}
		s.Next()
	}
	textEnd := s.Position()
	s.Next()

	text := s.Text(textStart, textEnd)
	var dest string
	switch {
	case isAbsoluteURI(text):
		dest = text
	case isEmailAddress(text):
		dest = "mailto:" + text
	default:
		return nil
	}
	child := NewText(text)
	child.spans = s.Spans(textStart, textEnd)
	return NewLink(LinkDefinition{Destination: dest}, child)
}

// isAbsoluteURI reports whether s is an [absolute URI].
//
// [absolute URI]: https://spec.commonmark.org/0.31.2/#absolute-uri
func isAbsoluteURI(s string) bool {
	colon := strings.IndexByte(s, ':')
	if colon < 2 || colon > 32 || !isASCIILetter(rune(s[0])) {
		return false
	}
	for _, c := range s[1:colon] {
		if !isASCIIAlnum(c) && c != '+' && c != '.' && c != '-' {
			return false
		}
	}
	for _, c := range s[colon+1:] {
		if c <= ' ' || c == '<' || c == '>' || c == 0x7f {
			return false
		}
	}
	return true
}

// isEmailAddress reports whether s is an [email address].
//
// [email address]: https://spec.commonmark.org/0.31.2/#email-address
func isEmailAddress(s string) bool {
	at := strings.IndexByte(s, '@')
	if at < 1 {
		return false
	}
	for _, c := range s[:at] {
		if !isASCIIAlnum(c) && !strings.ContainsRune(".!#$%&'*+/=?^_`{|}~-", c) {
			return false
		}
	}
	labels := strings.Split(s[at+1:], ".")
	for _, label := range labels {
		if len(label) == 0 || len(label) > 63 {
			return false
		}
		if label[0] == '-' || label[len(label)-1] == '-' {
			return false
		}
		for _, c := range label {
			if !isASCIIAlnum(c) && c != '-' {
				return false
			}
		}
	}
	return true
}

// rawHTMLParser handles [raw HTML].
//
// [raw HTML]: https://spec.commonmark.org/0.31.2/#raw-html
type rawHTMLParser struct{}

func (rawHTMLParser) Triggers() []byte { return []byte{'<'} }

func (rawHTMLParser) ParseInline(s *Scanner) *Inline {
	start := s.Position()
	if !scanHTMLTag(s) {
		return nil
	}
	return NewRawHTML(s.Text(start, s.Position()))
}
