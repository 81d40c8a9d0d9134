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

	"golang.org/x/net/html/atom"
)

const (
	htmlCommentPrefix           = "<!--"
	htmlCommentSuffix           = "-->"
	processingInstructionPrefix = "<?"
	processingInstructionSuffix = "?>"
	cdataPrefix                 = "<![CDATA["
	cdataSuffix                 = "]]>"
)

// scanHTMLTag scans an [HTML tag] starting at '<'.
// The scanner's position is undefined if scanHTMLTag returns false.
//
// [HTML tag]: https://spec.commonmark.org/0.31.2/#html-tag
func scanHTMLTag(s *Scanner) bool {
	switch {
	case matchLiteral(s, htmlCommentPrefix):
		// Comment. "<!-->" and "<!--->" are complete comments.
		if s.NextIf('>') || matchLiteral(s, "->") {
			return true
		}
		return scanUntil(s, htmlCommentSuffix)
	case matchLiteral(s, processingInstructionPrefix):
		return scanUntil(s, processingInstructionSuffix)
	case matchLiteral(s, cdataPrefix):
		return scanUntil(s, cdataSuffix)
	case matchLiteral(s, "<!"):
		// Declaration.
		if !isASCIILetter(s.Peek()) {
			return false
		}
		return scanUntil(s, ">")
	case matchLiteral(s, "</"):
		return scanHTMLClosingTag(s)
	case s.NextIf('<'):
		return scanHTMLOpenTag(s)
	default:
		return false
	}
}

// scanHTMLOpenTag scans an [open tag] sans the leading '<'.
//
// [open tag]: https://spec.commonmark.org/0.31.2/#open-tag
func scanHTMLOpenTag(s *Scanner) bool {
	if !scanHTMLTagName(s) {
		return false
	}
	for {
		space := skipHTMLSpace(s)
		switch {
		case s.NextIf('/'):
			return s.NextIf('>')
		case s.NextIf('>'):
			return true
		}
		if space == 0 || !scanHTMLAttribute(s) {
			return false
		}
	}
}

// scanHTMLClosingTag scans a [closing tag] sans the leading "</".
//
// [closing tag]: https://spec.commonmark.org/0.31.2/#closing-tag
func scanHTMLClosingTag(s *Scanner) bool {
	if !scanHTMLTagName(s) {
		return false
	}
	skipHTMLSpace(s)
	return s.NextIf('>')
}

func scanHTMLTagName(s *Scanner) bool {
	if !isASCIILetter(s.Peek()) {
		return false
	}
	s.Next()
	for c := s.Peek(); isASCIIAlnum(c) || c == '-'; c = s.Peek() {
		s.Next()
	}
	return true
}

func scanHTMLAttribute(s *Scanner) bool {
	// Attribute name.
	if c := s.Peek(); !isASCIILetter(c) && c != '_' && c != ':' {
		return false
	}
	s.Next()
	for c := s.Peek(); isASCIIAlnum(c) || strings.ContainsRune("_.:-", c); c = s.Peek() {
		s.Next()
	}

	// Attribute value specification.
	// Don't consume space unless it is followed by an equal sign,
	// since it will cause future attributes to fail.
	beforeSpace := s.Position()
	skipHTMLSpace(s)
	if !s.NextIf('=') {
		s.SetPosition(beforeSpace)
		return true
	}
	skipHTMLSpace(s)
	switch c := s.Peek(); {
	case c == '\'' || c == '"':
		s.Next()
		if s.Find(c) < 0 {
			return false
		}
		s.Next()
		return true
	case isUnquotedAttributeValueChar(c):
		for isUnquotedAttributeValueChar(s.Peek()) {
			s.Next()
		}
		return true
	default:
		return false
	}
}

// skipHTMLSpace skips spaces, tabs, and line endings
// and returns the number of characters skipped.
func skipHTMLSpace(s *Scanner) int {
	n := 0
	for {
		switch s.Peek() {
		case ' ', '\t', '\n':
			s.Next()
			n++
		default:
			return n
		}
	}
}

func isUnquotedAttributeValueChar(c rune) bool {
	return c != End && !isUnicodeWhitespace(c) && !strings.ContainsRune("\"'=<>`", c)
}

// matchLiteral advances past lit if the input at the current position starts with it.
// lit must be ASCII.
func matchLiteral(s *Scanner, lit string) bool {
	start := s.Position()
	for i := 0; i < len(lit); i++ {
		if !s.NextIf(rune(lit[i])) {
			s.SetPosition(start)
			return false
		}
	}
	return true
}

// scanUntil advances past the next occurrence of suffix.
func scanUntil(s *Scanner, suffix string) bool {
	for {
		if matchLiteral(s, suffix) {
			return true
		}
		if !s.HasNext() {
			return false
		}
		s.Next()
	}
}

// isHTMLBlockStart reports whether line starts an [HTML block]
// of the kinds that [BlockReader] passes through without inline parsing:
// raw text elements, comments, processing instructions, declarations,
// CDATA sections, and the known block-level elements.
//
// [HTML block]: https://spec.commonmark.org/0.31.2/#html-blocks
func isHTMLBlockStart(line string) bool {
	line = strings.TrimLeft(line, " ")
	switch {
	case strings.HasPrefix(line, htmlCommentPrefix),
		strings.HasPrefix(line, processingInstructionPrefix),
		strings.HasPrefix(line, cdataPrefix):
		return true
	case strings.HasPrefix(line, "<!") && len(line) >= 3 && isASCIILetter(rune(line[2])):
		return true
	case strings.HasPrefix(line, "</"):
		return hasHTMLBlockTag(line[2:], htmlBlockStarters)
	case strings.HasPrefix(line, "<"):
		return hasHTMLBlockTag(line[1:], htmlRawTextStarters) ||
			hasHTMLBlockTag(line[1:], htmlBlockStarters)
	default:
		return false
	}
}

func hasHTMLBlockTag(line string, tags []string) bool {
	for _, tag := range tags {
		if len(line) < len(tag) || !strings.EqualFold(line[:len(tag)], tag) {
			continue
		}
		rest := line[len(tag):]
		if rest == "" || rest[0] == ' ' || rest[0] == '\t' || rest[0] == '>' || strings.HasPrefix(rest, "/>") {
			return true
		}
	}
	return false
}

var (
	htmlRawTextStarters = []string{
		atom.Pre.String(),
		atom.Script.String(),
		atom.Style.String(),
		atom.Textarea.String(),
	}

	htmlBlockStarters = []string{
		atom.Address.String(),
		atom.Article.String(),
		atom.Aside.String(),
		atom.Base.String(),
		atom.Basefont.String(),
		atom.Blockquote.String(),
		atom.Body.String(),
		atom.Caption.String(),
		atom.Center.String(),
		atom.Col.String(),
		atom.Colgroup.String(),
		atom.Dd.String(),
		atom.Details.String(),
		atom.Dialog.String(),
		atom.Dir.String(),
		atom.Div.String(),
		atom.Dl.String(),
		atom.Dt.String(),
		atom.Fieldset.String(),
		atom.Figcaption.String(),
		atom.Figure.String(),
		atom.Footer.String(),
		atom.Form.String(),
		atom.Frame.String(),
		atom.Frameset.String(),
		atom.H1.String(),
		atom.H2.String(),
		atom.H3.String(),
		atom.H4.String(),
		atom.H5.String(),
		atom.H6.String(),
		atom.Head.String(),
		atom.Header.String(),
		atom.Hr.String(),
		atom.Html.String(),
		atom.Iframe.String(),
		atom.Legend.String(),
		atom.Li.String(),
		atom.Link.String(),
		atom.Main.String(),
		atom.Menu.String(),
		atom.Menuitem.String(),
		atom.Nav.String(),
		atom.Noframes.String(),
		atom.Ol.String(),
		atom.Optgroup.String(),
		atom.Option.String(),
		atom.P.String(),
		atom.Param.String(),
		atom.Section.String(),
		atom.Source.String(),
		atom.Summary.String(),
		atom.Table.String(),
		atom.Tbody.String(),
		atom.Td.String(),
		atom.Tfoot.String(),
		atom.Th.String(),
		atom.Thead.String(),
		atom.Title.String(),
		atom.Tr.String(),
		atom.Track.String(),
		atom.Ul.String(),
	}
)
