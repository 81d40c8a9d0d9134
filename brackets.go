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

import "unicode/utf8"

// bracket is an element of the bracket stack:
// an opening "[" or "![" that may become a link or image.
// Elements are linked by index into [inlineState.brackets].
type bracket struct {
	// node is the index in [inlineState.pending]
	// of the placeholder text node for the "[" or "![".
	node int
	// markerPos is the position of the "[" or "!".
	markerPos Position
	// contentPos is the position after the "[".
	contentPos Position
	image      bool
	// bracketAfter is set when another bracket was opened after this one,
	// in which case the content cannot be used as a reference label.
	bracketAfter bool
	prev         int
	// prevDelim is the top of the delimiter stack when the bracket was opened.
	prevDelim int
}

func (state *inlineState) pushBracket(b bracket) {
	if state.lastBracket >= 0 {
		state.brackets[state.lastBracket].bracketAfter = true
	}
	b.prev = state.lastBracket
	b.prevDelim = state.lastDelim
	state.brackets = append(state.brackets, b)
	state.lastBracket = len(state.brackets) - 1
}

func (state *inlineState) popBracket() {
	state.lastBracket = state.brackets[state.lastBracket].prev
}

// parseOpenBracket handles "[".
func (state *inlineState) parseOpenBracket() {
	s := state.scanner
	start := s.Position()
	s.Next()
	contentPos := s.Position()
	state.pushBracket(bracket{
		node:       state.add(state.text(start, contentPos)),
		markerPos:  start,
		contentPos: contentPos,
	})
}

// parseBang handles "!", which starts an image if followed by "[".
func (state *inlineState) parseBang() {
	s := state.scanner
	start := s.Position()
	s.Next()
	if !s.NextIf('[') {
		state.add(state.text(start, s.Position()))
		return
	}
	contentPos := s.Position()
	state.pushBracket(bracket{
		node:       state.add(state.text(start, contentPos)),
		markerPos:  start,
		contentPos: contentPos,
		image:      true,
	})
}

// parseCloseBracket handles "]", which may complete a link or image.
// Otherwise it is literal text.
func (state *inlineState) parseCloseBracket() {
	s := state.scanner
	beforeClose := s.Position()
	s.Next()
	afterClose := s.Position()

	if state.lastBracket < 0 {
		state.add(state.text(beforeClose, afterClose))
		return
	}
	opener := state.brackets[state.lastBracket]
	if !opener.image && state.lastBracket < state.linkOpenersBottom {
		// Links may not contain other links.
		state.popBracket()
		state.add(state.text(beforeClose, afterClose))
		return
	}

	def, ok := state.parseInlineLink(afterClose)
	if !ok {
		def, ok = state.parseReferenceLink(opener, beforeClose, afterClose)
	}
	if !ok {
		state.popBracket()
		s.SetPosition(afterClose)
		state.add(state.text(beforeClose, afterClose))
		return
	}

	state.processDelimiters(opener.prevDelim)

	// Move everything after the placeholder into the new node.
	children := state.collect(state.pending[opener.node].next, -1)
	state.truncate(opener.node)
	var node *Inline
	if opener.image {
		node = NewImage(def, children...)
	} else {
		node = NewLink(def, children...)
	}
	node.spans = s.Spans(opener.markerPos, s.Position())
	state.popBracket()
	state.add(node)

	if !opener.image {
		// Every link opener still open encloses this link.
		state.linkOpenersBottom = len(state.brackets)
	}
}

// parseInlineLink parses the parenthesized destination and title
// of an [inline link] after the closing bracket.
// It restores the scanner position on failure.
//
// [inline link]: https://spec.commonmark.org/0.31.2/#inline-link
func (state *inlineState) parseInlineLink(afterClose Position) (LinkDefinition, bool) {
	s := state.scanner
	if !s.NextIf('(') {
		return LinkDefinition{}, false
	}
	s.Whitespace()
	dest, ok := parseLinkDestination(s)
	if !ok {
		s.SetPosition(afterClose)
		return LinkDefinition{}, false
	}
	def := LinkDefinition{Destination: dest}
	// A title must be separated from the destination by whitespace.
	if s.Whitespace() > 0 {
		beforeTitle := s.Position()
		if title, ok := parseLinkTitle(s); ok {
			def.Title = title
			def.TitlePresent = true
			s.Whitespace()
		} else {
			s.SetPosition(beforeTitle)
		}
	}
	if !s.NextIf(')') {
		s.SetPosition(afterClose)
		return LinkDefinition{}, false
	}
	return def, true
}

// parseReferenceLink resolves a [full, collapsed, or shortcut reference link].
// On failure, the scanner position is undefined.
//
// [full, collapsed, or shortcut reference link]: https://spec.commonmark.org/0.31.2/#reference-link
func (state *inlineState) parseReferenceLink(opener bracket, beforeClose, afterClose Position) (LinkDefinition, bool) {
	if state.refs == nil {
		return LinkDefinition{}, false
	}
	s := state.scanner
	label, hasLabel := parseLinkLabel(s)
	if !hasLabel {
		s.SetPosition(afterClose)
	}
	if label == "" {
		if opener.bracketAfter {
			// The bracket content contains another bracket,
			// so it cannot be a label.
			return LinkDefinition{}, false
		}
		label = s.Text(opener.contentPos, beforeClose)
		if utf8.RuneCountInString(label) > maxLinkLabelLength {
			return LinkDefinition{}, false
		}
	}
	return state.refs.ResolveReference(label)
}
