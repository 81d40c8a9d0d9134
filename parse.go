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

// Package inlinemark provides an extensible parser for [CommonMark] inline content:
// emphasis, links, images, code spans, and the like.
//
// Block structure is out of scope for the parser:
// callers hand an [InlineParser] the lines of a single block
// and get back a tree of [Inline] nodes.
// [BlockReader] provides a minimal paragraph splitter
// for callers that do not have a block parser of their own.
//
// [CommonMark]: https://commonmark.org/
package inlinemark

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Options is the set of parameters to [NewInlineParser].
type Options struct {
	// References is used to resolve reference links.
	// If nil, reference links are not recognized.
	References ReferenceResolver

	// DelimiterProcessors are added after the built-in emphasis processors.
	// Processors whose opening and closing delimiters are the same character
	// may share that character if their minimum lengths differ.
	DelimiterProcessors []DelimiterProcessor

	// ContentParsers are consulted after the built-in parsers
	// for their trigger characters, in the order given.
	ContentParsers []InlineContentParser

	// If IncludeSourceSpans is true, nodes record their locations in the document.
	IncludeSourceSpans bool
}

// An InlineParser converts the lines of a block into inline nodes.
// It is safe to call methods on an InlineParser from multiple goroutines.
type InlineParser struct {
	refs           ReferenceResolver
	processors     map[byte]DelimiterProcessor
	contentParsers map[byte][]InlineContentParser
	special        charSet
	includeSpans   bool
}

// NewInlineParser returns a new parser with the given options.
// A nil opts is treated the same as an empty one.
// NewInlineParser returns an error wrapping [ErrDelimiterConflict]
// if two delimiter processors cannot be combined.
func NewInlineParser(opts *Options) (*InlineParser, error) {
	if opts == nil {
		opts = new(Options)
	}
	p := &InlineParser{
		refs:           opts.References,
		contentParsers: make(map[byte][]InlineContentParser),
		includeSpans:   opts.IncludeSourceSpans,
	}
	var err error
	p.processors, err = buildDelimiterProcessors(opts.DelimiterProcessors)
	if err != nil {
		return nil, fmt.Errorf("new inline parser: %w", err)
	}
	for _, cp := range builtinContentParsers {
		p.addContentParser(cp)
	}
	for _, cp := range opts.ContentParsers {
		for _, c := range cp.Triggers() {
			if c >= utf8.RuneSelf {
				return nil, fmt.Errorf("new inline parser: trigger character %q is not ASCII", c)
			}
		}
		p.addContentParser(cp)
	}

	for _, c := range []byte("[]!\n") {
		p.special.add(c)
	}
	for c := range p.processors {
		p.special.add(c)
	}
	for c := range p.contentParsers {
		p.special.add(c)
	}
	return p, nil
}

func (p *InlineParser) addContentParser(cp InlineContentParser) {
	for _, c := range cp.Triggers() {
		p.contentParsers[c] = append(p.contentParsers[c], cp)
	}
}

// Parse parses the lines of a block into a sequence of inline nodes.
func (p *InlineParser) Parse(lines SourceLines) []*Inline {
	state := &inlineState{
		InlineParser: p,
		scanner:      NewScanner(lines),
		head:         -1,
		tail:         -1,
		lastDelim:    -1,
		lastBracket:  -1,
	}
	state.scanner.includeSpans = p.includeSpans
	for state.parseInline() {
	}
	state.processDelimiters(-1)
	root := &Inline{children: state.collect(state.head, -1)}
	mergeText(root)
	return root.children
}

// ParseInto parses the lines of a block
// and appends the resulting nodes to parent's children.
func (p *InlineParser) ParseInto(parent *Inline, lines SourceLines) {
	parent.children = append(parent.children, p.Parse(lines)...)
}

// ParseString parses s with the default options.
// Lines are separated by line feeds.
func ParseString(s string) []*Inline {
	p, err := NewInlineParser(nil)
	if err != nil {
		panic(err)
	}
	return p.Parse(LinesFromString(s))
}

// inlineState is the state of a single call to [*InlineParser.Parse].
type inlineState struct {
	*InlineParser
	scanner *Scanner

	// pending holds the nodes produced so far
	// that have not been moved into a link, image, or delimited node.
	// The live elements form a list from head to tail in document order.
	pending    []pendingNode
	head, tail int

	delims    []delimiter
	lastDelim int

	brackets    []bracket
	lastBracket int
	// linkOpenersBottom is the index in brackets
	// below which link openers may no longer form links.
	linkOpenersBottom int

	// trailingSpaces is the number of spaces stripped from the end of the last line.
	trailingSpaces int
}

// pendingNode is an element of [inlineState.pending].
type pendingNode struct {
	node *Inline
	prev int
	next int
}

// add appends a node to the end of the pending list
// and returns its index in [inlineState.pending].
func (state *inlineState) add(node *Inline) int {
	state.pending = append(state.pending, pendingNode{
		node: node,
		prev: state.tail,
		next: -1,
	})
	i := len(state.pending) - 1
	if state.tail >= 0 {
		state.pending[state.tail].next = i
	} else {
		state.head = i
	}
	state.tail = i
	return i
}

// collect returns the pending nodes from index first up to (but not including) stop.
// A stop of -1 collects through the end of the list.
func (state *inlineState) collect(first, stop int) []*Inline {
	var nodes []*Inline
	for i := first; i >= 0 && i != stop; i = state.pending[i].next {
		nodes = append(nodes, state.pending[i].node)
	}
	return nodes
}

// replace substitutes node for the pending nodes from first through last inclusive
// and returns the index of node.
func (state *inlineState) replace(first, last int, node *Inline) int {
	prev := state.pending[first].prev
	next := state.pending[last].next
	state.pending = append(state.pending, pendingNode{
		node: node,
		prev: prev,
		next: next,
	})
	i := len(state.pending) - 1
	if prev >= 0 {
		state.pending[prev].next = i
	} else {
		state.head = i
	}
	if next >= 0 {
		state.pending[next].prev = i
	} else {
		state.tail = i
	}
	return i
}

// truncate removes the pending node at index first and every node after it.
func (state *inlineState) truncate(first int) {
	state.tail = state.pending[first].prev
	if state.tail >= 0 {
		state.pending[state.tail].next = -1
	} else {
		state.head = -1
	}
}

// text returns a new text node for the input between two positions.
func (state *inlineState) text(begin, end Position) *Inline {
	node := NewText(state.scanner.Text(begin, end))
	node.spans = state.scanner.Spans(begin, end)
	return node
}

// parseInline parses the next inline element.
// It returns false at the end of input.
func (state *inlineState) parseInline() bool {
	s := state.scanner
	c := s.Peek()
	switch c {
	case End:
		return false
	case '[':
		state.parseOpenBracket()
		return true
	case '!':
		state.parseBang()
		return true
	case ']':
		state.parseCloseBracket()
		return true
	case '\n':
		state.parseLineBreak()
		return true
	}
	if !state.special.has(c) {
		state.parseText()
		return true
	}

	for _, cp := range state.contentParsers[byte(c)] {
		start := s.Position()
		node := cp.ParseInline(s)
		if node != nil && start.Less(s.Position()) {
			if state.includeSpans && len(node.spans) == 0 {
				node.spans = s.Spans(start, s.Position())
			}
			state.add(node)
			return true
		}
		s.SetPosition(start)
	}
	if p := state.processors[byte(c)]; p != nil && state.parseDelimiters(p, byte(c)) {
		return true
	}
	state.parseText()
	return true
}

// parseText consumes a run of characters up to the next special character.
// The first character is always consumed.
func (state *inlineState) parseText() {
	s := state.scanner
	start := s.Position()
	s.Next()
	for {
		c := s.Peek()
		if c == End || state.special.has(c) {
			break
		}
		s.Next()
	}

	source := s.Source(start, s.Position())
	content := source.Content()
	state.trailingSpaces = 0
	switch s.Peek() {
	case '\n':
		trimmed := strings.TrimRight(content, " ")
		state.trailingSpaces = len(content) - len(trimmed)
		content = trimmed
	case End:
		content = strings.TrimRight(content, " \t")
	}
	if content == "" {
		return
	}
	node := NewText(content)
	if state.includeSpans {
		// Text runs never cross lines.
		node.spans = source[:1].Spans()
		if len(node.spans) > 0 {
			node.spans[0].Length = len(content)
		}
	}
	state.add(node)
}

// parseLineBreak handles a line ending,
// which is a hard line break if preceded by two or more spaces.
func (state *inlineState) parseLineBreak() {
	state.scanner.Next()
	kind := SoftLineBreakKind
	if state.trailingSpaces >= 2 {
		kind = HardLineBreakKind
	}
	state.trailingSpaces = 0
	state.add(NewInline(kind))
}
