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
	"errors"
	"fmt"
	"slices"
	"strings"
	"unicode/utf8"
)

// ErrDelimiterConflict is returned by [NewInlineParser]
// when two delimiter processors cannot share a delimiter character.
var ErrDelimiterConflict = errors.New("delimiter processor conflict")

// A DelimiterRun describes one side of a potential match
// passed to a [DelimiterProcessor].
type DelimiterRun struct {
	// Delimiter is the character the run consists of.
	Delimiter byte
	// Len is the number of delimiter characters
	// that have not been consumed by earlier matches.
	Len int
	// OriginalLen is the length of the run as it appeared in the source.
	OriginalLen int
	// CanOpen and CanClose report whether the run
	// may start or end a delimited node.
	CanOpen  bool
	CanClose bool
}

// A DelimiterProcessor turns matching runs of delimiter characters
// into nodes, as emphasis does for '*' and '_'.
// DelimiterProcessors must be safe to call from multiple goroutines.
type DelimiterProcessor interface {
	// OpeningDelimiter and ClosingDelimiter return the characters of the
	// opening and closing runs. They must be ASCII punctuation.
	OpeningDelimiter() byte
	ClosingDelimiter() byte
	// MinLength returns the minimum number of characters in a run
	// for the run to be considered a delimiter.
	MinLength() int
	// Process returns the number of delimiter characters to consume
	// from each of the opener and closer,
	// or 0 if the runs do not match.
	Process(opener, closer DelimiterRun) int
	// Wrap returns a node containing the content between a matched opener and closer.
	// The runs are the same values that were passed to Process
	// and used is the value Process returned.
	// Wrap must not return nil.
	Wrap(opener, closer DelimiterRun, used int, content []*Inline) *Inline
}

// emphasisProcessor implements [emphasis and strong emphasis] for '*' and '_'.
//
// [emphasis and strong emphasis]: https://spec.commonmark.org/0.31.2/#emphasis-and-strong-emphasis
type emphasisProcessor struct {
	c byte
}

func (p emphasisProcessor) OpeningDelimiter() byte { return p.c }
func (p emphasisProcessor) ClosingDelimiter() byte { return p.c }
func (p emphasisProcessor) MinLength() int         { return 1 }

func (p emphasisProcessor) Process(opener, closer DelimiterRun) int {
	// "Multiple of 3" rule for internal delimiter runs.
	if (opener.CanClose || closer.CanOpen) &&
		closer.OriginalLen%3 != 0 &&
		(opener.OriginalLen+closer.OriginalLen)%3 == 0 {
		return 0
	}
	if opener.Len >= 2 && closer.Len >= 2 {
		return 2
	}
	return 1
}

func (p emphasisProcessor) Wrap(opener, closer DelimiterRun, used int, content []*Inline) *Inline {
	kind := EmphasisKind
	if used == 2 {
		kind = StrongKind
	}
	return NewDelimited(kind, strings.Repeat(string(rune(p.c)), used), content...)
}

// staggeredProcessor combines processors that share a delimiter character
// but require different run lengths.
type staggeredProcessor struct {
	c byte
	// processors is sorted by descending MinLength.
	processors []DelimiterProcessor
}

func (sp *staggeredProcessor) add(p DelimiterProcessor) error {
	n := p.MinLength()
	i := 0
	for ; i < len(sp.processors); i++ {
		m := sp.processors[i].MinLength()
		if n == m {
			return fmt.Errorf("%w: two processors for %q with minimum length %d",
				ErrDelimiterConflict, rune(sp.c), n)
		}
		if n > m {
			break
		}
	}
	sp.processors = slices.Insert(sp.processors, i, p)
	return nil
}

// find returns the processor with the largest minimum length
// that does not exceed n.
func (sp *staggeredProcessor) find(n int) DelimiterProcessor {
	for _, p := range sp.processors {
		if p.MinLength() <= n {
			return p
		}
	}
	return sp.processors[0]
}

func (sp *staggeredProcessor) OpeningDelimiter() byte { return sp.c }
func (sp *staggeredProcessor) ClosingDelimiter() byte { return sp.c }

func (sp *staggeredProcessor) MinLength() int {
	return sp.processors[len(sp.processors)-1].MinLength()
}

func (sp *staggeredProcessor) Process(opener, closer DelimiterRun) int {
	return sp.find(opener.Len).Process(opener, closer)
}

func (sp *staggeredProcessor) Wrap(opener, closer DelimiterRun, used int, content []*Inline) *Inline {
	return sp.find(opener.Len).Wrap(opener, closer, used, content)
}

// buildDelimiterProcessors indexes the built-in emphasis processors
// and the given processors by delimiter character.
func buildDelimiterProcessors(custom []DelimiterProcessor) (map[byte]DelimiterProcessor, error) {
	m := make(map[byte]DelimiterProcessor)
	all := make([]DelimiterProcessor, 0, 2+len(custom))
	all = append(all, emphasisProcessor{'*'}, emphasisProcessor{'_'})
	all = append(all, custom...)
	for _, p := range all {
		opening, closing := p.OpeningDelimiter(), p.ClosingDelimiter()
		if opening >= utf8.RuneSelf || closing >= utf8.RuneSelf {
			return nil, fmt.Errorf("%w: delimiter %q is not ASCII", ErrDelimiterConflict, opening)
		}
		if opening != closing {
			if err := addDelimiterProcessor(m, opening, p); err != nil {
				return nil, err
			}
			if err := addDelimiterProcessor(m, closing, p); err != nil {
				return nil, err
			}
			continue
		}
		old := m[opening]
		if old == nil || old.OpeningDelimiter() != old.ClosingDelimiter() {
			if err := addDelimiterProcessor(m, opening, p); err != nil {
				return nil, err
			}
			continue
		}
		sp, ok := old.(*staggeredProcessor)
		if !ok {
			sp = &staggeredProcessor{c: opening}
			if err := sp.add(old); err != nil {
				return nil, err
			}
		}
		if err := sp.add(p); err != nil {
			return nil, err
		}
		m[opening] = sp
	}
	return m, nil
}

func addDelimiterProcessor(m map[byte]DelimiterProcessor, c byte, p DelimiterProcessor) error {
	if _, exists := m[c]; exists {
		return fmt.Errorf("%w: delimiter %q already in use", ErrDelimiterConflict, rune(c))
	}
	m[c] = p
	return nil
}

// delimiter is an element of the delimiter stack.
// Elements are linked by index into [inlineState.delims].
type delimiter struct {
	// chars holds the [inlineState.pending] indices
	// of one TextKind node per unconsumed delimiter character.
	chars       []int
	c           byte
	originalLen int
	canOpen     bool
	canClose    bool
	prev        int
	next        int
}

func (d *delimiter) run() DelimiterRun {
	return DelimiterRun{
		Delimiter:   d.c,
		Len:         len(d.chars),
		OriginalLen: d.originalLen,
		CanOpen:     d.canOpen,
		CanClose:    d.canClose,
	}
}

// parseDelimiters scans a run of delimiter characters
// and pushes it onto the delimiter stack.
// It returns false without consuming input
// if the run is shorter than the processor's minimum length.
func (state *inlineState) parseDelimiters(p DelimiterProcessor, c byte) bool {
	s := state.scanner
	before := s.PeekPrevious()
	start := s.Position()
	n := s.MatchMultiple(rune(c))
	if n < p.MinLength() {
		s.SetPosition(start)
		return false
	}

	s.SetPosition(start)
	chars := make([]int, 0, n)
	for pos := start; s.NextIf(rune(c)); pos = s.Position() {
		node := NewText(string(rune(c)))
		node.spans = s.Spans(pos, s.Position())
		chars = append(chars, state.add(node))
	}
	canOpen, canClose := delimiterFlags(before, s.Peek(), c, p)

	state.delims = append(state.delims, delimiter{
		chars:       chars,
		c:           c,
		originalLen: n,
		canOpen:     canOpen,
		canClose:    canClose,
		prev:        state.lastDelim,
		next:        -1,
	})
	i := len(state.delims) - 1
	if state.lastDelim >= 0 {
		state.delims[state.lastDelim].next = i
	}
	state.lastDelim = i
	return true
}

// delimiterFlags determines whether a [delimiter run] can open or close
// given the characters surrounding it.
// The start and end of input count as both whitespace and punctuation.
//
// [delimiter run]: https://spec.commonmark.org/0.31.2/#delimiter-run
func delimiterFlags(before, after rune, c byte, p DelimiterProcessor) (canOpen, canClose bool) {
	beforeIsPunctuation := before == End || isUnicodePunctuation(before)
	beforeIsWhitespace := before == End || isUnicodeWhitespace(before)
	afterIsPunctuation := after == End || isUnicodePunctuation(after)
	afterIsWhitespace := after == End || isUnicodeWhitespace(after)

	leftFlanking := !afterIsWhitespace &&
		(!afterIsPunctuation || beforeIsWhitespace || beforeIsPunctuation)
	rightFlanking := !beforeIsWhitespace &&
		(!beforeIsPunctuation || afterIsWhitespace || afterIsPunctuation)
	if c == '_' {
		canOpen = leftFlanking && (!rightFlanking || beforeIsPunctuation)
		canClose = rightFlanking && (!leftFlanking || afterIsPunctuation)
	} else {
		canOpen = leftFlanking && c == p.OpeningDelimiter()
		canClose = rightFlanking && c == p.ClosingDelimiter()
	}
	return canOpen, canClose
}

// openersBottomKey identifies the closers that share a lower bound
// in the search for openers.
type openersBottomKey struct {
	c       byte
	canOpen bool
	mod3    int
}

// processDelimiters resolves the delimiters above stackBottom
// (or all delimiters if stackBottom is -1).
// All delimiters above stackBottom are removed from the stack afterward.
//
// This corresponds to the [process emphasis] procedure.
//
// [process emphasis]: https://spec.commonmark.org/0.31.2/#process-emphasis
func (state *inlineState) processDelimiters(stackBottom int) {
	// Delimiter indices increase from the bottom of the stack to the top,
	// so a lower bound is the largest index that openers must exceed.
	var openersBottom map[openersBottomKey]int
	bound := func(key openersBottomKey) int {
		if bottom, ok := openersBottom[key]; ok {
			return max(stackBottom, bottom)
		}
		return stackBottom
	}
	setBottom := func(key openersBottomKey, i int) {
		if openersBottom == nil {
			openersBottom = make(map[openersBottomKey]int)
		}
		openersBottom[key] = i
	}

	// Find first closer above stackBottom.
	closer := -1
	if state.lastDelim != stackBottom {
		closer = state.lastDelim
		for closer >= 0 && state.delims[closer].prev != stackBottom {
			closer = state.delims[closer].prev
		}
	}

closerLoop:
	for closer >= 0 {
		cd := &state.delims[closer]
		p := state.processors[cd.c]
		if !cd.canClose || p == nil {
			closer = cd.next
			continue
		}
		openingChar := p.OpeningDelimiter()
		key := openersBottomKey{c: cd.c, canOpen: cd.canOpen, mod3: cd.originalLen % 3}
		lower := bound(key)

		// Look back for the first matching opener.
		potentialOpenerFound := false
		for opener := cd.prev; opener > lower; opener = state.delims[opener].prev {
			od := &state.delims[opener]
			if !od.canOpen || od.c != openingChar {
				continue
			}
			potentialOpenerFound = true
			openerRun, closerRun := od.run(), cd.run()
			used := p.Process(openerRun, closerRun)
			if used <= 0 {
				continue
			}
			used = min(used, openerRun.Len, closerRun.Len)
			state.wrapDelimited(p, opener, closer, used, openerRun, closerRun)
			state.removeDelimitersBetween(opener, closer)
			if len(od.chars) == 0 {
				state.removeDelimiter(opener)
			}
			if len(cd.chars) == 0 {
				next := cd.next
				state.removeDelimiter(closer)
				closer = next
			}
			continue closerLoop
		}

		if !potentialOpenerFound {
			// There are no openers for this character above lower,
			// so later closers whose search already stops at or above lower
			// can stop at this closer instead.
			for _, canOpen := range []bool{false, true} {
				for mod3 := 0; mod3 < 3; mod3++ {
					k := openersBottomKey{c: cd.c, canOpen: canOpen, mod3: mod3}
					if bound(k) >= lower {
						setBottom(k, cd.prev)
					}
				}
			}
			if !cd.canOpen {
				next := cd.next
				state.removeDelimiter(closer)
				closer = next
				continue
			}
		} else if _, ok := p.(emphasisProcessor); ok {
			// Emphasis rejections depend only on the opener and the closer's key.
			setBottom(key, cd.prev)
		}
		closer = cd.next
	}

	for state.lastDelim >= 0 && state.lastDelim != stackBottom {
		state.removeDelimiter(state.lastDelim)
	}
}

// wrapDelimited replaces the used delimiter characters of opener and closer
// and the pending nodes between them with the node produced by the processor.
func (state *inlineState) wrapDelimited(p DelimiterProcessor, opener, closer, used int, openerRun, closerRun DelimiterRun) {
	od := &state.delims[opener]
	cd := &state.delims[closer]
	first := od.chars[len(od.chars)-used]
	last := cd.chars[used-1]

	content := state.collect(state.pending[od.chars[len(od.chars)-1]].next, cd.chars[0])
	node := p.Wrap(openerRun, closerRun, used, content)
	if node == nil {
		panic("DelimiterProcessor.Wrap returned nil")
	}
	if state.includeSpans && len(node.spans) == 0 {
		var spans []SourceSpan
		for i := first; ; i = state.pending[i].next {
			spans = mergeSpans(spans, state.pending[i].node.spans)
			if i == last {
				break
			}
		}
		node.spans = spans
	}
	state.replace(first, last, node)

	od.chars = od.chars[:len(od.chars)-used]
	cd.chars = cd.chars[used:]
}

// removeDelimiter unlinks a delimiter from the stack.
// Its character nodes are left in the tree as literal text.
func (state *inlineState) removeDelimiter(i int) {
	d := &state.delims[i]
	if d.prev >= 0 {
		state.delims[d.prev].next = d.next
	}
	if d.next >= 0 {
		state.delims[d.next].prev = d.prev
	} else {
		state.lastDelim = d.prev
	}
}

func (state *inlineState) removeDelimitersBetween(opener, closer int) {
	for d := state.delims[closer].prev; d >= 0 && d != opener; {
		prev := state.delims[d].prev
		state.removeDelimiter(d)
		d = prev
	}
}
