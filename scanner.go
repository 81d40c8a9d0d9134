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
)

// End is returned by [*Scanner.Peek] and [*Scanner.PeekPrevious]
// when there are no more characters in that direction.
const End rune = -1

// A SourceSpan is a contiguous range of bytes on a single line of the document.
type SourceSpan struct {
	// Line is the zero-based line number in the document.
	Line int
	// Column is the zero-based byte offset from the beginning of the line.
	Column int
	// Length is the number of bytes in the span.
	Length int
}

// A SourceLine is a single line of block content,
// without its line ending.
type SourceLine struct {
	Text string
	// Span is the location of Text in the document.
	// A zero-length Span means that the location is unknown.
	Span SourceSpan
}

// slice returns the portion of the line between the byte offsets begin and end.
func (line SourceLine) slice(begin, end int) SourceLine {
	out := SourceLine{Text: line.Text[begin:end]}
	if line.Span.Length > 0 && begin < end {
		out.Span = SourceSpan{
			Line:   line.Span.Line,
			Column: line.Span.Column + begin,
			Length: end - begin,
		}
	}
	return out
}

// SourceLines is the content of a block as handed to an [InlineParser].
type SourceLines []SourceLine

// LinesFromString splits s on line feeds
// and assigns each line a span starting at column 0.
func LinesFromString(s string) SourceLines {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, "\n")
	lines := make(SourceLines, len(parts))
	for i, part := range parts {
		lines[i] = SourceLine{
			Text: part,
			Span: SourceSpan{Line: i, Length: len(part)},
		}
	}
	return lines
}

// Content returns the text of the lines joined by line feeds.
func (lines SourceLines) Content() string {
	switch len(lines) {
	case 0:
		return ""
	case 1:
		return lines[0].Text
	}
	sb := new(strings.Builder)
	for i, line := range lines {
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(line.Text)
	}
	return sb.String()
}

// Spans returns the known locations of the lines,
// with adjacent spans on the same line merged.
func (lines SourceLines) Spans() []SourceSpan {
	var spans []SourceSpan
	for _, line := range lines {
		spans = appendSpan(spans, line.Span)
	}
	return spans
}

func appendSpan(spans []SourceSpan, span SourceSpan) []SourceSpan {
	if span.Length == 0 {
		return spans
	}
	if n := len(spans); n > 0 {
		last := &spans[n-1]
		if last.Line == span.Line && last.Column+last.Length == span.Column {
			last.Length += span.Length
			return spans
		}
	}
	return append(spans, span)
}

// mergeSpans returns a new slice containing the spans of a followed by b.
func mergeSpans(a, b []SourceSpan) []SourceSpan {
	if len(a) == 0 && len(b) == 0 {
		return nil
	}
	out := make([]SourceSpan, 0, len(a)+len(b))
	for _, span := range a {
		out = appendSpan(out, span)
	}
	for _, span := range b {
		out = appendSpan(out, span)
	}
	return out
}

// A Position is a location in a [Scanner]'s input.
// Positions are only meaningful for the Scanner that produced them.
type Position struct {
	line  int
	index int
}

// Less reports whether p comes before q.
func (p Position) Less(q Position) bool {
	return p.line < q.line || p.line == q.line && p.index < q.index
}

// A Scanner is a cursor over [SourceLines].
// Characters are read as whole UTF-8 code points
// and the boundary between two lines reads as a single '\n'.
type Scanner struct {
	lines        SourceLines
	lineIndex    int
	index        int
	line         string
	includeSpans bool
}

// NewScanner returns a new scanner positioned at the start of lines.
func NewScanner(lines SourceLines) *Scanner {
	s := &Scanner{lines: lines}
	if len(lines) > 0 {
		s.line = lines[0].Text
	}
	return s
}

// Peek returns the character at the current position
// or [End] if the scanner is at the end of its input.
func (s *Scanner) Peek() rune {
	if s.index < len(s.line) {
		if c := s.line[s.index]; c < utf8.RuneSelf {
			return rune(c)
		}
		c, _ := utf8.DecodeRuneInString(s.line[s.index:])
		return c
	}
	if s.lineIndex < len(s.lines)-1 {
		return '\n'
	}
	return End
}

// PeekPrevious returns the character before the current position
// or [End] if the scanner is at the start of its input.
func (s *Scanner) PeekPrevious() rune {
	if s.index > 0 {
		c, _ := utf8.DecodeLastRuneInString(s.line[:s.index])
		return c
	}
	if s.lineIndex > 0 {
		return '\n'
	}
	return End
}

// HasNext reports whether [*Scanner.Peek] would return a character other than [End].
func (s *Scanner) HasNext() bool {
	return s.index < len(s.line) || s.lineIndex < len(s.lines)-1
}

// Next advances past the current character.
// Next is a no-op at the end of input.
func (s *Scanner) Next() {
	if s.index < len(s.line) {
		if s.line[s.index] < utf8.RuneSelf {
			s.index++
		} else {
			_, n := utf8.DecodeRuneInString(s.line[s.index:])
			s.index += n
		}
		return
	}
	if s.lineIndex < len(s.lines)-1 {
		s.lineIndex++
		s.line = s.lines[s.lineIndex].Text
		s.index = 0
	}
}

// NextIf advances past the current character if it is c
// and reports whether it did so.
func (s *Scanner) NextIf(c rune) bool {
	if c == End || s.Peek() != c {
		return false
	}
	s.Next()
	return true
}

// MatchMultiple advances past a run of c characters
// and returns the length of the run.
func (s *Scanner) MatchMultiple(c rune) int {
	n := 0
	for s.NextIf(c) {
		n++
	}
	return n
}

// Whitespace advances past spaces, tabs, line endings, vertical tabs, and form feeds
// and returns the number of characters skipped.
func (s *Scanner) Whitespace() int {
	n := 0
	for {
		switch s.Peek() {
		case ' ', '\t', '\n', '\v', '\f', '\r':
			s.Next()
			n++
		default:
			return n
		}
	}
}

// Find advances to the next occurrence of c
// and returns the number of characters skipped.
// If c does not occur in the rest of the input,
// Find returns -1 and leaves the scanner at the end of input.
func (s *Scanner) Find(c rune) int {
	n := 0
	for {
		switch s.Peek() {
		case End:
			return -1
		case c:
			return n
		}
		n++
		s.Next()
	}
}

// Position returns the scanner's current position.
func (s *Scanner) Position() Position {
	return Position{line: s.lineIndex, index: s.index}
}

// SetPosition moves the scanner to a position previously returned by [*Scanner.Position].
func (s *Scanner) SetPosition(pos Position) {
	s.lineIndex = pos.line
	s.index = pos.index
	if pos.line < len(s.lines) {
		s.line = s.lines[pos.line].Text
	} else {
		s.line = ""
	}
}

// Source returns the input between two positions.
func (s *Scanner) Source(begin, end Position) SourceLines {
	if len(s.lines) == 0 || !begin.Less(end) {
		return nil
	}
	if begin.line == end.line {
		return SourceLines{s.lines[begin.line].slice(begin.index, end.index)}
	}
	out := make(SourceLines, 0, end.line-begin.line+1)
	first := s.lines[begin.line]
	out = append(out, first.slice(begin.index, len(first.Text)))
	out = append(out, s.lines[begin.line+1:end.line]...)
	out = append(out, s.lines[end.line].slice(0, end.index))
	return out
}

// Text returns the input between two positions as a string.
// Line boundaries are represented as '\n'.
func (s *Scanner) Text(begin, end Position) string {
	return s.Source(begin, end).Content()
}

// Spans returns the document locations of the input between two positions.
// It returns nil if the parser was not configured to record source spans.
func (s *Scanner) Spans(begin, end Position) []SourceSpan {
	if !s.includeSpans {
		return nil
	}
	return s.Source(begin, end).Spans()
}

// LineColumn maps a position to a zero-based line and byte column in the document.
// If the line's location is unknown,
// the line is relative to the start of the scanner's input.
func (s *Scanner) LineColumn(pos Position) (line, column int) {
	if pos.line >= len(s.lines) {
		return pos.line, pos.index
	}
	if span := s.lines[pos.line].Span; span.Length > 0 {
		return span.Line, span.Column + pos.index
	}
	return pos.line, pos.index
}
