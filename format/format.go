// Copyright 2024 Ross Light
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

// Package format writes parsed inline content back out as Markdown
// that parses to the same inline tree.
//
// The output is canonical rather than a copy of the source:
// links and images always use the inline form with an angle-bracket destination,
// reference definitions are not written,
// and ASCII punctuation in text that could start an inline construct is escaped.
package format

import (
	"fmt"
	"io"
	"strings"

	"zombiezen.com/go/inlinemark"
)

// escapedPunctuation is the set of characters that are always escaped in text.
const escapedPunctuation = "\\`*_[]<&$~{}"

// Format writes the given blocks as Markdown to the given writer.
// Blocks are separated by blank lines.
func Format(w io.Writer, blocks []*inlinemark.Block) error {
	ww := &errWriter{w: w}
	var buf []byte
	for _, b := range blocks {
		switch b.Kind {
		case inlinemark.ParagraphKind:
			buf = AppendInlines(buf[:0], b.Inlines)
		case inlinemark.HTMLBlockKind:
			buf = append(buf[:0], b.Lines.Content()...)
		default:
			continue
		}
		if ww.hasWritten {
			ww.WriteString("\n")
		}
		ww.Write(buf)
		ww.WriteString("\n")
	}
	if ww.err != nil {
		return fmt.Errorf("format markdown: %w", ww.err)
	}
	return nil
}

// AppendInlines appends the Markdown form of the given nodes to dst
// and returns the resulting byte slice.
// If dst is empty or ends in a line feed,
// the nodes are formatted as the start of a line.
func AppendInlines(dst []byte, nodes []*inlinemark.Inline) []byte {
	f := &formatter{
		dst:       dst,
		lineStart: len(dst) == 0 || dst[len(dst)-1] == '\n',
	}
	inlinemark.Walk(nodes, &inlinemark.WalkOptions{
		Pre:  f.pre,
		Post: f.post,
	})
	return f.dst
}

type formatter struct {
	dst       []byte
	lineStart bool
}

func (f *formatter) write(s string) {
	if s == "" {
		return
	}
	f.dst = append(f.dst, s...)
	f.lineStart = false
}

func (f *formatter) pre(c *inlinemark.Cursor) bool {
	n := c.Node()
	switch n.Kind() {
	case inlinemark.TextKind:
		f.text(n.Literal())
		return false
	case inlinemark.SoftLineBreakKind:
		f.dst = append(f.dst, '\n')
		f.lineStart = true
		return false
	case inlinemark.HardLineBreakKind:
		f.dst = append(f.dst, "\\\n"...)
		f.lineStart = true
		return false
	case inlinemark.EmphasisKind, inlinemark.StrongKind:
		f.write(emphasisDelimiter(n))
		return true
	case inlinemark.CodeSpanKind:
		f.fenced('`', len(n.Delimiter()), n.Literal())
		return false
	case inlinemark.RawHTMLKind:
		f.write(n.Literal())
		return false
	case inlinemark.LinkKind:
		f.escapeTrailingBang()
		f.write("[")
		return true
	case inlinemark.ImageKind:
		f.write("![")
		return true
	case inlinemark.CustomDelimitedKind:
		if n.Tag() == inlinemark.MathTag && n.ChildCount() == 0 {
			f.fenced('$', len(n.Delimiter()), n.Literal())
			return false
		}
		f.write(n.Delimiter())
		if n.ChildCount() == 0 {
			f.text(n.Literal())
			f.write(closingDelimiter(n.Delimiter()))
			return false
		}
		return true
	default:
		return true
	}
}

func (f *formatter) post(c *inlinemark.Cursor) bool {
	n := c.Node()
	switch n.Kind() {
	case inlinemark.EmphasisKind, inlinemark.StrongKind:
		f.write(emphasisDelimiter(n))
	case inlinemark.LinkKind, inlinemark.ImageKind:
		f.write("](")
		f.destination(n.Destination())
		if n.HasTitle() {
			f.write(" ")
			f.title(n.Title())
		}
		f.write(")")
	case inlinemark.CustomDelimitedKind:
		f.write(closingDelimiter(n.Delimiter()))
	}
	return true
}

// text appends a backslash-escaped literal.
func (f *formatter) text(s string) {
	if s == "" {
		return
	}
	lead := -1
	if f.lineStart {
		lead = blockMarker(s)
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if i == lead || strings.IndexByte(escapedPunctuation, c) >= 0 {
			f.dst = append(f.dst, '\\')
		}
		f.dst = append(f.dst, c)
	}
	f.lineStart = false
}

// blockMarker returns the index of the character in s
// that would make a line starting with s begin a block other than a paragraph,
// or -1 if there is none.
func blockMarker(s string) int {
	switch s[0] {
	case '#', '+', '-', '>', '=', '|':
		return 0
	}
	i := 0
	for i < len(s) && '0' <= s[i] && s[i] <= '9' {
		i++
	}
	if 0 < i && i <= 9 && i < len(s) && (s[i] == '.' || s[i] == ')') {
		return i
	}
	return -1
}

// escapeTrailingBang escapes an exclamation mark at the end of the output
// so that a following link is not read as an image.
func (f *formatter) escapeTrailingBang() {
	n := len(f.dst)
	if n == 0 || f.dst[n-1] != '!' {
		return
	}
	backslashes := 0
	for i := n - 2; i >= 0 && f.dst[i] == '\\'; i-- {
		backslashes++
	}
	if backslashes%2 == 1 {
		return
	}
	f.dst = append(f.dst[:n-1], `\!`...)
}

// fenced appends a code or math span.
// The fence is lengthened until the literal contains no run of the same length,
// and the literal is padded with spaces
// when normalization would otherwise change it.
func (f *formatter) fenced(fence byte, n int, literal string) {
	n = max(n, 1)
	for hasRun(literal, fence, n) {
		n++
	}
	pad := literal == "" ||
		literal[0] == fence ||
		literal[len(literal)-1] == fence ||
		(literal[0] == ' ' && literal[len(literal)-1] == ' ' && strings.Trim(literal, " ") != "")
	delim := strings.Repeat(string(rune(fence)), n)
	f.write(delim)
	if pad {
		f.write(" ")
	}
	f.write(literal)
	if pad {
		f.write(" ")
	}
	f.write(delim)
}

// hasRun reports whether s contains a run of exactly n c characters.
func hasRun(s string, c byte, n int) bool {
	for i := 0; i < len(s); {
		if s[i] != c {
			i++
			continue
		}
		start := i
		for i < len(s) && s[i] == c {
			i++
		}
		if i-start == n {
			return true
		}
	}
	return false
}

func (f *formatter) destination(dest string) {
	f.dst = append(f.dst, '<')
	for i := 0; i < len(dest); i++ {
		switch c := dest[i]; c {
		case '<', '>', '\\', '&':
			f.dst = append(f.dst, '\\', c)
		default:
			f.dst = append(f.dst, c)
		}
	}
	f.dst = append(f.dst, '>')
	f.lineStart = false
}

func (f *formatter) title(title string) {
	f.dst = append(f.dst, '"')
	for i := 0; i < len(title); i++ {
		switch c := title[i]; c {
		case '"', '\\', '&':
			f.dst = append(f.dst, '\\', c)
		default:
			f.dst = append(f.dst, c)
		}
	}
	f.dst = append(f.dst, '"')
	f.lineStart = false
}

func emphasisDelimiter(n *inlinemark.Inline) string {
	if d := n.Delimiter(); d != "" {
		return d
	}
	if n.Kind() == inlinemark.StrongKind {
		return "**"
	}
	return "*"
}

// closingDelimiter returns the run that closes the given opening run.
func closingDelimiter(opening string) string {
	if opening == "" {
		return ""
	}
	var c byte
	switch opening[0] {
	case '{':
		c = '}'
	case '(':
		c = ')'
	case '[':
		c = ']'
	case '<':
		c = '>'
	default:
		return opening
	}
	return strings.Repeat(string(rune(c)), len(opening))
}

type errWriter struct {
	w          io.Writer
	hasWritten bool
	err        error
}

func (w *errWriter) Write(p []byte) (n int, err error) {
	if w.err != nil {
		return 0, w.err
	}
	n, w.err = w.w.Write(p)
	w.hasWritten = w.hasWritten || n > 0
	return n, w.err
}

func (w *errWriter) WriteString(s string) (n int, err error) {
	if w.err != nil {
		return 0, w.err
	}
	n, w.err = io.WriteString(w.w, s)
	w.hasWritten = w.hasWritten || n > 0
	return n, w.err
}
