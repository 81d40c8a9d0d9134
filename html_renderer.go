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
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"go4.org/bytereplacer"
	"golang.org/x/net/html/atom"
)

// An HTMLRenderer converts parsed inline content into HTML.
//
// # Security considerations
//
// Markdown permits the use of [raw HTML], which can introduce
// [Cross-Site Scripting (XSS)] vulnerabilities and [HTML parse errors]
// when used with untrusted inputs.
// There are a few options to mitigate this risk:
//
//   - The resulting HTML can be sent through an HTML sanitizer.
//     This is highly recommended.
//   - Set IgnoreRaw to prevent inclusion of raw HTML.
//     This eliminates any raw HTML usage,
//     so the output is guaranteed to use a fixed set of elements
//     and avoid parse errors.
//   - FilterTag can be used to prevent some tags from being used
//     while still showing the source text.
//     Note that this does not prevent parse errors.
//
// [Cross-Site Scripting (XSS)]: https://owasp.org/www-community/attacks/xss/
// [HTML parse errors]: https://html.spec.whatwg.org/multipage/parsing.html#parse-errors
// [raw HTML]: https://spec.commonmark.org/0.31.2/#raw-html
type HTMLRenderer struct {
	// SoftBreakBehavior determines how soft line breaks are rendered.
	SoftBreakBehavior SoftBreakBehavior
	// If IgnoreRaw is true, the renderer skips any HTML blocks or raw HTML.
	IgnoreRaw bool
	// FilterTag is a predicate function
	// that reports whether an element with the given lowercased tag name
	// should have its leading angle bracket escaped.
	// If FilterTag is nil, then no filtering will occur.
	//
	// FilterTag functions must not modify the byte slice
	// nor retain the slice after the function returns.
	FilterTag func(tag []byte) bool
}

// RenderHTML writes the given sequence of blocks
// to the given writer as HTML
// using the default options for [HTMLRenderer].
func RenderHTML(w io.Writer, blocks []*Block) error {
	return new(HTMLRenderer).Render(w, blocks)
}

// Render writes the given sequence of blocks
// to the given writer as HTML.
// Paragraphs must have been parsed (see [ParseDocument]).
// It will return the first error encountered, if any.
func (r *HTMLRenderer) Render(w io.Writer, blocks []*Block) error {
	state := &renderState{HTMLRenderer: r}
	for _, b := range blocks {
		state.dst = state.dst[:0]
		switch b.Kind {
		case ParagraphKind:
			state.dst = r.AppendParagraph(state.dst, b.Inlines)
		case HTMLBlockKind:
			if r.IgnoreRaw {
				continue
			}
			if r.FilterTag == nil {
				state.dst = append(state.dst, b.Lines.Content()...)
			} else {
				state.filterRaw(b.Lines.Content())
			}
		default:
			continue
		}
		state.dst = append(state.dst, '\n')
		if _, err := w.Write(state.dst); err != nil {
			return fmt.Errorf("render markdown to html: %w", err)
		}
	}
	return nil
}

// AppendParagraph appends the given nodes wrapped in a <p> element to dst
// and returns the resulting byte slice.
func (r *HTMLRenderer) AppendParagraph(dst []byte, nodes []*Inline) []byte {
	state := &renderState{HTMLRenderer: r, dst: dst}
	state.openTag(atom.P)
	for _, n := range nodes {
		state.inline(n)
	}
	state.closeTag(atom.P)
	return state.dst
}

// AppendInlines appends the rendered HTML of the given nodes to dst
// and returns the resulting byte slice.
func (r *HTMLRenderer) AppendInlines(dst []byte, nodes []*Inline) []byte {
	state := &renderState{HTMLRenderer: r, dst: dst}
	for _, n := range nodes {
		state.inline(n)
	}
	return state.dst
}

type renderState struct {
	*HTMLRenderer
	dst      []byte
	lowerBuf []byte
}

func (r *renderState) openTagAttr(name atom.Atom) {
	start := len(r.dst)
	r.dst = append(r.dst, '<')
	r.dst = append(r.dst, name.String()...)
	if r.FilterTag != nil && r.FilterTag(r.dst[start+1:]) {
		r.dst = r.dst[:start]
		r.dst = append(r.dst, "&lt;"...)
		r.dst = append(r.dst, name.String()...)
	}
}

func (r *renderState) openTag(name atom.Atom) {
	r.openTagAttr(name)
	r.dst = append(r.dst, '>')
}

func (r *renderState) closeTag(name atom.Atom) {
	start := len(r.dst)
	r.dst = append(r.dst, "</"...)
	r.dst = append(r.dst, name.String()...)
	if r.FilterTag != nil && r.FilterTag(r.dst[start+2:]) {
		r.dst = r.dst[:start]
		r.dst = append(r.dst, "&lt;/"...)
		r.dst = append(r.dst, name.String()...)
	}
	r.dst = append(r.dst, '>')
}

func (r *renderState) attr(name, value string) {
	r.dst = append(r.dst, ' ')
	r.dst = append(r.dst, name...)
	r.dst = append(r.dst, `="`...)
	r.dst = appendEscapedHTML(r.dst, value)
	r.dst = append(r.dst, '"')
}

func (r *renderState) children(parent *Inline) {
	for _, c := range parent.children {
		r.inline(c)
	}
}

func (r *renderState) inline(inline *Inline) {
	const hardLineBreak = "<br />\n"
	switch inline.Kind() {
	case TextKind:
		r.dst = appendEscapedHTML(r.dst, inline.Literal())
	case RawHTMLKind:
		if !r.IgnoreRaw {
			if r.FilterTag == nil {
				r.dst = append(r.dst, inline.Literal()...)
			} else {
				r.filterRaw(inline.Literal())
			}
		}
	case SoftLineBreakKind:
		switch r.SoftBreakBehavior {
		case SoftBreakHarden:
			r.dst = append(r.dst, hardLineBreak...)
		case SoftBreakSpace:
			r.dst = append(r.dst, ' ')
		default:
			r.dst = append(r.dst, '\n')
		}
	case HardLineBreakKind:
		r.dst = append(r.dst, hardLineBreak...)
	case EmphasisKind:
		r.openTag(atom.Em)
		r.children(inline)
		r.closeTag(atom.Em)
	case StrongKind:
		r.openTag(atom.Strong)
		r.children(inline)
		r.closeTag(atom.Strong)
	case CodeSpanKind:
		r.openTag(atom.Code)
		r.dst = appendEscapedHTML(r.dst, inline.Literal())
		r.closeTag(atom.Code)
	case LinkKind:
		r.openTagAttr(atom.A)
		r.attr("href", NormalizeURI(inline.Destination()))
		if inline.HasTitle() {
			r.attr("title", inline.Title())
		}
		r.dst = append(r.dst, '>')
		r.children(inline)
		r.closeTag(atom.A)
	case ImageKind:
		r.openTagAttr(atom.Img)
		r.attr("src", NormalizeURI(inline.Destination()))
		r.attr("alt", PlainText(inline.children...))
		if inline.HasTitle() {
			r.attr("title", inline.Title())
		}
		r.dst = append(r.dst, " />"...)
	case CustomDelimitedKind:
		if inline.Tag() != MathTag {
			r.children(inline)
			return
		}
		class := "math inline"
		if len(inline.Delimiter()) > 1 {
			class = "math display"
		}
		r.openTagAttr(atom.Span)
		r.attr("class", class)
		r.dst = append(r.dst, '>')
		r.dst = appendEscapedHTML(r.dst, inline.Literal())
		r.closeTag(atom.Span)
	}
}

// filterRaw performs the tag filtering
// described in https://github.github.com/gfm/#disallowed-raw-html-extension-.
//
// It cannot use a conventional HTML parser,
// since raw HTML in Markdown may be incomplete.
func (r *renderState) filterRaw(rawHTML string) {
	const (
		copyState = iota
		commentState
		piState
		declState
		cdataState
	)
	state := copyState
	copyStart := 0
	for i := 0; i < len(rawHTML); {
		switch state {
		case copyState:
			if rawHTML[i] != '<' {
				i++
				continue
			}
			rest := rawHTML[i:]
			switch {
			case strings.HasPrefix(rest, cdataPrefix):
				state = cdataState
				i += len(cdataPrefix)
			case strings.HasPrefix(rest, htmlCommentPrefix):
				state = commentState
				i += len(htmlCommentPrefix)
			case strings.HasPrefix(rest, processingInstructionPrefix):
				state = piState
				i += len(processingInstructionPrefix)
			case len(rest) >= 3 && rest[1] == '!' && isASCIILetter(rune(rest[2])):
				state = declState
				i += len("<!x")
			default:
				tagNameStart := i + 1
				if strings.HasPrefix(rest, "</") {
					tagNameStart++
				}
				tagEnd := len(rawHTML)
				if j := strings.IndexByte(rawHTML[tagNameStart:], '>'); j >= 0 {
					tagEnd = tagNameStart + j + len(">")
				}
				tagNameEnd := tagNameStart + htmlTagNameEnd(rawHTML[tagNameStart:tagEnd])
				tagName := maybeLower(rawHTML[tagNameStart:tagNameEnd], &r.lowerBuf)
				if r.FilterTag(tagName) {
					r.dst = append(r.dst, rawHTML[copyStart:i]...)
					r.dst = append(r.dst, "&lt;"...)
					r.dst = append(r.dst, rawHTML[i+1:tagEnd]...)
					copyStart = tagEnd
				}
				i = tagEnd
			}
		case commentState:
			if strings.HasPrefix(rawHTML[i:], htmlCommentSuffix) {
				state = copyState
				i += len(htmlCommentSuffix)
			} else {
				i++
			}
		case piState:
			if strings.HasPrefix(rawHTML[i:], processingInstructionSuffix) {
				state = copyState
				i += len(processingInstructionSuffix)
			} else {
				i++
			}
		case declState:
			if rawHTML[i] == '>' {
				state = copyState
			}
			i++
		case cdataState:
			if strings.HasPrefix(rawHTML[i:], cdataSuffix) {
				state = copyState
				i += len(cdataSuffix)
			} else {
				i++
			}
		default:
			panic("unreachable")
		}
	}

	r.dst = append(r.dst, rawHTML[copyStart:]...)
}

// htmlTagNameEnd returns the length of the tag name at the start of s.
func htmlTagNameEnd(s string) int {
	for i, c := range s {
		if !isASCIIAlnum(c) && c != '-' {
			return i
		}
	}
	return len(s)
}

func maybeLower(s string, buf *[]byte) []byte {
	*buf = (*buf)[:0]
	for i := 0; i < len(s); i++ {
		b := s[i]
		if 'A' <= b && b <= 'Z' {
			b += 'a' - 'A'
		}
		*buf = append(*buf, b)
	}
	return *buf
}

var htmlEscaper = bytereplacer.New(
	"&", "&amp;",
	`<`, "&lt;",
	`>`, "&gt;",
	`"`, "&quot;",
)

// appendEscapedHTML appends the HTML-escaped version of s to dst.
func appendEscapedHTML(dst []byte, s string) []byte {
	start := len(dst)
	dst = append(dst, s...)
	escaped := htmlEscaper.Replace(dst[start:])
	return append(dst[:start], escaped...)
}

// FilterTagGFM performs the same tag filtering as the
// GitHub Flavored Markdown [tagfilter extension].
// It is suitable for use as the FilterTag field in [HTMLRenderer].
//
// [tagfilter extension]: https://github.github.com/gfm/#disallowed-raw-html-extension-
func FilterTagGFM(tag []byte) bool {
	tagAtom := atom.Lookup(tag)
	return tagAtom == atom.Title ||
		tagAtom == atom.Textarea ||
		tagAtom == atom.Style ||
		tagAtom == atom.Xmp ||
		tagAtom == atom.Iframe ||
		tagAtom == atom.Noembed ||
		tagAtom == atom.Noframes ||
		tagAtom == atom.Script ||
		tagAtom == atom.Plaintext
}

// SoftBreakBehavior is an enumeration of rendering styles for [soft line breaks].
//
// [soft line breaks]: https://spec.commonmark.org/0.31.2/#soft-line-breaks
type SoftBreakBehavior int

const (
	// SoftBreakPreserve indicates that a soft line break should be rendered as-is.
	SoftBreakPreserve SoftBreakBehavior = iota
	// SoftBreakSpace indicates that a soft line break should be rendered as a space.
	SoftBreakSpace
	// SoftBreakHarden indicates that a soft line break should be rendered as a hard line break.
	SoftBreakHarden
)

func (b SoftBreakBehavior) String() string {
	switch b {
	case SoftBreakPreserve:
		return "SoftBreakPreserve"
	case SoftBreakSpace:
		return "SoftBreakSpace"
	case SoftBreakHarden:
		return "SoftBreakHarden"
	default:
		return fmt.Sprintf("SoftBreakBehavior(%d)", int(b))
	}
}

// NormalizeURI percent-encodes any characters in a string
// that are not reserved or unreserved URI characters.
// This is commonly used for transforming link destinations
// into strings suitable for href or src attributes.
func NormalizeURI(s string) string {
	// RFC 3986 reserved and unreserved characters.
	const safeSet = `;/?:@&=+$,-_.!~*'()#`

	sb := new(strings.Builder)
	sb.Grow(len(s))
	skip := 0
	var buf [utf8.UTFMax]byte
	for i, c := range s {
		if skip > 0 {
			skip--
			sb.WriteRune(c)
			continue
		}
		switch {
		case c == '%':
			if i+2 < len(s) && isHexDigit(rune(s[i+1])) && isHexDigit(rune(s[i+2])) {
				skip = 2
				sb.WriteByte('%')
			} else {
				sb.WriteString("%25")
			}
		case isASCIIAlnum(c) || strings.ContainsRune(safeSet, c):
			sb.WriteRune(c)
		default:
			n := utf8.EncodeRune(buf[:], c)
			for _, b := range buf[:n] {
				sb.WriteByte('%')
				sb.WriteByte(urlHexDigit(b >> 4))
				sb.WriteByte(urlHexDigit(b & 0x0f))
			}
		}
	}
	return sb.String()
}

func urlHexDigit(x byte) byte {
	switch {
	case x < 0xa:
		return '0' + x
	case x < 0x10:
		return 'A' + x - 0xa
	default:
		panic("out of bounds")
	}
}
