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
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrBlockTooLarge is returned by [*BlockReader.Next]
// when a single block exceeds the reader's size limit.
var ErrBlockTooLarge = errors.New("block too large")

// BlockKind is an enumeration of the blocks produced by [BlockReader].
type BlockKind int

const (
	// ParagraphKind is used for blocks of inline content.
	ParagraphKind BlockKind = 1 + iota
	// HTMLBlockKind is used for [HTML blocks],
	// which are passed through without inline parsing.
	//
	// [HTML blocks]: https://spec.commonmark.org/0.31.2/#html-blocks
	HTMLBlockKind
)

func (k BlockKind) String() string {
	switch k {
	case ParagraphKind:
		return "ParagraphKind"
	case HTMLBlockKind:
		return "HTMLBlockKind"
	default:
		return fmt.Sprintf("BlockKind(%d)", int(k))
	}
}

// A Block is a run of consecutive non-blank lines.
type Block struct {
	Kind BlockKind
	// StartLine is the zero-based line number of the block's first line.
	StartLine int
	// Lines is the block's content.
	// Paragraph lines have their leading whitespace removed.
	Lines SourceLines
	// Inlines is the parsed content of a paragraph.
	// It is populated by [ParseDocument].
	Inlines []*Inline
}

// A BlockReader splits a Markdown document into blocks separated by blank lines.
// It does not recognize container blocks, headings, or code blocks:
// it exists to feed an [InlineParser] when no full block parser is available.
type BlockReader struct {
	r        io.Reader
	buf      []byte
	parsePos int
	lineno   int
	err      error
}

// NewBlockReader returns a block reader that reads from r.
func NewBlockReader(r io.Reader) *BlockReader {
	return &BlockReader{r: r}
}

// Next reads the next block from the document.
// It returns [io.EOF] once the document has been consumed.
// Lines longer than the reader's size limit produce an error wrapping [ErrBlockTooLarge].
func (br *BlockReader) Next() (*Block, error) {
	var line []byte
	for {
		line = br.readline()
		if len(line) == 0 {
			return nil, br.err
		}
		if !isBlankLine(line) {
			break
		}
		br.consume()
	}

	block := &Block{
		Kind:      ParagraphKind,
		StartLine: br.lineno - 1,
	}
	if isHTMLBlockStart(string(trimEOL(line))) {
		block.Kind = HTMLBlockKind
	}
	for len(line) > 0 && !isBlankLine(line) {
		block.Lines = append(block.Lines, br.sourceLine(line, block.Kind))
		line = br.readline()
	}
	br.consume()
	return block, nil
}

// sourceLine converts a line from the buffer into a [SourceLine].
// NUL characters are replaced with U+FFFD,
// and the line's span refers to the replaced text.
func (br *BlockReader) sourceLine(line []byte, kind BlockKind) SourceLine {
	text := strings.ReplaceAll(string(trimEOL(line)), "\x00", "\ufffd")
	col := 0
	if kind == ParagraphKind {
		trimmed := strings.TrimLeft(text, " \t")
		col = len(text) - len(trimmed)
		text = trimmed
	}
	return SourceLine{
		Text: text,
		Span: SourceSpan{
			Line:   br.lineno - 1,
			Column: col,
			Length: len(text),
		},
	}
}

// readline reads the next line of input, growing br.buf as necessary.
// It will return a zero-length slice if and only if it has reached the end of input
// or an error occurred.
// After calling readline, br.lineno will contain the current line's number.
func (br *BlockReader) readline() []byte {
	const (
		chunkSize    = 8 * 1024
		maxBlockSize = 1024 * 1024
	)

	eolEnd := -1
	for {
		// Check if we have a line ending available.
		if i := bytes.IndexAny(br.buf[br.parsePos:], "\r\n"); i >= 0 {
			eolStart := br.parsePos + i
			if br.buf[eolStart] == '\n' {
				eolEnd = eolStart + 1
				break
			}
			if eolStart+1 < len(br.buf) {
				// Carriage return with enough buffer for 1 byte lookahead.
				eolEnd = eolStart + 1
				if br.buf[eolEnd] == '\n' {
					eolEnd++
				}
				break
			}
			if br.err != nil {
				// Carriage return right before EOF.
				eolEnd = len(br.buf)
				break
			}
		}

		// If we don't have any more line ending available,
		// but we're at EOF, return everything we have.
		if br.err != nil {
			eolEnd = len(br.buf)
			break
		}

		// If we're already at the maximum block size,
		// then drop the line and stop reading.
		if len(br.buf) >= maxBlockSize {
			br.lineno++
			br.buf = br.buf[:br.parsePos]
			br.err = fmt.Errorf("line %d: %w", br.lineno, ErrBlockTooLarge)
			return nil
		}

		// Grab more data from the reader.
		newSize := len(br.buf) + chunkSize
		if newSize > maxBlockSize {
			newSize = maxBlockSize
		}
		if cap(br.buf) < newSize {
			newbuf := make([]byte, len(br.buf), newSize)
			copy(newbuf, br.buf)
			br.buf = newbuf
		}
		var n int
		n, br.err = br.r.Read(br.buf[len(br.buf):newSize])
		br.buf = br.buf[:len(br.buf)+n]
	}

	line := br.buf[br.parsePos:eolEnd]
	br.parsePos = eolEnd
	if len(line) > 0 {
		br.lineno++
	}
	return line
}

// consume discards the lines returned by readline so far.
func (br *BlockReader) consume() {
	br.buf = br.buf[br.parsePos:]
	br.parsePos = 0
}

func trimEOL(line []byte) []byte {
	line = bytes.TrimSuffix(line, []byte("\n"))
	return bytes.TrimSuffix(line, []byte("\r"))
}

func isBlankLine(line []byte) bool {
	for _, b := range line {
		if !(b == '\r' || b == '\n' || b == ' ' || b == '\t') {
			return false
		}
	}
	return true
}

// A Document is the result of [ParseDocument].
type Document struct {
	Blocks []*Block
	// References holds the link reference definitions found in the document.
	References ReferenceMap
}

// ParseDocument reads a Markdown document with a [BlockReader],
// collects the link reference definitions at the start of each paragraph,
// and parses the remaining paragraph lines.
// If opts.References is nil, the document's own definitions are used.
// Paragraphs that consist only of definitions are dropped.
func ParseDocument(r io.Reader, opts *Options) (*Document, error) {
	doc := &Document{References: make(ReferenceMap)}
	br := NewBlockReader(r)
	for {
		b, err := br.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse document: %w", err)
		}
		if b.Kind == ParagraphKind {
			b.Lines = ParseReferenceDefinitions(b.Lines, doc.References)
			if len(b.Lines) == 0 {
				continue
			}
		}
		doc.Blocks = append(doc.Blocks, b)
	}

	var o Options
	if opts != nil {
		o = *opts
	}
	if o.References == nil {
		o.References = doc.References
	}
	p, err := NewInlineParser(&o)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	for _, b := range doc.Blocks {
		if b.Kind == ParagraphKind {
			b.Inlines = p.Parse(b.Lines)
		}
	}
	return doc, nil
}
