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

// Package treedump prints parsed blocks and their inline trees
// in an indented, human-readable form.
package treedump

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"zombiezen.com/go/inlinemark"
)

// Styles holds the styles applied to each part of a dump.
type Styles struct {
	Block   lipgloss.Style
	Kind    lipgloss.Style
	Literal lipgloss.Style
	Attr    lipgloss.Style
	Span    lipgloss.Style
}

// NewStyles returns colored styles if color is true
// and unstyled ones otherwise.
func NewStyles(color bool) *Styles {
	if !color {
		plain := lipgloss.NewStyle()
		return &Styles{
			Block:   plain,
			Kind:    plain,
			Literal: plain,
			Attr:    plain,
			Span:    plain,
		}
	}
	return &Styles{
		Block:   lipgloss.NewStyle().Bold(true).Underline(true),
		Kind:    lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true),
		Literal: lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
		Attr:    lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
		Span:    lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
	}
}

// ColorEnabled reports whether output to w should be colored.
// mode is "always", "never", or "auto".
// In auto mode, color is used only when w is a terminal
// and the NO_COLOR environment variable is empty.
func ColorEnabled(mode string, w io.Writer) bool {
	switch mode {
	case "always":
		return true
	case "never":
		return false
	default:
		if os.Getenv("NO_COLOR") != "" {
			return false
		}
		f, ok := w.(*os.File)
		return ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))
	}
}

// Dump writes the blocks and their inline trees to w.
// Line numbers are printed 1-based.
func Dump(w io.Writer, blocks []*inlinemark.Block, styles *Styles) error {
	if styles == nil {
		styles = NewStyles(false)
	}
	sb := new(strings.Builder)
	for _, b := range blocks {
		sb.WriteString(styles.Block.Render(b.Kind.String()))
		sb.WriteString(styles.Span.Render(fmt.Sprintf(" (line %d)", b.StartLine+1)))
		sb.WriteString("\n")
		switch b.Kind {
		case inlinemark.ParagraphKind:
			writeInlines(sb, b.Inlines, styles)
		default:
			for _, line := range b.Lines {
				sb.WriteString("  ")
				sb.WriteString(styles.Literal.Render(strconv.Quote(line.Text)))
				sb.WriteString("\n")
			}
		}
	}
	if _, err := io.WriteString(w, sb.String()); err != nil {
		return fmt.Errorf("dump tree: %w", err)
	}
	return nil
}

func writeInlines(sb *strings.Builder, nodes []*inlinemark.Inline, styles *Styles) {
	inlinemark.Walk(nodes, &inlinemark.WalkOptions{
		Pre: func(c *inlinemark.Cursor) bool {
			n := c.Node()
			sb.WriteString(strings.Repeat("  ", c.Depth()+1))
			sb.WriteString(styles.Kind.Render(n.Kind().String()))
			switch n.Kind() {
			case inlinemark.TextKind, inlinemark.CodeSpanKind, inlinemark.RawHTMLKind:
				sb.WriteString(" ")
				sb.WriteString(styles.Literal.Render(strconv.Quote(n.Literal())))
			case inlinemark.LinkKind, inlinemark.ImageKind:
				writeAttr(sb, styles, "destination", n.Destination())
				if n.HasTitle() {
					writeAttr(sb, styles, "title", n.Title())
				}
			case inlinemark.CustomDelimitedKind:
				writeAttr(sb, styles, "tag", n.Tag())
				if n.ChildCount() == 0 {
					sb.WriteString(" ")
					sb.WriteString(styles.Literal.Render(strconv.Quote(n.Literal())))
				}
			}
			if d := n.Delimiter(); d != "" {
				writeAttr(sb, styles, "delimiter", d)
			}
			for _, span := range n.Spans() {
				sb.WriteString(styles.Span.Render(fmt.Sprintf(" [%d:%d+%d]", span.Line+1, span.Column, span.Length)))
			}
			sb.WriteString("\n")
			return true
		},
	})
}

func writeAttr(sb *strings.Builder, styles *Styles, name, value string) {
	sb.WriteString(" ")
	sb.WriteString(styles.Attr.Render(name + "=" + strconv.Quote(value)))
}
