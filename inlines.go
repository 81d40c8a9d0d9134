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
	"strings"
)

// Inline represents Markdown content elements like text, links, or emphasis.
type Inline struct {
	kind         InlineKind
	literal      string
	delimiter    string
	destination  string
	title        string
	titlePresent bool
	tag          string
	spans        []SourceSpan
	children     []*Inline
}

// NewText returns a new [TextKind] node.
func NewText(literal string) *Inline {
	return &Inline{kind: TextKind, literal: literal}
}

// NewInline returns a new node of the given kind with the given children.
// It is intended for line breaks and container nodes
// that do not carry any other data.
func NewInline(kind InlineKind, children ...*Inline) *Inline {
	return &Inline{kind: kind, children: children}
}

// NewDelimited returns a new node that was produced by a delimiter run,
// like [EmphasisKind] or [StrongKind].
// delimiter is the text of the run that opened the node (e.g. "**").
func NewDelimited(kind InlineKind, delimiter string, children ...*Inline) *Inline {
	return &Inline{kind: kind, delimiter: delimiter, children: children}
}

// NewCustomDelimited returns a new [CustomDelimitedKind] node.
// tag identifies the extension that produced the node.
func NewCustomDelimited(tag, delimiter, literal string, children ...*Inline) *Inline {
	return &Inline{
		kind:      CustomDelimitedKind,
		tag:       tag,
		delimiter: delimiter,
		literal:   literal,
		children:  children,
	}
}

// NewLink returns a new [LinkKind] node.
func NewLink(def LinkDefinition, children ...*Inline) *Inline {
	return newLinkOrImage(LinkKind, def, children)
}

// NewImage returns a new [ImageKind] node.
// Its children are the image description.
func NewImage(def LinkDefinition, children ...*Inline) *Inline {
	return newLinkOrImage(ImageKind, def, children)
}

func newLinkOrImage(kind InlineKind, def LinkDefinition, children []*Inline) *Inline {
	return &Inline{
		kind:         kind,
		destination:  def.Destination,
		title:        def.Title,
		titlePresent: def.TitlePresent,
		children:     children,
	}
}

// NewCodeSpan returns a new [CodeSpanKind] node.
// delimiter is the backtick string that surrounded the content.
func NewCodeSpan(delimiter, literal string) *Inline {
	return &Inline{kind: CodeSpanKind, delimiter: delimiter, literal: literal}
}

// NewRawHTML returns a new [RawHTMLKind] node.
func NewRawHTML(literal string) *Inline {
	return &Inline{kind: RawHTMLKind, literal: literal}
}

// Kind returns the type of inline node
// or zero if the node is nil.
func (inline *Inline) Kind() InlineKind {
	if inline == nil {
		return 0
	}
	return inline.kind
}

// Literal returns the text content of a
// [TextKind], [CodeSpanKind], [RawHTMLKind], or [CustomDelimitedKind] node.
func (inline *Inline) Literal() string {
	if inline == nil {
		return ""
	}
	return inline.literal
}

// Delimiter returns the delimiter run that produced the node
// (e.g. "*" for emphasis or "``" for a code span),
// or the empty string if the node was not produced by a delimiter.
func (inline *Inline) Delimiter() string {
	if inline == nil {
		return ""
	}
	return inline.delimiter
}

// Destination returns the destination of a [LinkKind] or [ImageKind] node.
func (inline *Inline) Destination() string {
	if inline == nil {
		return ""
	}
	return inline.destination
}

// Title returns the title of a [LinkKind] or [ImageKind] node.
func (inline *Inline) Title() string {
	if inline == nil {
		return ""
	}
	return inline.title
}

// HasTitle reports whether the link or image had a title,
// which distinguishes an absent title from an empty one.
func (inline *Inline) HasTitle() bool {
	return inline != nil && inline.titlePresent
}

// LinkDefinition returns the destination and title of a [LinkKind] or [ImageKind] node.
func (inline *Inline) LinkDefinition() LinkDefinition {
	return LinkDefinition{
		Destination:  inline.Destination(),
		Title:        inline.Title(),
		TitlePresent: inline.HasTitle(),
	}
}

// Tag returns the extension tag of a [CustomDelimitedKind] node.
func (inline *Inline) Tag() string {
	if inline == nil {
		return ""
	}
	return inline.tag
}

// Spans returns the locations in the document that the node was parsed from.
// Spans are only recorded if [Options.IncludeSourceSpans] is set.
func (inline *Inline) Spans() []SourceSpan {
	if inline == nil {
		return nil
	}
	return inline.spans
}

// SetSpans replaces the node's source spans.
func (inline *Inline) SetSpans(spans []SourceSpan) {
	inline.spans = spans
}

// ChildCount returns the number of children the node has.
// Calling ChildCount on nil returns 0.
func (inline *Inline) ChildCount() int {
	if inline == nil {
		return 0
	}
	return len(inline.children)
}

// Child returns the i'th child of the node.
func (inline *Inline) Child(i int) *Inline {
	return inline.children[i]
}

// Children returns the node's children.
// The caller must not modify the returned slice.
func (inline *Inline) Children() []*Inline {
	if inline == nil {
		return nil
	}
	return inline.children
}

// AppendChild adds a node to the end of the node's children.
func (inline *Inline) AppendChild(child *Inline) {
	inline.children = append(inline.children, child)
}

// InlineKind is an enumeration of values returned by [*Inline.Kind].
type InlineKind uint16

const (
	TextKind InlineKind = 1 + iota
	SoftLineBreakKind
	HardLineBreakKind
	EmphasisKind
	StrongKind
	LinkKind
	ImageKind
	CodeSpanKind
	RawHTMLKind

	// CustomDelimitedKind is used for nodes produced by extensions.
	// [*Inline.Tag] identifies the extension.
	CustomDelimitedKind
)

var inlineKindNames = [...]string{
	TextKind:            "Text",
	SoftLineBreakKind:   "SoftLineBreak",
	HardLineBreakKind:   "HardLineBreak",
	EmphasisKind:        "Emphasis",
	StrongKind:          "Strong",
	LinkKind:            "Link",
	ImageKind:           "Image",
	CodeSpanKind:        "CodeSpan",
	RawHTMLKind:         "RawHTML",
	CustomDelimitedKind: "CustomDelimited",
}

func (k InlineKind) String() string {
	if int(k) < len(inlineKindNames) && inlineKindNames[k] != "" {
		return inlineKindNames[k]
	}
	return fmt.Sprintf("InlineKind(%d)", int(k))
}

// mergeText combines adjacent [TextKind] children of parent and its descendants.
func mergeText(parent *Inline) {
	children := parent.children
	out := children[:0]
	for i := 0; i < len(children); {
		c := children[i]
		if c.kind != TextKind {
			mergeText(c)
			out = append(out, c)
			i++
			continue
		}
		j := i + 1
		for j < len(children) && children[j].kind == TextKind {
			j++
		}
		if j-i > 1 {
			sb := new(strings.Builder)
			var spans []SourceSpan
			for _, t := range children[i:j] {
				sb.WriteString(t.literal)
				spans = mergeSpans(spans, t.spans)
			}
			c.literal = sb.String()
			c.spans = spans
		}
		out = append(out, c)
		i = j
	}
	for i := len(out); i < len(children); i++ {
		children[i] = nil
	}
	parent.children = out
}

// PlainText returns the text content of the given nodes and their descendants.
// Line breaks are returned as line feeds
// and raw HTML is omitted.
func PlainText(nodes ...*Inline) string {
	sb := new(strings.Builder)
	stack := make([]*Inline, 0, len(nodes))
	for i := len(nodes) - 1; i >= 0; i-- {
		stack = append(stack, nodes[i])
	}
	for len(stack) > 0 {
		curr := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		switch curr.Kind() {
		case TextKind, CodeSpanKind, CustomDelimitedKind:
			if curr.Kind() != CustomDelimitedKind || len(curr.children) == 0 {
				sb.WriteString(curr.literal)
				continue
			}
		case SoftLineBreakKind, HardLineBreakKind:
			sb.WriteByte('\n')
			continue
		case RawHTMLKind:
			continue
		}
		for i := len(curr.children) - 1; i >= 0; i-- {
			stack = append(stack, curr.children[i])
		}
	}
	return sb.String()
}
