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
	"sync"
	"testing"
	"unicode/utf8"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

// testNode is a comparable mirror of [Inline].
type testNode struct {
	Kind        InlineKind
	Literal     string
	Delimiter   string
	Destination string
	Title       string
	Tag         string
	Children    []testNode
}

func toTestNodes(nodes []*Inline) []testNode {
	if len(nodes) == 0 {
		return nil
	}
	out := make([]testNode, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, testNode{
			Kind:        n.Kind(),
			Literal:     n.Literal(),
			Delimiter:   n.Delimiter(),
			Destination: n.Destination(),
			Title:       n.Title(),
			Tag:         n.Tag(),
			Children:    toTestNodes(n.Children()),
		})
	}
	return out
}

func textNode(s string) testNode {
	return testNode{Kind: TextKind, Literal: s}
}

func emNode(delim string, children ...testNode) testNode {
	return testNode{Kind: EmphasisKind, Delimiter: delim, Children: children}
}

func strongNode(delim string, children ...testNode) testNode {
	return testNode{Kind: StrongKind, Delimiter: delim, Children: children}
}

func linkNode(dest, title string, children ...testNode) testNode {
	return testNode{Kind: LinkKind, Destination: dest, Title: title, Children: children}
}

func imageNode(dest, title string, children ...testNode) testNode {
	return testNode{Kind: ImageKind, Destination: dest, Title: title, Children: children}
}

func codeNode(delim, literal string) testNode {
	return testNode{Kind: CodeSpanKind, Delimiter: delim, Literal: literal}
}

func mathNode(delim, literal string) testNode {
	return testNode{Kind: CustomDelimitedKind, Tag: MathTag, Delimiter: delim, Literal: literal}
}

var (
	softBreak = testNode{Kind: SoftLineBreakKind}
	hardBreak = testNode{Kind: HardLineBreakKind}
)

func diffNodes(want []testNode, got []*Inline) string {
	return cmp.Diff(want, toTestNodes(got), cmpopts.EquateEmpty())
}

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []testNode
	}{
		{
			name:  "Text",
			input: "hello",
			want:  []testNode{textNode("hello")},
		},
		{
			name:  "Emphasis",
			input: "*a*",
			want:  []testNode{emNode("*", textNode("a"))},
		},
		{
			name:  "Strong",
			input: "**bold**",
			want:  []testNode{strongNode("**", textNode("bold"))},
		},
		{
			name:  "StrongInsideEmphasis",
			input: "***a***",
			want: []testNode{
				emNode("*", strongNode("**", textNode("a"))),
			},
		},
		{
			name:  "NestedStrong",
			input: "*a **b** c*",
			want: []testNode{
				emNode("*",
					textNode("a "),
					strongNode("**", textNode("b")),
					textNode(" c"),
				),
			},
		},
		{
			name:  "LeftoverOpener",
			input: "**a*",
			want: []testNode{
				textNode("*"),
				emNode("*", textNode("a")),
			},
		},
		{
			name:  "CrossingDelimiters",
			input: "*a _b* c_",
			want: []testNode{
				emNode("*", textNode("a _b")),
				textNode(" c_"),
			},
		},
		{
			name:  "MultipleOfThree",
			input: "*foo**bar*",
			want: []testNode{
				emNode("*", textNode("foo**bar")),
			},
		},
		{
			name:  "SevenAsterisks",
			input: "*******bold*******",
			want: []testNode{
				emNode("*",
					strongNode("**",
						strongNode("**",
							strongNode("**", textNode("bold")),
						),
					),
				),
			},
		},
		{
			name:  "IntrawordUnderscore",
			input: "a_b_c",
			want:  []testNode{textNode("a_b_c")},
		},
		{
			name:  "UnmatchedDelimiter",
			input: "*a",
			want:  []testNode{textNode("*a")},
		},
		{
			name:  "SoftLineBreak",
			input: "a \nb",
			want:  []testNode{textNode("a"), softBreak, textNode("b")},
		},
		{
			name:  "HardLineBreakSpaces",
			input: "a  \nb",
			want:  []testNode{textNode("a"), hardBreak, textNode("b")},
		},
		{
			name:  "HardLineBreakBackslash",
			input: "a\\\nb",
			want:  []testNode{textNode("a"), hardBreak, textNode("b")},
		},
		{
			name:  "TrailingWhitespace",
			input: "a \t ",
			want:  []testNode{textNode("a")},
		},
		{
			name:  "CodeSpan",
			input: "`a`",
			want:  []testNode{codeNode("`", "a")},
		},
		{
			name:  "CodeSpanWithBacktick",
			input: "`` a`b ``",
			want:  []testNode{codeNode("``", "a`b")},
		},
		{
			name:  "CodeSpanLineEnding",
			input: "`a\nb`",
			want:  []testNode{codeNode("`", "a b")},
		},
		{
			name:  "UnmatchedCodeSpan",
			input: "`unmatched",
			want:  []testNode{textNode("`unmatched")},
		},
		{
			name:  "BackslashEscape",
			input: `\*a\*`,
			want:  []testNode{textNode("*a*")},
		},
		{
			name:  "LiteralBackslash",
			input: `a\b`,
			want:  []testNode{textNode(`a\b`)},
		},
		{
			name:  "Entities",
			input: "&amp; &#35; &#x41; &#0;",
			want:  []testNode{textNode("& # A \ufffd")},
		},
		{
			name:  "UnknownEntity",
			input: "&bogus;",
			want:  []testNode{textNode("&bogus;")},
		},
		{
			name:  "URIAutolink",
			input: "<http://x.y>",
			want:  []testNode{linkNode("http://x.y", "", textNode("http://x.y"))},
		},
		{
			name:  "EmailAutolink",
			input: "<a@b.c>",
			want:  []testNode{linkNode("mailto:a@b.c", "", textNode("a@b.c"))},
		},
		{
			name:  "RawHTML",
			input: "<b>x</b>",
			want: []testNode{
				{Kind: RawHTMLKind, Literal: "<b>"},
				textNode("x"),
				{Kind: RawHTMLKind, Literal: "</b>"},
			},
		},
		{
			name:  "HTMLComment",
			input: "a <!-- b --> c",
			want: []testNode{
				textNode("a "),
				{Kind: RawHTMLKind, Literal: "<!-- b -->"},
				textNode(" c"),
			},
		},
		{
			name:  "NotHTML",
			input: "a < b",
			want:  []testNode{textNode("a < b")},
		},
		{
			name:  "InlineLink",
			input: `[text](http://example.com "title")`,
			want:  []testNode{linkNode("http://example.com", "title", textNode("text"))},
		},
		{
			name:  "UnclosedBracket",
			input: "[link",
			want:  []testNode{textNode("[link")},
		},
		{
			name:  "BangWithoutBracket",
			input: "hi!",
			want:  []testNode{textNode("hi!")},
		},
		{
			name:  "MathDisabled",
			input: "$x$",
			want:  []testNode{textNode("$x$")},
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got := ParseString(test.input)
			if diff := diffNodes(test.want, got); diff != "" {
				t.Errorf("ParseString(%q) (-want +got):\n%s", test.input, diff)
			}
		})
	}
}

func TestNewInlineParserNonASCIITrigger(t *testing.T) {
	_, err := NewInlineParser(&Options{
		ContentParsers: []InlineContentParser{triggerParser{"\xc3"}},
	})
	if err == nil {
		t.Error("NewInlineParser did not return an error")
	}
}

type triggerParser struct {
	triggers string
}

func (p triggerParser) Triggers() []byte            { return []byte(p.triggers) }
func (p triggerParser) ParseInline(*Scanner) *Inline { return nil }

// mentionParser parses "@name" into a custom node.
type mentionParser struct{}

func (mentionParser) Triggers() []byte { return []byte{'@'} }

func (mentionParser) ParseInline(s *Scanner) *Inline {
	s.Next()
	start := s.Position()
	for isASCIIAlnum(s.Peek()) {
		s.Next()
	}
	if !start.Less(s.Position()) {
		return nil
	}
	return NewCustomDelimited("mention", "@", s.Text(start, s.Position()))
}

// stuckParser returns a node without consuming any input.
type stuckParser struct{}

func (stuckParser) Triggers() []byte              { return []byte{'%'} }
func (stuckParser) ParseInline(s *Scanner) *Inline { return NewText("never") }

func TestContentParsers(t *testing.T) {
	p, err := NewInlineParser(&Options{
		ContentParsers: []InlineContentParser{mentionParser{}, stuckParser{}},
	})
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		input string
		want  []testNode
	}{
		{
			input: "hi @bob!",
			want: []testNode{
				textNode("hi "),
				{Kind: CustomDelimitedKind, Tag: "mention", Delimiter: "@", Literal: "bob"},
				textNode("!"),
			},
		},
		{
			input: "a @ b",
			want:  []testNode{textNode("a @ b")},
		},
		{
			input: "100%",
			want:  []testNode{textNode("100%")},
		},
	}
	for _, test := range tests {
		got := p.Parse(LinesFromString(test.input))
		if diff := diffNodes(test.want, got); diff != "" {
			t.Errorf("Parse(%q) (-want +got):\n%s", test.input, diff)
		}
	}
}

func TestParseInto(t *testing.T) {
	p, err := NewInlineParser(nil)
	if err != nil {
		t.Fatal(err)
	}
	parent := NewInline(EmphasisKind, NewText("x"))
	p.ParseInto(parent, LinesFromString("**y**"))
	want := []testNode{
		textNode("x"),
		strongNode("**", textNode("y")),
	}
	if diff := diffNodes(want, parent.Children()); diff != "" {
		t.Errorf("children (-want +got):\n%s", diff)
	}
}

func TestSourceSpans(t *testing.T) {
	p, err := NewInlineParser(&Options{IncludeSourceSpans: true})
	if err != nil {
		t.Fatal(err)
	}
	lines := SourceLines{
		{Text: "a *b*", Span: SourceSpan{Line: 3, Column: 2, Length: 5}},
		{Text: "[c](/d)", Span: SourceSpan{Line: 4, Column: 0, Length: 7}},
	}
	got := p.Parse(lines)
	if len(got) != 4 {
		t.Fatalf("len(Parse(...)) = %d; want 4", len(got))
	}
	tests := []struct {
		node *Inline
		want []SourceSpan
	}{
		{got[0], []SourceSpan{{Line: 3, Column: 2, Length: 2}}},
		{got[1], []SourceSpan{{Line: 3, Column: 4, Length: 3}}},
		{got[1].Child(0), []SourceSpan{{Line: 3, Column: 5, Length: 1}}},
		{got[3], []SourceSpan{{Line: 4, Column: 0, Length: 7}}},
		{got[3].Child(0), []SourceSpan{{Line: 4, Column: 1, Length: 1}}},
	}
	for _, test := range tests {
		if diff := cmp.Diff(test.want, test.node.Spans()); diff != "" {
			t.Errorf("%v %q spans (-want +got):\n%s", test.node.Kind(), PlainText(test.node), diff)
		}
	}
}

func TestSourceSpansDisabled(t *testing.T) {
	for _, n := range ParseString("a *b* [c](/d)") {
		if spans := n.Spans(); spans != nil {
			t.Errorf("%v node has spans %v; want nil", n.Kind(), spans)
		}
	}
}

func TestParseConcurrent(t *testing.T) {
	refs := make(ReferenceMap)
	refs.Add("foo", LinkDefinition{Destination: "/url"})
	p, err := NewInlineParser(&Options{
		References:     refs,
		ContentParsers: []InlineContentParser{&MathSpanParser{}},
	})
	if err != nil {
		t.Fatal(err)
	}
	const input = "*a* [foo] `c` $d$ **e**"
	want := toTestNodes(p.Parse(LinesFromString(input)))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				got := p.Parse(LinesFromString(input))
				if diff := cmp.Diff(want, toTestNodes(got)); diff != "" {
					t.Errorf("concurrent Parse (-want +got):\n%s", diff)
					return
				}
			}
		}()
	}
	wg.Wait()
}

// TestTextPreserved verifies that inputs without markup
// come back as the same characters.
func TestTextPreserved(t *testing.T) {
	inputs := []string{
		"plain",
		"unicode: äöü ✓",
		"punctuation, like this; or this: (and) {this} #1 ~2 +3 = 4 ?",
		"a [b c",
		"a ] b",
		"a ! b",
		"a * b",
		"a _ b",
	}
	for _, input := range inputs {
		got := ParseString(input)
		if s := PlainText(got...); s != input {
			t.Errorf("PlainText(ParseString(%q)) = %q", input, s)
		}
	}
}

func FuzzParse(f *testing.F) {
	seeds := []string{
		"*a **b** c*",
		"[a](/b \"c\") ![d](<e f>)",
		"`a` ``b`` <http://c> <d@e.f> &amp; \\*",
		"*******bold*******",
		"[[[[[a]]]]]](b)",
		"<!-- a --> <?b?> <![CDATA[c]]> <!D e>",
		"a  \nb\\\nc",
	}
	for _, s := range seeds {
		f.Add(s)
	}
	refs := make(ReferenceMap)
	refs.Add("a", LinkDefinition{Destination: "/a"})
	p, err := NewInlineParser(&Options{
		References:         refs,
		IncludeSourceSpans: true,
		ContentParsers:     []InlineContentParser{&MathSpanParser{}},
	})
	if err != nil {
		f.Fatal(err)
	}

	f.Fuzz(func(t *testing.T, input string) {
		if !utf8.ValidString(input) {
			t.Skip("Invalid UTF-8")
		}
		lines := LinesFromString(input)
		nodes := p.Parse(lines)
		verifyTree(t, lines, nodes)
	})
}

// verifyTree checks structural properties that hold for any parse.
func verifyTree(tb testing.TB, lines SourceLines, nodes []*Inline) {
	tb.Helper()
	Walk(nodes, &WalkOptions{
		Pre: func(c *Cursor) bool {
			n := c.Node()
			if n == nil {
				tb.Fatalf("nil node under %v", c.Parent().Kind())
			}
			if n.Kind() == TextKind && n.Literal() == "" {
				tb.Errorf("empty text node under %v", c.Parent().Kind())
			}
			children := n.Children()
			for i := 1; i < len(children); i++ {
				if children[i-1].Kind() == TextKind && children[i].Kind() == TextKind {
					tb.Errorf("adjacent text nodes %q and %q", children[i-1].Literal(), children[i].Literal())
				}
			}
			for _, span := range n.Spans() {
				if !spanInLines(lines, span) {
					tb.Errorf("%v node span %+v outside of input", n.Kind(), span)
				}
			}
			return true
		},
	})
}

func spanInLines(lines SourceLines, span SourceSpan) bool {
	for _, line := range lines {
		if line.Span.Line == span.Line {
			return span.Column >= line.Span.Column &&
				span.Column+span.Length <= line.Span.Column+len(line.Text)
		}
	}
	return false
}

func BenchmarkParse(b *testing.B) {
	sb := new(strings.Builder)
	for i := 0; i < 100; i++ {
		fmt.Fprintf(sb, "Some *emphasis* and **strong** text with a [link %d](/url%d \"title\") and `code`.\n", i, i)
	}
	lines := LinesFromString(strings.TrimSuffix(sb.String(), "\n"))
	p, err := NewInlineParser(nil)
	if err != nil {
		b.Fatal(err)
	}
	b.ResetTimer()
	b.SetBytes(int64(sb.Len()))
	for i := 0; i < b.N; i++ {
		p.Parse(lines)
	}
}

// BenchmarkPathological parses inputs that exercise the worst cases
// of delimiter and bracket resolution.
// The time per byte should stay roughly flat as the size grows.
func BenchmarkPathological(b *testing.B) {
	inputs := []struct {
		name string
		gen  func(n int) string
	}{
		{"NestedEmphasis", func(n int) string {
			return strings.Repeat("*a **a ", n) + "b" + strings.Repeat(" a** a*", n)
		}},
		{"AlternatingDelimiters", func(n int) string {
			return strings.Repeat("*_", n) + "a" + strings.Repeat("_*", n)
		}},
		{"RejectedOpeners", func(n int) string {
			return strings.Repeat("a**b", n) + strings.Repeat("c* ", n)
		}},
		{"UnclosedOpeners", func(n int) string {
			return strings.Repeat("*a ", n) + strings.Repeat("_b ", n)
		}},
		{"ChainedReferenceLinks", func(n int) string {
			return strings.Repeat("[a][", n)
		}},
		{"NestedBrackets", func(n int) string {
			return strings.Repeat("[", n) + "a" + strings.Repeat("](/u)", n)
		}},
		{"NestedImages", func(n int) string {
			return strings.Repeat("![", n) + "a" + strings.Repeat("](/u)", n)
		}},
	}
	refs := make(ReferenceMap)
	refs.Add("a", LinkDefinition{Destination: "/a"})
	p, err := NewInlineParser(&Options{References: refs})
	if err != nil {
		b.Fatal(err)
	}
	for _, input := range inputs {
		for _, n := range []int{1000, 10000, 40000} {
			lines := LinesFromString(input.gen(n))
			b.Run(fmt.Sprintf("%s/%d", input.name, n), func(b *testing.B) {
				b.SetBytes(int64(len(lines[0].Text)))
				for i := 0; i < b.N; i++ {
					p.Parse(lines)
				}
			})
		}
	}
}
