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
	"strings"
	"testing"
	"unicode/utf8"
)

func TestDelimiterFlags(t *testing.T) {
	tests := []struct {
		prefix    string
		run       string
		suffix    string
		wantOpen  bool
		wantClose bool
	}{
		// Official examples for left-flanking and right-flanking:
		{"", "***", "abc", true, false},
		{"  ", "_", "abc", true, false},
		{"", "**", `"abc"`, true, false},
		{" ", "_", `"abc"`, true, false},
		{" abc", "***", "", false, true},
		{" abc", "_", "", false, true},
		{`"abc"`, "**", "", false, true},
		{`"abc"`, "_", "", false, true},
		{" abc", "***", "def", true, true},
		{`"abc"`, "_", `"def"`, true, true},
		{"abc ", "***", " def", false, false},
		{"a ", "_", " b", false, false},

		// Extra examples to demonstrate
		// https://spec.commonmark.org/0.31.2/#can-open-emphasis
		// and
		// https://spec.commonmark.org/0.31.2/#can-close-emphasis.
		{"aa", "_", `"bb"`, false, true},
		{`"bb"`, "_", "cc", true, false},
		{"foo-", "_", "(bar)", true, true},
		{"(bar)", "_", "", false, true},
		{"abc", "_", "def", false, false},
		{"abc", "*", "def", true, true},
	}
	for _, test := range tests {
		before, after := End, End
		if test.prefix != "" {
			before, _ = utf8.DecodeLastRuneInString(test.prefix)
		}
		if test.suffix != "" {
			after, _ = utf8.DecodeRuneInString(test.suffix)
		}
		c := test.run[0]
		gotOpen, gotClose := delimiterFlags(before, after, c, emphasisProcessor{c})
		if gotOpen != test.wantOpen || gotClose != test.wantClose {
			t.Errorf("delimiterFlags for %q = %t, %t; want %t, %t",
				test.prefix+test.run+test.suffix, gotOpen, gotClose, test.wantOpen, test.wantClose)
		}
	}
}

// testProcessor wraps content in a custom node
// when both runs have at least min characters.
type testProcessor struct {
	tag              string
	opening, closing byte
	min              int
}

func (p testProcessor) OpeningDelimiter() byte { return p.opening }
func (p testProcessor) ClosingDelimiter() byte { return p.closing }
func (p testProcessor) MinLength() int         { return p.min }

func (p testProcessor) Process(opener, closer DelimiterRun) int {
	if opener.Len < p.min || closer.Len < p.min {
		return 0
	}
	return p.min
}

func (p testProcessor) Wrap(opener, closer DelimiterRun, used int, content []*Inline) *Inline {
	return NewCustomDelimited(p.tag, strings.Repeat(string(rune(p.opening)), used), "", content...)
}

func TestDelimiterProcessors(t *testing.T) {
	tests := []struct {
		name       string
		processors []DelimiterProcessor
		input      string
		want       []testNode
	}{
		{
			name:       "DistinctCharacters",
			processors: []DelimiterProcessor{testProcessor{"brace", '{', '}', 1}},
			input:      "x {a *b*} y",
			want: []testNode{
				textNode("x "),
				{
					Kind:      CustomDelimitedKind,
					Tag:       "brace",
					Delimiter: "{",
					Children: []testNode{
						textNode("a "),
						emNode("*", textNode("b")),
					},
				},
				textNode(" y"),
			},
		},
		{
			name:       "UnmatchedDistinctCharacters",
			processors: []DelimiterProcessor{testProcessor{"brace", '{', '}', 1}},
			input:      "x } y {",
			want:       []testNode{textNode("x } y {")},
		},
		{
			name:       "StaggeredWithEmphasis/Long",
			processors: []DelimiterProcessor{testProcessor{"triple", '*', '*', 3}},
			input:      "***a***",
			want: []testNode{
				{
					Kind:      CustomDelimitedKind,
					Tag:       "triple",
					Delimiter: "***",
					Children:  []testNode{textNode("a")},
				},
			},
		},
		{
			name:       "StaggeredWithEmphasis/Short",
			processors: []DelimiterProcessor{testProcessor{"triple", '*', '*', 3}},
			input:      "**a** *b*",
			want: []testNode{
				strongNode("**", textNode("a")),
				textNode(" "),
				emNode("*", textNode("b")),
			},
		},
		{
			name:       "TildeProcessor",
			processors: []DelimiterProcessor{testProcessor{"strike", '~', '~', 2}},
			input:      "~one~ ~~two~~",
			want: []testNode{
				textNode("~one~ "),
				{
					Kind:      CustomDelimitedKind,
					Tag:       "strike",
					Delimiter: "~~",
					Children:  []testNode{textNode("two")},
				},
			},
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			p, err := NewInlineParser(&Options{DelimiterProcessors: test.processors})
			if err != nil {
				t.Fatal(err)
			}
			got := p.Parse(LinesFromString(test.input))
			if diff := diffNodes(test.want, got); diff != "" {
				t.Errorf("Parse(%q) (-want +got):\n%s", test.input, diff)
			}
		})
	}
}

func TestDelimiterProcessorConflict(t *testing.T) {
	tests := []struct {
		name       string
		processors []DelimiterProcessor
	}{
		{
			name: "SameMinLength",
			processors: []DelimiterProcessor{
				&MathDelimiterProcessor{Length: 1},
				&MathDelimiterProcessor{Length: 1},
			},
		},
		{
			name:       "Emphasis",
			processors: []DelimiterProcessor{testProcessor{"star", '*', '*', 1}},
		},
		{
			name: "DistinctCharactersTwice",
			processors: []DelimiterProcessor{
				testProcessor{"brace", '{', '}', 1},
				testProcessor{"brace2", '{', '}', 2},
			},
		},
		{
			name:       "OpeningCharacterInUse",
			processors: []DelimiterProcessor{testProcessor{"mixed", '*', '}', 1}},
		},
		{
			name:       "NonASCII",
			processors: []DelimiterProcessor{testProcessor{"latin", 0xc3, 0xc3, 1}},
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := NewInlineParser(&Options{DelimiterProcessors: test.processors})
			if !errors.Is(err, ErrDelimiterConflict) {
				t.Errorf("NewInlineParser(...) error = %v; want %v", err, ErrDelimiterConflict)
			}
		})
	}
}

func TestStaggeredProcessorFind(t *testing.T) {
	sp := &staggeredProcessor{c: '$'}
	for _, n := range []int{2, 1, 4} {
		if err := sp.add(&MathDelimiterProcessor{Length: n}); err != nil {
			t.Fatal(err)
		}
	}
	if got := sp.MinLength(); got != 1 {
		t.Errorf("MinLength() = %d; want 1", got)
	}
	tests := []struct {
		n    int
		want int
	}{
		{1, 1},
		{2, 2},
		{3, 2},
		{4, 4},
		{9, 4},
		{0, 4},
	}
	for _, test := range tests {
		if got := sp.find(test.n).MinLength(); got != test.want {
			t.Errorf("find(%d).MinLength() = %d; want %d", test.n, got, test.want)
		}
	}
}

// equalLengthProcessor wraps content in a custom node
// only when the opener and closer have the same length.
type equalLengthProcessor struct{}

func (equalLengthProcessor) OpeningDelimiter() byte { return '~' }
func (equalLengthProcessor) ClosingDelimiter() byte { return '~' }
func (equalLengthProcessor) MinLength() int         { return 1 }

func (equalLengthProcessor) Process(opener, closer DelimiterRun) int {
	if opener.Len != closer.Len {
		return 0
	}
	return opener.Len
}

func (equalLengthProcessor) Wrap(opener, closer DelimiterRun, used int, content []*Inline) *Inline {
	return NewCustomDelimited("equal", strings.Repeat("~", used), "", content...)
}

// TestOpenersBottom covers inputs where a closer fails to find an opener
// and a later closer must still see (or skip) the same openers.
func TestOpenersBottom(t *testing.T) {
	tests := []struct {
		name       string
		processors []DelimiterProcessor
		input      string
		want       []testNode
	}{
		{
			name:  "RejectedOpenerVisibleToOtherCloser",
			input: "*foo**bar*",
			want: []testNode{
				emNode("*", textNode("foo**bar")),
			},
		},
		{
			name:  "RejectedOpenerThenMatch",
			input: "*foo**bar**baz*",
			want: []testNode{
				emNode("*",
					textNode("foo"),
					strongNode("**", textNode("bar")),
					textNode("baz"),
				),
			},
		},
		{
			name:  "MultipleOfThreeBothSides",
			input: "foo***bar***baz",
			want: []testNode{
				textNode("foo"),
				emNode("*", strongNode("**", textNode("bar"))),
				textNode("baz"),
			},
		},
		{
			name:  "LeftoverCloser",
			input: "foo******bar*********baz",
			want: []testNode{
				textNode("foo"),
				strongNode("**", strongNode("**", strongNode("**", textNode("bar")))),
				textNode("***baz"),
			},
		},
		{
			name:  "CloserWithoutOpeners",
			input: "foo* *bar* baz_ _qux_",
			want: []testNode{
				textNode("foo* "),
				emNode("*", textNode("bar")),
				textNode(" baz_ "),
				emNode("_", textNode("qux")),
			},
		},
		{
			// The first closer rejects the opener.
			// A later closer with the same flanking and length modulo 3 accepts it.
			name:       "CustomProcessorRejection",
			processors: []DelimiterProcessor{equalLengthProcessor{}},
			input:      "~~~~~a~~b~~~~~c",
			want: []testNode{
				{
					Kind:      CustomDelimitedKind,
					Tag:       "equal",
					Delimiter: "~~~~~",
					Children:  []testNode{textNode("a~~b")},
				},
				textNode("c"),
			},
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			p, err := NewInlineParser(&Options{DelimiterProcessors: test.processors})
			if err != nil {
				t.Fatal(err)
			}
			got := p.Parse(LinesFromString(test.input))
			if diff := diffNodes(test.want, got); diff != "" {
				t.Errorf("Parse(%q) (-want +got):\n%s", test.input, diff)
			}
		})
	}
}

func TestDeeplyNestedEmphasis(t *testing.T) {
	const depth = 10000
	input := strings.Repeat("*a **a ", depth) + "b" + strings.Repeat(" a** a*", depth)
	nodes := ParseString(input)
	if len(nodes) != 1 {
		t.Fatalf("got %d top-level nodes; want 1", len(nodes))
	}
	n := nodes[0]
	for level := 0; level < 2*depth; level++ {
		wantKind, wantDelim := EmphasisKind, "*"
		if level%2 == 1 {
			wantKind, wantDelim = StrongKind, "**"
		}
		if n.Kind() != wantKind || n.Delimiter() != wantDelim {
			t.Fatalf("level %d is %v %q; want %v %q", level, n.Kind(), n.Delimiter(), wantKind, wantDelim)
		}
		if level == 2*depth-1 {
			if n.ChildCount() != 1 || n.Child(0).Literal() != "a b a" {
				t.Fatalf("innermost node has %d children; want a single %q", n.ChildCount(), "a b a")
			}
			break
		}
		if n.ChildCount() != 3 || n.Child(0).Literal() != "a " || n.Child(2).Literal() != " a" {
			t.Fatalf("level %d has %d children; want %q, node, %q", level, n.ChildCount(), "a ", " a")
		}
		n = n.Child(1)
	}
}
