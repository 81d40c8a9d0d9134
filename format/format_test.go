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

package format

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/google/go-cmp/cmp"
	"zombiezen.com/go/inlinemark"
	"zombiezen.com/go/inlinemark/internal/normhtml"
)

var mathOptions = &inlinemark.Options{
	ContentParsers: []inlinemark.InlineContentParser{
		new(inlinemark.MathSpanParser),
	},
}

func parse(tb testing.TB, markdown string) []*inlinemark.Block {
	tb.Helper()
	doc, err := inlinemark.ParseDocument(strings.NewReader(markdown), mathOptions)
	if err != nil {
		tb.Fatal(err)
	}
	return doc.Blocks
}

func TestFormat(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "Plain",
			input: "Hello, World!",
			want:  "Hello, World!\n",
		},
		{
			name:  "Emphasis",
			input: "Hello, **World**!\n*foo*bar _baz_",
			want:  "Hello, **World**!\n*foo*bar _baz_\n",
		},
		{
			name:  "EscapedDelimiters",
			input: `\*not emphasized*`,
			want:  `\*not emphasized\*` + "\n",
		},
		{
			name:  "IntrawordUnderscore",
			input: "_foo_bar_baz_",
			want:  `_foo\_bar\_baz_` + "\n",
		},
		{
			name:  "Link",
			input: `[link](/uri "title")`,
			want:  `[link](</uri> "title")` + "\n",
		},
		{
			name:  "LinkDestinationWithSpace",
			input: "[a](</my uri>)",
			want:  "[a](</my uri>)\n",
		},
		{
			name:  "LinkTitleEscapes",
			input: `[a](/u&amp;v "say \"hi\" &amp; go")`,
			want:  `[a](</u\&v> "say \"hi\" \& go")` + "\n",
		},
		{
			name:  "ReferenceLink",
			input: "[foo][bar]\n\n[bar]: /url 'title'",
			want:  `[foo](</url> "title")` + "\n",
		},
		{
			name:  "Image",
			input: "![foo *bar*](/url)",
			want:  "![foo *bar*](</url>)\n",
		},
		{
			name:  "EscapedBangBeforeLink",
			input: `\![x](/y)`,
			want:  `\![x](</y>)` + "\n",
		},
		{
			name:  "BangWithoutLink",
			input: `!\[x\]`,
			want:  `!\[x\]` + "\n",
		},
		{
			name:  "CodeSpanInnerBacktick",
			input: "`` foo ` bar ``",
			want:  "``foo ` bar``\n",
		},
		{
			name:  "CodeSpanPadding",
			input: "`` `a` ``",
			want:  "`` `a` ``\n",
		},
		{
			name:  "HardBreak",
			input: "a  \nb",
			want:  "a\\\nb\n",
		},
		{
			name:  "Entities",
			input: "&copy; &amp;",
			want:  "© \\&\n",
		},
		{
			name:  "RawHTML",
			input: "x <b>hi</b>",
			want:  "x <b>hi</b>\n",
		},
		{
			name:  "LineStartMarkers",
			input: "1\\. not a list\n\\# not a heading",
			want:  "1\\. not a list\n\\# not a heading\n",
		},
		{
			name:  "Math",
			input: `$x^2$ costs \$5`,
			want:  `$x^2$ costs \$5` + "\n",
		},
		{
			name:  "MathPadding",
			input: "$$ $a$ $$",
			want:  "$$ $a$ $$\n",
		},
		{
			name:  "Blocks",
			input: "a\n\n<div>\n*x*\n</div>\n\nb",
			want:  "a\n\n<div>\n*x*\n</div>\n\nb\n",
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got := new(strings.Builder)
			if err := Format(got, parse(t, test.input)); err != nil {
				t.Error("Format:", err)
			}
			if diff := cmp.Diff(test.want, got.String()); diff != "" {
				t.Errorf("output (-want +got):\n%s", diff)
			}
		})
	}
}

func TestAppendInlines(t *testing.T) {
	tests := []struct {
		name  string
		dst   string
		nodes []*inlinemark.Inline
		want  string
	}{
		{
			name:  "LineStart",
			nodes: []*inlinemark.Inline{inlinemark.NewText("- x")},
			want:  `\- x`,
		},
		{
			name:  "MidLine",
			dst:   "a ",
			nodes: []*inlinemark.Inline{inlinemark.NewText("- x")},
			want:  "a - x",
		},
		{
			name: "DefaultDelimiters",
			nodes: []*inlinemark.Inline{
				inlinemark.NewInline(inlinemark.StrongKind,
					inlinemark.NewInline(inlinemark.EmphasisKind, inlinemark.NewText("x")),
				),
			},
			want: "***x***",
		},
		{
			name: "CustomDelimited",
			nodes: []*inlinemark.Inline{
				inlinemark.NewCustomDelimited("box", "{{", "", inlinemark.NewText("x")),
			},
			want: "{{x}}",
		},
		{
			name: "CodeSpanRun",
			nodes: []*inlinemark.Inline{
				inlinemark.NewCodeSpan("`", "a`b"),
			},
			want: "``a`b``",
		},
		{
			name: "MathSpanRun",
			nodes: []*inlinemark.Inline{
				inlinemark.NewCustomDelimited(inlinemark.MathTag, "$", "a$$b$"),
			},
			want: "$$$ a$$b$ $$$",
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got := string(AppendInlines([]byte(test.dst), test.nodes))
			if got != test.want {
				t.Errorf("AppendInlines(%q, ...) = %q; want %q", test.dst, got, test.want)
			}
		})
	}
}

var roundTripInputs = []string{
	"Hello, **World**!",
	"***strong emph***",
	"**foo*bar*baz**",
	"*(**foo**)*",
	"foo***bar***baz",
	"__foo, __bar__, baz__",
	"_foo_bar_baz_",
	"a * foo bar*",
	"*foo _bar* baz_",
	"[link [foo [bar]]](/uri)",
	"[![moon](moon.jpg)](/uri)",
	"[a](<b)c>)",
	"[a](/u&amp;v \"t&quot;\")",
	"[foo][bar]\n\n[bar]: /url \"title\"",
	"<http://foo.bar.baz>",
	"<foo@bar.example.com>",
	"x <!-- c --> y",
	"`` foo ` bar ``",
	"`  a  `",
	"a\\\\\nb  \nc",
	"&#35; &MadeUpEntity; \\&amp;",
	"1) x\n-y\n>z",
	"$a$ and $$b$$ and $ c $",
	"\\$not math$",
	"![a\n*b*](/c 'd')",
}

func TestRoundTrip(t *testing.T) {
	for _, input := range roundTripInputs {
		checkRoundTrip(t, input)
	}
}

func FuzzFormat(f *testing.F) {
	for _, input := range roundTripInputs {
		f.Add(input)
	}

	f.Fuzz(func(t *testing.T, markdown string) {
		if !utf8.ValidString(markdown) {
			t.Skip("Invalid UTF-8")
		}
		checkRoundTrip(t, markdown)
	})
}

// checkRoundTrip verifies that formatting markdown
// does not change its rendered HTML
// and that formatting is idempotent.
func checkRoundTrip(t *testing.T, markdown string) {
	t.Helper()
	blocks := parse(t, markdown)
	originalHTML := new(bytes.Buffer)
	if err := inlinemark.RenderHTML(originalHTML, blocks); err != nil {
		t.Fatal("Render original HTML:", err)
	}

	got := new(bytes.Buffer)
	if err := Format(got, blocks); err != nil {
		t.Error("Format #1:", err)
	}

	formattedBlocks := parse(t, got.String())
	formattedHTML := new(bytes.Buffer)
	if err := inlinemark.RenderHTML(formattedHTML, formattedBlocks); err != nil {
		t.Error("Render formatted HTML:", err)
	} else if !normhtml.Equal(originalHTML.Bytes(), formattedHTML.Bytes()) {
		diff := cmp.Diff(string(normhtml.NormalizeHTML(originalHTML.Bytes())), string(normhtml.NormalizeHTML(formattedHTML.Bytes())))
		t.Errorf("Reformatting changed semantics. Original:\n%s\nReformatting:\n%s\nHTML diff (-want +got):\n%s", markdown, got, diff)
	}

	reformatted := new(bytes.Buffer)
	if err := Format(reformatted, formattedBlocks); err != nil {
		t.Error("Format #2:", err)
	}
	if diff := cmp.Diff(got.String(), reformatted.String()); diff != "" {
		t.Errorf("Format of %q not idempotent (-first +second):\n%s", markdown, diff)
	}
}

type errWriterStub struct{}

var errBoom = errors.New("boom")

func (errWriterStub) Write(p []byte) (int, error) { return 0, errBoom }

func TestFormatWriteError(t *testing.T) {
	err := Format(errWriterStub{}, parse(t, "a\n\nb"))
	if !errors.Is(err, errBoom) {
		t.Errorf("Format(...) = %v; want %v", err, errBoom)
	}
}
