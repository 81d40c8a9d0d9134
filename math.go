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

import "strings"

// MathTag is the [*Inline.Tag] of math nodes.
const MathTag = "math"

// MathSpanParser is an [InlineContentParser] for math spans delimited by dollar signs.
// Math spans are matched like code spans:
// an opening run of dollar signs is closed by the next run of the same length,
// and the content between them is not parsed for other inline elements.
// An opening run without a matching closing run is literal text.
//
// The zero value matches runs of any length.
type MathSpanParser struct {
	// MinLength is the minimum number of dollar signs in the opening run.
	// Shorter runs are literal text.
	MinLength int
}

// Triggers returns the dollar sign.
func (p *MathSpanParser) Triggers() []byte {
	return []byte{'$'}
}

// ParseInline parses a math span.
func (p *MathSpanParser) ParseInline(s *Scanner) *Inline {
	n := s.MatchMultiple('$')
	fence := strings.Repeat("$", n)
	if n < p.MinLength {
		return NewText(fence)
	}
	content, ok := matchFencedSpan(s, '$', n)
	if !ok {
		return NewText(fence)
	}
	return NewCustomDelimited(MathTag, fence, content)
}

// MathDelimiterProcessor is a [DelimiterProcessor] for math delimited by dollar signs.
// Unlike [MathSpanParser], the content between the delimiters
// is parsed as inline content first and then flattened to plain text.
// Several MathDelimiterProcessors with different lengths may be registered,
// for example to distinguish $inline$ from $$display$$ math.
type MathDelimiterProcessor struct {
	// Length is the number of dollar signs consumed from each side.
	// Zero is treated as 1.
	Length int
}

func (p *MathDelimiterProcessor) length() int {
	if p.Length <= 0 {
		return 1
	}
	return p.Length
}

// OpeningDelimiter returns '$'.
func (p *MathDelimiterProcessor) OpeningDelimiter() byte { return '$' }

// ClosingDelimiter returns '$'.
func (p *MathDelimiterProcessor) ClosingDelimiter() byte { return '$' }

// MinLength returns p.Length.
func (p *MathDelimiterProcessor) MinLength() int { return p.length() }

// Process consumes p.Length characters if both runs are long enough.
func (p *MathDelimiterProcessor) Process(opener, closer DelimiterRun) int {
	n := p.length()
	if opener.Len < n || closer.Len < n {
		return 0
	}
	return n
}

// Wrap returns a math node whose literal is the plain text of content.
func (p *MathDelimiterProcessor) Wrap(opener, closer DelimiterRun, used int, content []*Inline) *Inline {
	literal := normalizeSpanContent(PlainText(content...))
	return NewCustomDelimited(MathTag, strings.Repeat("$", used), literal)
}
