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

	"golang.org/x/text/cases"
)

// A ReferenceResolver looks up link reference definitions by label.
// Implementations must be safe to call from multiple goroutines
// if the [InlineParser] that uses them is.
type ReferenceResolver interface {
	// ResolveReference returns the definition for the given label.
	// The label is passed as it appears in the source;
	// implementations are responsible for normalizing it.
	ResolveReference(label string) (LinkDefinition, bool)
}

// LinkDefinition is the data of a [link reference definition].
//
// [link reference definition]: https://spec.commonmark.org/0.31.2/#link-reference-definition
type LinkDefinition struct {
	Destination  string
	Title        string
	TitlePresent bool
}

// ReferenceMap is a mapping of [normalized labels] to link definitions.
//
// [normalized labels]: https://spec.commonmark.org/0.31.2/#matches
type ReferenceMap map[string]LinkDefinition

// ResolveReference normalizes the label and looks it up in the map.
func (m ReferenceMap) ResolveReference(label string) (LinkDefinition, bool) {
	key := NormalizeLabel(label)
	if key == "" {
		return LinkDefinition{}, false
	}
	def, ok := m[key]
	return def, ok
}

// Add adds a definition for the given label to the map.
// In case of conflicts, Add will not replace the existing definition
// and will return false.
func (m ReferenceMap) Add(label string, def LinkDefinition) bool {
	key := NormalizeLabel(label)
	if _, exists := m[key]; key == "" || exists {
		return false
	}
	m[key] = def
	return true
}

// NormalizeLabel returns the canonical form of a link label:
// leading and trailing whitespace is removed,
// internal runs of whitespace are collapsed to a single space,
// and the result is Unicode case folded.
func NormalizeLabel(label string) string {
	return cases.Fold().String(strings.Join(strings.Fields(label), " "))
}

// ParseReferenceDefinitions parses [link reference definitions]
// at the start of a paragraph's lines, adds them to m,
// and returns the lines that remain.
// The first definition of a label wins.
//
// [link reference definitions]: https://spec.commonmark.org/0.31.2/#link-reference-definitions
func ParseReferenceDefinitions(lines SourceLines, m ReferenceMap) SourceLines {
	for len(lines) > 0 {
		s := NewScanner(lines)
		label, def, ok := parseReferenceDefinition(s)
		if !ok {
			break
		}
		m.Add(label, def)
		pos := s.Position()
		if pos.index > 0 {
			// Definition ended at the end of input.
			return nil
		}
		lines = lines[pos.line:]
	}
	return lines
}

// parseReferenceDefinition parses a single definition.
// On success, the scanner is positioned at the start of the line
// following the definition or at the end of input.
func parseReferenceDefinition(s *Scanner) (label string, def LinkDefinition, ok bool) {
	skipSpaceTab(s)
	label, ok = parseLinkLabel(s)
	if !ok || strings.TrimSpace(label) == "" || !s.NextIf(':') {
		return "", LinkDefinition{}, false
	}
	s.Whitespace()
	def.Destination, ok = parseLinkDestination(s)
	if !ok {
		return "", LinkDefinition{}, false
	}
	afterDestination := s.Position()

	if s.Whitespace() > 0 {
		if title, ok := parseLinkTitle(s); ok {
			skipSpaceTab(s)
			if atLineEnd(s) {
				def.Title = title
				def.TitlePresent = true
				s.NextIf('\n')
				return label, def, true
			}
		}
	}

	// No valid title. The destination must end its line.
	s.SetPosition(afterDestination)
	skipSpaceTab(s)
	if !atLineEnd(s) {
		return "", LinkDefinition{}, false
	}
	s.NextIf('\n')
	return label, def, true
}

func skipSpaceTab(s *Scanner) {
	for s.NextIf(' ') || s.NextIf('\t') {
	}
}

func atLineEnd(s *Scanner) bool {
	c := s.Peek()
	return c == '\n' || c == End
}
