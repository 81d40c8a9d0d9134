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

// Package config loads the settings of the inlinemark command from YAML.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
	"zombiezen.com/go/inlinemark"
)

// ErrInvalid is wrapped by the errors returned from [*Config.Validate].
var ErrInvalid = errors.New("invalid configuration")

// OutputFormat names what the command writes for each input.
type OutputFormat string

// Output formats.
const (
	OutputTree     OutputFormat = "tree"
	OutputHTML     OutputFormat = "html"
	OutputMarkdown OutputFormat = "markdown"
)

// MathMode selects how math is recognized.
type MathMode string

// Math modes.
const (
	// MathSpan treats dollar-sign runs like code span fences.
	MathSpan MathMode = "span"
	// MathDelimited treats dollar signs as delimiters around inline content.
	MathDelimited MathMode = "delimited"
)

// Soft break behaviors accepted by HTMLConfig.SoftBreak.
const (
	SoftBreakPreserve = "preserve"
	SoftBreakSpace    = "space"
	SoftBreakHarden   = "harden"
)

// Config is the top-level configuration.
type Config struct {
	// SourceSpans records the source location of each node.
	SourceSpans bool         `yaml:"source_spans"`
	Output      OutputFormat `yaml:"output"`
	Math        MathConfig   `yaml:"math"`
	HTML        HTMLConfig   `yaml:"html"`
}

// MathConfig configures the math extension.
type MathConfig struct {
	Enabled bool     `yaml:"enabled"`
	Mode    MathMode `yaml:"mode"`
	// MinLengths lists the dollar-sign run lengths to recognize.
	// In span mode only the smallest is used, as the minimum fence length.
	// In delimited mode each length gets its own processor.
	MinLengths []int `yaml:"min_lengths,omitempty"`
}

// HTMLConfig configures the HTML renderer.
type HTMLConfig struct {
	SoftBreak string `yaml:"soft_break"`
	IgnoreRaw bool   `yaml:"ignore_raw"`
	// FilterTags escapes the tags disallowed by GitHub Flavored Markdown.
	FilterTags bool `yaml:"filter_tags"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Output: OutputHTML,
		Math: MathConfig{
			Enabled:    true,
			Mode:       MathSpan,
			MinLengths: []int{1},
		},
		HTML: HTMLConfig{
			SoftBreak: SoftBreakPreserve,
		},
	}
}

// Load reads and validates the configuration file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	cfg, err := FromYAML(data)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	return cfg, nil
}

// FromYAML parses a configuration from YAML.
// Fields missing from data keep their [Default] values,
// and unknown fields are an error.
func FromYAML(data []byte) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	return cfg, nil
}

// ToYAML serializes the configuration.
func (c *Config) ToYAML() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return buf.Bytes(), nil
}

// Validate reports every problem with the configuration.
// The returned error wraps [ErrInvalid].
func (c *Config) Validate() error {
	var errs []error
	switch c.Output {
	case OutputTree, OutputHTML, OutputMarkdown:
	default:
		errs = append(errs, fmt.Errorf("output: unknown format %q", c.Output))
	}
	switch c.HTML.SoftBreak {
	case SoftBreakPreserve, SoftBreakSpace, SoftBreakHarden:
	default:
		errs = append(errs, fmt.Errorf("html.soft_break: unknown behavior %q", c.HTML.SoftBreak))
	}
	if c.Math.Enabled {
		switch c.Math.Mode {
		case MathSpan, MathDelimited:
		default:
			errs = append(errs, fmt.Errorf("math.mode: unknown mode %q", c.Math.Mode))
		}
		if len(c.Math.MinLengths) == 0 {
			errs = append(errs, errors.New("math.min_lengths: must not be empty"))
		}
		seen := make(map[int]bool)
		for _, n := range c.Math.MinLengths {
			if n < 1 {
				errs = append(errs, fmt.Errorf("math.min_lengths: %d is less than 1", n))
			}
			if seen[n] {
				errs = append(errs, fmt.Errorf("math.min_lengths: %d listed more than once", n))
			}
			seen[n] = true
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
}

// ParserOptions returns the inline parser options the configuration describes.
func (c *Config) ParserOptions() *inlinemark.Options {
	opts := &inlinemark.Options{
		IncludeSourceSpans: c.SourceSpans,
	}
	if !c.Math.Enabled || len(c.Math.MinLengths) == 0 {
		return opts
	}
	switch c.Math.Mode {
	case MathSpan:
		opts.ContentParsers = append(opts.ContentParsers, &inlinemark.MathSpanParser{
			MinLength: slices.Min(c.Math.MinLengths),
		})
	case MathDelimited:
		for _, n := range c.Math.MinLengths {
			opts.DelimiterProcessors = append(opts.DelimiterProcessors, &inlinemark.MathDelimiterProcessor{
				Length: n,
			})
		}
	}
	return opts
}

// Renderer returns the HTML renderer the configuration describes.
func (c *Config) Renderer() *inlinemark.HTMLRenderer {
	r := &inlinemark.HTMLRenderer{
		IgnoreRaw: c.HTML.IgnoreRaw,
	}
	switch c.HTML.SoftBreak {
	case SoftBreakSpace:
		r.SoftBreakBehavior = inlinemark.SoftBreakSpace
	case SoftBreakHarden:
		r.SoftBreakBehavior = inlinemark.SoftBreakHarden
	default:
		r.SoftBreakBehavior = inlinemark.SoftBreakPreserve
	}
	if c.HTML.FilterTags {
		r.FilterTag = inlinemark.FilterTagGFM
	}
	return r
}
