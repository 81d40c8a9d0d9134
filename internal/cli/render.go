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

package cli

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"zombiezen.com/go/inlinemark"
	mdformat "zombiezen.com/go/inlinemark/format"
	"zombiezen.com/go/inlinemark/internal/config"
	"zombiezen.com/go/inlinemark/internal/logging"
	"zombiezen.com/go/inlinemark/internal/treedump"
)

// renderFlags holds flags that override configuration values.
type renderFlags struct {
	sourceSpans bool
	math        string
	softBreak   string
	ignoreRaw   bool
	filterTags  bool
}

func addRenderFlags(cmd *cobra.Command, flags *renderFlags) {
	cmd.Flags().BoolVar(&flags.sourceSpans, "source-spans", false, "record source locations of nodes")
	cmd.Flags().StringVar(&flags.math, "math", string(config.MathSpan), "math syntax: span, delimited, off")
	cmd.Flags().StringVar(&flags.softBreak, "soft-break", config.SoftBreakPreserve,
		"render soft line breaks as: preserve, space, harden")
	cmd.Flags().BoolVar(&flags.ignoreRaw, "ignore-raw", false, "omit raw HTML from HTML output")
	cmd.Flags().BoolVar(&flags.filterTags, "filter-tags", false,
		"escape tags disallowed by GitHub Flavored Markdown")
}

func newTreeCommand(opts *globalOptions) *cobra.Command {
	return newConvertCommand(opts, config.OutputTree, &cobra.Command{
		Use:   "tree [files...]",
		Short: "Print the parse tree",
	})
}

func newHTMLCommand(opts *globalOptions) *cobra.Command {
	return newConvertCommand(opts, config.OutputHTML, &cobra.Command{
		Use:   "html [files...]",
		Short: "Render Markdown as HTML",
	})
}

func newFormatCommand(opts *globalOptions) *cobra.Command {
	return newConvertCommand(opts, config.OutputMarkdown, &cobra.Command{
		Use:   "fmt [files...]",
		Short: "Rewrite Markdown in canonical form",
	})
}

func newConvertCommand(opts *globalOptions, output config.OutputFormat, cmd *cobra.Command) *cobra.Command {
	flags := new(renderFlags)
	cmd.Args = cobra.ArbitraryArgs
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		cfg, err := opts.loadConfig(cmd, flags)
		if err != nil {
			return err
		}
		return opts.convert(cmd, cfg, output, args)
	}
	addRenderFlags(cmd, flags)
	return cmd
}

// loadConfig reads the configuration file, if any,
// and applies the flags the user set explicitly.
func (opts *globalOptions) loadConfig(cmd *cobra.Command, flags *renderFlags) (*config.Config, error) {
	logger := logging.FromContext(cmd.Context())
	cfg := config.Default()
	if opts.configPath != "" {
		var err error
		cfg, err = config.Load(opts.configPath)
		if err != nil {
			return nil, err
		}
		logger.Debug("loaded config", logging.FieldConfig, opts.configPath)
	}

	fs := cmd.Flags()
	if fs.Changed("source-spans") {
		cfg.SourceSpans = flags.sourceSpans
	}
	if fs.Changed("math") {
		if flags.math == "off" {
			cfg.Math.Enabled = false
		} else {
			cfg.Math.Enabled = true
			cfg.Math.Mode = config.MathMode(flags.math)
		}
	}
	if fs.Changed("soft-break") {
		cfg.HTML.SoftBreak = flags.softBreak
	}
	if fs.Changed("ignore-raw") {
		cfg.HTML.IgnoreRaw = flags.ignoreRaw
	}
	if fs.Changed("filter-tags") {
		cfg.HTML.FilterTags = flags.filterTags
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// convert parses each input and writes it to the command's output.
// An empty args list or "-" reads standard input.
func (opts *globalOptions) convert(cmd *cobra.Command, cfg *config.Config, output config.OutputFormat, args []string) error {
	logger := logging.FromContext(cmd.Context())
	if len(args) == 0 {
		args = []string{"-"}
	}
	out := cmd.OutOrStdout()
	parserOptions := cfg.ParserOptions()
	renderer := cfg.Renderer()
	styles := treedump.NewStyles(treedump.ColorEnabled(opts.color, out))

	for _, path := range args {
		data, err := readInput(cmd.InOrStdin(), path)
		if err != nil {
			return err
		}
		doc, err := inlinemark.ParseDocument(bytes.NewReader(data), parserOptions)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		logger.Debug("parsed",
			logging.FieldPath, path,
			logging.FieldBytes, len(data),
			logging.FieldBlocks, len(doc.Blocks),
			logging.FieldOutput, output,
		)

		switch output {
		case config.OutputTree:
			err = treedump.Dump(out, doc.Blocks, styles)
		case config.OutputMarkdown:
			err = mdformat.Format(out, doc.Blocks)
		default:
			err = renderer.Render(out, doc.Blocks)
		}
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
	}
	return nil
}

func readInput(stdin io.Reader, path string) ([]byte, error) {
	if path == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	return data, nil
}
