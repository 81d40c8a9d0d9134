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

// Package cli provides the Cobra command structure for inlinemark.
package cli

import (
	"github.com/spf13/cobra"
	"zombiezen.com/go/inlinemark/internal/logging"
)

// BuildInfo holds build-time version information.
type BuildInfo struct {
	Version string
	Commit  string
	Date    string
}

// globalOptions holds the values of the persistent flags.
type globalOptions struct {
	debug      bool
	configPath string
	color      string
}

// NewRootCommand creates the root inlinemark command with all subcommands.
// Run without a subcommand, it writes the output format named in the configuration.
func NewRootCommand(info BuildInfo) *cobra.Command {
	opts := new(globalOptions)
	flags := new(renderFlags)
	rootCmd := &cobra.Command{
		Use:   "inlinemark [files...]",
		Short: "Parse Markdown inline content and render it",
		Long: `inlinemark parses the inline content of Markdown paragraphs
(emphasis, links, code spans, raw HTML, math) and writes the result
as HTML, as canonical Markdown, or as a parse tree.

Input is read from the named files, or from standard input if none are given.`,
		Args: cobra.ArbitraryArgs,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			level := "info"
			if opts.debug {
				level = "debug"
			}
			logger := logging.New(cmd.ErrOrStderr(), level)
			cmd.SetContext(logging.WithLogger(cmd.Context(), logger))
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig(cmd, flags)
			if err != nil {
				return err
			}
			return opts.convert(cmd, cfg, cfg.Output, args)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().BoolVar(&opts.debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to config file")
	rootCmd.PersistentFlags().StringVar(&opts.color, "color", "auto",
		"colorize tree output: auto, always, never")
	addRenderFlags(rootCmd, flags)

	rootCmd.AddCommand(newTreeCommand(opts))
	rootCmd.AddCommand(newHTMLCommand(opts))
	rootCmd.AddCommand(newFormatCommand(opts))
	rootCmd.AddCommand(newVersionCommand(info))

	return rootCmd
}
