// Copyright 2025 Toolchain Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package cli implements the crux command line interface.
package cli

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags shared by all commands.
type RootOptions struct {
	Verbose bool
}

// Logger builds the process logger: debug level when verbose, info
// otherwise, text output on stderr so command output stays clean.
func (o *RootOptions) Logger() *slog.Logger {
	level := slog.LevelInfo
	if o.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// NewRootCommand creates the root command for the crux CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "crux",
		Short: "Conflict-driven dependency version resolution",
		Long: `crux resolves dependency graphs: given root requirements and a
universe of candidate versions, it picks one version per subject
satisfying every constraint, or explains why no selection can.`,
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "log resolver internals to stderr")

	cmd.AddCommand(NewResolveCommand(opts))
	cmd.AddCommand(NewIngestCommand(opts))

	return cmd
}
