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

package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/toolchainlabs/crux"
	"github.com/toolchainlabs/crux/internal/scenario"
	"github.com/toolchainlabs/crux/kvstore"
)

// NewIngestCommand creates the ingest command.
func NewIngestCommand(rootOpts *RootOptions) *cobra.Command {
	var storePath string

	cmd := &cobra.Command{
		Use:   "ingest --store <dir> <scenario.yaml>...",
		Short: "Ingest scenario universes into a store",
		Long: `Ingest the candidate universe of each scenario file into a BadgerDB
store, so later resolve runs can use --store instead of carrying the
universe in every file.`,
		Args:         cobra.MinimumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngest(cmd, rootOpts, storePath, args)
		},
	}

	cmd.Flags().StringVar(&storePath, "store", "", "store directory (required)")
	_ = cmd.MarkFlagRequired("store")

	return cmd
}

func runIngest(cmd *cobra.Command, rootOpts *RootOptions, storePath string, paths []string) error {
	cfg := kvstore.DefaultConfig(storePath)
	if rootOpts.Verbose {
		cfg.Logger = rootOpts.Logger()
	}

	store, err := kvstore.Open(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := cmd.Context()
	total := 0

	for _, path := range paths {
		doc, err := scenario.Load(path)
		if err != nil {
			return err
		}

		count := 0
		err = doc.Walk(func(subject crux.Subject, value crux.Value, reqs []crux.Term) error {
			if err := store.Ingest(ctx, subject, value, reqs); err != nil {
				return err
			}
			count++
			return nil
		})
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "%s: ingested %d candidates\n", path, count)
		total += count
	}

	fmt.Fprintf(cmd.OutOrStdout(), "done: %d candidates in %s\n", total, storePath)
	return nil
}
