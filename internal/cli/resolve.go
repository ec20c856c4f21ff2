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
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/toolchainlabs/crux"
	"github.com/toolchainlabs/crux/internal/scenario"
	"github.com/toolchainlabs/crux/kvstore"
)

// resolveOptions holds flags for the resolve command.
type resolveOptions struct {
	Store      string
	Reporter   string
	Strategy   string
	MaxSteps   int
	TimeBudget time.Duration
}

// NewResolveCommand creates the resolve command.
func NewResolveCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &resolveOptions{}

	cmd := &cobra.Command{
		Use:   "resolve <scenario.yaml>...",
		Short: "Resolve one or more scenario files",
		Long: `Resolve each scenario file: pick one version per subject satisfying the
scenario's root requirements against its universe, or explain the conflict.

Candidates come from the scenario's own universe unless --store points at
an ingested BadgerDB index. Multiple scenarios resolve concurrently.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResolve(cmd, rootOpts, opts, args)
		},
	}

	cmd.Flags().StringVar(&opts.Store, "store", "", "resolve against an ingested store instead of the scenario universe")
	cmd.Flags().StringVar(&opts.Reporter, "reporter", "tree", "conflict explanation format (tree|chain)")
	cmd.Flags().StringVar(&opts.Strategy, "strategy", "fewest", "decision strategy (fewest|insertion)")
	cmd.Flags().IntVar(&opts.MaxSteps, "max-steps", 0, "step budget per scenario (0 = resolver default)")
	cmd.Flags().DurationVar(&opts.TimeBudget, "time-budget", 0, "wall-clock budget per scenario (0 = unlimited)")

	return cmd
}

func runResolve(cmd *cobra.Command, rootOpts *RootOptions, opts *resolveOptions, paths []string) error {
	reporter, err := reporterFor(opts.Reporter)
	if err != nil {
		return err
	}
	strategy, err := strategyFor(opts.Strategy)
	if err != nil {
		return err
	}

	var store *kvstore.Store
	if opts.Store != "" {
		store, err = kvstore.Open(kvstore.DefaultConfig(opts.Store))
		if err != nil {
			return err
		}
		defer store.Close()
	}

	resolverOpts := []crux.ResolverOption{
		crux.WithDecisionStrategy(strategy),
	}
	if rootOpts.Verbose {
		resolverOpts = append(resolverOpts, crux.WithLogger(rootOpts.Logger()))
	}
	if opts.MaxSteps > 0 {
		resolverOpts = append(resolverOpts, crux.WithMaxSteps(opts.MaxSteps))
	}
	if opts.TimeBudget > 0 {
		resolverOpts = append(resolverOpts, crux.WithTimeBudget(opts.TimeBudget))
	}

	// One resolver per scenario: Resolver state is per-run, only the store
	// is shared and it is safe for concurrent readers.
	reports := make([]string, len(paths))
	g, ctx := errgroup.WithContext(cmd.Context())

	for i, path := range paths {
		g.Go(func() error {
			doc, err := scenario.Load(path)
			if err != nil {
				return err
			}

			terms, err := doc.Terms()
			if err != nil {
				return err
			}

			var provider crux.Provider
			if store != nil {
				provider = store
			} else {
				provider, err = doc.Provider()
				if err != nil {
					return err
				}
			}

			resolver := crux.NewResolver(provider, resolverOpts...)
			result, err := resolver.Resolve(ctx, terms)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}

			reports[i] = formatResult(doc, path, result, reporter)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	failed := false
	for _, report := range reports {
		fmt.Fprint(out, report)
		if strings.Contains(report, "unsolvable") || strings.Contains(report, "budget exceeded") {
			failed = true
		}
	}
	if failed {
		return fmt.Errorf("some scenarios did not resolve")
	}
	return nil
}

func formatResult(doc *scenario.Document, path string, result *crux.Result, reporter crux.Reporter) string {
	name := doc.Name
	if name == "" {
		name = path
	}

	var b strings.Builder
	switch result.Outcome {
	case crux.OutcomeSucceeded:
		fmt.Fprintf(&b, "%s: resolved %d subjects\n", name, len(result.Solution))
		for sv := range result.Solution.All() {
			fmt.Fprintf(&b, "  %s\n", sv)
		}
	case crux.OutcomeFailed:
		fmt.Fprintf(&b, "%s: unsolvable\n", name)
		for _, line := range strings.Split(reporter.Report(result.Conflict), "\n") {
			fmt.Fprintf(&b, "  %s\n", line)
		}
	case crux.OutcomeTimedOut:
		fmt.Fprintf(&b, "%s: budget exceeded before a verdict\n", name)
	}
	return b.String()
}

func reporterFor(name string) (crux.Reporter, error) {
	switch name {
	case "tree":
		return &crux.TreeReporter{}, nil
	case "chain":
		return &crux.ChainReporter{}, nil
	default:
		return nil, fmt.Errorf("invalid reporter %q: must be tree or chain", name)
	}
}

func strategyFor(name string) (crux.DecisionStrategy, error) {
	switch name {
	case "fewest":
		return crux.FewestCandidates, nil
	case "insertion":
		return crux.InsertionOrder, nil
	default:
		return 0, fmt.Errorf("invalid strategy %q: must be fewest or insertion", name)
	}
}
