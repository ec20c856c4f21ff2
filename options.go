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

package crux

import (
	"log/slog"
	"time"
)

// DecisionStrategy selects which undecided subject the resolver branches
// on next. Any strategy preserves correctness; only performance differs.
type DecisionStrategy int

const (
	// FewestCandidates picks the subject with the fewest remaining
	// candidate values, ties broken by first-encountered order. This is
	// the conventional PubGrub heuristic and the default.
	FewestCandidates DecisionStrategy = iota
	// InsertionOrder picks the first undecided subject in the order
	// constraints were recorded. Cheapest per decision; useful when the
	// provider makes candidate counting expensive.
	InsertionOrder
)

// ResolverOptions configures a Resolver.
type ResolverOptions struct {
	// TrackConflicts collects learned incompatibilities for inspection
	// via Resolver.Learned after a run.
	TrackConflicts bool

	// MaxSteps bounds the number of propagate/decide cycles. Zero
	// disables the bound (not recommended for untrusted inputs).
	// Default: 100000. Exceeding it ends the run with OutcomeTimedOut.
	MaxSteps int

	// TimeBudget bounds wall-clock time per run, checked once per cycle.
	// Zero disables it. Exceeding it ends the run with OutcomeTimedOut.
	TimeBudget time.Duration

	// Strategy selects the decision heuristic.
	Strategy DecisionStrategy

	// Logger enables debug logging of resolver operations. Nil disables
	// logging.
	Logger *slog.Logger
}

// ResolverOption is a functional option for configuring the resolver.
type ResolverOption func(*ResolverOptions)

const defaultMaxSteps = 100000

func defaultResolverOptions() ResolverOptions {
	return ResolverOptions{
		MaxSteps: defaultMaxSteps,
		Strategy: FewestCandidates,
	}
}

// WithConflictTracking enables or disables collection of learned
// incompatibilities for post-run inspection.
func WithConflictTracking(enabled bool) ResolverOption {
	return func(opts *ResolverOptions) {
		opts.TrackConflicts = enabled
	}
}

// WithMaxSteps sets the iteration budget. Zero or negative disables it.
//
// Real-world graphs resolve in thousands of cycles; the budget exists so
// pathological inputs end in OutcomeTimedOut instead of spinning.
func WithMaxSteps(steps int) ResolverOption {
	return func(opts *ResolverOptions) {
		if steps <= 0 {
			opts.MaxSteps = 0
		} else {
			opts.MaxSteps = steps
		}
	}
}

// WithTimeBudget sets the wall-clock budget per run. Zero disables it.
func WithTimeBudget(d time.Duration) ResolverOption {
	return func(opts *ResolverOptions) {
		if d < 0 {
			d = 0
		}
		opts.TimeBudget = d
	}
}

// WithDecisionStrategy selects the branching heuristic.
func WithDecisionStrategy(strategy DecisionStrategy) ResolverOption {
	return func(opts *ResolverOptions) {
		opts.Strategy = strategy
	}
}

// WithLogger sets a structured logger for resolver diagnostics. The
// resolver logs at debug level: propagation steps, conflicts, decisions.
//
// Example:
//
//	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
//	resolver := crux.NewResolver(provider, crux.WithLogger(logger))
func WithLogger(logger *slog.Logger) ResolverOption {
	return func(opts *ResolverOptions) {
		opts.Logger = logger
	}
}
