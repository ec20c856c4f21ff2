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
	"context"
	"time"
)

// Outcome is the terminal state of a resolution run. Failure is a valid,
// fully-explained result, not an error: errors are reserved for broken
// providers, malformed requests, and solver bugs.
type Outcome int

const (
	// OutcomeSucceeded: a complete assignment satisfies every requirement.
	OutcomeSucceeded Outcome = iota
	// OutcomeFailed: the request is proven unsatisfiable; Result.Conflict
	// holds the terminal incompatibility and its cause chain.
	OutcomeFailed
	// OutcomeTimedOut: a step or time budget ran out before a verdict.
	OutcomeTimedOut
)

// String implements fmt.Stringer.
func (o Outcome) String() string {
	switch o {
	case OutcomeSucceeded:
		return "succeeded"
	case OutcomeFailed:
		return "failed"
	case OutcomeTimedOut:
		return "timed_out"
	default:
		return "unknown"
	}
}

// Result is the verdict of one resolution run.
type Result struct {
	Outcome Outcome

	// Solution holds the chosen value per subject when Outcome is
	// OutcomeSucceeded.
	Solution Solution

	// Conflict is the terminal incompatibility when Outcome is
	// OutcomeFailed. Walking its Left/Right antecedents reproduces the
	// full derivation; a Reporter renders it for humans.
	Conflict *Incompatibility
}

// Err converts the result into error form: nil on success, a
// NoSolutionError on failure, ErrBudgetExceeded on a blown budget.
func (r *Result) Err() error {
	switch r.Outcome {
	case OutcomeSucceeded:
		return nil
	case OutcomeFailed:
		return NewNoSolutionError(r.Conflict)
	default:
		return ErrBudgetExceeded
	}
}

// Resolver runs conflict-driven dependency resolution over a Provider.
//
// A Resolver is safe to reuse sequentially; each Resolve call builds its
// run state from scratch. Concurrent Resolve calls on one Resolver are
// not supported because Learned is per-run: use one Resolver per
// goroutine (they can share a Provider if it is safe for concurrent use).
type Resolver struct {
	provider Provider
	options  ResolverOptions
	learned  []*Incompatibility
}

// NewResolver creates a resolver over the given provider.
func NewResolver(provider Provider, opts ...ResolverOption) *Resolver {
	options := defaultResolverOptions()
	for _, opt := range opts {
		opt(&options)
	}
	return &Resolver{provider: provider, options: options}
}

// Learned returns the incompatibilities recorded during the most recent
// run. Empty unless WithConflictTracking(true) was set.
func (r *Resolver) Learned() []*Incompatibility {
	return r.learned
}

// Resolve finds values for every subject reachable from the root
// requirements, or proves that none exist.
//
// Requirements must be positive terms with non-empty sets; anything else
// returns a RequestError before solving starts. Contradictory but
// well-formed requirements (say, A ==1.0.0 alongside A ==2.0.0) are a
// solving failure with a full explanation, not an error, and are proven
// without any provider calls.
//
// The context is honored at every iteration of the run loop; cancellation
// surfaces as ctx.Err(), distinct from OutcomeTimedOut which reports the
// resolver's own budgets.
func (r *Resolver) Resolve(ctx context.Context, requirements []Term) (*Result, error) {
	if err := validateRequirements(requirements); err != nil {
		return nil, err
	}

	st := newRunState(r.provider, r.options)
	st.partial.seedRoot()

	var conflict *Incompatibility
	for _, req := range requirements {
		inc := newRootIncompatibility(req)
		if err := st.add(inc); err != nil {
			return nil, err
		}
		if conflict != nil {
			continue
		}
		c, err := st.applyConstraint(req, inc)
		if err != nil {
			return nil, err
		}
		conflict = c
	}

	started := time.Now()
	var seed Subject

	for steps := 0; ; steps++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if r.options.MaxSteps > 0 && steps >= r.options.MaxSteps {
			return r.finish(st, &Result{Outcome: OutcomeTimedOut}), nil
		}
		if r.options.TimeBudget > 0 && time.Since(started) >= r.options.TimeBudget {
			return r.finish(st, &Result{Outcome: OutcomeTimedOut}), nil
		}

		if conflict != nil {
			pivot, terminal, err := st.resolveConflict(conflict)
			if err != nil {
				return nil, err
			}
			if terminal != nil {
				return r.finish(st, &Result{Outcome: OutcomeFailed, Conflict: terminal}), nil
			}
			conflict = nil
			seed = pivot
			continue
		}

		propConflict, err := st.propagate(seed)
		seed = nil
		if err != nil {
			return nil, err
		}
		if propConflict != nil {
			conflict = propConflict
			continue
		}

		subject, candidates, ok, err := st.nextDecision(ctx)
		if err != nil {
			return nil, err
		}
		if !ok {
			return r.finish(st, &Result{
				Outcome:  OutcomeSucceeded,
				Solution: st.partial.buildSolution(),
			}), nil
		}

		if len(candidates) == 0 {
			conflict = st.noCandidatesConflict(subject)
			if err := st.add(conflict); err != nil {
				return nil, err
			}
			continue
		}

		value := candidates[0]
		valueReqs, err := st.provider.Requirements(ctx, subject, value)
		if err != nil {
			return nil, &ProviderError{Subject: subject, Value: value, Err: err}
		}

		assign := st.partial.addDecision(subject, value)
		st.traceAssignment("decision", assign)
		st.debug("decided",
			"subject", subjectLabel(subject),
			"value", value.String(),
			"level", st.partial.decisionLvl,
			"requirements", len(valueReqs),
		)
		st.enqueue(subject)

		conflict, err = st.registerRequirements(subject, value, valueReqs)
		if err != nil {
			return nil, err
		}
	}
}

// finish stores per-run artifacts on the resolver and logs the verdict.
func (r *Resolver) finish(st *runState, result *Result) *Result {
	if r.options.TrackConflicts {
		r.learned = st.learned
	}
	if r.options.Logger != nil {
		attrs := []any{
			"outcome", result.Outcome.String(),
			"assignments", len(st.partial.assignments),
		}
		if result.Outcome == OutcomeSucceeded {
			attrs = append(attrs, "decided", len(result.Solution))
		}
		if result.Conflict != nil {
			attrs = append(attrs, "conflict", result.Conflict.String())
		}
		r.options.Logger.Debug("resolution finished", attrs...)
	}
	return result
}

// validateRequirements rejects malformed root requests before any state
// is built or any provider call made.
func validateRequirements(requirements []Term) error {
	for _, req := range requirements {
		if req.Subject == nil {
			return &RequestError{Message: "requirement has no subject"}
		}
		if isRoot(req.Subject) {
			return &RequestError{Subject: req.Subject, Message: "the root subject cannot be required"}
		}
		if req.IsNegative() {
			return &RequestError{Subject: req.Subject, Message: "requirements must be positive"}
		}
		if req.set().IsEmpty() {
			return &RequestError{Subject: req.Subject, Message: "acceptable set is empty"}
		}
	}

	return nil
}
