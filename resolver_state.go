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
	"errors"
)

// runState holds all mutable state of one resolution run: the partial
// solution, the incompatibility set indexed by subject, and the unit
// propagation queue. It exists for exactly one Resolve call and is never
// shared.
type runState struct {
	provider Provider
	options  ResolverOptions
	partial  *partialSolution
	index    map[Subject][]*Incompatibility
	learned  []*Incompatibility
	queue    []Subject
	queued   map[Subject]bool
}

func newRunState(provider Provider, options ResolverOptions) *runState {
	return &runState{
		provider: provider,
		options:  options,
		partial:  newPartialSolution(),
		index:    make(map[Subject][]*Incompatibility),
		queued:   make(map[Subject]bool),
	}
}

func (st *runState) enqueue(subject Subject) {
	if st.queued[subject] {
		return
	}
	st.queue = append(st.queue, subject)
	st.queued[subject] = true
}

func (st *runState) dequeue() (Subject, bool) {
	if len(st.queue) == 0 {
		return nil, false
	}
	subject := st.queue[0]
	st.queue = st.queue[1:]
	delete(st.queued, subject)
	return subject, true
}

// add registers an incompatibility under every subject it mentions.
// A well-formed incompatibility never holds two terms on one subject;
// violating that is a programming error, not a solvable conflict.
func (st *runState) add(inc *Incompatibility) error {
	seen := make(map[Subject]bool, len(inc.Terms))
	for _, term := range inc.Terms {
		if seen[term.Subject] {
			return &InternalError{Message: "incompatibility holds two terms on " + subjectLabel(term.Subject)}
		}
		seen[term.Subject] = true
		st.index[term.Subject] = append(st.index[term.Subject], inc)
	}
	if st.options.TrackConflicts {
		st.learned = append(st.learned, inc)
	}
	return nil
}

func (st *runState) debug(msg string, args ...any) {
	if st.options.Logger == nil {
		return
	}
	st.options.Logger.Debug(msg, args...)
}

func (st *runState) traceAssignment(event string, assign *assignment) {
	if st.options.Logger == nil || assign == nil {
		return
	}
	st.options.Logger.Debug("assignment",
		"event", event,
		"subject", subjectLabel(assign.subject),
		"detail", assign.describe(),
	)
}

// propagate runs unit propagation to a fixed point. For every
// incompatibility touching a queued subject: a satisfied incompatibility
// is a conflict and is returned immediately; an almost-satisfied one
// forces the negation of its single unsatisfied term as a derivation at
// the current decision level.
func (st *runState) propagate(start Subject) (*Incompatibility, error) {
	if start != nil {
		st.enqueue(start)
	}

	for {
		subject, ok := st.dequeue()
		if !ok {
			return nil, nil
		}

		for _, inc := range st.index[subject] {
			relation, unsatisfied := st.partial.relation(inc)

			switch relation {
			case relationSatisfied:
				st.debug("conflict detected during propagation",
					"subject", subjectLabel(subject),
					"incompatibility", inc.String(),
				)
				return inc, nil
			case relationAlmostSatisfied:
				if unsatisfied == nil {
					continue
				}
				derived := unsatisfied.Negate()
				st.debug("unit propagation",
					"subject", subjectLabel(subject),
					"incompatibility", inc.String(),
					"derived_term", derived.String(),
				)
				assign, changed, err := st.partial.addDerivation(derived, inc)
				if errors.Is(err, errNoAllowedValues) {
					return inc, nil
				}
				if err != nil {
					return nil, err
				}
				if assign != nil {
					st.traceAssignment("derivation", assign)
				}
				if changed && assign != nil {
					st.enqueue(assign.subject)
				}
			}
		}
	}
}

// resolveIncompatibility performs the resolution step of clause learning:
// merge the conflict with the cause of its satisfier, dropping the pivot
// subject's terms and tightening any terms the two share.
func resolveIncompatibility(conflict, cause *Incompatibility, pivot Subject) *Incompatibility {
	terms := make(map[Subject]Term)

	for _, term := range conflict.Terms {
		if term.Subject == pivot {
			continue
		}
		terms[term.Subject] = term
	}

	for _, term := range cause.Terms {
		if term.Subject == pivot {
			continue
		}
		if existing, ok := terms[term.Subject]; ok {
			if merged, ok := mergeClauseTerms(existing, term); ok {
				terms[term.Subject] = merged
				continue
			}
		}
		terms[term.Subject] = term
	}

	// Rebuild in a deterministic order: conflict's terms first, then any
	// the cause contributed.
	merged := make([]Term, 0, len(terms))
	for _, term := range conflict.Terms {
		if term.Subject == pivot {
			continue
		}
		if t, ok := terms[term.Subject]; ok {
			merged = append(merged, t)
			delete(terms, term.Subject)
		}
	}
	for _, term := range cause.Terms {
		if term.Subject == pivot {
			continue
		}
		if t, ok := terms[term.Subject]; ok {
			merged = append(merged, t)
			delete(terms, term.Subject)
		}
	}

	return NewIncompatibilityConflict(merged, conflict, cause)
}

// mergeClauseTerms tightens two same-polarity terms about one subject
// during clause learning. Mixed polarity keeps the later term as-is.
func mergeClauseTerms(a, b Term) (Term, bool) {
	if a.Subject != b.Subject || a.Positive != b.Positive {
		return Term{}, false
	}
	return a.Intersect(b)
}

// registerRequirements records one dependency incompatibility per
// requirement of the chosen value and applies each requirement to the
// partial solution. Returns a conflict when a requirement empties some
// subject's allowed set.
func (st *runState) registerRequirements(subject Subject, value Value, reqs []Term) (*Incompatibility, error) {
	for _, req := range reqs {
		if req.Subject == subject {
			// Self-referential edge: trivially satisfied when the chosen
			// value is inside its own requirement, impossible otherwise.
			if req.allowed().Contains(value) {
				continue
			}
			return NewIncompatibilityNoCandidates(Require(subject, value)), nil
		}

		inc := NewIncompatibilityFromDependency(subject, value, req)
		if err := st.add(inc); err != nil {
			return nil, err
		}
		conflict, err := st.applyConstraint(req, inc)
		if err != nil {
			return nil, err
		}
		if conflict != nil {
			return conflict, nil
		}
	}
	return nil, nil
}

// applyConstraint asserts a term as a derivation. When the term empties
// the subject's allowed set, the returned conflict combines the term with
// its cause so conflict resolution can explain it.
func (st *runState) applyConstraint(term Term, cause *Incompatibility) (*Incompatibility, error) {
	assign, _, err := st.partial.addDerivation(term, cause)
	if errors.Is(err, errNoAllowedValues) {
		st.debug("constraint left no allowed values",
			"term", term.String(),
			"cause", cause.String(),
		)
		base := NewIncompatibilityNoCandidates(term)
		terms := make([]Term, 0, len(cause.Terms)+1)
		terms = append(terms, cause.Terms...)
		terms = append(terms, base.Terms...)
		return NewIncompatibilityConflict(terms, base, cause), nil
	}
	if err != nil {
		return nil, err
	}
	if assign != nil {
		st.traceAssignment("constraint", assign)
		st.enqueue(assign.subject)
	}
	return nil, nil
}

// nextDecision selects the subject to branch on and fetches its candidate
// values (most-preferred first, consistent with the current constraint).
// ok is false when every constrained subject is already decided.
func (st *runState) nextDecision(ctx context.Context) (Subject, []Value, bool, error) {
	pending := st.partial.pendingSubjects()
	if len(pending) == 0 {
		return nil, nil, false, nil
	}

	if st.options.Strategy == InsertionOrder {
		subject := pending[0]
		candidates, err := st.candidates(ctx, subject)
		if err != nil {
			return nil, nil, false, err
		}
		return subject, candidates, true, nil
	}

	// FewestCandidates: probe every pending subject, keep the one with
	// the smallest remaining candidate count; the first encountered wins
	// ties.
	var chosen Subject
	var chosenCandidates []Value
	best := -1
	for _, subject := range pending {
		candidates, err := st.candidates(ctx, subject)
		if err != nil {
			return nil, nil, false, err
		}
		if best < 0 || len(candidates) < best {
			chosen = subject
			chosenCandidates = candidates
			best = len(candidates)
			if best == 0 {
				break
			}
		}
	}

	return chosen, chosenCandidates, true, nil
}

// candidates asks the provider for values consistent with the subject's
// current constraint, filtering defensively against the constraint in case
// a provider over-reports.
func (st *runState) candidates(ctx context.Context, subject Subject) ([]Value, error) {
	allowed := st.partial.allowedSet(subject)
	if allowed.IsEmpty() {
		return nil, nil
	}

	constraint := termFromAllowed(subject, allowed)
	values, err := st.provider.Candidates(ctx, subject, constraint)
	if err != nil {
		return nil, &ProviderError{Subject: subject, Err: err}
	}

	// Filter into a fresh slice: the provider may hand back a slice it
	// still owns (CachedProvider returns its cached slice on hits), so
	// filtering in place would corrupt the provider's state.
	filtered := make([]Value, 0, len(values))
	for _, v := range values {
		if allowed.Contains(v) {
			filtered = append(filtered, v)
		}
	}
	return filtered, nil
}

// noCandidatesConflict builds the conflict raised when a subject has no
// acceptable candidates left, folding in the cause that narrowed it when
// one exists.
func (st *runState) noCandidatesConflict(subject Subject) *Incompatibility {
	allowed := st.partial.allowedSet(subject)
	conflict := NewIncompatibilityNoCandidates(termFromAllowed(subject, allowed))

	if support := st.partial.latest(subject); support != nil && support.cause != nil {
		conflict = resolveIncompatibility(conflict, support.cause, subject)
	}
	return conflict
}

// resolveConflict runs conflict analysis: walk satisfiers, learn derived
// incompatibilities, and backtrack. Returns the pivot subject to reseed
// propagation with, or a terminal incompatibility when the conflict
// reaches the root.
func (st *runState) resolveConflict(conflict *Incompatibility) (Subject, *Incompatibility, error) {
	for {
		satisfier := st.partial.satisfier(conflict)
		if satisfier == nil {
			return nil, conflict, nil
		}

		prevLevel := st.partial.previousDecisionLevel(conflict, satisfier)
		st.debug("conflict analysis iteration",
			"conflict", conflict.String(),
			"satisfier", satisfier.describe(),
			"satisfier_level", satisfier.decisionLevel,
			"previous_level", prevLevel,
		)

		if satisfier.decisionLevel == 0 && satisfier.isDecision() {
			return nil, conflict, nil
		}

		if satisfier.isDecision() && prevLevel < satisfier.decisionLevel {
			st.partial.backtrack(prevLevel)
			if st.options.Logger != nil {
				st.options.Logger.Debug("backtracked after conflict",
					"pivot", subjectLabel(satisfier.subject),
					"target_level", prevLevel,
					"learned", conflict.String(),
					"state", st.partial.snapshot(),
				)
			}
			if err := st.add(conflict); err != nil {
				return nil, nil, err
			}
			return satisfier.subject, nil, nil
		}

		if satisfier.cause == nil {
			return nil, nil, &InternalError{Message: "derived assignment missing cause"}
		}

		conflict = resolveIncompatibility(conflict, satisfier.cause, satisfier.subject)
	}
}
