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
	"errors"
	"fmt"
	"strings"
)

// partialSolution is the ordered log of all assignments made during one
// resolution run, plus the derived per-subject current constraint (the
// intersection of every term asserted about that subject so far).
//
// It grows as the resolver decides and propagates, and shrinks only by
// backtracking to an earlier decision level. One resolver run exclusively
// owns its partial solution; nothing is shared across runs.
type partialSolution struct {
	assignments []*assignment             // chronological log
	perSubject  map[Subject][]*assignment // per-subject stacks
	decisionLvl int
	nextIndex   int
}

func newPartialSolution() *partialSolution {
	return &partialSolution{
		perSubject: make(map[Subject][]*assignment),
	}
}

func (ps *partialSolution) newDecision(subject Subject, value Value, level int) *assignment {
	return &assignment{
		subject:       subject,
		term:          Require(subject, value),
		kind:          assignmentDecision,
		allowed:       Exactly(value),
		value:         value,
		decisionLevel: level,
		index:         ps.nextIndex,
	}
}

func (ps *partialSolution) append(assign *assignment) {
	ps.assignments = append(ps.assignments, assign)
	ps.perSubject[assign.subject] = append(ps.perSubject[assign.subject], assign)
	ps.nextIndex++
}

// latest returns the most recent assignment for a subject, or nil.
func (ps *partialSolution) latest(subject Subject) *assignment {
	stack := ps.perSubject[subject]
	if len(stack) == 0 {
		return nil
	}
	return stack[len(stack)-1]
}

// allowedSet computes the current constraint for a subject by intersecting
// every assignment's contribution in insertion order.
func (ps *partialSolution) allowedSet(subject Subject) ValueSet {
	stack := ps.perSubject[subject]
	current := FullSet()
	for _, assign := range stack {
		if assign.term.Positive {
			if assign.allowed != nil {
				current = current.Intersection(assign.allowed)
			}
		} else if assign.forbidden != nil {
			current = current.Intersection(assign.forbidden.Complement())
		}
	}
	return current
}

func (ps *partialSolution) hasAssignments(subject Subject) bool {
	return len(ps.perSubject[subject]) > 0
}

// addDecision records a free choice, opening a new decision level.
func (ps *partialSolution) addDecision(subject Subject, value Value) *assignment {
	ps.decisionLvl++
	assign := ps.newDecision(subject, value, ps.decisionLvl)
	ps.append(assign)
	return assign
}

// seedRoot records the synthetic root decision at level 0.
func (ps *partialSolution) seedRoot() *assignment {
	assign := ps.newDecision(Root(), rootValue, 0)
	ps.append(assign)
	return assign
}

var errNoAllowedValues = errors.New("no values satisfy constraints")

// addDerivation records a fact forced by an incompatibility. Returns the
// appended assignment and whether the subject's allowed set was tightened.
// errNoAllowedValues signals that the term empties the subject's allowed
// set; callers must already be inside conflict handling when that happens.
func (ps *partialSolution) addDerivation(term Term, cause *Incompatibility) (*assignment, bool, error) {
	currentAllowed := ps.allowedSet(term.Subject)
	newAllowed := currentAllowed.Intersection(term.allowed())
	if newAllowed.IsEmpty() {
		return nil, false, errNoAllowedValues
	}

	assign := &assignment{
		subject:       term.Subject,
		term:          term,
		kind:          assignmentDerivation,
		cause:         cause,
		decisionLevel: ps.decisionLvl,
		index:         ps.nextIndex,
	}

	if term.Positive {
		assign.allowed = newAllowed
	} else {
		assign.forbidden = term.set()
	}

	changed := !setsEqual(currentAllowed, newAllowed)
	ps.append(assign)

	if changed && !term.Positive {
		// Record the tightened allowance as a positive assignment so the
		// per-subject constraint stays directly readable.
		tightening := &assignment{
			subject:       term.Subject,
			term:          termFromAllowed(term.Subject, newAllowed),
			kind:          assignmentDerivation,
			allowed:       newAllowed,
			cause:         cause,
			decisionLevel: ps.decisionLvl,
			index:         ps.nextIndex,
		}
		ps.append(tightening)
		return tightening, true, nil
	}

	return assign, changed, nil
}

// backtrack truncates the log to the given decision level, removing every
// assignment recorded above it.
func (ps *partialSolution) backtrack(level int) {
	if level < 0 {
		level = 0
	}

	for len(ps.assignments) > 0 {
		last := ps.assignments[len(ps.assignments)-1]
		if last.decisionLevel <= level {
			break
		}
		ps.assignments = ps.assignments[:len(ps.assignments)-1]
		stack := ps.perSubject[last.subject]
		if len(stack) > 0 {
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				delete(ps.perSubject, last.subject)
			} else {
				ps.perSubject[last.subject] = stack
			}
		}
	}

	ps.decisionLvl = level
}

// isComplete reports whether every constrained subject other than the root
// has a decided value.
func (ps *partialSolution) isComplete() bool {
	for subject, stack := range ps.perSubject {
		if isRoot(subject) {
			continue
		}

		hasDecision := false
		for _, assign := range stack {
			if assign.kind == assignmentDecision {
				hasDecision = true
				break
			}
		}
		if !hasDecision {
			return false
		}
	}
	return true
}

func (ps *partialSolution) hasDecision(subject Subject) bool {
	for _, assign := range ps.perSubject[subject] {
		if assign.kind == assignmentDecision {
			return true
		}
	}
	return false
}

// pendingSubjects lists subjects that carry constraints but no decided
// value yet, in first-encountered insertion order. Decision strategies
// break ties using this order.
func (ps *partialSolution) pendingSubjects() []Subject {
	pending := make([]Subject, 0)
	seen := make(map[Subject]bool)

	for _, assign := range ps.assignments {
		subject := assign.subject
		if isRoot(subject) || seen[subject] {
			continue
		}
		seen[subject] = true

		if !ps.hasDecision(subject) {
			pending = append(pending, subject)
		}
	}

	return pending
}

// incRelation describes how an incompatibility relates to the current
// partial solution.
type incRelation int

const (
	relationSatisfied       incRelation = iota // every term satisfied: conflict
	relationAlmostSatisfied                    // one term unsatisfied: unit propagation
	relationContradicted                       // some term contradicted: inapplicable
	relationInconclusive                       // several terms open: wait
)

// relation classifies an incompatibility against the current state. For
// relationAlmostSatisfied the single unsatisfied term is returned so the
// caller can propagate its negation.
func (ps *partialSolution) relation(inc *Incompatibility) (incRelation, *Term) {
	var unsatisfied *Term

	for _, term := range inc.Terms {
		rel := ps.termRelation(term)

		switch rel {
		case relationContradicted:
			return relationContradicted, nil
		case relationSatisfied:
			continue
		default:
			if unsatisfied != nil {
				return relationInconclusive, nil
			}
			temp := term
			unsatisfied = &temp
		}
	}

	if unsatisfied == nil {
		return relationSatisfied, nil
	}
	return relationAlmostSatisfied, unsatisfied
}

// termRelation classifies one term against the subject's current allowed
// set. A positive term with no assignments yet stays inconclusive even if
// the full set would technically satisfy it: positive terms also assert
// that the subject is selected at all.
func (ps *partialSolution) termRelation(term Term) incRelation {
	allowed := ps.allowedSet(term.Subject)
	hasAssignment := ps.hasAssignments(term.Subject)

	if term.Positive {
		required := term.set()
		if allowed.IsSubset(required) {
			if hasAssignment {
				return relationSatisfied
			}
			return relationInconclusive
		}
		if allowed.IsDisjoint(required) {
			return relationContradicted
		}
		return relationInconclusive
	}

	forbidden := term.set()
	if allowed.IsDisjoint(forbidden) {
		return relationSatisfied
	}
	if allowed.IsSubset(forbidden) {
		if hasAssignment {
			return relationContradicted
		}
		return relationInconclusive
	}
	return relationInconclusive
}

// satisfier finds the earliest point in the log at which the
// incompatibility became satisfied: for each term, the first assignment on
// that subject's stack (scanning from the top) that satisfies it; the
// satisfier is the one with the greatest index among those.
func (ps *partialSolution) satisfier(inc *Incompatibility) *assignment {
	var selected *assignment
	maxIndex := -1

	for _, term := range inc.Terms {
		stack := ps.perSubject[term.Subject]
		for i := len(stack) - 1; i >= 0; i-- {
			assign := stack[i]
			if termSatisfiedBy(term, assign) {
				if assign.index > maxIndex {
					selected = assign
					maxIndex = assign.index
				}
				break
			}
		}
	}

	return selected
}

// previousDecisionLevel finds the highest decision level among assignments
// satisfying the incompatibility's terms, excluding the satisfier itself.
// Conflict resolution backtracks to this level.
func (ps *partialSolution) previousDecisionLevel(inc *Incompatibility, satisfier *assignment) int {
	level := 0

	for _, term := range inc.Terms {
		stack := ps.perSubject[term.Subject]
		for i := len(stack) - 1; i >= 0; i-- {
			assign := stack[i]
			if assign == satisfier {
				continue
			}
			if termSatisfiedBy(term, assign) && assign.decisionLevel > level {
				level = assign.decisionLevel
			}
		}
	}

	return level
}

// buildSolution collects the decided values, excluding the synthetic root.
func (ps *partialSolution) buildSolution() Solution {
	result := make(Solution, 0)
	seen := make(map[Subject]bool)

	for _, assign := range ps.assignments {
		if assign.kind != assignmentDecision || isRoot(assign.subject) {
			continue
		}
		if seen[assign.subject] {
			continue
		}
		seen[assign.subject] = true
		result = append(result, SubjectValue{Subject: assign.subject, Value: assign.value})
	}

	return result
}

// snapshot renders the full log for debug logging during complex
// conflicts.
func (ps *partialSolution) snapshot() string {
	var b strings.Builder
	fmt.Fprintf(&b, "decision_level=%d next_index=%d assignments=%d\n", ps.decisionLvl, ps.nextIndex, len(ps.assignments))
	for _, assign := range ps.assignments {
		fmt.Fprintf(&b, "  %s\n", assign.describe())
	}
	return b.String()
}

// termSatisfiedBy reports whether a single assignment satisfies a term in
// an incompatibility: the assignment's asserted range must be subsumed by
// (for positive terms) or excluded from (for negative terms) the term's
// set.
func termSatisfiedBy(term Term, assign *assignment) bool {
	if assign == nil {
		return false
	}

	if term.Positive {
		required := term.set()
		if assign.allowed == nil {
			return false
		}
		return assign.allowed.IsSubset(required)
	}

	forbidden := term.set()
	if assign.term.Positive {
		if assign.allowed == nil {
			return false
		}
		return assign.allowed.IsDisjoint(forbidden)
	}

	if assign.forbidden == nil {
		return false
	}
	return forbidden.IsSubset(assign.forbidden)
}
