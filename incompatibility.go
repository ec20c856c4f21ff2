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
	"fmt"
	"strings"
)

// CauseKind records the provenance of an incompatibility. The set is
// closed: every incompatibility either encodes part of the initial
// request, was discovered from the Provider, or was derived during
// conflict resolution.
type CauseKind int

const (
	// CauseRoot: the incompatibility encodes one of the caller's root
	// requirements.
	CauseRoot CauseKind = iota
	// CauseNoCandidates: no candidate values satisfy the constraint.
	CauseNoCandidates
	// CauseDependency: a dependency edge declared by a concrete value,
	// discovered from the Provider.
	CauseDependency
	// CauseConflict: derived by resolving two prior incompatibilities
	// against a shared satisfier.
	CauseConflict
)

// Incompatibility is an immutable set of terms that cannot all hold
// simultaneously. Terms cover distinct subjects; duplicates are merged at
// construction.
//
// Derived incompatibilities keep references to their two antecedents,
// forming a DAG that explains the final failure. Antecedents are never
// mutated after creation, so sharing by reference is safe.
type Incompatibility struct {
	// Terms that cannot all be satisfied together.
	Terms []Term
	// Kind is the provenance of this incompatibility.
	Kind CauseKind
	// Left and Right are the antecedents for CauseConflict.
	Left  *Incompatibility
	Right *Incompatibility
	// Subject and Value identify the dependant for CauseRoot and
	// CauseDependency edges.
	Subject Subject
	Value   Value
}

// newRootIncompatibility encodes one root requirement: the root assertion
// cannot hold together with the requirement's negation.
func newRootIncompatibility(req Term) *Incompatibility {
	return &Incompatibility{
		Terms:   []Term{rootAssertion(), req.Negate()},
		Kind:    CauseRoot,
		Subject: Root(),
		Value:   rootValue,
	}
}

// NewIncompatibilityFromDependency encodes a dependency edge: subject at
// value depends on dep. Following PubGrub, "A 1.0.0 depends on B >=2.0.0"
// is stored as {A ==1.0.0, not B >=2.0.0}.
func NewIncompatibilityFromDependency(subject Subject, value Value, dep Term) *Incompatibility {
	return &Incompatibility{
		Terms:   []Term{Require(subject, value), dep.Negate()},
		Kind:    CauseDependency,
		Subject: subject,
		Value:   value,
	}
}

// NewIncompatibilityNoCandidates marks a constraint no candidate value can
// satisfy.
func NewIncompatibilityNoCandidates(term Term) *Incompatibility {
	return &Incompatibility{
		Terms: []Term{term},
		Kind:  CauseNoCandidates,
	}
}

// NewIncompatibilityConflict derives an incompatibility from two
// antecedents. Terms sharing a subject are deduplicated, keeping the first
// occurrence; callers merge terms beforehand when tightening matters.
func NewIncompatibilityConflict(terms []Term, left, right *Incompatibility) *Incompatibility {
	seen := make(map[Subject]bool, len(terms))
	deduped := make([]Term, 0, len(terms))
	for _, term := range terms {
		if seen[term.Subject] {
			continue
		}
		seen[term.Subject] = true
		deduped = append(deduped, term)
	}

	return &Incompatibility{
		Terms: deduped,
		Kind:  CauseConflict,
		Left:  left,
		Right: right,
	}
}

// IsFailure reports whether the incompatibility reduces to the root
// assertion alone, proving the request itself unsatisfiable.
func (inc *Incompatibility) IsFailure() bool {
	if len(inc.Terms) == 0 {
		return true
	}
	return len(inc.Terms) == 1 && isRoot(inc.Terms[0].Subject)
}

// get returns the term covering the subject, or nil.
func (inc *Incompatibility) get(subject Subject) *Term {
	for i := range inc.Terms {
		if inc.Terms[i].Subject == subject {
			return &inc.Terms[i]
		}
	}
	return nil
}

// String renders the incompatibility as a deterministic sentence driven
// purely by kind and terms. These sentences are user-facing: a Reporter
// assembles them into the final conflict explanation.
func (inc *Incompatibility) String() string {
	if inc.IsFailure() {
		return "version solving failed"
	}

	switch inc.Kind {
	case CauseRoot:
		if dep, ok := inc.dependencyTerm(); ok {
			return fmt.Sprintf("%s depends on %s", Root().Name(), dep)
		}
	case CauseDependency:
		if dep, ok := inc.dependencyTerm(); ok {
			return fmt.Sprintf("%s %s depends on %s", subjectLabel(inc.Subject), inc.Value, dep)
		}
	case CauseNoCandidates:
		if len(inc.Terms) == 1 {
			return fmt.Sprintf("no candidates satisfy %s", inc.Terms[0])
		}
	}

	if len(inc.Terms) == 1 {
		return fmt.Sprintf("%s is forbidden", inc.Terms[0])
	}

	parts := make([]string, len(inc.Terms))
	for i, term := range inc.Terms {
		parts[i] = term.String()
	}
	return fmt.Sprintf("%s are incompatible", strings.Join(parts, " and "))
}

// dependencyTerm extracts the depended-on term of a root or dependency
// edge, un-negated for display.
func (inc *Incompatibility) dependencyTerm() (Term, bool) {
	if len(inc.Terms) != 2 {
		return Term{}, false
	}
	dep := inc.Terms[1]
	if inc.Subject != nil && dep.Subject == inc.Subject {
		dep = inc.Terms[0]
	}
	if dep.IsNegative() {
		dep = dep.Negate()
	}
	return dep, true
}
