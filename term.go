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

import "fmt"

// Term is one constraint over one subject: a set of acceptable values plus
// a polarity. A positive term ("lodash >=1.0.0") asserts the subject's
// value must fall in the set; a negative term ("not lodash ==1.5.0")
// excludes it.
//
// Terms are the building blocks of resolution: root requirements, declared
// dependencies and learned clauses are all expressed as terms.
type Term struct {
	Subject  Subject
	Set      ValueSet
	Positive bool
}

// NewTerm creates a positive term requiring the subject's value to fall in
// the set. A nil set means any value.
func NewTerm(subject Subject, set ValueSet) Term {
	return Term{Subject: subject, Set: set, Positive: true}
}

// NewNegativeTerm creates a negative term excluding values in the set.
func NewNegativeTerm(subject Subject, set ValueSet) Term {
	return Term{Subject: subject, Set: set, Positive: false}
}

// Require is shorthand for a positive term pinning the subject to exactly
// one value.
func Require(subject Subject, value Value) Term {
	return NewTerm(subject, Exactly(value))
}

// set returns the term's value set, defaulting nil to the full set.
func (t Term) set() ValueSet {
	if t.Set == nil {
		return FullSet()
	}
	return t.Set
}

// allowed returns the set of values consistent with the term: the set
// itself for positive terms, its complement for negative ones.
func (t Term) allowed() ValueSet {
	if t.Positive {
		return t.set()
	}
	return t.set().Complement()
}

// Negate returns the logical negation of the term.
func (t Term) Negate() Term {
	return Term{Subject: t.Subject, Set: t.Set, Positive: !t.Positive}
}

// IsNegative reports whether the term is a negated constraint. Negative
// terms get the "not" prefix when causes are rendered for humans.
func (t Term) IsNegative() bool {
	return !t.Positive
}

// Intersect combines two terms about the same subject into the tightest
// term consistent with both. ok is false when the subjects differ. A
// result whose allowed set is empty marks a contradiction.
//
// Intersection is commutative and associative in effect: intersecting any
// chain of terms about one subject yields the same acceptable set
// regardless of order.
func (t Term) Intersect(other Term) (Term, bool) {
	if t.Subject != other.Subject {
		return Term{}, false
	}

	switch {
	case t.Positive && other.Positive:
		return NewTerm(t.Subject, t.set().Intersection(other.set())), true
	case !t.Positive && !other.Positive:
		return NewNegativeTerm(t.Subject, t.set().Union(other.set())), true
	case t.Positive:
		return NewTerm(t.Subject, t.set().Intersection(other.set().Complement())), true
	default:
		return NewTerm(t.Subject, other.set().Intersection(t.set().Complement())), true
	}
}

// IsContradiction reports whether no value can satisfy the term.
func (t Term) IsContradiction() bool {
	return t.allowed().IsEmpty()
}

// TermRelation classifies one term against an assertion about the same
// subject.
type TermRelation int

const (
	// TermSatisfies: every value consistent with the assertion is also
	// consistent with the term.
	TermSatisfies TermRelation = iota
	// TermContradicts: no value consistent with the assertion is
	// consistent with the term.
	TermContradicts
	// TermInconclusive: the assertion neither implies nor excludes the
	// term.
	TermInconclusive
)

// Relation classifies the term relative to an assertion on the same
// subject. Propagation and conflict resolution are driven by this
// classification.
func (t Term) Relation(assertion Term) TermRelation {
	if t.Subject != assertion.Subject {
		return TermInconclusive
	}

	asserted := assertion.allowed()
	mine := t.allowed()

	if asserted.IsSubset(mine) {
		return TermSatisfies
	}
	if asserted.IsDisjoint(mine) {
		return TermContradicts
	}
	return TermInconclusive
}

// SatisfiedBy reports whether a concrete value satisfies the term. A nil
// value means the subject is undecided, which only negative terms accept.
func (t Term) SatisfiedBy(value Value) bool {
	if value == nil {
		return !t.Positive
	}
	return t.allowed().Contains(value)
}

// String renders the term for humans: "A >=1.0.0", "not B ==2.0.0", the
// bare subject for the any-value constraint.
func (t Term) String() string {
	label := subjectLabel(t.Subject)
	set := t.set().String()

	if t.Positive {
		if set == "*" {
			return label
		}
		return fmt.Sprintf("%s %s", label, set)
	}

	if set == "*" {
		return fmt.Sprintf("not %s", label)
	}
	return fmt.Sprintf("not %s %s", label, set)
}

// termFromAllowed rebuilds a positive term from a computed allowed set.
func termFromAllowed(subject Subject, set ValueSet) Term {
	if set == nil {
		set = FullSet()
	}
	return NewTerm(subject, set)
}
