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

// assignmentKind distinguishes decisions from derivations. Decisions are
// free choices (a concrete value picked for a subject); derivations are
// facts forced by an incompatibility during unit propagation.
type assignmentKind int

const (
	assignmentDecision assignmentKind = iota
	assignmentDerivation
)

// assignment is one fact recorded in the partial solution: a term, the
// cause that produced it (nil for decisions), the decision level active
// when it was added, and a global index giving total insertion order.
type assignment struct {
	subject       Subject
	term          Term
	kind          assignmentKind
	allowed       ValueSet         // tightened allowed set (positive terms)
	forbidden     ValueSet         // excluded set (negative terms)
	value         Value            // the chosen value, for decisions
	cause         *Incompatibility // forcing incompatibility, for derivations
	decisionLevel int
	index         int
}

// isDecision reports whether this assignment is a free choice rather than
// a derived fact.
func (a *assignment) isDecision() bool {
	return a.kind == assignmentDecision
}

// describe renders the assignment for debug logging.
func (a *assignment) describe() string {
	kind := "derivation"
	if a.isDecision() {
		kind = "decision"
	}
	return fmt.Sprintf("%s %s level=%d index=%d", kind, a.term, a.decisionLevel, a.index)
}
