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
	"iter"
)

// SubjectValue pairs a subject with its chosen value, the fundamental unit
// of a resolution result.
type SubjectValue struct {
	Subject Subject
	Value   Value
}

// String returns a human-readable representation of the pair.
func (sv SubjectValue) String() string {
	return fmt.Sprintf("%s %s", subjectLabel(sv.Subject), sv.Value)
}

// Solution is the complete assignment produced by a successful run: exactly
// one value per subject that appeared in any incompatibility, in decision
// order.
//
// Example:
//
//	result, err := resolver.Resolve(ctx, reqs)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for sv := range result.Solution.All() {
//	    fmt.Printf("%s: %s\n", sv.Subject.Name(), sv.Value)
//	}
type Solution []SubjectValue

// Get retrieves the chosen value for a subject. Returns false when the
// subject is not part of the solution.
func (s Solution) Get(subject Subject) (Value, bool) {
	for _, sv := range s {
		if sv.Subject == subject {
			return sv.Value, true
		}
	}
	return nil, false
}

// All returns an iterator over all subject-value pairs, enabling
// range-over-function syntax.
func (s Solution) All() iter.Seq[SubjectValue] {
	return func(yield func(SubjectValue) bool) {
		for _, sv := range s {
			if !yield(sv) {
				return
			}
		}
	}
}
