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

// Subject identifies the axis a Term constrains: a package's version line,
// a target platform, an ABI tag, an interpreter identity, and so on.
//
// Concrete subjects must be immutable comparable values so they can serve
// as map keys inside the resolver. Two subjects are the same axis iff they
// compare equal under ==.
//
// Custom kinds only need to report a stable kind name; the resolver never
// depends on concrete types beyond Kind and Name.
type Subject interface {
	// Kind returns a stable name for the subject's kind, used as the
	// primary key when ordering subjects of different kinds.
	Kind() string

	// Name returns the subject's identity within its kind.
	Name() string
}

// Package is the most common subject: a named package whose versions
// compete for selection.
type Package string

// Kind satisfies Subject.
func (p Package) Kind() string { return "package" }

// Name satisfies Subject.
func (p Package) Name() string { return string(p) }

// Platform constrains the target platform of a resolution.
type Platform string

// Kind satisfies Subject.
func (p Platform) Kind() string { return "platform" }

// Name satisfies Subject.
func (p Platform) Name() string { return string(p) }

// Abi constrains the binary interface tag of a resolution.
type Abi string

// Kind satisfies Subject.
func (a Abi) Kind() string { return "abi" }

// Name satisfies Subject.
func (a Abi) Name() string { return string(a) }

// Interpreter constrains the interpreter identity of a resolution.
type Interpreter string

// Kind satisfies Subject.
func (i Interpreter) Kind() string { return "interpreter" }

// Name satisfies Subject.
func (i Interpreter) Name() string { return string(i) }

// rootSubject is the synthetic subject standing in for the caller's request.
// It is decided once at level 0 and never offered by a Provider.
type rootSubject struct{}

// Kind satisfies Subject.
func (rootSubject) Kind() string { return "root" }

// Name satisfies Subject.
func (rootSubject) Name() string { return "__ROOT__" }

// Root returns the synthetic root subject. Terminal incompatibilities that
// reduce to the root subject alone prove the request itself unsatisfiable.
func Root() Subject {
	return rootSubject{}
}

// isRoot reports whether the subject is the synthetic root.
func isRoot(s Subject) bool {
	_, ok := s.(rootSubject)
	return ok
}

// SubjectOf reconstructs a built-in subject from its kind and name, the
// inverse of (Kind(), Name()) for the built-in kinds. Stores and scenario
// files use it to round-trip subjects through text.
func SubjectOf(kind, name string) (Subject, error) {
	switch kind {
	case "package":
		return Package(name), nil
	case "platform":
		return Platform(name), nil
	case "abi":
		return Abi(name), nil
	case "interpreter":
		return Interpreter(name), nil
	default:
		return nil, fmt.Errorf("unknown subject kind %q", kind)
	}
}

// CompareSubjects orders two subjects, possibly of different kinds.
// Kind names order first so heterogeneous subjects share sort and printing
// code; within a kind the subject names order lexicographically. The result
// is zero only when both kind and name are equal.
func CompareSubjects(a, b Subject) int {
	if c := strings.Compare(a.Kind(), b.Kind()); c != 0 {
		return c
	}
	return strings.Compare(a.Name(), b.Name())
}

// subjectLabel renders a subject for diagnostics. Package and root subjects
// print bare; other kinds carry their kind as a prefix so mixed output stays
// unambiguous.
func subjectLabel(s Subject) string {
	switch s.Kind() {
	case "package", "root":
		return s.Name()
	default:
		return s.Kind() + ":" + s.Name()
	}
}

// rootValue is the synthetic value decided for the root subject at level 0.
var rootValue Value = StringValue("0")

// rootAssertion is the positive term pinning the root subject to its
// synthetic value. Terminal incompatibilities reduce to this term.
func rootAssertion() Term {
	return Require(Root(), rootValue)
}

var (
	_ Subject = Package("")
	_ Subject = Platform("")
	_ Subject = Abi("")
	_ Subject = Interpreter("")
	_ Subject = rootSubject{}
)
