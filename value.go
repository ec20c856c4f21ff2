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

import "strings"

// Value represents one candidate value competing for a subject: a package
// version, a platform identifier, an ABI tag. Implementations must provide
// a string form and a total order within their own kind.
//
// The solver is value-type agnostic; any type works as long as it implements
// this interface. Built-in implementations:
//   - StringValue: lexicographic comparison
//   - SemanticVersion: major.minor.patch ordering with prerelease rules
//
// Example custom value:
//
//	type DateValue time.Time
//
//	func (dv DateValue) String() string {
//	    return time.Time(dv).Format("2006-01-02")
//	}
//
//	func (dv DateValue) Sort(other Value) int {
//	    otherDate, ok := other.(DateValue)
//	    if !ok {
//	        return strings.Compare(dv.String(), other.String())
//	    }
//	    return time.Time(dv).Compare(time.Time(otherDate))
//	}
type Value interface {
	// String returns a human-readable representation of the value.
	String() string

	// Sort compares this value to another.
	// Returns:
	//   - negative if this value < other
	//   - zero if this value == other
	//   - positive if this value > other
	Sort(other Value) int
}

// StringValue provides a basic string-backed value compared
// lexicographically. Platform, ABI and interpreter subjects typically use
// it; for package versions prefer SemanticVersion.
type StringValue string

// Sort implements Value by lexicographic string comparison.
func (v StringValue) Sort(other Value) int {
	return strings.Compare(string(v), other.String())
}

// String returns the string representation of the value.
func (v StringValue) String() string {
	return string(v)
}

var (
	_ Value = StringValue("")
)
