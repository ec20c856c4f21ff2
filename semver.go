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
	"strconv"
	"strings"
)

// SemanticVersion is a Value implementing semantic versioning order:
// major.minor.patch[-prerelease][+build].
type SemanticVersion struct {
	Major      int
	Minor      int
	Patch      int
	Prerelease string
	Build      string
}

// NewSemanticVersion creates a release version.
func NewSemanticVersion(major, minor, patch int) *SemanticVersion {
	return &SemanticVersion{Major: major, Minor: minor, Patch: patch}
}

// ParseSemanticVersion parses strings like "1.2.3", "1.2", "1.2.3-alpha.1",
// "1.2.3+build" and "1.2.3-rc.1+build". Omitted minor/patch default to 0.
func ParseSemanticVersion(s string) (*SemanticVersion, error) {
	sv := &SemanticVersion{}

	parts := strings.SplitN(s, "+", 2)
	if len(parts) == 2 {
		sv.Build = parts[1]
	}

	parts = strings.SplitN(parts[0], "-", 2)
	if len(parts) == 2 {
		sv.Prerelease = parts[1]
	}

	core := strings.Split(parts[0], ".")
	if len(core) < 1 || len(core) > 3 {
		return nil, fmt.Errorf("invalid version format: %s", s)
	}

	var err error
	sv.Major, err = strconv.Atoi(core[0])
	if err != nil {
		return nil, fmt.Errorf("invalid major version: %s", core[0])
	}
	if len(core) > 1 {
		sv.Minor, err = strconv.Atoi(core[1])
		if err != nil {
			return nil, fmt.Errorf("invalid minor version: %s", core[1])
		}
	}
	if len(core) > 2 {
		sv.Patch, err = strconv.Atoi(core[2])
		if err != nil {
			return nil, fmt.Errorf("invalid patch version: %s", core[2])
		}
	}

	return sv, nil
}

// MustParseSemanticVersion is ParseSemanticVersion that panics on invalid
// input, for literals in tests and fixtures.
func MustParseSemanticVersion(s string) *SemanticVersion {
	sv, err := ParseSemanticVersion(s)
	if err != nil {
		panic(err)
	}
	return sv
}

// String implements Value.
func (sv *SemanticVersion) String() string {
	s := fmt.Sprintf("%d.%d.%d", sv.Major, sv.Minor, sv.Patch)
	if sv.Prerelease != "" {
		s += "-" + sv.Prerelease
	}
	if sv.Build != "" {
		s += "+" + sv.Build
	}
	return s
}

// Sort implements Value. Numeric fields compare numerically, a prerelease
// sorts below its release, and build metadata is ignored, per the semver
// specification. Comparison against a non-semver Value falls back to
// comparing rendered strings.
func (sv *SemanticVersion) Sort(other Value) int {
	o, ok := other.(*SemanticVersion)
	if !ok {
		return strings.Compare(sv.String(), other.String())
	}

	if sv.Major != o.Major {
		return compareInt(sv.Major, o.Major)
	}
	if sv.Minor != o.Minor {
		return compareInt(sv.Minor, o.Minor)
	}
	if sv.Patch != o.Patch {
		return compareInt(sv.Patch, o.Patch)
	}

	switch {
	case sv.Prerelease == "" && o.Prerelease == "":
		return 0
	case sv.Prerelease == "":
		return 1
	case o.Prerelease == "":
		return -1
	}

	return comparePrerelease(sv.Prerelease, o.Prerelease)
}

func compareInt(a, b int) int {
	if a < b {
		return -1
	}
	if a > b {
		return 1
	}
	return 0
}

// comparePrerelease compares dot-separated prerelease identifiers: numeric
// identifiers compare numerically and rank below alphanumeric ones; a
// shorter identifier list ranks below a longer one with an equal prefix.
func comparePrerelease(a, b string) int {
	aParts := strings.Split(a, ".")
	bParts := strings.Split(b, ".")

	n := min(len(aParts), len(bParts))
	for i := 0; i < n; i++ {
		aInt, aErr := strconv.Atoi(aParts[i])
		bInt, bErr := strconv.Atoi(bParts[i])

		switch {
		case aErr == nil && bErr == nil:
			if aInt != bInt {
				return compareInt(aInt, bInt)
			}
		case aErr == nil:
			return -1
		case bErr == nil:
			return 1
		default:
			if cmp := strings.Compare(aParts[i], bParts[i]); cmp != 0 {
				return cmp
			}
		}
	}

	return compareInt(len(aParts), len(bParts))
}

var _ Value = (*SemanticVersion)(nil)

// ParseRange parses a constraint string into a ValueSet.
//
// Supported syntax:
//   - Comparison operators: >=, >, <=, <, ==, !=, =
//   - Comma-separated conjunctions (AND): ">=1.0.0, <2.0.0"
//   - Double-pipe disjunctions (OR): "<1.0.0 || >=3.0.0"
//   - Wildcard "*" (or the empty string) for any value
//   - A bare version for an exact match
//
// Versions inside a range are parsed as SemanticVersion when possible,
// falling back to StringValue, so non-semver values like dates still work.
func ParseRange(s string) (ValueSet, error) {
	s = strings.TrimSpace(s)

	if s == "" || s == "*" {
		return FullSet(), nil
	}

	result := EmptySet()
	for _, orPart := range strings.Split(s, "||") {
		orPart = strings.TrimSpace(orPart)
		if orPart == "" {
			return nil, fmt.Errorf("invalid empty range in %q", s)
		}

		current := FullSet()
		for _, andPart := range strings.Split(orPart, ",") {
			token := strings.TrimSpace(andPart)
			if token == "" {
				return nil, fmt.Errorf("invalid empty constraint in %q", orPart)
			}

			set, err := parseRangeExpression(token)
			if err != nil {
				return nil, err
			}

			current = current.Intersection(set)
			if current.IsEmpty() {
				break
			}
		}

		result = result.Union(current)
	}

	return result, nil
}

// MustParseRange is ParseRange that panics on invalid input, for literals
// in tests and fixtures.
func MustParseRange(s string) ValueSet {
	set, err := ParseRange(s)
	if err != nil {
		panic(err)
	}
	return set
}

func parseRangeExpression(expr string) (ValueSet, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, fmt.Errorf("empty range expression")
	}

	parseValue := func(raw string) (Value, error) {
		if raw == "" {
			return nil, fmt.Errorf("missing value in range expression %q", expr)
		}
		if sv, err := ParseSemanticVersion(raw); err == nil {
			return sv, nil
		}
		return StringValue(raw), nil
	}

	operators := []struct {
		prefix  string
		builder func(Value) ValueSet
	}{
		{">=", func(v Value) ValueSet { return AtLeast(v, true) }},
		{">", func(v Value) ValueSet { return AtLeast(v, false) }},
		{"<=", func(v Value) ValueSet { return Below(v, true) }},
		{"<", func(v Value) ValueSet { return Below(v, false) }},
		{"==", Exactly},
		{"!=", func(v Value) ValueSet { return Exactly(v).Complement() }},
		{"=", Exactly},
	}

	for _, op := range operators {
		if strings.HasPrefix(expr, op.prefix) {
			value, err := parseValue(strings.TrimSpace(expr[len(op.prefix):]))
			if err != nil {
				return nil, err
			}
			return op.builder(value), nil
		}
	}

	// No operator: exact match.
	value, err := parseValue(expr)
	if err != nil {
		return nil, err
	}
	return Exactly(value), nil
}
