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
	"slices"
	"strings"
)

// ValueSet represents a set of acceptable values for one subject.
// Implementations must be immutable: every operation returns a new set.
//
// The algebra is what the solver runs on: term intersection, unit
// propagation and clause learning are all expressed through these
// operations. The primary implementation is IntervalSet.
type ValueSet interface {
	// Empty returns a set containing no values.
	Empty() ValueSet

	// Full returns a set containing every possible value.
	Full() ValueSet

	// Singleton returns a set containing exactly one value.
	Singleton(value Value) ValueSet

	// Union returns the values in either this set or the other.
	Union(other ValueSet) ValueSet

	// Intersection returns the values in both this set and the other.
	Intersection(other ValueSet) ValueSet

	// Complement returns the values NOT in this set.
	Complement() ValueSet

	// Contains tests whether a specific value is in the set.
	Contains(value Value) bool

	// IsEmpty reports whether the set contains no values.
	IsEmpty() bool

	// IsSubset reports whether every value in this set is in the other.
	IsSubset(other ValueSet) bool

	// IsDisjoint reports whether the two sets share no values.
	IsDisjoint(other ValueSet) bool

	// String returns a human-readable representation of the set.
	String() string
}

// IntervalSet implements ValueSet as sorted, disjoint intervals. This
// representation handles the common constraint shapes (ranges, unions of
// ranges, exclusions) with canonical string output.
type IntervalSet struct {
	intervals []interval
}

// newIntervalSet normalizes the given intervals into a canonical set.
func newIntervalSet(intervals []interval) *IntervalSet {
	return &IntervalSet{intervals: normalizeIntervals(intervals)}
}

// EmptySet returns a ValueSet containing no values.
func EmptySet() ValueSet {
	return &IntervalSet{}
}

// FullSet returns a ValueSet containing every possible value, the "*"
// constraint.
func FullSet() ValueSet {
	return &IntervalSet{
		intervals: []interval{{lower: negInfBound(), upper: posInfBound()}},
	}
}

// Exactly returns a ValueSet containing only the given value.
func Exactly(value Value) ValueSet {
	return (&IntervalSet{}).Singleton(value)
}

// RangeSet builds a ValueSet from explicit lower and upper bounds. A nil
// value leaves that side unbounded.
func RangeSet(lower Value, lowerInclusive bool, upper Value, upperInclusive bool) ValueSet {
	if iv, ok := newInterval(lowerBound(lower, lowerInclusive), upperBound(upper, upperInclusive)); ok {
		return newIntervalSet([]interval{iv})
	}
	return &IntervalSet{}
}

// AtLeast builds a lower-bounded ValueSet: ">=v" or ">v".
func AtLeast(value Value, inclusive bool) ValueSet {
	return RangeSet(value, inclusive, nil, true)
}

// Below builds an upper-bounded ValueSet: "<=v" or "<v".
func Below(value Value, inclusive bool) ValueSet {
	return RangeSet(nil, true, value, inclusive)
}

func (s *IntervalSet) cloneIntervals() []interval {
	if len(s.intervals) == 0 {
		return nil
	}
	cloned := make([]interval, len(s.intervals))
	copy(cloned, s.intervals)
	return cloned
}

// Empty satisfies ValueSet.
func (s *IntervalSet) Empty() ValueSet {
	return &IntervalSet{}
}

// Full satisfies ValueSet.
func (s *IntervalSet) Full() ValueSet {
	return FullSet()
}

// Singleton satisfies ValueSet.
func (s *IntervalSet) Singleton(value Value) ValueSet {
	if value == nil {
		return &IntervalSet{}
	}
	if iv, ok := newInterval(lowerBound(value, true), upperBound(value, true)); ok {
		return &IntervalSet{intervals: []interval{iv}}
	}
	return &IntervalSet{}
}

// Union satisfies ValueSet.
func (s *IntervalSet) Union(other ValueSet) ValueSet {
	o := asIntervalSet(other)
	intervals := s.cloneIntervals()
	intervals = append(intervals, o.intervals...)
	return newIntervalSet(intervals)
}

// Intersection satisfies ValueSet. Both inputs are sorted and disjoint, so
// a single merge-style sweep suffices.
func (s *IntervalSet) Intersection(other ValueSet) ValueSet {
	o := asIntervalSet(other)
	if len(s.intervals) == 0 || len(o.intervals) == 0 {
		return &IntervalSet{}
	}

	result := make([]interval, 0, len(s.intervals))
	i, j := 0, 0
	for i < len(s.intervals) && j < len(o.intervals) {
		if iv, ok := newInterval(
			maxBound(s.intervals[i].lower, o.intervals[j].lower, compareLower),
			minBound(s.intervals[i].upper, o.intervals[j].upper, compareUpper),
		); ok {
			result = append(result, iv)
		}

		if compareUpper(s.intervals[i].upper, o.intervals[j].upper) < 0 {
			i++
		} else {
			j++
		}
	}

	return newIntervalSet(result)
}

// Complement satisfies ValueSet by collecting the gaps between intervals.
func (s *IntervalSet) Complement() ValueSet {
	if len(s.intervals) == 0 {
		return FullSet()
	}

	gaps := make([]interval, 0, len(s.intervals)+1)
	currentLower := negInfBound()

	for _, iv := range s.intervals {
		if gap, ok := newInterval(currentLower, iv.gapUpperBound()); ok {
			gaps = append(gaps, gap)
		}
		currentLower = iv.gapLowerBound()
	}

	if tail, ok := newInterval(currentLower, posInfBound()); ok {
		gaps = append(gaps, tail)
	}

	return newIntervalSet(gaps)
}

// Contains satisfies ValueSet.
func (s *IntervalSet) Contains(value Value) bool {
	for _, iv := range s.intervals {
		if iv.contains(value) {
			return true
		}
	}
	return false
}

// IsEmpty satisfies ValueSet.
func (s *IntervalSet) IsEmpty() bool {
	return len(s.intervals) == 0
}

// IsSubset satisfies ValueSet.
func (s *IntervalSet) IsSubset(other ValueSet) bool {
	if len(s.intervals) == 0 {
		return true
	}

	o := asIntervalSet(other)
	if len(o.intervals) == 0 {
		return false
	}

	i, j := 0, 0
	for i < len(s.intervals) {
		if j >= len(o.intervals) {
			return false
		}

		if o.intervals[j].covers(s.intervals[i]) {
			i++
			continue
		}

		if upperBeforeLower(o.intervals[j].upper, s.intervals[i].lower) {
			j++
			continue
		}

		return false
	}

	return true
}

// IsDisjoint satisfies ValueSet.
func (s *IntervalSet) IsDisjoint(other ValueSet) bool {
	if len(s.intervals) == 0 {
		return true
	}

	o := asIntervalSet(other)
	if len(o.intervals) == 0 {
		return true
	}

	i, j := 0, 0
	for i < len(s.intervals) && j < len(o.intervals) {
		if s.intervals[i].overlaps(o.intervals[j]) {
			return false
		}

		if compareUpper(s.intervals[i].upper, o.intervals[j].upper) < 0 {
			i++
		} else {
			j++
		}
	}

	return true
}

// Intervals iterates over the internal intervals, for diagnostics:
//
//	for iv := range set.Intervals() { ... }
func (s *IntervalSet) Intervals() iter.Seq[interval] {
	return slices.Values(s.intervals)
}

// String renders the set canonically: "∅" for empty, "*" for full,
// "||"-joined interval expressions otherwise.
func (s *IntervalSet) String() string {
	if len(s.intervals) == 0 {
		return "∅"
	}

	if len(s.intervals) == 1 {
		return intervalString(s.intervals[0])
	}

	parts := make([]string, len(s.intervals))
	for i, iv := range s.intervals {
		parts[i] = intervalString(iv)
	}
	return strings.Join(parts, " || ")
}

func intervalString(iv interval) string {
	if iv.lower.isNegInf() && iv.upper.isPosInf() {
		return "*"
	}

	if iv.lower.isFinite() && iv.upper.isFinite() {
		if iv.lower.value.Sort(iv.upper.value) == 0 && iv.lower.inclusive && iv.upper.inclusive {
			return fmt.Sprintf("==%s", iv.lower.value)
		}
	}

	var parts []string
	if iv.lower.isFinite() {
		op := ">"
		if iv.lower.inclusive {
			op = ">="
		}
		parts = append(parts, op+iv.lower.value.String())
	}
	if iv.upper.isFinite() {
		op := "<"
		if iv.upper.inclusive {
			op = "<="
		}
		parts = append(parts, op+iv.upper.value.String())
	}

	if len(parts) == 0 {
		return "*"
	}
	return strings.Join(parts, ", ")
}

// asIntervalSet narrows a ValueSet to the interval implementation. Foreign
// implementations that report empty are treated as empty; anything else is
// a programming error.
func asIntervalSet(set ValueSet) *IntervalSet {
	if set == nil {
		return &IntervalSet{}
	}

	if iv, ok := set.(*IntervalSet); ok {
		return iv
	}

	if set.IsEmpty() {
		return &IntervalSet{}
	}

	panic("crux: unsupported ValueSet implementation")
}

// singletonValue extracts the sole value of a set, if the set holds exactly
// one.
func singletonValue(set ValueSet) (Value, bool) {
	iv, ok := set.(*IntervalSet)
	if !ok || len(iv.intervals) != 1 {
		return nil, false
	}

	only := iv.intervals[0]
	if !only.lower.isFinite() || !only.upper.isFinite() {
		return nil, false
	}
	if only.lower.value.Sort(only.upper.value) != 0 {
		return nil, false
	}
	if !only.lower.inclusive || !only.upper.inclusive {
		return nil, false
	}

	return only.lower.value, true
}

// setsEqual reports mutual subsumption.
func setsEqual(a, b ValueSet) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.IsSubset(b) && b.IsSubset(a)
}

var (
	_ ValueSet = (*IntervalSet)(nil)
)
