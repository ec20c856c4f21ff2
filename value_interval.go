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

import "slices"

// interval is a contiguous run of values between two bounds, closed or open
// at either end depending on bound inclusivity.
//
// Examples:
//   - [1.0.0, 2.0.0) is >=1.0.0, <2.0.0
//   - (1.0.0, 2.0.0] is >1.0.0, <=2.0.0
//   - [1.0.0, +inf)  is >=1.0.0
type interval struct {
	lower bound
	upper bound
}

// newInterval builds an interval from its bounds; ok is false when the
// bounds describe an empty run.
func newInterval(lower, upper bound) (interval, bool) {
	iv := interval{lower: lower, upper: upper}
	if iv.isEmpty() {
		return interval{}, false
	}
	return iv, true
}

// isEmpty reports whether no value can fall inside the interval: the upper
// bound precedes the lower, or the bounds coincide with an exclusive end.
func (iv interval) isEmpty() bool {
	if iv.lower.isPosInf() || iv.upper.isNegInf() {
		return true
	}
	if iv.lower.isNegInf() || iv.upper.isPosInf() {
		return false
	}

	cmp := iv.lower.value.Sort(iv.upper.value)
	switch {
	case cmp < 0:
		return false
	case cmp > 0:
		return true
	default:
		return !iv.lower.inclusive || !iv.upper.inclusive
	}
}

// contains reports whether the value falls within the interval.
func (iv interval) contains(value Value) bool {
	if value == nil {
		return false
	}

	if !iv.lower.isNegInf() {
		if cmp := value.Sort(iv.lower.value); cmp < 0 {
			return false
		} else if cmp == 0 && !iv.lower.inclusive {
			return false
		}
	}

	if !iv.upper.isPosInf() {
		if cmp := value.Sort(iv.upper.value); cmp > 0 {
			return false
		} else if cmp == 0 && !iv.upper.inclusive {
			return false
		}
	}

	return true
}

// upperBeforeLower reports whether an upper endpoint sits strictly below a
// lower endpoint, i.e. there is a gap between two intervals.
func upperBeforeLower(upper, lower bound) bool {
	switch {
	case upper.isNegInf():
		return !lower.isNegInf()
	case lower.isPosInf():
		return !upper.isPosInf()
	case upper.isPosInf(), lower.isNegInf():
		return false
	}

	cmp := upper.value.Sort(lower.value)
	if cmp != 0 {
		return cmp < 0
	}
	return !upper.inclusive || !lower.inclusive
}

// overlaps reports whether the two intervals share at least one value.
func (iv interval) overlaps(other interval) bool {
	return !upperBeforeLower(iv.upper, other.lower) &&
		!upperBeforeLower(other.upper, iv.lower)
}

// touches reports whether the two intervals overlap or are adjacent, which
// makes them mergeable without introducing a gap.
func (iv interval) touches(other interval) bool {
	return iv.overlaps(other)
}

// merge spans both intervals with a single interval.
func (iv interval) merge(other interval) interval {
	return interval{
		lower: minBound(iv.lower, other.lower, compareLower),
		upper: maxBound(iv.upper, other.upper, compareUpper),
	}
}

func minBound(a, b bound, compare func(bound, bound) int) bound {
	if compare(a, b) <= 0 {
		return a
	}
	return b
}

func maxBound(a, b bound, compare func(bound, bound) int) bound {
	if compare(a, b) >= 0 {
		return a
	}
	return b
}

// covers reports whether this interval fully contains other.
func (iv interval) covers(other interval) bool {
	return compareLower(iv.lower, other.lower) <= 0 &&
		compareUpper(iv.upper, other.upper) >= 0
}

// gapLowerBound gives the lower endpoint of the complement region above
// this interval.
func (iv interval) gapLowerBound() bound {
	switch iv.upper.infinite {
	case boundPosInf:
		return posInfBound()
	case boundNegInf:
		return negInfBound()
	default:
		return bound{value: iv.upper.value, inclusive: !iv.upper.inclusive}
	}
}

// gapUpperBound gives the upper endpoint of the complement region below
// this interval.
func (iv interval) gapUpperBound() bound {
	switch iv.lower.infinite {
	case boundNegInf:
		return negInfBound()
	case boundPosInf:
		return posInfBound()
	default:
		return bound{value: iv.lower.value, inclusive: !iv.lower.inclusive}
	}
}

// normalizeIntervals canonicalizes a slice of intervals: drops empty ones,
// sorts by lower bound, and merges anything overlapping or adjacent. The
// result is disjoint and sorted, which every set operation relies on.
func normalizeIntervals(intervals []interval) []interval {
	filtered := intervals[:0]
	for _, iv := range intervals {
		if !iv.isEmpty() {
			filtered = append(filtered, iv)
		}
	}

	if len(filtered) == 0 {
		return nil
	}

	slices.SortFunc(filtered, func(a, b interval) int {
		return compareLower(a.lower, b.lower)
	})

	merged := filtered[:1]
	for i := 1; i < len(filtered); i++ {
		last := &merged[len(merged)-1]
		current := filtered[i]
		if last.touches(current) {
			*last = last.merge(current)
		} else {
			merged = append(merged, current)
		}
	}

	out := make([]interval, len(merged))
	copy(out, merged)
	return out
}
