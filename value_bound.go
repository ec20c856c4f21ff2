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

// bound represents one endpoint of a value interval. A bound is either
// finite (anchored at a concrete value) or one of the two infinities.
//
// The sentinel values of `infinite`:
//   - boundNegInf (-1): no lower limit
//   - boundFinite (0):  a concrete value
//   - boundPosInf (1):  no upper limit
//
// `inclusive` controls whether the anchor value itself belongs to the
// interval, e.g. ">=1.0.0" is inclusive while ">1.0.0" is not.
type bound struct {
	value     Value
	inclusive bool
	infinite  int
}

const (
	boundNegInf = -1
	boundFinite = 0
	boundPosInf = 1
)

// lowerBound creates a lower bound; a nil value means unbounded below.
func lowerBound(value Value, inclusive bool) bound {
	if value == nil {
		return bound{infinite: boundNegInf, inclusive: true}
	}
	return bound{value: value, inclusive: inclusive}
}

// upperBound creates an upper bound; a nil value means unbounded above.
func upperBound(value Value, inclusive bool) bound {
	if value == nil {
		return bound{infinite: boundPosInf, inclusive: true}
	}
	return bound{value: value, inclusive: inclusive}
}

func negInfBound() bound {
	return bound{infinite: boundNegInf, inclusive: true}
}

func posInfBound() bound {
	return bound{infinite: boundPosInf, inclusive: true}
}

func (b bound) isNegInf() bool { return b.infinite == boundNegInf }
func (b bound) isPosInf() bool { return b.infinite == boundPosInf }
func (b bound) isFinite() bool { return b.infinite == boundFinite }

// compareLower orders two bounds interpreted as lower endpoints.
// When anchor values are equal, an inclusive lower bound sorts first
// because it admits more values.
func compareLower(a, b bound) int {
	switch {
	case a.isNegInf() && b.isNegInf():
		return 0
	case a.isNegInf():
		return -1
	case b.isNegInf():
		return 1
	case a.isPosInf() && b.isPosInf():
		return 0
	case a.isPosInf():
		return 1
	case b.isPosInf():
		return -1
	}

	if cmp := a.value.Sort(b.value); cmp != 0 {
		return cmp
	}
	if a.inclusive == b.inclusive {
		return 0
	}
	if a.inclusive {
		return -1
	}
	return 1
}

// compareUpper orders two bounds interpreted as upper endpoints.
// When anchor values are equal, an inclusive upper bound sorts last.
func compareUpper(a, b bound) int {
	switch {
	case a.isPosInf() && b.isPosInf():
		return 0
	case a.isPosInf():
		return 1
	case b.isPosInf():
		return -1
	case a.isNegInf() && b.isNegInf():
		return 0
	case a.isNegInf():
		return -1
	case b.isNegInf():
		return 1
	}

	if cmp := a.value.Sort(b.value); cmp != 0 {
		return cmp
	}
	if a.inclusive == b.inclusive {
		return 0
	}
	if a.inclusive {
		return 1
	}
	return -1
}
