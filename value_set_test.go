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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueSetBasics(t *testing.T) {
	empty := EmptySet()
	full := FullSet()

	assert.True(t, empty.IsEmpty())
	assert.False(t, full.IsEmpty())
	assert.Equal(t, "∅", empty.String())
	assert.Equal(t, "*", full.String())

	one := Exactly(StringValue("b"))
	assert.True(t, one.Contains(StringValue("b")))
	assert.False(t, one.Contains(StringValue("a")))
	assert.Equal(t, "==b", one.String())
}

func TestValueSetRangeContains(t *testing.T) {
	set := RangeSet(MustParseSemanticVersion("1.0.0"), true, MustParseSemanticVersion("2.0.0"), false)

	assert.True(t, set.Contains(MustParseSemanticVersion("1.0.0")))
	assert.True(t, set.Contains(MustParseSemanticVersion("1.9.9")))
	assert.False(t, set.Contains(MustParseSemanticVersion("2.0.0")))
	assert.False(t, set.Contains(MustParseSemanticVersion("0.9.0")))
	assert.Equal(t, ">=1.0.0, <2.0.0", set.String())
}

func TestValueSetUnionMergesTouchingIntervals(t *testing.T) {
	a := RangeSet(MustParseSemanticVersion("1.0.0"), true, MustParseSemanticVersion("2.0.0"), false)
	b := RangeSet(MustParseSemanticVersion("2.0.0"), true, MustParseSemanticVersion("3.0.0"), false)

	merged := a.Union(b)
	assert.Equal(t, ">=1.0.0, <3.0.0", merged.String())

	gapped := a.Union(AtLeast(MustParseSemanticVersion("4.0.0"), true))
	assert.Equal(t, ">=1.0.0, <2.0.0 || >=4.0.0", gapped.String())
}

func TestValueSetIntersection(t *testing.T) {
	a := AtLeast(MustParseSemanticVersion("1.0.0"), true)
	b := Below(MustParseSemanticVersion("2.0.0"), false)

	both := a.Intersection(b)
	assert.Equal(t, ">=1.0.0, <2.0.0", both.String())

	disjoint := Exactly(MustParseSemanticVersion("0.5.0")).Intersection(a)
	assert.True(t, disjoint.IsEmpty())

	assert.True(t, a.Intersection(FullSet()).IsSubset(a))
	assert.True(t, a.IsSubset(a.Intersection(FullSet())))
}

func TestValueSetComplementRoundTrip(t *testing.T) {
	set := RangeSet(MustParseSemanticVersion("1.0.0"), true, MustParseSemanticVersion("2.0.0"), false)
	comp := set.Complement()

	assert.False(t, comp.Contains(MustParseSemanticVersion("1.5.0")))
	assert.True(t, comp.Contains(MustParseSemanticVersion("0.9.0")))
	assert.True(t, comp.Contains(MustParseSemanticVersion("2.0.0")))
	assert.Equal(t, "<1.0.0 || >=2.0.0", comp.String())

	back := comp.Complement()
	assert.True(t, setsEqual(set, back))

	assert.True(t, FullSet().Complement().IsEmpty())
	assert.True(t, setsEqual(EmptySet().Complement(), FullSet()))
}

func TestValueSetSubsetAndDisjoint(t *testing.T) {
	narrow := RangeSet(MustParseSemanticVersion("1.2.0"), true, MustParseSemanticVersion("1.8.0"), true)
	wide := RangeSet(MustParseSemanticVersion("1.0.0"), true, MustParseSemanticVersion("2.0.0"), false)
	above := AtLeast(MustParseSemanticVersion("3.0.0"), true)

	assert.True(t, narrow.IsSubset(wide))
	assert.False(t, wide.IsSubset(narrow))
	assert.True(t, EmptySet().IsSubset(narrow))
	assert.True(t, wide.IsDisjoint(above))
	assert.False(t, wide.IsDisjoint(narrow))
	assert.True(t, EmptySet().IsDisjoint(wide))
}

func TestSingletonValue(t *testing.T) {
	v, ok := singletonValue(Exactly(MustParseSemanticVersion("1.2.3")))
	require.True(t, ok)
	assert.Equal(t, "1.2.3", v.String())

	_, ok = singletonValue(AtLeast(MustParseSemanticVersion("1.0.0"), true))
	assert.False(t, ok)
	_, ok = singletonValue(EmptySet())
	assert.False(t, ok)
}

func TestParseRange(t *testing.T) {
	cases := []struct {
		input string
		want  string
	}{
		{"*", "*"},
		{"", "*"},
		{">=1.0.0", ">=1.0.0"},
		{">1.0.0", ">1.0.0"},
		{"<=2.0.0", "<=2.0.0"},
		{"<2.0.0", "<2.0.0"},
		{"==1.5.0", "==1.5.0"},
		{"1.5.0", "==1.5.0"},
		{"!=1.5.0", "<1.5.0 || >1.5.0"},
		{">=1.0.0, <2.0.0", ">=1.0.0, <2.0.0"},
		{"<1.0.0 || >=3.0.0", "<1.0.0 || >=3.0.0"},
	}

	for _, tc := range cases {
		t.Run(tc.input, func(t *testing.T) {
			set, err := ParseRange(tc.input)
			require.NoError(t, err)
			assert.Equal(t, tc.want, set.String())
		})
	}
}

func TestParseRangeErrors(t *testing.T) {
	for _, input := range []string{">=", "||", ">=1.0.0,, <2.0.0", "a || "} {
		t.Run(input, func(t *testing.T) {
			_, err := ParseRange(input)
			assert.Error(t, err)
		})
	}
}

func TestParseRangeRoundTripsThroughString(t *testing.T) {
	for _, input := range []string{">=1.0.0, <2.0.0", "==1.5.0", "<1.0.0 || >=3.0.0", "*"} {
		set := MustParseRange(input)
		again, err := ParseRange(set.String())
		require.NoError(t, err)
		assert.True(t, setsEqual(set, again), "round trip changed %q", input)
	}
}
