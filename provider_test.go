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
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryProviderCandidatesOrderedAndFiltered(t *testing.T) {
	provider := NewInMemoryProvider()
	provider.Add(Package("lib"), MustParseSemanticVersion("1.0.0"))
	provider.Add(Package("lib"), MustParseSemanticVersion("2.0.0"))
	provider.Add(Package("lib"), MustParseSemanticVersion("1.5.0"))

	ctx := context.Background()

	all, err := provider.Candidates(ctx, Package("lib"), NewTerm(Package("lib"), nil))
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "2.0.0", all[0].String())
	assert.Equal(t, "1.5.0", all[1].String())
	assert.Equal(t, "1.0.0", all[2].String())

	constrained, err := provider.Candidates(ctx, Package("lib"),
		NewTerm(Package("lib"), MustParseRange("<2.0.0")))
	require.NoError(t, err)
	require.Len(t, constrained, 2)
	assert.Equal(t, "1.5.0", constrained[0].String())

	none, err := provider.Candidates(ctx, Package("unknown"), NewTerm(Package("unknown"), nil))
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestInMemoryProviderRequirements(t *testing.T) {
	provider := NewInMemoryProvider()
	dep := NewTerm(Package("dep"), MustParseRange(">=1.0.0"))
	provider.Add(Package("lib"), MustParseSemanticVersion("1.0.0"), dep)

	reqs, err := provider.Requirements(context.Background(), Package("lib"), MustParseSemanticVersion("1.0.0"))
	require.NoError(t, err)
	require.Len(t, reqs, 1)
	assert.Equal(t, Package("dep"), reqs[0].Subject)

	_, err = provider.Requirements(context.Background(), Package("lib"), MustParseSemanticVersion("9.9.9"))
	require.ErrorAs(t, err, new(*NotFoundError))
}

func TestCombinedProviderMergesAndFallsThrough(t *testing.T) {
	first := NewInMemoryProvider()
	first.Add(Package("lib"), MustParseSemanticVersion("1.0.0"))
	second := NewInMemoryProvider()
	second.Add(Package("lib"), MustParseSemanticVersion("2.0.0"))
	second.Add(Package("lib"), MustParseSemanticVersion("1.0.0")) // duplicate across providers

	combined := CombinedProvider{first, second}
	ctx := context.Background()

	values, err := combined.Candidates(ctx, Package("lib"), NewTerm(Package("lib"), nil))
	require.NoError(t, err)
	require.Len(t, values, 2)
	assert.Equal(t, "2.0.0", values[0].String())

	// Requirements for 2.0.0 live only in the second provider.
	_, err = combined.Requirements(ctx, Package("lib"), MustParseSemanticVersion("2.0.0"))
	require.NoError(t, err)

	_, err = combined.Requirements(ctx, Package("lib"), MustParseSemanticVersion("3.0.0"))
	require.ErrorAs(t, err, new(*NotFoundError))
}

func TestCachedProviderMemoizes(t *testing.T) {
	inner := &countingProvider{inner: func() Provider {
		p := NewInMemoryProvider()
		p.Add(Package("lib"), MustParseSemanticVersion("1.0.0"))
		return p
	}()}

	cached := NewCachedProvider(inner)
	ctx := context.Background()
	constraint := NewTerm(Package("lib"), nil)

	for i := 0; i < 3; i++ {
		_, err := cached.Candidates(ctx, Package("lib"), constraint)
		require.NoError(t, err)
		_, err = cached.Requirements(ctx, Package("lib"), MustParseSemanticVersion("1.0.0"))
		require.NoError(t, err)
	}

	assert.Equal(t, 1, inner.candidatesCalls)
	assert.Equal(t, 1, inner.requirementsCalls)

	stats := cached.Stats()
	assert.Equal(t, 3, stats.CandidatesCalls)
	assert.Equal(t, 2, stats.CandidatesHits)
	assert.InDelta(t, 2.0/3.0, stats.CandidatesHitRate, 1e-9)

	// A different constraint is a different cache key.
	_, err := cached.Candidates(ctx, Package("lib"), NewTerm(Package("lib"), MustParseRange(">=1.0.0")))
	require.NoError(t, err)
	assert.Equal(t, 2, inner.candidatesCalls)

	cached.ClearCache()
	_, err = cached.Candidates(ctx, Package("lib"), constraint)
	require.NoError(t, err)
	assert.Equal(t, 3, inner.candidatesCalls)
}
