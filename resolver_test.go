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
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sv(t *testing.T, s string) *SemanticVersion {
	t.Helper()
	v, err := ParseSemanticVersion(s)
	require.NoError(t, err)
	return v
}

func rng(t *testing.T, s string) ValueSet {
	t.Helper()
	set, err := ParseRange(s)
	require.NoError(t, err)
	return set
}

func checkSolution(t *testing.T, solution Solution, subject Subject, want string) {
	t.Helper()
	value, ok := solution.Get(subject)
	require.True(t, ok, "expected %s in solution", subject.Name())
	assert.Equal(t, want, value.String())
}

func TestResolveSimpleGraph(t *testing.T) {
	provider := NewInMemoryProvider()
	provider.Add(Package("A"), sv(t, "1.0.0"))
	provider.Add(Package("A"), sv(t, "1.1.0"),
		NewTerm(Package("B"), rng(t, ">=2.0.0")))
	provider.Add(Package("B"), sv(t, "2.0.0"))
	provider.Add(Package("B"), sv(t, "2.1.0"))

	resolver := NewResolver(provider)
	result, err := resolver.Resolve(context.Background(), []Term{
		NewTerm(Package("A"), rng(t, ">=1.0.0, <2.0.0")),
	})
	require.NoError(t, err)
	require.Equal(t, OutcomeSucceeded, result.Outcome)

	checkSolution(t, result.Solution, Package("A"), "1.1.0")
	checkSolution(t, result.Solution, Package("B"), "2.1.0")
	assert.NoError(t, result.Err())
}

// The resolver prefers aaa 2.0.0 but bbb's dependency pins aaa to 1.0.0;
// the preference must be abandoned, not the run.
func TestResolveBacktracksOffPreferredCandidate(t *testing.T) {
	provider := NewInMemoryProvider()
	provider.Add(Package("bbb"), sv(t, "1.0.0"),
		NewTerm(Package("aaa"), rng(t, "==1.0.0")))
	provider.Add(Package("aaa"), sv(t, "1.0.0"))
	provider.Add(Package("aaa"), sv(t, "2.0.0"))

	resolver := NewResolver(provider)
	result, err := resolver.Resolve(context.Background(), []Term{
		NewTerm(Package("bbb"), rng(t, "==1.0.0")),
	})
	require.NoError(t, err)
	require.Equal(t, OutcomeSucceeded, result.Outcome)

	checkSolution(t, result.Solution, Package("aaa"), "1.0.0")
	checkSolution(t, result.Solution, Package("bbb"), "1.0.0")
}

func TestResolveFailsWithDependencyCauseInChain(t *testing.T) {
	provider := NewInMemoryProvider()
	provider.Add(Package("A"), sv(t, "1.0.0"),
		NewTerm(Package("B"), rng(t, ">=2.0.0")))
	provider.Add(Package("B"), sv(t, "1.0.0"))

	resolver := NewResolver(provider, WithConflictTracking(true))
	result, err := resolver.Resolve(context.Background(), []Term{
		NewTerm(Package("A"), nil),
		NewTerm(Package("B"), nil),
	})
	require.NoError(t, err)
	require.Equal(t, OutcomeFailed, result.Outcome)
	require.NotNil(t, result.Conflict)
	assert.True(t, result.Conflict.IsFailure())

	// The cause chain must carry the dependency edge that doomed the run.
	var sawDependency bool
	var walk func(inc *Incompatibility)
	seen := make(map[*Incompatibility]bool)
	walk = func(inc *Incompatibility) {
		if inc == nil || seen[inc] {
			return
		}
		seen[inc] = true
		if inc.Kind == CauseDependency && inc.Subject == Package("A") && inc.Value.String() == "1.0.0" {
			sawDependency = true
		}
		walk(inc.Left)
		walk(inc.Right)
	}
	walk(result.Conflict)
	assert.True(t, sawDependency, "expected a dependency cause naming A 1.0.0 in the chain")

	var noSolution *NoSolutionError
	require.ErrorAs(t, result.Err(), &noSolution)
	assert.Contains(t, noSolution.Error(), "A 1.0.0 depends on B >=2.0.0")

	assert.NotEmpty(t, resolver.Learned())
}

// countingProvider records how often the resolver reaches for metadata.
type countingProvider struct {
	inner             Provider
	candidatesCalls   int
	requirementsCalls int
}

func (c *countingProvider) Candidates(ctx context.Context, subject Subject, constraint Term) ([]Value, error) {
	c.candidatesCalls++
	return c.inner.Candidates(ctx, subject, constraint)
}

func (c *countingProvider) Requirements(ctx context.Context, subject Subject, value Value) ([]Term, error) {
	c.requirementsCalls++
	return c.inner.Requirements(ctx, subject, value)
}

func TestResolveContradictoryRootFailsWithoutProviderCalls(t *testing.T) {
	provider := &countingProvider{inner: NewInMemoryProvider()}

	resolver := NewResolver(provider)
	result, err := resolver.Resolve(context.Background(), []Term{
		NewTerm(Package("A"), rng(t, "==1.0.0")),
		NewTerm(Package("A"), rng(t, "==2.0.0")),
	})
	require.NoError(t, err)
	require.Equal(t, OutcomeFailed, result.Outcome)
	require.NotNil(t, result.Conflict)
	assert.True(t, result.Conflict.IsFailure())
	assert.Zero(t, provider.candidatesCalls)
	assert.Zero(t, provider.requirementsCalls)
}

func TestResolveEmptyRootRangeIsRejected(t *testing.T) {
	provider := &countingProvider{inner: NewInMemoryProvider()}

	resolver := NewResolver(provider)
	result, err := resolver.Resolve(context.Background(), []Term{
		NewTerm(Package("A"), rng(t, ">=2.0.0, <2.0.0")),
	})
	require.ErrorAs(t, err, new(*RequestError))
	assert.Nil(t, result)
	assert.Zero(t, provider.candidatesCalls)
	assert.Zero(t, provider.requirementsCalls)
}

func TestResolveDisjointRequirementsOnDistinctSubjectsFail(t *testing.T) {
	// Distinct subjects, but B's only version needs A ==2.0.0 while root
	// pins A ==1.0.0: proven unsatisfiable, outcome not error.
	provider := &countingProvider{inner: NewInMemoryProvider()}
	mem := provider.inner.(*InMemoryProvider)
	mem.Add(Package("A"), sv(t, "1.0.0"))
	mem.Add(Package("A"), sv(t, "2.0.0"))
	mem.Add(Package("B"), sv(t, "1.0.0"),
		NewTerm(Package("A"), rng(t, "==2.0.0")))

	resolver := NewResolver(provider)
	result, err := resolver.Resolve(context.Background(), []Term{
		NewTerm(Package("A"), rng(t, "==1.0.0")),
		NewTerm(Package("B"), nil),
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeFailed, result.Outcome)
	assert.True(t, result.Conflict.IsFailure())
}

func TestResolveDeterministicReplay(t *testing.T) {
	build := func() Provider {
		provider := NewInMemoryProvider()
		provider.Add(Package("app"), sv(t, "1.0.0"),
			NewTerm(Package("lib"), rng(t, ">=1.0.0")),
			NewTerm(Package("util"), rng(t, "*")))
		provider.Add(Package("lib"), sv(t, "1.0.0"))
		provider.Add(Package("lib"), sv(t, "1.5.0"))
		provider.Add(Package("lib"), sv(t, "2.0.0"))
		provider.Add(Package("util"), sv(t, "0.1.0"))
		provider.Add(Package("util"), sv(t, "0.2.0"))
		return provider
	}

	reqs := []Term{NewTerm(Package("app"), nil)}

	first, err := NewResolver(build()).Resolve(context.Background(), reqs)
	require.NoError(t, err)
	second, err := NewResolver(build()).Resolve(context.Background(), reqs)
	require.NoError(t, err)

	require.Equal(t, OutcomeSucceeded, first.Outcome)
	require.Equal(t, first.Outcome, second.Outcome)
	require.Equal(t, len(first.Solution), len(second.Solution))
	for i := range first.Solution {
		assert.Equal(t, first.Solution[i].Subject, second.Solution[i].Subject)
		assert.Zero(t, first.Solution[i].Value.Sort(second.Solution[i].Value))
	}
}

func TestResolveStepBudgetTimesOut(t *testing.T) {
	provider := NewInMemoryProvider()
	provider.Add(Package("A"), sv(t, "1.0.0"),
		NewTerm(Package("B"), rng(t, "*")))
	provider.Add(Package("B"), sv(t, "1.0.0"))

	resolver := NewResolver(provider, WithMaxSteps(1))
	result, err := resolver.Resolve(context.Background(), []Term{
		NewTerm(Package("A"), nil),
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeTimedOut, result.Outcome)
	assert.ErrorIs(t, result.Err(), ErrBudgetExceeded)
}

func TestResolveContextCancellation(t *testing.T) {
	provider := NewInMemoryProvider()
	provider.Add(Package("A"), sv(t, "1.0.0"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	resolver := NewResolver(provider)
	result, err := resolver.Resolve(ctx, []Term{NewTerm(Package("A"), nil)})
	require.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, result)
}

// failingProvider breaks on Requirements to exercise the abort path.
type failingProvider struct {
	inner Provider
	err   error
}

func (f *failingProvider) Candidates(ctx context.Context, subject Subject, constraint Term) ([]Value, error) {
	return f.inner.Candidates(ctx, subject, constraint)
}

func (f *failingProvider) Requirements(context.Context, Subject, Value) ([]Term, error) {
	return nil, f.err
}

func TestResolveProviderFailureAbortsRun(t *testing.T) {
	mem := NewInMemoryProvider()
	mem.Add(Package("A"), sv(t, "1.0.0"))

	boom := errors.New("registry unreachable")
	resolver := NewResolver(&failingProvider{inner: mem, err: boom})

	result, err := resolver.Resolve(context.Background(), []Term{
		NewTerm(Package("A"), nil),
	})
	require.Error(t, err)
	assert.Nil(t, result)

	var provErr *ProviderError
	require.ErrorAs(t, err, &provErr)
	assert.Equal(t, Package("A"), provErr.Subject)
	assert.ErrorIs(t, err, boom)
}

func TestResolveRequestValidation(t *testing.T) {
	resolver := NewResolver(NewInMemoryProvider())
	ctx := context.Background()

	cases := []struct {
		name string
		reqs []Term
	}{
		{"negative requirement", []Term{NewNegativeTerm(Package("A"), rng(t, "==1.0.0"))}},
		{"empty set", []Term{NewTerm(Package("A"), EmptySet())}},
		{"root subject", []Term{NewTerm(Root(), nil)}},
		{"nil subject", []Term{{Positive: true}}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			result, err := resolver.Resolve(ctx, tc.reqs)
			require.ErrorAs(t, err, new(*RequestError))
			assert.Nil(t, result)
		})
	}
}

func TestResolveEmptyRequirementsSucceedTrivially(t *testing.T) {
	resolver := NewResolver(NewInMemoryProvider())
	result, err := resolver.Resolve(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, OutcomeSucceeded, result.Outcome)
	assert.Empty(t, result.Solution)
}

func TestResolveMixedSubjectKinds(t *testing.T) {
	provider := NewInMemoryProvider()
	provider.Add(Package("numpy"), sv(t, "2.1.0"),
		NewTerm(Interpreter("python"), rng(t, ">=3.10.0")))
	provider.Add(Interpreter("python"), sv(t, "3.9.0"))
	provider.Add(Interpreter("python"), sv(t, "3.12.0"))
	provider.Add(Platform("linux-x86_64"), StringValue("glibc-2.35"))

	resolver := NewResolver(provider)
	result, err := resolver.Resolve(context.Background(), []Term{
		NewTerm(Package("numpy"), nil),
		NewTerm(Platform("linux-x86_64"), nil),
	})
	require.NoError(t, err)
	require.Equal(t, OutcomeSucceeded, result.Outcome)

	checkSolution(t, result.Solution, Package("numpy"), "2.1.0")
	checkSolution(t, result.Solution, Interpreter("python"), "3.12.0")
	checkSolution(t, result.Solution, Platform("linux-x86_64"), "glibc-2.35")
}

func TestResolveInsertionOrderStrategy(t *testing.T) {
	provider := NewInMemoryProvider()
	provider.Add(Package("A"), sv(t, "1.0.0"))
	provider.Add(Package("B"), sv(t, "1.0.0"))
	provider.Add(Package("B"), sv(t, "2.0.0"))

	resolver := NewResolver(provider, WithDecisionStrategy(InsertionOrder))
	result, err := resolver.Resolve(context.Background(), []Term{
		NewTerm(Package("B"), nil),
		NewTerm(Package("A"), nil),
	})
	require.NoError(t, err)
	require.Equal(t, OutcomeSucceeded, result.Outcome)
	checkSolution(t, result.Solution, Package("A"), "1.0.0")
	checkSolution(t, result.Solution, Package("B"), "2.0.0")
}

// Deep chain with a conflict at the bottom forces real backtracking across
// several decision levels.
func TestResolveDeepBacktrack(t *testing.T) {
	provider := NewInMemoryProvider()
	provider.Add(Package("top"), sv(t, "2.0.0"),
		NewTerm(Package("mid"), rng(t, ">=2.0.0")))
	provider.Add(Package("top"), sv(t, "1.0.0"),
		NewTerm(Package("mid"), rng(t, ">=1.0.0")))
	provider.Add(Package("mid"), sv(t, "2.0.0"),
		NewTerm(Package("base"), rng(t, ">=9.0.0")))
	provider.Add(Package("mid"), sv(t, "1.0.0"),
		NewTerm(Package("base"), rng(t, ">=1.0.0")))
	provider.Add(Package("base"), sv(t, "1.2.0"))

	resolver := NewResolver(provider)
	result, err := resolver.Resolve(context.Background(), []Term{
		NewTerm(Package("top"), nil),
	})
	require.NoError(t, err)
	require.Equal(t, OutcomeSucceeded, result.Outcome)

	checkSolution(t, result.Solution, Package("top"), "1.0.0")
	checkSolution(t, result.Solution, Package("mid"), "1.0.0")
	checkSolution(t, result.Solution, Package("base"), "1.2.0")
}

func TestResolveSolutionSatisfiesEveryIncompatibility(t *testing.T) {
	provider := NewInMemoryProvider()
	provider.Add(Package("app"), sv(t, "1.0.0"),
		NewTerm(Package("db"), rng(t, ">=1.0.0, <3.0.0")),
		NewTerm(Package("log"), rng(t, "*")))
	provider.Add(Package("db"), sv(t, "2.5.0"),
		NewTerm(Package("log"), rng(t, ">=0.2.0")))
	provider.Add(Package("log"), sv(t, "0.1.0"))
	provider.Add(Package("log"), sv(t, "0.3.0"))

	resolver := NewResolver(provider, WithConflictTracking(true))
	result, err := resolver.Resolve(context.Background(), []Term{
		NewTerm(Package("app"), nil),
	})
	require.NoError(t, err)
	require.Equal(t, OutcomeSucceeded, result.Outcome)

	// No recorded incompatibility may be fully satisfied by the solution.
	for _, inc := range resolver.Learned() {
		allSatisfied := true
		for _, term := range inc.Terms {
			value, _ := result.Solution.Get(term.Subject)
			if isRoot(term.Subject) {
				value = rootValue
			}
			if !term.SatisfiedBy(value) {
				allSatisfied = false
				break
			}
		}
		assert.False(t, allSatisfied, "solution satisfies incompatibility %s", inc)
	}
}

// sharedSliceProvider hands back the same backing slice on every call,
// ignoring the constraint, the way a caching provider serves hits.
type sharedSliceProvider struct {
	versions []Value
	calls    int
}

func (p *sharedSliceProvider) Candidates(context.Context, Subject, Term) ([]Value, error) {
	p.calls++
	return p.versions, nil
}

func (p *sharedSliceProvider) Requirements(context.Context, Subject, Value) ([]Term, error) {
	return nil, nil
}

// Candidate filtering must never rearrange the provider's slice:
// CachedProvider returns its cached slice on hits, so an in-place filter
// would corrupt every later hit for the same key.
func TestCandidateFilteringPreservesProviderSlices(t *testing.T) {
	lib := Package("lib")
	inner := &sharedSliceProvider{versions: []Value{sv(t, "3.0.0"), sv(t, "2.0.0"), sv(t, "1.0.0")}}
	cached := NewCachedProvider(inner)

	st := newRunState(cached, defaultResolverOptions())
	st.partial.seedRoot()
	cause := NewIncompatibilityNoCandidates(NewTerm(lib, nil))
	_, _, err := st.partial.addDerivation(NewTerm(lib, rng(t, "<3.0.0")), cause)
	require.NoError(t, err)

	ctx := context.Background()
	first, err := st.candidates(ctx, lib)
	require.NoError(t, err)
	second, err := st.candidates(ctx, lib)
	require.NoError(t, err)

	// Second lookup is a cache hit and must see the same filtered list.
	assert.Equal(t, 1, inner.calls)
	for _, got := range [][]Value{first, second} {
		require.Len(t, got, 2)
		assert.Equal(t, "2.0.0", got[0].String())
		assert.Equal(t, "1.0.0", got[1].String())
	}

	require.Len(t, inner.versions, 3)
	assert.Equal(t, "3.0.0", inner.versions[0].String())
	assert.Equal(t, "2.0.0", inner.versions[1].String())
	assert.Equal(t, "1.0.0", inner.versions[2].String())
}
