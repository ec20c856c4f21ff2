package crux

import (
	"context"
	"fmt"
)

// CachedProvider wraps a Provider and memoizes Candidates and Requirements
// calls.
//
// WHEN TO USE:
// CachedProvider pays off for providers with real I/O behind them (package
// registries, on-disk stores) and for decision strategies that probe
// candidate counts repeatedly. The FewestCandidates strategy asks for
// candidates of every pending subject on each decision, so an uncached
// slow provider multiplies that cost.
//
// WHEN NOT TO USE:
// InMemoryProvider is already fast; wrapping it only adds map lookups.
//
// The cache lives for the lifetime of the CachedProvider and assumes the
// underlying candidate lists and requirements are immutable while solving.
type CachedProvider struct {
	provider Provider

	candidatesCache map[string][]Value
	candidatesCalls int
	candidatesHits  int

	requirementsCache map[string][]Term
	requirementsCalls int
	requirementsHits  int
}

// NewCachedProvider creates a memoizing wrapper around the given provider.
func NewCachedProvider(provider Provider) *CachedProvider {
	return &CachedProvider{
		provider:          provider,
		candidatesCache:   make(map[string][]Value),
		requirementsCache: make(map[string][]Term),
	}
}

// Candidates satisfies Provider, caching per subject+constraint.
func (c *CachedProvider) Candidates(ctx context.Context, subject Subject, constraint Term) ([]Value, error) {
	c.candidatesCalls++

	key := fmt.Sprintf("%s/%s?%s", subject.Kind(), subject.Name(), constraint.allowed())
	if values, ok := c.candidatesCache[key]; ok {
		c.candidatesHits++
		return values, nil
	}

	values, err := c.provider.Candidates(ctx, subject, constraint)
	if err != nil {
		return nil, err
	}

	c.candidatesCache[key] = values
	return values, nil
}

// Requirements satisfies Provider, caching per subject+value.
func (c *CachedProvider) Requirements(ctx context.Context, subject Subject, value Value) ([]Term, error) {
	c.requirementsCalls++

	key := fmt.Sprintf("%s/%s@%s", subject.Kind(), subject.Name(), value)
	if reqs, ok := c.requirementsCache[key]; ok {
		c.requirementsHits++
		return reqs, nil
	}

	reqs, err := c.provider.Requirements(ctx, subject, value)
	if err != nil {
		return nil, err
	}

	c.requirementsCache[key] = reqs
	return reqs, nil
}

// CacheStats reports cache effectiveness.
type CacheStats struct {
	CandidatesCalls   int
	CandidatesHits    int
	CandidatesHitRate float64

	RequirementsCalls   int
	RequirementsHits    int
	RequirementsHitRate float64
}

// Stats returns cache performance counters.
func (c *CachedProvider) Stats() CacheStats {
	stats := CacheStats{
		CandidatesCalls:   c.candidatesCalls,
		CandidatesHits:    c.candidatesHits,
		RequirementsCalls: c.requirementsCalls,
		RequirementsHits:  c.requirementsHits,
	}

	if stats.CandidatesCalls > 0 {
		stats.CandidatesHitRate = float64(stats.CandidatesHits) / float64(stats.CandidatesCalls)
	}
	if stats.RequirementsCalls > 0 {
		stats.RequirementsHitRate = float64(stats.RequirementsHits) / float64(stats.RequirementsCalls)
	}

	return stats
}

// ClearCache drops all cached data, keeping the underlying provider.
func (c *CachedProvider) ClearCache() {
	c.candidatesCache = make(map[string][]Value)
	c.requirementsCache = make(map[string][]Term)
	c.candidatesCalls = 0
	c.candidatesHits = 0
	c.requirementsCalls = 0
	c.requirementsHits = 0
}

var (
	_ Provider = (*CachedProvider)(nil)
)
