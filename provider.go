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
	"slices"
)

// Provider supplies candidate values and their declared requirements.
// Implementations can serve from memory, an on-disk store, or a remote
// registry; the resolver treats every call as an ordinary blocking call.
//
// Contract:
//   - Candidates returns acceptable values for the subject consistent with
//     the constraint, most-preferred first. The sequence is finite and
//     restartable: the resolver may ask again after backtracking. An empty
//     result means "no candidates" and is NOT an error.
//   - Requirements returns the dependency terms declared by one concrete
//     value.
//   - I/O failures must surface as errors; they abort the run and are
//     never converted into conflicts.
//
// Built-in implementations: InMemoryProvider, CombinedProvider,
// CachedProvider, and kvstore.Store (BadgerDB-backed).
type Provider interface {
	Candidates(ctx context.Context, subject Subject, constraint Term) ([]Value, error)
	Requirements(ctx context.Context, subject Subject, value Value) ([]Term, error)
}

// inMemoryEntry holds one candidate value and its declared requirements.
type inMemoryEntry struct {
	value        Value
	requirements []Term
}

// InMemoryProvider is a map-backed Provider, mainly for tests and small
// scenario files. Candidates are offered highest value first.
type InMemoryProvider struct {
	entries map[Subject][]inMemoryEntry
}

// NewInMemoryProvider creates an empty in-memory provider.
func NewInMemoryProvider() *InMemoryProvider {
	return &InMemoryProvider{entries: make(map[Subject][]inMemoryEntry)}
}

// Add registers a candidate value for a subject together with the
// requirements that choosing it imposes.
func (p *InMemoryProvider) Add(subject Subject, value Value, requirements ...Term) {
	if p.entries == nil {
		p.entries = make(map[Subject][]inMemoryEntry)
	}
	p.entries[subject] = append(p.entries[subject], inMemoryEntry{value: value, requirements: requirements})
}

// Candidates satisfies Provider. Unknown subjects yield no candidates.
func (p *InMemoryProvider) Candidates(_ context.Context, subject Subject, constraint Term) ([]Value, error) {
	entries := p.entries[subject]
	if len(entries) == 0 {
		return nil, nil
	}

	allowed := constraint.allowed()
	result := make([]Value, 0, len(entries))
	for _, e := range entries {
		if allowed.Contains(e.value) {
			result = append(result, e.value)
		}
	}

	// Highest first: preference order for version-like values.
	slices.SortFunc(result, func(a, b Value) int {
		return b.Sort(a)
	})

	return result, nil
}

// Requirements satisfies Provider.
func (p *InMemoryProvider) Requirements(_ context.Context, subject Subject, value Value) ([]Term, error) {
	for _, e := range p.entries[subject] {
		if e.value.Sort(value) == 0 {
			return e.requirements, nil
		}
	}
	return nil, &NotFoundError{Subject: subject, Value: value}
}

// CombinedProvider aggregates several providers. Candidates are merged
// across all providers and re-sorted highest first; requirements come from
// the first provider that knows the value.
type CombinedProvider []Provider

// Candidates satisfies Provider.
func (c CombinedProvider) Candidates(ctx context.Context, subject Subject, constraint Term) ([]Value, error) {
	var merged []Value
	seen := make(map[string]bool)

	for _, p := range c {
		values, err := p.Candidates(ctx, subject, constraint)
		if err != nil {
			return nil, err
		}
		for _, v := range values {
			if seen[v.String()] {
				continue
			}
			seen[v.String()] = true
			merged = append(merged, v)
		}
	}

	slices.SortFunc(merged, func(a, b Value) int {
		return b.Sort(a)
	})

	return merged, nil
}

// Requirements satisfies Provider.
func (c CombinedProvider) Requirements(ctx context.Context, subject Subject, value Value) ([]Term, error) {
	for _, p := range c {
		reqs, err := p.Requirements(ctx, subject, value)
		if err != nil {
			var nf *NotFoundError
			if errors.As(err, &nf) {
				continue
			}
			return nil, err
		}
		return reqs, nil
	}
	return nil, &NotFoundError{Subject: subject, Value: value}
}

var (
	_ Provider = (*InMemoryProvider)(nil)
	_ Provider = CombinedProvider{}
)
