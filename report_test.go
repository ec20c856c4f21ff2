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

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// failureChain hand-builds the cause DAG of the classic unsolvable graph:
// root requires A >=1.0.0, A 1.0.0 depends on B >=2.0.0, no B satisfies.
func failureChain() *Incompatibility {
	rootInc := newRootIncompatibility(NewTerm(Package("A"), MustParseRange(">=1.0.0")))
	depInc := NewIncompatibilityFromDependency(Package("A"), MustParseSemanticVersion("1.0.0"),
		NewTerm(Package("B"), MustParseRange(">=2.0.0")))
	noB := NewIncompatibilityNoCandidates(NewTerm(Package("B"), MustParseRange(">=2.0.0")))

	learned := resolveIncompatibility(noB, depInc, Package("B"))
	return NewIncompatibilityConflict([]Term{rootAssertion()}, learned, rootInc)
}

func TestTreeReporterGolden(t *testing.T) {
	terminal := failureChain()
	require.True(t, terminal.IsFailure())

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "report_tree", []byte((&TreeReporter{}).Report(terminal)))
}

func TestChainReporterGolden(t *testing.T) {
	terminal := failureChain()

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "report_chain", []byte((&ChainReporter{}).Report(terminal)))
}

func TestReportersHandleNil(t *testing.T) {
	assert.Equal(t, "no solution found", (&TreeReporter{}).Report(nil))
	assert.Equal(t, "no solution found", (&ChainReporter{}).Report(nil))
}

func TestReporterVisitsSharedAntecedentOnce(t *testing.T) {
	depInc := NewIncompatibilityFromDependency(Package("A"), MustParseSemanticVersion("1.0.0"),
		NewTerm(Package("B"), MustParseRange(">=2.0.0")))

	// The same antecedent on both sides of a derived conflict: the report
	// must mention it once, not recurse twice.
	diamond := NewIncompatibilityConflict([]Term{NewTerm(Package("A"), MustParseRange("==1.0.0"))}, depInc, depInc)

	report := (&ChainReporter{}).Report(diamond)
	assert.Equal(t,
		"A 1.0.0 depends on B >=2.0.0\nAnd because A ==1.0.0 is forbidden",
		report)
}

func TestNoSolutionErrorReporterSelection(t *testing.T) {
	terminal := failureChain()
	err := NewNoSolutionError(terminal)

	tree := err.Error()
	chain := err.WithReporter(&ChainReporter{}).Error()

	assert.Contains(t, tree, "Because A 1.0.0 depends on B >=2.0.0")
	assert.Contains(t, chain, "And because")
	assert.NotEqual(t, tree, chain)

	assert.Equal(t, "no solution found", (&NoSolutionError{}).Error())
}
