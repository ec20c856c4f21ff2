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

// Package crux implements conflict-driven dependency version resolution.
//
// Given a set of root requirements and a Provider that answers "which
// values exist for this subject" and "what does this value require", the
// resolver either finds one value per subject satisfying everything, or
// proves no selection can, with a human-readable explanation of why.
//
// The algorithm alternates unit propagation with decisions, and on
// conflict learns a new incompatibility and backtracks, in the manner of
// CDCL SAT solvers and the PubGrub version solver. Subjects are not
// limited to packages: platforms, ABI tags and interpreters resolve
// through the same machinery.
//
// Basic usage:
//
//	provider := crux.NewInMemoryProvider()
//	provider.Add(crux.Package("lodash"), crux.MustParseSemanticVersion("4.17.21"))
//
//	resolver := crux.NewResolver(provider)
//	result, err := resolver.Resolve(ctx, []crux.Term{
//		crux.NewTerm(crux.Package("lodash"), crux.MustParseRange(">=4.0.0")),
//	})
//	if err != nil {
//		// broken provider, malformed request, cancelled context
//	}
//	switch result.Outcome {
//	case crux.OutcomeSucceeded:
//		for sv := range result.Solution.All() { ... }
//	case crux.OutcomeFailed:
//		fmt.Println(result.Err()) // full conflict explanation
//	}
package crux
