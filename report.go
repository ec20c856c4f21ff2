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
	"strings"
)

// Reporter formats a terminal incompatibility and its cause chain into a
// human-readable explanation of why resolution failed.
type Reporter interface {
	Report(inc *Incompatibility) string
}

// TreeReporter renders the cause DAG as an indented tree, one derivation
// per level. It is the default reporter used by NoSolutionError.
type TreeReporter struct{}

// Report implements Reporter.
func (r *TreeReporter) Report(inc *Incompatibility) string {
	if inc == nil {
		return "no solution found"
	}

	var lines []string
	r.explain(inc, &lines, 0, make(map[*Incompatibility]bool))
	return strings.Join(lines, "\n")
}

func (r *TreeReporter) explain(inc *Incompatibility, lines *[]string, depth int, visited map[*Incompatibility]bool) {
	if visited[inc] {
		return
	}
	visited[inc] = true

	indent := strings.Repeat("  ", depth)

	switch inc.Kind {
	case CauseRoot:
		if dep, ok := inc.dependencyTerm(); ok {
			*lines = append(*lines, fmt.Sprintf("%sBecause %s requires %s", indent, Root().Name(), dep))
		}

	case CauseNoCandidates:
		if len(inc.Terms) > 0 {
			*lines = append(*lines, fmt.Sprintf("%sNo candidates satisfy %s", indent, inc.Terms[0]))
		}

	case CauseDependency:
		if dep, ok := inc.dependencyTerm(); ok {
			*lines = append(*lines, fmt.Sprintf("%sBecause %s %s depends on %s",
				indent, subjectLabel(inc.Subject), inc.Value, dep))
		}

	case CauseConflict:
		if inc.Left != nil && inc.Right != nil {
			*lines = append(*lines, indent+"Because:")
			r.explain(inc.Left, lines, depth+1, visited)
			*lines = append(*lines, indent+"and:")
			r.explain(inc.Right, lines, depth+1, visited)

			switch {
			case len(inc.Terms) == 0 || inc.IsFailure():
				*lines = append(*lines, indent+"version solving has failed.")
			case len(inc.Terms) == 1:
				*lines = append(*lines, fmt.Sprintf("%s%s is forbidden.", indent, inc.Terms[0]))
			default:
				*lines = append(*lines, fmt.Sprintf("%sthese constraints conflict: %s",
					indent, joinTerms(inc.Terms)))
			}
		}

	default:
		*lines = append(*lines, indent+inc.String())
	}
}

// ChainReporter renders the cause DAG as a flat "And because" chain, in
// derivation order. More compact than TreeReporter for deep conflicts.
type ChainReporter struct{}

// Report implements Reporter.
func (r *ChainReporter) Report(inc *Incompatibility) string {
	if inc == nil {
		return "no solution found"
	}

	var lines []string
	r.collect(inc, &lines, make(map[*Incompatibility]bool))

	if len(lines) == 0 {
		return "version solving failed"
	}

	result := lines[0]
	for i := 1; i < len(lines); i++ {
		result += "\nAnd because " + lines[i]
	}
	return result
}

func (r *ChainReporter) collect(inc *Incompatibility, lines *[]string, visited map[*Incompatibility]bool) {
	if visited[inc] {
		return
	}
	visited[inc] = true

	switch inc.Kind {
	case CauseRoot:
		if dep, ok := inc.dependencyTerm(); ok {
			*lines = append(*lines, fmt.Sprintf("%s requires %s", Root().Name(), dep))
		}

	case CauseNoCandidates:
		if len(inc.Terms) > 0 {
			*lines = append(*lines, fmt.Sprintf("no candidates satisfy %s", inc.Terms[0]))
		}

	case CauseDependency:
		if dep, ok := inc.dependencyTerm(); ok {
			*lines = append(*lines, fmt.Sprintf("%s %s depends on %s",
				subjectLabel(inc.Subject), inc.Value, dep))
		}

	case CauseConflict:
		if inc.Left != nil && inc.Right != nil {
			r.collect(inc.Left, lines, visited)
			r.collect(inc.Right, lines, visited)

			switch {
			case inc.IsFailure():
				// Terminal node; the collected chain already explains it.
			case len(inc.Terms) == 1:
				*lines = append(*lines, fmt.Sprintf("%s is forbidden", inc.Terms[0]))
			case len(inc.Terms) > 1:
				*lines = append(*lines, "these constraints conflict: "+joinTerms(inc.Terms))
			}
		}

	default:
		*lines = append(*lines, inc.String())
	}
}

func joinTerms(terms []Term) string {
	parts := make([]string, len(terms))
	for i, term := range terms {
		parts[i] = term.String()
	}
	return strings.Join(parts, " and ")
}

var (
	_ Reporter = (*TreeReporter)(nil)
	_ Reporter = (*ChainReporter)(nil)
)
