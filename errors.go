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
	"errors"
	"fmt"
)

// ErrBudgetExceeded is returned by Result.Err when a run ended with
// OutcomeTimedOut. The run itself is not an error; this exists for
// callers that funnel every non-success through error handling.
var ErrBudgetExceeded = errors.New("resolution budget exceeded")

// NoSolutionError carries a proven-unsatisfiable outcome in error form.
// Result.Err returns it so callers that prefer error plumbing over
// inspecting Result still get the full explanation.
type NoSolutionError struct {
	// Incompatibility is the terminal incompatibility; its cause chain is
	// the explanation.
	Incompatibility *Incompatibility
	// Reporter formats the message (defaults to TreeReporter).
	Reporter Reporter
}

// Error implements the error interface.
func (e *NoSolutionError) Error() string {
	if e.Incompatibility == nil {
		return "no solution found"
	}

	reporter := e.Reporter
	if reporter == nil {
		reporter = &TreeReporter{}
	}

	return reporter.Report(e.Incompatibility)
}

// WithReporter returns a copy of the error using a custom reporter.
func (e *NoSolutionError) WithReporter(reporter Reporter) *NoSolutionError {
	return &NoSolutionError{
		Incompatibility: e.Incompatibility,
		Reporter:        reporter,
	}
}

// NewNoSolutionError creates a NoSolutionError from an incompatibility.
func NewNoSolutionError(inc *Incompatibility) *NoSolutionError {
	return &NoSolutionError{
		Incompatibility: inc,
		Reporter:        &TreeReporter{},
	}
}

// RequestError rejects a malformed root request before solving starts:
// an empty acceptable set, a negative requirement, a missing subject.
type RequestError struct {
	Subject Subject
	Message string
}

// Error implements the error interface.
func (e *RequestError) Error() string {
	if e.Subject != nil {
		return fmt.Sprintf("invalid request for %s: %s", subjectLabel(e.Subject), e.Message)
	}
	return fmt.Sprintf("invalid request: %s", e.Message)
}

// ProviderError wraps an I/O or storage failure while fetching candidate
// metadata. It aborts the run immediately and is never converted into a
// conflict.
type ProviderError struct {
	Subject Subject
	Value   Value
	Err     error
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	if e.Value != nil {
		return fmt.Sprintf("provider failed for %s %s: %v", subjectLabel(e.Subject), e.Value, e.Err)
	}
	return fmt.Sprintf("provider failed for %s: %v", subjectLabel(e.Subject), e.Err)
}

// Unwrap returns the underlying error.
func (e *ProviderError) Unwrap() error {
	return e.Err
}

// NotFoundError indicates that a subject or a specific value is absent
// from a provider. A nil Value means the subject itself is unknown.
// CombinedProvider uses it to fall through to the next provider.
type NotFoundError struct {
	Subject Subject
	Value   Value
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	if e.Value != nil {
		return fmt.Sprintf("%s %s not found", subjectLabel(e.Subject), e.Value)
	}
	return fmt.Sprintf("%s not found", subjectLabel(e.Subject))
}

// InternalError marks a broken solver invariant (duplicate subject inside
// an incompatibility, a derivation without a cause, a negative decision
// level). These are programming errors and abort the run loudly.
type InternalError struct {
	Message string
}

// Error implements the error interface.
func (e *InternalError) Error() string {
	return "internal resolver error: " + e.Message
}

var (
	_ error = (*NoSolutionError)(nil)
	_ error = (*RequestError)(nil)
	_ error = (*ProviderError)(nil)
	_ error = (*NotFoundError)(nil)
	_ error = (*InternalError)(nil)
)
