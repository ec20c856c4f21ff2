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

// Package scenario loads resolution scenarios from YAML: a set of root
// requirements plus the candidate universe they resolve against.
//
// Example document:
//
//	name: diamond
//	requirements:
//	  - name: app
//	    range: "*"
//	universe:
//	  - name: app
//	    versions:
//	      - version: 1.0.0
//	        requirements:
//	          - name: lib
//	            range: ">=2.0.0"
//	  - name: lib
//	    versions:
//	      - version: 2.3.0
package scenario

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/toolchainlabs/crux"
)

// Document is the parsed form of one scenario file.
type Document struct {
	Name         string        `yaml:"name"`
	Requirements []Requirement `yaml:"requirements"`
	Universe     []Candidate   `yaml:"universe"`
}

// Requirement is one constraint in YAML form. Kind defaults to "package".
type Requirement struct {
	Kind    string `yaml:"kind,omitempty"`
	Name    string `yaml:"name"`
	Range   string `yaml:"range,omitempty"`
	Exclude bool   `yaml:"exclude,omitempty"`
}

// Candidate describes every version of one subject in the universe.
type Candidate struct {
	Kind     string    `yaml:"kind,omitempty"`
	Name     string    `yaml:"name"`
	Versions []Version `yaml:"versions"`
}

// Version is one concrete value and the requirements choosing it imposes.
type Version struct {
	Version      string        `yaml:"version"`
	Requirements []Requirement `yaml:"requirements,omitempty"`
}

// Load reads and parses a scenario file.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("scenario: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse parses scenario YAML.
func Parse(data []byte) (*Document, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("scenario: parse: %w", err)
	}
	for i, req := range doc.Requirements {
		if req.Name == "" {
			return nil, fmt.Errorf("scenario: requirement %d has no name", i)
		}
	}
	for _, cand := range doc.Universe {
		if cand.Name == "" {
			return nil, fmt.Errorf("scenario: universe entry has no name")
		}
		for _, v := range cand.Versions {
			if v.Version == "" {
				return nil, fmt.Errorf("scenario: %s has a version entry with no version", cand.Name)
			}
		}
	}
	return &doc, nil
}

// Terms converts the document's root requirements into resolver terms.
func (d *Document) Terms() ([]crux.Term, error) {
	terms := make([]crux.Term, 0, len(d.Requirements))
	for _, req := range d.Requirements {
		term, err := req.term()
		if err != nil {
			return nil, err
		}
		terms = append(terms, term)
	}
	return terms, nil
}

func (r Requirement) term() (crux.Term, error) {
	kind := r.Kind
	if kind == "" {
		kind = "package"
	}
	subject, err := crux.SubjectOf(kind, r.Name)
	if err != nil {
		return crux.Term{}, fmt.Errorf("scenario: %w", err)
	}
	set, err := crux.ParseRange(r.Range)
	if err != nil {
		return crux.Term{}, fmt.Errorf("scenario: range for %s: %w", r.Name, err)
	}
	if r.Exclude {
		return crux.NewNegativeTerm(subject, set), nil
	}
	return crux.NewTerm(subject, set), nil
}

// Provider builds an in-memory provider holding the document's universe.
func (d *Document) Provider() (*crux.InMemoryProvider, error) {
	provider := crux.NewInMemoryProvider()

	err := d.walk(func(subject crux.Subject, value crux.Value, reqs []crux.Term) error {
		provider.Add(subject, value, reqs...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return provider, nil
}

// Walk visits every candidate in the universe with its decoded subject,
// value and requirement terms. Used to ingest scenarios into stores.
func (d *Document) Walk(fn func(subject crux.Subject, value crux.Value, reqs []crux.Term) error) error {
	return d.walk(fn)
}

func (d *Document) walk(fn func(subject crux.Subject, value crux.Value, reqs []crux.Term) error) error {
	for _, cand := range d.Universe {
		kind := cand.Kind
		if kind == "" {
			kind = "package"
		}
		subject, err := crux.SubjectOf(kind, cand.Name)
		if err != nil {
			return fmt.Errorf("scenario: %w", err)
		}

		for _, v := range cand.Versions {
			value := parseValue(v.Version)
			reqs := make([]crux.Term, 0, len(v.Requirements))
			for _, req := range v.Requirements {
				term, err := req.term()
				if err != nil {
					return err
				}
				reqs = append(reqs, term)
			}
			if err := fn(subject, value, reqs); err != nil {
				return err
			}
		}
	}
	return nil
}

func parseValue(raw string) crux.Value {
	if sv, err := crux.ParseSemanticVersion(raw); err == nil {
		return sv
	}
	return crux.StringValue(raw)
}
