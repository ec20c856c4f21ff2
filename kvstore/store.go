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

// Package kvstore provides a BadgerDB-backed crux.Provider.
//
// Candidate metadata is stored one record per (subject, value) under keys
// shaped as "s/<kind>/<name>/<value>", so candidate lookup for one subject
// is a single prefix scan. Records hold the declared requirements as YAML.
//
// Subject names must not contain '/'.
package kvstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"gopkg.in/yaml.v3"

	"github.com/toolchainlabs/crux"
)

// Config holds configuration for a Store.
type Config struct {
	// Path is the directory for database files. Required unless InMemory.
	Path string

	// InMemory keeps everything in RAM, for tests and one-shot runs.
	InMemory bool

	// SyncWrites makes every write durable before returning. Slower;
	// worth it for long-lived indexes.
	SyncWrites bool

	// Logger receives store and BadgerDB diagnostics. Nil disables both.
	Logger *slog.Logger
}

// DefaultConfig returns a durable on-disk configuration rooted at path.
func DefaultConfig(path string) Config {
	return Config{Path: path, SyncWrites: true}
}

// InMemoryConfig returns a configuration suitable for tests: in-memory,
// no sync, no logging.
func InMemoryConfig() Config {
	return Config{InMemory: true}
}

// Store is a crux.Provider backed by BadgerDB. It is safe for concurrent
// use; multiple resolvers may share one Store.
type Store struct {
	db     *badger.DB
	logger *slog.Logger
}

// badgerLogger adapts slog.Logger to BadgerDB's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...any)   { l.logger.Error(fmt.Sprintf(format, args...)) }
func (l *badgerLogger) Warningf(format string, args ...any) { l.logger.Warn(fmt.Sprintf(format, args...)) }
func (l *badgerLogger) Infof(format string, args ...any)    { l.logger.Info(fmt.Sprintf(format, args...)) }
func (l *badgerLogger) Debugf(format string, args ...any)   { l.logger.Debug(fmt.Sprintf(format, args...)) }

// Open opens or creates a store.
func Open(cfg Config) (*Store, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("kvstore: path is required for a persistent store")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0o750); err != nil {
			return nil, fmt.Errorf("kvstore: create directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites)

	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("kvstore: open database: %w", err)
	}

	return &Store{db: db, logger: cfg.Logger}, nil
}

// Close flushes and closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// record is the stored YAML shape of one candidate's metadata.
type record struct {
	Requirements []requirementRecord `yaml:"requirements,omitempty"`
}

// requirementRecord is one dependency term in storage form. Range uses the
// crux.ParseRange syntax; Exclude marks a negative term.
type requirementRecord struct {
	Kind    string `yaml:"kind"`
	Name    string `yaml:"name"`
	Range   string `yaml:"range"`
	Exclude bool   `yaml:"exclude,omitempty"`
}

func keyFor(subject crux.Subject, value crux.Value) []byte {
	return []byte("s/" + subject.Kind() + "/" + subject.Name() + "/" + value.String())
}

func prefixFor(subject crux.Subject) []byte {
	return []byte("s/" + subject.Kind() + "/" + subject.Name() + "/")
}

// Ingest stores one candidate value and its declared requirements,
// overwriting any existing record for the same subject and value.
func (s *Store) Ingest(ctx context.Context, subject crux.Subject, value crux.Value, requirements []crux.Term) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.Contains(subject.Name(), "/") {
		return fmt.Errorf("kvstore: subject name %q contains '/'", subject.Name())
	}

	rec := record{}
	for _, req := range requirements {
		rr, err := encodeRequirement(req)
		if err != nil {
			return err
		}
		rec.Requirements = append(rec.Requirements, rr)
	}

	payload, err := yaml.Marshal(&rec)
	if err != nil {
		return fmt.Errorf("kvstore: encode record: %w", err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(keyFor(subject, value), payload)
	})
	if err != nil {
		return fmt.Errorf("kvstore: write %s %s: %w", subject.Name(), value, err)
	}

	if s.logger != nil {
		s.logger.Debug("ingested candidate",
			"kind", subject.Kind(),
			"subject", subject.Name(),
			"value", value.String(),
			"requirements", len(rec.Requirements),
		)
	}
	return nil
}

func encodeRequirement(req crux.Term) (requirementRecord, error) {
	set := req.Set
	if set == nil {
		set = crux.FullSet()
	}
	if set.IsEmpty() {
		return requirementRecord{}, fmt.Errorf("kvstore: requirement on %s has an empty range", req.Subject.Name())
	}

	return requirementRecord{
		Kind:    req.Subject.Kind(),
		Name:    req.Subject.Name(),
		Range:   set.String(),
		Exclude: req.IsNegative(),
	}, nil
}

func decodeRequirement(rr requirementRecord) (crux.Term, error) {
	subject, err := crux.SubjectOf(rr.Kind, rr.Name)
	if err != nil {
		return crux.Term{}, fmt.Errorf("kvstore: decode requirement: %w", err)
	}
	set, err := crux.ParseRange(rr.Range)
	if err != nil {
		return crux.Term{}, fmt.Errorf("kvstore: decode range %q for %s: %w", rr.Range, rr.Name, err)
	}
	if rr.Exclude {
		return crux.NewNegativeTerm(subject, set), nil
	}
	return crux.NewTerm(subject, set), nil
}

// parseValue rebuilds the Value stored in a key's trailing segment.
func parseValue(raw string) crux.Value {
	if sv, err := crux.ParseSemanticVersion(raw); err == nil {
		return sv
	}
	return crux.StringValue(raw)
}

// Candidates satisfies crux.Provider. One prefix scan over the subject's
// keyspace; results are filtered by the constraint and returned highest
// first.
func (s *Store) Candidates(ctx context.Context, subject crux.Subject, constraint crux.Term) ([]crux.Value, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	allowed := termAllowed(constraint)
	prefix := prefixFor(subject)
	var values []crux.Value

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchValues = false

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.ValidForPrefix(prefix); it.Next() {
			raw := string(it.Item().Key())[len(prefix):]
			value := parseValue(raw)
			if allowed.Contains(value) {
				values = append(values, value)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("kvstore: scan %s: %w", subject.Name(), err)
	}

	slices.SortFunc(values, func(a, b crux.Value) int {
		return b.Sort(a)
	})
	return values, nil
}

// Requirements satisfies crux.Provider.
func (s *Store) Requirements(ctx context.Context, subject crux.Subject, value crux.Value) ([]crux.Term, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var payload []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(keyFor(subject, value))
		if err != nil {
			return err
		}
		payload, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, &crux.NotFoundError{Subject: subject, Value: value}
	}
	if err != nil {
		return nil, fmt.Errorf("kvstore: read %s %s: %w", subject.Name(), value, err)
	}

	var rec record
	if err := yaml.Unmarshal(payload, &rec); err != nil {
		return nil, fmt.Errorf("kvstore: decode record for %s %s: %w", subject.Name(), value, err)
	}

	terms := make([]crux.Term, 0, len(rec.Requirements))
	for _, rr := range rec.Requirements {
		term, err := decodeRequirement(rr)
		if err != nil {
			return nil, err
		}
		terms = append(terms, term)
	}
	return terms, nil
}

// Entry is one stored candidate, returned by List.
type Entry struct {
	Subject crux.Subject
	Value   crux.Value
}

// List enumerates every stored candidate, in key order. Intended for
// diagnostics and CLI listings, not for the resolver's hot path.
func (s *Store) List(ctx context.Context) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var entries []Entry
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte("s/")
		opts.PrefetchValues = false

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.ValidForPrefix(opts.Prefix); it.Next() {
			parts := strings.SplitN(string(it.Item().Key()), "/", 4)
			if len(parts) != 4 {
				continue
			}
			subject, err := crux.SubjectOf(parts[1], parts[2])
			if err != nil {
				continue
			}
			entries = append(entries, Entry{Subject: subject, Value: parseValue(parts[3])})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("kvstore: list: %w", err)
	}
	return entries, nil
}

// termAllowed computes the values consistent with a term: its set for
// positive terms, the complement for negative ones.
func termAllowed(t crux.Term) crux.ValueSet {
	set := t.Set
	if set == nil {
		set = crux.FullSet()
	}
	if t.IsNegative() {
		return set.Complement()
	}
	return set
}

var _ crux.Provider = (*Store)(nil)
