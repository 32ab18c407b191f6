package store

import (
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store is the process-wide table of named, ordered collections.
//
// The zero value is not usable; create one with [New].
type Store struct {
	mu          sync.RWMutex
	collections map[string][]Record
	observers   []Observer

	now   func() time.Time
	newID func() string
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the clock used for created_at/updated_at.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator overrides the identifier generator used by inserts.
func WithIDGenerator(gen func() string) Option {
	return func(s *Store) { s.newID = gen }
}

// New returns an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		collections: make(map[string][]Record),
		now:         time.Now,
		newID:       uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns a deep copy of the named collection in insertion order.
//
// Unknown names yield an empty slice; they are not created.
func (s *Store) Get(name string) []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneRows(s.collections[name])
}

// Len returns the number of rows in the named collection.
func (s *Store) Len(name string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.collections[name])
}

// Names returns the sorted collection names.
func (s *Store) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.collections))
	for name := range s.collections {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Replace overwrites the named collection with rows and notifies observers.
func (s *Store) Replace(name string, rows []Record) {
	_ = s.Modify(name, func([]Record) ([]Record, error) {
		return rows, nil
	})
}

// Modify runs a read-modify-write cycle on the named collection while holding
// the write lock.
//
// fn receives a private copy of the current rows and returns the new contents.
// If fn returns an error the collection is left untouched. A collection that
// does not exist yet is created when fn returns a non-empty result.
func (s *Store) Modify(name string, fn func(rows []Record) ([]Record, error)) error {
	changes, observers, err := s.modifyLocked(name, fn)
	if err != nil {
		return err
	}
	for i := range changes {
		for _, o := range observers {
			changes[i].notify(o)
		}
	}
	return nil
}

func (s *Store) modifyLocked(name string, fn func(rows []Record) ([]Record, error)) ([]change, []Observer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	before, existed := s.collections[name]
	next, err := fn(cloneRows(before))
	if err != nil {
		return nil, nil, err
	}
	normalized := make([]Record, len(next))
	for i, r := range next {
		normalized[i] = NormalizeRecord(r)
	}
	if existed || len(normalized) > 0 {
		s.collections[name] = normalized
	}
	if len(s.observers) == 0 {
		return nil, nil, nil
	}
	return diff(name, before, normalized), slices.Clone(s.observers), nil
}

// Seed merges fixture collections into the store, replacing collections of the
// same name. Observers are not notified.
func (s *Store) Seed(f *Fixtures) {
	if f == nil {
		return
	}
	seeded := normalizeFixtures(f)
	s.mu.Lock()
	defer s.mu.Unlock()
	maps.Copy(s.collections, seeded)
	slog.Debug("store seeded", "collections", len(seeded))
}

// Reset drops every collection and seeds the store from f in one step.
//
// Readers see either the old contents or the new ones, never a mix.
func (s *Store) Reset(f *Fixtures) {
	seeded := normalizeFixtures(f)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.collections = seeded
	slog.Debug("store reset", "collections", len(seeded))
}

func normalizeFixtures(f *Fixtures) map[string][]Record {
	out := make(map[string][]Record)
	if f == nil {
		return out
	}
	for name, rows := range f.Collections {
		normalized := make([]Record, len(rows))
		for i, r := range rows {
			normalized[i] = NormalizeRecord(r)
		}
		out[name] = normalized
	}
	return out
}

// AddObserver registers o for mutation notifications.
func (s *Store) AddObserver(o Observer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, o)
}

// Now returns the current store time formatted with TimeLayout.
func (s *Store) Now() string {
	return s.now().UTC().Format(TimeLayout)
}

// NewID returns an identifier for which taken reports false.
//
// It panics if the generator keeps returning taken identifiers, which only
// happens with a broken custom generator.
func (s *Store) NewID(taken func(id string) bool) string {
	for range 1000 {
		id := s.newID()
		if id != "" && (taken == nil || !taken(id)) {
			return id
		}
	}
	panic("store: id generator failed to produce a fresh id")
}

func cloneRows(rows []Record) []Record {
	out := make([]Record, len(rows))
	for i, r := range rows {
		out[i] = r.Clone()
	}
	return out
}
