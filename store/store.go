// Package store provides the process-wide, in-memory collection of
// databases and targets that the VWS, VWQ and admin HTTP surfaces all
// operate against. State is deliberately not persisted: the mock loses
// everything at shutdown.
package store

import (
	"fmt"
	"sync"
	"time"

	"github.com/jmhodges/clock"

	"github.com/mockrecon/mockrecon/core"
	merrors "github.com/mockrecon/mockrecon/errors"
	"github.com/mockrecon/mockrecon/imgutil"
)

// entry pairs a Database with the lock that serializes the critical
// section "resolve database -> validate name collision -> mutate ->
// respond". Snapshot reads take the same exclusive lock, since they
// resolve pending ratings in place, so reads of one database do not run
// concurrently with each other.
type entry struct {
	mu sync.RWMutex
	db *core.Database
}

// Store is the process-wide set of databases. It is safe for
// concurrent use by many goroutines.
type Store struct {
	clk clock.Clock
	rat core.Rater

	mu      sync.RWMutex // guards the entries map itself (add/remove/reset)
	entries map[string]*entry
}

// New returns an empty Store. rater is invoked at most once per image
// per processing cycle to assign a target's tracking rating.
func New(clk clock.Clock, rater core.Rater) *Store {
	return &Store{
		clk:     clk,
		rat:     rater,
		entries: make(map[string]*entry),
	}
}

// Reset clears every database from the store. It is exposed over the
// administrative /reset endpoint.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]*entry)
}

// CreateDatabase registers a new database. The four credentials must be
// unique across every database already in the store.
func (s *Store) CreateDatabase(db *core.Database) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[db.Name]; exists {
		return fmt.Errorf("database %q already exists", db.Name)
	}
	for _, e := range s.entries {
		if e.db.ServerAccessKey == db.ServerAccessKey ||
			e.db.ServerSecretKey == db.ServerSecretKey ||
			e.db.ClientAccessKey == db.ClientAccessKey ||
			e.db.ClientSecretKey == db.ClientSecretKey {
			return fmt.Errorf("credentials for database %q collide with %q", db.Name, e.db.Name)
		}
	}
	if db.State == "" {
		db.State = core.ProjectStateWorking
	}
	if db.ProcessingTimeSeconds == 0 {
		db.ProcessingTimeSeconds = core.DefaultProcessingTimeSeconds
	}
	s.entries[db.Name] = &entry{db: db}
	return nil
}

// Databases returns a snapshot of every database known to the store,
// with every target's derived rating resolved as of now. The returned
// Database values are copies; mutating them does not affect the store.
func (s *Store) Databases(now time.Time) []*core.Database {
	s.mu.RLock()
	names := make([]string, 0, len(s.entries))
	ents := make([]*entry, 0, len(s.entries))
	for name, e := range s.entries {
		names = append(names, name)
		ents = append(ents, e)
	}
	s.mu.RUnlock()

	out := make([]*core.Database, 0, len(ents))
	for i, e := range ents {
		e.mu.Lock()
		s.resolveAll(e.db, now)
		cp := *e.db
		cp.Name = names[i]
		targets := make([]*core.Target, len(e.db.Targets))
		for j, t := range e.db.Targets {
			tc := *t
			targets[j] = &tc
		}
		cp.Targets = targets
		e.mu.Unlock()
		out = append(out, &cp)
	}
	return out
}

// DatabaseByName returns a snapshot of the named database, or nil.
func (s *Store) DatabaseByName(name string) *core.Database {
	s.mu.RLock()
	e, ok := s.entries[name]
	s.mu.RUnlock()
	if !ok {
		return nil
	}
	now := s.clk.Now()
	e.mu.Lock()
	defer e.mu.Unlock()
	s.resolveAll(e.db, now)
	cp := *e.db
	targets := make([]*core.Target, len(e.db.Targets))
	for j, t := range e.db.Targets {
		tc := *t
		targets[j] = &tc
	}
	cp.Targets = targets
	return &cp
}

// CreateTarget appends a new target to the named database. Callers must
// have already assigned t.ID, t.CreatedAt and t.LastModified.
func (s *Store) CreateTarget(databaseName string, t *core.Target) error {
	e, err := s.lockedEntry(databaseName)
	if err != nil {
		return err
	}
	defer e.mu.Unlock()

	if e.db.FindByName(t.Name) != nil {
		return core.ErrNameExists
	}
	e.db.Targets = append(e.db.Targets, t)
	return nil
}

// DeleteTarget sets delete_date on the named target to now. The target
// remains present (and match-eligible, subject to the query engine's
// windows) until it is pruned by a later Reset or restart — the delete
// marker, once set, is never cleared.
func (s *Store) DeleteTarget(databaseName, targetID string, now time.Time) (*core.Target, error) {
	e, err := s.lockedEntry(databaseName)
	if err != nil {
		return nil, err
	}
	defer e.mu.Unlock()

	t := e.db.FindByID(targetID)
	if t == nil || t.ManagementDeleted() {
		return nil, core.ErrTargetNotFound
	}
	s.resolveOne(t, now)
	deletedAt := now
	t.DeletedAt = &deletedAt
	cp := *t
	return &cp, nil
}

// UpdateTarget runs mutate against a copy of the target under the
// database's write lock and commits the copy only if its name does not
// collide with a sibling's, then re-derives any rating needed by the
// resulting state. mutate is responsible for enforcing
// field-level invariants (name collisions are checked here, since they
// require visibility into sibling targets).
func (s *Store) UpdateTarget(databaseName, targetID string, now time.Time, mutate func(*core.Target) error) (*core.Target, error) {
	e, err := s.lockedEntry(databaseName)
	if err != nil {
		return nil, err
	}
	defer e.mu.Unlock()

	t := e.db.FindByID(targetID)
	if t == nil || t.ManagementDeleted() {
		return nil, core.ErrTargetNotFound
	}
	s.resolveOne(t, now)
	if t.Status(now) == core.StatusProcessing {
		return nil, core.ErrTargetProcessing
	}

	before := string(t.Image)
	updated := *t
	if err := mutate(&updated); err != nil {
		return nil, err
	}
	if updated.Name != "" {
		for _, other := range e.db.Targets {
			if other != t && other.Name == updated.Name {
				return nil, core.ErrNameExists
			}
		}
	}
	if string(updated.Image) != before {
		updated.LastModified = now
		updated.ResetResolution()
	}
	*t = updated
	cp := *t
	return &cp, nil
}

// lockedEntry resolves a database by name and returns it with its write
// lock already held; callers must unlock it.
func (s *Store) lockedEntry(databaseName string) (*entry, error) {
	s.mu.RLock()
	e, ok := s.entries[databaseName]
	s.mu.RUnlock()
	if !ok {
		return nil, merrors.StoreCorruptionError("unknown database %q", databaseName)
	}
	e.mu.Lock()
	return e, nil
}

// resolveAll lazily computes the rating/decodability of every target in
// db whose processing window has just elapsed. The rater runs at most
// once per image per processing cycle.
func (s *Store) resolveAll(db *core.Database, now time.Time) {
	for _, t := range db.Targets {
		s.resolveOne(t, now)
	}
}

func (s *Store) resolveOne(t *core.Target, now time.Time) {
	if t.Resolved() {
		return
	}
	elapsed := now.Sub(t.LastModified) >= time.Duration(t.ProcessingTimeSeconds*float64(time.Second))
	if !elapsed {
		return
	}
	decodable := imgutil.Decodable(t.Image)
	t.SetDecodeResult(decodable)
	if decodable {
		rating := s.rat.Rate(t.Image)
		if rating < 0 {
			rating = 0
		}
		t.RecoRating = rating
	} else {
		t.RecoRating = -1
	}
}
