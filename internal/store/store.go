// Package store holds the authoritative, ordered list of scene records, the
// current selection and the most recently created record.
//
// A Store is owned explicitly by its caller; there is no package-level
// instance. All methods are safe for concurrent use. Observers registered
// with Subscribe run after each effective change, outside the lock.
package store

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/roach88/planetarium/internal/generate"
	"github.com/roach88/planetarium/internal/metrics"
	"github.com/roach88/planetarium/internal/sanitize"
	"github.com/roach88/planetarium/internal/scene"
)

// DefaultMax is the record bound used when none is configured.
const DefaultMax = 24

// MaxIDAttempts bounds how many identifiers AddRandom draws before giving up
// on finding one that is not already in use.
const MaxIDAttempts = 8

var (
	// ErrUnknownInstance is returned when an id names no record.
	ErrUnknownInstance = errors.New("unknown instance")
	// ErrIDCollision is returned when every drawn identifier was taken.
	ErrIDCollision = errors.New("identifier collision")
)

// Snapshot is an immutable copy of the store state.
type Snapshot struct {
	Instances     []scene.Instance
	SelectedID    string // empty when nothing is selected
	LastCreatedID string // empty when absent
}

// Listener observes effective changes.
type Listener func(Snapshot)

// Store is the scene's instance list.
type Store struct {
	mu            sync.Mutex
	variant       scene.Variant
	gen           *generate.Generator
	max           int
	metrics       *metrics.Metrics
	instances     []scene.Instance
	selectedID    string
	lastCreatedID string

	listenerMu sync.Mutex
	listeners  map[int]Listener
	nextID     int
}

// Option configures a Store.
type Option func(*Store)

// WithMax sets the maximum number of records. Values below 1 are ignored.
func WithMax(n int) Option {
	return func(s *Store) {
		if n >= 1 {
			s.max = n
		}
	}
}

// WithMetrics records mutations into m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Store) { s.metrics = m }
}

// New creates a store for gen's variant, initialized to the variant's seed.
func New(gen *generate.Generator, opts ...Option) *Store {
	s := &Store{
		variant:   gen.Variant(),
		gen:       gen,
		max:       DefaultMax,
		listeners: make(map[int]Listener),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.instances = s.variant.Seed()
	s.metrics.Size(len(s.instances))
	return s
}

// Variant returns the store's variant.
func (s *Store) Variant() scene.Variant { return s.variant }

// Max returns the record bound.
func (s *Store) Max() int { return s.max }

// Len returns the number of records.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.instances)
}

// AddRandom generates a record at insertion index len(instances), prepends
// it, and evicts from the tail so at most Max records remain.
func (s *Store) AddRandom() (scene.Instance, error) {
	s.mu.Lock()
	inst := s.gen.Next(len(s.instances))
	for attempt := 1; s.indexOf(inst.ID) >= 0; attempt++ {
		if attempt >= MaxIDAttempts {
			s.mu.Unlock()
			return scene.Instance{}, fmt.Errorf("add instance: %w after %d attempts", ErrIDCollision, attempt)
		}
		slog.Debug("identifier collision, drawing another", "id", inst.ID, "attempt", attempt)
		inst.ID = s.gen.NewID()
	}

	next := make([]scene.Instance, 0, min(len(s.instances)+1, s.max))
	next = append(next, inst)
	for _, existing := range s.instances {
		if len(next) == s.max {
			break
		}
		next = append(next, existing)
	}
	if evicted := len(s.instances) + 1 - len(next); evicted > 0 {
		slog.Debug("evicted oldest records", "count", evicted, "max", s.max)
	}
	s.instances = next
	s.lastCreatedID = inst.ID
	if s.selectedID != "" && s.indexOf(s.selectedID) < 0 {
		s.selectedID = ""
	}
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.metrics.Mutation("add", len(snap.Instances))
	s.notify(snap)
	return inst, nil
}

// Clear resets the list to the variant's baseline and drops the selection
// and the last-created marker.
func (s *Store) Clear() {
	s.mu.Lock()
	s.instances = s.variant.Seed()
	s.selectedID = ""
	s.lastCreatedID = ""
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.metrics.Mutation("clear", len(snap.Instances))
	s.notify(snap)
}

// Select makes id the selection. Selecting the current selection, or an id
// that names no record, changes nothing. An empty id clears the selection.
// It reports whether the state changed.
func (s *Store) Select(id string) bool {
	s.mu.Lock()
	if id == s.selectedID || (id != "" && s.indexOf(id) < 0) {
		s.mu.Unlock()
		return false
	}
	s.selectedID = id
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.metrics.Mutation("select", len(snap.Instances))
	s.notify(snap)
	return true
}

// ClearSelection is Select("").
func (s *Store) ClearSelection() bool { return s.Select("") }

// Remove drops the record with the given id.
func (s *Store) Remove(id string) error {
	s.mu.Lock()
	idx := s.indexOf(id)
	if idx < 0 {
		s.mu.Unlock()
		return fmt.Errorf("remove %q: %w", id, ErrUnknownInstance)
	}
	next := make([]scene.Instance, 0, len(s.instances)-1)
	next = append(next, s.instances[:idx]...)
	next = append(next, s.instances[idx+1:]...)
	s.instances = next
	if s.selectedID == id {
		s.selectedID = ""
	}
	if s.lastCreatedID == id {
		s.lastCreatedID = ""
	}
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.metrics.Mutation("remove", len(snap.Instances))
	s.notify(snap)
	return nil
}

// Hydrate merges a sanitized persisted state. Non-empty sanitized records
// replace the in-memory list; otherwise the current list is kept. The
// selection is taken from res only if it names a kept record. The
// last-created marker is always reset.
func (s *Store) Hydrate(res sanitize.Result) {
	s.mu.Lock()
	if len(res.Instances) > 0 {
		kept := res.Instances
		if len(kept) > s.max {
			kept = kept[:s.max]
		}
		s.instances = append([]scene.Instance(nil), kept...)
	}
	s.selectedID = ""
	if res.SelectedID != "" && s.indexOf(res.SelectedID) >= 0 {
		s.selectedID = res.SelectedID
	}
	s.lastCreatedID = ""
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.metrics.Mutation("hydrate", len(snap.Instances))
	s.notify(snap)
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Persisted returns the document written to storage. The last-created
// marker is session-only and not included.
func (s *Store) Persisted() scene.Document {
	snap := s.Snapshot()
	return scene.Document{Instances: snap.Instances, SelectedID: snap.SelectedID}
}

// Find returns the record with the given id.
func (s *Store) Find(id string) (scene.Instance, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if idx := s.indexOf(id); idx >= 0 {
		return s.instances[idx], true
	}
	return scene.Instance{}, false
}

// Subscribe registers fn and returns a function that unregisters it.
func (s *Store) Subscribe(fn Listener) (cancel func()) {
	s.listenerMu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.listenerMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.listenerMu.Lock()
			delete(s.listeners, id)
			s.listenerMu.Unlock()
		})
	}
}

func (s *Store) notify(snap Snapshot) {
	s.listenerMu.Lock()
	fns := make([]Listener, 0, len(s.listeners))
	for i := 0; i < s.nextID; i++ {
		if fn, ok := s.listeners[i]; ok {
			fns = append(fns, fn)
		}
	}
	s.listenerMu.Unlock()

	for _, fn := range fns {
		fn(snap)
	}
}

func (s *Store) snapshotLocked() Snapshot {
	return Snapshot{
		Instances:     append([]scene.Instance(nil), s.instances...),
		SelectedID:    s.selectedID,
		LastCreatedID: s.lastCreatedID,
	}
}

func (s *Store) indexOf(id string) int {
	for i, inst := range s.instances {
		if inst.ID == id {
			return i
		}
	}
	return -1
}
