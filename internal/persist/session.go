package persist

import (
	"context"
	"errors"
	"log/slog"

	"github.com/roach88/planetarium/internal/generate"
	"github.com/roach88/planetarium/internal/kv"
	"github.com/roach88/planetarium/internal/metrics"
	"github.com/roach88/planetarium/internal/scene"
	"github.com/roach88/planetarium/internal/store"
)

// SessionConfig wires a Session together.
type SessionConfig struct {
	Variant   scene.Variant
	Max       int
	Storage   kv.Storage
	Generator []generate.Option
	Metrics   *metrics.Metrics
	Logger    *slog.Logger
}

// Session owns a store and saves it after every mutation.
type Session struct {
	store     *store.Store
	storage   kv.Storage
	guard     *kv.Guard
	persister *Persister
	saver     *AsyncSaver
	logger    *slog.Logger
}

// Open builds the store, rehydrates it from storage and starts the saver.
// Variants that guard their storage get a kv.Guard around cfg.Storage.
func Open(ctx context.Context, cfg SessionConfig) (*Session, error) {
	if cfg.Storage == nil {
		return nil, errors.New("session storage is required")
	}
	if _, err := scene.ParseVariant(string(cfg.Variant)); err != nil {
		return nil, err
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Session{storage: cfg.Storage, logger: logger}
	storage := cfg.Storage
	if cfg.Variant.GuardsStorage() {
		s.guard = kv.NewGuard(storage, logger, func(error) { cfg.Metrics.StorageDisabled() })
		storage = s.guard
	}

	gen := generate.New(cfg.Variant, cfg.Generator...)
	s.store = store.New(gen, store.WithMax(cfg.Max), store.WithMetrics(cfg.Metrics))
	s.persister = NewPersister(storage, cfg.Variant, s.store.Max(), cfg.Metrics, logger)

	res := s.persister.Load(ctx)
	s.store.Hydrate(res)
	logger.Debug("session opened",
		"variant", cfg.Variant,
		"key", s.persister.Key(),
		"instances", s.store.Len(),
		"selected", res.SelectedID)

	s.saver = NewAsyncSaver(context.WithoutCancel(ctx), s.persister.Save)
	return s, nil
}

// Store exposes the underlying store for read access and subscriptions.
// Mutating it directly bypasses persistence.
func (s *Session) Store() *store.Store { return s.store }

// StorageDisabled reports whether a path fault has disabled storage.
func (s *Session) StorageDisabled() bool {
	return s.guard != nil && s.guard.Disabled()
}

// AddRandom adds one generated record and saves.
func (s *Session) AddRandom() (scene.Instance, error) {
	inst, err := s.store.AddRandom()
	if err != nil {
		return scene.Instance{}, err
	}
	s.save()
	return inst, nil
}

// Clear resets the scene to its baseline and saves.
func (s *Session) Clear() {
	s.store.Clear()
	s.save()
}

// Forget resets the scene and removes the stored document instead of
// writing the baseline.
func (s *Session) Forget(ctx context.Context) {
	s.store.Clear()
	s.saver.Flush()
	s.persister.Reset(ctx)
}

// Select changes the selection and saves when it changed.
func (s *Session) Select(id string) bool {
	if !s.store.Select(id) {
		return false
	}
	s.save()
	return true
}

// ClearSelection is Select("").
func (s *Session) ClearSelection() bool { return s.Select("") }

// Remove drops one record and saves.
func (s *Session) Remove(id string) error {
	if err := s.store.Remove(id); err != nil {
		return err
	}
	s.save()
	return nil
}

// Tap selects the nearest record hit by ray, or clears the selection when
// the ray hits nothing. It returns the hit id.
func (s *Session) Tap(ray scene.Ray) (string, bool) {
	id, ok := scene.Pick(ray, s.store.Snapshot().Instances)
	if ok {
		s.Select(id)
	} else {
		s.ClearSelection()
	}
	return id, ok
}

// Flush waits for pending saves.
func (s *Session) Flush() { s.saver.Flush() }

// Close writes any pending document and releases the storage.
func (s *Session) Close() error {
	s.saver.Close()
	return s.storage.Close()
}

func (s *Session) save() {
	s.saver.Submit(s.store.Persisted())
}
