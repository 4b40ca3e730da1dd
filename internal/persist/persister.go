// Package persist saves and restores a scene under its variant's fixed
// storage key.
//
// Storage failures never reach the caller: they are logged, counted and
// treated as no-ops. Loaded documents always pass through the sanitizer.
package persist

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/roach88/planetarium/internal/kv"
	"github.com/roach88/planetarium/internal/metrics"
	"github.com/roach88/planetarium/internal/sanitize"
	"github.com/roach88/planetarium/internal/scene"
)

// Persister reads and writes one variant's document.
type Persister struct {
	storage kv.Storage
	key     string
	opts    sanitize.Options
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewPersister binds storage to variant's key. max bounds the number of
// records accepted on load.
func NewPersister(storage kv.Storage, variant scene.Variant, max int, m *metrics.Metrics, logger *slog.Logger) *Persister {
	if logger == nil {
		logger = slog.Default()
	}
	return &Persister{
		storage: storage,
		key:     variant.StorageKey(),
		opts:    sanitize.Options{Variant: variant, Max: max},
		metrics: m,
		logger:  logger,
	}
}

// Key returns the storage key.
func (p *Persister) Key() string { return p.key }

// Load reads and sanitizes the stored document. A missing key, a read
// failure or an undecodable blob all yield an empty Result.
func (p *Persister) Load(ctx context.Context) sanitize.Result {
	data, ok, err := p.storage.Get(ctx, p.key)
	if err != nil {
		p.metrics.StorageError("get")
		p.logger.Warn("failed to read persisted scene", "key", p.key, "error", err)
		return sanitize.Result{}
	}
	if !ok {
		p.logger.Debug("no persisted scene", "key", p.key)
		return sanitize.Result{}
	}

	res := sanitize.StateJSON(data, p.opts)
	if res.Corrupt {
		p.logger.Warn("discarding undecodable persisted scene", "key", p.key, "bytes", len(data))
	}
	if res.Dropped > 0 {
		p.metrics.Dropped(res.Dropped)
		p.logger.Info("dropped persisted records", "key", p.key, "dropped", res.Dropped, "kept", len(res.Instances))
	}
	return res
}

// Save writes doc. Failures are logged and counted.
func (p *Persister) Save(ctx context.Context, doc scene.Document) {
	start := time.Now()
	data, err := json.Marshal(doc)
	if err != nil {
		p.metrics.StorageError("encode")
		p.logger.Warn("failed to encode scene", "key", p.key, "error", err)
		return
	}
	if err := p.storage.Set(ctx, p.key, data); err != nil {
		p.metrics.StorageError("set")
		p.logger.Warn("failed to persist scene", "key", p.key, "error", err)
		return
	}
	p.metrics.ObserveSave(time.Since(start).Seconds())
	p.logger.Debug("persisted scene", "key", p.key, "instances", len(doc.Instances))
}

// Reset removes the stored document. Failures are logged and counted.
func (p *Persister) Reset(ctx context.Context) {
	if err := p.storage.Remove(ctx, p.key); err != nil {
		p.metrics.StorageError("remove")
		p.logger.Warn("failed to remove persisted scene", "key", p.key, "error", err)
	}
}
