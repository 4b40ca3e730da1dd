package kv

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
)

// Guard disables its inner Storage for the rest of the process once an
// operation fails with a path fault (see IsPathFault).
//
// After the fault: Get reports a missing key, Set and Remove do nothing, and
// none of them return an error. The fault is logged exactly once. Errors that
// are not path faults pass through unchanged.
//
// Thread-safety: Guard is safe for concurrent use.
type Guard struct {
	inner    Storage
	logger   *slog.Logger
	disabled atomic.Bool
	once     sync.Once
	onFault  func(error)
}

// NewGuard wraps inner. onFault, if non-nil, is called once with the fault
// that disabled storage.
func NewGuard(inner Storage, logger *slog.Logger, onFault func(error)) *Guard {
	if logger == nil {
		logger = slog.Default()
	}
	return &Guard{inner: inner, logger: logger, onFault: onFault}
}

// Disabled reports whether a path fault has disabled storage.
func (g *Guard) Disabled() bool { return g.disabled.Load() }

func (g *Guard) check(op, key string, err error) error {
	if !IsPathFault(err) {
		return err
	}
	g.once.Do(func() {
		g.disabled.Store(true)
		g.logger.Warn("storage path unavailable, disabling storage for this session",
			"op", op, "key", key, "error", err)
		if g.onFault != nil {
			g.onFault(err)
		}
	})
	return nil
}

func (g *Guard) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if g.Disabled() {
		return nil, false, nil
	}
	v, ok, err := g.inner.Get(ctx, key)
	if err != nil {
		return nil, false, g.check("get", key, err)
	}
	return v, ok, nil
}

func (g *Guard) Set(ctx context.Context, key string, value []byte) error {
	if g.Disabled() {
		return nil
	}
	return g.check("set", key, g.inner.Set(ctx, key, value))
}

func (g *Guard) Remove(ctx context.Context, key string) error {
	if g.Disabled() {
		return nil
	}
	return g.check("remove", key, g.inner.Remove(ctx, key))
}

func (g *Guard) Close() error { return g.inner.Close() }
