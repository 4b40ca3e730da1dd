package persist

import (
	"context"
	"sync"

	"github.com/roach88/planetarium/internal/scene"
)

// SaveFunc writes one document.
type SaveFunc func(ctx context.Context, doc scene.Document)

// AsyncSaver runs saves on a single background worker.
//
// The mailbox holds one document: Submit replaces whatever is pending, so
// when saves fall behind only the latest snapshot is written. Submit never
// blocks on storage.
//
// Thread-safety: all methods are safe for concurrent use.
type AsyncSaver struct {
	ctx  context.Context
	save SaveFunc

	mu         sync.Mutex
	cond       *sync.Cond
	pending    *scene.Document
	pendingSeq uint64
	savedSeq   uint64
	closed     bool
	signal     chan struct{} // buffered, size 1
	done       chan struct{}
}

// NewAsyncSaver starts the worker. ctx is passed to every save.
func NewAsyncSaver(ctx context.Context, save SaveFunc) *AsyncSaver {
	a := &AsyncSaver{
		ctx:    ctx,
		save:   save,
		signal: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	a.cond = sync.NewCond(&a.mu)
	go a.run()
	return a
}

// Submit schedules doc to be saved, replacing any pending document.
// Returns false if the saver is closed.
func (a *AsyncSaver) Submit(doc scene.Document) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return false
	}
	a.pending = &doc
	a.pendingSeq++

	// Non-blocking: a full buffer already wakes the worker.
	select {
	case a.signal <- struct{}{}:
	default:
	}
	return true
}

// Flush blocks until every document submitted before the call has been
// saved or superseded by a saved later one.
func (a *AsyncSaver) Flush() {
	a.mu.Lock()
	defer a.mu.Unlock()
	target := a.pendingSeq
	for a.savedSeq < target {
		a.cond.Wait()
	}
}

// Close stops accepting documents, writes the pending one and waits for the
// worker to exit. It is safe to call more than once.
func (a *AsyncSaver) Close() {
	a.mu.Lock()
	if !a.closed {
		a.closed = true
		close(a.signal)
	}
	a.mu.Unlock()
	<-a.done
}

func (a *AsyncSaver) run() {
	defer close(a.done)
	for range a.signal {
		a.drain()
	}
	a.drain()
}

func (a *AsyncSaver) drain() {
	a.mu.Lock()
	doc, seq := a.pending, a.pendingSeq
	a.pending = nil
	a.mu.Unlock()

	if doc == nil {
		return
	}
	a.save(a.ctx, *doc)

	a.mu.Lock()
	a.savedSeq = seq
	a.cond.Broadcast()
	a.mu.Unlock()
}
