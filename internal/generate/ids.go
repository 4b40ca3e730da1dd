package generate

import (
	"math/rand/v2"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
)

// IDSource produces record identifiers.
type IDSource interface {
	NewID(now time.Time) string
}

const base36 = "0123456789abcdefghijklmnopqrstuvwxyz"

// SuffixLen is the number of random characters appended by TimeRandomIDs.
const SuffixLen = 6

// TimeRandomIDs builds identifiers from the creation time in base 36 plus a
// random suffix: "lq3k9v2a-x7f0qz". Uniqueness is best effort; callers that
// need it must check against existing ids.
type TimeRandomIDs struct {
	Rand *rand.Rand
}

// NewID returns a time-plus-random identifier.
func (g TimeRandomIDs) NewID(now time.Time) string {
	suffix := make([]byte, SuffixLen)
	for i := range suffix {
		var n int
		if g.Rand != nil {
			n = g.Rand.IntN(len(base36))
		} else {
			n = rand.IntN(len(base36))
		}
		suffix[i] = base36[n]
	}
	return strconv.FormatInt(now.UnixMilli(), 36) + "-" + string(suffix)
}

// UUIDv7IDs generates time-sortable UUIDv7 identifiers.
//
// UUIDv7 embeds a timestamp in the most significant bits, so ids still sort by
// creation time like TimeRandomIDs but collisions are practically impossible.
//
// Thread-safety: UUIDv7IDs is stateless and safe for concurrent use.
type UUIDv7IDs struct{}

// NewID returns a new hyphenated UUIDv7. The timestamp comes from the uuid
// package, not from now.
//
// Panics if UUID generation fails (should never happen in practice).
func (UUIDv7IDs) NewID(time.Time) string {
	return uuid.Must(uuid.NewV7()).String()
}

// FixedIDs returns predetermined identifiers for testing.
//
// Thread-safety: FixedIDs is safe for concurrent use via internal mutex.
type FixedIDs struct {
	mu  sync.Mutex
	ids []string
	idx int
}

// NewFixedIDs creates a source that returns ids in order.
//
// Example:
//
//	src := NewFixedIDs("a", "b")
//	src.NewID(now) // "a"
//	src.NewID(now) // "b"
//	src.NewID(now) // panic: all ids exhausted
func NewFixedIDs(ids ...string) *FixedIDs {
	return &FixedIDs{ids: ids}
}

// NewID returns the next predetermined id.
//
// Panics if all ids have been consumed, to catch tests that generate more
// records than they planned for.
func (f *FixedIDs) NewID(time.Time) string {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.idx >= len(f.ids) {
		panic("FixedIDs: all ids exhausted")
	}
	id := f.ids[f.idx]
	f.idx++
	return id
}
