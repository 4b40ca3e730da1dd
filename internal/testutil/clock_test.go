package testutil

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSteppingClock_StartsAtEpoch(t *testing.T) {
	clock := NewSteppingClock(time.Second)
	assert.Equal(t, Epoch, clock.Peek())
	assert.Equal(t, Epoch, clock.Now())
}

func TestSteppingClock_Advances(t *testing.T) {
	clock := NewSteppingClock(time.Millisecond)

	first := clock.Now()
	second := clock.Now()
	third := clock.Now()

	assert.Equal(t, time.Millisecond, second.Sub(first))
	assert.Equal(t, time.Millisecond, third.Sub(second))
	assert.Equal(t, Epoch.Add(3*time.Millisecond), clock.Peek())
}

func TestSteppingClock_ZeroStepFreezes(t *testing.T) {
	clock := NewSteppingClock(0)
	assert.Equal(t, clock.Now(), clock.Now())
}

func TestSteppingClock_Reset(t *testing.T) {
	clock := NewSteppingClock(time.Hour)
	clock.Now()
	clock.Now()

	clock.Reset()
	assert.Equal(t, Epoch, clock.Now())
}

func TestSteppingClock_Concurrent(t *testing.T) {
	clock := NewSteppingClock(time.Millisecond)
	const goroutines = 50

	var wg sync.WaitGroup
	seen := make(chan time.Time, goroutines)
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			seen <- clock.Now()
		}()
	}
	wg.Wait()
	close(seen)

	unique := make(map[time.Time]bool)
	for ts := range seen {
		unique[ts] = true
	}
	assert.Len(t, unique, goroutines)
	assert.Equal(t, Epoch.Add(goroutines*time.Millisecond), clock.Peek())
}

func TestRand_Deterministic(t *testing.T) {
	a := Rand(7)
	b := Rand(7)
	for i := 0; i < 10; i++ {
		assert.Equal(t, a.Uint64(), b.Uint64())
	}
}
