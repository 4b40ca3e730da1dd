package persist

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/planetarium/internal/generate"
	"github.com/roach88/planetarium/internal/kv"
	"github.com/roach88/planetarium/internal/metrics"
	"github.com/roach88/planetarium/internal/scene"
	"github.com/roach88/planetarium/internal/testutil"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sample(id string) scene.Instance {
	return scene.Instance{ID: id, Appearance: scene.Sphere{}, Color: "#ffffff", Scale: 1}
}

// brokenStorage fails every operation with err.
type brokenStorage struct{ err error }

func (b brokenStorage) Get(context.Context, string) ([]byte, bool, error) { return nil, false, b.err }
func (b brokenStorage) Set(context.Context, string, []byte) error         { return b.err }
func (b brokenStorage) Remove(context.Context, string) error              { return b.err }
func (b brokenStorage) Close() error                                      { return nil }

func TestPersister_RoundTrip(t *testing.T) {
	ctx := context.Background()
	mem := kv.NewMemory()
	p := NewPersister(mem, scene.VariantShapes, 10, nil, quietLogger())

	assert.Equal(t, "planetarium.instances.v1", p.Key())
	assert.Empty(t, p.Load(ctx).Instances)

	p.Save(ctx, scene.Document{Instances: []scene.Instance{sample("a"), sample("b")}, SelectedID: "b"})

	raw, ok, err := mem.Get(ctx, p.Key())
	require.NoError(t, err)
	require.True(t, ok)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "b", decoded["selectedId"])

	res := p.Load(ctx)
	require.Len(t, res.Instances, 2)
	assert.Equal(t, "a", res.Instances[0].ID)
	assert.Equal(t, "b", res.SelectedID)
	assert.False(t, res.Corrupt)
}

func TestPersister_LoadCorrupt(t *testing.T) {
	ctx := context.Background()
	mem := kv.NewMemory()
	require.NoError(t, mem.Set(ctx, scene.VariantShapes.StorageKey(), []byte("{not json")))

	var logs bytes.Buffer
	p := NewPersister(mem, scene.VariantShapes, 10, nil, slog.New(slog.NewTextHandler(&logs, nil)))
	res := p.Load(ctx)
	assert.True(t, res.Corrupt)
	assert.Empty(t, res.Instances)
	assert.Contains(t, logs.String(), "undecodable")
}

func TestPersister_LoadCountsDropped(t *testing.T) {
	ctx := context.Background()
	mem := kv.NewMemory()
	blob := `{"instances":[{"id":"ok","kind":"box","color":"#fff","scale":1},42,{"kind":"box"}],"selectedId":"gone"}`
	require.NoError(t, mem.Set(ctx, scene.VariantShapes.StorageKey(), []byte(blob)))

	m := metrics.New()
	p := NewPersister(mem, scene.VariantShapes, 10, m, quietLogger())
	res := p.Load(ctx)
	require.Len(t, res.Instances, 1)
	assert.Equal(t, 2, res.Dropped)
	assert.Empty(t, res.SelectedID)

	samples, err := m.Snapshot()
	require.NoError(t, err)
	for _, s := range samples {
		if s.Name == "planetarium_sanitize_dropped_total" {
			assert.Equal(t, 2.0, s.Value)
		}
	}
}

func TestPersister_FailuresAreLoggedNotReturned(t *testing.T) {
	ctx := context.Background()
	var logs bytes.Buffer
	m := metrics.New()
	p := NewPersister(brokenStorage{err: errors.New("disk on fire")}, scene.VariantPlanets, 10, m,
		slog.New(slog.NewTextHandler(&logs, nil)))

	res := p.Load(ctx)
	assert.Empty(t, res.Instances)
	assert.False(t, res.Corrupt)
	p.Save(ctx, scene.Document{})
	p.Reset(ctx)

	out := logs.String()
	assert.Contains(t, out, "failed to read persisted scene")
	assert.Contains(t, out, "failed to persist scene")
	assert.Contains(t, out, "failed to remove persisted scene")

	samples, err := m.Snapshot()
	require.NoError(t, err)
	ops := map[string]float64{}
	for _, s := range samples {
		if s.Name == "planetarium_storage_errors_total" {
			ops[s.Labels["op"]] = s.Value
		}
	}
	assert.Equal(t, map[string]float64{"get": 1, "set": 1, "remove": 1}, ops)
}

func TestPersister_SaveRejectsInstanceWithoutAppearance(t *testing.T) {
	ctx := context.Background()
	mem := kv.NewMemory()
	p := NewPersister(mem, scene.VariantShapes, 10, nil, quietLogger())
	p.Save(ctx, scene.Document{Instances: []scene.Instance{{ID: "bad"}}})

	_, ok, err := mem.Get(ctx, p.Key())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPersister_Reset(t *testing.T) {
	ctx := context.Background()
	mem := kv.NewMemory()
	p := NewPersister(mem, scene.VariantShapes, 10, nil, quietLogger())
	p.Save(ctx, scene.Document{Instances: []scene.Instance{sample("a")}})
	p.Reset(ctx)

	_, ok, err := mem.Get(ctx, p.Key())
	require.NoError(t, err)
	assert.False(t, ok)
}

// recorder collects saved documents and can hold the worker inside a save.
type recorder struct {
	mu      sync.Mutex
	saved   []scene.Document
	started chan struct{}
	release chan struct{}
}

func newRecorder() *recorder {
	return &recorder{started: make(chan struct{}, 16), release: make(chan struct{})}
}

func (r *recorder) save(_ context.Context, doc scene.Document) {
	r.started <- struct{}{}
	<-r.release
	r.mu.Lock()
	r.saved = append(r.saved, doc)
	r.mu.Unlock()
}

func (r *recorder) selections() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.saved))
	for i, d := range r.saved {
		out[i] = d.SelectedID
	}
	return out
}

func TestAsyncSaver_CoalescesToLatest(t *testing.T) {
	rec := newRecorder()
	a := NewAsyncSaver(context.Background(), rec.save)

	require.True(t, a.Submit(scene.Document{SelectedID: "1"}))
	<-rec.started // worker is now inside the first save

	require.True(t, a.Submit(scene.Document{SelectedID: "2"}))
	require.True(t, a.Submit(scene.Document{SelectedID: "3"}))
	close(rec.release)

	a.Flush()
	assert.Equal(t, []string{"1", "3"}, rec.selections())
	a.Close()
}

func TestAsyncSaver_CloseWritesPending(t *testing.T) {
	rec := newRecorder()
	close(rec.release)
	a := NewAsyncSaver(context.Background(), rec.save)

	for _, id := range []string{"a", "b", "c"} {
		a.Submit(scene.Document{SelectedID: id})
	}
	a.Close()

	got := rec.selections()
	require.NotEmpty(t, got)
	assert.Equal(t, "c", got[len(got)-1])

	assert.False(t, a.Submit(scene.Document{SelectedID: "late"}))
	a.Close()
	a.Flush()
}

func TestAsyncSaver_SubmitDoesNotBlock(t *testing.T) {
	rec := newRecorder() // release never closed until the end
	a := NewAsyncSaver(context.Background(), rec.save)
	a.Submit(scene.Document{SelectedID: "held"})
	<-rec.started

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			a.Submit(scene.Document{})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Submit blocked while a save was in progress")
	}
	close(rec.release)
	a.Close()
}

func openSession(t *testing.T, variant scene.Variant, storage kv.Storage, ids ...string) *Session {
	t.Helper()
	genOpts := []generate.Option{
		generate.WithRand(testutil.Rand(7)),
		generate.WithClock(testutil.NewSteppingClock(time.Millisecond)),
	}
	if len(ids) > 0 {
		genOpts = append(genOpts, generate.WithIDs(generate.NewFixedIDs(ids...)))
	}
	s, err := Open(context.Background(), SessionConfig{
		Variant:   variant,
		Max:       10,
		Storage:   storage,
		Generator: genOpts,
		Logger:    quietLogger(),
	})
	require.NoError(t, err)
	return s
}

func TestOpen_Validation(t *testing.T) {
	_, err := Open(context.Background(), SessionConfig{Variant: scene.VariantShapes})
	require.Error(t, err)

	_, err = Open(context.Background(), SessionConfig{Variant: "moons", Storage: kv.NewMemory()})
	require.Error(t, err)
}

func TestSession_SavesAfterEveryMutation(t *testing.T) {
	ctx := context.Background()
	mem := kv.NewMemory()
	s := openSession(t, scene.VariantShapes, mem, "a", "b")

	_, err := s.AddRandom()
	require.NoError(t, err)
	_, err = s.AddRandom()
	require.NoError(t, err)
	require.True(t, s.Select("a"))
	require.NoError(t, s.Remove("b"))
	s.Flush()

	raw, ok, err := mem.Get(ctx, scene.VariantShapes.StorageKey())
	require.NoError(t, err)
	require.True(t, ok)
	var doc struct {
		Instances []struct {
			ID string `json:"id"`
		} `json:"instances"`
		SelectedID *string `json:"selectedId"`
	}
	require.NoError(t, json.Unmarshal(raw, &doc))
	require.Len(t, doc.Instances, 2)
	assert.Equal(t, "a", doc.Instances[0].ID)
	assert.Equal(t, scene.SeedID, doc.Instances[1].ID)
	require.NotNil(t, doc.SelectedID)
	assert.Equal(t, "a", *doc.SelectedID)
	require.NoError(t, s.Close())
}

func TestSession_Rehydrates(t *testing.T) {
	mem := kv.NewMemory()
	first := openSession(t, scene.VariantPlanets, mem, "p1", "p2")
	_, err := first.AddRandom()
	require.NoError(t, err)
	_, err = first.AddRandom()
	require.NoError(t, err)
	require.True(t, first.Select("p1"))
	require.NoError(t, first.Close())

	second := openSession(t, scene.VariantPlanets, mem)
	snap := second.Store().Snapshot()
	require.Len(t, snap.Instances, 2)
	assert.Equal(t, "p2", snap.Instances[0].ID)
	assert.Equal(t, "p1", snap.SelectedID)
	assert.Empty(t, snap.LastCreatedID)

	p, ok := snap.Instances[0].Planet()
	require.True(t, ok)
	assert.NotEmpty(t, p.Name)
	require.NoError(t, second.Close())
}

func TestSession_ClearPersistsBaseline(t *testing.T) {
	ctx := context.Background()
	mem := kv.NewMemory()
	s := openSession(t, scene.VariantShapes, mem, "a")
	_, _ = s.AddRandom()
	s.Clear()
	s.Flush()

	res := NewPersister(mem, scene.VariantShapes, 10, nil, quietLogger()).Load(ctx)
	require.Len(t, res.Instances, 1)
	assert.Equal(t, scene.SeedID, res.Instances[0].ID)
	require.NoError(t, s.Close())
}

func TestSession_Forget(t *testing.T) {
	ctx := context.Background()
	mem := kv.NewMemory()
	s := openSession(t, scene.VariantShapes, mem, "a")
	_, _ = s.AddRandom()
	s.Forget(ctx)

	_, ok, err := mem.Get(ctx, scene.VariantShapes.StorageKey())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 1, s.Store().Len())
	require.NoError(t, s.Close())
}

func TestSession_NoOpSelectDoesNotSave(t *testing.T) {
	var sets int
	counting := &countingStorage{Storage: kv.NewMemory(), sets: &sets}
	s := openSession(t, scene.VariantShapes, counting)

	require.True(t, s.Select(scene.SeedID))
	s.Flush()
	assert.False(t, s.Select(scene.SeedID))
	assert.False(t, s.Select("ghost"))
	s.Flush()
	assert.Equal(t, 1, sets)
	require.NoError(t, s.Close())
}

type countingStorage struct {
	kv.Storage
	sets *int
}

func (c *countingStorage) Set(ctx context.Context, key string, value []byte) error {
	*c.sets++
	return c.Storage.Set(ctx, key, value)
}

func TestSession_Tap(t *testing.T) {
	s := openSession(t, scene.VariantShapes, kv.NewMemory())

	// The seed box sits at the origin.
	id, ok := s.Tap(scene.Ray{Origin: scene.Vec3{0, 0, 10}, Dir: scene.Vec3{0, 0, -1}})
	require.True(t, ok)
	assert.Equal(t, scene.SeedID, id)
	assert.Equal(t, scene.SeedID, s.Store().Snapshot().SelectedID)

	_, ok = s.Tap(scene.Ray{Origin: scene.Vec3{50, 50, 10}, Dir: scene.Vec3{0, 0, -1}})
	assert.False(t, ok)
	assert.Empty(t, s.Store().Snapshot().SelectedID)
	require.NoError(t, s.Close())
}

func TestSession_PlanetsDisableStorageOnPathFault(t *testing.T) {
	parent := filepath.Join(t.TempDir(), "occupied")
	require.NoError(t, os.WriteFile(parent, []byte("x"), 0o644))
	file, err := kv.NewFile(filepath.Join(parent, "store"))
	require.NoError(t, err)

	m := metrics.New()
	s, err := Open(context.Background(), SessionConfig{
		Variant: scene.VariantPlanets,
		Storage: file,
		Generator: []generate.Option{
			generate.WithRand(testutil.Rand(1)),
			generate.WithIDs(generate.NewFixedIDs("p1", "p2")),
		},
		Metrics: m,
		Logger:  quietLogger(),
	})
	require.NoError(t, err)

	_, err = s.AddRandom()
	require.NoError(t, err)
	s.Flush()
	assert.True(t, s.StorageDisabled())

	// The scene keeps working in memory.
	_, err = s.AddRandom()
	require.NoError(t, err)
	s.Flush()
	assert.Equal(t, 2, s.Store().Len())

	samples, err := m.Snapshot()
	require.NoError(t, err)
	var disabled float64
	for _, sample := range samples {
		if sample.Name == "planetarium_storage_disabled" {
			disabled = sample.Value
		}
	}
	assert.Equal(t, 1.0, disabled)
	require.NoError(t, s.Close())
}

func TestSession_ShapesDoNotGuardStorage(t *testing.T) {
	s := openSession(t, scene.VariantShapes, brokenStorage{err: kv.ErrStoragePathUnavailable}, "a")
	_, err := s.AddRandom()
	require.NoError(t, err)
	s.Flush()
	assert.False(t, s.StorageDisabled())
	require.NoError(t, s.Close())
}
