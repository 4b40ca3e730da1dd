package store

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/planetarium/internal/generate"
	"github.com/roach88/planetarium/internal/metrics"
	"github.com/roach88/planetarium/internal/sanitize"
	"github.com/roach88/planetarium/internal/scene"
	"github.com/roach88/planetarium/internal/testutil"
)

func newGenerator(variant scene.Variant, ids ...string) *generate.Generator {
	opts := []generate.Option{
		generate.WithRand(testutil.Rand(42)),
		generate.WithClock(testutil.NewSteppingClock(time.Millisecond)),
	}
	if len(ids) > 0 {
		opts = append(opts, generate.WithIDs(generate.NewFixedIDs(ids...)))
	}
	return generate.New(variant, opts...)
}

func sequentialIDs(n int) []string {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("id-%02d", i)
	}
	return ids
}

func ids(instances []scene.Instance) []string {
	out := make([]string, len(instances))
	for i, inst := range instances {
		out[i] = inst.ID
	}
	return out
}

func TestNew_StartsFromSeed(t *testing.T) {
	shapes := New(newGenerator(scene.VariantShapes))
	snap := shapes.Snapshot()
	require.Len(t, snap.Instances, 1)
	assert.Equal(t, scene.SeedID, snap.Instances[0].ID)
	assert.Empty(t, snap.SelectedID)
	assert.Empty(t, snap.LastCreatedID)

	planets := New(newGenerator(scene.VariantPlanets))
	assert.Empty(t, planets.Snapshot().Instances)
	assert.Equal(t, DefaultMax, planets.Max())
}

func TestAddRandom_PrependsAndMarksLastCreated(t *testing.T) {
	s := New(newGenerator(scene.VariantShapes, "a", "b"))

	first, err := s.AddRandom()
	require.NoError(t, err)
	second, err := s.AddRandom()
	require.NoError(t, err)

	snap := s.Snapshot()
	assert.Equal(t, []string{"b", "a", scene.SeedID}, ids(snap.Instances))
	assert.Equal(t, "b", snap.LastCreatedID)
	assert.Equal(t, "a", first.ID)
	assert.Equal(t, "b", second.ID)
}

func TestAddRandom_UsesLengthAsSpawnIndex(t *testing.T) {
	s := New(newGenerator(scene.VariantPlanets, sequentialIDs(4)...))
	for i := 0; i < 4; i++ {
		inst, err := s.AddRandom()
		require.NoError(t, err)
		p := inst.Position
		radius := p[0]*p[0] + p[2]*p[2]
		want := generate.SpiralRadius(i)
		assert.InDelta(t, want*want, radius, 1e-9, "index %d", i)
	}
}

func TestAddRandom_EvictsOldestAtMax(t *testing.T) {
	const max = 5
	s := New(newGenerator(scene.VariantPlanets, sequentialIDs(max+1)...), WithMax(max))
	for i := 0; i < max; i++ {
		_, err := s.AddRandom()
		require.NoError(t, err)
	}
	before := ids(s.Snapshot().Instances)
	require.Len(t, before, max)
	oldest := before[len(before)-1]
	assert.Equal(t, "id-00", oldest)

	_, err := s.AddRandom()
	require.NoError(t, err)
	after := ids(s.Snapshot().Instances)
	require.Len(t, after, max)
	assert.Equal(t, "id-05", after[0])
	assert.NotContains(t, after, oldest)
	assert.Equal(t, before[:max-1], after[1:])
}

func TestAddRandom_EvictionDropsSelection(t *testing.T) {
	s := New(newGenerator(scene.VariantPlanets, "a", "b", "c"), WithMax(2))
	_, _ = s.AddRandom()
	_, _ = s.AddRandom()
	require.True(t, s.Select("a"))

	_, err := s.AddRandom()
	require.NoError(t, err)
	snap := s.Snapshot()
	assert.Equal(t, []string{"c", "b"}, ids(snap.Instances))
	assert.Empty(t, snap.SelectedID)
}

func TestAddRandom_RetriesCollidingIDs(t *testing.T) {
	s := New(newGenerator(scene.VariantShapes, "a", "a", scene.SeedID, "b"))
	_, err := s.AddRandom()
	require.NoError(t, err)

	inst, err := s.AddRandom()
	require.NoError(t, err)
	assert.Equal(t, "b", inst.ID)
	assert.Equal(t, []string{"b", "a", scene.SeedID}, ids(s.Snapshot().Instances))
}

func TestAddRandom_GivesUpAfterMaxAttempts(t *testing.T) {
	fixed := []string{"a"}
	for i := 0; i < MaxIDAttempts; i++ {
		fixed = append(fixed, "a")
	}
	s := New(newGenerator(scene.VariantPlanets, fixed...))
	_, err := s.AddRandom()
	require.NoError(t, err)

	var calls int
	s.Subscribe(func(Snapshot) { calls++ })
	_, err = s.AddRandom()
	require.ErrorIs(t, err, ErrIDCollision)
	assert.Equal(t, 1, s.Len())
	assert.Zero(t, calls)
}

func TestClear_RestoresBaseline(t *testing.T) {
	for _, variant := range scene.ValidVariants {
		t.Run(string(variant), func(t *testing.T) {
			s := New(newGenerator(variant, "a", "b"))
			_, _ = s.AddRandom()
			_, _ = s.AddRandom()
			require.True(t, s.Select("a"))

			s.Clear()
			snap := s.Snapshot()
			assert.Equal(t, ids(variant.Seed()), ids(snap.Instances))
			assert.Empty(t, snap.SelectedID)
			assert.Empty(t, snap.LastCreatedID)
		})
	}
}

func TestSelect_Idempotent(t *testing.T) {
	s := New(newGenerator(scene.VariantShapes))
	var notified []string
	s.Subscribe(func(snap Snapshot) { notified = append(notified, snap.SelectedID) })

	assert.True(t, s.Select(scene.SeedID))
	before := s.Snapshot()
	assert.False(t, s.Select(scene.SeedID))
	assert.Equal(t, before, s.Snapshot())
	assert.Equal(t, []string{scene.SeedID}, notified)

	assert.True(t, s.ClearSelection())
	assert.False(t, s.ClearSelection())
	assert.Equal(t, []string{scene.SeedID, ""}, notified)
}

func TestSelect_UnknownIDIgnored(t *testing.T) {
	s := New(newGenerator(scene.VariantShapes))
	require.True(t, s.Select(scene.SeedID))
	assert.False(t, s.Select("ghost"))
	assert.Equal(t, scene.SeedID, s.Snapshot().SelectedID)
}

func TestRemove(t *testing.T) {
	s := New(newGenerator(scene.VariantShapes, "a"))
	_, _ = s.AddRandom()
	require.True(t, s.Select("a"))

	require.NoError(t, s.Remove("a"))
	snap := s.Snapshot()
	assert.Equal(t, []string{scene.SeedID}, ids(snap.Instances))
	assert.Empty(t, snap.SelectedID)
	assert.Empty(t, snap.LastCreatedID)

	err := s.Remove("a")
	assert.ErrorIs(t, err, ErrUnknownInstance)
}

func TestHydrate(t *testing.T) {
	persisted := []scene.Instance{
		{ID: "p1", Appearance: scene.Sphere{}, Color: "#ffffff", Scale: 1},
		{ID: "p2", Appearance: scene.Box{}, Color: "#000000", Scale: 1},
	}

	t.Run("replaces with sanitized records", func(t *testing.T) {
		s := New(newGenerator(scene.VariantShapes, "a"))
		_, _ = s.AddRandom()
		s.Hydrate(sanitize.Result{Instances: persisted, SelectedID: "p2"})

		snap := s.Snapshot()
		assert.Equal(t, []string{"p1", "p2"}, ids(snap.Instances))
		assert.Equal(t, "p2", snap.SelectedID)
		assert.Empty(t, snap.LastCreatedID)
	})

	t.Run("keeps default when sanitized list is empty", func(t *testing.T) {
		s := New(newGenerator(scene.VariantShapes))
		s.Hydrate(sanitize.Result{SelectedID: "p1"})

		snap := s.Snapshot()
		assert.Equal(t, []string{scene.SeedID}, ids(snap.Instances))
		assert.Empty(t, snap.SelectedID)
	})

	t.Run("selection may name the kept default", func(t *testing.T) {
		s := New(newGenerator(scene.VariantShapes))
		s.Hydrate(sanitize.Result{SelectedID: scene.SeedID})
		assert.Equal(t, scene.SeedID, s.Snapshot().SelectedID)
	})

	t.Run("dangling selection is dropped", func(t *testing.T) {
		s := New(newGenerator(scene.VariantShapes))
		s.Hydrate(sanitize.Result{Instances: persisted, SelectedID: "ghost"})
		assert.Empty(t, s.Snapshot().SelectedID)
	})

	t.Run("truncates to max", func(t *testing.T) {
		s := New(newGenerator(scene.VariantShapes), WithMax(1))
		s.Hydrate(sanitize.Result{Instances: persisted})
		assert.Equal(t, []string{"p1"}, ids(s.Snapshot().Instances))
	})
}

func TestSnapshot_IsACopy(t *testing.T) {
	s := New(newGenerator(scene.VariantShapes))
	snap := s.Snapshot()
	snap.Instances[0].ID = "mutated"

	_, ok := s.Find(scene.SeedID)
	assert.True(t, ok)
}

func TestPersisted(t *testing.T) {
	s := New(newGenerator(scene.VariantShapes, "a"))
	_, _ = s.AddRandom()
	require.True(t, s.Select(scene.SeedID))

	doc := s.Persisted()
	assert.Equal(t, []string{"a", scene.SeedID}, ids(doc.Instances))
	assert.Equal(t, scene.SeedID, doc.SelectedID)
}

func TestSubscribe_Cancel(t *testing.T) {
	s := New(newGenerator(scene.VariantShapes, "a", "b"))
	var calls int
	cancel := s.Subscribe(func(Snapshot) { calls++ })

	_, _ = s.AddRandom()
	cancel()
	cancel()
	_, _ = s.AddRandom()
	assert.Equal(t, 1, calls)
}

func TestSubscribe_ListenerMayReadStore(t *testing.T) {
	s := New(newGenerator(scene.VariantShapes, "a"))
	var seen int
	s.Subscribe(func(Snapshot) { seen = s.Len() })
	_, _ = s.AddRandom()
	assert.Equal(t, 2, seen)
}

func TestStore_ConcurrentAccess(t *testing.T) {
	s := New(newGenerator(scene.VariantPlanets), WithMax(8))
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				_, _ = s.AddRandom()
				_ = s.Snapshot()
				s.Select("")
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 8, s.Len())
}

func TestStore_RecordsMetrics(t *testing.T) {
	m := metrics.New()
	s := New(newGenerator(scene.VariantShapes, "a"), WithMetrics(m))
	_, _ = s.AddRandom()
	s.Select("a")
	s.Select("a")

	samples, err := m.Snapshot()
	require.NoError(t, err)
	got := map[string]float64{}
	var size float64
	for _, sample := range samples {
		switch sample.Name {
		case "planetarium_store_mutations_total":
			got[sample.Labels["op"]] = sample.Value
		case "planetarium_store_instances":
			size = sample.Value
		}
	}
	assert.Equal(t, 1.0, got["add"])
	assert.Equal(t, 1.0, got["select"])
	assert.Equal(t, 2.0, size)
}
