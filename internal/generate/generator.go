package generate

import (
	"math"
	"math/rand/v2"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/roach88/planetarium/internal/scene"
)

const (
	// MinScale and MaxScale bound the uniform scale range [MinScale, MaxScale).
	MinScale = 0.6
	MaxScale = 1.4

	// RingChance and CraterChance are the planet flag probabilities.
	RingChance   = 0.35
	CraterChance = 0.5
)

// ShapePalette is the color pool for boxes and spheres.
var ShapePalette = []string{
	"#4f9dff", "#ff6b6b", "#ffd166", "#06d6a0", "#a78bfa", "#f78c6b", "#5ee7df",
}

// PlanetPalette is the color pool for planets.
var PlanetPalette = []string{
	"#c8a165", "#7fb3d5", "#d35400", "#6c8e5a", "#b784a7", "#e3c9a8", "#5d6d7e",
}

var nameSyllables = []string{
	"ka", "ri", "to", "vel", "an", "or", "sa", "mi", "dun", "ex",
	"lo", "tha", "ne", "pry", "qua", "zor", "ul", "ce", "bar", "io",
}

// Generator produces new records for one variant.
// A Generator is not safe for concurrent use; the store calls it under its lock.
type Generator struct {
	variant scene.Variant
	rand    *rand.Rand
	clock   Clock
	ids     IDSource
}

// Option configures a Generator.
type Option func(*Generator)

// WithRand sets the random source.
func WithRand(r *rand.Rand) Option {
	return func(g *Generator) { g.rand = r }
}

// WithSeed seeds a PCG random source, for reproducible runs.
func WithSeed(seed uint64) Option {
	return func(g *Generator) { g.rand = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)) }
}

// WithClock sets the timestamp source.
func WithClock(c Clock) Option {
	return func(g *Generator) { g.clock = c }
}

// WithIDs sets the identifier source.
func WithIDs(ids IDSource) Option {
	return func(g *Generator) { g.ids = ids }
}

// New creates a Generator. Defaults: randomly seeded source, SystemClock and
// TimeRandomIDs drawing from the same source.
func New(variant scene.Variant, opts ...Option) *Generator {
	g := &Generator{variant: variant}
	for _, opt := range opts {
		opt(g)
	}
	if g.rand == nil {
		g.rand = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if g.clock == nil {
		g.clock = SystemClock{}
	}
	if g.ids == nil {
		g.ids = TimeRandomIDs{Rand: g.rand}
	}
	return g
}

// Variant returns the variant the generator produces records for.
func (g *Generator) Variant() scene.Variant { return g.variant }

// NewID draws a fresh identifier. The store uses it to retry on collisions.
func (g *Generator) NewID() string {
	return g.ids.NewID(g.clock.Now())
}

// Next produces one record for the given insertion index.
func (g *Generator) Next(index int) scene.Instance {
	now := g.clock.Now()
	inst := scene.Instance{
		ID:        g.ids.NewID(now),
		Scale:     MinScale + g.rand.Float64()*(MaxScale-MinScale),
		Rotation:  scene.Vec3{0, g.rand.Float64() * math.Pi, 0},
		CreatedAt: now.UnixMilli(),
	}

	switch g.variant {
	case scene.VariantPlanets:
		inst.Color = pick(g.rand, PlanetPalette)
		inst.Appearance = scene.Planet{
			Name:       g.planetName(),
			HasRing:    g.rand.Float64() < RingChance,
			HasCraters: g.rand.Float64() < CraterChance,
		}
	default:
		inst.Color = pick(g.rand, ShapePalette)
		if g.rand.IntN(2) == 0 {
			inst.Appearance = scene.Box{}
		} else {
			inst.Appearance = scene.Sphere{}
		}
	}

	inst.Position = SpawnPosition(index, g.rand)
	return inst
}

// planetName builds a two- or three-syllable title-cased name, optionally
// followed by a catalogue numeral ("Velka", "Orsami Prime").
func (g *Generator) planetName() string {
	n := 2 + g.rand.IntN(2)
	var b strings.Builder
	for range n {
		b.WriteString(pick(g.rand, nameSyllables))
	}
	name := b.String()
	if g.rand.IntN(4) == 0 {
		name += " " + pick(g.rand, []string{"prime", "minor", "major", "b", "c"})
	}
	return cases.Title(language.English).String(name)
}

func pick(r *rand.Rand, pool []string) string {
	return pool[r.IntN(len(pool))]
}
