package generate

import (
	"math"
	"math/rand/v2"

	"github.com/roach88/planetarium/internal/scene"
)

// GoldenAngle is π(3 − √5) radians, about 137.5°.
var GoldenAngle = math.Pi * (3 - math.Sqrt(5))

const (
	// Spacing scales the spiral radius.
	Spacing = 1.6
	// VerticalBand is the height of the band the vertical offset is drawn from,
	// centred on y = 0.
	VerticalBand = 1.0
)

// SpiralRadius returns the spawn radius for an insertion index.
// Negative indices are treated as 0.
func SpiralRadius(index int) float64 {
	if index < 0 {
		index = 0
	}
	return Spacing * math.Sqrt(float64(index))
}

// SpawnPosition places the record with the given insertion index on the
// golden-angle spiral. Only the vertical offset is random.
func SpawnPosition(index int, r *rand.Rand) scene.Vec3 {
	if index < 0 {
		index = 0
	}
	radius := SpiralRadius(index)
	sin, cos := math.Sincos(float64(index) * GoldenAngle)
	y := (r.Float64() - 0.5) * VerticalBand
	return scene.Vec3{radius * cos, y, radius * sin}
}
