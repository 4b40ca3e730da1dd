package scene

import "fmt"

// Variant selects which catalog of objects a scene holds.
type Variant string

const (
	// VariantShapes holds boxes and spheres and starts from a seed box.
	VariantShapes Variant = "shapes"
	// VariantPlanets holds planets, starts empty and guards its storage path.
	VariantPlanets Variant = "planets"
)

// ValidVariants lists the allowed variants in display order.
var ValidVariants = []Variant{VariantShapes, VariantPlanets}

// SeedID is the identifier of the shapes variant's seed record.
const SeedID = "seed"

// ParseVariant converts a string into a Variant.
func ParseVariant(s string) (Variant, error) {
	for _, v := range ValidVariants {
		if string(v) == s {
			return v, nil
		}
	}
	return "", fmt.Errorf("invalid variant %q: must be one of %v", s, ValidVariants)
}

// Kinds returns the kinds a variant may contain. The first entry is the
// fallback for records persisted without a kind.
func (v Variant) Kinds() []Kind {
	switch v {
	case VariantPlanets:
		return []Kind{KindPlanet}
	default:
		return []Kind{KindBox, KindSphere}
	}
}

// Allows reports whether k belongs to the variant.
func (v Variant) Allows(k Kind) bool {
	for _, allowed := range v.Kinds() {
		if allowed == k {
			return true
		}
	}
	return false
}

// DefaultColor is used when a persisted color cannot be repaired.
func (v Variant) DefaultColor() string {
	if v == VariantPlanets {
		return "#c8a165"
	}
	return "#4f9dff"
}

// StorageKey is the fixed key the variant persists its document under.
func (v Variant) StorageKey() string {
	if v == VariantPlanets {
		return "planetarium.planets.v1"
	}
	return "planetarium.instances.v1"
}

// GuardsStorage reports whether a platform path fault disables storage for
// the rest of the process.
func (v Variant) GuardsStorage() bool {
	return v == VariantPlanets
}

// Seed returns the baseline record list used at first run and after clear.
func (v Variant) Seed() []Instance {
	if v == VariantPlanets {
		return nil
	}
	return []Instance{{
		ID:         SeedID,
		Appearance: Box{},
		Color:      v.DefaultColor(),
		Scale:      1,
	}}
}
