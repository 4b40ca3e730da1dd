package scene

import (
	"encoding/json"
	"fmt"
)

// Kind names the visual variant of an Instance.
type Kind string

const (
	KindBox    Kind = "box"
	KindSphere Kind = "sphere"
	KindPlanet Kind = "planet"
)

// Appearance is a sealed sum type carrying the variant-specific fields of an
// Instance. Only Box, Sphere and Planet implement it.
type Appearance interface {
	Kind() Kind
	appearance() // Sealed
}

// Box is a unit cube.
type Box struct{}

func (Box) Kind() Kind  { return KindBox }
func (Box) appearance() {}

// Sphere is a unit sphere.
type Sphere struct{}

func (Sphere) Kind() Kind  { return KindSphere }
func (Sphere) appearance() {}

// Planet is a textured sphere with optional ring and surface craters.
type Planet struct {
	Name       string
	HasRing    bool
	HasCraters bool
}

func (Planet) Kind() Kind  { return KindPlanet }
func (Planet) appearance() {}

// Instance is one generated object.
type Instance struct {
	ID         string
	Appearance Appearance
	Color      string // "#rrggbb"
	Scale      float64
	Position   Vec3
	Rotation   Vec3
	CreatedAt  int64 // Unix milliseconds
}

// Kind returns the kind of the instance's appearance.
// An instance without an appearance reports an empty kind.
func (i Instance) Kind() Kind {
	if i.Appearance == nil {
		return ""
	}
	return i.Appearance.Kind()
}

// Planet returns the planet appearance and true when the instance is a planet.
func (i Instance) Planet() (Planet, bool) {
	p, ok := i.Appearance.(Planet)
	return p, ok
}

// Label returns a short human-readable description of the instance.
func (i Instance) Label() string {
	switch a := i.Appearance.(type) {
	case Planet:
		return a.Name
	case Box:
		return "box " + i.ID
	case Sphere:
		return "sphere " + i.ID
	default:
		return i.ID
	}
}

// wireInstance is the persisted JSON shape of an Instance.
type wireInstance struct {
	ID         string  `json:"id"`
	Kind       Kind    `json:"kind"`
	Color      string  `json:"color"`
	Scale      float64 `json:"scale"`
	Position   Vec3    `json:"position"`
	Rotation   Vec3    `json:"rotation"`
	CreatedAt  int64   `json:"createdAt"`
	Name       string  `json:"name,omitempty"`
	HasRing    *bool   `json:"hasRing,omitempty"`
	HasCraters *bool   `json:"hasCraters,omitempty"`
}

// MarshalJSON implements json.Marshaler.
// Planet-only fields are emitted only for planets.
func (i Instance) MarshalJSON() ([]byte, error) {
	w := wireInstance{
		ID:        i.ID,
		Kind:      i.Kind(),
		Color:     i.Color,
		Scale:     i.Scale,
		Position:  i.Position,
		Rotation:  i.Rotation,
		CreatedAt: i.CreatedAt,
	}
	switch a := i.Appearance.(type) {
	case Planet:
		ring, craters := a.HasRing, a.HasCraters
		w.Name = a.Name
		w.HasRing = &ring
		w.HasCraters = &craters
	case Box, Sphere:
	case nil:
		return nil, fmt.Errorf("instance %q has no appearance", i.ID)
	}
	return json.Marshal(w)
}

// Document is the persisted blob: the record list plus the selection.
type Document struct {
	Instances  []Instance
	SelectedID string // empty when nothing is selected
}

type wireDocument struct {
	Instances  []Instance `json:"instances"`
	SelectedID *string    `json:"selectedId"`
}

// MarshalJSON implements json.Marshaler. An empty selection is written as null.
func (d Document) MarshalJSON() ([]byte, error) {
	w := wireDocument{Instances: d.Instances}
	if w.Instances == nil {
		w.Instances = []Instance{}
	}
	if d.SelectedID != "" {
		sel := d.SelectedID
		w.SelectedID = &sel
	}
	return json.Marshal(w)
}

// BoundingRadius returns the radius of the sphere enclosing the instance.
func (i Instance) BoundingRadius() float64 {
	switch i.Appearance.(type) {
	case Planet:
		return 1.0 * i.Scale
	case Box:
		// half the cube diagonal
		return 0.8660254037844386 * i.Scale
	default:
		return 0.5 * i.Scale
	}
}
