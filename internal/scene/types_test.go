package scene

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppearanceSealed(t *testing.T) {
	var _ Appearance = Box{}
	var _ Appearance = Sphere{}
	var _ Appearance = Planet{}
}

func TestInstanceKind(t *testing.T) {
	assert.Equal(t, KindBox, Instance{Appearance: Box{}}.Kind())
	assert.Equal(t, KindSphere, Instance{Appearance: Sphere{}}.Kind())
	assert.Equal(t, KindPlanet, Instance{Appearance: Planet{Name: "Vela"}}.Kind())
	assert.Equal(t, Kind(""), Instance{}.Kind())
}

func TestInstanceMarshalJSON_Box(t *testing.T) {
	inst := Instance{
		ID:         "a1",
		Appearance: Box{},
		Color:      "#ff0000",
		Scale:      1.5,
		Position:   Vec3{1, 2, 3},
		Rotation:   Vec3{0, 0.5, 0},
		CreatedAt:  1700000000000,
	}

	data, err := json.Marshal(inst)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"id": "a1",
		"kind": "box",
		"color": "#ff0000",
		"scale": 1.5,
		"position": [1, 2, 3],
		"rotation": [0, 0.5, 0],
		"createdAt": 1700000000000
	}`, string(data))
}

func TestInstanceMarshalJSON_Planet(t *testing.T) {
	inst := Instance{
		ID:         "p1",
		Appearance: Planet{Name: "Orsa", HasRing: true},
		Color:      "#c8a165",
		Scale:      1,
	}

	data, err := json.Marshal(inst)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "planet", got["kind"])
	assert.Equal(t, "Orsa", got["name"])
	assert.Equal(t, true, got["hasRing"])
	assert.Equal(t, false, got["hasCraters"])
}

func TestInstanceMarshalJSON_NoAppearance(t *testing.T) {
	_, err := json.Marshal(Instance{ID: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no appearance")
}

func TestDocumentMarshalJSON(t *testing.T) {
	t.Run("null selection", func(t *testing.T) {
		data, err := json.Marshal(Document{})
		require.NoError(t, err)
		assert.JSONEq(t, `{"instances": [], "selectedId": null}`, string(data))
	})

	t.Run("with selection", func(t *testing.T) {
		doc := Document{
			Instances:  []Instance{{ID: "a", Appearance: Sphere{}, Color: "#000000", Scale: 1}},
			SelectedID: "a",
		}
		data, err := json.Marshal(doc)
		require.NoError(t, err)

		var got map[string]any
		require.NoError(t, json.Unmarshal(data, &got))
		assert.Equal(t, "a", got["selectedId"])
		assert.Len(t, got["instances"], 1)
	})
}

func TestInstanceLabel(t *testing.T) {
	assert.Equal(t, "Orsa", Instance{ID: "p", Appearance: Planet{Name: "Orsa"}}.Label())
	assert.Equal(t, "box b", Instance{ID: "b", Appearance: Box{}}.Label())
	assert.Equal(t, "sphere s", Instance{ID: "s", Appearance: Sphere{}}.Label())
}

func TestVariant(t *testing.T) {
	v, err := ParseVariant("planets")
	require.NoError(t, err)
	assert.Equal(t, VariantPlanets, v)

	_, err = ParseVariant("cubes")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid variant")

	assert.True(t, VariantShapes.Allows(KindBox))
	assert.True(t, VariantShapes.Allows(KindSphere))
	assert.False(t, VariantShapes.Allows(KindPlanet))
	assert.True(t, VariantPlanets.Allows(KindPlanet))
	assert.False(t, VariantPlanets.Allows(KindBox))

	assert.NotEqual(t, VariantShapes.StorageKey(), VariantPlanets.StorageKey())
	assert.False(t, VariantShapes.GuardsStorage())
	assert.True(t, VariantPlanets.GuardsStorage())
}

func TestVariantSeed(t *testing.T) {
	seed := VariantShapes.Seed()
	require.Len(t, seed, 1)
	assert.Equal(t, SeedID, seed[0].ID)
	assert.Equal(t, KindBox, seed[0].Kind())

	assert.Empty(t, VariantPlanets.Seed())
}
