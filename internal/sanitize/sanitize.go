package sanitize

import (
	"encoding/json"
	"math"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/planetarium/internal/scene"
)

// MaxNameRunes bounds the length of a repaired planet name.
const MaxNameRunes = 48

var colorPattern = regexp.MustCompile(`^#([0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// Options controls which records survive sanitization.
type Options struct {
	Variant scene.Variant
	// Max bounds the number of surviving records. Zero means unbounded.
	Max int
}

// Result is the well-typed state recovered from a persisted blob.
type Result struct {
	Instances  []scene.Instance
	SelectedID string // empty when absent or not referencing a surviving record
	Dropped    int    // records discarded as malformed, duplicate or over Max
	Corrupt    bool   // the blob itself could not be decoded
}

// DecodeJSON decodes a persisted blob into a generic value.
func DecodeJSON(data []byte) (any, error) {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// StateJSON decodes and sanitizes a persisted blob. Undecodable input yields
// an empty Result with Corrupt set.
func StateJSON(data []byte, opts Options) Result {
	raw, err := DecodeJSON(data)
	if err != nil {
		return Result{Corrupt: true}
	}
	return State(raw, opts)
}

// State sanitizes a decoded blob of the shape {"instances": [...], "selectedId": ...}.
// It is total over arbitrary input.
func State(raw any, opts Options) Result {
	obj, _ := raw.(map[string]any)
	instances, dropped := Instances(obj["instances"], opts)
	return Result{
		Instances:  instances,
		SelectedID: Selection(obj["selectedId"], instances),
		Dropped:    dropped,
	}
}

// Instances returns the well-formed records of raw, in order, and the number
// of entries discarded. A non-array raw yields no records.
func Instances(raw any, opts Options) ([]scene.Instance, int) {
	list, ok := raw.([]any)
	if !ok {
		return nil, 0
	}
	out := make([]scene.Instance, 0, len(list))
	seen := make(map[string]bool, len(list))
	dropped := 0
	for _, elem := range list {
		inst, ok := instance(elem, opts.Variant)
		if !ok || seen[inst.ID] {
			dropped++
			continue
		}
		if opts.Max > 0 && len(out) >= opts.Max {
			dropped++
			continue
		}
		seen[inst.ID] = true
		out = append(out, inst)
	}
	return out, dropped
}

// Selection keeps raw only if it is a string naming one of instances.
// It is trimmed the same way record ids are.
func Selection(raw any, instances []scene.Instance) string {
	id, ok := raw.(string)
	id = strings.TrimSpace(id)
	if !ok || id == "" {
		return ""
	}
	for _, inst := range instances {
		if inst.ID == id {
			return id
		}
	}
	return ""
}

// instance repairs a single record. ok is false when the record must be dropped.
func instance(raw any, variant scene.Variant) (scene.Instance, bool) {
	obj, isObj := raw.(map[string]any)
	if !isObj {
		return scene.Instance{}, false
	}

	id, _ := obj["id"].(string)
	id = strings.TrimSpace(id)
	if id == "" {
		return scene.Instance{}, false
	}

	kind := variant.Kinds()[0]
	if k, present := obj["kind"]; present {
		ks, isStr := k.(string)
		if !isStr || !variant.Allows(scene.Kind(ks)) {
			return scene.Instance{}, false
		}
		kind = scene.Kind(ks)
	}

	inst := scene.Instance{
		ID:        id,
		Color:     Color(obj["color"], variant.DefaultColor()),
		Scale:     scale(obj["scale"]),
		Position:  vec3(obj["position"]),
		Rotation:  vec3(obj["rotation"]),
		CreatedAt: timestamp(obj["createdAt"]),
	}

	switch kind {
	case scene.KindBox:
		inst.Appearance = scene.Box{}
	case scene.KindSphere:
		inst.Appearance = scene.Sphere{}
	case scene.KindPlanet:
		name := Name(obj["name"])
		if name == "" {
			return scene.Instance{}, false
		}
		inst.Appearance = scene.Planet{
			Name:       name,
			HasRing:    boolean(obj["hasRing"]),
			HasCraters: boolean(obj["hasCraters"]),
		}
	default:
		return scene.Instance{}, false
	}
	return inst, true
}

// Color normalizes a "#rgb" or "#rrggbb" string to lowercase "#rrggbb".
// Anything else yields fallback.
func Color(raw any, fallback string) string {
	s, ok := raw.(string)
	if !ok {
		return fallback
	}
	s = strings.TrimSpace(s)
	if !colorPattern.MatchString(s) {
		return fallback
	}
	s = strings.ToLower(s)
	if len(s) == 4 {
		s = string([]byte{'#', s[1], s[1], s[2], s[2], s[3], s[3]})
	}
	return s
}

// Name drops invalid UTF-8, NFC-normalizes, trims and bounds a planet name.
// Non-strings yield "".
func Name(raw any) string {
	s, ok := raw.(string)
	if !ok {
		return ""
	}
	s = strings.TrimSpace(norm.NFC.String(strings.ToValidUTF8(s, "")))
	if utf8.RuneCountInString(s) > MaxNameRunes {
		s = strings.TrimSpace(string([]rune(s)[:MaxNameRunes]))
	}
	return s
}

func number(raw any) (float64, bool) {
	var f float64
	switch v := raw.(type) {
	case float64:
		f = v
	case float32:
		f = float64(v)
	case int:
		f = float64(v)
	case int64:
		f = float64(v)
	case json.Number:
		parsed, err := v.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func scale(raw any) float64 {
	f, ok := number(raw)
	if !ok || f <= 0 {
		return 1
	}
	return f
}

func vec3(raw any) scene.Vec3 {
	list, ok := raw.([]any)
	if !ok || len(list) != 3 {
		return scene.Vec3{}
	}
	var v scene.Vec3
	for i, elem := range list {
		f, ok := number(elem)
		if !ok {
			return scene.Vec3{}
		}
		v[i] = f
	}
	return v
}

func timestamp(raw any) int64 {
	f, ok := number(raw)
	if !ok || math.Abs(f) >= math.MaxInt64 {
		return 0
	}
	return int64(math.Trunc(f))
}

func boolean(raw any) bool {
	b, _ := raw.(bool)
	return b
}
