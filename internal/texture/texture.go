// Package texture renders deterministic planet surface and ring images.
//
// All randomness is derived from the record id, so the same record always
// yields identical pixels.
package texture

import (
	"errors"
	"fmt"
	"hash/fnv"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"
	"strconv"

	"github.com/roach88/planetarium/internal/scene"
)

var (
	// ErrNotPlanet is returned for records that have no planet appearance.
	ErrNotPlanet = errors.New("instance is not a planet")
	// ErrNoRing is returned by Ring for planets without a ring.
	ErrNoRing = errors.New("planet has no ring")
)

const (
	// MinSize is the smallest accepted texture width.
	MinSize = 8
	// noiseCells is the number of value-noise cells around the equator at the
	// base octave. Horizontal lookups wrap at this period.
	noiseCells = 8
)

// Planet renders an equirectangular surface texture of size × size/2 pixels.
func Planet(inst scene.Instance, size int) (*image.RGBA, error) {
	p, ok := inst.Planet()
	if !ok {
		return nil, fmt.Errorf("texture %s: %w", inst.ID, ErrNotPlanet)
	}
	if size < MinSize {
		return nil, fmt.Errorf("texture size %d below minimum %d", size, MinSize)
	}
	base, err := parseHex(inst.Color)
	if err != nil {
		return nil, err
	}

	seed := seedOf(inst.ID)
	w, h := size, size/2
	img := image.NewRGBA(image.Rect(0, 0, w, h))

	bands := 5 + float64(seed%5)
	phase := float64(hash2(seed, 1)%1000) / 1000 * 2 * math.Pi
	craters := craterField(seed, p.HasCraters)

	for y := 0; y < h; y++ {
		v := (float64(y) + 0.5) / float64(h)
		band := 0.5 + 0.5*math.Sin(v*math.Pi*bands+phase)
		for x := 0; x < w; x++ {
			u := (float64(x) + 0.5) / float64(w)
			n := fbm(seed, u, v)
			shade := 0.62 + 0.18*band + 0.35*(n-0.5)
			shade *= craters.shade(u, v)
			img.SetRGBA(x, y, scaleColor(base, shade))
		}
	}
	return img, nil
}

// Ring renders a size × size ring seen face-on. Pixels outside the annulus
// are fully transparent.
func Ring(inst scene.Instance, size int) (*image.RGBA, error) {
	p, ok := inst.Planet()
	if !ok {
		return nil, fmt.Errorf("ring %s: %w", inst.ID, ErrNotPlanet)
	}
	if !p.HasRing {
		return nil, fmt.Errorf("ring %s: %w", inst.ID, ErrNoRing)
	}
	if size < MinSize {
		return nil, fmt.Errorf("texture size %d below minimum %d", size, MinSize)
	}
	base, err := parseHex(inst.Color)
	if err != nil {
		return nil, err
	}

	const inner, outer = 0.55, 0.95
	seed := seedOf(inst.ID)
	stripes := 12 + float64(seed%9)
	tint := mix(base, color.RGBA{R: 235, G: 225, B: 210, A: 255}, 0.5)

	img := image.NewRGBA(image.Rect(0, 0, size, size))
	half := float64(size) / 2
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			dx := (float64(x) + 0.5 - half) / half
			dy := (float64(y) + 0.5 - half) / half
			r := math.Hypot(dx, dy)
			if r < inner || r > outer {
				continue
			}
			t := (r - inner) / (outer - inner)
			density := 0.55 + 0.45*math.Sin(t*stripes*math.Pi)*noise1(seed, t*stripes)
			alpha := clamp01(density) * edgeFade(t)
			c := scaleColor(tint, 0.8+0.2*density)
			// premultiplied
			img.SetRGBA(x, y, color.RGBA{
				R: uint8(float64(c.R) * alpha),
				G: uint8(float64(c.G) * alpha),
				B: uint8(float64(c.B) * alpha),
				A: uint8(255 * alpha),
			})
		}
	}
	return img, nil
}

// EncodePNG writes img as PNG.
func EncodePNG(w io.Writer, img image.Image) error {
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}

type crater struct {
	u, v, radius, depth float64
}

type craters []crater

func craterField(seed uint32, enabled bool) craters {
	if !enabled {
		return nil
	}
	count := 6 + int(seed%6)
	out := make(craters, count)
	for i := range out {
		h := hash2(seed, uint32(100+i))
		out[i] = crater{
			u:      float64(h&0xffff) / 0xffff,
			v:      0.15 + 0.7*float64(h>>16)/0xffff,
			radius: 0.02 + 0.04*unit(hash2(h, 3)),
			depth:  0.25 + 0.2*unit(hash2(h, 4)),
		}
	}
	return out
}

// shade returns the brightness multiplier at (u, v): 1 outside every crater.
func (cs craters) shade(u, v float64) float64 {
	f := 1.0
	for _, c := range cs {
		du := math.Abs(u - c.u)
		if du > 0.5 {
			du = 1 - du
		}
		// longitude spans twice the latitude range
		d := math.Hypot(du*2, v-c.v)
		if d < c.radius {
			k := d / c.radius
			f *= 1 - c.depth*(1-k*k)
		}
	}
	return f
}

// fbm sums three octaves of wrapping value noise, normalized to [0, 1].
func fbm(seed uint32, u, v float64) float64 {
	sum, amp, norm := 0.0, 1.0, 0.0
	cells := noiseCells
	for octave := uint32(0); octave < 3; octave++ {
		sum += amp * valueNoise(seed+octave*7919, u*float64(cells), v*float64(cells)/2, cells)
		norm += amp
		amp *= 0.5
		cells *= 2
	}
	return sum / norm
}

// valueNoise interpolates hashed lattice values; x wraps at period.
func valueNoise(seed uint32, x, y float64, period int) float64 {
	x0, y0 := math.Floor(x), math.Floor(y)
	fx, fy := smooth(x-x0), smooth(y-y0)
	ix, iy := int(x0), int(y0)
	lattice := func(i, j int) float64 {
		i = ((i % period) + period) % period
		return unit(hash2(uint32(i)^seed, uint32(j)*0x27d4eb2d^seed))
	}
	a := lattice(ix, iy)
	b := lattice(ix+1, iy)
	c := lattice(ix, iy+1)
	d := lattice(ix+1, iy+1)
	top := a + (b-a)*fx
	bottom := c + (d-c)*fx
	return top + (bottom-top)*fy
}

func noise1(seed uint32, x float64) float64 {
	x0 := math.Floor(x)
	f := smooth(x - x0)
	a := unit(hash2(seed, uint32(int64(x0))))
	b := unit(hash2(seed, uint32(int64(x0)+1)))
	return a + (b-a)*f
}

func smooth(t float64) float64 { return t * t * (3 - 2*t) }

func edgeFade(t float64) float64 {
	const w = 0.08
	switch {
	case t < w:
		return t / w
	case t > 1-w:
		return (1 - t) / w
	default:
		return 1
	}
}

// hash2 mixes two integers into a well-distributed 32-bit value.
func hash2(x, z uint32) uint32 {
	h := x*0x9e3779b1 ^ z*0x85ebca6b
	h ^= h >> 16
	h *= 0x7feb352d
	h ^= h >> 15
	h *= 0x846ca68b
	h ^= h >> 16
	return h
}

func unit(h uint32) float64 { return float64(h) / math.MaxUint32 }

func seedOf(id string) uint32 {
	f := fnv.New32a()
	_, _ = f.Write([]byte(id))
	return f.Sum32()
}

func parseHex(s string) (color.RGBA, error) {
	if len(s) != 7 || s[0] != '#' {
		return color.RGBA{}, fmt.Errorf("invalid color %q", s)
	}
	n, err := strconv.ParseUint(s[1:], 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid color %q: %w", s, err)
	}
	return color.RGBA{R: uint8(n >> 16), G: uint8(n >> 8), B: uint8(n), A: 255}, nil
}

func scaleColor(c color.RGBA, f float64) color.RGBA {
	return color.RGBA{R: channel(c.R, f), G: channel(c.G, f), B: channel(c.B, f), A: c.A}
}

func channel(v uint8, f float64) uint8 {
	return uint8(math.Round(255 * clamp01(float64(v)/255*f)))
}

func mix(a, b color.RGBA, t float64) color.RGBA {
	lerp := func(x, y uint8) uint8 { return uint8(math.Round(float64(x) + (float64(y)-float64(x))*t)) }
	return color.RGBA{R: lerp(a.R, b.R), G: lerp(a.G, b.G), B: lerp(a.B, b.B), A: 255}
}

func clamp01(f float64) float64 {
	return math.Max(0, math.Min(1, f))
}
