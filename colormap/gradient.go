// Package colormap turns per-vertex heights into vertex colours.
package colormap

import (
	"fmt"
	"math"
	"strings"

	"github.com/gogpu/gg"

	"icoplanet/core"
)

// Lookup maps a scalar in [0, 1] to a colour. Values outside the range
// clamp to the end colours.
type Lookup interface {
	Evaluate(t float32) core.RGBA
}

// Stop is one colour stop of a Gradient.
type Stop struct {
	Offset float32   `json:"offset"`
	Color  core.RGBA `json:"color"`
}

// Gradient is a piecewise-linear colour ramp over [0, 1]. Stop colours are
// sRGB and blend in linear light, matching gg's gradient brushes. It is
// immutable and safe for concurrent use.
type Gradient struct {
	stops []Stop
	// stop colours with RGB decoded to linear light
	linear []core.RGBA
}

// NewGradient validates stops and builds the ramp. Offsets must lie in
// [0, 1] and be non-decreasing.
func NewGradient(stops []Stop) (*Gradient, error) {
	if len(stops) == 0 {
		return nil, fmt.Errorf("%w: no colour stops", core.ErrMalformedGradient)
	}

	linear := make([]core.RGBA, len(stops))
	prev := float32(math.Inf(-1))
	for i, s := range stops {
		if math.IsNaN(float64(s.Offset)) || s.Offset < 0 || s.Offset > 1 {
			return nil, fmt.Errorf("%w: stop %d offset %v outside [0, 1]", core.ErrMalformedGradient, i, s.Offset)
		}
		if s.Offset < prev {
			return nil, fmt.Errorf("%w: stop %d offset %v is below the previous stop", core.ErrMalformedGradient, i, s.Offset)
		}
		prev = s.Offset
		linear[i] = core.RGBA{R: decodeSRGB(s.Color.R), G: decodeSRGB(s.Color.G), B: decodeSRGB(s.Color.B), A: s.Color.A}
	}

	return &Gradient{
		stops:  append([]Stop(nil), stops...),
		linear: linear,
	}, nil
}

// Evaluate implements Lookup. It does not allocate, since it runs once per
// vertex.
func (g *Gradient) Evaluate(t float32) core.RGBA {
	if len(g.stops) == 1 {
		return g.stops[0].Color
	}
	switch {
	case math.IsNaN(float64(t)) || t < 0:
		t = 0
	case t > 1:
		t = 1
	}

	i := 0
	for i < len(g.stops) && g.stops[i].Offset < t {
		i++
	}
	if i == 0 {
		return g.stops[0].Color
	}
	if i == len(g.stops) {
		return g.stops[i-1].Color
	}
	a, b := g.stops[i-1], g.stops[i]
	if a.Offset == b.Offset {
		return a.Color
	}

	f := (t - a.Offset) / (b.Offset - a.Offset)
	la, lb := g.linear[i-1], g.linear[i]
	return core.RGBA{
		R: encodeSRGB(la.R + f*(lb.R-la.R)),
		G: encodeSRGB(la.G + f*(lb.G-la.G)),
		B: encodeSRGB(la.B + f*(lb.B-la.B)),
		A: la.A + f*(lb.A-la.A),
	}
}

// Stops returns a copy of the gradient's stops.
func (g *Gradient) Stops() []Stop {
	return append([]Stop(nil), g.stops...)
}

// decodeSRGB and encodeSRGB are the sRGB transfer functions gg applies
// around gradient interpolation.
func decodeSRGB(s float32) float32 {
	if s <= 0.04045 {
		return s / 12.92
	}
	return float32(math.Pow(float64((s+0.055)/1.055), 2.4))
}

func encodeSRGB(l float32) float32 {
	if l <= 0.0031308 {
		return l * 12.92
	}
	return 1.055*float32(math.Pow(float64(l), 1.0/2.4)) - 0.055
}

func fromGG(c gg.RGBA) core.RGBA {
	return core.RGBA{R: float32(c.R), G: float32(c.G), B: float32(c.B), A: float32(c.A)}
}

// StopSpec is the configuration form of a Stop.
type StopSpec struct {
	Offset float32 `json:"offset"`
	Hex    string  `json:"hex"`
}

// ParseStops converts hex stop specs, as found in settings files, into
// gradient stops.
func ParseStops(specs []StopSpec) ([]Stop, error) {
	stops := make([]Stop, 0, len(specs))
	for i, s := range specs {
		if !validHex(s.Hex) {
			return nil, fmt.Errorf("%w: stop %d has invalid colour %q", core.ErrMalformedGradient, i, s.Hex)
		}
		stops = append(stops, Stop{Offset: s.Offset, Color: fromGG(gg.Hex(s.Hex))})
	}
	return stops, nil
}

func validHex(s string) bool {
	s = strings.TrimPrefix(s, "#")
	switch len(s) {
	case 3, 4, 6, 8:
	default:
		return false
	}
	for _, c := range s {
		if !strings.ContainsRune("0123456789abcdefABCDEF", c) {
			return false
		}
	}
	return true
}

// TerrainStops is the default ramp from deep ocean to snow caps.
var TerrainStops = []StopSpec{
	{Offset: 0.00, Hex: "#0b1d51"},
	{Offset: 0.45, Hex: "#1f5fa8"},
	{Offset: 0.50, Hex: "#3a8fd1"},
	{Offset: 0.53, Hex: "#e3d49a"},
	{Offset: 0.60, Hex: "#4f9a3a"},
	{Offset: 0.75, Hex: "#2f6b2a"},
	{Offset: 0.88, Hex: "#7a6a5a"},
	{Offset: 1.00, Hex: "#f4f6f8"},
}

// Terrain returns the default terrain gradient.
func Terrain() *Gradient {
	stops, err := ParseStops(TerrainStops)
	if err != nil {
		panic(err)
	}
	g, err := NewGradient(stops)
	if err != nil {
		panic(err)
	}
	return g
}

// Colorize evaluates lookup once per height. Output index i corresponds to
// heights[i].
func Colorize(heights []float32, lookup Lookup) ([]core.RGBA, error) {
	if lookup == nil {
		return nil, fmt.Errorf("%w: no colour lookup", core.ErrMalformedGradient)
	}
	colors := make([]core.RGBA, len(heights))
	for i, h := range heights {
		colors[i] = lookup.Evaluate(h)
	}
	return colors, nil
}
