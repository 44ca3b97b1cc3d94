// Package export renders published planets to flat preview images and
// writes them as WebP or PNG.
package export

import (
	"fmt"
	"image"
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/gogpu/gg"

	"icoplanet/core"
)

// Options control the preview raster.
type Options struct {
	Width      int
	Height     int
	Background core.RGBA

	// Shade darkens faces by their normal against a light from +X.
	Shade bool
}

// DefaultOptions returns a 2:1 map with a near-black background.
func DefaultOptions() Options {
	return Options{
		Width:      1024,
		Height:     512,
		Background: core.RGBA{R: 0.02, G: 0.02, B: 0.05, A: 1},
	}
}

func (o Options) validate() error {
	if o.Width <= 0 || o.Height <= 0 {
		return fmt.Errorf("%w: preview size %dx%d", core.ErrInvalidParameter, o.Width, o.Height)
	}
	return nil
}

// ColorMap projects the mesh colours onto an equirectangular map.
func ColorMap(m *core.FinalMesh, opts Options) (image.Image, error) {
	if m == nil {
		return nil, fmt.Errorf("%w: nil mesh", core.ErrMeshIntegrity)
	}
	if len(m.Colors) != len(m.Positions) {
		return nil, fmt.Errorf("%w: %d colors for %d positions", core.ErrMeshIntegrity, len(m.Colors), len(m.Positions))
	}
	return rasterize(m, m.Colors, opts)
}

// HeightMap projects per-vertex heights as greyscale.
func HeightMap(m *core.FinalMesh, heights []float32, opts Options) (image.Image, error) {
	if m == nil {
		return nil, fmt.Errorf("%w: nil mesh", core.ErrMeshIntegrity)
	}
	if len(heights) != len(m.Positions) {
		return nil, fmt.Errorf("%w: %d heights for %d positions", core.ErrMeshIntegrity, len(heights), len(m.Positions))
	}
	grey := make([]core.RGBA, len(heights))
	for i, h := range heights {
		grey[i] = core.RGBA{R: h, G: h, B: h, A: 1}
	}
	return rasterize(m, grey, opts)
}

func rasterize(m *core.FinalMesh, colors []core.RGBA, opts Options) (image.Image, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if len(m.Positions) == 0 {
		return nil, fmt.Errorf("%w: empty mesh", core.ErrMeshIntegrity)
	}
	if err := core.CheckTriangles(m.Triangles, len(m.Positions)); err != nil {
		return nil, err
	}

	w, h := float64(opts.Width), float64(opts.Height)
	dc := gg.NewContext(opts.Width, opts.Height)
	defer dc.Close()
	bg := opts.Background
	dc.ClearWithColor(gg.RGBA2(float64(bg.R), float64(bg.G), float64(bg.B), float64(bg.A)))

	light := mgl32.Vec3{1, 0, 0}
	for _, tri := range m.Triangles {
		var xs, ys [3]float64
		var polar [3]bool
		var c core.RGBA
		for k, idx := range tri {
			xs[k], ys[k], polar[k] = project(m.Positions[idx], w, h)
			col := colors[idx]
			c.R += col.R / 3
			c.G += col.G / 3
			c.B += col.B / 3
			c.A += col.A / 3
		}
		if opts.Shade {
			a, b, cc := m.Positions[tri[0]], m.Positions[tri[1]], m.Positions[tri[2]]
			n := b.Sub(a).Cross(cc.Sub(a))
			if n.Len() > 0 {
				lambert := 0.25 + 0.75*max(0, n.Normalize().Dot(light))
				c.R, c.G, c.B = c.R*lambert, c.G*lambert, c.B*lambert
			}
		}

		// Triangles crossing the antimeridian are unwrapped to the right
		// and drawn a second time shifted back by one map width.
		wraps := unwrap(&xs, polar, w)
		poly := polygon(xs, ys, polar)
		dc.SetRGBA(float64(c.R), float64(c.G), float64(c.B), float64(c.A))
		if err := fillPolygon(dc, poly, 0); err != nil {
			return nil, err
		}
		if wraps {
			if err := fillPolygon(dc, poly, -w); err != nil {
				return nil, err
			}
		}
	}
	return dc.Image(), nil
}

// project maps a point to equirectangular pixel coordinates. Longitude 0
// sits at the map centre and +Y is north. Points on the axis have no
// longitude and are reported as polar.
func project(p mgl32.Vec3, w, h float64) (x, y float64, polar bool) {
	d := p.Normalize()
	if math.Hypot(float64(d.X()), float64(d.Z())) < 1e-6 {
		polar = true
	}
	lon := math.Atan2(float64(d.Z()), float64(d.X()))
	lat := math.Asin(math.Max(-1, math.Min(1, float64(d.Y()))))
	x = (lon + math.Pi) / (2 * math.Pi) * w
	y = (math.Pi/2 - lat) / math.Pi * h
	return x, y, polar
}

func unwrap(xs *[3]float64, polar [3]bool, w float64) bool {
	lo, hi := math.Inf(1), math.Inf(-1)
	for k, x := range xs {
		if !polar[k] {
			lo = math.Min(lo, x)
			hi = math.Max(hi, x)
		}
	}
	if hi-lo <= w/2 {
		return false
	}
	for k := range xs {
		if !polar[k] && xs[k] < w/2 {
			xs[k] += w
		}
	}
	return true
}

type point struct{ x, y float64 }

// polygon expands a polar vertex into an edge along the map border,
// spanning the longitudes of its two neighbours.
func polygon(xs, ys [3]float64, polar [3]bool) []point {
	poly := make([]point, 0, 4)
	for k := range 3 {
		if !polar[k] {
			poly = append(poly, point{xs[k], ys[k]})
			continue
		}
		prev, next := (k+2)%3, (k+1)%3
		poly = append(poly, point{xs[prev], ys[k]}, point{xs[next], ys[k]})
	}
	return poly
}

func fillPolygon(dc *gg.Context, poly []point, dx float64) error {
	dc.MoveTo(poly[0].x+dx, poly[0].y)
	for _, p := range poly[1:] {
		dc.LineTo(p.x+dx, p.y)
	}
	dc.ClosePath()
	return dc.Fill()
}
