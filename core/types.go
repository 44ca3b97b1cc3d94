package core

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Triangle holds three vertex indices. Indices are uint32 so meshes above
// 65,536 vertices stay addressable.
type Triangle [3]uint32

// RGBA is an sRGB colour with components in [0, 1]. Alpha is linear.
type RGBA struct {
	R, G, B, A float32
}

// Bytes returns the colour quantised to 8 bits per channel.
func (c RGBA) Bytes() [4]uint8 {
	return [4]uint8{to8(c.R), to8(c.G), to8(c.B), to8(c.A)}
}

func to8(v float32) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(v*255 + 0.5)
}

// NoiseParameters drives one generation pass. It is immutable for the
// duration of the pass and always passed by value.
type NoiseParameters struct {
	Size        float32 `json:"size"`
	CutOff      float32 `json:"cutOff"`
	Seed        int32   `json:"seed"`
	Persistence float32 `json:"persistence"`
	Lacunarity  float32 `json:"lacunarity"`
	NumOctaves  int32   `json:"numOctaves"`
	PlanetSize  float32 `json:"planetSize"`
	Mass        float32 `json:"mass"`
}

// CutOff bounds accepted by Validate.
const (
	MinCutOff = -1.1
	MaxCutOff = 1.1
)

// DefaultNoiseParameters mirrors the values the planet prefab ships with.
func DefaultNoiseParameters() NoiseParameters {
	return NoiseParameters{
		Size:        1.5,
		CutOff:      0,
		Seed:        0,
		Persistence: 0.5,
		Lacunarity:  2,
		NumOctaves:  6,
		PlanetSize:  10,
		Mass:        100,
	}
}

// Validate reports caller errors before any resource is acquired.
func (p NoiseParameters) Validate() error {
	if p.NumOctaves < 1 {
		return fmt.Errorf("%w: numOctaves must be >= 1, got %d", ErrInvalidParameter, p.NumOctaves)
	}
	if p.CutOff < MinCutOff || p.CutOff > MaxCutOff {
		return fmt.Errorf("%w: cutOff %.3f outside [%.1f, %.1f]", ErrInvalidParameter, p.CutOff, MinCutOff, MaxCutOff)
	}
	if p.PlanetSize <= 0 {
		return fmt.Errorf("%w: planetSize must be positive, got %.3f", ErrInvalidParameter, p.PlanetSize)
	}
	fields := []struct {
		name string
		v    float32
	}{
		{"size", p.Size},
		{"cutOff", p.CutOff},
		{"persistence", p.Persistence},
		{"lacunarity", p.Lacunarity},
		{"planetSize", p.PlanetSize},
		{"mass", p.Mass},
	}
	for _, f := range fields {
		v := float64(f.v)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s is not finite", ErrInvalidParameter, f.name)
		}
	}
	return nil
}

// BaseMesh is an undisplaced icosphere for one resolution level. The
// pipeline only ever reads it.
type BaseMesh struct {
	Level     int
	Vertices  []mgl32.Vec3
	Triangles []Triangle
}

// Validate checks that every triangle references an existing vertex.
func (m *BaseMesh) Validate() error {
	if len(m.Vertices) == 0 {
		return fmt.Errorf("%w: base mesh level %d has no vertices", ErrMeshIntegrity, m.Level)
	}
	return CheckTriangles(m.Triangles, len(m.Vertices))
}

// CheckTriangles returns ErrMeshIntegrity for the first out-of-range index.
func CheckTriangles(triangles []Triangle, vertexCount int) error {
	n := uint32(vertexCount)
	for i, tri := range triangles {
		for _, idx := range tri {
			if idx >= n {
				return fmt.Errorf("%w: triangle %d references vertex %d of %d", ErrMeshIntegrity, i, idx, vertexCount)
			}
		}
	}
	return nil
}

// FinalMesh is the renderable output of one pass. A published FinalMesh is
// never modified again; a new pass replaces it as a whole.
type FinalMesh struct {
	Positions []mgl32.Vec3
	Triangles []Triangle
	Colors    []RGBA
	Normals   []mgl32.Vec3
}

// VertexCount returns the number of vertices.
func (m *FinalMesh) VertexCount() int { return len(m.Positions) }

// TriangleCount returns the number of triangles.
func (m *FinalMesh) TriangleCount() int { return len(m.Triangles) }

// Indices flattens the triangle list into a uint32 index buffer.
func (m *FinalMesh) Indices() []uint32 {
	indices := make([]uint32, 0, len(m.Triangles)*3)
	for _, tri := range m.Triangles {
		indices = append(indices, tri[0], tri[1], tri[2])
	}
	return indices
}
