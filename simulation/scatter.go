package simulation

import (
	"math/rand/v2"
	"sync"

	"github.com/go-gl/mathgl/mgl32"

	"icoplanet/core"
)

// Surface is the published planet geometry a scatter reads from.
type Surface interface {
	Vertices() []mgl32.Vec3
	Heights() []float32
	Scale() mgl32.Vec3
	SeaHeight() float32
}

// Placement is an object standing on the planet surface.
type Placement struct {
	Vertex   int        `json:"vertex"`
	Position mgl32.Vec3 `json:"position"`
	Up       mgl32.Vec3 `json:"up"`
}

// SurfaceScatter places objects on land vertices, those strictly above the
// surface's sea height.
type SurfaceScatter struct {
	mu         sync.Mutex
	surface    Surface
	count      int
	rng        *rand.Rand
	placements []Placement
}

// NewSurfaceScatter creates a spawner that places up to count objects.
func NewSurfaceScatter(surface Surface, count int, seed uint64) *SurfaceScatter {
	return &SurfaceScatter{
		surface: surface,
		count:   count,
		rng:     rand.New(rand.NewPCG(seed, 2)),
	}
}

// SetSurface binds the scatter to a surface built after the spawner, such
// as the planet that owns it.
func (s *SurfaceScatter) SetSurface(surface Surface) {
	s.mu.Lock()
	s.surface = surface
	s.mu.Unlock()
}

// Spawn replaces the placements with a fresh sample of land vertices.
func (s *SurfaceScatter) Spawn() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.surface == nil {
		s.placements = nil
		return
	}
	vertices := s.surface.Vertices()
	heights := s.surface.Heights()
	if len(vertices) == 0 || len(vertices) != len(heights) {
		s.placements = nil
		return
	}

	sea := s.surface.SeaHeight()
	land := make([]int, 0, len(heights))
	for i, h := range heights {
		if h > sea {
			land = append(land, i)
		}
	}

	n := min(max(s.count, 0), len(land))
	s.rng.Shuffle(len(land), func(i, j int) { land[i], land[j] = land[j], land[i] })

	scale := s.surface.Scale()
	s.placements = make([]Placement, 0, n)
	for _, idx := range land[:n] {
		v := vertices[idx]
		s.placements = append(s.placements, Placement{
			Vertex:   idx,
			Position: mgl32.Vec3{v[0] * scale[0], v[1] * scale[1], v[2] * scale[2]},
			Up:       v.Normalize(),
		})
	}
	core.Logger().Info("surface objects placed", "count", n, "land", len(land))
}

// Placements returns the current placements.
func (s *SurfaceScatter) Placements() []Placement {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Placement(nil), s.placements...)
}
