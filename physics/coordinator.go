package physics

import (
	"sync"

	"github.com/go-gl/mathgl/mgl32"

	"icoplanet/core"
)

// ColliderState is the one-shot collider trigger state.
type ColliderState int

const (
	// Pending waits for the first pass at the maximum resolution level.
	Pending ColliderState = iota
	// Done is terminal; the collider and spawner have been run.
	Done
)

func (s ColliderState) String() string {
	switch s {
	case Pending:
		return "pending"
	case Done:
		return "done"
	default:
		return "unknown"
	}
}

// CollisionMesh is the geometry-only view of a FinalMesh handed to physics.
type CollisionMesh struct {
	Positions []mgl32.Vec3
	Triangles []core.Triangle
}

// NewCollisionMesh copies the geometry of m. Colours and normals are
// dropped.
func NewCollisionMesh(m *core.FinalMesh) CollisionMesh {
	return CollisionMesh{
		Positions: append([]mgl32.Vec3(nil), m.Positions...),
		Triangles: append([]core.Triangle(nil), m.Triangles...),
	}
}

// Collider receives the collision mesh and the planet's mass.
type Collider interface {
	SetCollisionMesh(mesh CollisionMesh, mass float32)
}

// Spawner places objects that depend on the finished planet.
type Spawner interface {
	Spawn()
}

// LevelSource reports the highest resolution level. It is consulted on
// every pass, so a table that grows or shrinks is picked up immediately.
type LevelSource interface {
	MaxLevel() int
}

// Coordinator builds the collision mesh and triggers spawning the first
// time a pass completes at the maximum resolution level, and never again.
// Later passes at that level leave the existing collider untouched.
type Coordinator struct {
	mu       sync.Mutex
	levels   LevelSource
	collider Collider
	spawner  Spawner
	state    ColliderState
}

// NewCoordinator creates a Pending coordinator. collider and spawner may be
// nil.
func NewCoordinator(levels LevelSource, collider Collider, spawner Spawner) *Coordinator {
	return &Coordinator{
		levels:   levels,
		collider: collider,
		spawner:  spawner,
	}
}

// State returns the current trigger state.
func (c *Coordinator) State() ColliderState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Observe is called after each successful pass. It reports whether the
// trigger fired.
func (c *Coordinator) Observe(m *core.FinalMesh, resolution int, mass float32) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == Done || c.levels == nil || m == nil {
		return false
	}
	top := c.levels.MaxLevel()
	if top < 0 || resolution != top {
		return false
	}

	if c.collider != nil {
		c.collider.SetCollisionMesh(NewCollisionMesh(m), mass)
	}
	if c.spawner != nil {
		c.spawner.Spawn()
	}
	c.state = Done
	core.Logger().Info("collision mesh built",
		"resolution", resolution,
		"vertices", m.VertexCount(),
		"triangles", m.TriangleCount())
	return true
}
