package physics

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"icoplanet/core"
)

type recordingCollider struct {
	calls int
	mesh  CollisionMesh
	mass  float32
}

func (r *recordingCollider) SetCollisionMesh(m CollisionMesh, mass float32) {
	r.calls++
	r.mesh = m
	r.mass = mass
}

type countingSpawner struct{ calls int }

func (s *countingSpawner) Spawn() { s.calls++ }

type levels int

func (l levels) MaxLevel() int { return int(l) }

func testMesh() *core.FinalMesh {
	base := core.Icosahedron()
	return &core.FinalMesh{
		Positions: base.Vertices,
		Triangles: base.Triangles,
		Colors:    make([]core.RGBA, len(base.Vertices)),
		Normals:   base.Vertices,
	}
}

func TestCoordinatorFiresOnce(t *testing.T) {
	collider := &recordingCollider{}
	spawner := &countingSpawner{}
	lod := core.LODTable{Distances: []float32{100, 50, 10}}
	c := NewCoordinator(lod, collider, spawner)

	if c.State() != Pending {
		t.Fatalf("initial state %v", c.State())
	}

	m := testMesh()
	if c.Observe(m, 0, 10) || c.Observe(m, 1, 10) {
		t.Fatal("fired below the maximum level")
	}
	if collider.calls != 0 || spawner.calls != 0 {
		t.Fatal("collaborators called below the maximum level")
	}

	if !c.Observe(m, 2, 42) {
		t.Fatal("did not fire at the maximum level")
	}
	if c.Observe(m, 2, 43) {
		t.Fatal("fired twice")
	}

	if collider.calls != 1 || spawner.calls != 1 {
		t.Fatalf("collider called %d times, spawner %d times", collider.calls, spawner.calls)
	}
	if collider.mass != 42 {
		t.Errorf("mass = %v, want 42", collider.mass)
	}
	if len(collider.mesh.Positions) != m.VertexCount() || len(collider.mesh.Triangles) != m.TriangleCount() {
		t.Errorf("collision mesh has %d/%d, want %d/%d",
			len(collider.mesh.Positions), len(collider.mesh.Triangles), m.VertexCount(), m.TriangleCount())
	}
	if c.State() != Done {
		t.Fatalf("state %v, want done", c.State())
	}
}

func TestCoordinatorReadsLevelEveryPass(t *testing.T) {
	src := levels(3)
	c := NewCoordinator(&src, nil, nil)
	m := testMesh()

	if c.Observe(m, 2, 1) {
		t.Fatal("fired at level 2 with max 3")
	}
	src = 2
	if !c.Observe(m, 2, 1) {
		t.Fatal("did not pick up the new maximum level")
	}
}

func TestCoordinatorInert(t *testing.T) {
	tests := []struct {
		name   string
		levels LevelSource
	}{
		{"nil table", nil},
		{"empty table", core.LODTable{}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			spawner := &countingSpawner{}
			c := NewCoordinator(tc.levels, nil, spawner)
			if c.Observe(testMesh(), 0, 1) || c.Observe(testMesh(), -1, 1) {
				t.Fatal("fired without a maximum level")
			}
			if spawner.calls != 0 {
				t.Fatal("spawner called")
			}
		})
	}
}

func TestCollisionMeshIsCopy(t *testing.T) {
	m := testMesh()
	cm := NewCollisionMesh(m)
	cm.Positions[0] = mgl32.Vec3{7, 7, 7}
	if m.Positions[0] == cm.Positions[0] {
		t.Fatal("collision mesh aliases the published mesh")
	}
}

func TestMeshColliderBounds(t *testing.T) {
	c := NewMeshCollider()
	if c.Contains(mgl32.Vec3{}) {
		t.Fatal("empty collider contains a point")
	}

	c.SetCollisionMesh(CollisionMesh{Positions: []mgl32.Vec3{{1, 0, 0}, {0, -2, 0}, {0, 0, 0.5}}}, 12)
	lo, hi := c.Bounds()
	if lo != (mgl32.Vec3{0, -2, 0}) || hi != (mgl32.Vec3{1, 0, 0.5}) {
		t.Fatalf("bounds %v %v", lo, hi)
	}
	if c.Radius() != 2 || c.Mass() != 12 {
		t.Fatalf("radius %v mass %v", c.Radius(), c.Mass())
	}
	if !c.Contains(mgl32.Vec3{0, 1, 0}) || c.Contains(mgl32.Vec3{3, 0, 0}) {
		t.Fatal("Contains disagrees with radius")
	}

	c.SetCollisionMesh(CollisionMesh{Positions: []mgl32.Vec3{{5, 5, 5}}}, 1)
	lo, hi = c.Bounds()
	if lo != hi || lo != (mgl32.Vec3{5, 5, 5}) {
		t.Fatalf("bounds not recomputed: %v %v", lo, hi)
	}
	if c.Updates() != 2 {
		t.Fatalf("updates = %d", c.Updates())
	}
}

func TestGravityWell(t *testing.T) {
	g := NewGravityWell()
	var _ GravityReceiver = g

	g.SetMass(400)
	if got := g.SurfaceGravity(10); got != 4 {
		t.Fatalf("surface gravity = %v, want 4", got)
	}
	if got := g.Acceleration(0); got != 0 {
		t.Fatalf("acceleration at centre = %v", got)
	}
}
