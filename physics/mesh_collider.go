package physics

import (
	"sync"

	"github.com/go-gl/mathgl/mgl32"
)

// MeshCollider is a static triangle-mesh collider. Bounds are recomputed
// each time a mesh is received.
type MeshCollider struct {
	mu      sync.RWMutex
	mesh    CollisionMesh
	mass    float32
	min     mgl32.Vec3
	max     mgl32.Vec3
	radius  float32
	updates int
}

// NewMeshCollider creates an empty collider.
func NewMeshCollider() *MeshCollider {
	return &MeshCollider{}
}

// SetCollisionMesh implements Collider.
func (c *MeshCollider) SetCollisionMesh(mesh CollisionMesh, mass float32) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.mesh = mesh
	c.mass = mass
	c.min, c.max = mgl32.Vec3{}, mgl32.Vec3{}
	c.radius = 0
	for i, p := range mesh.Positions {
		if i == 0 {
			c.min, c.max = p, p
		}
		for k := 0; k < 3; k++ {
			if p[k] < c.min[k] {
				c.min[k] = p[k]
			}
			if p[k] > c.max[k] {
				c.max[k] = p[k]
			}
		}
		if l := p.Len(); l > c.radius {
			c.radius = l
		}
	}
	c.updates++
}

// Bounds returns the axis-aligned bounding box of the current mesh.
func (c *MeshCollider) Bounds() (lo, hi mgl32.Vec3) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.min, c.max
}

// Radius returns the distance of the farthest vertex from the origin.
func (c *MeshCollider) Radius() float32 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.radius
}

// Mass returns the mass received with the mesh.
func (c *MeshCollider) Mass() float32 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.mass
}

// Updates returns how many meshes the collider has received.
func (c *MeshCollider) Updates() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.updates
}

// Mesh returns the current collision mesh.
func (c *MeshCollider) Mesh() CollisionMesh {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.mesh
}

// Contains reports whether p lies inside the bounding sphere.
func (c *MeshCollider) Contains(p mgl32.Vec3) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.updates > 0 && p.Len() <= c.radius
}
