package core

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Icosahedron returns the level 0 base mesh: 12 unit vertices, 20 faces.
func Icosahedron() *BaseMesh {
	t := float32((1.0 + math.Sqrt(5.0)) / 2.0)

	vertices := []mgl32.Vec3{
		{-1, t, 0}, {1, t, 0}, {-1, -t, 0}, {1, -t, 0},
		{0, -1, t}, {0, 1, t}, {0, -1, -t}, {0, 1, -t},
		{t, 0, -1}, {t, 0, 1}, {-t, 0, -1}, {-t, 0, 1},
	}
	for i := range vertices {
		vertices[i] = vertices[i].Normalize()
	}

	triangles := []Triangle{
		{0, 11, 5}, {0, 5, 1}, {0, 1, 7}, {0, 7, 10}, {0, 10, 11},
		{1, 5, 9}, {5, 11, 4}, {11, 10, 2}, {10, 7, 6}, {7, 1, 8},
		{3, 9, 4}, {3, 4, 2}, {3, 2, 6}, {3, 6, 8}, {3, 8, 9},
		{4, 9, 5}, {2, 4, 11}, {6, 2, 10}, {8, 6, 7}, {9, 8, 1},
	}

	return &BaseMesh{Level: 0, Vertices: vertices, Triangles: triangles}
}

// Subdivide splits every triangle into four and pushes the new midpoints
// back onto the unit sphere. Shared edges reuse the same midpoint vertex.
func Subdivide(m *BaseMesh) *BaseMesh {
	midpoints := make(map[[2]uint32]uint32, len(m.Triangles)*3/2)
	vertices := make([]mgl32.Vec3, len(m.Vertices), len(m.Vertices)+len(m.Triangles)*3/2)
	copy(vertices, m.Vertices)
	triangles := make([]Triangle, 0, len(m.Triangles)*4)

	getMidpoint := func(i1, i2 uint32) uint32 {
		key := [2]uint32{i1, i2}
		if i1 > i2 {
			key = [2]uint32{i2, i1}
		}
		if mid, exists := midpoints[key]; exists {
			return mid
		}
		mid := m.Vertices[i1].Add(m.Vertices[i2]).Mul(0.5).Normalize()
		vertices = append(vertices, mid)
		idx := uint32(len(vertices) - 1)
		midpoints[key] = idx
		return idx
	}

	for _, tri := range m.Triangles {
		v1, v2, v3 := tri[0], tri[1], tri[2]
		m1 := getMidpoint(v1, v2)
		m2 := getMidpoint(v2, v3)
		m3 := getMidpoint(v3, v1)

		triangles = append(triangles,
			Triangle{v1, m1, m3},
			Triangle{v2, m2, m1},
			Triangle{v3, m3, m2},
			Triangle{m1, m2, m3},
		)
	}

	return &BaseMesh{Level: m.Level + 1, Vertices: vertices, Triangles: triangles}
}

// Icosphere builds the base mesh for the given subdivision level.
func Icosphere(level int) *BaseMesh {
	m := Icosahedron()
	for i := 0; i < level; i++ {
		m = Subdivide(m)
	}
	return m
}

// IcosphereVertexCount is the vertex count of a level: 10 * 4^level + 2.
func IcosphereVertexCount(level int) int {
	count := 10
	for i := 0; i < level; i++ {
		count *= 4
	}
	return count + 2
}

// IcosphereTriangleCount is the face count of a level: 20 * 4^level.
func IcosphereTriangleCount(level int) int {
	count := 20
	for i := 0; i < level; i++ {
		count *= 4
	}
	return count
}
