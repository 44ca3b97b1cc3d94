// Package mesh combines displaced positions, colours and the base topology
// into a renderable mesh.
package mesh

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"icoplanet/core"
)

// Assemble builds a FinalMesh. Triangles are copied verbatim; normals are
// recomputed from the displaced positions.
func Assemble(positions []mgl32.Vec3, triangles []core.Triangle, colors []core.RGBA) (*core.FinalMesh, error) {
	if len(positions) == 0 {
		return nil, fmt.Errorf("%w: no positions", core.ErrMeshIntegrity)
	}
	if len(colors) != len(positions) {
		return nil, fmt.Errorf("%w: %d colours for %d positions", core.ErrMeshIntegrity, len(colors), len(positions))
	}
	if err := core.CheckTriangles(triangles, len(positions)); err != nil {
		return nil, err
	}

	m := &core.FinalMesh{
		Positions: append([]mgl32.Vec3(nil), positions...),
		Triangles: append([]core.Triangle(nil), triangles...),
		Colors:    append([]core.RGBA(nil), colors...),
	}
	m.Normals = ComputeNormals(m.Positions, m.Triangles)
	return m, nil
}

// ComputeNormals returns area-weighted vertex normals. Vertices no
// triangle references get a zero normal.
func ComputeNormals(positions []mgl32.Vec3, triangles []core.Triangle) []mgl32.Vec3 {
	normals := make([]mgl32.Vec3, len(positions))
	for _, tri := range triangles {
		a, b, c := positions[tri[0]], positions[tri[1]], positions[tri[2]]
		n := b.Sub(a).Cross(c.Sub(a))
		normals[tri[0]] = normals[tri[0]].Add(n)
		normals[tri[1]] = normals[tri[1]].Add(n)
		normals[tri[2]] = normals[tri[2]].Add(n)
	}
	for i, n := range normals {
		if l := n.Len(); l > 0 {
			normals[i] = n.Mul(1 / l)
		}
	}
	return normals
}

// Bounds returns the axis-aligned box enclosing positions.
func Bounds(positions []mgl32.Vec3) (lo, hi mgl32.Vec3) {
	if len(positions) == 0 {
		return
	}
	lo, hi = positions[0], positions[0]
	for _, p := range positions[1:] {
		for k := 0; k < 3; k++ {
			if p[k] < lo[k] {
				lo[k] = p[k]
			}
			if p[k] > hi[k] {
				hi[k] = p[k]
			}
		}
	}
	return lo, hi
}
