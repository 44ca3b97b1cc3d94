//go:build raylib

package main

import (
	"runtime"

	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/go-gl/mathgl/mgl32"

	"icoplanet/core"
)

// maxIndexed is the largest vertex count raylib's 16-bit index buffer can
// address. Larger meshes are uploaded unindexed.
const maxIndexed = 1 << 16

type meshBuffers struct {
	vertices []float32
	normals  []float32
	colors   []uint8
	indices  []uint16
}

func (b *meshBuffers) add(p, n mgl32.Vec3, c [4]uint8) {
	b.vertices = append(b.vertices, p[0], p[1], p[2])
	b.normals = append(b.normals, n[0], n[1], n[2])
	b.colors = append(b.colors, c[:]...)
}

func uploadMesh(m *core.FinalMesh) rl.Mesh {
	var b meshBuffers
	if m.VertexCount() <= maxIndexed {
		for i, p := range m.Positions {
			b.add(p, m.Normals[i], m.Colors[i].Bytes())
		}
		for _, tri := range m.Triangles {
			b.indices = append(b.indices, uint16(tri[0]), uint16(tri[1]), uint16(tri[2]))
		}
	} else {
		for _, tri := range m.Triangles {
			for _, idx := range tri {
				b.add(m.Positions[idx], m.Normals[idx], m.Colors[idx].Bytes())
			}
		}
	}
	return b.upload(m.TriangleCount())
}

func uploadShell(positions []mgl32.Vec3, triangles []core.Triangle, c rl.Color) rl.Mesh {
	var b meshBuffers
	rgba := [4]uint8{c.R, c.G, c.B, c.A}
	for _, p := range positions {
		b.add(p, p.Normalize(), rgba)
	}
	for _, tri := range triangles {
		b.indices = append(b.indices, uint16(tri[0]), uint16(tri[1]), uint16(tri[2]))
	}
	return b.upload(len(triangles))
}

// upload copies the buffers into GPU memory. The CPU-side pointers are
// cleared afterwards so raylib never frees Go memory.
func (b *meshBuffers) upload(triangles int) rl.Mesh {
	var pinner runtime.Pinner
	defer pinner.Unpin()

	mesh := rl.Mesh{
		VertexCount:   int32(len(b.vertices) / 3),
		TriangleCount: int32(triangles),
	}
	pinner.Pin(&b.vertices[0])
	pinner.Pin(&b.normals[0])
	pinner.Pin(&b.colors[0])
	mesh.Vertices = &b.vertices[0]
	mesh.Normals = &b.normals[0]
	mesh.Colors = &b.colors[0]
	if len(b.indices) > 0 {
		pinner.Pin(&b.indices[0])
		mesh.Indices = &b.indices[0]
	}

	rl.UploadMesh(&mesh, false)

	mesh.Vertices = nil
	mesh.Normals = nil
	mesh.Colors = nil
	mesh.Indices = nil
	return mesh
}
