package mesh

import (
	"errors"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"icoplanet/core"
)

func greyColors(n int) []core.RGBA {
	colors := make([]core.RGBA, n)
	for i := range colors {
		colors[i] = core.RGBA{R: 0.5, G: 0.5, B: 0.5, A: 1}
	}
	return colors
}

func TestAssemblePreservesTopology(t *testing.T) {
	base := core.Icosphere(2)
	m, err := Assemble(base.Vertices, base.Triangles, greyColors(len(base.Vertices)))
	if err != nil {
		t.Fatal(err)
	}

	if m.VertexCount() != len(base.Vertices) || len(m.Colors) != len(base.Vertices) || len(m.Normals) != len(base.Vertices) {
		t.Fatalf("length mismatch: %d positions, %d colours, %d normals for %d vertices",
			m.VertexCount(), len(m.Colors), len(m.Normals), len(base.Vertices))
	}
	if m.TriangleCount() != len(base.Triangles) {
		t.Fatalf("got %d triangles, want %d", m.TriangleCount(), len(base.Triangles))
	}
	for i := range base.Triangles {
		if m.Triangles[i] != base.Triangles[i] {
			t.Fatalf("triangle %d changed: %v -> %v", i, base.Triangles[i], m.Triangles[i])
		}
	}

	idx := m.Indices()
	if len(idx) != 3*len(base.Triangles) || idx[3] != base.Triangles[1][0] {
		t.Fatalf("flattened indices do not follow triangle order")
	}
}

func TestAssembleCopiesInputs(t *testing.T) {
	base := core.Icosahedron()
	positions := append([]mgl32.Vec3(nil), base.Vertices...)
	triangles := append([]core.Triangle(nil), base.Triangles...)

	m, err := Assemble(positions, triangles, greyColors(len(positions)))
	if err != nil {
		t.Fatal(err)
	}
	positions[0] = mgl32.Vec3{9, 9, 9}
	triangles[0] = core.Triangle{1, 1, 1}
	if m.Positions[0] == positions[0] || m.Triangles[0] == triangles[0] {
		t.Fatal("assembled mesh aliases caller slices")
	}
}

func TestAssembleIntegrityErrors(t *testing.T) {
	base := core.Icosahedron()
	n := len(base.Vertices)

	tests := []struct {
		name      string
		positions []mgl32.Vec3
		triangles []core.Triangle
		colors    []core.RGBA
	}{
		{"no positions", nil, nil, nil},
		{"colour count", base.Vertices, base.Triangles, greyColors(n - 1)},
		{"index out of range", base.Vertices, []core.Triangle{{0, 1, uint32(n)}}, greyColors(n)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Assemble(tc.positions, tc.triangles, tc.colors); !errors.Is(err, core.ErrMeshIntegrity) {
				t.Fatalf("got %v, want ErrMeshIntegrity", err)
			}
		})
	}
}

func TestComputeNormalsOutward(t *testing.T) {
	base := core.Icosphere(2)
	normals := ComputeNormals(base.Vertices, base.Triangles)
	for i, n := range normals {
		if d := n.Dot(base.Vertices[i]); d < 0.95 {
			t.Fatalf("normal %d points inward or sideways: dot=%f", i, d)
		}
		if l := n.Len(); l < 0.999 || l > 1.001 {
			t.Fatalf("normal %d has length %f", i, l)
		}
	}
}

func TestComputeNormalsUnreferenced(t *testing.T) {
	positions := []mgl32.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {5, 5, 5}}
	normals := ComputeNormals(positions, []core.Triangle{{0, 1, 2}})
	if normals[3] != (mgl32.Vec3{}) {
		t.Errorf("unreferenced vertex normal = %v, want zero", normals[3])
	}
	if normals[0] != (mgl32.Vec3{0, 0, 1}) {
		t.Errorf("normal = %v, want +Z", normals[0])
	}
}

func TestAssembleBeyond16BitIndices(t *testing.T) {
	const n = 70000
	positions := make([]mgl32.Vec3, n)
	for i := range positions {
		positions[i] = mgl32.Vec3{float32(i), 0, 0}
	}
	positions[n-1] = mgl32.Vec3{0, 1, 0}
	tri := core.Triangle{0, 1, n - 1}

	m, err := Assemble(positions, []core.Triangle{tri}, greyColors(n))
	if err != nil {
		t.Fatal(err)
	}
	if got := m.Indices()[2]; got != n-1 {
		t.Fatalf("index truncated: got %d, want %d", got, n-1)
	}
}

func TestBounds(t *testing.T) {
	lo, hi := Bounds([]mgl32.Vec3{{1, -2, 3}, {-1, 4, 0}, {0, 0, -5}})
	if lo != (mgl32.Vec3{-1, -2, -5}) || hi != (mgl32.Vec3{1, 4, 3}) {
		t.Fatalf("got %v %v", lo, hi)
	}
}
