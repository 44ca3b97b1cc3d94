package core

import (
	"errors"
	"math"
	"testing"
)

func TestIcosphereCounts(t *testing.T) {
	tests := []struct {
		level     int
		vertices  int
		triangles int
	}{
		{0, 12, 20},
		{1, 42, 80},
		{2, 162, 320},
		{3, 642, 1280},
		{4, 2562, 5120},
	}

	for _, tc := range tests {
		m := Icosphere(tc.level)
		if len(m.Vertices) != tc.vertices {
			t.Errorf("level %d: got %d vertices, want %d", tc.level, len(m.Vertices), tc.vertices)
		}
		if len(m.Triangles) != tc.triangles {
			t.Errorf("level %d: got %d triangles, want %d", tc.level, len(m.Triangles), tc.triangles)
		}
		if got := IcosphereVertexCount(tc.level); got != tc.vertices {
			t.Errorf("IcosphereVertexCount(%d) = %d, want %d", tc.level, got, tc.vertices)
		}
		if got := IcosphereTriangleCount(tc.level); got != tc.triangles {
			t.Errorf("IcosphereTriangleCount(%d) = %d, want %d", tc.level, got, tc.triangles)
		}
		if err := m.Validate(); err != nil {
			t.Errorf("level %d: %v", tc.level, err)
		}
	}
}

func TestIcosphereUnitRadius(t *testing.T) {
	m := Icosphere(3)
	for i, v := range m.Vertices {
		if l := v.Len(); math.Abs(float64(l)-1) > 1e-5 {
			t.Fatalf("vertex %d has length %f", i, l)
		}
	}
}

func TestIcosphereCacheMaxLevel(t *testing.T) {
	cache := NewIcosphereCache(DefaultMaxLevel)

	m, err := cache.BaseMesh(DefaultMaxLevel)
	if err != nil {
		t.Fatalf("level %d: %v", DefaultMaxLevel, err)
	}
	if len(m.Vertices) != IcosphereVertexCount(DefaultMaxLevel) {
		t.Fatalf("got %d vertices, want %d", len(m.Vertices), IcosphereVertexCount(DefaultMaxLevel))
	}
	if len(m.Vertices) <= 65536 {
		t.Fatalf("max level should exceed the 16-bit index range, got %d vertices", len(m.Vertices))
	}
	if err := m.Validate(); err != nil {
		t.Fatal(err)
	}

	again, err := cache.BaseMesh(DefaultMaxLevel)
	if err != nil {
		t.Fatal(err)
	}
	if again != m {
		t.Error("cache returned a different instance for the same level")
	}
}

func TestIcosphereCacheUnavailable(t *testing.T) {
	cache := NewIcosphereCache(2)
	for _, level := range []int{-1, 3, 100} {
		if _, err := cache.BaseMesh(level); !errors.Is(err, ErrResolutionUnavailable) {
			t.Errorf("level %d: got %v, want ErrResolutionUnavailable", level, err)
		}
	}
}

func TestStaticSource(t *testing.T) {
	src := StaticSource{0: Icosahedron()}
	if _, err := src.BaseMesh(0); err != nil {
		t.Fatal(err)
	}
	if _, err := src.BaseMesh(1); !errors.Is(err, ErrResolutionUnavailable) {
		t.Errorf("got %v, want ErrResolutionUnavailable", err)
	}
}

func TestCheckTriangles(t *testing.T) {
	tris := []Triangle{{0, 1, 2}, {2, 3, 0}}
	if err := CheckTriangles(tris, 4); err != nil {
		t.Fatalf("in range: %v", err)
	}
	if err := CheckTriangles(tris, 3); !errors.Is(err, ErrMeshIntegrity) {
		t.Fatalf("got %v, want ErrMeshIntegrity", err)
	}
}

func TestGenerateWaterShell(t *testing.T) {
	positions, triangles := GenerateWaterShell(2, 8, 4)
	if len(positions) != 9*5 {
		t.Fatalf("got %d positions, want %d", len(positions), 9*5)
	}
	if len(triangles) != 8*4*2 {
		t.Fatalf("got %d triangles, want %d", len(triangles), 8*4*2)
	}
	if err := CheckTriangles(triangles, len(positions)); err != nil {
		t.Fatal(err)
	}
	for i, p := range positions {
		if l := p.Len(); math.Abs(float64(l)-2) > 1e-4 {
			t.Fatalf("position %d has radius %f", i, l)
		}
	}
}
