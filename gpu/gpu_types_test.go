package gpu

import (
	"encoding/binary"
	"math"
	"testing"
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"

	"icoplanet/core"
)

func TestGPUVertexLayout(t *testing.T) {
	if got := unsafe.Sizeof(GPUVertex{}); got != VertexStride {
		t.Fatalf("GPUVertex is %d bytes, want %d", got, VertexStride)
	}

	buf := PackVertices(nil, []mgl32.Vec3{{1, 2, 3}, {-4, 5, -6}})
	if len(buf) != 2*VertexStride {
		t.Fatalf("packed %d bytes, want %d", len(buf), 2*VertexStride)
	}
	if got := math.Float32frombits(binary.LittleEndian.Uint32(buf[VertexStride+8:])); got != -6 {
		t.Errorf("second vertex z = %v, want -6", got)
	}
	if got := binary.LittleEndian.Uint32(buf[12:]); got != 0 {
		t.Errorf("packed height = %d, want 0", got)
	}

	binary.LittleEndian.PutUint32(buf[VertexStride+12:], math.Float32bits(0.75))
	positions, heights := UnpackVertices(buf, 2)
	if positions[1] != (mgl32.Vec3{-4, 5, -6}) || heights[1] != 0.75 {
		t.Errorf("unpacked %v / %v", positions[1], heights[1])
	}
}

func TestShaderParamsBytes(t *testing.T) {
	p := core.DefaultNoiseParameters()
	p.Seed = 5
	sp := newShaderParams(p, 42)
	b := sp.bytes()
	if len(b) != shaderParamsSize || len(b)%16 != 0 {
		t.Fatalf("uniform block is %d bytes", len(b))
	}
	if got := binary.LittleEndian.Uint32(b[32:]); got != uint32(p.NumOctaves) {
		t.Errorf("octaves = %d, want %d", got, p.NumOctaves)
	}
	if got := binary.LittleEndian.Uint32(b[36:]); got != 42 {
		t.Errorf("count = %d, want 42", got)
	}
	if got := math.Float32frombits(binary.LittleEndian.Uint32(b[28:])); got != Relief {
		t.Errorf("relief = %v, want %v", got, Relief)
	}
}

func TestSeedOffset(t *testing.T) {
	a := SeedOffset(1)
	if a != SeedOffset(1) {
		t.Fatal("SeedOffset is not deterministic")
	}
	if a == SeedOffset(2) {
		t.Fatal("neighbouring seeds share an offset")
	}
	for _, seed := range []int32{0, 1, 9999, -7} {
		for _, c := range SeedOffset(seed) {
			if c < -1000 || c > 1000 {
				t.Fatalf("seed %d offset component %f out of range", seed, c)
			}
		}
	}
}

func TestNewBackend(t *testing.T) {
	d, err := NewBackend("CPU", 2)
	if err != nil {
		t.Fatal(err)
	}
	defer d.Cleanup()
	if d.Name() != "cpu" {
		t.Fatalf("got backend %q", d.Name())
	}

	if _, err := NewBackend("metal", 1); err == nil {
		t.Fatal("unknown backend accepted")
	}
}
