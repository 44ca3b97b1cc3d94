package gpu

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"icoplanet/core"
)

func near(a, b, eps float32) bool {
	return float32(math.Abs(float64(a-b))) <= eps
}

func TestCPUDisplacerDeterministic(t *testing.T) {
	d := NewCPUDisplacer(4)
	defer d.Cleanup()

	base := core.Icosphere(3).Vertices
	params := core.DefaultNoiseParameters()
	params.Seed = 1234

	p1, h1, err := d.Displace(context.Background(), base, params)
	if err != nil {
		t.Fatal(err)
	}
	p2, h2, err := d.Displace(context.Background(), base, params)
	if err != nil {
		t.Fatal(err)
	}
	for i := range p1 {
		if p1[i] != p2[i] || h1[i] != h2[i] {
			t.Fatalf("vertex %d differs between identical passes", i)
		}
	}

	other := NewCPUDisplacer(1)
	defer other.Cleanup()
	p3, _, err := other.Displace(context.Background(), base, params)
	if err != nil {
		t.Fatal(err)
	}
	for i := range p1 {
		if p1[i] != p3[i] {
			t.Fatalf("vertex %d depends on worker count", i)
		}
	}

	params.Seed = 99
	p4, _, err := d.Displace(context.Background(), base, params)
	if err != nil {
		t.Fatal(err)
	}
	same := true
	for i := range p1 {
		if p1[i] != p4[i] {
			same = false
			break
		}
	}
	if same {
		t.Error("different seeds produced identical surfaces")
	}
}

func TestCPUDisplacerIndexAlignment(t *testing.T) {
	d := NewCPUDisplacer(0)
	defer d.Cleanup()

	base := core.Icosphere(2).Vertices
	positions, heights, err := d.Displace(context.Background(), base, core.DefaultNoiseParameters())
	if err != nil {
		t.Fatal(err)
	}
	if len(positions) != len(base) || len(heights) != len(base) {
		t.Fatalf("got %d positions and %d heights for %d vertices", len(positions), len(heights), len(base))
	}

	for i, p := range positions {
		in := base[i].Normalize()
		out := p.Normalize()
		if in.Dot(out) < 0.9999 {
			t.Fatalf("vertex %d moved off its direction: %v -> %v", i, base[i], p)
		}
		r := p.Len()
		if r < 1-1e-3 || r > 1+Relief+1e-3 {
			t.Fatalf("vertex %d radius %f outside [1, %f]", i, r, 1+Relief)
		}
		if heights[i] < 0.5-1e-3 || heights[i] > 1+1e-3 {
			t.Fatalf("vertex %d height %f outside [0.5, 1]", i, heights[i])
		}
	}
}

func TestCPUDisplacerCutOffFloor(t *testing.T) {
	d := NewCPUDisplacer(2)
	defer d.Cleanup()

	params := core.DefaultNoiseParameters()
	params.CutOff = core.MaxCutOff

	positions, heights, err := d.Displace(context.Background(), core.Icosahedron().Vertices, params)
	if err != nil {
		t.Fatal(err)
	}
	wantR := float32(1 + core.MaxCutOff*Relief)
	wantH := float32((core.MaxCutOff + 1) / 2)
	for i := range positions {
		if !near(positions[i].Len(), wantR, 1e-5) {
			t.Errorf("vertex %d radius %f, want %f", i, positions[i].Len(), wantR)
		}
		if !near(heights[i], wantH, 1e-6) {
			t.Errorf("vertex %d height %f, want %f", i, heights[i], wantH)
		}
	}
}

func TestCPUDisplacerRejectsInput(t *testing.T) {
	d := NewCPUDisplacer(1)
	defer d.Cleanup()

	bad := core.DefaultNoiseParameters()
	bad.NumOctaves = 0

	tests := []struct {
		name     string
		vertices []mgl32.Vec3
		params   core.NoiseParameters
	}{
		{"empty", nil, core.DefaultNoiseParameters()},
		{"zero octaves", core.Icosahedron().Vertices, bad},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := d.Displace(context.Background(), tc.vertices, tc.params)
			if !errors.Is(err, core.ErrInvalidParameter) {
				t.Fatalf("got %v, want ErrInvalidParameter", err)
			}
		})
	}
}

func TestCPUDisplacerVaryingSizes(t *testing.T) {
	d := NewCPUDisplacer(2)
	defer d.Cleanup()

	for _, level := range []int{3, 0, 4, 1} {
		base := core.Icosphere(level).Vertices
		positions, _, err := d.Displace(context.Background(), base, core.DefaultNoiseParameters())
		if err != nil {
			t.Fatalf("level %d: %v", level, err)
		}
		if len(positions) != len(base) {
			t.Fatalf("level %d: got %d positions, want %d", level, len(positions), len(base))
		}
		if len(d.scratch) != len(base) {
			t.Fatalf("level %d: scratch holds %d entries, want %d", level, len(d.scratch), len(base))
		}
	}
}

func TestCPUDisplacerCancelled(t *testing.T) {
	d := NewCPUDisplacer(2)
	defer d.Cleanup()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, _, err := d.Displace(ctx, core.Icosphere(2).Vertices, core.DefaultNoiseParameters()); !errors.Is(err, context.Canceled) {
		t.Fatalf("got %v, want context.Canceled", err)
	}
}

func TestCPUDisplacerAfterCleanup(t *testing.T) {
	d := NewCPUDisplacer(1)
	d.Cleanup()
	if d.scratch != nil {
		t.Error("scratch buffer survived Cleanup")
	}
	_, _, err := d.Displace(context.Background(), core.Icosahedron().Vertices, core.DefaultNoiseParameters())
	if !errors.Is(err, core.ErrDisplacementFailure) {
		t.Fatalf("got %v, want ErrDisplacementFailure", err)
	}
}

func TestDispatchWait(t *testing.T) {
	d := NewCPUDisplacer(2)
	defer d.Cleanup()

	base := core.Icosphere(1).Vertices
	pending := Dispatch(context.Background(), d, base, core.DefaultNoiseParameters())
	res, err := pending.Wait()
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Positions) != len(base) || len(res.Heights) != len(base) {
		t.Fatalf("got %d/%d results for %d vertices", len(res.Positions), len(res.Heights), len(base))
	}
	select {
	case <-pending.Done():
	default:
		t.Fatal("Done not closed after Wait returned")
	}
}

type shortDisplacer struct{}

func (shortDisplacer) Name() string { return "short" }
func (shortDisplacer) Cleanup()     {}
func (shortDisplacer) Displace(_ context.Context, v []mgl32.Vec3, _ core.NoiseParameters) ([]mgl32.Vec3, []float32, error) {
	return v[:len(v)-1], make([]float32, len(v)), nil
}

func TestDispatchRejectsMisalignedResult(t *testing.T) {
	_, err := Dispatch(context.Background(), shortDisplacer{}, core.Icosahedron().Vertices, core.DefaultNoiseParameters()).Wait()
	if !errors.Is(err, core.ErrDisplacementFailure) {
		t.Fatalf("got %v, want ErrDisplacementFailure", err)
	}
}
