package gpu

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/ojrac/opensimplex-go"

	"icoplanet/core"
)

// Relief scales the noise elevation into a radial offset on the unit sphere.
const Relief = 0.1

// SeedOffset maps a seed to a fixed translation of the noise domain. The
// device kernels have no seeded permutation table, so the seed moves the
// sample point instead.
func SeedOffset(seed int32) mgl32.Vec3 {
	h := uint64(uint32(seed)) + 0x9e3779b97f4a7c15
	var out mgl32.Vec3
	for i := range out {
		h = splitmix(h)
		out[i] = float32(h>>40)/float32(1<<24)*2000 - 1000
	}
	return out
}

func splitmix(x uint64) uint64 {
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}

// fractal evaluates layered simplex noise for one parameter set. It holds
// no mutable state and is safe for concurrent use.
type fractal struct {
	noise  opensimplex.Noise
	params core.NoiseParameters
	offset mgl32.Vec3
}

func newFractal(p core.NoiseParameters) fractal {
	return fractal{
		noise:  opensimplex.New(int64(p.Seed)),
		params: p,
		offset: SeedOffset(p.Seed),
	}
}

// value returns the octave sum at dir normalised to [-1, 1].
func (f fractal) value(dir mgl32.Vec3) float32 {
	freq := float64(f.params.Size)
	amp := 1.0
	var sum, norm float64
	for o := int32(0); o < f.params.NumOctaves; o++ {
		x := float64(dir[0])*freq + float64(f.offset[0])
		y := float64(dir[1])*freq + float64(f.offset[1])
		z := float64(dir[2])*freq + float64(f.offset[2])
		sum += amp * f.noise.Eval3(x, y, z)
		norm += math.Abs(amp)
		amp *= float64(f.params.Persistence)
		freq *= float64(f.params.Lacunarity)
	}
	if norm == 0 {
		return 0
	}
	return float32(sum / norm)
}

// displace returns the displaced position and normalised height of p.
func (f fractal) displace(p mgl32.Vec3) (mgl32.Vec3, float32) {
	dir := p
	if l := p.Len(); l > 0 {
		dir = p.Mul(1 / l)
	}
	e := f.value(dir)
	if e < f.params.CutOff {
		e = f.params.CutOff
	}
	return dir.Mul(1 + e*Relief), (e + 1) / 2
}
