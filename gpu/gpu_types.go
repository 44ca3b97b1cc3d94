package gpu

import (
	"encoding/binary"
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"icoplanet/core"
)

// GPUVertex is the device-side layout of one displaced vertex: position
// followed by the scalar height, 16 bytes, little-endian.
type GPUVertex struct {
	X, Y, Z float32
	Height  float32
}

// VertexStride is the size of GPUVertex in a device buffer.
const VertexStride = 16

// PackVertices writes positions into buf in GPUVertex layout with a zero
// height and returns the used part of buf. buf is grown when too small.
func PackVertices(buf []byte, positions []mgl32.Vec3) []byte {
	n := len(positions) * VertexStride
	if cap(buf) < n {
		buf = make([]byte, n)
	}
	buf = buf[:n]
	for i, p := range positions {
		off := i * VertexStride
		binary.LittleEndian.PutUint32(buf[off:], math.Float32bits(p[0]))
		binary.LittleEndian.PutUint32(buf[off+4:], math.Float32bits(p[1]))
		binary.LittleEndian.PutUint32(buf[off+8:], math.Float32bits(p[2]))
		binary.LittleEndian.PutUint32(buf[off+12:], 0)
	}
	return buf
}

// UnpackVertices decodes n GPUVertex records from buf.
func UnpackVertices(buf []byte, n int) ([]mgl32.Vec3, []float32) {
	positions := make([]mgl32.Vec3, n)
	heights := make([]float32, n)
	for i := 0; i < n; i++ {
		off := i * VertexStride
		positions[i] = mgl32.Vec3{
			math.Float32frombits(binary.LittleEndian.Uint32(buf[off:])),
			math.Float32frombits(binary.LittleEndian.Uint32(buf[off+4:])),
			math.Float32frombits(binary.LittleEndian.Uint32(buf[off+8:])),
		}
		heights[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[off+12:]))
	}
	return positions, heights
}

// shaderParams is the uniform block shared by the WGSL and GLSL kernels.
type shaderParams struct {
	Size        float32
	CutOff      float32
	Persistence float32
	Lacunarity  float32
	Offset      mgl32.Vec3
	Relief      float32
	Octaves     uint32
	Count       uint32
}

// shaderParamsSize is padded to a 16-byte multiple for uniform buffers.
const shaderParamsSize = 48

func newShaderParams(p core.NoiseParameters, count int) shaderParams {
	return shaderParams{
		Size:        p.Size,
		CutOff:      p.CutOff,
		Persistence: p.Persistence,
		Lacunarity:  p.Lacunarity,
		Offset:      SeedOffset(p.Seed),
		Relief:      Relief,
		Octaves:     uint32(p.NumOctaves),
		Count:       uint32(count),
	}
}

func (s shaderParams) bytes() []byte {
	buf := make([]byte, shaderParamsSize)
	le := binary.LittleEndian
	le.PutUint32(buf[0:], math.Float32bits(s.Size))
	le.PutUint32(buf[4:], math.Float32bits(s.CutOff))
	le.PutUint32(buf[8:], math.Float32bits(s.Persistence))
	le.PutUint32(buf[12:], math.Float32bits(s.Lacunarity))
	le.PutUint32(buf[16:], math.Float32bits(s.Offset[0]))
	le.PutUint32(buf[20:], math.Float32bits(s.Offset[1]))
	le.PutUint32(buf[24:], math.Float32bits(s.Offset[2]))
	le.PutUint32(buf[28:], math.Float32bits(s.Relief))
	le.PutUint32(buf[32:], s.Octaves)
	le.PutUint32(buf[36:], s.Count)
	return buf
}
