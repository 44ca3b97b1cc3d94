//go:build opengl

package gpu

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"sync"

	"github.com/go-gl/gl/v4.3-core/gl"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/go-gl/mathgl/mgl32"

	"icoplanet/core"
)

const glWorkgroupSize = 64

// displaceShaderGLSL mirrors shaders/displace.wgsl for OpenGL 4.3.
const displaceShaderGLSL = `
#version 430 core

layout(local_size_x = 64, local_size_y = 1, local_size_z = 1) in;

struct Vertex {
    vec3 position;
    float height;
};

layout(std430, binding = 0) buffer Vertices {
    Vertex vertices[];
};

uniform float size;
uniform float cutOff;
uniform float persistence;
uniform float lacunarity;
uniform vec3 offset;
uniform float relief;
uniform uint octaves;
uniform uint count;

vec3 mod289(vec3 x) { return x - floor(x * (1.0 / 289.0)) * 289.0; }
vec4 mod289(vec4 x) { return x - floor(x * (1.0 / 289.0)) * 289.0; }
vec4 permute(vec4 x) { return mod289(((x * 34.0) + 1.0) * x); }
vec4 taylorInvSqrt(vec4 r) { return 1.79284291400159 - 0.85373472095314 * r; }

float snoise(vec3 v) {
    const vec2 C = vec2(1.0 / 6.0, 1.0 / 3.0);
    const vec4 D = vec4(0.0, 0.5, 1.0, 2.0);

    vec3 i = floor(v + dot(v, C.yyy));
    vec3 x0 = v - i + dot(i, C.xxx);

    vec3 g = step(x0.yzx, x0.xyz);
    vec3 l = 1.0 - g;
    vec3 i1 = min(g.xyz, l.zxy);
    vec3 i2 = max(g.xyz, l.zxy);

    vec3 x1 = x0 - i1 + C.xxx;
    vec3 x2 = x0 - i2 + C.yyy;
    vec3 x3 = x0 - D.yyy;

    i = mod289(i);
    vec4 p = permute(permute(permute(
        i.z + vec4(0.0, i1.z, i2.z, 1.0))
        + i.y + vec4(0.0, i1.y, i2.y, 1.0))
        + i.x + vec4(0.0, i1.x, i2.x, 1.0));

    float n_ = 0.142857142857;
    vec3 ns = n_ * D.wyz - D.xzx;

    vec4 j = p - 49.0 * floor(p * ns.z * ns.z);

    vec4 x_ = floor(j * ns.z);
    vec4 y_ = floor(j - 7.0 * x_);

    vec4 x = x_ * ns.x + ns.yyyy;
    vec4 y = y_ * ns.x + ns.yyyy;
    vec4 h = 1.0 - abs(x) - abs(y);

    vec4 b0 = vec4(x.xy, y.xy);
    vec4 b1 = vec4(x.zw, y.zw);

    vec4 s0 = floor(b0) * 2.0 + 1.0;
    vec4 s1 = floor(b1) * 2.0 + 1.0;
    vec4 sh = -step(h, vec4(0.0));

    vec4 a0 = b0.xzyw + s0.xzyw * sh.xxyy;
    vec4 a1 = b1.xzyw + s1.xzyw * sh.zzww;

    vec3 p0 = vec3(a0.xy, h.x);
    vec3 p1 = vec3(a0.zw, h.y);
    vec3 p2 = vec3(a1.xy, h.z);
    vec3 p3 = vec3(a1.zw, h.w);

    vec4 norm = taylorInvSqrt(vec4(dot(p0, p0), dot(p1, p1), dot(p2, p2), dot(p3, p3)));
    p0 *= norm.x;
    p1 *= norm.y;
    p2 *= norm.z;
    p3 *= norm.w;

    vec4 m = max(0.6 - vec4(dot(x0, x0), dot(x1, x1), dot(x2, x2), dot(x3, x3)), 0.0);
    m = m * m;
    return 42.0 * dot(m * m, vec4(dot(p0, x0), dot(p1, x1), dot(p2, x2), dot(p3, x3)));
}

void main() {
    uint idx = gl_GlobalInvocationID.x;
    if (idx >= count) {
        return;
    }

    vec3 p = vertices[idx].position;
    float r = length(p);
    vec3 dir = r > 0.0 ? p / r : p;

    float freq = size;
    float amp = 1.0;
    float sum = 0.0;
    float total = 0.0;
    for (uint o = 0u; o < octaves; o++) {
        sum += amp * snoise(dir * freq + offset);
        total += abs(amp);
        amp *= persistence;
        freq *= lacunarity;
    }

    float e = total > 0.0 ? sum / total : 0.0;
    e = max(e, cutOff);

    vertices[idx].position = dir * (1.0 + e * relief);
    vertices[idx].height = (e + 1.0) * 0.5;
}
`

type glJob struct {
	data   []byte
	params shaderParams
	reply  chan error
}

// GLDisplacer runs the displacement kernel as an OpenGL compute shader.
// The GL context belongs to one locked OS thread; Displace hands work to
// that thread and waits for it.
type GLDisplacer struct {
	mu      sync.Mutex
	jobs    chan glJob
	quit    chan struct{}
	stopped chan struct{}
	once    sync.Once
	scratch []byte
}

// NewGLDisplacer creates a hidden window for its GL 4.3 context and
// compiles the compute program.
func NewGLDisplacer() (*GLDisplacer, error) {
	d := &GLDisplacer{
		jobs:    make(chan glJob),
		quit:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	ready := make(chan error, 1)
	go d.run(ready)
	if err := <-ready; err != nil {
		return nil, err
	}
	return d, nil
}

func (d *GLDisplacer) Name() string { return "opengl" }

func (d *GLDisplacer) run(ready chan<- error) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(d.stopped)

	if err := glfw.Init(); err != nil {
		ready <- fmt.Errorf("failed to initialize glfw: %w", err)
		return
	}
	defer glfw.Terminate()

	glfw.WindowHint(glfw.Visible, glfw.False)
	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 3)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)

	window, err := glfw.CreateWindow(1, 1, "icoplanet compute", nil, nil)
	if err != nil {
		ready <- fmt.Errorf("failed to create hidden window: %w", err)
		return
	}
	defer window.Destroy()
	window.MakeContextCurrent()

	if err := gl.Init(); err != nil {
		ready <- fmt.Errorf("failed to initialize OpenGL: %w", err)
		return
	}

	program, err := compileComputeShader(displaceShaderGLSL)
	if err != nil {
		ready <- err
		return
	}
	defer gl.DeleteProgram(program)

	core.Logger().Info("opengl displacer initialised", "version", gl.GoStr(gl.GetString(gl.VERSION)))
	ready <- nil

	for {
		select {
		case job := <-d.jobs:
			job.reply <- runDisplaceProgram(program, job.data, job.params)
		case <-d.quit:
			return
		}
	}
}

func compileComputeShader(source string) (uint32, error) {
	shader := gl.CreateShader(gl.COMPUTE_SHADER)

	csource, free := gl.Strs(source + "\x00")
	gl.ShaderSource(shader, 1, csource, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLength)
		log := strings.Repeat("\x00", int(logLength+1))
		gl.GetShaderInfoLog(shader, logLength, nil, gl.Str(log))
		gl.DeleteShader(shader)
		return 0, fmt.Errorf("compute shader compilation failed: %s", log)
	}

	program := gl.CreateProgram()
	gl.AttachShader(program, shader)
	gl.LinkProgram(program)
	gl.DeleteShader(shader)

	gl.GetProgramiv(program, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetProgramiv(program, gl.INFO_LOG_LENGTH, &logLength)
		log := strings.Repeat("\x00", int(logLength+1))
		gl.GetProgramInfoLog(program, logLength, nil, gl.Str(log))
		gl.DeleteProgram(program)
		return 0, fmt.Errorf("compute program link failed: %s", log)
	}

	return program, nil
}

func runDisplaceProgram(program uint32, data []byte, p shaderParams) error {
	var ssbo uint32
	gl.GenBuffers(1, &ssbo)
	defer gl.DeleteBuffers(1, &ssbo)

	gl.BindBuffer(gl.SHADER_STORAGE_BUFFER, ssbo)
	gl.BufferData(gl.SHADER_STORAGE_BUFFER, len(data), gl.Ptr(data), gl.DYNAMIC_COPY)
	gl.BindBufferBase(gl.SHADER_STORAGE_BUFFER, 0, ssbo)

	gl.UseProgram(program)
	gl.Uniform1f(gl.GetUniformLocation(program, gl.Str("size\x00")), p.Size)
	gl.Uniform1f(gl.GetUniformLocation(program, gl.Str("cutOff\x00")), p.CutOff)
	gl.Uniform1f(gl.GetUniformLocation(program, gl.Str("persistence\x00")), p.Persistence)
	gl.Uniform1f(gl.GetUniformLocation(program, gl.Str("lacunarity\x00")), p.Lacunarity)
	gl.Uniform3f(gl.GetUniformLocation(program, gl.Str("offset\x00")), p.Offset[0], p.Offset[1], p.Offset[2])
	gl.Uniform1f(gl.GetUniformLocation(program, gl.Str("relief\x00")), p.Relief)
	gl.Uniform1ui(gl.GetUniformLocation(program, gl.Str("octaves\x00")), p.Octaves)
	gl.Uniform1ui(gl.GetUniformLocation(program, gl.Str("count\x00")), p.Count)

	gl.DispatchCompute((p.Count+glWorkgroupSize-1)/glWorkgroupSize, 1, 1)
	gl.MemoryBarrier(gl.SHADER_STORAGE_BARRIER_BIT | gl.BUFFER_UPDATE_BARRIER_BIT)

	gl.GetBufferSubData(gl.SHADER_STORAGE_BUFFER, 0, len(data), gl.Ptr(data))
	gl.BindBuffer(gl.SHADER_STORAGE_BUFFER, 0)

	if code := gl.GetError(); code != gl.NO_ERROR {
		return fmt.Errorf("gl error 0x%x", code)
	}
	return nil
}

// Displace implements Displacer.
func (d *GLDisplacer) Displace(ctx context.Context, vertices []mgl32.Vec3, params core.NoiseParameters) ([]mgl32.Vec3, []float32, error) {
	if err := checkInput(vertices, params); err != nil {
		return nil, nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	n := len(vertices)
	if len(d.scratch) != n*VertexStride {
		d.scratch = make([]byte, n*VertexStride)
	}
	data := PackVertices(d.scratch, vertices)

	job := glJob{data: data, params: newShaderParams(params, n), reply: make(chan error, 1)}
	select {
	case d.jobs <- job:
	case <-d.stopped:
		return nil, nil, displacementError(d.Name(), errClosed)
	case <-ctx.Done():
		return nil, nil, ctx.Err()
	}
	if err := <-job.reply; err != nil {
		return nil, nil, displacementError(d.Name(), err)
	}

	positions, heights := UnpackVertices(data, n)
	return positions, heights, nil
}

// Cleanup stops the GL thread and destroys its context.
func (d *GLDisplacer) Cleanup() {
	d.once.Do(func() {
		close(d.quit)
		<-d.stopped
	})
	d.mu.Lock()
	d.scratch = nil
	d.mu.Unlock()
}
