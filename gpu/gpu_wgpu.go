//go:build !nogpu

package gpu

import (
	"context"
	_ "embed"
	"fmt"
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/naga"
	"github.com/gogpu/wgpu/hal"

	// Import Vulkan backend so it registers via init().
	_ "github.com/gogpu/wgpu/hal/vulkan"

	"icoplanet/core"
)

//go:embed shaders/displace.wgsl
var displaceShaderWGSL string

const (
	wgpuWorkgroupSize = 64
	wgpuWaitTimeout   = 5 * time.Second
)

// WGPUDisplacer runs the displacement kernel as a Vulkan compute pass.
// Pipelines live as long as the displacer; buffers live for one pass.
type WGPUDisplacer struct {
	mu sync.Mutex

	instance hal.Instance
	device   hal.Device
	queue    hal.Queue

	shader     hal.ShaderModule
	bindLayout hal.BindGroupLayout
	pipeLayout hal.PipelineLayout
	pipeline   hal.ComputePipeline

	adapter string
	scratch []byte
}

// NewWGPUDisplacer opens the first discrete or integrated GPU and builds
// the compute pipeline.
func NewWGPUDisplacer() (*WGPUDisplacer, error) {
	d := &WGPUDisplacer{}
	if err := d.initGPU(); err != nil {
		d.Cleanup()
		return nil, err
	}
	core.Logger().Info("wgpu displacer initialised", "adapter", d.adapter)
	return d, nil
}

func (d *WGPUDisplacer) Name() string { return "wgpu" }

// Adapter returns the name of the selected device.
func (d *WGPUDisplacer) Adapter() string { return d.adapter }

func (d *WGPUDisplacer) initGPU() error {
	backend, ok := hal.GetBackend(gputypes.BackendVulkan)
	if !ok {
		return fmt.Errorf("vulkan backend not available")
	}
	instance, err := backend.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return fmt.Errorf("create instance: %w", err)
	}
	d.instance = instance

	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		return fmt.Errorf("no GPU adapters found")
	}
	var selected *hal.ExposedAdapter
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU ||
			adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
			selected = &adapters[i]
			break
		}
	}
	if selected == nil {
		selected = &adapters[0]
	}
	openDev, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		return fmt.Errorf("open device: %w", err)
	}
	d.device = openDev.Device
	d.queue = openDev.Queue
	d.adapter = selected.Info.Name

	if err := d.createPipeline(); err != nil {
		return fmt.Errorf("create pipeline: %w", err)
	}
	return nil
}

// compileWGSL compiles WGSL to little-endian SPIR-V words.
func compileWGSL(src string) ([]uint32, error) {
	spirvBytes, err := naga.Compile(src)
	if err != nil {
		return nil, fmt.Errorf("compile shader: %w", err)
	}
	words := make([]uint32, len(spirvBytes)/4)
	for i := range words {
		words[i] = uint32(spirvBytes[i*4]) |
			uint32(spirvBytes[i*4+1])<<8 |
			uint32(spirvBytes[i*4+2])<<16 |
			uint32(spirvBytes[i*4+3])<<24
	}
	return words, nil
}

func (d *WGPUDisplacer) createPipeline() error {
	spirv, err := compileWGSL(displaceShaderWGSL)
	if err != nil {
		return err
	}
	shader, err := d.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  "displace",
		Source: hal.ShaderSource{SPIRV: spirv},
	})
	if err != nil {
		return fmt.Errorf("create shader module: %w", err)
	}
	d.shader = shader

	bindLayout, err := d.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "displace_bind_layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			{Binding: 0, Visibility: gputypes.ShaderStageCompute, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform}},
			{Binding: 1, Visibility: gputypes.ShaderStageCompute, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeStorage}},
		},
	})
	if err != nil {
		return fmt.Errorf("create bind group layout: %w", err)
	}
	d.bindLayout = bindLayout

	pipeLayout, err := d.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label: "displace_pipe_layout", BindGroupLayouts: []hal.BindGroupLayout{d.bindLayout},
	})
	if err != nil {
		return fmt.Errorf("create pipeline layout: %w", err)
	}
	d.pipeLayout = pipeLayout

	pipeline, err := d.device.CreateComputePipeline(&hal.ComputePipelineDescriptor{
		Label: "displace_pipeline", Layout: d.pipeLayout,
		Compute: hal.ComputeState{Module: d.shader, EntryPoint: "main"},
	})
	if err != nil {
		return fmt.Errorf("create compute pipeline: %w", err)
	}
	d.pipeline = pipeline
	return nil
}

// Displace implements Displacer. Every device buffer created here is
// destroyed before it returns, on success and on failure.
func (d *WGPUDisplacer) Displace(ctx context.Context, vertices []mgl32.Vec3, params core.NoiseParameters) ([]mgl32.Vec3, []float32, error) {
	if err := checkInput(vertices, params); err != nil {
		return nil, nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.device == nil || d.pipeline == nil {
		return nil, nil, displacementError(d.Name(), errClosed)
	}

	n := len(vertices)
	size := uint64(n * VertexStride)
	if len(d.scratch) != int(size) {
		d.scratch = make([]byte, size)
	}
	data := PackVertices(d.scratch, vertices)
	uniform := newShaderParams(params, n).bytes()

	paramsBuf, err := d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "displace_params", Size: shaderParamsSize,
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, nil, displacementError(d.Name(), fmt.Errorf("create params buffer: %w", err))
	}
	defer d.device.DestroyBuffer(paramsBuf)

	storageBuf, err := d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "displace_vertices", Size: size,
		Usage: gputypes.BufferUsageStorage | gputypes.BufferUsageCopySrc | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, nil, displacementError(d.Name(), fmt.Errorf("create vertex buffer: %w", err))
	}
	defer d.device.DestroyBuffer(storageBuf)

	stagingBuf, err := d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "displace_staging", Size: size,
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, nil, displacementError(d.Name(), fmt.Errorf("create staging buffer: %w", err))
	}
	defer d.device.DestroyBuffer(stagingBuf)

	d.queue.WriteBuffer(paramsBuf, 0, uniform)
	d.queue.WriteBuffer(storageBuf, 0, data)

	bindGroup, err := d.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label: "displace_bind", Layout: d.bindLayout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: 0, Resource: gputypes.BufferBinding{Buffer: paramsBuf.NativeHandle(), Offset: 0, Size: shaderParamsSize}},
			{Binding: 1, Resource: gputypes.BufferBinding{Buffer: storageBuf.NativeHandle(), Offset: 0, Size: size}},
		},
	})
	if err != nil {
		return nil, nil, displacementError(d.Name(), fmt.Errorf("create bind group: %w", err))
	}
	defer d.device.DestroyBindGroup(bindGroup)

	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	if err := d.submit(bindGroup, storageBuf, stagingBuf, uint32(n), size); err != nil {
		return nil, nil, displacementError(d.Name(), err)
	}

	if err := d.queue.ReadBuffer(stagingBuf, 0, data); err != nil {
		return nil, nil, displacementError(d.Name(), fmt.Errorf("readback: %w", err))
	}
	positions, heights := UnpackVertices(data, n)
	return positions, heights, nil
}

func (d *WGPUDisplacer) submit(bindGroup hal.BindGroup, storageBuf, stagingBuf hal.Buffer, n uint32, size uint64) error {
	encoder, err := d.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "displace_encoder"})
	if err != nil {
		return fmt.Errorf("create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("displace"); err != nil {
		return fmt.Errorf("begin encoding: %w", err)
	}

	pass := encoder.BeginComputePass(&hal.ComputePassDescriptor{Label: "displace_pass"})
	pass.SetPipeline(d.pipeline)
	pass.SetBindGroup(0, bindGroup, nil)
	pass.Dispatch((n+wgpuWorkgroupSize-1)/wgpuWorkgroupSize, 1, 1)
	pass.End()

	encoder.CopyBufferToBuffer(storageBuf, stagingBuf, []hal.BufferCopy{
		{SrcOffset: 0, DstOffset: 0, Size: size},
	})
	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("end encoding: %w", err)
	}
	defer d.device.FreeCommandBuffer(cmdBuf)

	fence, err := d.device.CreateFence()
	if err != nil {
		return fmt.Errorf("create fence: %w", err)
	}
	defer d.device.DestroyFence(fence)

	if err := d.queue.Submit([]hal.CommandBuffer{cmdBuf}, fence, 1); err != nil {
		return fmt.Errorf("submit: %w", err)
	}
	ok, err := d.device.Wait(fence, 1, wgpuWaitTimeout)
	if err != nil || !ok {
		return fmt.Errorf("wait for GPU: ok=%v err=%v", ok, err)
	}
	return nil
}

// Cleanup destroys the pipeline, the device and the instance.
func (d *WGPUDisplacer) Cleanup() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.device != nil {
		if d.pipeline != nil {
			d.device.DestroyComputePipeline(d.pipeline)
		}
		if d.pipeLayout != nil {
			d.device.DestroyPipelineLayout(d.pipeLayout)
		}
		if d.bindLayout != nil {
			d.device.DestroyBindGroupLayout(d.bindLayout)
		}
		if d.shader != nil {
			d.device.DestroyShaderModule(d.shader)
		}
		d.device.Destroy()
	}
	if d.instance != nil {
		d.instance.Destroy()
	}
	d.pipeline, d.pipeLayout, d.bindLayout, d.shader = nil, nil, nil, nil
	d.device, d.queue, d.instance = nil, nil, nil
	d.scratch = nil
}
