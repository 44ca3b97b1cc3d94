package gpu

import (
	"context"
	"runtime"
	"sync"

	"github.com/alitto/pond/v2"
	"github.com/go-gl/mathgl/mgl32"

	"icoplanet/core"
)

// cpuChunkSize is the number of vertices handed to one pool task.
const cpuChunkSize = 2048

// CPUDisplacer runs the displacement kernel on a worker pool. It is the
// reference backend and the fallback when no device is available.
type CPUDisplacer struct {
	mu      sync.Mutex
	workers int
	pool    pond.Pool
	scratch []GPUVertex
}

// NewCPUDisplacer creates a displacer with the given number of workers.
// workers <= 0 uses one per CPU.
func NewCPUDisplacer(workers int) *CPUDisplacer {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	core.Logger().Debug("cpu displacer initialised", "workers", workers)
	return &CPUDisplacer{
		workers: workers,
		pool:    pond.NewPool(workers),
	}
}

func (c *CPUDisplacer) Name() string { return "cpu" }

// Workers returns the pool size.
func (c *CPUDisplacer) Workers() int { return c.workers }

// Displace implements Displacer.
func (c *CPUDisplacer) Displace(ctx context.Context, vertices []mgl32.Vec3, params core.NoiseParameters) ([]mgl32.Vec3, []float32, error) {
	if err := checkInput(vertices, params); err != nil {
		return nil, nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.pool == nil {
		return nil, nil, displacementError(c.Name(), errClosed)
	}
	if len(c.scratch) != len(vertices) {
		c.scratch = make([]GPUVertex, len(vertices))
	}
	scratch := c.scratch

	f := newFractal(params)
	var wg sync.WaitGroup
	for start := 0; start < len(vertices); start += cpuChunkSize {
		end := start + cpuChunkSize
		if end > len(vertices) {
			end = len(vertices)
		}
		wg.Add(1)
		c.pool.Submit(func() {
			defer wg.Done()
			if ctx.Err() != nil {
				return
			}
			for i := start; i < end; i++ {
				pos, h := f.displace(vertices[i])
				scratch[i] = GPUVertex{X: pos[0], Y: pos[1], Z: pos[2], Height: h}
			}
		})
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	positions := make([]mgl32.Vec3, len(scratch))
	heights := make([]float32, len(scratch))
	for i, v := range scratch {
		positions[i] = mgl32.Vec3{v.X, v.Y, v.Z}
		heights[i] = v.Height
	}
	return positions, heights, nil
}

// Cleanup stops the pool and releases the scratch buffer.
func (c *CPUDisplacer) Cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pool != nil {
		c.pool.StopAndWait()
		c.pool = nil
	}
	c.scratch = nil
}
