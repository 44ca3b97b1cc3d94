package gpu

import (
	"context"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"icoplanet/core"
)

// Displacer moves every base-mesh vertex along its direction from the
// planet centre by a fractal noise elevation and reports a normalised
// height per vertex. Output index i always corresponds to input index i.
type Displacer interface {
	Displace(ctx context.Context, vertices []mgl32.Vec3, params core.NoiseParameters) ([]mgl32.Vec3, []float32, error)
	Name() string
	Cleanup()
}

// Result is the output of one displacement round trip.
type Result struct {
	Positions []mgl32.Vec3
	Heights   []float32
}

// Pending is an in-flight displacement. The caller must Wait on it before
// touching any later pipeline stage.
type Pending struct {
	done chan struct{}
	res  Result
	err  error
}

// Dispatch starts d on vertices and returns immediately.
func Dispatch(ctx context.Context, d Displacer, vertices []mgl32.Vec3, params core.NoiseParameters) *Pending {
	p := &Pending{done: make(chan struct{})}
	go func() {
		defer close(p.done)
		positions, heights, err := d.Displace(ctx, vertices, params)
		if err != nil {
			p.err = err
			return
		}
		if len(positions) != len(vertices) || len(heights) != len(vertices) {
			p.err = fmt.Errorf("%w: %s returned %d positions and %d heights for %d vertices",
				core.ErrDisplacementFailure, d.Name(), len(positions), len(heights), len(vertices))
			return
		}
		p.res = Result{Positions: positions, Heights: heights}
	}()
	return p
}

// Done is closed once the result is available.
func (p *Pending) Done() <-chan struct{} { return p.done }

// Wait blocks until the device round trip has completed.
func (p *Pending) Wait() (Result, error) {
	<-p.done
	return p.res, p.err
}

func checkInput(vertices []mgl32.Vec3, params core.NoiseParameters) error {
	if len(vertices) == 0 {
		return fmt.Errorf("%w: no vertices to displace", core.ErrInvalidParameter)
	}
	return params.Validate()
}

func displacementError(backend string, err error) error {
	return fmt.Errorf("%w: %s: %v", core.ErrDisplacementFailure, backend, err)
}
