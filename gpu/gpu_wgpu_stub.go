//go:build nogpu

package gpu

import (
	"context"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"icoplanet/core"
)

// WGPUDisplacer stub for builds without GPU support.
type WGPUDisplacer struct{}

func NewWGPUDisplacer() (*WGPUDisplacer, error) {
	return nil, fmt.Errorf("wgpu displacement is disabled in nogpu builds")
}

func (d *WGPUDisplacer) Name() string { return "wgpu" }

func (d *WGPUDisplacer) Adapter() string { return "" }

func (d *WGPUDisplacer) Displace(context.Context, []mgl32.Vec3, core.NoiseParameters) ([]mgl32.Vec3, []float32, error) {
	return nil, nil, displacementError(d.Name(), fmt.Errorf("disabled in nogpu builds"))
}

func (d *WGPUDisplacer) Cleanup() {}
