//go:build !opengl

package gpu

import (
	"context"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"icoplanet/core"
)

// GLDisplacer stub for builds without the opengl tag.
type GLDisplacer struct{}

func NewGLDisplacer() (*GLDisplacer, error) {
	return nil, fmt.Errorf("OpenGL compute requires building with -tags opengl")
}

func (d *GLDisplacer) Name() string { return "opengl" }

func (d *GLDisplacer) Displace(context.Context, []mgl32.Vec3, core.NoiseParameters) ([]mgl32.Vec3, []float32, error) {
	return nil, nil, displacementError(d.Name(), fmt.Errorf("built without opengl tag"))
}

func (d *GLDisplacer) Cleanup() {}
