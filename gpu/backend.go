package gpu

import (
	"errors"
	"fmt"
	"strings"

	"icoplanet/core"
)

var errClosed = errors.New("displacer has been cleaned up")

// Backend names accepted by NewBackend.
const (
	BackendAuto   = "auto"
	BackendCPU    = "cpu"
	BackendWGPU   = "wgpu"
	BackendOpenGL = "opengl"
)

// NewBackend creates the named displacer. "auto" tries the Vulkan device
// first and falls back to the CPU pool when it cannot be opened.
func NewBackend(name string, workers int) (Displacer, error) {
	switch strings.ToLower(name) {
	case "", BackendAuto:
		d, err := NewWGPUDisplacer()
		if err != nil {
			core.Logger().Info("gpu backend unavailable, using cpu", "err", err)
			return NewCPUDisplacer(workers), nil
		}
		return d, nil
	case BackendCPU:
		return NewCPUDisplacer(workers), nil
	case BackendWGPU:
		d, err := NewWGPUDisplacer()
		if err != nil {
			return nil, err
		}
		return d, nil
	case BackendOpenGL:
		d, err := NewGLDisplacer()
		if err != nil {
			return nil, err
		}
		return d, nil
	default:
		return nil, fmt.Errorf("%w: unknown compute backend %q", core.ErrInvalidParameter, name)
	}
}
