package core

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// GenerateWaterShell builds a UV sphere used to draw the sea surface
// around a displaced planet. Returns positions and triangles.
func GenerateWaterShell(radius float32, segments, rings int) ([]mgl32.Vec3, []Triangle) {
	// Use default values if not specified
	if segments <= 0 {
		segments = 64
	}
	if rings <= 0 {
		rings = 32
	}

	positions := make([]mgl32.Vec3, 0, (rings+1)*(segments+1))
	triangles := make([]Triangle, 0, rings*segments*2)

	for ring := 0; ring <= rings; ring++ {
		theta := float64(ring) * math.Pi / float64(rings)
		sinTheta := float32(math.Sin(theta))
		cosTheta := float32(math.Cos(theta))

		for seg := 0; seg <= segments; seg++ {
			phi := float64(seg) * 2.0 * math.Pi / float64(segments)
			sinPhi := float32(math.Sin(phi))
			cosPhi := float32(math.Cos(phi))

			positions = append(positions, mgl32.Vec3{
				cosPhi * sinTheta * radius,
				cosTheta * radius,
				sinPhi * sinTheta * radius,
			})
		}
	}

	for ring := 0; ring < rings; ring++ {
		for seg := 0; seg < segments; seg++ {
			current := uint32(ring*(segments+1) + seg)
			next := current + uint32(segments) + 1

			triangles = append(triangles,
				Triangle{current, next, current + 1},
				Triangle{current + 1, next, next + 1},
			)
		}
	}

	return positions, triangles
}
