package physics

import "sync"

// GravitationalConstant is scaled for scene units rather than SI.
const GravitationalConstant = 1.0

// GravityReceiver is told the planet's mass after every successful pass.
type GravityReceiver interface {
	SetMass(mass float32)
}

// GravityWell is the gravity source of one planet.
type GravityWell struct {
	mu   sync.RWMutex
	mass float32
}

// NewGravityWell creates a well with zero mass.
func NewGravityWell() *GravityWell {
	return &GravityWell{}
}

// SetMass implements GravityReceiver.
func (g *GravityWell) SetMass(mass float32) {
	g.mu.Lock()
	g.mass = mass
	g.mu.Unlock()
}

// Mass returns the current mass.
func (g *GravityWell) Mass() float32 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.mass
}

// Acceleration returns the gravitational acceleration at distance r from
// the centre. Inside r <= 0 it returns 0.
func (g *GravityWell) Acceleration(r float32) float32 {
	if r <= 0 {
		return 0
	}
	return GravitationalConstant * g.Mass() / (r * r)
}

// SurfaceGravity returns the acceleration at the surface of a planet of
// the given size.
func (g *GravityWell) SurfaceGravity(planetSize float32) float32 {
	return g.Acceleration(planetSize)
}
