package simulation

import (
	"math"
	"math/rand/v2"
	"sync"

	"github.com/go-gl/mathgl/mgl32"

	"icoplanet/core"
)

const (
	// AsteroidChance is the 1-in-N chance that a planet gets a ring.
	AsteroidChance = 6
	// MaxAsteroids bounds the ring population (exclusive).
	MaxAsteroids = 200

	minRingOffset = 200.0
	maxRingOffset = 300.0
)

// Asteroid is one spawned ring body.
type Asteroid struct {
	Position mgl32.Vec3 `json:"position"`
	Scale    float32    `json:"scale"`
}

// AsteroidRing scatters asteroids on a ring around the planet. The roll is
// made once, on the first Spawn.
type AsteroidRing struct {
	mu         sync.Mutex
	rng        *rand.Rand
	planetSize float32
	radius     float32
	asteroids  []Asteroid
	spawned    bool
}

// NewAsteroidRing creates a ring spawner seeded for reproducible layouts.
func NewAsteroidRing(seed uint64, planetSize float32) *AsteroidRing {
	return &AsteroidRing{
		rng:        rand.New(rand.NewPCG(seed, 1)),
		planetSize: planetSize,
	}
}

// Spawn rolls for a ring and places its asteroids. Calls after the first
// are no-ops.
func (r *AsteroidRing) Spawn() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.spawned {
		return
	}
	r.spawned = true

	if r.rng.IntN(AsteroidChance) != 0 {
		core.Logger().Debug("no asteroid ring this time")
		return
	}

	count := r.rng.IntN(MaxAsteroids)
	offset := (minRingOffset + r.rng.Float64()*(maxRingOffset-minRingOffset)) / 100
	r.radius = r.planetSize * float32(offset)

	r.asteroids = make([]Asteroid, 0, count)
	for i := 0; i < count; i++ {
		angle := r.rng.Float64() * 2 * math.Pi
		spread := 1 + (r.rng.Float64()-0.5)*0.1
		height := (r.rng.Float64() - 0.5) * 0.05 * float64(r.radius)
		d := float64(r.radius) * spread
		r.asteroids = append(r.asteroids, Asteroid{
			Position: mgl32.Vec3{float32(math.Cos(angle) * d), float32(height), float32(math.Sin(angle) * d)},
			Scale:    0.05 + r.rng.Float32()*0.2,
		})
	}
	core.Logger().Info("asteroid ring spawned", "count", count, "radius", r.radius)
}

// Asteroids returns the spawned bodies.
func (r *AsteroidRing) Asteroids() []Asteroid {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Asteroid(nil), r.asteroids...)
}

// Radius returns the ring radius, or 0 when no ring was rolled.
func (r *AsteroidRing) Radius() float32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.radius
}

// Spawned reports whether Spawn has run.
func (r *AsteroidRing) Spawned() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.spawned
}
