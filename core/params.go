package core

import (
	"math/rand/v2"
	"sync"
)

// ParameterProvider hands the pipeline its noise parameters. SetParameters
// replaces every field at once; there is no field-by-field update.
type ParameterProvider interface {
	Parameters() NoiseParameters
	SetParameters(p NoiseParameters) error
}

// ParameterStore is the in-memory ParameterProvider.
type ParameterStore struct {
	mu     sync.RWMutex
	params NoiseParameters
}

// NewParameterStore validates p and wraps it in a store.
func NewParameterStore(p NoiseParameters) (*ParameterStore, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &ParameterStore{params: p}, nil
}

// Parameters returns a copy of the current set.
func (s *ParameterStore) Parameters() NoiseParameters {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.params
}

// SetParameters atomically replaces the whole set. Invalid sets are
// rejected and the previous set stays in place.
func (s *ParameterStore) SetParameters(p NoiseParameters) error {
	if err := p.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	s.params = p
	s.mu.Unlock()
	return nil
}

// Update applies fn to a copy of the current set and stores the result
// under a single lock.
func (s *ParameterStore) Update(fn func(*NoiseParameters)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.params
	fn(&next)
	if err := next.Validate(); err != nil {
		return err
	}
	s.params = next
	return nil
}

const (
	// SeedRange bounds randomised seeds to [0, SeedRange).
	SeedRange     = 10000
	minMassFactor = 5
	maxMassFactor = 15
)

// Randomizer derives the high-level planet attributes the pipeline itself
// never chooses: seed and mass.
type Randomizer struct {
	rng *rand.Rand
}

// NewRandomizer creates a deterministic Randomizer.
func NewRandomizer(seed uint64) *Randomizer {
	return &Randomizer{rng: rand.New(rand.NewPCG(seed, 0))}
}

// Seed returns a seed in [0, SeedRange).
func (r *Randomizer) Seed() int32 {
	return int32(r.rng.IntN(SeedRange))
}

// Mass returns a mass in [5*planetSize, 15*planetSize).
func (r *Randomizer) Mass(planetSize float32) float32 {
	lo := planetSize * minMassFactor
	hi := planetSize * maxMassFactor
	return lo + r.rng.Float32()*(hi-lo)
}

// Randomise returns p with a fresh seed and mass.
func (r *Randomizer) Randomise(p NoiseParameters) NoiseParameters {
	p.Seed = r.Seed()
	p.Mass = r.Mass(p.PlanetSize)
	return p
}
