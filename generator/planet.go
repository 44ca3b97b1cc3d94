// Package generator runs the planet bake pipeline: base mesh, displacement,
// colouring, assembly and the one-shot collider trigger.
package generator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-gl/mathgl/mgl32"

	"icoplanet/colormap"
	"icoplanet/core"
	"icoplanet/gpu"
	"icoplanet/mesh"
	"icoplanet/physics"
)

// GenerationState is the orchestrator's view of its own progress. It only
// changes at the end of a pass.
type GenerationState struct {
	HasGenerated bool
	Collider     physics.ColliderState
	Passes       uint64
	LastError    error
}

// Snapshot is one published pass. It is never modified after publication.
type Snapshot struct {
	Mesh       *core.FinalMesh
	Heights    []float32
	Params     core.NoiseParameters
	Resolution int
	Backend    string
	Pass       uint64
	Duration   time.Duration
}

// SeaLevel returns the radius of the undisplaced ocean surface on the unit
// sphere.
func (s *Snapshot) SeaLevel() float32 {
	return 1 + s.Params.CutOff*gpu.Relief
}

// SeaHeight returns the height scalar carried by vertices clamped to the
// ocean. Land is anything strictly above it.
func (s *Snapshot) SeaHeight() float32 {
	return (s.Params.CutOff + 1) / 2
}

// Option configures a Planet.
type Option func(*Planet)

// WithLOD sets the distance table. Its length defines the maximum level.
func WithLOD(lod core.LODTable) Option {
	return func(p *Planet) { p.lod = lod }
}

// WithCollider sets the physics collaborator.
func WithCollider(c physics.Collider) Option {
	return func(p *Planet) { p.collider = c }
}

// WithSpawner sets the object placement collaborator.
func WithSpawner(s physics.Spawner) Option {
	return func(p *Planet) { p.spawner = s }
}

// WithGravity sets the receiver of the planet's mass.
func WithGravity(g physics.GravityReceiver) Option {
	return func(p *Planet) { p.gravity = g }
}

// WithResolution sets the initial resolution level.
func WithResolution(level int) Option {
	return func(p *Planet) { p.resolution = level }
}

// Planet owns one displaced planet and runs at most one pass at a time.
type Planet struct {
	source    core.MeshSource
	displacer gpu.Displacer
	lookup    colormap.Lookup
	params    core.ParameterProvider

	collider physics.Collider
	spawner  physics.Spawner
	gravity  physics.GravityReceiver

	coordinator *physics.Coordinator

	// held for the whole of a pass
	gen sync.Mutex

	mu         sync.RWMutex
	lod        core.LODTable
	resolution int
	state      GenerationState
	listeners  []func(*Snapshot)

	current atomic.Pointer[Snapshot]
	maxRes  atomic.Pointer[Snapshot]
}

// New wires a Planet. A nil lookup selects the default terrain gradient.
func New(source core.MeshSource, displacer gpu.Displacer, lookup colormap.Lookup, params core.ParameterProvider, opts ...Option) (*Planet, error) {
	if source == nil {
		return nil, errors.New("generator: nil mesh source")
	}
	if displacer == nil {
		return nil, errors.New("generator: nil displacer")
	}
	if params == nil {
		return nil, errors.New("generator: nil parameter provider")
	}
	if lookup == nil {
		lookup = colormap.Terrain()
	}

	p := &Planet{
		source:    source,
		displacer: displacer,
		lookup:    lookup,
		params:    params,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.resolution < 0 {
		return nil, fmt.Errorf("%w: resolution %d", core.ErrResolutionUnavailable, p.resolution)
	}
	p.coordinator = physics.NewCoordinator(p, p.collider, p.spawner)
	return p, nil
}

// Generate runs one pass. A second call while a pass is in flight fails
// with ErrGenerationInProgress. A failed pass leaves the published
// snapshot and HasGenerated unchanged.
func (p *Planet) Generate(ctx context.Context) (*Snapshot, error) {
	if !p.gen.TryLock() {
		return nil, core.ErrGenerationInProgress
	}
	defer p.gen.Unlock()

	start := time.Now()
	snap, err := p.run(ctx)

	p.mu.Lock()
	p.state.Passes++
	p.state.LastError = err
	if err == nil {
		snap.Pass = p.state.Passes
		snap.Duration = time.Since(start)
	}
	p.mu.Unlock()

	if err != nil {
		core.Logger().Warn("generation pass failed", "err", err)
		return nil, err
	}

	p.publish(snap)
	return snap, nil
}

func (p *Planet) run(ctx context.Context) (*Snapshot, error) {
	params := p.params.Parameters()
	if err := params.Validate(); err != nil {
		return nil, err
	}

	resolution := p.Resolution()
	base, err := p.source.BaseMesh(resolution)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res, err := gpu.Dispatch(ctx, p.displacer, base.Vertices, params).Wait()
	if err != nil {
		return nil, classifyDisplaceError(p.displacer.Name(), err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	colors, err := colormap.Colorize(res.Heights, p.lookup)
	if err != nil {
		return nil, err
	}
	m, err := mesh.Assemble(res.Positions, base.Triangles, colors)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	core.Logger().Debug("pass assembled",
		"resolution", resolution,
		"vertices", m.VertexCount(),
		"triangles", m.TriangleCount(),
		"backend", p.displacer.Name())

	return &Snapshot{
		Mesh:       m,
		Heights:    res.Heights,
		Params:     params,
		Resolution: resolution,
		Backend:    p.displacer.Name(),
	}, nil
}

func classifyDisplaceError(backend string, err error) error {
	switch {
	case errors.Is(err, core.ErrDisplacementFailure),
		errors.Is(err, core.ErrInvalidParameter),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		return fmt.Errorf("%w: %s: %v", core.ErrDisplacementFailure, backend, err)
	}
}

func (p *Planet) publish(snap *Snapshot) {
	p.current.Store(snap)
	if snap.Resolution == p.MaxLevel() {
		p.maxRes.Store(snap)
	}

	// Spawners read the published surface, so the trigger runs after the
	// store.
	p.coordinator.Observe(snap.Mesh, snap.Resolution, snap.Params.Mass)

	p.mu.Lock()
	p.state.HasGenerated = true
	p.state.Collider = p.coordinator.State()
	listeners := append([]func(*Snapshot)(nil), p.listeners...)
	p.mu.Unlock()

	if p.gravity != nil {
		p.gravity.SetMass(snap.Params.Mass)
	}
	for _, fn := range listeners {
		fn(snap)
	}

	core.Logger().Info("planet published",
		"pass", snap.Pass,
		"resolution", snap.Resolution,
		"vertices", snap.Mesh.VertexCount(),
		"duration", snap.Duration)
}

// OnPublish registers fn to run after every successful pass.
func (p *Planet) OnPublish(fn func(*Snapshot)) {
	p.mu.Lock()
	p.listeners = append(p.listeners, fn)
	p.mu.Unlock()
}

// Snapshot returns the latest published pass, or nil.
func (p *Planet) Snapshot() *Snapshot { return p.current.Load() }

// Mesh returns the latest published mesh, or nil.
func (p *Planet) Mesh() *core.FinalMesh {
	if s := p.current.Load(); s != nil {
		return s.Mesh
	}
	return nil
}

// Vertices returns the published positions. The slice must not be
// modified.
func (p *Planet) Vertices() []mgl32.Vec3 {
	if m := p.Mesh(); m != nil {
		return m.Positions
	}
	return nil
}

// Colors returns the published vertex colours.
func (p *Planet) Colors() []core.RGBA {
	if m := p.Mesh(); m != nil {
		return m.Colors
	}
	return nil
}

// Heights returns the published per-vertex heights.
func (p *Planet) Heights() []float32 {
	if s := p.current.Load(); s != nil {
		return s.Heights
	}
	return nil
}

// MaxVertices returns the positions of the latest pass at the maximum
// resolution level.
func (p *Planet) MaxVertices() []mgl32.Vec3 {
	if s := p.maxRes.Load(); s != nil {
		return s.Mesh.Positions
	}
	return nil
}

// Mass returns the provider's current mass.
func (p *Planet) Mass() float32 { return p.params.Parameters().Mass }

// PlanetSize returns the provider's current planet size.
func (p *Planet) PlanetSize() float32 { return p.params.Parameters().PlanetSize }

// SeaHeight returns the ocean height scalar of the published pass, or of the
// pending parameters before the first pass.
func (p *Planet) SeaHeight() float32 {
	if s := p.current.Load(); s != nil {
		return s.SeaHeight()
	}
	return (p.params.Parameters().CutOff + 1) / 2
}

// Scale returns the uniform transform scale for the planet.
func (p *Planet) Scale() mgl32.Vec3 {
	s := p.PlanetSize()
	return mgl32.Vec3{s, s, s}
}

// Resolution returns the level the next pass will use.
func (p *Planet) Resolution() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.resolution
}

// SetResolution selects the level for the next pass. Availability is
// checked by the mesh source when the pass runs.
func (p *Planet) SetResolution(level int) error {
	if level < 0 {
		return fmt.Errorf("%w: resolution %d", core.ErrResolutionUnavailable, level)
	}
	p.mu.Lock()
	p.resolution = level
	p.mu.Unlock()
	return nil
}

// SelectForDistance picks the resolution for a camera distance from the
// LOD table and returns it.
func (p *Planet) SelectForDistance(distance float32) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.lod.Distances) > 0 {
		p.resolution = p.lod.LevelFor(distance)
	}
	return p.resolution
}

// SetLOD replaces the distance table.
func (p *Planet) SetLOD(lod core.LODTable) {
	p.mu.Lock()
	p.lod = core.LODTable{Distances: append([]float32(nil), lod.Distances...)}
	p.mu.Unlock()
}

// MaxLevel returns the highest level of the current LOD table, or -1
// without one.
func (p *Planet) MaxLevel() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.lod.MaxLevel()
}

// HasGenerated reports whether any pass has succeeded.
func (p *Planet) HasGenerated() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state.HasGenerated
}

// State returns a copy of the generation state.
func (p *Planet) State() GenerationState {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state
}

// Backend returns the displacer's name.
func (p *Planet) Backend() string { return p.displacer.Name() }
