//go:build raylib

// Command planetview orbits a generated planet in a raylib window. The
// camera distance picks the resolution level through the LOD table.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"runtime"
	"strings"
	"time"

	rl "github.com/gen2brain/raylib-go/raylib"

	"icoplanet/config"
	"icoplanet/core"
	"icoplanet/generator"
	"icoplanet/gpu"
	"icoplanet/physics"
	"icoplanet/simulation"
)

func init() {
	runtime.LockOSThread()
}

func main() {
	var (
		configPath = flag.String("config", config.DefaultPath, "Settings file")
		backend    = flag.String("backend", gpu.BackendCPU, "Compute backend (cpu, wgpu); opengl would share raylib's GLFW")
		width      = flag.Int("width", 1280, "Window width")
		height     = flag.Int("height", 720, "Window height")
		verbose    = flag.Bool("v", false, "Debug logging")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	core.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	settings, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load settings: %v", err)
	}
	if strings.EqualFold(*backend, gpu.BackendOpenGL) {
		log.Fatal("The OpenGL backend cannot run inside the raylib window")
	}

	store, err := core.NewParameterStore(settings.Noise)
	if err != nil {
		log.Fatalf("Invalid noise parameters: %v", err)
	}
	lookup, err := settings.Lookup()
	if err != nil {
		log.Fatalf("Invalid gradient: %v", err)
	}
	displacer, err := gpu.NewBackend(*backend, settings.Compute.Workers)
	if err != nil {
		log.Fatalf("Failed to initialize %s backend: %v", *backend, err)
	}
	defer displacer.Cleanup()

	ring := simulation.NewAsteroidRing(uint64(settings.Noise.Seed), settings.Noise.PlanetSize)
	planet, err := generator.New(core.NewIcosphereCache(settings.Generation.MaxLevel), displacer, lookup, store,
		generator.WithLOD(settings.Generation.LOD),
		generator.WithResolution(0),
		generator.WithCollider(physics.NewMeshCollider()),
		generator.WithSpawner(ring))
	if err != nil {
		log.Fatalf("Failed to create planet: %v", err)
	}

	published := make(chan *generator.Snapshot, 1)
	planet.OnPublish(func(s *generator.Snapshot) {
		// Only the newest snapshot matters to the render loop.
		select {
		case <-published:
		default:
		}
		published <- s
	})

	v := &viewer{planet: planet, store: store, ring: ring, randomizer: core.NewRandomizer(uint64(time.Now().UnixNano()))}
	v.run(int32(*width), int32(*height), published)
}

type viewer struct {
	planet     *generator.Planet
	store      *core.ParameterStore
	ring       *simulation.AsteroidRing
	randomizer *core.Randomizer

	model  rl.Model
	water  rl.Model
	loaded bool
	snap   *generator.Snapshot

	busy   chan struct{}
	failed chan error
	// set when the stored parameters differ from the loaded snapshot
	dirty   bool
	retryAt time.Time
	lastErr error
}

// retryDelay holds off new passes after one fails.
const retryDelay = 2 * time.Second

func (v *viewer) run(width, height int32, published <-chan *generator.Snapshot) {
	rl.SetConfigFlags(rl.FlagMsaa4xHint)
	rl.InitWindow(width, height, "icoplanet")
	defer rl.CloseWindow()
	rl.SetTargetFPS(60)

	size := v.planet.PlanetSize()
	camera := rl.Camera3D{
		Position:   rl.NewVector3(0, size*0.5, size*4),
		Target:     rl.NewVector3(0, 0, 0),
		Up:         rl.NewVector3(0, 1, 0),
		Fovy:       45,
		Projection: rl.CameraPerspective,
	}

	v.busy = make(chan struct{}, 1)
	v.failed = make(chan error, 1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	for !rl.WindowShouldClose() {
		rl.UpdateCamera(&camera, rl.CameraOrbital)
		if wheel := rl.GetMouseWheelMove(); wheel != 0 {
			dir := rl.Vector3Normalize(camera.Position)
			dist := rl.Vector3Length(camera.Position) * (1 - wheel*0.1)
			dist = max(dist, size*1.2)
			camera.Position = rl.Vector3Scale(dir, dist)
		}

		if rl.IsKeyPressed(rl.KeyR) {
			p := v.randomizer.Randomise(v.store.Parameters())
			if err := v.store.SetParameters(p); err != nil {
				v.lastErr = err
			} else {
				v.dirty = true
			}
		}
		v.collectFailure()

		// Load before choosing a level so a pass that just finished is not
		// requested again.
		select {
		case s := <-published:
			v.load(s)
		default:
		}

		level := v.planet.SelectForDistance(rl.Vector3Length(camera.Position))
		stale := v.dirty || v.snap == nil || level != v.snap.Resolution
		if stale && !time.Now().Before(v.retryAt) {
			v.regenerate(ctx, level)
		}

		v.draw(camera)
	}

	// Let an in-flight pass finish before the window and its models go.
	cancel()
	v.busy <- struct{}{}
	v.unload()
}

// regenerate starts a pass in the background unless one is running.
func (v *viewer) regenerate(ctx context.Context, level int) {
	select {
	case v.busy <- struct{}{}:
	default:
		return
	}
	// A pass that failed after this frame's check has released busy by now.
	if v.collectFailure() {
		<-v.busy
		return
	}
	if err := v.planet.SetResolution(level); err != nil {
		v.fail(err)
		<-v.busy
		return
	}
	go func() {
		defer func() { <-v.busy }()
		if _, err := v.planet.Generate(ctx); err != nil && !errors.Is(err, context.Canceled) {
			core.Logger().Warn("generation failed", "level", level, "err", err)
			v.failed <- err
		}
	}()
}

// collectFailure records a failed background pass, if any.
func (v *viewer) collectFailure() bool {
	select {
	case err := <-v.failed:
		v.fail(err)
		return true
	default:
		return false
	}
}

func (v *viewer) fail(err error) {
	v.lastErr = err
	v.retryAt = time.Now().Add(retryDelay)
}

func (v *viewer) load(s *generator.Snapshot) {
	v.unload()
	v.model = rl.LoadModelFromMesh(uploadMesh(s.Mesh))

	radius := s.SeaLevel()
	positions, triangles := core.GenerateWaterShell(radius, 64, 32)
	v.water = rl.LoadModelFromMesh(uploadShell(positions, triangles, rl.NewColor(40, 110, 200, 110)))

	v.loaded = true
	v.snap = s
	v.lastErr = nil
	if s.Params == v.store.Parameters() {
		v.dirty = false
	}
}

func (v *viewer) unload() {
	if !v.loaded {
		return
	}
	rl.UnloadModel(v.model)
	rl.UnloadModel(v.water)
	v.loaded = false
}

func (v *viewer) draw(camera rl.Camera3D) {
	rl.BeginDrawing()
	defer rl.EndDrawing()
	rl.ClearBackground(rl.NewColor(5, 5, 12, 255))

	size := v.planet.PlanetSize()
	rl.BeginMode3D(camera)
	if v.loaded {
		rl.DrawModel(v.model, rl.NewVector3(0, 0, 0), size, rl.White)
		rl.DrawModel(v.water, rl.NewVector3(0, 0, 0), size, rl.White)
	}
	for _, a := range v.ring.Asteroids() {
		pos := rl.NewVector3(a.Position.X(), a.Position.Y(), a.Position.Z())
		rl.DrawSphere(pos, a.Scale, rl.Gray)
	}
	rl.EndMode3D()

	rl.DrawFPS(10, 10)
	if v.snap != nil {
		st := v.planet.State()
		text := fmt.Sprintf("level %d  %d vertices  pass %d  %s  collider %s  seed %d",
			v.snap.Resolution, v.snap.Mesh.VertexCount(), v.snap.Pass, v.snap.Backend, st.Collider, v.snap.Params.Seed)
		rl.DrawText(text, 10, 34, 18, rl.RayWhite)
	}
	if v.lastErr != nil {
		rl.DrawText(v.lastErr.Error(), 10, 58, 18, rl.Red)
	}
	rl.DrawText("drag: orbit  wheel: zoom  R: randomize", 10, int32(rl.GetScreenHeight()-28), 18, rl.LightGray)
}
