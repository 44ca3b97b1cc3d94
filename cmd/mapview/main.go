//go:build ebiten

// Command mapview shows the equirectangular colour map of a planet and
// regenerates it on key presses.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"image"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"icoplanet/config"
	"icoplanet/core"
	"icoplanet/export"
	"icoplanet/generator"
	"icoplanet/gpu"
)

func main() {
	var (
		configPath = flag.String("config", config.DefaultPath, "Settings file")
		backend    = flag.String("backend", "", "Compute backend (auto, cpu, wgpu)")
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
	if *backend != "" {
		settings.Compute.Backend = *backend
	}
	if strings.EqualFold(settings.Compute.Backend, gpu.BackendOpenGL) {
		log.Fatal("The OpenGL backend cannot share a process with the ebiten window")
	}

	store, err := core.NewParameterStore(settings.Noise)
	if err != nil {
		log.Fatalf("Invalid noise parameters: %v", err)
	}
	lookup, err := settings.Lookup()
	if err != nil {
		log.Fatalf("Invalid gradient: %v", err)
	}
	displacer, err := gpu.NewBackend(settings.Compute.Backend, settings.Compute.Workers)
	if err != nil {
		log.Fatalf("Failed to initialize %s backend: %v", settings.Compute.Backend, err)
	}
	defer displacer.Cleanup()

	planet, err := generator.New(core.NewIcosphereCache(settings.Generation.MaxLevel), displacer, lookup, store,
		generator.WithLOD(settings.Generation.LOD),
		generator.WithResolution(settings.Generation.Resolution))
	if err != nil {
		log.Fatalf("Failed to create planet: %v", err)
	}

	opts := export.DefaultOptions()
	opts.Width, opts.Height, opts.Shade = settings.Preview.Width, settings.Preview.Height, settings.Preview.Shade
	view := newMapView(planet, store, opts)

	ebiten.SetWindowTitle("icoplanet map")
	ebiten.SetWindowSize(opts.Width, opts.Height)
	if err := ebiten.RunGame(view); err != nil && !errors.Is(err, ebiten.Termination) {
		log.Fatal(err)
	}
	view.wait()
}

type frame struct {
	img  image.Image
	snap *generator.Snapshot
}

// mapView adapts a planet to the ebiten.Game interface.
type mapView struct {
	planet     *generator.Planet
	store      *core.ParameterStore
	randomizer *core.Randomizer
	opts       export.Options

	frames chan frame
	busy   chan struct{}
	ctx    context.Context
	cancel context.CancelFunc

	img    *ebiten.Image
	status string
}

func newMapView(planet *generator.Planet, store *core.ParameterStore, opts export.Options) *mapView {
	ctx, cancel := context.WithCancel(context.Background())
	v := &mapView{
		planet:     planet,
		store:      store,
		randomizer: core.NewRandomizer(uint64(time.Now().UnixNano())),
		opts:       opts,
		frames:     make(chan frame, 1),
		busy:       make(chan struct{}, 1),
		ctx:        ctx,
		cancel:     cancel,
		status:     "generating...",
	}
	planet.OnPublish(v.render)
	v.regenerate()
	return v
}

// render runs on the generating goroutine so the raster never blocks a
// frame.
func (v *mapView) render(s *generator.Snapshot) {
	img, err := export.ColorMap(s.Mesh, v.opts)
	if err != nil {
		core.Logger().Warn("map render failed", "err", err)
		return
	}
	select {
	case <-v.frames:
	default:
	}
	v.frames <- frame{img: img, snap: s}
}

func (v *mapView) regenerate() {
	select {
	case v.busy <- struct{}{}:
	default:
		return
	}
	v.status = "generating..."
	go func() {
		defer func() { <-v.busy }()
		if _, err := v.planet.Generate(v.ctx); err != nil && !errors.Is(err, context.Canceled) {
			core.Logger().Warn("generation failed", "err", err)
		}
	}()
}

func (v *mapView) wait() {
	v.cancel()
	v.busy <- struct{}{}
}

// Update handles input and picks up finished frames.
func (v *mapView) Update() error {
	if inpututil.IsKeyJustPressed(ebiten.KeyQ) || inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		return ebiten.Termination
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyR) {
		if err := v.store.SetParameters(v.randomizer.Randomise(v.store.Parameters())); err != nil {
			v.status = err.Error()
		} else {
			v.regenerate()
		}
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyArrowUp) {
		v.step(1)
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyArrowDown) {
		v.step(-1)
	}

	select {
	case f := <-v.frames:
		v.img = ebiten.NewImageFromImage(f.img)
		v.status = fmt.Sprintf("level %d  %d vertices  seed %d  pass %d  %v",
			f.snap.Resolution, f.snap.Mesh.VertexCount(), f.snap.Params.Seed, f.snap.Pass, f.snap.Duration.Round(time.Millisecond))
	default:
	}
	return nil
}

func (v *mapView) step(delta int) {
	level := v.planet.Resolution() + delta
	if level < 0 || level > v.planet.MaxLevel() {
		return
	}
	if err := v.planet.SetResolution(level); err != nil {
		v.status = err.Error()
		return
	}
	v.regenerate()
}

// Draw blits the latest map.
func (v *mapView) Draw(screen *ebiten.Image) {
	if v.img != nil {
		screen.DrawImage(v.img, nil)
	}
	ebitenutil.DebugPrint(screen, v.status+"\nR: randomize  Up/Down: level  Q: quit")
}

// Layout returns the map size.
func (v *mapView) Layout(outsideWidth, outsideHeight int) (int, int) {
	return v.opts.Width, v.opts.Height
}
