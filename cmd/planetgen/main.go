// Command planetgen bakes a planet, writes preview images and optionally
// serves the result to websocket clients.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"icoplanet/config"
	"icoplanet/core"
	"icoplanet/export"
	"icoplanet/generator"
	"icoplanet/gpu"
	"icoplanet/physics"
	"icoplanet/server"
	"icoplanet/simulation"
)

func main() {
	var (
		configPath  = flag.String("config", config.DefaultPath, "Settings file")
		resolution  = flag.Int("resolution", -1, "Icosphere level to bake (-1 uses the settings file)")
		seed        = flag.Int("seed", -1, "Noise seed (-1 uses the settings file)")
		backend     = flag.String("backend", "", "Compute backend (auto, cpu, wgpu, opengl)")
		workers     = flag.Int("workers", -1, "CPU backend workers (0 = one per CPU)")
		randomize   = flag.Bool("randomize", false, "Pick a random seed and mass")
		preview     = flag.String("preview", "", "Write a colour map preview (.webp or .png)")
		heightmap   = flag.String("heightmap", "", "Write a greyscale height map (.webp or .png)")
		thumb       = flag.String("thumb", "", "Write a thumbnail of the colour map")
		scatter     = flag.Int("scatter", 50, "Surface objects placed once the max level is baked")
		serve       = flag.Bool("serve", false, "Serve meshes over websockets after baking")
		addr        = flag.String("addr", "", "Server listen address")
		writeConfig = flag.String("write-config", "", "Write the effective settings to this path and exit")
		verbose     = flag.Bool("v", false, "Debug logging")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	core.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	if *scatter < 0 {
		log.Fatalf("Invalid -scatter %d: must not be negative", *scatter)
	}

	settings, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load settings: %v", err)
	}
	if *resolution >= 0 {
		settings.Generation.Resolution = *resolution
	}
	if *seed >= 0 {
		settings.Noise.Seed = int32(*seed)
	}
	if *backend != "" {
		settings.Compute.Backend = *backend
	}
	if *workers >= 0 {
		settings.Compute.Workers = *workers
	}
	if *addr != "" {
		settings.Server.Addr = *addr
	}
	randomizer := core.NewRandomizer(uint64(time.Now().UnixNano()))
	if *randomize {
		settings.Noise = randomizer.Randomise(settings.Noise)
	}
	if err := settings.Validate(); err != nil {
		log.Fatalf("Invalid settings: %v", err)
	}

	if *writeConfig != "" {
		if err := config.Save(*writeConfig, settings); err != nil {
			log.Fatalf("Failed to write settings: %v", err)
		}
		fmt.Printf("Wrote %s\n", *writeConfig)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, settings, randomizer, runOptions{
		preview:   *preview,
		heightmap: *heightmap,
		thumb:     *thumb,
		scatter:   *scatter,
		serve:     *serve,
	}); err != nil {
		log.Fatalf("planetgen: %v", err)
	}
}

type runOptions struct {
	preview   string
	heightmap string
	thumb     string
	scatter   int
	serve     bool
}

func run(ctx context.Context, settings config.Settings, randomizer *core.Randomizer, opts runOptions) error {
	store, err := core.NewParameterStore(settings.Noise)
	if err != nil {
		return err
	}
	lookup, err := settings.Lookup()
	if err != nil {
		return err
	}
	displacer, err := gpu.NewBackend(settings.Compute.Backend, settings.Compute.Workers)
	if err != nil {
		return err
	}
	defer displacer.Cleanup()

	source := core.NewIcosphereCache(settings.Generation.MaxLevel)
	collider := physics.NewMeshCollider()
	gravity := physics.NewGravityWell()
	seed := uint64(settings.Noise.Seed)
	ring := simulation.NewAsteroidRing(seed, settings.Noise.PlanetSize)
	surface := simulation.NewSurfaceScatter(nil, opts.scatter, seed)

	planet, err := generator.New(source, displacer, lookup, store,
		generator.WithLOD(settings.Generation.LOD),
		generator.WithResolution(settings.Generation.Resolution),
		generator.WithCollider(collider),
		generator.WithSpawner(simulation.Spawners{ring, surface}),
		generator.WithGravity(gravity))
	if err != nil {
		return err
	}
	surface.SetSurface(planet)

	fmt.Println("=== Icosphere Planet Generator ===")
	fmt.Printf("Backend: %s\n", displacer.Name())
	fmt.Printf("Resolution: level %d (~%d vertices)\n",
		settings.Generation.Resolution, config.ApproximateVertexCount(settings.Generation.Resolution))
	fmt.Printf("Seed: %d  Mass: %.1f  Size: %.1f\n", settings.Noise.Seed, settings.Noise.Mass, settings.Noise.PlanetSize)

	snap, err := planet.Generate(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Baked %d vertices, %d triangles in %v (pass %d)\n",
		snap.Mesh.VertexCount(), snap.Mesh.TriangleCount(), snap.Duration.Round(time.Millisecond), snap.Pass)
	if st := planet.State(); st.Collider == physics.Done {
		fmt.Printf("Collider radius %.3f, surface gravity %.3f, %d asteroids, %d surface objects\n",
			collider.Radius(), gravity.SurfaceGravity(settings.Noise.PlanetSize),
			len(ring.Asteroids()), len(surface.Placements()))
	}

	if err := writePreviews(snap, settings.Preview, opts); err != nil {
		return err
	}

	if !opts.serve {
		return nil
	}
	srv := server.New(planet, store,
		server.WithRandomizer(randomizer),
		server.WithStaticDir(settings.Server.StaticDir))
	return srv.ListenAndServe(ctx, settings.Server.Addr)
}

func writePreviews(snap *generator.Snapshot, ps config.PreviewSettings, opts runOptions) error {
	if opts.preview == "" && opts.heightmap == "" && opts.thumb == "" {
		return nil
	}
	popts := export.DefaultOptions()
	popts.Width, popts.Height, popts.Shade = ps.Width, ps.Height, ps.Shade

	if opts.preview != "" || opts.thumb != "" {
		img, err := export.ColorMap(snap.Mesh, popts)
		if err != nil {
			return err
		}
		if opts.preview != "" {
			if err := export.Save(opts.preview, img); err != nil {
				return err
			}
			fmt.Printf("Wrote %s\n", opts.preview)
		}
		if opts.thumb != "" {
			if err := export.Save(opts.thumb, export.Thumbnail(img, ps.Thumbnail)); err != nil {
				return err
			}
			fmt.Printf("Wrote %s\n", opts.thumb)
		}
	}
	if opts.heightmap != "" {
		popts.Shade = false
		img, err := export.HeightMap(snap.Mesh, snap.Heights, popts)
		if err != nil {
			return err
		}
		if err := export.Save(opts.heightmap, img); err != nil {
			return err
		}
		fmt.Printf("Wrote %s\n", opts.heightmap)
	}
	return nil
}
