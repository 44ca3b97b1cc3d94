// Package config loads the JSON settings file shared by the commands.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"icoplanet/colormap"
	"icoplanet/core"
	"icoplanet/gpu"
)

// DefaultPath is where the commands look for settings.
const DefaultPath = "settings.json"

type Settings struct {
	Generation GenerationSettings   `json:"generation"`
	Noise      core.NoiseParameters `json:"noise"`
	Gradient   []colormap.StopSpec  `json:"gradient"`
	Compute    ComputeSettings      `json:"compute"`
	Server     ServerSettings       `json:"server"`
	Preview    PreviewSettings      `json:"preview"`
}

type GenerationSettings struct {
	Resolution int           `json:"resolution"` // level baked by a plain run
	MaxLevel   int           `json:"maxLevel"`   // highest level the cache builds
	LOD        core.LODTable `json:"lod"`
	Comment    string        `json:"comment,omitempty"`
}

type ComputeSettings struct {
	Backend string `json:"backend"`
	Workers int    `json:"workers"`
}

type ServerSettings struct {
	Addr      string `json:"addr"`
	StaticDir string `json:"staticDir,omitempty"`
}

type PreviewSettings struct {
	Width     int  `json:"width"`
	Height    int  `json:"height"`
	Shade     bool `json:"shade"`
	Thumbnail int  `json:"thumbnail"`
}

// Default returns the settings used when no file exists.
func Default() Settings {
	return Settings{
		Generation: GenerationSettings{
			Resolution: 5,
			MaxLevel:   7,
			LOD: core.LODTable{
				Distances: []float32{1000, 500, 250, 120, 60, 30, 15, 8},
			},
		},
		Noise:    core.DefaultNoiseParameters(),
		Gradient: append([]colormap.StopSpec(nil), colormap.TerrainStops...),
		Compute: ComputeSettings{
			Backend: gpu.BackendAuto,
		},
		Server: ServerSettings{
			Addr: ":8080",
		},
		Preview: PreviewSettings{
			Width:     1024,
			Height:    512,
			Shade:     true,
			Thumbnail: 256,
		},
	}
}

// Load reads path over the defaults. A missing file is not an error.
func Load(path string) (Settings, error) {
	settings := Default()

	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			core.Logger().Info("no settings file found, using defaults", "path", path)
			return settings, nil
		}
		return settings, err
	}
	defer file.Close()

	decoder := json.NewDecoder(file)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&settings); err != nil {
		return settings, fmt.Errorf("error parsing %s: %w", path, err)
	}
	if err := settings.Validate(); err != nil {
		return settings, fmt.Errorf("%s: %w", path, err)
	}

	core.Logger().Info("loaded settings",
		"path", path,
		"resolution", settings.Generation.Resolution,
		"approxVertices", ApproximateVertexCount(settings.Generation.Resolution))
	return settings, nil
}

// Save writes settings as indented JSON.
func Save(path string, settings Settings) error {
	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0644)
}

// Validate checks cross-field constraints.
func (s Settings) Validate() error {
	g := s.Generation
	if g.MaxLevel < 0 {
		return fmt.Errorf("%w: maxLevel %d", core.ErrInvalidParameter, g.MaxLevel)
	}
	if g.Resolution < 0 || g.Resolution > g.MaxLevel {
		return fmt.Errorf("%w: resolution %d outside [0, %d]", core.ErrResolutionUnavailable, g.Resolution, g.MaxLevel)
	}
	if top := g.LOD.MaxLevel(); top > g.MaxLevel {
		return fmt.Errorf("%w: LOD table reaches level %d but maxLevel is %d", core.ErrInvalidParameter, top, g.MaxLevel)
	}
	if err := s.Noise.Validate(); err != nil {
		return err
	}
	if _, err := s.Lookup(); err != nil {
		return err
	}
	if s.Preview.Width <= 0 || s.Preview.Height <= 0 {
		return fmt.Errorf("%w: preview size %dx%d", core.ErrInvalidParameter, s.Preview.Width, s.Preview.Height)
	}
	return nil
}

// Lookup builds the colour gradient.
func (s Settings) Lookup() (*colormap.Gradient, error) {
	stops, err := colormap.ParseStops(s.Gradient)
	if err != nil {
		return nil, err
	}
	return colormap.NewGradient(stops)
}

// ApproximateVertexCount returns the icosphere vertex count 10*4^level+2.
func ApproximateVertexCount(level int) int {
	count := 10
	for i := 0; i < level; i++ {
		count *= 4
	}
	return count + 2
}
