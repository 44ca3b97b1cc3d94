package core

import (
	"fmt"
	"sync"
)

// MeshSource supplies the immutable base mesh for a resolution level.
type MeshSource interface {
	BaseMesh(level int) (*BaseMesh, error)
}

// DefaultMaxLevel is the highest level the bundled source serves. Level 7
// has 163,842 vertices, well past the 16-bit index limit.
const DefaultMaxLevel = 7

// IcosphereCache builds icosphere levels lazily, each from the level below,
// and keeps them for the life of the cache.
type IcosphereCache struct {
	mu       sync.Mutex
	maxLevel int
	meshes   []*BaseMesh
}

// NewIcosphereCache serves levels 0 through maxLevel.
func NewIcosphereCache(maxLevel int) *IcosphereCache {
	if maxLevel < 0 {
		maxLevel = 0
	}
	return &IcosphereCache{
		maxLevel: maxLevel,
		meshes:   []*BaseMesh{Icosahedron()},
	}
}

// MaxLevel returns the highest level served.
func (c *IcosphereCache) MaxLevel() int { return c.maxLevel }

// BaseMesh returns the cached mesh for level, building intermediate levels
// on first use.
func (c *IcosphereCache) BaseMesh(level int) (*BaseMesh, error) {
	if level < 0 || level > c.maxLevel {
		return nil, fmt.Errorf("%w: level %d not in [0, %d]", ErrResolutionUnavailable, level, c.maxLevel)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for len(c.meshes) <= level {
		prev := c.meshes[len(c.meshes)-1]
		next := Subdivide(prev)
		Logger().Debug("icosphere level built",
			"level", next.Level,
			"vertices", len(next.Vertices),
			"triangles", len(next.Triangles))
		c.meshes = append(c.meshes, next)
	}
	return c.meshes[level], nil
}

// Warm builds every level up front.
func (c *IcosphereCache) Warm() error {
	_, err := c.BaseMesh(c.maxLevel)
	return err
}

// StaticSource serves a fixed set of meshes keyed by level. Missing keys
// report ErrResolutionUnavailable.
type StaticSource map[int]*BaseMesh

// BaseMesh implements MeshSource.
func (s StaticSource) BaseMesh(level int) (*BaseMesh, error) {
	m, ok := s[level]
	if !ok || m == nil {
		return nil, fmt.Errorf("%w: no cached mesh for level %d", ErrResolutionUnavailable, level)
	}
	return m, nil
}
