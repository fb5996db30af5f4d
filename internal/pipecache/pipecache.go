// Package pipecache holds the two live generations of the GUI graphics
// pipeline, keyed by output color format.
package pipecache

import (
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/guirender/gpucore"
)

// ErrNilCompile is returned when Get misses without a compile function.
var ErrNilCompile = errors.New("pipecache: compile function is nil")

// CompileFunc builds a pipeline for format.
type CompileFunc func(format gputypes.TextureFormat) (gpucore.RenderPipelineID, error)

// Cache keeps the pipeline for the most recently requested format
// (current) and the one it replaced (previous).
//
// The previous generation is kept alive because command buffers already
// submitted for earlier frames may still reference it. A new generation
// always retires the oldest first, so at most two pipelines are alive.
//
// State machine:
//
//	Empty --Get(f)/ok--> Current(f)
//	Current(f) --Get(f)--> Current(f)                       (hit)
//	Current(f) --Get(g)/ok--> Current(g)+Previous(f)
//	Current(g)+Previous(f) --Get(h)/ok--> Current(h)+Previous(g), f destroyed
//	any --Get/compile error--> unchanged
//
// Cache is not safe for concurrent use.
type Cache struct {
	device gpucore.Device

	current  gpucore.RenderPipelineID
	previous gpucore.RenderPipelineID
	format   gputypes.TextureFormat

	hits     uint64
	compiles uint64
}

// New returns an empty cache that destroys retired pipelines on device.
func New(device gpucore.Device) *Cache {
	return &Cache{device: device}
}

// Get returns the pipeline for format, compiling a new generation on a miss.
// If compile fails the cache is left unchanged.
func (c *Cache) Get(format gputypes.TextureFormat, compile CompileFunc) (gpucore.RenderPipelineID, error) {
	if c.current != gpucore.InvalidID && c.format == format {
		c.hits++
		return c.current, nil
	}
	if compile == nil {
		return gpucore.InvalidID, ErrNilCompile
	}

	c.compiles++
	p, err := compile(format)
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("compile pipeline for format %v: %w", format, err)
	}

	if c.previous != gpucore.InvalidID {
		c.device.DestroyRenderPipeline(c.previous)
	}
	c.previous = c.current
	c.current = p
	c.format = format
	return p, nil
}

// Current returns the current pipeline and its format.
func (c *Cache) Current() (gpucore.RenderPipelineID, gputypes.TextureFormat) {
	return c.current, c.format
}

// Previous returns the retained previous generation.
func (c *Cache) Previous() gpucore.RenderPipelineID { return c.previous }

// Compiles returns the number of compile attempts.
func (c *Cache) Compiles() uint64 { return c.compiles }

// Hits returns the number of requests served without compiling.
func (c *Cache) Hits() uint64 { return c.hits }

// Destroy destroys both generations and empties the cache.
func (c *Cache) Destroy() {
	if c.previous != gpucore.InvalidID {
		c.device.DestroyRenderPipeline(c.previous)
	}
	if c.current != gpucore.InvalidID {
		c.device.DestroyRenderPipeline(c.current)
	}
	c.previous = gpucore.InvalidID
	c.current = gpucore.InvalidID
	c.format = gputypes.TextureFormat(0)
}
