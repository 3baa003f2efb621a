package pipeline_state

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/Carmen-Shannon/automation/tools/worker"

	"github.com/Caishangqi/Eurekiel-sub001/common"
	"github.com/cogentcore/webgpu/wgpu"
)

// BuildFunc materializes a composed pipeline descriptor into a GPU
// pipeline object. The renderer backend supplies this; tests supply fakes.
type BuildFunc func(desc *StateDescriptor) (*wgpu.RenderPipeline, error)

// StateDescriptor is the fully composed pipeline description handed to the
// backend on a cache miss. Every sub-block is derived from the StateKey;
// the backend only has to create shader modules and call the device.
type StateDescriptor struct {
	// Label identifies the pipeline in GPU debugging tools.
	Label string
	// Program holds the resolved vertex and fragment shaders.
	Program Program
	// ColorTargets describes each used color target slot in order.
	ColorTargets []wgpu.ColorTargetState
	// DepthStencil is the composed depth/stencil block, or nil when the key
	// has no depth target and both depth test and stencil are disabled.
	DepthStencil *wgpu.DepthStencilState
	// Primitive is the composed topology/cull/winding block.
	Primitive wgpu.PrimitiveState
	// Multisample is the composed sample block.
	Multisample wgpu.MultisampleState
	// FillMode is carried for backends that support non-solid rasterization.
	// The wgpu backend warns and rasterizes solid when this is not FillModeSolid.
	FillMode FillMode
}

// CacheStats is a snapshot of cache counters.
type CacheStats struct {
	// Hits is the number of lookups answered without a backend call.
	Hits uint64
	// Misses is the number of lookups that built a new pipeline.
	Misses uint64
	// Fallbacks is the number of misses that needed the fallback retry.
	Fallbacks uint64
}

// cacheEntry is one cached pipeline. Entries live in hash buckets; the
// full key is stored so equality, not hash equality, decides a hit.
type cacheEntry struct {
	key      StateKey
	pipeline *wgpu.RenderPipeline
}

// cache is the implementation of the Cache interface.
type cache struct {
	// mu guards buckets. Frame-time lookups run on the render thread only;
	// the mutex exists so WarmUp can materialize pipelines concurrently.
	mu       sync.Mutex
	buckets  map[uint64][]cacheEntry
	registry ProgramRegistry
	build    BuildFunc

	warmUpWorkers int

	// warmUpPool is created on the first WarmUp and reused for the cache's
	// lifetime, so repeated warm-ups do not spin up a fresh pool each call.
	warmUpPoolOnce sync.Once
	warmUpPool     worker.DynamicWorkerPool

	hits      atomic.Uint64
	misses    atomic.Uint64
	fallbacks atomic.Uint64
}

// Cache stores immutable render pipelines keyed by their full render-state
// description. Lookups on a populated key are O(1) average and perform no
// backend calls; misses compose a descriptor from the key's sub-blocks and
// ask the backend to materialize it once.
type Cache interface {
	// GetOrCreate returns the pipeline cached for the key, building and
	// caching it on first use. If materialization fails, it retries once
	// with the canonical fallback configuration (opaque blend, standard
	// depth, default stencil/raster); if the failing key already is that
	// fallback, it returns nil and the build error.
	//
	// Parameters:
	//   - key: the full render-state key (Program must resolve)
	//
	// Returns:
	//   - *wgpu.RenderPipeline: the cached or newly built pipeline, or nil on failure
	//   - error: an error if the program is stale or materialization failed
	GetOrCreate(key StateKey) (*wgpu.RenderPipeline, error)

	// WarmUp materializes the pipelines for a list of keys ahead of time,
	// spreading descriptor builds across a worker pool. Keys that fail to
	// build are logged and skipped.
	//
	// Parameters:
	//   - keys: the state keys to pre-build
	//
	// Returns:
	//   - int: the number of pipelines that were newly built
	WarmUp(keys []StateKey) int

	// Clear releases every cached pipeline and empties the cache.
	Clear()

	// Len returns the number of cached pipelines.
	//
	// Returns:
	//   - int: the entry count
	Len() int

	// Stats returns a snapshot of the hit/miss/fallback counters.
	//
	// Returns:
	//   - CacheStats: the counter snapshot
	Stats() CacheStats
}

var _ Cache = &cache{}

// NewCache creates a pipeline cache over a program registry and a backend
// build function.
//
// Parameters:
//   - registry: resolves program handles embedded in state keys (must not be nil)
//   - build: materializes composed descriptors on the backend (must not be nil)
//   - opts: functional options to further configure the cache
//
// Returns:
//   - Cache: the newly created cache
func NewCache(registry ProgramRegistry, build BuildFunc, opts ...CacheOption) Cache {
	if registry == nil {
		panic("pipeline_state: NewCache requires a non-nil ProgramRegistry")
	}
	if build == nil {
		panic("pipeline_state: NewCache requires a non-nil BuildFunc")
	}
	c := &cache{
		buckets:       make(map[uint64][]cacheEntry),
		registry:      registry,
		build:         build,
		warmUpWorkers: defaultWarmUpWorkers(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CacheOption is a functional option used to configure a Cache during construction.
type CacheOption func(*cache)

// WithWarmUpWorkers sets the worker count used by WarmUp.
//
// Parameters:
//   - n: the number of concurrent build workers (values < 1 are clamped to 1)
//
// Returns:
//   - CacheOption: a function that sets the warm-up worker count
func WithWarmUpWorkers(n int) CacheOption {
	return func(c *cache) {
		c.warmUpWorkers = max(n, 1)
	}
}

func (c *cache) GetOrCreate(key StateKey) (*wgpu.RenderPipeline, error) {
	h := key.Hash()

	c.mu.Lock()
	for _, entry := range c.buckets[h] {
		// Equality on the full key is the correctness gate; the hash only
		// selected the bucket.
		if entry.key == key {
			c.mu.Unlock()
			c.hits.Add(1)
			return entry.pipeline, nil
		}
	}
	c.mu.Unlock()

	c.misses.Add(1)

	pl, err := c.materialize(key)
	if err != nil {
		fallback := c.fallbackKey(key)
		if fallback == key {
			// The failing key already is the canonical fallback; retrying
			// would loop. Surface the failure.
			common.Logger().Warn("pipeline build failed with no distinct fallback",
				"program", key.Program.String(), "error", err)
			return nil, fmt.Errorf("failed to build pipeline for %s: %w", key.Program, err)
		}

		c.fallbacks.Add(1)
		common.Logger().Warn("pipeline build failed, retrying with fallback state",
			"program", key.Program.String(), "blend", key.Blend.String(),
			"depth", key.Depth.String(), "error", err)

		pl, err = c.materialize(fallback)
		if err != nil {
			return nil, fmt.Errorf("fallback pipeline build failed for %s: %w", key.Program, err)
		}
	}

	c.mu.Lock()
	// Another warm-up worker may have inserted the key while we built.
	for _, entry := range c.buckets[h] {
		if entry.key == key {
			c.mu.Unlock()
			if pl != nil {
				pl.Release()
			}
			return entry.pipeline, nil
		}
	}
	c.buckets[h] = append(c.buckets[h], cacheEntry{key: key, pipeline: pl})
	c.mu.Unlock()

	return pl, nil
}

func (c *cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, bucket := range c.buckets {
		for _, entry := range bucket {
			if entry.pipeline != nil {
				entry.pipeline.Release()
			}
		}
	}
	c.buckets = make(map[uint64][]cacheEntry)
}

func (c *cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	count := 0
	for _, bucket := range c.buckets {
		count += len(bucket)
	}
	return count
}

func (c *cache) Stats() CacheStats {
	return CacheStats{
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Fallbacks: c.fallbacks.Load(),
	}
}

// fallbackKey returns the canonical recovery key for a failed build: the
// same program and target formats with opaque blend, standard depth, and
// default stencil/raster blocks.
func (c *cache) fallbackKey(key StateKey) StateKey {
	fallback := NewStateKey(key.Program)
	fallback.ColorFormats = key.ColorFormats
	fallback.DepthFormat = key.DepthFormat
	return fallback
}

// materialize composes the descriptor sub-blocks for a key and asks the
// backend to build the pipeline.
func (c *cache) materialize(key StateKey) (*wgpu.RenderPipeline, error) {
	program, err := c.registry.Resolve(key.Program)
	if err != nil {
		return nil, err
	}
	desc := composeDescriptor(key, program)
	return c.build(desc)
}

// composeDescriptor derives the full pipeline descriptor from the key's
// independently configurable sub-blocks.
func composeDescriptor(key StateKey, program Program) *StateDescriptor {
	targets := make([]wgpu.ColorTargetState, 0, key.ColorTargetCount())
	blend := blendStateFor(key.Blend)
	for i := 0; i < key.ColorTargetCount(); i++ {
		target := wgpu.ColorTargetState{
			Format:    key.ColorFormats[i],
			WriteMask: wgpu.ColorWriteMaskAll,
		}
		// Undefined slots inside the used range stay format-Undefined so
		// slot indices line up with the shader's output locations.
		if key.ColorFormats[i] != wgpu.TextureFormatUndefined && key.Blend != BlendModeDisabled {
			target.Blend = blend
		}
		targets = append(targets, target)
	}

	var depthStencil *wgpu.DepthStencilState
	depth := depthConfigFor(key.Depth)
	if key.DepthFormat != wgpu.TextureFormatUndefined {
		compare := depth.compare
		if !depth.enabled {
			compare = wgpu.CompareFunctionAlways
		}
		front, back := key.Stencil.faces()
		if !key.Stencil.Enabled {
			front = wgpu.StencilFaceState{Compare: wgpu.CompareFunctionAlways}
			back = front
		}
		depthStencil = &wgpu.DepthStencilState{
			Format:              key.DepthFormat,
			DepthWriteEnabled:   depth.enabled && depth.write,
			DepthCompare:        compare,
			StencilFront:        front,
			StencilBack:         back,
			StencilReadMask:     key.Stencil.ReadMask,
			StencilWriteMask:    key.Stencil.WriteMask,
			DepthBias:           key.Raster.DepthBias,
			DepthBiasSlopeScale: key.Raster.DepthBiasSlopeScale,
			DepthBiasClamp:      key.Raster.DepthBiasClamp,
		}
	}

	sampleCount := uint32(1)
	if key.Raster.ForcedSampleCount > 0 {
		sampleCount = key.Raster.ForcedSampleCount
	}

	label := program.Vertex.Key()
	if program.Fragment != nil {
		label += "+" + program.Fragment.Key()
	}

	return &StateDescriptor{
		Label:        label,
		Program:      program,
		ColorTargets: targets,
		DepthStencil: depthStencil,
		Primitive: wgpu.PrimitiveState{
			Topology:  wgpu.PrimitiveTopologyTriangleList,
			FrontFace: key.Raster.Winding,
			CullMode:  key.Raster.CullMode,
		},
		Multisample: wgpu.MultisampleState{
			Count: sampleCount,
			Mask:  0xFFFFFFFF,
		},
		FillMode: key.Raster.FillMode,
	}
}
