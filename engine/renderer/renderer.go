package renderer

import (
	"fmt"

	"github.com/Caishangqi/Eurekiel-sub001/common"
	"github.com/Caishangqi/Eurekiel-sub001/engine/renderer/bindless"
	"github.com/Caishangqi/Eurekiel-sub001/engine/renderer/pipeline_state"
	"github.com/Caishangqi/Eurekiel-sub001/engine/renderer/target_binder"
	"github.com/Caishangqi/Eurekiel-sub001/engine/window"
	"github.com/cogentcore/webgpu/wgpu"
)

// renderer is the implementation of the Renderer interface.
type renderer struct {
	backendType RendererBackendType
	backend     RendererBackend

	programs pipeline_state.ProgramRegistry
	cache    pipeline_state.Cache
	binder   target_binder.Binder
	layer    bindless.Layer

	// Pre-creation config collected from builder options
	forceFallbackAdapter bool
	pendingPresentMode   *PresentMode
	warmUpWorkers        int
	perObjectCapacity    int
}

// Renderer is the high-level rendering system. It owns the GPU backend, the
// pipeline state cache, the render target binder, and the bindless resource
// layer, and sequences them through the frame:
//
//	BeginFrame -> Bind/Set* -> Draw... -> EndFrame -> Present
//
// Draw flushes target bindings and syncs dirty bindless categories before
// encoding, so callers only describe state and geometry.
type Renderer interface {
	// Programs returns the shader program registry. Programs must be
	// registered here before their handles can appear in state keys.
	Programs() pipeline_state.ProgramRegistry

	// PipelineCache returns the pipeline state cache for warm-up, stats,
	// and direct lookups.
	PipelineCache() pipeline_state.Cache

	// Targets returns the render target binder for provider registration,
	// bind requests, and flip control.
	Targets() target_binder.Binder

	// Resources returns the bindless resource layer for staging uniform
	// state and registering application buffers.
	Resources() bindless.Layer

	// Backend returns the GPU backend for resource creation.
	Backend() RendererBackend

	// Resize configures the underlying backend to handle a new surface size.
	// This should be called when re-sizing the window or when the surface size should change.
	// Targets are force-flushed on the next frame since their views may have been recreated.
	//
	// Parameters:
	//   - width: the new width of the surface in pixels
	//   - height: the new height of the surface in pixels
	Resize(width, height int)

	// SetPresentMode sets the surface present mode which controls how frames are delivered to the display.
	// A call to Resize is required after changing this for the new mode to take effect.
	//
	// Parameters:
	//   - mode: the PresentMode to use (VSync or Uncapped)
	SetPresentMode(mode PresentMode)

	// BeginFrame acquires the swapchain texture and begins the frame's
	// command encoding. Must be paired with EndFrame.
	//
	// Returns:
	//   - error: an error if the swapchain texture could not be acquired
	BeginFrame() error

	// Draw encodes a single instanced indexed draw with the pipeline for the
	// given state key. Pending target bindings are flushed and dirty bindless
	// categories are synced before the draw is encoded.
	//
	// Parameters:
	//   - key: the pipeline state key to draw with
	//   - vertexBuffer: the vertex buffer, or nil for vertex-pulling pipelines
	//   - indexBuffer: the uint32 index buffer
	//   - indexCount: the number of indices to draw
	//   - instanceCount: the number of instances to draw
	//
	// Returns:
	//   - error: an error if binding flush, pipeline lookup, or encoding fails
	Draw(key pipeline_state.StateKey, vertexBuffer, indexBuffer *wgpu.Buffer, indexCount, instanceCount uint32) error

	// EndFrame ends the frame's command encoding, submits to the GPU, and
	// resets per-frame counters. Does not present the surface; call
	// Present() after EndFrame to display the frame.
	EndFrame()

	// Present presents the surface to the display and releases the swapchain texture.
	// Must be called once per frame after EndFrame.
	Present()
}

var _ Renderer = &renderer{}

// NewRenderer creates a new Renderer instance with the specified backend type
// and the surface of the given window.
//
// Parameters:
//   - backendType: the type of rendering backend to use (e.g., WGPU)
//   - window: the window whose surface the renderer draws to
//   - options: variadic list of RendererBuilderOption functions to configure the Renderer
//
// Returns:
//   - Renderer: a new instance of Renderer configured with the specified backend and options
//   - error: an error if the bindless layer's reserved buffers could not be allocated
func NewRenderer(backendType RendererBackendType, window window.Window, options ...RendererBuilderOption) (Renderer, error) {
	r := &renderer{
		backendType: backendType,
		programs:    pipeline_state.NewProgramRegistry(),
		binder:      target_binder.NewBinder(),
	}

	// Apply options first so config flags (e.g. forceFallbackAdapter) are
	// available before the backend requests a GPU adapter.
	for _, opt := range options {
		opt(r)
	}

	switch backendType {
	case BackendTypeWGPU:
		fallthrough
	default:
		r.backend = newWGPURendererBackend(window.SurfaceDescriptor(), r.forceFallbackAdapter)
	}

	if r.pendingPresentMode != nil {
		r.backend.SetPresentMode(*r.pendingPresentMode)
	}

	r.backend.ConfigureSurface(window.Width(), window.Height())

	cacheOpts := []pipeline_state.CacheOption{}
	if r.warmUpWorkers > 0 {
		cacheOpts = append(cacheOpts, pipeline_state.WithWarmUpWorkers(r.warmUpWorkers))
	}
	r.cache = pipeline_state.NewCache(r.programs, backendBuildFunc(r.backend), cacheOpts...)

	layerOpts := []bindless.LayerOption{}
	if r.perObjectCapacity > 0 {
		layerOpts = append(layerOpts, bindless.WithPerObjectCapacity(r.perObjectCapacity))
	}
	layer, err := bindless.NewLayer(r.backend.Allocator(), layerOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create bindless layer: %w", err)
	}
	r.layer = layer

	return r, nil
}

func (r *renderer) Programs() pipeline_state.ProgramRegistry {
	return r.programs
}

func (r *renderer) PipelineCache() pipeline_state.Cache {
	return r.cache
}

func (r *renderer) Targets() target_binder.Binder {
	return r.binder
}

func (r *renderer) Resources() bindless.Layer {
	return r.layer
}

func (r *renderer) Backend() RendererBackend {
	return r.backend
}

func (r *renderer) Resize(width, height int) {
	r.backend.ConfigureSurface(width, height)

	// Surface views may have been recreated, so the elision hash can no
	// longer be trusted. Resubmit the current binding unconditionally.
	if err := r.binder.ForceFlushBindings(r.backend); err != nil {
		common.Logger().Warn("failed to reflush target bindings after resize", "error", err)
	}
}

func (r *renderer) SetPresentMode(mode PresentMode) {
	r.backend.SetPresentMode(mode)
}

func (r *renderer) BeginFrame() error {
	return r.backend.BeginFrame()
}

func (r *renderer) Draw(key pipeline_state.StateKey, vertexBuffer, indexBuffer *wgpu.Buffer, indexCount, instanceCount uint32) error {
	if _, err := r.binder.FlushBindings(r.backend); err != nil {
		return fmt.Errorf("failed to flush target bindings: %w", err)
	}

	if _, err := r.layer.SyncToGPU(); err != nil {
		return fmt.Errorf("failed to sync bindless resources: %w", err)
	}

	p, err := r.cache.GetOrCreate(key)
	if err != nil {
		return err
	}

	if err := r.backend.DrawIndexed(p, vertexBuffer, indexBuffer, indexCount, instanceCount); err != nil {
		return err
	}
	r.layer.IncrementDrawCount()
	return nil
}

func (r *renderer) EndFrame() {
	r.backend.EndFrame()
	r.layer.ResetDrawCount()
	r.binder.ResetFlips()
}

func (r *renderer) Present() {
	r.backend.Present()
}
