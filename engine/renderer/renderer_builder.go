package renderer

// RendererBuilderOption is a functional option applied to a renderer during construction via NewRenderer.
type RendererBuilderOption func(*renderer)

// WithPresentMode sets the surface present mode which controls how frames are delivered to the display.
//
// Parameters:
//   - mode: the PresentMode to use (VSync or Uncapped)
//
// Returns:
//   - RendererBuilderOption: a function that applies the present mode option to a renderer
func WithPresentMode(mode PresentMode) RendererBuilderOption {
	return func(r *renderer) {
		r.pendingPresentMode = &mode
	}
}

// WithForceSoftwareRenderer forces WGPU to use a CPU/software fallback adapter instead of
// hardware GPU acceleration. This requires a software Vulkan ICD to be installed on the system
// (e.g. SwiftShader or lavapipe). Useful for benchmarking CPU vs GPU rendering performance.
//
// Parameters:
//   - force: true to force the software fallback adapter, false to use hardware (default)
//
// Returns:
//   - RendererBuilderOption: a function that applies the force software renderer option to a renderer
func WithForceSoftwareRenderer(force bool) RendererBuilderOption {
	return func(r *renderer) {
		r.forceFallbackAdapter = force
	}
}

// WithWarmUpWorkers sets the number of goroutines the pipeline cache uses
// when warming up a list of state keys.
//
// Parameters:
//   - n: the worker count, must be positive to take effect
//
// Returns:
//   - RendererBuilderOption: a function that applies the warm-up worker option to a renderer
func WithWarmUpWorkers(n int) RendererBuilderOption {
	return func(r *renderer) {
		r.warmUpWorkers = n
	}
}

// WithPerObjectCapacity sets the ring capacity of the bindless layer's
// per-object buffers. The capacity bounds how many draws can be issued per
// frame window without overwriting slots still in flight.
//
// Parameters:
//   - capacity: the ring capacity, must be positive to take effect
//
// Returns:
//   - RendererBuilderOption: a function that applies the capacity option to a renderer
func WithPerObjectCapacity(capacity int) RendererBuilderOption {
	return func(r *renderer) {
		r.perObjectCapacity = capacity
	}
}
