package renderer

import (
	"github.com/Caishangqi/Eurekiel-sub001/engine/renderer/bindless"
	"github.com/Caishangqi/Eurekiel-sub001/engine/renderer/pipeline_state"
	"github.com/Caishangqi/Eurekiel-sub001/engine/renderer/target_binder"
	"github.com/cogentcore/webgpu/wgpu"
)

// RendererBackendType identifies the GPU backend implementation used by the Renderer.
type RendererBackendType int

const (
	// BackendTypeWGPU selects the WebGPU-based rendering backend.
	BackendTypeWGPU RendererBackendType = iota
)

// PresentMode controls how rendered frames are presented to the display surface.
type PresentMode int

const (
	// PresentModeVSync waits for the next vertical blank before presenting, capping frame rate
	// to the monitor's refresh rate. Eliminates tearing.
	PresentModeVSync PresentMode = iota

	// PresentModeUncapped presents frames immediately without waiting for vertical blank.
	// May cause screen tearing but provides the lowest latency.
	PresentModeUncapped
)

// RendererBackend is the top-level backend interface for the Renderer.
// It embeds the concrete backend interface for the selected GPU API, and
// every implementation also serves as the binder's flush target and the
// bindless layer's buffer allocator.
type RendererBackend interface {
	wgpuRendererBackend

	target_binder.Backend
}

// compile-time checks that the concrete backend satisfies the consumers it
// is handed to.
var (
	_ target_binder.Backend    = &wgpuRendererBackendImpl{}
	_ bindless.BufferAllocator = &wgpuBufferAllocator{}
	_ pipeline_state.BuildFunc = (&wgpuRendererBackendImpl{}).BuildPipeline
)

// backendBuildFunc adapts a backend into the pipeline cache's build hook.
func backendBuildFunc(b RendererBackend) pipeline_state.BuildFunc {
	return func(desc *pipeline_state.StateDescriptor) (*wgpu.RenderPipeline, error) {
		return b.BuildPipeline(desc)
	}
}
