package renderer

import (
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/Caishangqi/Eurekiel-sub001/common"
	"github.com/Caishangqi/Eurekiel-sub001/engine/renderer/bindless"
	"github.com/Caishangqi/Eurekiel-sub001/engine/renderer/pipeline_state"
	"github.com/cogentcore/webgpu/wgpu"
)

type wgpuRendererBackendImpl struct {
	mu     *sync.Mutex
	device *wgpu.Device
	queue  *wgpu.Queue

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	surface  *wgpu.Surface

	surfaceFormat *wgpu.TextureFormat
	presentMode   wgpu.PresentMode // defaults to PresentModeImmediate (Uncapped)

	alloc *wgpuBufferAllocator

	// Frame state for batched rendering across multiple passes
	frameEncoder *wgpu.CommandEncoder
	frameSurface *wgpu.Texture
	frameView    *wgpu.TextureView

	// Bound target state received from the binder. The render pass over
	// these attachments begins lazily at the first draw after a flush, so
	// recorded clears can become LoadOpClear instead of separate passes.
	boundColors  []*wgpu.TextureView
	boundDepth   *wgpu.TextureView
	colorClears  map[*wgpu.TextureView]wgpu.Color
	depthClear   float32
	stencilClear uint32
	depthCleared bool

	pass *wgpu.RenderPassEncoder
}

type wgpuRendererBackend interface {
	Device() *wgpu.Device
	Queue() *wgpu.Queue
	Instance() *wgpu.Instance
	Adapter() *wgpu.Adapter
	Surface() *wgpu.Surface
	SetDevice(device *wgpu.Device)
	SetQueue(queue *wgpu.Queue)
	SetInstance(instance *wgpu.Instance)
	SetAdapter(adapter *wgpu.Adapter)
	SetSurface(surface *wgpu.Surface)

	// ConfigureSurface is a wrapper for boilerplate logic required when calling ConfigureSurface on a surface.
	// This is required when the surface size changes, such as when the window is resized.
	//
	// Parameters:
	//   - width: the new width of the surface in pixels
	//   - height: the new height of the surface in pixels
	ConfigureSurface(width, height int)

	// SetPresentMode sets the surface present mode which controls how frames are delivered to the display.
	//
	// Parameters:
	//   - mode: the PresentMode to use (VSync or Uncapped)
	SetPresentMode(mode PresentMode)

	// SurfaceFormat reports the configured swapchain texture format.
	//
	// Returns:
	//   - wgpu.TextureFormat: the surface format, or TextureFormatUndefined before ConfigureSurface
	SurfaceFormat() wgpu.TextureFormat

	// Allocator returns the persistently mapped buffer allocator backing the
	// bindless resource layer.
	//
	// Returns:
	//   - bindless.BufferAllocator: the allocator bound to this backend's device
	Allocator() bindless.BufferAllocator

	// BuildPipeline creates a render pipeline from a fully composed state
	// descriptor. It handles creating the shader modules and translating the
	// descriptor's sub-blocks into a wgpu pipeline.
	//
	// Parameters:
	//   - desc: the composed pipeline description
	//
	// Returns:
	//   - *wgpu.RenderPipeline: the created pipeline
	//   - error: an error if shader module or pipeline creation fails
	BuildPipeline(desc *pipeline_state.StateDescriptor) (*wgpu.RenderPipeline, error)

	// CreateColorTexture creates a render-attachment color texture that can
	// also be sampled, plus its view.
	//
	// Parameters:
	//   - width: texture width in texels
	//   - height: texture height in texels
	//   - format: the texture format
	//
	// Returns:
	//   - *wgpu.TextureView: the created view
	//   - *wgpu.Texture: the underlying texture (caller must release when done)
	//   - error: an error if texture creation fails
	CreateColorTexture(width, height int, format wgpu.TextureFormat) (*wgpu.TextureView, *wgpu.Texture, error)

	// CreateDepthTexture creates a render-attachment depth texture that can
	// also be sampled, plus its view.
	//
	// Parameters:
	//   - width: texture width in texels
	//   - height: texture height in texels
	//   - format: the depth texture format
	//
	// Returns:
	//   - *wgpu.TextureView: the created view
	//   - *wgpu.Texture: the underlying texture (caller must release when done)
	//   - error: an error if texture creation fails
	CreateDepthTexture(width, height int, format wgpu.TextureFormat) (*wgpu.TextureView, *wgpu.Texture, error)

	// BeginFrame acquires the next swapchain texture and creates the frame's
	// command encoder. Must be paired with EndFrame.
	//
	// Returns:
	//   - error: an error if the swapchain texture could not be acquired
	BeginFrame() error

	// SwapchainView returns the view of the swapchain texture acquired by
	// BeginFrame, for binding the backbuffer as a color target.
	//
	// Returns:
	//   - *wgpu.TextureView: the swapchain view, or nil outside a frame
	SwapchainView() *wgpu.TextureView

	// DrawIndexed encodes a single instanced draw within the render pass over
	// the currently bound targets, beginning the pass if needed.
	//
	// Parameters:
	//   - p: the render pipeline to draw with
	//   - vertexBuffer: the vertex buffer, or nil for vertex-pulling pipelines
	//   - indexBuffer: the uint32 index buffer
	//   - indexCount: the number of indices to draw
	//   - instanceCount: the number of instances to draw
	//
	// Returns:
	//   - error: an error if no frame is active
	DrawIndexed(p *wgpu.RenderPipeline, vertexBuffer, indexBuffer *wgpu.Buffer, indexCount, instanceCount uint32) error

	// EndPass ends the render pass over the currently bound targets, if one
	// is open. Called by the binder path before rebinding targets.
	EndPass()

	// EndFrame ends any open pass and submits the frame's command buffer to
	// the GPU. Does not present the surface; call Present() after EndFrame.
	EndFrame()

	// Present presents the surface to the display and releases the swapchain texture.
	// Must be called once per frame after EndFrame.
	Present()
}

var _ RendererBackend = &wgpuRendererBackendImpl{}

func newWGPURendererBackend(surfaceDescriptor *wgpu.SurfaceDescriptor, forceFallbackAdapter bool) *wgpuRendererBackendImpl {
	runtime.LockOSThread()
	w := &wgpuRendererBackendImpl{
		mu:          &sync.Mutex{},
		instance:    wgpu.CreateInstance(nil),
		presentMode: wgpu.PresentModeImmediate,
		colorClears: make(map[*wgpu.TextureView]wgpu.Color),
	}
	w.SetSurface(w.instance.CreateSurface(surfaceDescriptor))

	a, err := w.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: forceFallbackAdapter,
		CompatibleSurface:    w.surface,
	})
	if err != nil {
		panic(err)
	}
	w.SetAdapter(a)

	d, err := a.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "Main Device",
	})
	if err != nil {
		panic(err)
	}
	w.SetDevice(d)
	w.SetQueue(d.GetQueue())
	w.alloc = &wgpuBufferAllocator{device: d}

	return w
}

func (b *wgpuRendererBackendImpl) ConfigureSurface(width, height int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	capabilities := b.surface.GetCapabilities(b.adapter)
	b.surfaceFormat = &capabilities.Formats[0]

	b.surface.Configure(b.adapter, b.device, &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      *b.surfaceFormat,
		Width:       uint32(width),
		Height:      uint32(height),
		PresentMode: b.presentMode,
		AlphaMode:   capabilities.AlphaModes[0],
	})
}

func (b *wgpuRendererBackendImpl) SetPresentMode(mode PresentMode) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch mode {
	case PresentModeVSync:
		b.presentMode = wgpu.PresentModeFifo
	case PresentModeUncapped:
		fallthrough
	default:
		b.presentMode = wgpu.PresentModeImmediate
	}
}

func (b *wgpuRendererBackendImpl) SurfaceFormat() wgpu.TextureFormat {
	if b.surfaceFormat == nil {
		return wgpu.TextureFormatUndefined
	}
	return *b.surfaceFormat
}

func (b *wgpuRendererBackendImpl) Allocator() bindless.BufferAllocator {
	return b.alloc
}

func (b *wgpuRendererBackendImpl) BuildPipeline(desc *pipeline_state.StateDescriptor) (*wgpu.RenderPipeline, error) {
	if desc.Program.Vertex == nil {
		return nil, errors.New("a vertex shader must be set to create a render pipeline")
	}

	if desc.FillMode != pipeline_state.FillModeSolid {
		common.Logger().Warn("wireframe fill is not supported by the wgpu backend, rasterizing solid",
			"pipeline", desc.Label)
	}

	vs, err := b.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: desc.Program.Vertex.Key(),
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: desc.Program.Vertex.Source(),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create vertex shader module: %w", err)
	}

	// Fragment stage is optional: depth-only pipelines omit it.
	var fragment *wgpu.FragmentState
	if desc.Program.Fragment != nil {
		fs, err := b.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
			Label: desc.Program.Fragment.Key(),
			WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
				Code: desc.Program.Fragment.Source(),
			},
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create fragment shader module: %w", err)
		}
		fragment = &wgpu.FragmentState{
			Module:     fs,
			EntryPoint: desc.Program.Fragment.EntryPoint(),
			Targets:    desc.ColorTargets,
		}
	}

	created, err := b.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label: desc.Label,
		Vertex: wgpu.VertexState{
			Module:     vs,
			EntryPoint: desc.Program.Vertex.EntryPoint(),
			Buffers:    desc.Program.Vertex.VertexLayouts(),
		},
		Fragment:     fragment,
		Primitive:    desc.Primitive,
		Multisample:  desc.Multisample,
		DepthStencil: desc.DepthStencil,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create render pipeline %q: %w", desc.Label, err)
	}
	return created, nil
}

func (b *wgpuRendererBackendImpl) CreateColorTexture(width, height int, format wgpu.TextureFormat) (*wgpu.TextureView, *wgpu.Texture, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	tex, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label: "Color Target Texture",
		Size: wgpu.Extent3D{
			Width:              uint32(width),
			Height:             uint32(height),
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        format,
		Usage:         wgpu.TextureUsageRenderAttachment | wgpu.TextureUsageTextureBinding,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create color target texture: %w", err)
	}

	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return nil, nil, fmt.Errorf("failed to create color target view: %w", err)
	}

	return view, tex, nil
}

func (b *wgpuRendererBackendImpl) CreateDepthTexture(width, height int, format wgpu.TextureFormat) (*wgpu.TextureView, *wgpu.Texture, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	tex, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label: "Depth Target Texture",
		Size: wgpu.Extent3D{
			Width:              uint32(width),
			Height:             uint32(height),
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        format,
		Usage:         wgpu.TextureUsageRenderAttachment | wgpu.TextureUsageTextureBinding,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create depth target texture: %w", err)
	}

	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return nil, nil, fmt.Errorf("failed to create depth target view: %w", err)
	}

	return view, tex, nil
}

func (b *wgpuRendererBackendImpl) BeginFrame() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	// Defensive: if a previous frame's surface texture is still held, avoid
	// attempting to acquire another one. This prevents wgpu-native validation
	// errors like "Surface image is already acquired" when frames overlap.
	if b.frameSurface != nil {
		return fmt.Errorf("previous frame surface not yet presented")
	}

	surfaceTexture, err := b.surface.GetCurrentTexture()
	if err != nil {
		return err
	}

	view, err := surfaceTexture.CreateView(nil)
	if err != nil {
		surfaceTexture.Release()
		return err
	}

	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		view.Release()
		surfaceTexture.Release()
		return err
	}

	b.frameEncoder = encoder
	b.frameSurface = surfaceTexture
	b.frameView = view

	return nil
}

func (b *wgpuRendererBackendImpl) SwapchainView() *wgpu.TextureView {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.frameView
}

// SetRenderTargets receives the resolved binding from the binder. Any open
// pass over the previous targets is ended; the pass over the new targets
// begins lazily at the next draw so recorded clears fold into its load ops.
func (b *wgpuRendererBackendImpl) SetRenderTargets(colors []*wgpu.TextureView, depth *wgpu.TextureView) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.endPassLocked()

	b.boundColors = colors
	b.boundDepth = depth
	clear(b.colorClears)
	b.depthCleared = false
	return nil
}

func (b *wgpuRendererBackendImpl) ClearColor(view *wgpu.TextureView, value wgpu.Color) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.colorClears[view] = value
}

func (b *wgpuRendererBackendImpl) ClearDepth(view *wgpu.TextureView, depth float32, stencil uint32) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.depthClear = depth
	b.stencilClear = stencil
	b.depthCleared = true
}

// buildColorAttachments maps bound color views to pass attachments slot by
// slot. Unresolved slots become empty attachments rather than being dropped,
// so surviving views keep the slot indices the shader's fragment outputs
// target.
func buildColorAttachments(views []*wgpu.TextureView, clears map[*wgpu.TextureView]wgpu.Color) []wgpu.RenderPassColorAttachment {
	attachments := make([]wgpu.RenderPassColorAttachment, len(views))
	for i, view := range views {
		if view == nil {
			continue
		}
		attachment := wgpu.RenderPassColorAttachment{
			View:    view,
			LoadOp:  wgpu.LoadOpLoad,
			StoreOp: wgpu.StoreOpStore,
		}
		if value, ok := clears[view]; ok {
			attachment.LoadOp = wgpu.LoadOpClear
			attachment.ClearValue = value
		}
		attachments[i] = attachment
	}
	return attachments
}

// beginPassLocked opens the render pass over the bound targets, consuming
// recorded clears as LoadOpClear. Caller holds b.mu.
func (b *wgpuRendererBackendImpl) beginPassLocked() error {
	if b.frameEncoder == nil {
		return errors.New("no active frame, call BeginFrame first")
	}
	if len(b.boundColors) == 0 && b.boundDepth == nil {
		return errors.New("no render targets bound")
	}

	descriptor := &wgpu.RenderPassDescriptor{
		ColorAttachments: buildColorAttachments(b.boundColors, b.colorClears),
	}
	if b.boundDepth != nil {
		depthLoad := wgpu.LoadOpLoad
		if b.depthCleared {
			depthLoad = wgpu.LoadOpClear
		}
		descriptor.DepthStencilAttachment = &wgpu.RenderPassDepthStencilAttachment{
			View:              b.boundDepth,
			DepthLoadOp:       depthLoad,
			DepthStoreOp:      wgpu.StoreOpStore,
			DepthClearValue:   b.depthClear,
			StencilClearValue: b.stencilClear,
		}
	}

	b.pass = b.frameEncoder.BeginRenderPass(descriptor)

	// Clears are consumed by the pass they open.
	clear(b.colorClears)
	b.depthCleared = false
	return nil
}

func (b *wgpuRendererBackendImpl) DrawIndexed(p *wgpu.RenderPipeline, vertexBuffer, indexBuffer *wgpu.Buffer, indexCount, instanceCount uint32) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.pass == nil {
		if err := b.beginPassLocked(); err != nil {
			return err
		}
	}

	b.pass.SetPipeline(p)
	if vertexBuffer != nil {
		b.pass.SetVertexBuffer(0, vertexBuffer, 0, wgpu.WholeSize)
	}
	b.pass.SetIndexBuffer(indexBuffer, wgpu.IndexFormatUint32, 0, wgpu.WholeSize)
	b.pass.DrawIndexed(indexCount, instanceCount, 0, 0, 0)
	return nil
}

func (b *wgpuRendererBackendImpl) EndPass() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.endPassLocked()
}

// endPassLocked closes any open pass. Caller holds b.mu.
func (b *wgpuRendererBackendImpl) endPassLocked() {
	if b.pass == nil {
		return
	}
	b.pass.End()
	b.pass = nil
}

func (b *wgpuRendererBackendImpl) EndFrame() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.endPassLocked()

	if b.frameEncoder == nil {
		return
	}

	commandBuffer, err := b.frameEncoder.Finish(nil)
	if err != nil {
		b.frameEncoder.Release()
		b.frameView.Release()
		b.frameSurface.Release()
		b.frameEncoder = nil
		b.frameSurface = nil
		b.frameView = nil
		return
	}

	b.queue.Submit(commandBuffer)

	commandBuffer.Release()
	b.frameEncoder.Release()
	b.frameEncoder = nil
}

func (b *wgpuRendererBackendImpl) Present() {
	b.mu.Lock()
	defer b.mu.Unlock()

	// If no frame surface is held, nothing to present.
	if b.frameSurface == nil {
		return
	}

	// Present the acquired surface image and release local references.
	b.surface.Present()

	if b.frameView != nil {
		b.frameView.Release()
		b.frameView = nil
	}
	if b.frameSurface != nil {
		b.frameSurface.Release()
		b.frameSurface = nil
	}
}

func (b *wgpuRendererBackendImpl) Device() *wgpu.Device {
	return b.device
}

func (b *wgpuRendererBackendImpl) Queue() *wgpu.Queue {
	return b.queue
}

func (b *wgpuRendererBackendImpl) Instance() *wgpu.Instance {
	return b.instance
}

func (b *wgpuRendererBackendImpl) Adapter() *wgpu.Adapter {
	return b.adapter
}

func (b *wgpuRendererBackendImpl) Surface() *wgpu.Surface {
	return b.surface
}

func (b *wgpuRendererBackendImpl) SetDevice(device *wgpu.Device) {
	b.device = device
}

func (b *wgpuRendererBackendImpl) SetQueue(queue *wgpu.Queue) {
	b.queue = queue
}

func (b *wgpuRendererBackendImpl) SetInstance(instance *wgpu.Instance) {
	b.instance = instance
}

func (b *wgpuRendererBackendImpl) SetAdapter(adapter *wgpu.Adapter) {
	b.adapter = adapter
}

func (b *wgpuRendererBackendImpl) SetSurface(surface *wgpu.Surface) {
	b.surface = surface
}

// wgpuBufferAllocator creates persistently mapped storage buffers and hands
// out sequential bindless indices for them.
type wgpuBufferAllocator struct {
	mu        sync.Mutex
	device    *wgpu.Device
	nextIndex uint32
}

func (a *wgpuBufferAllocator) CreateMapped(label string, size uint64) (bindless.MappedBuffer, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	buf, err := a.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label:            label,
		Size:             size,
		Usage:            wgpu.BufferUsageStorage | wgpu.BufferUsageUniform | wgpu.BufferUsageCopySrc,
		MappedAtCreation: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create mapped buffer %q: %w", label, err)
	}

	data := buf.GetMappedRange(0, uint(size))
	index := a.nextIndex
	a.nextIndex++

	return &wgpuMappedBuffer{buffer: buf, data: data, index: index}, nil
}

// wgpuMappedBuffer is a GPU buffer kept mapped for its whole lifetime.
type wgpuMappedBuffer struct {
	buffer *wgpu.Buffer
	data   []byte
	index  uint32
}

var _ bindless.MappedBuffer = &wgpuMappedBuffer{}

func (m *wgpuMappedBuffer) Bytes() []byte {
	return m.data
}

func (m *wgpuMappedBuffer) BindlessIndex() uint32 {
	return m.index
}

func (m *wgpuMappedBuffer) Release() {
	m.data = nil
	m.buffer.Unmap()
	m.buffer.Release()
}
