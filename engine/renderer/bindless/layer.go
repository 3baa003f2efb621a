package bindless

import (
	"fmt"

	"github.com/Caishangqi/Eurekiel-sub001/common"
)

// Layer owns the frequency-tiered ring buffers behind the bindless shader
// interface. Engine systems write typed values into it; once per frame the
// renderer calls SyncToGPU, which pushes only the categories that changed
// and refreshes the root index table the shaders dereference.
//
// The layer is not safe for concurrent use. All writes and SyncToGPU must
// happen on the render goroutine.
type Layer interface {
	// RegisterBuffer creates a ring buffer for an application-defined kind.
	// Kinds below KindFirstUser are reserved. Registering the same kind
	// twice is a logged no-op.
	RegisterBuffer(kind BufferKind, freq UpdateFrequency, elementSize int, maxCount int) error

	// UploadBuffer writes a value into the next slot of the kind's ring and
	// returns the slot index the shader should read.
	UploadBuffer(kind BufferKind, value GPUValue) (uint32, error)

	// LastWritten reports the most recent value and slot index uploaded to
	// the kind, and whether anything has been written at all. The returned
	// value is a snapshot taken at upload time; mutating the original value
	// after the upload does not affect it.
	LastWritten(kind BufferKind) (GPUValue, uint32, bool)

	// SetCameraPlayer stages the camera and player view state.
	SetCameraPlayer(v CameraPlayerUniform)

	// SetScreenSystem stages screen resolution and timing state.
	SetScreenSystem(v ScreenSystemUniform)

	// SetIdentifier stages the world and session identity block.
	SetIdentifier(v IdentifierUniform)

	// SetWorldWeather stages weather and sky state.
	SetWorldWeather(v WorldWeatherUniform)

	// SetBiomeDimension stages biome and dimension tint state.
	SetBiomeDimension(v BiomeDimensionUniform)

	// SetRenderState stages the per-pass render flags.
	SetRenderState(v RenderStateUniform)

	// SetMatrices stages the per-object transform block.
	SetMatrices(v MatrixUniform)

	// SetColorTargetIndex records the bindless index of a bound color
	// target in the given table slot.
	SetColorTargetIndex(slot int, index uint32) error

	// SetDepthTargetIndex records the bindless index of a bound depth
	// target in the given table slot.
	SetDepthTargetIndex(slot int, index uint32) error

	// SetShadowColorTargetIndex records the bindless index of a bound
	// shadow color target in the given table slot.
	SetShadowColorTargetIndex(slot int, index uint32) error

	// SetShadowDepthTargetIndex records the bindless index of a bound
	// shadow depth target in the given table slot.
	SetShadowDepthTargetIndex(slot int, index uint32) error

	// SetCustomImageIndex records the bindless index of a custom image in
	// the given table slot.
	SetCustomImageIndex(slot int, index uint32) error

	// SyncToGPU uploads every dirty category and, when any category buffer
	// moved or was written for the first time, re-uploads the root index
	// table. It returns the number of categories uploaded.
	SyncToGPU() (int, error)

	// RootTableIndex reports the bindless index of the root index table
	// buffer, the single index shaders need to reach everything else.
	RootTableIndex() uint32

	// CurrentDrawCount reports the number of draws issued this frame.
	CurrentDrawCount() uint64

	// IncrementDrawCount advances the per-frame draw counter.
	IncrementDrawCount()

	// ResetDrawCount zeroes the per-frame draw counter, called at frame end.
	ResetDrawCount()

	// Release frees every buffer the layer owns.
	Release()
}

type layer struct {
	alloc BufferAllocator
	rings map[BufferKind]*ringBuffer

	perObjectCapacity int

	// Staged category values, uploaded lazily by SyncToGPU.
	cameraPlayer   CameraPlayerUniform
	screenSystem   ScreenSystemUniform
	identifier     IdentifierUniform
	worldWeather   WorldWeatherUniform
	biomeDimension BiomeDimensionUniform
	renderState    RenderStateUniform
	matrices       MatrixUniform

	colorTargets TargetIndexTable
	depthTargets TargetIndexTable
	shadowColor  TargetIndexTable
	shadowDepth  TargetIndexTable
	customImages CustomImageTable

	dirty [categoryCount]bool

	rootTable RootIndexTable
	rootRing  *ringBuffer
	rootDirty bool

	drawCount uint64
}

var _ Layer = &layer{}

// LayerOption configures a Layer during construction.
type LayerOption func(*layer)

// WithPerObjectCapacity overrides the ring capacity used for the per-object
// matrix buffer. The capacity bounds how many draws can be issued per frame
// window without overwriting slots still in flight.
func WithPerObjectCapacity(capacity int) LayerOption {
	return func(l *layer) {
		if capacity > 0 {
			l.perObjectCapacity = capacity
		}
	}
}

// NewLayer creates a Layer on the given allocator and registers the
// reserved category buffers plus the root index table.
//
// Parameters:
//   - alloc: the buffer allocator backing every ring. Must not be nil.
//   - opts: optional configuration.
//
// Returns:
//   - Layer: the constructed layer.
//   - error: non-nil if any reserved buffer could not be allocated.
func NewLayer(alloc BufferAllocator, opts ...LayerOption) (Layer, error) {
	if alloc == nil {
		panic("bindless: allocator must not be nil")
	}
	l := &layer{
		alloc:             alloc,
		rings:             make(map[BufferKind]*ringBuffer),
		perObjectCapacity: DefaultPerObjectCapacity,
	}
	for _, opt := range opts {
		opt(l)
	}

	for c := Category(0); c < categoryCount; c++ {
		kind, freq, size := categoryLayout(c)
		maxCount := 1
		if freq == FrequencyPerObject {
			maxCount = l.perObjectCapacity
		}
		if err := l.register(kind, freq, size, maxCount); err != nil {
			l.Release()
			return nil, fmt.Errorf("failed to allocate %s buffer: %w", c, err)
		}
	}

	rootSize := (&RootIndexTable{}).Size()
	if err := l.register(KindRootIndexTable, FrequencyPerFrame, rootSize, 1); err != nil {
		l.Release()
		return nil, fmt.Errorf("failed to allocate root index table buffer: %w", err)
	}
	l.rootRing = l.rings[KindRootIndexTable]

	// Every category starts dirty so the first sync seeds the whole set.
	for c := Category(0); c < categoryCount; c++ {
		l.dirty[c] = true
	}
	l.rootDirty = true

	return l, nil
}

// categoryLayout resolves a category to its reserved kind, update tier and
// element size.
func categoryLayout(c Category) (BufferKind, UpdateFrequency, int) {
	switch c {
	case CategoryCameraPlayer:
		return KindCameraPlayer, FrequencyPerFrame, (&CameraPlayerUniform{}).Size()
	case CategoryScreenSystem:
		return KindScreenSystem, FrequencyPerFrame, (&ScreenSystemUniform{}).Size()
	case CategoryIdentifier:
		return KindIdentifier, FrequencyStatic, (&IdentifierUniform{}).Size()
	case CategoryWorldWeather:
		return KindWorldWeather, FrequencyPerFrame, (&WorldWeatherUniform{}).Size()
	case CategoryBiomeDimension:
		return KindBiomeDimension, FrequencyPerPass, (&BiomeDimensionUniform{}).Size()
	case CategoryRenderState:
		return KindRenderState, FrequencyPerPass, (&RenderStateUniform{}).Size()
	case CategoryMatrices:
		return KindMatrices, FrequencyPerObject, (&MatrixUniform{}).Size()
	case CategoryColorTargets:
		return KindColorTargetTable, FrequencyPerFrame, (&TargetIndexTable{}).Size()
	case CategoryDepthTargets:
		return KindDepthTargetTable, FrequencyPerFrame, (&TargetIndexTable{}).Size()
	case CategoryShadowColorTargets:
		return KindShadowColorTable, FrequencyPerFrame, (&TargetIndexTable{}).Size()
	case CategoryShadowDepthTargets:
		return KindShadowDepthTable, FrequencyPerFrame, (&TargetIndexTable{}).Size()
	case CategoryCustomImages:
		return KindCustomImageTable, FrequencyPerFrame, (&CustomImageTable{}).Size()
	default:
		panic(fmt.Sprintf("bindless: unmapped category %d", c))
	}
}

// register allocates and records a ring for the given kind. Internal use
// bypasses the reserved-kind guard that RegisterBuffer applies.
func (l *layer) register(kind BufferKind, freq UpdateFrequency, elementSize int, maxCount int) error {
	if existing, ok := l.rings[kind]; ok {
		common.Logger().Warn("buffer kind already registered, keeping existing",
			"kind", int(kind), "frequency", existing.freq.String(),
			"stride", existing.stride, "capacity", existing.capacity)
		return nil
	}
	if elementSize <= 0 {
		return fmt.Errorf("element size must be positive, got %d", elementSize)
	}
	capacity := tierCapacity(freq, maxCount)
	if capacity <= 0 {
		return fmt.Errorf("ring capacity must be positive, got %d", capacity)
	}

	stride := roundUpStride(elementSize)
	label := fmt.Sprintf("bindless-kind-%d", kind)
	buf, err := l.alloc.CreateMapped(label, uint64(stride)*uint64(capacity))
	if err != nil {
		return fmt.Errorf("failed to create mapped buffer for kind %d: %w", kind, err)
	}

	l.rings[kind] = &ringBuffer{
		kind:     kind,
		freq:     freq,
		buffer:   buf,
		stride:   stride,
		capacity: capacity,
	}
	return nil
}

func (l *layer) RegisterBuffer(kind BufferKind, freq UpdateFrequency, elementSize int, maxCount int) error {
	if kind < KindFirstUser {
		return fmt.Errorf("buffer kind %d is reserved, application kinds start at %d", kind, KindFirstUser)
	}
	return l.register(kind, freq, elementSize, maxCount)
}

func (l *layer) UploadBuffer(kind BufferKind, value GPUValue) (uint32, error) {
	ring, ok := l.rings[kind]
	if !ok {
		return 0, fmt.Errorf("%w: kind %d", ErrUnknownBufferKind, kind)
	}
	return ring.upload(value)
}

func (l *layer) LastWritten(kind BufferKind) (GPUValue, uint32, bool) {
	ring, ok := l.rings[kind]
	if !ok || !ring.written {
		return nil, 0, false
	}
	return ring.lastValue, ring.lastIndex, true
}

func (l *layer) SetCameraPlayer(v CameraPlayerUniform) {
	l.cameraPlayer = v
	l.dirty[CategoryCameraPlayer] = true
}

func (l *layer) SetScreenSystem(v ScreenSystemUniform) {
	l.screenSystem = v
	l.dirty[CategoryScreenSystem] = true
}

func (l *layer) SetIdentifier(v IdentifierUniform) {
	l.identifier = v
	l.dirty[CategoryIdentifier] = true
}

func (l *layer) SetWorldWeather(v WorldWeatherUniform) {
	l.worldWeather = v
	l.dirty[CategoryWorldWeather] = true
}

func (l *layer) SetBiomeDimension(v BiomeDimensionUniform) {
	l.biomeDimension = v
	l.dirty[CategoryBiomeDimension] = true
}

func (l *layer) SetRenderState(v RenderStateUniform) {
	l.renderState = v
	l.dirty[CategoryRenderState] = true
}

func (l *layer) SetMatrices(v MatrixUniform) {
	l.matrices = v
	l.dirty[CategoryMatrices] = true
}

func (l *layer) SetColorTargetIndex(slot int, index uint32) error {
	if err := l.colorTargets.Set(slot, index); err != nil {
		return err
	}
	l.dirty[CategoryColorTargets] = true
	return nil
}

func (l *layer) SetDepthTargetIndex(slot int, index uint32) error {
	if err := l.depthTargets.Set(slot, index); err != nil {
		return err
	}
	l.dirty[CategoryDepthTargets] = true
	return nil
}

func (l *layer) SetShadowColorTargetIndex(slot int, index uint32) error {
	if err := l.shadowColor.Set(slot, index); err != nil {
		return err
	}
	l.dirty[CategoryShadowColorTargets] = true
	return nil
}

func (l *layer) SetShadowDepthTargetIndex(slot int, index uint32) error {
	if err := l.shadowDepth.Set(slot, index); err != nil {
		return err
	}
	l.dirty[CategoryShadowDepthTargets] = true
	return nil
}

func (l *layer) SetCustomImageIndex(slot int, index uint32) error {
	if err := l.customImages.Set(slot, index); err != nil {
		return err
	}
	l.dirty[CategoryCustomImages] = true
	return nil
}

// categoryValue returns the staged value for a category.
func (l *layer) categoryValue(c Category) GPUValue {
	switch c {
	case CategoryCameraPlayer:
		return &l.cameraPlayer
	case CategoryScreenSystem:
		return &l.screenSystem
	case CategoryIdentifier:
		return &l.identifier
	case CategoryWorldWeather:
		return &l.worldWeather
	case CategoryBiomeDimension:
		return &l.biomeDimension
	case CategoryRenderState:
		return &l.renderState
	case CategoryMatrices:
		return &l.matrices
	case CategoryColorTargets:
		return &l.colorTargets
	case CategoryDepthTargets:
		return &l.depthTargets
	case CategoryShadowColorTargets:
		return &l.shadowColor
	case CategoryShadowDepthTargets:
		return &l.shadowDepth
	case CategoryCustomImages:
		return &l.customImages
	default:
		panic(fmt.Sprintf("bindless: unmapped category %d", c))
	}
}

func (l *layer) SyncToGPU() (int, error) {
	uploaded := 0
	for c := Category(0); c < categoryCount; c++ {
		if !l.dirty[c] {
			continue
		}
		kind, _, _ := categoryLayout(c)
		ring := l.rings[kind]
		if _, err := ring.upload(l.categoryValue(c)); err != nil {
			return uploaded, fmt.Errorf("failed to upload %s category: %w", c, err)
		}
		l.dirty[c] = false
		uploaded++

		idx := ring.buffer.BindlessIndex()
		if l.rootTable.Slots[c] != idx {
			l.rootTable.Slots[c] = idx
			l.rootDirty = true
		}
	}

	if l.rootDirty {
		if _, err := l.rootRing.upload(&l.rootTable); err != nil {
			return uploaded, fmt.Errorf("failed to upload root index table: %w", err)
		}
		l.rootDirty = false
	}
	return uploaded, nil
}

func (l *layer) RootTableIndex() uint32 {
	return l.rootRing.buffer.BindlessIndex()
}

func (l *layer) CurrentDrawCount() uint64 {
	return l.drawCount
}

func (l *layer) IncrementDrawCount() {
	l.drawCount++
}

func (l *layer) ResetDrawCount() {
	l.drawCount = 0
}

func (l *layer) Release() {
	for _, ring := range l.rings {
		if ring.buffer != nil {
			ring.buffer.Release()
		}
	}
	l.rings = make(map[BufferKind]*ringBuffer)
	l.rootRing = nil
}
