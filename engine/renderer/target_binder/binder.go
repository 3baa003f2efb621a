package target_binder

import (
	"errors"
	"fmt"
	"unsafe"

	"github.com/Caishangqi/Eurekiel-sub001/common"
	"github.com/cogentcore/webgpu/wgpu"
)

// MaxColorTargets is the maximum number of color target slots one bind
// request may resolve.
const MaxColorTargets = 8

var (
	// ErrDuplicateDepthTarget is returned when a bind request names more
	// than one depth-bearing target, either two from one category or one
	// from each depth-bearing category.
	ErrDuplicateDepthTarget = errors.New("target_binder: bind request names more than one depth-bearing target")

	// ErrUnknownCategory is returned when no provider is registered for a
	// requested category.
	ErrUnknownCategory = errors.New("target_binder: no provider registered for category")

	// ErrFlipUnsupported is returned when Flip targets a category whose
	// provider does not double buffer.
	ErrFlipUnsupported = errors.New("target_binder: category does not support flip state")
)

// LoadAction selects what happens to target contents when a binding is
// flushed.
type LoadAction int

const (
	// LoadActionLoad preserves the existing target contents.
	LoadActionLoad LoadAction = iota

	// LoadActionClear clears every bound target to its clear value after the flush.
	LoadActionClear

	// LoadActionDontCare is reserved; it currently behaves as LoadActionLoad.
	LoadActionDontCare
)

// TargetRequest names one target to bind: a category, an index within the
// category, and an optional per-slot clear value.
type TargetRequest struct {
	// Category is the target family to resolve the index against.
	Category Category
	// Index is the target index within the category. For double-buffered
	// categories with a registered flip set this is a logical slot that
	// the flip set maps to a physical provider index.
	Index int
	// ClearValue overrides the clear color for this slot. Nil selects the
	// default opaque black. Ignored for depth-bearing categories.
	ClearValue *wgpu.Color
}

// Backend receives the resolved binding when a flush decides the state
// actually changed. The renderer's GPU backend implements this; tests use
// call-counting fakes.
type Backend interface {
	// SetRenderTargets binds the resolved color views and optional depth
	// view as the active render targets.
	//
	// Parameters:
	//   - colors: the resolved color views in slot order (entries may be nil for skipped slots)
	//   - depth: the resolved depth view, or nil
	//
	// Returns:
	//   - error: an error if the backend could not bind the targets
	SetRenderTargets(colors []*wgpu.TextureView, depth *wgpu.TextureView) error

	// ClearColor clears one bound color view to a value.
	//
	// Parameters:
	//   - view: the view to clear
	//   - value: the clear color
	ClearColor(view *wgpu.TextureView, value wgpu.Color)

	// ClearDepth clears the bound depth view.
	//
	// Parameters:
	//   - view: the view to clear
	//   - depth: the depth clear value
	//   - stencil: the stencil clear value
	ClearDepth(view *wgpu.TextureView, depth float32, stencil uint32)
}

// FlipIndexSet maps logical target slots onto physical provider indices for
// one double-buffered category. Exactly one of Main/Alt is the read set at
// any time; the other is the write set.
type FlipIndexSet struct {
	// Main is the physical index per logical slot for the main role.
	Main []int
	// Alt is the physical index per logical slot for the alternate role.
	Alt []int
	// UseAlt selects Alt as the read set when true.
	UseAlt bool
}

// Read returns the physical indices currently in the read role.
//
// Returns:
//   - []int: Alt when UseAlt is true, Main otherwise
func (f *FlipIndexSet) Read() []int {
	if f.UseAlt {
		return f.Alt
	}
	return f.Main
}

// Write returns the physical indices currently in the write role.
//
// Returns:
//   - []int: Main when UseAlt is true, Alt otherwise
func (f *FlipIndexSet) Write() []int {
	if f.UseAlt {
		return f.Main
	}
	return f.Alt
}

// bindingState is one resolved binding: ordered color views with matching
// clear values, an optional depth view, and a hash derived from all of it.
type bindingState struct {
	colors     []*wgpu.TextureView
	formats    []wgpu.TextureFormat
	clears     []wgpu.Color
	depthView  *wgpu.TextureView
	depthClear float32
	stencil    uint32
	loadAction LoadAction
	hash       uint64
}

func (s *bindingState) reset() {
	s.colors = s.colors[:0]
	s.formats = s.formats[:0]
	s.clears = s.clears[:0]
	s.depthView = nil
	s.loadAction = LoadActionLoad
	s.hash = 0
}

// rehash derives the state hash from every field that affects what the
// backend would be asked to bind.
func (s *bindingState) rehash() {
	h := common.HashSeed
	h = common.HashMix(h, uint64(s.loadAction))
	h = common.HashMix(h, uint64(len(s.colors)))
	for i, v := range s.colors {
		h = common.HashMix(h, uint64(uintptr(unsafe.Pointer(v))))
		h = common.HashMix(h, uint64(s.formats[i]))
		c := s.clears[i]
		h = common.HashMixFloat(h, float32(c.R))
		h = common.HashMixFloat(h, float32(c.G))
		h = common.HashMixFloat(h, float32(c.B))
		h = common.HashMixFloat(h, float32(c.A))
	}
	h = common.HashMix(h, uint64(uintptr(unsafe.Pointer(s.depthView))))
	h = common.HashMixFloat(h, s.depthClear)
	h = common.HashMix(h, uint64(s.stencil))
	s.hash = h
}

// copyFrom deep-copies another state's slices so current survives the next
// pending reset.
func (s *bindingState) copyFrom(other *bindingState) {
	s.colors = append(s.colors[:0], other.colors...)
	s.formats = append(s.formats[:0], other.formats...)
	s.clears = append(s.clears[:0], other.clears...)
	s.depthView = other.depthView
	s.depthClear = other.depthClear
	s.stencil = other.stencil
	s.loadAction = other.loadAction
	s.hash = other.hash
}

// binder is the implementation of the Binder interface.
type binder struct {
	providers [categoryCount]Provider
	flipSets  [categoryCount]*FlipIndexSet

	pending bindingState
	current bindingState

	// bound is false until the first flush, so the first FlushBindings
	// always reaches the backend even if pending hashes like the zero state.
	bound bool
}

// Binder resolves requested target bindings through per-category providers,
// tracks the hash of the state most recently submitted to the backend, and
// skips the backend call entirely when a flush would rebind identical
// state. The binder is exclusively owned by the render thread.
type Binder interface {
	// RegisterProvider installs the provider serving a category, replacing
	// any previous provider for it.
	//
	// Parameters:
	//   - category: the target family the provider serves
	//   - provider: the provider (must not be nil)
	RegisterProvider(category Category, provider Provider)

	// Provider returns the provider registered for a category, or nil.
	//
	// Parameters:
	//   - category: the target family to look up
	//
	// Returns:
	//   - Provider: the registered provider, or nil
	Provider(category Category) Provider

	// Bind resolves a set of target requests into the pending binding
	// state. At most one request may be depth-bearing; more than one fails
	// fast with ErrDuplicateDepthTarget and leaves the pending state
	// untouched. Unresolvable non-depth slots are logged and skipped.
	//
	// Parameters:
	//   - load: what happens to target contents when the binding flushes
	//   - requests: the targets to bind, in slot order
	//
	// Returns:
	//   - error: ErrDuplicateDepthTarget, ErrUnknownCategory for a
	//     depth-bearing request, or nil
	Bind(load LoadAction, requests ...TargetRequest) error

	// FlushBindings submits the pending binding to the backend if and only
	// if its hash differs from the currently bound state. On submission,
	// a LoadActionClear binding also clears every bound view.
	//
	// Parameters:
	//   - backend: the backend to submit to
	//
	// Returns:
	//   - bool: true if the backend was called, false if the flush was elided
	//   - error: an error from the backend's bind call
	FlushBindings(backend Backend) (bool, error)

	// ForceFlushBindings submits the pending binding unconditionally,
	// bypassing the hash comparison. Use after external invalidation such
	// as a backbuffer resize.
	//
	// Parameters:
	//   - backend: the backend to submit to
	//
	// Returns:
	//   - error: an error from the backend's bind call
	ForceFlushBindings(backend Backend) error

	// HasPendingChanges reports whether a flush would reach the backend.
	//
	// Returns:
	//   - bool: true if the pending state differs from the bound state
	HasPendingChanges() bool

	// SetDepthClear sets the clear values used for depth-bearing targets
	// when a LoadActionClear binding flushes.
	//
	// Parameters:
	//   - depth: the depth clear value
	//   - stencil: the stencil clear value
	SetDepthClear(depth float32, stencil uint32)

	// Flip installs the flip index set for a double-buffered category.
	// When useAlt is true the alternate indices become the read set and the
	// main indices the write set, and vice-versa when false. Call once per
	// producer/consumer boundary; flipping twice without an intervening
	// consumer desynchronizes the read/write roles from the data flow.
	//
	// Parameters:
	//   - category: the double-buffered category to flip
	//   - mainIndices: the physical indices for the main role, per logical slot
	//   - altIndices: the physical indices for the alternate role, per logical slot
	//   - useAlt: selects the alternate indices as the read set
	//
	// Returns:
	//   - error: ErrUnknownCategory or ErrFlipUnsupported
	Flip(category Category, mainIndices, altIndices []int, useAlt bool) error

	// ResetFlips clears every flip index set and resets each registered
	// provider's flip state. Call at render-pass end.
	ResetFlips()
}

var _ Binder = &binder{}

// NewBinder creates a binder with no registered providers.
//
// Parameters:
//   - opts: functional options to further configure the binder
//
// Returns:
//   - Binder: the newly created binder
func NewBinder(opts ...BinderOption) Binder {
	b := &binder{}
	b.pending.depthClear = 1.0
	b.current.depthClear = 1.0
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// BinderOption is a functional option used to configure a Binder during construction.
type BinderOption func(*binder)

// WithProvider registers a provider during construction.
//
// Parameters:
//   - category: the target family the provider serves
//   - provider: the provider to register
//
// Returns:
//   - BinderOption: a function that registers the provider
func WithProvider(category Category, provider Provider) BinderOption {
	return func(b *binder) {
		b.RegisterProvider(category, provider)
	}
}

// WithDepthClear sets the initial depth/stencil clear values.
//
// Parameters:
//   - depth: the depth clear value
//   - stencil: the stencil clear value
//
// Returns:
//   - BinderOption: a function that sets the clear values
func WithDepthClear(depth float32, stencil uint32) BinderOption {
	return func(b *binder) {
		b.SetDepthClear(depth, stencil)
	}
}

func (b *binder) RegisterProvider(category Category, provider Provider) {
	if provider == nil {
		panic("target_binder: RegisterProvider requires a non-nil Provider")
	}
	if category < 0 || category >= categoryCount {
		panic(fmt.Sprintf("target_binder: RegisterProvider called with unknown category %d", category))
	}
	b.providers[category] = provider
}

func (b *binder) Provider(category Category) Provider {
	if category < 0 || category >= categoryCount {
		return nil
	}
	return b.providers[category]
}

func (b *binder) Bind(load LoadAction, requests ...TargetRequest) error {
	// Validate before touching pending state: a rejected request must not
	// leave a half-built binding behind.
	depthSeen := false
	for _, req := range requests {
		if !req.Category.DepthBearing() {
			continue
		}
		if depthSeen {
			return fmt.Errorf("%w: second depth-bearing request (%s %d)",
				ErrDuplicateDepthTarget, req.Category, req.Index)
		}
		depthSeen = true
		if b.providers[req.Category] == nil {
			return fmt.Errorf("%w: %s", ErrUnknownCategory, req.Category)
		}
		if !b.providers[req.Category].SupportsDepthView() {
			return fmt.Errorf("target_binder: provider for %s cannot serve depth views", req.Category)
		}
	}

	b.pending.reset()
	b.pending.loadAction = load

	for _, req := range requests {
		provider := b.providers[req.Category]
		if provider == nil {
			common.Logger().Warn("bind request for unregistered category, slot skipped",
				"category", req.Category.String(), "index", req.Index)
			continue
		}

		index := b.physicalIndex(req.Category, req.Index)
		view := provider.MainView(index)

		if req.Category.DepthBearing() {
			if view == nil {
				common.Logger().Warn("depth target view unresolved, depth binding skipped",
					"category", req.Category.String(), "index", index)
				continue
			}
			b.pending.depthView = view
			continue
		}

		if len(b.pending.colors) >= MaxColorTargets {
			common.Logger().Warn("bind request exceeds color target slots, slot skipped",
				"category", req.Category.String(), "index", index, "max", MaxColorTargets)
			continue
		}

		format := provider.Format(index)
		if view == nil {
			common.Logger().Warn("color target view unresolved, slot skipped",
				"category", req.Category.String(), "index", index)
			format = wgpu.TextureFormatUndefined
		}

		clear := wgpu.Color{R: 0, G: 0, B: 0, A: 1}
		if req.ClearValue != nil {
			clear = *req.ClearValue
		}

		b.pending.colors = append(b.pending.colors, view)
		b.pending.formats = append(b.pending.formats, format)
		b.pending.clears = append(b.pending.clears, clear)
	}

	b.pending.rehash()
	return nil
}

func (b *binder) FlushBindings(backend Backend) (bool, error) {
	if b.bound && b.pending.hash == b.current.hash {
		return false, nil
	}
	return true, b.submit(backend)
}

func (b *binder) ForceFlushBindings(backend Backend) error {
	return b.submit(backend)
}

func (b *binder) HasPendingChanges() bool {
	return !b.bound || b.pending.hash != b.current.hash
}

func (b *binder) SetDepthClear(depth float32, stencil uint32) {
	b.pending.depthClear = depth
	b.pending.stencil = stencil
	// Rehash so a clear-value change after Bind is not elided as identical
	// state by the next flush.
	b.pending.rehash()
}

func (b *binder) Flip(category Category, mainIndices, altIndices []int, useAlt bool) error {
	if !category.DoubleBuffered() {
		return fmt.Errorf("%w: %s", ErrFlipUnsupported, category)
	}
	provider := b.Provider(category)
	if provider == nil {
		return fmt.Errorf("%w: %s", ErrUnknownCategory, category)
	}
	if !provider.SupportsFlipState() {
		return fmt.Errorf("%w: provider for %s has no alternate views", ErrFlipUnsupported, category)
	}
	b.flipSets[category] = &FlipIndexSet{
		Main:   mainIndices,
		Alt:    altIndices,
		UseAlt: useAlt,
	}
	return nil
}

func (b *binder) ResetFlips() {
	for i := range b.flipSets {
		b.flipSets[i] = nil
	}
	for _, provider := range b.providers {
		if provider != nil {
			provider.Reset()
		}
	}
}

// physicalIndex maps a request's logical index through the category's flip
// set, if one is installed. Categories without a flip set resolve directly.
func (b *binder) physicalIndex(category Category, logical int) int {
	set := b.flipSets[category]
	if set == nil {
		return logical
	}
	read := set.Read()
	if logical < 0 || logical >= len(read) {
		return logical
	}
	return read[logical]
}

// submit performs the backend bind and, for clear bindings, the per-view
// clears, then promotes pending to current.
func (b *binder) submit(backend Backend) error {
	if err := backend.SetRenderTargets(b.pending.colors, b.pending.depthView); err != nil {
		return fmt.Errorf("failed to set render targets: %w", err)
	}

	if b.pending.loadAction == LoadActionClear {
		for i, view := range b.pending.colors {
			if view != nil {
				backend.ClearColor(view, b.pending.clears[i])
			}
		}
		if b.pending.depthView != nil {
			backend.ClearDepth(b.pending.depthView, b.pending.depthClear, b.pending.stencil)
		}
	}

	b.current.copyFrom(&b.pending)
	b.bound = true
	return nil
}
