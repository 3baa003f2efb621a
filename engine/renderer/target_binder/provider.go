package target_binder

import (
	"github.com/cogentcore/webgpu/wgpu"
)

// Provider resolves target indices for one category into native views and
// formats. The binder treats providers polymorphically: adding a new target
// family means implementing this interface, not modifying the binder.
type Provider interface {
	// MainView returns the view currently in the main role for an index,
	// or nil if the index has no resolvable view.
	//
	// Parameters:
	//   - index: the target index within this category
	//
	// Returns:
	//   - *wgpu.TextureView: the main-role view, or nil
	MainView(index int) *wgpu.TextureView

	// AltView returns the view currently in the alternate role for an
	// index, or nil if the provider does not double buffer this index.
	//
	// Parameters:
	//   - index: the target index within this category
	//
	// Returns:
	//   - *wgpu.TextureView: the alternate-role view, or nil
	AltView(index int) *wgpu.TextureView

	// Format returns the pixel format of the target at an index, or
	// TextureFormatUndefined if the index has no resolvable view.
	//
	// Parameters:
	//   - index: the target index within this category
	//
	// Returns:
	//   - wgpu.TextureFormat: the target's format
	Format(index int) wgpu.TextureFormat

	// SupportsFlipState reports whether the provider holds alternate views
	// that Flip can swap into the main role.
	//
	// Returns:
	//   - bool: true if the provider double buffers
	SupportsFlipState() bool

	// SupportsDepthView reports whether this provider's views can attach as
	// a pass's depth target.
	//
	// Returns:
	//   - bool: true if the views are depth-capable
	SupportsDepthView() bool

	// Flip swaps the main and alternate roles for one index.
	//
	// Parameters:
	//   - index: the target index to flip
	Flip(index int)

	// FlipAll swaps the main and alternate roles for every index.
	FlipAll()

	// Reset restores every index to its original main/alternate roles.
	Reset()
}

// textureProvider is the implementation of the Provider interface over
// pre-created texture views. Indices with an alternate view double buffer:
// Flip swaps which of the two views MainView returns.
type textureProvider struct {
	label        string
	main         []*wgpu.TextureView
	alt          []*wgpu.TextureView
	formats      []wgpu.TextureFormat
	depthCapable bool

	// flipped[i] is true when index i's roles are swapped.
	flipped []bool
}

var _ Provider = &textureProvider{}

// NewTextureProvider creates a Provider over parallel slices of views and
// formats. The alt slice may be nil (no double buffering) or must match
// main in length.
//
// Parameters:
//   - label: a debug label for the provider
//   - main: the main-role view per index
//   - alt: the alternate-role view per index, or nil
//   - formats: the pixel format per index (must match main in length)
//   - opts: functional options to further configure the provider
//
// Returns:
//   - Provider: the newly created provider
func NewTextureProvider(label string, main, alt []*wgpu.TextureView, formats []wgpu.TextureFormat, opts ...TextureProviderOption) Provider {
	if len(formats) != len(main) {
		panic("target_binder: NewTextureProvider formats must match main views in length")
	}
	if alt != nil && len(alt) != len(main) {
		panic("target_binder: NewTextureProvider alt views must match main views in length")
	}
	p := &textureProvider{
		label:   label,
		main:    main,
		alt:     alt,
		formats: formats,
		flipped: make([]bool, len(main)),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// TextureProviderOption is a functional option used to configure a texture provider during construction.
type TextureProviderOption func(*textureProvider)

// WithDepthCapable marks the provider's views as attachable depth targets.
//
// Returns:
//   - TextureProviderOption: a function that marks the provider depth-capable
func WithDepthCapable() TextureProviderOption {
	return func(p *textureProvider) {
		p.depthCapable = true
	}
}

func (p *textureProvider) MainView(index int) *wgpu.TextureView {
	if index < 0 || index >= len(p.main) {
		return nil
	}
	if p.flipped[index] && p.alt != nil && p.alt[index] != nil {
		return p.alt[index]
	}
	return p.main[index]
}

func (p *textureProvider) AltView(index int) *wgpu.TextureView {
	if index < 0 || index >= len(p.main) || p.alt == nil || p.alt[index] == nil {
		return nil
	}
	if p.flipped[index] {
		return p.main[index]
	}
	return p.alt[index]
}

func (p *textureProvider) Format(index int) wgpu.TextureFormat {
	if index < 0 || index >= len(p.formats) {
		return wgpu.TextureFormatUndefined
	}
	return p.formats[index]
}

func (p *textureProvider) SupportsFlipState() bool {
	return p.alt != nil
}

func (p *textureProvider) SupportsDepthView() bool {
	return p.depthCapable
}

func (p *textureProvider) Flip(index int) {
	if index < 0 || index >= len(p.flipped) {
		return
	}
	p.flipped[index] = !p.flipped[index]
}

func (p *textureProvider) FlipAll() {
	for i := range p.flipped {
		p.flipped[i] = !p.flipped[i]
	}
}

func (p *textureProvider) Reset() {
	for i := range p.flipped {
		p.flipped[i] = false
	}
}
