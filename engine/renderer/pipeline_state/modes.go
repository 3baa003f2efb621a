package pipeline_state

import (
	"github.com/cogentcore/webgpu/wgpu"
)

// BlendMode selects one of the fixed blend configurations a pipeline can be
// built with. Each mode maps to a fixed {source factor, destination factor,
// operation} triple for the color and alpha channels separately.
type BlendMode int

const (
	// BlendModeOpaque replaces the destination entirely (src One, dst Zero).
	BlendModeOpaque BlendMode = iota

	// BlendModeAlpha is classic alpha blending with a premultiplied alpha channel.
	BlendModeAlpha

	// BlendModeAdditive accumulates the source onto the destination, scaled by source alpha.
	BlendModeAdditive

	// BlendModeMultiply modulates the destination by the source color.
	BlendModeMultiply

	// BlendModePremultiplied blends source color that already carries its alpha.
	BlendModePremultiplied

	// BlendModeNonPremultiplied blends straight-alpha source color on both channels.
	BlendModeNonPremultiplied

	// BlendModeDisabled turns blending off entirely; the color target gets no blend state.
	BlendModeDisabled
)

// String returns the name of the blend mode for logging.
func (m BlendMode) String() string {
	switch m {
	case BlendModeOpaque:
		return "Opaque"
	case BlendModeAlpha:
		return "Alpha"
	case BlendModeAdditive:
		return "Additive"
	case BlendModeMultiply:
		return "Multiply"
	case BlendModePremultiplied:
		return "Premultiplied"
	case BlendModeNonPremultiplied:
		return "NonPremultiplied"
	case BlendModeDisabled:
		return "Disabled"
	default:
		return "Unknown"
	}
}

// blendStateFor returns the wgpu blend state for a blend mode, or nil when
// blending is disabled for that mode.
func blendStateFor(m BlendMode) *wgpu.BlendState {
	switch m {
	case BlendModeOpaque:
		return &wgpu.BlendState{
			Color: wgpu.BlendComponent{SrcFactor: wgpu.BlendFactorOne, DstFactor: wgpu.BlendFactorZero, Operation: wgpu.BlendOperationAdd},
			Alpha: wgpu.BlendComponent{SrcFactor: wgpu.BlendFactorOne, DstFactor: wgpu.BlendFactorZero, Operation: wgpu.BlendOperationAdd},
		}
	case BlendModeAlpha:
		return &wgpu.BlendState{
			Color: wgpu.BlendComponent{SrcFactor: wgpu.BlendFactorSrcAlpha, DstFactor: wgpu.BlendFactorOneMinusSrcAlpha, Operation: wgpu.BlendOperationAdd},
			Alpha: wgpu.BlendComponent{SrcFactor: wgpu.BlendFactorOne, DstFactor: wgpu.BlendFactorOneMinusSrcAlpha, Operation: wgpu.BlendOperationAdd},
		}
	case BlendModeAdditive:
		return &wgpu.BlendState{
			Color: wgpu.BlendComponent{SrcFactor: wgpu.BlendFactorSrcAlpha, DstFactor: wgpu.BlendFactorOne, Operation: wgpu.BlendOperationAdd},
			Alpha: wgpu.BlendComponent{SrcFactor: wgpu.BlendFactorOne, DstFactor: wgpu.BlendFactorOne, Operation: wgpu.BlendOperationAdd},
		}
	case BlendModeMultiply:
		return &wgpu.BlendState{
			Color: wgpu.BlendComponent{SrcFactor: wgpu.BlendFactorDst, DstFactor: wgpu.BlendFactorZero, Operation: wgpu.BlendOperationAdd},
			Alpha: wgpu.BlendComponent{SrcFactor: wgpu.BlendFactorDstAlpha, DstFactor: wgpu.BlendFactorZero, Operation: wgpu.BlendOperationAdd},
		}
	case BlendModePremultiplied:
		return &wgpu.BlendState{
			Color: wgpu.BlendComponent{SrcFactor: wgpu.BlendFactorOne, DstFactor: wgpu.BlendFactorOneMinusSrcAlpha, Operation: wgpu.BlendOperationAdd},
			Alpha: wgpu.BlendComponent{SrcFactor: wgpu.BlendFactorOne, DstFactor: wgpu.BlendFactorOneMinusSrcAlpha, Operation: wgpu.BlendOperationAdd},
		}
	case BlendModeNonPremultiplied:
		return &wgpu.BlendState{
			Color: wgpu.BlendComponent{SrcFactor: wgpu.BlendFactorSrcAlpha, DstFactor: wgpu.BlendFactorOneMinusSrcAlpha, Operation: wgpu.BlendOperationAdd},
			Alpha: wgpu.BlendComponent{SrcFactor: wgpu.BlendFactorSrcAlpha, DstFactor: wgpu.BlendFactorOneMinusSrcAlpha, Operation: wgpu.BlendOperationAdd},
		}
	case BlendModeDisabled:
		return nil
	default:
		return nil
	}
}

// DepthMode selects one of the fixed depth-test configurations a pipeline
// can be built with. Each mode maps to a fixed {test enabled, write mask,
// compare function} triple. The Reversed variants are for reversed-Z depth
// buffers where greater depth values are nearer.
type DepthMode int

const (
	// DepthModeDisabled performs no depth testing and no depth writes.
	DepthModeDisabled DepthMode = iota

	// DepthModeEnabled is the standard configuration: test LessEqual, write depth.
	DepthModeEnabled

	// DepthModeReadOnly tests LessEqual but does not write depth.
	DepthModeReadOnly

	// DepthModeWriteOnly always passes and writes depth unconditionally.
	DepthModeWriteOnly

	// DepthModeEqual passes only on exact depth equality, without writing.
	DepthModeEqual

	// DepthModeLess tests strictly Less and writes depth.
	DepthModeLess

	// DepthModeNever rejects every fragment.
	DepthModeNever

	// DepthModeGreater tests strictly Greater and writes depth.
	DepthModeGreater

	// DepthModeEnabledReversed is DepthModeEnabled for a reversed-Z buffer: test GreaterEqual, write depth.
	DepthModeEnabledReversed

	// DepthModeReadOnlyReversed is DepthModeReadOnly for a reversed-Z buffer: test GreaterEqual, no write.
	DepthModeReadOnlyReversed
)

// String returns the name of the depth mode for logging.
func (m DepthMode) String() string {
	switch m {
	case DepthModeDisabled:
		return "Disabled"
	case DepthModeEnabled:
		return "Enabled"
	case DepthModeReadOnly:
		return "ReadOnly"
	case DepthModeWriteOnly:
		return "WriteOnly"
	case DepthModeEqual:
		return "Equal"
	case DepthModeLess:
		return "Less"
	case DepthModeNever:
		return "Never"
	case DepthModeGreater:
		return "Greater"
	case DepthModeEnabledReversed:
		return "EnabledReversed"
	case DepthModeReadOnlyReversed:
		return "ReadOnlyReversed"
	default:
		return "Unknown"
	}
}

// depthConfig is the resolved {enabled, write, compare} triple for a DepthMode.
type depthConfig struct {
	enabled bool
	write   bool
	compare wgpu.CompareFunction
}

// depthConfigFor resolves a DepthMode to its test configuration.
func depthConfigFor(m DepthMode) depthConfig {
	switch m {
	case DepthModeDisabled:
		return depthConfig{enabled: false, write: false, compare: wgpu.CompareFunctionAlways}
	case DepthModeEnabled:
		return depthConfig{enabled: true, write: true, compare: wgpu.CompareFunctionLessEqual}
	case DepthModeReadOnly:
		return depthConfig{enabled: true, write: false, compare: wgpu.CompareFunctionLessEqual}
	case DepthModeWriteOnly:
		return depthConfig{enabled: true, write: true, compare: wgpu.CompareFunctionAlways}
	case DepthModeEqual:
		return depthConfig{enabled: true, write: false, compare: wgpu.CompareFunctionEqual}
	case DepthModeLess:
		return depthConfig{enabled: true, write: true, compare: wgpu.CompareFunctionLess}
	case DepthModeNever:
		return depthConfig{enabled: true, write: false, compare: wgpu.CompareFunctionNever}
	case DepthModeGreater:
		return depthConfig{enabled: true, write: true, compare: wgpu.CompareFunctionGreater}
	case DepthModeEnabledReversed:
		return depthConfig{enabled: true, write: true, compare: wgpu.CompareFunctionGreaterEqual}
	case DepthModeReadOnlyReversed:
		return depthConfig{enabled: true, write: false, compare: wgpu.CompareFunctionGreaterEqual}
	default:
		return depthConfig{enabled: false, write: false, compare: wgpu.CompareFunctionAlways}
	}
}

// FillMode selects how primitives are rasterized. WebGPU only supports
// solid fill; the other modes still participate in state keying so a
// backend that supports them can honor them.
type FillMode int

const (
	// FillModeSolid rasterizes filled primitives.
	FillModeSolid FillMode = iota

	// FillModeWireframe rasterizes primitive edges only. Not expressible in
	// WebGPU; the wgpu backend logs a warning and falls back to solid.
	FillModeWireframe
)

// String returns the name of the fill mode for logging.
func (m FillMode) String() string {
	switch m {
	case FillModeSolid:
		return "Solid"
	case FillModeWireframe:
		return "Wireframe"
	default:
		return "Unknown"
	}
}
