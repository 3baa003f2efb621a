package pipeline_state

import (
	"github.com/Caishangqi/Eurekiel-sub001/common"
	"github.com/cogentcore/webgpu/wgpu"
)

// MaxColorTargets is the maximum number of simultaneous color render
// targets a pipeline can write to.
const MaxColorTargets = 8

// StencilState describes the full stencil-test configuration for a
// pipeline. When SeparateBackFace is false the Back face configuration is
// ignored and the Front configuration applies to both faces.
type StencilState struct {
	// Enabled turns the stencil test on.
	Enabled bool
	// SeparateBackFace selects independent front/back-face operations.
	// When false, Front is mirrored onto the back face.
	SeparateBackFace bool
	// ReadMask masks the bits compared against the reference value.
	ReadMask uint32
	// WriteMask masks the bits written to the stencil buffer.
	WriteMask uint32
	// Reference is the value fragments are compared against.
	Reference uint32

	// Front-face operations.
	FrontCompare     wgpu.CompareFunction
	FrontFailOp      wgpu.StencilOperation
	FrontDepthFailOp wgpu.StencilOperation
	FrontPassOp      wgpu.StencilOperation

	// Back-face operations, used only when SeparateBackFace is true.
	BackCompare     wgpu.CompareFunction
	BackFailOp      wgpu.StencilOperation
	BackDepthFailOp wgpu.StencilOperation
	BackPassOp      wgpu.StencilOperation
}

// DefaultStencilState returns the disabled stencil configuration: compare
// Always, all operations Keep, full masks.
//
// Returns:
//   - StencilState: the default configuration
func DefaultStencilState() StencilState {
	return StencilState{
		Enabled:          false,
		ReadMask:         0xFF,
		WriteMask:        0xFF,
		FrontCompare:     wgpu.CompareFunctionAlways,
		FrontFailOp:      wgpu.StencilOperationKeep,
		FrontDepthFailOp: wgpu.StencilOperationKeep,
		FrontPassOp:      wgpu.StencilOperationKeep,
		BackCompare:      wgpu.CompareFunctionAlways,
		BackFailOp:       wgpu.StencilOperationKeep,
		BackDepthFailOp:  wgpu.StencilOperationKeep,
		BackPassOp:       wgpu.StencilOperationKeep,
	}
}

// faces resolves the front and back stencil face states, mirroring the
// front face onto the back when SeparateBackFace is false.
func (s StencilState) faces() (front, back wgpu.StencilFaceState) {
	front = wgpu.StencilFaceState{
		Compare:     s.FrontCompare,
		FailOp:      s.FrontFailOp,
		DepthFailOp: s.FrontDepthFailOp,
		PassOp:      s.FrontPassOp,
	}
	if s.SeparateBackFace {
		back = wgpu.StencilFaceState{
			Compare:     s.BackCompare,
			FailOp:      s.BackFailOp,
			DepthFailOp: s.BackDepthFailOp,
			PassOp:      s.BackPassOp,
		}
	} else {
		back = front
	}
	return front, back
}

// RasterState describes the rasterizer configuration for a pipeline:
// fill/cull/winding, the depth-bias triple, feature flags, and the forced
// sample count. Flags WebGPU cannot express (scissor, multisample toggle,
// antialiased lines, forced sample count) still participate in keying and
// hashing so pipelines built with different values never alias.
type RasterState struct {
	// FillMode selects solid or wireframe rasterization.
	FillMode FillMode
	// CullMode selects which faces are discarded.
	CullMode wgpu.CullMode
	// Winding selects the front-face winding order.
	Winding wgpu.FrontFace

	// DepthBias is the constant depth bias added to every fragment.
	DepthBias int32
	// DepthBiasClamp bounds the total applied bias.
	DepthBiasClamp float32
	// DepthBiasSlopeScale scales the bias by the polygon's depth slope.
	DepthBiasSlopeScale float32

	// DepthClipEnabled clips fragments outside the depth range instead of clamping.
	DepthClipEnabled bool
	// ScissorEnabled honors the scissor rectangle during rasterization.
	ScissorEnabled bool
	// MultisampleEnabled enables multisample rasterization rules.
	MultisampleEnabled bool
	// AntialiasedLineEnabled enables line antialiasing.
	AntialiasedLineEnabled bool

	// ForcedSampleCount forces the rasterizer sample count; 0 leaves it unforced.
	ForcedSampleCount uint32
}

// DefaultRasterState returns the standard rasterizer configuration: solid
// fill, back-face culling, counter-clockwise winding, depth clip on, no bias.
//
// Returns:
//   - RasterState: the default configuration
func DefaultRasterState() RasterState {
	return RasterState{
		FillMode:         FillModeSolid,
		CullMode:         wgpu.CullModeBack,
		Winding:          wgpu.FrontFaceCCW,
		DepthClipEnabled: true,
	}
}

// StateKey is the composite key a pipeline is cached under: shader program
// handle, render-target formats, and the blend/depth/stencil/raster
// configuration. StateKey is a comparable value type; two keys with
// identical field-wise values compare equal with == and hash identically.
type StateKey struct {
	// Program identifies the shader program via the stable registry handle.
	Program ProgramHandle
	// ColorFormats are the pixel formats of the bound color targets.
	// TextureFormatUndefined slots are treated as unused targets.
	ColorFormats [MaxColorTargets]wgpu.TextureFormat
	// DepthFormat is the pixel format of the depth target, or
	// TextureFormatUndefined when no depth target is bound.
	DepthFormat wgpu.TextureFormat
	// Blend selects the blend configuration.
	Blend BlendMode
	// Depth selects the depth-test configuration.
	Depth DepthMode
	// Stencil is the full stencil-test configuration.
	Stencil StencilState
	// Raster is the rasterizer configuration.
	Raster RasterState
}

// NewStateKey returns a key with the default sub-blocks: opaque blend,
// standard depth, stencil disabled, default rasterizer.
//
// Parameters:
//   - program: the shader program handle for the pipeline
//
// Returns:
//   - StateKey: the default-configured key
func NewStateKey(program ProgramHandle) StateKey {
	return StateKey{
		Program: program,
		Blend:   BlendModeOpaque,
		Depth:   DepthModeEnabled,
		Stencil: DefaultStencilState(),
		Raster:  DefaultRasterState(),
	}
}

// Hash computes an order-sensitive 64-bit hash over every field of the key.
// The hash is deterministic across runs but is only a bucket selector:
// equality on the key itself is the authoritative identity check.
//
// Returns:
//   - uint64: the key's hash
func (k StateKey) Hash() uint64 {
	h := common.HashSeed
	h = common.HashMix(h, uint64(k.Program.index))
	h = common.HashMix(h, uint64(k.Program.generation))
	for _, f := range k.ColorFormats {
		h = common.HashMix(h, uint64(f))
	}
	h = common.HashMix(h, uint64(k.DepthFormat))
	h = common.HashMix(h, uint64(k.Blend))
	h = common.HashMix(h, uint64(k.Depth))

	s := k.Stencil
	h = common.HashMixBool(h, s.Enabled)
	h = common.HashMixBool(h, s.SeparateBackFace)
	h = common.HashMix(h, uint64(s.ReadMask))
	h = common.HashMix(h, uint64(s.WriteMask))
	h = common.HashMix(h, uint64(s.Reference))
	h = common.HashMix(h, uint64(s.FrontCompare))
	h = common.HashMix(h, uint64(s.FrontFailOp))
	h = common.HashMix(h, uint64(s.FrontDepthFailOp))
	h = common.HashMix(h, uint64(s.FrontPassOp))
	h = common.HashMix(h, uint64(s.BackCompare))
	h = common.HashMix(h, uint64(s.BackFailOp))
	h = common.HashMix(h, uint64(s.BackDepthFailOp))
	h = common.HashMix(h, uint64(s.BackPassOp))

	r := k.Raster
	h = common.HashMix(h, uint64(r.FillMode))
	h = common.HashMix(h, uint64(r.CullMode))
	h = common.HashMix(h, uint64(r.Winding))
	h = common.HashMix(h, uint64(uint32(r.DepthBias)))
	h = common.HashMixFloat(h, r.DepthBiasClamp)
	h = common.HashMixFloat(h, r.DepthBiasSlopeScale)
	h = common.HashMixBool(h, r.DepthClipEnabled)
	h = common.HashMixBool(h, r.ScissorEnabled)
	h = common.HashMixBool(h, r.MultisampleEnabled)
	h = common.HashMixBool(h, r.AntialiasedLineEnabled)
	h = common.HashMix(h, uint64(r.ForcedSampleCount))
	return h
}

// ColorTargetCount returns the number of color formats up to and including
// the last used (non-Undefined) slot.
//
// Returns:
//   - int: the count of color target slots in use
func (k StateKey) ColorTargetCount() int {
	count := 0
	for i, f := range k.ColorFormats {
		if f != wgpu.TextureFormatUndefined {
			count = i + 1
		}
	}
	return count
}
