package pipeline_state

import (
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
)

func TestBlendStateFor(t *testing.T) {
	tests := []struct {
		mode     BlendMode
		srcColor wgpu.BlendFactor
		dstColor wgpu.BlendFactor
		srcAlpha wgpu.BlendFactor
		dstAlpha wgpu.BlendFactor
	}{
		{BlendModeOpaque, wgpu.BlendFactorOne, wgpu.BlendFactorZero, wgpu.BlendFactorOne, wgpu.BlendFactorZero},
		{BlendModeAlpha, wgpu.BlendFactorSrcAlpha, wgpu.BlendFactorOneMinusSrcAlpha, wgpu.BlendFactorOne, wgpu.BlendFactorOneMinusSrcAlpha},
		{BlendModeAdditive, wgpu.BlendFactorSrcAlpha, wgpu.BlendFactorOne, wgpu.BlendFactorOne, wgpu.BlendFactorOne},
		{BlendModeMultiply, wgpu.BlendFactorDst, wgpu.BlendFactorZero, wgpu.BlendFactorDstAlpha, wgpu.BlendFactorZero},
		{BlendModePremultiplied, wgpu.BlendFactorOne, wgpu.BlendFactorOneMinusSrcAlpha, wgpu.BlendFactorOne, wgpu.BlendFactorOneMinusSrcAlpha},
		{BlendModeNonPremultiplied, wgpu.BlendFactorSrcAlpha, wgpu.BlendFactorOneMinusSrcAlpha, wgpu.BlendFactorSrcAlpha, wgpu.BlendFactorOneMinusSrcAlpha},
	}

	for _, tt := range tests {
		t.Run(tt.mode.String(), func(t *testing.T) {
			state := blendStateFor(tt.mode)
			if state == nil {
				t.Fatalf("blendStateFor(%s) returned nil", tt.mode)
			}
			if state.Color.SrcFactor != tt.srcColor || state.Color.DstFactor != tt.dstColor {
				t.Errorf("color factors = (%v, %v), want (%v, %v)",
					state.Color.SrcFactor, state.Color.DstFactor, tt.srcColor, tt.dstColor)
			}
			if state.Alpha.SrcFactor != tt.srcAlpha || state.Alpha.DstFactor != tt.dstAlpha {
				t.Errorf("alpha factors = (%v, %v), want (%v, %v)",
					state.Alpha.SrcFactor, state.Alpha.DstFactor, tt.srcAlpha, tt.dstAlpha)
			}
			if state.Color.Operation != wgpu.BlendOperationAdd || state.Alpha.Operation != wgpu.BlendOperationAdd {
				t.Errorf("operations = (%v, %v), want Add for both", state.Color.Operation, state.Alpha.Operation)
			}
		})
	}

	if state := blendStateFor(BlendModeDisabled); state != nil {
		t.Errorf("blendStateFor(Disabled) = %+v, want nil", state)
	}
}

func TestDepthConfigFor(t *testing.T) {
	tests := []struct {
		mode    DepthMode
		enabled bool
		write   bool
		compare wgpu.CompareFunction
	}{
		{DepthModeDisabled, false, false, wgpu.CompareFunctionAlways},
		{DepthModeEnabled, true, true, wgpu.CompareFunctionLessEqual},
		{DepthModeReadOnly, true, false, wgpu.CompareFunctionLessEqual},
		{DepthModeWriteOnly, true, true, wgpu.CompareFunctionAlways},
		{DepthModeEqual, true, false, wgpu.CompareFunctionEqual},
		{DepthModeLess, true, true, wgpu.CompareFunctionLess},
		{DepthModeNever, true, false, wgpu.CompareFunctionNever},
		{DepthModeGreater, true, true, wgpu.CompareFunctionGreater},
		{DepthModeEnabledReversed, true, true, wgpu.CompareFunctionGreaterEqual},
		{DepthModeReadOnlyReversed, true, false, wgpu.CompareFunctionGreaterEqual},
	}

	for _, tt := range tests {
		t.Run(tt.mode.String(), func(t *testing.T) {
			cfg := depthConfigFor(tt.mode)
			if cfg.enabled != tt.enabled || cfg.write != tt.write || cfg.compare != tt.compare {
				t.Errorf("depthConfigFor(%s) = {enabled:%v write:%v compare:%v}, want {enabled:%v write:%v compare:%v}",
					tt.mode, cfg.enabled, cfg.write, cfg.compare, tt.enabled, tt.write, tt.compare)
			}
		})
	}
}
