package pipeline_state

import (
	"errors"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
)

// countingBuild returns a BuildFunc that counts calls and hands back a
// distinct pipeline pointer per build. The pointers are sentinels for
// identity checks only; tests using them must never trigger a Release.
func countingBuild(calls *atomic.Uint64) BuildFunc {
	return func(desc *StateDescriptor) (*wgpu.RenderPipeline, error) {
		calls.Add(1)
		return &wgpu.RenderPipeline{}, nil
	}
}

// nilBuild counts calls but reports nil pipelines, so tests that exercise
// Clear or concurrent inserts never release a sentinel pointer.
func nilBuild(calls *atomic.Uint64) BuildFunc {
	return func(desc *StateDescriptor) (*wgpu.RenderPipeline, error) {
		calls.Add(1)
		return nil, nil
	}
}

func newTestCache(t *testing.T, build BuildFunc, opts ...CacheOption) (Cache, StateKey) {
	t.Helper()
	registry := NewProgramRegistry()
	handle := registry.Register(testVertexShader("vs"), testFragmentShader("fs"))

	key := NewStateKey(handle)
	key.ColorFormats[0] = wgpu.TextureFormatBGRA8Unorm
	key.DepthFormat = wgpu.TextureFormatDepth24Plus

	return NewCache(registry, build, opts...), key
}

func TestCacheMissThenHit(t *testing.T) {
	var calls atomic.Uint64
	c, key := newTestCache(t, countingBuild(&calls))

	first, err := c.GetOrCreate(key)
	if err != nil {
		t.Fatalf("GetOrCreate() error: %v", err)
	}
	second, err := c.GetOrCreate(key)
	if err != nil {
		t.Fatalf("GetOrCreate() second lookup error: %v", err)
	}

	if first != second {
		t.Error("repeated lookups on the same key returned different pipelines")
	}
	if calls.Load() != 1 {
		t.Errorf("build calls = %d, want 1", calls.Load())
	}
	if got := c.Stats(); got.Hits != 1 || got.Misses != 1 || got.Fallbacks != 0 {
		t.Errorf("Stats() = %+v, want 1 hit, 1 miss, 0 fallbacks", got)
	}
	if c.Len() != 1 {
		t.Errorf("Len() = %d, want 1", c.Len())
	}
}

func TestCacheDistinctKeysBuildSeparately(t *testing.T) {
	var calls atomic.Uint64
	c, key := newTestCache(t, countingBuild(&calls))

	additive := key
	additive.Blend = BlendModeAdditive

	a, err := c.GetOrCreate(key)
	if err != nil {
		t.Fatalf("GetOrCreate(opaque) error: %v", err)
	}
	b, err := c.GetOrCreate(additive)
	if err != nil {
		t.Fatalf("GetOrCreate(additive) error: %v", err)
	}

	if a == b {
		t.Error("different keys returned the same pipeline")
	}
	if calls.Load() != 2 {
		t.Errorf("build calls = %d, want 2", calls.Load())
	}
	if c.Len() != 2 {
		t.Errorf("Len() = %d, want 2", c.Len())
	}
}

func TestCacheFallbackRetry(t *testing.T) {
	var calls atomic.Uint64
	// Fail any descriptor whose first color target carries a blend state
	// other than opaque, so the fallback retry succeeds.
	build := func(desc *StateDescriptor) (*wgpu.RenderPipeline, error) {
		calls.Add(1)
		if b := desc.ColorTargets[0].Blend; b != nil && b.Color.DstFactor != wgpu.BlendFactorZero {
			return nil, fmt.Errorf("unsupported blend state")
		}
		return nil, nil
	}
	c, key := newTestCache(t, build)
	key.Blend = BlendModeAdditive

	if _, err := c.GetOrCreate(key); err != nil {
		t.Fatalf("GetOrCreate() should recover via fallback, got: %v", err)
	}
	if calls.Load() != 2 {
		t.Errorf("build calls = %d, want 2 (original then fallback)", calls.Load())
	}
	if got := c.Stats(); got.Fallbacks != 1 {
		t.Errorf("Fallbacks = %d, want 1", got.Fallbacks)
	}

	// The fallback result is cached under the requested key, so the same
	// request never rebuilds.
	if _, err := c.GetOrCreate(key); err != nil {
		t.Fatalf("GetOrCreate() after fallback error: %v", err)
	}
	if calls.Load() != 2 {
		t.Errorf("build calls after second lookup = %d, want 2", calls.Load())
	}
	if got := c.Stats(); got.Hits != 1 {
		t.Errorf("Hits = %d, want 1", got.Hits)
	}
}

func TestCacheFallbackIdenticalToKeyFails(t *testing.T) {
	var calls atomic.Uint64
	build := func(desc *StateDescriptor) (*wgpu.RenderPipeline, error) {
		calls.Add(1)
		return nil, fmt.Errorf("device lost")
	}
	c, key := newTestCache(t, build)
	// The key already carries the canonical fallback configuration, so
	// retrying with the fallback would rebuild the exact same descriptor.

	if _, err := c.GetOrCreate(key); err == nil {
		t.Fatal("GetOrCreate() should fail when the key is its own fallback")
	}
	if calls.Load() != 1 {
		t.Errorf("build calls = %d, want 1 (no pointless retry)", calls.Load())
	}
	if got := c.Stats(); got.Fallbacks != 0 {
		t.Errorf("Fallbacks = %d, want 0", got.Fallbacks)
	}
	if c.Len() != 0 {
		t.Errorf("Len() after failed build = %d, want 0", c.Len())
	}
}

func TestCacheClear(t *testing.T) {
	var calls atomic.Uint64
	c, key := newTestCache(t, nilBuild(&calls))

	if _, err := c.GetOrCreate(key); err != nil {
		t.Fatalf("GetOrCreate() error: %v", err)
	}
	if c.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", c.Len())
	}

	c.Clear()
	if c.Len() != 0 {
		t.Errorf("Len() after Clear = %d, want 0", c.Len())
	}

	// A cleared key rebuilds.
	if _, err := c.GetOrCreate(key); err != nil {
		t.Fatalf("GetOrCreate() after Clear error: %v", err)
	}
	if calls.Load() != 2 {
		t.Errorf("build calls = %d, want 2", calls.Load())
	}
}

func TestCacheStaleProgram(t *testing.T) {
	var calls atomic.Uint64
	registry := NewProgramRegistry()
	handle := registry.Register(testVertexShader("vs"), nil)
	c := NewCache(registry, nilBuild(&calls))

	if err := registry.Destroy(handle); err != nil {
		t.Fatalf("Destroy() error: %v", err)
	}

	_, err := c.GetOrCreate(NewStateKey(handle))
	if !errors.Is(err, ErrStaleProgram) {
		t.Errorf("GetOrCreate(stale) = %v, want ErrStaleProgram", err)
	}
	if calls.Load() != 0 {
		t.Errorf("build calls = %d, want 0", calls.Load())
	}
}

func TestCacheWarmUp(t *testing.T) {
	var calls atomic.Uint64
	c, key := newTestCache(t, nilBuild(&calls), WithWarmUpWorkers(4))

	keys := make([]StateKey, 0, 4)
	for _, blend := range []BlendMode{BlendModeOpaque, BlendModeAlpha, BlendModeAdditive, BlendModeMultiply} {
		k := key
		k.Blend = blend
		keys = append(keys, k)
	}

	built := c.WarmUp(keys)
	if built != 4 {
		t.Errorf("WarmUp() built = %d, want 4", built)
	}
	if calls.Load() != 4 {
		t.Errorf("build calls = %d, want 4", calls.Load())
	}

	// Warmed keys hit without a backend call.
	statsBefore := c.Stats()
	for _, k := range keys {
		if _, err := c.GetOrCreate(k); err != nil {
			t.Fatalf("GetOrCreate(warmed) error: %v", err)
		}
	}
	if calls.Load() != 4 {
		t.Errorf("build calls after warmed lookups = %d, want 4", calls.Load())
	}
	if got := c.Stats(); got.Hits != statsBefore.Hits+4 {
		t.Errorf("Hits = %d, want %d", got.Hits, statsBefore.Hits+4)
	}

	// WarmUp over already-cached keys builds nothing new.
	if built := c.WarmUp(keys); built != 0 {
		t.Errorf("second WarmUp() built = %d, want 0", built)
	}
}

func TestCacheWarmUpRepeatedBatches(t *testing.T) {
	var calls atomic.Uint64
	c, key := newTestCache(t, nilBuild(&calls), WithWarmUpWorkers(2))

	// Disjoint batches through the same cache share one worker pool; the
	// second batch must still materialize every key.
	first := key
	first.Blend = BlendModeOpaque
	second := key
	second.Blend = BlendModeAlpha

	if built := c.WarmUp([]StateKey{first}); built != 1 {
		t.Errorf("first batch built = %d, want 1", built)
	}
	if built := c.WarmUp([]StateKey{second}); built != 1 {
		t.Errorf("second batch built = %d, want 1", built)
	}
	if calls.Load() != 2 {
		t.Errorf("build calls = %d, want 2", calls.Load())
	}
}

func TestComposeDescriptor(t *testing.T) {
	registry := NewProgramRegistry()
	handle := registry.Register(testVertexShader("vs"), testFragmentShader("fs"))
	program, err := registry.Resolve(handle)
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}

	t.Run("no depth target omits depth stencil", func(t *testing.T) {
		key := NewStateKey(handle)
		key.ColorFormats[0] = wgpu.TextureFormatRGBA8Unorm

		desc := composeDescriptor(key, program)
		if desc.DepthStencil != nil {
			t.Error("DepthStencil should be nil when no depth format is set")
		}
		if len(desc.ColorTargets) != 1 {
			t.Fatalf("ColorTargets = %d, want 1", len(desc.ColorTargets))
		}
		if desc.ColorTargets[0].WriteMask != wgpu.ColorWriteMaskAll {
			t.Error("color target should write all channels")
		}
	})

	t.Run("disabled blend leaves target blend nil", func(t *testing.T) {
		key := NewStateKey(handle)
		key.ColorFormats[0] = wgpu.TextureFormatRGBA8Unorm
		key.Blend = BlendModeDisabled

		desc := composeDescriptor(key, program)
		if desc.ColorTargets[0].Blend != nil {
			t.Error("Blend should be nil for the disabled blend mode")
		}
	})

	t.Run("disabled stencil compares always", func(t *testing.T) {
		key := NewStateKey(handle)
		key.DepthFormat = wgpu.TextureFormatDepth24PlusStencil8
		key.Stencil.FrontCompare = wgpu.CompareFunctionEqual

		desc := composeDescriptor(key, program)
		if desc.DepthStencil == nil {
			t.Fatal("DepthStencil should be composed for a depth format")
		}
		if desc.DepthStencil.StencilFront.Compare != wgpu.CompareFunctionAlways {
			t.Error("disabled stencil should compare Always regardless of configured ops")
		}
	})

	t.Run("depth bias flows into depth stencil", func(t *testing.T) {
		key := NewStateKey(handle)
		key.DepthFormat = wgpu.TextureFormatDepth32Float
		key.Raster.DepthBias = 4
		key.Raster.DepthBiasSlopeScale = 1.5

		desc := composeDescriptor(key, program)
		if desc.DepthStencil.DepthBias != 4 || desc.DepthStencil.DepthBiasSlopeScale != 1.5 {
			t.Errorf("depth bias not carried: %+v", desc.DepthStencil)
		}
	})

	t.Run("forced sample count", func(t *testing.T) {
		key := NewStateKey(handle)
		key.ColorFormats[0] = wgpu.TextureFormatRGBA8Unorm
		key.Raster.ForcedSampleCount = 4

		desc := composeDescriptor(key, program)
		if desc.Multisample.Count != 4 {
			t.Errorf("Multisample.Count = %d, want 4", desc.Multisample.Count)
		}
	})

	t.Run("label joins shader keys", func(t *testing.T) {
		key := NewStateKey(handle)
		desc := composeDescriptor(key, program)
		if desc.Label != "vs+fs" {
			t.Errorf("Label = %q, want %q", desc.Label, "vs+fs")
		}
	})
}
