package renderer

import (
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
)

func TestBuildColorAttachmentsPreservesSlots(t *testing.T) {
	// Sentinel views; the helper only builds descriptors around them.
	a := &wgpu.TextureView{}
	c := &wgpu.TextureView{}
	views := []*wgpu.TextureView{a, nil, c}

	attachments := buildColorAttachments(views, nil)
	if len(attachments) != 3 {
		t.Fatalf("attachment count = %d, want 3", len(attachments))
	}
	if attachments[0].View != a {
		t.Error("slot 0 should hold the first bound view")
	}
	if attachments[1].View != nil {
		t.Error("unresolved slot 1 should stay an empty attachment")
	}
	if attachments[2].View != c {
		t.Error("slot 2 view should not shift down past the unresolved slot")
	}
}

func TestBuildColorAttachmentsFoldsClears(t *testing.T) {
	a := &wgpu.TextureView{}
	b := &wgpu.TextureView{}
	red := wgpu.Color{R: 1, A: 1}

	attachments := buildColorAttachments(
		[]*wgpu.TextureView{a, b},
		map[*wgpu.TextureView]wgpu.Color{a: red},
	)

	if attachments[0].LoadOp != wgpu.LoadOpClear || attachments[0].ClearValue != red {
		t.Errorf("slot 0 = %+v, want a clear to red", attachments[0])
	}
	if attachments[1].LoadOp != wgpu.LoadOpLoad {
		t.Errorf("slot 1 load op = %v, want LoadOpLoad", attachments[1].LoadOp)
	}
	if attachments[0].StoreOp != wgpu.StoreOpStore || attachments[1].StoreOp != wgpu.StoreOpStore {
		t.Error("all resolved attachments should store")
	}
}
