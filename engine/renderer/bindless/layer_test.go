package bindless

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"
)

func newTestLayer(t *testing.T, opts ...LayerOption) (Layer, *fakeAllocator) {
	t.Helper()
	alloc := &fakeAllocator{}
	l, err := NewLayer(alloc, opts...)
	if err != nil {
		t.Fatalf("NewLayer() error: %v", err)
	}
	return l, alloc
}

func TestNewLayerAllocatesReservedBuffers(t *testing.T) {
	_, alloc := newTestLayer(t)

	// One buffer per category plus the root index table.
	want := int(categoryCount) + 1
	if len(alloc.buffers) != want {
		t.Errorf("allocated %d buffers, want %d", len(alloc.buffers), want)
	}
}

func TestNewLayerAllocationFailureReleases(t *testing.T) {
	alloc := &fakeAllocator{failAt: 5}
	if _, err := NewLayer(alloc); err == nil {
		t.Fatal("NewLayer() should fail when an allocation fails")
	}
	for i, buf := range alloc.buffers {
		if !buf.released {
			t.Errorf("buffer %d not released after construction failure", i)
		}
	}
}

func TestNewLayerNilAllocatorPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("NewLayer(nil) should panic")
		}
	}()
	NewLayer(nil)
}

func TestSyncToGPUDirtySelectivity(t *testing.T) {
	l, _ := newTestLayer(t)

	// Every category starts dirty, so the first sync seeds all of them.
	uploaded, err := l.SyncToGPU()
	if err != nil {
		t.Fatalf("SyncToGPU() error: %v", err)
	}
	if uploaded != int(categoryCount) {
		t.Errorf("first sync uploaded %d categories, want %d", uploaded, categoryCount)
	}

	// Nothing changed, nothing moves.
	uploaded, err = l.SyncToGPU()
	if err != nil {
		t.Fatalf("SyncToGPU() error: %v", err)
	}
	if uploaded != 0 {
		t.Errorf("clean sync uploaded %d categories, want 0", uploaded)
	}

	// One staged write dirties exactly one category.
	l.SetMatrices(MatrixUniform{Model: [16]float32{0: 2}})
	uploaded, err = l.SyncToGPU()
	if err != nil {
		t.Fatalf("SyncToGPU() error: %v", err)
	}
	if uploaded != 1 {
		t.Errorf("sync after SetMatrices uploaded %d categories, want 1", uploaded)
	}
}

func TestSyncToGPUWritesStagedBytes(t *testing.T) {
	l, alloc := newTestLayer(t)

	cam := CameraPlayerUniform{EyeHeight: 1.62}
	cam.CameraPosition = [3]float32{10, 70, -3}
	l.SetCameraPlayer(cam)

	if _, err := l.SyncToGPU(); err != nil {
		t.Fatalf("SyncToGPU() error: %v", err)
	}

	// The camera buffer was the first allocation, in Category order.
	got := alloc.buffers[CategoryCameraPlayer].data[:cam.Size()]
	want := cam.Marshal()
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("camera buffer byte %d = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestRootTableTracksBufferIndices(t *testing.T) {
	l, alloc := newTestLayer(t)

	if _, err := l.SyncToGPU(); err != nil {
		t.Fatalf("SyncToGPU() error: %v", err)
	}

	// The root table lives in the last allocated buffer and holds each
	// category buffer's bindless index in Category order.
	rootBuf := alloc.buffers[len(alloc.buffers)-1]
	for c := Category(0); c < categoryCount; c++ {
		got := binary.LittleEndian.Uint32(rootBuf.data[int(c)*4:])
		want := alloc.buffers[c].index
		if got != want {
			t.Errorf("root slot %s = %d, want %d", c, got, want)
		}
	}

	if l.RootTableIndex() != rootBuf.index {
		t.Errorf("RootTableIndex() = %d, want %d", l.RootTableIndex(), rootBuf.index)
	}
}

func TestRootTableNotRewrittenWhenStable(t *testing.T) {
	l, alloc := newTestLayer(t)

	if _, err := l.SyncToGPU(); err != nil {
		t.Fatalf("SyncToGPU() error: %v", err)
	}

	// Scribble over the root buffer; a stable sync must not repair it
	// because no category buffer moved.
	rootBuf := alloc.buffers[len(alloc.buffers)-1]
	rootBuf.data[0] = 0xFF

	l.SetRenderState(RenderStateUniform{Gamma: 2.2})
	if _, err := l.SyncToGPU(); err != nil {
		t.Fatalf("SyncToGPU() error: %v", err)
	}
	if rootBuf.data[0] != 0xFF {
		t.Error("root table was re-uploaded even though no buffer index changed")
	}
}

func TestSetTargetIndicesDirtyTheirTables(t *testing.T) {
	l, _ := newTestLayer(t)
	if _, err := l.SyncToGPU(); err != nil {
		t.Fatalf("SyncToGPU() error: %v", err)
	}

	if err := l.SetColorTargetIndex(2, 17); err != nil {
		t.Fatalf("SetColorTargetIndex() error: %v", err)
	}
	if err := l.SetCustomImageIndex(15, 9); err != nil {
		t.Fatalf("SetCustomImageIndex() error: %v", err)
	}

	uploaded, err := l.SyncToGPU()
	if err != nil {
		t.Fatalf("SyncToGPU() error: %v", err)
	}
	if uploaded != 2 {
		t.Errorf("sync uploaded %d categories, want 2", uploaded)
	}
}

func TestSetTargetIndexOutOfRange(t *testing.T) {
	l, _ := newTestLayer(t)
	if _, err := l.SyncToGPU(); err != nil {
		t.Fatalf("SyncToGPU() error: %v", err)
	}

	if err := l.SetDepthTargetIndex(TargetTableSlots, 1); !errors.Is(err, ErrSlotOutOfRange) {
		t.Fatalf("SetDepthTargetIndex(out of range) = %v, want ErrSlotOutOfRange", err)
	}

	// A rejected set must not dirty the category.
	uploaded, err := l.SyncToGPU()
	if err != nil {
		t.Fatalf("SyncToGPU() error: %v", err)
	}
	if uploaded != 0 {
		t.Errorf("sync after rejected set uploaded %d categories, want 0", uploaded)
	}
}

func TestPerObjectMatricesAdvanceSlots(t *testing.T) {
	l, _ := newTestLayer(t, WithPerObjectCapacity(4))

	for i := 0; i < 3; i++ {
		l.SetMatrices(MatrixUniform{Model: [16]float32{0: float32(i)}})
		if _, err := l.SyncToGPU(); err != nil {
			t.Fatalf("SyncToGPU() #%d error: %v", i, err)
		}
		_, slot, ok := l.LastWritten(KindMatrices)
		if !ok {
			t.Fatal("LastWritten(KindMatrices) should report true after sync")
		}
		if slot != uint32(i) {
			t.Errorf("matrix upload #%d landed in slot %d, want %d", i, slot, i)
		}
	}
}

func TestLastWrittenIgnoresStagedValues(t *testing.T) {
	l, _ := newTestLayer(t)

	l.SetMatrices(MatrixUniform{Model: [16]float32{0: 1}})
	if _, err := l.SyncToGPU(); err != nil {
		t.Fatalf("SyncToGPU() error: %v", err)
	}

	// Staging a new value without syncing must not change what the cache
	// reports as last uploaded.
	l.SetMatrices(MatrixUniform{Model: [16]float32{0: 2}})

	got, _, ok := l.LastWritten(KindMatrices)
	if !ok {
		t.Fatal("LastWritten(KindMatrices) should report true after sync")
	}
	want := (&MatrixUniform{Model: [16]float32{0: 1}}).Marshal()
	if !bytes.Equal(got.Marshal(), want) {
		t.Error("LastWritten() should report the last uploaded value, not the staged one")
	}
}

func TestWithPerObjectCapacitySizesMatrixRing(t *testing.T) {
	_, alloc := newTestLayer(t, WithPerObjectCapacity(8))

	matrixBuf := alloc.buffers[CategoryMatrices]
	want := roundUpStride((&MatrixUniform{}).Size()) * 8
	if len(matrixBuf.data) != want {
		t.Errorf("matrix ring size = %d, want %d", len(matrixBuf.data), want)
	}
}

func TestDrawCounter(t *testing.T) {
	l, _ := newTestLayer(t)

	if l.CurrentDrawCount() != 0 {
		t.Error("draw count should start at 0")
	}
	l.IncrementDrawCount()
	l.IncrementDrawCount()
	if l.CurrentDrawCount() != 2 {
		t.Errorf("CurrentDrawCount() = %d, want 2", l.CurrentDrawCount())
	}
	l.ResetDrawCount()
	if l.CurrentDrawCount() != 0 {
		t.Error("ResetDrawCount() should zero the counter")
	}
}

func TestReleaseFreesBuffers(t *testing.T) {
	l, alloc := newTestLayer(t)

	l.Release()
	for i, buf := range alloc.buffers {
		if !buf.released {
			t.Errorf("buffer %d not released", i)
		}
	}
}
