package bindless

import (
	"bytes"
	"errors"
	"fmt"
	"testing"
)

// fakeBuffer is an in-memory MappedBuffer.
type fakeBuffer struct {
	label    string
	data     []byte
	index    uint32
	released bool
}

func (f *fakeBuffer) Bytes() []byte         { return f.data }
func (f *fakeBuffer) BindlessIndex() uint32 { return f.index }
func (f *fakeBuffer) Release()              { f.released = true }

// fakeAllocator hands out in-memory buffers with sequential bindless
// indices, mirroring how the GPU backend assigns heap slots.
type fakeAllocator struct {
	buffers []*fakeBuffer
	failAt  int // 1-based allocation that fails; 0 never fails
}

func (f *fakeAllocator) CreateMapped(label string, size uint64) (MappedBuffer, error) {
	if f.failAt > 0 && len(f.buffers)+1 == f.failAt {
		return nil, fmt.Errorf("out of heap slots")
	}
	buf := &fakeBuffer{
		label: label,
		data:  make([]byte, size),
		index: uint32(len(f.buffers)),
	}
	f.buffers = append(f.buffers, buf)
	return buf, nil
}

// blobValue is a GPUValue with an arbitrary payload for ring tests.
type blobValue struct {
	payload []byte
}

func (b *blobValue) Size() int      { return len(b.payload) }
func (b *blobValue) Marshal() []byte { return b.payload }

func blob(size int, fill byte) *blobValue {
	payload := make([]byte, size)
	for i := range payload {
		payload[i] = fill
	}
	return &blobValue{payload: payload}
}

func TestRoundUpStride(t *testing.T) {
	tests := []struct {
		size, want int
	}{
		{1, 256},
		{112, 256},
		{256, 256},
		{257, 512},
		{512, 512},
	}
	for _, tt := range tests {
		if got := roundUpStride(tt.size); got != tt.want {
			t.Errorf("roundUpStride(%d) = %d, want %d", tt.size, got, tt.want)
		}
	}
}

func TestTierCapacity(t *testing.T) {
	tests := []struct {
		freq     UpdateFrequency
		maxCount int
		want     int
	}{
		{FrequencyStatic, 99, 1},
		{FrequencyPerFrame, 99, 1},
		{FrequencyPerPass, 99, PerPassCapacity},
		{FrequencyPerObject, 500, 500},
	}
	for _, tt := range tests {
		if got := tierCapacity(tt.freq, tt.maxCount); got != tt.want {
			t.Errorf("tierCapacity(%s, %d) = %d, want %d", tt.freq, tt.maxCount, got, tt.want)
		}
	}
}

func TestRingWraparound(t *testing.T) {
	alloc := &fakeAllocator{}
	l, err := NewLayer(alloc)
	if err != nil {
		t.Fatalf("NewLayer() error: %v", err)
	}

	kind := KindFirstUser
	if err := l.RegisterBuffer(kind, FrequencyPerObject, 16, 4); err != nil {
		t.Fatalf("RegisterBuffer() error: %v", err)
	}
	ringBuf := alloc.buffers[len(alloc.buffers)-1]

	wantIndices := []uint32{0, 1, 2, 3, 0}
	for i, want := range wantIndices {
		got, err := l.UploadBuffer(kind, blob(16, byte(i+1)))
		if err != nil {
			t.Fatalf("UploadBuffer() #%d error: %v", i, err)
		}
		if got != want {
			t.Errorf("upload #%d slot = %d, want %d", i, got, want)
		}
	}

	// The fifth upload wrapped onto slot 0 and overwrote the first payload.
	if !bytes.Equal(ringBuf.data[:16], blob(16, 5).payload) {
		t.Error("slot 0 should hold the wrapped fifth payload")
	}
	// Slot 1 is untouched by the wrap.
	if !bytes.Equal(ringBuf.data[256:272], blob(16, 2).payload) {
		t.Error("slot 1 should still hold the second payload")
	}
}

func TestSingleSlotKindsAlwaysWriteSlotZero(t *testing.T) {
	alloc := &fakeAllocator{}
	l, err := NewLayer(alloc)
	if err != nil {
		t.Fatalf("NewLayer() error: %v", err)
	}

	kind := KindFirstUser + 1
	if err := l.RegisterBuffer(kind, FrequencyPerFrame, 8, 1); err != nil {
		t.Fatalf("RegisterBuffer() error: %v", err)
	}

	for i := 0; i < 3; i++ {
		slot, err := l.UploadBuffer(kind, blob(8, byte(i)))
		if err != nil {
			t.Fatalf("UploadBuffer() error: %v", err)
		}
		if slot != 0 {
			t.Errorf("single-slot upload #%d landed in slot %d, want 0", i, slot)
		}
	}
}

func TestRegisterBufferSizesRing(t *testing.T) {
	alloc := &fakeAllocator{}
	l, err := NewLayer(alloc)
	if err != nil {
		t.Fatalf("NewLayer() error: %v", err)
	}

	// 112 bytes rounds up to a 256-byte stride, times 10 slots.
	if err := l.RegisterBuffer(KindFirstUser, FrequencyPerObject, 112, 10); err != nil {
		t.Fatalf("RegisterBuffer() error: %v", err)
	}
	buf := alloc.buffers[len(alloc.buffers)-1]
	if len(buf.data) != 256*10 {
		t.Errorf("ring buffer size = %d, want %d", len(buf.data), 256*10)
	}
}

func TestRegisterBufferReservedKind(t *testing.T) {
	l, err := NewLayer(&fakeAllocator{})
	if err != nil {
		t.Fatalf("NewLayer() error: %v", err)
	}

	if err := l.RegisterBuffer(KindMatrices, FrequencyPerFrame, 8, 1); err == nil {
		t.Error("RegisterBuffer() should reject reserved kinds")
	}
	if err := l.RegisterBuffer(KindFirstUser-1, FrequencyPerFrame, 8, 1); err == nil {
		t.Error("RegisterBuffer() should reject kinds below KindFirstUser")
	}
}

func TestRegisterBufferDuplicateIsNoOp(t *testing.T) {
	alloc := &fakeAllocator{}
	l, err := NewLayer(alloc)
	if err != nil {
		t.Fatalf("NewLayer() error: %v", err)
	}

	if err := l.RegisterBuffer(KindFirstUser, FrequencyPerFrame, 8, 1); err != nil {
		t.Fatalf("RegisterBuffer() error: %v", err)
	}
	before := len(alloc.buffers)
	if err := l.RegisterBuffer(KindFirstUser, FrequencyPerObject, 64, 100); err != nil {
		t.Fatalf("duplicate RegisterBuffer() should be a no-op, got: %v", err)
	}
	if len(alloc.buffers) != before {
		t.Error("duplicate registration must not allocate a second buffer")
	}
}

func TestUploadUnknownKind(t *testing.T) {
	l, err := NewLayer(&fakeAllocator{})
	if err != nil {
		t.Fatalf("NewLayer() error: %v", err)
	}

	if _, err := l.UploadBuffer(KindFirstUser+7, blob(8, 1)); !errors.Is(err, ErrUnknownBufferKind) {
		t.Errorf("UploadBuffer(unregistered) = %v, want ErrUnknownBufferKind", err)
	}
}

func TestUploadValueTooLarge(t *testing.T) {
	l, err := NewLayer(&fakeAllocator{})
	if err != nil {
		t.Fatalf("NewLayer() error: %v", err)
	}

	if err := l.RegisterBuffer(KindFirstUser, FrequencyPerFrame, 8, 1); err != nil {
		t.Fatalf("RegisterBuffer() error: %v", err)
	}
	// 8 bytes registers a 256-byte stride; 300 bytes exceeds it.
	if _, err := l.UploadBuffer(KindFirstUser, blob(300, 1)); !errors.Is(err, ErrValueTooLarge) {
		t.Errorf("UploadBuffer(oversized) = %v, want ErrValueTooLarge", err)
	}
}

func TestLastWritten(t *testing.T) {
	l, err := NewLayer(&fakeAllocator{})
	if err != nil {
		t.Fatalf("NewLayer() error: %v", err)
	}

	if err := l.RegisterBuffer(KindFirstUser, FrequencyPerObject, 16, 4); err != nil {
		t.Fatalf("RegisterBuffer() error: %v", err)
	}

	if _, _, ok := l.LastWritten(KindFirstUser); ok {
		t.Error("LastWritten() should report false before any upload")
	}

	v := blob(16, 9)
	if _, err := l.UploadBuffer(KindFirstUser, blob(16, 8)); err != nil {
		t.Fatalf("UploadBuffer() error: %v", err)
	}
	if _, err := l.UploadBuffer(KindFirstUser, v); err != nil {
		t.Fatalf("UploadBuffer() error: %v", err)
	}

	got, slot, ok := l.LastWritten(KindFirstUser)
	if !ok {
		t.Fatal("LastWritten() should report true after uploads")
	}
	if !bytes.Equal(got.Marshal(), blob(16, 9).Marshal()) {
		t.Error("LastWritten() should return the most recent value's bytes")
	}
	if slot != 1 {
		t.Errorf("LastWritten() slot = %d, want 1", slot)
	}
}

func TestLastWrittenIsSnapshot(t *testing.T) {
	l, err := NewLayer(&fakeAllocator{})
	if err != nil {
		t.Fatalf("NewLayer() error: %v", err)
	}

	if err := l.RegisterBuffer(KindFirstUser, FrequencyPerObject, 16, 4); err != nil {
		t.Fatalf("RegisterBuffer() error: %v", err)
	}

	v := blob(16, 1)
	if _, err := l.UploadBuffer(KindFirstUser, v); err != nil {
		t.Fatalf("UploadBuffer() error: %v", err)
	}

	// Mutating the caller's value after upload must not change what the
	// cache reports.
	for i := range v.payload {
		v.payload[i] = 9
	}

	got, _, ok := l.LastWritten(KindFirstUser)
	if !ok {
		t.Fatal("LastWritten() should report true after upload")
	}
	if raw := got.Marshal(); raw[0] != 1 {
		t.Errorf("LastWritten() byte = %d, want the uploaded value 1", raw[0])
	}

	// The returned snapshot must also be detached: scribbling on its
	// marshaled bytes must not corrupt the cache.
	got.Marshal()[0] = 7
	again, _, _ := l.LastWritten(KindFirstUser)
	if raw := again.Marshal(); raw[0] != 1 {
		t.Errorf("LastWritten() byte after scribble = %d, want 1", raw[0])
	}
}
