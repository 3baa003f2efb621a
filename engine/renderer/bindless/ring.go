package bindless

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownBufferKind is returned when an upload targets a kind that
	// was never registered.
	ErrUnknownBufferKind = errors.New("bindless: buffer kind not registered")

	// ErrValueTooLarge is returned when an uploaded value exceeds the
	// stride the kind was registered with.
	ErrValueTooLarge = errors.New("bindless: value exceeds registered element stride")
)

// BufferAlignment is the minimum constant-buffer alignment: element strides
// are rounded up to this boundary so every ring slot is independently
// addressable as a shader constant buffer.
const BufferAlignment = 256

// DefaultPerObjectCapacity is the default ring capacity for per-object
// buffers. It must exceed the maximum per-frame write count for the kind
// times the frame pipeline depth, or writes wrap onto slots the GPU has
// not finished reading.
const DefaultPerObjectCapacity = 10000

// PerPassCapacity is the fixed ring capacity for per-pass buffers.
const PerPassCapacity = 20

// UpdateFrequency tiers a registered buffer by how often it is written,
// which determines its ring capacity.
type UpdateFrequency int

const (
	// FrequencyStatic is written at most once; single slot.
	FrequencyStatic UpdateFrequency = iota

	// FrequencyPerFrame is written once per frame; single slot.
	FrequencyPerFrame

	// FrequencyPerPass is written once per render pass; small fixed ring.
	FrequencyPerPass

	// FrequencyPerObject is written once per draw; large ring sized by the
	// registration's max count.
	FrequencyPerObject
)

// String returns the name of the frequency tier for logging.
func (f UpdateFrequency) String() string {
	switch f {
	case FrequencyStatic:
		return "Static"
	case FrequencyPerFrame:
		return "PerFrame"
	case FrequencyPerPass:
		return "PerPass"
	case FrequencyPerObject:
		return "PerObject"
	default:
		return "Unknown"
	}
}

// tierCapacity resolves a frequency tier to its ring capacity.
func tierCapacity(f UpdateFrequency, maxCount int) int {
	switch f {
	case FrequencyPerObject:
		return maxCount
	case FrequencyPerPass:
		return PerPassCapacity
	default:
		return 1
	}
}

// BufferKind is the explicit registration key for a ring buffer. The layer
// reserves the kinds below for its own category uploads; application code
// registers kinds at or above KindFirstUser.
type BufferKind int

const (
	// KindCameraPlayer through KindRootIndexTable are reserved for the
	// layer's internal category buffers, in Category order.
	KindCameraPlayer BufferKind = iota
	KindScreenSystem
	KindIdentifier
	KindWorldWeather
	KindBiomeDimension
	KindRenderState
	KindMatrices
	KindColorTargetTable
	KindDepthTargetTable
	KindShadowColorTable
	KindShadowDepthTable
	KindCustomImageTable
	KindRootIndexTable

	// KindFirstUser is the first kind available to application code.
	KindFirstUser BufferKind = 32
)

// ringBuffer is the bookkeeping for one registered buffer kind: the owned
// GPU buffer, its persistent mapping, the element stride and capacity, and
// the monotonically increasing write cursor.
type ringBuffer struct {
	kind     BufferKind
	freq     UpdateFrequency
	buffer   MappedBuffer
	stride   int
	capacity int

	// cursor counts successful uploads; the write index is cursor modulo
	// capacity for tiered kinds and always 0 for single-slot kinds.
	cursor uint64

	// lastValue and lastIndex cache the most recent upload so consumers can
	// discover what was written without reading GPU memory back. lastValue
	// holds a detached byte snapshot, not the caller's value, so mutating
	// the value after upload cannot change what the cache reports.
	lastValue snapshotValue
	lastIndex uint32
	written   bool
}

// snapshotValue is an immutable byte image of an uploaded value, taken at
// upload time and independent of the caller's GPUValue.
type snapshotValue []byte

func (s snapshotValue) Size() int {
	return len(s)
}

func (s snapshotValue) Marshal() []byte {
	out := make([]byte, len(s))
	copy(out, s)
	return out
}

var _ GPUValue = snapshotValue(nil)

// roundUpStride rounds a byte size up to the constant-buffer alignment.
func roundUpStride(size int) int {
	return (size + BufferAlignment - 1) / BufferAlignment * BufferAlignment
}

// upload copies a value into the ring's next slot and advances the cursor.
func (r *ringBuffer) upload(value GPUValue) (uint32, error) {
	if value.Size() > r.stride {
		return 0, fmt.Errorf("%w: kind %d value is %d bytes, stride is %d",
			ErrValueTooLarge, r.kind, value.Size(), r.stride)
	}

	writeIndex := uint32(0)
	if r.capacity > 1 {
		writeIndex = uint32(r.cursor % uint64(r.capacity))
	}

	payload := value.Marshal()
	offset := int(writeIndex) * r.stride
	copy(r.buffer.Bytes()[offset:offset+r.stride], payload)

	r.lastValue = append(snapshotValue(nil), payload...)
	r.lastIndex = writeIndex
	r.written = true
	r.cursor++
	return writeIndex, nil
}
