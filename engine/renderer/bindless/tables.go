package bindless

import (
	"encoding/binary"
	"errors"
	"unsafe"
)

// ErrSlotOutOfRange is returned when a table slot index falls outside the
// table's fixed range. An out-of-range slot is a programming error, never a
// runtime condition, so it fails loudly instead of clamping.
var ErrSlotOutOfRange = errors.New("bindless: table slot index out of range")

// TargetTableSlots is the number of slots in a render-target index table,
// matching the maximum simultaneous color targets.
const TargetTableSlots = 8

// CustomImageSlots is the number of slots in the custom image index table.
const CustomImageSlots = 16

// TargetIndexTable is the GPU-aligned table of bindless indices for one
// render-target category. Tightly packed 32-bit slots, no padding.
// Size: 32 bytes.
type TargetIndexTable struct {
	Indices [TargetTableSlots]uint32 // offset 0: bindless index per target slot
}

var _ GPUValue = &TargetIndexTable{}

// Set stores a bindless index in a slot.
//
// Parameters:
//   - slot: the table slot in [0, TargetTableSlots)
//   - index: the bindless index to store
//
// Returns:
//   - error: ErrSlotOutOfRange if slot is outside the table
func (t *TargetIndexTable) Set(slot int, index uint32) error {
	if slot < 0 || slot >= TargetTableSlots {
		return ErrSlotOutOfRange
	}
	t.Indices[slot] = index
	return nil
}

// Size returns the size of the TargetIndexTable struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (32)
func (t *TargetIndexTable) Size() int {
	return int(unsafe.Sizeof(*t))
}

// Marshal serializes the TargetIndexTable struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: the serialized byte buffer
func (t *TargetIndexTable) Marshal() []byte {
	buf := make([]byte, t.Size())
	for i, v := range t.Indices {
		binary.LittleEndian.PutUint32(buf[i*4:], v)
	}
	return buf
}

// CustomImageTable is the GPU-aligned table of bindless indices for
// application-managed images. Tightly packed 32-bit slots, no padding.
// Size: 64 bytes.
type CustomImageTable struct {
	Indices [CustomImageSlots]uint32 // offset 0: bindless index per custom image slot
}

var _ GPUValue = &CustomImageTable{}

// Set stores a bindless index in a slot.
//
// Parameters:
//   - slot: the table slot in [0, CustomImageSlots)
//   - index: the bindless index to store
//
// Returns:
//   - error: ErrSlotOutOfRange if slot is outside the table
func (t *CustomImageTable) Set(slot int, index uint32) error {
	if slot < 0 || slot >= CustomImageSlots {
		return ErrSlotOutOfRange
	}
	t.Indices[slot] = index
	return nil
}

// Size returns the size of the CustomImageTable struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (64)
func (t *CustomImageTable) Size() int {
	return int(unsafe.Sizeof(*t))
}

// Marshal serializes the CustomImageTable struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: the serialized byte buffer
func (t *CustomImageTable) Marshal() []byte {
	buf := make([]byte, t.Size())
	for i, v := range t.Indices {
		binary.LittleEndian.PutUint32(buf[i*4:], v)
	}
	return buf
}

// Category identifies one uniform or index-table group tracked by the
// layer. Each category has its own dirty flag and its own slot in the root
// index table; the slot order below is part of the shader/host contract.
type Category int

const (
	// CategoryCameraPlayer is the camera/player uniform group.
	CategoryCameraPlayer Category = iota
	// CategoryScreenSystem is the screen/system uniform group.
	CategoryScreenSystem
	// CategoryIdentifier is the world/session identity uniform group.
	CategoryIdentifier
	// CategoryWorldWeather is the world time/weather uniform group.
	CategoryWorldWeather
	// CategoryBiomeDimension is the biome/dimension tint uniform group.
	CategoryBiomeDimension
	// CategoryRenderState is the global rendering options uniform group.
	CategoryRenderState
	// CategoryMatrices is the transform matrix uniform group.
	CategoryMatrices
	// CategoryColorTargets is the color render-target index table.
	CategoryColorTargets
	// CategoryDepthTargets is the depth render-target index table.
	CategoryDepthTargets
	// CategoryShadowColorTargets is the shadow color render-target index table.
	CategoryShadowColorTargets
	// CategoryShadowDepthTargets is the shadow depth render-target index table.
	CategoryShadowDepthTargets
	// CategoryCustomImages is the custom image index table.
	CategoryCustomImages

	categoryCount
)

// String returns the name of the category for logging.
func (c Category) String() string {
	switch c {
	case CategoryCameraPlayer:
		return "CameraPlayer"
	case CategoryScreenSystem:
		return "ScreenSystem"
	case CategoryIdentifier:
		return "Identifier"
	case CategoryWorldWeather:
		return "WorldWeather"
	case CategoryBiomeDimension:
		return "BiomeDimension"
	case CategoryRenderState:
		return "RenderState"
	case CategoryMatrices:
		return "Matrices"
	case CategoryColorTargets:
		return "ColorTargets"
	case CategoryDepthTargets:
		return "DepthTargets"
	case CategoryShadowColorTargets:
		return "ShadowColorTargets"
	case CategoryShadowDepthTargets:
		return "ShadowDepthTargets"
	case CategoryCustomImages:
		return "CustomImages"
	default:
		return "Unknown"
	}
}

// RootIndexTableSize is the byte size of the root index table as declared
// on the shader side: one tightly packed 32-bit slot per category.
const RootIndexTableSize = int(categoryCount) * 4

// RootIndexTable is the GPU-aligned table mapping each category to the
// bindless index of its uploaded data. Slot order and count are part of
// the shader/host contract and must remain byte-stable.
// Size: 48 bytes.
type RootIndexTable struct {
	Slots [categoryCount]uint32 // offset 0: bindless index per category, in Category order
}

var _ GPUValue = &RootIndexTable{}

// The host-side struct must stay byte-identical to the shader-side
// declaration. This fails to compile if the struct size drifts.
var _ [RootIndexTableSize]byte = [unsafe.Sizeof(RootIndexTable{})]byte{}

// Size returns the size of the RootIndexTable struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (48)
func (t *RootIndexTable) Size() int {
	return int(unsafe.Sizeof(*t))
}

// Marshal serializes the RootIndexTable struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: the serialized byte buffer
func (t *RootIndexTable) Marshal() []byte {
	buf := make([]byte, t.Size())
	for i, v := range t.Slots {
		binary.LittleEndian.PutUint32(buf[i*4:], v)
	}
	return buf
}
