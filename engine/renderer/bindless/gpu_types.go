package bindless

import (
	"encoding/binary"
	"math"
	"unsafe"
)

// GPUValue is implemented by every CPU-side mirror of a GPU-visible
// structure. Size reports the exact GPU-side byte size; Marshal serializes
// the value into that layout byte-for-byte.
type GPUValue interface {
	// Size returns the size of the GPU-side structure in bytes.
	//
	// Returns:
	//   - int: the struct size in bytes
	Size() int

	// Marshal serializes the value into a byte buffer matching the GPU-side
	// declaration exactly.
	//
	// Returns:
	//   - []byte: the serialized byte buffer
	Marshal() []byte
}

// CameraPlayerUniform is the GPU-aligned camera and player state uniform.
// Matches the WGSL CameraPlayer struct layout exactly.
// Size: 112 bytes (std430 / WGSL aligned).
type CameraPlayerUniform struct {
	ViewProj       [16]float32 // offset   0: combined view-projection matrix (mat4x4<f32>)
	CameraPosition [3]float32  // offset  64: world-space camera position (vec3<f32>)
	_pad0          float32     // offset  76: padding
	PlayerPosition [3]float32  // offset  80: world-space player feet position (vec3<f32>)
	_pad1          float32     // offset  92: padding
	LookDirection  [3]float32  // offset  96: normalized view direction (vec3<f32>)
	EyeHeight      float32     // offset 108: camera height above player position
}

var _ GPUValue = &CameraPlayerUniform{}

// Size returns the size of the CameraPlayerUniform struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (112)
func (g *CameraPlayerUniform) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the CameraPlayerUniform struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: the serialized byte buffer
func (g *CameraPlayerUniform) Marshal() []byte {
	buf := make([]byte, g.Size())
	for i := range 16 {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(g.ViewProj[i]))
	}
	for i := range 3 {
		binary.LittleEndian.PutUint32(buf[64+i*4:], math.Float32bits(g.CameraPosition[i]))
		binary.LittleEndian.PutUint32(buf[80+i*4:], math.Float32bits(g.PlayerPosition[i]))
		binary.LittleEndian.PutUint32(buf[96+i*4:], math.Float32bits(g.LookDirection[i]))
	}
	binary.LittleEndian.PutUint32(buf[108:], math.Float32bits(g.EyeHeight))
	return buf
}

// ScreenSystemUniform is the GPU-aligned screen and system state uniform.
// Size: 32 bytes.
type ScreenSystemUniform struct {
	ScreenSize    [2]float32 // offset  0: backbuffer size in pixels (vec2<f32>)
	InvScreenSize [2]float32 // offset  8: reciprocal backbuffer size (vec2<f32>)
	TimeSeconds   float32    // offset 16: seconds since engine start
	FrameIndex    uint32     // offset 20: monotonically increasing frame counter
	GuiScale      float32    // offset 24: UI scaling factor
	_pad          float32    // offset 28: padding
}

var _ GPUValue = &ScreenSystemUniform{}

// Size returns the size of the ScreenSystemUniform struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (32)
func (g *ScreenSystemUniform) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the ScreenSystemUniform struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: the serialized byte buffer
func (g *ScreenSystemUniform) Marshal() []byte {
	buf := make([]byte, g.Size())
	binary.LittleEndian.PutUint32(buf[0:], math.Float32bits(g.ScreenSize[0]))
	binary.LittleEndian.PutUint32(buf[4:], math.Float32bits(g.ScreenSize[1]))
	binary.LittleEndian.PutUint32(buf[8:], math.Float32bits(g.InvScreenSize[0]))
	binary.LittleEndian.PutUint32(buf[12:], math.Float32bits(g.InvScreenSize[1]))
	binary.LittleEndian.PutUint32(buf[16:], math.Float32bits(g.TimeSeconds))
	binary.LittleEndian.PutUint32(buf[20:], g.FrameIndex)
	binary.LittleEndian.PutUint32(buf[24:], math.Float32bits(g.GuiScale))
	return buf
}

// IdentifierUniform is the GPU-aligned world/session identity uniform.
// Size: 16 bytes.
type IdentifierUniform struct {
	WorldSeedLow  uint32 // offset  0: low 32 bits of the world seed
	WorldSeedHigh uint32 // offset  4: high 32 bits of the world seed
	DimensionID   uint32 // offset  8: active dimension identifier
	SessionID     uint32 // offset 12: render session identifier
}

var _ GPUValue = &IdentifierUniform{}

// Size returns the size of the IdentifierUniform struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (16)
func (g *IdentifierUniform) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the IdentifierUniform struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: the serialized byte buffer
func (g *IdentifierUniform) Marshal() []byte {
	buf := make([]byte, g.Size())
	binary.LittleEndian.PutUint32(buf[0:], g.WorldSeedLow)
	binary.LittleEndian.PutUint32(buf[4:], g.WorldSeedHigh)
	binary.LittleEndian.PutUint32(buf[8:], g.DimensionID)
	binary.LittleEndian.PutUint32(buf[12:], g.SessionID)
	return buf
}

// WorldWeatherUniform is the GPU-aligned world time and weather uniform.
// Size: 32 bytes.
type WorldWeatherUniform struct {
	WorldTime       float32    // offset  0: world time in ticks
	DayFraction     float32    // offset  4: [0,1) fraction through the day cycle
	RainStrength    float32    // offset  8: [0,1] rain intensity
	ThunderStrength float32    // offset 12: [0,1] thunder intensity
	SkyLight        float32    // offset 16: [0,1] sky light level
	MoonPhase       uint32     // offset 20: moon phase index
	WindDirection   [2]float32 // offset 24: normalized wind direction (vec2<f32>)
}

var _ GPUValue = &WorldWeatherUniform{}

// Size returns the size of the WorldWeatherUniform struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (32)
func (g *WorldWeatherUniform) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the WorldWeatherUniform struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: the serialized byte buffer
func (g *WorldWeatherUniform) Marshal() []byte {
	buf := make([]byte, g.Size())
	binary.LittleEndian.PutUint32(buf[0:], math.Float32bits(g.WorldTime))
	binary.LittleEndian.PutUint32(buf[4:], math.Float32bits(g.DayFraction))
	binary.LittleEndian.PutUint32(buf[8:], math.Float32bits(g.RainStrength))
	binary.LittleEndian.PutUint32(buf[12:], math.Float32bits(g.ThunderStrength))
	binary.LittleEndian.PutUint32(buf[16:], math.Float32bits(g.SkyLight))
	binary.LittleEndian.PutUint32(buf[20:], g.MoonPhase)
	binary.LittleEndian.PutUint32(buf[24:], math.Float32bits(g.WindDirection[0]))
	binary.LittleEndian.PutUint32(buf[28:], math.Float32bits(g.WindDirection[1]))
	return buf
}

// BiomeDimensionUniform is the GPU-aligned biome and dimension tint uniform.
// Size: 64 bytes.
type BiomeDimensionUniform struct {
	FogColor    [4]float32 // offset  0: fog color (vec4<f32>)
	SkyColor    [4]float32 // offset 16: sky color (vec4<f32>)
	WaterColor  [4]float32 // offset 32: water tint color (vec4<f32>)
	Temperature float32    // offset 48: biome temperature
	Downfall    float32    // offset 52: biome downfall
	FogStart    float32    // offset 56: fog start distance
	FogEnd      float32    // offset 60: fog end distance
}

var _ GPUValue = &BiomeDimensionUniform{}

// Size returns the size of the BiomeDimensionUniform struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (64)
func (g *BiomeDimensionUniform) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the BiomeDimensionUniform struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: the serialized byte buffer
func (g *BiomeDimensionUniform) Marshal() []byte {
	buf := make([]byte, g.Size())
	for i := range 4 {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(g.FogColor[i]))
		binary.LittleEndian.PutUint32(buf[16+i*4:], math.Float32bits(g.SkyColor[i]))
		binary.LittleEndian.PutUint32(buf[32+i*4:], math.Float32bits(g.WaterColor[i]))
	}
	binary.LittleEndian.PutUint32(buf[48:], math.Float32bits(g.Temperature))
	binary.LittleEndian.PutUint32(buf[52:], math.Float32bits(g.Downfall))
	binary.LittleEndian.PutUint32(buf[56:], math.Float32bits(g.FogStart))
	binary.LittleEndian.PutUint32(buf[60:], math.Float32bits(g.FogEnd))
	return buf
}

// RenderStateUniform is the GPU-aligned global rendering options uniform.
// Size: 16 bytes.
type RenderStateUniform struct {
	RenderDistance float32 // offset  0: render distance in blocks
	LodBias        float32 // offset  4: texture LOD bias
	Gamma          float32 // offset  8: gamma correction factor
	Flags          uint32  // offset 12: packed feature flags
}

var _ GPUValue = &RenderStateUniform{}

// Size returns the size of the RenderStateUniform struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (16)
func (g *RenderStateUniform) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the RenderStateUniform struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: the serialized byte buffer
func (g *RenderStateUniform) Marshal() []byte {
	buf := make([]byte, g.Size())
	binary.LittleEndian.PutUint32(buf[0:], math.Float32bits(g.RenderDistance))
	binary.LittleEndian.PutUint32(buf[4:], math.Float32bits(g.LodBias))
	binary.LittleEndian.PutUint32(buf[8:], math.Float32bits(g.Gamma))
	binary.LittleEndian.PutUint32(buf[12:], g.Flags)
	return buf
}

// MatrixUniform is the GPU-aligned transform matrix uniform.
// Size: 256 bytes.
type MatrixUniform struct {
	Model          [16]float32 // offset   0: model matrix (mat4x4<f32>)
	View           [16]float32 // offset  64: view matrix (mat4x4<f32>)
	Projection     [16]float32 // offset 128: projection matrix (mat4x4<f32>)
	ShadowViewProj [16]float32 // offset 192: shadow-pass view-projection matrix (mat4x4<f32>)
}

var _ GPUValue = &MatrixUniform{}

// Size returns the size of the MatrixUniform struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (256)
func (g *MatrixUniform) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the MatrixUniform struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: the serialized byte buffer
func (g *MatrixUniform) Marshal() []byte {
	buf := make([]byte, g.Size())
	for i := range 16 {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(g.Model[i]))
		binary.LittleEndian.PutUint32(buf[64+i*4:], math.Float32bits(g.View[i]))
		binary.LittleEndian.PutUint32(buf[128+i*4:], math.Float32bits(g.Projection[i]))
		binary.LittleEndian.PutUint32(buf[192+i*4:], math.Float32bits(g.ShadowViewProj[i]))
	}
	return buf
}
