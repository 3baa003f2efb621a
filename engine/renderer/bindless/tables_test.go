package bindless

import (
	"encoding/binary"
	"errors"
	"testing"
)

func TestTargetIndexTableSet(t *testing.T) {
	var table TargetIndexTable

	if err := table.Set(0, 42); err != nil {
		t.Fatalf("Set(0) error: %v", err)
	}
	if err := table.Set(TargetTableSlots-1, 7); err != nil {
		t.Fatalf("Set(last) error: %v", err)
	}
	if table.Indices[0] != 42 || table.Indices[TargetTableSlots-1] != 7 {
		t.Error("Set() did not store the indices")
	}

	if err := table.Set(-1, 1); !errors.Is(err, ErrSlotOutOfRange) {
		t.Errorf("Set(-1) = %v, want ErrSlotOutOfRange", err)
	}
	if err := table.Set(TargetTableSlots, 1); !errors.Is(err, ErrSlotOutOfRange) {
		t.Errorf("Set(%d) = %v, want ErrSlotOutOfRange", TargetTableSlots, err)
	}
}

func TestCustomImageTableSet(t *testing.T) {
	var table CustomImageTable

	if err := table.Set(CustomImageSlots-1, 3); err != nil {
		t.Fatalf("Set(last) error: %v", err)
	}
	if err := table.Set(CustomImageSlots, 3); !errors.Is(err, ErrSlotOutOfRange) {
		t.Errorf("Set(%d) = %v, want ErrSlotOutOfRange", CustomImageSlots, err)
	}
}

func TestTargetIndexTableMarshal(t *testing.T) {
	var table TargetIndexTable
	for i := 0; i < TargetTableSlots; i++ {
		table.Indices[i] = uint32(100 + i)
	}

	buf := table.Marshal()
	if len(buf) != table.Size() {
		t.Fatalf("Marshal() length = %d, want %d", len(buf), table.Size())
	}
	if table.Size() != TargetTableSlots*4 {
		t.Errorf("Size() = %d, want %d (tightly packed)", table.Size(), TargetTableSlots*4)
	}
	for i := 0; i < TargetTableSlots; i++ {
		if got := binary.LittleEndian.Uint32(buf[i*4:]); got != uint32(100+i) {
			t.Errorf("slot %d = %d, want %d", i, got, 100+i)
		}
	}
}

func TestRootIndexTableMarshal(t *testing.T) {
	var table RootIndexTable
	for c := Category(0); c < categoryCount; c++ {
		table.Slots[c] = uint32(c) * 3
	}

	buf := table.Marshal()
	if len(buf) != RootIndexTableSize {
		t.Fatalf("Marshal() length = %d, want %d", len(buf), RootIndexTableSize)
	}
	for c := Category(0); c < categoryCount; c++ {
		if got := binary.LittleEndian.Uint32(buf[int(c)*4:]); got != uint32(c)*3 {
			t.Errorf("category %s slot = %d, want %d", c, got, uint32(c)*3)
		}
	}
}

func TestUniformSizes(t *testing.T) {
	tests := []struct {
		name  string
		value GPUValue
		want  int
	}{
		{"CameraPlayer", &CameraPlayerUniform{}, 112},
		{"ScreenSystem", &ScreenSystemUniform{}, 32},
		{"Identifier", &IdentifierUniform{}, 16},
		{"WorldWeather", &WorldWeatherUniform{}, 32},
		{"BiomeDimension", &BiomeDimensionUniform{}, 64},
		{"RenderState", &RenderStateUniform{}, 16},
		{"Matrices", &MatrixUniform{}, 256},
		{"TargetIndexTable", &TargetIndexTable{}, 32},
		{"CustomImageTable", &CustomImageTable{}, 64},
		{"RootIndexTable", &RootIndexTable{}, RootIndexTableSize},
	}
	for _, tt := range tests {
		if got := tt.value.Size(); got != tt.want {
			t.Errorf("%s Size() = %d, want %d", tt.name, got, tt.want)
		}
		if got := len(tt.value.Marshal()); got != tt.want {
			t.Errorf("%s Marshal() length = %d, want %d", tt.name, got, tt.want)
		}
	}
}
