package pipeline_state

import (
	"errors"
	"fmt"

	"github.com/Caishangqi/Eurekiel-sub001/engine/renderer/shader"
)

// ErrStaleProgram is returned when a ProgramHandle refers to a registry
// slot that has been destroyed or reused since the handle was issued.
var ErrStaleProgram = errors.New("pipeline_state: program handle is stale")

// ProgramHandle is a stable, generation-indexed identity for a registered
// shader program. It is a small comparable value safe to embed in cache
// keys: destroying a program bumps the slot's generation, so handles to
// the old program can never resolve to a later occupant of the same slot.
type ProgramHandle struct {
	index      uint32
	generation uint32
}

// Valid reports whether the handle was issued by a registry. The zero
// handle is never valid.
//
// Returns:
//   - bool: true if the handle refers to a registry slot
func (h ProgramHandle) Valid() bool {
	return h.generation != 0
}

// String returns a compact representation for logging.
func (h ProgramHandle) String() string {
	return fmt.Sprintf("program(%d.%d)", h.index, h.generation)
}

// Program pairs the vertex and fragment shaders a render pipeline is built
// from. The fragment shader may be nil for depth-only pipelines.
type Program struct {
	// Vertex is the vertex-stage shader. Required.
	Vertex shader.Shader
	// Fragment is the fragment-stage shader, or nil for depth-only pipelines.
	Fragment shader.Shader
}

// programSlot is one registry slot. The generation survives Destroy so
// stale handles keep failing after the slot is reused.
type programSlot struct {
	program Program
	// generation is the slot's current generation; 0 means never used.
	generation uint32
	live       bool
}

// programRegistry is the implementation of the ProgramRegistry interface.
type programRegistry struct {
	slots []programSlot
	free  []uint32
}

// ProgramRegistry issues stable handles for shader programs. The pipeline
// cache keys pipelines by handle rather than by shader pointer, so a
// destroyed-and-reallocated shader can never be mistaken for its
// predecessor.
type ProgramRegistry interface {
	// Register stores a vertex/fragment shader pair and returns its handle.
	// The fragment shader may be nil for depth-only pipelines.
	//
	// Parameters:
	//   - vertex: the vertex shader (must not be nil)
	//   - fragment: the fragment shader, or nil
	//
	// Returns:
	//   - ProgramHandle: the stable handle for the program
	Register(vertex, fragment shader.Shader) ProgramHandle

	// Resolve returns the program a handle refers to.
	//
	// Parameters:
	//   - handle: the handle to resolve
	//
	// Returns:
	//   - Program: the registered program
	//   - error: ErrStaleProgram if the handle is invalid, destroyed, or reused
	Resolve(handle ProgramHandle) (Program, error)

	// Destroy releases a program's slot for reuse. Handles issued for the
	// slot before Destroy resolve to ErrStaleProgram afterwards.
	//
	// Parameters:
	//   - handle: the handle to destroy
	//
	// Returns:
	//   - error: ErrStaleProgram if the handle was already invalid
	Destroy(handle ProgramHandle) error

	// Len returns the number of live programs.
	//
	// Returns:
	//   - int: the live program count
	Len() int
}

var _ ProgramRegistry = &programRegistry{}

// NewProgramRegistry creates an empty program registry.
//
// Returns:
//   - ProgramRegistry: the newly created registry
func NewProgramRegistry() ProgramRegistry {
	return &programRegistry{}
}

func (r *programRegistry) Register(vertex, fragment shader.Shader) ProgramHandle {
	if vertex == nil {
		panic("pipeline_state: Register requires a non-nil vertex shader")
	}

	var idx uint32
	if n := len(r.free); n > 0 {
		idx = r.free[n-1]
		r.free = r.free[:n-1]
	} else {
		r.slots = append(r.slots, programSlot{})
		idx = uint32(len(r.slots) - 1)
	}

	slot := &r.slots[idx]
	slot.generation++
	slot.program = Program{Vertex: vertex, Fragment: fragment}
	slot.live = true

	return ProgramHandle{index: idx, generation: slot.generation}
}

func (r *programRegistry) Resolve(handle ProgramHandle) (Program, error) {
	slot, err := r.slot(handle)
	if err != nil {
		return Program{}, err
	}
	return slot.program, nil
}

func (r *programRegistry) Destroy(handle ProgramHandle) error {
	slot, err := r.slot(handle)
	if err != nil {
		return err
	}
	// Bump the generation immediately so outstanding handles go stale even
	// before the slot is reused.
	slot.generation++
	slot.program = Program{}
	slot.live = false
	r.free = append(r.free, handle.index)
	return nil
}

func (r *programRegistry) Len() int {
	count := 0
	for i := range r.slots {
		if r.slots[i].live {
			count++
		}
	}
	return count
}

func (r *programRegistry) slot(handle ProgramHandle) (*programSlot, error) {
	if !handle.Valid() || int(handle.index) >= len(r.slots) {
		return nil, ErrStaleProgram
	}
	slot := &r.slots[handle.index]
	if !slot.live || slot.generation != handle.generation {
		return nil, ErrStaleProgram
	}
	return slot, nil
}
