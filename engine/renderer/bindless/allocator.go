package bindless

// MappedBuffer is a GPU-visible buffer with a persistent CPU-side mapping.
// The CPU writes into Bytes while the GPU reads the same memory; no
// synchronization is performed by this layer (see the capacity discipline
// on RegisterBuffer).
type MappedBuffer interface {
	// Bytes returns the persistently-mapped CPU-visible memory backing the
	// buffer. The slice stays valid until Release.
	//
	// Returns:
	//   - []byte: the mapped memory
	Bytes() []byte

	// BindlessIndex returns the small integer index shaders use to address
	// this buffer through the bindless heap.
	//
	// Returns:
	//   - uint32: the buffer's bindless index
	BindlessIndex() uint32

	// Release releases the buffer and invalidates the mapping.
	Release()
}

// BufferAllocator creates persistently-mapped GPU-visible buffers with
// CPU-write/GPU-read access. The renderer backend provides the real
// implementation; tests provide in-memory fakes.
type BufferAllocator interface {
	// CreateMapped creates a buffer of the given size and maps it
	// persistently.
	//
	// Parameters:
	//   - label: a debug label for the buffer
	//   - size: the buffer size in bytes
	//
	// Returns:
	//   - MappedBuffer: the created buffer
	//   - error: an error if the buffer could not be created or mapped
	CreateMapped(label string, size uint64) (MappedBuffer, error)
}
