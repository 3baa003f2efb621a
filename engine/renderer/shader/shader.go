package shader

import (
	"fmt"
	"os"

	"github.com/cogentcore/webgpu/wgpu"
)

// ShaderType identifies the pipeline stage a shader's entry point targets.
type ShaderType int

const (
	// ShaderTypeVertex is the vertex shader type, used for vertex processing in render pipelines.
	ShaderTypeVertex ShaderType = iota

	// ShaderTypeFragment is the fragment shader type, paired with a vertex shader in render pipelines.
	ShaderTypeFragment
)

// shader is the implementation of the Shader interface.
// It holds the persistent shader data consumed during pipeline creation.
// The engine does not compile or validate shader source; it is handed to
// the GPU backend verbatim.
type shader struct {
	key           string
	source        string
	shaderType    ShaderType
	entryPoint    string
	vertexLayouts []wgpu.VertexBufferLayout
}

// Shader defines the interface for a loaded WGSL shader. It exposes the
// shader's unique key, raw source, entry point, and vertex buffer layouts
// needed for pipeline creation.
type Shader interface {
	// Key retrieves the unique identifier for this shader, used for caching and lookups.
	//
	// Returns:
	//   - string: the shader's unique key
	Key() string

	// Source retrieves the raw WGSL shader source code.
	//
	// Returns:
	//   - string: the shader source
	Source() string

	// Type retrieves the shader's pipeline stage.
	//
	// Returns:
	//   - ShaderType: vertex or fragment
	Type() ShaderType

	// EntryPoint retrieves the entry point function name for this shader.
	// Defaults to "vs_main" for vertex shaders and "fs_main" for fragment shaders.
	//
	// Returns:
	//   - string: the entry point name
	EntryPoint() string

	// VertexLayouts retrieves the vertex buffer layouts declared for this shader.
	// Only meaningful for vertex shaders; empty for fragment shaders.
	//
	// Returns:
	//   - []wgpu.VertexBufferLayout: the vertex buffer layouts
	VertexLayouts() []wgpu.VertexBufferLayout
}

var _ Shader = &shader{}

// NewShader creates a new Shader from in-memory WGSL source.
//
// Parameters:
//   - key: the unique identifier for this shader
//   - source: the raw WGSL source code
//   - shaderType: the pipeline stage this shader targets
//   - opts: functional options to further configure the shader
//
// Returns:
//   - Shader: the newly created shader
func NewShader(key, source string, shaderType ShaderType, opts ...ShaderOption) Shader {
	s := &shader{
		key:        key,
		source:     source,
		shaderType: shaderType,
	}
	switch shaderType {
	case ShaderTypeVertex:
		s.entryPoint = "vs_main"
	case ShaderTypeFragment:
		s.entryPoint = "fs_main"
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// LoadShader creates a new Shader by reading WGSL source from a file.
//
// Parameters:
//   - key: the unique identifier for this shader
//   - path: the filesystem path to the WGSL source file
//   - shaderType: the pipeline stage this shader targets
//   - opts: functional options to further configure the shader
//
// Returns:
//   - Shader: the newly created shader
//   - error: an error if the file could not be read
func LoadShader(key, path string, shaderType ShaderType, opts ...ShaderOption) (Shader, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read shader source %q: %w", path, err)
	}
	return NewShader(key, string(src), shaderType, opts...), nil
}

func (s *shader) Key() string {
	return s.key
}

func (s *shader) Source() string {
	return s.source
}

func (s *shader) Type() ShaderType {
	return s.shaderType
}

func (s *shader) EntryPoint() string {
	return s.entryPoint
}

func (s *shader) VertexLayouts() []wgpu.VertexBufferLayout {
	return s.vertexLayouts
}

// ShaderOption is a functional option used to configure a Shader during construction.
type ShaderOption func(*shader)

// WithEntryPoint overrides the default entry point function name.
//
// Parameters:
//   - name: the entry point function name
//
// Returns:
//   - ShaderOption: a function that sets the entry point
func WithEntryPoint(name string) ShaderOption {
	return func(s *shader) {
		s.entryPoint = name
	}
}

// WithVertexLayouts sets the vertex buffer layouts for a vertex shader.
//
// Parameters:
//   - layouts: the vertex buffer layouts matching the shader's inputs
//
// Returns:
//   - ShaderOption: a function that sets the vertex layouts
func WithVertexLayouts(layouts ...wgpu.VertexBufferLayout) ShaderOption {
	return func(s *shader) {
		s.vertexLayouts = layouts
	}
}
