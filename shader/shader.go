// Package shader handles WGSL shader sources before they reach the GPU.
//
// A Shader is plain text plus an optional name. No correctness checking
// happens on construction; call Validate to compile the source through naga
// and surface errors before the device sees them.
package shader

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gogpu/naga"
)

// Shader holds the source text of a WGSL compute shader.
type Shader struct {
	content string
	name    string
}

// FromContent creates a shader from a source string.
func FromContent(content string) *Shader {
	return &Shader{content: content}
}

// FromFile reads a WGSL file into a shader. The shader's name is the file's
// base name, which shows up in device labels and error messages.
func FromFile(path string) (*Shader, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read shader: %w", err)
	}
	return &Shader{
		content: string(content),
		name:    filepath.Base(path),
	}, nil
}

// Name returns the shader's name, or "" for an unnamed shader.
func (s *Shader) Name() string { return s.name }

// SetName sets the name used in labels and error messages.
func (s *Shader) SetName(name string) { s.name = name }

// Content returns the current source text.
func (s *Shader) Content() string { return s.content }

// Replace substitutes every instance of from with to in the source.
//
// WGSL cannot express array extents as runtime values, so sources may carry
// placeholder tokens (invalid WGSL on their own) that become valid code once
// replaced with concrete sizes. No correctness check is performed here; use
// Validate after all tokens are resolved.
func (s *Shader) Replace(from, to string) {
	s.content = strings.ReplaceAll(s.content, from, to)
}

// Equal reports whether two shaders have identical source text.
// Two distinct Shader values with the same content are the same module as
// far as pipeline caching is concerned.
func (s *Shader) Equal(other *Shader) bool {
	if s == nil || other == nil {
		return s == other
	}
	return s.content == other.content
}

// Validate compiles the source with naga and reports compilation errors.
// The compiled output is discarded; the device compiles the source itself
// when a pipeline is created.
func (s *Shader) Validate() error {
	if _, err := naga.Compile(s.content); err != nil {
		if s.name != "" {
			return fmt.Errorf("shader %s: %w", s.name, err)
		}
		return fmt.Errorf("shader: %w", err)
	}
	return nil
}
