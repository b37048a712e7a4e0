package compute

import (
	"sync"

	"github.com/PPinucci/wgpu-calc/shader"
)

// Variable is the capability a caller type implements to move through the
// scheduler. The serialize/deserialize pair must agree bit for bit with the
// memory layout the shader's declared buffer types expect; the scheduler
// performs no layout translation.
type Variable interface {
	// Name identifies the variable in labels and error messages.
	Name() string

	// ByteSize is the exact size of the serialized form. It sizes the
	// device buffer backing this variable.
	ByteSize() uint64

	// Bytes serializes the variable for the device.
	Bytes() []byte

	// SetBytes overwrites the variable's state from device bytes, in place.
	SetBytes(data []byte)

	// DimensionSizes reports the element count on each independent
	// computation axis, up to three. A dispatch axis is derived from each.
	DimensionSizes() []uint32
}

// Var is a shared handle to a Variable. The same handle may be bound into
// several functions; identity of the handle (not equality of contents)
// decides whether two bindings share a device buffer.
//
// The embedded lock is held only while bytes are copied in or out, never
// across a device submission. Binding the same handle concurrently from two
// goroutines is outside the model's guarantees.
type Var struct {
	mu    sync.Mutex
	value Variable
}

// NewVar wraps a Variable in a shared handle.
func NewVar(v Variable) *Var {
	return &Var{value: v}
}

// Name returns the underlying variable's name.
func (v *Var) Name() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.value.Name()
}

// ByteSize returns the underlying variable's serialized size.
func (v *Var) ByteSize() uint64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.value.ByteSize()
}

// Bytes serializes the variable under its lock.
func (v *Var) Bytes() []byte {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.value.Bytes()
}

// SetBytes deserializes device bytes into the variable under its lock.
func (v *Var) SetBytes(data []byte) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.value.SetBytes(data)
}

// DimensionSizes returns the variable's dimension extents.
func (v *Var) DimensionSizes() []uint32 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.value.DimensionSizes()
}

// Mutability tags a binding with whether the shader may write through it.
// It is a caller promise, not an enforced discipline: marking a binding
// Immutable declares its backing data will not be read back after the
// operation series runs, and produces a read-only storage binding.
type Mutability uint8

const (
	// Mutable is the default: the shader may read and write the binding.
	Mutable Mutability = iota

	// Immutable declares the binding read-only for the shader.
	Immutable
)

// VariableBind pairs a variable handle with the bind slot it attaches to in
// the shader's binding layout.
type VariableBind struct {
	Var        *Var
	Slot       uint32
	Mutability Mutability
}

// Bind creates a mutable binding of v at the given bind slot.
func Bind(v *Var, slot uint32) VariableBind {
	return VariableBind{Var: v, Slot: slot}
}

// BindImmutable creates a read-only binding of v at the given bind slot.
// See Mutability for what the tag does and does not promise.
func BindImmutable(v *Var, slot uint32) VariableBind {
	return VariableBind{Var: v, Slot: slot, Mutability: Immutable}
}

// Function is one shader invocation: an entry point inside a shader plus the
// ordered variable bindings it touches. A Function is immutable once
// constructed and is consumed exactly once by a scheduler.
type Function struct {
	shader     *shader.Shader
	entryPoint string
	binds      []VariableBind
	label      string
	consumed   bool
}

// NewFunction builds a function from a shader, the entry point name inside
// it, and the bindings in the order the shader declares them. The entry
// point doubles as the function's diagnostic label.
func NewFunction(sh *shader.Shader, entryPoint string, binds []VariableBind) *Function {
	return &Function{
		shader:     sh,
		entryPoint: entryPoint,
		binds:      append([]VariableBind(nil), binds...),
		label:      entryPoint,
	}
}

// Label returns the function's diagnostic label.
func (f *Function) Label() string { return f.label }
