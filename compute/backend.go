package compute

// BufferID is an opaque handle to a device buffer. The scheduler never
// inspects backend state behind it.
type BufferID uint64

// PipelineID is an opaque handle to a compute pipeline.
type PipelineID uint64

// CommandStream is an opaque finalized sequence of device commands, produced
// by Backend.Dispatch and consumed by Backend.Submit. Streams submitted in
// one Submit call form one multi-stream submission.
type CommandStream interface{}

// BindingLayout describes one slot of a pipeline's binding layout: where the
// buffer attaches, how large the binding is, and whether the shader may
// write through it.
type BindingLayout struct {
	Slot     uint32
	Size     uint64
	ReadOnly bool
}

// BufferBinding attaches a buffer to a bind slot for one dispatch.
type BufferBinding struct {
	Slot   uint32
	Buffer BufferID
}

// Backend is the device collaborator the scheduler drives. Implementations
// own the physical device and queue; the scheduler only holds the opaque
// handles they return.
//
// CreateBuffer and ReadBuffer may block on the device. ReadBuffer blocks the
// calling flow until the device signals the copy has completed; there is no
// timeout, so an unresponsive device stalls the caller indefinitely.
type Backend interface {
	// CreateBuffer allocates a storage buffer of the given byte size.
	CreateBuffer(label string, size uint64) (BufferID, error)

	// WriteBuffer stages bytes into a buffer.
	WriteBuffer(id BufferID, data []byte) error

	// ReadBuffer copies a buffer's contents back to the host.
	ReadBuffer(id BufferID) ([]byte, error)

	// CreatePipeline compiles a shader entry point against a binding layout.
	// Implementations are free to cache compiled modules by source content.
	CreatePipeline(source, entryPoint, label string, layout []BindingLayout) (PipelineID, error)

	// Dispatch records one pipeline dispatch over the given bindings into a
	// finalized command stream. Nothing executes until the stream is
	// submitted.
	Dispatch(pipeline PipelineID, binds []BufferBinding, workgroups [3]uint32, label string) (CommandStream, error)

	// Submit sends finalized command streams to the device queue in order.
	Submit(streams ...CommandStream) error
}
