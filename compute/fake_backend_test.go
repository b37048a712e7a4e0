package compute

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// fakeKernel mutates the raw buffer bytes for one dispatch, keyed by bind
// slot. Kernels stand in for shader entry points so scheduling behavior can
// be checked without a device.
type fakeKernel func(buffers map[uint32][]byte, workgroups [3]uint32)

type fakePipeline struct {
	source string
	entry  string
	label  string
	layout []BindingLayout
}

type fakeStream struct {
	pipeline PipelineID
	binds    []BufferBinding
	groups   [3]uint32
	label    string
}

// fakeBackend is an in-memory Backend. Buffers are byte slices, pipelines
// record what they were created with, and Submit runs the kernel registered
// for each stream's entry point against the bound buffers.
type fakeBackend struct {
	buffers      map[BufferID][]byte
	bufferLabels map[BufferID]string
	nextBuffer   BufferID

	pipelines    map[PipelineID]*fakePipeline
	nextPipeline PipelineID

	kernels map[string]fakeKernel

	createCalls   int
	writeCalls    int
	dispatchCalls int
	submitCalls   int

	failWrite  bool
	failCreate bool
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		buffers:      map[BufferID][]byte{},
		bufferLabels: map[BufferID]string{},
		nextBuffer:   1,
		pipelines:    map[PipelineID]*fakePipeline{},
		nextPipeline: 1,
		kernels:      map[string]fakeKernel{},
	}
}

func (b *fakeBackend) CreateBuffer(label string, size uint64) (BufferID, error) {
	b.createCalls++
	if b.failCreate {
		return 0, errors.New("allocation refused")
	}
	id := b.nextBuffer
	b.nextBuffer++
	b.buffers[id] = make([]byte, size)
	b.bufferLabels[id] = label
	return id, nil
}

func (b *fakeBackend) WriteBuffer(id BufferID, data []byte) error {
	b.writeCalls++
	if b.failWrite {
		return errors.New("write refused")
	}
	buf, ok := b.buffers[id]
	if !ok {
		return fmt.Errorf("unknown buffer %d", id)
	}
	copy(buf, data)
	return nil
}

func (b *fakeBackend) ReadBuffer(id BufferID) ([]byte, error) {
	buf, ok := b.buffers[id]
	if !ok {
		return nil, fmt.Errorf("unknown buffer %d", id)
	}
	out := make([]byte, len(buf))
	copy(out, buf)
	return out, nil
}

func (b *fakeBackend) CreatePipeline(source, entryPoint, label string, layout []BindingLayout) (PipelineID, error) {
	id := b.nextPipeline
	b.nextPipeline++
	b.pipelines[id] = &fakePipeline{
		source: source,
		entry:  entryPoint,
		label:  label,
		layout: append([]BindingLayout(nil), layout...),
	}
	return id, nil
}

func (b *fakeBackend) Dispatch(pipeline PipelineID, binds []BufferBinding, workgroups [3]uint32, label string) (CommandStream, error) {
	b.dispatchCalls++
	if _, ok := b.pipelines[pipeline]; !ok {
		return nil, fmt.Errorf("unknown pipeline %d", pipeline)
	}
	return &fakeStream{
		pipeline: pipeline,
		binds:    append([]BufferBinding(nil), binds...),
		groups:   workgroups,
		label:    label,
	}, nil
}

func (b *fakeBackend) Submit(streams ...CommandStream) error {
	b.submitCalls++
	for _, s := range streams {
		stream, ok := s.(*fakeStream)
		if !ok {
			return errors.New("foreign command stream")
		}
		p := b.pipelines[stream.pipeline]
		kernel, ok := b.kernels[p.entry]
		if !ok {
			continue
		}
		bound := map[uint32][]byte{}
		for _, bind := range stream.binds {
			bound[bind.Slot] = b.buffers[bind.Buffer]
		}
		kernel(bound, stream.groups)
	}
	return nil
}

// addToSlot builds a kernel that adds delta to every float32 in the buffer
// at the given bind slot.
func addToSlot(slot uint32, delta float32) fakeKernel {
	return func(buffers map[uint32][]byte, _ [3]uint32) {
		buf := buffers[slot]
		for i := 0; i+4 <= len(buf); i += 4 {
			v := math.Float32frombits(binary.LittleEndian.Uint32(buf[i:]))
			binary.LittleEndian.PutUint32(buf[i:], math.Float32bits(v+delta))
		}
	}
}

// matrix is a row-major float32 matrix used as the test Variable. Its byte
// form is the tightly packed little-endian layout a WGSL
// array<f32> storage buffer expects.
type matrix struct {
	name string
	rows uint32
	cols uint32
	data []float32
}

func newMatrix(name string, rows, cols uint32, fill float32) *matrix {
	data := make([]float32, rows*cols)
	for i := range data {
		data[i] = fill
	}
	return &matrix{name: name, rows: rows, cols: cols, data: data}
}

func (m *matrix) Name() string     { return m.name }
func (m *matrix) ByteSize() uint64 { return uint64(4 * len(m.data)) }

func (m *matrix) Bytes() []byte {
	out := make([]byte, 4*len(m.data))
	for i, v := range m.data {
		binary.LittleEndian.PutUint32(out[4*i:], math.Float32bits(v))
	}
	return out
}

func (m *matrix) SetBytes(data []byte) {
	for i := range m.data {
		m.data[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[4*i:]))
	}
}

func (m *matrix) DimensionSizes() []uint32 { return []uint32{m.rows, m.cols} }

// vector is a one-dimensional test Variable whose extent is set directly,
// useful for driving workgroup planning through the schedulers without
// allocating real data.
type vector struct {
	name   string
	extent uint32
	data   []float32
}

func newVector(name string, extent uint32) *vector {
	return &vector{name: name, extent: extent, data: make([]float32, 1)}
}

func (v *vector) Name() string     { return v.name }
func (v *vector) ByteSize() uint64 { return uint64(4 * len(v.data)) }

func (v *vector) Bytes() []byte {
	out := make([]byte, 4*len(v.data))
	for i, f := range v.data {
		binary.LittleEndian.PutUint32(out[4*i:], math.Float32bits(f))
	}
	return out
}

func (v *vector) SetBytes(data []byte) {
	for i := range v.data {
		v.data[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[4*i:]))
	}
}

func (v *vector) DimensionSizes() []uint32 { return []uint32{v.extent} }
