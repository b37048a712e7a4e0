// Package compute schedules GPU compute invocations over named data buffers.
//
// A caller wraps its data in Var handles, binds them into Functions and adds
// those to an Algorithm. The algorithm decides which device buffers already
// exist, deduplicates repeated references to the same variable, assembles
// binding layouts and orders the low-level steps so writes happen before
// binds which happen before dispatches. The actual device work is delegated
// to a Backend.
package compute

import (
	"slices"

	"go.uber.org/zap"
)

// Algorithm is one scheduling session: a variable store, a shader module
// cache and an instruction tape of pending operations. Operations accumulate
// across AddFunction calls and drain in insertion order on Run. Buffers and
// cached modules persist across drains within the session.
//
// An Algorithm is single-threaded cooperative: one caller goroutine builds
// functions, drains operations and issues read-backs.
type Algorithm struct {
	backend    Backend
	label      string
	store      variableStore
	modules    moduleCache
	operations []Operation
}

// NewAlgorithm starts an empty scheduling session against a backend. The
// label names the session in diagnostics and errors.
func NewAlgorithm(backend Backend, label string) *Algorithm {
	return &Algorithm{
		backend: backend,
		label:   label,
		store:   variableStore{backend: backend},
	}
}

// Label returns the session label.
func (a *Algorithm) Label() string { return a.label }

// Operations returns a snapshot of the pending instruction tape.
func (a *Algorithm) Operations() []Operation {
	return slices.Clone(a.operations)
}

// AddFunction translates a function into pending operations: one buffer
// write per variable identity not seen before, one bind carrying the
// function's slot assignments, and one execute referencing the cached
// shader module.
//
// Every binding in the function must report the same dimension extents,
// since the dispatch is sized by a single variable; mismatched extents are
// rejected with a DimensionMismatchError rather than silently covering only
// part of the data.
func (a *Algorithm) AddFunction(f *Function) error {
	if f.consumed {
		return &OperationMisuseError{Reason: "function " + f.label + " was already added; a function is consumed exactly once"}
	}
	if err := checkFunctionExtents(a.label, f); err != nil {
		return err
	}

	bind := Operation{kind: OpBind}
	for _, vb := range f.binds {
		index, isNew, err := a.store.intern(vb.Var, vb.Slot)
		if err != nil {
			return err
		}
		if isNew {
			write := Operation{kind: OpBufferWrite}
			if err := write.setStore(index); err != nil {
				return err
			}
			a.operations = append(a.operations, write)
		}
		err = bind.addBind(bindEntry{
			slot:     vb.Slot,
			store:    index,
			readOnly: vb.Mutability == Immutable,
		})
		if err != nil {
			return err
		}
	}
	a.operations = append(a.operations, bind)

	moduleIndex, entryIndex := a.modules.register(f.shader, f.entryPoint)
	a.operations = append(a.operations, Operation{
		kind:   OpExecute,
		module: moduleIndex,
		entry:  entryIndex,
		label:  f.label,
	})
	f.consumed = true

	Logger().Debug("function added",
		zap.String("session", a.label),
		zap.String("function", f.label),
		zap.Int("bindings", len(f.binds)),
		zap.Int("operations", len(a.operations)))
	return nil
}

// checkFunctionExtents rejects functions whose bindings disagree on
// dimension extents, and surfaces more than three dimensions early with the
// variable named.
func checkFunctionExtents(session string, f *Function) error {
	var reference []uint32
	first := true
	for _, vb := range f.binds {
		dims := vb.Var.DimensionSizes()
		if len(dims) > 3 {
			return &DimensionError{Variable: vb.Var.Name(), Dimensions: len(dims)}
		}
		if first {
			reference = dims
			first = false
			continue
		}
		if !extentsEqual(dims, reference) {
			return &DimensionMismatchError{
				Session:  session,
				Variable: vb.Var.Name(),
				Got:      dims,
				Want:     reference,
			}
		}
	}
	return nil
}

// extentsEqual treats missing trailing axes as extent 1, so [3 3] and
// [3 3 1] agree.
func extentsEqual(a, b []uint32) bool {
	for i := 0; i < 3; i++ {
		if extentAt(a, i) != extentAt(b, i) {
			return false
		}
	}
	return true
}

func extentAt(dims []uint32, i int) uint32 {
	if i >= len(dims) || dims[i] == 0 {
		return 1
	}
	return dims[i]
}

// Run drains the pending operations in insertion order. A bind resets the
// current bind-group accumulator; a buffer write stages one variable's bytes
// independent of bind state; an execute builds the pipeline from the
// accumulated entries, sizes the dispatch with PlanWorkgroups and submits
// the resulting command stream.
//
// There is no partial-success bookkeeping: on failure the drain stops and
// reports, and work already submitted stays committed on the device. After a
// successful drain the operation tape is cleared; buffers and cached modules
// are kept for reuse.
func (a *Algorithm) Run() error {
	if n := len(a.operations); n > 0 && a.operations[n-1].kind == OpBind {
		return &OperationMisuseError{Reason: "session " + a.label + " ends with a bind and no execute"}
	}

	var current []bindEntry
	haveBind := false
	for i := range a.operations {
		op := &a.operations[i]
		switch op.kind {
		case OpBind:
			current = op.binds
			haveBind = true

		case OpBufferWrite:
			sv := a.store.entries[op.store]
			if err := a.backend.WriteBuffer(sv.buffer, sv.handle.Bytes()); err != nil {
				return &DeviceError{Op: "write buffer " + sv.handle.Name(), Err: err}
			}

		case OpExecute:
			if !haveBind {
				return &OperationMisuseError{Reason: "execute " + op.label + " has no preceding bind"}
			}
			if err := a.execute(op, current); err != nil {
				return err
			}
		}
	}

	Logger().Debug("session drained",
		zap.String("session", a.label),
		zap.Int("operations", len(a.operations)))
	a.operations = a.operations[:0]
	return nil
}

// execute materializes the pipeline for one execute step and submits its
// dispatch. Workgroups are sized from the last bound variable; extents were
// validated to agree when the function was added.
func (a *Algorithm) execute(op *Operation, current []bindEntry) error {
	layout := make([]BindingLayout, len(current))
	binds := make([]BufferBinding, len(current))
	var dims []uint32
	var dimsName string
	for i, e := range current {
		sv := a.store.entries[e.store]
		layout[i] = BindingLayout{
			Slot:     e.slot,
			Size:     sv.handle.ByteSize(),
			ReadOnly: e.readOnly,
		}
		binds[i] = BufferBinding{Slot: e.slot, Buffer: sv.buffer}
		dims = sv.handle.DimensionSizes()
		dimsName = sv.handle.Name()
	}

	workgroups, err := PlanWorkgroups(dims)
	if err != nil {
		switch e := err.(type) {
		case *WorkgroupDimensionError:
			e.Variable = dimsName
		case *DimensionError:
			e.Variable = dimsName
		}
		return err
	}

	source, entryPoint := a.modules.at(op.module, op.entry)
	pipeline, err := a.backend.CreatePipeline(source.Content(), entryPoint, op.label, layout)
	if err != nil {
		return &DeviceError{Op: "create pipeline " + op.label, Err: err}
	}
	stream, err := a.backend.Dispatch(pipeline, binds, workgroups, op.label)
	if err != nil {
		return &DeviceError{Op: "dispatch " + op.label, Err: err}
	}
	if err := a.backend.Submit(stream); err != nil {
		return &DeviceError{Op: "submit " + op.label, Err: err}
	}
	Logger().Debug("dispatch submitted",
		zap.String("session", a.label),
		zap.String("function", op.label),
		zap.Uint32s("workgroups", workgroups[:]))
	return nil
}

// GetOutput reads a variable's device buffer back and deserializes it into
// the variable in place. The variable is found by handle identity; asking
// for a handle never bound into this session is a VariableNotFoundError.
//
// GetOutput blocks until the device completes the copy. The variable's lock
// is held only while the bytes are deserialized, never across device work.
func (a *Algorithm) GetOutput(v *Var) error {
	sv, ok := a.store.lookup(v)
	if !ok {
		return &VariableNotFoundError{Variable: v.Name(), Session: a.label}
	}
	data, err := a.backend.ReadBuffer(sv.buffer)
	if err != nil {
		return &DeviceError{Op: "read buffer " + v.Name(), Err: err}
	}
	v.SetBytes(data)
	return nil
}
