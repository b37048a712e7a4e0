package compute

import (
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Solver is the eager alternative to Algorithm: instead of building one flat
// instruction tape drained later, each function addition immediately stages
// its variables and records a self-contained Serial execution unit. Serial
// units can be submitted one at a time or grouped into a Parallel batch of
// independently submittable command streams.
//
// The model is strictly two-level: a Parallel groups Serials and nothing
// else, nesting Parallel inside Parallel is rejected.
type Solver struct {
	backend Backend
	label   string
	store   variableStore
	modules moduleCache
}

// NewSolver starts an eager scheduling session against a backend.
func NewSolver(backend Backend, label string) *Solver {
	return &Solver{
		backend: backend,
		label:   label,
		store:   variableStore{backend: backend},
	}
}

// Label returns the session label.
func (s *Solver) Label() string { return s.label }

// ExecutionUnit is either a Serial command stream or a Parallel batch of
// them.
type ExecutionUnit interface {
	// commandStreams returns the finalized streams this unit submits.
	commandStreams() ([]CommandStream, error)

	// markSubmitted finalizes the unit after a successful submission.
	markSubmitted()
}

// Serial is one function's device commands: its staging writes have already
// run, its dispatch is recorded in a finalized command stream, and the
// variable handles it touches are listed for read-back bookkeeping.
type Serial struct {
	label     string
	stream    CommandStream
	vars      []*Var
	submitted bool
}

// Label returns the function label this unit was built from.
func (u *Serial) Label() string { return u.label }

// Vars returns the variable handles the unit touches.
func (u *Serial) Vars() []*Var {
	return append([]*Var(nil), u.vars...)
}

func (u *Serial) commandStreams() ([]CommandStream, error) {
	if u.submitted {
		return nil, &OperationMisuseError{Reason: "serial unit " + u.label + " was already submitted"}
	}
	return []CommandStream{u.stream}, nil
}

func (u *Serial) markSubmitted() { u.submitted = true }

// Parallel groups Serial units to be submitted together as one multi-stream
// submission. The grouping is flat: adding a Parallel to a Parallel is an
// OperationMisuseError.
type Parallel struct {
	units []*Serial
}

// NewParallel returns an empty batch.
func NewParallel() *Parallel { return &Parallel{} }

// Add appends an execution unit to the batch. Only Serial units are
// accepted.
func (p *Parallel) Add(u ExecutionUnit) error {
	switch unit := u.(type) {
	case *Serial:
		p.units = append(p.units, unit)
		return nil
	case *Parallel:
		return &OperationMisuseError{Reason: "cannot nest a parallel batch inside a parallel batch"}
	default:
		return &OperationMisuseError{Reason: "unknown execution unit type"}
	}
}

// Len returns the number of grouped units.
func (p *Parallel) Len() int { return len(p.units) }

func (p *Parallel) commandStreams() ([]CommandStream, error) {
	var errs error
	streams := make([]CommandStream, 0, len(p.units))
	for _, u := range p.units {
		us, err := u.commandStreams()
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		streams = append(streams, us...)
	}
	if errs != nil {
		return nil, errs
	}
	return streams, nil
}

func (p *Parallel) markSubmitted() {
	for _, u := range p.units {
		u.markSubmitted()
	}
}

// AddFunction eagerly builds a Serial unit for one function: interns its
// bindings (staging each new variable identity immediately), materializes
// the pipeline and records the dispatch into a finalized command stream.
// Nothing reaches the device queue until the unit is submitted.
func (s *Solver) AddFunction(f *Function) (*Serial, error) {
	if f.consumed {
		return nil, &OperationMisuseError{Reason: "function " + f.label + " was already added; a function is consumed exactly once"}
	}
	if err := checkFunctionExtents(s.label, f); err != nil {
		return nil, err
	}

	layout := make([]BindingLayout, len(f.binds))
	binds := make([]BufferBinding, len(f.binds))
	vars := make([]*Var, len(f.binds))
	var dims []uint32
	var dimsName string
	for i, vb := range f.binds {
		index, isNew, err := s.store.intern(vb.Var, vb.Slot)
		if err != nil {
			return nil, err
		}
		sv := s.store.entries[index]
		if isNew {
			if err := s.backend.WriteBuffer(sv.buffer, vb.Var.Bytes()); err != nil {
				return nil, &DeviceError{Op: "write buffer " + vb.Var.Name(), Err: err}
			}
		}
		layout[i] = BindingLayout{
			Slot:     vb.Slot,
			Size:     vb.Var.ByteSize(),
			ReadOnly: vb.Mutability == Immutable,
		}
		binds[i] = BufferBinding{Slot: vb.Slot, Buffer: sv.buffer}
		vars[i] = vb.Var
		dims = vb.Var.DimensionSizes()
		dimsName = vb.Var.Name()
	}

	workgroups, err := PlanWorkgroups(dims)
	if err != nil {
		switch e := err.(type) {
		case *WorkgroupDimensionError:
			e.Variable = dimsName
		case *DimensionError:
			e.Variable = dimsName
		}
		return nil, err
	}

	pipeline, err := s.backend.CreatePipeline(f.shader.Content(), f.entryPoint, f.label, layout)
	if err != nil {
		return nil, &DeviceError{Op: "create pipeline " + f.label, Err: err}
	}
	stream, err := s.backend.Dispatch(pipeline, binds, workgroups, f.label)
	if err != nil {
		return nil, &DeviceError{Op: "dispatch " + f.label, Err: err}
	}
	f.consumed = true

	Logger().Debug("serial unit recorded",
		zap.String("session", s.label),
		zap.String("function", f.label),
		zap.Int("bindings", len(f.binds)))
	return &Serial{label: f.label, stream: stream, vars: vars}, nil
}

// Submit finalizes an execution unit and sends its command streams to the
// device as one submission. A Serial submits alone; a Parallel submits every
// contained Serial together.
func (s *Solver) Submit(u ExecutionUnit) error {
	streams, err := u.commandStreams()
	if err != nil {
		return err
	}
	if err := s.backend.Submit(streams...); err != nil {
		return &DeviceError{Op: "submit", Err: err}
	}
	u.markSubmitted()
	Logger().Debug("execution unit submitted",
		zap.String("session", s.label),
		zap.Int("streams", len(streams)))
	return nil
}

// GetOutput reads a variable's buffer back and deserializes it in place,
// exactly as Algorithm.GetOutput does.
func (s *Solver) GetOutput(v *Var) error {
	sv, ok := s.store.lookup(v)
	if !ok {
		return &VariableNotFoundError{Variable: v.Name(), Session: s.label}
	}
	data, err := s.backend.ReadBuffer(sv.buffer)
	if err != nil {
		return &DeviceError{Op: "read buffer " + v.Name(), Err: err}
	}
	v.SetBytes(data)
	return nil
}
