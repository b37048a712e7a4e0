package compute

// OperationKind selects which variant of Operation is active.
type OperationKind uint8

const (
	// OpBufferWrite stages one variable's bytes into its device buffer.
	OpBufferWrite OperationKind = iota

	// OpBind carries the bind-slot to store-index pairs for the next
	// dispatch. A bind must always be followed by an execute.
	OpBind

	// OpExecute dispatches a cached pipeline with a planned workgroup count.
	OpExecute
)

func (k OperationKind) String() string {
	switch k {
	case OpBufferWrite:
		return "BufferWrite"
	case OpBind:
		return "Bind"
	case OpExecute:
		return "Execute"
	}
	return "Unknown"
}

// bindEntry is one slot of a pending bind group: the shader bind slot, the
// variable store index backing it, and whether the binding is read-only.
type bindEntry struct {
	slot     uint32
	store    int
	readOnly bool
}

// Operation is one step of a scheduling session's instruction tape. Exactly
// one variant is active, selected by kind.
type Operation struct {
	kind OperationKind

	// OpBufferWrite: index of the stored variable to stage.
	store int

	// OpBind: bind entries in binding declaration order.
	binds []bindEntry

	// OpExecute: module cache indices plus the function's label.
	module int
	entry  int
	label  string
}

// Kind returns the active variant.
func (o *Operation) Kind() OperationKind { return o.kind }

// Label returns the function label an execute step carries, or "".
func (o *Operation) Label() string { return o.label }

// StoreIndex returns the variable store index a buffer-write step stages.
func (o *Operation) StoreIndex() int { return o.store }

// BindStoreIndexes returns the store indexes a bind step references, in
// binding declaration order.
func (o *Operation) BindStoreIndexes() []int {
	idx := make([]int, len(o.binds))
	for i, b := range o.binds {
		idx[i] = b.store
	}
	return idx
}

// addBind appends a bind entry. Appending to any other kind of operation is
// a scheduler defect.
func (o *Operation) addBind(e bindEntry) error {
	if o.kind != OpBind {
		return &OperationMisuseError{Reason: "cannot add a bind entry to a " + o.kind.String() + " operation"}
	}
	o.binds = append(o.binds, e)
	return nil
}

// setStore points a buffer-write at a stored variable. Setting it on any
// other kind of operation is a scheduler defect.
func (o *Operation) setStore(index int) error {
	if o.kind != OpBufferWrite {
		return &OperationMisuseError{Reason: "cannot set a staging target on a " + o.kind.String() + " operation"}
	}
	o.store = index
	return nil
}
