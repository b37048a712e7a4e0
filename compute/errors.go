package compute

import "fmt"

// DimensionError reports a variable declaring more than the three dimensions
// a dispatch can cover. Recoverable: the caller must reshape its data.
type DimensionError struct {
	Variable   string
	Dimensions int
}

func (e *DimensionError) Error() string {
	if e.Variable != "" {
		return fmt.Sprintf("variable %q has %d dimensions, dispatches cover at most 3", e.Variable, e.Dimensions)
	}
	return fmt.Sprintf("%d dimensions given, dispatches cover at most 3", e.Dimensions)
}

// WorkgroupDimensionError reports an axis whose element count falls in a
// range no dispatch axis can cover. Recoverable: the caller must reduce the
// variable's extent on that axis.
type WorkgroupDimensionError struct {
	Variable string
	Axis     int
	Extent   uint32
}

func (e *WorkgroupDimensionError) Error() string {
	if e.Variable != "" {
		return fmt.Sprintf("variable %q: extent %d on axis %d exceeds the workgroup limit for that axis", e.Variable, e.Extent, e.Axis)
	}
	return fmt.Sprintf("extent %d on axis %d exceeds the workgroup limit for that axis", e.Extent, e.Axis)
}

// DimensionMismatchError reports two variables bound into the same function
// with different dimension extents. The dispatch can only be sized by one of
// them, so mismatched extents are rejected outright.
type DimensionMismatchError struct {
	Session  string
	Variable string
	Got      []uint32
	Want     []uint32
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("session %q: variable %q has extents %v, other bindings in the same function have %v",
		e.Session, e.Variable, e.Got, e.Want)
}

// VariableNotFoundError reports a read-back request for a variable that was
// never bound into any function of the session.
type VariableNotFoundError struct {
	Variable string
	Session  string
}

func (e *VariableNotFoundError) Error() string {
	return fmt.Sprintf("variable %q was never added to session %q", e.Variable, e.Session)
}

// OperationMisuseError indicates a sequencing defect inside the scheduler:
// appending a bind to a non-bind operation, a dangling bind with no execute,
// reusing a consumed function, or nesting parallel submissions. These should
// not occur given correct sequencing logic and are surfaced rather than
// swallowed.
type OperationMisuseError struct {
	Reason string
}

func (e *OperationMisuseError) Error() string {
	return "operation misuse: " + e.Reason
}

// DeviceError wraps a failure reported by the device backend. The core never
// retries; GPU failures are not transient in a way blind retry would fix.
type DeviceError struct {
	Op  string
	Err error
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("device %s: %v", e.Op, e.Err)
}

func (e *DeviceError) Unwrap() error { return e.Err }
