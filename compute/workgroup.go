package compute

import "fmt"

// Per-axis workgroup count limits. The first tier is the span every dispatch
// axis accepts directly. Axis 0 tolerates a larger span than axes 1 and 2,
// mirroring device limits on total invocations per dispatch axis; the tier
// boundaries are the contract tested against real device limits.
const (
	maxDirectExtent   = 65535
	deadZoneExtent    = 4194240
	maxAxisZeroExtent = 16776960
)

// PlanWorkgroups maps a variable's per-axis element counts to dispatch group
// counts. Zero extents plan as 1 so a missing axis still dispatches one
// group. More than three dimensions is a DimensionError; an extent in a
// disallowed tier is a WorkgroupDimensionError naming the axis.
//
// Extents beyond every tier cannot run on any target device; PlanWorkgroups
// panics rather than returning an error for those.
func PlanWorkgroups(dims []uint32) ([3]uint32, error) {
	workgroups := [3]uint32{1, 1, 1}
	if len(dims) > 3 {
		return workgroups, &DimensionError{Dimensions: len(dims)}
	}
	for axis, extent := range dims {
		switch {
		case extent == 0:
			// one group covers the empty axis
		case extent <= maxDirectExtent:
			workgroups[axis] = extent
		case extent <= deadZoneExtent:
			return workgroups, &WorkgroupDimensionError{Axis: axis, Extent: extent}
		case extent <= maxAxisZeroExtent:
			if axis != 0 {
				return workgroups, &WorkgroupDimensionError{Axis: axis, Extent: extent}
			}
			workgroups[axis] = extent
		default:
			panic(fmt.Sprintf("compute: extent %d on axis %d cannot fit any dispatch, decrease the variable's size", extent, axis))
		}
	}
	return workgroups, nil
}
