package optimizer

import (
	"github.com/openreserve/reserve-forecast/internal/projection"
)

// Segment is a contiguous run of projection years ending at a milestone. The
// bounds are year offsets from the projection start, End inclusive.
type Segment struct {
	Start int
	End   int
}

// IsMilestone reports whether a projection year is a milestone: it has an
// expense occurrence, a loan payment, or is the final year of the horizon.
func IsMilestone(p projection.YearProjection, offset, horizon int) bool {
	if p.Expenses > 0 || p.LoanPayments > 0 {
		return true
	}
	return offset == horizon-1
}

// SegmentHorizon partitions the projections into maximal runs of
// non-milestone years each ending at a milestone (inclusive). Segmenting
// localizes the fee search to "how much must be collected by the next known
// cash event" instead of one horizon-wide search.
func SegmentHorizon(projections []projection.YearProjection) []Segment {
	horizon := len(projections)
	var segments []Segment

	start := 0
	for offset, p := range projections {
		if !IsMilestone(p, offset, horizon) {
			continue
		}
		segments = append(segments, Segment{Start: start, End: offset})
		start = offset + 1
	}
	return segments
}
