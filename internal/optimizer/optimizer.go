// Package optimizer searches for the minimum fee schedule that keeps a
// reserve projection above a target balance, subject to a year-over-year
// growth cap and a fee floor.
package optimizer

import (
	"fmt"
	"slices"

	"github.com/openreserve/reserve-forecast/internal/config"
	"github.com/openreserve/reserve-forecast/internal/projection"
	"github.com/openreserve/reserve-forecast/pkg/constants"
	"github.com/openreserve/reserve-forecast/pkg/format"
	"github.com/openreserve/reserve-forecast/pkg/mathutil"
	"github.com/openreserve/reserve-forecast/pkg/optimization"
	"github.com/openreserve/reserve-forecast/pkg/schedule"
	"go.uber.org/zap"
)

// Result is the outcome of one optimization run.
type Result struct {
	Summary         optimization.Summary
	Projections     []projection.YearProjection
	OptimizedParams config.ModelParameters
}

// phase names the steps of the optimization state machine. The explicit
// phases keep the bounded-iteration termination contract visible: segments
// are selected and solved chronologically, applied, then the whole horizon
// is rechecked, for at most OptimizerOuterPasses passes.
type phase int

const (
	phaseSelect phase = iota
	phaseSearch
	phaseApply
	phaseRecheck
)

// Runner carries one optimization run. Each run owns a private copy of the
// fee schedule and required-balance targets; nothing is shared across calls.
type Runner struct {
	logger *zap.Logger
	params config.ModelParameters
	items  []schedule.Item
	target float64

	fees projection.FeeSchedule
	// requiredEnd maps a milestone year offset to the closing balance demanded
	// of the segment ending there, raised above the caller's target when the
	// following segment cannot meet it alone. Every raise re-measures the
	// demand against the current schedule, and the whole map is discarded
	// when the milestone structure shifts between passes, so a demand
	// recorded against a loan the schedule no longer takes cannot linger and
	// inflate the search past the minimal schedule.
	requiredEnd map[int]float64
	milestones  []int
}

// NewRunner constructs a Runner for the provided model.
func NewRunner(logger *zap.Logger, params config.ModelParameters, items []schedule.Item, targetMinBalance float64) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		logger:      logger,
		params:      params,
		items:       items,
		target:      targetMinBalance,
		requiredEnd: make(map[int]float64),
	}
}

// OptimizeFees finds the minimum fee schedule keeping every year's closing
// balance at or above targetMinBalance, within the growth-cap and fee-floor
// constraints. It always terminates with some schedule; when the constraints
// make a deficit-free schedule infeasible the residual deficit is reported in
// the result's statistics rather than as an error.
func OptimizeFees(logger *zap.Logger, params config.ModelParameters, items []schedule.Item, targetMinBalance float64) Result {
	return NewRunner(logger, params, items, targetMinBalance).Run()
}

// Run executes the bounded optimization loop.
func (r *Runner) Run() Result {
	r.fees = r.initialSchedule()

	passes := 0
	converged := false

	for pass := 1; pass <= constants.OptimizerOuterPasses; pass++ {
		passes = pass
		if r.runPass() {
			converged = true
			break
		}
	}

	projections := r.project(r.fees)
	if !converged && projection.TotalDeficit(projections, r.target) > constants.CurrencyTolerance {
		r.applyUniformBump(projections)
		projections = r.project(r.fees)
	}

	result := Result{
		Summary: optimization.Summary{
			Fees:      append([]float64(nil), r.fees...),
			Stats:     r.statistics(projections),
			Passes:    passes,
			Converged: converged,
		},
		Projections:     projections,
		OptimizedParams: r.params,
	}
	result.OptimizedParams.MonthlyFee = r.fees.Fee(0)
	result.Summary.Deltas = r.feeDeltas(projections)
	result.Summary.Recommendations = r.recommendations(result.Summary.Stats, projections)

	r.logger.Info("fee optimization finished",
		zap.String("op", "optimizer.Run"),
		zap.Int("passes", passes),
		zap.Bool("converged", converged),
		zap.Float64("baseFee", r.fees.Fee(0)),
		zap.Float64("residualDeficit", result.Summary.Stats.ResidualDeficit),
	)
	return result
}

// runPass walks the phase machine over every segment once and rechecks the
// horizon. It returns true when the schedule satisfies the target everywhere
// and no segment raised an upstream requirement.
func (r *Runner) runPass() bool {
	projections := r.project(r.fees)
	segments := SegmentHorizon(projections)
	r.reconcileRequirements(segments)

	raised := false
	idx := 0
	var seg Segment
	var solved float64
	var feasible bool

	current := phaseSelect
	for {
		switch current {
		case phaseSelect:
			if idx >= len(segments) {
				current = phaseRecheck
				continue
			}
			seg = segments[idx]
			current = phaseSearch

		case phaseSearch:
			solved, feasible = r.solveForBaseFee(seg)
			if !feasible && idx > 0 {
				r.raiseUpstreamRequirement(segments[idx-1], seg, solved)
				raised = true
			}
			current = phaseApply

		case phaseApply:
			r.applySegmentFee(seg, solved)
			idx++
			current = phaseSelect

		case phaseRecheck:
			if raised {
				return false
			}
			final := r.project(r.fees)
			return projection.TotalDeficit(final, r.target) <= constants.CurrencyTolerance
		}
	}
}

// initialSchedule seeds the fee schedule from the model's current fee, or
// from the base annual cost when no fee is configured.
func (r *Runner) initialSchedule() projection.FeeSchedule {
	base := r.params.MonthlyFee
	if base == 0 && r.params.Units > 0 {
		base = r.params.BaseAnnualCost / constants.MonthsPerYear / float64(r.params.Units)
	}
	base = mathutil.Max(base, r.params.MinimumFee)
	return projection.Uniform(base, r.params.HorizonYears)
}

func (r *Runner) project(fees projection.FeeSchedule) []projection.YearProjection {
	return projection.Project(r.logger, r.params, r.items, fees)
}

// segmentFees returns a copy of the schedule with the segment years replaced
// by the base fee compounded at the growth cap.
func (r *Runner) segmentFees(seg Segment, base float64) projection.FeeSchedule {
	fees := append(projection.FeeSchedule(nil), r.fees...)
	for j := seg.Start; j <= seg.End && j < len(fees); j++ {
		fees[j] = base * mathutil.Growth(r.params.MaxFeeIncreasePct, j-seg.Start)
	}
	return fees
}

// evaluateSegment simulates the whole horizon under the candidate base fee
// and reports the minimum closing balance within the segment and the balance
// handed to the next segment.
func (r *Runner) evaluateSegment(seg Segment, base float64) (minBalance, endBalance float64) {
	projections := r.project(r.segmentFees(seg, base))

	minBalance = projections[seg.Start].ClosingBalance
	for j := seg.Start; j <= seg.End && j < len(projections); j++ {
		if projections[j].ClosingBalance < minBalance {
			minBalance = projections[j].ClosingBalance
		}
	}
	endBalance = projections[seg.End].ClosingBalance
	return minBalance, endBalance
}

func (r *Runner) segmentFeasible(seg Segment, base float64) bool {
	minBalance, endBalance := r.evaluateSegment(seg, base)
	return minBalance >= r.target && endBalance >= r.required(seg)
}

// required returns the closing balance demanded of a segment.
func (r *Runner) required(seg Segment) float64 {
	if raised, ok := r.requiredEnd[seg.End]; ok {
		return mathutil.Max(raised, r.target)
	}
	return r.target
}

// solveForBaseFee binary-searches the minimal base fee for the segment. The
// search runs a fixed number of iterations rather than to a tolerance so that
// repeated runs over identical inputs land on identical schedules. When even
// the capped upper bound is infeasible the bound itself is returned with
// feasible=false; the caller escalates to the previous segment.
func (r *Runner) solveForBaseFee(seg Segment) (float64, bool) {
	floor := r.params.MinimumFee
	lower := floor
	upper, capped := r.searchUpperBound(seg)

	if r.segmentFeasible(seg, lower) {
		return lower, true
	}
	if !r.segmentFeasible(seg, upper) {
		if capped {
			return upper, false
		}
		// Unbounded first segment that still cannot reach the target: the
		// fee has no effect (e.g. zero units). Keep the current fee.
		return r.fees.Fee(seg.Start), false
	}

	for i := 0; i < constants.OptimizerSearchIterations; i++ {
		mid := lower + (upper-lower)/2
		if r.segmentFeasible(seg, mid) {
			upper = mid
		} else {
			lower = mid
		}
	}
	// The upper bound is the best fee known to satisfy the segment.
	return upper, true
}

// searchUpperBound returns the highest base fee the search may assign. For
// every segment after the first this is the growth cap applied to the fee of
// the year preceding the segment; the first segment has no predecessor, so
// the bound brackets upward by doubling (bounded, for determinism).
func (r *Runner) searchUpperBound(seg Segment) (float64, bool) {
	if seg.Start > 0 {
		prev := r.fees.Fee(seg.Start - 1)
		return mathutil.Max(prev*mathutil.Growth(r.params.MaxFeeIncreasePct, 1), r.params.MinimumFee), true
	}

	bound := mathutil.Max(mathutil.Max(r.fees.Fee(0), r.params.MinimumFee), constants.ZeroFeeSeed)
	for i := 0; i < constants.OptimizerSearchIterations; i++ {
		if r.segmentFeasible(seg, bound) {
			break
		}
		bound *= 2
	}
	return bound, false
}

// applySegmentFee writes the solved base fee into the schedule, compounded at
// the growth cap within the segment.
func (r *Runner) applySegmentFee(seg Segment, base float64) {
	// Zero-fee trap: percentage growth cannot lift a fee off exactly zero, so
	// a computed zero is seeded with $1. Intentional fallback inherited from
	// the original model; see DESIGN.md.
	if base == 0 {
		base = constants.ZeroFeeSeed
	}
	for j := seg.Start; j <= seg.End && j < len(r.fees); j++ {
		r.fees[j] = base * mathutil.Growth(r.params.MaxFeeIncreasePct, j-seg.Start)
	}
}

// raiseUpstreamRequirement demands a larger hand-off balance from the
// previous segment when this segment cannot meet its target even at the
// capped fee. Balances are linear in the entry balance, so the shortfall at
// the capped fee is exactly the extra balance the previous segment must
// deliver. The demand is recorded for the next pass to consume.
func (r *Runner) raiseUpstreamRequirement(prev, seg Segment, cappedFee float64) {
	minBalance, endBalance := r.evaluateSegment(seg, cappedFee)
	shortfall := mathutil.Max(r.target-minBalance, r.required(seg)-endBalance)
	if shortfall <= 0 {
		return
	}

	entry := r.project(r.fees)[prev.End].ClosingBalance
	needed := entry + shortfall
	r.requiredEnd[prev.End] = needed
	r.logger.Debug(fmt.Sprintf("segment ending offset %d now requires %s hand-off", prev.End, format.Currency(needed)),
		zap.String("op", "optimizer.raiseUpstreamRequirement"),
	)
}

// reconcileRequirements drops all hand-off demands once the milestone
// structure shifts. A demand is measured against a concrete sequence of cash
// events; when a fee change removes a loan or moves its payment years the
// old demands describe a horizon that no longer exists, so they are
// re-derived against the new structure instead of carried into it.
func (r *Runner) reconcileRequirements(segments []Segment) {
	ends := make([]int, len(segments))
	for i, seg := range segments {
		ends[i] = seg.End
	}
	if !slices.Equal(ends, r.milestones) {
		r.requiredEnd = make(map[int]float64)
	}
	r.milestones = ends
}

// applyUniformBump raises every year's fee by the same amount as a last
// resort after the pass budget is exhausted. A uniform additive bump cannot
// violate the growth cap (adding a constant only shrinks year-over-year
// ratios) and never drops below the floor.
func (r *Runner) applyUniformBump(projections []projection.YearProjection) {
	if r.params.Units <= 0 {
		return
	}

	worstOffset := 0
	worst := projections[0].ClosingBalance
	for i, p := range projections {
		if p.ClosingBalance < worst {
			worst = p.ClosingBalance
			worstOffset = i
		}
	}
	shortfall := r.target - worst
	if shortfall <= 0 {
		return
	}

	annualPerUnit := constants.MonthsPerYear * float64(r.params.Units)
	bump := shortfall / (annualPerUnit * float64(worstOffset+1))
	for i := range r.fees {
		r.fees[i] += bump
	}
	r.logger.Warn("applying uniform fee bump after exhausting optimization passes",
		zap.String("op", "optimizer.applyUniformBump"),
		zap.Float64("bump", bump),
	)
}

func (r *Runner) statistics(projections []projection.YearProjection) optimization.Statistics {
	stats := optimization.Statistics{
		ResidualDeficit: projection.TotalDeficit(projections, r.target),
	}
	if len(projections) == 0 {
		return stats
	}

	stats.MinBalance = projections[0].ClosingBalance
	stats.MaxBalance = projections[0].ClosingBalance
	sum := 0.0
	for _, p := range projections {
		if p.ClosingBalance < stats.MinBalance {
			stats.MinBalance = p.ClosingBalance
		}
		if p.ClosingBalance > stats.MaxBalance {
			stats.MaxBalance = p.ClosingBalance
		}
		sum += p.ClosingBalance
		stats.TotalCollections += p.Collections + p.SafetyNetTopUp
		stats.TotalExpenses += p.Expenses
	}
	stats.FinalBalance = projections[len(projections)-1].ClosingBalance
	stats.AverageBalance = sum / float64(len(projections))

	// Reported figures are currency amounts; keep them at whole cents.
	stats.MinBalance = mathutil.Round(stats.MinBalance)
	stats.MaxBalance = mathutil.Round(stats.MaxBalance)
	stats.FinalBalance = mathutil.Round(stats.FinalBalance)
	stats.AverageBalance = mathutil.Round(stats.AverageBalance)
	stats.TotalCollections = mathutil.Round(stats.TotalCollections)
	stats.TotalExpenses = mathutil.Round(stats.TotalExpenses)
	stats.ResidualDeficit = mathutil.Round(stats.ResidualDeficit)
	return stats
}

// feeDeltas tags every year-over-year fee change with a justification.
func (r *Runner) feeDeltas(projections []projection.YearProjection) []optimization.FeeDelta {
	segments := SegmentHorizon(projections)
	milestoneFor := make(map[int]int)
	for _, seg := range segments {
		for j := seg.Start; j <= seg.End; j++ {
			milestoneFor[j] = seg.End
		}
	}

	var deltas []optimization.FeeDelta
	for i := 1; i < len(r.fees); i++ {
		if mathutil.WithinTolerance(r.fees[i], r.fees[i-1], constants.CurrencyTolerance) {
			continue
		}
		milestone := r.params.StartYear + milestoneFor[i]
		reason := fmt.Sprintf("raised toward the %d cash event to keep the balance above %s",
			milestone, format.Currency(r.target))
		if r.fees[i] < r.fees[i-1] {
			reason = fmt.Sprintf("reduced after the %d cash event passed", r.params.StartYear+milestoneFor[i-1])
		}
		deltas = append(deltas, optimization.FeeDelta{
			Year:        r.params.StartYear + i,
			PreviousFee: r.fees[i-1],
			Fee:         r.fees[i],
			Reason:      reason,
		})
	}
	return deltas
}

func (r *Runner) recommendations(stats optimization.Statistics, projections []projection.YearProjection) []string {
	var recs []string

	if stats.ResidualDeficit > constants.CurrencyTolerance {
		recs = append(recs, fmt.Sprintf(
			"the growth cap of %s and fee floor leave a residual deficit of %s; consider a special assessment or a higher cap",
			format.Percent(r.params.MaxFeeIncreasePct), format.Currency(stats.ResidualDeficit)))
	} else {
		recs = append(recs, fmt.Sprintf("the optimized schedule keeps every year above %s", format.Currency(r.target)))
	}

	loansDrawn := 0
	for _, p := range projections {
		if p.LoanDraws > 0 {
			loansDrawn++
		}
	}
	if loansDrawn > 0 {
		recs = append(recs, fmt.Sprintf(
			"%d year(s) draw loans against large expenditures; pre-funding those items would reduce interest cost", loansDrawn))
	}
	return recs
}
