package optimizer_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/openreserve/reserve-forecast/internal/config"
	"github.com/openreserve/reserve-forecast/internal/optimizer"
	"github.com/openreserve/reserve-forecast/internal/projection"
	"github.com/openreserve/reserve-forecast/pkg/constants"
	"github.com/openreserve/reserve-forecast/pkg/mathutil"
	"github.com/openreserve/reserve-forecast/pkg/schedule"
)

// requireFeeConstraints asserts the floor and the year-over-year growth cap
// hold across the whole schedule.
func requireFeeConstraints(t *testing.T, fees []float64, floor, capPct float64) {
	t.Helper()
	for i, fee := range fees {
		require.GreaterOrEqual(t, fee, floor-constants.CurrencyTolerance, "year %d below the fee floor", i)
		if i > 0 {
			limit := fees[i-1]*mathutil.Growth(capPct, 1) + constants.CurrencyTolerance
			require.LessOrEqual(t, fee, limit, "year %d exceeds the growth cap", i)
		}
	}
}

func TestOptimizeSettlesOnFloorWhenFunded(t *testing.T) {
	params := config.ModelParameters{
		HorizonYears:      5,
		StartYear:         2026,
		StartingBalance:   100000,
		MonthlyFee:        50,
		MinimumFee:        5,
		MaxFeeIncreasePct: 0,
		Units:             10,
	}

	result := optimizer.OptimizeFees(zap.NewNop(), params, nil, 0)

	require.True(t, result.Summary.Converged)
	require.Len(t, result.Summary.Fees, 5)
	for _, fee := range result.Summary.Fees {
		require.InDelta(t, 5.0, fee, 0.01, "an already funded model settles on the floor")
	}
	require.Zero(t, result.Summary.Stats.ResidualDeficit)
	require.InDelta(t, 5.0, result.OptimizedParams.MonthlyFee, 0.01)
}

func TestOptimizeMeetsTargetThroughExpense(t *testing.T) {
	params := config.ModelParameters{
		HorizonYears:      10,
		StartYear:         2026,
		StartingBalance:   0,
		MinimumFee:        10,
		MaxFeeIncreasePct: 5,
		Units:             20,
	}
	items := []schedule.Item{
		{Name: "Roof", Cost: 100000, RemainingLife: 4, Class: schedule.ClassSmall},
	}
	target := 5000.0

	result := optimizer.OptimizeFees(zap.NewNop(), params, items, target)

	require.True(t, result.Summary.Converged)
	require.GreaterOrEqual(t, result.Summary.Stats.MinBalance, target-constants.CurrencyTolerance)
	require.InDelta(t, 0, result.Summary.Stats.ResidualDeficit, constants.CurrencyTolerance)
	requireFeeConstraints(t, result.Summary.Fees, params.MinimumFee, params.MaxFeeIncreasePct)
	require.NotEmpty(t, result.Summary.Recommendations)
}

func TestOptimizeIsIdempotent(t *testing.T) {
	params := config.ModelParameters{
		HorizonYears:      10,
		StartYear:         2026,
		StartingBalance:   0,
		MinimumFee:        10,
		MaxFeeIncreasePct: 5,
		Units:             20,
	}
	items := []schedule.Item{
		{Name: "Roof", Cost: 100000, RemainingLife: 4, Class: schedule.ClassSmall},
	}
	target := 5000.0

	first := optimizer.OptimizeFees(zap.NewNop(), params, items, target)
	second := optimizer.OptimizeFees(zap.NewNop(), first.OptimizedParams, items, target)

	require.Len(t, second.Summary.Fees, len(first.Summary.Fees))
	for i := range first.Summary.Fees {
		require.InDelta(t, first.Summary.Fees[i], second.Summary.Fees[i], 0.05,
			"re-optimizing an optimized model moved year %d", i)
	}
}

func TestOptimizeSeedsZeroFee(t *testing.T) {
	params := config.ModelParameters{
		HorizonYears:      3,
		StartYear:         2026,
		StartingBalance:   100000,
		MonthlyFee:        0,
		MinimumFee:        0,
		MaxFeeIncreasePct: 5,
		Units:             10,
	}

	result := optimizer.OptimizeFees(zap.NewNop(), params, nil, 0)

	// A computed zero fee is seeded with $1 so percentage growth can resume.
	require.InDelta(t, constants.ZeroFeeSeed, result.Summary.Fees[0], 0.001)
	require.True(t, result.Summary.Converged)
}

func TestOptimizeInfeasibleReportsResidualDeficit(t *testing.T) {
	// Zero units: fees collect nothing, so no schedule can reach the target.
	params := config.ModelParameters{
		HorizonYears:      3,
		StartYear:         2026,
		StartingBalance:   0,
		MaxFeeIncreasePct: 5,
		Units:             0,
	}

	result := optimizer.OptimizeFees(zap.NewNop(), params, nil, 10000)

	require.False(t, result.Summary.Converged)
	require.Equal(t, constants.OptimizerOuterPasses, result.Summary.Passes)
	require.InDelta(t, 30000.0, result.Summary.Stats.ResidualDeficit, 0.01)
	require.NotEmpty(t, result.Summary.Recommendations)
}

func TestOptimizeRaisesEarlierSegmentForLateExpense(t *testing.T) {
	// The 3% cap makes the second expense unreachable from the fee level the
	// first segment would otherwise settle on; the optimizer must demand a
	// larger hand-off balance from the earlier years.
	params := config.ModelParameters{
		HorizonYears:      6,
		StartYear:         2026,
		StartingBalance:   0,
		MinimumFee:        0,
		MaxFeeIncreasePct: 3,
		Units:             1,
	}
	items := []schedule.Item{
		{Name: "Minor", Cost: 1000, RemainingLife: 2, Class: schedule.ClassSmall},
		{Name: "Major", Cost: 100000, RemainingLife: 3, Class: schedule.ClassSmall},
	}

	result := optimizer.OptimizeFees(zap.NewNop(), params, items, 0)

	require.True(t, result.Summary.Converged)
	require.GreaterOrEqual(t, result.Summary.Stats.MinBalance, -constants.CurrencyTolerance)
	requireFeeConstraints(t, result.Summary.Fees, 0, params.MaxFeeIncreasePct)
	require.Greater(t, result.Summary.Fees[0], 100.0,
		"early fees must pre-fund the major expense")
}

func TestOptimizeFundsFinancedLargeItem(t *testing.T) {
	params := config.ModelParameters{
		HorizonYears:      12,
		StartYear:         2026,
		StartingBalance:   0,
		MinimumFee:        10,
		MaxFeeIncreasePct: 4,
		LoanThresholdPct:  70,
		LoanRatePct:       10,
		LoanTermYears:     5,
		Units:             20,
	}
	items := []schedule.Item{
		{Name: "Roof", Cost: 150000, RemainingLife: 3, Class: schedule.ClassLarge},
		{Name: "Pump", Cost: 8000, RemainingLife: 7, Class: schedule.ClassSmall},
	}
	target := 2000.0

	result := optimizer.OptimizeFees(zap.NewNop(), params, items, target)

	require.True(t, result.Summary.Converged)
	require.GreaterOrEqual(t, result.Summary.Stats.MinBalance, target-constants.CurrencyTolerance)
	require.Less(t, result.Summary.Stats.MinBalance, target+1000,
		"the schedule should shave the minimum balance close to the target, not hoard far past it")
	requireFeeConstraints(t, result.Summary.Fees, params.MinimumFee, params.MaxFeeIncreasePct)

	// The reserve covers 70% of the roof in cash and finances the rest; the
	// payment years that follow shape the schedule rather than inflating it.
	roofYear := result.Projections[3]
	require.InDelta(t, 45000.0, roofYear.LoanDraws, 0.01)
	require.Greater(t, result.Projections[4].LoanPayments, 0.0)

	// A schedule at half the solved fees must fall short somewhere. If it did
	// not, the solved schedule would be nowhere near minimal.
	halved := make(projection.FeeSchedule, len(result.Summary.Fees))
	for i, fee := range result.Summary.Fees {
		halved[i] = mathutil.Max(fee/2, params.MinimumFee)
	}
	short := projection.Project(zap.NewNop(), params, items, halved)
	require.Greater(t, projection.TotalDeficit(short, target), constants.CurrencyTolerance)
}

func TestOptimizeProjectionsMatchFees(t *testing.T) {
	params := config.ModelParameters{
		HorizonYears:      8,
		StartYear:         2026,
		StartingBalance:   20000,
		MinimumFee:        10,
		MaxFeeIncreasePct: 5,
		Units:             15,
	}
	items := []schedule.Item{
		{Name: "Pump", Cost: 9000, RemainingLife: 2, Redundancy: 2, Class: schedule.ClassSmall},
	}

	result := optimizer.OptimizeFees(zap.NewNop(), params, items, 1000)

	require.Len(t, result.Projections, params.HorizonYears)
	for i, p := range result.Projections {
		require.InDelta(t, result.Summary.Fees[i], p.Fee, 0.001,
			"projection year %d ran under a different fee than reported", i)
	}
	require.InDelta(t, result.Summary.Fees[0], result.OptimizedParams.MonthlyFee, 0.001)

	// Statistics are reported in whole cents.
	stats := result.Summary.Stats
	for _, figure := range []float64{
		stats.MinBalance, stats.MaxBalance, stats.FinalBalance,
		stats.AverageBalance, stats.TotalCollections, stats.TotalExpenses,
		stats.ResidualDeficit,
	} {
		require.Equal(t, mathutil.Round(figure), figure)
	}
}
