package projection_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/openreserve/reserve-forecast/internal/config"
	"github.com/openreserve/reserve-forecast/internal/projection"
	"github.com/openreserve/reserve-forecast/pkg/constants"
	"github.com/openreserve/reserve-forecast/pkg/loans"
	"github.com/openreserve/reserve-forecast/pkg/schedule"
	"github.com/openreserve/reserve-forecast/pkg/testutil"
)

func TestProjectSteadyState(t *testing.T) {
	params := config.ModelParameters{
		HorizonYears:    5,
		StartYear:       2026,
		StartingBalance: 10000,
		Units:           10,
	}
	fees := projection.Uniform(100, 5)

	projections := projection.Project(zap.NewNop(), params, nil, fees)
	require.Len(t, projections, 5)

	for i, p := range projections {
		require.Equal(t, 2026+i, p.Year)
		require.Equal(t, 100.0, p.Fee)
		require.InDelta(t, 12000.0, p.Collections, 0.01)
		require.Zero(t, p.Expenses)
		require.Zero(t, p.LoanDraws)
		require.InDelta(t, 10000.0+12000.0*float64(i+1), p.ClosingBalance, 0.01)
	}
	require.True(t, testutil.BalancesLink(projections, constants.CurrencyTolerance))
}

func TestProjectConstantBalanceWithoutFees(t *testing.T) {
	// The base recurring cost funds day-to-day operations outside the reserve;
	// with no items and no fees the balance must hold perfectly still.
	params := config.ModelParameters{
		HorizonYears:    5,
		StartYear:       2026,
		StartingBalance: 25000,
		BaseAnnualCost:  1000,
		Units:           10,
	}

	projections := projection.Project(zap.NewNop(), params, nil, nil)
	require.Len(t, projections, 5)
	for _, p := range projections {
		require.Zero(t, p.Collections)
		require.Zero(t, p.Expenses)
		require.Equal(t, 25000.0, p.ClosingBalance)
	}
}

func TestProjectAccountingIdentity(t *testing.T) {
	params := config.ModelParameters{
		HorizonYears:     15,
		StartYear:        2026,
		StartingBalance:  40000,
		InflationPct:     3,
		SafetyNetPct:     10,
		LoanThresholdPct: 70,
		LoanRatePct:      10,
		LoanTermYears:    5,
		Units:            20,
	}
	items := []schedule.Item{
		{Name: "Roof", Cost: 120000, RemainingLife: 4, Class: schedule.ClassLarge},
		{Name: "Pump", Cost: 8000, RemainingLife: 6, Redundancy: 3, Class: schedule.ClassSmall},
	}
	fees := projection.Uniform(80, 15)

	projections := projection.Project(zap.NewNop(), params, items, fees)
	require.Len(t, projections, 15)

	for _, p := range projections {
		identity := p.OpeningBalance + p.Collections + p.LoanDraws -
			p.Expenses - p.SafetyNetTopUp - p.LoanPayments
		require.InDelta(t, p.ClosingBalance, identity, constants.CurrencyTolerance,
			"year %d violates the balance identity", p.Year)
	}
	require.True(t, testutil.BalancesLink(projections, constants.CurrencyTolerance))
}

func TestProjectFinancesLargeShortfall(t *testing.T) {
	params := config.ModelParameters{
		HorizonYears:     8,
		StartYear:        2026,
		StartingBalance:  80000,
		LoanThresholdPct: 70,
		LoanRatePct:      10,
		LoanTermYears:    5,
		Units:            1,
	}
	items := []schedule.Item{
		{Name: "Roof", Cost: 100000, RemainingLife: 1, Class: schedule.ClassLarge},
	}

	projections := projection.Project(zap.NewNop(), params, items, projection.Uniform(0, 8))

	// The reserve covers 70% of the roof in cash and finances the rest.
	roofYear := testutil.FindYear(projections, 2027)
	require.NotNil(t, roofYear)
	require.InDelta(t, 30000.0, roofYear.LoanDraws, 0.01)
	require.InDelta(t, 100000.0, roofYear.Expenses, 0.01)
	require.InDelta(t, 10000.0, roofYear.ClosingBalance, 0.01)
	require.Len(t, roofYear.OpenLoans, 1)

	// Repayment starts the year after origination and runs the full term.
	expectedPayment := loans.AnnualPayment(30000, 10, 5)
	for year := 2028; year <= 2032; year++ {
		p := testutil.FindYear(projections, year)
		require.NotNil(t, p)
		require.InDelta(t, expectedPayment, p.LoanPayments, 0.01, "year %d", year)
	}
	require.Zero(t, testutil.FindYear(projections, 2033).LoanPayments)
	require.Empty(t, testutil.FindYear(projections, 2033).OpenLoans)
}

func TestProjectSkipsLoanWhenCashSuffices(t *testing.T) {
	params := config.ModelParameters{
		HorizonYears:     3,
		StartYear:        2026,
		StartingBalance:  200000,
		LoanThresholdPct: 70,
		LoanRatePct:      10,
		LoanTermYears:    5,
		Units:            1,
	}
	items := []schedule.Item{
		{Name: "Roof", Cost: 100000, RemainingLife: 1, Class: schedule.ClassLarge},
	}

	projections := projection.Project(zap.NewNop(), params, items, projection.Uniform(0, 3))
	roofYear := testutil.FindYear(projections, 2027)
	require.Zero(t, roofYear.LoanDraws)
	require.Empty(t, roofYear.OpenLoans)
}

func TestProjectSafetyNetTopUp(t *testing.T) {
	params := config.ModelParameters{
		HorizonYears: 2,
		StartYear:    2026,
		SafetyNetPct: 10,
		Units:        1,
	}
	items := []schedule.Item{
		{Name: "Repair", Cost: 1150, RemainingLife: 0, Class: schedule.ClassSmall},
	}

	projections := projection.Project(zap.NewNop(), params, items, projection.Uniform(100, 2))

	// Collections 1200, expenses 1150: the provisional balance of 50 falls
	// short of the 115 cushion, so 65 is collected and set aside.
	first := projections[0]
	require.InDelta(t, 65.0, first.SafetyNetTopUp, 0.01)
	require.InDelta(t, -15.0, first.ClosingBalance, 0.01)

	// A healthy year needs no top-up.
	require.Zero(t, projections[1].SafetyNetTopUp)
}

func TestProjectDegenerateInputs(t *testing.T) {
	require.Nil(t, projection.Project(nil, config.ModelParameters{HorizonYears: 0}, nil, nil))

	projections := projection.Project(nil, config.ModelParameters{HorizonYears: 3, StartYear: 2026}, nil, nil)
	require.Len(t, projections, 3)
	for _, p := range projections {
		require.Zero(t, p.Collections)
		require.Zero(t, p.ClosingBalance)
	}
}

func TestFeeScheduleLookup(t *testing.T) {
	fees := projection.FeeSchedule{100, 110}
	require.Equal(t, 100.0, fees.Fee(0))
	require.Equal(t, 110.0, fees.Fee(1))
	require.Equal(t, 110.0, fees.Fee(5), "a short schedule holds its last value")
	require.Zero(t, projection.FeeSchedule(nil).Fee(0))
}

func TestMinBalanceAndTotalDeficit(t *testing.T) {
	projections := []projection.YearProjection{
		{ClosingBalance: 500},
		{ClosingBalance: -200},
		{ClosingBalance: 300},
	}
	require.Equal(t, -200.0, projection.MinBalance(projections))
	require.Zero(t, projection.MinBalance(nil))

	// Deficit against a 400 target: 0 + 600 + 100.
	require.InDelta(t, 700.0, projection.TotalDeficit(projections, 400), 0.01)
	require.Zero(t, projection.TotalDeficit(projections, -300))
}
