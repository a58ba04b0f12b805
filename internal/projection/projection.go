// Package projection implements the year-by-year reserve fund state machine.
// Every run recomputes the full horizon from scratch; there is no incremental
// update path and no state shared between calls.
package projection

import (
	"fmt"

	"github.com/openreserve/reserve-forecast/internal/config"
	"github.com/openreserve/reserve-forecast/pkg/constants"
	"github.com/openreserve/reserve-forecast/pkg/loans"
	"github.com/openreserve/reserve-forecast/pkg/mathutil"
	"github.com/openreserve/reserve-forecast/pkg/schedule"
	"go.uber.org/zap"
)

// FeeSchedule holds one per-unit monthly fee per horizon year.
type FeeSchedule []float64

// Fee returns the fee for a year offset. A schedule shorter than the horizon
// holds its last value; an empty schedule is a zero fee.
func (fees FeeSchedule) Fee(yearOffset int) float64 {
	if len(fees) == 0 {
		return 0
	}
	if yearOffset >= len(fees) {
		return fees[len(fees)-1]
	}
	return fees[yearOffset]
}

// Uniform builds a schedule holding the same fee for every horizon year.
func Uniform(fee float64, horizon int) FeeSchedule {
	fees := make(FeeSchedule, horizon)
	for i := range fees {
		fees[i] = fee
	}
	return fees
}

// YearProjection is the immutable snapshot of one projection year.
type YearProjection struct {
	Year           int     `json:"year"`
	Fee            float64 `json:"fee"`
	OpeningBalance float64 `json:"openingBalance"`
	Collections    float64 `json:"collections"`
	Expenses       float64 `json:"expenses"`
	SafetyNetTopUp float64 `json:"safetyNetTopUp"`
	LoanDraws      float64 `json:"loanDraws"`
	LoanPayments   float64 `json:"loanPayments"`
	ClosingBalance float64 `json:"closingBalance"`

	ExpenseDetail []schedule.Occurrence `json:"expenseDetail,omitempty"`
	LoanDetail    []loans.PaymentSplit  `json:"loanDetail,omitempty"`
	OpenLoans     []loans.ActiveLoan    `json:"openLoans,omitempty"`
}

// Project runs the reserve simulation over the model horizon and returns the
// ordered per-year snapshots. The engine is total over well-formed inputs:
// degenerate values (zero units, no items, empty fee schedule) produce
// zero-valued rows rather than errors.
//
// The yearly transition is
//
//	closing = opening + collections + loanDraws - expenses - safetyNetTopUp - loanPayments
//
// with the next year's opening equal to this year's closing.
func Project(logger *zap.Logger, params config.ModelParameters, items []schedule.Item, fees FeeSchedule) []YearProjection {
	if logger == nil {
		logger = zap.NewNop()
	}

	horizon := params.HorizonYears
	if horizon < 1 {
		return nil
	}

	yearly := schedule.ResolveYearly(items, horizon, params.InflationPct)

	projections := make([]YearProjection, 0, horizon)
	var ledger []loans.ActiveLoan
	opening := params.StartingBalance

	for offset := 0; offset < horizon; offset++ {
		year := params.StartYear + offset

		// Payments on loans drawn in earlier years come due first; a loan
		// never starts repayment in its origination year.
		payments, splits, nextLedger := loans.Advance(logger, ledger, year)
		ledger = nextLedger

		fee := fees.Fee(offset)
		collections := fee * constants.MonthsPerYear * float64(params.Units)

		expenses := 0.0
		draws := 0.0
		available := opening + collections - payments
		for _, occ := range yearly[offset] {
			expenses += occ.Cost
			if occ.Item.Large() && occ.Cost > available && params.LoanThresholdPct < 100 {
				// The threshold is the share of a large cost the reserve must
				// cover in cash; the remainder is financed.
				financed := occ.Cost * (1 - params.LoanThresholdPct/constants.PercentageMultiplier)
				ledger = append(ledger, loans.Originate(year, financed, params.LoanRatePct, params.LoanTermYears))
				draws += financed
				available -= occ.Cost - financed
				logger.Debug(fmt.Sprintf("year %d: financing %.2f of %s", year, financed, occ.Item.Name),
					zap.String("op", "projection.Project"),
				)
				continue
			}
			available -= occ.Cost
		}

		// The top-up is collected on top of the fee and moved into the
		// restricted cushion, so it leaves the operating balance.
		provisional := opening + collections + draws - expenses - payments
		topUp := mathutil.Max(0, mathutil.ApplyPercentage(expenses+payments, params.SafetyNetPct)-provisional)
		closing := provisional - topUp

		projections = append(projections, YearProjection{
			Year:           year,
			Fee:            fee,
			OpeningBalance: opening,
			Collections:    collections,
			Expenses:       expenses,
			SafetyNetTopUp: topUp,
			LoanDraws:      draws,
			LoanPayments:   payments,
			ClosingBalance: closing,
			ExpenseDetail:  yearly[offset],
			LoanDetail:     splits,
			OpenLoans:      append([]loans.ActiveLoan(nil), ledger...),
		})
		opening = closing
	}

	return projections
}

// MinBalance returns the lowest closing balance across the projections.
func MinBalance(projections []YearProjection) float64 {
	if len(projections) == 0 {
		return 0
	}
	min := projections[0].ClosingBalance
	for _, p := range projections[1:] {
		if p.ClosingBalance < min {
			min = p.ClosingBalance
		}
	}
	return min
}

// TotalDeficit sums how far each year's closing balance falls below the
// target minimum.
func TotalDeficit(projections []YearProjection, target float64) float64 {
	deficit := 0.0
	for _, p := range projections {
		if p.ClosingBalance < target {
			deficit += target - p.ClosingBalance
		}
	}
	return deficit
}
