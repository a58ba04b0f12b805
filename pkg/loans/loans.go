// Package loans provides annual loan amortization for reserve fund
// projections. Each loan amortizes independently; the projection engine sums
// the payments of all open loans per year.
package loans

import (
	"fmt"
	"math"

	"github.com/openreserve/reserve-forecast/pkg/constants"
	"github.com/openreserve/reserve-forecast/pkg/mathutil"
	"go.uber.org/zap"
)

// ActiveLoan is one ledger entry for a loan drawn against a large
// expenditure. Entries are ephemeral per projection run and never persisted.
type ActiveLoan struct {
	OriginYear    int
	Principal     float64
	Remaining     float64
	AnnualPayment float64
	RatePct       float64
	TermYears     int
}

// PaymentSplit records how one year's payment on a loan divides into interest
// and principal.
type PaymentSplit struct {
	OriginYear int
	Payment    float64
	Interest   float64
	Principal  float64
	Remaining  float64 // balance after this payment
}

// AnnualPayment computes the fixed yearly payment that retires the principal
// over the term using the standard annuity formula. A zero interest rate
// degenerates to principal/term; degenerate principal or term yields zero.
func AnnualPayment(principal, ratePct float64, termYears int) float64 {
	if principal <= 0 || termYears <= 0 {
		return 0
	}
	if ratePct == 0 {
		return principal / float64(termYears)
	}
	rate := ratePct / constants.PercentageMultiplier
	power := math.Pow(1+rate, float64(termYears))
	return principal * rate * power / (power - 1)
}

// InterestPortion computes the interest due for one year on a remaining
// balance.
func InterestPortion(remaining, ratePct float64) float64 {
	return remaining * ratePct / constants.PercentageMultiplier
}

// Originate opens a new ledger entry for the financed portion of a large
// expenditure.
func Originate(year int, amount, ratePct float64, termYears int) ActiveLoan {
	return ActiveLoan{
		OriginYear:    year,
		Principal:     amount,
		Remaining:     amount,
		AnnualPayment: AnnualPayment(amount, ratePct, termYears),
		RatePct:       ratePct,
		TermYears:     termYears,
	}
}

// Advance applies one projection year to the ledger and returns the total
// payments due, the per-loan splits, and the ledger state carried into the
// next year. The input ledger is not mutated. Loans never start repayment in
// their origination year, and a loan leaves the ledger once its balance is
// within the currency tolerance of zero.
func Advance(logger *zap.Logger, ledger []ActiveLoan, year int) (float64, []PaymentSplit, []ActiveLoan) {
	if logger == nil {
		logger = zap.NewNop()
	}

	totalPayments := 0.0
	var splits []PaymentSplit
	var next []ActiveLoan

	for _, loan := range ledger {
		if loan.OriginYear >= year {
			next = append(next, loan)
			continue
		}

		interest := InterestPortion(loan.Remaining, loan.RatePct)
		// Cap the principal portion at the remaining balance so the final
		// payment cannot drive the balance negative.
		principal := mathutil.Min(loan.AnnualPayment-interest, loan.Remaining)
		payment := interest + principal

		loan.Remaining -= principal
		totalPayments += payment
		splits = append(splits, PaymentSplit{
			OriginYear: loan.OriginYear,
			Payment:    payment,
			Interest:   interest,
			Principal:  principal,
			Remaining:  loan.Remaining,
		})

		if mathutil.IsZero(loan.Remaining) {
			logger.Debug(fmt.Sprintf("loan from year %d retired in year %d", loan.OriginYear, year),
				zap.String("op", "loans.Advance"),
			)
			continue
		}
		next = append(next, loan)
	}

	return totalPayments, splits, next
}
