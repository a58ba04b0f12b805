// Package output provides utilities for formatting and displaying projection
// and optimization results.
package output

import (
	"fmt"
	"io"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/openreserve/reserve-forecast/internal/projection"
	"github.com/openreserve/reserve-forecast/pkg/optimization"
)

// PrettyProjection writes a human-readable rather than machine-readable table.
func PrettyProjection(w io.Writer, projections []projection.YearProjection) {
	p := message.NewPrinter(language.English)
	fmt.Fprintf(w, "Year | Fee       | Opening         | Collections     | Expenses        | Loan Draws      | Loan Payments   | Top-Up          | Closing\n")
	fmt.Fprintf(w, "____ | _________ | _______________ | _______________ | _______________ | _______________ | _______________ | _______________ | _______________\n")
	for _, yr := range projections {
		_, _ = p.Fprintf(w, "%d | $%9.2f | $%14.2f | $%14.2f | $%14.2f | $%14.2f | $%14.2f | $%14.2f | $%14.2f\n",
			yr.Year, yr.Fee, yr.OpeningBalance, yr.Collections, yr.Expenses,
			yr.LoanDraws, yr.LoanPayments, yr.SafetyNetTopUp, yr.ClosingBalance)
	}
}

// CsvProjection writes the projection in comma-separated value format.
func CsvProjection(w io.Writer, projections []projection.YearProjection) {
	fmt.Fprintf(w, `"year","fee","opening","collections","expenses","loanDraws","loanPayments","safetyNetTopUp","closing"`)
	fmt.Fprintf(w, "\n")
	for _, yr := range projections {
		fmt.Fprintf(w, `"%d","%.2f","%.2f","%.2f","%.2f","%.2f","%.2f","%.2f","%.2f"`,
			yr.Year, yr.Fee, yr.OpeningBalance, yr.Collections, yr.Expenses,
			yr.LoanDraws, yr.LoanPayments, yr.SafetyNetTopUp, yr.ClosingBalance)
		fmt.Fprintf(w, "\n")
	}
}

// PrettyOptimization writes the optimization outcome: the fee schedule, the
// aggregate statistics, and any recommendations.
func PrettyOptimization(w io.Writer, startYear int, summary optimization.Summary) {
	p := message.NewPrinter(language.English)

	fmt.Fprintf(w, "--- Optimized fee schedule ---\n")
	fmt.Fprintf(w, "Year | Monthly Fee\n")
	fmt.Fprintf(w, "____ | ___________\n")
	for offset, fee := range summary.Fees {
		_, _ = p.Fprintf(w, "%d | $%.2f\n", startYear+offset, fee)
	}

	fmt.Fprintf(w, "\n--- Statistics ---\n")
	_, _ = p.Fprintf(w, "Minimum balance:   $%.2f\n", summary.Stats.MinBalance)
	_, _ = p.Fprintf(w, "Maximum balance:   $%.2f\n", summary.Stats.MaxBalance)
	_, _ = p.Fprintf(w, "Final balance:     $%.2f\n", summary.Stats.FinalBalance)
	_, _ = p.Fprintf(w, "Average balance:   $%.2f\n", summary.Stats.AverageBalance)
	_, _ = p.Fprintf(w, "Total collections: $%.2f\n", summary.Stats.TotalCollections)
	_, _ = p.Fprintf(w, "Total expenses:    $%.2f\n", summary.Stats.TotalExpenses)
	fmt.Fprintf(w, "Passes:            %d\n", summary.Passes)
	fmt.Fprintf(w, "Converged:         %t\n", summary.Converged)
	if summary.Stats.ResidualDeficit > 0 {
		_, _ = p.Fprintf(w, "Residual deficit:  $%.2f\n", summary.Stats.ResidualDeficit)
	}

	if len(summary.Deltas) > 0 {
		fmt.Fprintf(w, "\n--- Fee changes ---\n")
		for _, delta := range summary.Deltas {
			_, _ = p.Fprintf(w, "%d: $%.2f -> $%.2f (%s)\n", delta.Year, delta.PreviousFee, delta.Fee, delta.Reason)
		}
	}

	for _, rec := range summary.Recommendations {
		fmt.Fprintf(w, "\nNote: %s\n", rec)
	}
}

// CsvOptimization writes the optimized fee schedule in comma-separated value
// format.
func CsvOptimization(w io.Writer, startYear int, summary optimization.Summary) {
	fmt.Fprintf(w, `"year","monthlyFee"`)
	fmt.Fprintf(w, "\n")
	for offset, fee := range summary.Fees {
		fmt.Fprintf(w, `"%d","%.2f"`, startYear+offset, fee)
		fmt.Fprintf(w, "\n")
	}
}
