// Package testutil provides common utility functions for testing.
package testutil

import (
	"github.com/openreserve/reserve-forecast/internal/projection"
)

// FindYear finds the snapshot for a calendar year in a projection sequence.
// Returns a pointer to the snapshot if found, nil otherwise.
func FindYear(projections []projection.YearProjection, year int) *projection.YearProjection {
	for i := range projections {
		if projections[i].Year == year {
			return &projections[i]
		}
	}
	return nil
}

// BalancesLink reports whether each year's opening balance equals the
// previous year's closing balance, within the given tolerance.
func BalancesLink(projections []projection.YearProjection, tolerance float64) bool {
	for i := 1; i < len(projections); i++ {
		diff := projections[i].OpeningBalance - projections[i-1].ClosingBalance
		if diff < -tolerance || diff > tolerance {
			return false
		}
	}
	return true
}
