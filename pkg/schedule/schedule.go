// Package schedule resolves when capital line items fall due within a
// projection horizon and what they cost once inflation is applied.
package schedule

import (
	"math"

	"github.com/openreserve/reserve-forecast/pkg/constants"
)

// Class partitions items by size; Large items are loan-eligible.
type Class string

const (
	// ClassLarge marks items whose cost may be partially financed by a loan.
	ClassLarge Class = "Large"

	// ClassSmall marks items paid fully in cash.
	ClassSmall Class = "Small"
)

// Item is one scheduled capital expenditure.
type Item struct {
	ID            string
	Name          string
	Cost          float64 // present-day currency
	RemainingLife int     // years from the projection start to the first occurrence
	ExpectedLife  int     // full replacement life; informational, >= RemainingLife when set
	Redundancy    int     // replacement cycles within the horizon; <= 1 means one-off
	Class         Class
}

// Large reports whether the item is loan-eligible.
func (item Item) Large() bool {
	return item.Class == ClassLarge
}

// CycleInterval returns the spacing in years between successive replacements
// of a redundancy-bearing item. One-off items have no interval.
func (item Item) CycleInterval() int {
	if item.Redundancy <= 1 {
		return 0
	}
	return item.RemainingLife / item.Redundancy
}

// InflatedCost grows a present-day cost by the inflation rate over the given
// number of years. Every occurrence inflates from the projection start year,
// not from the previous occurrence, so repeated replacements carry cumulative
// inflation.
func InflatedCost(baseCost, inflationPct float64, yearsFromBase int) float64 {
	return baseCost * math.Pow(1+inflationPct/constants.PercentageMultiplier, float64(yearsFromBase))
}

// Occurrence is one resolved expenditure: an item falling due in a specific
// projection year at its inflation-adjusted cost.
type Occurrence struct {
	Item       Item
	YearOffset int     // years from the projection start
	Cycle      int     // zero-based replacement index
	Cost       float64 // inflated to YearOffset
}

// Occurrences resolves every year offset within the horizon at which the item
// falls due. A one-off item occurs once at RemainingLife. An item with
// redundancy k > 1 occurs k times starting at RemainingLife, spaced
// RemainingLife/k years apart. The resolver does not validate redundancy;
// non-positive values are the caller's problem and are treated as one-off.
func Occurrences(item Item, horizon int, inflationPct float64) []Occurrence {
	if item.RemainingLife >= horizon || item.RemainingLife < 0 {
		return nil
	}

	count := 1
	interval := 0
	if item.Redundancy > 1 {
		count = item.Redundancy
		interval = item.CycleInterval()
	}

	var occurrences []Occurrence
	for cycle := 0; cycle < count; cycle++ {
		offset := item.RemainingLife + cycle*interval
		if offset >= horizon {
			break
		}
		occurrences = append(occurrences, Occurrence{
			Item:       item,
			YearOffset: offset,
			Cycle:      cycle,
			Cost:       InflatedCost(item.Cost, inflationPct, offset),
		})
	}
	return occurrences
}

// OccursInYear counts how many times the item falls due in the given year
// offset.
func OccursInYear(item Item, yearOffset, horizon int) int {
	count := 0
	for _, occ := range Occurrences(item, horizon, 0) {
		if occ.YearOffset == yearOffset {
			count++
		}
	}
	return count
}

// ResolveYearly buckets all item occurrences by projection year. The result
// has exactly horizon entries; years without expenditures hold nil.
func ResolveYearly(items []Item, horizon int, inflationPct float64) [][]Occurrence {
	yearly := make([][]Occurrence, horizon)
	for _, item := range items {
		for _, occ := range Occurrences(item, horizon, inflationPct) {
			yearly[occ.YearOffset] = append(yearly[occ.YearOffset], occ)
		}
	}
	return yearly
}
