package config

import (
	"strings"

	"github.com/openreserve/reserve-forecast/pkg/investments"
	"github.com/openreserve/reserve-forecast/pkg/schedule"
)

// ScheduleItems translates the configured line item records into the shapes
// the projection engine consumes. Records with an explicit trigger year are
// rebased onto the model's start year; negative costs are clamped to zero
// here so the core never sees them.
func (conf *Configuration) ScheduleItems() []schedule.Item {
	items := make([]schedule.Item, 0, len(conf.Items))
	for _, record := range conf.Items {
		items = append(items, record.ScheduleItem(conf.Model.StartYear))
	}
	return items
}

// ScheduleItem translates a single record, rebasing an absolute trigger year
// onto the projection start year.
func (record LineItem) ScheduleItem(startYear int) schedule.Item {
	remaining := record.RemainingLife
	if record.TriggerYear != 0 {
		remaining = record.TriggerYear - startYear
	}

	cost := record.Cost
	if cost < 0 {
		cost = 0
	}

	class := schedule.ClassSmall
	if strings.EqualFold(record.Class, string(schedule.ClassLarge)) {
		class = schedule.ClassLarge
	}

	return schedule.Item{
		ID:            record.ID,
		Name:          record.Name,
		Cost:          cost,
		RemainingLife: remaining,
		ExpectedLife:  record.ExpectedLife,
		Redundancy:    record.Redundancy,
		Class:         class,
	}
}

// InvestmentStrategy translates a configured rate strategy.
func (strategy RateStrategy) InvestmentStrategy() investments.RateStrategy {
	buckets := make([]investments.RateBucket, 0, len(strategy.Buckets))
	for _, bucket := range strategy.Buckets {
		buckets = append(buckets, investments.RateBucket{
			DurationYears: bucket.DurationYears,
			RatePct:       bucket.RatePct,
		})
	}
	return investments.RateStrategy{
		Name:      strategy.Name,
		StartYear: strategy.StartYear,
		Buckets:   buckets,
	}
}

// FindRateStrategy looks up a configured strategy by name. An empty name
// selects the first strategy when exactly one is configured.
func (conf *Configuration) FindRateStrategy(name string) (investments.RateStrategy, bool) {
	if name == "" && len(conf.RateStrategies) == 1 {
		return conf.RateStrategies[0].InvestmentStrategy(), true
	}
	for _, strategy := range conf.RateStrategies {
		if strategy.Name == name {
			return strategy.InvestmentStrategy(), true
		}
	}
	return investments.RateStrategy{}, false
}
