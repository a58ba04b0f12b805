package config

import (
	"fmt"
	"strings"
)

// ValidateConfiguration performs general validation of the configuration and
// returns warnings. Warnings flag inputs the engine would clamp or ignore;
// malformed numeric shapes are rejected outright by Validate.
func (conf *Configuration) ValidateConfiguration() []string {
	var warnings []string

	for _, item := range conf.Items {
		if item.Cost < 0 {
			warnings = append(warnings, fmt.Sprintf("item %s has a negative cost and will be treated as zero", item.Name))
		}
		if item.Redundancy < 1 {
			warnings = append(warnings, fmt.Sprintf("item %s has redundancy %d; treating as a one-off occurrence", item.Name, item.Redundancy))
		}
		if item.ExpectedLife > 0 && item.RemainingLife > item.ExpectedLife {
			warnings = append(warnings, fmt.Sprintf("item %s remaining life %d exceeds expected life %d", item.Name, item.RemainingLife, item.ExpectedLife))
		}
		if item.TriggerYear != 0 {
			lastYear := conf.Model.StartYear + conf.Model.HorizonYears - 1
			if item.TriggerYear < conf.Model.StartYear || item.TriggerYear > lastYear {
				warnings = append(warnings, fmt.Sprintf("item %s triggers in %d, outside the %d-%d projection window, and never occurs", item.Name, item.TriggerYear, conf.Model.StartYear, lastYear))
			}
		} else if item.RemainingLife >= conf.Model.HorizonYears {
			warnings = append(warnings, fmt.Sprintf("item %s first occurs beyond the %d-year horizon and never triggers", item.Name, conf.Model.HorizonYears))
		}
		switch strings.ToUpper(item.Class) {
		case "", "LARGE", "SMALL":
		default:
			warnings = append(warnings, fmt.Sprintf("item %s has unknown class %q; treating as Small", item.Name, item.Class))
		}
	}

	for _, strategy := range conf.RateStrategies {
		for i, bucket := range strategy.Buckets {
			if bucket.DurationYears <= 0 {
				warnings = append(warnings, fmt.Sprintf("rate strategy %s bucket %d has non-positive duration", strategy.Name, i))
			}
		}
	}

	return warnings
}

// Validate rejects configurations the engine cannot run. These are the hard
// failures the translation layer owes the core; everything softer is a
// warning.
func (conf *Configuration) Validate() error {
	m := conf.Model
	if m.HorizonYears < 1 {
		return fmt.Errorf("model horizon must be at least 1 year, got %d", m.HorizonYears)
	}
	for name, pct := range map[string]float64{
		"inflationPct":      m.InflationPct,
		"safetyNetPct":      m.SafetyNetPct,
		"loanThresholdPct":  m.LoanThresholdPct,
		"loanRatePct":       m.LoanRatePct,
		"maxFeeIncreasePct": m.MaxFeeIncreasePct,
	} {
		if pct < 0 || pct > 100 {
			return fmt.Errorf("model %s must be within [0,100], got %.2f", name, pct)
		}
	}
	if m.Units < 0 {
		return fmt.Errorf("model unit count cannot be negative, got %d", m.Units)
	}
	if m.LoanTermYears < 0 {
		return fmt.Errorf("model loan term cannot be negative, got %d", m.LoanTermYears)
	}
	return nil
}
