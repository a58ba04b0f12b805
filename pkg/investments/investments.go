// Package investments computes a single effective long-term investment rate
// from a set of time-bucketed rate strategies weighted against a
// surplus/spend series.
package investments

// RateBucket assigns an annual rate to a contiguous run of years.
type RateBucket struct {
	DurationYears int
	RatePct       float64 // percentage in [0,100]
}

// RateStrategy is an ordered list of rate buckets applied from a start year.
// If the buckets' total duration is shorter than the analysis horizon the
// last bucket's rate holds for all remaining years; that is a defined
// fallback, not an error.
type RateStrategy struct {
	Name      string
	StartYear int
	Buckets   []RateBucket
}

// WeightedRate computes the effective annual rate, as a percentage, by
// weighting each bucket's rate by the share of the series that falls inside
// the bucket's year range. series[i] is the surplus or spend of year
// startYear+i. When the total spend across all buckets is zero the first
// bucket's rate is returned rather than dividing by zero.
func WeightedRate(series []float64, startYear int, strategy RateStrategy) float64 {
	if len(strategy.Buckets) == 0 {
		return 0
	}

	spends := bucketSpends(series, startYear, strategy)

	total := 0.0
	for _, spend := range spends {
		total += spend
	}
	if total == 0 {
		return strategy.Buckets[0].RatePct
	}

	weighted := 0.0
	for i, bucket := range strategy.Buckets {
		weighted += spends[i] / total * bucket.RatePct
	}
	return weighted
}

// AccumulateFunds returns the running balance of accumulated funds for each
// series year, compounding at the weighted rate. Nothing accumulates before
// the strategy's start year.
func AccumulateFunds(series []float64, startYear int, strategy RateStrategy) []float64 {
	rate := WeightedRate(series, startYear, strategy)
	balances := make([]float64, len(series))

	accumulated := 0.0
	for i := range series {
		year := startYear + i
		if year < strategy.StartYear {
			continue
		}
		accumulated = accumulated*(1+rate/100) + series[i]
		balances[i] = accumulated
	}
	return balances
}

// bucketSpends sums the series values falling within each bucket's year
// range. The final bucket absorbs every year past its nominal duration.
func bucketSpends(series []float64, startYear int, strategy RateStrategy) []float64 {
	spends := make([]float64, len(strategy.Buckets))

	bucketStart := strategy.StartYear
	for i, bucket := range strategy.Buckets {
		bucketEnd := bucketStart + bucket.DurationYears // exclusive
		last := i == len(strategy.Buckets)-1

		for j, value := range series {
			year := startYear + j
			if year < bucketStart {
				continue
			}
			if year >= bucketEnd && !last {
				continue
			}
			spends[i] += value
		}
		bucketStart = bucketEnd
	}
	return spends
}
