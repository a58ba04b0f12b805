// Package optimization provides shared data structures for fee optimization
// results.
package optimization

// Statistics aggregates a projection sequence produced by the optimizer.
// ResidualDeficit greater than zero is a user-visible warning, not an error:
// the growth cap and fee floor can make a deficit-free schedule infeasible.
type Statistics struct {
	MinBalance       float64 `json:"minBalance"`
	MaxBalance       float64 `json:"maxBalance"`
	FinalBalance     float64 `json:"finalBalance"`
	AverageBalance   float64 `json:"averageBalance"`
	TotalCollections float64 `json:"totalCollections"`
	TotalExpenses    float64 `json:"totalExpenses"`
	ResidualDeficit  float64 `json:"residualDeficit"`
}

// FeeDelta records one year's fee change together with a human-readable
// justification.
type FeeDelta struct {
	Year        int     `json:"year"`
	PreviousFee float64 `json:"previousFee"`
	Fee         float64 `json:"fee"`
	Reason      string  `json:"reason"`
}

// Summary captures the outcome of one optimization run.
type Summary struct {
	Fees            []float64  `json:"fees"`
	Stats           Statistics `json:"stats"`
	Deltas          []FeeDelta `json:"deltas,omitempty"`
	Recommendations []string   `json:"recommendations,omitempty"`
	Passes          int        `json:"passes"`
	Converged       bool       `json:"converged"`
}
