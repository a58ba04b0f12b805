// Package constants provides shared constants for the reserve-forecast application.
package constants

// Financial constants
const (
	// MonthsPerYear is the number of months in a year
	MonthsPerYear = 12

	// DecimalPrecision is the precision for currency rounding (2 decimal places)
	DecimalPrecision = 100

	// PercentageMultiplier is used for percentage conversions
	PercentageMultiplier = 100.0

	// CurrencyTolerance is the tolerance for currency comparisons (1 cent)
	CurrencyTolerance = 0.01
)

// Optimizer budgets. Both loops run a fixed iteration count rather than a
// convergence tolerance so that a full optimization has a deterministic,
// bounded cost; callers re-run it on every parameter edit.
const (
	// OptimizerOuterPasses bounds the segment-coupling refinement loop
	OptimizerOuterPasses = 10

	// OptimizerSearchIterations bounds the per-segment binary search
	OptimizerSearchIterations = 40

	// ZeroFeeSeed is the minimum fee applied whenever a computed fee lands on
	// exactly zero, so that percentage-based year-over-year growth can resume
	ZeroFeeSeed = 1.0
)

// Loan defaults
const (
	// DefaultLoanTermYears is the repayment term applied when a model omits one
	DefaultLoanTermYears = 5
)

// Output format constants
const (
	// OutputFormatPretty is the human-readable output format
	OutputFormatPretty = "pretty"

	// OutputFormatCSV is the CSV output format
	OutputFormatCSV = "csv"
)

// Configuration file constants
const (
	// DefaultConfigFile is the default configuration file name
	DefaultConfigFile = "config.yaml"
)

// Server configuration defaults
const (
	// DefaultServerAddress is the default HTTP listen address for the API
	DefaultServerAddress = ":8080"

	// DefaultStorePath is the default path of the record store database
	DefaultStorePath = "reserve-forecast.db"

	// DefaultMaxBodyBytes is the default maximum request body size (256 KB)
	DefaultMaxBodyBytes int64 = 256 * 1024
)
