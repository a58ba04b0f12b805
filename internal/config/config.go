// Package config defines the data structures related to configuration and
// includes functions for loading and validating the config.
package config

import (
	"fmt"

	"github.com/openreserve/reserve-forecast/pkg/constants"
	"github.com/spf13/viper"
)

// Configuration holds all configuration for reserve-forecast. The structs
// double as the HTTP API's request and response bodies, so the json tags
// mirror the yaml keys.
type Configuration struct {
	Model          ModelParameters `yaml:"model" json:"model"`
	Items          []LineItem      `yaml:"items,omitempty" json:"items,omitempty"`
	RateStrategies []RateStrategy  `yaml:"rateStrategies,omitempty" json:"rateStrategies,omitempty"`
	Logging        LoggingConfig   `yaml:"logging,omitempty" json:"logging,omitempty"`
	Output         OutputConfig    `yaml:"output,omitempty" json:"output,omitempty"`
	Server         ServerConfig    `yaml:"server,omitempty" json:"server,omitempty"`
}

// ModelParameters holds the reserve model inputs driving a projection.
// All percentage fields lie in [0,100]; HorizonYears is at least 1.
type ModelParameters struct {
	Name              string  `yaml:"name,omitempty" json:"name,omitempty"`
	HorizonYears      int     `yaml:"horizonYears" json:"horizonYears"`
	StartYear         int     `yaml:"startYear" json:"startYear"`
	StartingBalance   float64 `yaml:"startingBalance,omitempty" json:"startingBalance,omitempty"`
	BaseAnnualCost    float64 `yaml:"baseAnnualCost,omitempty" json:"baseAnnualCost,omitempty"`
	InflationPct      float64 `yaml:"inflationPct,omitempty" json:"inflationPct,omitempty"`
	SafetyNetPct      float64 `yaml:"safetyNetPct,omitempty" json:"safetyNetPct,omitempty"`
	LoanThresholdPct  float64 `yaml:"loanThresholdPct,omitempty" json:"loanThresholdPct,omitempty"`
	LoanRatePct       float64 `yaml:"loanRatePct,omitempty" json:"loanRatePct,omitempty"`
	LoanTermYears     int     `yaml:"loanTermYears,omitempty" json:"loanTermYears,omitempty"`
	MonthlyFee        float64 `yaml:"monthlyFee,omitempty" json:"monthlyFee,omitempty"`
	MinimumFee        float64 `yaml:"minimumFee,omitempty" json:"minimumFee,omitempty"`
	MaxFeeIncreasePct float64 `yaml:"maxFeeIncreasePct,omitempty" json:"maxFeeIncreasePct,omitempty"`
	Units             int     `yaml:"units,omitempty" json:"units,omitempty"`
	TargetMinBalance  float64 `yaml:"targetMinBalance,omitempty" json:"targetMinBalance,omitempty"`
}

// LineItem describes one scheduled capital expenditure record. Either
// TriggerYear (absolute) or RemainingLife (relative to StartYear) places the
// first occurrence; TriggerYear wins when both are set.
type LineItem struct {
	ID            string  `yaml:"id,omitempty" json:"id,omitempty"`
	Name          string  `yaml:"name" json:"name"`
	Cost          float64 `yaml:"cost" json:"cost"`
	TriggerYear   int     `yaml:"triggerYear,omitempty" json:"triggerYear,omitempty"`
	RemainingLife int     `yaml:"remainingLife,omitempty" json:"remainingLife,omitempty"`
	ExpectedLife  int     `yaml:"expectedLife,omitempty" json:"expectedLife,omitempty"`
	Redundancy    int     `yaml:"redundancy,omitempty" json:"redundancy,omitempty"`
	Class         string  `yaml:"class,omitempty" json:"class,omitempty"` // Large or Small
}

// RateBucket assigns an annual rate to a run of years.
type RateBucket struct {
	DurationYears int     `yaml:"durationYears" json:"durationYears"`
	RatePct       float64 `yaml:"ratePct" json:"ratePct"`
}

// RateStrategy is an ordered list of rate buckets with a start year.
type RateStrategy struct {
	Name      string       `yaml:"name" json:"name"`
	StartYear int          `yaml:"startYear" json:"startYear"`
	Buckets   []RateBucket `yaml:"buckets" json:"buckets"`
}

// LoggingConfig holds logging configuration options.
type LoggingConfig struct {
	Level      string `yaml:"level,omitempty" json:"level,omitempty"`           // debug, info, warn, error
	Format     string `yaml:"format,omitempty" json:"format,omitempty"`         // json, console
	OutputFile string `yaml:"outputFile,omitempty" json:"outputFile,omitempty"` // optional file output
}

// OutputConfig holds output format configuration options.
type OutputConfig struct {
	Format string `yaml:"format,omitempty" json:"format,omitempty"` // pretty, csv
}

// ServerConfig holds the HTTP API settings.
type ServerConfig struct {
	Address      string `yaml:"address,omitempty" json:"address,omitempty"`
	StorePath    string `yaml:"storePath,omitempty" json:"storePath,omitempty"`
	MaxBodyBytes int64  `yaml:"maxBodyBytes,omitempty" json:"maxBodyBytes,omitempty"`
	Metrics      bool   `yaml:"metrics,omitempty" json:"metrics,omitempty"`
}

// LoadConfiguration takes a file path as input and loads the YAML-formatted
// configuration there.
func LoadConfiguration(configPath string) (*Configuration, error) {
	viper.SetConfigFile(configPath)
	viper.AutomaticEnv()

	viper.SetConfigType("yml")

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file, %s", err)
	}

	var configuration Configuration
	err := viper.Unmarshal(&configuration)
	if err != nil {
		return nil, fmt.Errorf("unable to decode into struct, %s", err)
	}

	configuration.ApplyDefaults()
	return &configuration, nil
}

// ApplyDefaults fills unset fields with their model defaults.
func (conf *Configuration) ApplyDefaults() {
	if conf.Model.LoanTermYears == 0 {
		conf.Model.LoanTermYears = constants.DefaultLoanTermYears
	}
	if conf.Model.Units == 0 {
		conf.Model.Units = 1
	}
	if conf.Server.Address == "" {
		conf.Server.Address = constants.DefaultServerAddress
	}
	if conf.Server.StorePath == "" {
		conf.Server.StorePath = constants.DefaultStorePath
	}
	if conf.Server.MaxBodyBytes <= 0 {
		conf.Server.MaxBodyBytes = constants.DefaultMaxBodyBytes
	}
	for i := range conf.Items {
		if conf.Items[i].Class == "" {
			conf.Items[i].Class = "Small"
		}
		if conf.Items[i].Redundancy == 0 {
			conf.Items[i].Redundancy = 1
		}
	}
}
