package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/openreserve/reserve-forecast/internal/optimizer"
	"github.com/openreserve/reserve-forecast/pkg/constants"
	"github.com/openreserve/reserve-forecast/pkg/output"
)

func optimizeCmd() *cobra.Command {
	var target float64

	cmd := &cobra.Command{
		Use:   "optimize",
		Short: "Search for the minimum fee schedule that keeps the reserve funded",
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, logger, err := loadEnvironment()
			if err != nil {
				return err
			}
			defer func() {
				_ = logger.Sync()
			}()

			outputFormat, err := resolveOutputFormat(conf)
			if err != nil {
				return err
			}

			if !cmd.Flags().Changed("target") {
				target = conf.Model.TargetMinBalance
			}

			result := optimizer.OptimizeFees(logger, conf.Model, conf.ScheduleItems(), target)

			switch outputFormat {
			case constants.OutputFormatPretty:
				output.PrettyOptimization(os.Stdout, conf.Model.StartYear, result.Summary)
				fmt.Fprintf(os.Stdout, "\n--- Projection under the optimized schedule ---\n")
				output.PrettyProjection(os.Stdout, result.Projections)
			case constants.OutputFormatCSV:
				output.CsvOptimization(os.Stdout, conf.Model.StartYear, result.Summary)
			}
			return nil
		},
	}
	cmd.Flags().Float64Var(&target, "target", 0, "minimum balance target override")
	return cmd
}
