package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/openreserve/reserve-forecast/internal/projection"
	"github.com/openreserve/reserve-forecast/pkg/constants"
	"github.com/openreserve/reserve-forecast/pkg/output"
)

func projectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "project",
		Short: "Project the reserve balance over the model horizon",
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

			fees := projection.Uniform(conf.Model.MonthlyFee, conf.Model.HorizonYears)
			projections := projection.Project(logger, conf.Model, conf.ScheduleItems(), fees)

			switch outputFormat {
			case constants.OutputFormatPretty:
				output.PrettyProjection(os.Stdout, projections)
			case constants.OutputFormatCSV:
				output.CsvProjection(os.Stdout, projections)
			}
			return nil
		},
	}
}
