package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/openreserve/reserve-forecast/internal/projection"
	"github.com/openreserve/reserve-forecast/pkg/investments"
)

func rateCmd() *cobra.Command {
	var strategyName string

	cmd := &cobra.Command{
		Use:   "rate",
		Short: "Compute the weighted investment rate for the projected spend",
		Long: "Projects the model under its current fee and weights each rate " +
			"bucket by the share of capital spend falling inside it.",
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, logger, err := loadEnvironment()
			if err != nil {
				return err
			}
			defer func() {
				_ = logger.Sync()
			}()

			strategy, ok := conf.FindRateStrategy(strategyName)
			if !ok {
				if strategyName == "" {
					return fmt.Errorf("no rate strategy selected; pass --strategy or configure exactly one")
				}
				return fmt.Errorf("rate strategy %q is not configured", strategyName)
			}

			fees := projection.Uniform(conf.Model.MonthlyFee, conf.Model.HorizonYears)
			projections := projection.Project(logger, conf.Model, conf.ScheduleItems(), fees)

			series := make([]float64, len(projections))
			for i, yr := range projections {
				series[i] = yr.Expenses
			}

			rate := investments.WeightedRate(series, conf.Model.StartYear, strategy)
			p := message.NewPrinter(language.English)
			_, _ = p.Fprintf(os.Stdout, "Strategy %s: weighted annual rate %.2f%%\n", strategy.Name, rate)
			return nil
		},
	}
	cmd.Flags().StringVar(&strategyName, "strategy", "", "name of the rate strategy to evaluate")
	return cmd
}
