package main

import (
	"net/http"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/openreserve/reserve-forecast/internal/server"
	"github.com/openreserve/reserve-forecast/internal/store"
)

func serveCmd() *cobra.Command {
	var address string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the projection engine and record store over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, logger, err := loadEnvironment()
			if err != nil {
				return err
			}
			defer func() {
				_ = logger.Sync()
			}()

			if address != "" {
				conf.Server.Address = address
			}

			st, err := store.Open(conf.Server.StorePath, logger)
			if err != nil {
				logger.Error("failed to open record store",
					zap.String("op", "serve"),
					zap.Error(err),
				)
				return err
			}
			defer func() {
				_ = st.Close()
			}()

			srv := server.New(logger, st, conf.Server)
			logger.Info("serving HTTP API",
				zap.String("op", "serve"),
				zap.String("address", conf.Server.Address),
				zap.String("store", conf.Server.StorePath),
			)
			return http.ListenAndServe(conf.Server.Address, srv.Handler())
		},
	}
	cmd.Flags().StringVar(&address, "address", "", "listen address override")
	return cmd
}
