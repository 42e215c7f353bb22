package main

import (
	"github.com/spf13/cobra"

	"github.com/vancomm/percolation/internal/app"
	"github.com/vancomm/percolation/internal/config"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve experiments and interactive grids over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, _ := cmd.Flags().GetString("addr")
			if addr == "" {
				addr = config.Addr()
			}
			log.WithField("mode", config.Mode()).Info("starting up")
			return app.New(log, addr, migrations).Start(cmd.Context())
		},
	}

	cmd.Flags().String("addr", "", "listen address (default $APP_ADDR or :8080)")

	return cmd
}
