package main

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/vancomm/percolation/internal/config"
	"github.com/vancomm/percolation/internal/database"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			url, err := config.DbURL()
			if err != nil {
				return err
			}
			migrator, err := database.Migrate(url, migrations)
			if err != nil {
				return err
			}
			defer migrator.Close()

			version, dirty, err := migrator.Version()
			if err != nil {
				return err
			}
			log.WithFields(logrus.Fields{
				"version": version,
				"dirty":   dirty,
			}).Info("migration successful")
			return nil
		},
	}
}
