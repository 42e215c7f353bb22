package main

import (
	"context"
	"embed"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/vancomm/percolation/internal/config"
	"github.com/vancomm/percolation/internal/logging"
	"github.com/vancomm/percolation/internal/stats"
)

//go:embed migrations/*.sql
var migrations embed.FS

var (
	version = "0.1.0-dev"

	log = logrus.New()
)

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "percolation",
		Short: "Estimate the percolation threshold by Monte Carlo simulation",
		Long: `percolation opens random sites of an N-by-N grid until the grid
connects top to bottom, repeats the experiment T times and reports the
mean open-site fraction with its 95% confidence interval.

It can also serve experiments and interactive grids over HTTP.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		cfg, err := config.NewLogging()
		if err != nil {
			return err
		}
		if levelStr, _ := cmd.Flags().GetString("log-level"); levelStr != "" {
			if cfg.Level, err = logrus.ParseLevel(levelStr); err != nil {
				return err
			}
		}
		return logging.Setup(log, cmd.ErrOrStderr(), cfg, stats.Log)
	}

	rootCmd.AddCommand(
		newVersionCmd(),
		newStatsCmd(),
		newServeCmd(),
		newMigrateCmd(),
		newTokenCmd(),
	)

	return rootCmd
}

func main() {
	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt, syscall.SIGTERM,
	)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "percolation:", err)
		stop()
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "percolation version %s\n", version)
		},
	}
}
