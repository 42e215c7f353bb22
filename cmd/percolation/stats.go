package main

import (
	"encoding/json"
	"fmt"
	"io"
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/vancomm/percolation/internal/stats"
)

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats <grid dimension> <number of trials>",
		Short: "Run T independent percolation trials on an N-by-N grid",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("grid dimension must be an integer: %w", err)
			}
			trials, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("number of trials must be an integer: %w", err)
			}
			workers, _ := cmd.Flags().GetInt("workers")
			output, _ := cmd.Flags().GetString("output")

			params := stats.Params{N: n, Trials: trials, Workers: workers}
			if cmd.Flags().Changed("seed") {
				params.Seed, _ = cmd.Flags().GetUint64("seed")
			} else {
				params.Seed = rand.Uint64()
			}

			result, err := stats.Run(cmd.Context(), params)
			if err != nil {
				return err
			}

			log.WithField("seed", result.Seed).Infof(
				"%s trials on %s sites in %s",
				humanize.Comma(int64(result.Trials)),
				humanize.Comma(int64(n)*int64(n)),
				result.Elapsed.Round(time.Millisecond),
			)

			return writeResult(cmd.OutOrStdout(), output, result)
		},
	}

	cmd.Flags().IntP("workers", "w", 0, "parallel workers (default GOMAXPROCS)")
	cmd.Flags().Uint64P("seed", "s", 0, "random seed (default random)")
	cmd.Flags().StringP("output", "o", "text", "output format: text, json or yaml")

	return cmd
}

func writeResult(w io.Writer, format string, result *stats.Result) error {
	switch format {
	case "text":
		fmt.Fprintf(w, "mean                    = %v\n", result.Mean)
		fmt.Fprintf(w, "stddev                  = %v\n", result.Stddev)
		fmt.Fprintf(w, "95%% confidence interval = %v, %v\n", result.ConfidenceLo, result.ConfidenceHi)
		return nil
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(result.Report())
	case "yaml":
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		return enc.Encode(result.Report())
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}
