package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/vancomm/percolation/internal/config"
)

func newTokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, _ := cmd.Flags().GetString("owner")
			if owner == "" {
				return errors.New("--owner is required")
			}
			j, err := config.NewJWT()
			if err != nil {
				return err
			}
			if j == nil {
				return errors.New("JWT_PUBLIC_KEY is not set")
			}
			lifetime := j.TokenLifetime
			if cmd.Flags().Changed("lifetime") {
				lifetime, _ = cmd.Flags().GetDuration("lifetime")
			}
			token, err := j.Sign(config.NewOwnerClaims(owner, lifetime))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().String("owner", "", "owner recorded on experiments and sessions")
	cmd.Flags().Duration("lifetime", 30*24*time.Hour, "token lifetime")

	return cmd
}
