package main

import (
	"fmt"
	"time"

	"blogtalk/internal/middleware"

	"github.com/spf13/cobra"
)

var tokenTTL time.Duration

// tokenCmd mints bearer tokens for local testing against the API.
var tokenCmd = &cobra.Command{
	Use:   "token <user-id>",
	Short: "Issue a bearer token for a user id",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var userID uint
		if _, err := fmt.Sscan(args[0], &userID); err != nil || userID == 0 {
			return fmt.Errorf("invalid user id %q", args[0])
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.Auth.JWTSecret == "" {
			return fmt.Errorf("auth.jwt_secret is not configured")
		}

		token, err := middleware.SignToken(cfg.Auth.JWTSecret, userID, tokenTTL)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 24*time.Hour, "token lifetime")
}
