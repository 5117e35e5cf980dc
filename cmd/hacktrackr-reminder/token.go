package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/noah-isme/hacktrackr-reminder/internal/service"
	"github.com/noah-isme/hacktrackr-reminder/pkg/config"
)

var (
	tokenSubject string
	tokenTTL     time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint a bearer token for the ops API",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		ttl := tokenTTL
		if ttl <= 0 {
			ttl = cfg.JWT.TokenTTL
		}
		token, expiresAt, err := service.NewTokenService(cfg.JWT.Secret, ttl).Issue(tokenSubject)
		if err != nil {
			return err
		}
		fmt.Println(token)
		fmt.Fprintf(cmd.ErrOrStderr(), "expires at %s\n", expiresAt.Format(time.RFC3339))
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVar(&tokenSubject, "subject", "ops", "Token subject")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 0, "Token lifetime (defaults to JWT_TOKEN_TTL)")
	rootCmd.AddCommand(tokenCmd)
}
