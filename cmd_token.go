package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"xenocpu/internal/middleware"
	"xenocpu/internal/services"
)

var (
	tokenClientName string

	tokenCmd = &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for a client",
		RunE:  runToken,
	}
)

func init() {
	tokenCmd.Flags().StringVarP(&tokenClientName, "client-name", "n", "cli", "name embedded in the token")
}

func runToken(cmd *cobra.Command, args []string) error {
	if !middleware.NewInputValidator().ValidateClientName(tokenClientName) {
		return fmt.Errorf("invalid client name %q", tokenClientName)
	}

	auth := services.NewAuthService(cfg.Auth, log)
	token, err := auth.GenerateToken(tokenClientName)
	if err != nil {
		return fmt.Errorf("generating token: %w", err)
	}
	middleware.NewSecurityLogger(log).LogTokenGenerated("cli", tokenClientName)

	fmt.Fprintln(cmd.OutOrStdout(), token)
	fmt.Fprintf(cmd.ErrOrStderr(), "expires %s\n", auth.TokenExpiry().Format(time.RFC3339))
	return nil
}
