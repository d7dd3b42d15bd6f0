package cmd

import (
	"fmt"
	"time"

	"github.com/honeynil/AdaPayAcquirer/internal/config"
	"github.com/honeynil/AdaPayAcquirer/internal/infrastructure/auth"
	"github.com/spf13/cobra"
)

var tokenCmd = &cobra.Command{
	Use:   "token <subject>",
	Short: "Mint an operator JWT for the payments API",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ttl, _ := cmd.Flags().GetDuration("ttl")
		secret, _ := cmd.Flags().GetString("secret")
		if secret == "" {
			secret = config.Load().JWTSecret
		}

		token, err := auth.GenerateJWT(secret, args[0], ttl)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

var hashTokenCmd = &cobra.Command{
	Use:   "hash-token <token>",
	Short: "Hash a webhook token for ADAPAY_WEBHOOK_TOKEN_HASH",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		hash, err := auth.HashWebhookToken(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), hash)
		return nil
	},
}

func init() {
	tokenCmd.Flags().Duration("ttl", 24*time.Hour, "token lifetime")
	tokenCmd.Flags().String("secret", "", "signing secret (defaults to JWT_SECRET)")
	rootCmd.AddCommand(tokenCmd, hashTokenCmd)
}
