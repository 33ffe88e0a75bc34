package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	ledgermw "github.com/terraconstructs/herbledger/cmd/herbledger/internal/middleware"
)

var tokenTTL time.Duration

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Bearer token utilities",
}

var tokenIssueCmd = &cobra.Command{
	Use:   "issue [principal]",
	Short: "Issue an HS256 bearer token for a principal",
	Long: `Signs a token with the configured jwt_secret. The server accepts it in the
Authorization header and uses its subject as the caller principal.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.DevMode() {
			return errors.New("jwt_secret is not configured (HERB_JWT_SECRET)")
		}
		token, err := ledgermw.IssueToken([]byte(cfg.JWTSecret), args[0], tokenTTL, time.Now())
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(tokenCmd)
	tokenCmd.AddCommand(tokenIssueCmd)
	tokenIssueCmd.Flags().DurationVar(&tokenTTL, "ttl", ledgermw.DefaultTokenTTL, "Token lifetime")
}
