// Command tokengen issues a caller token for the registry API using the same
// JWT settings as the server.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	jwttoken "roster/internal/jwt_token"
	"roster/internal/platform/config"
	id "roster/pkg/domain"
)

func newRootCmd() *cobra.Command {
	var (
		caller string
		ttl    time.Duration
	)
	cmd := &cobra.Command{
		Use:   "tokengen",
		Short: "Issue a bearer token for the registry API",
		Long: `Issue an HS256 bearer token whose subject is the given caller.

JWT_SIGNING_KEY, JWT_ISSUER and JWT_AUDIENCE are read from the environment,
exactly as the server reads them.

Examples:
  tokengen --caller registry-admin
  tokengen --caller ci-bot --ttl 15m`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.FromEnv()
			if err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			token, err := jwttoken.NewJWTService(cfg.JWT.SigningKey, cfg.JWT.Issuer, cfg.JWT.Audience).
				GenerateToken(id.CallerID(caller), ttl)
			if err != nil {
				return fmt.Errorf("issue token: %w", err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}
	cmd.Flags().StringVarP(&caller, "caller", "c", "", "caller identity written to the token subject")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	_ = cmd.MarkFlagRequired("caller")
	return cmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
