// Package commands implements revivectl, the operator CLI for the
// storefront: admin tokens, sending-domain checks, demo asset uploads and
// ledger migrations.
package commands

import (
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"storefront/internal/infra"
)

var (
	envFile string
	cfg     *infra.Config
	logger  zerolog.Logger
)

func newRoot() *cobra.Command {
	root := &cobra.Command{
		Use:           "revivectl",
		Short:         "Operate the Revive My Photo backend",
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if envFile != "" {
				if err := godotenv.Load(envFile); err != nil {
					return err
				}
			} else {
				_ = godotenv.Load()
			}
			loaded, err := infra.LoadConfig()
			if err != nil {
				return err
			}
			cfg = loaded
			logger = infra.NewLogger(cfg.AppEnv).With().Str("cmd", cmd.Name()).Logger()
			return nil
		},
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", "", "dotenv file to load (default .env when present)")

	root.AddCommand(tokenCmd(), dnsCmd(), senderDomainCmd(), blobCmd(), ledgerCmd())
	return root
}

func Execute() error {
	return newRoot().Execute()
}
