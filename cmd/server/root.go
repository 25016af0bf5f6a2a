package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"consentledger/internal/platform/config"
	"consentledger/internal/platform/logger"
)

// cli carries what every subcommand needs once the root has loaded config.
type cli struct {
	cfg config.Server
	log *slog.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:           "consentledger",
		Short:         "Consent ledger: grant, revoke and check user consent for data access",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.FromEnv()
			if err != nil {
				return err
			}
			c.cfg = cfg
			c.log = logger.New(cfg.LogLevel)
			return nil
		},
	}

	root.AddCommand(newServeCmd(c))
	root.AddCommand(newMigrateCmd(c))
	root.AddCommand(newAppsCmd(c))
	return root
}
