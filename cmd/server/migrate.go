package main

import (
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/spf13/cobra"

	"consentledger/internal/platform/config"
	"consentledger/internal/platform/database"
)

func newMigrateCmd(c *cli) *cobra.Command {
	var down bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply (or with --down, roll back one step of) the embedded schema migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if c.cfg.StoreDriver != config.DriverPostgres {
				return fmt.Errorf("migrate requires STORE_DRIVER=%s", config.DriverPostgres)
			}
			m, err := database.NewMigrator(c.cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer m.Close()

			if down {
				err = m.Steps(-1)
			} else {
				err = m.Up()
			}
			if err != nil && !errors.Is(err, migrate.ErrNoChange) {
				return fmt.Errorf("migrate: %w", err)
			}

			version, dirty, err := m.Version()
			if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
				return err
			}
			c.log.Info("schema migrated", "version", version, "dirty", dirty)
			return nil
		},
	}
	cmd.Flags().BoolVar(&down, "down", false, "roll back the most recent migration")
	return cmd
}
