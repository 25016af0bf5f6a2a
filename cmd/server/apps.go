package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"consentledger/internal/application/models"
	"consentledger/internal/platform/config"
)

func newAppsCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apps",
		Short: "Manage relying applications",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := cmd.Root().PersistentPreRunE(cmd, args); err != nil {
				return err
			}
			if c.cfg.StoreDriver != config.DriverPostgres {
				return fmt.Errorf("apps requires STORE_DRIVER=%s; use 'serve --bootstrap-app' with the memory driver", config.DriverPostgres)
			}
			return nil
		},
	}

	var appID, name string
	register := &cobra.Command{
		Use:   "register",
		Short: "Register an application and print its secret once",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withGate(cmd.Context(), func(ctx context.Context, gate gateOps) error {
				app, secret, err := gate.Register(ctx, appID, name)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), models.RegisterResponse{Application: app, Secret: secret})
			})
		},
	}
	register.Flags().StringVar(&appID, "app-id", "", "application id (required)")
	register.Flags().StringVar(&name, "name", "", "display name (required)")
	_ = register.MarkFlagRequired("app-id")
	_ = register.MarkFlagRequired("name")

	var deactivateID string
	deactivate := &cobra.Command{
		Use:   "deactivate",
		Short: "Deactivate an application; its secret stops authenticating",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withGate(cmd.Context(), func(ctx context.Context, gate gateOps) error {
				app, err := gate.Deactivate(ctx, deactivateID)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), app)
			})
		},
	}
	deactivate.Flags().StringVar(&deactivateID, "app-id", "", "application id (required)")
	_ = deactivate.MarkFlagRequired("app-id")

	cmd.AddCommand(register, deactivate)
	return cmd
}

type gateOps interface {
	Register(ctx context.Context, appID, name string) (*models.Application, string, error)
	Deactivate(ctx context.Context, appID string) (*models.Application, error)
}

func (c *cli) withGate(ctx context.Context, fn func(context.Context, gateOps) error) error {
	d, err := openDeps(ctx, c.cfg, c.log)
	if err != nil {
		return err
	}
	defer d.Close()

	gate := newGate(c.cfg, c.log, d, registry{}, newCompliancePublisher(c.log, d, registry{}))
	return fn(ctx, gate)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
