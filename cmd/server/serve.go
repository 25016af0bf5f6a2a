package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"consentledger/internal/platform/config"
	"consentledger/internal/platform/httpserver"
	"consentledger/pkg/platform/audit/relay"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(c *cli) *cobra.Command {
	var bootstrap []string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and, with Postgres and Kafka configured, the outbox relay",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return c.serve(ctx, bootstrap)
		},
	}
	cmd.Flags().StringSliceVar(&bootstrap, "bootstrap-app", nil,
		"register an application at startup as app_id[:name] and log its secret (memory driver only)")
	return cmd
}

func (c *cli) serve(ctx context.Context, bootstrap []string) error {
	d, err := openDeps(ctx, c.cfg, c.log)
	if err != nil {
		return err
	}
	defer func() {
		if err := d.Close(); err != nil {
			c.log.Error("closing stores failed", "error", err)
		}
	}()

	reg := newRegistry()
	comps := newComponents(c.cfg, c.log, d, reg)

	if err := c.bootstrapApps(ctx, comps, bootstrap); err != nil {
		return err
	}

	srv := httpserver.New(c.cfg.Addr, newRouter(comps, d, c.log))
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		c.log.Info("starting consentledger", "addr", c.cfg.Addr, "store_driver", c.cfg.StoreDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		return comps.security.Run(gctx)
	})

	if d.outbox != nil && len(c.cfg.Kafka.Brokers) > 0 {
		client, err := relay.NewKafkaClient(c.cfg.Kafka.Brokers, c.cfg.Kafka.Topic)
		if err != nil {
			return err
		}
		defer client.Close()

		topicCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		if err := relay.EnsureTopic(topicCtx, client, c.cfg.Kafka.Topic); err != nil {
			c.log.Warn("could not create outbox topic, relying on broker auto-create", "error", err)
		}
		cancel()

		r := relay.New(d.outbox, client, d.tx, relay.Config{
			Topic:    c.cfg.Kafka.Topic,
			Interval: c.cfg.Kafka.RelayInterval,
			Batch:    c.cfg.Kafka.RelayBatch,
		}, c.log, relay.NewMetrics())
		g.Go(func() error {
			c.log.Info("outbox relay started", "topic", c.cfg.Kafka.Topic)
			return r.Run(gctx)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		c.log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		defer comps.Close(shutdownCtx)
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		return nil
	})

	return g.Wait()
}

// bootstrapApps registers development applications so the memory driver is
// usable without the apps subcommand, whose writes would not reach this process.
func (c *cli) bootstrapApps(ctx context.Context, comps *components, specs []string) error {
	if len(specs) == 0 {
		return nil
	}
	if c.cfg.StoreDriver != config.DriverMemory {
		return fmt.Errorf("--bootstrap-app requires STORE_DRIVER=%s; use 'apps register' instead", config.DriverMemory)
	}
	for _, spec := range specs {
		appID, name, _ := strings.Cut(spec, ":")
		if name == "" {
			name = appID
		}
		app, secret, err := comps.gate.Register(ctx, appID, name)
		if err != nil {
			return fmt.Errorf("bootstrap %s: %w", appID, err)
		}
		c.log.Warn("bootstrap application registered", "app_id", app.AppID, "secret", secret)
	}
	return nil
}
