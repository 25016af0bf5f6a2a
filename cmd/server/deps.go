package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	accesslog "consentledger/internal/audit"
	accesslogstore "consentledger/internal/audit/store"
	"consentledger/internal/application"
	appstore "consentledger/internal/application/store"
	consentservice "consentledger/internal/consent/service"
	consentstore "consentledger/internal/consent/store"
	"consentledger/internal/platform/config"
	"consentledger/internal/platform/database"
	redisclient "consentledger/internal/platform/redis"
	audit "consentledger/pkg/platform/audit"
	auditmemory "consentledger/pkg/platform/audit/store/memory"
	auditpostgres "consentledger/pkg/platform/audit/store/postgres"
	"consentledger/pkg/platform/tx"
)

// deps holds the connections and stores selected by STORE_DRIVER.
type deps struct {
	db    *sql.DB
	redis *redisclient.Client
	tx    tx.Runner

	// outbox is nil for the memory driver; the relay only runs against Postgres.
	outbox *auditpostgres.Store
	events audit.Store

	consents   consentservice.Store
	accessLogs accesslog.Store
	apps       application.Store
}

func openDeps(ctx context.Context, cfg config.Server, log *slog.Logger) (*deps, error) {
	d := &deps{}

	switch cfg.StoreDriver {
	case config.DriverPostgres:
		if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
			return nil, err
		}
		db, err := database.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		outbox := auditpostgres.New(db)
		d.db = db
		d.tx = tx.NewSQLRunner(db, cfg.StoreTimeout)
		d.outbox = outbox
		d.events = outbox
		d.consents = consentstore.NewPostgres(db)
		d.accessLogs = accesslogstore.NewPostgres(db)
		d.apps = appstore.NewPostgres(db)
	default:
		log.Warn("using in-memory stores; data is lost on restart")
		d.tx = tx.PassThrough{}
		d.events = auditmemory.NewInMemoryStore()
		d.consents = consentstore.NewInMemoryStore()
		d.accessLogs = accesslogstore.NewInMemoryStore()
		d.apps = appstore.NewInMemoryStore()
	}

	client, err := redisclient.New(ctx, cfg.Redis, log)
	if err != nil {
		d.Close()
		return nil, err
	}
	d.redis = client
	return d, nil
}

// Ping reports whether the database is reachable. Redis is left out: the
// credential cache degrades to the store when it is down.
func (d *deps) Ping(ctx context.Context) error {
	if d.db != nil {
		if err := d.db.PingContext(ctx); err != nil {
			return fmt.Errorf("database: %w", err)
		}
	}
	return nil
}

func (d *deps) Close() error {
	var errs []error
	if d.redis != nil {
		errs = append(errs, d.redis.Close())
	}
	if d.db != nil {
		errs = append(errs, d.db.Close())
	}
	return errors.Join(errs...)
}
