package main

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"consentledger/internal/application/cache"
	"consentledger/internal/platform/config"
)

func TestCredentialCache(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("memory driver caches in process", func(t *testing.T) {
		got := credentialCache(testConfig(), log, &deps{})
		assert.IsType(t, &cache.Memory{}, got)
	})

	t.Run("shared store without redis does not cache", func(t *testing.T) {
		cfg := testConfig()
		cfg.StoreDriver = config.DriverPostgres
		assert.Nil(t, credentialCache(cfg, log, &deps{}))
	})
}
