package application

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"consentledger/internal/application/metrics"
	"consentledger/internal/application/models"
	"consentledger/internal/application/secrets"
	"consentledger/internal/storage"
	dErrors "consentledger/pkg/domain-errors"
	audit "consentledger/pkg/platform/audit"
	"consentledger/pkg/platform/sentinel"
	"consentledger/pkg/platform/tx"
	"consentledger/pkg/requestcontext"
)

//go:generate mockgen -source=gate.go -destination=mocks/mocks.go -package=mocks Store,CredentialCache,AuditPublisher

// Store persists applications. Implementations return sentinel errors.
type Store interface {
	Create(ctx context.Context, app *models.Application) error
	FindByID(ctx context.Context, appID string) (*models.Application, error)
	FindByDigest(ctx context.Context, digest []byte) (*models.Application, error)
	Deactivate(ctx context.Context, appID string, now time.Time) (*models.Application, bool, error)
}

// CredentialCache maps a digest cache key to an active app id.
type CredentialCache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, appID string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// AuditPublisher records registration and deactivation fail-closed.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.ComplianceEvent) error
}

const defaultCacheTTL = 30 * time.Second

// Gate authenticates relying applications by bearer secret and manages
// their registration.
type Gate struct {
	store        Store
	digester     *secrets.Digester
	cache        CredentialCache
	cacheTTL     time.Duration
	tx           tx.Runner
	auditor      AuditPublisher
	logger       *slog.Logger
	metrics      *metrics.Metrics
	storeTimeout time.Duration
}

type Option func(*Gate)

func WithCache(c CredentialCache, ttl time.Duration) Option {
	return func(g *Gate) {
		g.cache = c
		if ttl > 0 {
			g.cacheTTL = ttl
		}
	}
}

func WithTxRunner(r tx.Runner) Option {
	return func(g *Gate) { g.tx = r }
}

func WithAuditPublisher(p AuditPublisher) Option {
	return func(g *Gate) { g.auditor = p }
}

func WithLogger(logger *slog.Logger) Option {
	return func(g *Gate) { g.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(g *Gate) { g.metrics = m }
}

func WithStoreTimeout(d time.Duration) Option {
	return func(g *Gate) { g.storeTimeout = d }
}

func NewGate(store Store, digester *secrets.Digester, opts ...Option) *Gate {
	g := &Gate{
		store:        store,
		digester:     digester,
		cacheTTL:     defaultCacheTTL,
		tx:           tx.PassThrough{},
		logger:       slog.Default(),
		storeTimeout: storage.DefaultTimeout,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Authenticate resolves a bearer secret to the id of an active application.
func (g *Gate) Authenticate(ctx context.Context, bearer string) (string, error) {
	bearer = strings.TrimSpace(bearer)
	if bearer == "" {
		g.metrics.IncrementAuth("missing")
		return "", dErrors.New(dErrors.CodeMissingCredential, "application credential required")
	}

	digest, err := g.digester.Digest(bearer)
	if err != nil {
		g.metrics.IncrementAuth("error")
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to digest credential")
	}
	key := secrets.CacheKey(digest)

	if appID, ok := g.cacheGet(ctx, key); ok {
		g.metrics.IncrementAuth("ok")
		return appID, nil
	}

	lookupCtx, cancel := storage.WithTimeout(ctx, g.storeTimeout)
	defer cancel()
	app, err := g.store.FindByDigest(lookupCtx, digest)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			g.metrics.IncrementAuth("invalid")
			return "", dErrors.New(dErrors.CodeInvalidCredential, "invalid application credential")
		}
		g.metrics.IncrementAuth("error")
		g.logger.ErrorContext(ctx, "credential lookup failed",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		return "", storage.Translate(lookupCtx, err, "authenticate application", "invalid application credential")
	}
	if !app.IsActive() || !secrets.Equal(app.SecretDigest, digest) {
		g.metrics.IncrementAuth("invalid")
		return "", dErrors.New(dErrors.CodeInvalidCredential, "invalid application credential")
	}

	if g.cache != nil {
		if err := g.cache.Set(ctx, key, app.AppID, g.cacheTTL); err != nil {
			g.logger.WarnContext(ctx, "credential cache write failed", "error", err)
		}
	}
	g.metrics.IncrementAuth("ok")
	return app.AppID, nil
}

func (g *Gate) cacheGet(ctx context.Context, key string) (string, bool) {
	if g.cache == nil {
		return "", false
	}
	appID, ok, err := g.cache.Get(ctx, key)
	switch {
	case err != nil:
		g.metrics.IncrementCache("error")
		g.logger.WarnContext(ctx, "credential cache read failed, falling back to store", "error", err)
		return "", false
	case !ok:
		g.metrics.IncrementCache("miss")
		return "", false
	default:
		g.metrics.IncrementCache("hit")
		return appID, true
	}
}

// Register creates an active application and returns its plaintext secret,
// which is not recoverable afterwards.
func (g *Gate) Register(ctx context.Context, appID, name string) (*models.Application, string, error) {
	secret, err := secrets.Generate()
	if err != nil {
		return nil, "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate application secret")
	}
	digest, err := g.digester.Digest(secret)
	if err != nil {
		return nil, "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to digest application secret")
	}
	app, err := models.NewApplication(appID, name, digest, requestcontext.Now(ctx))
	if err != nil {
		return nil, "", err
	}

	ctx, cancel := storage.WithTimeout(ctx, g.storeTimeout)
	defer cancel()

	err = g.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := g.store.Create(ctx, app); err != nil {
			return err
		}
		return g.emit(ctx, audit.EventApplicationRegistered, app.AppID)
	})
	if err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, "", dErrors.New(dErrors.CodeConflict, "app_id already registered")
		}
		return nil, "", storage.Translate(ctx, err, "register application", "application not found")
	}

	g.logger.InfoContext(ctx, "application registered", "app_id", app.AppID)
	return app, secret, nil
}

// Deactivate marks an application inactive and evicts its cached credential.
// Deactivating an inactive application succeeds without a second event.
func (g *Gate) Deactivate(ctx context.Context, appID string) (*models.Application, error) {
	ctx, cancel := storage.WithTimeout(ctx, g.storeTimeout)
	defer cancel()

	now := requestcontext.Now(ctx)
	var (
		app     *models.Application
		changed bool
	)
	err := g.tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		app, changed, err = g.store.Deactivate(ctx, appID, now)
		if err != nil || !changed {
			return err
		}
		return g.emit(ctx, audit.EventApplicationDeactivated, app.AppID)
	})
	if err != nil {
		return nil, storage.Translate(ctx, err, "deactivate application", "application not found")
	}

	if g.cache != nil {
		if err := g.cache.Delete(ctx, secrets.CacheKey(app.SecretDigest)); err != nil {
			g.logger.WarnContext(ctx, "credential cache eviction failed; entry expires with its TTL",
				"app_id", app.AppID,
				"error", err,
			)
		}
	}
	if changed {
		g.logger.InfoContext(ctx, "application deactivated", "app_id", app.AppID)
	}
	return app, nil
}

func (g *Gate) emit(ctx context.Context, action audit.AuditEvent, appID string) error {
	if g.auditor == nil {
		return nil
	}
	err := g.auditor.Emit(ctx, audit.ComplianceEvent{
		Timestamp: requestcontext.Now(ctx),
		Action:    action,
		AppID:     appID,
		RequestID: requestcontext.RequestID(ctx),
	})
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeAuditWriteFailed, "failed to record application event")
	}
	return nil
}
