package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"consentledger/internal/application/models"
	"consentledger/pkg/platform/sentinel"
	txcontext "consentledger/pkg/platform/tx"
)

// PostgresStore persists applications in the applications table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) execer(ctx context.Context) txcontext.Executor {
	return txcontext.Conn(ctx, s.db)
}

const (
	applicationColumns = `app_id, name, secret_digest, status, created_at, deactivated_at`
	uniqueViolation    = "23505"
)

func (s *PostgresStore) Create(ctx context.Context, app *models.Application) error {
	_, err := s.execer(ctx).ExecContext(ctx, `
		INSERT INTO applications (`+applicationColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, app.AppID, app.Name, app.SecretDigest, string(app.Status), app.CreatedAt, app.DeactivatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert application: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, appID string) (*models.Application, error) {
	return s.findOne(ctx, `SELECT `+applicationColumns+` FROM applications WHERE app_id = $1`, appID)
}

func (s *PostgresStore) FindByDigest(ctx context.Context, digest []byte) (*models.Application, error) {
	return s.findOne(ctx, `SELECT `+applicationColumns+` FROM applications WHERE secret_digest = $1`, digest)
}

// Deactivate flips an active row in one statement; an inactive row is
// returned unchanged with changed=false.
func (s *PostgresStore) Deactivate(ctx context.Context, appID string, now time.Time) (*models.Application, bool, error) {
	row := s.execer(ctx).QueryRowContext(ctx, `
		UPDATE applications
		SET status = 'inactive', deactivated_at = $2
		WHERE app_id = $1 AND status = 'active'
		RETURNING `+applicationColumns,
		appID, now.UTC(),
	)
	app, err := scanApplication(row)
	if err == nil {
		return app, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, fmt.Errorf("deactivate application: %w", err)
	}
	existing, err := s.FindByID(ctx, appID)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

func (s *PostgresStore) findOne(ctx context.Context, query string, arg any) (*models.Application, error) {
	app, err := scanApplication(s.execer(ctx).QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find application: %w", err)
	}
	return app, nil
}

func scanApplication(row *sql.Row) (*models.Application, error) {
	var (
		app           models.Application
		status        string
		deactivatedAt sql.NullTime
	)
	if err := row.Scan(&app.AppID, &app.Name, &app.SecretDigest, &status, &app.CreatedAt, &deactivatedAt); err != nil {
		return nil, err
	}
	app.Status = models.Status(status)
	app.CreatedAt = app.CreatedAt.UTC()
	if deactivatedAt.Valid {
		t := deactivatedAt.Time.UTC()
		app.DeactivatedAt = &t
	}
	return &app, nil
}
