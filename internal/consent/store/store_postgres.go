package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"consentledger/internal/consent/models"
	id "consentledger/pkg/domain"
	"consentledger/pkg/platform/sentinel"
	txcontext "consentledger/pkg/platform/tx"
)

// PostgresStore persists consents in the consents table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) execer(ctx context.Context) txcontext.Executor {
	return txcontext.Conn(ctx, s.db)
}

const consentColumns = `id, user_id, app_id, data_type, purpose, status, expires_at, created_at, revoked_at`

// uniqueViolation is the Postgres SQLSTATE for a duplicate key.
const uniqueViolation = "23505"

func (s *PostgresStore) Create(ctx context.Context, c *models.Consent) error {
	_, err := s.execer(ctx).ExecContext(ctx, `
		INSERT INTO consents (`+consentColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		uuid.UUID(c.ID), c.UserID, c.AppID, c.DataType, c.Purpose,
		string(c.Status), c.ExpiresAt, c.CreatedAt, c.RevokedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert consent: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, consentID id.ConsentID) (*models.Consent, error) {
	row := s.execer(ctx).QueryRowContext(ctx,
		`SELECT `+consentColumns+` FROM consents WHERE id = $1`, uuid.UUID(consentID))
	c, err := scanConsent(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find consent: %w", err)
	}
	return c, nil
}

// Revoke flips an active row in a single statement so a concurrent
// FindActive sees either the old or the new state, never a mix. An already
// revoked row is returned unchanged with changed=false.
func (s *PostgresStore) Revoke(ctx context.Context, consentID id.ConsentID, now time.Time) (*models.Consent, bool, error) {
	row := s.execer(ctx).QueryRowContext(ctx, `
		UPDATE consents
		SET status = 'revoked', revoked_at = $2
		WHERE id = $1 AND status = 'active'
		RETURNING `+consentColumns,
		uuid.UUID(consentID), now.UTC(),
	)
	c, err := scanConsent(row)
	if err == nil {
		return c, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, fmt.Errorf("revoke consent: %w", err)
	}

	existing, err := s.FindByID(ctx, consentID)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID string) ([]*models.Consent, error) {
	rows, err := s.execer(ctx).QueryContext(ctx, `
		SELECT `+consentColumns+`
		FROM consents
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list consents: %w", err)
	}
	defer rows.Close()

	out := make([]*models.Consent, 0)
	for rows.Next() {
		c, err := scanConsent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan consent: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate consents: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) FindActive(ctx context.Context, userID, appID, dataType, purpose string) (*models.Consent, error) {
	row := s.execer(ctx).QueryRowContext(ctx, `
		SELECT `+consentColumns+`
		FROM consents
		WHERE user_id = $1 AND app_id = $2 AND data_type = $3 AND purpose = $4
		  AND status = 'active'
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`, userID, appID, dataType, purpose)
	c, err := scanConsent(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find active consent: %w", err)
	}
	return c, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanConsent(row scanner) (*models.Consent, error) {
	var (
		c         models.Consent
		rawID     uuid.UUID
		status    string
		expiresAt sql.NullTime
		revokedAt sql.NullTime
	)
	if err := row.Scan(&rawID, &c.UserID, &c.AppID, &c.DataType, &c.Purpose,
		&status, &expiresAt, &c.CreatedAt, &revokedAt); err != nil {
		return nil, err
	}
	c.ID = id.ConsentID(rawID)
	c.Status = models.Status(status)
	c.CreatedAt = c.CreatedAt.UTC()
	if expiresAt.Valid {
		t := expiresAt.Time.UTC()
		c.ExpiresAt = &t
	}
	if revokedAt.Valid {
		t := revokedAt.Time.UTC()
		c.RevokedAt = &t
	}
	return &c, nil
}
