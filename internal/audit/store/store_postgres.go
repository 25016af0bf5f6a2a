package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"consentledger/internal/audit/models"
	id "consentledger/pkg/domain"
	"consentledger/pkg/platform/sentinel"
	txcontext "consentledger/pkg/platform/tx"
)

// PostgresStore writes the access trail to access_logs. A trigger rejects
// UPDATE and DELETE on that table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) execer(ctx context.Context) txcontext.Executor {
	return txcontext.Conn(ctx, s.db)
}

const uniqueViolation = "23505"

// Append inserts one row in a single statement.
func (s *PostgresStore) Append(ctx context.Context, e *models.AccessLogEntry) error {
	_, err := s.execer(ctx).ExecContext(ctx, `
		INSERT INTO access_logs (id, user_id, app_id, data_type, purpose, result, reason, request_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		uuid.UUID(e.ID), e.UserID, e.AppID, e.DataType, e.Purpose,
		string(e.Result), e.Reason, e.RequestID, e.CreatedAt.UTC(),
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert access log: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID string) ([]*models.AccessLogEntry, error) {
	rows, err := s.execer(ctx).QueryContext(ctx, `
		SELECT id, user_id, app_id, data_type, purpose, result, reason, request_id, created_at
		FROM access_logs
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list access logs: %w", err)
	}
	defer rows.Close()

	out := make([]*models.AccessLogEntry, 0)
	for rows.Next() {
		var (
			e      models.AccessLogEntry
			rawID  uuid.UUID
			result string
			reason sql.NullString
		)
		if err := rows.Scan(&rawID, &e.UserID, &e.AppID, &e.DataType, &e.Purpose, &result, &reason, &e.RequestID, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan access log: %w", err)
		}
		e.ID = id.AccessLogID(rawID)
		e.Result = models.Result(result)
		if reason.Valid {
			r := reason.String
			e.Reason = &r
		}
		e.CreatedAt = e.CreatedAt.UTC()
		out = append(out, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate access logs: %w", err)
	}
	return out, nil
}
