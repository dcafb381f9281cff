package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	id "kyra/pkg/domain"
	audit "kyra/pkg/platform/audit"
	txcontext "kyra/pkg/platform/tx"
)

// Store implements audit.Store on PostgreSQL. Events are append-only; the
// table is the durable history the single-row status register does not keep.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Schema returns the DDL for the audit table.
func Schema() string {
	return `
CREATE TABLE IF NOT EXISTS case_audit (
    id         UUID PRIMARY KEY,
    case_id    UUID NOT NULL,
    actor_id   TEXT NOT NULL DEFAULT '',
    action     TEXT NOT NULL,
    decision   TEXT NOT NULL DEFAULT '',
    reason     TEXT NOT NULL DEFAULT '',
    request_id TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_case_audit_case_id ON case_audit (case_id, created_at);
`
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *Store) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *Store) Append(ctx context.Context, event audit.Event) error {
	_, err := s.execer(ctx).ExecContext(ctx, `
		INSERT INTO case_audit (id, case_id, actor_id, action, decision, reason, request_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		uuid.New(), uuid.UUID(event.CaseID), event.ActorID, event.Action,
		event.Decision, event.Reason, event.RequestID, event.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}
	return nil
}

func (s *Store) ListByCase(ctx context.Context, caseID id.CaseID) ([]audit.Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT case_id, actor_id, action, decision, reason, request_id, created_at
		FROM case_audit WHERE case_id = $1 ORDER BY created_at`,
		uuid.UUID(caseID),
	)
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()

	var events []audit.Event
	for rows.Next() {
		var event audit.Event
		var caseUUID uuid.UUID
		if err := rows.Scan(&caseUUID, &event.ActorID, &event.Action, &event.Decision,
			&event.Reason, &event.RequestID, &event.Timestamp); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		event.CaseID = id.CaseID(caseUUID)
		events = append(events, event)
	}
	return events, rows.Err()
}
