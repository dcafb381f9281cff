package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"kyra/internal/kyc/models"
	id "kyra/pkg/domain"
	"kyra/pkg/platform/sentinel"
)

// Postgres persists cases in two tables: kyc_cases (document and notes as
// JSONB) and kyc_status (one row per case, versioned). Document and notes
// merges use the JSONB concatenation operator so only the patched top-level
// blocks are rewritten; status mutations run under SELECT ... FOR UPDATE with
// a version check.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// Schema returns the DDL for the case tables.
func Schema() string {
	return `
CREATE TABLE IF NOT EXISTS kyc_cases (
    case_id    UUID PRIMARY KEY,
    user_id    UUID NOT NULL,
    email      TEXT NOT NULL,
    mobile     TEXT NOT NULL DEFAULT '',
    document   JSONB NOT NULL DEFAULT '{}',
    notes      JSONB NOT NULL DEFAULT '{}',
    created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_kyc_cases_email ON kyc_cases (email);
CREATE INDEX IF NOT EXISTS idx_kyc_cases_created_at ON kyc_cases (created_at);

CREATE TABLE IF NOT EXISTS kyc_status (
    case_id    UUID PRIMARY KEY REFERENCES kyc_cases (case_id) ON DELETE CASCADE,
    user_id    UUID NOT NULL,
    admin_id   UUID,
    status     TEXT NOT NULL,
    changed_at TIMESTAMPTZ NOT NULL,
    version    BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_kyc_status_status ON kyc_status (status);
`
}

func (s *Postgres) CreateCase(ctx context.Context, sub *models.Submission, record *models.StatusRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create case: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	document, err := json.Marshal(sub.Document)
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}
	notes, err := json.Marshal(sub.Notes)
	if err != nil {
		return fmt.Errorf("marshal notes: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO kyc_cases (case_id, user_id, email, mobile, document, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		uuid.UUID(sub.CaseID), uuid.UUID(sub.UserID), sub.Email, sub.Mobile,
		document, notes, sub.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert case: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO kyc_status (case_id, user_id, admin_id, status, changed_at, version)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		uuid.UUID(record.CaseID), uuid.UUID(record.UserID), nullableAdmin(record.AdminID),
		string(record.State), record.ChangedAt, record.Version,
	)
	if err != nil {
		return fmt.Errorf("insert status: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create case: %w", err)
	}
	return nil
}

func (s *Postgres) FindSubmission(ctx context.Context, caseID id.CaseID) (*models.Submission, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT case_id, user_id, email, mobile, document, notes, created_at
		FROM kyc_cases WHERE case_id = $1`,
		uuid.UUID(caseID),
	)
	return scanSubmission(row)
}

func (s *Postgres) FindStatus(ctx context.Context, caseID id.CaseID) (*models.StatusRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT case_id, user_id, admin_id, status, changed_at, version
		FROM kyc_status WHERE case_id = $1`,
		uuid.UUID(caseID),
	)
	return scanStatus(row)
}

func (s *Postgres) MergeDocument(ctx context.Context, caseID id.CaseID, patch models.Document) (*models.Submission, error) {
	payload, err := json.Marshal(patch)
	if err != nil {
		return nil, fmt.Errorf("marshal document patch: %w", err)
	}
	row := s.db.QueryRowContext(ctx, `
		UPDATE kyc_cases SET document = document || $2::jsonb
		WHERE case_id = $1
		RETURNING case_id, user_id, email, mobile, document, notes, created_at`,
		uuid.UUID(caseID), payload,
	)
	return scanSubmission(row)
}

func (s *Postgres) MergeNotes(ctx context.Context, caseID id.CaseID, patch models.Notes) (*models.Submission, error) {
	payload, err := json.Marshal(patch)
	if err != nil {
		return nil, fmt.Errorf("marshal notes patch: %w", err)
	}
	row := s.db.QueryRowContext(ctx, `
		UPDATE kyc_cases SET notes = notes || $2::jsonb
		WHERE case_id = $1
		RETURNING case_id, user_id, email, mobile, document, notes, created_at`,
		uuid.UUID(caseID), payload,
	)
	return scanSubmission(row)
}

func (s *Postgres) ResetDocument(ctx context.Context, caseID id.CaseID) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE kyc_cases SET document = '{}'::jsonb WHERE case_id = $1`,
		uuid.UUID(caseID),
	)
	if err != nil {
		return fmt.Errorf("reset document: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("reset document: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

// ExecuteStatus locks the status row, validates, mutates, and writes it back
// with a version guard. A concurrent writer that slipped past the row lock
// (e.g. a retried transaction) trips the version check and gets ErrConflict.
func (s *Postgres) ExecuteStatus(
	ctx context.Context,
	caseID id.CaseID,
	validate func(*models.StatusRecord) error,
	mutate func(*models.StatusRecord),
) (*models.StatusRecord, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin status update: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(ctx, `
		SELECT case_id, user_id, admin_id, status, changed_at, version
		FROM kyc_status WHERE case_id = $1 FOR UPDATE`,
		uuid.UUID(caseID),
	)
	record, err := scanStatus(row)
	if err != nil {
		return nil, err
	}

	previousVersion := record.Version
	if validate != nil {
		if err := validate(record); err != nil {
			return nil, err
		}
	}
	mutate(record)

	result, err := tx.ExecContext(ctx, `
		UPDATE kyc_status
		SET admin_id = $2, status = $3, changed_at = $4, version = $5
		WHERE case_id = $1 AND version = $6`,
		uuid.UUID(caseID), nullableAdmin(record.AdminID), string(record.State),
		record.ChangedAt, record.Version, previousVersion,
	)
	if err != nil {
		return nil, fmt.Errorf("update status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("update status: %w", err)
	}
	if affected == 0 {
		return nil, sentinel.ErrConflict
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit status update: %w", err)
	}
	return record, nil
}

func (s *Postgres) List(ctx context.Context, filter ListFilter) ([]CaseSummary, int, error) {
	conditions := []string{"TRUE"}
	args := []any{}
	if filter.Status != nil {
		args = append(args, string(*filter.Status))
		conditions = append(conditions, fmt.Sprintf("st.status = $%d", len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		n := len(args)
		conditions = append(conditions, fmt.Sprintf(
			"(c.email ILIKE $%d OR c.document->'personal'->>'name' ILIKE $%d OR c.case_id::text ILIKE $%d)", n, n, n))
	}
	where := strings.Join(conditions, " AND ")

	var total int
	countQuery := fmt.Sprintf(`
		SELECT count(*) FROM kyc_cases c
		JOIN kyc_status st ON st.case_id = c.case_id
		WHERE %s`, where)
	if err := s.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count cases: %w", err)
	}

	size := filter.Size
	if size <= 0 {
		size = 10
	}
	args = append(args, size, filter.Page*size)
	query := fmt.Sprintf(`
		SELECT c.case_id, COALESCE(c.document->'personal'->>'name', ''), c.email, st.status, c.created_at
		FROM kyc_cases c
		JOIN kyc_status st ON st.case_id = c.case_id
		WHERE %s
		ORDER BY c.created_at DESC
		LIMIT $%d OFFSET $%d`, where, len(args)-1, len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list cases: %w", err)
	}
	defer rows.Close()

	var summaries []CaseSummary
	for rows.Next() {
		var summary CaseSummary
		var caseUUID uuid.UUID
		var state string
		if err := rows.Scan(&caseUUID, &summary.Name, &summary.Email, &state, &summary.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan case summary: %w", err)
		}
		summary.CaseID = id.CaseID(caseUUID)
		summary.State = models.Status(state)
		summaries = append(summaries, summary)
	}
	return summaries, total, rows.Err()
}

func (s *Postgres) CountByStatus(ctx context.Context) (map[models.Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, count(*) FROM kyc_status GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[models.Status]int)
	for rows.Next() {
		var state string
		var count int
		if err := rows.Scan(&state, &count); err != nil {
			return nil, fmt.Errorf("scan status count: %w", err)
		}
		counts[models.Status(state)] = count
	}
	return counts, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSubmission(row rowScanner) (*models.Submission, error) {
	var sub models.Submission
	var caseUUID, userUUID uuid.UUID
	var document, notes []byte
	err := row.Scan(&caseUUID, &userUUID, &sub.Email, &sub.Mobile, &document, &notes, &sub.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan submission: %w", err)
	}
	sub.CaseID = id.CaseID(caseUUID)
	sub.UserID = id.UserID(userUUID)
	if err := json.Unmarshal(document, &sub.Document); err != nil {
		return nil, fmt.Errorf("unmarshal document: %w", err)
	}
	if err := json.Unmarshal(notes, &sub.Notes); err != nil {
		return nil, fmt.Errorf("unmarshal notes: %w", err)
	}
	return &sub, nil
}

func scanStatus(row rowScanner) (*models.StatusRecord, error) {
	var record models.StatusRecord
	var caseUUID, userUUID uuid.UUID
	var adminUUID uuid.NullUUID
	var state string
	err := row.Scan(&caseUUID, &userUUID, &adminUUID, &state, &record.ChangedAt, &record.Version)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan status: %w", err)
	}
	record.CaseID = id.CaseID(caseUUID)
	record.UserID = id.UserID(userUUID)
	record.State = models.Status(state)
	if adminUUID.Valid {
		record.AdminID = id.AdminID(adminUUID.UUID)
	}
	return &record, nil
}

func nullableAdmin(adminID id.AdminID) uuid.NullUUID {
	if adminID.IsNil() {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: uuid.UUID(adminID), Valid: true}
}

func isUniqueViolation(err error) bool {
	// lib/pq error code 23505
	return err != nil && strings.Contains(err.Error(), "23505")
}
