package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"swipe_server/core/domain"
	"swipe_server/core/port/out"
)

const applyRecordsSchema = `
CREATE TABLE IF NOT EXISTS apply_records (
	id                UUID PRIMARY KEY,
	card_id           TEXT NOT NULL UNIQUE,
	subject           TEXT NOT NULL DEFAULT '',
	tags              TEXT[] NOT NULL DEFAULT '{}',
	applied_at        TIMESTAMPTZ NOT NULL,
	calendar_event_id TEXT
)`

// PostgresApplyStore keeps apply records in Postgres.
type PostgresApplyStore struct {
	db *sqlx.DB
}

var _ out.ApplyStore = (*PostgresApplyStore)(nil)

func NewPostgresApplyStore(db *sqlx.DB) *PostgresApplyStore {
	return &PostgresApplyStore{db: db}
}

// EnsureSchema creates the apply_records table when missing.
func (s *PostgresApplyStore) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, applyRecordsSchema)
	return err
}

// applyRecordRow represents the database row for an apply record.
type applyRecordRow struct {
	ID              uuid.UUID      `db:"id"`
	CardID          string         `db:"card_id"`
	Subject         string         `db:"subject"`
	Tags            pq.StringArray `db:"tags"`
	AppliedAt       time.Time      `db:"applied_at"`
	CalendarEventID sql.NullString `db:"calendar_event_id"`
}

func (r *applyRecordRow) toEntity() *domain.ApplyRecord {
	rec := &domain.ApplyRecord{
		CardID:    r.CardID,
		Subject:   r.Subject,
		Tags:      []string(r.Tags),
		AppliedAt: r.AppliedAt.UTC(),
	}
	if r.CalendarEventID.Valid {
		rec.CalendarEventID = r.CalendarEventID.String
	}
	return rec
}

func newApplyRecordRow(rec *domain.ApplyRecord) *applyRecordRow {
	tags := rec.Tags
	if tags == nil {
		tags = []string{}
	}
	return &applyRecordRow{
		ID:              uuid.New(),
		CardID:          rec.CardID,
		Subject:         rec.Subject,
		Tags:            pq.StringArray(tags),
		AppliedAt:       rec.AppliedAt,
		CalendarEventID: sql.NullString{String: rec.CalendarEventID, Valid: rec.CalendarEventID != ""},
	}
}

// Get returns the record for cardID, or nil.
func (s *PostgresApplyStore) Get(ctx context.Context, cardID string) (*domain.ApplyRecord, error) {
	var row applyRecordRow
	query := `SELECT id, card_id, subject, tags, applied_at, calendar_event_id
		FROM apply_records WHERE card_id = $1`
	if err := s.db.GetContext(ctx, &row, query, cardID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get apply record: %w", err)
	}
	return row.toEntity(), nil
}

// PutIfAbsent inserts rec unless the card already has a record.
func (s *PostgresApplyStore) PutIfAbsent(ctx context.Context, rec *domain.ApplyRecord) (*domain.ApplyRecord, bool, error) {
	if rec == nil || rec.CardID == "" {
		return nil, false, ErrInvalidInput
	}

	query := `INSERT INTO apply_records (id, card_id, subject, tags, applied_at, calendar_event_id)
		VALUES (:id, :card_id, :subject, :tags, :applied_at, :calendar_event_id)
		ON CONFLICT (card_id) DO NOTHING`
	result, err := s.db.NamedExecContext(ctx, query, newApplyRecordRow(rec))
	if err != nil {
		return nil, false, fmt.Errorf("insert apply record: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return nil, false, err
	}
	if affected == 1 {
		return cloneRecord(rec), true, nil
	}

	existing, err := s.Get(ctx, rec.CardID)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}
