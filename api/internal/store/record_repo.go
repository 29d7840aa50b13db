package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"dp-normalizer/api/internal/fields"
)

type RecordRepo struct{ DB DB }

func NewRecordRepo(db DB) *RecordRepo { return &RecordRepo{DB: db} }

// RecordRow is a normalized record stored against a session.
type RecordRow struct {
	SessionID    string
	Profile      string
	Schema       string
	Record       fields.Record
	FallbackUsed bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Upsert stores the record of a session, replacing any previous one.
func (r *RecordRepo) Upsert(ctx context.Context, row RecordRow) error {
	if row.SessionID == "" {
		return errors.New("session id is empty")
	}
	js, err := json.Marshal(row.Record)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	const q = `
insert into normalized_records (session_id, profile, schema_name, record, fallback_used)
values ($1,$2,$3,$4,$5)
on conflict (session_id) do update
set profile = excluded.profile,
    schema_name = excluded.schema_name,
    record = excluded.record,
    fallback_used = excluded.fallback_used,
    updated_at = now()`
	_, err = r.DB.Exec(ctx, q, row.SessionID, row.Profile, row.Schema, js, row.FallbackUsed)
	return err
}

func (r *RecordRepo) Find(ctx context.Context, sessionID string) (*RecordRow, error) {
	const q = `
select session_id, profile, schema_name, record, fallback_used, created_at, updated_at
from normalized_records
where session_id = $1`
	var (
		row RecordRow
		js  []byte
	)
	err := r.DB.QueryRow(ctx, q, sessionID).Scan(
		&row.SessionID, &row.Profile, &row.Schema, &js, &row.FallbackUsed, &row.CreatedAt, &row.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(js, &row.Record); err != nil {
		return nil, fmt.Errorf("decode record of %s: %w", sessionID, err)
	}
	return &row, nil
}

func (r *RecordRepo) Delete(ctx context.Context, sessionID string) error {
	const q = `delete from normalized_records where session_id = $1`
	tag, err := r.DB.Exec(ctx, q, sessionID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// PurgeOlderThan removes records not updated within olderThan.
func (r *RecordRepo) PurgeOlderThan(ctx context.Context, olderThan time.Duration) (int64, error) {
	if olderThan <= 0 {
		return 0, errors.New("olderThan must be > 0")
	}
	cutoff := time.Now().Add(-olderThan)
	const q = `delete from normalized_records where updated_at < $1`
	tag, err := r.DB.Exec(ctx, q, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
