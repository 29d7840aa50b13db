package store

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dp-normalizer/api/internal/fields"
)

func TestRecordRepo_Upsert(t *testing.T) {
	t.Run("Should upsert the record as json", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()
		repo := NewRecordRepo(mock)

		mock.ExpectExec("insert into normalized_records").
			WithArgs("s1", "qwen", "core", []byte(`{"couleur_facade":"RAL 9010","etat_initial":"maison"}`), true).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		err = repo.Upsert(context.Background(), RecordRow{
			SessionID:    "s1",
			Profile:      "qwen",
			Schema:       "core",
			Record:       fields.Record{"etat_initial": "maison", "couleur_facade": "RAL 9010"},
			FallbackUsed: true,
		})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Should refuse an empty session id", func(t *testing.T) {
		err := NewRecordRepo(nil).Upsert(context.Background(), RecordRow{})
		require.Error(t, err)
	})
}

func TestRecordRepo_Find(t *testing.T) {
	t.Run("Should decode the stored record", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()
		now := time.Now()
		rows := mock.NewRows([]string{"session_id", "profile", "schema_name", "record", "fallback_used", "created_at", "updated_at"}).
			AddRow("s1", "nemotron", "core", []byte(`{"etat_initial":"maison"}`), false, now, now)
		mock.ExpectQuery("select (.+) from normalized_records where session_id = \\$1").
			WithArgs("s1").
			WillReturnRows(rows)

		row, err := NewRecordRepo(mock).Find(context.Background(), "s1")
		require.NoError(t, err)
		assert.Equal(t, "nemotron", row.Profile)
		assert.Equal(t, fields.Record{"etat_initial": "maison"}, row.Record)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Should map no rows to ErrNotFound", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()
		mock.ExpectQuery("select (.+) from normalized_records").
			WithArgs("missing").
			WillReturnError(pgx.ErrNoRows)

		_, err = NewRecordRepo(mock).Find(context.Background(), "missing")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestRecordRepo_Delete(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	mock.ExpectExec("delete from normalized_records where session_id").
		WithArgs("s1").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	err = NewRecordRepo(mock).Delete(context.Background(), "s1")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordRepo_PurgeOlderThan(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	mock.ExpectExec("delete from normalized_records where updated_at").
		WithArgs(pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("DELETE", 3))

	repo := NewRecordRepo(mock)
	n, err := repo.PurgeOlderThan(context.Background(), 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	_, err = repo.PurgeOlderThan(context.Background(), 0)
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttemptRepo(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	repo := NewAttemptRepo(mock)
	ctx := context.Background()

	mock.ExpectExec("insert into normalization_attempts").
		WithArgs("s1", "qwen", "fallback_exhausted", 2, []string{"couleur_volets"}).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	require.NoError(t, repo.Insert(ctx, Attempt{
		SessionID: "s1", Profile: "qwen", Outcome: "fallback_exhausted", ModelCalls: 2, Missing: []string{"couleur_volets"},
	}))

	now := time.Now()
	mock.ExpectQuery("select (.+) from normalization_attempts").
		WithArgs("s1", 20).
		WillReturnRows(mock.NewRows([]string{"session_id", "profile", "outcome", "model_calls", "missing", "created_at"}).
			AddRow("s1", "qwen", "fallback_exhausted", 2, []string{"couleur_volets"}, now).
			AddRow("s1", "qwen", "success", 1, []string{}, now))
	got, err := repo.ListBySession(ctx, "s1", 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "success", got[1].Outcome)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureSchema(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	mock.ExpectExec("create table if not exists normalized_records").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	require.NoError(t, EnsureSchema(context.Background(), mock))
	assert.NoError(t, mock.ExpectationsWereMet())
}
