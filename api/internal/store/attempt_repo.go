package store

import (
	"context"
	"time"
)

// AttemptRepo keeps an audit trail of normalizations, failed ones included.
type AttemptRepo struct{ DB DB }

func NewAttemptRepo(db DB) *AttemptRepo { return &AttemptRepo{DB: db} }

type Attempt struct {
	SessionID  string
	Profile    string
	Outcome    string
	ModelCalls int
	Missing    []string
	CreatedAt  time.Time
}

func (r *AttemptRepo) Insert(ctx context.Context, a Attempt) error {
	missing := a.Missing
	if missing == nil {
		missing = []string{}
	}
	const q = `
insert into normalization_attempts (session_id, profile, outcome, model_calls, missing)
values ($1,$2,$3,$4,$5)`
	_, err := r.DB.Exec(ctx, q, a.SessionID, a.Profile, a.Outcome, a.ModelCalls, missing)
	return err
}

// ListBySession returns the attempts of a session, newest first.
func (r *AttemptRepo) ListBySession(ctx context.Context, sessionID string, limit int) ([]Attempt, error) {
	if limit <= 0 {
		limit = 20
	}
	const q = `
select session_id, profile, outcome, model_calls, missing, created_at
from normalization_attempts
where session_id = $1
order by created_at desc
limit $2`
	rows, err := r.DB.Query(ctx, q, sessionID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Attempt
	for rows.Next() {
		var a Attempt
		if err := rows.Scan(&a.SessionID, &a.Profile, &a.Outcome, &a.ModelCalls, &a.Missing, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
