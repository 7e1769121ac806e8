package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// SessionRepository handles per-member daily reading-minute totals.
// This is the source of truth the aggregator recomputes from.
type SessionRepository struct {
	pool *pgxpool.Pool
}

// NewSessionRepository creates a new SessionRepository instance.
func NewSessionRepository(pool *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

// Record upserts a member's reading total for one day. Re-recording the
// same day overwrites rather than accumulates, so client retries cannot
// double-count.
func (r *SessionRepository) Record(ctx context.Context, memberID string, day time.Time, minutes int64) error {
	const query = `
		INSERT INTO reading_sessions (member_id, session_date, minutes)
		VALUES ($1, $2, $3)
		ON CONFLICT (member_id, session_date) DO UPDATE SET minutes = EXCLUDED.minutes
	`

	if _, err := r.pool.Exec(ctx, query, memberID, day.Format(dateFormat), minutes); err != nil {
		return fmt.Errorf("failed to record reading session: %w", err)
	}
	return nil
}

// MinutesInRange sums a member's reading minutes over [from, to).
// Unknown members sum to zero rather than erroring, and any malformed
// negative daily value stored by an old client counts as zero.
func (r *SessionRepository) MinutesInRange(ctx context.Context, memberID string, from, to time.Time) (int64, error) {
	const query = `
		SELECT COALESCE(SUM(GREATEST(minutes, 0)), 0)
		FROM reading_sessions
		WHERE member_id = $1
		  AND session_date >= $2
		  AND session_date < $3
	`

	var minutes int64
	err := r.pool.QueryRow(ctx, query, memberID, from.Format(dateFormat), to.Format(dateFormat)).Scan(&minutes)
	if err != nil {
		return 0, fmt.Errorf("failed to sum reading minutes: %w", err)
	}

	return minutes, nil
}
