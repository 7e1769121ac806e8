package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"family-battle/internal/model"
)

// AwardRepository reads the XP ledger. Awards are written only inside
// the rollover transaction.
type AwardRepository struct {
	pool *pgxpool.Pool
}

// NewAwardRepository creates a new AwardRepository instance.
func NewAwardRepository(pool *pgxpool.Pool) *AwardRepository {
	return &AwardRepository{pool: pool}
}

// ListByWeek returns the awards granted to a family's children for one
// closed week, MVP first then by member id.
func (r *AwardRepository) ListByWeek(ctx context.Context, familyID string, weekNumber int) ([]*model.XPAward, error) {
	const query = `
		SELECT family_id, member_id, week_number, amount, mvp, created_at
		FROM xp_awards
		WHERE family_id = $1 AND week_number = $2
		ORDER BY mvp DESC, member_id
	`

	return r.list(ctx, query, familyID, weekNumber)
}

// ListByFamily returns a family's full XP ledger, newest week first.
func (r *AwardRepository) ListByFamily(ctx context.Context, familyID string) ([]*model.XPAward, error) {
	const query = `
		SELECT family_id, member_id, week_number, amount, mvp, created_at
		FROM xp_awards
		WHERE family_id = $1
		ORDER BY week_number DESC, mvp DESC, member_id
	`

	return r.list(ctx, query, familyID)
}

func (r *AwardRepository) list(ctx context.Context, query string, args ...any) ([]*model.XPAward, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list xp awards: %w", err)
	}
	defer rows.Close()

	var awards []*model.XPAward
	for rows.Next() {
		var a model.XPAward
		err := rows.Scan(
			&a.FamilyID,
			&a.MemberID,
			&a.WeekNumber,
			&a.Amount,
			&a.MVP,
			&a.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan xp award: %w", err)
		}
		awards = append(awards, &a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating xp awards: %w", err)
	}

	return awards, nil
}
