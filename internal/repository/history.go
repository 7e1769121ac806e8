package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"family-battle/internal/model"
)

// HistoryRepository reads championship history. Writes happen only
// inside the rollover transaction.
type HistoryRepository struct {
	pool *pgxpool.Pool
}

// NewHistoryRepository creates a new HistoryRepository instance.
func NewHistoryRepository(pool *pgxpool.Pool) *HistoryRepository {
	return &HistoryRepository{pool: pool}
}

// Get retrieves the championship history for a family.
// Returns ErrHistoryNotFound if the feature was never enabled.
func (r *HistoryRepository) Get(ctx context.Context, familyID string) (*model.History, error) {
	const query = `
		SELECT family_id, total_battles, children_wins, parent_wins, streak_team, streak_count, recent_results, updated_at
		FROM battle_history
		WHERE family_id = $1
	`

	var h model.History
	var streakTeam string
	err := r.pool.QueryRow(ctx, query, familyID).Scan(
		&h.FamilyID,
		&h.TotalBattles,
		&h.ChildrenWins,
		&h.ParentWins,
		&streakTeam,
		&h.StreakCount,
		&h.Recent,
		&h.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrHistoryNotFound
		}
		return nil, fmt.Errorf("failed to get battle history: %w", err)
	}
	h.StreakTeam = model.Team(streakTeam)

	return &h, nil
}
