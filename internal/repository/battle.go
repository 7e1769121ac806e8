// Package repository provides data access layer implementations.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"family-battle/internal/model"
)

// Common errors for repository operations.
var (
	ErrBattleNotFound  = errors.New("battle record not found")
	ErrHistoryNotFound = errors.New("battle history not found")
)

// dateFormat is the wire format for DATE columns.
const dateFormat = "2006-01-02"

// BattleRepository handles battle record persistence.
type BattleRepository struct {
	pool *pgxpool.Pool
}

// NewBattleRepository creates a new BattleRepository instance.
func NewBattleRepository(pool *pgxpool.Pool) *BattleRepository {
	return &BattleRepository{pool: pool}
}

// Create opens a zeroed battle record for the given week, together with
// an empty championship history. Enabling an already-enabled family is
// a no-op.
func (r *BattleRepository) Create(ctx context.Context, familyID string, weekNumber int, weekStart time.Time) error {
	const recordQuery = `
		INSERT INTO battle_records (family_id, week_number, week_start, children_total, parents_total, children_breakdown, parents_breakdown, updated_at)
		VALUES ($1, $2, $3, 0, 0, '{}'::jsonb, '{}'::jsonb, NOW())
		ON CONFLICT (family_id) DO NOTHING
	`
	const historyQuery = `
		INSERT INTO battle_history (family_id, total_battles, children_wins, parent_wins, streak_team, streak_count, recent_results, updated_at)
		VALUES ($1, 0, 0, 0, '', 0, '[]'::jsonb, NOW())
		ON CONFLICT (family_id) DO NOTHING
	`

	if _, err := r.pool.Exec(ctx, recordQuery, familyID, weekNumber, weekStart.Format(dateFormat)); err != nil {
		return fmt.Errorf("failed to create battle record: %w", err)
	}
	if _, err := r.pool.Exec(ctx, historyQuery, familyID); err != nil {
		return fmt.Errorf("failed to create battle history: %w", err)
	}
	return nil
}

// Get retrieves the current battle record for a family.
// Returns ErrBattleNotFound if the feature was never enabled.
func (r *BattleRepository) Get(ctx context.Context, familyID string) (*model.BattleRecord, error) {
	const query = `
		SELECT family_id, week_number, week_start, children_total, parents_total, children_breakdown, parents_breakdown, updated_at
		FROM battle_records
		WHERE family_id = $1
	`

	var rec model.BattleRecord
	err := r.pool.QueryRow(ctx, query, familyID).Scan(
		&rec.FamilyID,
		&rec.WeekNumber,
		&rec.WeekStart,
		&rec.ChildrenTotal,
		&rec.ParentsTotal,
		&rec.ChildrenBreakdown,
		&rec.ParentsBreakdown,
		&rec.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBattleNotFound
		}
		return nil, fmt.Errorf("failed to get battle record: %w", err)
	}

	return &rec, nil
}

// UpdateTotals overwrites the record's totals and breakdowns with a
// fresh aggregation. The week_number guard makes a laggy refresh
// against an already rolled-over record a no-op instead of corrupting
// the new week; the returned bool reports whether the write applied.
// Totals are recomputed from source data, so last writer wins is safe.
func (r *BattleRepository) UpdateTotals(ctx context.Context, familyID string, weekNumber int, children, parents model.Breakdown) (bool, error) {
	const query = `
		UPDATE battle_records
		SET children_total = $3, parents_total = $4, children_breakdown = $5, parents_breakdown = $6, updated_at = NOW()
		WHERE family_id = $1 AND week_number = $2
	`

	tag, err := r.pool.Exec(ctx, query,
		familyID, weekNumber,
		children.Total(), parents.Total(),
		children, parents,
	)
	if err != nil {
		return false, fmt.Errorf("failed to update battle totals: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

// FamilyIDs returns every family with the battle feature enabled,
// ordered for stable poller sweeps.
func (r *BattleRepository) FamilyIDs(ctx context.Context) ([]string, error) {
	const query = `SELECT family_id FROM battle_records ORDER BY family_id`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list battle families: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan family id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating battle families: %w", err)
	}

	return ids, nil
}
