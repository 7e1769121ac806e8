package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"family-battle/internal/battle/history"
	"family-battle/internal/battle/outcome"
	"family-battle/internal/battle/reward"
	"family-battle/internal/battle/week"
	"family-battle/internal/model"
)

// maxRolloverAttempts bounds retries of the rollover transaction on
// serialization failures.
const maxRolloverAttempts = 3

// RolloverResult reports what a rollover attempt did.
type RolloverResult struct {
	// Advanced is true when this call closed the stale week. False
	// means another process got there first and this call no-opped.
	Advanced bool
	// Closed is the outcome committed to history; set only when
	// Advanced is true.
	Closed *model.WeekResult
	// FinalStatus is the frozen status line for the closed week.
	FinalStatus string
	// Awards holds the XP granted per child for the closed week.
	Awards map[string]reward.Award
}

// RolloverEngine commits a stale week to championship history and opens
// a fresh record, atomically. It is the only writer of battle_history
// and xp_awards.
type RolloverEngine struct {
	pool    *pgxpool.Pool
	rewards *reward.Calculator
}

// NewRolloverEngine creates a new RolloverEngine instance.
func NewRolloverEngine(pool *pgxpool.Pool, rewards *reward.Calculator) *RolloverEngine {
	return &RolloverEngine{pool: pool, rewards: rewards}
}

// Advance closes the family's battle record if it is stale relative to
// target and opens a zeroed record for target. The record is read under
// a row lock, so of any number of concurrent callers at most one
// performs the close; the rest observe the advanced week and return
// Advanced=false. History update, XP awards and record reset commit
// together or not at all. Serialization failures retry the whole
// read-resolve-write cycle.
func (e *RolloverEngine) Advance(ctx context.Context, familyID string, target week.Week) (*RolloverResult, error) {
	var lastErr error
	for attempt := 1; attempt <= maxRolloverAttempts; attempt++ {
		result, err := e.advanceOnce(ctx, familyID, target)
		if err == nil {
			return result, nil
		}
		if !isRetryable(err) {
			return nil, err
		}
		lastErr = err
		log.Warn().
			Str("family_id", familyID).
			Int("attempt", attempt).
			Err(err).
			Msg("Rollover transaction conflicted, retrying")
	}
	return nil, fmt.Errorf("rollover did not commit after %d attempts: %w", maxRolloverAttempts, lastErr)
}

func (e *RolloverEngine) advanceOnce(ctx context.Context, familyID string, target week.Week) (*RolloverResult, error) {
	tx, err := e.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin rollover transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	rec, err := lockRecord(ctx, tx, familyID)
	if err != nil {
		return nil, err
	}

	// Another process already advanced the week; nothing to do.
	if !week.DateBefore(rec.WeekStart, target.Start) {
		return &RolloverResult{Advanced: false}, nil
	}

	final := outcome.Close(rec.ChildrenTotal, rec.ParentsTotal)
	result := model.WeekResult{
		WeekNumber: rec.WeekNumber,
		Winner:     final.Winner,
		Margin:     final.Margin,
	}

	hist, err := lockHistory(ctx, tx, familyID)
	if err != nil {
		return nil, err
	}
	updated := history.Apply(hist, result)

	const historyQuery = `
		UPDATE battle_history
		SET total_battles = $2, children_wins = $3, parent_wins = $4, streak_team = $5, streak_count = $6, recent_results = $7, updated_at = NOW()
		WHERE family_id = $1
	`
	if _, err := tx.Exec(ctx, historyQuery,
		familyID,
		updated.TotalBattles, updated.ChildrenWins, updated.ParentWins,
		string(updated.StreakTeam), updated.StreakCount, updated.Recent,
	); err != nil {
		return nil, fmt.Errorf("failed to update battle history: %w", err)
	}

	awards := e.rewards.Calculate(rec.ChildrenBreakdown, final.Winner)
	const awardQuery = `
		INSERT INTO xp_awards (family_id, member_id, week_number, amount, mvp, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (family_id, member_id, week_number) DO NOTHING
	`
	for memberID, a := range awards {
		if _, err := tx.Exec(ctx, awardQuery, familyID, memberID, rec.WeekNumber, a.Amount, a.MVP); err != nil {
			return nil, fmt.Errorf("failed to insert xp award: %w", err)
		}
	}

	const resetQuery = `
		UPDATE battle_records
		SET week_number = $2, week_start = $3, children_total = 0, parents_total = 0,
		    children_breakdown = '{}'::jsonb, parents_breakdown = '{}'::jsonb, updated_at = NOW()
		WHERE family_id = $1
	`
	if _, err := tx.Exec(ctx, resetQuery, familyID, target.Number, target.Start.Format(dateFormat)); err != nil {
		return nil, fmt.Errorf("failed to reset battle record: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit rollover: %w", err)
	}

	log.Info().
		Str("family_id", familyID).
		Int("closed_week", rec.WeekNumber).
		Int("new_week", target.Number).
		Str("winner", string(final.Winner)).
		Int64("margin", final.Margin).
		Msg("Week rolled over")

	return &RolloverResult{
		Advanced:    true,
		Closed:      &result,
		FinalStatus: final.FinalStatus,
		Awards:      awards,
	}, nil
}

// lockRecord reads the battle record under FOR UPDATE within tx.
func lockRecord(ctx context.Context, tx pgx.Tx, familyID string) (*model.BattleRecord, error) {
	const query = `
		SELECT family_id, week_number, week_start, children_total, parents_total, children_breakdown, parents_breakdown, updated_at
		FROM battle_records
		WHERE family_id = $1
		FOR UPDATE
	`

	var rec model.BattleRecord
	err := tx.QueryRow(ctx, query, familyID).Scan(
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
		return nil, fmt.Errorf("failed to lock battle record: %w", err)
	}

	return &rec, nil
}

// lockHistory reads the championship history under FOR UPDATE within tx.
func lockHistory(ctx context.Context, tx pgx.Tx, familyID string) (model.History, error) {
	const query = `
		SELECT family_id, total_battles, children_wins, parent_wins, streak_team, streak_count, recent_results, updated_at
		FROM battle_history
		WHERE family_id = $1
		FOR UPDATE
	`

	var h model.History
	var streakTeam string
	err := tx.QueryRow(ctx, query, familyID).Scan(
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
			return model.History{}, ErrHistoryNotFound
		}
		return model.History{}, fmt.Errorf("failed to lock battle history: %w", err)
	}
	h.StreakTeam = model.Team(streakTeam)

	return h, nil
}

// isRetryable reports whether err is a transient serialization or
// deadlock failure worth retrying.
func isRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "40001" || pgErr.Code == "40P01"
	}
	return false
}
