package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"family-battle/internal/battle/history"
	"family-battle/internal/battle/outcome"
	"family-battle/internal/battle/week"
	"family-battle/internal/model"
	"family-battle/internal/pkg/lock"
	"family-battle/internal/repository"
)

// Sync-related errors.
var (
	ErrInvalidRole    = errors.New("role must be child or parent")
	ErrInvalidMinutes = errors.New("minutes must be non-negative")
	ErrNotEnabled     = errors.New("battle is not enabled for this family")
)

// BattleStore persists the per-family battle record.
type BattleStore interface {
	Get(ctx context.Context, familyID string) (*model.BattleRecord, error)
	Create(ctx context.Context, familyID string, weekNumber int, weekStart time.Time) error
	UpdateTotals(ctx context.Context, familyID string, weekNumber int, children, parents model.Breakdown) (bool, error)
	FamilyIDs(ctx context.Context) ([]string, error)
}

// HistoryStore reads the championship summary.
type HistoryStore interface {
	Get(ctx context.Context, familyID string) (*model.History, error)
}

// Rollover closes a stale week atomically.
type Rollover interface {
	Advance(ctx context.Context, familyID string, target week.Week) (*repository.RolloverResult, error)
}

// SessionStore records daily reading minutes.
type SessionStore interface {
	Record(ctx context.Context, memberID string, day time.Time, minutes int64) error
}

// AwardStore reads the XP ledger.
type AwardStore interface {
	ListByWeek(ctx context.Context, familyID string, weekNumber int) ([]*model.XPAward, error)
	ListByFamily(ctx context.Context, familyID string) ([]*model.XPAward, error)
}

// MembershipStore appends to the battle membership set.
type MembershipStore interface {
	MembershipProvider
	Add(ctx context.Context, m *model.Member) error
}

// Sync is the single entry point for battle state. Both the background
// poller and user-triggered refresh funnel through GetBattleData, which
// rolls the week over when stale, re-aggregates totals from the minute
// source and persists the refreshed record.
type Sync struct {
	battles   BattleStore
	histories HistoryStore
	members   MembershipStore
	sessions  SessionStore
	awards    AwardStore
	rollover  Rollover
	agg       *Aggregator
	clock     *week.Clock
	locks     *lock.FamilyLock
	now       func() time.Time
}

// NewSync creates a new Sync façade.
func NewSync(
	battles BattleStore,
	histories HistoryStore,
	members MembershipStore,
	sessions SessionStore,
	awards AwardStore,
	rollover Rollover,
	agg *Aggregator,
	clock *week.Clock,
) *Sync {
	return &Sync{
		battles:   battles,
		histories: histories,
		members:   members,
		sessions:  sessions,
		awards:    awards,
		rollover:  rollover,
		agg:       agg,
		clock:     clock,
		locks:     lock.NewFamilyLock(),
		now:       time.Now,
	}
}

// GetBattleData returns an up-to-date battle snapshot for the family,
// rolling the week over first if the persisted record is stale. A
// family with no battle record or no invited members gets a
// not-enabled snapshot instead of an error. Same-process refreshes of
// one family are serialized; cross-process safety comes from the
// rollover transaction.
func (s *Sync) GetBattleData(ctx context.Context, familyID string) (*model.Snapshot, error) {
	var snap *model.Snapshot
	err := s.locks.WithLock(familyID, func() error {
		var err error
		snap, err = s.refresh(ctx, familyID)
		return err
	})
	return snap, err
}

// Refresh is GetBattleData for the background poller: if another
// refresh of the family is already in flight it skips instead of
// queueing behind it.
func (s *Sync) Refresh(ctx context.Context, familyID string) (*model.Snapshot, error) {
	if !s.locks.TryLock(familyID) {
		return nil, nil
	}
	defer s.locks.Unlock(familyID)
	return s.refresh(ctx, familyID)
}

func (s *Sync) refresh(ctx context.Context, familyID string) (*model.Snapshot, error) {
	w := s.clock.At(s.now())

	rec, err := s.battles.Get(ctx, familyID)
	if err != nil {
		if errors.Is(err, repository.ErrBattleNotFound) {
			return notEnabledSnapshot(), nil
		}
		return nil, err
	}

	members, err := s.members.ListByFamily(ctx, familyID)
	if err != nil {
		return nil, err
	}
	if len(members) == 0 {
		return notEnabledSnapshot(), nil
	}

	// Week boundary crossed since the record was last written: commit
	// the stale week to history and open the new one before
	// aggregating. A concurrent loser just re-reads the advanced
	// record.
	if week.DateBefore(rec.WeekStart, w.Start) {
		result, err := s.rollover.Advance(ctx, familyID, w)
		if err != nil {
			return nil, err
		}
		if !result.Advanced {
			log.Debug().Str("family_id", familyID).Msg("Rollover already performed by another process")
		}
		rec, err = s.battles.Get(ctx, familyID)
		if err != nil {
			return nil, err
		}
	}

	children, parents, err := s.agg.Aggregate(ctx, familyID, w)
	if err != nil {
		return nil, err
	}

	// Persist the refreshed totals so other family members see them.
	// The write is skipped harmlessly when yet another process has
	// advanced the week between our rollover and this point.
	if _, err := s.battles.UpdateTotals(ctx, familyID, rec.WeekNumber, children, parents); err != nil {
		return nil, err
	}

	o := outcome.Resolve(children.Total(), parents.Total())

	hist, err := s.histories.Get(ctx, familyID)
	if err != nil && !errors.Is(err, repository.ErrHistoryNotFound) {
		return nil, err
	}
	var summary model.HistorySummary
	if hist != nil {
		summary = history.Summarize(*hist)
	} else {
		summary = history.Summarize(model.History{})
	}

	snap := &model.Snapshot{
		Enabled:      true,
		WeekNumber:   rec.WeekNumber,
		WeekStart:    w.Start,
		IsResultsDay: w.ResultsDay,
		Children:     model.TeamSide{Total: children.Total(), Breakdown: children},
		Parents:      model.TeamSide{Total: parents.Total(), Breakdown: parents},
		Leader:       o.Leader,
		Margin:       o.Margin,
		Status:       o.Status,
		History:      summary,
	}

	// On results day the UI may show a winner preview; the result is
	// frozen for real only at rollover.
	if w.ResultsDay {
		final := outcome.Close(children.Total(), parents.Total())
		snap.Winner = final.Winner
		snap.FinalStatus = final.FinalStatus
	}

	return snap, nil
}

// Enable turns the battle feature on for a family, opening a zeroed
// record for the current program week. An empty familyID creates a new
// family. Enabling twice is a no-op. Returns the family id.
func (s *Sync) Enable(ctx context.Context, familyID string) (string, error) {
	if familyID == "" {
		familyID = uuid.NewString()
	}

	w := s.clock.At(s.now())
	if err := s.battles.Create(ctx, familyID, w.Number, w.Start); err != nil {
		return "", err
	}

	log.Info().Str("family_id", familyID).Int("week", w.Number).Msg("Battle enabled")
	return familyID, nil
}

// Invite adds a member to the family's battle. The battle must already
// be enabled. An empty member id gets a generated one.
func (s *Sync) Invite(ctx context.Context, familyID, memberID, role, displayName string) (*model.Member, error) {
	if role != model.RoleChild && role != model.RoleParent {
		return nil, ErrInvalidRole
	}

	if _, err := s.battles.Get(ctx, familyID); err != nil {
		if errors.Is(err, repository.ErrBattleNotFound) {
			return nil, ErrNotEnabled
		}
		return nil, err
	}

	if memberID == "" {
		memberID = uuid.NewString()
	}
	if displayName == "" {
		displayName = memberID
	}

	m := &model.Member{
		FamilyID:    familyID,
		MemberID:    memberID,
		Role:        role,
		DisplayName: displayName,
	}
	if err := s.members.Add(ctx, m); err != nil {
		return nil, err
	}

	return m, nil
}

// RecordSession stores a member's reading total for one day.
func (s *Sync) RecordSession(ctx context.Context, memberID string, day time.Time, minutes int64) error {
	if minutes < 0 {
		return ErrInvalidMinutes
	}
	return s.sessions.Record(ctx, memberID, day, minutes)
}

// History returns the championship summary alone.
func (s *Sync) History(ctx context.Context, familyID string) (*model.HistorySummary, error) {
	hist, err := s.histories.Get(ctx, familyID)
	if err != nil {
		if errors.Is(err, repository.ErrHistoryNotFound) {
			return nil, ErrNotEnabled
		}
		return nil, err
	}
	summary := history.Summarize(*hist)
	return &summary, nil
}

// Awards returns the XP ledger for a family, limited to one week when
// weekNumber is positive.
func (s *Sync) Awards(ctx context.Context, familyID string, weekNumber int) ([]*model.XPAward, error) {
	if weekNumber > 0 {
		return s.awards.ListByWeek(ctx, familyID, weekNumber)
	}
	return s.awards.ListByFamily(ctx, familyID)
}

// CurrentWeek exposes the clock's view of now, for handlers that need
// the active week number.
func (s *Sync) CurrentWeek() week.Week {
	return s.clock.At(s.now())
}

// notEnabledSnapshot is returned for families without a configured
// battle: no data, no error.
func notEnabledSnapshot() *model.Snapshot {
	return &model.Snapshot{
		Enabled:  false,
		Children: model.TeamSide{Breakdown: model.Breakdown{}},
		Parents:  model.TeamSide{Breakdown: model.Breakdown{}},
		History:  history.Summarize(model.History{}),
	}
}

// SetNow overrides the time source. Tests only.
func (s *Sync) SetNow(now func() time.Time) {
	s.now = now
}
