package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"family-battle/internal/battle/history"
	"family-battle/internal/battle/outcome"
	"family-battle/internal/battle/week"
	"family-battle/internal/model"
	"family-battle/internal/repository"
)

// memStore is an in-memory BattleStore/HistoryStore/Rollover standing
// in for postgres in façade tests.
type memStore struct {
	mu           sync.Mutex
	records      map[string]*model.BattleRecord
	histories    map[string]*model.History
	rollovers    int
	totalUpdates int
}

func newMemStore() *memStore {
	return &memStore{
		records:   make(map[string]*model.BattleRecord),
		histories: make(map[string]*model.History),
	}
}

func (s *memStore) Get(_ context.Context, familyID string) (*model.BattleRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[familyID]
	if !ok {
		return nil, repository.ErrBattleNotFound
	}
	cp := *rec
	return &cp, nil
}

func (s *memStore) Create(_ context.Context, familyID string, weekNumber int, weekStart time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[familyID]; ok {
		return nil
	}
	s.records[familyID] = &model.BattleRecord{
		FamilyID:          familyID,
		WeekNumber:        weekNumber,
		WeekStart:         weekStart,
		ChildrenBreakdown: model.Breakdown{},
		ParentsBreakdown:  model.Breakdown{},
	}
	s.histories[familyID] = &model.History{FamilyID: familyID}
	return nil
}

func (s *memStore) UpdateTotals(_ context.Context, familyID string, weekNumber int, children, parents model.Breakdown) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[familyID]
	if !ok || rec.WeekNumber != weekNumber {
		return false, nil
	}
	rec.ChildrenTotal = children.Total()
	rec.ParentsTotal = parents.Total()
	rec.ChildrenBreakdown = children
	rec.ParentsBreakdown = parents
	s.totalUpdates++
	return true, nil
}

func (s *memStore) FamilyIDs(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []string
	for id := range s.records {
		ids = append(ids, id)
	}
	return ids, nil
}

// HistoryStore
func (s *memStore) GetHistory(familyID string) (*model.History, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.histories[familyID]
	if !ok {
		return nil, repository.ErrHistoryNotFound
	}
	cp := *h
	return &cp, nil
}

type memHistories struct{ store *memStore }

func (m memHistories) Get(_ context.Context, familyID string) (*model.History, error) {
	return m.store.GetHistory(familyID)
}

// Rollover mirrors the engine's semantics against the in-memory record.
type memRollover struct{ store *memStore }

func (m memRollover) Advance(_ context.Context, familyID string, target week.Week) (*repository.RolloverResult, error) {
	s := m.store
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[familyID]
	if !ok {
		return nil, repository.ErrBattleNotFound
	}
	if !week.DateBefore(rec.WeekStart, target.Start) {
		return &repository.RolloverResult{Advanced: false}, nil
	}

	final := outcome.Close(rec.ChildrenTotal, rec.ParentsTotal)
	result := model.WeekResult{WeekNumber: rec.WeekNumber, Winner: final.Winner, Margin: final.Margin}
	updated := history.Apply(*s.histories[familyID], result)
	s.histories[familyID] = &updated

	rec.WeekNumber = target.Number
	rec.WeekStart = target.Start
	rec.ChildrenTotal = 0
	rec.ParentsTotal = 0
	rec.ChildrenBreakdown = model.Breakdown{}
	rec.ParentsBreakdown = model.Breakdown{}
	s.rollovers++

	return &repository.RolloverResult{Advanced: true, Closed: &result, FinalStatus: final.FinalStatus}, nil
}

type memSessions struct {
	recorded map[string]int64
}

func (m *memSessions) Record(_ context.Context, memberID string, _ time.Time, minutes int64) error {
	if m.recorded == nil {
		m.recorded = make(map[string]int64)
	}
	m.recorded[memberID] = minutes
	return nil
}

type memAwards struct{}

func (memAwards) ListByWeek(context.Context, string, int) ([]*model.XPAward, error) { return nil, nil }
func (memAwards) ListByFamily(context.Context, string) ([]*model.XPAward, error)    { return nil, nil }

type memMembership struct {
	fakeMembers
}

func (m *memMembership) Add(_ context.Context, member *model.Member) error {
	m.members = append(m.members, member)
	return nil
}

var syncEpoch = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

func newTestSync(store *memStore, members *memMembership, minutes *fakeMinutes) *Sync {
	clock := week.New(syncEpoch, time.UTC)
	s := NewSync(
		store,
		memHistories{store},
		members,
		&memSessions{},
		memAwards{},
		memRollover{store},
		NewAggregator(members, minutes),
		clock,
	)
	return s
}

func enabledFamily(t *testing.T, s *Sync) {
	t.Helper()
	_, err := s.Enable(context.Background(), "fam1")
	require.NoError(t, err)
}

func TestGetBattleData_NotEnabled(t *testing.T) {
	store := newMemStore()
	s := newTestSync(store, &memMembership{}, &fakeMinutes{})

	snap, err := s.GetBattleData(context.Background(), "nobody")
	require.NoError(t, err)

	assert.False(t, snap.Enabled)
	assert.Zero(t, snap.Margin)
	assert.NotNil(t, snap.History.Recent)
}

func TestGetBattleData_EnabledButNoMembers(t *testing.T) {
	store := newMemStore()
	s := newTestSync(store, &memMembership{}, &fakeMinutes{})
	s.SetNow(func() time.Time { return syncEpoch })
	enabledFamily(t, s)

	snap, err := s.GetBattleData(context.Background(), "fam1")
	require.NoError(t, err)

	assert.False(t, snap.Enabled, "a family with nobody invited gets a not-enabled snapshot, not an error")
}

func TestGetBattleData_RefreshesTotals(t *testing.T) {
	store := newMemStore()
	members := &memMembership{}
	minutes := &fakeMinutes{minutes: map[string]int64{"kid1": 90, "mom": 40}}
	s := newTestSync(store, members, minutes)
	s.SetNow(func() time.Time { return syncEpoch.Add(48 * time.Hour) })

	enabledFamily(t, s)
	_, err := s.Invite(context.Background(), "fam1", "kid1", model.RoleChild, "Kid One")
	require.NoError(t, err)
	_, err = s.Invite(context.Background(), "fam1", "mom", model.RoleParent, "Mom")
	require.NoError(t, err)

	snap, err := s.GetBattleData(context.Background(), "fam1")
	require.NoError(t, err)

	assert.True(t, snap.Enabled)
	assert.Equal(t, 1, snap.WeekNumber)
	assert.Equal(t, int64(90), snap.Children.Total)
	assert.Equal(t, int64(40), snap.Parents.Total)
	assert.Equal(t, model.TeamChildren, snap.Leader)
	assert.Equal(t, int64(50), snap.Margin)
	assert.NotEmpty(t, snap.Status)
	assert.False(t, snap.IsResultsDay)
	assert.Empty(t, snap.Winner, "no winner before results day")
	assert.Equal(t, 1, store.totalUpdates, "refreshed totals are persisted")
}

func TestGetBattleData_ResultsDayPreview(t *testing.T) {
	store := newMemStore()
	members := &memMembership{}
	minutes := &fakeMinutes{minutes: map[string]int64{"kid1": 150, "mom": 20}}
	s := newTestSync(store, members, minutes)
	s.SetNow(func() time.Time { return syncEpoch })

	enabledFamily(t, s)
	_, err := s.Invite(context.Background(), "fam1", "kid1", model.RoleChild, "Kid One")
	require.NoError(t, err)
	_, err = s.Invite(context.Background(), "fam1", "mom", model.RoleParent, "Mom")
	require.NoError(t, err)

	// Day seven of week one.
	s.SetNow(func() time.Time { return syncEpoch.AddDate(0, 0, 6).Add(10 * time.Hour) })

	snap, err := s.GetBattleData(context.Background(), "fam1")
	require.NoError(t, err)

	assert.True(t, snap.IsResultsDay)
	assert.Equal(t, model.TeamChildren, snap.Winner)
	assert.Contains(t, snap.FinalStatus, "total domination", "margin 130 is in the top band")
	assert.Equal(t, 0, store.rollovers, "results day alone does not close the week")
}

func TestGetBattleData_RollsOverStaleWeek(t *testing.T) {
	store := newMemStore()
	members := &memMembership{}
	minutes := &fakeMinutes{minutes: map[string]int64{"kid1": 60, "mom": 10}}
	s := newTestSync(store, members, minutes)
	s.SetNow(func() time.Time { return syncEpoch })

	enabledFamily(t, s)
	_, err := s.Invite(context.Background(), "fam1", "kid1", model.RoleChild, "Kid One")
	require.NoError(t, err)
	_, err = s.Invite(context.Background(), "fam1", "mom", model.RoleParent, "Mom")
	require.NoError(t, err)

	// Fill week one's totals.
	_, err = s.GetBattleData(context.Background(), "fam1")
	require.NoError(t, err)

	// Jump into week two.
	s.SetNow(func() time.Time { return syncEpoch.AddDate(0, 0, 8) })

	snap, err := s.GetBattleData(context.Background(), "fam1")
	require.NoError(t, err)

	assert.Equal(t, 1, store.rollovers, "stale week closed exactly once")
	assert.Equal(t, 2, snap.WeekNumber)
	assert.Equal(t, 1, snap.History.TotalBattles)
	assert.Equal(t, 1, snap.History.ChildrenWins)
	assert.Equal(t, model.Streak{Team: model.TeamChildren, Count: 1}, snap.History.Streak)
	require.Len(t, snap.History.Recent, 1)
	assert.Equal(t, model.WeekResult{WeekNumber: 1, Winner: model.TeamChildren, Margin: 50}, snap.History.Recent[0])

	// A second refresh in the new week does not roll over again.
	_, err = s.GetBattleData(context.Background(), "fam1")
	require.NoError(t, err)
	assert.Equal(t, 1, store.rollovers)
}

func TestEnable_GeneratesFamilyID(t *testing.T) {
	store := newMemStore()
	s := newTestSync(store, &memMembership{}, &fakeMinutes{})

	id, err := s.Enable(context.Background(), "")
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	again, err := s.Enable(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, id, again, "re-enabling is a no-op")
}

func TestInvite_Validation(t *testing.T) {
	store := newMemStore()
	s := newTestSync(store, &memMembership{}, &fakeMinutes{})
	enabledFamily(t, s)

	_, err := s.Invite(context.Background(), "fam1", "kid1", "grandparent", "Gran")
	assert.ErrorIs(t, err, ErrInvalidRole)

	_, err = s.Invite(context.Background(), "missing", "kid1", model.RoleChild, "Kid")
	assert.ErrorIs(t, err, ErrNotEnabled)

	m, err := s.Invite(context.Background(), "fam1", "", model.RoleChild, "")
	require.NoError(t, err)
	assert.NotEmpty(t, m.MemberID, "missing member id is generated")
	assert.Equal(t, m.MemberID, m.DisplayName)
}

func TestRecordSession_RejectsNegative(t *testing.T) {
	store := newMemStore()
	s := newTestSync(store, &memMembership{}, &fakeMinutes{})

	err := s.RecordSession(context.Background(), "kid1", time.Now(), -5)
	assert.ErrorIs(t, err, ErrInvalidMinutes)

	err = s.RecordSession(context.Background(), "kid1", time.Now(), 0)
	assert.NoError(t, err)
}

func TestHistory_NotEnabled(t *testing.T) {
	store := newMemStore()
	s := newTestSync(store, &memMembership{}, &fakeMinutes{})

	_, err := s.History(context.Background(), "nobody")
	assert.ErrorIs(t, err, ErrNotEnabled)
}

func TestRefresh_SkipsWhenBusy(t *testing.T) {
	store := newMemStore()
	s := newTestSync(store, &memMembership{}, &fakeMinutes{})
	enabledFamily(t, s)

	release := make(chan struct{})
	started := make(chan struct{})
	go func() {
		_ = s.locks.WithLock("fam1", func() error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	snap, err := s.Refresh(context.Background(), "fam1")
	require.NoError(t, err)
	assert.Nil(t, snap, "refresh skips a family whose refresh is already in flight")

	close(release)
}
