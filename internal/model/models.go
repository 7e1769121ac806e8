// Package model defines the data models for the family battle service.
package model

import "time"

// Team identifies one side of a family battle, or the tie outcome.
type Team string

const (
	TeamChildren Team = "children"
	TeamParents  Team = "parents"
	TeamTie      Team = "tie"
)

// Member roles within a family.
const (
	RoleChild  = "child"
	RoleParent = "parent"
)

// Member is one participant in a family battle.
type Member struct {
	FamilyID    string    `db:"family_id"`
	MemberID    string    `db:"member_id"`
	Role        string    `db:"role"`
	DisplayName string    `db:"display_name"`
	JoinedAt    time.Time `db:"joined_at"`
}

// Contribution is one member's share of a team total.
type Contribution struct {
	Name    string `json:"name"`
	Minutes int64  `json:"minutes"`
}

// Breakdown maps member id to that member's contribution for the week.
type Breakdown map[string]Contribution

// Total returns the sum of all contributions in the breakdown.
func (b Breakdown) Total() int64 {
	var sum int64
	for _, c := range b {
		sum += c.Minutes
	}
	return sum
}

// BattleRecord is the single mutable per-family record for the week in
// progress. It is replaced wholesale at rollover.
type BattleRecord struct {
	FamilyID          string    `db:"family_id"`
	WeekNumber        int       `db:"week_number"`
	WeekStart         time.Time `db:"week_start"`
	ChildrenTotal     int64     `db:"children_total"`
	ParentsTotal      int64     `db:"parents_total"`
	ChildrenBreakdown Breakdown `db:"children_breakdown"`
	ParentsBreakdown  Breakdown `db:"parents_breakdown"`
	UpdatedAt         time.Time `db:"updated_at"`
}

// WeekResult is one completed week's outcome as stored in the
// championship history's recent results, most recent first.
type WeekResult struct {
	WeekNumber int   `json:"week"`
	Winner     Team  `json:"winner"`
	Margin     int64 `json:"margin"`
}

// History is the per-family championship summary. TotalBattles counts
// every completed week; ties consume a battle without incrementing
// either win counter, so ChildrenWins+ParentWins <= TotalBattles.
type History struct {
	FamilyID     string       `db:"family_id"`
	TotalBattles int          `db:"total_battles"`
	ChildrenWins int          `db:"children_wins"`
	ParentWins   int          `db:"parent_wins"`
	StreakTeam   Team         `db:"streak_team"`
	StreakCount  int          `db:"streak_count"`
	Recent       []WeekResult `db:"recent_results"`
	UpdatedAt    time.Time    `db:"updated_at"`
}

// XPAward records XP granted to one child for one week. The
// (family, member, week) key makes awards exactly-once.
type XPAward struct {
	FamilyID   string    `db:"family_id"`
	MemberID   string    `db:"member_id"`
	WeekNumber int       `db:"week_number"`
	Amount     int64     `db:"amount"`
	MVP        bool      `db:"mvp"`
	CreatedAt  time.Time `db:"created_at"`
}

// TeamSide is one team's view inside a snapshot.
type TeamSide struct {
	Total     int64     `json:"total"`
	Breakdown Breakdown `json:"breakdown"`
}

// Streak is the current championship streak, empty when Count is 0.
type Streak struct {
	Team  Team `json:"team,omitempty"`
	Count int  `json:"count"`
}

// HistorySummary is the championship portion of a snapshot.
type HistorySummary struct {
	TotalBattles int          `json:"totalBattles"`
	ChildrenWins int          `json:"childrenWins"`
	ParentWins   int          `json:"parentWins"`
	Streak       Streak       `json:"currentStreak"`
	Recent       []WeekResult `json:"recentResults"`
}

// Snapshot is the read-only battle state returned to UI clients.
// Enabled is false when the family has no members invited yet.
type Snapshot struct {
	Enabled      bool           `json:"enabled"`
	WeekNumber   int            `json:"number,omitempty"`
	WeekStart    time.Time      `json:"weekStart,omitzero"`
	IsResultsDay bool           `json:"isResultsDay"`
	Children     TeamSide       `json:"children"`
	Parents      TeamSide       `json:"parents"`
	Leader       Team           `json:"leader,omitempty"`
	Margin       int64          `json:"margin"`
	Status       string         `json:"status,omitempty"`
	Winner       Team           `json:"winner,omitempty"`
	FinalStatus  string         `json:"finalStatus,omitempty"`
	History      HistorySummary `json:"history"`
}
