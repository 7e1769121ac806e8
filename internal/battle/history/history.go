// Package history folds weekly results into the championship summary.
// All functions are pure; persistence lives in the repository layer.
package history

import (
	"family-battle/internal/model"
)

// RecentLimit bounds the recent-results list, most recent first.
const RecentLimit = 10

// Apply folds one completed week into the championship summary and
// returns the updated copy. Every completed week counts toward
// TotalBattles; a tie increments neither win counter and clears the
// streak, a repeat winner extends the streak, a new winner restarts it
// at one.
func Apply(h model.History, result model.WeekResult) model.History {
	h.TotalBattles++

	switch result.Winner {
	case model.TeamChildren:
		h.ChildrenWins++
	case model.TeamParents:
		h.ParentWins++
	}

	switch {
	case result.Winner == model.TeamTie:
		h.StreakTeam = ""
		h.StreakCount = 0
	case result.Winner == h.StreakTeam:
		h.StreakCount++
	default:
		h.StreakTeam = result.Winner
		h.StreakCount = 1
	}

	recent := make([]model.WeekResult, 0, len(h.Recent)+1)
	recent = append(recent, result)
	recent = append(recent, h.Recent...)
	if len(recent) > RecentLimit {
		recent = recent[:RecentLimit]
	}
	h.Recent = recent

	return h
}

// Summarize converts a stored history into its snapshot form.
func Summarize(h model.History) model.HistorySummary {
	s := model.HistorySummary{
		TotalBattles: h.TotalBattles,
		ChildrenWins: h.ChildrenWins,
		ParentWins:   h.ParentWins,
		Recent:       h.Recent,
	}
	if h.StreakCount > 0 {
		s.Streak = model.Streak{Team: h.StreakTeam, Count: h.StreakCount}
	}
	if s.Recent == nil {
		s.Recent = []model.WeekResult{}
	}
	return s
}
