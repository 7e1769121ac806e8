// Package outcome resolves weekly battle standings from team totals.
package outcome

import (
	"fmt"

	"family-battle/internal/model"
)

// Margin bands for status text. A final margin at or above a band's
// threshold gets that band's wording; ties are their own case.
const (
	BandBlowout     = 100
	BandCommanding  = 50
	BandSolid       = 25
	BandComfortable = 10
)

// Display names used in status strings.
const (
	childrenName = "Kids"
	parentsName  = "Parents"
)

// Outcome is the live standing for a week in progress.
type Outcome struct {
	Leader model.Team
	Margin int64
	Status string
}

// Final is the frozen result of a closed week.
type Final struct {
	Winner      model.Team
	Margin      int64
	FinalStatus string
}

// Resolve computes the current leader, margin and a display status from
// team totals. Pure function; margin is always |children - parents| and
// the leader is tie exactly when the margin is zero.
func Resolve(childrenTotal, parentsTotal int64) Outcome {
	leader, margin := lead(childrenTotal, parentsTotal)

	var status string
	switch leader {
	case model.TeamTie:
		if childrenTotal == 0 {
			status = "No minutes logged yet — the week is wide open!"
		} else {
			status = fmt.Sprintf("All square at %d minutes apiece!", childrenTotal)
		}
	default:
		status = fmt.Sprintf("%s lead by %d %s!", teamName(leader), margin, plural(margin))
	}

	return Outcome{Leader: leader, Margin: margin, Status: status}
}

// Close freezes the final result for a week being rolled over. Equal
// totals produce a tie with no winner.
func Close(childrenTotal, parentsTotal int64) Final {
	winner, margin := lead(childrenTotal, parentsTotal)

	if winner == model.TeamTie {
		return Final{
			Winner:      model.TeamTie,
			Margin:      0,
			FinalStatus: "It's a dead heat — nobody takes the crown this week!",
		}
	}

	name := teamName(winner)
	var status string
	switch {
	case margin >= BandBlowout:
		status = fmt.Sprintf("%s win in total domination, up by %d minutes!", name, margin)
	case margin >= BandCommanding:
		status = fmt.Sprintf("%s win by a commanding %d minutes!", name, margin)
	case margin >= BandSolid:
		status = fmt.Sprintf("%s win with a solid %d-minute lead!", name, margin)
	case margin >= BandComfortable:
		status = fmt.Sprintf("%s win by a comfortable %d minutes!", name, margin)
	default:
		status = fmt.Sprintf("%s squeak out a nail-biter, ahead by just %d %s!", name, margin, plural(margin))
	}

	return Final{Winner: winner, Margin: margin, FinalStatus: status}
}

// lead returns the leading team and absolute margin.
func lead(childrenTotal, parentsTotal int64) (model.Team, int64) {
	switch {
	case childrenTotal > parentsTotal:
		return model.TeamChildren, childrenTotal - parentsTotal
	case parentsTotal > childrenTotal:
		return model.TeamParents, parentsTotal - childrenTotal
	default:
		return model.TeamTie, 0
	}
}

func teamName(t model.Team) string {
	if t == model.TeamChildren {
		return childrenName
	}
	return parentsName
}

func plural(minutes int64) string {
	if minutes == 1 {
		return "minute"
	}
	return "minutes"
}
