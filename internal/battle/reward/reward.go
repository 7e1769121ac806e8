// Package reward computes XP awards for a winning children team.
package reward

import (
	"sort"

	"family-battle/internal/model"
)

// Default XP amounts, overridable via Config.
const (
	DefaultBaseXP   = 25
	DefaultMVPBonus = 25
)

// Config holds XP amounts for a week's awards.
type Config struct {
	BaseXP   int64
	MVPBonus int64
}

// Calculator computes per-child XP from a week's breakdown.
type Calculator struct {
	baseXP   int64
	mvpBonus int64
}

// New creates a Calculator with the given configuration.
func New(cfg *Config) *Calculator {
	baseXP := int64(DefaultBaseXP)
	mvpBonus := int64(DefaultMVPBonus)

	if cfg != nil {
		if cfg.BaseXP > 0 {
			baseXP = cfg.BaseXP
		}
		if cfg.MVPBonus > 0 {
			mvpBonus = cfg.MVPBonus
		}
	}

	return &Calculator{baseXP: baseXP, mvpBonus: mvpBonus}
}

// Award is one child's XP for the week.
type Award struct {
	Amount int64
	MVP    bool
}

// Calculate returns per-member awards for a closed week. Only a
// children win produces awards: every child in the breakdown gets the
// base amount and the top contributor additionally gets the MVP bonus.
// Members sharing the maximum are tie-broken by lowest member id so the
// result does not depend on map iteration order. An empty breakdown
// yields no awards and no MVP.
func (c *Calculator) Calculate(breakdown model.Breakdown, winner model.Team) map[string]Award {
	if winner != model.TeamChildren || len(breakdown) == 0 {
		return map[string]Award{}
	}

	ids := make([]string, 0, len(breakdown))
	for id := range breakdown {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	mvp := ids[0]
	for _, id := range ids[1:] {
		if breakdown[id].Minutes > breakdown[mvp].Minutes {
			mvp = id
		}
	}

	awards := make(map[string]Award, len(ids))
	for _, id := range ids {
		a := Award{Amount: c.baseXP}
		if id == mvp {
			a.Amount += c.mvpBonus
			a.MVP = true
		}
		awards[id] = a
	}

	return awards
}
