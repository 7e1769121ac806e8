// Package service provides business logic implementations.
package service

import (
	"context"
	"fmt"
	"time"

	"family-battle/internal/battle/week"
	"family-battle/internal/model"
)

// MinuteSource answers "how many minutes did member M read in [from, to)".
// Implementations must return zero for unknown members, never an error.
type MinuteSource interface {
	MinutesInRange(ctx context.Context, memberID string, from, to time.Time) (int64, error)
}

// MembershipProvider returns the members invited into a family's battle.
type MembershipProvider interface {
	ListByFamily(ctx context.Context, familyID string) ([]*model.Member, error)
}

// Aggregator recomputes team totals for a week from the minute source.
// Every call rebuilds breakdowns from scratch rather than accumulating
// deltas, so repeated aggregation within a week cannot double-count.
type Aggregator struct {
	members MembershipProvider
	minutes MinuteSource
}

// NewAggregator creates a new Aggregator instance.
func NewAggregator(members MembershipProvider, minutes MinuteSource) *Aggregator {
	return &Aggregator{members: members, minutes: minutes}
}

// Aggregate builds the children and parents breakdowns for the given
// week. Members with no recorded minutes contribute zero entries, and
// a negative sum from a misbehaving source is clamped to zero.
func (a *Aggregator) Aggregate(ctx context.Context, familyID string, w week.Week) (children, parents model.Breakdown, err error) {
	members, err := a.members.ListByFamily(ctx, familyID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list members: %w", err)
	}

	from := w.Start
	to := w.Start.AddDate(0, 0, 7)

	children = make(model.Breakdown)
	parents = make(model.Breakdown)

	for _, m := range members {
		minutes, err := a.minutes.MinutesInRange(ctx, m.MemberID, from, to)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to aggregate minutes for member %s: %w", m.MemberID, err)
		}
		if minutes < 0 {
			minutes = 0
		}

		c := model.Contribution{Name: m.DisplayName, Minutes: minutes}
		switch m.Role {
		case model.RoleChild:
			children[m.MemberID] = c
		case model.RoleParent:
			parents[m.MemberID] = c
		}
	}

	return children, parents, nil
}
