package reward

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"family-battle/internal/model"
)

func breakdown(minutes map[string]int64) model.Breakdown {
	b := make(model.Breakdown, len(minutes))
	for id, m := range minutes {
		b[id] = model.Contribution{Name: id, Minutes: m}
	}
	return b
}

func TestCalculate_ChildrenWin(t *testing.T) {
	calc := New(nil)

	awards := calc.Calculate(breakdown(map[string]int64{"A": 30, "B": 50, "C": 50}), model.TeamChildren)

	require.Len(t, awards, 3)
	assert.Equal(t, Award{Amount: DefaultBaseXP}, awards["A"])
	assert.Equal(t, Award{Amount: DefaultBaseXP + DefaultMVPBonus, MVP: true}, awards["B"],
		"B and C share the max; lowest id wins MVP")
	assert.Equal(t, Award{Amount: DefaultBaseXP}, awards["C"])
}

func TestCalculate_SingleChild(t *testing.T) {
	calc := New(nil)

	awards := calc.Calculate(breakdown(map[string]int64{"solo": 12}), model.TeamChildren)

	require.Len(t, awards, 1)
	assert.True(t, awards["solo"].MVP)
	assert.Equal(t, int64(DefaultBaseXP+DefaultMVPBonus), awards["solo"].Amount)
}

func TestCalculate_NoAwardsUnlessChildrenWin(t *testing.T) {
	calc := New(nil)
	b := breakdown(map[string]int64{"A": 30, "B": 50})

	assert.Empty(t, calc.Calculate(b, model.TeamParents))
	assert.Empty(t, calc.Calculate(b, model.TeamTie))
}

func TestCalculate_EmptyBreakdown(t *testing.T) {
	calc := New(nil)

	awards := calc.Calculate(model.Breakdown{}, model.TeamChildren)
	assert.Empty(t, awards)

	awards = calc.Calculate(nil, model.TeamChildren)
	assert.Empty(t, awards)
}

func TestCalculate_ConfiguredAmounts(t *testing.T) {
	calc := New(&Config{BaseXP: 10, MVPBonus: 40})

	awards := calc.Calculate(breakdown(map[string]int64{"A": 5, "B": 9}), model.TeamChildren)

	assert.Equal(t, int64(10), awards["A"].Amount)
	assert.Equal(t, int64(50), awards["B"].Amount)
}

// TestCalculateProperty checks structural rules for arbitrary
// breakdowns: exactly one MVP, every member awarded, amounts fixed by
// role, and the MVP holds the maximum minutes.
func TestCalculateProperty(t *testing.T) {
	calc := New(nil)

	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 20).Draw(t, "n")
		b := make(model.Breakdown, n)
		for i := 0; i < n; i++ {
			id := rapid.StringMatching(`[a-z]{2,8}`).Draw(t, "id")
			b[id] = model.Contribution{
				Name:    id,
				Minutes: rapid.Int64Range(0, 10_000).Draw(t, "minutes"),
			}
		}

		awards := calc.Calculate(b, model.TeamChildren)
		if len(awards) != len(b) {
			t.Fatalf("awarded %d members, breakdown has %d", len(awards), len(b))
		}

		var max int64
		for _, c := range b {
			if c.Minutes > max {
				max = c.Minutes
			}
		}

		mvps := 0
		for id, a := range awards {
			if a.MVP {
				mvps++
				if b[id].Minutes != max {
					t.Fatalf("MVP %s has %d minutes, max is %d", id, b[id].Minutes, max)
				}
				if a.Amount != DefaultBaseXP+DefaultMVPBonus {
					t.Fatalf("MVP amount = %d", a.Amount)
				}
			} else if a.Amount != DefaultBaseXP {
				t.Fatalf("base amount = %d", a.Amount)
			}
		}
		if mvps != 1 {
			t.Fatalf("expected exactly one MVP, got %d", mvps)
		}
	})
}
