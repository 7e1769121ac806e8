package outcome

import (
	"testing"

	"pgregory.net/rapid"

	"family-battle/internal/model"
)

// TestResolveMarginProperty checks that for any non-negative totals the
// margin is the absolute difference and the leader is tie exactly when
// the margin is zero.
func TestResolveMarginProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		children := rapid.Int64Range(0, 1_000_000).Draw(t, "children")
		parents := rapid.Int64Range(0, 1_000_000).Draw(t, "parents")

		o := Resolve(children, parents)

		expected := children - parents
		if expected < 0 {
			expected = -expected
		}
		if o.Margin != expected {
			t.Fatalf("margin = %d, want %d", o.Margin, expected)
		}

		if (o.Leader == model.TeamTie) != (o.Margin == 0) {
			t.Fatalf("leader = %q with margin %d", o.Leader, o.Margin)
		}
		if o.Leader == model.TeamChildren && children <= parents {
			t.Fatalf("children lead with %d <= %d", children, parents)
		}
		if o.Leader == model.TeamParents && parents <= children {
			t.Fatalf("parents lead with %d <= %d", parents, children)
		}
	})
}

// TestCloseAgreesWithResolveProperty checks that closing a week never
// disagrees with the live standing for the same totals.
func TestCloseAgreesWithResolveProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		children := rapid.Int64Range(0, 1_000_000).Draw(t, "children")
		parents := rapid.Int64Range(0, 1_000_000).Draw(t, "parents")

		o := Resolve(children, parents)
		f := Close(children, parents)

		if f.Winner != o.Leader {
			t.Fatalf("winner %q != leader %q", f.Winner, o.Leader)
		}
		if f.Margin != o.Margin {
			t.Fatalf("final margin %d != live margin %d", f.Margin, o.Margin)
		}
		if f.FinalStatus == "" {
			t.Fatal("empty final status")
		}
	})
}
