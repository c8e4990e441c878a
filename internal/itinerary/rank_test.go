package itinerary

import (
	"errors"
	"testing"

	"tripmate/internal/model"
)

func TestRankBetween(t *testing.T) {
	cases := []struct{ lo, hi string }{
		{"", ""},
		{"h", ""},
		{"", "h"},
		{"a", "c"},
		{"a", "b"},
		{"y", "z"},
		{"h0", "h1"},
	}
	for _, tc := range cases {
		r, err := RankBetween(tc.lo, tc.hi)
		if err != nil {
			t.Fatalf("RankBetween(%q, %q): %v", tc.lo, tc.hi, err)
		}
		if tc.lo != "" && !(tc.lo < r) {
			t.Fatalf("RankBetween(%q, %q) = %q, not above lower bound", tc.lo, tc.hi, r)
		}
		if tc.hi != "" && !(r < tc.hi) {
			t.Fatalf("RankBetween(%q, %q) = %q, not below upper bound", tc.lo, tc.hi, r)
		}
	}
}

func TestRankBetween_NoSpace(t *testing.T) {
	if _, err := RankBetween("y", "y0"); !errors.Is(err, ErrNoRankSpace) {
		t.Fatalf("expected ErrNoRankSpace, got %v", err)
	}
	if _, err := RankBetween("c", "a"); err == nil {
		t.Fatalf("expected error for inverted bounds")
	}
}

func TestRankAfter_StrictlyIncreasing(t *testing.T) {
	prev := ""
	for i := 0; i < 40; i++ {
		r, err := RankAfter(prev)
		if err != nil {
			t.Fatalf("RankAfter(%q): %v", prev, err)
		}
		if prev != "" && !(prev < r) {
			t.Fatalf("RankAfter(%q) = %q", prev, r)
		}
		prev = r
	}
}

func TestPlanSessionRanks_PersistsDraggedTieOrder(t *testing.T) {
	a := stop(1, "2024-12-25", "12:00")
	b := stop(2, "2024-12-25", "12:00")
	c := stop(3, "2024-12-25", "09:00")

	// Session order after dragging b above a.
	updates, err := PlanSessionRanks([]model.Stop{c, b, a})
	if err != nil {
		t.Fatalf("PlanSessionRanks: %v", err)
	}
	if _, ok := updates[3]; ok {
		t.Fatalf("lone stop should not get a rank")
	}
	if updates[2] == "" || updates[1] == "" || !(updates[2] < updates[1]) {
		t.Fatalf("ranks = %v, want rank(2) < rank(1)", updates)
	}

	a.Rank, b.Rank = updates[1], updates[2]
	got := bucketIDs(BuildDayBuckets(christmasPlan(), []model.Stop{a, b, c})[0])
	if got[0] != 3 || got[1] != 2 || got[2] != 1 {
		t.Fatalf("reloaded order = %v, want [3 2 1]", got)
	}
}

func TestPlanSessionRanks_NoChangeWhenAlreadyRanked(t *testing.T) {
	a := stop(1, "2024-12-25", "12:00")
	a.Rank = "h"
	b := stop(2, "2024-12-25", "12:00")
	b.Rank = "q"
	updates, err := PlanSessionRanks([]model.Stop{a, b})
	if err != nil {
		t.Fatalf("PlanSessionRanks: %v", err)
	}
	if len(updates) != 0 {
		t.Fatalf("expected no updates, got %v", updates)
	}
}
