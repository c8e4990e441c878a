package drag

import (
	"errors"
	"testing"
	"time"

	"tripmate/internal/model"
)

func bucket(date string, ids ...int64) model.DayBucket {
	b := model.DayBucket{Date: date}
	for _, id := range ids {
		b.Stops = append(b.Stops, model.Stop{ID: id, Date: date, Time: "10:00"})
	}
	return b
}

func ids(stops []model.Stop) []int64 {
	out := make([]int64, len(stops))
	for i, s := range stops {
		out[i] = s.ID
	}
	return out
}

func equalIDs(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestDragMovesByRows(t *testing.T) {
	const rowHeight = 40
	for _, tc := range []struct {
		name  string
		start int
		disp  int
		want  []int64
	}{
		{"down one", 0, 40, []int64{2, 1, 3, 4, 5}},
		{"down two rounds", 0, 70, []int64{2, 3, 1, 4, 5}},
		{"below half stays", 2, 19, []int64{1, 2, 3, 4, 5}},
		{"up one", 3, -40, []int64{1, 2, 4, 3, 5}},
		{"clamped low", 1, -400, []int64{2, 1, 3, 4, 5}},
		{"clamped high", 1, 4000, []int64{1, 3, 4, 5, 2}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			c := NewController(rowHeight)
			if err := c.Begin(bucket("2024-12-25", 1, 2, 3, 4, 5), tc.start); err != nil {
				t.Fatalf("Begin: %v", err)
			}
			c.Update(tc.disp)
			got, err := c.End()
			if err != nil {
				t.Fatalf("End: %v", err)
			}
			if !equalIDs(ids(got), tc.want) {
				t.Fatalf("order = %v, want %v", ids(got), tc.want)
			}
			if c.State() != Idle {
				t.Fatalf("state after End = %v", c.State())
			}
		})
	}
}

func TestDragLiveUpdatesTrackIndex(t *testing.T) {
	c := NewController(10)
	if err := c.Begin(bucket("2024-12-25", 1, 2, 3, 4), 0); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	steps := []struct {
		disp    int
		index   int
		changed bool
	}{
		{4, 0, false},
		{6, 1, true},
		{12, 1, false},
		{25, 3, true},
		{11, 1, true},
		{-3, 0, true},
	}
	for _, s := range steps {
		order, changed := c.Update(s.disp)
		if changed != s.changed || c.Index() != s.index {
			t.Fatalf("disp %d: index=%d changed=%v, want %d %v", s.disp, c.Index(), changed, s.index, s.changed)
		}
		if order[c.Index()].ID != 1 || c.StopID() != 1 {
			t.Fatalf("disp %d: dragged stop not at tracked index: %v", s.disp, ids(order))
		}
	}
}

func TestDragSingleSession(t *testing.T) {
	c := NewController(1)
	if err := c.Begin(bucket("2024-12-25", 1, 2), 0); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := c.Begin(bucket("2024-12-26", 3, 4), 1); !errors.Is(err, ErrDragActive) {
		t.Fatalf("second Begin = %v, want ErrDragActive", err)
	}
	if c.Date() != "2024-12-25" {
		t.Fatalf("session switched to %s", c.Date())
	}
}

func TestDragErrors(t *testing.T) {
	c := NewController(1)
	if _, err := c.End(); !errors.Is(err, ErrNoDrag) {
		t.Fatalf("End while idle = %v", err)
	}
	if err := c.Begin(bucket("2024-12-25", 1), 1); !errors.Is(err, ErrIndexOutOfRange) {
		t.Fatalf("Begin out of range = %v", err)
	}
	if err := c.Begin(bucket("2024-12-25"), 0); !errors.Is(err, ErrIndexOutOfRange) {
		t.Fatalf("Begin on empty bucket = %v", err)
	}
	if order, changed := c.Update(5); order != nil || changed {
		t.Fatalf("Update while idle should be a no-op")
	}
}

func TestDragCancelRestoresOrder(t *testing.T) {
	c := NewController(1)
	b := bucket("2024-12-25", 1, 2, 3)
	if err := c.Begin(b, 0); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	c.Update(2)
	got := c.Cancel()
	if !equalIDs(ids(got), []int64{1, 2, 3}) {
		t.Fatalf("cancel order = %v", ids(got))
	}
	if c.Active() {
		t.Fatalf("still active after Cancel")
	}
}

func TestDragNeverChangesDates(t *testing.T) {
	c := NewController(1)
	b := bucket("2024-12-26", 1, 2, 3)
	if err := c.Begin(b, 2); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	c.Update(-2)
	got, _ := c.End()
	for _, s := range got {
		if s.Date != "2024-12-26" {
			t.Fatalf("stop %d moved to %s", s.ID, s.Date)
		}
	}
	if !equalIDs(ids(b.Stops), []int64{1, 2, 3}) {
		t.Fatalf("input bucket mutated: %v", ids(b.Stops))
	}
}

func TestTargetIndex(t *testing.T) {
	if got := TargetIndex(2, 15, 10, 5); got != 4 {
		t.Fatalf("TargetIndex(2, 15, 10, 5) = %d, want 4", got)
	}
	if got := TargetIndex(2, -15, 10, 5); got != 0 {
		t.Fatalf("TargetIndex(2, -15, 10, 5) = %d, want 0", got)
	}
	if got := TargetIndex(0, 5, 0, 0); got != 0 {
		t.Fatalf("TargetIndex on empty = %d", got)
	}
}

func TestHoldGate(t *testing.T) {
	now := time.Date(2024, 12, 25, 9, 0, 0, 0, time.UTC)
	g := NewHoldGate(300 * time.Millisecond)
	g.now = func() time.Time { return now }

	g.Press(4, 7)
	if g.Held() {
		t.Fatalf("held immediately")
	}
	now = now.Add(100 * time.Millisecond)
	if !g.Release() {
		t.Fatalf("short press should be a tap")
	}

	g.Press(4, 7)
	now = now.Add(300 * time.Millisecond)
	if !g.Held() {
		t.Fatalf("expected hold after threshold")
	}
	if x, y := g.Origin(); x != 4 || y != 7 {
		t.Fatalf("origin = %d,%d", x, y)
	}
	if g.Release() {
		t.Fatalf("long press reported as tap")
	}
	if g.Pressed() {
		t.Fatalf("still pressed after release")
	}
}
