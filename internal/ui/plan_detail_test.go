package ui

import (
	"strings"
	"testing"
	"time"

	"tripmate/internal/mapsync"
	"tripmate/internal/model"
)

func detailFixture() (model.Plan, []model.Stop) {
	plan := model.Plan{ID: 1, Place: "Seoul", StartDate: "2024-12-25", EndDate: "2024-12-27"}
	stops := []model.Stop{
		{ID: 1, PlanID: 1, Location: model.Location{Name: "Palace", Latitude: 37.57, Longitude: 126.97}, Date: "2024-12-25", Time: "10:00"},
		{ID: 2, PlanID: 1, Location: model.Location{Name: "Market", Latitude: 37.56, Longitude: 126.99}, Date: "2024-12-25", Time: "10:00"},
		{ID: 3, PlanID: 1, Location: model.Location{Name: "Tower", Latitude: 37.55, Longitude: 126.98}, Date: "2024-12-25", Time: "18:00"},
		{ID: 4, PlanID: 1, Location: model.Location{Name: "Bukchon", Latitude: 37.58, Longitude: 126.98}, Date: "2024-12-26", Time: "09:00"},
	}
	return plan, stops
}

func bucketIDs(d *PlanDetailModel, bucket int) []int64 {
	var ids []int64
	for _, s := range d.buckets[bucket].Stops {
		ids = append(ids, s.ID)
	}
	return ids
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

func TestKeyboardDragReordersWithinDay(t *testing.T) {
	plan, stops := detailFixture()
	d := NewPlanDetailModel(plan, stops, 1, time.Hour)

	if err := d.BeginDrag(); err != nil {
		t.Fatalf("BeginDrag: %v", err)
	}
	d.DragBy(1)
	moved, err := d.EndDrag()
	if err != nil || !moved {
		t.Fatalf("EndDrag = %v, %v", moved, err)
	}
	if got := bucketIDs(d, 0); !equalIDs(got, []int64{2, 1, 3}) {
		t.Fatalf("order = %v", got)
	}
	if s, _ := d.SelectedStop(); s.ID != 1 {
		t.Fatalf("cursor on %d, want the dropped stop", s.ID)
	}
	if orders := d.SessionOrders(); len(orders) != 1 || len(orders[0]) != 3 {
		t.Fatalf("session = %v", orders)
	}

	// A reload with the same stops keeps the dragged order.
	d.SetData(plan, stops)
	if got := bucketIDs(d, 0); !equalIDs(got, []int64{2, 1, 3}) {
		t.Fatalf("order after reload = %v", got)
	}

	// Once the day's stops change, aggregation order wins again.
	d.SetData(plan, stops[:2])
	if got := bucketIDs(d, 0); !equalIDs(got, []int64{1, 2}) {
		t.Fatalf("order after change = %v", got)
	}
	if len(d.SessionOrders()) != 0 {
		t.Fatalf("session should be dropped")
	}
}

func TestDragIsClampedAndCancellable(t *testing.T) {
	plan, stops := detailFixture()
	d := NewPlanDetailModel(plan, stops, 1, time.Hour)

	if err := d.BeginDrag(); err != nil {
		t.Fatalf("BeginDrag: %v", err)
	}
	d.DragBy(10)
	if d.drag.Index() != 2 {
		t.Fatalf("index = %d, want last row of the day", d.drag.Index())
	}
	d.DragBy(-20)
	if d.drag.Index() != 0 {
		t.Fatalf("index = %d, want first row", d.drag.Index())
	}
	d.DragBy(2)
	d.CancelDrag()
	if d.Dragging() {
		t.Fatalf("still dragging")
	}
	if got := bucketIDs(d, 0); !equalIDs(got, []int64{1, 2, 3}) {
		t.Fatalf("order = %v", got)
	}
	if len(d.SessionOrders()) != 0 {
		t.Fatalf("cancel must not record a session order")
	}
}

func TestEmptyDayIsSelectableButNotDraggable(t *testing.T) {
	plan, stops := detailFixture()
	d := NewPlanDetailModel(plan, stops, 1, time.Hour)

	d.JumpToBottom()
	if d.SelectedDate() != "2024-12-27" {
		t.Fatalf("date = %s", d.SelectedDate())
	}
	if _, ok := d.SelectedStop(); ok {
		t.Fatalf("empty day has no stop")
	}
	if err := d.BeginDrag(); err == nil {
		t.Fatalf("drag on an empty day should fail")
	}
}

func TestDayNavigation(t *testing.T) {
	plan, stops := detailFixture()
	d := NewPlanDetailModel(plan, stops, 1, time.Hour)

	d.NextDay()
	if s, _ := d.SelectedStop(); s.ID != 4 {
		t.Fatalf("NextDay landed on %d", s.ID)
	}
	d.NextDay()
	if d.SelectedDate() != "2024-12-27" {
		t.Fatalf("NextDay date = %s", d.SelectedDate())
	}
	d.PrevDay()
	d.PrevDay()
	if s, _ := d.SelectedStop(); s.ID != 1 {
		t.Fatalf("PrevDay landed on %d", s.ID)
	}
}

func TestPressHoldDragRelease(t *testing.T) {
	plan, stops := detailFixture()
	d := NewPlanDetailModel(plan, stops, 1, time.Millisecond)

	// Line 0 is the first day's heading, line 1 its first stop.
	d.Press(4, 1)
	time.Sleep(5 * time.Millisecond)
	if !d.HoldElapsed() || !d.Dragging() {
		t.Fatalf("hold should start a drag")
	}
	d.Motion(3)
	moved, err := d.Release()
	if err != nil || !moved {
		t.Fatalf("Release = %v, %v", moved, err)
	}
	if got := bucketIDs(d, 0); !equalIDs(got, []int64{2, 3, 1}) {
		t.Fatalf("order = %v", got)
	}
}

func TestTapSelectsWithoutDragging(t *testing.T) {
	plan, stops := detailFixture()
	d := NewPlanDetailModel(plan, stops, 1, time.Hour)

	d.Press(4, 2)
	d.Motion(3)
	if d.Dragging() {
		t.Fatalf("a short press must not drag")
	}
	moved, err := d.Release()
	if err != nil || moved {
		t.Fatalf("Release = %v, %v", moved, err)
	}
	if s, _ := d.SelectedStop(); s.ID != 2 {
		t.Fatalf("selected %d, want the tapped stop", s.ID)
	}
}

func TestDetailViewShowsDaysAndHiddenStops(t *testing.T) {
	plan, stops := detailFixture()
	stops = append(stops, model.Stop{ID: 9, PlanID: 1, Location: model.Location{Name: "Airport"}, Date: "2024-12-30", Time: "08:00"})
	d := NewPlanDetailModel(plan, stops, 1, time.Hour)

	out := d.View(70, 30, mapsync.Document{}, false, TerminalCapabilities{})
	for _, want := range []string{"Palace", "Day 3", "nothing planned", "1 stop outside these dates"} {
		if !strings.Contains(out, want) {
			t.Fatalf("view missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Airport") {
		t.Fatalf("stop outside the range must not be listed")
	}
}
