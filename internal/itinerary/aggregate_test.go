package itinerary

import (
	"testing"

	"tripmate/internal/model"
)

func stop(id int64, date, tm string) model.Stop {
	return model.Stop{ID: id, PlanID: 1, Date: date, Time: tm, Location: model.Location{Name: "stop"}}
}

func christmasPlan() model.Plan {
	return model.Plan{ID: 1, Place: "Seoul", StartDate: "2024-12-25", EndDate: "2024-12-27"}
}

func bucketIDs(b model.DayBucket) []int64 {
	ids := make([]int64, len(b.Stops))
	for i, s := range b.Stops {
		ids[i] = s.ID
	}
	return ids
}

func TestBuildDayBuckets_ChristmasTrip(t *testing.T) {
	stops := []model.Stop{
		stop(3, "2024-12-26", "10:00"),
		stop(2, "2024-12-25", "14:00"),
		stop(1, "2024-12-25", "09:00"),
	}
	buckets := BuildDayBuckets(christmasPlan(), stops)
	if len(buckets) != 3 {
		t.Fatalf("expected 3 buckets, got %d", len(buckets))
	}
	if got := bucketIDs(buckets[0]); len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Fatalf("bucket[0] = %v, want [1 2]", got)
	}
	if got := bucketIDs(buckets[1]); len(got) != 1 || got[0] != 3 {
		t.Fatalf("bucket[1] = %v, want [3]", got)
	}
	if len(buckets[2].Stops) != 0 {
		t.Fatalf("bucket[2] should be empty, got %v", bucketIDs(buckets[2]))
	}
	for i, b := range buckets {
		if b.Index != i {
			t.Fatalf("bucket %d has Index %d", i, b.Index)
		}
	}
}

func TestBuildDayBuckets_EmptyStopsStillRendersEveryDay(t *testing.T) {
	buckets := BuildDayBuckets(christmasPlan(), nil)
	if len(buckets) != 3 {
		t.Fatalf("expected 3 buckets, got %d", len(buckets))
	}
	for _, b := range buckets {
		if b.Stops == nil || len(b.Stops) != 0 {
			t.Fatalf("bucket %s: want empty non-nil stops, got %#v", b.Date, b.Stops)
		}
	}
}

func TestBuildDayBuckets_DropsOutOfRangeStops(t *testing.T) {
	stops := []model.Stop{
		stop(1, "2024-12-24", "09:00"),
		stop(2, "2024-12-25", "09:00"),
		stop(3, "2024-12-28", "09:00"),
		stop(4, "not-a-date", "09:00"),
	}
	buckets := BuildDayBuckets(christmasPlan(), stops)
	total := 0
	for _, b := range buckets {
		total += len(b.Stops)
	}
	if total != 1 {
		t.Fatalf("expected 1 in-range stop, got %d", total)
	}
	if got := Dropped(christmasPlan(), stops); len(got) != 3 {
		t.Fatalf("Dropped = %d stops, want 3", len(got))
	}
}

func TestBuildDayBuckets_StableForEqualTimes(t *testing.T) {
	stops := []model.Stop{
		stop(10, "2024-12-25", "12:00"),
		stop(11, "2024-12-25", "09:00"),
		stop(12, "2024-12-25", "12:00"),
		stop(13, "2024-12-25", "12:00"),
	}
	got := bucketIDs(BuildDayBuckets(christmasPlan(), stops)[0])
	want := []int64{11, 10, 12, 13}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
}

func TestBuildDayBuckets_RankBreaksTiesOnly(t *testing.T) {
	a := stop(1, "2024-12-25", "12:00")
	a.Rank = "q"
	b := stop(2, "2024-12-25", "12:00")
	b.Rank = "h"
	c := stop(3, "2024-12-25", "08:00")
	c.Rank = "z"
	d := stop(4, "2024-12-25", "12:00")

	got := bucketIDs(BuildDayBuckets(christmasPlan(), []model.Stop{a, b, c, d})[0])
	want := []int64{3, 2, 1, 4}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
}

func TestBuildDayBuckets_UnpaddedTimesSortByClock(t *testing.T) {
	stops := []model.Stop{
		stop(1, "2024-12-25", "10:30"),
		stop(2, "2024-12-25", "9:15"),
	}
	got := bucketIDs(BuildDayBuckets(christmasPlan(), stops)[0])
	if got[0] != 2 || got[1] != 1 {
		t.Fatalf("order = %v, want [2 1]", got)
	}
}

func TestBuildDayBuckets_DoesNotReorderInput(t *testing.T) {
	stops := []model.Stop{
		stop(2, "2024-12-25", "14:00"),
		stop(1, "2024-12-25", "09:00"),
	}
	BuildDayBuckets(christmasPlan(), stops)
	if stops[0].ID != 2 || stops[1].ID != 1 {
		t.Fatalf("input slice was reordered: %v", stops)
	}
}

func TestBuildDayBuckets_InvertedRangeYieldsNoBuckets(t *testing.T) {
	plan := model.Plan{StartDate: "2024-12-27", EndDate: "2024-12-25"}
	if got := BuildDayBuckets(plan, []model.Stop{stop(1, "2024-12-26", "09:00")}); len(got) != 0 {
		t.Fatalf("expected no buckets, got %d", len(got))
	}
}

func TestFindStop(t *testing.T) {
	buckets := BuildDayBuckets(christmasPlan(), []model.Stop{
		stop(1, "2024-12-25", "09:00"),
		stop(2, "2024-12-27", "09:00"),
	})
	b, p, ok := FindStop(buckets, 2)
	if !ok || b != 2 || p != 0 {
		t.Fatalf("FindStop = %d, %d, %v", b, p, ok)
	}
	if _, _, ok := FindStop(buckets, 99); ok {
		t.Fatalf("expected missing stop")
	}
}
