package itinerary

import (
	"context"
	"errors"
	"testing"

	"tripmate/internal/model"
)

type fakeStops struct {
	stops  map[int64]model.Stop
	calls  []int64
	failOn int64
}

func newFakeStops(stops ...model.Stop) *fakeStops {
	f := &fakeStops{stops: map[int64]model.Stop{}}
	for _, s := range stops {
		f.stops[s.ID] = s
	}
	return f
}

func (f *fakeStops) UpdateStop(_ context.Context, _ int64, stopID int64, upd model.StopUpdate) (model.Stop, error) {
	f.calls = append(f.calls, stopID)
	if stopID == f.failOn {
		return model.Stop{}, errors.New("connection reset")
	}
	s := upd.Apply(f.stops[stopID])
	f.stops[stopID] = s
	return s, nil
}

func (f *fakeStops) list() []model.Stop {
	out := make([]model.Stop, 0, len(f.stops))
	for _, s := range f.stops {
		out = append(out, s)
	}
	return out
}

type batchStops struct {
	*fakeStops
	batches int
	err     error
}

func (b *batchStops) UpdateStopDates(_ context.Context, _ int64, dates map[int64]string) error {
	b.batches++
	if b.err != nil {
		return b.err
	}
	for id, d := range dates {
		s := b.stops[id]
		s.Date = d
		b.stops[id] = s
	}
	return nil
}

type fakeTrips struct {
	calls      int
	start, end string
	// failures is the number of calls that fail before one succeeds.
	failures int
}

func (f *fakeTrips) UpdateTripDates(_ context.Context, _ int64, start, end string) error {
	f.calls++
	if f.failures > 0 {
		f.failures--
		return errors.New("connection reset")
	}
	f.start, f.end = start, end
	return nil
}

func christmasStops() []model.Stop {
	return []model.Stop{
		stop(1, "2024-12-25", "09:00"),
		stop(2, "2024-12-25", "14:00"),
		stop(3, "2024-12-26", "10:00"),
	}
}

func TestPlanRemap_ShiftPreservesOffsets(t *testing.T) {
	rp, err := PlanRemap(christmasPlan(), "2024-12-28", "2024-12-30", christmasStops())
	if err != nil {
		t.Fatalf("PlanRemap: %v", err)
	}
	if rp.Warning != nil {
		t.Fatalf("unexpected warning: %+v", rp.Warning)
	}
	want := map[int64]string{1: "2024-12-28", 2: "2024-12-28", 3: "2024-12-29"}
	if len(rp.Changes) != 3 {
		t.Fatalf("expected 3 changes, got %d", len(rp.Changes))
	}
	for _, c := range rp.Changes {
		if c.To != want[c.Stop.ID] {
			t.Fatalf("stop %d -> %s, want %s", c.Stop.ID, c.To, want[c.Stop.ID])
		}
	}
}

func TestPlanRemap_ExtendingEndLeavesStopsUnchanged(t *testing.T) {
	rp, err := PlanRemap(christmasPlan(), "2024-12-25", "2024-12-31", christmasStops())
	if err != nil {
		t.Fatalf("PlanRemap: %v", err)
	}
	if len(rp.Changes) != 0 || len(rp.Unchanged) != 3 {
		t.Fatalf("changes=%d unchanged=%d", len(rp.Changes), len(rp.Unchanged))
	}
	if !rp.DatesChanged() {
		t.Fatalf("expected plan dates to be reported as changed")
	}
}

func TestPlanRemap_InvalidRangeRejected(t *testing.T) {
	if _, err := PlanRemap(christmasPlan(), "2024-12-30", "2024-12-28", christmasStops()); !errors.Is(err, ErrInvalidRange) {
		t.Fatalf("expected ErrInvalidRange, got %v", err)
	}
}

func TestPlanRemap_WarnsWhenRangeShorterThanDaysInUse(t *testing.T) {
	stops := []model.Stop{
		stop(1, "2024-12-25", "09:00"),
		stop(2, "2024-12-26", "09:00"),
		stop(3, "2024-12-27", "09:00"),
	}
	rp, err := PlanRemap(christmasPlan(), "2024-12-25", "2024-12-25", stops)
	if err != nil {
		t.Fatalf("PlanRemap: %v", err)
	}
	if rp.Warning == nil {
		t.Fatalf("expected warning")
	}
	if rp.Warning.DistinctDates != 3 || rp.Warning.NewDays != 1 {
		t.Fatalf("warning = %+v", rp.Warning)
	}
	if len(rp.Warning.Outside) != 2 {
		t.Fatalf("expected 2 stops outside the new range, got %d", len(rp.Warning.Outside))
	}
	if rp.Warning.Message() == "" {
		t.Fatalf("empty warning message")
	}
}

func TestRemap_CancelAtWarningSendsNothing(t *testing.T) {
	stops := []model.Stop{
		stop(1, "2024-12-25", "09:00"),
		stop(2, "2024-12-26", "09:00"),
		stop(3, "2024-12-27", "09:00"),
	}
	fs := newFakeStops(stops...)
	ft := &fakeTrips{}
	refreshed := 0
	r := &Remapper{Stops: fs, Trips: ft, Refresh: func(context.Context, int64) { refreshed++ }}

	prompted := false
	_, err := r.Remap(context.Background(), christmasPlan(), "2025-01-10", "2025-01-10", stops, func(w RemapWarning) bool {
		prompted = true
		if len(fs.calls) != 0 || ft.calls != 0 {
			t.Fatalf("update issued before the warning was answered")
		}
		return false
	})
	if !errors.Is(err, ErrRemapCancelled) {
		t.Fatalf("expected ErrRemapCancelled, got %v", err)
	}
	if !prompted {
		t.Fatalf("warning prompt did not fire")
	}
	if len(fs.calls) != 0 || ft.calls != 0 || refreshed != 0 {
		t.Fatalf("cancel made calls: stops=%d trips=%d refresh=%d", len(fs.calls), ft.calls, refreshed)
	}
	for _, s := range stops {
		if fs.stops[s.ID].Date != s.Date {
			t.Fatalf("stop %d date changed to %s", s.ID, fs.stops[s.ID].Date)
		}
	}
}

func TestRemap_SequentialRoundTripKeepsDayPlacement(t *testing.T) {
	fs := newFakeStops(christmasStops()...)
	ft := &fakeTrips{}
	var refreshedPlan int64
	r := &Remapper{Stops: fs, Trips: ft, Refresh: func(_ context.Context, id int64) { refreshedPlan = id }}

	res, err := r.Remap(context.Background(), christmasPlan(), "2024-12-28", "2024-12-30", christmasStops(), nil)
	if err != nil {
		t.Fatalf("Remap: %v", err)
	}
	if res.Batched {
		t.Fatalf("expected sequential path")
	}
	if len(fs.calls) != 3 || fs.calls[0] != 1 || fs.calls[1] != 2 || fs.calls[2] != 3 {
		t.Fatalf("update order = %v", fs.calls)
	}
	if ft.calls != 1 || ft.start != "2024-12-28" || ft.end != "2024-12-30" {
		t.Fatalf("trip dates = %d calls, %s..%s", ft.calls, ft.start, ft.end)
	}
	if refreshedPlan != 1 {
		t.Fatalf("map not refreshed after remap")
	}

	before := BuildDayBuckets(christmasPlan(), christmasStops())
	after := BuildDayBuckets(res.Plan, fs.list())
	for i := range before {
		b, a := bucketIDs(before[i]), bucketIDs(after[i])
		if len(a) != len(b) {
			t.Fatalf("day %d: before %v after %v", i, b, a)
		}
		for j := range b {
			if a[j] != b[j] {
				t.Fatalf("day %d: before %v after %v", i, b, a)
			}
		}
	}
}

func TestRemap_PartialFailureReportsAndRetries(t *testing.T) {
	fs := newFakeStops(christmasStops()...)
	fs.failOn = 2
	ft := &fakeTrips{}
	r := &Remapper{Stops: fs, Trips: ft}

	_, err := r.Remap(context.Background(), christmasPlan(), "2024-12-28", "2024-12-30", christmasStops(), nil)
	var perr *PartialRemapError
	if !errors.As(err, &perr) {
		t.Fatalf("expected PartialRemapError, got %v", err)
	}
	if len(perr.Succeeded) != 1 || perr.Succeeded[0].Stop.ID != 1 {
		t.Fatalf("succeeded = %+v", perr.Succeeded)
	}
	if perr.Failed.Stop.ID != 2 {
		t.Fatalf("failed = %d", perr.Failed.Stop.ID)
	}
	if len(perr.NotAttempted) != 1 || perr.NotAttempted[0].Stop.ID != 3 {
		t.Fatalf("not attempted = %+v", perr.NotAttempted)
	}
	if fs.stops[1].Date != "2024-12-28" || fs.stops[3].Date != "2024-12-26" {
		t.Fatalf("unexpected backend state: 1=%s 3=%s", fs.stops[1].Date, fs.stops[3].Date)
	}
	if ft.calls != 0 {
		t.Fatalf("plan dates persisted despite failure")
	}

	fs.failOn = 0
	fs.calls = nil
	res, err := r.RetryFailed(context.Background(), perr)
	if err != nil {
		t.Fatalf("RetryFailed: %v", err)
	}
	if len(fs.calls) != 2 || fs.calls[0] != 2 || fs.calls[1] != 3 {
		t.Fatalf("retry calls = %v, want [2 3]", fs.calls)
	}
	if res.Plan.StartDate != "2024-12-28" || ft.calls != 1 {
		t.Fatalf("plan not finalized after retry: %+v trips=%d", res.Plan, ft.calls)
	}
}

func TestRemap_BatchPathIsSingleCall(t *testing.T) {
	bs := &batchStops{fakeStops: newFakeStops(christmasStops()...)}
	ft := &fakeTrips{}
	r := &Remapper{Stops: bs, Trips: ft}

	res, err := r.Remap(context.Background(), christmasPlan(), "2024-12-28", "2024-12-30", christmasStops(), nil)
	if err != nil {
		t.Fatalf("Remap: %v", err)
	}
	if !res.Batched || bs.batches != 1 || len(bs.calls) != 0 {
		t.Fatalf("batched=%v batches=%d single calls=%d", res.Batched, bs.batches, len(bs.calls))
	}
	if bs.stops[3].Date != "2024-12-29" {
		t.Fatalf("stop 3 date = %s", bs.stops[3].Date)
	}
}

func TestRemap_BatchFailureChangesNothing(t *testing.T) {
	bs := &batchStops{fakeStops: newFakeStops(christmasStops()...), err: errors.New("tx aborted")}
	ft := &fakeTrips{}
	r := &Remapper{Stops: bs, Trips: ft}

	_, err := r.Remap(context.Background(), christmasPlan(), "2024-12-28", "2024-12-30", christmasStops(), nil)
	if err == nil {
		t.Fatalf("expected error")
	}
	var perr *PartialRemapError
	if errors.As(err, &perr) {
		t.Fatalf("batch failure should not be partial")
	}
	if ft.calls != 0 || bs.stops[1].Date != "2024-12-25" {
		t.Fatalf("state changed after failed batch")
	}
}

func TestRemap_OffsetPreservedForEveryStop(t *testing.T) {
	plan := model.Plan{ID: 1, StartDate: "2024-02-26", EndDate: "2024-03-03"}
	var stops []model.Stop
	for i, d := range ExpandDates(plan.StartDate, plan.EndDate) {
		stops = append(stops, stop(int64(i+1), d, "08:00"))
	}
	for _, newStart := range []string{"2023-02-26", "2024-12-30", "2024-02-20"} {
		newEnd, _ := AddDays(newStart, 6)
		rp, err := PlanRemap(plan, newStart, newEnd, stops)
		if err != nil {
			t.Fatalf("PlanRemap(%s): %v", newStart, err)
		}
		for _, c := range rp.Changes {
			before, _ := DayOffset(plan.StartDate, c.From)
			after, _ := DayOffset(newStart, c.To)
			if before != after {
				t.Fatalf("stop %d offset %d -> %d", c.Stop.ID, before, after)
			}
		}
	}
}

func TestPlanRemap_OutsideListedWithoutWarning(t *testing.T) {
	stops := []model.Stop{
		stop(1, "2024-12-25", "09:00"),
		stop(2, "2024-12-27", "09:00"),
	}
	rp, err := PlanRemap(christmasPlan(), "2024-12-25", "2024-12-26", stops)
	if err != nil {
		t.Fatalf("PlanRemap: %v", err)
	}
	if rp.Warning != nil {
		t.Fatalf("two days in use fit a two day range, got warning %+v", rp.Warning)
	}
	if len(rp.Outside) != 1 || rp.Outside[0].ID != 2 {
		t.Fatalf("outside = %+v", rp.Outside)
	}

	r := &Remapper{Stops: newFakeStops(stops...), Trips: &fakeTrips{}}
	res, err := r.Apply(context.Background(), rp)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if len(res.Outside) != 1 {
		t.Fatalf("result outside = %+v", res.Outside)
	}
}

func TestRemap_TripDatesFailureResumesWithoutMovingStopsAgain(t *testing.T) {
	for _, batched := range []bool{false, true} {
		fs := newFakeStops(christmasStops()...)
		var stops StopUpdater = fs
		if batched {
			stops = &batchStops{fakeStops: fs}
		}
		ft := &fakeTrips{failures: 1}
		refreshed := 0
		r := &Remapper{Stops: stops, Trips: ft, Refresh: func(context.Context, int64) { refreshed++ }}

		_, err := r.Remap(context.Background(), christmasPlan(), "2024-12-28", "2024-12-30", christmasStops(), nil)
		var terr *TripDatesError
		if !errors.As(err, &terr) {
			t.Fatalf("batched=%v: expected TripDatesError, got %v", batched, err)
		}
		if !Resumable(err) || len(terr.Updated) != 3 || terr.Plan.StartDate != "2024-12-25" {
			t.Fatalf("batched=%v: error = %+v", batched, terr)
		}
		if refreshed != 0 {
			t.Fatalf("batched=%v: map refreshed before the trip was saved", batched)
		}

		calls := len(fs.calls)
		res, err := r.Resume(context.Background(), err)
		if err != nil {
			t.Fatalf("batched=%v: Resume: %v", batched, err)
		}
		if len(fs.calls) != calls {
			t.Fatalf("batched=%v: resume sent %d stop updates", batched, len(fs.calls)-calls)
		}
		if ft.calls != 2 || ft.start != "2024-12-28" || ft.end != "2024-12-30" {
			t.Fatalf("batched=%v: trip dates = %d calls, %s..%s", batched, ft.calls, ft.start, ft.end)
		}
		want := map[int64]string{1: "2024-12-28", 2: "2024-12-28", 3: "2024-12-29"}
		for id, d := range want {
			if fs.stops[id].Date != d {
				t.Fatalf("batched=%v: stop %d on %s, want %s", batched, id, fs.stops[id].Date, d)
			}
		}
		if res.Plan.StartDate != "2024-12-28" || res.Batched != batched || refreshed != 1 {
			t.Fatalf("batched=%v: result = %+v refreshed=%d", batched, res, refreshed)
		}
	}
}

func TestRemap_RetryThenTripDatesFailureStaysResumable(t *testing.T) {
	fs := newFakeStops(christmasStops()...)
	fs.failOn = 3
	ft := &fakeTrips{failures: 1}
	r := &Remapper{Stops: fs, Trips: ft}

	_, err := r.Remap(context.Background(), christmasPlan(), "2024-12-28", "2024-12-30", christmasStops(), nil)
	var perr *PartialRemapError
	if !errors.As(err, &perr) {
		t.Fatalf("expected PartialRemapError, got %v", err)
	}

	fs.failOn = 0
	_, err = r.Resume(context.Background(), err)
	var terr *TripDatesError
	if !errors.As(err, &terr) {
		t.Fatalf("expected TripDatesError after retry, got %v", err)
	}
	if len(terr.Updated) != 3 {
		t.Fatalf("updated = %d, want every stop", len(terr.Updated))
	}

	res, err := r.Resume(context.Background(), err)
	if err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if fs.stops[3].Date != "2024-12-29" || res.Plan.EndDate != "2024-12-30" || len(res.Updated) != 3 {
		t.Fatalf("stop 3 = %s, result = %+v", fs.stops[3].Date, res)
	}
}

func TestResume_RejectsOtherErrors(t *testing.T) {
	r := &Remapper{Stops: newFakeStops(), Trips: &fakeTrips{}}
	if Resumable(ErrRemapCancelled) {
		t.Fatalf("a cancelled remap is not resumable")
	}
	if _, err := r.Resume(context.Background(), ErrRemapCancelled); err == nil {
		t.Fatalf("expected error")
	}
}
