package itinerary

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"tripmate/internal/logging"
	"tripmate/internal/model"
)

// ErrRemapCancelled is returned when the user declines a remap warning.
var ErrRemapCancelled = errors.New("date change cancelled")

// StopUpdater persists a single stop edit.
type StopUpdater interface {
	UpdateStop(ctx context.Context, planID, stopID int64, upd model.StopUpdate) (model.Stop, error)
}

// BatchStopDateUpdater persists many stop dates in one atomic request.
// A StopUpdater that also implements it is used through the batch path.
type BatchStopDateUpdater interface {
	UpdateStopDates(ctx context.Context, planID int64, dates map[int64]string) error
}

// TripDateUpdater persists a plan's date range.
type TripDateUpdater interface {
	UpdateTripDates(ctx context.Context, planID int64, start, end string) error
}

// ConfirmFunc asks the user whether to continue despite a warning.
type ConfirmFunc func(RemapWarning) bool

// DateChange moves one stop from one date to another.
type DateChange struct {
	Stop   model.Stop
	From   string
	To     string
	Offset int
}

// RemapWarning describes a new range too short for the days already in use.
type RemapWarning struct {
	DistinctDates int
	NewDays       int
	// Outside lists stops whose remapped date falls past the new range.
	Outside []model.Stop
}

// Message renders the warning for a confirmation prompt.
func (w RemapWarning) Message() string {
	msg := fmt.Sprintf("Stops use %d different days but the new range has only %d.", w.DistinctDates, w.NewDays)
	if n := len(w.Outside); n > 0 {
		msg += fmt.Sprintf(" %d stop(s) will fall outside the visible days and stay there until moved.", n)
	}
	return msg
}

// RemapPlan is the full set of updates a date range change needs, computed
// before any of them is sent.
type RemapPlan struct {
	Plan      model.Plan
	NewStart  string
	NewEnd    string
	Changes   []DateChange
	Unchanged []model.Stop
	// Skipped holds stops whose stored date cannot be parsed; they are left alone.
	Skipped []model.Stop
	// Outside lists stops that land past the new range, warning or not.
	Outside []model.Stop
	Warning *RemapWarning
}

// DatesChanged reports whether the plan's own range differs from the new one.
func (p RemapPlan) DatesChanged() bool {
	return p.Plan.StartDate != p.NewStart || p.Plan.EndDate != p.NewEnd
}

// PlanRemap computes, without side effects, where every stop lands when the plan's
// range becomes [newStart, newEnd]. Each stop keeps its day offset from the start.
func PlanRemap(plan model.Plan, newStart, newEnd string, stops []model.Stop) (RemapPlan, error) {
	newStart, newEnd = strings.TrimSpace(newStart), strings.TrimSpace(newEnd)
	if err := ValidateRange(newStart, newEnd); err != nil {
		return RemapPlan{}, err
	}
	if _, err := ParseDate(plan.StartDate); err != nil {
		return RemapPlan{}, fmt.Errorf("%w: current start: %v", ErrInvalidRange, err)
	}

	rp := RemapPlan{Plan: plan, NewStart: newStart, NewEnd: newEnd}
	for _, s := range stops {
		from := normalizeDate(s.Date)
		offset, err := DayOffset(plan.StartDate, from)
		if err != nil {
			rp.Skipped = append(rp.Skipped, s)
			continue
		}
		to, err := AddDays(newStart, offset)
		if err != nil {
			rp.Skipped = append(rp.Skipped, s)
			continue
		}
		if to == from {
			rp.Unchanged = append(rp.Unchanged, s)
			continue
		}
		rp.Changes = append(rp.Changes, DateChange{Stop: s, From: from, To: to, Offset: offset})
	}

	for _, c := range rp.Changes {
		if !InRange(c.To, newStart, newEnd) {
			moved := c.Stop
			moved.Date = c.To
			rp.Outside = append(rp.Outside, moved)
		}
	}
	for _, s := range rp.Unchanged {
		if !InRange(normalizeDate(s.Date), newStart, newEnd) {
			rp.Outside = append(rp.Outside, s)
		}
	}

	newDays := RangeLength(newStart, newEnd)
	if distinct := CountDistinctDates(stops); distinct > newDays {
		rp.Warning = &RemapWarning{DistinctDates: distinct, NewDays: newDays, Outside: rp.Outside}
	}
	return rp, nil
}

// RemapResult reports a completed remap.
type RemapResult struct {
	Plan    model.Plan
	Updated []model.Stop
	Batched bool
	// Outside lists stops left past the new range.
	Outside []model.Stop
}

// PartialRemapError reports a sequential remap that stopped part way.
// Updates already applied are not rolled back.
type PartialRemapError struct {
	Plan         model.Plan
	NewStart     string
	NewEnd       string
	Succeeded    []DateChange
	Failed       DateChange
	NotAttempted []DateChange
	// Outside lists stops that land past the new range once all changes are in.
	Outside []model.Stop
	Err     error
}

func (e *PartialRemapError) Error() string {
	total := len(e.Succeeded) + 1 + len(e.NotAttempted)
	return fmt.Sprintf("date change stopped at stop %d of %d (%s): %v",
		len(e.Succeeded)+1, total, e.Failed.Stop.Location.Name, e.Err)
}

func (e *PartialRemapError) Unwrap() error { return e.Err }

// Pending returns the changes that still need to be applied.
func (e *PartialRemapError) Pending() []DateChange {
	return append([]DateChange{e.Failed}, e.NotAttempted...)
}

// TripDatesError reports a remap whose stops all moved but whose plan still
// holds the old range. Running the remap again from the old range would shift
// the stops a second time, so only the plan update may be resent.
type TripDatesError struct {
	Plan     model.Plan
	NewStart string
	NewEnd   string
	Updated  []model.Stop
	Batched  bool
	Outside  []model.Stop
	Err      error
}

func (e *TripDatesError) Error() string {
	return fmt.Sprintf("stops moved but the trip still runs %s..%s: %v", e.Plan.StartDate, e.Plan.EndDate, e.Err)
}

func (e *TripDatesError) Unwrap() error { return e.Err }

// Resumable reports whether err is a remap failure that Resume can finish.
func Resumable(err error) bool {
	var perr *PartialRemapError
	var terr *TripDatesError
	return errors.As(err, &perr) || errors.As(err, &terr)
}

// Remapper applies date range changes through the data-access collaborators.
type Remapper struct {
	Stops StopUpdater
	Trips TripDateUpdater
	// Refresh, when set, runs after a remap completes.
	Refresh func(ctx context.Context, planID int64)
	Log     *logging.Logger
}

// Remap plans and applies a date range change. When the new range is too short the
// confirm callback decides, before any update is sent, whether to go on.
func (r *Remapper) Remap(ctx context.Context, plan model.Plan, newStart, newEnd string, stops []model.Stop, confirm ConfirmFunc) (RemapResult, error) {
	rp, err := PlanRemap(plan, newStart, newEnd, stops)
	if err != nil {
		return RemapResult{}, err
	}
	if rp.Warning != nil && (confirm == nil || !confirm(*rp.Warning)) {
		r.Log.Printf("remap plan=%d cancelled at warning", plan.ID)
		return RemapResult{}, ErrRemapCancelled
	}
	return r.Apply(ctx, rp)
}

// Apply sends the updates of an already confirmed plan, then persists the new range.
func (r *Remapper) Apply(ctx context.Context, rp RemapPlan) (RemapResult, error) {
	if batch, ok := r.Stops.(BatchStopDateUpdater); ok && len(rp.Changes) > 0 {
		dates := make(map[int64]string, len(rp.Changes))
		for _, c := range rp.Changes {
			dates[c.Stop.ID] = c.To
		}
		if err := batch.UpdateStopDates(ctx, rp.Plan.ID, dates); err != nil {
			return RemapResult{}, fmt.Errorf("failed to update stop dates: %w", err)
		}
		updated := make([]model.Stop, 0, len(rp.Changes))
		for _, c := range rp.Changes {
			s := c.Stop
			s.Date = c.To
			updated = append(updated, s)
		}
		r.Log.Printf("remap plan=%d batch updated %d stops", rp.Plan.ID, len(updated))
		return r.finish(ctx, &TripDatesError{Plan: rp.Plan, NewStart: rp.NewStart, NewEnd: rp.NewEnd, Updated: updated, Batched: true, Outside: rp.Outside})
	}

	updated, err := r.applySequential(ctx, rp.Plan, rp.NewStart, rp.NewEnd, nil, rp.Changes)
	if err != nil {
		var perr *PartialRemapError
		if errors.As(err, &perr) {
			perr.Outside = rp.Outside
		}
		return RemapResult{}, err
	}
	return r.finish(ctx, &TripDatesError{Plan: rp.Plan, NewStart: rp.NewStart, NewEnd: rp.NewEnd, Updated: updated, Outside: rp.Outside})
}

// RetryFailed re-sends the failed and unattempted updates of a partial remap.
func (r *Remapper) RetryFailed(ctx context.Context, perr *PartialRemapError) (RemapResult, error) {
	if perr == nil {
		return RemapResult{}, errors.New("nothing to retry")
	}
	updated, err := r.applySequential(ctx, perr.Plan, perr.NewStart, perr.NewEnd, perr.Succeeded, perr.Pending())
	if err != nil {
		var next *PartialRemapError
		if errors.As(err, &next) {
			next.Outside = perr.Outside
		}
		return RemapResult{}, err
	}
	return r.finish(ctx, &TripDatesError{Plan: perr.Plan, NewStart: perr.NewStart, NewEnd: perr.NewEnd, Updated: updated, Outside: perr.Outside})
}

// RetryTripDates resends only the plan's new range. The stops already moved.
func (r *Remapper) RetryTripDates(ctx context.Context, terr *TripDatesError) (RemapResult, error) {
	if terr == nil {
		return RemapResult{}, errors.New("nothing to retry")
	}
	return r.finish(ctx, terr)
}

// Resume finishes a remap that stopped part way, whichever step failed.
func (r *Remapper) Resume(ctx context.Context, err error) (RemapResult, error) {
	var perr *PartialRemapError
	if errors.As(err, &perr) {
		return r.RetryFailed(ctx, perr)
	}
	var terr *TripDatesError
	if errors.As(err, &terr) {
		return r.RetryTripDates(ctx, terr)
	}
	return RemapResult{}, fmt.Errorf("cannot resume: %w", err)
}

// applySequential sends one update at a time and stops at the first failure.
func (r *Remapper) applySequential(ctx context.Context, plan model.Plan, newStart, newEnd string, done, changes []DateChange) ([]model.Stop, error) {
	succeeded := append([]DateChange(nil), done...)
	updated := make([]model.Stop, 0, len(done)+len(changes))
	for _, c := range done {
		s := c.Stop
		s.Date = c.To
		updated = append(updated, s)
	}
	for i, c := range changes {
		to := c.To
		s, err := r.Stops.UpdateStop(ctx, plan.ID, c.Stop.ID, model.StopUpdate{Date: &to})
		if err != nil {
			r.Log.Printf("remap plan=%d stop=%d failed after %d updates: %v", plan.ID, c.Stop.ID, len(succeeded), err)
			return nil, &PartialRemapError{
				Plan:         plan,
				NewStart:     newStart,
				NewEnd:       newEnd,
				Succeeded:    succeeded,
				Failed:       c,
				NotAttempted: append([]DateChange(nil), changes[i+1:]...),
				Err:          err,
			}
		}
		succeeded = append(succeeded, c)
		updated = append(updated, s)
	}
	return updated, nil
}

// finish persists the new range once every stop has moved. A failure here is
// returned as the TripDatesError itself so the caller can resend just this step.
func (r *Remapper) finish(ctx context.Context, done *TripDatesError) (RemapResult, error) {
	plan, newStart, newEnd := done.Plan, done.NewStart, done.NewEnd
	if plan.StartDate != newStart || plan.EndDate != newEnd {
		if err := r.Trips.UpdateTripDates(ctx, plan.ID, newStart, newEnd); err != nil {
			r.Log.Printf("remap plan=%d stops moved, plan dates failed: %v", plan.ID, err)
			failed := *done
			failed.Err = err
			return RemapResult{}, &failed
		}
	}
	plan.StartDate, plan.EndDate = newStart, newEnd
	r.Log.Printf("remap plan=%d now %s..%s, %d stops moved", plan.ID, newStart, newEnd, len(done.Updated))

	if r.Refresh != nil {
		r.Refresh(ctx, plan.ID)
	}
	return RemapResult{Plan: plan, Updated: done.Updated, Batched: done.Batched, Outside: done.Outside}, nil
}
