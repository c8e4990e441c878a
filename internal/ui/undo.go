package ui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"tripmate/internal/itinerary"
	"tripmate/internal/model"
)

type undoAction struct {
	label string
	undo  func(ctx context.Context) error
	redo  func(ctx context.Context) error
}

type undoAppliedMsg struct {
	err       error
	action    undoAction
	direction string // undo, redo
}

// idRef follows a record across undo and redo. The backend assigns a new ID
// each time a deleted record is created again.
type idRef struct{ id int64 }

func (m *Model) pushUndoAction(action undoAction) {
	m.undoStack = append(m.undoStack, action)
	m.redoStack = nil
}

func (m *Model) undoCmd() tea.Cmd {
	if len(m.undoStack) == 0 {
		return nil
	}
	action := m.undoStack[len(m.undoStack)-1]
	m.undoStack = m.undoStack[:len(m.undoStack)-1]
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), remapTimeout)
		defer cancel()
		err := action.undo(ctx)
		return undoAppliedMsg{err: err, action: action, direction: "undo"}
	}
}

func (m *Model) redoCmd() tea.Cmd {
	if len(m.redoStack) == 0 {
		return nil
	}
	action := m.redoStack[len(m.redoStack)-1]
	m.redoStack = m.redoStack[:len(m.redoStack)-1]
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), remapTimeout)
		defer cancel()
		err := action.redo(ctx)
		return undoAppliedMsg{err: err, action: action, direction: "redo"}
	}
}

func (m *Model) buildStopSaveAction(msg model.StopSavedMsg) *undoAction {
	backend := m.backend
	planID := msg.After.PlanID
	switch msg.Operation {
	case "insert":
		ref := &idRef{id: msg.After.ID}
		ns := stopToNew(msg.After)
		return &undoAction{
			label: "stop added",
			undo: func(ctx context.Context) error {
				_, err := backend.DeleteStop(ctx, planID, ref.id)
				return err
			},
			redo: func(ctx context.Context) error {
				s, err := backend.CreateStop(ctx, planID, ns)
				if err != nil {
					return err
				}
				ref.id = s.ID
				return nil
			},
		}
	case "update":
		if msg.Before == nil || *msg.Before == msg.After {
			return nil
		}
		before, after := *msg.Before, msg.After
		return &undoAction{
			label: "stop updated",
			undo: func(ctx context.Context) error {
				_, err := backend.UpdateStop(ctx, planID, before.ID, stopToUpdate(before))
				return err
			},
			redo: func(ctx context.Context) error {
				_, err := backend.UpdateStop(ctx, planID, after.ID, stopToUpdate(after))
				return err
			},
		}
	default:
		return nil
	}
}

func (m *Model) buildDeleteStopAction(msg model.DeleteStopMsg) undoAction {
	backend := m.backend
	deleted := msg.Deleted
	ref := &idRef{id: deleted.ID}
	return undoAction{
		label: "stop deleted",
		undo: func(ctx context.Context) error {
			s, err := backend.CreateStop(ctx, deleted.PlanID, stopToNew(deleted))
			if err != nil {
				return err
			}
			ref.id = s.ID
			if deleted.Rank == "" {
				return nil
			}
			rank := deleted.Rank
			_, err = backend.UpdateStop(ctx, deleted.PlanID, s.ID, model.StopUpdate{Rank: &rank})
			return err
		},
		redo: func(ctx context.Context) error {
			_, err := backend.DeleteStop(ctx, deleted.PlanID, ref.id)
			return err
		},
	}
}

func (m *Model) buildPlanSaveAction(msg model.PlanSavedMsg) *undoAction {
	backend, remapper := m.backend, m.remapper
	switch msg.Operation {
	case "insert":
		ref := &idRef{id: msg.After.ID}
		np := planToNew(msg.After)
		return &undoAction{
			label: "trip created",
			undo: func(ctx context.Context) error {
				return backend.DeletePlan(ctx, ref.id)
			},
			redo: func(ctx context.Context) error {
				p, err := backend.CreatePlan(ctx, np)
				if err != nil {
					return err
				}
				ref.id = p.ID
				return nil
			},
		}
	case "update":
		if msg.Before == nil {
			return nil
		}
		before, after := *msg.Before, msg.After
		// setPlan moves the plan to target, dates included. Stops follow the dates.
		setPlan := func(ctx context.Context, target model.Plan) error {
			cur, err := backend.UpdatePlan(ctx, target.ID, planToUpdate(target))
			if err != nil {
				return err
			}
			if cur.StartDate == target.StartDate && cur.EndDate == target.EndDate {
				return nil
			}
			stops, err := backend.ListStops(ctx, target.ID)
			if err != nil {
				return err
			}
			_, err = remapper.Remap(ctx, cur, target.StartDate, target.EndDate, stops, confirmAlways)
			if itinerary.Resumable(err) {
				// Finish in place; a later undo would shift the moved stops again.
				_, err = remapper.Resume(ctx, err)
			}
			return err
		}
		label := "trip updated"
		if msg.Remapped {
			label = "trip dates changed"
		}
		return &undoAction{
			label: label,
			undo:  func(ctx context.Context) error { return setPlan(ctx, before) },
			redo:  func(ctx context.Context) error { return setPlan(ctx, after) },
		}
	default:
		return nil
	}
}

func (m *Model) buildDeletePlanAction(msg model.DeletePlanMsg) undoAction {
	backend := m.backend
	deleted := msg.Deleted
	stops := append([]model.Stop(nil), msg.DeletedStops...)
	ref := &idRef{id: deleted.ID}
	return undoAction{
		label: "trip deleted",
		undo: func(ctx context.Context) error {
			p, err := backend.CreatePlan(ctx, planToNew(deleted))
			if err != nil {
				return err
			}
			ref.id = p.ID
			for _, s := range stops {
				created, err := backend.CreateStop(ctx, p.ID, stopToNew(s))
				if err != nil {
					return fmt.Errorf("restore %s: %w", s.Location.Name, err)
				}
				if s.Rank != "" {
					rank := s.Rank
					if _, err := backend.UpdateStop(ctx, p.ID, created.ID, model.StopUpdate{Rank: &rank}); err != nil {
						return err
					}
				}
			}
			return nil
		},
		redo: func(ctx context.Context) error {
			return backend.DeletePlan(ctx, ref.id)
		},
	}
}

func confirmAlways(itinerary.RemapWarning) bool { return true }

func stopToNew(s model.Stop) model.NewStop {
	return model.NewStop{Location: s.Location, Date: s.Date, Time: s.Time}
}

func stopToUpdate(s model.Stop) model.StopUpdate {
	loc, date, tm := s.Location, s.Date, s.Time
	return model.StopUpdate{Location: &loc, Date: &date, Time: &tm}
}

func planToNew(p model.Plan) model.NewPlan {
	return model.NewPlan{Place: p.Place, StartDate: p.StartDate, EndDate: p.EndDate, Partner: p.Partner, Style: p.Style}
}

func planToUpdate(p model.Plan) model.UpdatePlan {
	return model.UpdatePlan{Place: p.Place, Partner: p.Partner, Style: p.Style}
}

func (m *Model) applyUndoResult(msg undoAppliedMsg) tea.Cmd {
	if msg.err != nil {
		m.error = fmt.Sprintf("%s failed: %v", msg.direction, msg.err)
		return m.reloadCmd()
	}

	if msg.direction == "undo" {
		m.redoStack = append(m.redoStack, msg.action)
		m.info = "Undid: " + msg.action.label
	} else {
		m.undoStack = append(m.undoStack, msg.action)
		m.info = "Redid: " + msg.action.label
	}
	m.error = ""
	return tea.Batch(m.reloadCmd(), m.refreshMapCmd())
}
