package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"tripmate/internal/itinerary"
	"tripmate/internal/model"
	"tripmate/internal/util"
)

const (
	planFieldPlace = iota
	planFieldStart
	planFieldEnd
	planFieldPartner
	planFieldStyle
)

type planFormState int

const (
	planFormEditing planFormState = iota
	planFormConfirm
	planFormApplying
	planFormPartial
)

// remapPlannedMsg carries a computed date change back to the form before
// anything was written.
type remapPlannedMsg struct {
	plan itinerary.RemapPlan
	err  error
}

// remapFinishedMsg reports the outcome of applying a date change.
type remapFinishedMsg struct {
	result itinerary.RemapResult
	err    error
}

// PlanFormModel creates a plan or edits one, moving its stops when the dates change.
type PlanFormModel struct {
	backend  Backend
	remapper *itinerary.Remapper
	before   *model.Plan

	focusedField int
	inputs       []textinput.Model
	state        planFormState
	error        string

	pending   *itinerary.RemapPlan
	partial   *itinerary.PartialRemapError
	tripDates *itinerary.TripDatesError
	update    model.UpdatePlan
}

// NewPlanFormModel creates an empty plan form.
func NewPlanFormModel(backend Backend, remapper *itinerary.Remapper) *PlanFormModel {
	inputs := make([]textinput.Model, 5)

	inputs[planFieldPlace] = textinput.New()
	inputs[planFieldPlace].Placeholder = "Seoul"
	inputs[planFieldPlace].Focus()
	inputs[planFieldPlace].CharLimit = 80

	inputs[planFieldStart] = textinput.New()
	inputs[planFieldStart].Placeholder = "YYYY-MM-DD or 'today'"
	inputs[planFieldStart].CharLimit = 32

	inputs[planFieldEnd] = textinput.New()
	inputs[planFieldEnd].Placeholder = "YYYY-MM-DD"
	inputs[planFieldEnd].CharLimit = 32

	inputs[planFieldPartner] = textinput.New()
	inputs[planFieldPartner].Placeholder = "friends, family, solo..."
	inputs[planFieldPartner].CharLimit = 60

	inputs[planFieldStyle] = textinput.New()
	inputs[planFieldStyle].Placeholder = "relaxed, packed, food..."
	inputs[planFieldStyle].CharLimit = 60

	return &PlanFormModel{
		backend:  backend,
		remapper: remapper,
		inputs:   inputs,
	}
}

// LoadPlan fills the form from an existing plan for editing.
func (m *PlanFormModel) LoadPlan(p model.Plan) {
	before := p
	m.before = &before
	m.inputs[planFieldPlace].SetValue(p.Place)
	m.inputs[planFieldStart].SetValue(p.StartDate)
	m.inputs[planFieldEnd].SetValue(p.EndDate)
	m.inputs[planFieldPartner].SetValue(p.Partner)
	m.inputs[planFieldStyle].SetValue(p.Style)
}

// Update handles all messages.
func (m PlanFormModel) Update(msg tea.Msg) (PlanFormModel, tea.Cmd) {
	switch msg := msg.(type) {
	case remapPlannedMsg:
		if msg.err != nil {
			m.state = planFormEditing
			m.error = msg.err.Error()
			return m, nil
		}
		rp := msg.plan
		m.pending = &rp
		if rp.Warning != nil {
			m.state = planFormConfirm
			return m, nil
		}
		m.state = planFormApplying
		return m, m.applyRemap()

	case remapFinishedMsg:
		var perr *itinerary.PartialRemapError
		if errors.As(msg.err, &perr) {
			m.state = planFormPartial
			m.partial, m.tripDates = perr, nil
			m.error = perr.Error()
			return m, nil
		}
		var terr *itinerary.TripDatesError
		if errors.As(msg.err, &terr) {
			m.state = planFormPartial
			m.partial, m.tripDates = nil, terr
			m.error = terr.Error()
			return m, nil
		}
		if msg.err != nil {
			m.state = planFormEditing
			m.error = msg.err.Error()
			return m, nil
		}
		before, after := *m.before, msg.result.Plan
		outside := len(msg.result.Outside)
		return m, func() tea.Msg {
			return model.PlanSavedMsg{ID: after.ID, Operation: "update", Before: &before, After: after, Remapped: true, Outside: outside}
		}

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m PlanFormModel) handleKey(msg tea.KeyMsg) (PlanFormModel, tea.Cmd) {
	switch m.state {
	case planFormApplying:
		return m, nil
	case planFormConfirm:
		switch msg.String() {
		case "y", "Y":
			m.state = planFormApplying
			return m, m.applyRemap()
		case "n", "N", "esc":
			m.state = planFormEditing
			m.pending = nil
			m.error = itinerary.ErrRemapCancelled.Error()
		}
		return m, nil
	case planFormPartial:
		switch msg.String() {
		case "r":
			m.state = planFormApplying
			return m, m.retryRemap()
		case "esc":
			return m, func() tea.Msg { return model.FormCancelledMsg{} }
		}
		return m, nil
	}

	switch msg.String() {
	case "esc":
		return m, func() tea.Msg { return model.FormCancelledMsg{} }
	case "ctrl+s":
		cmd := m.save()
		return m, cmd
	case "tab", "enter":
		m.focus((m.focusedField + 1) % len(m.inputs))
		return m, nil
	case "shift+tab":
		m.focus((m.focusedField + len(m.inputs) - 1) % len(m.inputs))
		return m, nil
	}

	var cmd tea.Cmd
	m.inputs[m.focusedField], cmd = m.inputs[m.focusedField].Update(msg)
	return m, cmd
}

func (m *PlanFormModel) focus(field int) {
	m.inputs[m.focusedField].Blur()
	m.focusedField = field
	m.inputs[m.focusedField].Focus()
}

// values validates the form and returns the plan it describes.
func (m *PlanFormModel) values() (model.NewPlan, error) {
	place := strings.TrimSpace(m.inputs[planFieldPlace].Value())
	if place == "" {
		return model.NewPlan{}, fmt.Errorf("place is required")
	}
	start, err := util.ParseDateInput(m.inputs[planFieldStart].Value())
	if err != nil || start == "" {
		return model.NewPlan{}, fmt.Errorf("start date must look like 2024-12-25")
	}
	end, err := util.ParseDateInput(m.inputs[planFieldEnd].Value())
	if err != nil || end == "" {
		return model.NewPlan{}, fmt.Errorf("end date must look like 2024-12-27")
	}
	if err := itinerary.ValidateRange(start, end); err != nil {
		return model.NewPlan{}, fmt.Errorf("end date must not be before start date")
	}
	return model.NewPlan{
		Place:     place,
		StartDate: start,
		EndDate:   end,
		Partner:   strings.TrimSpace(m.inputs[planFieldPartner].Value()),
		Style:     strings.TrimSpace(m.inputs[planFieldStyle].Value()),
	}, nil
}

func (m *PlanFormModel) save() tea.Cmd {
	np, err := m.values()
	if err != nil {
		m.error = err.Error()
		return nil
	}
	m.error = ""
	backend := m.backend

	if m.before == nil {
		return func() tea.Msg {
			ctx, cancel := requestContext()
			defer cancel()
			created, err := backend.CreatePlan(ctx, np)
			if err != nil {
				return model.ErrorMsg{Err: fmt.Errorf("failed to create trip: %w", err)}
			}
			return model.PlanSavedMsg{ID: created.ID, Operation: "insert", After: created}
		}
	}

	before := *m.before
	m.update = model.UpdatePlan{Place: np.Place, Partner: np.Partner, Style: np.Style}
	if np.StartDate == before.StartDate && np.EndDate == before.EndDate {
		upd := m.update
		return func() tea.Msg {
			ctx, cancel := requestContext()
			defer cancel()
			after, err := backend.UpdatePlan(ctx, before.ID, upd)
			if err != nil {
				return model.ErrorMsg{Err: fmt.Errorf("failed to update trip: %w", err)}
			}
			return model.PlanSavedMsg{ID: before.ID, Operation: "update", Before: &before, After: after}
		}
	}

	// Dates changed: compute the remap first so a declined warning writes nothing.
	m.state = planFormApplying
	return func() tea.Msg {
		ctx, cancel := requestContext()
		defer cancel()
		stops, err := backend.ListStops(ctx, before.ID)
		if err != nil {
			return remapPlannedMsg{err: fmt.Errorf("failed to load stops: %w", err)}
		}
		rp, err := itinerary.PlanRemap(before, np.StartDate, np.EndDate, stops)
		return remapPlannedMsg{plan: rp, err: err}
	}
}

func (m *PlanFormModel) applyRemap() tea.Cmd {
	if m.pending == nil {
		return nil
	}
	rp := *m.pending
	backend, remapper, before, upd := m.backend, m.remapper, *m.before, m.update
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), remapTimeout)
		defer cancel()
		if upd != (model.UpdatePlan{Place: before.Place, Partner: before.Partner, Style: before.Style}) {
			updated, err := backend.UpdatePlan(ctx, before.ID, upd)
			if err != nil {
				return remapFinishedMsg{err: fmt.Errorf("failed to update trip: %w", err)}
			}
			rp.Plan = updated
		}
		res, err := remapper.Apply(ctx, rp)
		return remapFinishedMsg{result: res, err: err}
	}
}

func (m *PlanFormModel) retryRemap() tea.Cmd {
	var failure error
	switch {
	case m.tripDates != nil:
		failure = m.tripDates
	case m.partial != nil:
		failure = m.partial
	default:
		return nil
	}
	remapper := m.remapper
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), remapTimeout)
		defer cancel()
		res, err := remapper.Resume(ctx, failure)
		return remapFinishedMsg{result: res, err: err}
	}
}

// View renders the form, with the warning or failure panel when one is open.
func (m *PlanFormModel) View(width, height int) string {
	var fields []string
	fields = append(fields, renderFormField("Place *", m.inputs[planFieldPlace], m.focusedField == planFieldPlace))
	dates := lipgloss.JoinHorizontal(lipgloss.Top,
		renderFormField("Start *", m.inputs[planFieldStart], m.focusedField == planFieldStart),
		" ",
		renderFormField("End *", m.inputs[planFieldEnd], m.focusedField == planFieldEnd),
	)
	fields = append(fields, dates)
	fields = append(fields, renderFormField("Travelling with", m.inputs[planFieldPartner], m.focusedField == planFieldPartner))
	fields = append(fields, renderFormField("Style", m.inputs[planFieldStyle], m.focusedField == planFieldStyle))

	if m.before != nil {
		fields = append(fields, HelpDescStyle.Render("Changing the dates moves every stop by the same number of days."))
	}

	switch m.state {
	case planFormApplying:
		fields = append(fields, "", HelpDescStyle.Render("Moving stops…"))
	case planFormConfirm:
		fields = append(fields, "", m.renderWarning(width-12))
	case planFormPartial:
		fields = append(fields, "", m.renderPartial(width-12))
	default:
		if m.error != "" {
			fields = append(fields, "", ErrorStyle.Render(m.error))
		}
	}

	return PanelStyle.
		Width(width - 4).
		Height(height - 4).
		Render(strings.Join(fields, "\n"))
}

func (m *PlanFormModel) renderWarning(width int) string {
	w := m.pending.Warning
	lines := []string{
		LabelStyle.Render("Shorter trip"),
		w.Message(),
	}
	for i, s := range w.Outside {
		if i == 5 {
			lines = append(lines, HelpDescStyle.Render(fmt.Sprintf("  +%d more", len(w.Outside)-i)))
			break
		}
		lines = append(lines, HelpDescStyle.Render("  · "+s.Location.Name+" ("+s.Date+")"))
	}
	lines = append(lines, "", helpKey("y", "move anyway")+"  "+helpKey("n", "keep dates"))
	return ModalStyle.Width(width).Render(strings.Join(lines, "\n"))
}

func (m *PlanFormModel) renderPartial(width int) string {
	if t := m.tripDates; t != nil {
		lines := []string{
			ErrorStyle.Padding(0).Render("Trip dates not saved"),
			fmt.Sprintf("%s moved to %s, but saving the trip failed: %v",
				util.Pluralize(len(t.Updated), "stop", "stops"), util.FormatDateRange(t.NewStart, t.NewEnd), t.Err),
			HelpDescStyle.Render("Retrying only saves the trip dates; the stops stay where they are."),
			"", helpKey("r", "retry")+"  "+helpKey("esc", "leave as is"),
		}
		return ModalStyle.BorderForeground(ColorRed).Width(width).Render(strings.Join(lines, "\n"))
	}
	p := m.partial
	lines := []string{
		ErrorStyle.Padding(0).Render("Some stops were not moved"),
		fmt.Sprintf("%d moved, stopped at %s: %v", len(p.Succeeded), p.Failed.Stop.Location.Name, p.Err),
	}
	if n := len(p.NotAttempted); n > 0 {
		lines = append(lines, HelpDescStyle.Render(util.Pluralize(n, "stop", "stops")+" not attempted"))
	}
	lines = append(lines, HelpDescStyle.Render("The trip keeps its old dates until every stop has moved."))
	lines = append(lines, "", helpKey("r", "retry the rest")+"  "+helpKey("esc", "leave as is"))
	return ModalStyle.BorderForeground(ColorRed).Width(width).Render(strings.Join(lines, "\n"))
}
