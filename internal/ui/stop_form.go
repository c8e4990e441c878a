package ui

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"tripmate/internal/itinerary"
	"tripmate/internal/model"
	"tripmate/internal/util"
)

// Message types for place autocomplete
type placeResultMsg struct {
	seq     int
	results []model.Place
	err     error
}

type debounceTick struct {
	seq int
}

const (
	fieldPlace = iota
	fieldCoords
	fieldDate
	fieldTime
)

// StopFormModel adds or edits one stop of a plan.
type StopFormModel struct {
	backend Backend
	search  PlaceSearcher
	plan    model.Plan
	before  *model.Stop

	focusedField int
	inputs       []textinput.Model
	// address of the picked place; typed names have none.
	address string
	error   string

	searchSeq     int
	searchResults []model.Place
	searchCursor  int
	showDropdown  bool
	searching     bool
	searchSpinner spinner.Model
}

// NewStopFormModel creates a form for a new stop on date.
func NewStopFormModel(backend Backend, search PlaceSearcher, plan model.Plan, date string) *StopFormModel {
	inputs := make([]textinput.Model, 4)

	inputs[fieldPlace] = textinput.New()
	inputs[fieldPlace].Placeholder = "Search a place..."
	inputs[fieldPlace].Focus()
	inputs[fieldPlace].CharLimit = 120

	inputs[fieldCoords] = textinput.New()
	inputs[fieldCoords].Placeholder = "37.5796, 126.9770"
	inputs[fieldCoords].CharLimit = 40

	inputs[fieldDate] = textinput.New()
	inputs[fieldDate].Placeholder = "YYYY-MM-DD"
	inputs[fieldDate].CharLimit = 32
	inputs[fieldDate].SetValue(date)

	inputs[fieldTime] = textinput.New()
	inputs[fieldTime].Placeholder = "09:30"
	inputs[fieldTime].CharLimit = 8

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return &StopFormModel{
		backend:       backend,
		search:        search,
		plan:          plan,
		inputs:        inputs,
		searchSpinner: sp,
	}
}

// LoadStop fills the form from an existing stop for editing.
func (m *StopFormModel) LoadStop(s model.Stop) {
	before := s
	m.before = &before
	m.address = s.Location.Address
	m.inputs[fieldPlace].SetValue(s.Location.Name)
	m.inputs[fieldCoords].SetValue(formatLatLon(s.Location.Latitude, s.Location.Longitude))
	m.inputs[fieldDate].SetValue(s.Date)
	m.inputs[fieldTime].SetValue(s.Time)
}

// Update handles all messages.
func (m StopFormModel) Update(msg tea.Msg) (StopFormModel, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case debounceTick:
		if msg.seq == m.searchSeq && m.search != nil {
			return m, m.doSearch(m.inputs[fieldPlace].Value(), msg.seq)
		}
		return m, nil
	case placeResultMsg:
		if msg.seq == m.searchSeq {
			m.searching = false
			if msg.err != nil {
				m.error = fmt.Sprintf("Search error: %v", msg.err)
				m.showDropdown = false
			} else {
				m.error = ""
				m.searchResults = msg.results
				m.searchCursor = 0
				m.showDropdown = len(msg.results) > 0
			}
		}
		return m, nil
	case spinner.TickMsg:
		if !m.searching {
			return m, nil
		}
		var cmd tea.Cmd
		m.searchSpinner, cmd = m.searchSpinner.Update(msg)
		return m, cmd
	}

	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	if m.showDropdown && m.focusedField == fieldPlace {
		switch keyMsg.String() {
		case "esc":
			m.showDropdown = false
			return m, nil
		case "down", "ctrl+n":
			if m.searchCursor < len(m.searchResults)-1 {
				m.searchCursor++
			}
			return m, nil
		case "up", "ctrl+p":
			if m.searchCursor > 0 {
				m.searchCursor--
			}
			return m, nil
		case "enter", "tab":
			if m.searchCursor < len(m.searchResults) {
				m.selectPlace(m.searchResults[m.searchCursor])
				m.showDropdown = false
				m.focus(fieldDate)
			}
			return m, nil
		}
	}

	switch keyMsg.String() {
	case "esc":
		return m, func() tea.Msg { return model.FormCancelledMsg{} }
	case "ctrl+s":
		return m, m.save()
	case "tab", "enter":
		m.focus((m.focusedField + 1) % len(m.inputs))
		return m, nil
	case "shift+tab":
		m.focus((m.focusedField + len(m.inputs) - 1) % len(m.inputs))
		return m, nil
	}

	before := m.inputs[m.focusedField].Value()
	var cmd tea.Cmd
	m.inputs[m.focusedField], cmd = m.inputs[m.focusedField].Update(keyMsg)
	cmds = append(cmds, cmd)

	if m.focusedField == fieldPlace && m.inputs[fieldPlace].Value() != before {
		m.address = ""
		if m.search != nil {
			query := strings.TrimSpace(m.inputs[fieldPlace].Value())
			if len(query) >= 3 {
				m.searchSeq++
				seq := m.searchSeq
				m.searching = true
				m.showDropdown = false
				cmds = append(cmds, m.searchSpinner.Tick)
				cmds = append(cmds, tea.Tick(400*time.Millisecond, func(time.Time) tea.Msg {
					return debounceTick{seq: seq}
				}))
			} else {
				m.searchSeq++
				m.showDropdown = false
				m.searchResults = nil
				m.searching = false
			}
		}
	}

	return m, tea.Batch(cmds...)
}

func (m *StopFormModel) focus(field int) {
	m.inputs[m.focusedField].Blur()
	m.focusedField = field
	m.inputs[m.focusedField].Focus()
	if field != fieldPlace {
		m.showDropdown = false
	}
}

func (m *StopFormModel) doSearch(query string, seq int) tea.Cmd {
	search := m.search
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 6*time.Second)
		defer cancel()
		results, err := search.Search(ctx, query, 8)
		return placeResultMsg{seq: seq, results: results, err: err}
	}
}

func (m *StopFormModel) selectPlace(p model.Place) {
	m.inputs[fieldPlace].SetValue(p.Name)
	m.inputs[fieldCoords].SetValue(formatLatLon(p.Latitude, p.Longitude))
	m.address = p.Address
	m.searchSeq++
	m.searching = false
}

// values validates the form and returns the stop it describes.
func (m *StopFormModel) values() (model.NewStop, error) {
	name := strings.TrimSpace(m.inputs[fieldPlace].Value())
	if name == "" {
		return model.NewStop{}, fmt.Errorf("place is required")
	}
	lat, lon, err := parseLatLon(m.inputs[fieldCoords].Value())
	if err != nil {
		return model.NewStop{}, err
	}
	date, err := util.ParseDateInput(m.inputs[fieldDate].Value())
	if err != nil || date == "" {
		return model.NewStop{}, fmt.Errorf("date must look like 2024-12-25")
	}
	if !itinerary.InRange(date, m.plan.StartDate, m.plan.EndDate) {
		return model.NewStop{}, fmt.Errorf("date must be within the trip (%s)", util.FormatDateRange(m.plan.StartDate, m.plan.EndDate))
	}
	tm, err := util.ParseTimeInput(m.inputs[fieldTime].Value())
	if err != nil {
		return model.NewStop{}, fmt.Errorf("time must look like 09:30")
	}
	return model.NewStop{
		Location: model.Location{Name: name, Address: m.address, Latitude: lat, Longitude: lon},
		Date:     date,
		Time:     tm,
	}, nil
}

// changes returns only the fields that differ from the stop being edited.
func changes(before model.Stop, ns model.NewStop) model.StopUpdate {
	var upd model.StopUpdate
	if ns.Location != before.Location {
		loc := ns.Location
		upd.Location = &loc
	}
	if ns.Date != before.Date {
		date := ns.Date
		upd.Date = &date
	}
	if ns.Time != before.Time {
		tm := ns.Time
		upd.Time = &tm
	}
	return upd
}

func (m *StopFormModel) save() tea.Cmd {
	ns, err := m.values()
	if err != nil {
		return func() tea.Msg { return model.ErrorMsg{Err: err} }
	}
	backend, planID, before := m.backend, m.plan.ID, m.before
	return func() tea.Msg {
		ctx, cancel := requestContext()
		defer cancel()

		if before != nil {
			upd := changes(*before, ns)
			if upd == (model.StopUpdate{}) {
				return model.StopSavedMsg{ID: before.ID, Operation: "update", Before: before, After: *before}
			}
			after, err := backend.UpdateStop(ctx, planID, before.ID, upd)
			if err != nil {
				return model.ErrorMsg{Err: fmt.Errorf("failed to update stop: %w", err)}
			}
			return model.StopSavedMsg{ID: before.ID, Operation: "update", Before: before, After: after}
		}

		created, err := backend.CreateStop(ctx, planID, ns)
		if err != nil {
			return model.ErrorMsg{Err: fmt.Errorf("failed to add stop: %w", err)}
		}
		return model.StopSavedMsg{ID: created.ID, Operation: "insert", After: created}
	}
}

// View renders the form.
func (m *StopFormModel) View(width, height int) string {
	var fields []string

	placeField := renderFormField("Place *", m.inputs[fieldPlace], m.focusedField == fieldPlace)
	switch {
	case m.showDropdown && len(m.searchResults) > 0:
		placeField = lipgloss.JoinVertical(lipgloss.Left, placeField, m.renderDropdown(width-8))
	case m.searching && m.focusedField == fieldPlace:
		placeField = lipgloss.JoinVertical(lipgloss.Left, placeField,
			HelpDescStyle.Render(m.searchSpinner.View()+" Searching..."))
	case m.search == nil && m.focusedField == fieldPlace:
		placeField = lipgloss.JoinVertical(lipgloss.Left, placeField,
			HelpDescStyle.Render("Place search is off; enter coordinates below."))
	}
	fields = append(fields, placeField)
	if m.address != "" {
		fields = append(fields, HelpDescStyle.Render("  "+util.TruncateString(m.address, width-12)))
	}

	fields = append(fields, renderFormField("Coordinates (lat, lon) *", m.inputs[fieldCoords], m.focusedField == fieldCoords))
	fields = append(fields, renderFormField(
		fmt.Sprintf("Date * (%s)", util.FormatDateRange(m.plan.StartDate, m.plan.EndDate)),
		m.inputs[fieldDate], m.focusedField == fieldDate))
	fields = append(fields, renderFormField("Time *", m.inputs[fieldTime], m.focusedField == fieldTime))

	if m.error != "" {
		fields = append(fields, "", ErrorStyle.Render(m.error))
	}

	return PanelStyle.
		Width(width - 4).
		Height(height - 4).
		Render(strings.Join(fields, "\n"))
}

func (m *StopFormModel) renderDropdown(width int) string {
	var items []string
	for i, p := range m.searchResults {
		style := NormalRowStyle
		if i == m.searchCursor {
			style = SelectedRowStyle
		}
		left := util.TruncateString(p.Name, 40)
		right := HelpDescStyle.Render(util.TruncateString(p.Address, max(0, width-50)))
		availableWidth := width - 4
		padding := max(0, availableWidth-lipgloss.Width(left)-lipgloss.Width(right))
		items = append(items, style.Width(availableWidth).Render(left+strings.Repeat(" ", padding)+right))
	}
	if len(items) == 0 {
		items = append(items, HelpDescStyle.Render("No results"))
	}
	return BorderStyle.Width(width).Render(strings.Join(items, "\n"))
}

func formatLatLon(lat, lon float64) string {
	return strconv.FormatFloat(lat, 'f', -1, 64) + ", " + strconv.FormatFloat(lon, 'f', -1, 64)
}

func parseLatLon(s string) (float64, float64, error) {
	parts := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' })
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("coordinates must look like 37.57, 126.97")
	}
	lat, err1 := strconv.ParseFloat(parts[0], 64)
	lon, err2 := strconv.ParseFloat(parts[1], 64)
	if err1 != nil || err2 != nil {
		return 0, 0, fmt.Errorf("coordinates must look like 37.57, 126.97")
	}
	if err := util.ValidateCoordinates(lat, lon); err != nil {
		return 0, 0, err
	}
	return lat, lon, nil
}

func renderFormField(label string, input textinput.Model, focused bool) string {
	style := BorderStyle
	if focused {
		style = ActiveBorderStyle
	}
	return style.Render(lipgloss.JoinVertical(
		lipgloss.Left,
		LabelStyle.Render(label),
		input.View(),
	))
}
