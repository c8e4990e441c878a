package ui

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"tripmate/internal/drag"
	"tripmate/internal/itinerary"
	"tripmate/internal/logging"
	"tripmate/internal/mapsync"
	"tripmate/internal/model"
	"tripmate/internal/util"
)

const (
	requestTimeout = 10 * time.Second
	remapTimeout   = 60 * time.Second
)

func requestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), requestTimeout)
}

// Backend is the data access the app needs. *api.Client implements it; when
// the value also implements itinerary.BatchStopDateUpdater, date changes are
// sent in one request.
type Backend interface {
	itinerary.StopUpdater
	itinerary.TripDateUpdater
	mapsync.Fetcher

	ListPlans(ctx context.Context) ([]model.Plan, error)
	GetTrip(ctx context.Context, planID int64) (model.Plan, error)
	CreatePlan(ctx context.Context, np model.NewPlan) (model.Plan, error)
	UpdatePlan(ctx context.Context, planID int64, up model.UpdatePlan) (model.Plan, error)
	DeletePlan(ctx context.Context, planID int64) error

	ListStops(ctx context.Context, planID int64) ([]model.Stop, error)
	CreateStop(ctx context.Context, planID int64, ns model.NewStop) (model.Stop, error)
	DeleteStop(ctx context.Context, planID, stopID int64) (int64, error)
}

// PlaceSearcher looks up places for the stop form.
type PlaceSearcher interface {
	Search(ctx context.Context, query string, limit int) ([]model.Place, error)
}

// Options configures the app.
type Options struct {
	Backend Backend
	// Search is optional; without it stops are entered by coordinates.
	Search PlaceSearcher
	Log    *logging.Logger
	// RowHeight is the pointer travel, in lines, that moves a dragged stop one row.
	RowHeight     int
	HoldThreshold time.Duration
	Caps          TerminalCapabilities
	// ConfigDir holds ui_prefs.json. Empty disables persistence.
	ConfigDir string
}

type mapLoadedMsg struct {
	planID int64
}

type holdTickMsg struct {
	seq int
}

// Model is the root Bubble Tea model.
type Model struct {
	backend          Backend
	search           PlaceSearcher
	log              *logging.Logger
	bridge           *mapsync.Bridge
	remapper         *itinerary.Remapper
	termCapabilities TerminalCapabilities
	rowHeight        int
	holdThreshold    time.Duration
	configDir        string

	screen model.Screen
	mode   model.Mode
	gState GState

	width  int
	height int

	error       string
	info        string
	showingHelp bool
	columnJump  bool

	// Screen models
	plans      *PlansModel
	detail     *PlanDetailModel
	stopForm   *StopFormModel
	planForm   *PlanFormModel
	formReturn model.Screen

	// loadSeq numbers detail loads; only the latest one is shown.
	loadSeq     uint64
	openingPlan bool
	mapDoc      mapsync.Document
	holdSeq     int
	mouseDrag   bool

	keys      KeyMap
	dragKeys  DragKeyMap
	prefs     UIPreferences
	undoStack []undoAction
	redoStack []undoAction
}

// New creates a new root model.
func New(opts Options) Model {
	if opts.RowHeight <= 0 {
		opts.RowHeight = 1
	}
	if opts.HoldThreshold <= 0 {
		opts.HoldThreshold = drag.DefaultHoldThreshold
	}
	bridge := mapsync.NewBridge(opts.Backend, opts.Log)
	remapper := &itinerary.Remapper{
		Stops: opts.Backend,
		Trips: opts.Backend,
		Log:   opts.Log,
		Refresh: func(ctx context.Context, planID int64) {
			bridge.RefreshPlan(ctx, planID)
		},
	}
	return Model{
		backend:          opts.Backend,
		search:           opts.Search,
		log:              opts.Log,
		bridge:           bridge,
		remapper:         remapper,
		termCapabilities: opts.Caps,
		rowHeight:        opts.RowHeight,
		holdThreshold:    opts.HoldThreshold,
		configDir:        opts.ConfigDir,
		screen:           model.ScreenPlans,
		mode:             model.ModeNav,
		gState:           GStateIdle,
		keys:             DefaultKeyMap(),
		dragKeys:         DefaultDragKeyMap(),
		prefs:            loadUIPreferences(opts.ConfigDir),
	}
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return loadPlansCmd(m.backend)
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		if m.mode == model.ModeNav && m.columnJump {
			switch msg.String() {
			case "esc":
				m.columnJump = false
				m.info = ""
				return m, nil
			}
			if n, err := strconv.Atoi(msg.String()); err == nil {
				table := m.currentTable()
				if table != nil && table.JumpToColumn(n) {
					m.columnJump = false
					m.info = fmt.Sprintf("Jumped to column %d", n)
					m.persistCurrentTablePrefs()
					return m, nil
				}
				m.info = fmt.Sprintf("Column %d unavailable", n)
				return m, nil
			}
		}

		// Handle ctrl+c globally
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}

		if msg.String() == "?" && m.mode == model.ModeNav {
			m.showingHelp = !m.showingHelp
			return m, nil
		}

		if m.showingHelp {
			if msg.String() == "esc" || msg.String() == "?" {
				m.showingHelp = false
			}
			return m, nil
		}

		switch m.mode {
		case model.ModeNav:
			return m.handleNavMode(msg)
		case model.ModeDrag:
			return m.handleDragMode(msg)
		}
		return m.handleInsertMode(msg)

	case tea.MouseMsg:
		return m.handleMouse(msg)

	case holdTickMsg:
		if msg.seq == m.holdSeq && m.screen == model.ScreenPlanDetail && m.detail != nil && m.detail.HoldElapsed() {
			m.mode = model.ModeDrag
			m.mouseDrag = true
			m.info = ""
		}
		return m, nil

	case model.ErrorMsg:
		m.error = msg.Err.Error()
		m.openingPlan = false
		m.log.Printf("error: %v", msg.Err)
		return m, nil

	case model.PlansLoadedMsg:
		cursor := 0
		if m.plans != nil {
			cursor = m.plans.cursor
		}
		m.plans = NewPlansModel(msg.Plans)
		m.plans.ApplyPrefs(m.prefs.Plans)
		m.plans.cursor = cursor
		m.plans.clampCursor()
		m.error = ""
		return m, nil

	case model.PlanDetailLoadedMsg:
		if msg.Seq != m.loadSeq {
			return m, nil
		}
		if m.detail != nil && m.detail.Plan().ID == msg.Plan.ID {
			m.detail.SetData(msg.Plan, msg.Stops)
		} else {
			m.detail = NewPlanDetailModel(msg.Plan, msg.Stops, m.rowHeight, m.holdThreshold)
		}
		if m.openingPlan {
			m.openingPlan = false
			m.screen = model.ScreenPlanDetail
		}
		if m.mode == model.ModeDrag && !m.detail.Dragging() {
			m.mode = model.ModeNav
		}
		m.error = ""
		return m, nil

	case mapLoadedMsg:
		if m.detail != nil && m.detail.Plan().ID == msg.planID {
			m.mapDoc = m.bridge.Current()
		}
		return m, nil

	case model.StopSavedMsg:
		if action := m.buildStopSaveAction(msg); action != nil {
			m.pushUndoAction(*action)
		}
		m.mode = model.ModeNav
		m.screen = model.ScreenPlanDetail
		m.stopForm = nil
		m.error = ""
		m.info = "Stop saved"
		cmd := tea.Batch(m.reloadDetailCmd(), m.refreshMapCmd())
		return m, cmd

	case model.DeleteStopMsg:
		m.pushUndoAction(m.buildDeleteStopAction(msg))
		m.info = "Stop deleted (u to undo)"
		cmd := tea.Batch(m.reloadDetailCmd(), m.refreshMapCmd())
		return m, cmd

	case model.PlanSavedMsg:
		if action := m.buildPlanSaveAction(msg); action != nil {
			m.pushUndoAction(*action)
		}
		m.mode = model.ModeNav
		m.planForm = nil
		m.error = ""
		if msg.Operation == "insert" {
			m.screen = model.ScreenPlans
			m.info = "Trip created"
			return m, loadPlansCmd(m.backend)
		}
		m.screen = m.formReturn
		m.info = "Trip saved"
		cmds := []tea.Cmd{loadPlansCmd(m.backend)}
		if m.detail != nil && m.detail.Plan().ID == msg.ID {
			cmds = append(cmds, m.reloadDetailCmd())
			if msg.Remapped {
				// The remap already refreshed the map.
				m.info = "Trip dates changed, stops moved with them"
				if msg.Outside > 0 {
					m.info += fmt.Sprintf("; %s now outside the trip", util.Pluralize(msg.Outside, "stop", "stops"))
				}
				m.mapDoc = m.bridge.Current()
			} else {
				cmds = append(cmds, m.refreshMapCmd())
			}
		}
		return m, tea.Batch(cmds...)

	case model.DeletePlanMsg:
		m.pushUndoAction(m.buildDeletePlanAction(msg))
		m.screen = model.ScreenPlans
		m.detail = nil
		m.info = "Trip deleted (u to undo)"
		return m, loadPlansCmd(m.backend)

	case model.OrderSavedMsg:
		if m.detail != nil {
			m.detail.ClearSession()
		}
		if msg.Updated == 0 {
			m.info = "Nothing to save: only stops sharing a time keep a dragged order"
		} else {
			m.info = fmt.Sprintf("Order saved (%d stops)", msg.Updated)
		}
		cmd := m.reloadDetailCmd()
		return m, cmd

	case model.FormCancelledMsg:
		m.mode = model.ModeNav
		var cmd tea.Cmd
		switch m.screen {
		case model.ScreenStopForm:
			m.screen = model.ScreenPlanDetail
		case model.ScreenPlanForm:
			m.screen = m.formReturn
			// A failed date change may have moved some stops already.
			cmd = m.reloadCmd()
		}
		m.stopForm = nil
		m.planForm = nil
		return m, cmd

	case undoAppliedMsg:
		cmd := m.applyUndoResult(msg)
		return m, cmd

	default:
		// Pass all other messages to forms
		if m.mode == model.ModeInsert {
			return m.handleInsertMode(msg)
		}
	}

	return m, nil
}

// contentTop is the screen line where the current screen's content starts.
func (m Model) contentTop() int {
	top := 2 // header and its border
	if m.error != "" {
		top++
	}
	if m.info != "" {
		top++
	}
	return top
}

// View renders the UI.
func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}

	if m.showingHelp {
		return RenderFullHelp(m.width, m.height)
	}

	var content string
	var breadcrumbParts []string

	// header (2 lines) + footer (2 lines) + banners
	contentHeight := m.height - 4 - (m.contentTop() - 2)

	switch m.screen {
	case model.ScreenPlans:
		breadcrumbParts = []string{"Trips"}
		if m.plans != nil {
			content = m.plans.View(m.width, contentHeight)
		}
	case model.ScreenPlanDetail:
		breadcrumbParts = []string{"Trips"}
		if m.detail != nil {
			breadcrumbParts = append(breadcrumbParts, m.detail.Plan().Place)
			content = m.detail.View(m.width, contentHeight, m.mapDoc, !m.prefs.HideMap, m.termCapabilities)
		}
	case model.ScreenStopForm:
		breadcrumbParts = []string{"Trips", "Stop"}
		if m.stopForm != nil {
			label := "Add stop"
			if m.stopForm.before != nil {
				label = "Edit stop"
			}
			breadcrumbParts = []string{"Trips", m.stopForm.plan.Place, label}
			content = m.stopForm.View(m.width, contentHeight)
		}
	case model.ScreenPlanForm:
		breadcrumbParts = []string{"Trips", "New trip"}
		if m.planForm != nil {
			if m.planForm.before != nil {
				breadcrumbParts = []string{"Trips", m.planForm.before.Place, "Edit"}
			}
			content = m.planForm.View(m.width, contentHeight)
		}
	}

	header := renderHeader(breadcrumbParts, m.width)
	footer := RenderHelp(m.screen, m.mode, m.width)

	// Ensure content fills the available height to anchor footer at bottom
	contentStyle := lipgloss.NewStyle().
		Width(m.width).
		Height(contentHeight).
		MaxHeight(contentHeight)
	content = contentStyle.Render(content)

	parts := []string{header}
	if m.error != "" {
		parts = append(parts, ErrorStyle.Width(m.width).MaxHeight(1).Render("Error: "+m.error))
	}
	if m.info != "" {
		parts = append(parts, SuccessStyle.Width(m.width).MaxHeight(1).Render(m.info))
	}
	parts = append(parts, content, footer)
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func renderHeader(breadcrumbParts []string, width int) string {
	// Left side: app name + breadcrumb
	title := HeaderStyle.Render("tripmate")

	var breadcrumb string
	if len(breadcrumbParts) > 0 {
		separator := BreadcrumbStyle.Render(" › ")
		parts := make([]string, len(breadcrumbParts))
		for i, part := range breadcrumbParts {
			if i == len(breadcrumbParts)-1 {
				parts[i] = BreadcrumbActiveStyle.Render(part)
			} else {
				parts[i] = BreadcrumbStyle.Render(part)
			}
		}
		breadcrumb = separator + strings.Join(parts, separator)
	}

	left := "  " + title + breadcrumb

	// Right side: current date
	right := BreadcrumbStyle.Render(time.Now().Format("Mon 02 Jan")) + "  "

	padding := max(0, width-lipgloss.Width(left)-lipgloss.Width(right))
	headerContent := left + strings.Repeat(" ", padding) + right
	return TitleStyle.Width(width).Render(headerContent)
}

// handleNavMode handles navigation mode input.
func (m Model) handleNavMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if t := m.currentTable(); t != nil {
		switch msg.String() {
		case "tab":
			t.NextColumn()
			m.persistCurrentTablePrefs()
			return m, nil
		case "shift+tab":
			t.PrevColumn()
			m.persistCurrentTablePrefs()
			return m, nil
		case "/":
			m.columnJump = true
			m.info = "Jump to column: press 1-9 (esc to cancel)"
			return m, nil
		case "s":
			t.SortActiveColumn(false)
			m.info = "Sorted ascending"
			m.persistCurrentTablePrefs()
			return m, nil
		case "S":
			t.SortActiveColumn(true)
			m.info = "Sorted descending"
			m.persistCurrentTablePrefs()
			return m, nil
		case "c":
			if t.HideActiveColumn() {
				m.info = "Column hidden"
				m.persistCurrentTablePrefs()
			} else {
				m.info = "Cannot hide last visible column"
			}
			return m, nil
		case "C":
			t.ShowAllColumns()
			m.info = "All columns shown"
			m.persistCurrentTablePrefs()
			return m, nil
		case "n":
			if t.FilterBySelectedValue() {
				m.info = "Filter applied from selected value"
			} else {
				m.info = "No filterable value in selected cell"
			}
			return m, nil
		case "N":
			if t.ClearFilter() {
				m.info = "Filter cleared"
			}
			return m, nil
		}
	}

	switch {
	case key.Matches(msg, m.keys.Undo):
		if len(m.undoStack) == 0 {
			m.info = "Nothing to undo"
			return m, nil
		}
		cmd := m.undoCmd()
		return m, cmd
	case key.Matches(msg, m.keys.Redo):
		if len(m.redoStack) == 0 {
			m.info = "Nothing to redo"
			return m, nil
		}
		cmd := m.redoCmd()
		return m, cmd
	}

	// Handle "gg" state machine
	if msg.String() == "g" {
		if m.gState == GStateIdle {
			m.gState = GStateFirstG
			return m, nil
		}
		m.gState = GStateIdle
		return m.handleJumpToTop()
	}
	m.gState = GStateIdle

	switch m.screen {
	case model.ScreenPlans:
		return m.handlePlansNav(msg)
	case model.ScreenPlanDetail:
		return m.handlePlanDetailNav(msg)
	}
	return m, nil
}

func (m *Model) currentTable() tableController {
	if m.screen == model.ScreenPlans && m.plans != nil {
		return m.plans
	}
	return nil
}

func (m *Model) persistCurrentTablePrefs() {
	if m.plans != nil {
		m.prefs.Plans = m.plans.Prefs()
	}
	if err := saveUIPreferences(m.configDir, m.prefs); err != nil {
		m.log.Printf("save prefs: %v", err)
	}
}

// handleInsertMode routes input to the open form.
func (m Model) handleInsertMode(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch m.screen {
	case model.ScreenStopForm:
		if m.stopForm != nil {
			newForm, cmd := m.stopForm.Update(msg)
			m.stopForm = &newForm
			return m, cmd
		}
	case model.ScreenPlanForm:
		if m.planForm != nil {
			newForm, cmd := m.planForm.Update(msg)
			m.planForm = &newForm
			return m, cmd
		}
	}
	return m, nil
}

func (m Model) handleJumpToTop() (tea.Model, tea.Cmd) {
	switch {
	case m.screen == model.ScreenPlans && m.plans != nil:
		m.plans.JumpToTop()
	case m.screen == model.ScreenPlanDetail && m.detail != nil:
		m.detail.JumpToTop()
	}
	return m, nil
}

func (m Model) handlePlansNav(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "a":
		m.mode = model.ModeInsert
		m.screen = model.ScreenPlanForm
		m.formReturn = model.ScreenPlans
		m.planForm = NewPlanFormModel(m.backend, m.remapper)
		return m, nil
	case "r":
		return m, loadPlansCmd(m.backend)
	}

	if m.plans == nil {
		return m, nil
	}
	switch msg.String() {
	case "enter", "l", "right":
		if p, ok := m.plans.Selected(); ok {
			return m.openPlan(p)
		}
	case "e":
		if p, ok := m.plans.Selected(); ok {
			m.mode = model.ModeInsert
			m.screen = model.ScreenPlanForm
			m.formReturn = model.ScreenPlans
			m.planForm = NewPlanFormModel(m.backend, m.remapper)
			m.planForm.LoadPlan(p)
		}
	case "d":
		if p, ok := m.plans.Selected(); ok {
			return m, deletePlanCmd(m.backend, p)
		}
	case "j", "down":
		m.plans.MoveDown()
	case "k", "up":
		m.plans.MoveUp()
	case "G":
		m.plans.JumpToBottom()
	}
	return m, nil
}

func (m Model) openPlan(p model.Plan) (tea.Model, tea.Cmd) {
	m.loadSeq++
	m.openingPlan = true
	if m.detail != nil && m.detail.Plan().ID != p.ID {
		m.detail = nil
	}
	m.mapDoc = mapsync.Document{PlanID: p.ID}
	return m, tea.Batch(
		loadPlanDetailCmd(m.backend, p.ID, m.loadSeq),
		fetchMapCmd(m.bridge, p.ID),
	)
}

func (m Model) handlePlanDetailNav(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.detail == nil {
		return m, nil
	}
	k := m.keys
	switch {
	case key.Matches(msg, k.Back):
		if len(m.detail.SessionOrders()) > 0 {
			m.info = "Unsaved order discarded"
		}
		m.screen = model.ScreenPlans
		m.detail = nil
		return m, nil
	case key.Matches(msg, k.Down):
		m.detail.MoveDown()
	case key.Matches(msg, k.Up):
		m.detail.MoveUp()
	case key.Matches(msg, k.Bottom):
		m.detail.JumpToBottom()
	case key.Matches(msg, k.NextDay):
		m.detail.NextDay()
	case key.Matches(msg, k.PrevDay):
		m.detail.PrevDay()
	case key.Matches(msg, k.AddStop):
		m.mode = model.ModeInsert
		m.screen = model.ScreenStopForm
		m.stopForm = NewStopFormModel(m.backend, m.search, m.detail.Plan(), m.detail.SelectedDate())
	case key.Matches(msg, k.EditStop):
		if s, ok := m.detail.SelectedStop(); ok {
			m.mode = model.ModeInsert
			m.screen = model.ScreenStopForm
			m.stopForm = NewStopFormModel(m.backend, m.search, m.detail.Plan(), s.Date)
			m.stopForm.LoadStop(s)
		}
	case key.Matches(msg, k.DeleteStop):
		if s, ok := m.detail.SelectedStop(); ok {
			return m, deleteStopCmd(m.backend, s)
		}
	case key.Matches(msg, k.EditPlan):
		m.mode = model.ModeInsert
		m.screen = model.ScreenPlanForm
		m.formReturn = model.ScreenPlanDetail
		m.planForm = NewPlanFormModel(m.backend, m.remapper)
		m.planForm.LoadPlan(m.detail.Plan())
	case key.Matches(msg, k.Grab):
		if err := m.detail.BeginDrag(); err != nil {
			m.info = "Select a stop to move"
			return m, nil
		}
		m.mode = model.ModeDrag
		m.mouseDrag = false
		m.info = ""
	case key.Matches(msg, k.SaveOrder):
		orders := m.detail.SessionOrders()
		if len(orders) == 0 {
			m.info = "No order changes to save"
			return m, nil
		}
		return m, saveOrderCmd(m.backend, m.detail.Plan().ID, orders)
	case key.Matches(msg, k.ToggleMap):
		m.prefs.HideMap = !m.prefs.HideMap
		if err := saveUIPreferences(m.configDir, m.prefs); err != nil {
			m.log.Printf("save prefs: %v", err)
		}
	case key.Matches(msg, k.RefreshMap):
		m.info = "Refreshing map"
		return m, m.refreshMapCmd()
	case key.Matches(msg, k.Reload):
		cmd := m.reloadDetailCmd()
		return m, cmd
	}
	return m, nil
}

// handleDragMode handles input while a stop is grabbed.
func (m Model) handleDragMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.detail == nil {
		m.mode = model.ModeNav
		return m, nil
	}
	k := m.dragKeys
	if m.mouseDrag {
		// The pointer owns the drag; only cancelling is allowed from the keyboard.
		if key.Matches(msg, k.Cancel) {
			m.detail.CancelDrag()
			m.mode = model.ModeNav
			m.mouseDrag = false
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, k.Up):
		m.detail.DragBy(-1)
	case key.Matches(msg, k.Down):
		m.detail.DragBy(1)
	case key.Matches(msg, k.Drop):
		moved, err := m.detail.EndDrag()
		m.mode = model.ModeNav
		if err != nil {
			m.error = err.Error()
		} else if moved {
			m.info = "Order changed · S to save"
		}
	case key.Matches(msg, k.Cancel):
		m.detail.CancelDrag()
		m.mode = model.ModeNav
	}
	return m, nil
}

// handleMouse drives press-and-hold dragging on the itinerary.
func (m Model) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	if m.screen != model.ScreenPlanDetail || m.detail == nil || m.mode == model.ModeInsert || m.showingHelp {
		return m, nil
	}
	y := msg.Y - m.contentTop() - m.detail.BodyTop()

	switch msg.Action {
	case tea.MouseActionPress:
		switch msg.Button {
		case tea.MouseButtonWheelUp:
			m.detail.MoveUp()
		case tea.MouseButtonWheelDown:
			m.detail.MoveDown()
		case tea.MouseButtonLeft:
			if m.mode == model.ModeDrag {
				return m, nil
			}
			m.detail.Press(msg.X, y)
			m.holdSeq++
			seq := m.holdSeq
			return m, tea.Tick(m.holdThreshold, func(time.Time) tea.Msg {
				return holdTickMsg{seq: seq}
			})
		}
	case tea.MouseActionMotion:
		m.detail.Motion(y)
		if m.detail.Dragging() && m.mode != model.ModeDrag {
			m.mode = model.ModeDrag
			m.mouseDrag = true
		}
	case tea.MouseActionRelease:
		m.holdSeq++
		wasMouse := m.mouseDrag
		moved, err := m.detail.Release()
		if wasMouse {
			m.mode = model.ModeNav
			m.mouseDrag = false
		}
		if err != nil {
			m.error = err.Error()
		} else if moved {
			m.info = "Order changed · S to save"
		}
	}
	return m, nil
}

// Commands

func loadPlansCmd(backend Backend) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := requestContext()
		defer cancel()
		plans, err := backend.ListPlans(ctx)
		if err != nil {
			return model.ErrorMsg{Err: fmt.Errorf("failed to load trips: %w", err)}
		}
		return model.PlansLoadedMsg{Plans: plans}
	}
}

func loadPlanDetailCmd(backend Backend, planID int64, seq uint64) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := requestContext()
		defer cancel()
		plan, err := backend.GetTrip(ctx, planID)
		if err != nil {
			return model.ErrorMsg{Err: fmt.Errorf("failed to load trip: %w", err)}
		}
		stops, err := backend.ListStops(ctx, planID)
		if err != nil {
			return model.ErrorMsg{Err: fmt.Errorf("failed to load stops: %w", err)}
		}
		return model.PlanDetailLoadedMsg{Seq: seq, Plan: plan, Stops: stops}
	}
}

func fetchMapCmd(bridge *mapsync.Bridge, planID int64) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := requestContext()
		defer cancel()
		bridge.Fetch(ctx, planID)
		return mapLoadedMsg{planID: planID}
	}
}

// reloadDetailCmd reloads the open plan. Older loads still in flight are ignored.
func (m *Model) reloadDetailCmd() tea.Cmd {
	if m.detail == nil {
		return nil
	}
	m.loadSeq++
	return loadPlanDetailCmd(m.backend, m.detail.Plan().ID, m.loadSeq)
}

// refreshMapCmd refetches the map of the open plan after a mutation.
func (m *Model) refreshMapCmd() tea.Cmd {
	if m.detail == nil {
		return nil
	}
	bridge, planID := m.bridge, m.detail.Plan().ID
	return func() tea.Msg {
		ctx, cancel := requestContext()
		defer cancel()
		bridge.RefreshPlan(ctx, planID)
		return mapLoadedMsg{planID: planID}
	}
}

func (m *Model) reloadCmd() tea.Cmd {
	return tea.Batch(loadPlansCmd(m.backend), m.reloadDetailCmd())
}

func deleteStopCmd(backend Backend, s model.Stop) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := requestContext()
		defer cancel()
		id, err := backend.DeleteStop(ctx, s.PlanID, s.ID)
		if err != nil {
			return model.ErrorMsg{Err: fmt.Errorf("failed to delete stop: %w", err)}
		}
		return model.DeleteStopMsg{ID: id, Deleted: s}
	}
}

func deletePlanCmd(backend Backend, p model.Plan) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := requestContext()
		defer cancel()
		stops, err := backend.ListStops(ctx, p.ID)
		if err != nil {
			return model.ErrorMsg{Err: fmt.Errorf("failed to load stops before delete: %w", err)}
		}
		if err := backend.DeletePlan(ctx, p.ID); err != nil {
			return model.ErrorMsg{Err: fmt.Errorf("failed to delete trip: %w", err)}
		}
		return model.DeletePlanMsg{ID: p.ID, Deleted: p, DeletedStops: stops}
	}
}

// saveOrderCmd persists dragged orders as ranks on stops that share a time.
func saveOrderCmd(backend Backend, planID int64, orders [][]model.Stop) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), remapTimeout)
		defer cancel()
		updated := 0
		for _, order := range orders {
			ranks, err := itinerary.PlanSessionRanks(order)
			if err != nil {
				return model.ErrorMsg{Err: fmt.Errorf("failed to rank stops: %w", err)}
			}
			// Iterate the order, not the map, so writes go out in a stable sequence.
			for _, s := range order {
				rank, ok := ranks[s.ID]
				if !ok {
					continue
				}
				if _, err := backend.UpdateStop(ctx, planID, s.ID, model.StopUpdate{Rank: &rank}); err != nil {
					return model.ErrorMsg{Err: fmt.Errorf("failed to save order of %s: %w", s.Location.Name, err)}
				}
				updated++
			}
		}
		return model.OrderSavedMsg{PlanID: planID, Updated: updated}
	}
}
