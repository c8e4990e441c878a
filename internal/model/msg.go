package model

// Bubble Tea message types

// ErrorMsg represents an error message.
type ErrorMsg struct {
	Err error
}

// PlansLoadedMsg is sent when the plan list is loaded.
type PlansLoadedMsg struct {
	Plans []Plan
}

// PlanDetailLoadedMsg is sent when a plan and its flat stop list are loaded.
// Seq identifies the load request; responses older than the latest request are dropped.
type PlanDetailLoadedMsg struct {
	Seq   uint64
	Plan  Plan
	Stops []Stop
}

// PlanSavedMsg is sent when a plan is successfully saved.
type PlanSavedMsg struct {
	ID        int64
	Operation string // insert, update
	Before    *Plan
	After     Plan
	// Remapped is set when the save moved the plan's dates and its stops.
	Remapped bool
	// Outside counts stops the remap left past the new range.
	Outside int
}

// StopSavedMsg is sent when a stop is successfully saved.
type StopSavedMsg struct {
	ID        int64
	Operation string // insert, update
	Before    *Stop
	After     Stop
}

// DeleteStopMsg is sent after a stop is deleted.
type DeleteStopMsg struct {
	ID      int64
	Deleted Stop
}

// DeletePlanMsg is sent after a plan is deleted.
type DeletePlanMsg struct {
	ID           int64
	Deleted      Plan
	DeletedStops []Stop
}

// OrderSavedMsg is sent when a dragged same-time order was persisted.
type OrderSavedMsg struct {
	PlanID  int64
	Updated int
}

// FormCancelledMsg is sent when a form is cancelled.
type FormCancelledMsg struct{}

// Screen represents different app screens.
type Screen int

const (
	ScreenPlans Screen = iota
	ScreenPlanDetail
	ScreenStopForm
	ScreenPlanForm
)

// Mode represents the current interaction mode.
type Mode int

const (
	ModeNav Mode = iota
	ModeInsert
	ModeDrag
)
