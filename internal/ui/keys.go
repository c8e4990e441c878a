package ui

import "github.com/charmbracelet/bubbles/key"

// GState represents the state for "gg" navigation.
type GState int

const (
	GStateIdle GState = iota
	GStateFirstG
)

// KeyMap defines the keybindings of the itinerary screen.
type KeyMap struct {
	Up         key.Binding
	Down       key.Binding
	NextDay    key.Binding
	PrevDay    key.Binding
	Back       key.Binding
	Bottom     key.Binding
	AddStop    key.Binding
	EditStop   key.Binding
	DeleteStop key.Binding
	EditPlan   key.Binding
	Grab       key.Binding
	SaveOrder  key.Binding
	ToggleMap  key.Binding
	RefreshMap key.Binding
	Reload     key.Binding
	Undo       key.Binding
	Redo       key.Binding
}

// DefaultKeyMap returns the default keybindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/↑", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/↓", "down"),
		),
		NextDay: key.NewBinding(
			key.WithKeys("J", "]"),
			key.WithHelp("J/]", "next day"),
		),
		PrevDay: key.NewBinding(
			key.WithKeys("K", "["),
			key.WithHelp("K/[", "prev day"),
		),
		Back: key.NewBinding(
			key.WithKeys("h", "b", "esc", "left"),
			key.WithHelp("h/esc", "back"),
		),
		Bottom: key.NewBinding(
			key.WithKeys("G"),
			key.WithHelp("G", "bottom"),
		),
		AddStop: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "add stop"),
		),
		EditStop: key.NewBinding(
			key.WithKeys("e", "enter"),
			key.WithHelp("e", "edit stop"),
		),
		DeleteStop: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "delete stop"),
		),
		EditPlan: key.NewBinding(
			key.WithKeys("E"),
			key.WithHelp("E", "edit trip"),
		),
		Grab: key.NewBinding(
			key.WithKeys(" ", "space"),
			key.WithHelp("space", "grab"),
		),
		SaveOrder: key.NewBinding(
			key.WithKeys("S"),
			key.WithHelp("S", "save order"),
		),
		ToggleMap: key.NewBinding(
			key.WithKeys("m"),
			key.WithHelp("m", "map"),
		),
		RefreshMap: key.NewBinding(
			key.WithKeys("R"),
			key.WithHelp("R", "refresh map"),
		),
		Reload: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "reload"),
		),
		Undo: key.NewBinding(
			key.WithKeys("u"),
			key.WithHelp("u", "undo"),
		),
		Redo: key.NewBinding(
			key.WithKeys("ctrl+r"),
			key.WithHelp("ctrl+r", "redo"),
		),
	}
}

// DragKeyMap defines keybindings while a stop is grabbed.
type DragKeyMap struct {
	Up     key.Binding
	Down   key.Binding
	Drop   key.Binding
	Cancel key.Binding
}

// DefaultDragKeyMap returns the default drag keybindings.
func DefaultDragKeyMap() DragKeyMap {
	return DragKeyMap{
		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/↑", "move up"),
		),
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/↓", "move down"),
		),
		Drop: key.NewBinding(
			key.WithKeys(" ", "space", "enter"),
			key.WithHelp("space/enter", "drop"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "cancel"),
		),
	}
}
