package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"

	"tripmate/internal/model"
)

// RenderHelp renders context-sensitive help footer.
func RenderHelp(screen model.Screen, mode model.Mode, width int) string {
	switch mode {
	case model.ModeInsert:
		return renderFormHelp(width)
	case model.ModeDrag:
		return renderDragHelp(width)
	}

	switch screen {
	case model.ScreenPlans:
		return renderPlansHelp(width)
	case model.ScreenPlanDetail:
		return renderPlanDetailHelp(width)
	default:
		return renderDefaultHelp(width)
	}
}

func renderPlansHelp(width int) string {
	keys := []string{
		helpKey("j/k", "navigate"),
		helpKey("enter", "open"),
		helpKey("a", "new trip"),
		helpKey("e", "edit"),
		helpKey("d", "delete"),
		helpKey("tab", "next col"),
		helpKey("s/S", "sort"),
		helpKey("n/N", "filter"),
		helpKey("u/ctrl+r", "undo/redo"),
	}
	return renderHelpLine(keys, width)
}

func renderPlanDetailHelp(width int) string {
	k := DefaultKeyMap()
	keys := []string{
		bindingHelp(k.Back),
		helpKey("j/k", "navigate"),
		bindingHelp(k.NextDay),
		bindingHelp(k.AddStop),
		bindingHelp(k.EditStop),
		bindingHelp(k.DeleteStop),
		bindingHelp(k.Grab),
		bindingHelp(k.SaveOrder),
		bindingHelp(k.EditPlan),
		bindingHelp(k.ToggleMap),
	}
	return renderHelpLine(keys, width)
}

func renderDragHelp(width int) string {
	k := DefaultDragKeyMap()
	keys := []string{
		bindingHelp(k.Up),
		bindingHelp(k.Down),
		bindingHelp(k.Drop),
		bindingHelp(k.Cancel),
	}
	return renderHelpLine(keys, width)
}

func renderFormHelp(width int) string {
	keys := []string{
		helpKey("tab", "next field"),
		helpKey("shift+tab", "prev field"),
		helpKey("ctrl+s", "save"),
		helpKey("esc", "cancel"),
	}
	return renderHelpLine(keys, width)
}

func renderDefaultHelp(width int) string {
	keys := []string{
		helpKey("j/k", "navigate"),
		helpKey("h/l", "back/select"),
		helpKey("q", "quit"),
	}
	return renderHelpLine(keys, width)
}

func helpKey(key, desc string) string {
	return HelpKeyStyle.Render(key) + " " + HelpDescStyle.Render(desc)
}

func bindingHelp(b key.Binding) string {
	h := b.Help()
	return helpKey(h.Key, h.Desc)
}

func renderHelpLine(keys []string, width int) string {
	line := strings.Join(keys, "  ")
	return FooterStyle.Width(width).Render(line)
}

// RenderFullHelp renders the full help screen.
func RenderFullHelp(width, height int) string {
	content := lipgloss.NewStyle().
		Width(width-4).
		Height(height-6).
		Padding(1, 2)

	sections := []string{
		titleSection("Trips"),
		helpSection([]helpItem{
			{"j / ↓, k / ↑", "Move down / up"},
			{"enter / l", "Open trip"},
			{"a", "Plan a new trip"},
			{"e / d", "Edit / delete trip"},
			{"tab / shift+tab", "Cycle active column"},
			{"/ then 1-9", "Jump to column"},
			{"s / S", "Sort active column asc/desc"},
			{"c / C", "Hide active column / show all"},
			{"n / N", "Filter by selected value / clear"},
			{"gg / G", "Jump to top / bottom"},
			{"r", "Reload"},
			{"q", "Quit"},
		}),
		titleSection("Itinerary"),
		helpSection([]helpItem{
			{"J / K", "Next / previous day"},
			{"a", "Add a stop on the selected day"},
			{"e / enter", "Edit stop"},
			{"d", "Delete stop"},
			{"E", "Edit trip, including its dates"},
			{"space", "Grab stop, then j/k and space to drop"},
			{"press and hold", "Grab stop with the mouse, drag, release"},
			{"S", "Save the dragged order of same-time stops"},
			{"m / R", "Show or hide map / refresh map"},
			{"h / esc", "Back to trips"},
		}),
		titleSection("Everywhere"),
		helpSection([]helpItem{
			{"u / ctrl+r", "Undo / redo"},
			{"?", "Toggle help"},
			{"ctrl+c", "Quit"},
		}),
		titleSection("Forms"),
		helpSection([]helpItem{
			{"tab", "Next field"},
			{"shift+tab", "Previous field"},
			{"ctrl+s", "Save"},
			{"esc", "Cancel"},
		}),
	}

	helpText := content.Render(strings.Join(sections, "\n\n"))

	return lipgloss.JoinVertical(
		lipgloss.Left,
		TitleStyle.Width(width).Render("Help"),
		helpText,
		FooterStyle.Width(width).Render(HelpKeyStyle.Render("esc")+" "+HelpDescStyle.Render("close help")),
	)
}

type helpItem struct {
	key  string
	desc string
}

func titleSection(title string) string {
	return LabelStyle.Render(title)
}

func helpSection(items []helpItem) string {
	var lines []string
	for _, item := range items {
		lines = append(lines, "  "+HelpKeyStyle.Render(item.key)+" - "+HelpDescStyle.Render(item.desc))
	}
	return strings.Join(lines, "\n")
}
