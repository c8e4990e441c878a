package ui

import (
	"fmt"
	"image"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/qeesung/image2ascii/convert"

	"tripmate/internal/mapsync"
	"tripmate/internal/util"
)

// TerminalCapabilities describes what the minimap may use when drawing.
type TerminalCapabilities struct {
	Color bool
}

// DetectTerminalCapabilities inspects the environment for color support.
func DetectTerminalCapabilities() TerminalCapabilities {
	term := os.Getenv("TERM")
	return TerminalCapabilities{
		Color: os.Getenv("NO_COLOR") == "" && term != "dumb",
	}
}

// RenderMiniMap draws the markers as ASCII art of the given size in cells.
func RenderMiniMap(markers []mapsync.Marker, caps TerminalCapabilities, width, height int) string {
	if width <= 0 || height <= 0 {
		return ""
	}
	// Terminal cells are about twice as tall as they are wide.
	img := mapsync.Rasterize(markers, width*4, height*8)
	return convertToASCII(img, caps, width, height)
}

func convertToASCII(img image.Image, caps TerminalCapabilities, targetWidth, targetHeight int) string {
	converter := convert.NewImageConverter()

	opts := convert.DefaultOptions
	opts.FixedWidth = targetWidth
	opts.FixedHeight = targetHeight
	opts.FitScreen = false
	opts.Colored = caps.Color

	return converter.Image2ASCIIString(img, &opts)
}

// renderMapPanel renders the map side panel for the plan detail screen.
func renderMapPanel(doc mapsync.Document, caps TerminalCapabilities, width, height int) string {
	title := "Map"
	if doc.Title != "" {
		title = doc.Title
	}
	status := HelpDescStyle.Render(mapsync.Status(doc, time.Now()))

	var body string
	switch {
	case !doc.Loaded():
		body = EmptyDayStyle.Render("Fetching map…")
	case doc.Fallback:
		reason := "The map could not be loaded. R to retry."
		if doc.Reason != "" {
			reason = util.TruncateString(doc.Reason, width*2) + "\nR to retry."
		}
		body = ErrorStyle.Width(width).Render(reason)
	default:
		legendRows := min(len(doc.Markers), max(0, height/3))
		mapHeight := max(4, height-legendRows-4)
		var legend []string
		for i := 0; i < legendRows; i++ {
			mk := doc.Markers[i]
			legend = append(legend, fmt.Sprintf("%2d %s %s", i+1, HelpDescStyle.Render(mk.Time),
				util.TruncateString(mk.Name, max(8, width-10))))
		}
		if extra := len(doc.Markers) - legendRows; extra > 0 {
			legend = append(legend, HelpDescStyle.Render(fmt.Sprintf("   +%d more", extra)))
		}
		body = lipgloss.JoinVertical(lipgloss.Left,
			RenderMiniMap(doc.Markers, caps, width, mapHeight),
			strings.Join(legend, "\n"),
		)
	}

	content := lipgloss.JoinVertical(lipgloss.Left,
		LabelStyle.Render(util.TruncateString(title, width)),
		status,
		"",
		body,
	)
	return PanelStyle.Padding(0, 1).Width(width + 2).Height(height).Render(content)
}
