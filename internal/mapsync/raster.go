package mapsync

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"time"

	"github.com/dustin/go-humanize"
)

var (
	rasterBackground = color.RGBA{R: 24, G: 28, B: 36, A: 255}
	rasterMarker     = color.RGBA{R: 255, G: 111, B: 97, A: 255}
	rasterFirst      = color.RGBA{R: 114, G: 214, B: 140, A: 255}
)

// Rasterize draws the markers onto a width x height image with an equirectangular
// projection fitted to their bounding box. The first marker is drawn in a distinct color.
func Rasterize(markers []Marker, width, height int) image.Image {
	if width < 8 {
		width = 8
	}
	if height < 8 {
		height = 8
	}
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetRGBA(x, y, rasterBackground)
		}
	}
	if len(markers) == 0 {
		return img
	}

	minLat, maxLat := markers[0].Lat, markers[0].Lat
	minLon, maxLon := markers[0].Lon, markers[0].Lon
	for _, m := range markers[1:] {
		minLat, maxLat = math.Min(minLat, m.Lat), math.Max(maxLat, m.Lat)
		minLon, maxLon = math.Min(minLon, m.Lon), math.Max(maxLon, m.Lon)
	}
	spanLat, spanLon := maxLat-minLat, maxLon-minLon
	if spanLat == 0 {
		spanLat = 1
	}
	if spanLon == 0 {
		spanLon = 1
	}

	pad := 3
	r := 2
	for i := len(markers) - 1; i >= 0; i-- {
		m := markers[i]
		x := pad + int(math.Round((m.Lon-minLon)/spanLon*float64(width-1-2*pad)))
		y := pad + int(math.Round((maxLat-m.Lat)/spanLat*float64(height-1-2*pad)))
		c := rasterMarker
		if i == 0 {
			c = rasterFirst
		}
		for dy := -r; dy <= r; dy++ {
			for dx := -r; dx <= r; dx++ {
				px, py := x+dx, y+dy
				if px >= 0 && py >= 0 && px < width && py < height {
					img.SetRGBA(px, py, c)
				}
			}
		}
	}
	return img
}

// Status summarizes a document for a status line.
func Status(doc Document, now time.Time) string {
	switch {
	case !doc.Loaded():
		return "loading map…"
	case doc.Fallback:
		return "map unavailable · showing offline placeholder"
	}
	when := humanize.RelTime(doc.FetchedAt, now, "ago", "from now")
	return fmt.Sprintf("%s · refreshed %s", humanize.Comma(int64(len(doc.Markers)))+pluralMarkers(len(doc.Markers)), when)
}

func pluralMarkers(n int) string {
	if n == 1 {
		return " marker"
	}
	return " markers"
}
