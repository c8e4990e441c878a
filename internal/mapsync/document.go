// Package mapsync keeps an embeddable map document in step with a plan's stops.
//
// The backend renders the map; this package fetches it, adapts it so it can be
// shown as-is, substitutes a built-in document when the fetch fails, and guards
// against older responses overwriting newer ones.
package mapsync

import (
	"time"
)

// Marker is one stop pin found in a map document.
type Marker struct {
	StopID int64
	Name   string
	Lat    float64
	Lon    float64
	Date   string
	Time   string
}

// Document is an adapted, self-contained map document for one plan.
type Document struct {
	PlanID  int64
	Title   string
	HTML    string
	Markers []Marker
	// Stripped counts external resources removed during adaptation.
	Stripped int
	// Fallback is set when the built-in document stands in for a failed fetch.
	Fallback bool
	// Reason holds the fetch or adaptation error behind a fallback.
	Reason    string
	Seq       uint64
	FetchedAt time.Time
}

// Loaded reports whether the document has content.
func (d Document) Loaded() bool { return d.HTML != "" }

const fallbackHTML = `<!DOCTYPE html>
<html>
<head><title>Map unavailable</title></head>
<body>
<main class="tripmate-fallback">
<h1>Map unavailable</h1>
<p>The map could not be loaded. Your itinerary is unaffected; refresh to try again.</p>
</main>
</body>
</html>`

// Fallback returns the built-in document shown when a map cannot be fetched.
func Fallback(planID int64) Document {
	doc, err := Adapt(planID, []byte(fallbackHTML))
	if err != nil {
		doc = Document{PlanID: planID, Title: "Map unavailable", HTML: fallbackHTML}
	}
	doc.Fallback = true
	return doc
}
