package model

import "time"

// Location is a named point on the map.
type Location struct {
	Name      string  `json:"name"`
	Address   string  `json:"address,omitempty"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Plan represents a trip spanning an inclusive date range.
type Plan struct {
	ID        int64     `json:"id"`
	Place     string    `json:"place"`
	StartDate string    `json:"startDate"` // ISO 8601 date (YYYY-MM-DD)
	EndDate   string    `json:"endDate"`   // ISO 8601 date (YYYY-MM-DD), inclusive
	Partner   string    `json:"partner,omitempty"`
	Style     string    `json:"style,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Stop represents a single dated, timed entry within a plan.
type Stop struct {
	ID        int64     `json:"id"`
	PlanID    int64     `json:"planId"`
	Location  Location  `json:"location"`
	Date      string    `json:"date"` // ISO 8601 date (YYYY-MM-DD)
	Time      string    `json:"time"` // HH:MM
	Rank      string    `json:"rank,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// DayBucket holds the time-ordered stops of one calendar date in a plan.
type DayBucket struct {
	Date  string
	Index int // zero-based day offset from the plan start
	Stops []Stop
}

// NewPlan represents data for creating a plan.
type NewPlan struct {
	Place     string `json:"place"`
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
	Partner   string `json:"partner,omitempty"`
	Style     string `json:"style,omitempty"`
}

// UpdatePlan represents data for updating the descriptive fields of a plan.
// Date changes go through the remapper instead.
type UpdatePlan struct {
	Place   string `json:"place"`
	Partner string `json:"partner,omitempty"`
	Style   string `json:"style,omitempty"`
}

// NewStop represents data for creating a stop.
type NewStop struct {
	Location Location `json:"location"`
	Date     string   `json:"date"`
	Time     string   `json:"time"`
}

// StopUpdate carries the optional fields of a stop edit. Nil fields are left unchanged.
type StopUpdate struct {
	Location *Location `json:"location,omitempty"`
	Date     *string   `json:"date,omitempty"`
	Time     *string   `json:"time,omitempty"`
	Rank     *string   `json:"rank,omitempty"`
}

// Apply returns a copy of s with the non-nil fields of u applied.
func (u StopUpdate) Apply(s Stop) Stop {
	if u.Location != nil {
		s.Location = *u.Location
	}
	if u.Date != nil {
		s.Date = *u.Date
	}
	if u.Time != nil {
		s.Time = *u.Time
	}
	if u.Rank != nil {
		s.Rank = *u.Rank
	}
	return s
}

// Place represents a geocoding search result.
type Place struct {
	Name      string
	Address   string
	Latitude  float64
	Longitude float64
	PlaceID   string
}

// Location converts a search result to a stop location.
func (p Place) Location() Location {
	return Location{
		Name:      p.Name,
		Address:   p.Address,
		Latitude:  p.Latitude,
		Longitude: p.Longitude,
	}
}
