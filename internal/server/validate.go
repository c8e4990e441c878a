package server

import (
	"errors"
	"fmt"
	"strings"

	"tripmate/internal/itinerary"
	"tripmate/internal/model"
	"tripmate/internal/util"
)

// errValidation marks a request the client must fix.
var errValidation = errors.New("invalid request")

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errValidation, fmt.Sprintf(format, args...))
}

func validatePlan(p model.NewPlan) error {
	if strings.TrimSpace(p.Place) == "" {
		return invalid("place is required")
	}
	return validateRange(p.StartDate, p.EndDate)
}

func validateRange(start, end string) error {
	if err := itinerary.ValidateRange(start, end); err != nil {
		return invalid("%v", err)
	}
	return nil
}

func validateLocation(l model.Location) error {
	if strings.TrimSpace(l.Name) == "" {
		return invalid("location name is required")
	}
	if err := util.ValidateCoordinates(l.Latitude, l.Longitude); err != nil {
		return invalid("%v", err)
	}
	return nil
}

func validateStop(s model.Stop) error {
	if err := validateLocation(s.Location); err != nil {
		return err
	}
	if err := util.ValidateDate(s.Date); err != nil {
		return invalid("date %q must be YYYY-MM-DD", s.Date)
	}
	if err := util.ValidateTime(s.Time); err != nil {
		return invalid("time %q must be HH:MM", s.Time)
	}
	return nil
}
