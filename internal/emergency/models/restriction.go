package models

import (
	"slices"
	"time"

	dErrors "lifeline/pkg/domain-errors"
)

// Coordinates is a WGS84 point in decimal degrees.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Valid reports whether the point lies within WGS84 bounds.
func (c Coordinates) Valid() bool {
	return c.Lat >= -90 && c.Lat <= 90 && c.Lon >= -180 && c.Lon <= 180
}

// FacilityKind labels the place a geofence surrounds.
type FacilityKind string

const (
	FacilityHospital         FacilityKind = "hospital"
	FacilityClinic           FacilityKind = "clinic"
	FacilityPharmacy         FacilityKind = "pharmacy"
	FacilityEmergencyService FacilityKind = "emergency_service"
)

// Geofence is a circular area around a facility.
type Geofence struct {
	Center       Coordinates  `json:"center"`
	RadiusMeters float64      `json:"radius_meters"`
	Label        string       `json:"label,omitempty"`
	Kind         FacilityKind `json:"kind,omitempty"`
}

// LocationRestriction limits access to requests made inside a geofence.
type LocationRestriction struct {
	Enabled   bool       `json:"enabled"`
	Geofences []Geofence `json:"geofences"`
}

func (r LocationRestriction) Validate() error {
	for _, g := range r.Geofences {
		if !g.Center.Valid() {
			return dErrors.New(dErrors.CodeInvariantViolation, "geofence center out of range")
		}
		if g.RadiusMeters <= 0 {
			return dErrors.New(dErrors.CodeInvariantViolation, "geofence radius must be positive")
		}
	}
	return nil
}

// TimeRestriction limits access to hours and weekdays in the profile timezone.
// StartHour is inclusive, EndHour exclusive. StartHour > EndHour wraps past midnight.
type TimeRestriction struct {
	Enabled   bool           `json:"enabled"`
	StartHour int            `json:"start_hour"`
	EndHour   int            `json:"end_hour"`
	Weekdays  []time.Weekday `json:"weekdays"`
	Timezone  string         `json:"timezone"`
}

func (r TimeRestriction) Validate() error {
	if r.StartHour < 0 || r.StartHour > 23 || r.EndHour < 0 || r.EndHour > 24 {
		return dErrors.New(dErrors.CodeInvariantViolation, "time restriction hours out of range")
	}
	for _, d := range r.Weekdays {
		if d < time.Sunday || d > time.Saturday {
			return dErrors.New(dErrors.CodeInvariantViolation, "invalid weekday")
		}
	}
	if _, err := r.Location(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInvariantViolation, "unknown timezone")
	}
	return nil
}

// Location resolves the restriction timezone, defaulting to UTC.
func (r TimeRestriction) Location() (*time.Location, error) {
	if r.Timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(r.Timezone)
}

// AllowsWeekday reports whether d is in the allowed set.
func (r TimeRestriction) AllowsWeekday(d time.Weekday) bool {
	return slices.Contains(r.Weekdays, d)
}
