// Package restriction evaluates the location and time gates of a profile.
// Everything here is pure; callers supply the clock.
package restriction

import (
	"math"
	"time"

	"lifeline/internal/emergency/models"
)

// EarthRadiusMeters is the mean Earth radius used for great-circle distance.
const EarthRadiusMeters = 6_371_000.0

// Distance returns the haversine great-circle distance between a and b in meters.
func Distance(a, b models.Coordinates) float64 {
	lat1 := radians(a.Lat)
	lat2 := radians(b.Lat)
	dLat := radians(b.Lat - a.Lat)
	dLon := radians(b.Lon - a.Lon)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * EarthRadiusMeters * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }

// LocationAllowed reports whether loc satisfies the profile's location gate.
// A disabled gate allows everything; an enabled gate denies a missing location.
func LocationAllowed(profile *models.EmergencyAccessProfile, loc *models.Coordinates) bool {
	r := profile.Location
	if !r.Enabled {
		return true
	}
	if loc == nil || !loc.Valid() {
		return false
	}
	for _, g := range r.Geofences {
		if Distance(g.Center, *loc) <= g.RadiusMeters {
			return true
		}
	}
	return false
}

// TimeAllowed reports whether ts satisfies the profile's time gate.
// The hour window is [StartHour, EndHour) in the profile timezone and wraps
// past midnight when StartHour > EndHour. The weekday is taken at ts itself,
// so 01:00 Saturday in a Friday 22-06 window needs Saturday allowed.
func TimeAllowed(profile *models.EmergencyAccessProfile, ts time.Time) bool {
	r := profile.Time
	if !r.Enabled {
		return true
	}
	loc, err := r.Location()
	if err != nil {
		return false
	}
	local := ts.In(loc)
	if !r.AllowsWeekday(local.Weekday()) {
		return false
	}
	return hourInWindow(local.Hour(), r.StartHour, r.EndHour)
}

func hourInWindow(hour, start, end int) bool {
	if start <= end {
		return hour >= start && hour < end
	}
	return hour >= start || hour < end
}
