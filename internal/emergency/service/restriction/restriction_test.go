package restriction

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"lifeline/internal/emergency/models"
)

var (
	paris  = models.Coordinates{Lat: 48.8566, Lon: 2.3522}
	london = models.Coordinates{Lat: 51.5074, Lon: -0.1278}
)

func TestDistance(t *testing.T) {
	t.Run("same point is zero", func(t *testing.T) {
		assert.InDelta(t, 0, Distance(paris, paris), 1e-6)
	})

	t.Run("paris to london is about 343.5 km", func(t *testing.T) {
		assert.InDelta(t, 343_500, Distance(paris, london), 1_000)
	})

	t.Run("symmetric", func(t *testing.T) {
		assert.InDelta(t, Distance(paris, london), Distance(london, paris), 1e-6)
	})

	t.Run("one degree of latitude is about 111.2 km", func(t *testing.T) {
		d := Distance(models.Coordinates{Lat: 0, Lon: 0}, models.Coordinates{Lat: 1, Lon: 0})
		assert.InDelta(t, 111_195, d, 5)
	})
}

func profileWithFence(center models.Coordinates, radius float64) *models.EmergencyAccessProfile {
	return &models.EmergencyAccessProfile{
		Location: models.LocationRestriction{
			Enabled:   true,
			Geofences: []models.Geofence{{Center: center, RadiusMeters: radius, Kind: models.FacilityHospital}},
		},
	}
}

func TestLocationAllowed(t *testing.T) {
	t.Run("disabled restriction allows missing location", func(t *testing.T) {
		assert.True(t, LocationAllowed(&models.EmergencyAccessProfile{}, nil))
	})

	t.Run("enabled restriction denies missing location", func(t *testing.T) {
		assert.False(t, LocationAllowed(profileWithFence(paris, 500), nil))
	})

	t.Run("inside and outside the radius", func(t *testing.T) {
		p := profileWithFence(paris, 500)
		near := models.Coordinates{Lat: paris.Lat + 0.003, Lon: paris.Lon} // ~334 m north
		far := models.Coordinates{Lat: paris.Lat + 0.006, Lon: paris.Lon}  // ~667 m north
		assert.True(t, LocationAllowed(p, &near))
		assert.False(t, LocationAllowed(p, &far))
	})

	t.Run("any matching geofence allows", func(t *testing.T) {
		p := profileWithFence(paris, 100)
		p.Location.Geofences = append(p.Location.Geofences, models.Geofence{Center: london, RadiusMeters: 100})
		loc := london
		assert.True(t, LocationAllowed(p, &loc))
	})

	t.Run("enabled without geofences denies", func(t *testing.T) {
		p := &models.EmergencyAccessProfile{Location: models.LocationRestriction{Enabled: true}}
		loc := paris
		assert.False(t, LocationAllowed(p, &loc))
	})
}

func profileWithHours(start, end int, tz string, days ...time.Weekday) *models.EmergencyAccessProfile {
	return &models.EmergencyAccessProfile{
		Time: models.TimeRestriction{Enabled: true, StartHour: start, EndHour: end, Weekdays: days, Timezone: tz},
	}
}

var weekdays = []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday}

func TestTimeAllowed(t *testing.T) {
	// 2026-03-09 is a Monday.
	monday := func(hour int) time.Time { return time.Date(2026, 3, 9, hour, 30, 0, 0, time.UTC) }

	t.Run("disabled restriction allows", func(t *testing.T) {
		assert.True(t, TimeAllowed(&models.EmergencyAccessProfile{}, monday(3)))
	})

	t.Run("start inclusive, end exclusive", func(t *testing.T) {
		p := profileWithHours(9, 17, "UTC", weekdays...)
		assert.False(t, TimeAllowed(p, monday(8)))
		assert.True(t, TimeAllowed(p, monday(9)))
		assert.True(t, TimeAllowed(p, monday(16)))
		assert.False(t, TimeAllowed(p, monday(17)))
	})

	t.Run("weekday outside the allowed set", func(t *testing.T) {
		p := profileWithHours(0, 24, "UTC", weekdays...)
		sunday := time.Date(2026, 3, 8, 12, 0, 0, 0, time.UTC)
		assert.False(t, TimeAllowed(p, sunday))
	})

	t.Run("empty weekday set denies", func(t *testing.T) {
		assert.False(t, TimeAllowed(profileWithHours(0, 24, "UTC"), monday(12)))
	})

	t.Run("window wraps past midnight", func(t *testing.T) {
		p := profileWithHours(22, 6, "UTC", weekdays...)
		assert.True(t, TimeAllowed(p, monday(23)))
		assert.True(t, TimeAllowed(p, monday(2)))
		assert.False(t, TimeAllowed(p, monday(6)))
		assert.False(t, TimeAllowed(p, monday(12)))
	})

	t.Run("evaluated in the profile timezone", func(t *testing.T) {
		// 02:30 UTC Monday is 11:30 Monday in Tokyo.
		p := profileWithHours(9, 17, "Asia/Tokyo", weekdays...)
		assert.True(t, TimeAllowed(p, monday(2)))
		assert.False(t, TimeAllowed(profileWithHours(9, 17, "UTC", weekdays...), monday(2)))
	})

	t.Run("timezone shifts the weekday", func(t *testing.T) {
		// 23:30 UTC Sunday is 08:30 Monday in Tokyo.
		sundayLate := time.Date(2026, 3, 8, 23, 30, 0, 0, time.UTC)
		p := profileWithHours(8, 9, "Asia/Tokyo", time.Monday)
		assert.True(t, TimeAllowed(p, sundayLate))
	})

	t.Run("unknown timezone denies", func(t *testing.T) {
		assert.False(t, TimeAllowed(profileWithHours(0, 24, "Mars/Olympus", weekdays...), monday(12)))
	})
}
