// ABOUTME: Data models for presence tracking
// ABOUTME: Defines Visit, OfficeLocation, TrackingPolicy, and sync update types
package models

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// Coordinate is a WGS84 latitude/longitude pair.
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

const earthRadiusMeters = 6371000.0

// DistanceTo returns the great-circle distance to other, in meters.
func (c Coordinate) DistanceTo(other Coordinate) float64 {
	lat1 := c.Latitude * math.Pi / 180
	lat2 := other.Latitude * math.Pi / 180
	dLat := (other.Latitude - c.Latitude) * math.Pi / 180
	dLng := (other.Longitude - c.Longitude) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return earthRadiusMeters * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// OfficeLocation is one configured geofence.
type OfficeLocation struct {
	Name         string     `json:"name"`
	Coordinate   Coordinate `json:"coordinate"`
	RadiusMeters float64    `json:"radius_meters"`
}

// Contains reports whether pos falls inside this location's geofence.
func (l OfficeLocation) Contains(pos Coordinate) bool {
	return l.Coordinate.DistanceTo(pos) <= l.RadiusMeters
}

// Visit is one contiguous presence interval at an office location.
// ExitTime is nil while the visit is still active.
type Visit struct {
	ID         uuid.UUID  `json:"id"`
	Date       string     `json:"date"` // entry day, YYYY-MM-DD
	EntryTime  time.Time  `json:"entry_time"`
	ExitTime   *time.Time `json:"exit_time,omitempty"`
	Coordinate Coordinate `json:"coordinate"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// NewVisit creates an active visit attributed to the entry day of entryTime.
func NewVisit(entryTime time.Time, at Coordinate) Visit {
	now := time.Now().UTC()
	return Visit{
		ID:         uuid.New(),
		Date:       entryTime.Format(DateLayout),
		EntryTime:  entryTime,
		Coordinate: at,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// Active reports whether the visit has no exit recorded yet.
func (v Visit) Active() bool {
	return v.ExitTime == nil
}

// Duration returns exit − entry, or the elapsed time so far for an
// active visit evaluated at now.
func (v Visit) Duration(now time.Time) time.Duration {
	if v.ExitTime != nil {
		return v.ExitTime.Sub(v.EntryTime)
	}
	return now.Sub(v.EntryTime)
}

// IsValid reports whether the visit is finished and long enough to keep.
func (v Visit) IsValid(threshold time.Duration) bool {
	return v.ExitTime != nil && v.ExitTime.Sub(v.EntryTime) >= threshold
}

// StableID returns the deterministic calendar identifier for the visit's
// entry day. All edits to the same day map to the same backend event.
func (v Visit) StableID() string {
	return StableIDForDate(v.Date)
}

// DateLayout is the canonical day format used in visit dates and stable IDs.
const DateLayout = "2006-01-02"

// StableIDForDate derives the calendar stable identifier for a day string.
func StableIDForDate(date string) string {
	return "visit-" + date
}

// TrackingPolicy decides which entry signals are accepted and which
// finished visits are worth keeping.
type TrackingPolicy struct {
	// TrackingDays are the weekdays presence is recorded on.
	TrackingDays []time.Weekday `json:"tracking_days"`

	// OfficeHourStart/End bound the accepted entry window, in hours of day.
	OfficeHourStart int `json:"office_hour_start"`
	OfficeHourEnd   int `json:"office_hour_end"`

	// HourFlexibility widens the office-hour window on both ends.
	HourFlexibility int `json:"hour_flexibility"`

	// ValidityThreshold is the minimum duration for a visit to count.
	ValidityThreshold time.Duration `json:"validity_threshold"`
}

// DefaultPolicy tracks Monday through Friday, 9–18h ±1h, 1 hour minimum.
func DefaultPolicy() TrackingPolicy {
	return TrackingPolicy{
		TrackingDays: []time.Weekday{
			time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday,
		},
		OfficeHourStart:   9,
		OfficeHourEnd:     18,
		HourFlexibility:   1,
		ValidityThreshold: time.Hour,
	}
}

// IsTrackingDay reports whether t falls on a configured tracking weekday.
func (p TrackingPolicy) IsTrackingDay(t time.Time) bool {
	for _, d := range p.TrackingDays {
		if t.Weekday() == d {
			return true
		}
	}
	return false
}

// WithinHours reports whether t's hour falls inside office hours plus
// the configured flexibility on either side.
func (p TrackingPolicy) WithinHours(t time.Time) bool {
	h := t.Hour()
	return h >= p.OfficeHourStart-p.HourFlexibility && h < p.OfficeHourEnd+p.HourFlexibility
}

// AcceptsEntry combines the day and hour guards for an entry signal.
func (p TrackingPolicy) AcceptsEntry(t time.Time) bool {
	return p.IsTrackingDay(t) && p.WithinHours(t)
}

// Sync operation constants.
const (
	OpCreate = "create"
	OpUpdate = "update"
	OpDelete = "delete"
)

// EventContent is the human-visible projection of a visit into a
// calendar event. The stable ID and checksum ride alongside it as
// control fields, not inside it.
type EventContent struct {
	Title    string    `json:"title"`
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
	AllDay   bool      `json:"all_day"`
	Location string    `json:"location"`
	Notes    string    `json:"notes,omitempty"`
}

// PendingUpdate is one queued sync intent for a stable ID.
type PendingUpdate struct {
	ID       ulid.ULID    `json:"id"`
	StableID string       `json:"stable_id"`
	Op       string       `json:"op"`
	Content  EventContent `json:"content"`
}

// NewPendingUpdate builds an update with a fresh monotonic ID so queue
// order survives serialization.
func NewPendingUpdate(stableID, op string, content EventContent) PendingUpdate {
	return PendingUpdate{
		ID:       ulid.Make(),
		StableID: stableID,
		Op:       op,
		Content:  content,
	}
}

// ContentForVisit renders a visit into calendar event content. Ongoing
// visits get a provisional end of entry + 1h so the event is visible
// while the day is still in progress.
func ContentForVisit(v Visit, locationName string, now time.Time) EventContent {
	end := v.EntryTime.Add(time.Hour)
	if v.ExitTime != nil {
		end = *v.ExitTime
	} else if now.After(end) {
		end = now
	}

	title := "Office"
	if locationName != "" {
		title = fmt.Sprintf("Office: %s", locationName)
	}

	return EventContent{
		Title:    title,
		Start:    v.EntryTime,
		End:      end,
		AllDay:   false,
		Location: locationName,
	}
}
