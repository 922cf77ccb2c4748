package marker

import (
	"fmt"
	"time"
)

// Coordinate is a position in degrees.
type Coordinate struct {
	// Latitude in degrees, positive north.
	Latitude float64 `json:"latitude" yaml:"latitude"`
	// Longitude in degrees, positive east.
	Longitude float64 `json:"longitude" yaml:"longitude"`
}

// String renders the coordinate with six decimals (about 0.1 m).
func (c Coordinate) String() string {
	return fmt.Sprintf("(%.6f, %.6f)", c.Latitude, c.Longitude)
}

// Valid reports whether the coordinate lies within WGS 84 bounds.
func (c Coordinate) Valid() bool {
	return c.Latitude >= -90 && c.Latitude <= 90 && c.Longitude >= -180 && c.Longitude <= 180
}

// Marker is a geo-located point the user wants to be reminded about.
type Marker struct {
	// ID is the unique, stable marker identifier.
	ID int64
	// Coordinate is where the marker is placed.
	Coordinate Coordinate
	// Title is the optional human-readable name.
	Title *string
	// Description is an optional free-form note.
	Description *string
	// CreatedAt is when the marker was stored.
	CreatedAt time.Time
	// UpdatedAt is when the marker was last changed.
	UpdatedAt time.Time
}

// DisplayName returns the title or the "Marker #<id>" fallback.
func (m *Marker) DisplayName() string {
	if m.Title != nil && *m.Title != "" {
		return *m.Title
	}

	return fmt.Sprintf("Marker #%d", m.ID)
}

// Clone returns a deep copy of the marker.
func (m *Marker) Clone() *Marker {
	if m == nil {
		return nil
	}

	cloned := *m
	cloned.Title = cloneString(m.Title)
	cloned.Description = cloneString(m.Description)

	return &cloned
}

// NotificationHandle is the opaque identifier a notification sink returns.
type NotificationHandle string

// NotificationRecord describes a visible proximity notification.
type NotificationRecord struct {
	// MarkerID is the marker the notification refers to.
	MarkerID int64
	// Handle identifies the notification in the sink.
	Handle NotificationHandle
	// CreatedAt is when the show operation resolved.
	CreatedAt time.Time
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}

	v := *s

	return &v
}
