// Package marker contains the core domain types of the proximity alert engine.
//
// It defines Coordinate (a WGS 84 position), Marker (a geo-located point of
// interest owned by the marker store), NotificationRecord (a visible proximity
// notification) and TrackerConfig (how often position fixes may be delivered).
// Clone helpers avoid leaking internal references between components.
package marker
