// Package marker implements the marker store on top of SQLite.
//
// SQLiteStore keeps markers in the map_markers table, applies embedded schema
// migrations on open and hands the engine a fresh snapshot on every query.
// Locations are stored as a JSON object, timestamps as Unix seconds.
package marker
