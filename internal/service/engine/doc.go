// Package engine orchestrates the proximity alert cycle.
//
// On every delivered position the Engine pulls a fresh marker snapshot from
// the store, classifies each marker and hands the decisions to the
// notification manager concurrently. Tracking and notifications are
// cancelled independently: stopping updates leaves visible notifications in
// place. Run wires the engine to the SQLite marker store, the serial GPS
// receiver, the console notification sink, and the health and metrics
// endpoints.
package engine
