// Package gps implements the location backend on top of an NMEA 0183 GPS
// receiver attached to a serial port.
//
// The receiver streams RMC and GGA sentences; Backend verifies checksums,
// turns valid fixes into coordinates, filters them by accuracy and debounces
// them by minimum time and distance before handing them to the tracker.
// Port access goes through the Porter abstraction so tests run without
// hardware.
package gps
