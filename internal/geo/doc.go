// Package geo holds pure geodesic helpers: great-circle distance on a
// spherical Earth and small metric offsets used to place test positions.
package geo
