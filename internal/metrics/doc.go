// Package metrics exposes Prometheus instruments for the proximity engine
// and a small HTTP server serving them on Path.
package metrics
