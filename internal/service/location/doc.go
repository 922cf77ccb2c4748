// Package location implements the location tracker: it owns the last known
// position, exposes a one-shot fetch and a cancellable subscription to
// position changes, and refuses both until location permissions are granted.
package location
