// Package permission defines the capability gate shared by the location
// tracker and the notification manager.
//
// A Gate must be granted before its component touches the backend it guards.
// RequestAll asks every gate concurrently and reports the first denial, so a
// caller can disable exactly the feature that was refused.
package permission
