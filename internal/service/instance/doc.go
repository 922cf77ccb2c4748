// Package instance keeps a single alert daemon per marker database, since two
// daemons would compete for the GPS device and show duplicate notifications.
// The lock is a pid file next to the database, so CLI subcommands never count.
package instance
