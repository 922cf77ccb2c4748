// Package console is a notification sink that prints notifications as lines
// to a writer, usually the daemon's stdout.
package console
