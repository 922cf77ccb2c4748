// Package markers implements the marker management commands of the CLI:
// adding, listing, renaming and deleting markers in the SQLite store the
// daemon reads from.
package markers
