// Package config defines the daemon settings and provides helpers to load,
// validate and save them in YAML format.
//
// Unset fields fall back to defaults, so a settings file only needs the
// values that differ from them.
package config
