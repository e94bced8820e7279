// Package config defines the installer server settings and provides helpers
// to load, validate and save them in YAML format.
//
// Validate fills defaults for every optional field, so a Config returned by
// Load is ready to use.
package config
