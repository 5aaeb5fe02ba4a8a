// Package config loads, normalizes, and validates dtrack configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and applies DTRACK_* environment overrides on
// top of the file. The Config type centralizes the workspace location, the
// training and augmentation knobs, and logging settings in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
