// Package config loads, normalizes, and validates fauna configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and validates interval and worker-pool
// settings. The Config type centralizes every knob the daemon and CLI
// need, so downstream code receives sanitized paths, canonical log
// formats, and clear validation errors.
package config
