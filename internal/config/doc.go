// Package config loads, normalizes, and validates stitch configuration data.
//
// It supplies defaults rooted in the XDG base directories, expands user paths
// (including tilde shortcuts), reads TOML files, and honours environment
// fallbacks such as STITCH_NTFY_TOPIC. The Config type centralizes every knob
// the CLI needs: where logs and state live, which tool performs the merge, and
// how notifications are delivered.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
