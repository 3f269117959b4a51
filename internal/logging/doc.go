// Package logging assembles the structured slog loggers used by stitch.
//
// A logger writes human-readable lines to the terminal and, when a log file is
// configured, JSON records to that file. Attribute helpers and the field
// constants keep keys consistent across packages, and WarnWithContext /
// ErrorWithContext enforce that every warning carries an event type, a hint,
// and an impact. NewNop serves tests and wiring code that cannot fail.
package logging
