// Package notifications delivers merge outcomes via pluggable notifiers.
//
// The ntfy implementation publishes to the topic configured in config.toml;
// other transports (the desktop notifier in internal/desktop) satisfy the same
// Notifier interface and are combined with Fanout. When nothing is configured
// the result degrades to a no-op. Delivery is best-effort: callers log errors
// and carry on.
package notifications
