package preflight

import (
	"context"

	"stitch/internal/config"
	"stitch/internal/prefs"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config and
// preference snapshot.
func RunAll(ctx context.Context, cfg *config.Config, snap prefs.Snapshot) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	results = append(results, CheckDirectoryAccess("State directory", cfg.Paths.StateDir))
	results = append(results, CheckDirectoryAccess("Log directory", cfg.Paths.LogDir))

	// The retention folder is created on first use.
	results = append(results, CheckCreatableDirectory("Retention folder", snap.RetentionDir))

	if cfg.Notifications.NtfyTopic != "" {
		results = append(results, CheckNtfy(ctx, cfg.Notifications.NtfyTopic, cfg.NotifyTimeout()))
	}

	return results
}
