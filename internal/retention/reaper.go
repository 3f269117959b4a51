package retention

import (
	"context"
	"log/slog"

	"stitch/internal/logging"
)

// EnforceResult describes one reaper pass.
type EnforceResult struct {
	Occupied  int64
	Threshold int64
	Cleared   bool
	Clear     ClearResult
}

// Enforce clears store when its occupied size exceeds thresholdBytes. It does
// nothing when the store has no root, the threshold is not positive, or ctx is
// already done.
func Enforce(ctx context.Context, store *Store, thresholdBytes int64, logger *slog.Logger) EnforceResult {
	logger = logging.NewComponentLogger(logger, "reaper")
	result := EnforceResult{Threshold: thresholdBytes}
	if store == nil || store.Root() == "" || thresholdBytes <= 0 {
		return result
	}
	if ctx != nil && ctx.Err() != nil {
		return result
	}

	result.Occupied = store.OccupiedBytes()
	if result.Occupied <= thresholdBytes {
		logger.Debug("retention below threshold",
			logging.Bytes("occupied", result.Occupied),
			logging.Bytes("threshold", thresholdBytes),
		)
		return result
	}

	result.Cleared = true
	result.Clear = store.Clear()
	logger.Info("retention folder cleared",
		logging.String("root", store.Root()),
		logging.Bytes("occupied", result.Occupied),
		logging.Bytes("threshold", thresholdBytes),
		logging.Int("removed", len(result.Clear.Removed)),
		logging.Int("failed", len(result.Clear.Errors)),
		logging.String(logging.FieldEventType, "retention_reaped"),
	)
	return result
}
