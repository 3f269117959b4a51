package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"stitch/internal/config"
	"stitch/internal/desktop"
	"stitch/internal/history"
	"stitch/internal/logging"
	"stitch/internal/notifications"
	"stitch/internal/picker"
	"stitch/internal/prefs"
	"stitch/internal/retention"
)

type commandContext struct {
	configFlag string
	jsonFlag   bool
	errOut     io.Writer

	configOnce sync.Once
	config     *config.Config
	configErr  error

	logger    *slog.Logger
	logCloser io.Closer

	prefsOnce sync.Once
	prefs     *prefs.Store

	history *history.Store

	// picker is swapped in tests.
	picker picker.Picker
}

func newCommandContext() *commandContext {
	return &commandContext{errOut: os.Stderr}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, _, _, err := config.Load(strings.TrimSpace(c.configFlag))
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		logger, closer, err := logging.New(logging.Options{
			Level:    cfg.Logging.Level,
			Format:   cfg.Logging.Format,
			Console:  c.errOut,
			FilePath: cfg.LogPath(),
		})
		if err != nil {
			c.configErr = fmt.Errorf("init logger: %w", err)
			return
		}
		logging.PruneLogs(logger, cfg.Paths.LogDir, cfg.Logging.RetentionDays, cfg.LogPath())
		c.config = cfg
		c.logger = logger
		c.logCloser = closer
	})
	return c.config, c.configErr
}

// JSONMode reports whether --json was passed.
func (c *commandContext) JSONMode() bool {
	return c.jsonFlag
}

func (c *commandContext) log() *slog.Logger {
	if c.logger == nil {
		return logging.NewNop()
	}
	return c.logger
}

// prefsStore opens the preference file. Opening it marks this invocation for
// retention enforcement at shutdown.
func (c *commandContext) prefsStore() (*prefs.Store, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	c.prefsOnce.Do(func() {
		c.prefs = prefs.Open(cfg.PrefsPath(), cfg.Retention.DefaultDir)
	})
	return c.prefs, nil
}

func (c *commandContext) prefsSnapshot() (prefs.Snapshot, error) {
	store, err := c.prefsStore()
	if err != nil {
		return prefs.Snapshot{}, err
	}
	return store.Snapshot()
}

func (c *commandContext) withHistory(fn func(*history.Store) error) error {
	if c.history == nil {
		cfg, err := c.ensureConfig()
		if err != nil {
			return err
		}
		store, err := history.Open(cfg.HistoryPath())
		if err != nil {
			return fmt.Errorf("open history: %w", err)
		}
		c.history = store
	}
	return fn(c.history)
}

func (c *commandContext) notifier() notifications.Notifier {
	cfg, err := c.ensureConfig()
	if err != nil {
		return notifications.Noop()
	}
	var extra []notifications.Notifier
	if cfg.Notifications.Desktop {
		extra = append(extra, desktop.NewNotifier(desktop.ExecRunner, c.log()))
	}
	return notifications.NewService(cfg, extra...)
}

func (c *commandContext) terminal() picker.Picker {
	if c.picker == nil {
		c.picker = picker.NewTerminal()
	}
	return c.picker
}

// close runs shutdown work: the retention reaper when preferences were
// loaded, then closes the history database and the log file.
func (c *commandContext) close(ctx context.Context) {
	if c.prefs != nil {
		c.reap(ctx)
	}
	if c.history != nil {
		if err := c.history.Close(); err != nil {
			c.log().Warn("close history", logging.Error(err))
		}
		c.history = nil
	}
	if c.logCloser != nil {
		_ = c.logCloser.Close()
		c.logCloser = nil
	}
}

func (c *commandContext) reap(ctx context.Context) retention.EnforceResult {
	snap, err := c.prefs.Snapshot()
	if err != nil {
		logging.WarnWithContext(c.log(), "retention check skipped", "retention_prefs_unreadable",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "fix or delete "+c.prefs.Path()),
			logging.String(logging.FieldImpact, "retention folder was not trimmed"),
		)
		return retention.EnforceResult{}
	}
	store := retention.NewStore(snap.RetentionDir, retention.WithLogger(c.log()))
	return retention.Enforce(ctx, store, snap.ThresholdBytes(), c.log())
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
