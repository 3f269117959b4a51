// Package desktop drives the host's file manager and notification helpers
// through their command-line front ends: `open`/`osascript` on macOS,
// `xdg-open`/`notify-send` elsewhere.
package desktop

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	execute "github.com/alexellis/go-execute/v2"

	"stitch/internal/logging"
	"stitch/internal/notifications"
)

// Runner executes a helper command.
type Runner func(ctx context.Context, name string, args ...string) error

// ExecRunner runs helpers through go-execute and folds a non-zero exit into
// the returned error.
func ExecRunner(ctx context.Context, name string, args ...string) error {
	task := execute.ExecTask{
		Command:     name,
		Args:        args,
		StreamStdio: false,
	}
	res, err := task.Execute(ctx)
	if err != nil {
		return fmt.Errorf("run %s: %w", name, err)
	}
	if res.ExitCode != 0 {
		return fmt.Errorf("%s exited with status %d: %s", name, res.ExitCode, strings.TrimSpace(res.Stderr))
	}
	return nil
}

// Revealer shows a file in the host file manager.
type Revealer interface {
	Reveal(ctx context.Context, path string) error
}

type revealer struct {
	goos string
	run  Runner
}

// NewRevealer returns a Revealer for the current platform.
func NewRevealer(run Runner) Revealer {
	return newRevealer(runtime.GOOS, run)
}

func newRevealer(goos string, run Runner) Revealer {
	if run == nil {
		run = ExecRunner
	}
	return &revealer{goos: goos, run: run}
}

func (r *revealer) Reveal(ctx context.Context, path string) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	switch r.goos {
	case "darwin":
		return r.run(ctx, "open", "-R", path)
	case "windows":
		return r.run(ctx, "explorer", "/select,"+path)
	default:
		return r.run(ctx, "xdg-open", filepath.Dir(path))
	}
}

// NoopRevealer ignores reveal requests.
type NoopRevealer struct{}

func (NoopRevealer) Reveal(context.Context, string) error { return nil }

// Notifier posts desktop notifications. When the helper binary is missing it
// logs once and then discards messages.
type Notifier struct {
	goos     string
	run      Runner
	lookPath func(string) (string, error)
	logger   *slog.Logger

	once      sync.Once
	available bool
}

// NewNotifier returns a desktop notifier for the current platform.
func NewNotifier(run Runner, logger *slog.Logger) *Notifier {
	return newNotifier(runtime.GOOS, run, exec.LookPath, logger)
}

func newNotifier(goos string, run Runner, lookPath func(string) (string, error), logger *slog.Logger) *Notifier {
	if run == nil {
		run = ExecRunner
	}
	return &Notifier{
		goos:     goos,
		run:      run,
		lookPath: lookPath,
		logger:   logging.NewComponentLogger(logger, "desktop"),
	}
}

// Helper names the binary used to post notifications.
func (n *Notifier) Helper() string {
	return helperFor(n.goos)
}

// HelperName names the notification helper for the running platform.
func HelperName() string {
	return helperFor(runtime.GOOS)
}

func helperFor(goos string) string {
	if goos == "darwin" {
		return "osascript"
	}
	return "notify-send"
}

// Notify implements notifications.Notifier.
func (n *Notifier) Notify(ctx context.Context, msg notifications.Message) error {
	n.once.Do(func() {
		_, err := n.lookPath(n.Helper())
		n.available = err == nil
		if err != nil {
			logging.WarnWithContext(n.logger, "desktop notifications unavailable", "desktop_notify_unavailable",
				logging.String("helper", n.Helper()),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "install "+n.Helper()+" or set notifications.desktop = false"),
				logging.String(logging.FieldImpact, "merge results are only shown in the terminal"),
			)
		}
	})
	if !n.available {
		return nil
	}
	if n.goos == "darwin" {
		script := fmt.Sprintf("display notification %s with title %s", appleScriptString(msg.Body), appleScriptString(msg.Title))
		return n.run(ctx, "osascript", "-e", script)
	}
	args := []string{"--app-name=stitch"}
	if msg.Event == notifications.EventMergeFailed {
		args = append(args, "--urgency=critical")
	}
	args = append(args, msg.Title, msg.Body)
	return n.run(ctx, "notify-send", args...)
}

func appleScriptString(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return `"` + s + `"`
}
