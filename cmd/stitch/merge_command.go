package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"stitch/internal/deps"
	"stitch/internal/desktop"
	"stitch/internal/history"
	"stitch/internal/logging"
	"stitch/internal/merge"
	"stitch/internal/picker"
	"stitch/internal/preflight"
)

func newMergeCommand(ctx *commandContext) *cobra.Command {
	var flags targetFlags
	var assumeYes bool
	var noReveal bool
	var deleteSources bool

	cmd := &cobra.Command{
		Use:   "merge [folder]",
		Short: "Concatenate the segments in a folder into one file",
		Long: `Concatenate every .flv segment in folder, ordered by capture time, into one
file using the configured merge tool.

Interrupting with Ctrl-C cancels the running merge. When delete-sources is
enabled (stitch prefs set delete_sources_after_merge true, or --delete-sources)
the segments are moved to the retention folder after a successful merge.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			folder, err := ctx.resolveFolder(cmd, args)
			if err != nil {
				return err
			}
			mgr, err := ctx.loadFileSet(folder, &flags)
			if err != nil {
				return err
			}
			inv, output, err := ctx.invocationFor(mgr, &flags)
			if err != nil && mgr.Len() > 0 {
				return err
			}

			for _, status := range deps.MissingRequired(preflight.CheckSystemDeps(cfg)) {
				logging.WarnWithContext(ctx.log(), "required tool not found", "dependency_missing",
					logging.String("tool", status.Command),
					logging.String(logging.FieldErrorHint, "install it or set merge.binary; run `stitch doctor`"),
					logging.String(logging.FieldImpact, "the merge will fail to start"),
				)
			}

			snap, err := ctx.prefsSnapshot()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("delete-sources") {
				snap.DeleteSourcesAfterMerge = deleteSources
			}

			if !ctx.JSONMode() && mgr.Len() > 0 {
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Merging %d segments (%s) into %s\n", mgr.Len(), formatSize(mgr.PredictedSize(), true), output)
				if snap.DeleteSourcesAfterMerge {
					fmt.Fprintf(out, "Sources will be moved to %s\n", snap.RetentionDir)
				}
			}
			if !assumeYes && mgr.Len() > 0 {
				ok, err := ctx.terminal().Confirm(cmd.Context(), "Start merge?", inv.String())
				switch {
				case errors.Is(err, picker.ErrNotInteractive):
				case errors.Is(err, picker.ErrCancelled):
					return context.Canceled
				case err != nil:
					return err
				case !ok:
					fmt.Fprintln(cmd.OutOrStdout(), "Merge not started")
					return nil
				}
			}

			opts := []merge.Option{
				merge.WithLogger(ctx.log()),
				merge.WithNotifier(ctx.notifier()),
				merge.WithInstanceLock(cfg.LockPath()),
			}
			if !noReveal && cfg.Notifications.Desktop {
				opts = append(opts, merge.WithRevealer(desktop.NewRevealer(desktop.ExecRunner)))
			}
			return ctx.withHistory(func(store *history.Store) error {
				opts = append(opts, merge.WithRecorder(store))
				controller := merge.New(merge.NewExecRunner(cfg.Merge.StderrTailBytes), opts...)

				signalCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
				defer stop()

				_, err := controller.Start(signalCtx, merge.Request{
					Folder:        mgr.Folder(),
					Inputs:        mgr.Paths(),
					Output:        output,
					Program:       cfg.Merge.Binary,
					Shell:         ctx.loginShell(&flags),
					PredictedSize: mgr.PredictedSize(),
					Prefs:         snap,
					Set:           mgr,
				})
				if err != nil {
					return err
				}
				job, err := controller.Wait(context.WithoutCancel(cmd.Context()))
				if err != nil {
					return err
				}
				if job.OutputSizeKnown {
					mgr.SetMergedSize(job.OutputSize)
				}
				return reportJob(cmd, ctx, job)
			})
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Start without asking for confirmation")
	cmd.Flags().BoolVar(&noReveal, "no-reveal", false, "Do not reveal the merged file in the file manager")
	cmd.Flags().BoolVar(&deleteSources, "delete-sources", false, "Move segments to the retention folder after success (overrides the preference)")
	return cmd
}
