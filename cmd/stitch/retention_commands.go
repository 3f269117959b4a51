package main

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"stitch/internal/retention"
)

func newRetentionCommand(ctx *commandContext) *cobra.Command {
	retentionCmd := &cobra.Command{
		Use:   "retention",
		Short: "Inspect and trim the retention folder",
	}

	retentionCmd.AddCommand(newRetentionStatusCommand(ctx))
	retentionCmd.AddCommand(newRetentionReapCommand(ctx))

	return retentionCmd
}

func newRetentionStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the retention folder contents and threshold",
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := ctx.prefsSnapshot()
			if err != nil {
				return err
			}
			store := retention.NewStore(snap.RetentionDir, retention.WithLogger(ctx.log()))
			entries, err := store.Entries()
			if err != nil {
				return fmt.Errorf("list retention folder: %w", err)
			}
			occupied := store.OccupiedBytes()
			threshold := snap.ThresholdBytes()

			if ctx.JSONMode() {
				if entries == nil {
					entries = []retention.Entry{}
				}
				return writeJSON(cmd, map[string]any{
					"retention_dir":   snap.RetentionDir,
					"entries":         entries,
					"occupied_bytes":  occupied,
					"threshold_bytes": threshold,
					"over_threshold":  occupied > threshold,
				})
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Retention folder: %s\n", snap.RetentionDir)
			fmt.Fprintf(out, "Occupied: %s of %s (cleared when exceeded)\n\n",
				humanize.IBytes(uint64(occupied)), humanize.IBytes(uint64(threshold)))
			if len(entries) == 0 {
				fmt.Fprintln(out, "Retention folder is empty")
				return nil
			}
			rows := make([][]string, 0, len(entries))
			for _, entry := range entries {
				kind := "file"
				if entry.IsDir {
					kind = "dir"
				}
				rows = append(rows, []string{
					entry.Name,
					kind,
					humanize.RelTime(entry.ModTime, time.Now(), "ago", "from now"),
					humanize.IBytes(uint64(entry.Size)),
				})
			}
			fmt.Fprint(out, tableSpec{
				Headers: []string{"Name", "Type", "Age", "Size"},
				Rows:    rows,
				Aligns:  []columnAlignment{alignLeft, alignLeft, alignRight, alignRight},
			}.render())
			return nil
		},
	}
}

func newRetentionReapCommand(ctx *commandContext) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "reap",
		Short: "Clear the retention folder if it exceeds the threshold",
		Long: `Clear the retention folder when its size exceeds the configured threshold.

The same check runs automatically whenever stitch exits. Use --force to clear
the folder regardless of its size.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := ctx.prefsSnapshot()
			if err != nil {
				return err
			}
			store := retention.NewStore(snap.RetentionDir, retention.WithLogger(ctx.log()))

			var result retention.EnforceResult
			if force {
				result = retention.EnforceResult{
					Occupied:  store.OccupiedBytes(),
					Threshold: snap.ThresholdBytes(),
					Cleared:   true,
					Clear:     store.Clear(),
				}
			} else {
				result = retention.Enforce(cmd.Context(), store, snap.ThresholdBytes(), ctx.log())
			}

			if ctx.JSONMode() {
				return writeReapJSON(cmd, result)
			}
			return printReapResult(cmd, result)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Clear the folder even when below the threshold")
	return cmd
}

func printReapResult(cmd *cobra.Command, result retention.EnforceResult) error {
	out := cmd.OutOrStdout()
	if !result.Cleared {
		fmt.Fprintf(out, "Retention folder within threshold (%s of %s)\n",
			humanize.IBytes(uint64(result.Occupied)), humanize.IBytes(uint64(result.Threshold)))
		return nil
	}
	if len(result.Clear.Errors) > 0 {
		fmt.Fprintf(out, "Removed %d entries, %d errors\n", len(result.Clear.Removed), len(result.Clear.Errors))
		for _, e := range result.Clear.Errors {
			fmt.Fprintf(out, "  Error: %s: %v\n", e.Path, e.Err)
		}
		return nil
	}
	fmt.Fprintf(out, "Removed %d entries (%s freed)\n", len(result.Clear.Removed), humanize.IBytes(uint64(result.Occupied)))
	return nil
}

func writeReapJSON(cmd *cobra.Command, result retention.EnforceResult) error {
	errs := make([]string, 0, len(result.Clear.Errors))
	for _, e := range result.Clear.Errors {
		errs = append(errs, e.Error())
	}
	removed := result.Clear.Removed
	if removed == nil {
		removed = []string{}
	}
	return writeJSON(cmd, map[string]any{
		"cleared":         result.Cleared,
		"occupied_bytes":  result.Occupied,
		"threshold_bytes": result.Threshold,
		"removed":         removed,
		"errors":          errs,
	})
}
