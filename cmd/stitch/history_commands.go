package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"stitch/internal/history"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int

	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent merge jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withHistory(func(store *history.Store) error {
				entries, err := store.Recent(cmd.Context(), limit)
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					if entries == nil {
						entries = []history.Entry{}
					}
					return writeJSON(cmd, entries)
				}
				out := cmd.OutOrStdout()
				if len(entries) == 0 {
					fmt.Fprintln(out, "No merges recorded yet")
					return nil
				}
				rows := make([][]string, 0, len(entries))
				for _, e := range entries {
					size := "-"
					if e.OutputBytes != nil {
						size = formatSize(*e.OutputBytes, true)
					}
					rows = append(rows, []string{
						shortID(e.ID),
						e.StartedAt.Local().Format("2006-01-02 15:04"),
						e.Status,
						fmt.Sprintf("%d", len(e.Inputs)),
						size,
						e.Duration().Round(time.Second).String(),
						e.Output,
					})
				}
				fmt.Fprint(out, tableSpec{
					Headers: []string{"ID", "Started", "Status", "Segments", "Size", "Took", "Output"},
					Rows:    rows,
					Aligns:  []columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignLeft},
				}.render())
				return nil
			})
		},
	}
	historyCmd.Flags().IntVarP(&limit, "limit", "l", 20, "Number of jobs to show (0 for all)")

	historyCmd.AddCommand(newHistoryShowCommand(ctx))
	historyCmd.AddCommand(newHistoryPruneCommand(ctx))
	return historyCmd
}

func newHistoryShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one merge job in detail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withHistory(func(store *history.Store) error {
				entry, err := findEntry(cmd, store, args[0])
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, entry)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "ID:        %s\n", entry.ID)
				fmt.Fprintf(out, "Status:    %s\n", entry.Status)
				fmt.Fprintf(out, "Folder:    %s\n", entry.Folder)
				fmt.Fprintf(out, "Output:    %s\n", entry.Output)
				fmt.Fprintf(out, "Started:   %s\n", entry.StartedAt.Local().Format(time.RFC3339))
				if entry.FinishedAt != nil {
					fmt.Fprintf(out, "Took:      %s\n", entry.Duration().Round(time.Millisecond))
				}
				if entry.ExitCode != nil {
					fmt.Fprintf(out, "Exit code: %d\n", *entry.ExitCode)
				}
				fmt.Fprintf(out, "Predicted: %s\n", formatSize(entry.PredictedBytes, true))
				if entry.OutputBytes != nil {
					fmt.Fprintf(out, "Merged:    %s\n", formatSize(*entry.OutputBytes, true))
				}
				if entry.RetainedCount > 0 || entry.RetainFailures > 0 {
					fmt.Fprintf(out, "Retained:  %d moved, %d failed\n", entry.RetainedCount, entry.RetainFailures)
				}
				if entry.Command != "" {
					fmt.Fprintf(out, "Command:   %s\n", entry.Command)
				}
				if entry.Error != "" {
					fmt.Fprintf(out, "Error:     %s\n", entry.Error)
				}
				fmt.Fprintln(out, "Segments:")
				for i, in := range entry.Inputs {
					fmt.Fprintf(out, "  %2d. %s\n", i+1, in)
				}
				return nil
			})
		},
	}
}

func newHistoryPruneCommand(ctx *commandContext) *cobra.Command {
	var keep int
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete old merge records",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withHistory(func(store *history.Store) error {
				removed, err := store.Prune(cmd.Context(), keep)
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, map[string]any{"removed": removed, "kept": keep})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d records\n", removed)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&keep, "keep", 100, "Number of most recent records to keep")
	return cmd
}

// findEntry accepts a full ID or the short prefix shown by `stitch history`.
func findEntry(cmd *cobra.Command, store *history.Store, id string) (history.Entry, error) {
	id = strings.TrimSpace(id)
	entry, err := store.Get(cmd.Context(), id)
	if err == nil {
		return entry, nil
	}
	entries, listErr := store.Recent(cmd.Context(), 0)
	if listErr != nil {
		return history.Entry{}, listErr
	}
	var match *history.Entry
	for i := range entries {
		if strings.HasPrefix(entries[i].ID, id) {
			if match != nil {
				return history.Entry{}, fmt.Errorf("id %q is ambiguous", id)
			}
			match = &entries[i]
		}
	}
	if match == nil {
		return history.Entry{}, err
	}
	return *match, nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
