package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"stitch/internal/prefs"
)

func newPrefsCommand(ctx *commandContext) *cobra.Command {
	prefsCmd := &cobra.Command{
		Use:   "prefs",
		Short: "Show or change user preferences",
	}

	prefsCmd.AddCommand(newPrefsShowCommand(ctx))
	prefsCmd.AddCommand(newPrefsSetCommand(ctx))

	return prefsCmd
}

func newPrefsShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show current preferences",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.prefsStore()
			if err != nil {
				return err
			}
			snap, err := store.Snapshot()
			if err != nil {
				return err
			}
			if ctx.JSONMode() {
				return writeJSON(cmd, snap)
			}
			fmt.Fprint(cmd.OutOrStdout(), tableSpec{
				Headers: []string{"Key", "Value"},
				Rows: [][]string{
					{prefs.KeyDeleteSources, yesNo(snap.DeleteSourcesAfterMerge)},
					{prefs.KeyRetentionDir, snap.RetentionDir},
					{prefs.KeyThresholdGB, strconv.Itoa(snap.RetentionThresholdGB) + " GB"},
				},
			}.render())
			fmt.Fprintf(cmd.OutOrStdout(), "Stored in %s\n", store.Path())
			return nil
		},
	}
}

func newPrefsSetCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:       "set <key> <value>",
		Short:     "Change a preference",
		Long:      fmt.Sprintf("Change a preference. Threshold accepts %d..%d GB.", prefs.MinThresholdGB, prefs.MaxThresholdGB),
		Args:      cobra.ExactArgs(2),
		ValidArgs: prefs.Keys(),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.prefsStore()
			if err != nil {
				return err
			}
			if err := store.Set(args[0], args[1]); err != nil {
				return err
			}
			snap, err := store.Snapshot()
			if err != nil {
				return err
			}
			if ctx.JSONMode() {
				return writeJSON(cmd, snap)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Set %s\n", args[0])
			return nil
		},
	}
}
