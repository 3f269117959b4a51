package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"stitch/internal/media"
)

func newListCommand(ctx *commandContext) *cobra.Command {
	var flags targetFlags

	cmd := &cobra.Command{
		Use:   "list [folder]",
		Short: "List the segments that would be merged, in order",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			folder, err := ctx.resolveFolder(cmd, args)
			if err != nil {
				return err
			}
			mgr, err := ctx.loadFileSet(folder, &flags)
			if err != nil {
				return err
			}
			items := mgr.Items()
			output, _ := mgr.OutputPath()

			if ctx.JSONMode() {
				if items == nil {
					items = []media.Item{}
				}
				return writeJSON(cmd, map[string]any{
					"folder":          mgr.Folder(),
					"segments":        items,
					"predicted_bytes": mgr.PredictedSize(),
					"output":          output,
				})
			}

			out := cmd.OutOrStdout()
			if len(items) == 0 {
				fmt.Fprintf(out, "No %s segments in %s\n", mgr.Extension(), mgr.Folder())
				return nil
			}
			rows := make([][]string, 0, len(items))
			for i, item := range items {
				captured := "-"
				if item.HasCapture() {
					captured = item.CapturedAt.Format("2006-01-02 15:04:05")
				}
				rows = append(rows, []string{strconv.Itoa(i + 1), item.Name, captured, item.SizeLabel()})
			}
			fmt.Fprint(out, tableSpec{
				Headers: []string{"#", "Segment", "Captured", "Size"},
				Rows:    rows,
				Aligns:  []columnAlignment{alignRight, alignLeft, alignLeft, alignRight},
				Footer:  []string{"", fmt.Sprintf("%d segments", len(items)), "", formatSize(mgr.PredictedSize(), true)},
			}.render())
			fmt.Fprintf(out, "Output: %s\n", output)
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

func newPreviewCommand(ctx *commandContext) *cobra.Command {
	var flags targetFlags

	cmd := &cobra.Command{
		Use:   "preview [folder]",
		Short: "Print the merge command without running it",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			folder, err := ctx.resolveFolder(cmd, args)
			if err != nil {
				return err
			}
			mgr, err := ctx.loadFileSet(folder, &flags)
			if err != nil {
				return err
			}
			if mgr.Len() == 0 {
				if ctx.JSONMode() {
					return writeJSON(cmd, map[string]any{
						"program":         ctx.config.Merge.Binary,
						"args":            []string{},
						"command":         "",
						"output":          "",
						"predicted_bytes": 0,
					})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "No %s segments in %s\n", mgr.Extension(), mgr.Folder())
				return nil
			}
			inv, output, err := ctx.invocationFor(mgr, &flags)
			if err != nil {
				return err
			}
			if ctx.JSONMode() {
				return writeJSON(cmd, map[string]any{
					"program":         inv.Program,
					"args":            inv.Args,
					"command":         inv.String(),
					"output":          output,
					"predicted_bytes": mgr.PredictedSize(),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), inv.String())
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}
