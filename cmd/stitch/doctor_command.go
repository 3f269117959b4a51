package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"stitch/internal/deps"
	"stitch/internal/preflight"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check tools, folders and notification targets",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			snap, err := ctx.prefsSnapshot()
			if err != nil {
				return err
			}
			statuses := preflight.CheckSystemDeps(cfg)
			checks := preflight.RunAll(cmd.Context(), cfg, snap)

			failed := len(deps.MissingRequired(statuses))
			for _, check := range checks {
				if !check.Passed {
					failed++
				}
			}

			if ctx.JSONMode() {
				if err := writeJSON(cmd, map[string]any{
					"dependencies": statuses,
					"checks":       checks,
					"ok":           failed == 0,
				}); err != nil {
					return err
				}
			} else {
				out := cmd.OutOrStdout()
				rows := make([][]string, 0, len(statuses)+len(checks))
				for _, s := range statuses {
					detail := s.Path
					if !s.Available {
						detail = s.Detail
					}
					rows = append(rows, []string{s.Name, dependencyState(s), detail})
				}
				for _, check := range checks {
					state := "ok"
					if !check.Passed {
						state = "FAIL"
					}
					rows = append(rows, []string{check.Name, state, check.Detail})
				}
				fmt.Fprint(out, tableSpec{
					Headers: []string{"Check", "State", "Detail"},
					Rows:    rows,
				}.render())
			}
			if failed > 0 {
				return errors.New("doctor found problems")
			}
			return nil
		},
	}
}

func dependencyState(s deps.Status) string {
	switch {
	case s.Available:
		return "ok"
	case s.Optional:
		return "missing (optional)"
	default:
		return "FAIL"
	}
}
