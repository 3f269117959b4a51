package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"stitch/internal/merge"
)

type jobJSON struct {
	ID             string   `json:"id"`
	Status         string   `json:"status"`
	Cancelled      bool     `json:"cancelled"`
	Inputs         []string `json:"inputs"`
	Output         string   `json:"output"`
	Command        string   `json:"command"`
	ExitCode       int      `json:"exit_code"`
	PredictedBytes int64    `json:"predicted_bytes"`
	OutputBytes    *int64   `json:"output_bytes,omitempty"`
	Retained       []string `json:"retained,omitempty"`
	RetainErrors   []string `json:"retain_errors,omitempty"`
	Error          string   `json:"error,omitempty"`
	DurationMS     int64    `json:"duration_ms"`
}

func newJobJSON(job *merge.Job) jobJSON {
	view := jobJSON{
		ID:             job.ID,
		Status:         string(job.Status),
		Cancelled:      job.Cancelled,
		Inputs:         job.Inputs,
		Output:         job.Output,
		Command:        job.Invocation.String(),
		ExitCode:       job.ExitCode,
		PredictedBytes: job.PredictedSize,
		DurationMS:     job.Duration().Milliseconds(),
	}
	if job.OutputSizeKnown {
		size := job.OutputSize
		view.OutputBytes = &size
	}
	if job.Retention != nil {
		for _, moved := range job.Retention.Moved {
			view.Retained = append(view.Retained, moved.Destination)
		}
		for _, failure := range job.Retention.Errors {
			view.RetainErrors = append(view.RetainErrors, failure.Error())
		}
	}
	if job.Err != nil {
		view.Error = job.Err.Error()
	}
	return view
}

// reportJob prints the finished job and turns its outcome into the command
// result: cancelled jobs return context.Canceled so the exit code is nonzero
// without printing an error twice.
func reportJob(cmd *cobra.Command, ctx *commandContext, job *merge.Job) error {
	if ctx.JSONMode() {
		if err := writeJSON(cmd, newJobJSON(job)); err != nil {
			return err
		}
	} else {
		out := cmd.OutOrStdout()
		switch {
		case job.Cancelled:
			fmt.Fprintln(out, "Merge cancelled")
		case job.Status == merge.StatusSuccess:
			fmt.Fprintf(out, "Merged %d segments into %s (%s, %s)\n",
				len(job.Inputs), job.Output, formatSize(job.OutputSize, job.OutputSizeKnown), job.Duration().Round(time.Second))
			if job.Retention != nil {
				fmt.Fprintf(out, "Moved %d segments to the retention folder\n", len(job.Retention.Moved))
				for _, failure := range job.Retention.Errors {
					fmt.Fprintf(out, "  Not moved: %s: %v\n", failure.Path, failure.Err)
				}
			}
		}
	}
	switch {
	case job.Cancelled:
		return context.Canceled
	case job.Err != nil:
		return job.Err
	default:
		return nil
	}
}
