package merge

import (
	"time"

	"stitch/internal/command"
	"stitch/internal/retention"
)

// Status is the controller state.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusRunning Status = "running"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Job describes one merge attempt.
type Job struct {
	ID            string
	Folder        string
	Inputs        []string
	Output        string
	Invocation    command.Invocation
	PredictedSize int64
	StartedAt     time.Time
	FinishedAt    time.Time
	Status        Status
	Err           error
	// ExitCode is the tool's exit status, or -1 when it never ran or was
	// killed by a signal.
	ExitCode        int
	OutputSize      int64
	OutputSizeKnown bool
	Cancelled       bool
	Retention       *retention.AdmitResult
}

// Duration is the wall time of a finished job.
func (j *Job) Duration() time.Duration {
	if j == nil || j.FinishedAt.IsZero() {
		return 0
	}
	return j.FinishedAt.Sub(j.StartedAt)
}

func (j *Job) clone() *Job {
	if j == nil {
		return nil
	}
	cp := *j
	cp.Inputs = append([]string(nil), j.Inputs...)
	cp.Invocation.Args = append([]string(nil), j.Invocation.Args...)
	if j.Retention != nil {
		r := *j.Retention
		cp.Retention = &r
	}
	return &cp
}
