package merge

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrBusy rejects Start while another merge is running.
	ErrBusy = errors.New("a merge is already running")
	// ErrEmptyInput rejects Start with no segments.
	ErrEmptyInput = errors.New("no segments to merge")
)

// OutputCollisionError rejects an output path that already exists.
type OutputCollisionError struct {
	Path string
}

func (e *OutputCollisionError) Error() string {
	return fmt.Sprintf("output %s already exists; choose another name or folder", e.Path)
}

// SpawnError reports that the tool could not be started.
type SpawnError struct {
	Program string
	Err     error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("could not run %s: %v", e.Program, e.Err)
}

func (e *SpawnError) Unwrap() error { return e.Err }

// ProcessError reports a tool run that ended without success.
type ProcessError struct {
	Program  string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *ProcessError) Error() string {
	var b strings.Builder
	if e.ExitCode >= 0 {
		fmt.Fprintf(&b, "%s exited with status %d", e.Program, e.ExitCode)
	} else {
		fmt.Fprintf(&b, "%s was terminated", e.Program)
		if e.Err != nil {
			fmt.Fprintf(&b, " (%v)", e.Err)
		}
	}
	if line := lastLine(e.Stderr); line != "" {
		b.WriteString(": ")
		b.WriteString(line)
	}
	return b.String()
}

func (e *ProcessError) Unwrap() error { return e.Err }

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	return strings.TrimSpace(s)
}
