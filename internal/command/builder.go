// Package command renders the yamdi invocation for an ordered list of
// segments. Build is pure: the same inputs always produce the same Invocation,
// and the rendered preview is exactly what gets executed.
package command

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/kballard/go-shellquote"
)

// DefaultProgram is the concatenation tool stitch drives.
const DefaultProgram = "yamdi"

const (
	inputFlag  = "-i"
	outputFlag = "-o"
)

var (
	// ErrNoInputs rejects an empty input list.
	ErrNoInputs = errors.New("at least one input is required")
	// ErrNoOutput rejects an empty output path.
	ErrNoOutput = errors.New("output path is required")
)

// Invocation is a program plus its argument vector.
type Invocation struct {
	Program string
	Args    []string
}

// Build returns the invocation that concatenates inputs, in order, into
// output. Paths must be absolute. An empty program selects yamdi.
func Build(program string, inputs []string, output string) (Invocation, error) {
	program = strings.TrimSpace(program)
	if program == "" {
		program = DefaultProgram
	}
	if len(inputs) == 0 {
		return Invocation{}, ErrNoInputs
	}
	if strings.TrimSpace(output) == "" {
		return Invocation{}, ErrNoOutput
	}

	args := make([]string, 0, len(inputs)*2+2)
	for _, in := range inputs {
		if !filepath.IsAbs(in) {
			return Invocation{}, fmt.Errorf("input %q must be an absolute path", in)
		}
		args = append(args, inputFlag, in)
	}
	if !filepath.IsAbs(output) {
		return Invocation{}, fmt.Errorf("output %q must be an absolute path", output)
	}
	args = append(args, outputFlag, output)

	return Invocation{Program: program, Args: args}, nil
}

// Argv returns the program followed by its arguments.
func (inv Invocation) Argv() []string {
	argv := make([]string, 0, len(inv.Args)+1)
	argv = append(argv, inv.Program)
	return append(argv, inv.Args...)
}

// String renders the invocation as a POSIX shell command line. Splitting the
// result with shell rules yields Argv exactly.
func (inv Invocation) String() string {
	return shellquote.Join(inv.Argv()...)
}

// ViaShell wraps the rendered command for execution through a login shell, for
// environments where the tool is only on the login PATH. An empty shell
// returns the invocation unchanged.
func (inv Invocation) ViaShell(shell string) Invocation {
	shell = strings.TrimSpace(shell)
	if shell == "" {
		return inv
	}
	return Invocation{Program: shell, Args: []string{"-lc", inv.String()}}
}

// Inputs returns the input paths in invocation order.
func (inv Invocation) Inputs() []string {
	var out []string
	for i := 0; i+1 < len(inv.Args); i += 2 {
		if inv.Args[i] == inputFlag {
			out = append(out, inv.Args[i+1])
		}
	}
	return out
}

// Output returns the output path, if present.
func (inv Invocation) Output() string {
	for i := 0; i+1 < len(inv.Args); i += 2 {
		if inv.Args[i] == outputFlag {
			return inv.Args[i+1]
		}
	}
	return ""
}
