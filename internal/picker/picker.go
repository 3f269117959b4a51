// Package picker asks the user for a folder, a file, or a yes/no answer using
// terminal forms. It refuses to prompt when stdin is not a terminal.
package picker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/mattn/go-isatty"
)

var (
	// ErrCancelled is returned when the user aborts a prompt.
	ErrCancelled = errors.New("selection cancelled")
	// ErrNotInteractive is returned when no terminal is attached.
	ErrNotInteractive = errors.New("interactive selection requires a terminal; pass the path as an argument")
)

// Picker selects paths interactively.
type Picker interface {
	ChooseFolder(ctx context.Context, start string) (string, error)
	ChooseFile(ctx context.Context, start, ext string) (string, error)
	Confirm(ctx context.Context, title, description string) (bool, error)
}

// Terminal is a Picker backed by huh forms.
type Terminal struct {
	interactive func() bool
	run         func(ctx context.Context, field huh.Field) error
}

// NewTerminal returns a picker bound to the process stdin.
func NewTerminal() *Terminal {
	return &Terminal{
		interactive: stdinIsTerminal,
		run:         runField,
	}
}

// Interactive reports whether prompts can be shown.
func (t *Terminal) Interactive() bool {
	return t.interactive()
}

// ChooseFolder asks for a directory, starting at start.
func (t *Terminal) ChooseFolder(ctx context.Context, start string) (string, error) {
	var selected string
	field := huh.NewFilePicker().
		Title("Choose the folder with the recordings").
		Description("Enter opens a folder, s selects it").
		CurrentDirectory(startDir(start)).
		DirAllowed(true).
		FileAllowed(false).
		ShowHidden(false).
		Picking(true).
		Value(&selected)
	if err := t.prompt(ctx, field); err != nil {
		return "", err
	}
	return selected, nil
}

// ChooseFile asks for a single file with extension ext.
func (t *Terminal) ChooseFile(ctx context.Context, start, ext string) (string, error) {
	var selected string
	fp := huh.NewFilePicker().
		Title("Choose a segment to add").
		CurrentDirectory(startDir(start)).
		FileAllowed(true).
		DirAllowed(false).
		ShowHidden(false).
		ShowSize(true).
		Picking(true).
		Value(&selected)
	if ext = strings.TrimSpace(ext); ext != "" {
		fp = fp.AllowedTypes([]string{ext})
	}
	if err := t.prompt(ctx, fp); err != nil {
		return "", err
	}
	return selected, nil
}

// Confirm asks a yes/no question.
func (t *Terminal) Confirm(ctx context.Context, title, description string) (bool, error) {
	var ok bool
	field := huh.NewConfirm().
		Title(title).
		Description(description).
		Affirmative("Yes").
		Negative("No").
		Value(&ok)
	if err := t.prompt(ctx, field); err != nil {
		return false, err
	}
	return ok, nil
}

func (t *Terminal) prompt(ctx context.Context, field huh.Field) error {
	if !t.interactive() {
		return ErrNotInteractive
	}
	if err := t.run(ctx, field); err != nil {
		if errors.Is(err, huh.ErrUserAborted) || errors.Is(err, context.Canceled) {
			return ErrCancelled
		}
		return fmt.Errorf("prompt: %w", err)
	}
	return nil
}

func runField(ctx context.Context, field huh.Field) error {
	return huh.NewForm(huh.NewGroup(field)).RunWithContext(ctx)
}

func stdinIsTerminal() bool {
	fd := os.Stdin.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func startDir(start string) string {
	if strings.TrimSpace(start) != "" {
		return start
	}
	if wd, err := os.Getwd(); err == nil {
		return wd
	}
	return "."
}
