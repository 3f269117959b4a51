package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"stitch/internal/command"
	"stitch/internal/fileset"
	"stitch/internal/media"
	"stitch/internal/picker"
)

// targetFlags are shared by commands that resolve an output path.
type targetFlags struct {
	name      string
	outputDir string
	shell     string
	add       []string
	exclude   []string
}

func (f *targetFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.name, "name", "n", "", "Output file name (defaults to the first segment's name)")
	cmd.Flags().StringVarP(&f.outputDir, "output-dir", "o", "", "Output directory (defaults to the recording folder)")
	cmd.Flags().StringVar(&f.shell, "shell", "", "Run the merge tool through this login shell (overrides merge.login_shell)")
	cmd.Flags().StringSliceVar(&f.add, "add", nil, "Extra segment files to append, in order")
	cmd.Flags().StringSliceVar(&f.exclude, "exclude", nil, "Segment files to leave out")
}

// resolveFolder returns the folder argument, or asks for one when stdin is a
// terminal.
func (c *commandContext) resolveFolder(cmd *cobra.Command, args []string) (string, error) {
	if len(args) > 0 && strings.TrimSpace(args[0]) != "" {
		return args[0], nil
	}
	wd, _ := os.Getwd()
	folder, err := c.terminal().ChooseFolder(cmd.Context(), wd)
	if errors.Is(err, picker.ErrNotInteractive) {
		return "", errors.New("folder argument required when not running in a terminal")
	}
	return folder, err
}

// loadFileSet loads folder, applies --add/--exclude and the output target
// flags, and returns the ready set. An unreadable folder yields an empty set;
// Load has already logged why.
func (c *commandContext) loadFileSet(folder string, flags *targetFlags) (*fileset.Manager, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	mgr := fileset.NewManager(cfg.Merge.Extension,
		fileset.WithLogger(c.log()),
		fileset.WithDefaultOutputName(cfg.Merge.DefaultOutputName),
	)
	if err := mgr.Load(folder); err != nil {
		var discoveryErr *fileset.DiscoveryError
		if !errors.As(err, &discoveryErr) {
			return nil, err
		}
	}
	for _, path := range flags.add {
		added, err := mgr.Insert(path)
		if err != nil {
			return nil, fmt.Errorf("add %s: %w", path, err)
		}
		if !added {
			c.log().Debug("segment already present", "path", path)
		}
	}
	for _, path := range flags.exclude {
		removed, err := mgr.RemovePath(path)
		if err != nil {
			return nil, fmt.Errorf("exclude %s: %w", path, err)
		}
		if !removed {
			return nil, fmt.Errorf("exclude %s: not in the segment list", path)
		}
	}
	if dir := strings.TrimSpace(flags.outputDir); dir != "" {
		abs, err := media.NormalizePath(dir)
		if err != nil {
			return nil, fmt.Errorf("resolve output dir: %w", err)
		}
		mgr.SetOutputDir(abs)
	}
	if name := strings.TrimSpace(flags.name); name != "" {
		mgr.SetOutputName(ensureExtension(name, cfg.Merge.Extension))
	}
	return mgr, nil
}

func (c *commandContext) loginShell(flags *targetFlags) string {
	if shell := strings.TrimSpace(flags.shell); shell != "" {
		return shell
	}
	if c.config == nil {
		return ""
	}
	return c.config.Merge.LoginShell
}

// invocationFor builds the tool command for the set as it stands.
func (c *commandContext) invocationFor(mgr *fileset.Manager, flags *targetFlags) (command.Invocation, string, error) {
	output, err := mgr.OutputPath()
	if err != nil {
		return command.Invocation{}, "", err
	}
	inv, err := command.Build(c.config.Merge.Binary, mgr.Paths(), output)
	if err != nil {
		return command.Invocation{}, output, err
	}
	return inv.ViaShell(c.loginShell(flags)), output, nil
}

func ensureExtension(name, ext string) string {
	if media.MatchesExtension(name, ext) {
		return name
	}
	return name + ext
}

func formatSize(size int64, known bool) string {
	if !known {
		return "unknown"
	}
	if size < 0 {
		size = 0
	}
	return humanize.IBytes(uint64(size))
}
