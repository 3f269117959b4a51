package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/adrg/xdg"
	"github.com/pelletier/go-toml/v2"

	"stitch/internal/config"
	"stitch/internal/picker"
	"stitch/internal/testsupport"
)

const mergeStubScript = `out=""
while [ $# -gt 0 ]; do
  if [ "$1" = "-o" ]; then out="$2"; fi
  shift
done
printf 'FLV-merged' > "$out"`

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	baseDir    string
	recordings string
	picker     *fakePicker
}

// fakePicker behaves like a terminal that is not interactive unless folder
// is set.
type fakePicker struct {
	folder  string
	confirm *bool
}

func (p *fakePicker) ChooseFolder(context.Context, string) (string, error) {
	if p.folder == "" {
		return "", picker.ErrNotInteractive
	}
	return p.folder, nil
}

func (p *fakePicker) ChooseFile(context.Context, string, string) (string, error) {
	return "", picker.ErrNotInteractive
}

func (p *fakePicker) Confirm(context.Context, string, string) (bool, error) {
	if p.confirm == nil {
		return false, picker.ErrNotInteractive
	}
	return *p.confirm, nil
}

func setupCLITestEnv(t *testing.T, opts ...testsupport.ConfigOption) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(homeDir, ".config"))
	t.Setenv("XDG_STATE_HOME", filepath.Join(homeDir, ".local", "state"))
	t.Setenv("STITCH_NTFY_TOPIC", "")
	xdg.Reload()
	t.Cleanup(xdg.Reload)

	cfg := testsupport.NewConfig(t, opts...)
	cfg.Merge.Binary = testsupport.StubBinary(t, filepath.Join(base, "bin"), "yamdi", mergeStubScript)

	configPath := filepath.Join(homeDir, ".config", "stitch", "config.toml")
	writeTestConfig(t, configPath, cfg)

	recordings := filepath.Join(base, "recordings")
	if err := os.MkdirAll(recordings, 0o755); err != nil {
		t.Fatalf("mkdir recordings: %v", err)
	}

	return &cliTestEnv{
		cfg:        cfg,
		configPath: configPath,
		baseDir:    base,
		recordings: recordings,
		picker:     &fakePicker{},
	}
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir config dir: %v", err)
	}
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

// segment writes a recording segment of size bytes and returns its path.
func (e *cliTestEnv) segment(t *testing.T, name string, size int64) string {
	t.Helper()
	path := filepath.Join(e.recordings, name)
	testsupport.WriteFile(t, path, size)
	return path
}

func runCLI(t *testing.T, env *cliTestEnv, args ...string) (string, string, error) {
	t.Helper()
	cctx := newCommandContext()
	cctx.picker = env.picker
	cmd := newRootCommand(cctx)
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--config", env.configPath}, args...))
	err := cmd.ExecuteContext(context.Background())
	cctx.close(context.Background())
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, text, substr string) {
	t.Helper()
	if !strings.Contains(text, substr) {
		t.Fatalf("expected %q in output:\n%s", substr, text)
	}
}

// sparseFile creates a file that reports size bytes without using the disk.
func sparseFile(t *testing.T, path string, size int64) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer f.Close()
	if err := f.Truncate(size); err != nil {
		t.Fatalf("truncate: %v", err)
	}
}
