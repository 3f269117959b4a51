package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/adrg/xdg"
	"github.com/pelletier/go-toml/v2"

	"stitch/internal/config"
)

func isolateXDG(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, ".config"))
	t.Setenv("XDG_STATE_HOME", filepath.Join(home, ".local", "state"))
	t.Setenv("XDG_DOCUMENTS_DIR", filepath.Join(home, "Documents"))
	t.Setenv("STITCH_NTFY_TOPIC", "")
	xdg.Reload()
	t.Cleanup(xdg.Reload)
	t.Chdir(home)
	return home
}

func TestLoadDefaultsWithoutFile(t *testing.T) {
	home := isolateXDG(t)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if exists {
		t.Fatal("expected config file to be absent")
	}
	if want := filepath.Join(home, ".config", "stitch", "config.toml"); resolved != want {
		t.Fatalf("resolved = %q, want %q", resolved, want)
	}
	if cfg.Merge.Binary != "yamdi" || cfg.Merge.Extension != ".flv" || cfg.Merge.DefaultOutputName != "output.flv" {
		t.Fatalf("unexpected merge defaults: %+v", cfg.Merge)
	}
	if want := filepath.Join(home, "Documents", ".UselessVideos"); cfg.Retention.DefaultDir != want {
		t.Fatalf("retention dir = %q, want %q", cfg.Retention.DefaultDir, want)
	}
	if want := filepath.Join(home, ".local", "state", "stitch"); cfg.Paths.StateDir != want {
		t.Fatalf("state dir = %q, want %q", cfg.Paths.StateDir, want)
	}
	if cfg.PrefsPath() != filepath.Join(cfg.Paths.StateDir, "prefs.toml") {
		t.Fatalf("unexpected prefs path %q", cfg.PrefsPath())
	}
	if cfg.LogPath() != filepath.Join(cfg.Paths.LogDir, "stitch.log") {
		t.Fatalf("unexpected log path %q", cfg.LogPath())
	}
}

func TestLoadExplicitFileNormalizes(t *testing.T) {
	home := isolateXDG(t)
	path := filepath.Join(home, "custom.toml")
	content := `
[paths]
log_dir = "~/logs"

[merge]
extension = "FLV"
login_shell = " /bin/zsh "

[logging]
format = "JSON"
level = "Debug"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("expected explicit path to resolve, got %q exists=%v", resolved, exists)
	}
	if cfg.Paths.LogDir != filepath.Join(home, "logs") {
		t.Fatalf("log dir not expanded: %q", cfg.Paths.LogDir)
	}
	if cfg.Merge.Extension != ".flv" {
		t.Fatalf("extension = %q", cfg.Merge.Extension)
	}
	if cfg.Merge.LoginShell != "/bin/zsh" {
		t.Fatalf("login shell = %q", cfg.Merge.LoginShell)
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "debug" {
		t.Fatalf("unexpected logging: %+v", cfg.Logging)
	}
}

func TestLoadUsesEnvNtfyTopic(t *testing.T) {
	isolateXDG(t)
	t.Setenv("STITCH_NTFY_TOPIC", "https://ntfy.example/stitch")

	cfg, _, _, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Notifications.NtfyTopic != "https://ntfy.example/stitch" {
		t.Fatalf("ntfy topic = %q", cfg.Notifications.NtfyTopic)
	}
}

func TestLoadFindsProjectFile(t *testing.T) {
	home := isolateXDG(t)
	if err := os.WriteFile(filepath.Join(home, "stitch.toml"), []byte("[merge]\nbinary = \"yamdi-custom\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || filepath.Base(resolved) != "stitch.toml" {
		t.Fatalf("expected project file, got %q exists=%v", resolved, exists)
	}
	if cfg.Merge.Binary != "yamdi-custom" {
		t.Fatalf("binary = %q", cfg.Merge.Binary)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	isolateXDG(t)
	tests := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr string
	}{
		{"path output name", func(c *config.Config) { c.Merge.DefaultOutputName = "dir/out.flv" }, "merge.default_output_name"},
		{"wrong output extension", func(c *config.Config) { c.Merge.DefaultOutputName = "out.mp4" }, "merge.default_output_name"},
		{"bad format", func(c *config.Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"bad level", func(c *config.Config) { c.Logging.Level = "trace" }, "logging.level"},
		{"zero timeout", func(c *config.Config) { c.Notifications.RequestTimeout = 0 }, "notifications.request_timeout"},
		{"negative retention", func(c *config.Config) { c.Logging.RetentionDays = -1 }, "logging.retention_days"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error mentioning %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	home := isolateXDG(t)
	path := filepath.Join(home, "bad.toml")
	if err := os.WriteFile(path, []byte("[merge]\nbinarry = \"yamdi\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, _, err := config.Load(path); err == nil {
		t.Fatal("expected unknown key to fail")
	}
}

func TestCreateSampleRoundTrips(t *testing.T) {
	home := isolateXDG(t)
	path := filepath.Join(home, "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	var parsed config.Config
	if err := toml.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("sample is not valid TOML: %v", err)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil || !exists {
		t.Fatalf("Load(sample) exists=%v err=%v", exists, err)
	}
	if cfg.Merge.Binary != "yamdi" {
		t.Fatalf("unexpected binary %q", cfg.Merge.Binary)
	}
}
