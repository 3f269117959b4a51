package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeMerge()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	defaults := Default()
	var err error
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaults.Paths.LogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaults.Paths.StateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Retention.DefaultDir) == "" {
		c.Retention.DefaultDir = defaults.Retention.DefaultDir
	}
	if c.Retention.DefaultDir, err = expandPath(c.Retention.DefaultDir); err != nil {
		return fmt.Errorf("retention.default_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeMerge() {
	c.Merge.Binary = strings.TrimSpace(c.Merge.Binary)
	if c.Merge.Binary == "" {
		c.Merge.Binary = defaultBinary
	}
	ext := strings.ToLower(strings.TrimSpace(c.Merge.Extension))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	if ext == "" {
		ext = defaultExtension
	}
	c.Merge.Extension = ext
	c.Merge.DefaultOutputName = strings.TrimSpace(c.Merge.DefaultOutputName)
	if c.Merge.DefaultOutputName == "" {
		c.Merge.DefaultOutputName = defaultOutputName
	}
	c.Merge.LoginShell = strings.TrimSpace(c.Merge.LoginShell)
	if c.Merge.StderrTailBytes == 0 {
		c.Merge.StderrTailBytes = defaultStderrTailBytes
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.NtfyTopic == "" {
		if value, ok := os.LookupEnv("STITCH_NTFY_TOPIC"); ok {
			c.Notifications.NtfyTopic = strings.TrimSpace(value)
		}
	}
	if c.Notifications.RequestTimeout == 0 {
		c.Notifications.RequestTimeout = defaultNotifyTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
