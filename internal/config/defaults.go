package config

import (
	"path/filepath"

	"github.com/adrg/xdg"
)

const (
	appName                   = "stitch"
	defaultBinary             = "yamdi"
	defaultExtension          = ".flv"
	defaultOutputName         = "output.flv"
	defaultStderrTailBytes    = 4096
	defaultRetentionDirName   = ".UselessVideos"
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
	defaultLogRetentionDays   = 30
	defaultNotifyTimeout      = 10
	defaultDesktopNotifyOnOff = true
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			LogDir:   filepath.Join(xdg.StateHome, appName, "logs"),
			StateDir: filepath.Join(xdg.StateHome, appName),
		},
		Merge: Merge{
			Binary:            defaultBinary,
			Extension:         defaultExtension,
			DefaultOutputName: defaultOutputName,
			StderrTailBytes:   defaultStderrTailBytes,
		},
		Retention: Retention{
			DefaultDir: DefaultRetentionDir(),
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
			Desktop:        defaultDesktopNotifyOnOff,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}

// DefaultRetentionDir is the hidden folder under the user's Documents
// directory that receives merged sources.
func DefaultRetentionDir() string {
	docs := xdg.UserDirs.Documents
	if docs == "" {
		docs = filepath.Join(xdg.Home, "Documents")
	}
	return filepath.Join(docs, defaultRetentionDirName)
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() string {
	return filepath.Join(xdg.ConfigHome, appName, "config.toml")
}
