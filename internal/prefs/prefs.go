// Package prefs persists the user-facing preferences stitch reads at merge
// time and at shutdown: whether merged sources move to the retention folder,
// where that folder lives, and the size that triggers clearing it.
//
// The file is small TOML rewritten atomically under an advisory file lock, so
// concurrent stitch processes never observe a torn write.
package prefs

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/gofrs/flock"
	"github.com/pelletier/go-toml/v2"

	"stitch/internal/config"
	"stitch/internal/fileutil"
)

const (
	// MinThresholdGB and MaxThresholdGB bound the retention threshold.
	MinThresholdGB = 8
	MaxThresholdGB = 1000
	// DefaultThresholdGB applies when no threshold has been saved.
	DefaultThresholdGB = 10

	bytesPerGB int64 = 1 << 30
)

// Preference keys accepted by Set.
const (
	KeyDeleteSources = "delete_sources_after_merge"
	KeyRetentionDir  = "retention_dir"
	KeyThresholdGB   = "retention_threshold_gb"
)

// ErrUnknownKey is returned by Set for keys outside Keys().
var ErrUnknownKey = errors.New("unknown preference")

// Snapshot is a point-in-time copy of the preferences.
type Snapshot struct {
	DeleteSourcesAfterMerge bool   `toml:"delete_sources_after_merge" json:"delete_sources_after_merge"`
	RetentionDir            string `toml:"retention_dir" json:"retention_dir"`
	RetentionThresholdGB    int    `toml:"retention_threshold_gb" json:"retention_threshold_gb"`
}

// ThresholdBytes converts the threshold to bytes.
func (s Snapshot) ThresholdBytes() int64 {
	return int64(s.RetentionThresholdGB) * bytesPerGB
}

// Store reads and writes the preference file.
type Store struct {
	mu         sync.Mutex
	path       string
	defaultDir string
	lock       *flock.Flock
}

// Open returns a store backed by path. defaultDir is the retention folder used
// until one is saved. The file is created lazily on first write.
func Open(path, defaultDir string) *Store {
	return &Store{
		path:       path,
		defaultDir: defaultDir,
		lock:       flock.New(path + ".lock"),
	}
}

// Path returns the preference file location.
func (s *Store) Path() string {
	return s.path
}

// Defaults returns the preferences used when nothing has been saved.
func (s *Store) Defaults() Snapshot {
	return Snapshot{
		DeleteSourcesAfterMerge: false,
		RetentionDir:            s.defaultDir,
		RetentionThresholdGB:    DefaultThresholdGB,
	}
}

// Snapshot reads the current preferences. A missing file yields Defaults.
func (s *Store) Snapshot() (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLockDir(); err != nil {
		return Snapshot{}, err
	}
	if err := s.lock.RLock(); err != nil {
		return Snapshot{}, fmt.Errorf("lock preferences: %w", err)
	}
	defer func() { _ = s.lock.Unlock() }()
	return s.readLocked()
}

// Update applies fn to the current preferences and persists the result.
func (s *Store) Update(fn func(*Snapshot) error) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLockDir(); err != nil {
		return Snapshot{}, err
	}
	if err := s.lock.Lock(); err != nil {
		return Snapshot{}, fmt.Errorf("lock preferences: %w", err)
	}
	defer func() { _ = s.lock.Unlock() }()

	snap, err := s.readLocked()
	if err != nil {
		return Snapshot{}, err
	}
	if err := fn(&snap); err != nil {
		return Snapshot{}, err
	}
	if err := validate(snap); err != nil {
		return Snapshot{}, err
	}
	data, err := toml.Marshal(snap)
	if err != nil {
		return Snapshot{}, fmt.Errorf("encode preferences: %w", err)
	}
	if err := fileutil.WriteFileAtomic(s.path, data, 0o644); err != nil {
		return Snapshot{}, fmt.Errorf("write preferences: %w", err)
	}
	return snap, nil
}

// SetDeleteSourcesAfterMerge toggles moving sources into retention after a
// successful merge.
func (s *Store) SetDeleteSourcesAfterMerge(enabled bool) error {
	_, err := s.Update(func(snap *Snapshot) error {
		snap.DeleteSourcesAfterMerge = enabled
		return nil
	})
	return err
}

// SetRetentionDir changes the retention folder.
func (s *Store) SetRetentionDir(dir string) error {
	expanded, err := config.ExpandPath(strings.TrimSpace(dir))
	if err != nil {
		return err
	}
	_, err = s.Update(func(snap *Snapshot) error {
		snap.RetentionDir = expanded
		return nil
	})
	return err
}

// SetRetentionThresholdGB changes the size that triggers clearing retention.
func (s *Store) SetRetentionThresholdGB(gb int) error {
	_, err := s.Update(func(snap *Snapshot) error {
		snap.RetentionThresholdGB = gb
		return nil
	})
	return err
}

// Set parses value for key and persists it.
func (s *Store) Set(key, value string) error {
	value = strings.TrimSpace(value)
	switch strings.TrimSpace(key) {
	case KeyDeleteSources:
		enabled, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%s: expected true or false, got %q", KeyDeleteSources, value)
		}
		return s.SetDeleteSourcesAfterMerge(enabled)
	case KeyRetentionDir:
		if value == "" {
			return fmt.Errorf("%s must not be empty", KeyRetentionDir)
		}
		return s.SetRetentionDir(value)
	case KeyThresholdGB:
		gb, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%s: expected a whole number of GB, got %q", KeyThresholdGB, value)
		}
		return s.SetRetentionThresholdGB(gb)
	default:
		return fmt.Errorf("%w %q (known: %s)", ErrUnknownKey, key, strings.Join(Keys(), ", "))
	}
}

// Keys lists the preference names accepted by Set.
func Keys() []string {
	keys := []string{KeyDeleteSources, KeyRetentionDir, KeyThresholdGB}
	sort.Strings(keys)
	return keys
}

func (s *Store) readLocked() (Snapshot, error) {
	snap := s.Defaults()
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return snap, nil
		}
		return Snapshot{}, fmt.Errorf("read preferences: %w", err)
	}
	if err := toml.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("parse preferences %s: %w", s.path, err)
	}
	if strings.TrimSpace(snap.RetentionDir) == "" {
		snap.RetentionDir = s.defaultDir
	}
	snap.RetentionThresholdGB = clampThreshold(snap.RetentionThresholdGB)
	return snap, nil
}

func (s *Store) ensureLockDir() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create preferences directory: %w", err)
	}
	return nil
}

func validate(snap Snapshot) error {
	if snap.RetentionThresholdGB < MinThresholdGB || snap.RetentionThresholdGB > MaxThresholdGB {
		return fmt.Errorf("%s must be between %d and %d, got %d", KeyThresholdGB, MinThresholdGB, MaxThresholdGB, snap.RetentionThresholdGB)
	}
	return nil
}

// clampThreshold keeps hand-edited files inside the supported range.
func clampThreshold(gb int) int {
	switch {
	case gb == 0:
		return DefaultThresholdGB
	case gb < MinThresholdGB:
		return MinThresholdGB
	case gb > MaxThresholdGB:
		return MaxThresholdGB
	}
	return gb
}
