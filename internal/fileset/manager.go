package fileset

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"stitch/internal/logging"
	"stitch/internal/media"
)

// Manager owns the ordered segment list for one folder.
type Manager struct {
	mu         sync.Mutex
	extension  string
	folder     string
	items      []media.Item
	predicted  int64
	mergedSize int64
	mergedSet  bool
	locked     bool
	target     Target
	logger     *slog.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logging.NewComponentLogger(logger, "fileset")
	}
}

// WithDefaultOutputName overrides the fallback output file name.
func WithDefaultOutputName(name string) Option {
	return func(m *Manager) {
		if name = strings.TrimSpace(name); name != "" {
			m.target.DefaultName = name
		}
	}
}

// NewManager returns an empty set accepting files with ext.
func NewManager(ext string, opts ...Option) *Manager {
	ext = media.NormalizeExtension(ext)
	if ext == "" {
		ext = media.DefaultExtension
	}
	m := &Manager{
		extension: ext,
		target:    Target{DefaultName: DefaultOutputName},
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Extension returns the accepted file extension including the leading dot.
func (m *Manager) Extension() string {
	return m.extension
}

// Load replaces the set with the matching files directly inside folder,
// ordered by capture time. When the folder cannot be listed the set is left
// empty and a *DiscoveryError is returned.
func (m *Manager) Load(folder string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.locked {
		return ErrLocked
	}

	m.items = nil
	m.predicted = 0
	m.mergedSize = 0
	m.mergedSet = false

	abs, err := media.NormalizePath(folder)
	if err != nil {
		m.folder = ""
		return &DiscoveryError{Folder: folder, Err: err}
	}
	m.folder = abs

	entries, err := os.ReadDir(abs)
	if err != nil {
		logging.WarnWithContext(m.logger, "folder scan failed; file set is empty", "fileset_discovery_failed",
			logging.String("folder", abs),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check that the folder exists and is readable"),
			logging.String(logging.FieldImpact, "no segments available to merge"),
		)
		return &DiscoveryError{Folder: abs, Err: err}
	}

	items := make([]media.Item, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}
		if !media.MatchesExtension(name, m.extension) {
			continue
		}
		item, err := media.NewItem(filepath.Join(abs, name))
		if err != nil {
			m.logger.Debug("skipping unreadable entry", logging.String("name", name), logging.Error(err))
			continue
		}
		items = append(items, item)
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].CapturedAt.Before(items[j].CapturedAt)
	})

	m.items = items
	m.recomputeLocked()

	m.target.Dir.suggest(abs)
	if len(items) > 0 {
		m.target.Name.suggest(items[0].Name)
	}

	m.logger.Info("folder loaded",
		logging.String("folder", abs),
		logging.Int("segments", len(items)),
		logging.Int64("predicted_bytes", m.predicted),
		logging.String(logging.FieldEventType, "fileset_loaded"),
	)
	return nil
}

// Insert appends path to the set. Paths already present are ignored and
// reported as false; files of the wrong type return ErrUnsupportedExtension.
func (m *Manager) Insert(path string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.locked {
		return false, ErrLocked
	}
	if !media.MatchesExtension(path, m.extension) {
		return false, fmt.Errorf("%w: %s (expected %s)", ErrUnsupportedExtension, filepath.Base(path), m.extension)
	}
	item, err := media.NewItem(path)
	if err != nil {
		return false, err
	}
	if m.indexLocked(item.Path) >= 0 {
		return false, nil
	}
	m.items = append(m.items, item)
	m.recomputeLocked()
	return true, nil
}

// Remove drops the item at index.
func (m *Manager) Remove(index int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.removeLocked(index)
}

// RemovePath drops the item with the given path, reporting whether it existed.
func (m *Manager) RemovePath(path string) (bool, error) {
	normalized, err := media.NormalizePath(path)
	if err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	idx := m.indexLocked(normalized)
	if idx < 0 {
		return false, nil
	}
	if err := m.removeLocked(idx); err != nil {
		return false, err
	}
	return true, nil
}

// Reorder moves the item at from so that it ends up at position to.
func (m *Manager) Reorder(from, to int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.locked {
		return ErrLocked
	}
	n := len(m.items)
	if from < 0 || from >= n || to < 0 || to >= n {
		return fmt.Errorf("reorder %d to %d: %w", from, to, ErrIndexOutOfRange)
	}
	if from == to {
		return nil
	}
	item := m.items[from]
	m.items = append(m.items[:from], m.items[from+1:]...)
	m.items = append(m.items[:to], append([]media.Item{item}, m.items[to:]...)...)
	return nil
}

// Items returns a copy of the ordered items.
func (m *Manager) Items() []media.Item {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]media.Item, len(m.items))
	copy(out, m.items)
	return out
}

// Paths returns the ordered item paths.
func (m *Manager) Paths() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.items))
	for i, item := range m.items {
		out[i] = item.Path
	}
	return out
}

// Len returns the number of items.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

// PredictedSize returns the sum of known item sizes.
func (m *Manager) PredictedSize() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.predicted
}

// Folder returns the last loaded folder.
func (m *Manager) Folder() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.folder
}

// Target returns the current output target.
func (m *Manager) Target() Target {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.target
}

// SetOutputDir records a user-chosen output directory.
func (m *Manager) SetOutputDir(dir string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.target.Dir.set(strings.TrimSpace(dir))
}

// SetOutputName records a user-chosen output file name.
func (m *Manager) SetOutputName(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.target.Name.set(strings.TrimSpace(name))
}

// OutputPath resolves the current output target.
func (m *Manager) OutputPath() (string, error) {
	return m.Target().Resolve()
}

// SetMergedSize records the size of the last merged output.
func (m *Manager) SetMergedSize(size int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mergedSize = size
	m.mergedSet = true
}

// MergedSize returns the last merged output size, if one was captured.
func (m *Manager) MergedSize() (int64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mergedSize, m.mergedSet
}

// Lock rejects further mutations until Unlock.
func (m *Manager) Lock() {
	m.mu.Lock()
	m.locked = true
	m.mu.Unlock()
}

// Unlock re-enables mutations.
func (m *Manager) Unlock() {
	m.mu.Lock()
	m.locked = false
	m.mu.Unlock()
}

func (m *Manager) removeLocked(index int) error {
	if m.locked {
		return ErrLocked
	}
	if index < 0 || index >= len(m.items) {
		return fmt.Errorf("remove %d: %w", index, ErrIndexOutOfRange)
	}
	m.items = append(m.items[:index], m.items[index+1:]...)
	m.recomputeLocked()
	return nil
}

func (m *Manager) indexLocked(path string) int {
	for i, item := range m.items {
		if media.SameFile(item.Path, path) {
			return i
		}
	}
	return -1
}

func (m *Manager) recomputeLocked() {
	m.predicted = media.TotalSize(m.items)
}
