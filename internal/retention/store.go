package retention

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"stitch/internal/fileutil"
	"stitch/internal/logging"
)

const maxCollisionAttempts = 1000

// Move records one admitted file.
type Move struct {
	Source      string `json:"source"`
	Destination string `json:"destination"`
}

// MoveError reports a file that could not be admitted. The source is left in
// place.
type MoveError struct {
	Path string
	Err  error
}

func (e MoveError) Error() string {
	return fmt.Sprintf("retain %s: %v", e.Path, e.Err)
}

func (e MoveError) Unwrap() error { return e.Err }

// AdmitResult is the outcome of AdmitAll.
type AdmitResult struct {
	Moved  []Move
	Errors []MoveError
}

// RemoveError reports an entry Clear could not delete.
type RemoveError struct {
	Path string
	Err  error
}

func (e RemoveError) Error() string {
	return fmt.Sprintf("remove %s: %v", e.Path, e.Err)
}

func (e RemoveError) Unwrap() error { return e.Err }

// ClearResult is the outcome of Clear.
type ClearResult struct {
	Removed []string
	Errors  []RemoveError
}

// Entry describes one immediate child of the retention folder.
type Entry struct {
	Name    string    `json:"name"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mod_time"`
	IsDir   bool      `json:"is_dir"`
}

// Store is a retention folder rooted at Root.
type Store struct {
	root   string
	logger *slog.Logger
	now    func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logging.NewComponentLogger(logger, "retention")
	}
}

// WithClock overrides the time source used for collision suffixes.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// NewStore returns a store for root. The folder is created on first admit.
func NewStore(root string, opts ...Option) *Store {
	s := &Store{
		root:   strings.TrimSpace(root),
		logger: logging.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Root returns the retention folder path.
func (s *Store) Root() string {
	return s.root
}

// Admit moves src into the retention folder and returns the destination path.
func (s *Store) Admit(src string) (string, error) {
	if s.root == "" {
		return "", errors.New("retention folder is not configured")
	}
	if err := os.MkdirAll(s.root, 0o755); err != nil {
		logging.WarnWithContext(s.logger, "retention folder unavailable; source kept", "retention_mkdir_failed",
			logging.String("root", s.root),
			logging.String("source", src),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check that the retention folder's parent is writable"),
			logging.String(logging.FieldImpact, "merged source stays in its original folder"),
		)
		return "", fmt.Errorf("create retention folder: %w", err)
	}

	base := filepath.Base(src)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	stamp := strconv.FormatInt(s.now().Unix(), 10)

	for attempt := 0; attempt < maxCollisionAttempts; attempt++ {
		dest := filepath.Join(s.root, candidateName(stem, ext, stamp, attempt))
		err := fileutil.MoveFile(src, dest)
		if err == nil {
			s.logger.Debug("source retained",
				logging.String("source", src),
				logging.String("destination", dest),
				logging.String(logging.FieldEventType, "retention_admit"),
			)
			return dest, nil
		}
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		return "", err
	}
	return "", fmt.Errorf("no free name for %s after %d attempts", base, maxCollisionAttempts)
}

// candidateName returns base, then base_<stamp>, then base_<stamp>_<n>.
func candidateName(stem, ext, stamp string, attempt int) string {
	switch attempt {
	case 0:
		return stem + ext
	case 1:
		return stem + "_" + stamp + ext
	default:
		return stem + "_" + stamp + "_" + strconv.Itoa(attempt-1) + ext
	}
}

// AdmitAll admits each source in order, continuing past failures.
func (s *Store) AdmitAll(srcs []string) AdmitResult {
	var result AdmitResult
	for _, src := range srcs {
		dest, err := s.Admit(src)
		if err != nil {
			moveErr := MoveError{Path: src, Err: err}
			result.Errors = append(result.Errors, moveErr)
			logging.WarnWithContext(s.logger, "source could not be retained", "retention_move_failed",
				logging.String("source", src),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "move or delete the file manually"),
				logging.String(logging.FieldImpact, "source remains next to the merged output"),
			)
			continue
		}
		result.Moved = append(result.Moved, Move{Source: src, Destination: dest})
	}
	if len(srcs) > 0 {
		s.logger.Info("sources handed to retention",
			logging.Int("moved", len(result.Moved)),
			logging.Int("failed", len(result.Errors)),
			logging.String("root", s.root),
			logging.String(logging.FieldEventType, "retention_admit_batch"),
		)
	}
	return result
}

// Entries lists the immediate, non-hidden children sorted by name. A missing
// folder has no entries.
func (s *Store) Entries() ([]Entry, error) {
	if s.root == "" {
		return nil, nil
	}
	dirEntries, err := os.ReadDir(s.root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	entries := make([]Entry, 0, len(dirEntries))
	for _, de := range dirEntries {
		if strings.HasPrefix(de.Name(), ".") {
			continue
		}
		entry := Entry{Name: de.Name(), IsDir: de.IsDir()}
		if info, err := de.Info(); err == nil {
			entry.Size = info.Size()
			entry.ModTime = info.ModTime()
		}
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}

// OccupiedBytes sums the sizes of the immediate, non-hidden children.
// Unreadable entries count as zero; subdirectories count their own entry size.
func (s *Store) OccupiedBytes() int64 {
	entries, err := s.Entries()
	if err != nil {
		s.logger.Debug("retention folder unreadable", logging.String("root", s.root), logging.Error(err))
		return 0
	}
	var total int64
	for _, e := range entries {
		total += e.Size
	}
	return total
}

// Clear removes every immediate child of the retention folder, hidden ones
// included, and reports what it removed and what it could not.
func (s *Store) Clear() ClearResult {
	var result ClearResult
	if s.root == "" {
		return result
	}
	dirEntries, err := os.ReadDir(s.root)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			result.Errors = append(result.Errors, RemoveError{Path: s.root, Err: err})
		}
		return result
	}
	for _, de := range dirEntries {
		path := filepath.Join(s.root, de.Name())
		if err := os.RemoveAll(path); err != nil {
			result.Errors = append(result.Errors, RemoveError{Path: path, Err: err})
			logging.WarnWithContext(s.logger, "retention entry could not be removed", "retention_remove_failed",
				logging.String("path", path),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check permissions on the retention folder"),
				logging.String(logging.FieldImpact, "disk space not reclaimed for this entry"),
			)
			continue
		}
		result.Removed = append(result.Removed, path)
	}
	return result
}
