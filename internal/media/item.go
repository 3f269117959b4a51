package media

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/text/unicode/norm"
)

// DefaultExtension is the container format yamdi accepts.
const DefaultExtension = ".flv"

// captureLayout matches the YYYYMMDD-HHMMSS stamp recorders put in file names.
const captureLayout = "20060102-150405"

var captureStamp = regexp.MustCompile(`(\d{8}-\d{6})`)

// UnknownCapture marks items whose capture time could not be derived. It is the
// zero time so such items sort before every dated item.
var UnknownCapture = time.Time{}

// Item is a single input segment.
type Item struct {
	Path       string    `json:"path"`
	Name       string    `json:"name"`
	Size       int64     `json:"size"`
	SizeKnown  bool      `json:"size_known"`
	CapturedAt time.Time `json:"captured_at"`
}

// NewItem builds an Item for path. A stat failure leaves the size unknown
// rather than failing; the path itself must be resolvable.
func NewItem(path string) (Item, error) {
	normalized, err := NormalizePath(path)
	if err != nil {
		return Item{}, err
	}
	item := Item{
		Path:       normalized,
		Name:       filepath.Base(normalized),
		CapturedAt: ParseCapturedAt(filepath.Base(normalized)),
	}
	if info, statErr := os.Stat(normalized); statErr == nil && !info.IsDir() {
		item.Size = info.Size()
		item.SizeKnown = true
	}
	return item, nil
}

// HasCapture reports whether a timestamp was parsed from the file name.
func (i Item) HasCapture() bool {
	return !i.CapturedAt.Equal(UnknownCapture)
}

// SizeLabel renders the size for display, or "unknown".
func (i Item) SizeLabel() string {
	if !i.SizeKnown {
		return "unknown"
	}
	return humanize.IBytes(uint64(i.Size))
}

// ParseCapturedAt extracts the first YYYYMMDD-HHMMSS stamp from name in local
// time. Names without a valid stamp return UnknownCapture.
func ParseCapturedAt(name string) time.Time {
	match := captureStamp.FindString(name)
	if match == "" {
		return UnknownCapture
	}
	ts, err := time.ParseInLocation(captureLayout, match, time.Local)
	if err != nil {
		return UnknownCapture
	}
	return ts
}

// NormalizePath returns the absolute, cleaned form of path. The name bytes are
// kept as given so the result still opens on filesystems that store names
// verbatim; compare paths with SameFile.
func NormalizePath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("media path is empty")
	}
	abs, err := filepath.Abs(trimmed)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", trimmed, err)
	}
	return filepath.Clean(abs), nil
}

// IdentityKey is the NFC form of path. Names copied from macOS arrive
// decomposed, so two spellings of one name share a key.
func IdentityKey(path string) string {
	return norm.NFC.String(path)
}

// SameFile reports whether a and b name the same segment once Unicode
// composition is ignored.
func SameFile(a, b string) bool {
	return a == b || IdentityKey(a) == IdentityKey(b)
}

// MatchesExtension reports whether name carries ext, ignoring case. ext may be
// given with or without the leading dot.
func MatchesExtension(name, ext string) bool {
	ext = NormalizeExtension(ext)
	if ext == "" {
		return false
	}
	return strings.EqualFold(filepath.Ext(name), ext)
}

// NormalizeExtension lowercases ext and ensures a leading dot.
func NormalizeExtension(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext == "" {
		return ""
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

// TotalSize sums the known sizes of items.
func TotalSize(items []Item) int64 {
	var total int64
	for _, item := range items {
		if item.SizeKnown {
			total += item.Size
		}
	}
	return total
}
