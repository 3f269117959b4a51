package media

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestParseCapturedAt(t *testing.T) {
	tests := []struct {
		name string
		want time.Time
	}{
		{"20230101-090000.flv", time.Date(2023, 1, 1, 9, 0, 0, 0, time.Local)},
		{"live_20231231-235959_part2.flv", time.Date(2023, 12, 31, 23, 59, 59, 0, time.Local)},
		{"recording.flv", UnknownCapture},
		{"20231399-000000.flv", UnknownCapture},
		{"2023101-090000.flv", UnknownCapture},
	}
	for _, tc := range tests {
		got := ParseCapturedAt(tc.name)
		if !got.Equal(tc.want) {
			t.Errorf("ParseCapturedAt(%q) = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestNewItemReadsSize(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "20230101-080000.flv")
	if err := os.WriteFile(path, make([]byte, 2048), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	item, err := NewItem(path)
	if err != nil {
		t.Fatalf("NewItem: %v", err)
	}
	if item.Name != "20230101-080000.flv" {
		t.Fatalf("unexpected name %q", item.Name)
	}
	if !item.SizeKnown || item.Size != 2048 {
		t.Fatalf("expected known size 2048, got %d (known=%v)", item.Size, item.SizeKnown)
	}
	if !item.HasCapture() {
		t.Fatal("expected capture timestamp")
	}
	if item.SizeLabel() != "2.0 KiB" {
		t.Fatalf("unexpected size label %q", item.SizeLabel())
	}
}

func TestNewItemMissingFileHasUnknownSize(t *testing.T) {
	item, err := NewItem(filepath.Join(t.TempDir(), "missing.flv"))
	if err != nil {
		t.Fatalf("NewItem: %v", err)
	}
	if item.SizeKnown {
		t.Fatal("expected unknown size for missing file")
	}
	if item.SizeLabel() != "unknown" {
		t.Fatalf("unexpected size label %q", item.SizeLabel())
	}
	if item.HasCapture() {
		t.Fatal("expected no capture timestamp")
	}
}

func TestNormalizePathKeepsDecomposedNames(t *testing.T) {
	dir := t.TempDir()
	decomposed := filepath.Join(dir, "cafe\u0301-20230101-090000.flv")
	if err := os.WriteFile(decomposed, make([]byte, 100), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	got, err := NormalizePath(decomposed)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if _, err := os.Stat(got); err != nil {
		t.Fatalf("normalized path must still exist on disk: %v", err)
	}

	item, err := NewItem(decomposed)
	if err != nil {
		t.Fatalf("NewItem: %v", err)
	}
	if !item.SizeKnown || item.Size != 100 {
		t.Fatalf("size = %d known=%v", item.Size, item.SizeKnown)
	}
	if !item.HasCapture() {
		t.Fatal("expected capture time from a decomposed name")
	}
}

func TestSameFileIgnoresComposition(t *testing.T) {
	decomposed := "/rec/cafe\u0301.flv"
	composed := "/rec/caf\u00e9.flv"
	if decomposed == composed {
		t.Fatal("test inputs must differ byte-wise")
	}
	if !SameFile(decomposed, composed) {
		t.Fatal("expected composed and decomposed spellings to match")
	}
	if SameFile("/rec/a.flv", "/rec/b.flv") {
		t.Fatal("different names must not match")
	}
}

func TestMatchesExtension(t *testing.T) {
	if !MatchesExtension("a.FLV", "flv") {
		t.Fatal("expected case-insensitive match")
	}
	if MatchesExtension("a.mp4", ".flv") {
		t.Fatal("unexpected match")
	}
	if MatchesExtension("a.flv", "") {
		t.Fatal("empty extension must not match")
	}
}

func TestTotalSizeSkipsUnknown(t *testing.T) {
	items := []Item{
		{Size: 10, SizeKnown: true},
		{Size: 99, SizeKnown: false},
		{Size: 5, SizeKnown: true},
	}
	if got := TotalSize(items); got != 15 {
		t.Fatalf("TotalSize = %d, want 15", got)
	}
}
