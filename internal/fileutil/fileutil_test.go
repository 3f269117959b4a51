package fileutil

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"golang.org/x/sys/unix"
)

func TestCopyFileVerified(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.bin")
	dst := filepath.Join(dir, "dst.bin")

	content := []byte("verified copy content")
	if err := os.WriteFile(src, content, 0o640); err != nil {
		t.Fatal(err)
	}

	if err := CopyFileVerified(src, dst); err != nil {
		t.Fatal(err)
	}

	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != string(content) {
		t.Fatalf("content mismatch: got %q, want %q", got, content)
	}
}

func TestCopyFileVerifiedRefusesExistingDestination(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.bin")
	dst := filepath.Join(dir, "dst.bin")
	if err := os.WriteFile(src, []byte("new"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(dst, []byte("old"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := CopyFileVerified(src, dst); !errors.Is(err, fs.ErrExist) {
		t.Fatalf("expected ErrExist, got %v", err)
	}
	got, _ := os.ReadFile(dst)
	if string(got) != "old" {
		t.Fatalf("destination overwritten: %q", got)
	}
}

func TestCopyFileVerified_MissingSource(t *testing.T) {
	dir := t.TempDir()
	err := CopyFileVerified(filepath.Join(dir, "nonexistent"), filepath.Join(dir, "dst.bin"))
	if err == nil {
		t.Fatal("expected error for missing source")
	}
}

func TestMoveFileRenames(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.flv")
	dst := filepath.Join(dir, "sub", "a.flv")
	if err := os.WriteFile(src, []byte("segment"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Mkdir(filepath.Dir(dst), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := MoveFile(src, dst); err != nil {
		t.Fatalf("MoveFile: %v", err)
	}
	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Fatal("expected source gone")
	}
	if got, _ := os.ReadFile(dst); string(got) != "segment" {
		t.Fatalf("unexpected content %q", got)
	}
}

func TestMoveFileFallsBackAcrossDevices(t *testing.T) {
	orig := rename
	rename = func(string, string) error {
		return &os.LinkError{Op: "rename", Err: unix.EXDEV}
	}
	t.Cleanup(func() { rename = orig })

	dir := t.TempDir()
	src := filepath.Join(dir, "a.flv")
	dst := filepath.Join(dir, "b.flv")
	if err := os.WriteFile(src, []byte("segment"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := MoveFile(src, dst); err != nil {
		t.Fatalf("MoveFile: %v", err)
	}
	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Fatal("expected source removed after copy")
	}
	if got, _ := os.ReadFile(dst); string(got) != "segment" {
		t.Fatalf("unexpected content %q", got)
	}
}

func TestMoveFileNeverReplaces(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.flv")
	dst := filepath.Join(dir, "b.flv")
	for _, p := range []string{src, dst} {
		if err := os.WriteFile(p, []byte(filepath.Base(p)), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := MoveFile(src, dst); !errors.Is(err, fs.ErrExist) {
		t.Fatalf("expected ErrExist, got %v", err)
	}
	if got, _ := os.ReadFile(dst); string(got) != "b.flv" {
		t.Fatalf("destination replaced: %q", got)
	}
}

func TestMoveFileRacingMovesKeepOneWinner(t *testing.T) {
	dir := t.TempDir()
	dst := filepath.Join(dir, "merged.flv")
	const racers = 8
	srcs := make([]string, racers)
	for i := range srcs {
		srcs[i] = filepath.Join(dir, fmt.Sprintf("seg-%d.flv", i))
		if err := os.WriteFile(srcs[i], []byte(filepath.Base(srcs[i])), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	errs := make([]error, racers)
	var wg sync.WaitGroup
	for i := range srcs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = MoveFile(srcs[i], dst)
		}(i)
	}
	wg.Wait()

	winner := -1
	for i, err := range errs {
		if err == nil {
			if winner >= 0 {
				t.Fatalf("racers %d and %d both moved into %s", winner, i, dst)
			}
			winner = i
			continue
		}
		if !errors.Is(err, fs.ErrExist) {
			t.Fatalf("racer %d: expected ErrExist, got %v", i, err)
		}
		if _, err := os.Stat(srcs[i]); err != nil {
			t.Fatalf("losing source %d lost: %v", i, err)
		}
	}
	if winner < 0 {
		t.Fatal("no racer moved the file")
	}
	if got, _ := os.ReadFile(dst); string(got) != filepath.Base(srcs[winner]) {
		t.Fatalf("destination holds %q, want the winner's bytes", got)
	}
}

func TestLinkRenameNeverReplaces(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.flv")
	dst := filepath.Join(dir, "b.flv")
	for _, p := range []string{src, dst} {
		if err := os.WriteFile(p, []byte(filepath.Base(p)), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := linkRename(src, dst); !errors.Is(err, fs.ErrExist) {
		t.Fatalf("expected ErrExist, got %v", err)
	}
	if got, _ := os.ReadFile(dst); string(got) != "b.flv" {
		t.Fatalf("destination replaced: %q", got)
	}

	free := filepath.Join(dir, "c.flv")
	if err := linkRename(src, free); err != nil {
		t.Fatalf("linkRename: %v", err)
	}
	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Fatal("expected source gone")
	}
}

func TestWriteFileAtomic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "prefs.toml")
	if err := WriteFileAtomic(path, []byte("a = 1\n"), 0o600); err != nil {
		t.Fatalf("WriteFileAtomic: %v", err)
	}
	if err := WriteFileAtomic(path, []byte("a = 2\n"), 0o600); err != nil {
		t.Fatalf("WriteFileAtomic: %v", err)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "a = 2\n" {
		t.Fatalf("content = %q", got)
	}
	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Fatalf("expected temp files cleaned up, found %d entries", len(entries))
	}
}
