package prefs_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"stitch/internal/prefs"
)

func newStore(t *testing.T) (*prefs.Store, string) {
	t.Helper()
	dir := t.TempDir()
	defaultDir := filepath.Join(dir, "Documents", ".UselessVideos")
	return prefs.Open(filepath.Join(dir, "state", "prefs.toml"), defaultDir), defaultDir
}

func TestSnapshotDefaultsWhenMissing(t *testing.T) {
	store, defaultDir := newStore(t)
	snap, err := store.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if snap.DeleteSourcesAfterMerge {
		t.Fatal("expected delete-sources off by default")
	}
	if snap.RetentionDir != defaultDir {
		t.Fatalf("retention dir = %q, want %q", snap.RetentionDir, defaultDir)
	}
	if snap.RetentionThresholdGB != prefs.DefaultThresholdGB {
		t.Fatalf("threshold = %d", snap.RetentionThresholdGB)
	}
	if got := snap.ThresholdBytes(); got != 10*1024*1024*1024 {
		t.Fatalf("threshold bytes = %d", got)
	}
	if _, err := os.Stat(store.Path()); !os.IsNotExist(err) {
		t.Fatal("reading must not create the preference file")
	}
}

func TestSetPersistsAcrossStores(t *testing.T) {
	store, _ := newStore(t)
	if err := store.SetDeleteSourcesAfterMerge(true); err != nil {
		t.Fatalf("SetDeleteSourcesAfterMerge: %v", err)
	}
	if err := store.Set(prefs.KeyThresholdGB, "25"); err != nil {
		t.Fatalf("Set threshold: %v", err)
	}
	custom := filepath.Join(t.TempDir(), "keep")
	if err := store.Set(prefs.KeyRetentionDir, custom); err != nil {
		t.Fatalf("Set dir: %v", err)
	}

	reopened := prefs.Open(store.Path(), "/unused")
	snap, err := reopened.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	want := prefs.Snapshot{DeleteSourcesAfterMerge: true, RetentionDir: custom, RetentionThresholdGB: 25}
	if snap != want {
		t.Fatalf("snapshot = %+v, want %+v", snap, want)
	}
}

func TestSetValidates(t *testing.T) {
	store, _ := newStore(t)
	cases := []struct {
		key, value string
	}{
		{prefs.KeyThresholdGB, "7"},
		{prefs.KeyThresholdGB, "1001"},
		{prefs.KeyThresholdGB, "ten"},
		{prefs.KeyDeleteSources, "maybe"},
		{prefs.KeyRetentionDir, " "},
	}
	for _, tc := range cases {
		if err := store.Set(tc.key, tc.value); err == nil {
			t.Fatalf("expected error for %s=%q", tc.key, tc.value)
		}
	}
	if err := store.Set("colour", "blue"); !errors.Is(err, prefs.ErrUnknownKey) {
		t.Fatalf("expected ErrUnknownKey, got %v", err)
	}
	snap, err := store.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if snap.RetentionThresholdGB != prefs.DefaultThresholdGB {
		t.Fatalf("rejected value persisted: %+v", snap)
	}
}

func TestSnapshotClampsHandEditedThreshold(t *testing.T) {
	store, _ := newStore(t)
	if err := os.MkdirAll(filepath.Dir(store.Path()), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(store.Path(), []byte("retention_threshold_gb = 5000\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	snap, err := store.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if snap.RetentionThresholdGB != prefs.MaxThresholdGB {
		t.Fatalf("threshold = %d, want clamp to %d", snap.RetentionThresholdGB, prefs.MaxThresholdGB)
	}
}

func TestSnapshotReportsCorruptFile(t *testing.T) {
	store, _ := newStore(t)
	if err := os.MkdirAll(filepath.Dir(store.Path()), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(store.Path(), []byte("retention_threshold_gb = [\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Snapshot(); err == nil || !strings.Contains(err.Error(), "parse preferences") {
		t.Fatalf("expected parse error, got %v", err)
	}
}

func TestConcurrentUpdatesDoNotLoseWrites(t *testing.T) {
	store, _ := newStore(t)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.Update(func(s *prefs.Snapshot) error {
				s.RetentionThresholdGB++
				return nil
			})
			if err != nil {
				t.Errorf("Update: %v", err)
			}
		}()
	}
	wg.Wait()
	snap, err := store.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if snap.RetentionThresholdGB != prefs.DefaultThresholdGB+20 {
		t.Fatalf("threshold = %d, want %d", snap.RetentionThresholdGB, prefs.DefaultThresholdGB+20)
	}
}
