package retention_test

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"stitch/internal/retention"
	"stitch/internal/testsupport"
)

func fixedClock(unix int64) func() time.Time {
	return func() time.Time { return time.Unix(unix, 0) }
}

func dirNames(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	var out []string
	for _, e := range entries {
		out = append(out, e.Name())
	}
	sort.Strings(out)
	return out
}

func TestAdmitCreatesRootAndMoves(t *testing.T) {
	base := t.TempDir()
	src := filepath.Join(base, "rec", "20230101-080000.flv")
	testsupport.WriteFile(t, src, 64)
	root := filepath.Join(base, "Documents", ".UselessVideos")

	store := retention.NewStore(root)
	dest, err := store.Admit(src)
	if err != nil {
		t.Fatalf("Admit: %v", err)
	}
	if dest != filepath.Join(root, "20230101-080000.flv") {
		t.Fatalf("dest = %q", dest)
	}
	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Fatal("expected source moved")
	}
	if store.OccupiedBytes() != 64 {
		t.Fatalf("occupied = %d", store.OccupiedBytes())
	}
}

func TestAdmitSuffixesCollisions(t *testing.T) {
	base := t.TempDir()
	root := filepath.Join(base, "retention")
	testsupport.WriteFile(t, filepath.Join(root, "a.flv"), 10)

	store := retention.NewStore(root, retention.WithClock(fixedClock(1700000000)))

	first := filepath.Join(base, "one", "a.flv")
	second := filepath.Join(base, "two", "a.flv")
	testsupport.WriteFile(t, first, 20)
	testsupport.WriteFile(t, second, 30)

	dest1, err := store.Admit(first)
	if err != nil {
		t.Fatalf("Admit first: %v", err)
	}
	if filepath.Base(dest1) != "a_1700000000.flv" {
		t.Fatalf("first collision = %q", filepath.Base(dest1))
	}
	dest2, err := store.Admit(second)
	if err != nil {
		t.Fatalf("Admit second: %v", err)
	}
	if filepath.Base(dest2) != "a_1700000000_1.flv" {
		t.Fatalf("second collision = %q", filepath.Base(dest2))
	}

	want := []string{"a.flv", "a_1700000000.flv", "a_1700000000_1.flv"}
	got := dirNames(t, root)
	if len(got) != len(want) {
		t.Fatalf("entries = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("entries = %v, want %v", got, want)
		}
	}
	if data, _ := os.ReadFile(filepath.Join(root, "a.flv")); len(data) != 10 {
		t.Fatal("existing entry overwritten")
	}
}

func TestAdmitAllContinuesPastFailures(t *testing.T) {
	base := t.TempDir()
	root := filepath.Join(base, "retention")
	ok := filepath.Join(base, "ok.flv")
	testsupport.WriteFile(t, ok, 5)
	missing := filepath.Join(base, "missing.flv")

	store := retention.NewStore(root)
	result := store.AdmitAll([]string{missing, ok})
	if len(result.Moved) != 1 || result.Moved[0].Source != ok {
		t.Fatalf("moved = %+v", result.Moved)
	}
	if len(result.Errors) != 1 || result.Errors[0].Path != missing {
		t.Fatalf("errors = %+v", result.Errors)
	}
}

func TestAdmitReportsUncreatableRoot(t *testing.T) {
	base := t.TempDir()
	blocker := filepath.Join(base, "file")
	testsupport.WriteFile(t, blocker, 1)
	src := filepath.Join(base, "a.flv")
	testsupport.WriteFile(t, src, 1)

	store := retention.NewStore(filepath.Join(blocker, "retention"))
	if _, err := store.Admit(src); err == nil {
		t.Fatal("expected error when retention root cannot be created")
	}
	if _, err := os.Stat(src); err != nil {
		t.Fatalf("source must stay in place: %v", err)
	}
}

func TestOccupiedBytesSkipsHiddenAndDoesNotRecurse(t *testing.T) {
	root := t.TempDir()
	testsupport.WriteFile(t, filepath.Join(root, "a.flv"), 100)
	testsupport.WriteFile(t, filepath.Join(root, ".DS_Store"), 5000)
	testsupport.WriteFile(t, filepath.Join(root, "nested", "big.flv"), 9000)

	store := retention.NewStore(root)
	info, err := os.Stat(filepath.Join(root, "nested"))
	if err != nil {
		t.Fatal(err)
	}
	want := 100 + info.Size()
	if got := store.OccupiedBytes(); got != want {
		t.Fatalf("occupied = %d, want %d", got, want)
	}
	if retention.NewStore(filepath.Join(root, "absent")).OccupiedBytes() != 0 {
		t.Fatal("missing folder must report zero")
	}
}

func TestClearRemovesEverything(t *testing.T) {
	root := t.TempDir()
	testsupport.WriteFile(t, filepath.Join(root, "a.flv"), 1)
	testsupport.WriteFile(t, filepath.Join(root, ".hidden"), 1)
	testsupport.WriteFile(t, filepath.Join(root, "dir", "b.flv"), 1)

	result := retention.NewStore(root).Clear()
	if len(result.Errors) != 0 {
		t.Fatalf("unexpected errors: %+v", result.Errors)
	}
	if len(result.Removed) != 3 {
		t.Fatalf("removed = %v", result.Removed)
	}
	if got := dirNames(t, root); len(got) != 0 {
		t.Fatalf("entries remain: %v", got)
	}
}

func TestEnforceThresholds(t *testing.T) {
	root := t.TempDir()
	testsupport.WriteFile(t, filepath.Join(root, "a.flv"), 600)
	testsupport.WriteFile(t, filepath.Join(root, "b.flv"), 600)
	store := retention.NewStore(root)
	ctx := context.Background()

	if res := retention.Enforce(ctx, store, 2000, nil); res.Cleared || res.Occupied != 1200 {
		t.Fatalf("below threshold must be a no-op: %+v", res)
	}
	if res := retention.Enforce(ctx, store, 1200, nil); res.Cleared {
		t.Fatalf("equal to threshold must be a no-op: %+v", res)
	}
	if res := retention.Enforce(ctx, store, 0, nil); res.Cleared {
		t.Fatalf("zero threshold must be a no-op: %+v", res)
	}
	if res := retention.Enforce(ctx, retention.NewStore(""), 1, nil); res.Cleared {
		t.Fatalf("unset root must be a no-op: %+v", res)
	}

	res := retention.Enforce(ctx, store, 1000, nil)
	if !res.Cleared || len(res.Clear.Removed) != 2 {
		t.Fatalf("expected clear, got %+v", res)
	}
	if store.OccupiedBytes() != 0 {
		t.Fatalf("occupied after clear = %d", store.OccupiedBytes())
	}

	again := retention.Enforce(ctx, store, 1000, nil)
	if again.Cleared {
		t.Fatalf("second pass must be a no-op: %+v", again)
	}
}

func TestEnforceSkipsWhenContextDone(t *testing.T) {
	root := t.TempDir()
	testsupport.WriteFile(t, filepath.Join(root, "a.flv"), 100)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if res := retention.Enforce(ctx, retention.NewStore(root), 1, nil); res.Cleared {
		t.Fatal("cancelled context must not clear")
	}
}
