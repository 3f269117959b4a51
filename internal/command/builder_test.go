package command

import (
	"errors"
	"reflect"
	"testing"

	"github.com/kballard/go-shellquote"
)

func TestBuildOrdersFlags(t *testing.T) {
	inv, err := Build("", []string{"/a/1.flv", "/a/2.flv"}, "/out/merged.flv")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	want := []string{"yamdi", "-i", "/a/1.flv", "-i", "/a/2.flv", "-o", "/out/merged.flv"}
	if got := inv.Argv(); !reflect.DeepEqual(got, want) {
		t.Fatalf("argv = %v, want %v", got, want)
	}
	if got := inv.Inputs(); !reflect.DeepEqual(got, []string{"/a/1.flv", "/a/2.flv"}) {
		t.Fatalf("inputs = %v", got)
	}
	if inv.Output() != "/out/merged.flv" {
		t.Fatalf("output = %q", inv.Output())
	}
}

func TestBuildIsDeterministic(t *testing.T) {
	inputs := []string{"/rec/a b.flv", "/rec/it's.flv"}
	first, err := Build("yamdi", inputs, "/rec/out.flv")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	second, err := Build("yamdi", inputs, "/rec/out.flv")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !reflect.DeepEqual(first, second) || first.String() != second.String() {
		t.Fatal("expected identical invocations")
	}
}

func TestStringRoundTripsSpecialCharacters(t *testing.T) {
	inputs := []string{
		"/rec/with space.flv",
		"/rec/quote\"d.flv",
		"/rec/it's.flv",
		"/rec/$HOME;rm -rf.flv",
		"/rec/星期一 20230101-080000.flv",
	}
	inv, err := Build("", inputs, "/rec/out put.flv")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	words, err := shellquote.Split(inv.String())
	if err != nil {
		t.Fatalf("split preview: %v", err)
	}
	if !reflect.DeepEqual(words, inv.Argv()) {
		t.Fatalf("preview does not round-trip:\n got %q\nwant %q", words, inv.Argv())
	}
}

func TestViaShellWrapsPreview(t *testing.T) {
	inv, err := Build("", []string{"/a/1.flv"}, "/a/out.flv")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	wrapped := inv.ViaShell("/bin/zsh")
	want := []string{"/bin/zsh", "-lc", inv.String()}
	if !reflect.DeepEqual(wrapped.Argv(), want) {
		t.Fatalf("wrapped argv = %v, want %v", wrapped.Argv(), want)
	}
	if same := inv.ViaShell("  "); !reflect.DeepEqual(same, inv) {
		t.Fatal("empty shell must not wrap")
	}
}

func TestBuildRejectsInvalidInput(t *testing.T) {
	if _, err := Build("", nil, "/out.flv"); !errors.Is(err, ErrNoInputs) {
		t.Fatalf("expected ErrNoInputs, got %v", err)
	}
	if _, err := Build("", []string{"/a.flv"}, " "); !errors.Is(err, ErrNoOutput) {
		t.Fatalf("expected ErrNoOutput, got %v", err)
	}
	if _, err := Build("", []string{"a.flv"}, "/out.flv"); err == nil {
		t.Fatal("expected error for relative input")
	}
	if _, err := Build("", []string{"/a.flv"}, "out.flv"); err == nil {
		t.Fatal("expected error for relative output")
	}
}
