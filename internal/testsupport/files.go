package testsupport

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"
)

// flvHeader is a version 1 FLV file header with audio and video flags set.
var flvHeader = []byte{'F', 'L', 'V', 0x01, 0x05, 0x00, 0x00, 0x00, 0x09}

// WriteFile creates path holding exactly size bytes that start like an FLV
// recording. A size <= 0 still writes one byte so the file is non-empty.
func WriteFile(t testing.TB, path string, size int64) {
	t.Helper()

	if size <= 0 {
		size = 1
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()

	body := io.MultiReader(bytes.NewReader(flvHeader), filler{})
	if _, err := io.CopyN(f, body, size); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// filler is an endless stream of tag-like padding.
type filler struct{}

func (filler) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = 0x42
	}
	return len(p), nil
}
