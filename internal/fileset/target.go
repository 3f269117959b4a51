package fileset

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DefaultOutputName is used when neither the user nor a load suggested a name.
const DefaultOutputName = "output.flv"

// Origin records who last wrote a Setting.
type Origin int

const (
	// OriginUnset means no value has been provided.
	OriginUnset Origin = iota
	// OriginAuto means the value was derived from the loaded folder.
	OriginAuto
	// OriginUser means the user set the value; automatic suggestions no longer apply.
	OriginUser
)

func (o Origin) String() string {
	switch o {
	case OriginAuto:
		return "auto"
	case OriginUser:
		return "user"
	default:
		return "unset"
	}
}

// Setting is a string value tagged with its origin.
type Setting struct {
	Value  string
	Origin Origin
}

func (s *Setting) suggest(value string) {
	if s.Origin == OriginUser {
		return
	}
	s.Value = value
	s.Origin = OriginAuto
}

func (s *Setting) set(value string) {
	s.Value = value
	s.Origin = OriginUser
}

// Target is the merge destination: a directory and a file name.
type Target struct {
	Dir         Setting
	Name        Setting
	DefaultName string
}

// Resolve returns the absolute output path. An empty directory resolves to the
// working directory and an empty name to the default output name.
func (t Target) Resolve() (string, error) {
	dir := strings.TrimSpace(t.Dir.Value)
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("resolve working directory: %w", err)
		}
		dir = wd
	}
	name := strings.TrimSpace(t.Name.Value)
	if name == "" {
		name = t.DefaultName
	}
	if name == "" {
		name = DefaultOutputName
	}
	if strings.ContainsRune(name, filepath.Separator) {
		return "", fmt.Errorf("output name %q must not contain a path separator", name)
	}
	abs, err := filepath.Abs(filepath.Join(dir, name))
	if err != nil {
		return "", fmt.Errorf("resolve output path: %w", err)
	}
	return abs, nil
}
