package fileset

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedExtension rejects files that are not of the accepted container type.
	ErrUnsupportedExtension = errors.New("unsupported file extension")
	// ErrLocked rejects mutations while a merge is using the set.
	ErrLocked = errors.New("file set is locked while a merge is running")
	// ErrIndexOutOfRange rejects remove/reorder positions outside the set.
	ErrIndexOutOfRange = errors.New("index out of range")
)

// DiscoveryError reports a folder that could not be listed.
type DiscoveryError struct {
	Folder string
	Err    error
}

func (e *DiscoveryError) Error() string {
	return fmt.Sprintf("list folder %q: %v", e.Folder, e.Err)
}

func (e *DiscoveryError) Unwrap() error { return e.Err }
