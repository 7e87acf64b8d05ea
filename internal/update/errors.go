package update

import (
	"errors"
	"fmt"
)

// Sentinel errors wrapped by the typed errors below.
var (
	ErrLocked         = errors.New("another sync is already running")
	ErrEmptyVersion   = errors.New("response has no version")
	ErrTruncated      = errors.New("download truncated")
	ErrUnknownFormat  = errors.New("unrecognized archive format")
	ErrUnsafePath     = errors.New("archive entry escapes target directory")
	ErrMarkerMismatch = errors.New("installed marker does not match remote version")
)

// NetworkError is a hard failure talking to the version endpoint or the archive host.
type NetworkError struct {
	Op         string // "query" or "download"
	URL        string
	StatusCode int // Zero when no response was received
	Err        error
}

func (e *NetworkError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s: status %d", e.Op, e.URL, e.StatusCode)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// MissingMarkerError is a soft failure: the marker file is absent or unreadable.
// The pipeline treats it as "never installed".
type MissingMarkerError struct {
	Path string
	Err  error
}

func (e *MissingMarkerError) Error() string {
	return fmt.Sprintf("version marker %s unavailable: %v", e.Path, e.Err)
}

func (e *MissingMarkerError) Unwrap() error { return e.Err }

// DeletionError is a soft failure removing the previous install directory.
type DeletionError struct {
	Path string
	Err  error
}

func (e *DeletionError) Error() string {
	return fmt.Sprintf("failed to remove %s: %v", e.Path, e.Err)
}

func (e *DeletionError) Unwrap() error { return e.Err }

// ExtractionError is a hard failure unpacking the archive.
type ExtractionError struct {
	Archive string
	Entry   string // Empty when the failure is not tied to one entry
	Err     error
}

func (e *ExtractionError) Error() string {
	if e.Entry != "" {
		return fmt.Sprintf("extract %s (%s): %v", e.Archive, e.Entry, e.Err)
	}
	return fmt.Sprintf("extract %s: %v", e.Archive, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// IsSoft reports whether err is a failure the pipeline tolerates.
func IsSoft(err error) bool {
	var missing *MissingMarkerError
	var deletion *DeletionError
	return errors.As(err, &missing) || errors.As(err, &deletion)
}
