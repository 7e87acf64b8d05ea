package update

import (
	"os"
	"path/filepath"
)

// MarkerStore reads the version marker inside the installed client directory
type MarkerStore struct {
	path string
}

// NewMarkerStore creates a store for installDir/markerFile
func NewMarkerStore(installDir, markerFile string) *MarkerStore {
	return &MarkerStore{path: filepath.Join(installDir, markerFile)}
}

// Path returns the marker file location
func (s *MarkerStore) Path() string {
	return s.path
}

// ReadInstalledVersion returns the raw marker content.
// A missing or unreadable marker yields a *MissingMarkerError, which callers
// treat as "never installed" rather than a failure.
func (s *MarkerStore) ReadInstalledVersion() (string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return "", &MissingMarkerError{Path: s.path, Err: err}
	}
	return string(data), nil
}
