package update

import (
	"fmt"
	"os"

	"github.com/adamancini/clientsync/internal/types"
)

// InstallReport describes a completed or attempted install
type InstallReport struct {
	Format    types.ArchiveFormat // Detected archive format
	Entries   int                 // Files, directories and links written
	Tolerated []error             // Soft failures, e.g. *DeletionError
}

// ArchiveInstaller replaces an install directory with an archive's contents.
// The two steps are not atomic: a failure after cleanup leaves the directory
// missing or partially populated.
type ArchiveInstaller struct {
	stripComponents int
}

// NewArchiveInstaller creates a new archive installer
func NewArchiveInstaller() *ArchiveInstaller {
	return &ArchiveInstaller{}
}

// WithStripComponents drops n leading path elements from every entry
func (i *ArchiveInstaller) WithStripComponents(n int) *ArchiveInstaller {
	i.stripComponents = n
	return i
}

// Install removes targetDir and extracts archivePath into it.
// Deletion problems are reported in the returned InstallReport and never
// stop the install; extraction problems return an *ExtractionError.
func (i *ArchiveInstaller) Install(archivePath, targetDir string) (*InstallReport, error) {
	report := &InstallReport{}

	// 1. Best-effort cleanup of the previous install
	if err := os.RemoveAll(targetDir); err != nil {
		report.Tolerated = append(report.Tolerated, &DeletionError{Path: targetDir, Err: err})
	}

	// 2. Extract into a fresh directory
	if err := os.MkdirAll(targetDir, 0755); err != nil {
		return report, &ExtractionError{Archive: archivePath, Err: fmt.Errorf("failed to create target directory: %w", err)}
	}

	ex := &extractor{
		archive: archivePath,
		dest:    targetDir,
		strip:   i.stripComponents,
	}
	format, err := ex.run()
	report.Format = format
	report.Entries = ex.entries
	if err != nil {
		return report, err
	}

	return report, nil
}
