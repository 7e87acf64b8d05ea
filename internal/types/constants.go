// Package types provides type-safe constants for the clientsync pipeline.
//
// This package centralizes the enumerated values shared between the
// configuration layer, the update pipeline and the CLI, replacing magic
// strings with typed constants and validation methods.
package types

import (
	"fmt"
	"strings"
)

// Stage is a state of the sync pipeline.
type Stage string

const (
	// StageIdle is the initial state before any work is done.
	StageIdle Stage = "idle"
	// StageQuerying fetches the remote version and reads the local marker.
	StageQuerying Stage = "querying"
	// StageUpToDate is terminal: the local install matches the remote version.
	StageUpToDate Stage = "up-to-date"
	// StageStale means the local install must be replaced.
	StageStale Stage = "stale"
	// StageDownloading streams the client archive to disk.
	StageDownloading Stage = "downloading"
	// StageExtracting replaces the install directory with the archive contents.
	StageExtracting Stage = "extracting"
	// StageDone is terminal: the new version was installed.
	StageDone Stage = "done"
	// StageFailed is terminal: a hard error stopped the pipeline.
	StageFailed Stage = "failed"
)

// AllStages returns all pipeline stages in declaration order.
func AllStages() []Stage {
	return []Stage{
		StageIdle, StageQuerying, StageUpToDate, StageStale,
		StageDownloading, StageExtracting, StageDone, StageFailed,
	}
}

// String returns the string representation of the Stage.
func (s Stage) String() string {
	return string(s)
}

// IsTerminal returns true if no further transitions leave this stage.
func (s Stage) IsTerminal() bool {
	return s == StageUpToDate || s == StageDone || s == StageFailed
}

// IsSuccess returns true for the terminal stages that end a run cleanly.
func (s Stage) IsSuccess() bool {
	return s == StageUpToDate || s == StageDone
}

// CanTransition reports whether the pipeline may move from s to next.
func (s Stage) CanTransition(next Stage) bool {
	switch s {
	case StageIdle:
		return next == StageQuerying
	case StageQuerying:
		return next == StageUpToDate || next == StageStale || next == StageFailed
	case StageStale:
		return next == StageDownloading
	case StageDownloading:
		return next == StageExtracting || next == StageFailed
	case StageExtracting:
		return next == StageDone || next == StageFailed
	default:
		return false
	}
}

// Decision is the outcome of comparing the remote and local versions.
type Decision string

const (
	// DecisionUpToDate means the local marker equals the remote version.
	DecisionUpToDate Decision = "up-to-date"
	// DecisionStale means the marker is absent or differs from the remote version.
	DecisionStale Decision = "stale"
)

// String returns the string representation of the Decision.
func (d Decision) String() string {
	return string(d)
}

// IsStale returns true if the install must be replaced.
func (d Decision) IsStale() bool {
	return d == DecisionStale
}

// ArchiveFormat identifies the container format of a client archive.
type ArchiveFormat string

const (
	// ArchiveZip is a zip archive.
	ArchiveZip ArchiveFormat = "zip"
	// ArchiveTarGz is a gzip-compressed tarball.
	ArchiveTarGz ArchiveFormat = "tar.gz"
	// ArchiveTarXz is an xz-compressed tarball.
	ArchiveTarXz ArchiveFormat = "tar.xz"
	// ArchiveTar is an uncompressed tarball.
	ArchiveTar ArchiveFormat = "tar"
	// ArchiveUnknown is returned when the format cannot be detected.
	ArchiveUnknown ArchiveFormat = ""
)

// AllArchiveFormats returns all supported archive formats.
func AllArchiveFormats() []ArchiveFormat {
	return []ArchiveFormat{ArchiveZip, ArchiveTarGz, ArchiveTarXz, ArchiveTar}
}

// String returns the string representation of the ArchiveFormat.
func (f ArchiveFormat) String() string {
	if f == ArchiveUnknown {
		return "unknown"
	}
	return string(f)
}

// IsTar returns true for all tarball variants.
func (f ArchiveFormat) IsTar() bool {
	return f == ArchiveTar || f == ArchiveTarGz || f == ArchiveTarXz
}

// LogFormat selects the slog handler used for diagnostics.
type LogFormat string

const (
	// LogFormatText writes key=value log lines.
	LogFormatText LogFormat = "text"
	// LogFormatJSON writes one JSON object per log line.
	LogFormatJSON LogFormat = "json"
)

// Validate checks if the LogFormat is a valid value.
func (f LogFormat) Validate() error {
	switch f {
	case LogFormatText, LogFormatJSON:
		return nil
	case "":
		return fmt.Errorf("log format is required")
	default:
		return fmt.Errorf("invalid log format '%s' (must be text or json)", f)
	}
}

// String returns the string representation of the LogFormat.
func (f LogFormat) String() string {
	return string(f)
}

// ParseLogFormat parses a string into a LogFormat.
// An empty string selects text.
func ParseLogFormat(s string) (LogFormat, error) {
	if s == "" {
		return LogFormatText, nil
	}
	lf := LogFormat(strings.ToLower(s))
	if err := lf.Validate(); err != nil {
		return "", err
	}
	return lf, nil
}
