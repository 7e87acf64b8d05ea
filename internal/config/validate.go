package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// ValidationError represents a config validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks the config for required fields and valid values.
func Validate(c *Config) error {
	var errors []string

	if err := validateURL("version_url", c.VersionURL); err != nil {
		errors = append(errors, err.Error())
	}
	if err := validateURL("archive_url", c.ArchiveURL); err != nil {
		errors = append(errors, err.Error())
	}

	if err := validatePaths(c); err != nil {
		errors = append(errors, err.Error())
	}

	if c.QueryTimeout < 0 {
		errors = append(errors, ValidationError{Field: "query_timeout", Message: "must not be negative"}.Error())
	}
	if c.DownloadTimeout < 0 {
		errors = append(errors, ValidationError{Field: "download_timeout", Message: "must not be negative"}.Error())
	}
	if c.StripComponents < 0 {
		errors = append(errors, ValidationError{Field: "strip_components", Message: "must not be negative"}.Error())
	}

	if len(errors) > 0 {
		return fmt.Errorf("validation errors:\n  - %s", strings.Join(errors, "\n  - "))
	}

	return nil
}

func validateURL(field, raw string) error {
	if raw == "" {
		return ValidationError{Field: field, Message: "is required"}
	}

	u, err := url.Parse(raw)
	if err != nil {
		return ValidationError{Field: field, Message: fmt.Sprintf("invalid URL: %v", err)}
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return ValidationError{
			Field:   field,
			Message: fmt.Sprintf("unsupported scheme '%s' (must be http or https)", u.Scheme),
		}
	}

	if u.Host == "" {
		return ValidationError{Field: field, Message: "host is required"}
	}

	return nil
}

func validatePaths(c *Config) error {
	if c.ArchivePath == "" {
		return ValidationError{Field: "archive_path", Message: "is required"}
	}
	if c.InstallDir == "" {
		return ValidationError{Field: "install_dir", Message: "is required"}
	}

	if err := validateInstallDir(c); err != nil {
		return err
	}

	// The install directory is deleted on every update; it must never contain the archive.
	if isWithin(c.InstallDir, c.ArchivePath) {
		return ValidationError{Field: "archive_path", Message: "must not be inside install_dir"}
	}
	if isWithin(c.InstallDir, c.LockPath()) {
		return ValidationError{Field: "lock_file", Message: "must not be inside install_dir"}
	}

	if c.MarkerFile == "" {
		return ValidationError{Field: "marker_file", Message: "is required"}
	}
	if filepath.IsAbs(c.MarkerFile) {
		return ValidationError{Field: "marker_file", Message: "must be relative to install_dir"}
	}
	if !isWithin(c.InstallDir, c.MarkerPath()) || filepath.Clean(c.MarkerPath()) == filepath.Clean(c.InstallDir) {
		return ValidationError{Field: "marker_file", Message: "must stay inside install_dir"}
	}

	return nil
}

// validateInstallDir rejects directories that must survive a RemoveAll.
func validateInstallDir(c *Config) error {
	dir, err := filepath.Abs(c.InstallDir)
	if err != nil {
		return ValidationError{Field: "install_dir", Message: fmt.Sprintf("invalid path: %v", err)}
	}

	if filepath.Dir(dir) == dir {
		return ValidationError{Field: "install_dir", Message: "must not be a filesystem root"}
	}
	if home, err := os.UserHomeDir(); err == nil && home != "" {
		if abs, err := filepath.Abs(home); err == nil && abs == dir {
			return ValidationError{Field: "install_dir", Message: "must not be the home directory"}
		}
	}
	if c.Source != "" {
		if src, err := filepath.Abs(c.Source); err == nil && isWithin(dir, src) {
			return ValidationError{Field: "install_dir", Message: "must not contain the config file"}
		}
	}

	return nil
}

// isWithin reports whether path equals dir or lies beneath it.
func isWithin(dir, path string) bool {
	rel, err := filepath.Rel(filepath.Clean(dir), filepath.Clean(path))
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}
