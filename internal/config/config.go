// Package config handles clientsync configuration loading and location resolution.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	// DefaultMarkerFile is the marker path relative to the install directory.
	DefaultMarkerFile = "version.txt"
	// DefaultQueryTimeout bounds the version endpoint request.
	DefaultQueryTimeout = 30 * time.Second
	// DefaultDownloadTimeout bounds the archive download.
	DefaultDownloadTimeout = 30 * time.Minute
	// DefaultUserAgent is sent with every request.
	DefaultUserAgent = "clientsync"

	envConfigPath = "CLIENTSYNC_CONFIG"
	appDirName    = "clientsync"
)

// Duration is a time.Duration that reads and writes as "30s", "5m" in config files.
type Duration time.Duration

// UnmarshalText parses a Go duration string.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalText renders the duration in Go syntax.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config describes where the client build comes from and where it is installed.
type Config struct {
	VersionURL      string   `yaml:"version_url" toml:"version_url" json:"version_url"`                                  // Endpoint returning {"version": "..."}
	ArchiveURL      string   `yaml:"archive_url" toml:"archive_url" json:"archive_url"`                                  // May contain {os}, {arch}, {version}
	ArchivePath     string   `yaml:"archive_path" toml:"archive_path" json:"archive_path"`                               // Where the archive is downloaded
	InstallDir      string   `yaml:"install_dir" toml:"install_dir" json:"install_dir"`                                  // Extraction root
	MarkerFile      string   `yaml:"marker_file" toml:"marker_file" json:"marker_file"`                                  // Relative to InstallDir
	LockFile        string   `yaml:"lock_file,omitempty" toml:"lock_file,omitempty" json:"lock_file,omitempty"`          // Defaults to ArchivePath + ".lock"
	QueryTimeout    Duration `yaml:"query_timeout" toml:"query_timeout" json:"query_timeout"`
	DownloadTimeout Duration `yaml:"download_timeout" toml:"download_timeout" json:"download_timeout"`
	StripComponents int      `yaml:"strip_components,omitempty" toml:"strip_components,omitempty" json:"strip_components,omitempty"`
	UserAgent       string   `yaml:"user_agent,omitempty" toml:"user_agent,omitempty" json:"user_agent,omitempty"`

	// Source is the file the configuration was read from, empty for defaults.
	Source string `yaml:"-" toml:"-" json:"-"`
}

// MarkerPath returns the absolute location of the version marker.
func (c *Config) MarkerPath() string {
	return filepath.Join(c.InstallDir, c.MarkerFile)
}

// LockPath returns the lock file guarding the archive and install directory.
func (c *Config) LockPath() string {
	if c.LockFile != "" {
		return c.LockFile
	}
	return c.ArchivePath + ".lock"
}

// Default returns a configuration with every path rooted in the user cache directory.
// URLs are left empty; they must come from a config file.
func Default() (*Config, error) {
	cacheDir, err := getCacheDir()
	if err != nil {
		return nil, err
	}
	return &Config{
		ArchivePath:     filepath.Join(cacheDir, "client.zip"),
		InstallDir:      filepath.Join(cacheDir, "client"),
		MarkerFile:      DefaultMarkerFile,
		QueryTimeout:    Duration(DefaultQueryTimeout),
		DownloadTimeout: Duration(DefaultDownloadTimeout),
		UserAgent:       DefaultUserAgent,
	}, nil
}

// getCacheDir returns the default cache directory path.
func getCacheDir() (string, error) {
	// Use XDG_CACHE_HOME or default to ~/.cache
	cacheDir := os.Getenv("XDG_CACHE_HOME")
	if cacheDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to determine home directory: %w", err)
		}
		cacheDir = filepath.Join(home, ".cache")
	}
	return filepath.Join(cacheDir, appDirName), nil
}

// UserConfigDir returns $XDG_CONFIG_HOME/clientsync, falling back to ~/.config/clientsync.
func UserConfigDir() (string, error) {
	xdgConfig := os.Getenv("XDG_CONFIG_HOME")
	if xdgConfig == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to determine home directory: %w", err)
		}
		xdgConfig = filepath.Join(home, ".config")
	}
	return filepath.Join(xdgConfig, appDirName), nil
}

// FindConfig searches for a config file in the standard locations.
// Returns the path to the first file found, or an error if none exists.
func FindConfig(explicitPath string) (string, error) {
	if explicitPath != "" {
		if _, err := os.Stat(explicitPath); err != nil {
			return "", fmt.Errorf("specified config file not found: %s", explicitPath)
		}
		return explicitPath, nil
	}

	if envPath := os.Getenv(envConfigPath); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath, nil
		}
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to determine home directory: %w", err)
	}

	configDir, err := UserConfigDir()
	if err != nil {
		return "", err
	}

	searchPaths := []string{
		configDir,
		filepath.Join(home, "."+appDirName),
	}

	fileNames := []string{
		"config.yaml",
		"config.yml",
		"config.toml",
		"config.json",
	}

	for _, dir := range searchPaths {
		for _, name := range fileNames {
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err == nil {
				return path, nil
			}
		}
	}

	return "", ErrNotFound
}

// Load reads a config file over the defaults, resolves relative paths against
// the file's directory and validates the result.
func Load(path string) (*Config, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	format := detectFormat(path, content)
	if format == FormatUnknown {
		return nil, fmt.Errorf("unable to detect file format for %s", path)
	}

	cfg, err := Default()
	if err != nil {
		return nil, err
	}

	if err := parse(content, format, cfg); err != nil {
		return nil, err
	}

	cfg.Source = path
	cfg.resolvePaths(filepath.Dir(path))

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// resolvePaths makes every relative filesystem path absolute against base.
// MarkerFile stays relative to InstallDir.
func (c *Config) resolvePaths(base string) {
	for _, p := range []*string{&c.ArchivePath, &c.InstallDir, &c.LockFile} {
		if *p == "" || filepath.IsAbs(*p) {
			continue
		}
		*p = filepath.Join(base, *p)
	}
}
