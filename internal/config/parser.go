package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// ErrNotFound is returned by FindConfig when no config file exists.
var ErrNotFound = errors.New("no config file found in standard locations")

// Format represents the file format of a config file.
type Format int

const (
	FormatUnknown Format = iota
	FormatYAML
	FormatTOML
	FormatJSON
)

// detectFormat determines the file format based on extension or content.
func detectFormat(path string, content []byte) Format {
	ext := strings.ToLower(filepath.Ext(path))

	switch ext {
	case ".yaml", ".yml":
		return FormatYAML
	case ".toml":
		return FormatTOML
	case ".json":
		return FormatJSON
	}

	// Content sniffing for extensionless files
	return sniffFormat(content)
}

// sniffFormat attempts to detect format from content.
func sniffFormat(content []byte) Format {
	trimmed := strings.TrimSpace(string(content))

	if strings.HasPrefix(trimmed, "{") {
		return FormatJSON
	}

	// First significant line decides between TOML (key = value, [table]) and YAML (key: value).
	for _, line := range strings.Split(trimmed, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "[") {
			return FormatTOML
		}
		eq := strings.Index(line, "=")
		colon := strings.Index(line, ":")
		switch {
		case eq >= 0 && (colon < 0 || eq < colon):
			return FormatTOML
		case colon >= 0:
			return FormatYAML
		}
		break
	}

	return FormatUnknown
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns.
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// expandEnvVars replaces ${VAR} and ${VAR:-default} patterns in content.
func expandEnvVars(content []byte) []byte {
	return envVarPattern.ReplaceAllFunc(content, func(match []byte) []byte {
		parts := envVarPattern.FindSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		value := os.Getenv(string(parts[1]))
		if value == "" && len(parts) >= 3 && len(parts[2]) > 0 {
			value = string(parts[2])
		}

		return []byte(value)
	})
}

// parse decodes content in the given format on top of cfg.
// Keys absent from the file keep the values already in cfg.
func parse(content []byte, format Format, cfg *Config) error {
	content = expandEnvVars(content)

	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(content, cfg); err != nil {
			return fmt.Errorf("YAML parse error: %w", err)
		}
	case FormatTOML:
		if err := toml.Unmarshal(content, cfg); err != nil {
			return fmt.Errorf("TOML parse error: %w", err)
		}
	case FormatJSON:
		if err := json.Unmarshal(content, cfg); err != nil {
			return fmt.Errorf("JSON parse error: %w", err)
		}
	default:
		return fmt.Errorf("unknown file format")
	}

	return nil
}
