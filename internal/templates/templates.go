// Package templates provides embedded starter configs for clientsync config init.
package templates

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
)

//go:embed config.*
var templatesFS embed.FS

// Template represents a starter config with metadata.
type Template struct {
	Name        string // Format name: yaml, toml or json
	Filename    string
	Description string
	Content     []byte
}

// Available templates with their descriptions.
var templateDescriptions = map[string]string{
	"yaml": "Commented YAML config (default)",
	"toml": "Commented TOML config",
	"json": "JSON config",
}

// List returns all available template names sorted alphabetically.
func List() []string {
	entries, err := templatesFS.ReadDir(".")
	if err != nil {
		return nil
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		names = append(names, strings.TrimPrefix(path.Ext(entry.Name()), "."))
	}

	sort.Strings(names)
	return names
}

// Get returns a template by name. "yml" is accepted for "yaml".
func Get(name string) (*Template, error) {
	if name == "yml" {
		name = "yaml"
	}
	filename := "config." + name
	content, err := templatesFS.ReadFile(filename)
	if err != nil {
		if pathErr, ok := err.(*fs.PathError); ok {
			return nil, fmt.Errorf("template '%s' not found: %w", name, pathErr)
		}
		return nil, fmt.Errorf("failed to read template '%s': %w", name, err)
	}

	return &Template{
		Name:        name,
		Filename:    filename,
		Description: GetDescription(name),
		Content:     content,
	}, nil
}

// GetDescription returns the description for a template.
func GetDescription(name string) string {
	if desc, ok := templateDescriptions[name]; ok {
		return desc
	}
	return "Custom template"
}
