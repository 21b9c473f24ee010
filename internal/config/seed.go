package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// SeedConfig lists metadata types and templates to register in a store
type SeedConfig struct {
	Types     []string       `yaml:"types"`
	Templates []TemplateSeed `yaml:"templates,omitempty"`
}

// TemplateSeed describes one template to register
type TemplateSeed struct {
	QualifiedName string            `yaml:"qualifiedName"`
	Attributes    map[string]string `yaml:"attributes,omitempty"`
}

// LoadSeed reads and validates a seed file
func LoadSeed(path string) (*SeedConfig, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}

	var seed SeedConfig
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("failed to parse seed file: %w", err)
	}

	for i, name := range seed.Types {
		if name == "" {
			return nil, fmt.Errorf("types[%d]: name is required", i)
		}
	}
	for i, tmpl := range seed.Templates {
		if tmpl.QualifiedName == "" {
			return nil, fmt.Errorf("templates[%d]: qualifiedName is required", i)
		}
	}
	return &seed, nil
}
