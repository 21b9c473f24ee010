package sources

import (
	"context"
	"fmt"
	"iter"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/stacklok/toolhive-catalog-sync/internal/catalog"
	"github.com/stacklok/toolhive-catalog-sync/internal/config"
)

// Manifest is the YAML document read by file sources
type Manifest struct {
	Resources []config.ResourceConfig `yaml:"resources"`
}

// fileEnumerator reads resources from a YAML manifest on every enumeration
type fileEnumerator struct {
	path string
}

// NewFileEnumerator creates an enumerator for the manifest at path
func NewFileEnumerator(cfg *config.FileConfig) (Enumerator, error) {
	if cfg == nil || cfg.Path == "" {
		return nil, fmt.Errorf("file path cannot be empty")
	}
	return &fileEnumerator{path: cfg.Path}, nil
}

func (f *fileEnumerator) Enumerate(ctx context.Context) iter.Seq2[catalog.ExternalRecord, error] {
	//nolint:gosec // File path comes from user configuration, this is expected behavior
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return failed(fmt.Errorf("file not found: %s", f.path))
		}
		return failed(fmt.Errorf("failed to read file %s: %w", f.path, err))
	}

	var manifest Manifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return failed(fmt.Errorf("failed to parse manifest %s: %w", f.path, err))
	}

	return fromSlice(ctx, recordsFromResources(manifest.Resources))
}

func (*fileEnumerator) Type() string {
	return config.SourceTypeFile
}
