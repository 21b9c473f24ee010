package sources

import (
	"context"
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"strconv"

	"github.com/gobwas/glob"

	"github.com/stacklok/toolhive-catalog-sync/internal/catalog"
	"github.com/stacklok/toolhive-catalog-sync/internal/config"
	"github.com/stacklok/toolhive-catalog-sync/internal/validators"
)

// directoryEnumerator yields one record per entry of a local directory
type directoryEnumerator struct {
	path    string
	include []glob.Glob
}

// NewDirectoryEnumerator creates an enumerator for a local directory
func NewDirectoryEnumerator(cfg *config.DirectoryConfig) (Enumerator, error) {
	if cfg == nil || cfg.Path == "" {
		return nil, fmt.Errorf("directory path cannot be empty")
	}
	include := make([]glob.Glob, 0, len(cfg.Include))
	for _, pattern := range cfg.Include {
		g, err := validators.CompileGlob(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid include pattern %q: %w", pattern, err)
		}
		include = append(include, g)
	}
	return &directoryEnumerator{path: cfg.Path, include: include}, nil
}

func (d *directoryEnumerator) Enumerate(ctx context.Context) iter.Seq2[catalog.ExternalRecord, error] {
	return func(yield func(catalog.ExternalRecord, error) bool) {
		entries, err := os.ReadDir(d.path)
		if err != nil {
			yield(catalog.ExternalRecord{}, fmt.Errorf("failed to read directory %s: %w", d.path, err))
			return
		}

		for _, entry := range entries {
			if err := ctx.Err(); err != nil {
				yield(catalog.ExternalRecord{}, err)
				return
			}
			if !d.matches(entry.Name()) {
				continue
			}

			info, err := entry.Info()
			if os.IsNotExist(err) {
				// Removed between ReadDir and Info
				continue
			}
			if err != nil {
				yield(catalog.ExternalRecord{}, fmt.Errorf("failed to stat %s: %w", entry.Name(), err))
				return
			}

			if !yield(recordFromFileInfo(d.path, info), nil) {
				return
			}
		}
	}
}

func (*directoryEnumerator) Type() string {
	return config.SourceTypeDirectory
}

func (d *directoryEnumerator) matches(name string) bool {
	if len(d.include) == 0 {
		return true
	}
	for _, g := range d.include {
		if g.Match(name) {
			return true
		}
	}
	return false
}

func recordFromFileInfo(dir string, info os.FileInfo) catalog.ExternalRecord {
	kind := "file"
	if info.IsDir() {
		kind = "directory"
	}
	marker := fmt.Sprintf("%d|%d|%s", info.Size(), info.ModTime().UnixNano(), info.Mode())
	return catalog.ExternalRecord{
		Name:        info.Name(),
		Fingerprint: hashOf([]byte(marker)),
		Present:     true,
		Attributes: map[string]string{
			"path": filepath.Join(dir, info.Name()),
			"kind": kind,
			"size": strconv.FormatInt(info.Size(), 10),
		},
	}
}
