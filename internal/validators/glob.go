package validators

import (
	"fmt"
	"path/filepath"

	"github.com/gobwas/glob"
)

// CompileGlob compiles a name pattern. Patterns must be valid filepath.Match
// syntax and are compiled without separators, so '*' also crosses '/' in
// hierarchical names. Brace alternation such as '{csv,tsv}' is supported.
func CompileGlob(pattern string) (glob.Glob, error) {
	if _, err := filepath.Match(pattern, ""); err != nil {
		return nil, err
	}
	g, err := glob.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid glob pattern: %w", err)
	}
	return g, nil
}
