package filtering

import (
	"fmt"
	"sync"

	"github.com/gobwas/glob"

	"github.com/stacklok/toolhive-catalog-sync/internal/validators"
)

// NameFilter decides whether a resource name passes include/exclude glob patterns
type NameFilter interface {
	// ShouldInclude returns the decision and a human readable reason
	ShouldInclude(name string, include, exclude []string) (bool, string)
}

// globNameFilter matches names with gobwas/glob. Compiled patterns are
// cached because the same few patterns are applied to every record.
type globNameFilter struct {
	compiled sync.Map // pattern -> glob.Glob
}

var _ NameFilter = (*globNameFilter)(nil)

// NewDefaultNameFilter creates a glob based NameFilter
func NewDefaultNameFilter() NameFilter {
	return &globNameFilter{}
}

// ValidatePattern reports whether pattern is a usable name filter pattern
func ValidatePattern(pattern string) error {
	_, err := validators.CompileGlob(pattern)
	return err
}

func (f *globNameFilter) match(pattern, name string) (bool, error) {
	if g, ok := f.compiled.Load(pattern); ok {
		return g.(glob.Glob).Match(name), nil
	}
	g, err := validators.CompileGlob(pattern)
	if err != nil {
		return false, err
	}
	f.compiled.Store(pattern, g)
	return g.Match(name), nil
}

// ShouldInclude applies exclude patterns first, then include patterns.
// An invalid pattern excludes the name.
func (f *globNameFilter) ShouldInclude(name string, include, exclude []string) (bool, string) {
	return decide("name pattern", include, exclude, func(pattern string) (bool, error) {
		return f.match(pattern, name)
	})
}

// decide is the include/exclude evaluation shared by every filter. Exclusion
// wins over inclusion, a non-empty include list must match, and no rules
// at all includes everything.
func decide(kind string, include, exclude []string, match func(rule string) (bool, error)) (bool, string) {
	for _, rule := range exclude {
		matched, err := match(rule)
		if err != nil {
			return false, fmt.Sprintf("invalid exclude %s '%s': %v", kind, rule, err)
		}
		if matched {
			return false, fmt.Sprintf("excluded by %s '%s'", kind, rule)
		}
	}

	for _, rule := range include {
		matched, err := match(rule)
		if err != nil {
			return false, fmt.Sprintf("invalid include %s '%s': %v", kind, rule, err)
		}
		if matched {
			return true, fmt.Sprintf("included by %s '%s'", kind, rule)
		}
	}

	switch {
	case len(include) > 0:
		return false, fmt.Sprintf("no include %s matched %v", kind, include)
	case len(exclude) > 0:
		return true, fmt.Sprintf("no exclude %s matched %v", kind, exclude)
	default:
		return true, fmt.Sprintf("no %s filters specified", kind)
	}
}
