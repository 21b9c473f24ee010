package filtering

import "strings"

// AttributeFilter handles attribute-based filtering using exact matching
type AttributeFilter interface {
	// ShouldInclude determines if a record with the given attributes should be included
	// based on include/exclude "key=value" selectors.
	// Returns (shouldInclude bool, reason string)
	ShouldInclude(attributes map[string]string, include, exclude []string) (bool, string)
}

// defaultAttributeFilter implements attribute filtering using exact string matching
type defaultAttributeFilter struct{}

var _ AttributeFilter = (*defaultAttributeFilter)(nil)

// NewDefaultAttributeFilter creates a new defaultAttributeFilter
func NewDefaultAttributeFilter() AttributeFilter {
	return &defaultAttributeFilter{}
}

// matchSelector reports whether attributes satisfy a "key=value" or "key" selector
func matchSelector(selector string, attributes map[string]string) bool {
	key, value, hasValue := strings.Cut(selector, "=")
	actual, ok := attributes[strings.TrimSpace(key)]
	if !ok {
		return false
	}
	return !hasValue || actual == strings.TrimSpace(value)
}

// ShouldInclude evaluates "key" and "key=value" selectors against the attributes
func (*defaultAttributeFilter) ShouldInclude(attributes map[string]string, include, exclude []string) (bool, string) {
	return decide("attribute", include, exclude, func(selector string) (bool, error) {
		return matchSelector(selector, attributes), nil
	})
}
