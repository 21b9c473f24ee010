package filtering

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultAttributeFilter_ShouldInclude(t *testing.T) {
	t.Parallel()

	filter := NewDefaultAttributeFilter()
	attributes := map[string]string{"env": "prod", "team": "payments"}

	tests := []struct {
		name           string
		attributes     map[string]string
		include        []string
		exclude        []string
		expected       bool
		reasonContains string
	}{
		{
			name:           "no filters",
			attributes:     attributes,
			expected:       true,
			reasonContains: "no attribute filters specified",
		},
		{
			name:           "include key=value match",
			attributes:     attributes,
			include:        []string{"env=prod"},
			expected:       true,
			reasonContains: "included by attribute 'env=prod'",
		},
		{
			name:           "include value mismatch",
			attributes:     attributes,
			include:        []string{"env=dev"},
			expected:       false,
			reasonContains: "no include attribute matched",
		},
		{
			name:       "include bare key",
			attributes: attributes,
			include:    []string{"team"},
			expected:   true,
		},
		{
			name:       "include trims spaces",
			attributes: attributes,
			include:    []string{" env = prod "},
			expected:   true,
		},
		{
			name:           "exclude match",
			attributes:     attributes,
			exclude:        []string{"team=payments"},
			expected:       false,
			reasonContains: "excluded by attribute 'team=payments'",
		},
		{
			name:       "exclude takes precedence",
			attributes: attributes,
			include:    []string{"env=prod"},
			exclude:    []string{"team"},
			expected:   false,
		},
		{
			name:           "exclude only, no match",
			attributes:     attributes,
			exclude:        []string{"env=dev"},
			expected:       true,
			reasonContains: "no exclude attribute matched",
		},
		{
			name:     "nil attributes with include",
			include:  []string{"env=prod"},
			expected: false,
		},
		{
			name:     "nil attributes with exclude",
			exclude:  []string{"env=prod"},
			expected: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			included, reason := filter.ShouldInclude(tt.attributes, tt.include, tt.exclude)
			assert.Equal(t, tt.expected, included)
			if tt.reasonContains != "" {
				assert.Contains(t, reason, tt.reasonContains)
			}
		})
	}
}
