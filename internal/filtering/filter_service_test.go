package filtering

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/stacklok/toolhive-catalog-sync/internal/catalog"
	"github.com/stacklok/toolhive-catalog-sync/internal/config"
)

func testRecords() []catalog.ExternalRecord {
	return []catalog.ExternalRecord{
		{Name: "orders", Fingerprint: "f1", Present: true, Attributes: map[string]string{"env": "prod"}},
		{Name: "orders-tmp", Fingerprint: "f2", Present: true, Attributes: map[string]string{"env": "dev"}},
		{Name: "payments", Fingerprint: "f3", Present: true, Attributes: map[string]string{"env": "prod", "pii": "true"}},
		{Name: "audit", Fingerprint: "f4", Present: false},
	}
}

func names(records []catalog.ExternalRecord) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, r.Name)
	}
	return out
}

func TestNewFilterService(t *testing.T) {
	t.Parallel()

	service := NewFilterService(NewDefaultNameFilter(), NewDefaultAttributeFilter())
	assert.NotNil(t, service)
	assert.NotNil(t, NewDefaultFilterService())
}

func TestDefaultFilterService_ApplyFilters(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		filter   *config.FilterConfig
		expected []string
	}{
		{
			name:     "no filter",
			filter:   nil,
			expected: []string{"orders", "orders-tmp", "payments", "audit"},
		},
		{
			name:     "empty filter",
			filter:   &config.FilterConfig{},
			expected: []string{"orders", "orders-tmp", "payments", "audit"},
		},
		{
			name: "name include",
			filter: &config.FilterConfig{
				Names: &config.NameFilterConfig{Include: []string{"orders*"}},
			},
			expected: []string{"orders", "orders-tmp"},
		},
		{
			name: "name include and exclude",
			filter: &config.FilterConfig{
				Names: &config.NameFilterConfig{Include: []string{"orders*"}, Exclude: []string{"*-tmp"}},
			},
			expected: []string{"orders"},
		},
		{
			name: "attribute include",
			filter: &config.FilterConfig{
				Attributes: &config.AttributeFilterConfig{Include: []string{"env=prod"}},
			},
			expected: []string{"orders", "payments"},
		},
		{
			name: "combined",
			filter: &config.FilterConfig{
				Names:      &config.NameFilterConfig{Exclude: []string{"*-tmp"}},
				Attributes: &config.AttributeFilterConfig{Exclude: []string{"pii"}},
			},
			expected: []string{"orders", "audit"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			service := NewDefaultFilterService()
			result := service.ApplyFilters(context.Background(), testRecords(), tt.filter)
			assert.Equal(t, tt.expected, names(result))
		})
	}
}

func TestDefaultFilterService_ApplyFilters_PreservesRecords(t *testing.T) {
	t.Parallel()

	service := NewDefaultFilterService()
	result := service.ApplyFilters(context.Background(), testRecords(), &config.FilterConfig{
		Names: &config.NameFilterConfig{Include: []string{"payments"}},
	})

	assert.Equal(t, []catalog.ExternalRecord{testRecords()[2]}, result)
}
