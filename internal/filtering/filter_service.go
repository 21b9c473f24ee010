package filtering

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/stacklok/toolhive-catalog-sync/internal/catalog"
	"github.com/stacklok/toolhive-catalog-sync/internal/config"
)

// FilterService coordinates name and attribute filtering of enumerated records
type FilterService interface {
	// ApplyFilters returns the records passing the filter, in their original order
	ApplyFilters(
		ctx context.Context,
		records []catalog.ExternalRecord,
		filter *config.FilterConfig,
	) []catalog.ExternalRecord
}

// defaultFilterService implements filtering coordination using name and attribute filters
type defaultFilterService struct {
	nameFilter      NameFilter
	attributeFilter AttributeFilter
}

var _ FilterService = (*defaultFilterService)(nil)

// NewDefaultFilterService creates a new defaultFilterService with default filter implementations
func NewDefaultFilterService() FilterService {
	return &defaultFilterService{
		nameFilter:      NewDefaultNameFilter(),
		attributeFilter: NewDefaultAttributeFilter(),
	}
}

// NewFilterService creates a new defaultFilterService with custom filter implementations
func NewFilterService(nameFilter NameFilter, attributeFilter AttributeFilter) FilterService {
	return &defaultFilterService{
		nameFilter:      nameFilter,
		attributeFilter: attributeFilter,
	}
}

// ApplyFilters filters the records based on filter configuration.
// Without a filter the records are returned unchanged.
func (s *defaultFilterService) ApplyFilters(
	ctx context.Context,
	records []catalog.ExternalRecord,
	filter *config.FilterConfig,
) []catalog.ExternalRecord {
	if filter == nil {
		return records
	}

	var nameInclude, nameExclude, attrInclude, attrExclude []string
	if filter.Names != nil {
		nameInclude = filter.Names.Include
		nameExclude = filter.Names.Exclude
	}
	if filter.Attributes != nil {
		attrInclude = filter.Attributes.Include
		attrExclude = filter.Attributes.Exclude
	}

	filtered := make([]catalog.ExternalRecord, 0, len(records))
	for _, record := range records {
		included, reason := s.shouldIncludeWithReason(
			record, nameInclude, nameExclude, attrInclude, attrExclude)
		if included {
			filtered = append(filtered, record)
			continue
		}
		slog.DebugContext(ctx, "Excluding resource",
			"name", record.Name,
			"reason", reason)
	}

	if excluded := len(records) - len(filtered); excluded > 0 {
		slog.InfoContext(ctx, "Resource filtering completed",
			"included", len(filtered),
			"excluded", excluded)
	}
	return filtered
}

// shouldIncludeWithReason determines if a record should be included and provides detailed reasoning.
// Both name and attribute filters must pass for a record to be included
func (s *defaultFilterService) shouldIncludeWithReason(
	record catalog.ExternalRecord,
	nameInclude, nameExclude, attrInclude, attrExclude []string,
) (bool, string) {
	nameIncluded, nameReason := s.nameFilter.ShouldInclude(record.Name, nameInclude, nameExclude)
	if !nameIncluded {
		return false, fmt.Sprintf("name filter: %s", nameReason)
	}

	attrIncluded, attrReason := s.attributeFilter.ShouldInclude(record.Attributes, attrInclude, attrExclude)
	if !attrIncluded {
		return false, fmt.Sprintf("attribute filter: %s", attrReason)
	}

	reasons := []string{}
	if len(nameInclude) > 0 || len(nameExclude) > 0 {
		reasons = append(reasons, fmt.Sprintf("name filter: %s", nameReason))
	}
	if len(attrInclude) > 0 || len(attrExclude) > 0 {
		reasons = append(reasons, fmt.Sprintf("attribute filter: %s", attrReason))
	}
	if len(reasons) == 0 {
		return true, "no filters specified, default include"
	}
	return true, "passed all filters: " + strings.Join(reasons, " AND ")
}
