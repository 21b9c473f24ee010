package sources

import (
	"context"
	"iter"
	"maps"

	"github.com/stacklok/toolhive-catalog-sync/internal/catalog"
	"github.com/stacklok/toolhive-catalog-sync/internal/config"
)

type staticEnumerator struct {
	records []catalog.ExternalRecord
}

// NewStaticEnumerator returns an enumerator that always yields records
func NewStaticEnumerator(records ...catalog.ExternalRecord) Enumerator {
	return &staticEnumerator{records: records}
}

func newStaticEnumeratorFromConfig(cfg *config.StaticConfig) Enumerator {
	return &staticEnumerator{records: recordsFromResources(cfg.Resources)}
}

func (s *staticEnumerator) Enumerate(ctx context.Context) iter.Seq2[catalog.ExternalRecord, error] {
	return fromSlice(ctx, s.records)
}

func (*staticEnumerator) Type() string {
	return config.SourceTypeStatic
}

// recordsFromResources converts configured resources. Resources without a
// fingerprint get one derived from their attributes.
func recordsFromResources(resources []config.ResourceConfig) []catalog.ExternalRecord {
	records := make([]catalog.ExternalRecord, 0, len(resources))
	for _, r := range resources {
		fingerprint := r.Fingerprint
		if fingerprint == "" {
			fingerprint = attributesFingerprint(r.Attributes)
		}
		records = append(records, catalog.ExternalRecord{
			Name:        r.Name,
			Fingerprint: fingerprint,
			Present:     !r.Absent,
			Attributes:  maps.Clone(r.Attributes),
		})
	}
	return records
}
