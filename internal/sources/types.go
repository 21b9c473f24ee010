package sources

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"iter"
	"maps"
	"slices"

	"github.com/stacklok/toolhive-catalog-sync/internal/catalog"
)

// ErrDuplicateName is returned when an enumeration yields the same name twice
var ErrDuplicateName = errors.New("duplicate resource name")

//go:generate mockgen -destination=mocks/mock_enumerator.go -package=mocks -source=types.go Enumerator

// Enumerator produces the resources currently present in an external system
type Enumerator interface {
	// Enumerate starts a new enumeration. The sequence ends after the first error.
	Enumerate(ctx context.Context) iter.Seq2[catalog.ExternalRecord, error]

	// Type returns the source type, used in audit messages
	Type() string
}

// Collect drains an enumeration. Any error, including a repeated name,
// fails the whole enumeration.
func Collect(ctx context.Context, e Enumerator) ([]catalog.ExternalRecord, error) {
	var records []catalog.ExternalRecord
	seen := make(map[string]struct{})
	for record, err := range e.Enumerate(ctx) {
		if err != nil {
			return nil, err
		}
		if record.Name == "" {
			return nil, fmt.Errorf("%s source returned a resource without a name", e.Type())
		}
		if _, dup := seen[record.Name]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateName, record.Name)
		}
		seen[record.Name] = struct{}{}
		records = append(records, record)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

// fromSlice yields records in order, stopping early on cancellation
func fromSlice(ctx context.Context, records []catalog.ExternalRecord) iter.Seq2[catalog.ExternalRecord, error] {
	return func(yield func(catalog.ExternalRecord, error) bool) {
		for _, r := range records {
			if err := ctx.Err(); err != nil {
				yield(catalog.ExternalRecord{}, err)
				return
			}
			if !yield(r, nil) {
				return
			}
		}
	}
}

// failed yields a single error
func failed(err error) iter.Seq2[catalog.ExternalRecord, error] {
	return func(yield func(catalog.ExternalRecord, error) bool) {
		yield(catalog.ExternalRecord{}, err)
	}
}

func hashOf(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// attributesFingerprint hashes attributes in key order
func attributesFingerprint(attrs map[string]string) string {
	var buf []byte
	for _, k := range slices.Sorted(maps.Keys(attrs)) {
		buf = fmt.Appendf(buf, "%s=%s\n", k, attrs[k])
	}
	return hashOf(buf)
}
