package sources

import (
	"context"
	"errors"
	"iter"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stacklok/toolhive-catalog-sync/internal/catalog"
)

type seqEnumerator struct {
	seq iter.Seq2[catalog.ExternalRecord, error]
}

func (s seqEnumerator) Enumerate(context.Context) iter.Seq2[catalog.ExternalRecord, error] {
	return s.seq
}

func (seqEnumerator) Type() string { return "test" }

func records(names ...string) []catalog.ExternalRecord {
	out := make([]catalog.ExternalRecord, len(names))
	for i, n := range names {
		out[i] = catalog.ExternalRecord{Name: n, Fingerprint: "fp-" + n, Present: true}
	}
	return out
}

func TestCollect(t *testing.T) {
	t.Parallel()

	boom := errors.New("broker unreachable")

	tests := []struct {
		name      string
		seq       iter.Seq2[catalog.ExternalRecord, error]
		wantNames []string
		wantErr   error
		errText   string
	}{
		{
			name:      "all records",
			seq:       fromSlice(context.Background(), records("a", "b", "c")),
			wantNames: []string{"a", "b", "c"},
		},
		{
			name: "empty enumeration",
			seq:  fromSlice(context.Background(), nil),
		},
		{
			name: "error after some records",
			seq: func(yield func(catalog.ExternalRecord, error) bool) {
				if !yield(records("a")[0], nil) {
					return
				}
				yield(catalog.ExternalRecord{}, boom)
			},
			wantErr: boom,
		},
		{
			name:    "duplicate names",
			seq:     fromSlice(context.Background(), records("a", "b", "a")),
			wantErr: ErrDuplicateName,
		},
		{
			name:    "missing name",
			seq:     fromSlice(context.Background(), []catalog.ExternalRecord{{Fingerprint: "x"}}),
			errText: "without a name",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := Collect(context.Background(), seqEnumerator{seq: tt.seq})
			switch {
			case tt.wantErr != nil:
				require.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, got)
			case tt.errText != "":
				require.ErrorContains(t, err, tt.errText)
			default:
				require.NoError(t, err)
				names := make([]string, 0, len(got))
				for _, r := range got {
					names = append(names, r.Name)
				}
				assert.Equal(t, len(tt.wantNames), len(names))
				if len(tt.wantNames) > 0 {
					assert.Equal(t, tt.wantNames, names)
				}
			}
		})
	}
}

func TestCollect_Cancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Collect(ctx, NewStaticEnumerator(records("a")...))
	require.ErrorIs(t, err, context.Canceled)
}

func TestEnumerate_IsRestartable(t *testing.T) {
	t.Parallel()

	e := NewStaticEnumerator(records("a", "b")...)
	first, err := Collect(context.Background(), e)
	require.NoError(t, err)
	second, err := Collect(context.Background(), e)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestFromSlice_StopsWhenConsumerStops(t *testing.T) {
	t.Parallel()

	seen := 0
	for range fromSlice(context.Background(), records("a", "b", "c")) {
		seen++
		if seen == 2 {
			break
		}
	}
	assert.Equal(t, 2, seen)
}

func TestAttributesFingerprint(t *testing.T) {
	t.Parallel()

	a := attributesFingerprint(map[string]string{"x": "1", "y": "2"})
	b := attributesFingerprint(map[string]string{"y": "2", "x": "1"})
	c := attributesFingerprint(map[string]string{"x": "1", "y": "3"})
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 64)
}
