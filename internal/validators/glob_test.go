package validators

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompileGlob(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		pattern string
		match   string
		miss    string
		wantErr bool
	}{
		{name: "suffix", pattern: "*.csv", match: "orders.csv", miss: "orders.txt"},
		{name: "crosses separators", pattern: "raw/*", match: "raw/2026/orders", miss: "curated/orders"},
		{name: "alternation", pattern: "*.{csv,tsv}", match: "orders.tsv", miss: "orders.json"},
		{name: "character class", pattern: "orders-[0-9]", match: "orders-7", miss: "orders-x"},
		{name: "unclosed class", pattern: "orders[", wantErr: true},
		{name: "unclosed alternation", pattern: "*.{csv", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			g, err := CompileGlob(tt.pattern)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, g.Match(tt.match))
			assert.False(t, g.Match(tt.miss))
		})
	}
}
