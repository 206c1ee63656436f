package record

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want float64
	}{
		{"float", 0.07, 0.07},
		{"int", 3, 3},
		{"json number", json.Number("12.5"), 12.5},
		{"plain string", "0.07", 0.07},
		{"dollar", "$0.07", 0.07},
		{"plus dollar", "+ $0.07", 0.07},
		{"thousands", "$1,234.50", 1234.5},
		{"negative", "-$2.00", -2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAmount(tt.in)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestParseAmount_Invalid(t *testing.T) {
	for _, in := range []any{nil, "", "$", "abc", true, []any{1}} {
		_, err := ParseAmount(in)
		assert.Error(t, err, "input %v", in)
	}
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "0.07", FormatAmount(0.07))
	assert.Equal(t, "12.00", FormatAmount(12))
	assert.Equal(t, "1234.57", FormatAmount(1234.567))
}
