package record

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAddress = "0x01ab23cd45ef67890123456789abcdef0123a278"

func TestValidateAddress(t *testing.T) {
	require.NoError(t, ValidateAddress(testAddress))
	require.NoError(t, ValidateAddress("  0X"+strings.ToUpper(testAddress[2:])+" "))

	tests := []struct {
		name string
		addr string
	}{
		{"empty", ""},
		{"no prefix", testAddress[2:]},
		{"too short", "0x01ab"},
		{"too long", testAddress + "00"},
		{"not hex", "0xZZ...not-hex"},
		{"abbreviated", "0x01...a278"},
		{"non hex digits", "0x" + strings.Repeat("g", 40)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, ValidateAddress(tt.addr))
		})
	}
}

func TestValidateAndNormalizeAddress(t *testing.T) {
	got, err := ValidateAndNormalizeAddress("  0X" + strings.ToUpper(testAddress[2:]) + "\n")
	require.NoError(t, err)
	assert.Equal(t, testAddress, got)
}

func TestLooksLikeNodeID(t *testing.T) {
	assert.True(t, LooksLikeNodeID("0x01...a278"))
	assert.True(t, LooksLikeNodeID(testAddress))
	assert.False(t, LooksLikeNodeID("node-7"))
	assert.False(t, LooksLikeNodeID("0x01..a278"))
}

func TestMatchesNode(t *testing.T) {
	assert.True(t, MatchesNode(testAddress, testAddress))
	assert.True(t, MatchesNode(testAddress, strings.ToUpper(testAddress)))
	assert.True(t, MatchesNode(testAddress, "0x01...a278"))
	assert.True(t, MatchesNode(testAddress, "0x01AB...A278"))

	assert.False(t, MatchesNode(testAddress, "0x02...a278"))
	assert.False(t, MatchesNode(testAddress, "0x01...b278"))
	assert.False(t, MatchesNode(testAddress, "..."))
	assert.False(t, MatchesNode("", "0x01...a278"))
}
