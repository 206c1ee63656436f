package export

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/nodeledger/internal/record"
)

func TestMoney(t *testing.T) {
	assert.Equal(t, "$0.07", Money(0.07))
	assert.Equal(t, "$1,204.50", Money(1204.5))
	assert.Equal(t, "$0.00", Money(0))
	assert.Equal(t, "$0.13", Money(0.125), "rounds half up")
}

func TestMarkdown_Sections(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Markdown(&buf, sampleEarnings(), sampleLicenses(), now))
	out := buf.String()

	assert.Contains(t, out, "# Node Earnings Report")
	assert.Contains(t, out, "## Summary")
	assert.Contains(t, out, "## Earnings by License Type")
	assert.Contains(t, out, "## Recent Transactions")
	assert.Contains(t, out, "$1,207.57")
	assert.Contains(t, out, "2025-12-06 to 2025-12-08")
	assert.Contains(t, out, "2 (1 bound, 1 unbound)")
	assert.Contains(t, out, Unmapped)

	// Newest first.
	assert.Less(t, strings.Index(out, "0x03...c480"), strings.Index(out, "0x01...a278"))
}

func TestMarkdown_RecentIsCapped(t *testing.T) {
	var earnings []record.Earning
	for i := 1; i <= RecentLimit+5; i++ {
		earnings = append(earnings, mkEarning(fmt.Sprintf("e-%d", i), fmt.Sprintf("0x%02d...ffff", i), "", 1, fmt.Sprintf("2025-11-%02d", i), record.StatusCompleted))
	}
	out := MarkdownString(earnings, nil, now)

	assert.Contains(t, out, "0x15...ffff")
	assert.NotContains(t, out, "0x05...ffff")
}

func TestMarkdown_Empty(t *testing.T) {
	out := MarkdownString(nil, nil, now)
	assert.Contains(t, out, "# Node Earnings Report")
	assert.Contains(t, out, "$0.00")
}
