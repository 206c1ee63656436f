package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/nodeledger/internal/record"
)

func earning(id, node string, amount float64, date string) record.Earning {
	return record.Earning{ID: id, NodeID: node, Amount: amount, Date: date, Status: record.StatusCompleted}
}

func TestEarnings_AgainstHistory(t *testing.T) {
	existing := []record.Earning{earning("e1", "0x01...a278", 0.07, "2025-12-06")}
	candidates := []record.Earning{
		earning("", "0x01...a278", 0.07, "2025-12-06"),
		earning("", "0x01...a278", 0.07, "2025-12-07"),
		earning("", "0x01...a278", 0.08, "2025-12-06"),
		earning("", "0x02...a278", 0.07, "2025-12-06"),
	}

	p := Earnings(existing, candidates)
	assert.Equal(t, []bool{true, false, false, false}, p.IsDuplicate)
	assert.Equal(t, 1, p.DuplicateCount)
	assert.Equal(t, 3, p.UniqueCount)
	require.Len(t, p.Duplicates, 1)
	assert.Equal(t, candidates[0], p.Duplicates[0])
}

func TestEarnings_BatchInternal(t *testing.T) {
	c := earning("", "0x01...a278", 1, "2025-12-06")
	p := Earnings(nil, []record.Earning{c, c, c})

	assert.Equal(t, []bool{false, true, true}, p.IsDuplicate)
	assert.Equal(t, 1, p.UniqueCount)
	assert.Equal(t, 2, p.DuplicateCount)
}

func TestEarnings_Empty(t *testing.T) {
	p := Earnings([]record.Earning{earning("e1", "n", 1, "2025-01-01")}, nil)
	assert.Zero(t, p.UniqueCount)
	assert.Zero(t, p.DuplicateCount)
	assert.Empty(t, p.IsDuplicate)
}

func TestLicenses(t *testing.T) {
	const a = "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	const b = "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
	existing := record.LicenseSet{a: {LicenseID: a}}

	p := Licenses(existing, []record.License{{LicenseID: a}, {LicenseID: b}, {LicenseID: b}})
	assert.Equal(t, []bool{true, false, true}, p.IsDuplicate)
	assert.Equal(t, 1, p.NewCount)
	assert.Equal(t, 2, p.DuplicateCount)
}

func TestDuplicateKeys(t *testing.T) {
	a := earning("1", "n", 1, "2025-01-01")
	b := earning("2", "n", 1, "2025-01-01")
	c := earning("3", "n", 2, "2025-01-01")

	assert.Equal(t, map[Key]int{KeyOf(a): 2}, DuplicateKeys([]record.Earning{a, b, c}))
	assert.Empty(t, DuplicateKeys([]record.Earning{a, c}))
}
