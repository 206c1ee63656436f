package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/nodeledger/internal/record"
)

func TestLicense_Valid(t *testing.T) {
	res := License(record.Candidate{"licenseId": licA, "status": "self-run"}, 0, nil)
	assert.True(t, res.IsValid)
	assert.Nil(t, res.Duplicate)
}

func TestLicense_InvalidID(t *testing.T) {
	tests := []struct {
		name string
		id   any
		code string
	}{
		{"missing", nil, ErrMissingField},
		{"no prefix", licA[2:], ErrInvalidLicenseID},
		{"short", "0x1234", ErrInvalidLicenseID},
		{"not hex", "0x" + "zz" + licA[4:], ErrInvalidLicenseID},
		{"number", 12, ErrInvalidType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := record.Candidate{}
			if tt.id != nil {
				c["licenseId"] = tt.id
			}
			res := License(c, 0, nil)
			require.False(t, res.IsValid)
			assert.Contains(t, codes(res.Errors), tt.code)
		})
	}
}

func TestLicense_UnknownStatus(t *testing.T) {
	res := License(record.Candidate{"licenseId": licA, "status": "rented"}, 0, nil)
	assert.False(t, res.IsValid)
	assert.Equal(t, []string{ErrInvalidStatus}, codes(res.Errors))
}

func TestLicense_DuplicateIsNotAnError(t *testing.T) {
	existing := record.LicenseSet{licA: {LicenseID: licA}}
	res := License(record.Candidate{"licenseId": " " + licA[:2] + "01AB23CD45EF67890123456789ABCDEF0123A278"}, 3, existing)

	assert.True(t, res.IsValid)
	require.NotNil(t, res.Duplicate)
	assert.Equal(t, CondDuplicateLicense, res.Duplicate.Code)
	assert.Equal(t, 3, res.Duplicate.Index)
}

func TestLicense_LeaseChecks(t *testing.T) {
	c := record.Candidate{
		"licenseId": licA,
		"status":    "leased-bound",
		"leaseInfo": map[string]any{
			"customerName":   "Acme",
			"startDate":      "someday",
			"revenueShare":   "140%",
			"fee":            -5,
			"durationMonths": "six",
		},
	}
	res := License(c, 0, nil)
	assert.False(t, res.IsValid)
	assert.Equal(t, []string{ErrInvalidLease, ErrInvalidLease, ErrInvalidLease, ErrInvalidLease}, codes(res.Errors))
}

func TestLicense_FlatLeaseFields(t *testing.T) {
	c := record.Candidate{
		"licenseId":    licA,
		"status":       "leased-unbound",
		"customerName": "Acme",
		"revenueShare": "25%",
		"fee":          "",
	}
	res := License(c, 0, nil)
	assert.True(t, res.IsValid, "%v", res.Errors)
}

func TestLicense_LeaseOnUnleasedWarns(t *testing.T) {
	c := record.Candidate{
		"licenseId": licA,
		"status":    "available",
		"leaseInfo": map[string]any{"customerName": "Acme"},
	}
	res := License(c, 0, nil)
	assert.True(t, res.IsValid)
	assert.Equal(t, []string{WarnLeaseIgnored}, codes(res.Warnings))
}

func TestLicense_LeaseInfoWrongType(t *testing.T) {
	c := record.Candidate{"licenseId": licA, "status": "leased-bound", "leaseInfo": "Acme"}
	res := License(c, 0, nil)
	assert.Equal(t, []string{ErrInvalidType}, codes(res.Errors))
}

func TestLicenses_BatchDuplicates(t *testing.T) {
	existing := record.LicenseSet{licB: {LicenseID: licB}}
	batch := Licenses([]record.Candidate{
		{"licenseId": licA},
		{"licenseId": licB},
		{"licenseId": licA},
		{"licenseId": "bogus"},
	}, existing)

	assert.False(t, batch.IsValid)
	assert.Equal(t, 3, batch.ValidCount)
	assert.Equal(t, 1, batch.InvalidCount)
	assert.Nil(t, batch.Results[0].Duplicate)
	assert.NotNil(t, batch.Results[1].Duplicate)
	assert.NotNil(t, batch.Results[2].Duplicate, "repeat inside the batch")
	assert.Equal(t, 2, batch.DuplicateCount())
	assert.Len(t, existing, 1, "caller's set is not modified")
}

func TestLicenses_Empty(t *testing.T) {
	batch := Licenses([]record.Candidate{}, nil)
	assert.Equal(t, []string{ErrNoData}, codes(batch.Errors))
}
