package validate

import (
	"strconv"
	"strings"

	"github.com/roach88/nodeledger/internal/record"
)

// License validates one license candidate. existing is consulted only to
// flag DUPLICATE_LICENSE; it may be nil.
func License(c record.Candidate, index int, existing record.LicenseSet) Result {
	col := &collector{index: index}

	var id string
	switch v := c[record.FieldLicenseID].(type) {
	case nil:
		col.fail(record.FieldLicenseID, ErrMissingField, "licenseId is required")
	case string:
		normalized, err := record.ValidateAndNormalizeAddress(v)
		if err != nil {
			col.fail(record.FieldLicenseID, ErrInvalidLicenseID, "%v", err)
		} else {
			id = normalized
		}
	default:
		col.fail(record.FieldLicenseID, ErrInvalidType, "licenseId must be a string, got %T", v)
	}

	status := record.LicenseAvailable
	if c.Has(record.FieldStatus) {
		if s, ok := c.String(record.FieldStatus); !ok {
			col.fail(record.FieldStatus, ErrInvalidType, "status must be a string, got %T", c[record.FieldStatus])
		} else if s != "" {
			status = record.LicenseStatus(lower(s))
			if !record.ValidLicenseStatuses[status] {
				col.fail(record.FieldStatus, ErrInvalidStatus, "unknown license status %q: must be self-run, leased-bound, leased-unbound or available", s)
			}
		}
	}

	if c.Has(record.FieldNotes) {
		if _, ok := c.String(record.FieldNotes); !ok {
			col.fail(record.FieldNotes, ErrInvalidType, "notes must be a string, got %T", c[record.FieldNotes])
		}
	}

	validateLease(col, c, status)

	res := col.result()
	if id != "" {
		if _, dup := existing[id]; dup {
			res.Duplicate = &Issue{
				Index:   index,
				Field:   record.FieldLicenseID,
				Code:    CondDuplicateLicense,
				Message: "license " + id + " already exists",
			}
		}
	}
	return res
}

// Licenses validates a batch of license candidates. A license id repeated
// inside the batch is flagged as a duplicate from its second occurrence.
func Licenses(cs []record.Candidate, existing record.LicenseSet) BatchResult {
	if len(cs) == 0 {
		return noData()
	}
	seen := existing.Clone()
	results := make([]Result, len(cs))
	for i, c := range cs {
		results[i] = License(c, i, seen)
		if raw, ok := c.String(record.FieldLicenseID); ok && results[i].IsValid {
			seen[record.NormalizeAddress(raw)] = record.License{}
		}
	}
	return aggregate(results)
}

func validateLease(col *collector, c record.Candidate, status record.LicenseStatus) {
	lease := c
	if nested, present := c[record.FieldLeaseInfo]; present && nested != nil {
		m, ok := nested.(map[string]any)
		if !ok {
			col.fail(record.FieldLeaseInfo, ErrInvalidType, "leaseInfo must be an object, got %T", nested)
			return
		}
		lease = record.Candidate(m)
	}

	hasLease := lease.Present(record.FieldCustomerName) || lease.Present(record.FieldFee) ||
		lease.Present(record.FieldRevenueShare) || lease.Present(record.FieldLeaseStart)
	if hasLease && !status.IsLeased() {
		col.warn(record.FieldLeaseInfo, WarnLeaseIgnored, "lease details are ignored for status %q", status)
		return
	}
	if !status.IsLeased() {
		return
	}

	if s, ok := lease.String(record.FieldLeaseStart); ok && s != "" {
		if _, err := record.NormalizeDate(s); err != nil {
			col.fail(record.FieldLeaseStart, ErrInvalidLease, "%v", err)
		}
	}
	if lease.Present(record.FieldFee) {
		if v, err := record.ParseAmount(lease[record.FieldFee]); err != nil {
			col.fail(record.FieldFee, ErrInvalidLease, "%v", err)
		} else if v < 0 {
			col.fail(record.FieldFee, ErrInvalidLease, "fee must not be negative")
		}
	}
	if lease.Present(record.FieldRevenueShare) {
		raw := lease[record.FieldRevenueShare]
		if s, ok := raw.(string); ok {
			raw = strings.TrimSuffix(strings.TrimSpace(s), "%")
		}
		if v, err := record.ParseAmount(raw); err != nil {
			col.fail(record.FieldRevenueShare, ErrInvalidLease, "%v", err)
		} else if v < 0 || v > 100 {
			col.fail(record.FieldRevenueShare, ErrInvalidLease, "revenue share must be between 0 and 100, got %v", v)
		}
	}
	if lease.Present(record.FieldLeaseDuration) {
		raw := lease[record.FieldLeaseDuration]
		if s, ok := raw.(string); ok {
			n, err := strconv.Atoi(strings.TrimSpace(s))
			if err != nil {
				col.fail(record.FieldLeaseDuration, ErrInvalidLease, "duration must be a whole number of months, got %q", s)
				return
			}
			raw = n
		}
		if v, err := record.ParseAmount(raw); err != nil {
			col.fail(record.FieldLeaseDuration, ErrInvalidLease, "%v", err)
		} else if v < 0 {
			col.fail(record.FieldLeaseDuration, ErrInvalidLease, "duration must not be negative")
		}
	}
}

func lower(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
