// Package validate checks candidate records before they are merged.
//
// Validation never fails fast: every problem of every record is collected
// so an operator fixing an import sees the whole list at once. Errors block
// the record they belong to; warnings are informational only.
package validate

import (
	"fmt"
	"math"

	"github.com/roach88/nodeledger/internal/record"
)

// Issue codes.
const (
	// Errors
	ErrNoData           = "NO_DATA"            // empty batch
	ErrMissingField     = "MISSING_FIELD"      // required field absent or empty
	ErrInvalidType      = "INVALID_TYPE"       // field has the wrong JSON type
	ErrNegativeAmount   = "NEGATIVE_AMOUNT"    // amount < 0
	ErrInvalidAmount    = "INVALID_AMOUNT"     // amount not numeric
	ErrInvalidDate      = "INVALID_DATE"       // date cannot be normalized
	ErrInvalidStatus    = "INVALID_STATUS"     // unknown status value
	ErrInvalidLicenseID = "INVALID_LICENSE_ID" // license address format
	ErrInvalidLease     = "INVALID_LEASE"      // lease field malformed

	// Conditions
	CondDuplicateLicense = "DUPLICATE_LICENSE" // license id already known

	// Warnings
	WarnZeroAmount   = "ZERO_AMOUNT"    // amount == 0
	WarnNodeIDFormat = "NODE_ID_FORMAT" // node id has an unexpected shape
	WarnLeaseIgnored = "LEASE_IGNORED"  // lease fields on a non-leased license
)

// Issue is a single validation finding.
type Issue struct {
	Index   int    `json:"index"`
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (i Issue) Error() string {
	if i.Field == "" {
		return fmt.Sprintf("[%s] record %d: %s", i.Code, i.Index, i.Message)
	}
	return fmt.Sprintf("[%s] record %d: %s: %s", i.Code, i.Index, i.Field, i.Message)
}

// Result is the validation outcome of one candidate.
type Result struct {
	Index    int     `json:"index"`
	IsValid  bool    `json:"isValid"`
	Errors   []Issue `json:"errors"`
	Warnings []Issue `json:"warnings"`
	// Duplicate is set when a license id already exists. It does not make
	// the record invalid; the merge policy decides what happens to it.
	Duplicate *Issue `json:"duplicate,omitempty"`
}

// BatchResult aggregates the results of a batch.
type BatchResult struct {
	IsValid      bool     `json:"isValid"`
	Results      []Result `json:"results"`
	ValidCount   int      `json:"validCount"`
	InvalidCount int      `json:"invalidCount"`
	TotalCount   int      `json:"totalCount"`
	// Errors holds batch level problems such as NO_DATA.
	Errors []Issue `json:"errors,omitempty"`
}

// AllErrors flattens batch and per-record errors.
func (b BatchResult) AllErrors() []Issue {
	out := append([]Issue(nil), b.Errors...)
	for _, r := range b.Results {
		out = append(out, r.Errors...)
	}
	return out
}

// AllWarnings flattens per-record warnings.
func (b BatchResult) AllWarnings() []Issue {
	var out []Issue
	for _, r := range b.Results {
		out = append(out, r.Warnings...)
	}
	return out
}

// DuplicateCount counts results flagged as duplicates.
func (b BatchResult) DuplicateCount() int {
	n := 0
	for _, r := range b.Results {
		if r.Duplicate != nil {
			n++
		}
	}
	return n
}

// collector accumulates issues for one record.
type collector struct {
	index    int
	errors   []Issue
	warnings []Issue
}

func (c *collector) fail(field, code, format string, args ...any) {
	c.errors = append(c.errors, Issue{Index: c.index, Field: field, Code: code, Message: fmt.Sprintf(format, args...)})
}

func (c *collector) warn(field, code, format string, args ...any) {
	c.warnings = append(c.warnings, Issue{Index: c.index, Field: field, Code: code, Message: fmt.Sprintf(format, args...)})
}

func (c *collector) result() Result {
	return Result{
		Index:    c.index,
		IsValid:  len(c.errors) == 0,
		Errors:   c.errors,
		Warnings: c.warnings,
	}
}

// Earning validates one earning candidate.
func Earning(c record.Candidate, index int) Result {
	col := &collector{index: index}

	// nodeId: required string, shape mismatch only warns
	switch v := c[record.FieldNodeID].(type) {
	case nil:
		col.fail(record.FieldNodeID, ErrMissingField, "nodeId is required")
	case string:
		nodeID, _ := c.String(record.FieldNodeID)
		if nodeID == "" {
			col.fail(record.FieldNodeID, ErrMissingField, "nodeId is required")
		} else if !record.LooksLikeNodeID(nodeID) {
			col.warn(record.FieldNodeID, WarnNodeIDFormat, "nodeId %q does not look like a 0x node address", nodeID)
		}
	default:
		col.fail(record.FieldNodeID, ErrInvalidType, "nodeId must be a string, got %T", v)
	}

	// amount: required, numeric, >= 0
	if !c.Has(record.FieldAmount) {
		col.fail(record.FieldAmount, ErrMissingField, "amount is required")
	} else if s, isString := c[record.FieldAmount].(string); isString && s == "" {
		col.fail(record.FieldAmount, ErrMissingField, "amount is required")
	} else {
		amount, err := record.ParseAmount(c[record.FieldAmount])
		switch {
		case err != nil:
			col.fail(record.FieldAmount, ErrInvalidAmount, "%v", err)
		case math.IsNaN(amount) || math.IsInf(amount, 0):
			col.fail(record.FieldAmount, ErrInvalidAmount, "amount must be a finite number")
		case amount < 0:
			col.fail(record.FieldAmount, ErrNegativeAmount, "amount must not be negative, got %v", amount)
		case amount == 0:
			col.warn(record.FieldAmount, WarnZeroAmount, "amount is zero")
		}
	}

	// date: required, normalizable
	switch v := c[record.FieldDate].(type) {
	case nil:
		col.fail(record.FieldDate, ErrMissingField, "date is required")
	case string:
		date, _ := c.String(record.FieldDate)
		if date == "" {
			col.fail(record.FieldDate, ErrMissingField, "date is required")
		} else if _, err := record.NormalizeDate(date); err != nil {
			col.fail(record.FieldDate, ErrInvalidDate, "%v", err)
		}
	default:
		col.fail(record.FieldDate, ErrInvalidType, "date must be a string, got %T", v)
	}

	// status, licenseType: optional strings
	if c.Has(record.FieldStatus) {
		if s, ok := c.String(record.FieldStatus); !ok {
			col.fail(record.FieldStatus, ErrInvalidType, "status must be a string, got %T", c[record.FieldStatus])
		} else if s != "" && !record.ValidEarningStatuses[record.EarningStatus(lower(s))] {
			col.fail(record.FieldStatus, ErrInvalidStatus, "unknown status %q: must be completed, pending, failed or processing", s)
		}
	}
	if c.Has(record.FieldLicenseType) {
		if _, ok := c.String(record.FieldLicenseType); !ok {
			col.fail(record.FieldLicenseType, ErrInvalidType, "licenseType must be a string, got %T", c[record.FieldLicenseType])
		}
	}

	return col.result()
}

// Earnings validates a batch of earning candidates.
func Earnings(cs []record.Candidate) BatchResult {
	if len(cs) == 0 {
		return noData()
	}
	results := make([]Result, len(cs))
	for i, c := range cs {
		results[i] = Earning(c, i)
	}
	return aggregate(results)
}

func noData() BatchResult {
	return BatchResult{
		IsValid: false,
		Results: []Result{},
		Errors:  []Issue{{Index: -1, Code: ErrNoData, Message: "no data to import"}},
	}
}

func aggregate(results []Result) BatchResult {
	b := BatchResult{Results: results, TotalCount: len(results)}
	for _, r := range results {
		if r.IsValid {
			b.ValidCount++
		} else {
			b.InvalidCount++
		}
	}
	b.IsValid = b.InvalidCount == 0
	return b
}
