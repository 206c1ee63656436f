package record

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Candidate is a parsed but not yet validated record. Keys are the JSON
// field names of Earning or License; values are whatever the source format
// decoded (strings from CSV and text, numbers and nested maps from JSON).
type Candidate map[string]any

// Earning field names.
const (
	FieldID          = "id"
	FieldNodeID      = "nodeId"
	FieldLicenseType = "licenseType"
	FieldAmount      = "amount"
	FieldDate        = "date"
	FieldStatus      = "status"
	FieldTimestamp   = "timestamp"
)

// License field names. Flat lease and binding fields are accepted from CSV;
// JSON carries the nested leaseInfo and bindingInfo objects.
const (
	FieldLicenseID       = "licenseId"
	FieldNotes           = "notes"
	FieldLeaseInfo       = "leaseInfo"
	FieldBindingInfo     = "bindingInfo"
	FieldCreatedAt       = "createdAt"
	FieldUpdatedAt       = "updatedAt"
	FieldPhoneID         = "phoneId"
	FieldIsBound         = "isBound"
	FieldLastActive      = "lastActive"
	FieldDowntimeDays    = "downtimeDays"
	FieldCustomerName    = "customerName"
	FieldCustomerContact = "customerContact"
	FieldLeaseStart      = "startDate"
	FieldLeaseDuration   = "durationMonths"
	FieldRevenueShare    = "revenueShare"
	FieldFee             = "fee"
)

// Has reports whether field is present with a non-nil value.
func (c Candidate) Has(field string) bool {
	v, ok := c[field]
	return ok && v != nil
}

// Present reports whether field carries a usable value: non-nil and, for
// strings, not blank.
func (c Candidate) Present(field string) bool {
	if !c.Has(field) {
		return false
	}
	if s, ok := c[field].(string); ok {
		return strings.TrimSpace(s) != ""
	}
	return true
}

// String returns the trimmed string value of field. ok is false when the
// field is absent or not a string.
func (c Candidate) String(field string) (string, bool) {
	v, present := c[field]
	if !present || v == nil {
		return "", false
	}
	s, ok := v.(string)
	if !ok {
		return "", false
	}
	return strings.TrimSpace(s), true
}

// ToEarning converts a validated candidate into an Earning. The id is kept
// when the candidate carries one; callers decide whether to replace it.
func ToEarning(c Candidate) (Earning, error) {
	nodeID, ok := c.String(FieldNodeID)
	if !ok || nodeID == "" {
		return Earning{}, NewFormatError("to earning", "nodeId is required")
	}
	amount, err := ParseAmount(c[FieldAmount])
	if err != nil {
		return Earning{}, &Error{Kind: KindFormat, Op: "to earning", Err: err}
	}
	if amount < 0 || math.IsNaN(amount) || math.IsInf(amount, 0) {
		return Earning{}, NewFormatError("to earning", fmt.Sprintf("amount must be a non-negative number, got %v", amount))
	}
	rawDate, ok := c.String(FieldDate)
	if !ok {
		return Earning{}, NewFormatError("to earning", "date is required")
	}
	date, err := NormalizeDate(rawDate)
	if err != nil {
		return Earning{}, &Error{Kind: KindFormat, Op: "to earning", Err: err}
	}
	ts, err := DateTimestamp(date)
	if err != nil {
		return Earning{}, &Error{Kind: KindFormat, Op: "to earning", Err: err}
	}

	status := StatusCompleted
	if s, ok := c.String(FieldStatus); ok && s != "" {
		status = EarningStatus(strings.ToLower(s))
	}
	if !ValidEarningStatuses[status] {
		return Earning{}, NewFormatError("to earning", fmt.Sprintf("unknown status %q", status))
	}

	e := Earning{
		NodeID: nodeID,
		Amount: amount,
		Date:   date,
		Status: status,
		// Timestamp is always derived from the date, never trusted from input.
		Timestamp: ts,
	}
	if id, ok := c.String(FieldID); ok {
		e.ID = id
	}
	if lt, ok := c.String(FieldLicenseType); ok {
		e.LicenseType = lt
	}
	return e, nil
}

// FromEarning converts an Earning back into a candidate.
func FromEarning(e Earning) Candidate {
	c := Candidate{
		FieldID:        e.ID,
		FieldNodeID:    e.NodeID,
		FieldAmount:    e.Amount,
		FieldDate:      e.Date,
		FieldStatus:    string(e.Status),
		FieldTimestamp: e.Timestamp,
	}
	if e.LicenseType != "" {
		c[FieldLicenseType] = e.LicenseType
	}
	return c
}

// ToLicense converts a validated candidate into a License. Missing
// timestamps default to now; missing status defaults to available.
func ToLicense(c Candidate, now time.Time) (License, error) {
	rawID, ok := c.String(FieldLicenseID)
	if !ok {
		return License{}, NewFormatError("to license", "licenseId is required")
	}
	id, err := ValidateAndNormalizeAddress(rawID)
	if err != nil {
		return License{}, &Error{Kind: KindFormat, Op: "to license", Err: err}
	}

	status := LicenseAvailable
	if s, ok := c.String(FieldStatus); ok && s != "" {
		status = LicenseStatus(strings.ToLower(s))
	}
	if !ValidLicenseStatuses[status] {
		return License{}, NewFormatError("to license", fmt.Sprintf("unknown license status %q", status))
	}

	lic := License{
		LicenseID: id,
		Status:    status,
		CreatedAt: timeField(c, FieldCreatedAt, now),
		UpdatedAt: timeField(c, FieldUpdatedAt, now),
	}
	if notes, ok := c.String(FieldNotes); ok {
		lic.Notes = notes
	}

	binding := c
	if nested, ok := c[FieldBindingInfo].(map[string]any); ok {
		binding = Candidate(nested)
	}
	lic.BindingInfo.IsBound = boolField(binding[FieldIsBound])
	if phone, ok := binding.String(FieldPhoneID); ok {
		lic.BindingInfo.PhoneID = phone
	}
	if binding.Has(FieldLastActive) {
		t := timeField(binding, FieldLastActive, time.Time{})
		if !t.IsZero() {
			lic.BindingInfo.LastActive = &t
		}
	}
	if binding.Has(FieldDowntimeDays) {
		if n, err := intField(binding[FieldDowntimeDays]); err == nil {
			lic.BindingInfo.DowntimeDays = n
		}
	}

	if status.IsLeased() {
		lease := c
		if nested, ok := c[FieldLeaseInfo].(map[string]any); ok {
			lease = Candidate(nested)
		}
		info, err := leaseFromCandidate(lease)
		if err != nil {
			return License{}, err
		}
		lic.LeaseInfo = info
	}
	return lic, nil
}

// FromLicense converts a License back into a candidate with nested
// leaseInfo and bindingInfo objects.
func FromLicense(l License) Candidate {
	binding := map[string]any{
		FieldIsBound:      l.BindingInfo.IsBound,
		FieldDowntimeDays: l.BindingInfo.DowntimeDays,
	}
	if l.BindingInfo.PhoneID != "" {
		binding[FieldPhoneID] = l.BindingInfo.PhoneID
	}
	if l.BindingInfo.LastActive != nil {
		binding[FieldLastActive] = l.BindingInfo.LastActive.Format(time.RFC3339Nano)
	}
	c := Candidate{
		FieldLicenseID:   l.LicenseID,
		FieldStatus:      string(l.Status),
		FieldNotes:       l.Notes,
		FieldBindingInfo: binding,
		FieldCreatedAt:   l.CreatedAt.Format(time.RFC3339Nano),
		FieldUpdatedAt:   l.UpdatedAt.Format(time.RFC3339Nano),
	}
	if l.LeaseInfo != nil {
		c[FieldLeaseInfo] = map[string]any{
			FieldCustomerName:    l.LeaseInfo.CustomerName,
			FieldCustomerContact: l.LeaseInfo.CustomerContact,
			FieldLeaseStart:      l.LeaseInfo.StartDate,
			FieldLeaseDuration:   l.LeaseInfo.DurationMonths,
			FieldRevenueShare:    l.LeaseInfo.RevenueShare,
			FieldFee:             l.LeaseInfo.Fee,
		}
	}
	return c
}

func leaseFromCandidate(c Candidate) (*LeaseInfo, error) {
	info := &LeaseInfo{}
	if s, ok := c.String(FieldCustomerName); ok {
		info.CustomerName = s
	}
	if s, ok := c.String(FieldCustomerContact); ok {
		info.CustomerContact = s
	}
	if s, ok := c.String(FieldLeaseStart); ok && s != "" {
		d, err := NormalizeDate(s)
		if err != nil {
			return nil, &Error{Kind: KindFormat, Op: "to license", Message: "lease start", Err: err}
		}
		info.StartDate = d
	}
	if c.Present(FieldLeaseDuration) {
		n, err := intField(c[FieldLeaseDuration])
		if err != nil {
			return nil, &Error{Kind: KindFormat, Op: "to license", Message: "lease duration", Err: err}
		}
		info.DurationMonths = n
	}
	if c.Present(FieldRevenueShare) {
		v, err := ParseAmount(trimPercent(c[FieldRevenueShare]))
		if err != nil {
			return nil, &Error{Kind: KindFormat, Op: "to license", Message: "revenue share", Err: err}
		}
		info.RevenueShare = v
	}
	if c.Present(FieldFee) {
		v, err := ParseAmount(c[FieldFee])
		if err != nil {
			return nil, &Error{Kind: KindFormat, Op: "to license", Message: "fee", Err: err}
		}
		info.Fee = v
	}
	return info, nil
}

func trimPercent(v any) any {
	if s, ok := v.(string); ok {
		return strings.TrimSuffix(strings.TrimSpace(s), "%")
	}
	return v
}

func boolField(v any) bool {
	switch b := v.(type) {
	case bool:
		return b
	case string:
		switch strings.ToLower(strings.TrimSpace(b)) {
		case "true", "yes", "y", "1", "bound":
			return true
		}
	}
	return false
}

func intField(v any) (int, error) {
	switch n := v.(type) {
	case string:
		s := strings.TrimSpace(n)
		if s == "" {
			return 0, nil
		}
		i, err := strconv.Atoi(s)
		if err != nil {
			return 0, fmt.Errorf("invalid integer %q", n)
		}
		return i, nil
	default:
		f, err := ParseAmount(v)
		if err != nil {
			return 0, err
		}
		return int(f), nil
	}
}

func timeField(c Candidate, field string, def time.Time) time.Time {
	s, ok := c.String(field)
	if !ok || s == "" {
		return def
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC()
	}
	if t, err := ParseDate(s); err == nil {
		return t
	}
	return def
}
