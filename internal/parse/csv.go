package parse

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/roach88/nodeledger/internal/record"
)

// ColumnMap holds the column index of each earning field. Optional fields
// are -1 when absent.
type ColumnMap struct {
	Date   int `json:"date"`
	NodeID int `json:"nodeId"`
	Amount int `json:"amount"`
	Status int `json:"status"`
	Type   int `json:"licenseType"`
}

func (m ColumnMap) minColumns() int {
	return max(m.Date, m.NodeID, m.Amount) + 1
}

// columnRule matches a header cell to a field. Fallback keywords are only
// tried once every rule has had its keywords, against the columns left.
type columnRule struct {
	field    string
	required bool
	keywords []string
	fallback []string
}

// Order matters: earlier rules claim columns first.
var earningRules = []columnRule{
	{record.FieldDate, true, []string{"date"}, nil},
	{record.FieldNodeID, true, []string{"node", "address", "device", "license id"}, []string{"id"}},
	{record.FieldAmount, true, []string{"amount", "earning", "reward"}, nil},
	{record.FieldStatus, false, []string{"status"}, nil},
	{record.FieldLicenseType, false, []string{"type", "tier"}, nil},
}

// DetectColumns locates earning columns by case-insensitive substring match
// on the header. Detection fails outright if date, node or amount is
// missing; there is no partial inference.
func DetectColumns(header []string) (ColumnMap, error) {
	cells := make([]string, len(header))
	for i, h := range header {
		cells[i] = strings.ToLower(strings.TrimSpace(h))
	}

	found := map[string]int{}
	used := map[int]bool{}
	claim := func(rule columnRule, keywords []string) {
		for _, kw := range keywords {
			for i, cell := range cells {
				if !used[i] && strings.Contains(cell, kw) {
					used[i] = true
					found[rule.field] = i
					return
				}
			}
		}
	}
	for _, rule := range earningRules {
		claim(rule, rule.keywords)
	}
	for _, rule := range earningRules {
		if _, ok := found[rule.field]; !ok {
			claim(rule, rule.fallback)
		}
	}

	var missing []string
	for _, rule := range earningRules {
		if _, ok := found[rule.field]; rule.required && !ok {
			missing = append(missing, rule.field)
		}
	}
	if len(missing) > 0 {
		return ColumnMap{}, fmt.Errorf("%w: missing %s", ErrColumnsNotDetected, strings.Join(missing, ", "))
	}
	return columnMap(found), nil
}

// ColumnsFromNames builds a ColumnMap from an explicit field to header name
// mapping, e.g. {"date": "Paid On", "nodeId": "Device", "amount": "USD"}.
// Header names compare case-insensitively.
func ColumnsFromNames(header []string, names map[string]string) (ColumnMap, error) {
	found := map[string]int{}
	for field, name := range names {
		idx := -1
		for i, h := range header {
			if strings.EqualFold(strings.TrimSpace(h), strings.TrimSpace(name)) {
				idx = i
				break
			}
		}
		if idx < 0 {
			return ColumnMap{}, fmt.Errorf("%w: header has no column %q for %s", ErrColumnsNotDetected, name, field)
		}
		found[field] = idx
	}

	var missing []string
	for _, rule := range earningRules {
		if _, ok := found[rule.field]; rule.required && !ok {
			missing = append(missing, rule.field)
		}
	}
	if len(missing) > 0 {
		return ColumnMap{}, fmt.Errorf("%w: no mapping for %s", ErrColumnsNotDetected, strings.Join(missing, ", "))
	}
	return columnMap(found), nil
}

func columnMap(found map[string]int) ColumnMap {
	get := func(field string) int {
		if i, ok := found[field]; ok {
			return i
		}
		return -1
	}
	return ColumnMap{
		Date:   get(record.FieldDate),
		NodeID: get(record.FieldNodeID),
		Amount: get(record.FieldAmount),
		Status: get(record.FieldStatus),
		Type:   get(record.FieldLicenseType),
	}
}

// EarningsCSV reads earning candidates from CSV with a header row. When
// cols is nil the columns are detected from the header. Values are passed
// through raw; dates and amounts are checked by the validator.
func EarningsCSV(r io.Reader, cols *ColumnMap) (Result, error) {
	reader := newCSVReader(r)

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return Result{}, ErrEmptyInput
	}
	if err != nil {
		return Result{}, fmt.Errorf("read csv header: %w", err)
	}

	var m ColumnMap
	if cols != nil {
		m = *cols
	} else if m, err = DetectColumns(header); err != nil {
		return Result{}, err
	}

	var res Result
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Result{}, fmt.Errorf("read csv: %w", err)
		}
		line, _ := reader.FieldPos(0)
		if blankRow(row) {
			continue
		}
		if len(row) < m.minColumns() {
			res.reject(line, strings.Join(row, ","),
				fmt.Sprintf("row has %d columns, expected at least %d", len(row), m.minColumns()))
			continue
		}

		c := record.Candidate{
			record.FieldDate:   strings.TrimSpace(row[m.Date]),
			record.FieldNodeID: strings.TrimSpace(row[m.NodeID]),
			record.FieldAmount: strings.TrimSpace(row[m.Amount]),
		}
		if v := cell(row, m.Status); v != "" {
			c[record.FieldStatus] = v
		}
		if v := cell(row, m.Type); v != "" {
			c[record.FieldLicenseType] = v
		}
		res.add(c)
	}
	return res, nil
}

// LicenseColumns maps normalized header cells to license fields.
type LicenseColumns map[string]string

// DefaultLicenseColumns holds the header aliases accepted without an
// explicit mapping.
var DefaultLicenseColumns = LicenseColumns{
	"license id":       record.FieldLicenseID,
	"licenseid":        record.FieldLicenseID,
	"license":          record.FieldLicenseID,
	"address":          record.FieldLicenseID,
	"status":           record.FieldStatus,
	"notes":            record.FieldNotes,
	"note":             record.FieldNotes,
	"phone":            record.FieldPhoneID,
	"phone id":         record.FieldPhoneID,
	"phoneid":          record.FieldPhoneID,
	"bound":            record.FieldIsBound,
	"is bound":         record.FieldIsBound,
	"isbound":          record.FieldIsBound,
	"last active":      record.FieldLastActive,
	"lastactive":       record.FieldLastActive,
	"downtime days":    record.FieldDowntimeDays,
	"customer":         record.FieldCustomerName,
	"customer name":    record.FieldCustomerName,
	"customername":     record.FieldCustomerName,
	"contact":          record.FieldCustomerContact,
	"customer contact": record.FieldCustomerContact,
	"start date":       record.FieldLeaseStart,
	"lease start":      record.FieldLeaseStart,
	"startdate":        record.FieldLeaseStart,
	"duration":         record.FieldLeaseDuration,
	"duration months":  record.FieldLeaseDuration,
	"durationmonths":   record.FieldLeaseDuration,
	"revenue share":    record.FieldRevenueShare,
	"revenueshare":     record.FieldRevenueShare,
	"share":            record.FieldRevenueShare,
	"fee":              record.FieldFee,
	"created at":       record.FieldCreatedAt,
	"createdat":        record.FieldCreatedAt,
	"updated at":       record.FieldUpdatedAt,
	"updatedat":        record.FieldUpdatedAt,
}

// placeholders are the values exports write for missing fields.
var placeholders = map[string]bool{"n/a": true, "unmapped": true}

// LicensesCSV reads license candidates using an explicit header map. A nil
// map means DefaultLicenseColumns. Unknown columns are ignored; empty cells
// and export placeholders such as N/A are omitted.
func LicensesCSV(r io.Reader, cols LicenseColumns) (Result, error) {
	if cols == nil {
		cols = DefaultLicenseColumns
	}
	reader := newCSVReader(r)

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return Result{}, ErrEmptyInput
	}
	if err != nil {
		return Result{}, fmt.Errorf("read csv header: %w", err)
	}

	fields := make([]string, len(header))
	hasID := false
	for i, h := range header {
		fields[i] = cols[normalizeHeader(h)]
		if fields[i] == record.FieldLicenseID {
			hasID = true
		}
	}
	if !hasID {
		return Result{}, fmt.Errorf("%w: missing %s", ErrColumnsNotDetected, record.FieldLicenseID)
	}

	var res Result
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Result{}, fmt.Errorf("read csv: %w", err)
		}
		line, _ := reader.FieldPos(0)
		if blankRow(row) {
			continue
		}

		c := record.Candidate{}
		for i, v := range row {
			if i >= len(fields) || fields[i] == "" {
				continue
			}
			if v = strings.TrimSpace(v); v != "" && !placeholders[strings.ToLower(v)] {
				c[fields[i]] = v
			}
		}
		if !c.Present(record.FieldLicenseID) {
			res.reject(line, strings.Join(row, ","), "no license id")
			continue
		}
		res.add(c)
	}
	return res, nil
}

func newCSVReader(r io.Reader) *csv.Reader {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	return reader
}

// normalizeHeader lower-cases a header cell and folds '_' and '-' into
// single spaces.
func normalizeHeader(h string) string {
	h = strings.ToLower(h)
	h = strings.NewReplacer("_", " ", "-", " ").Replace(h)
	return strings.Join(strings.Fields(h), " ")
}

// cell returns an optional cell, treating export placeholders as empty.
func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	v := strings.TrimSpace(row[idx])
	if placeholders[strings.ToLower(v)] {
		return ""
	}
	return v
}

func blankRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
