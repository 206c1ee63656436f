package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/roach88/nodeledger/internal/record"
)

const (
	// Unmapped fills a missing license type.
	Unmapped = "Unmapped"
	// NotAvailable fills any other missing optional field.
	NotAvailable = "N/A"
)

var earningsHeader = []string{"ID", "Date", "Node ID", "License Type", "Amount", "Status"}

// EarningsCSV writes one row per earning in the given order.
func EarningsCSV(w io.Writer, earnings []record.Earning) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(earningsHeader); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	for _, e := range earnings {
		row := []string{
			orNA(e.ID),
			e.Date,
			e.NodeID,
			or(e.LicenseType, Unmapped),
			record.FormatAmount(e.Amount),
			orNA(string(e.Status)),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

var licensesHeader = []string{
	"License ID", "Status", "Bound", "Phone ID", "Last Active", "Downtime Days",
	"Customer Name", "Customer Contact", "Start Date", "Duration Months",
	"Revenue Share", "Fee", "Notes", "Created At", "Updated At",
}

// LicensesCSV writes one row per license ordered by id. The header names
// are understood by the license CSV importer.
func LicensesCSV(w io.Writer, licenses record.LicenseSet) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(licensesHeader); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	for _, l := range licenses.Sorted() {
		b := l.BindingInfo
		lastActive := NotAvailable
		if b.LastActive != nil {
			lastActive = b.LastActive.UTC().Format(time.RFC3339)
		}
		lease := []string{NotAvailable, NotAvailable, NotAvailable, NotAvailable, NotAvailable, NotAvailable}
		if li := l.LeaseInfo; li != nil {
			lease = []string{
				orNA(li.CustomerName),
				orNA(li.CustomerContact),
				orNA(li.StartDate),
				strconv.Itoa(li.DurationMonths),
				strconv.FormatFloat(li.RevenueShare, 'f', -1, 64),
				record.FormatAmount(li.Fee),
			}
		}
		row := []string{
			l.LicenseID,
			string(l.Status),
			strconv.FormatBool(b.IsBound),
			orNA(b.PhoneID),
			lastActive,
			strconv.Itoa(b.DowntimeDays),
		}
		row = append(row, lease...)
		row = append(row,
			orNA(l.Notes),
			timeOrNA(l.CreatedAt),
			timeOrNA(l.UpdatedAt),
		)
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func or(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func orNA(s string) string {
	return or(s, NotAvailable)
}

func timeOrNA(t time.Time) string {
	if t.IsZero() {
		return NotAvailable
	}
	return t.UTC().Format(time.RFC3339)
}
