package export

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/Rhymond/go-money"
	md "github.com/nao1215/markdown"
	"github.com/shopspring/decimal"

	"github.com/roach88/nodeledger/internal/record"
	"github.com/roach88/nodeledger/internal/stats"
)

// Currency is the currency amounts are displayed in.
const Currency = money.USD

// RecentLimit caps the recent transactions table.
const RecentLimit = 10

// Markdown writes the human readable report: a summary table, a table
// grouped by license type, and the most recent transactions.
func Markdown(w io.Writer, earnings []record.Earning, licenses record.LicenseSet, now time.Time) error {
	_, err := io.WriteString(w, MarkdownString(earnings, licenses, now))
	return err
}

// MarkdownString renders the report to a string.
func MarkdownString(earnings []record.Earning, licenses record.LicenseSet, now time.Time) string {
	es := stats.Earnings(earnings, now)
	ls := stats.Licenses(licenses)

	var buf bytes.Buffer
	doc := md.NewMarkdown(&buf)

	doc.H1("Node Earnings Report")
	doc.PlainText(fmt.Sprintf("Generated %s", now.UTC().Format(time.RFC3339)))

	doc.H2("Summary")
	period := NotAvailable
	if es.FirstDate != "" {
		period = es.FirstDate + " to " + es.LastDate
	}
	doc.Table(md.TableSet{
		Header: []string{"Metric", "Value"},
		Rows: [][]string{
			{"Total earnings", Money(es.Total)},
			{"Transactions", strconv.Itoa(es.Count)},
			{"Average per transaction", Money(es.Average)},
			{"Last 24 hours", Money(es.Last24h)},
			{"Nodes", strconv.Itoa(es.UniqueNodes)},
			{"Period", period},
			{"Licenses", fmt.Sprintf("%d (%d bound, %d unbound)", ls.Total, ls.Bound, ls.Unbound)},
		},
	})

	doc.H2("Earnings by License Type")
	typeRows := [][]string{}
	for _, r := range es.TypesByTotal() {
		typeRows = append(typeRows, []string{r.Type, strconv.Itoa(r.Count), Money(r.Total)})
	}
	doc.Table(md.TableSet{Header: []string{"License Type", "Transactions", "Total"}, Rows: typeRows})

	doc.H2("Recent Transactions")
	recent := make([]record.Earning, len(earnings))
	copy(recent, earnings)
	record.SortEarnings(recent)
	if len(recent) > RecentLimit {
		recent = recent[:RecentLimit]
	}
	recentRows := [][]string{}
	for _, e := range recent {
		recentRows = append(recentRows, []string{e.Date, e.NodeID, or(e.LicenseType, Unmapped), Money(e.Amount), string(e.Status)})
	}
	doc.Table(md.TableSet{Header: []string{"Date", "Node", "License Type", "Amount", "Status"}, Rows: recentRows})

	return doc.String()
}

// Money formats an amount in Currency ("$1,204.50").
func Money(amount float64) string {
	cur := money.GetCurrency(Currency)
	factor := decimal.New(1, int32(cur.Fraction))
	minor := decimal.NewFromFloat(amount).Mul(factor).Round(0).IntPart()
	return money.New(minor, Currency).Display()
}
