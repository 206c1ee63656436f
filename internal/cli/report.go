package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"github.com/roach88/nodeledger/internal/export"
	"github.com/roach88/nodeledger/internal/ledger"
)

// ReportOptions holds flags for the report command.
type ReportOptions struct {
	*RootOptions
	Pretty bool
	Width  int
}

// NewReportCommand creates the report command.
func NewReportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print the earnings report",
		Long: `Print the earnings report as Markdown: a summary, totals by license
type and the most recent transactions.

With --pretty the Markdown is rendered for the terminal.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReport(opts, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Pretty, "pretty", false, "render the Markdown for the terminal")
	cmd.Flags().IntVar(&opts.Width, "width", 100, "word wrap width for --pretty")
	return cmd
}

func runReport(opts *ReportOptions, cmd *cobra.Command) error {
	return opts.withSession(func(ctx context.Context, s *session) error {
		snap, err := s.ledger.Snapshot(ctx)
		if err != nil {
			return err
		}
		doc := export.MarkdownString(snap.Earnings, snap.Licenses, snap.ExportedAt)

		f := opts.formatter(cmd)
		if f.Format == "json" {
			return f.Success(map[string]string{"markdown": doc})
		}
		if !opts.Pretty {
			fmt.Fprint(cmd.OutOrStdout(), doc)
			return nil
		}

		r, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(opts.Width),
		)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to create renderer", err)
		}
		out, err := r.Render(doc)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to render report", err)
		}
		fmt.Fprint(cmd.OutOrStdout(), out)
		return nil
	})
}

// NewStatsCommand creates the stats command.
func NewStatsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "stats",
		Short:         "Show earnings and license statistics",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats(rootOpts, cmd)
		},
	}
	return cmd
}

func runStats(opts *RootOptions, cmd *cobra.Command) error {
	return opts.withSession(func(ctx context.Context, s *session) error {
		es, err := s.ledger.EarningsStats(ctx)
		if err != nil {
			return err
		}
		ls, err := s.ledger.LicenseStats(ctx)
		if err != nil {
			return err
		}

		f := opts.formatter(cmd)
		if f.Format == "json" {
			return f.Success(map[string]any{"earnings": es, "licenses": ls})
		}

		period := export.NotAvailable
		if es.FirstDate != "" {
			period = es.FirstDate + " to " + es.LastDate
		}
		f.Table([]string{"Earnings", "Value"}, [][]string{
			{"Total", export.Money(es.Total)},
			{"Transactions", strconv.Itoa(es.Count)},
			{"Average", export.Money(es.Average)},
			{"Last 24 hours", export.Money(es.Last24h)},
			{"Nodes", strconv.Itoa(es.UniqueNodes)},
			{"Period", period},
		})
		fmt.Fprintln(f.Writer)

		rows := make([][]string, 0, len(es.ByType))
		for _, row := range es.TypesByTotal() {
			rows = append(rows, []string{row.Type, strconv.Itoa(row.Count), export.Money(row.Total)})
		}
		f.Table([]string{"License type", "Count", "Total"}, rows)
		fmt.Fprintln(f.Writer)

		f.Table([]string{"Licenses", "Value"}, [][]string{
			{"Total", strconv.Itoa(ls.Total)},
			{"Bound", strconv.Itoa(ls.Bound)},
			{"Unbound", strconv.Itoa(ls.Unbound)},
			{"Leased", strconv.Itoa(ls.Leased)},
			{"Lease fees", export.Money(ls.LeaseFees)},
			{"Average revenue share", fmt.Sprintf("%.1f%%", ls.AverageRevenueShare)},
			{"Downtime days", strconv.Itoa(ls.DowntimeDays)},
		})
		return nil
	})
}

// UnboundOptions holds flags for the unbound command.
type UnboundOptions struct {
	*RootOptions
	Days int
}

// NewUnboundCommand creates the unbound command.
func NewUnboundCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &UnboundOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "unbound",
		Short: "List licenses whose node stopped earning",
		Long: `List licenses with no earning for more than --days days, and licenses
that never earned. The stored binding flag is shown but not changed.

Examples:
  nodeledger unbound
  nodeledger unbound --days 7 --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUnbound(opts, cmd)
		},
	}

	cmd.Flags().IntVar(&opts.Days, "days", 0, "dormancy threshold in days (default from config)")
	return cmd
}

func runUnbound(opts *UnboundOptions, cmd *cobra.Command) error {
	return opts.withSession(func(ctx context.Context, s *session) error {
		days := opts.Days
		if days <= 0 {
			days = s.cfg.DormantDays
		}
		list, err := s.ledger.UnboundLicenses(ctx, days)
		if err != nil {
			return err
		}

		f := opts.formatter(cmd)
		if f.Format == "json" {
			return f.Success(map[string]any{"days": days, "licenses": list})
		}
		if len(list) == 0 {
			fmt.Fprintf(f.Writer, "All licenses earned within %d day(s)\n", days)
			return nil
		}
		f.Table([]string{"License", "Status", "Bound", "Last earning", "Days since", "Earnings"}, unboundRows(list))
		return nil
	})
}

func unboundRows(list []ledger.UnboundLicense) [][]string {
	rows := make([][]string, 0, len(list))
	for _, u := range list {
		last, since := u.LastEarning, strconv.Itoa(u.DaysSince)
		if u.NeverEarned {
			last, since = "never", export.NotAvailable
		}
		rows = append(rows, []string{
			u.LicenseID,
			string(u.Status),
			strconv.FormatBool(u.IsBound),
			last,
			since,
			strconv.Itoa(u.EarningCount),
		})
	}
	return rows
}
