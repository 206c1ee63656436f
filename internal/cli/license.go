package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/nodeledger/internal/export"
	"github.com/roach88/nodeledger/internal/license"
	"github.com/roach88/nodeledger/internal/record"
)

// LicenseOptions holds flags for the license commands.
type LicenseOptions struct {
	*RootOptions
	Status string
	Notes  string
	Phone  string
	Days   int

	// Lease details for leased statuses.
	Customer     string
	Contact      string
	LeaseStart   string
	Duration     int
	RevenueShare float64
	Fee          float64
}

// NewLicenseCommand creates the license command group.
func NewLicenseCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "license",
		Aliases: []string{"licenses"},
		Short:   "Manage the license inventory",
		Long: `Manage the license inventory.

A license is identified by its node address (0x followed by 40 hex
digits). Its status is one of self-run, leased-bound, leased-unbound or
available. Binding is updated automatically when the node earns, and can
be set by hand with bind and unbind.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.AddCommand(newLicenseAddCommand(rootOpts))
	cmd.AddCommand(newLicenseListCommand(rootOpts))
	cmd.AddCommand(newLicenseShowCommand(rootOpts))
	cmd.AddCommand(newLicenseStatusCommand(rootOpts))
	cmd.AddCommand(newLicenseBindCommand(rootOpts, true))
	cmd.AddCommand(newLicenseBindCommand(rootOpts, false))
	cmd.AddCommand(newLicenseNoteCommand(rootOpts))
	cmd.AddCommand(newLicenseDeleteCommand(rootOpts))
	cmd.AddCommand(newLicensePatternCommand(rootOpts))
	return cmd
}

func addLeaseFlags(cmd *cobra.Command, opts *LicenseOptions) {
	cmd.Flags().StringVar(&opts.Customer, "customer", "", "lease customer name")
	cmd.Flags().StringVar(&opts.Contact, "contact", "", "lease customer contact")
	cmd.Flags().StringVar(&opts.LeaseStart, "lease-start", "", "lease start date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&opts.Duration, "duration", 0, "lease duration in months")
	cmd.Flags().Float64Var(&opts.RevenueShare, "revenue-share", 0, "percent of revenue kept by the customer")
	cmd.Flags().Float64Var(&opts.Fee, "fee", 0, "lease fee")
}

// lease builds lease info from the flags. It returns nil when no lease
// flag was given so the stored lease is kept.
func (o *LicenseOptions) lease(cmd *cobra.Command) (*record.LeaseInfo, error) {
	changed := false
	for _, name := range []string{"customer", "contact", "lease-start", "duration", "revenue-share", "fee"} {
		changed = changed || cmd.Flags().Changed(name)
	}
	if !changed {
		return nil, nil
	}
	info := &record.LeaseInfo{
		CustomerName:    strings.TrimSpace(o.Customer),
		CustomerContact: strings.TrimSpace(o.Contact),
		DurationMonths:  o.Duration,
		RevenueShare:    o.RevenueShare,
		Fee:             o.Fee,
	}
	if o.LeaseStart != "" {
		d, err := record.NormalizeDate(o.LeaseStart)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "invalid --lease-start", err)
		}
		info.StartDate = d
	}
	if info.RevenueShare < 0 || info.RevenueShare > 100 {
		return nil, NewExitError(ExitCommandError, "--revenue-share must be between 0 and 100")
	}
	return info, nil
}

func licenseStatus(s string) record.LicenseStatus {
	return record.LicenseStatus(strings.ToLower(strings.TrimSpace(s)))
}

func newLicenseAddCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LicenseOptions{RootOptions: rootOpts}
	cmd := &cobra.Command{
		Use:   "add <license-id>",
		Short: "Add a license to the inventory",
		Long: `Add a license to the inventory.

Examples:
  nodeledger license add 0x1a2b...c3d4 --status self-run
  nodeledger license add 0x1a2b...c3d4 --status leased-bound --customer Acme --fee 25 --revenue-share 30`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLicenseAdd(opts, cmd, args[0])
		},
	}
	cmd.Flags().StringVar(&opts.Status, "status", string(record.LicenseAvailable), "license status")
	cmd.Flags().StringVar(&opts.Notes, "notes", "", "free-form notes")
	cmd.Flags().StringVar(&opts.Phone, "phone", "", "phone or device id running the node")
	addLeaseFlags(cmd, opts)
	return cmd
}

func runLicenseAdd(opts *LicenseOptions, cmd *cobra.Command, id string) error {
	lease, err := opts.lease(cmd)
	if err != nil {
		return err
	}
	lic := record.License{
		LicenseID:   id,
		Status:      licenseStatus(opts.Status),
		LeaseInfo:   lease,
		BindingInfo: record.BindingInfo{PhoneID: strings.TrimSpace(opts.Phone)},
		Notes:       opts.Notes,
	}
	if lic.Status.IsLeased() && lic.LeaseInfo == nil {
		lic.LeaseInfo = &record.LeaseInfo{}
	}

	return opts.withSession(func(ctx context.Context, s *session) error {
		added, err := s.ledger.AddLicense(ctx, lic)
		if err != nil {
			return err
		}
		return printLicense(opts.formatter(cmd), "Added", added)
	})
}

func newLicenseListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LicenseOptions{RootOptions: rootOpts}
	cmd := &cobra.Command{
		Use:           "list",
		Short:         "List licenses",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLicenseList(opts, cmd)
		},
	}
	cmd.Flags().StringVar(&opts.Status, "status", "", "only licenses with this status")
	return cmd
}

func runLicenseList(opts *LicenseOptions, cmd *cobra.Command) error {
	return opts.withSession(func(ctx context.Context, s *session) error {
		set, err := s.ledger.LoadLicenses(ctx)
		if err != nil {
			return err
		}
		list := set.Sorted()
		if opts.Status != "" {
			want := licenseStatus(opts.Status)
			filtered := list[:0]
			for _, lic := range list {
				if lic.Status == want {
					filtered = append(filtered, lic)
				}
			}
			list = filtered
		}

		f := opts.formatter(cmd)
		if f.Format == "json" {
			return f.Success(list)
		}
		rows := make([][]string, 0, len(list))
		for _, lic := range list {
			customer := export.NotAvailable
			if lic.LeaseInfo != nil && lic.LeaseInfo.CustomerName != "" {
				customer = lic.LeaseInfo.CustomerName
			}
			rows = append(rows, []string{
				lic.LicenseID,
				string(lic.Status),
				strconv.FormatBool(lic.BindingInfo.IsBound),
				customer,
				strconv.Itoa(lic.BindingInfo.DowntimeDays),
			})
		}
		f.Table([]string{"License", "Status", "Bound", "Customer", "Downtime days"}, rows)
		return nil
	})
}

func newLicenseShowCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LicenseOptions{RootOptions: rootOpts}
	return &cobra.Command{
		Use:           "show <license-id>",
		Short:         "Show one license",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withSession(func(ctx context.Context, s *session) error {
				lic, err := s.ledger.License(ctx, args[0])
				if err != nil {
					return err
				}
				return printLicense(opts.formatter(cmd), "", lic)
			})
		},
	}
}

func newLicenseStatusCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LicenseOptions{RootOptions: rootOpts}
	cmd := &cobra.Command{
		Use:   "status <license-id> <status>",
		Short: "Change the status of a license",
		Long: `Change the status of a license. Moving to a non-leased status drops
the lease details; lease flags replace them for leased statuses.

Examples:
  nodeledger license status 0x1a2b...c3d4 leased-bound --customer Acme --fee 25
  nodeledger license status 0x1a2b...c3d4 self-run`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			lease, err := opts.lease(cmd)
			if err != nil {
				return err
			}
			return opts.withSession(func(ctx context.Context, s *session) error {
				lic, err := s.ledger.SetLicenseStatus(ctx, args[0], licenseStatus(args[1]), lease)
				if err != nil {
					return err
				}
				return printLicense(opts.formatter(cmd), "Updated", lic)
			})
		},
	}
	addLeaseFlags(cmd, opts)
	return cmd
}

func newLicenseBindCommand(rootOpts *RootOptions, bound bool) *cobra.Command {
	opts := &LicenseOptions{RootOptions: rootOpts}
	use, short := "bind", "Mark a license as bound"
	if !bound {
		use, short = "unbind", "Mark a license as unbound"
	}
	cmd := &cobra.Command{
		Use:           use + " <license-id>",
		Short:         short,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withSession(func(ctx context.Context, s *session) error {
				lic, err := s.ledger.SetLicenseBinding(ctx, args[0], bound, opts.Phone)
				if err != nil {
					return err
				}
				return printLicense(opts.formatter(cmd), "Updated", lic)
			})
		},
	}
	cmd.Flags().StringVar(&opts.Phone, "phone", "", "phone or device id running the node")
	return cmd
}

func newLicenseNoteCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LicenseOptions{RootOptions: rootOpts}
	return &cobra.Command{
		Use:           "note <license-id> <text>",
		Short:         "Replace the notes of a license",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			notes := args[1]
			return opts.withSession(func(ctx context.Context, s *session) error {
				lic, err := s.ledger.UpdateLicense(ctx, args[0], license.Patch{Notes: &notes})
				if err != nil {
					return err
				}
				return printLicense(opts.formatter(cmd), "Updated", lic)
			})
		},
	}
}

func newLicenseDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LicenseOptions{RootOptions: rootOpts}
	return &cobra.Command{
		Use:           "delete <license-id>",
		Short:         "Remove a license from the inventory",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withSession(func(ctx context.Context, s *session) error {
				if err := s.ledger.DeleteLicense(ctx, args[0]); err != nil {
					return err
				}
				f := opts.formatter(cmd)
				if f.Format == "json" {
					return f.Success(map[string]string{"deleted": record.NormalizeAddress(args[0])})
				}
				fmt.Fprintf(f.Writer, "Deleted license %s\n", record.NormalizeAddress(args[0]))
				return nil
			})
		},
	}
}

func newLicensePatternCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LicenseOptions{RootOptions: rootOpts}
	cmd := &cobra.Command{
		Use:           "pattern <license-id>",
		Short:         "Show daily earnings of a license",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withSession(func(ctx context.Context, s *session) error {
				p, err := s.ledger.LicenseEarningPattern(ctx, args[0], opts.Days)
				if err != nil {
					return err
				}
				f := opts.formatter(cmd)
				if f.Format == "json" {
					return f.Success(p)
				}
				printPattern(f, p)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&opts.Days, "days", 7, "window length in days, today included")
	return cmd
}

func printPattern(f *OutputFormatter, p license.EarningPattern) {
	rows := make([][]string, 0, len(p.Daily))
	for _, d := range p.Daily {
		rows = append(rows, []string{d.Date, strconv.Itoa(d.Count), export.Money(d.Amount)})
	}
	f.Table([]string{"Date", "Earnings", "Total"}, rows)
	last := p.LastEarning
	if last == "" {
		last = "never"
	}
	fmt.Fprintf(f.Writer, "\nActive %d of %d day(s), total %s, %s per active day, last earning %s\n",
		p.ActiveDays, p.Days, export.Money(p.Total), export.Money(p.AveragePerActiveDay), last)
}

func printLicense(f *OutputFormatter, verb string, lic record.License) error {
	if f.Format == "json" {
		return f.Success(lic)
	}
	if verb != "" {
		fmt.Fprintf(f.Writer, "%s license %s\n", verb, lic.LicenseID)
	}
	writeLicense(f.Writer, lic)
	return nil
}

func writeLicense(w io.Writer, lic record.License) {
	fmt.Fprintf(w, "  id:       %s\n", lic.LicenseID)
	fmt.Fprintf(w, "  status:   %s\n", lic.Status)
	fmt.Fprintf(w, "  bound:    %t\n", lic.BindingInfo.IsBound)
	if lic.BindingInfo.PhoneID != "" {
		fmt.Fprintf(w, "  phone:    %s\n", lic.BindingInfo.PhoneID)
	}
	if lic.BindingInfo.LastActive != nil {
		fmt.Fprintf(w, "  active:   %s\n", lic.BindingInfo.LastActive.UTC().Format(record.DateFormat))
	}
	fmt.Fprintf(w, "  downtime: %d day(s)\n", lic.BindingInfo.DowntimeDays)
	if l := lic.LeaseInfo; l != nil {
		fmt.Fprintf(w, "  lease:    %s, %.1f%% share, fee %s\n", or(l.CustomerName, export.NotAvailable), l.RevenueShare, export.Money(l.Fee))
	}
	if lic.Notes != "" {
		fmt.Fprintf(w, "  notes:    %s\n", lic.Notes)
	}
}

func or(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
