package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/nodeledger/internal/export"
	"github.com/roach88/nodeledger/internal/ledger"
	"github.com/roach88/nodeledger/internal/record"
)

// EarningsOptions holds flags for the earnings commands.
type EarningsOptions struct {
	*RootOptions
	Node   string
	Limit  int
	Status string
	Type   string
	Yes    bool
}

// NewEarningsCommand creates the earnings command group.
func NewEarningsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "earnings",
		Short:         "List and edit stored earnings",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.AddCommand(newEarningsListCommand(rootOpts))
	cmd.AddCommand(newEarningsUpdateCommand(rootOpts))
	cmd.AddCommand(newEarningsDeleteCommand(rootOpts))
	cmd.AddCommand(newEarningsClearCommand(rootOpts))
	return cmd
}

func newEarningsListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &EarningsOptions{RootOptions: rootOpts}
	cmd := &cobra.Command{
		Use:           "list",
		Short:         "List earnings, newest first",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEarningsList(opts, cmd)
		},
	}
	cmd.Flags().StringVar(&opts.Node, "node", "", "only earnings of this node (full or abbreviated address)")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "show at most this many earnings (0 for all)")
	return cmd
}

func runEarningsList(opts *EarningsOptions, cmd *cobra.Command) error {
	return opts.withSession(func(ctx context.Context, s *session) error {
		earnings, err := s.ledger.LoadEarnings(ctx)
		if err != nil {
			return err
		}
		if opts.Node != "" {
			filtered := earnings[:0]
			for _, e := range earnings {
				if record.MatchesNode(opts.Node, e.NodeID) || record.MatchesNode(e.NodeID, opts.Node) {
					filtered = append(filtered, e)
				}
			}
			earnings = filtered
		}
		if opts.Limit > 0 && len(earnings) > opts.Limit {
			earnings = earnings[:opts.Limit]
		}

		f := opts.formatter(cmd)
		if f.Format == "json" {
			return f.Success(earnings)
		}
		rows := make([][]string, 0, len(earnings))
		for _, e := range earnings {
			lt := e.LicenseType
			if lt == "" {
				lt = export.Unmapped
			}
			rows = append(rows, []string{e.ID, e.Date, e.NodeID, lt, export.Money(e.Amount), string(e.Status)})
		}
		f.Table([]string{"ID", "Date", "Node", "Type", "Amount", "Status"}, rows)
		return nil
	})
}

func newEarningsUpdateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &EarningsOptions{RootOptions: rootOpts}
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change the status or license type of an earning",
		Long: `Change the status or license type of one earning.

Examples:
  nodeledger earnings update 0193a1b2-... --status completed
  nodeledger earnings update 0193a1b2-... --type "Tier 2"`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEarningsUpdate(opts, cmd, args[0])
		},
	}
	cmd.Flags().StringVar(&opts.Status, "status", "", "new status: completed, pending, failed or processing")
	cmd.Flags().StringVar(&opts.Type, "type", "", "new license type")
	return cmd
}

func runEarningsUpdate(opts *EarningsOptions, cmd *cobra.Command, id string) error {
	var patch ledger.EarningPatch
	if cmd.Flags().Changed("status") {
		st := record.EarningStatus(opts.Status)
		patch.Status = &st
	}
	if cmd.Flags().Changed("type") {
		patch.LicenseType = &opts.Type
	}
	if patch.Status == nil && patch.LicenseType == nil {
		return NewExitError(ExitCommandError, "nothing to update: pass --status or --type")
	}

	return opts.withSession(func(ctx context.Context, s *session) error {
		e, err := s.ledger.UpdateEarning(ctx, id, patch)
		if err != nil {
			return err
		}
		f := opts.formatter(cmd)
		if f.Format == "json" {
			return f.Success(e)
		}
		fmt.Fprintf(f.Writer, "Updated earning %s: %s %s %s\n", e.ID, e.Date, export.Money(e.Amount), e.Status)
		return nil
	})
}

func newEarningsDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &EarningsOptions{RootOptions: rootOpts}
	cmd := &cobra.Command{
		Use:           "delete <id>...",
		Short:         "Delete earnings by id",
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEarningsDelete(opts, cmd, args)
		},
	}
	return cmd
}

func runEarningsDelete(opts *EarningsOptions, cmd *cobra.Command, ids []string) error {
	return opts.withSession(func(ctx context.Context, s *session) error {
		n, err := s.ledger.DeleteEarnings(ctx, ids...)
		if err != nil {
			return err
		}
		f := opts.formatter(cmd)
		if f.Format == "json" {
			return f.Success(map[string]int{"deleted": n})
		}
		fmt.Fprintf(f.Writer, "Deleted %d of %d earning(s)\n", n, len(ids))
		return nil
	})
}

func newEarningsClearCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &EarningsOptions{RootOptions: rootOpts}
	cmd := &cobra.Command{
		Use:           "clear",
		Short:         "Delete every stored earning",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEarningsClear(opts, cmd)
		},
	}
	cmd.Flags().BoolVar(&opts.Yes, "yes", false, "confirm deleting all earnings")
	return cmd
}

func runEarningsClear(opts *EarningsOptions, cmd *cobra.Command) error {
	if !opts.Yes {
		return NewExitError(ExitCommandError, "refusing to clear earnings without --yes")
	}
	return opts.withSession(func(ctx context.Context, s *session) error {
		n, err := s.ledger.ClearEarnings(ctx)
		if err != nil {
			return err
		}
		f := opts.formatter(cmd)
		if f.Format == "json" {
			return f.Success(map[string]int{"deleted": n})
		}
		fmt.Fprintf(f.Writer, "Cleared %d earning(s)\n", n)
		return nil
	})
}
