package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"paycalc/internal/cli"
)

var periodDate string

func periodCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "period",
		Aliases: []string{"periods"},
		Short:   "Work with pay periods",
		Long: `Show and edit pay periods. Commands act on the period containing --date,
or today when --date is not given. A period is filled from the master data
the first time it is opened.`,
	}
	cmd.PersistentFlags().StringVar(&periodDate, "date", "", "select the period containing this date (YYYY-MM-DD)")

	cmd.AddCommand(periodShowCmd())
	cmd.AddCommand(periodListCmd())
	cmd.AddCommand(periodStepCmd("next", "Show the period after the selected one", true))
	cmd.AddCommand(periodStepCmd("prev", "Show the period before the selected one", false))
	cmd.AddCommand(periodResetCmd())
	cmd.AddCommand(periodSyncCmd())
	cmd.AddCommand(periodPaidCmd())
	cmd.AddCommand(periodRemoveExpenseCmd())
	cmd.AddCommand(periodRemoveAccountCmd())
	cmd.AddCommand(periodExportCmd())
	return cmd
}

// openPeriodFlag selects the period containing date, or keeps the period
// opened at sign-in when date is empty.
func openPeriodFlag(ctx context.Context, s *cli.Session, date string) error {
	if date == "" {
		if s.Tracker.Snapshot().CurrentPayPeriod != nil {
			return nil
		}
		_, err := s.Tracker.OpenCurrentPeriod(ctx)
		return err
	}
	d, err := parseDateFlag("date", date)
	if err != nil {
		return err
	}
	_, err = s.Tracker.OpenPeriodContaining(ctx, d)
	return err
}

func printCurrentPeriod(cmd *cobra.Command, s *cli.Session) {
	st := s.Tracker.Snapshot()
	cli.PrintPeriod(cmd.OutOrStdout(), s.Tracker.CurrentPeriodLabel(), st.PayPeriodBankAccounts, st.PayPeriodExpenses)
}

func periodShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show a period's expenses, account balances and totals",
		RunE: withSession(cli.SessionOptions{}, func(cmd *cobra.Command, _ []string, s *cli.Session) error {
			if err := openPeriodFlag(cmd.Context(), s, periodDate); err != nil {
				return err
			}
			printCurrentPeriod(cmd, s)
			return nil
		}),
	}
}

func periodListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List stored periods",
		RunE: withSession(cli.SessionOptions{}, func(cmd *cobra.Command, _ []string, s *cli.Session) error {
			st := s.Tracker.Snapshot()
			if len(st.PayPeriods) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), cli.SubtleStyle.Render("No pay periods yet. Use 'paycalc payinfo set' first."))
				return nil
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, cli.HeaderStyle.Render("ID")+"\t"+cli.HeaderStyle.Render("Start")+"\t"+cli.HeaderStyle.Render("End")+"\t")
			for _, p := range st.PayPeriods {
				mark := ""
				if st.CurrentPayPeriod != nil && st.CurrentPayPeriod.ID == p.ID {
					mark = cli.SuccessStyle.Render("current")
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", p.ID, p.StartDate, p.EndDate, mark)
			}
			return tw.Flush()
		}),
	}
}

func periodStepCmd(use, short string, forward bool) *cobra.Command {
	var steps int

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		RunE: withSession(cli.SessionOptions{}, func(cmd *cobra.Command, _ []string, s *cli.Session) error {
			ctx := cmd.Context()
			if err := openPeriodFlag(ctx, s, periodDate); err != nil {
				return err
			}
			for i := 0; i < steps; i++ {
				var err error
				if forward {
					_, err = s.Tracker.NextPeriod(ctx)
				} else {
					_, err = s.Tracker.PreviousPeriod(ctx)
				}
				if err != nil {
					return err
				}
			}
			printCurrentPeriod(cmd, s)
			return nil
		}),
	}
	cmd.Flags().IntVarP(&steps, "steps", "n", 1, "number of periods to move")
	return cmd
}

func periodResetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Rebuild a period from the current master data",
		Long:  "Delete every copy in the period and copy the master data again. Paid marks and assignments in that period are lost.",
		RunE: withSession(cli.SessionOptions{}, func(cmd *cobra.Command, _ []string, s *cli.Session) error {
			ctx := cmd.Context()
			if err := openPeriodFlag(ctx, s, periodDate); err != nil {
				return err
			}
			if _, err := s.Tracker.ResetCurrentPeriod(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.SuccessStyle.Render("Period reset"))
			printCurrentPeriod(cmd, s)
			return nil
		}),
	}
}

func periodSyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Copy master data missing from stored periods",
		RunE: withSession(cli.SessionOptions{}, func(cmd *cobra.Command, _ []string, s *cli.Session) error {
			res, err := s.Tracker.SyncPeriods(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %d periods checked, %d accounts and %d expenses copied\n",
				cli.SuccessStyle.Render("Synced:"), res.PeriodsVisited, res.AccountsCreated, res.ExpensesCreated)
			return nil
		}),
	}
}

func periodPaidCmd() *cobra.Command {
	var unpaid bool

	cmd := &cobra.Command{
		Use:   "paid <expense>",
		Short: "Mark a period expense paid",
		Long:  "Mark a period expense paid, or unpaid with --unpaid. The expense is given by composite id, id or name.",
		Args:  cobra.ExactArgs(1),
		RunE: withSession(cli.SessionOptions{}, func(cmd *cobra.Command, args []string, s *cli.Session) error {
			ctx := cmd.Context()
			if err := openPeriodFlag(ctx, s, periodDate); err != nil {
				return err
			}
			e, err := findPeriodExpense(s, args[0])
			if err != nil {
				return err
			}
			if err := s.Tracker.SetPaidStatus(ctx, e.CompositeID, !unpaid); err != nil {
				return err
			}
			state := "paid"
			if unpaid {
				state = "unpaid"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s marked %s\n", e.Name, state)
			return nil
		}),
	}
	cmd.Flags().BoolVar(&unpaid, "unpaid", false, "mark the expense unpaid instead")
	return cmd
}

func periodRemoveExpenseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove-expense <expense>",
		Short: "Remove an expense from one period only",
		Args:  cobra.ExactArgs(1),
		RunE: withSession(cli.SessionOptions{}, func(cmd *cobra.Command, args []string, s *cli.Session) error {
			ctx := cmd.Context()
			if err := openPeriodFlag(ctx, s, periodDate); err != nil {
				return err
			}
			e, err := findPeriodExpense(s, args[0])
			if err != nil {
				return err
			}
			if err := s.Tracker.DeletePeriodExpense(ctx, e.ID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %s from %s\n", e.Name, s.Tracker.CurrentPeriodLabel())
			return nil
		}),
	}
}

func periodRemoveAccountCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove-account <account>",
		Short: "Remove an account from one period only",
		Args:  cobra.ExactArgs(1),
		RunE: withSession(cli.SessionOptions{}, func(cmd *cobra.Command, args []string, s *cli.Session) error {
			ctx := cmd.Context()
			if err := openPeriodFlag(ctx, s, periodDate); err != nil {
				return err
			}
			a, err := findPeriodAccount(s, args[0])
			if err != nil {
				return err
			}
			if err := s.Tracker.DeletePeriodAccount(ctx, a.ID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %s from %s\n", a.Name, s.Tracker.CurrentPeriodLabel())
			return nil
		}),
	}
}

var errExportDisabled = errors.New("spreadsheet export is not configured: set GOOGLE_SPREADSHEET_ID or pass --dry-run")

func periodExportCmd() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a period summary to Google Sheets",
		Long: `Write the period's expenses, account balances and totals to a tab named
after the period, replacing what an earlier export wrote there.
--dry-run prints the rows instead.`,
	}
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return withSession(cli.SessionOptions{DryRunExport: dryRun}, func(cmd *cobra.Command, _ []string, s *cli.Session) error {
			ctx := cmd.Context()
			x := s.Backend.Exporter
			if x == nil {
				return errExportDisabled
			}
			if err := openPeriodFlag(ctx, s, periodDate); err != nil {
				return err
			}
			st := s.Tracker.Snapshot()
			if st.CurrentPayPeriod == nil {
				return errors.New("no pay period selected")
			}
			p := *st.CurrentPayPeriod

			ref, err := x.ExportPeriod(ctx, p, st.PayPeriodBankAccounts, st.PayPeriodExpenses)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if s.Backend.DryRun != nil {
				rows, _ := s.Backend.DryRun.Sheet(x.SheetName(p))
				printRows(out, rows)
				return nil
			}
			fmt.Fprintf(out, "%s %s\n", cli.SuccessStyle.Render("Exported to"), ref)
			return nil
		})(cmd, args)
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the rows instead of writing them")
	return cmd
}

func printRows(out io.Writer, rows [][]any) {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for _, r := range rows {
		cells := make([]string, len(r))
		for i, c := range r {
			cells[i] = fmt.Sprint(c)
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	_ = tw.Flush()
}

