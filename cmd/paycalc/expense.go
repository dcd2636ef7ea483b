package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"paycalc/internal/cli"
	"paycalc/internal/core"
)

func expenseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "expense",
		Aliases: []string{"expenses"},
		Short:   "Manage recurring and one-time expenses",
		Long: `Manage master expenses. Withdrawals are stored as negative amounts and
deposits as positive ones, so account balances are a plain sum.

Frequencies: monthly, bi-weekly, "every 30 days" and one-time.`,
	}
	cmd.AddCommand(expenseAddCmd())
	cmd.AddCommand(expenseListCmd())
	cmd.AddCommand(expenseUpdateCmd())
	cmd.AddCommand(expenseDeleteCmd())
	return cmd
}

func expenseAddCmd() *cobra.Command {
	var name, amount, typ, frequency, due string

	cmd := &cobra.Command{
		Use:     "add",
		Short:   "Add an expense",
		Example: "  paycalc expense add --name Rent --amount 1200 --frequency monthly --due 2024-01-25",
		RunE: withSession(cli.SessionOptions{}, func(cmd *cobra.Command, _ []string, s *cli.Session) error {
			t := core.ExpenseType(typ)
			signed, err := parseSignedAmount(amount, t)
			if err != nil {
				return err
			}
			dueDate, err := parseDateFlag("due", due)
			if err != nil {
				return err
			}
			e, err := s.Tracker.AddExpense(cmd.Context(), core.MasterExpense{
				Name:      name,
				Amount:    signed,
				Type:      t,
				Frequency: core.ExpenseFrequency(frequency),
				DueDate:   dueDate,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s %s (%s), next due %s\n",
				cli.SuccessStyle.Render("Added expense"), e.Name, cli.Amount(e.Amount), e.ID, e.NextDueDate)
			return nil
		}),
	}

	cmd.Flags().StringVar(&name, "name", "", "expense name")
	cmd.Flags().StringVar(&amount, "amount", "", "amount (positive; the sign comes from --type)")
	cmd.Flags().StringVar(&typ, "type", string(core.Withdrawal), "withdrawal or deposit")
	cmd.Flags().StringVar(&frequency, "frequency", string(core.Monthly), `monthly, bi-weekly, "every 30 days" or one-time`)
	cmd.Flags().StringVar(&due, "due", "", "first due date (YYYY-MM-DD)")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("amount")
	_ = cmd.MarkFlagRequired("due")
	return cmd
}

func expenseListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List expenses",
		RunE: withSession(cli.SessionOptions{}, func(cmd *cobra.Command, _ []string, s *cli.Session) error {
			cli.PrintMasterExpenses(cmd.OutOrStdout(), s.Tracker.Snapshot().MasterExpenses)
			return nil
		}),
	}
}

func expenseUpdateCmd() *cobra.Command {
	var name, amount, typ, frequency, due string
	var paid bool

	cmd := &cobra.Command{
		Use:   "update <expense>",
		Short: "Change an expense template",
		Long: `Change an expense template. Periods that already hold a copy keep it; run
'paycalc period reset' to rebuild a period from the templates.`,
		Args: cobra.ExactArgs(1),
		RunE: withSession(cli.SessionOptions{}, func(cmd *cobra.Command, args []string, s *cli.Session) error {
			e, err := findMasterExpense(s.Tracker.Snapshot(), args[0])
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if flags.Changed("name") {
				e.Name = name
			}
			if flags.Changed("type") {
				e.Type = core.ExpenseType(typ)
				e.Amount = core.SignedAmount(e.Amount, e.Type)
			}
			if flags.Changed("amount") {
				if e.Amount, err = parseSignedAmount(amount, e.Type); err != nil {
					return err
				}
			}
			if flags.Changed("frequency") {
				e.Frequency = core.ExpenseFrequency(frequency)
			}
			if flags.Changed("due") {
				if e.DueDate, err = parseDateFlag("due", due); err != nil {
					return err
				}
			}
			if flags.Changed("paid") {
				e.IsPaid = paid
			}
			updated, err := s.Tracker.UpdateExpense(cmd.Context(), e)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s %s, next due %s\n",
				cli.SuccessStyle.Render("Updated expense"), updated.Name, cli.Amount(updated.Amount), updated.NextDueDate)
			return nil
		}),
	}

	cmd.Flags().StringVar(&name, "name", "", "expense name")
	cmd.Flags().StringVar(&amount, "amount", "", "amount (positive; the sign comes from the type)")
	cmd.Flags().StringVar(&typ, "type", "", "withdrawal or deposit")
	cmd.Flags().StringVar(&frequency, "frequency", "", `monthly, bi-weekly, "every 30 days" or one-time`)
	cmd.Flags().StringVar(&due, "due", "", "due date (YYYY-MM-DD)")
	cmd.Flags().BoolVar(&paid, "paid", false, "template paid flag")
	return cmd
}

func expenseDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "delete <expense>",
		Aliases: []string{"rm"},
		Short:   "Delete an expense and detach it from every account template",
		Args:    cobra.ExactArgs(1),
		RunE: withSession(cli.SessionOptions{}, func(cmd *cobra.Command, args []string, s *cli.Session) error {
			e, err := findMasterExpense(s.Tracker.Snapshot(), args[0])
			if err != nil {
				return err
			}
			if err := s.Tracker.DeleteExpense(cmd.Context(), e.ID); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.SuccessStyle.Render("Deleted expense "+e.Name))
			return nil
		}),
	}
}
