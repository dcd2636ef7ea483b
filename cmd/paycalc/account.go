package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"paycalc/internal/cli"
	"paycalc/internal/core"
)

func accountCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "account",
		Aliases: []string{"accounts"},
		Short:   "Manage bank accounts",
		Long: `Manage master bank accounts. Accounts are templates: every pay period gets
its own copy with the expenses assigned to it.

assign and unassign edit the copy in one period; pass --master to edit the
template instead, which only affects periods created afterwards.`,
	}
	cmd.AddCommand(accountAddCmd())
	cmd.AddCommand(accountListCmd())
	cmd.AddCommand(accountUpdateCmd())
	cmd.AddCommand(accountDeleteCmd())
	cmd.AddCommand(accountAssignCmd(true))
	cmd.AddCommand(accountAssignCmd(false))
	return cmd
}

func accountAddCmd() *cobra.Command {
	var name, balance, color string
	var expenses []string

	cmd := &cobra.Command{
		Use:     "add",
		Short:   "Add a bank account",
		Example: `  paycalc account add --name Checking --balance 100 --color "#4ECDC4" --expense Rent`,
		RunE: withSession(cli.SessionOptions{}, func(cmd *cobra.Command, _ []string, s *cli.Session) error {
			start, err := parseBalance(balance)
			if err != nil {
				return err
			}
			ids, err := expenseIDs(s.Tracker.Snapshot(), expenses)
			if err != nil {
				return err
			}
			a, err := s.Tracker.AddBankAccount(cmd.Context(), core.MasterBankAccount{
				Name:            name,
				StartingBalance: start,
				Color:           color,
				ExpenseIDs:      ids,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s (%s)\n", cli.SuccessStyle.Render("Added account"), cli.AccountName(a.Name, a.Color), a.ID)
			return nil
		}),
	}

	cmd.Flags().StringVar(&name, "name", "", "account name")
	cmd.Flags().StringVar(&balance, "balance", "0", "starting balance")
	cmd.Flags().StringVar(&color, "color", "", "display color (#RRGGBB)")
	cmd.Flags().StringSliceVar(&expenses, "expense", nil, "expense id or name to assign (repeatable)")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func accountListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List bank accounts with their projected balance",
		RunE: withSession(cli.SessionOptions{}, func(cmd *cobra.Command, _ []string, s *cli.Session) error {
			st := s.Tracker.Snapshot()
			cli.PrintMasterAccounts(cmd.OutOrStdout(), st.MasterBankAccounts, st.MasterExpenses)
			return nil
		}),
	}
}

func accountUpdateCmd() *cobra.Command {
	var name, balance, color string
	var expenses []string

	cmd := &cobra.Command{
		Use:   "update <account>",
		Short: "Change a bank account template",
		Args:  cobra.ExactArgs(1),
		RunE: withSession(cli.SessionOptions{}, func(cmd *cobra.Command, args []string, s *cli.Session) error {
			st := s.Tracker.Snapshot()
			a, err := findMasterAccount(st, args[0])
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("name") {
				a.Name = name
			}
			if cmd.Flags().Changed("balance") {
				if a.StartingBalance, err = parseBalance(balance); err != nil {
					return err
				}
			}
			if cmd.Flags().Changed("color") {
				a.Color = color
			}
			if cmd.Flags().Changed("expense") {
				if a.ExpenseIDs, err = expenseIDs(st, expenses); err != nil {
					return err
				}
			}
			if _, err := s.Tracker.UpdateBankAccount(cmd.Context(), a); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.SuccessStyle.Render("Updated account "+a.Name))
			return nil
		}),
	}

	cmd.Flags().StringVar(&name, "name", "", "account name")
	cmd.Flags().StringVar(&balance, "balance", "", "starting balance")
	cmd.Flags().StringVar(&color, "color", "", "display color (#RRGGBB)")
	cmd.Flags().StringSliceVar(&expenses, "expense", nil, "replace assigned expenses (repeatable)")
	return cmd
}

func accountDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "delete <account>",
		Aliases: []string{"rm"},
		Short:   "Delete a bank account template",
		Long:    "Delete a bank account template. Copies already made in pay periods are kept.",
		Args:    cobra.ExactArgs(1),
		RunE: withSession(cli.SessionOptions{}, func(cmd *cobra.Command, args []string, s *cli.Session) error {
			a, err := findMasterAccount(s.Tracker.Snapshot(), args[0])
			if err != nil {
				return err
			}
			if err := s.Tracker.DeleteBankAccount(cmd.Context(), a.ID); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.SuccessStyle.Render("Deleted account "+a.Name))
			return nil
		}),
	}
}

func accountAssignCmd(assign bool) *cobra.Command {
	var master bool
	var date string

	use, short, verb := "assign", "Assign an expense to an account", "Assigned"
	if !assign {
		use, short, verb = "unassign", "Remove an expense from an account", "Unassigned"
	}

	cmd := &cobra.Command{
		Use:   use + " <account> <expense>",
		Short: short,
		Args:  cobra.ExactArgs(2),
		RunE: withSession(cli.SessionOptions{}, func(cmd *cobra.Command, args []string, s *cli.Session) error {
			ctx := cmd.Context()
			if master {
				return editMasterAssignment(ctx, s, args[0], args[1], assign, cmd)
			}
			if err := openPeriodFlag(ctx, s, date); err != nil {
				return err
			}
			a, err := findPeriodAccount(s, args[0])
			if err != nil {
				return err
			}
			e, err := findPeriodExpense(s, args[1])
			if err != nil {
				return err
			}
			if assign {
				err = s.Tracker.AssignExpenseToAccount(ctx, a.ID, e.ID)
			} else {
				err = s.Tracker.UnassignExpenseFromAccount(ctx, a.ID, e.ID)
			}
			if err != nil {
				return err
			}
			bal, err := s.Tracker.CurrentBalance(a.ID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s / %s for %s. Balance: %s\n",
				cli.SuccessStyle.Render(verb), e.Name, cli.AccountName(a.Name, a.Color),
				s.Tracker.CurrentPeriodLabel(), cli.Amount(bal))
			return nil
		}),
	}

	cmd.Flags().BoolVar(&master, "master", false, "edit the account template instead of a period copy")
	cmd.Flags().StringVar(&date, "date", "", "edit the period containing this date (YYYY-MM-DD, default today)")
	return cmd
}

func editMasterAssignment(ctx context.Context, s *cli.Session, accountRef, expenseRef string, assign bool, cmd *cobra.Command) error {
	st := s.Tracker.Snapshot()
	a, err := findMasterAccount(st, accountRef)
	if err != nil {
		return err
	}
	e, err := findMasterExpense(st, expenseRef)
	if err != nil {
		return err
	}
	if assign {
		a.ExpenseIDs = core.AddID(a.ExpenseIDs, e.ID)
	} else {
		a.ExpenseIDs = core.RemoveID(a.ExpenseIDs, e.ID)
	}
	if _, err := s.Tracker.UpdateBankAccount(ctx, a); err != nil {
		return err
	}
	bal, err := s.Tracker.MasterBalance(a.ID)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Template %s now holds %d expenses. Projected balance: %s\n",
		cli.AccountName(a.Name, a.Color), len(a.ExpenseIDs), cli.Amount(bal))
	return nil
}
