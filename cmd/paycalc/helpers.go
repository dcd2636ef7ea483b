package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"paycalc/internal/auth"
	"paycalc/internal/cli"
	"paycalc/internal/core"
	"paycalc/internal/tracker"
)

type sessionFunc func(cmd *cobra.Command, args []string, s *cli.Session) error

// withSession opens a signed-in session around fn and reports a failed
// background period sync once fn is done.
func withSession(opts cli.SessionOptions, fn sessionFunc) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		opts.Google = useGoogle
		opts.OAuthPrompt = func(authURL string) {
			fmt.Fprintf(cmd.ErrOrStderr(), "Open this URL in your browser to sign in:\n\n  %s\n\n", authURL)
		}
		s, err := cli.OpenSession(cmd.Context(), appConfig, appLogger, opts)
		if err != nil {
			return err
		}
		defer func() { _ = s.Close() }()

		if err := fn(cmd, args, s); err != nil {
			return err
		}
		if msg := s.Tracker.Snapshot().LastSyncError; msg != "" {
			fmt.Fprintln(cmd.ErrOrStderr(), cli.WarningStyle.Render(
				"Pay periods are out of date: "+msg+". Run 'paycalc period sync' to retry."))
		}
		return nil
	}
}

// describe turns authentication failures into their user-facing message.
func describe(err error) string {
	var ae *auth.Error
	if errors.As(err, &ae) {
		return auth.MessageFor(err)
	}
	return err.Error()
}

func parseDateFlag(name, value string) (core.Date, error) {
	d, err := core.ParseDate(value)
	if err != nil {
		return core.Date{}, fmt.Errorf("--%s: %w", name, err)
	}
	return d, nil
}

// parseSignedAmount reads a positive magnitude and applies the sign of t.
func parseSignedAmount(value string, t core.ExpenseType) (decimal.Decimal, error) {
	m, err := core.ParseAmount(value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("--amount %q: %w", value, err)
	}
	return core.SignedAmount(m, t), nil
}

func parseBalance(value string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(strings.ReplaceAll(value, ",", ".")))
	if err != nil {
		return decimal.Zero, fmt.Errorf("--balance %q: %w", value, core.ErrInvalidAmount)
	}
	return d.Round(2), nil
}

func matches(ref, id, name string) bool {
	return ref == id || strings.EqualFold(strings.TrimSpace(ref), name)
}

func findMasterAccount(st tracker.State, ref string) (core.MasterBankAccount, error) {
	for _, a := range st.MasterBankAccounts {
		if matches(ref, a.ID, a.Name) {
			return a, nil
		}
	}
	return core.MasterBankAccount{}, fmt.Errorf("bank account %q: %w", ref, tracker.ErrUnknownID)
}

func findMasterExpense(st tracker.State, ref string) (core.MasterExpense, error) {
	for _, e := range st.MasterExpenses {
		if matches(ref, e.ID, e.Name) {
			return e, nil
		}
	}
	return core.MasterExpense{}, fmt.Errorf("expense %q: %w", ref, tracker.ErrUnknownID)
}

// findPeriodAccount accepts a period account id, composite id or name.
func findPeriodAccount(s *cli.Session, ref string) (core.PayPeriodBankAccount, error) {
	if a, ok := s.Tracker.FindPeriodAccountByCompositeID(ref); ok {
		return a, nil
	}
	for _, a := range s.Tracker.Snapshot().PayPeriodBankAccounts {
		if matches(ref, a.ID, a.Name) {
			return a, nil
		}
	}
	return core.PayPeriodBankAccount{}, fmt.Errorf("account %q in this period: %w", ref, tracker.ErrUnknownID)
}

// findPeriodExpense accepts a period expense id, composite id or name.
func findPeriodExpense(s *cli.Session, ref string) (core.PayPeriodExpense, error) {
	if e, ok := s.Tracker.FindPeriodExpenseByCompositeID(ref); ok {
		return e, nil
	}
	for _, e := range s.Tracker.Snapshot().PayPeriodExpenses {
		if matches(ref, e.ID, e.Name) {
			return e, nil
		}
	}
	return core.PayPeriodExpense{}, fmt.Errorf("expense %q in this period: %w", ref, tracker.ErrUnknownID)
}

func expenseIDs(st tracker.State, refs []string) ([]string, error) {
	ids := make([]string, 0, len(refs))
	for _, ref := range refs {
		e, err := findMasterExpense(st, ref)
		if err != nil {
			return nil, err
		}
		ids = append(ids, e.ID)
	}
	return ids, nil
}
