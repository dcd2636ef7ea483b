package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"

	"paycalc/internal/core"
	"paycalc/internal/services"
)

var (
	SuccessColor = lipgloss.Color("#4ECDC4")
	WarningColor = lipgloss.Color("#FFE66D")
	ErrorColor   = lipgloss.Color("#FF6B6B")
	SubtleColor  = lipgloss.Color("#666666")

	TitleStyle   = lipgloss.NewStyle().Bold(true)
	HeaderStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	SuccessStyle = lipgloss.NewStyle().Foreground(SuccessColor)
	WarningStyle = lipgloss.NewStyle().Foreground(WarningColor)
	ErrorStyle   = lipgloss.NewStyle().Foreground(ErrorColor)
	SubtleStyle  = lipgloss.NewStyle().Foreground(SubtleColor)
)

// AccountName renders name as a badge in the account's own color.
func AccountName(name, color string) string {
	if color == "" {
		return name
	}
	return lipgloss.NewStyle().
		Background(lipgloss.Color(color)).
		Foreground(lipgloss.Color(core.ContrastColor(color))).
		Render(name)
}

// Amount renders a signed amount, deposits green and withdrawals red.
func Amount(d decimal.Decimal) string {
	s := core.FormatAmount(d)
	switch {
	case d.IsNegative():
		return ErrorStyle.Render(s)
	case d.IsPositive():
		return SuccessStyle.Render(s)
	}
	return s
}

func paidMark(paid bool) string {
	if paid {
		return SuccessStyle.Render("paid")
	}
	return SubtleStyle.Render("unpaid")
}

func header(w io.Writer, cols ...string) {
	styled := make([]string, len(cols))
	for i, c := range cols {
		styled[i] = HeaderStyle.Render(c)
	}
	fmt.Fprintln(w, strings.Join(styled, "\t"))
}

// PrintPayInfo writes the pay schedule.
func PrintPayInfo(w io.Writer, info core.PayInfo) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Take-home pay\t%s\n", core.FormatAmount(info.TakeHomePay))
	fmt.Fprintf(tw, "Frequency\t%s\n", info.PayFrequency)
	fmt.Fprintf(tw, "First pay date\t%s\n", info.StartDate)
	_ = tw.Flush()
}

// PrintMasterAccounts lists bank account templates with their projected
// balance over every assigned expense.
func PrintMasterAccounts(w io.Writer, accounts []core.MasterBankAccount, expenses []core.MasterExpense) {
	if len(accounts) == 0 {
		fmt.Fprintln(w, SubtleStyle.Render("No bank accounts yet. Use 'paycalc account add' to create one."))
		return
	}
	names := make(map[string]string, len(expenses))
	for _, e := range expenses {
		names[e.ID] = e.Name
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	header(tw, "ID", "Account", "Starting", "Balance", "Expenses")
	for _, a := range accounts {
		assigned := make([]string, 0, len(a.ExpenseIDs))
		for _, id := range a.ExpenseIDs {
			if n, ok := names[id]; ok {
				assigned = append(assigned, n)
			}
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			a.ID,
			AccountName(a.Name, a.Color),
			core.FormatAmount(a.StartingBalance),
			Amount(services.MasterAccountBalance(a, expenses)),
			strings.Join(assigned, ", "))
	}
	_ = tw.Flush()
}

// PrintMasterExpenses lists expense templates.
func PrintMasterExpenses(w io.Writer, expenses []core.MasterExpense) {
	if len(expenses) == 0 {
		fmt.Fprintln(w, SubtleStyle.Render("No expenses yet. Use 'paycalc expense add' to create one."))
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	header(tw, "ID", "Expense", "Amount", "Frequency", "Due", "Next due")
	for _, e := range expenses {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			e.ID, e.Name, Amount(e.Amount), e.Frequency, e.DueDate, e.NextDueDate)
	}
	_ = tw.Flush()
}

// PrintPeriod writes the period's expenses, account balances and totals.
func PrintPeriod(w io.Writer, label string, accounts []core.PayPeriodBankAccount, expenses []core.PayPeriodExpense) {
	fmt.Fprintln(w, TitleStyle.Render("Pay period "+label))
	fmt.Fprintln(w)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if len(expenses) == 0 {
		fmt.Fprintln(w, SubtleStyle.Render("No expenses fall in this period."))
	} else {
		header(tw, "Composite ID", "Expense", "Amount", "Due", "Status", "Accounts")
		for _, e := range expenses {
			var accs []string
			for _, a := range services.AccountsForExpense(e.ID, accounts) {
				accs = append(accs, AccountName(a.Name, a.Color))
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
				e.CompositeID, e.Name, Amount(e.Amount), e.NextDueDate, paidMark(e.IsPaid), strings.Join(accs, ", "))
		}
		_ = tw.Flush()
	}
	fmt.Fprintln(w)

	if len(accounts) > 0 {
		header(tw, "Account ID", "Account", "Starting", "Current")
		for _, a := range accounts {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
				a.ID, AccountName(a.Name, a.Color),
				core.FormatAmount(a.StartingBalance),
				Amount(services.PeriodAccountBalance(a, expenses)))
		}
		_ = tw.Flush()
		fmt.Fprintln(w)
	}

	totals := core.SummarizePeriod(expenses)
	fmt.Fprintf(tw, "Deposits\t%s\n", Amount(totals.Deposits))
	fmt.Fprintf(tw, "Withdrawals\t%s\n", Amount(totals.Withdrawals))
	fmt.Fprintf(tw, "Net\t%s\n", Amount(totals.Net))
	fmt.Fprintf(tw, "Paid\t%d of %d\n", totals.Paid, totals.Paid+totals.Unpaid)
	_ = tw.Flush()
}
