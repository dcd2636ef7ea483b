// Package sheets renders a pay period as spreadsheet rows and hands them to
// a SheetWriter.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"paycalc/internal/core"
	"paycalc/internal/log"
	"paycalc/internal/period"
	"paycalc/internal/services"
)

// SheetWriter replaces the whole content of one named sheet and returns a
// reference to the written range.
type SheetWriter interface {
	ReplaceSheet(ctx context.Context, sheet string, rows [][]any) (ref string, err error)
}

const DefaultSheetPrefix = "Pay Period"

type Exporter struct {
	writer SheetWriter
	prefix string
	logger *log.Logger
}

func NewExporter(w SheetWriter, prefix string, logger *log.Logger) *Exporter {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = DefaultSheetPrefix
	}
	return &Exporter{writer: w, prefix: prefix, logger: log.OrDiscard(logger).WithComponent(log.ComponentSheets)}
}

// SheetName is the tab a period is exported to, e.g. "Pay Period 2024-01-15".
func (x *Exporter) SheetName(p core.PayPeriod) string {
	return x.prefix + " " + p.ID
}

// ExportPeriod overwrites the period's tab with its current expenses,
// account balances and totals. Exporting again gives the same rows.
func (x *Exporter) ExportPeriod(ctx context.Context, p core.PayPeriod, accounts []core.PayPeriodBankAccount, expenses []core.PayPeriodExpense) (string, error) {
	if p.ID == "" {
		return "", errors.New("period has no id")
	}
	sheet := x.SheetName(p)
	rows := Rows(p, accounts, expenses)
	ref, err := x.writer.ReplaceSheet(ctx, sheet, rows)
	if err != nil {
		return "", fmt.Errorf("export period %s: %w", p.ID, err)
	}
	x.logger.InfoContext(ctx, "Period exported",
		log.FieldOperation, log.OpExport,
		log.FieldPeriodID, p.ID,
		"sheet", sheet,
		"rows", len(rows),
		"ref", ref)
	return ref, nil
}

// Rows lays out a period: a title row, the expense table, the account table
// and the totals, separated by blank rows. Amounts are two-decimal strings
// so the sheet parses them as numbers.
func Rows(p core.PayPeriod, accounts []core.PayPeriodBankAccount, expenses []core.PayPeriodExpense) [][]any {
	rows := [][]any{
		{"Pay period", period.Label(&p)},
		{},
		{"Expense", "Type", "Frequency", "Due", "Amount", "Paid", "Accounts"},
	}

	for _, e := range expenses {
		var names []string
		for _, a := range services.AccountsForExpense(e.ID, accounts) {
			names = append(names, a.Name)
		}
		rows = append(rows, []any{
			e.Name,
			string(e.Type),
			string(e.Frequency),
			e.NextDueDate.String(),
			e.Amount.StringFixed(2),
			paidLabel(e.IsPaid),
			strings.Join(names, ", "),
		})
	}

	rows = append(rows, []any{}, []any{"Account", "Starting balance", "Current balance"})
	for _, a := range accounts {
		rows = append(rows, []any{
			a.Name,
			a.StartingBalance.StringFixed(2),
			services.PeriodAccountBalance(a, expenses).StringFixed(2),
		})
	}

	t := core.SummarizePeriod(expenses)
	rows = append(rows,
		[]any{},
		[]any{"Deposits", t.Deposits.StringFixed(2)},
		[]any{"Withdrawals", t.Withdrawals.StringFixed(2)},
		[]any{"Net", t.Net.StringFixed(2)},
		[]any{"Paid", fmt.Sprintf("%d of %d", t.Paid, t.Paid+t.Unpaid)},
	)
	return rows
}

func paidLabel(paid bool) string {
	if paid {
		return "yes"
	}
	return "no"
}
