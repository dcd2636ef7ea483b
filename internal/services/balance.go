package services

import (
	"github.com/shopspring/decimal"

	"paycalc/internal/core"
)

// CurrentBalance is starting plus the signed amounts of the listed expenses.
// Ids missing from amounts are ignored.
func CurrentBalance(starting decimal.Decimal, expenseIDs []string, amounts map[string]decimal.Decimal) decimal.Decimal {
	total := starting
	for _, id := range expenseIDs {
		if amt, ok := amounts[id]; ok {
			total = total.Add(amt)
		}
	}
	return total
}

// PeriodAccountBalance evaluates a period account against its period's expenses.
func PeriodAccountBalance(a core.PayPeriodBankAccount, expenses []core.PayPeriodExpense) decimal.Decimal {
	amounts := make(map[string]decimal.Decimal, len(expenses))
	for _, e := range expenses {
		amounts[e.ID] = e.Amount
	}
	return CurrentBalance(a.StartingBalance, a.ExpenseIDs, amounts)
}

// MasterAccountBalance evaluates a master account against the master expenses.
func MasterAccountBalance(a core.MasterBankAccount, expenses []core.MasterExpense) decimal.Decimal {
	amounts := make(map[string]decimal.Decimal, len(expenses))
	for _, e := range expenses {
		amounts[e.ID] = e.Amount
	}
	return CurrentBalance(a.StartingBalance, a.ExpenseIDs, amounts)
}

// ExpensesForAccount resolves an account's expense ids, in the account's
// order, dropping ids with no matching expense.
func ExpensesForAccount(a core.PayPeriodBankAccount, expenses []core.PayPeriodExpense) []core.PayPeriodExpense {
	byID := make(map[string]core.PayPeriodExpense, len(expenses))
	for _, e := range expenses {
		byID[e.ID] = e
	}
	out := make([]core.PayPeriodExpense, 0, len(a.ExpenseIDs))
	for _, id := range a.ExpenseIDs {
		if e, ok := byID[id]; ok {
			out = append(out, e)
		}
	}
	return out
}

// AccountsForExpense returns every account that lists expenseID. An expense
// may be attached to several accounts.
func AccountsForExpense(expenseID string, accounts []core.PayPeriodBankAccount) []core.PayPeriodBankAccount {
	var out []core.PayPeriodBankAccount
	for _, a := range accounts {
		if a.HasExpense(expenseID) {
			out = append(out, a)
		}
	}
	return out
}
