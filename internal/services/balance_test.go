package services

import (
	"testing"

	"github.com/shopspring/decimal"

	"paycalc/internal/core"
)

func TestCurrentBalance(t *testing.T) {
	amounts := map[string]decimal.Decimal{
		"rent":   dec("-50"),
		"salary": dec("20"),
		"other":  dec("-999"),
	}

	tests := []struct {
		name     string
		starting string
		ids      []string
		want     string
	}{
		{"signed sum", "100", []string{"rent", "salary"}, "70"},
		{"unknown ids ignored", "100", []string{"rent", "missing"}, "50"},
		{"no expenses", "12.34", nil, "12.34"},
		{"can go negative", "10", []string{"rent"}, "-40"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CurrentBalance(dec(tt.starting), tt.ids, amounts)
			if !got.Equal(dec(tt.want)) {
				t.Errorf("CurrentBalance() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestMasterAccountBalance(t *testing.T) {
	m := masters()
	got := MasterAccountBalance(m.Accounts[0], m.Expenses)
	// 100 - 50 + 20 - 300
	if !got.Equal(dec("-230")) {
		t.Errorf("MasterAccountBalance() = %s", got)
	}
}

func TestExpensesForAccount(t *testing.T) {
	expenses := []core.PayPeriodExpense{{ID: "a"}, {ID: "b"}, {ID: "c"}}
	acct := core.PayPeriodBankAccount{ExpenseIDs: []string{"c", "gone", "a"}}

	got := ExpensesForAccount(acct, expenses)
	if len(got) != 2 || got[0].ID != "c" || got[1].ID != "a" {
		t.Errorf("ExpensesForAccount() = %+v", got)
	}
}

func TestAccountsForExpense(t *testing.T) {
	accounts := []core.PayPeriodBankAccount{
		{ID: "x", ExpenseIDs: []string{"e1"}},
		{ID: "y", ExpenseIDs: []string{"e2"}},
		{ID: "z", ExpenseIDs: []string{"e1", "e2"}},
	}
	got := AccountsForExpense("e1", accounts)
	if len(got) != 2 || got[0].ID != "x" || got[1].ID != "z" {
		t.Errorf("AccountsForExpense() = %+v", got)
	}
	if got := AccountsForExpense("none", accounts); len(got) != 0 {
		t.Errorf("expected no accounts, got %d", len(got))
	}
}
