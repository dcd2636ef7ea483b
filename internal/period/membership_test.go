package period

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"paycalc/internal/core"
)

func expense(f core.ExpenseFrequency, due core.Date) core.MasterExpense {
	return core.MasterExpense{
		ID:        "exp",
		Name:      "Test",
		Amount:    decimal.NewFromInt(-10),
		Type:      core.Withdrawal,
		DueDate:   due,
		Frequency: f,
	}
}

func biWeeklyPeriod(start core.Date) core.PayPeriod {
	return New("u", info(core.PayBiWeekly, d(2024, 1, 1)), start)
}

func TestIsExpenseInPeriod(t *testing.T) {
	p := biWeeklyPeriod(d(2024, 1, 15)) // Jan 15 - Jan 28

	tests := []struct {
		name string
		e    core.MasterExpense
		want bool
	}{
		{"one-time inside", expense(core.OneTime, d(2024, 1, 20)), true},
		{"one-time on start", expense(core.OneTime, d(2024, 1, 15)), true},
		{"one-time on end", expense(core.OneTime, d(2024, 1, 28)), true},
		{"one-time after", expense(core.OneTime, d(2024, 1, 29)), false},
		{"one-time before", expense(core.OneTime, d(2024, 1, 14)), false},
		{"monthly occurrence inside", expense(core.Monthly, d(2023, 11, 20)), true},
		{"monthly occurrence outside", expense(core.Monthly, d(2023, 11, 5)), false},
		{"bi-weekly always hits a bi-weekly period", expense(core.BiWeekly, d(2023, 6, 2)), true},
		{"every 30 days", expense(core.Every30Days, d(2023, 12, 27)), true},
		{"recurring origin after period", expense(core.Monthly, d(2024, 2, 1)), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsExpenseInPeriod(tt.e, p))
			// Stable under re-derivation.
			assert.Equal(t, tt.want, IsExpenseInPeriod(tt.e, p))
		})
	}
}

func TestIsExpenseInPeriod_UsesCachedNextDueDate(t *testing.T) {
	e := expense(core.Monthly, d(2023, 11, 20))
	e.NextDueDate = d(2024, 2, 20)

	// Cached next due date is past this period, so the earlier origin is not used.
	assert.False(t, IsExpenseInPeriod(e, biWeeklyPeriod(d(2024, 1, 15))))
	assert.True(t, IsExpenseInPeriod(e, biWeeklyPeriod(d(2024, 2, 12))))
}

func TestIsExpenseInPeriod_OneTimeIgnoresCache(t *testing.T) {
	e := expense(core.OneTime, d(2024, 1, 20))
	e.NextDueDate = d(2024, 3, 1)
	assert.True(t, IsExpenseInPeriod(e, biWeeklyPeriod(d(2024, 1, 15))))
}

func TestDueDateForPeriod(t *testing.T) {
	p := biWeeklyPeriod(d(2024, 1, 15))
	assert.Equal(t, "2024-01-20", DueDateForPeriod(expense(core.Monthly, d(2023, 11, 20)), p).String())
	assert.Equal(t, "2023-06-02", DueDateForPeriod(expense(core.OneTime, d(2023, 6, 2)), p).String())
}

func TestFilterExpenses(t *testing.T) {
	p := biWeeklyPeriod(d(2024, 1, 15))
	in := []core.MasterExpense{
		expense(core.OneTime, d(2024, 1, 20)),
		expense(core.OneTime, d(2024, 3, 1)),
		expense(core.Monthly, d(2023, 12, 16)),
	}
	got := FilterExpenses(in, p)
	if assert.Len(t, got, 2) {
		assert.Equal(t, "2024-01-20", got[0].DueDate.String())
		assert.Equal(t, "2023-12-16", got[1].DueDate.String())
	}
}
