package period

import (
	"paycalc/internal/core"
	"paycalc/internal/recurrence"
)

// originFor is the date recurrence starts from: the cached next due date
// when present, otherwise the raw due date.
func originFor(e core.MasterExpense) core.Date {
	if !e.NextDueDate.IsEmpty() {
		return e.NextDueDate
	}
	return e.DueDate
}

// DueDateForPeriod is the due date a period copy of e carries: the first
// occurrence on or after the period start. One-time expenses keep their
// cached or raw due date.
func DueDateForPeriod(e core.MasterExpense, p core.PayPeriod) core.Date {
	origin := originFor(e)
	if !e.Frequency.IsRecurring() {
		return origin
	}
	return recurrence.NextOccurrence(origin, e.Frequency, p.StartDate)
}

// IsExpenseInPeriod reports whether e is due within p (both ends inclusive).
// One-time expenses use their raw due date; recurring ones use the first
// occurrence on or after the period start. Dates are compared as calendar
// days only.
func IsExpenseInPeriod(e core.MasterExpense, p core.PayPeriod) bool {
	if !e.Frequency.IsRecurring() {
		return p.Contains(e.DueDate)
	}
	return p.Contains(DueDateForPeriod(e, p))
}

// FilterExpenses returns the expenses due within p, preserving order.
func FilterExpenses(expenses []core.MasterExpense, p core.PayPeriod) []core.MasterExpense {
	var out []core.MasterExpense
	for _, e := range expenses {
		if IsExpenseInPeriod(e, p) {
			out = append(out, e)
		}
	}
	return out
}
