package core

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// PeriodTotals is a compact summary of a period's expense copies.
type PeriodTotals struct {
	Deposits    decimal.Decimal
	Withdrawals decimal.Decimal // negative
	Net         decimal.Decimal
	Paid        int
	Unpaid      int
}

// SummarizePeriod totals the period expenses by sign and paid status.
func SummarizePeriod(expenses []PayPeriodExpense) PeriodTotals {
	t := PeriodTotals{Deposits: decimal.Zero, Withdrawals: decimal.Zero, Net: decimal.Zero}
	for _, e := range expenses {
		if e.Amount.IsNegative() {
			t.Withdrawals = t.Withdrawals.Add(e.Amount)
		} else {
			t.Deposits = t.Deposits.Add(e.Amount)
		}
		t.Net = t.Net.Add(e.Amount)
		if e.IsPaid {
			t.Paid++
		} else {
			t.Unpaid++
		}
	}
	return t
}

// ContrastColor returns black or white text for a "#RRGGBB" background,
// using perceived luminance (0.299 R + 0.587 G + 0.114 B).
func ContrastColor(hex string) string {
	c := strings.TrimPrefix(hex, "#")
	if len(c) != 6 {
		return "#000000"
	}
	r, errR := strconv.ParseUint(c[0:2], 16, 8)
	g, errG := strconv.ParseUint(c[2:4], 16, 8)
	b, errB := strconv.ParseUint(c[4:6], 16, 8)
	if errR != nil || errG != nil || errB != nil {
		return "#000000"
	}
	luminance := (0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)) / 255
	if luminance > 0.5 {
		return "#000000"
	}
	return "#FFFFFF"
}
