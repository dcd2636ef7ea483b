// Package core provides money parsing and handling utilities.
//
// Amounts are decimal values. Expense amounts are signed: withdrawals are
// negative and deposits positive, so balances are a plain sum.
package core

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// ParseAmount converts a user-entered magnitude to a decimal rounded to cents.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and rounds
// half-up on the third decimal place. Signs are rejected; the sign of an
// expense comes from its type (see SignedAmount).
//
// Examples:
//
//	ParseAmount("12.34")  -> 12.34
//	ParseAmount("12,345") -> 12.35
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.Count(s, ".") > 1 {
		return decimal.Zero, ErrInvalidAmount
	}
	for _, r := range s {
		if r != '.' && !unicode.IsDigit(r) {
			return decimal.Zero, ErrInvalidAmount
		}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	d = d.Round(2)
	if !d.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// SignedAmount applies the expense type's sign to a magnitude.
func SignedAmount(magnitude decimal.Decimal, t ExpenseType) decimal.Decimal {
	m := magnitude.Abs()
	if t == Withdrawal {
		return m.Neg()
	}
	return m
}

// TypeOf returns the expense type implied by an amount's sign.
func TypeOf(amount decimal.Decimal) ExpenseType {
	if amount.IsNegative() {
		return Withdrawal
	}
	return Deposit
}

// ValidateSignedAmount checks that amount is non-zero and its sign agrees with t.
func ValidateSignedAmount(amount decimal.Decimal, t ExpenseType) error {
	if amount.IsZero() {
		return ErrInvalidAmount
	}
	if TypeOf(amount) != t {
		return ErrSignMismatch
	}
	return nil
}

// FormatAmount renders an amount with two decimals, e.g. "-50.00".
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(2)
}
