package core

import (
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Pay frequencies
const (
	PayWeekly      PayFrequency = "weekly"
	PayBiWeekly    PayFrequency = "bi-weekly"
	PayMonthly     PayFrequency = "monthly"
	PaySemiMonthly PayFrequency = "semi-monthly"
)

// Expense frequencies
const (
	Monthly     ExpenseFrequency = "monthly"
	BiWeekly    ExpenseFrequency = "bi-weekly"
	Every30Days ExpenseFrequency = "every 30 days"
	OneTime     ExpenseFrequency = "one-time"
)

const (
	Withdrawal ExpenseType = "withdrawal"
	Deposit    ExpenseType = "deposit"
)

const maxNameLength = 200

type (
	PayFrequency     string
	ExpenseFrequency string
	ExpenseType      string

	// PayInfo is the per-user pay schedule. StartDate anchors every period
	// boundary and must not change once periods exist.
	PayInfo struct {
		ID           string          `json:"id,omitempty"`
		UserUID      string          `json:"userUID"`
		TakeHomePay  decimal.Decimal `json:"takeHomePay"`
		PayFrequency PayFrequency    `json:"payFrequency"`
		StartDate    Date            `json:"startDate"`
		CreatedAt    time.Time       `json:"createdAt"`
		UpdatedAt    time.Time       `json:"updatedAt"`
	}

	// MasterExpense is a recurring or one-time obligation template.
	// NextDueDate is a cache of NextOccurrence(DueDate, Frequency, now) taken
	// at the last write that touched DueDate or Frequency.
	MasterExpense struct {
		ID          string           `json:"id,omitempty"`
		UserUID     string           `json:"userUID"`
		Name        string           `json:"name"`
		Amount      decimal.Decimal  `json:"amount"`
		Type        ExpenseType      `json:"type"`
		DueDate     Date             `json:"dueDate"`
		Frequency   ExpenseFrequency `json:"frequency"`
		NextDueDate Date             `json:"nextDueDate"`
		IsPaid      bool             `json:"isPaid"`
		CreatedAt   time.Time        `json:"createdAt"`
		UpdatedAt   time.Time        `json:"updatedAt"`
	}

	MasterBankAccount struct {
		ID              string          `json:"id,omitempty"`
		UserUID         string          `json:"userUID"`
		Name            string          `json:"name"`
		StartingBalance decimal.Decimal `json:"startingBalance"`
		Color           string          `json:"color"`
		ExpenseIDs      []string        `json:"expenseIds"`
		CreatedAt       time.Time       `json:"createdAt"`
		UpdatedAt       time.Time       `json:"updatedAt"`
	}

	// PayPeriod is keyed by its ISO start date: ID == StartDate.String().
	PayPeriod struct {
		ID           string    `json:"id,omitempty"`
		UserUID      string    `json:"userUID"`
		PayInfoID    string    `json:"payInfoId"`
		StartDate    Date      `json:"startDate"`
		EndDate      Date      `json:"endDate"`
		Year         int       `json:"year"`
		IsActive     bool      `json:"isActive"`
		Materialized bool      `json:"materialized"`
		CreatedAt    time.Time `json:"createdAt"`
	}

	PayPeriodBankAccount struct {
		ID                  string          `json:"id,omitempty"`
		PayPeriodID         string          `json:"payPeriodId"`
		MasterBankAccountID string          `json:"masterBankAccountId"`
		CompositeID         string          `json:"compositeId"`
		Name                string          `json:"name"`
		Color               string          `json:"color"`
		StartingBalance     decimal.Decimal `json:"startingBalance"`
		CurrentBalance      decimal.Decimal `json:"currentBalance"`
		ExpenseIDs          []string        `json:"expenseIds"`
		CreatedAt           time.Time       `json:"createdAt"`
	}

	PayPeriodExpense struct {
		ID              string           `json:"id,omitempty"`
		PayPeriodID     string           `json:"payPeriodId"`
		MasterExpenseID string           `json:"masterExpenseId"`
		CompositeID     string           `json:"compositeId"`
		Name            string           `json:"name"`
		Amount          decimal.Decimal  `json:"amount"`
		Type            ExpenseType      `json:"type"`
		NextDueDate     Date             `json:"nextDueDate"`
		Frequency       ExpenseFrequency `json:"frequency"`
		IsPaid          bool             `json:"isPaid"`
		CreatedAt       time.Time        `json:"createdAt"`
	}
)

var (
	ErrInvalidYear         = errors.New("year out of range")
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrSignMismatch        = errors.New("amount sign does not match expense type")
	ErrEmptyName           = errors.New("empty name")
	ErrNameTooLong         = errors.New("name too long (max 200 characters)")
	ErrInvalidFrequency    = errors.New("invalid expense frequency")
	ErrInvalidPayFrequency = errors.New("invalid pay frequency")
	ErrInvalidExpenseType  = errors.New("invalid expense type")
	ErrInvalidColor        = errors.New("invalid color")
)

var hexColor = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// CompositeID is the key that marks a master record as already projected onto a period.
func CompositeID(periodID, masterID string) string {
	return periodID + "-" + masterID
}

func (f PayFrequency) IsValid() bool {
	switch f {
	case PayWeekly, PayBiWeekly, PayMonthly, PaySemiMonthly:
		return true
	}
	return false
}

func (f ExpenseFrequency) IsValid() bool {
	switch f {
	case Monthly, BiWeekly, Every30Days, OneTime:
		return true
	}
	return false
}

// IsRecurring is false only for one-time expenses.
func (f ExpenseFrequency) IsRecurring() bool {
	return f != OneTime
}

func (t ExpenseType) IsValid() bool {
	return t == Withdrawal || t == Deposit
}

func validateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return ErrEmptyName
	}
	if len(name) > maxNameLength {
		return ErrNameTooLong
	}
	return nil
}

func (p PayInfo) Validate() error {
	if !p.PayFrequency.IsValid() {
		return ErrInvalidPayFrequency
	}
	if err := p.StartDate.Validate(); err != nil {
		return errors.New("invalid start date: " + err.Error())
	}
	if p.TakeHomePay.IsNegative() {
		return ErrInvalidAmount
	}
	return nil
}

func (e MasterExpense) Validate() error {
	if err := validateName(e.Name); err != nil {
		return err
	}
	if !e.Type.IsValid() {
		return ErrInvalidExpenseType
	}
	if !e.Frequency.IsValid() {
		return ErrInvalidFrequency
	}
	if err := e.DueDate.Validate(); err != nil {
		return errors.New("invalid due date: " + err.Error())
	}
	return ValidateSignedAmount(e.Amount, e.Type)
}

func (a MasterBankAccount) Validate() error {
	if err := validateName(a.Name); err != nil {
		return err
	}
	if a.Color != "" && !hexColor.MatchString(a.Color) {
		return ErrInvalidColor
	}
	return nil
}

// HasExpense reports whether the expense id is in the account's set.
func (a MasterBankAccount) HasExpense(expenseID string) bool {
	return containsID(a.ExpenseIDs, expenseID)
}

func (a PayPeriodBankAccount) HasExpense(expenseID string) bool {
	return containsID(a.ExpenseIDs, expenseID)
}

// Contains reports whether d lies within the period, both ends inclusive.
func (p PayPeriod) Contains(d Date) bool {
	return d.Between(p.StartDate, p.EndDate)
}

func containsID(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

// AddID returns ids with id appended unless already present.
func AddID(ids []string, id string) []string {
	if containsID(ids, id) {
		return ids
	}
	out := make([]string, 0, len(ids)+1)
	out = append(out, ids...)
	return append(out, id)
}

// RemoveID returns ids without id.
func RemoveID(ids []string, id string) []string {
	out := make([]string, 0, len(ids))
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
