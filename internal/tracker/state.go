package tracker

import (
	"context"
	"time"

	"paycalc/internal/auth"
	"paycalc/internal/core"
)

// State is everything a front end renders. Callers only ever see copies.
type State struct {
	User       *auth.Identity
	LoginError string

	MasterBankAccounts []core.MasterBankAccount
	MasterExpenses     []core.MasterExpense
	PayInfo            *core.PayInfo

	PayPeriods            []core.PayPeriod
	CurrentPayPeriod      *core.PayPeriod
	PayPeriodBankAccounts []core.PayPeriodBankAccount
	PayPeriodExpenses     []core.PayPeriodExpense

	SelectedBankAccountID   string
	SelectedExpenseID       string
	SelectedPeriodAccountID string
	SelectedPeriodExpenseID string
	NewBankAccountFormOpen  bool
	NewExpenseFormOpen      bool

	Loading       bool
	LastSyncError string
}

// EventKind names a state change.
type EventKind string

const (
	EventSignedIn             EventKind = "signed_in"
	EventSignedOut            EventKind = "signed_out"
	EventLoginFailed          EventKind = "login_failed"
	EventReloaded             EventKind = "reloaded"
	EventBankAccountCreated   EventKind = "bank_account_created"
	EventBankAccountUpdated   EventKind = "bank_account_updated"
	EventBankAccountDeleted   EventKind = "bank_account_deleted"
	EventExpenseCreated       EventKind = "expense_created"
	EventExpenseUpdated       EventKind = "expense_updated"
	EventExpenseDeleted       EventKind = "expense_deleted"
	EventPayInfoSaved         EventKind = "pay_info_saved"
	EventPeriodOpened         EventKind = "period_opened"
	EventPeriodReset          EventKind = "period_reset"
	EventPeriodsSynced        EventKind = "periods_synced"
	EventExpenseAssigned      EventKind = "expense_assigned"
	EventExpenseUnassigned    EventKind = "expense_unassigned"
	EventPaidStatusChanged    EventKind = "paid_status_changed"
	EventPeriodAccountDeleted EventKind = "period_account_deleted"
	EventPeriodExpenseDeleted EventKind = "period_expense_deleted"
	EventSelectionChanged     EventKind = "selection_changed"
)

// Event describes one successful mutation.
type Event struct {
	Kind     EventKind `json:"kind"`
	UserUID  string    `json:"userUID,omitempty"`
	PeriodID string    `json:"periodId,omitempty"`
	EntityID string    `json:"entityId,omitempty"`
	At       time.Time `json:"at"`
}

// Observer is told about every state change, after it happened. Observers
// run synchronously on the caller's goroutine and cannot veto a change.
type Observer interface {
	Notify(ctx context.Context, ev Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, ev Event)

func (f ObserverFunc) Notify(ctx context.Context, ev Event) { f(ctx, ev) }

func cloneIDs(ids []string) []string {
	if ids == nil {
		return nil
	}
	return append([]string(nil), ids...)
}

func (s State) clone() State {
	c := s
	if s.User != nil {
		u := *s.User
		c.User = &u
	}
	if s.PayInfo != nil {
		p := *s.PayInfo
		c.PayInfo = &p
	}
	if s.CurrentPayPeriod != nil {
		p := *s.CurrentPayPeriod
		c.CurrentPayPeriod = &p
	}

	c.MasterBankAccounts = nil
	for _, a := range s.MasterBankAccounts {
		a.ExpenseIDs = cloneIDs(a.ExpenseIDs)
		c.MasterBankAccounts = append(c.MasterBankAccounts, a)
	}
	c.MasterExpenses = append([]core.MasterExpense(nil), s.MasterExpenses...)
	c.PayPeriods = append([]core.PayPeriod(nil), s.PayPeriods...)
	c.PayPeriodBankAccounts = nil
	for _, a := range s.PayPeriodBankAccounts {
		a.ExpenseIDs = cloneIDs(a.ExpenseIDs)
		c.PayPeriodBankAccounts = append(c.PayPeriodBankAccounts, a)
	}
	c.PayPeriodExpenses = append([]core.PayPeriodExpense(nil), s.PayPeriodExpenses...)
	return c
}
