package services

import (
	"context"
	"fmt"
	"time"

	"paycalc/internal/core"
	"paycalc/internal/log"
	"paycalc/internal/period"
	"paycalc/internal/store"
)

// SyncResult counts the copies one synchronization created.
type SyncResult struct {
	PeriodsVisited  int
	AccountsCreated int
	ExpensesCreated int
}

func (r SyncResult) add(o SyncResult) SyncResult {
	return SyncResult{
		PeriodsVisited:  r.PeriodsVisited + o.PeriodsVisited,
		AccountsCreated: r.AccountsCreated + o.AccountsCreated,
		ExpensesCreated: r.ExpensesCreated + o.ExpensesCreated,
	}
}

// Synchronizer pushes master data that is new since a period was
// materialized into every stored period.
type Synchronizer struct {
	periods *PeriodRepository
	logger  *log.Logger
}

func NewSynchronizer(periods *PeriodRepository, logger *log.Logger) *Synchronizer {
	return &Synchronizer{
		periods: periods,
		logger:  log.OrDiscard(logger).WithComponent(log.ComponentSync),
	}
}

// PropagateNewMasterData creates, in every stored period, one copy of each
// master account and each in-period master expense that the period does not
// yet hold. Running it twice creates nothing the second time. Writes are
// sequential and it stops at the first store error; copies made before the
// error are kept.
func (s *Synchronizer) PropagateNewMasterData(ctx context.Context, uid string, m MasterData) (SyncResult, error) {
	var total SyncResult

	periods, err := s.periods.ListPeriods(ctx, uid)
	if err != nil {
		return total, err
	}

	now := s.periods.now().UTC()
	for _, p := range periods {
		expenses, err := s.periods.PeriodExpenses(ctx, uid, p.ID)
		if err != nil {
			return total, err
		}
		accounts, err := s.periods.PeriodAccounts(ctx, uid, p.ID)
		if err != nil {
			return total, err
		}

		res, err := copyMasters(ctx, s.periods.store, uid, p, m, expenses, accounts, now)
		total = total.add(res)
		total.PeriodsVisited++
		if err != nil {
			s.logger.ErrorContext(ctx, "Period synchronization stopped",
				log.FieldOperation, log.OpSync,
				log.FieldPeriodID, p.ID,
				log.FieldError, err)
			return total, fmt.Errorf("sync period %s: %w", p.ID, err)
		}
	}

	s.logger.InfoContext(ctx, "Periods synchronized",
		log.FieldOperation, log.OpSync,
		"periods", total.PeriodsVisited,
		"accounts_created", total.AccountsCreated,
		"expenses_created", total.ExpensesCreated)
	return total, nil
}

// NewPeriodExpense builds the period copy of a master expense.
func NewPeriodExpense(p core.PayPeriod, e core.MasterExpense, now time.Time) core.PayPeriodExpense {
	return core.PayPeriodExpense{
		PayPeriodID:     p.ID,
		MasterExpenseID: e.ID,
		CompositeID:     core.CompositeID(p.ID, e.ID),
		Name:            e.Name,
		Amount:          e.Amount,
		Type:            e.Type,
		NextDueDate:     period.DueDateForPeriod(e, p),
		Frequency:       e.Frequency,
		IsPaid:          false,
		CreatedAt:       now,
	}
}

// NewPeriodAccount builds the period copy of a master account. expenseIDs
// must already reference period expense copies.
func NewPeriodAccount(p core.PayPeriod, a core.MasterBankAccount, expenseIDs []string, now time.Time) core.PayPeriodBankAccount {
	if expenseIDs == nil {
		expenseIDs = []string{}
	}
	return core.PayPeriodBankAccount{
		PayPeriodID:         p.ID,
		MasterBankAccountID: a.ID,
		CompositeID:         core.CompositeID(p.ID, a.ID),
		Name:                a.Name,
		Color:               a.Color,
		StartingBalance:     a.StartingBalance,
		CurrentBalance:      a.StartingBalance,
		ExpenseIDs:          expenseIDs,
		CreatedAt:           now,
	}
}

// copyMasters creates the copies of m missing from period p, expenses first.
func copyMasters(
	ctx context.Context,
	s store.DocumentStore,
	uid string,
	p core.PayPeriod,
	m MasterData,
	existingExpenses []core.PayPeriodExpense,
	existingAccounts []core.PayPeriodBankAccount,
	now time.Time,
) (SyncResult, error) {
	var res SyncResult

	// master expense id -> period expense document id
	copies := make(map[string]string, len(existingExpenses))
	for _, e := range existingExpenses {
		copies[e.MasterExpenseID] = e.ID
	}

	for _, e := range m.Expenses {
		if _, ok := copies[e.ID]; ok {
			continue
		}
		if !period.IsExpenseInPeriod(e, p) {
			continue
		}
		data, err := store.Encode(NewPeriodExpense(p, e, now))
		if err != nil {
			return res, err
		}
		id, err := s.Create(ctx, uid, store.PayPeriodExpenses, data)
		if err != nil {
			return res, fmt.Errorf("copy expense %s: %w", e.ID, err)
		}
		copies[e.ID] = id
		res.ExpensesCreated++
	}

	represented := make(map[string]bool, len(existingAccounts))
	for _, a := range existingAccounts {
		represented[a.CompositeID] = true
	}

	for _, a := range m.Accounts {
		if represented[core.CompositeID(p.ID, a.ID)] {
			continue
		}
		ids := make([]string, 0, len(a.ExpenseIDs))
		for _, masterID := range a.ExpenseIDs {
			if copyID, ok := copies[masterID]; ok {
				ids = core.AddID(ids, copyID)
			}
		}
		data, err := store.Encode(NewPeriodAccount(p, a, ids, now))
		if err != nil {
			return res, err
		}
		if _, err := s.Create(ctx, uid, store.PayPeriodBankAccounts, data); err != nil {
			return res, fmt.Errorf("copy account %s: %w", a.ID, err)
		}
		res.AccountsCreated++
	}

	return res, nil
}
