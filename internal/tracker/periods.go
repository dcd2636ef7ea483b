package tracker

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"paycalc/internal/core"
	"paycalc/internal/log"
	"paycalc/internal/period"
	"paycalc/internal/services"
	"paycalc/internal/store"
)

// OpenCurrentPeriod opens the period containing today.
func (t *Tracker) OpenCurrentPeriod(ctx context.Context) (core.PayPeriod, error) {
	info, err := t.payInfo()
	if err != nil {
		return core.PayPeriod{}, err
	}
	return t.OpenPeriod(ctx, period.LocateCurrentStart(info, t.today()))
}

// OpenPeriodContaining opens the period that day falls in.
func (t *Tracker) OpenPeriodContaining(ctx context.Context, day core.Date) (core.PayPeriod, error) {
	info, err := t.payInfo()
	if err != nil {
		return core.PayPeriod{}, err
	}
	return t.OpenPeriod(ctx, period.LocateCurrentStart(info, day))
}

// OpenPeriod finds or creates the period starting at start, materializes it
// on first open, and makes it the current period.
func (t *Tracker) OpenPeriod(ctx context.Context, start core.Date) (core.PayPeriod, error) {
	uid, err := t.uid()
	if err != nil {
		return core.PayPeriod{}, err
	}
	info, err := t.payInfo()
	if err != nil {
		return core.PayPeriod{}, err
	}

	t.update(func(s *State) { s.Loading = true })
	defer t.update(func(s *State) { s.Loading = false })

	p, err := t.periods.Open(ctx, uid, info, start, t.masters())
	if err != nil {
		return core.PayPeriod{}, t.fail(ctx, log.OpMaterialize, err)
	}
	if err := t.selectPeriod(ctx, uid, p); err != nil {
		return core.PayPeriod{}, err
	}
	t.emit(ctx, Event{Kind: EventPeriodOpened, PeriodID: p.ID})
	return p, nil
}

func (t *Tracker) selectPeriod(ctx context.Context, uid string, p core.PayPeriod) error {
	accounts, err := t.periods.PeriodAccounts(ctx, uid, p.ID)
	if err != nil {
		return t.fail(ctx, log.OpRead, err)
	}
	expenses, err := t.periods.PeriodExpenses(ctx, uid, p.ID)
	if err != nil {
		return t.fail(ctx, log.OpRead, err)
	}
	t.update(func(s *State) {
		cur := p
		s.CurrentPayPeriod = &cur
		s.PayPeriods = upsertPeriod(s.PayPeriods, p)
		s.PayPeriodBankAccounts = accounts
		s.PayPeriodExpenses = expenses
		s.SelectedPeriodAccountID = ""
		s.SelectedPeriodExpenseID = ""
	})
	return nil
}

func (t *Tracker) NextPeriod(ctx context.Context) (core.PayPeriod, error) {
	return t.navigate(ctx, period.Next)
}

func (t *Tracker) PreviousPeriod(ctx context.Context) (core.PayPeriod, error) {
	return t.navigate(ctx, period.Previous)
}

func (t *Tracker) navigate(ctx context.Context, dir period.Direction) (core.PayPeriod, error) {
	info, err := t.payInfo()
	if err != nil {
		return core.PayPeriod{}, err
	}
	cur, err := t.currentPeriod()
	if err != nil {
		return core.PayPeriod{}, err
	}
	start, err := period.Shift(cur.StartDate, info.PayFrequency, dir)
	if err != nil {
		return core.PayPeriod{}, err
	}
	t.logger.DebugContext(ctx, "Navigating periods",
		log.FieldOperation, log.OpNavigate,
		log.FieldDirection, string(dir),
		log.FieldPeriodStart, start.String())
	return t.OpenPeriod(ctx, start)
}

// ResetCurrentPeriod throws away every copy in the current period and
// rebuilds it from the master data.
func (t *Tracker) ResetCurrentPeriod(ctx context.Context) (core.PayPeriod, error) {
	uid, err := t.uid()
	if err != nil {
		return core.PayPeriod{}, err
	}
	info, err := t.payInfo()
	if err != nil {
		return core.PayPeriod{}, err
	}
	cur, err := t.currentPeriod()
	if err != nil {
		return core.PayPeriod{}, err
	}

	p, err := t.periods.Reset(ctx, uid, info, cur.StartDate, t.masters())
	if err != nil {
		return core.PayPeriod{}, t.fail(ctx, log.OpReset, err)
	}
	if err := t.selectPeriod(ctx, uid, p); err != nil {
		return core.PayPeriod{}, err
	}
	t.emit(ctx, Event{Kind: EventPeriodReset, PeriodID: p.ID})
	return p, nil
}

// SyncPeriods copies master records missing from any stored period.
func (t *Tracker) SyncPeriods(ctx context.Context) (services.SyncResult, error) {
	uid, err := t.uid()
	if err != nil {
		return services.SyncResult{}, err
	}
	res, syncErr := t.syncer.PropagateNewMasterData(ctx, uid, t.masters())

	// Whatever was copied before a failure is stored, so show it.
	if p, err := t.currentPeriod(); err == nil {
		if err := t.selectPeriod(ctx, uid, p); err != nil && syncErr == nil {
			syncErr = err
		}
	}

	msg := ""
	if syncErr != nil {
		msg = syncErr.Error()
	}
	t.update(func(s *State) { s.LastSyncError = msg })
	if syncErr != nil {
		return res, syncErr
	}
	t.emit(ctx, Event{Kind: EventPeriodsSynced})
	return res, nil
}

// propagate runs after a master record is added. The master write already
// succeeded, so a failure here is recorded rather than returned; SyncPeriods
// retries it.
func (t *Tracker) propagate(ctx context.Context) {
	if _, err := t.SyncPeriods(ctx); err != nil {
		t.logger.WarnContext(ctx, "Period synchronization incomplete", log.FieldOperation, log.OpSync, log.FieldError, err)
	}
}

// AssignExpenseToAccount links a period expense to a period account.
// Assigning twice is a no-op.
func (t *Tracker) AssignExpenseToAccount(ctx context.Context, accountID, expenseID string) error {
	return t.editAccountExpenses(ctx, accountID, expenseID, EventExpenseAssigned, core.AddID)
}

func (t *Tracker) UnassignExpenseFromAccount(ctx context.Context, accountID, expenseID string) error {
	return t.editAccountExpenses(ctx, accountID, expenseID, EventExpenseUnassigned, core.RemoveID)
}

func (t *Tracker) editAccountExpenses(ctx context.Context, accountID, expenseID string, kind EventKind, edit func([]string, string) []string) error {
	uid, err := t.uid()
	if err != nil {
		return err
	}
	a, err := t.periodAccount(ctx, uid, accountID)
	if err != nil {
		return err
	}

	ids := edit(a.ExpenseIDs, expenseID)
	if len(ids) == len(a.ExpenseIDs) {
		return nil
	}
	if err := t.store.Update(ctx, uid, store.PayPeriodBankAccounts, a.ID, store.Fields("expenseIds", ids)); err != nil {
		return t.fail(ctx, log.OpUpdate, fmt.Errorf("update period account %s: %w", a.ID, err))
	}

	t.update(func(s *State) {
		for i := range s.PayPeriodBankAccounts {
			if s.PayPeriodBankAccounts[i].ID == a.ID {
				s.PayPeriodBankAccounts[i].ExpenseIDs = cloneIDs(ids)
			}
		}
	})
	t.logger.DebugContext(ctx, "Period account expenses changed",
		log.FieldOperation, log.OpUpdate,
		log.FieldAccountID, a.ID,
		log.FieldExpenseID, expenseID,
		log.FieldEvent, string(kind))
	t.emit(ctx, Event{Kind: kind, PeriodID: a.PayPeriodID, EntityID: a.ID})
	return nil
}

// SetPaidStatus marks the period expense with the given composite id as paid
// or unpaid.
func (t *Tracker) SetPaidStatus(ctx context.Context, compositeID string, paid bool) error {
	uid, err := t.uid()
	if err != nil {
		return err
	}
	e, ok := t.FindPeriodExpenseByCompositeID(compositeID)
	if !ok {
		return fmt.Errorf("period expense %s: %w", compositeID, ErrUnknownID)
	}
	if err := t.store.Update(ctx, uid, store.PayPeriodExpenses, e.ID, store.Fields("isPaid", paid)); err != nil {
		return t.fail(ctx, log.OpUpdate, fmt.Errorf("update period expense %s: %w", e.ID, err))
	}
	t.update(func(s *State) {
		for i := range s.PayPeriodExpenses {
			if s.PayPeriodExpenses[i].ID == e.ID {
				s.PayPeriodExpenses[i].IsPaid = paid
			}
		}
	})
	t.emit(ctx, Event{Kind: EventPaidStatusChanged, PeriodID: e.PayPeriodID, EntityID: e.ID})
	return nil
}

func (t *Tracker) DeletePeriodAccount(ctx context.Context, id string) error {
	uid, err := t.uid()
	if err != nil {
		return err
	}
	a, err := t.periodAccount(ctx, uid, id)
	if err != nil {
		return err
	}
	if err := t.store.Delete(ctx, uid, store.PayPeriodBankAccounts, id); err != nil {
		return t.fail(ctx, log.OpDelete, fmt.Errorf("delete period account %s: %w", id, err))
	}
	t.update(func(s *State) {
		s.PayPeriodBankAccounts = removeWhere(s.PayPeriodBankAccounts, func(a core.PayPeriodBankAccount) bool { return a.ID == id })
		if s.SelectedPeriodAccountID == id {
			s.SelectedPeriodAccountID = ""
		}
	})
	t.emit(ctx, Event{Kind: EventPeriodAccountDeleted, PeriodID: a.PayPeriodID, EntityID: id})
	return nil
}

// DeletePeriodExpense removes a period expense and detaches it from the
// period accounts that hold it.
func (t *Tracker) DeletePeriodExpense(ctx context.Context, id string) error {
	uid, err := t.uid()
	if err != nil {
		return err
	}
	e, err := t.periodExpense(ctx, uid, id)
	if err != nil {
		return err
	}

	accounts, err := t.periods.PeriodAccounts(ctx, uid, e.PayPeriodID)
	if err != nil {
		return t.fail(ctx, log.OpRead, err)
	}
	for _, a := range accounts {
		if a.HasExpense(id) {
			if err := t.UnassignExpenseFromAccount(ctx, a.ID, id); err != nil {
				return err
			}
		}
	}

	if err := t.store.Delete(ctx, uid, store.PayPeriodExpenses, id); err != nil {
		return t.fail(ctx, log.OpDelete, fmt.Errorf("delete period expense %s: %w", id, err))
	}
	t.update(func(s *State) {
		s.PayPeriodExpenses = removeWhere(s.PayPeriodExpenses, func(e core.PayPeriodExpense) bool { return e.ID == id })
		if s.SelectedPeriodExpenseID == id {
			s.SelectedPeriodExpenseID = ""
		}
	})
	t.emit(ctx, Event{Kind: EventPeriodExpenseDeleted, PeriodID: e.PayPeriodID, EntityID: id})
	return nil
}

// periodAccount looks in the current period first, then the store.
func (t *Tracker) periodAccount(ctx context.Context, uid, id string) (core.PayPeriodBankAccount, error) {
	t.mu.RLock()
	for _, a := range t.state.PayPeriodBankAccounts {
		if a.ID == id {
			a.ExpenseIDs = cloneIDs(a.ExpenseIDs)
			t.mu.RUnlock()
			return a, nil
		}
	}
	t.mu.RUnlock()

	var a core.PayPeriodBankAccount
	if err := t.getDoc(ctx, uid, store.PayPeriodBankAccounts, id, &a); err != nil {
		return a, err
	}
	return a, nil
}

func (t *Tracker) periodExpense(ctx context.Context, uid, id string) (core.PayPeriodExpense, error) {
	t.mu.RLock()
	for _, e := range t.state.PayPeriodExpenses {
		if e.ID == id {
			t.mu.RUnlock()
			return e, nil
		}
	}
	t.mu.RUnlock()

	var e core.PayPeriodExpense
	if err := t.getDoc(ctx, uid, store.PayPeriodExpenses, id, &e); err != nil {
		return e, err
	}
	return e, nil
}

func (t *Tracker) getDoc(ctx context.Context, uid, coll, id string, out any) error {
	rec, err := t.store.Get(ctx, uid, coll, id)
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%s %s: %w", coll, id, ErrUnknownID)
	}
	if err != nil {
		return t.fail(ctx, log.OpRead, fmt.Errorf("get %s %s: %w", coll, id, err))
	}
	return store.Decode(rec, out)
}

func (t *Tracker) FindPeriodExpenseByCompositeID(compositeID string) (core.PayPeriodExpense, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, e := range t.state.PayPeriodExpenses {
		if e.CompositeID == compositeID {
			return e, true
		}
	}
	return core.PayPeriodExpense{}, false
}

func (t *Tracker) FindPeriodAccountByCompositeID(compositeID string) (core.PayPeriodBankAccount, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, a := range t.state.PayPeriodBankAccounts {
		if a.CompositeID == compositeID {
			a.ExpenseIDs = cloneIDs(a.ExpenseIDs)
			return a, true
		}
	}
	return core.PayPeriodBankAccount{}, false
}

// CurrentBalance is the period account's starting balance plus every
// assigned expense of the current period.
func (t *Tracker) CurrentBalance(periodAccountID string) (decimal.Decimal, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, a := range t.state.PayPeriodBankAccounts {
		if a.ID == periodAccountID {
			return services.PeriodAccountBalance(a, t.state.PayPeriodExpenses), nil
		}
	}
	return decimal.Zero, fmt.Errorf("period account %s: %w", periodAccountID, ErrUnknownID)
}

// MasterBalance projects a master account over its assigned master expenses.
func (t *Tracker) MasterBalance(accountID string) (decimal.Decimal, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, a := range t.state.MasterBankAccounts {
		if a.ID == accountID {
			return services.MasterAccountBalance(a, t.state.MasterExpenses), nil
		}
	}
	return decimal.Zero, fmt.Errorf("bank account %s: %w", accountID, ErrUnknownID)
}

func (t *Tracker) ExpensesForAccount(periodAccountID string) []core.PayPeriodExpense {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, a := range t.state.PayPeriodBankAccounts {
		if a.ID == periodAccountID {
			return services.ExpensesForAccount(a, t.state.PayPeriodExpenses)
		}
	}
	return nil
}

func (t *Tracker) AccountsForExpense(periodExpenseID string) []core.PayPeriodBankAccount {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := services.AccountsForExpense(periodExpenseID, t.state.PayPeriodBankAccounts)
	for i := range out {
		out[i].ExpenseIDs = cloneIDs(out[i].ExpenseIDs)
	}
	return out
}

// Totals sums the current period's expenses.
func (t *Tracker) Totals() core.PeriodTotals {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return core.SummarizePeriod(t.state.PayPeriodExpenses)
}

func (t *Tracker) SelectBankAccount(id string) {
	t.setUI(func(s *State) { s.SelectedBankAccountID = id })
}

func (t *Tracker) SelectExpense(id string) {
	t.setUI(func(s *State) { s.SelectedExpenseID = id })
}

func (t *Tracker) SelectPeriodAccount(id string) {
	t.setUI(func(s *State) { s.SelectedPeriodAccountID = id })
}

func (t *Tracker) SelectPeriodExpense(id string) {
	t.setUI(func(s *State) { s.SelectedPeriodExpenseID = id })
}

func (t *Tracker) SetNewBankAccountFormOpen(open bool) {
	t.setUI(func(s *State) { s.NewBankAccountFormOpen = open })
}

func (t *Tracker) SetNewExpenseFormOpen(open bool) {
	t.setUI(func(s *State) { s.NewExpenseFormOpen = open })
}

func (t *Tracker) setUI(fn func(*State)) {
	t.update(fn)
	t.emit(context.Background(), Event{Kind: EventSelectionChanged})
}
