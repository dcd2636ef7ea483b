package tracker

import (
	"context"
	"fmt"

	"paycalc/internal/core"
	"paycalc/internal/log"
	"paycalc/internal/recurrence"
	"paycalc/internal/store"
)

// AddBankAccount stores a new master account and copies it into every
// existing pay period.
func (t *Tracker) AddBankAccount(ctx context.Context, a core.MasterBankAccount) (core.MasterBankAccount, error) {
	uid, err := t.uid()
	if err != nil {
		return a, err
	}
	now := t.now().UTC()
	a.ID = ""
	a.UserUID = uid
	a.ExpenseIDs = dedupe(a.ExpenseIDs)
	a.CreatedAt, a.UpdatedAt = now, now
	if err := a.Validate(); err != nil {
		return a, err
	}

	data, err := store.Encode(a)
	if err != nil {
		return a, err
	}
	id, err := t.store.Create(ctx, uid, store.BankAccounts, data)
	if err != nil {
		return a, t.fail(ctx, log.OpCreate, fmt.Errorf("create bank account: %w", err))
	}
	a.ID = id

	t.update(func(s *State) {
		stored := a
		stored.ExpenseIDs = cloneIDs(a.ExpenseIDs)
		s.MasterBankAccounts = append(s.MasterBankAccounts, stored)
	})
	t.logger.InfoContext(ctx, "Bank account created", log.FieldOperation, log.OpCreate, log.FieldAccountID, id)
	t.emit(ctx, Event{Kind: EventBankAccountCreated, EntityID: id})
	t.propagate(ctx)
	return a, nil
}

// UpdateBankAccount overwrites the editable fields of a master account.
// Period copies keep the values they were created with.
func (t *Tracker) UpdateBankAccount(ctx context.Context, a core.MasterBankAccount) (core.MasterBankAccount, error) {
	uid, err := t.uid()
	if err != nil {
		return a, err
	}
	existing, ok := t.masterAccount(a.ID)
	if !ok {
		return a, fmt.Errorf("bank account %s: %w", a.ID, ErrUnknownID)
	}
	a.UserUID = uid
	a.ExpenseIDs = dedupe(a.ExpenseIDs)
	a.CreatedAt = existing.CreatedAt
	a.UpdatedAt = t.now().UTC()
	if err := a.Validate(); err != nil {
		return a, err
	}

	fields := store.Fields(
		"name", a.Name,
		"startingBalance", a.StartingBalance,
		"color", a.Color,
		"expenseIds", a.ExpenseIDs,
		"updatedAt", a.UpdatedAt,
	)
	if err := t.store.Update(ctx, uid, store.BankAccounts, a.ID, fields); err != nil {
		return a, t.fail(ctx, log.OpUpdate, fmt.Errorf("update bank account %s: %w", a.ID, err))
	}

	t.update(func(s *State) {
		for i := range s.MasterBankAccounts {
			if s.MasterBankAccounts[i].ID == a.ID {
				s.MasterBankAccounts[i] = a
				s.MasterBankAccounts[i].ExpenseIDs = cloneIDs(a.ExpenseIDs)
			}
		}
	})
	t.emit(ctx, Event{Kind: EventBankAccountUpdated, EntityID: a.ID})
	return a, nil
}

func (t *Tracker) DeleteBankAccount(ctx context.Context, id string) error {
	uid, err := t.uid()
	if err != nil {
		return err
	}
	if err := t.store.Delete(ctx, uid, store.BankAccounts, id); err != nil {
		return t.fail(ctx, log.OpDelete, fmt.Errorf("delete bank account %s: %w", id, err))
	}
	t.update(func(s *State) {
		s.MasterBankAccounts = removeWhere(s.MasterBankAccounts, func(a core.MasterBankAccount) bool { return a.ID == id })
		if s.SelectedBankAccountID == id {
			s.SelectedBankAccountID = ""
		}
	})
	t.logger.InfoContext(ctx, "Bank account deleted", log.FieldOperation, log.OpDelete, log.FieldAccountID, id)
	t.emit(ctx, Event{Kind: EventBankAccountDeleted, EntityID: id})
	return nil
}

// AddExpense stores a new master expense with its NextDueDate computed from
// today, then copies it into every existing period it falls in.
func (t *Tracker) AddExpense(ctx context.Context, e core.MasterExpense) (core.MasterExpense, error) {
	uid, err := t.uid()
	if err != nil {
		return e, err
	}
	now := t.now().UTC()
	e.ID = ""
	e.UserUID = uid
	e.CreatedAt, e.UpdatedAt = now, now
	if err := e.Validate(); err != nil {
		return e, err
	}
	e.NextDueDate = recurrence.NextOccurrence(e.DueDate, e.Frequency, t.today())

	data, err := store.Encode(e)
	if err != nil {
		return e, err
	}
	id, err := t.store.Create(ctx, uid, store.Expenses, data)
	if err != nil {
		return e, t.fail(ctx, log.OpCreate, fmt.Errorf("create expense: %w", err))
	}
	e.ID = id

	t.update(func(s *State) { s.MasterExpenses = append(s.MasterExpenses, e) })
	t.logger.InfoContext(ctx, "Expense created",
		log.FieldOperation, log.OpCreate,
		log.FieldExpenseID, id,
		log.FieldFrequency, string(e.Frequency))
	t.emit(ctx, Event{Kind: EventExpenseCreated, EntityID: id})
	t.propagate(ctx)
	return e, nil
}

// UpdateExpense rewrites a master expense. Every update writes the due date
// and frequency, so NextDueDate is recomputed each time.
func (t *Tracker) UpdateExpense(ctx context.Context, e core.MasterExpense) (core.MasterExpense, error) {
	uid, err := t.uid()
	if err != nil {
		return e, err
	}
	existing, ok := t.masterExpense(e.ID)
	if !ok {
		return e, fmt.Errorf("expense %s: %w", e.ID, ErrUnknownID)
	}
	e.UserUID = uid
	e.CreatedAt = existing.CreatedAt
	e.UpdatedAt = t.now().UTC()
	if err := e.Validate(); err != nil {
		return e, err
	}
	e.NextDueDate = recurrence.NextOccurrence(e.DueDate, e.Frequency, t.today())

	fields := store.Fields(
		"name", e.Name,
		"amount", e.Amount,
		"type", e.Type,
		"dueDate", e.DueDate,
		"frequency", e.Frequency,
		"nextDueDate", e.NextDueDate,
		"isPaid", e.IsPaid,
		"updatedAt", e.UpdatedAt,
	)
	if err := t.store.Update(ctx, uid, store.Expenses, e.ID, fields); err != nil {
		return e, t.fail(ctx, log.OpUpdate, fmt.Errorf("update expense %s: %w", e.ID, err))
	}

	t.update(func(s *State) {
		for i := range s.MasterExpenses {
			if s.MasterExpenses[i].ID == e.ID {
				s.MasterExpenses[i] = e
			}
		}
	})
	t.emit(ctx, Event{Kind: EventExpenseUpdated, EntityID: e.ID})
	return e, nil
}

// DeleteExpense detaches the expense from every master account holding it,
// then deletes it.
func (t *Tracker) DeleteExpense(ctx context.Context, id string) error {
	uid, err := t.uid()
	if err != nil {
		return err
	}

	for _, a := range t.masters().Accounts {
		if !a.HasExpense(id) {
			continue
		}
		ids := core.RemoveID(a.ExpenseIDs, id)
		now := t.now().UTC()
		if err := t.store.Update(ctx, uid, store.BankAccounts, a.ID, store.Fields("expenseIds", ids, "updatedAt", now)); err != nil {
			return t.fail(ctx, log.OpUpdate, fmt.Errorf("detach expense from account %s: %w", a.ID, err))
		}
		t.update(func(s *State) {
			for i := range s.MasterBankAccounts {
				if s.MasterBankAccounts[i].ID == a.ID {
					s.MasterBankAccounts[i].ExpenseIDs = ids
					s.MasterBankAccounts[i].UpdatedAt = now
				}
			}
		})
	}

	if err := t.store.Delete(ctx, uid, store.Expenses, id); err != nil {
		return t.fail(ctx, log.OpDelete, fmt.Errorf("delete expense %s: %w", id, err))
	}
	t.update(func(s *State) {
		s.MasterExpenses = removeWhere(s.MasterExpenses, func(e core.MasterExpense) bool { return e.ID == id })
		if s.SelectedExpenseID == id {
			s.SelectedExpenseID = ""
		}
	})
	t.logger.InfoContext(ctx, "Expense deleted", log.FieldOperation, log.OpDelete, log.FieldExpenseID, id)
	t.emit(ctx, Event{Kind: EventExpenseDeleted, EntityID: id})
	return nil
}

// SavePayInfo stores the pay schedule and opens the period containing
// today. The anchor date is fixed once any period has been created.
func (t *Tracker) SavePayInfo(ctx context.Context, info core.PayInfo) (core.PayInfo, error) {
	uid, err := t.uid()
	if err != nil {
		return info, err
	}
	if err := info.Validate(); err != nil {
		return info, err
	}

	t.mu.RLock()
	existing := t.state.PayInfo
	havePeriods := len(t.state.PayPeriods) > 0
	t.mu.RUnlock()

	now := t.now().UTC()
	info.ID = store.PayInfoID
	info.UserUID = uid
	info.CreatedAt, info.UpdatedAt = now, now
	if existing != nil {
		if havePeriods && !existing.StartDate.Equal(info.StartDate) {
			return info, ErrAnchorLocked
		}
		info.CreatedAt = existing.CreatedAt
	}

	data, err := store.Encode(info)
	if err != nil {
		return info, err
	}
	if err := t.store.Set(ctx, uid, store.PayInfo, store.PayInfoID, data); err != nil {
		return info, t.fail(ctx, log.OpSet, fmt.Errorf("save pay info: %w", err))
	}

	t.update(func(s *State) {
		p := info
		s.PayInfo = &p
	})
	t.logger.InfoContext(ctx, "Pay info saved",
		log.FieldOperation, log.OpSet,
		log.FieldFrequency, string(info.PayFrequency),
		log.FieldPeriodStart, info.StartDate.String())
	t.emit(ctx, Event{Kind: EventPayInfoSaved, EntityID: info.ID})

	if _, err := t.OpenCurrentPeriod(ctx); err != nil {
		return info, err
	}
	return info, nil
}

// LoadPayInfo rereads the pay schedule and opens the period containing today.
func (t *Tracker) LoadPayInfo(ctx context.Context) (core.PayInfo, error) {
	uid, err := t.uid()
	if err != nil {
		return core.PayInfo{}, err
	}
	info, err := t.readPayInfo(ctx, uid)
	if err != nil {
		return core.PayInfo{}, t.fail(ctx, log.OpRead, err)
	}
	if info == nil {
		return core.PayInfo{}, ErrNoPayInfo
	}
	t.update(func(s *State) { s.PayInfo = info })
	if _, err := t.OpenCurrentPeriod(ctx); err != nil {
		return *info, err
	}
	return *info, nil
}

func (t *Tracker) masterAccount(id string) (core.MasterBankAccount, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, a := range t.state.MasterBankAccounts {
		if a.ID == id {
			a.ExpenseIDs = cloneIDs(a.ExpenseIDs)
			return a, true
		}
	}
	return core.MasterBankAccount{}, false
}

func (t *Tracker) masterExpense(id string) (core.MasterExpense, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, e := range t.state.MasterExpenses {
		if e.ID == id {
			return e, true
		}
	}
	return core.MasterExpense{}, false
}

func dedupe(ids []string) []string {
	out := []string{}
	for _, id := range ids {
		out = core.AddID(out, id)
	}
	return out
}

func removeWhere[T any](list []T, match func(T) bool) []T {
	out := list[:0]
	for _, v := range list {
		if !match(v) {
			out = append(out, v)
		}
	}
	return out
}
