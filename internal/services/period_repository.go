// Package services holds the pay period engine: period lookup and
// materialization, master-to-period synchronization, and balances.
package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/singleflight"

	"paycalc/internal/core"
	"paycalc/internal/log"
	"paycalc/internal/period"
	"paycalc/internal/store"
)

// MasterData is the user's current set of templates, in list order.
type MasterData struct {
	Accounts []core.MasterBankAccount
	Expenses []core.MasterExpense
}

// PeriodRepository finds, creates and populates pay periods in a DocumentStore.
type PeriodRepository struct {
	store  store.DocumentStore
	logger *log.Logger
	now    func() time.Time
	group  singleflight.Group
}

func NewPeriodRepository(s store.DocumentStore, logger *log.Logger) *PeriodRepository {
	return &PeriodRepository{
		store:  s,
		logger: log.OrDiscard(logger).WithComponent(log.ComponentPeriods),
		now:    time.Now,
	}
}

// WithClock replaces the creation timestamp source.
func (r *PeriodRepository) WithClock(now func() time.Time) *PeriodRepository {
	r.now = now
	return r
}

// Store returns the underlying document store.
func (r *PeriodRepository) Store() store.DocumentStore { return r.store }

// FindOrCreate returns the period starting exactly at start, creating it
// (not yet materialized) when absent. Concurrent calls for the same user and
// start share a single store round trip.
func (r *PeriodRepository) FindOrCreate(ctx context.Context, uid string, info core.PayInfo, start core.Date) (core.PayPeriod, error) {
	key := uid + "/" + start.String()
	v, err, shared := r.group.Do(key, func() (any, error) {
		return r.findOrCreate(ctx, uid, info, start)
	})
	if err != nil {
		return core.PayPeriod{}, err
	}
	if shared {
		r.logger.DebugContext(ctx, "Period lookup shared", log.FieldPeriodID, start.String())
	}
	return v.(core.PayPeriod), nil
}

func (r *PeriodRepository) findOrCreate(ctx context.Context, uid string, info core.PayInfo, start core.Date) (core.PayPeriod, error) {
	id := start.String()
	rec, err := r.store.Get(ctx, uid, store.PayPeriods, id)
	if err == nil {
		var p core.PayPeriod
		if err := store.Decode(rec, &p); err != nil {
			return core.PayPeriod{}, err
		}
		return p, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return core.PayPeriod{}, fmt.Errorf("get period %s: %w", id, err)
	}

	p := period.New(uid, info, start)
	p.CreatedAt = r.now().UTC()
	data, err := store.Encode(p)
	if err != nil {
		return core.PayPeriod{}, err
	}
	if err := r.store.Set(ctx, uid, store.PayPeriods, id, data); err != nil {
		return core.PayPeriod{}, fmt.Errorf("create period %s: %w", id, err)
	}

	r.logger.InfoContext(ctx, "Pay period created",
		log.NewFields().WithOperation(log.OpCreate).
			WithPeriod(p.ID, p.StartDate.String(), p.EndDate.String()).ToSlice()...)
	return p, nil
}

// EnsureMaterialized fills a period with copies of the master data the first
// time it is opened. Expense copies are created first, in master order, for
// every expense due inside the period; account copies follow, with their
// expense ids translated to the period copies. Masters already represented
// by composite id are skipped. The period is then flagged so it is never
// repopulated here; later master changes arrive through the Synchronizer.
func (r *PeriodRepository) EnsureMaterialized(ctx context.Context, uid string, p core.PayPeriod, m MasterData) (core.PayPeriod, error) {
	if p.Materialized {
		return p, nil
	}

	expenses, err := r.PeriodExpenses(ctx, uid, p.ID)
	if err != nil {
		return p, err
	}
	accounts, err := r.PeriodAccounts(ctx, uid, p.ID)
	if err != nil {
		return p, err
	}

	created, err := copyMasters(ctx, r.store, uid, p, m, expenses, accounts, r.now().UTC())
	if err != nil {
		return p, err
	}

	if err := r.store.Update(ctx, uid, store.PayPeriods, p.ID, store.Fields("materialized", true)); err != nil {
		return p, fmt.Errorf("flag period %s: %w", p.ID, err)
	}
	p.Materialized = true

	r.logger.InfoContext(ctx, "Pay period materialized",
		log.FieldOperation, log.OpMaterialize,
		log.FieldPeriodID, p.ID,
		"expenses_created", created.ExpensesCreated,
		"accounts_created", created.AccountsCreated)
	return p, nil
}

// Open is FindOrCreate followed by EnsureMaterialized.
func (r *PeriodRepository) Open(ctx context.Context, uid string, info core.PayInfo, start core.Date, m MasterData) (core.PayPeriod, error) {
	p, err := r.FindOrCreate(ctx, uid, info, start)
	if err != nil {
		return core.PayPeriod{}, err
	}
	return r.EnsureMaterialized(ctx, uid, p, m)
}

// Navigate opens the period next to or before current.
func (r *PeriodRepository) Navigate(ctx context.Context, uid string, info core.PayInfo, current core.PayPeriod, dir period.Direction, m MasterData) (core.PayPeriod, error) {
	start, err := period.Shift(current.StartDate, info.PayFrequency, dir)
	if err != nil {
		return core.PayPeriod{}, err
	}
	r.logger.DebugContext(ctx, "Navigating periods",
		log.FieldOperation, log.OpNavigate,
		log.FieldDirection, string(dir),
		log.FieldPeriodStart, start.String())
	return r.Open(ctx, uid, info, start, m)
}

// Reset deletes every copy belonging to the period starting at start, then
// the period itself, and rebuilds it from the current master data.
func (r *PeriodRepository) Reset(ctx context.Context, uid string, info core.PayInfo, start core.Date, m MasterData) (core.PayPeriod, error) {
	id := start.String()

	expenses, err := r.PeriodExpenses(ctx, uid, id)
	if err != nil {
		return core.PayPeriod{}, err
	}
	for _, e := range expenses {
		if err := r.store.Delete(ctx, uid, store.PayPeriodExpenses, e.ID); err != nil {
			return core.PayPeriod{}, fmt.Errorf("delete period expense %s: %w", e.ID, err)
		}
	}

	accounts, err := r.PeriodAccounts(ctx, uid, id)
	if err != nil {
		return core.PayPeriod{}, err
	}
	for _, a := range accounts {
		if err := r.store.Delete(ctx, uid, store.PayPeriodBankAccounts, a.ID); err != nil {
			return core.PayPeriod{}, fmt.Errorf("delete period account %s: %w", a.ID, err)
		}
	}

	if err := r.store.Delete(ctx, uid, store.PayPeriods, id); err != nil {
		return core.PayPeriod{}, fmt.Errorf("delete period %s: %w", id, err)
	}

	r.logger.InfoContext(ctx, "Pay period reset",
		log.FieldOperation, log.OpReset,
		log.FieldPeriodID, id,
		"expenses_deleted", len(expenses),
		"accounts_deleted", len(accounts))
	return r.Open(ctx, uid, info, start, m)
}

// Get returns the stored period with the given id.
func (r *PeriodRepository) Get(ctx context.Context, uid, id string) (core.PayPeriod, error) {
	rec, err := r.store.Get(ctx, uid, store.PayPeriods, id)
	if err != nil {
		return core.PayPeriod{}, err
	}
	var p core.PayPeriod
	if err := store.Decode(rec, &p); err != nil {
		return core.PayPeriod{}, err
	}
	return p, nil
}

// ListPeriods returns every stored period, oldest start first.
func (r *PeriodRepository) ListPeriods(ctx context.Context, uid string) ([]core.PayPeriod, error) {
	recs, err := r.store.ListAll(ctx, uid, store.PayPeriods)
	if err != nil {
		return nil, fmt.Errorf("list periods: %w", err)
	}
	periods, err := store.DecodeAll[core.PayPeriod](recs)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(periods, func(i, j int) bool {
		return periods[i].StartDate.Before(periods[j].StartDate)
	})
	return periods, nil
}

// PeriodAccounts returns the account copies of one period.
func (r *PeriodRepository) PeriodAccounts(ctx context.Context, uid, periodID string) ([]core.PayPeriodBankAccount, error) {
	recs, err := r.store.ListAll(ctx, uid, store.PayPeriodBankAccounts)
	if err != nil {
		return nil, fmt.Errorf("list period accounts: %w", err)
	}
	all, err := store.DecodeAll[core.PayPeriodBankAccount](recs)
	if err != nil {
		return nil, err
	}
	out := make([]core.PayPeriodBankAccount, 0, len(all))
	for _, a := range all {
		if a.PayPeriodID == periodID {
			out = append(out, a)
		}
	}
	return out, nil
}

// PeriodExpenses returns the expense copies of one period.
func (r *PeriodRepository) PeriodExpenses(ctx context.Context, uid, periodID string) ([]core.PayPeriodExpense, error) {
	recs, err := r.store.ListAll(ctx, uid, store.PayPeriodExpenses)
	if err != nil {
		return nil, fmt.Errorf("list period expenses: %w", err)
	}
	all, err := store.DecodeAll[core.PayPeriodExpense](recs)
	if err != nil {
		return nil, err
	}
	out := make([]core.PayPeriodExpense, 0, len(all))
	for _, e := range all {
		if e.PayPeriodID == periodID {
			out = append(out, e)
		}
	}
	return out, nil
}
