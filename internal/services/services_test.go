package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paycalc/internal/core"
	"paycalc/internal/period"
	"paycalc/internal/store"
	"paycalc/internal/store/memory"
)

const uid = "user-1"

var fixedNow = time.Date(2024, 1, 20, 9, 0, 0, 0, time.UTC)

func d(y, m, day int) core.Date { return core.NewDate(y, m, day) }

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func biWeeklyInfo() core.PayInfo {
	return core.PayInfo{ID: store.PayInfoID, UserUID: uid, PayFrequency: core.PayBiWeekly, StartDate: d(2024, 1, 1)}
}

// masters: period Jan 15 - Jan 28 holds rent and salary, not the March one-off.
func masters() MasterData {
	return MasterData{
		Expenses: []core.MasterExpense{
			{ID: "rent", Name: "Rent", Amount: dec("-50"), Type: core.Withdrawal, DueDate: d(2024, 1, 20), Frequency: core.Monthly},
			{ID: "salary", Name: "Salary", Amount: dec("20"), Type: core.Deposit, DueDate: d(2024, 1, 19), Frequency: core.BiWeekly},
			{ID: "trip", Name: "Trip", Amount: dec("-300"), Type: core.Withdrawal, DueDate: d(2024, 3, 1), Frequency: core.OneTime},
		},
		Accounts: []core.MasterBankAccount{
			{ID: "checking", Name: "Checking", StartingBalance: dec("100"), Color: "#112233", ExpenseIDs: []string{"rent", "salary", "trip"}},
		},
	}
}

func newRepo(s store.DocumentStore) *PeriodRepository {
	return NewPeriodRepository(s, nil).WithClock(func() time.Time { return fixedNow })
}

func TestPeriodRepository_OpenMaterializes(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(memory.New())

	p, err := repo.Open(ctx, uid, biWeeklyInfo(), d(2024, 1, 15), masters())
	require.NoError(t, err)
	assert.Equal(t, "2024-01-15", p.ID)
	assert.Equal(t, "2024-01-28", p.EndDate.String())
	assert.True(t, p.Materialized)

	expenses, err := repo.PeriodExpenses(ctx, uid, p.ID)
	require.NoError(t, err)
	require.Len(t, expenses, 2)
	assert.Equal(t, "rent", expenses[0].MasterExpenseID)
	assert.Equal(t, "2024-01-15-rent", expenses[0].CompositeID)
	assert.Equal(t, "2024-01-20", expenses[0].NextDueDate.String())
	assert.Equal(t, "salary", expenses[1].MasterExpenseID)
	assert.Equal(t, "2024-01-19", expenses[1].NextDueDate.String())
	assert.False(t, expenses[1].IsPaid)

	accounts, err := repo.PeriodAccounts(ctx, uid, p.ID)
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	acct := accounts[0]
	assert.Equal(t, "2024-01-15-checking", acct.CompositeID)
	assert.Equal(t, []string{expenses[0].ID, expenses[1].ID}, acct.ExpenseIDs, "ids point at period copies")
	assert.True(t, acct.CurrentBalance.Equal(dec("100")))

	// 100 - 50 + 20
	assert.Equal(t, "70", PeriodAccountBalance(acct, expenses).String())

	stored, err := repo.Get(ctx, uid, p.ID)
	require.NoError(t, err)
	assert.True(t, stored.Materialized)
}

func TestPeriodRepository_MaterializedIsNotRepopulated(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	repo := newRepo(s)

	p, err := repo.Open(ctx, uid, biWeeklyInfo(), d(2024, 1, 15), masters())
	require.NoError(t, err)

	expenses, _ := repo.PeriodExpenses(ctx, uid, p.ID)
	require.NoError(t, s.Delete(ctx, uid, store.PayPeriodExpenses, expenses[0].ID))

	_, err = repo.Open(ctx, uid, biWeeklyInfo(), d(2024, 1, 15), masters())
	require.NoError(t, err)
	after, _ := repo.PeriodExpenses(ctx, uid, p.ID)
	assert.Len(t, after, 1, "a user deletion survives reopening")
	assert.Equal(t, 1, s.Len(uid, store.PayPeriods))
}

func TestPeriodRepository_FindOrCreateConcurrent(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	repo := newRepo(s)

	var wg sync.WaitGroup
	ids := make([]string, 8)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p, err := repo.FindOrCreate(ctx, uid, biWeeklyInfo(), d(2024, 1, 15))
			if err == nil {
				ids[i] = p.ID
			}
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, "2024-01-15", id)
	}
	assert.Equal(t, 1, s.Len(uid, store.PayPeriods))
}

func TestPeriodRepository_Navigate(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(memory.New())

	cur, err := repo.Open(ctx, uid, biWeeklyInfo(), d(2024, 1, 15), masters())
	require.NoError(t, err)

	next, err := repo.Navigate(ctx, uid, biWeeklyInfo(), cur, period.Next, masters())
	require.NoError(t, err)
	assert.Equal(t, "2024-01-29", next.ID)
	assert.Equal(t, "2024-02-11", next.EndDate.String())

	// Rent next falls on Feb 20; salary on Feb 2.
	expenses, err := repo.PeriodExpenses(ctx, uid, next.ID)
	require.NoError(t, err)
	require.Len(t, expenses, 1)
	assert.Equal(t, "salary", expenses[0].MasterExpenseID)
	assert.Equal(t, "2024-02-02", expenses[0].NextDueDate.String())

	prev, err := repo.Navigate(ctx, uid, biWeeklyInfo(), next, period.Previous, masters())
	require.NoError(t, err)
	assert.Equal(t, cur.ID, prev.ID)

	periods, err := repo.ListPeriods(ctx, uid)
	require.NoError(t, err)
	require.Len(t, periods, 2)
	assert.Equal(t, "2024-01-15", periods[0].ID)
}

func TestPeriodRepository_Reset(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(memory.New())
	p, err := repo.Open(ctx, uid, biWeeklyInfo(), d(2024, 1, 15), masters())
	require.NoError(t, err)
	before, _ := repo.PeriodExpenses(ctx, uid, p.ID)

	m := masters()
	m.Expenses = m.Expenses[:1]
	rebuilt, err := repo.Reset(ctx, uid, biWeeklyInfo(), p.StartDate, m)
	require.NoError(t, err)
	assert.True(t, rebuilt.Materialized)

	expenses, _ := repo.PeriodExpenses(ctx, uid, p.ID)
	require.Len(t, expenses, 1)
	assert.NotEqual(t, before[0].ID, expenses[0].ID)

	accounts, _ := repo.PeriodAccounts(ctx, uid, p.ID)
	require.Len(t, accounts, 1)
	assert.Equal(t, []string{expenses[0].ID}, accounts[0].ExpenseIDs)
}

func TestSynchronizer_PropagatesAndIsIdempotent(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(memory.New())
	syncer := NewSynchronizer(repo, nil)

	m := masters()
	_, err := repo.Open(ctx, uid, biWeeklyInfo(), d(2024, 1, 15), m)
	require.NoError(t, err)
	_, err = repo.Open(ctx, uid, biWeeklyInfo(), d(2024, 1, 29), m)
	require.NoError(t, err)

	res, err := syncer.PropagateNewMasterData(ctx, uid, m)
	require.NoError(t, err)
	assert.Equal(t, SyncResult{PeriodsVisited: 2}, res, "nothing new to copy")

	m.Expenses = append(m.Expenses, core.MasterExpense{
		ID: "gift", Name: "Gift", Amount: dec("-15"), Type: core.Withdrawal, DueDate: d(2024, 1, 25), Frequency: core.OneTime,
	})
	m.Accounts = append(m.Accounts, core.MasterBankAccount{
		ID: "savings", Name: "Savings", StartingBalance: dec("500"), ExpenseIDs: []string{"gift"},
	})

	res, err = syncer.PropagateNewMasterData(ctx, uid, m)
	require.NoError(t, err)
	assert.Equal(t, 2, res.PeriodsVisited)
	assert.Equal(t, 1, res.ExpensesCreated, "gift lands only in the first period")
	assert.Equal(t, 2, res.AccountsCreated, "savings lands in both periods")

	res, err = syncer.PropagateNewMasterData(ctx, uid, m)
	require.NoError(t, err)
	assert.Equal(t, SyncResult{PeriodsVisited: 2}, res)

	expenses, _ := repo.PeriodExpenses(ctx, uid, "2024-01-15")
	accounts, _ := repo.PeriodAccounts(ctx, uid, "2024-01-15")
	require.Len(t, accounts, 2)
	savings := accounts[1]
	assert.Equal(t, "2024-01-15-savings", savings.CompositeID)
	require.Len(t, savings.ExpenseIDs, 1)
	assert.Equal(t, "485", PeriodAccountBalance(savings, expenses).String())

	later, _ := repo.PeriodAccounts(ctx, uid, "2024-01-29")
	assert.Empty(t, later[1].ExpenseIDs, "gift has no copy in the later period")
}

type failingStore struct {
	store.DocumentStore
	failCreate bool
}

var errBoom = errors.New("boom")

func (f *failingStore) Create(ctx context.Context, ns, coll string, data store.Record) (string, error) {
	if f.failCreate {
		return "", errBoom
	}
	return f.DocumentStore.Create(ctx, ns, coll, data)
}

func TestSynchronizer_StopsAtFirstError(t *testing.T) {
	ctx := context.Background()
	fs := &failingStore{DocumentStore: memory.New()}
	repo := newRepo(fs)
	syncer := NewSynchronizer(repo, nil)

	m := masters()
	_, err := repo.Open(ctx, uid, biWeeklyInfo(), d(2024, 1, 15), m)
	require.NoError(t, err)
	_, err = repo.Open(ctx, uid, biWeeklyInfo(), d(2024, 1, 29), m)
	require.NoError(t, err)

	m.Accounts = append(m.Accounts, core.MasterBankAccount{ID: "savings", Name: "Savings"})
	fs.failCreate = true

	res, err := syncer.PropagateNewMasterData(ctx, uid, m)
	require.Error(t, err)
	assert.ErrorIs(t, err, errBoom)
	assert.Equal(t, 1, res.PeriodsVisited)
	assert.Zero(t, res.AccountsCreated)
}

func TestOpen_StoreErrorLeavesPeriodUnmaterialized(t *testing.T) {
	ctx := context.Background()
	fs := &failingStore{DocumentStore: memory.New(), failCreate: true}
	repo := newRepo(fs)

	_, err := repo.Open(ctx, uid, biWeeklyInfo(), d(2024, 1, 15), masters())
	require.ErrorIs(t, err, errBoom)

	p, err := repo.Get(ctx, uid, "2024-01-15")
	require.NoError(t, err)
	assert.False(t, p.Materialized)
}
