package tracker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"paycalc/internal/auth"
	"paycalc/internal/core"
	"paycalc/internal/store"
	"paycalc/internal/store/memory"
)

var fixedNow = time.Date(2024, 1, 20, 12, 0, 0, 0, time.UTC)

func d(y, m, day int) core.Date { return core.NewDate(y, m, day) }

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) Notify(_ context.Context, ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) kinds() []EventKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]EventKind, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Kind)
	}
	return out
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

type fixture struct {
	tr     *Tracker
	auth   *auth.Local
	store  *memory.Store
	events *recorder
}

func newFixture(t *testing.T, s *memory.Store) fixture {
	t.Helper()
	if s == nil {
		s = memory.New()
	}
	a := auth.NewLocal(s, auth.WithBcryptCost(bcrypt.MinCost))
	tr := New(Options{
		Store:    s,
		Auth:     a,
		Clock:    func() time.Time { return fixedNow },
		Location: time.UTC,
	})
	rec := &recorder{}
	tr.Subscribe(rec)
	tr.Init(context.Background())
	t.Cleanup(tr.Close)
	return fixture{tr: tr, auth: a, store: s, events: rec}
}

func signedUp(t *testing.T) fixture {
	t.Helper()
	f := newFixture(t, nil)
	require.NoError(t, f.tr.CreateAccount(context.Background(), "ada@example.com", "secret1", "secret1"))
	return f
}

func biWeekly() core.PayInfo {
	return core.PayInfo{TakeHomePay: dec("2000"), PayFrequency: core.PayBiWeekly, StartDate: d(2024, 1, 1)}
}

type seeded struct {
	fixture
	rent, salary, trip core.MasterExpense
	checking           core.MasterBankAccount
}

// seed: the Jan 15 - Jan 28 period holds rent and salary; the trip is in March.
func seed(t *testing.T) seeded {
	t.Helper()
	ctx := context.Background()
	f := signedUp(t)
	_, err := f.tr.SavePayInfo(ctx, biWeekly())
	require.NoError(t, err)

	s := seeded{fixture: f}
	s.rent, err = f.tr.AddExpense(ctx, core.MasterExpense{Name: "Rent", Amount: dec("-50"), Type: core.Withdrawal, DueDate: d(2024, 1, 25), Frequency: core.Monthly})
	require.NoError(t, err)
	s.salary, err = f.tr.AddExpense(ctx, core.MasterExpense{Name: "Salary", Amount: dec("20"), Type: core.Deposit, DueDate: d(2024, 1, 22), Frequency: core.BiWeekly})
	require.NoError(t, err)
	s.trip, err = f.tr.AddExpense(ctx, core.MasterExpense{Name: "Trip", Amount: dec("-300"), Type: core.Withdrawal, DueDate: d(2024, 3, 1), Frequency: core.OneTime})
	require.NoError(t, err)
	s.checking, err = f.tr.AddBankAccount(ctx, core.MasterBankAccount{
		Name:            "Checking",
		StartingBalance: dec("100"),
		Color:           "#112233",
		ExpenseIDs:      []string{s.rent.ID, s.salary.ID, s.trip.ID, s.rent.ID},
	})
	require.NoError(t, err)
	return s
}

func (s seeded) periodAccount(t *testing.T) core.PayPeriodBankAccount {
	t.Helper()
	cur := s.tr.Snapshot().CurrentPayPeriod
	require.NotNil(t, cur)
	a, ok := s.tr.FindPeriodAccountByCompositeID(core.CompositeID(cur.ID, s.checking.ID))
	require.True(t, ok)
	return a
}

func (s seeded) periodExpense(t *testing.T, master core.MasterExpense) core.PayPeriodExpense {
	t.Helper()
	cur := s.tr.Snapshot().CurrentPayPeriod
	require.NotNil(t, cur)
	e, ok := s.tr.FindPeriodExpenseByCompositeID(core.CompositeID(cur.ID, master.ID))
	require.True(t, ok)
	return e
}

func TestTracker_RequiresSignIn(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	tests := []struct {
		name string
		call func() error
	}{
		{"add bank account", func() error { _, err := f.tr.AddBankAccount(ctx, core.MasterBankAccount{Name: "A"}); return err }},
		{"add expense", func() error { _, err := f.tr.AddExpense(ctx, core.MasterExpense{Name: "E"}); return err }},
		{"save pay info", func() error { _, err := f.tr.SavePayInfo(ctx, biWeekly()); return err }},
		{"load pay info", func() error { _, err := f.tr.LoadPayInfo(ctx); return err }},
		{"open period", func() error { _, err := f.tr.OpenPeriod(ctx, d(2024, 1, 15)); return err }},
		{"reload", func() error { return f.tr.Reload(ctx) }},
		{"sync", func() error { _, err := f.tr.SyncPeriods(ctx); return err }},
		{"set paid", func() error { return f.tr.SetPaidStatus(ctx, "x", true) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.call(), ErrNotSignedIn)
		})
	}
}

func TestTracker_CreateAccountPreconditions(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	assert.ErrorIs(t, f.tr.CreateAccount(ctx, "ada@example.com", "secret1", "secret2"), ErrPasswordMismatch)
	assert.ErrorIs(t, f.tr.CreateAccount(ctx, "", "secret1", "secret1"), ErrCredentialsRequired)
	assert.ErrorIs(t, f.tr.CreateAccount(ctx, "ada@example.com", "", ""), ErrCredentialsRequired)
	assert.Nil(t, f.tr.Snapshot().User)
	assert.Nil(t, f.auth.Current(), "nothing reaches the authenticator")
}

func TestTracker_SignInFailureSetsLoginError(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	err := f.tr.SignIn(ctx, "nobody@example.com", "secret1")
	require.Error(t, err)
	assert.Equal(t, "User not found", f.tr.Snapshot().LoginError)
	assert.Contains(t, f.events.kinds(), EventLoginFailed)

	require.NoError(t, f.tr.CreateAccount(ctx, "ada@example.com", "secret1", "secret1"))
	assert.Empty(t, f.tr.Snapshot().LoginError, "a successful sign-in clears the error")
	require.NoError(t, f.tr.SignOut(ctx))

	require.Error(t, f.tr.SignIn(ctx, "ada@example.com", "wrong!!"))
	assert.Equal(t, "Invalid credentials", f.tr.Snapshot().LoginError)
}

func TestTracker_FollowsSessionListener(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	id, err := f.auth.CreateAccount(ctx, "ada@example.com", "secret1")
	require.NoError(t, err)
	st := f.tr.Snapshot()
	require.NotNil(t, st.User)
	assert.Equal(t, id.UID, st.User.UID)

	// The tracker sees the same user once, however many paths report it.
	require.NoError(t, f.tr.SignIn(ctx, "ada@example.com", "secret1"))
	signIns := 0
	for _, k := range f.events.kinds() {
		if k == EventSignedIn {
			signIns++
		}
	}
	assert.Equal(t, 1, signIns)

	require.NoError(t, f.auth.SignOut(ctx))
	assert.Nil(t, f.tr.Snapshot().User)
	assert.Equal(t, EventSignedOut, f.events.kinds()[len(f.events.kinds())-1])
}

func TestTracker_NoPayInfo(t *testing.T) {
	ctx := context.Background()
	f := signedUp(t)

	_, err := f.tr.OpenCurrentPeriod(ctx)
	assert.ErrorIs(t, err, ErrNoPayInfo)
	_, err = f.tr.NextPeriod(ctx)
	assert.ErrorIs(t, err, ErrNoPayInfo)
	_, err = f.tr.LoadPayInfo(ctx)
	assert.ErrorIs(t, err, ErrNoPayInfo)
	assert.Equal(t, "No Period Selected", f.tr.CurrentPeriodLabel())

	// Master data can exist before any period does.
	_, err = f.tr.AddBankAccount(ctx, core.MasterBankAccount{Name: "Savings"})
	require.NoError(t, err)
	assert.Len(t, f.tr.Snapshot().MasterBankAccounts, 1)
}

func TestTracker_SavePayInfoOpensCurrentPeriod(t *testing.T) {
	ctx := context.Background()
	f := signedUp(t)
	f.events.reset()

	info, err := f.tr.SavePayInfo(ctx, biWeekly())
	require.NoError(t, err)
	assert.Equal(t, store.PayInfoID, info.ID)
	assert.Equal(t, []EventKind{EventPayInfoSaved, EventPeriodOpened}, f.events.kinds())

	st := f.tr.Snapshot()
	require.NotNil(t, st.CurrentPayPeriod)
	assert.Equal(t, "2024-01-15", st.CurrentPayPeriod.ID)
	assert.Equal(t, "Jan 15 - Jan 28, 2024", f.tr.CurrentPeriodLabel())
	assert.Len(t, st.PayPeriods, 1)
	assert.False(t, st.Loading)
}

func TestTracker_AnchorLocked(t *testing.T) {
	ctx := context.Background()
	f := signedUp(t)
	_, err := f.tr.SavePayInfo(ctx, biWeekly())
	require.NoError(t, err)

	moved := biWeekly()
	moved.StartDate = d(2024, 1, 3)
	_, err = f.tr.SavePayInfo(ctx, moved)
	assert.ErrorIs(t, err, ErrAnchorLocked)
	assert.True(t, f.tr.Snapshot().PayInfo.StartDate.Equal(d(2024, 1, 1)))

	raise := biWeekly()
	raise.TakeHomePay = dec("2500")
	_, err = f.tr.SavePayInfo(ctx, raise)
	require.NoError(t, err)
	assert.True(t, f.tr.Snapshot().PayInfo.TakeHomePay.Equal(dec("2500")))
}

func TestTracker_MasterWritesPropagateToPeriods(t *testing.T) {
	s := seed(t)
	st := s.tr.Snapshot()

	require.Len(t, st.MasterExpenses, 3)
	require.Len(t, st.MasterBankAccounts, 1)
	assert.Len(t, st.MasterBankAccounts[0].ExpenseIDs, 3, "duplicate ids collapse")
	assert.Empty(t, st.LastSyncError)

	require.Len(t, st.PayPeriodExpenses, 2, "the March trip is outside the period")
	require.Len(t, st.PayPeriodBankAccounts, 1)

	acct := s.periodAccount(t)
	assert.ElementsMatch(t,
		[]string{s.periodExpense(t, s.rent).ID, s.periodExpense(t, s.salary).ID},
		acct.ExpenseIDs, "master ids are translated to period copies")

	bal, err := s.tr.CurrentBalance(acct.ID)
	require.NoError(t, err)
	assert.Equal(t, "70", bal.String())

	master, err := s.tr.MasterBalance(s.checking.ID)
	require.NoError(t, err)
	assert.Equal(t, "-230", master.String())

	totals := s.tr.Totals()
	assert.Equal(t, "-30", totals.Net.String())
	assert.Equal(t, 2, totals.Unpaid)

	_, err = s.tr.CurrentBalance("missing")
	assert.ErrorIs(t, err, ErrUnknownID)
}

func TestTracker_NextDueDateFollowsClock(t *testing.T) {
	ctx := context.Background()
	s := seed(t)

	// Jan 5 monthly, seen on Jan 20, next falls on Feb 5.
	updated := s.rent
	updated.DueDate = d(2024, 1, 5)
	got, err := s.tr.UpdateExpense(ctx, updated)
	require.NoError(t, err)
	assert.Equal(t, "2024-02-05", got.NextDueDate.String())

	rec, err := s.store.Get(ctx, s.tr.Snapshot().User.UID, store.Expenses, s.rent.ID)
	require.NoError(t, err)
	assert.Equal(t, "2024-02-05", rec["nextDueDate"])

	assert.Equal(t, "2024-01-22", s.salary.NextDueDate.String())
	assert.Equal(t, "2024-03-01", s.trip.NextDueDate.String())

	_, err = s.tr.UpdateExpense(ctx, core.MasterExpense{ID: "missing", Name: "x"})
	assert.ErrorIs(t, err, ErrUnknownID)
}

func TestTracker_Navigate(t *testing.T) {
	ctx := context.Background()
	s := seed(t)

	next, err := s.tr.NextPeriod(ctx)
	require.NoError(t, err)
	assert.Equal(t, "2024-01-29", next.ID)
	assert.Equal(t, "2024-02-11", next.EndDate.String())

	st := s.tr.Snapshot()
	require.Len(t, st.PayPeriodExpenses, 1, "only the bi-weekly salary recurs inside Jan 29 - Feb 11")
	assert.Equal(t, s.salary.ID, st.PayPeriodExpenses[0].MasterExpenseID)
	bal, err := s.tr.CurrentBalance(s.periodAccount(t).ID)
	require.NoError(t, err)
	assert.Equal(t, "120", bal.String())

	prev, err := s.tr.PreviousPeriod(ctx)
	require.NoError(t, err)
	assert.Equal(t, "2024-01-15", prev.ID)
	assert.Len(t, s.tr.Snapshot().PayPeriodExpenses, 2, "revisiting does not duplicate copies")
	assert.Len(t, s.tr.Snapshot().PayPeriods, 2)
}

func TestTracker_AssignAndUnassign(t *testing.T) {
	ctx := context.Background()
	s := seed(t)
	acct := s.periodAccount(t)
	salary := s.periodExpense(t, s.salary)

	require.NoError(t, s.tr.UnassignExpenseFromAccount(ctx, acct.ID, salary.ID))
	bal, _ := s.tr.CurrentBalance(acct.ID)
	assert.Equal(t, "50", bal.String())
	assert.Empty(t, s.tr.AccountsForExpense(salary.ID))

	s.events.reset()
	require.NoError(t, s.tr.AssignExpenseToAccount(ctx, acct.ID, salary.ID))
	require.NoError(t, s.tr.AssignExpenseToAccount(ctx, acct.ID, salary.ID))
	assert.Equal(t, []EventKind{EventExpenseAssigned}, s.events.kinds(), "second assign is a no-op")

	bal, _ = s.tr.CurrentBalance(acct.ID)
	assert.Equal(t, "70", bal.String())
	assert.Len(t, s.tr.ExpensesForAccount(acct.ID), 2)

	rec, err := s.store.Get(ctx, s.tr.Snapshot().User.UID, store.PayPeriodBankAccounts, acct.ID)
	require.NoError(t, err)
	assert.Len(t, rec["expenseIds"], 2)

	assert.ErrorIs(t, s.tr.AssignExpenseToAccount(ctx, "missing", salary.ID), ErrUnknownID)
}

func TestTracker_PaidStatusAndReset(t *testing.T) {
	ctx := context.Background()
	s := seed(t)
	rent := s.periodExpense(t, s.rent)

	require.NoError(t, s.tr.SetPaidStatus(ctx, rent.CompositeID, true))
	assert.True(t, s.periodExpense(t, s.rent).IsPaid)
	rec, err := s.store.Get(ctx, s.tr.Snapshot().User.UID, store.PayPeriodExpenses, rent.ID)
	require.NoError(t, err)
	assert.Equal(t, true, rec["isPaid"])

	assert.ErrorIs(t, s.tr.SetPaidStatus(ctx, "2024-01-15-missing", true), ErrUnknownID)

	p, err := s.tr.ResetCurrentPeriod(ctx)
	require.NoError(t, err)
	assert.Equal(t, "2024-01-15", p.ID)
	assert.True(t, p.Materialized)

	st := s.tr.Snapshot()
	assert.Len(t, st.PayPeriodExpenses, 2)
	assert.Len(t, st.PayPeriodBankAccounts, 1)
	assert.False(t, s.periodExpense(t, s.rent).IsPaid, "reset rebuilds from masters")
	assert.NotEqual(t, rent.ID, s.periodExpense(t, s.rent).ID)
}

func TestTracker_DeletePeriodExpenseDetaches(t *testing.T) {
	ctx := context.Background()
	s := seed(t)
	acct := s.periodAccount(t)
	rent := s.periodExpense(t, s.rent)

	require.NoError(t, s.tr.DeletePeriodExpense(ctx, rent.ID))
	_, ok := s.tr.FindPeriodExpenseByCompositeID(rent.CompositeID)
	assert.False(t, ok)
	assert.NotContains(t, s.periodAccount(t).ExpenseIDs, rent.ID)
	bal, _ := s.tr.CurrentBalance(acct.ID)
	assert.Equal(t, "120", bal.String())

	require.NoError(t, s.tr.DeletePeriodAccount(ctx, acct.ID))
	assert.Empty(t, s.tr.Snapshot().PayPeriodBankAccounts)

	assert.ErrorIs(t, s.tr.DeletePeriodExpense(ctx, "missing"), ErrUnknownID)
	assert.ErrorIs(t, s.tr.DeletePeriodAccount(ctx, "missing"), ErrUnknownID)
}

func TestTracker_PeriodCopyDeletionsNameTheirPeriod(t *testing.T) {
	ctx := context.Background()
	s := seed(t)
	acct := s.periodAccount(t)
	rent := s.periodExpense(t, s.rent)

	s.events.reset()
	require.NoError(t, s.tr.DeletePeriodExpense(ctx, rent.ID))
	require.NoError(t, s.tr.DeletePeriodAccount(ctx, acct.ID))

	deleted := map[EventKind]Event{}
	s.events.mu.Lock()
	for _, ev := range s.events.events {
		deleted[ev.Kind] = ev
	}
	s.events.mu.Unlock()

	for _, kind := range []EventKind{EventPeriodExpenseDeleted, EventPeriodAccountDeleted} {
		ev, ok := deleted[kind]
		require.True(t, ok, kind)
		assert.Equal(t, "2024-01-15", ev.PeriodID, kind)
	}
	assert.Equal(t, acct.ID, deleted[EventPeriodAccountDeleted].EntityID)
}

func TestTracker_MasterAddRecreatesDeletedPeriodCopies(t *testing.T) {
	ctx := context.Background()
	s := seed(t)
	acct := s.periodAccount(t)
	rent := s.periodExpense(t, s.rent)

	require.NoError(t, s.tr.DeletePeriodExpense(ctx, rent.ID))
	require.NoError(t, s.tr.DeletePeriodAccount(ctx, acct.ID))
	require.Len(t, s.tr.Snapshot().PayPeriodExpenses, 1)
	require.Empty(t, s.tr.Snapshot().PayPeriodBankAccounts)

	_, err := s.tr.AddExpense(ctx, core.MasterExpense{Name: "Gym", Amount: dec("-10"), Type: core.Withdrawal, DueDate: d(2024, 3, 5), Frequency: core.OneTime})
	require.NoError(t, err)

	st := s.tr.Snapshot()
	assert.Len(t, st.PayPeriodExpenses, 2, "rent copy is back, gym falls outside the period")
	back := s.periodExpense(t, s.rent)
	assert.NotEqual(t, rent.ID, back.ID)
	assert.Contains(t, s.periodAccount(t).ExpenseIDs, back.ID)
}

func TestTracker_DeleteExpenseCascadesToMasterAccounts(t *testing.T) {
	ctx := context.Background()
	s := seed(t)

	require.NoError(t, s.tr.DeleteExpense(ctx, s.trip.ID))
	st := s.tr.Snapshot()
	assert.Len(t, st.MasterExpenses, 2)
	assert.NotContains(t, st.MasterBankAccounts[0].ExpenseIDs, s.trip.ID)

	rec, err := s.store.Get(ctx, st.User.UID, store.BankAccounts, s.checking.ID)
	require.NoError(t, err)
	assert.Len(t, rec["expenseIds"], 2)

	master, err := s.tr.MasterBalance(s.checking.ID)
	require.NoError(t, err)
	assert.Equal(t, "70", master.String())

	require.NoError(t, s.tr.DeleteBankAccount(ctx, s.checking.ID))
	assert.Empty(t, s.tr.Snapshot().MasterBankAccounts)
	assert.Len(t, s.tr.Snapshot().PayPeriodBankAccounts, 1, "period copies outlive their master")
}

func TestTracker_UpdateBankAccount(t *testing.T) {
	ctx := context.Background()
	s := seed(t)

	edited := s.checking
	edited.Name = "Main"
	edited.StartingBalance = dec("500")
	got, err := s.tr.UpdateBankAccount(ctx, edited)
	require.NoError(t, err)
	assert.Equal(t, s.checking.CreatedAt, got.CreatedAt)

	master, _ := s.tr.MasterBalance(s.checking.ID)
	assert.Equal(t, "170", master.String())
	assert.Equal(t, "Checking", s.periodAccount(t).Name, "period copies keep their snapshot")

	edited.Color = "blue"
	_, err = s.tr.UpdateBankAccount(ctx, edited)
	assert.ErrorIs(t, err, core.ErrInvalidColor)
}

func TestTracker_ReloadRestoresState(t *testing.T) {
	ctx := context.Background()
	s := seed(t)

	other := newFixture(t, s.store)
	require.NoError(t, other.tr.SignIn(ctx, "ada@example.com", "secret1"))

	st := other.tr.Snapshot()
	assert.Len(t, st.MasterExpenses, 3)
	assert.Len(t, st.MasterBankAccounts, 1)
	require.NotNil(t, st.PayInfo)
	require.NotNil(t, st.CurrentPayPeriod)
	assert.Equal(t, "2024-01-15", st.CurrentPayPeriod.ID)
	assert.Len(t, st.PayPeriodExpenses, 2)

	a, ok := other.tr.FindPeriodAccountByCompositeID(core.CompositeID("2024-01-15", s.checking.ID))
	require.True(t, ok)
	bal, err := other.tr.CurrentBalance(a.ID)
	require.NoError(t, err)
	assert.Equal(t, "70", bal.String())
}

func TestTracker_SyncPeriodsIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := seed(t)
	_, err := s.tr.NextPeriod(ctx)
	require.NoError(t, err)

	res, err := s.tr.SyncPeriods(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, res.PeriodsVisited)
	assert.Zero(t, res.AccountsCreated)
	assert.Zero(t, res.ExpensesCreated)
}

func TestTracker_SnapshotIsACopy(t *testing.T) {
	s := seed(t)
	snap := s.tr.Snapshot()
	snap.MasterBankAccounts[0].ExpenseIDs[0] = "tampered"
	snap.CurrentPayPeriod.ID = "tampered"

	again := s.tr.Snapshot()
	assert.NotEqual(t, "tampered", again.MasterBankAccounts[0].ExpenseIDs[0])
	assert.Equal(t, "2024-01-15", again.CurrentPayPeriod.ID)
}

func TestTracker_UISetters(t *testing.T) {
	f := signedUp(t)
	f.events.reset()

	f.tr.SelectBankAccount("a1")
	f.tr.SelectExpense("e1")
	f.tr.SelectPeriodAccount("pa1")
	f.tr.SelectPeriodExpense("pe1")
	f.tr.SetNewBankAccountFormOpen(true)
	f.tr.SetNewExpenseFormOpen(true)

	st := f.tr.Snapshot()
	assert.Equal(t, "a1", st.SelectedBankAccountID)
	assert.Equal(t, "e1", st.SelectedExpenseID)
	assert.Equal(t, "pa1", st.SelectedPeriodAccountID)
	assert.Equal(t, "pe1", st.SelectedPeriodExpenseID)
	assert.True(t, st.NewBankAccountFormOpen)
	assert.True(t, st.NewExpenseFormOpen)
	assert.Len(t, f.events.kinds(), 6)
}

type brokenStore struct {
	*memory.Store
	failCreate bool
}

func (b *brokenStore) Create(ctx context.Context, ns, coll string, data store.Record) (string, error) {
	if b.failCreate && coll != "users" {
		return "", errors.New("backend unavailable")
	}
	return b.Store.Create(ctx, ns, coll, data)
}

func TestTracker_StateUnchangedWhenStoreFails(t *testing.T) {
	ctx := context.Background()
	bs := &brokenStore{Store: memory.New()}
	a := auth.NewLocal(bs, auth.WithBcryptCost(bcrypt.MinCost))
	tr := New(Options{Store: bs, Auth: a, Clock: func() time.Time { return fixedNow }, Location: time.UTC})
	rec := &recorder{}
	tr.Subscribe(rec)
	require.NoError(t, tr.CreateAccount(ctx, "ada@example.com", "secret1", "secret1"))
	rec.reset()

	bs.failCreate = true
	_, err := tr.AddBankAccount(ctx, core.MasterBankAccount{Name: "Checking"})
	require.Error(t, err)
	assert.Empty(t, tr.Snapshot().MasterBankAccounts)
	assert.Empty(t, rec.kinds())
}
