// Package tracker owns the signed-in user's state and is the single entry
// point front ends call. Every mutation writes to the store first and only
// then updates the in-memory State and notifies observers.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"paycalc/internal/auth"
	"paycalc/internal/core"
	"paycalc/internal/log"
	"paycalc/internal/period"
	"paycalc/internal/services"
	"paycalc/internal/store"
)

var (
	ErrNotSignedIn         = errors.New("not signed in")
	ErrNoPayInfo           = errors.New("pay info not set")
	ErrNoCurrentPeriod     = errors.New("no pay period selected")
	ErrPasswordMismatch    = errors.New("passwords do not match")
	ErrCredentialsRequired = errors.New("email and password are required")
	ErrAnchorLocked        = errors.New("pay start date cannot change once pay periods exist")
	ErrUnknownID           = errors.New("unknown id")
)

type Options struct {
	Store    store.DocumentStore
	Auth     auth.Authenticator
	Logger   *log.Logger
	Clock    func() time.Time
	Location *time.Location
}

type Tracker struct {
	store   store.DocumentStore
	auth    auth.Authenticator
	periods *services.PeriodRepository
	syncer  *services.Synchronizer
	logger  *log.Logger
	now     func() time.Time
	loc     *time.Location

	mu    sync.RWMutex
	state State

	obsMu     sync.RWMutex
	observers []Observer

	sessionCtx  context.Context
	unsubscribe func()
}

func New(opts Options) *Tracker {
	now := opts.Clock
	if now == nil {
		now = time.Now
	}
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}
	logger := log.OrDiscard(opts.Logger)
	periods := services.NewPeriodRepository(opts.Store, logger).WithClock(now)
	return &Tracker{
		store:      opts.Store,
		auth:       opts.Auth,
		periods:    periods,
		syncer:     services.NewSynchronizer(periods, logger),
		logger:     logger.WithComponent(log.ComponentTracker),
		now:        now,
		loc:        loc,
		sessionCtx: context.Background(),
	}
}

// Subscribe registers an observer for every later event.
func (t *Tracker) Subscribe(o Observer) {
	t.obsMu.Lock()
	defer t.obsMu.Unlock()
	t.observers = append(t.observers, o)
}

// Init starts following the authenticator's session. A session that already
// exists is picked up immediately and its data loaded using ctx.
func (t *Tracker) Init(ctx context.Context) {
	t.sessionCtx = ctx
	t.unsubscribe = t.auth.OnSessionChange(func(id *auth.Identity) {
		if err := t.applySession(t.sessionCtx, id); err != nil {
			t.logger.ErrorContext(t.sessionCtx, "Failed to load user data", log.FieldError, err)
		}
	})
}

// Close stops following the session.
func (t *Tracker) Close() {
	if t.unsubscribe != nil {
		t.unsubscribe()
		t.unsubscribe = nil
	}
}

// Snapshot returns a deep copy of the current state.
func (t *Tracker) Snapshot() State {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.state.clone()
}

func (t *Tracker) CreateAccount(ctx context.Context, email, password, confirm string) error {
	if password != confirm {
		t.logger.WarnContext(ctx, "Passwords do not match", log.FieldOperation, log.OpSignIn)
		return ErrPasswordMismatch
	}
	if email == "" || password == "" {
		t.logger.WarnContext(ctx, "Email and password are required", log.FieldOperation, log.OpSignIn)
		return ErrCredentialsRequired
	}
	id, err := t.auth.CreateAccount(ctx, email, password)
	return t.afterAuth(ctx, id, err)
}

func (t *Tracker) SignIn(ctx context.Context, email, password string) error {
	id, err := t.auth.SignIn(ctx, email, password)
	return t.afterAuth(ctx, id, err)
}

func (t *Tracker) SignInWithGoogle(ctx context.Context) error {
	id, err := t.auth.SignInWithFederatedProvider(ctx)
	return t.afterAuth(ctx, id, err)
}

func (t *Tracker) afterAuth(ctx context.Context, id *auth.Identity, err error) error {
	if err != nil {
		msg := auth.MessageFor(err)
		t.update(func(s *State) { s.LoginError = msg })
		t.logger.WarnContext(ctx, "Authentication failed", log.FieldOperation, log.OpSignIn, log.FieldError, err)
		t.emit(ctx, Event{Kind: EventLoginFailed})
		return err
	}
	t.update(func(s *State) { s.LoginError = "" })
	return t.applySession(ctx, id)
}

func (t *Tracker) SignOut(ctx context.Context) error {
	if err := t.auth.SignOut(ctx); err != nil {
		return t.fail(ctx, log.OpSignOut, err)
	}
	return t.applySession(ctx, nil)
}

// applySession moves the tracker to id. Repeated notifications for the same
// user are ignored, so the session listener and the sign-in call can both
// deliver it.
func (t *Tracker) applySession(ctx context.Context, id *auth.Identity) error {
	t.mu.Lock()
	cur := t.state.User
	switch {
	case id == nil && cur == nil:
		t.mu.Unlock()
		return nil
	case id != nil && cur != nil && cur.UID == id.UID:
		t.mu.Unlock()
		return nil
	case id == nil:
		t.state = State{}
		t.mu.Unlock()
		t.logger.InfoContext(ctx, "Session cleared", log.FieldOperation, log.OpSignOut, log.FieldUserUID, cur.UID)
		t.emit(ctx, Event{Kind: EventSignedOut, UserUID: cur.UID})
		return nil
	}
	u := *id
	t.state = State{User: &u}
	t.mu.Unlock()

	t.logger.InfoContext(ctx, "Session started", log.FieldOperation, log.OpSignIn, log.FieldUserUID, u.UID)
	t.emit(ctx, Event{Kind: EventSignedIn, UserUID: u.UID})
	return t.Reload(ctx)
}

// Reload reads the user's master data, pay info and period list from the
// store, then opens the period containing today when pay info exists.
func (t *Tracker) Reload(ctx context.Context) error {
	uid, err := t.uid()
	if err != nil {
		return err
	}

	accountRecs, err := t.store.ListAll(ctx, uid, store.BankAccounts)
	if err != nil {
		return t.fail(ctx, log.OpList, fmt.Errorf("list bank accounts: %w", err))
	}
	accounts, err := store.DecodeAll[core.MasterBankAccount](accountRecs)
	if err != nil {
		return t.fail(ctx, log.OpList, err)
	}
	expenseRecs, err := t.store.ListAll(ctx, uid, store.Expenses)
	if err != nil {
		return t.fail(ctx, log.OpList, fmt.Errorf("list expenses: %w", err))
	}
	expenses, err := store.DecodeAll[core.MasterExpense](expenseRecs)
	if err != nil {
		return t.fail(ctx, log.OpList, err)
	}
	info, err := t.readPayInfo(ctx, uid)
	if err != nil {
		return t.fail(ctx, log.OpRead, err)
	}
	periods, err := t.periods.ListPeriods(ctx, uid)
	if err != nil {
		return t.fail(ctx, log.OpList, err)
	}

	t.update(func(s *State) {
		s.MasterBankAccounts = accounts
		s.MasterExpenses = expenses
		s.PayInfo = info
		s.PayPeriods = periods
		s.CurrentPayPeriod = nil
		s.PayPeriodBankAccounts = nil
		s.PayPeriodExpenses = nil
	})
	t.logger.DebugContext(ctx, "User data loaded",
		log.FieldUserUID, uid,
		"accounts", len(accounts),
		"expenses", len(expenses),
		"periods", len(periods))
	t.emit(ctx, Event{Kind: EventReloaded, UserUID: uid})

	if info == nil {
		return nil
	}
	_, err = t.OpenCurrentPeriod(ctx)
	return err
}

func (t *Tracker) readPayInfo(ctx context.Context, uid string) (*core.PayInfo, error) {
	rec, err := t.store.Get(ctx, uid, store.PayInfo, store.PayInfoID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get pay info: %w", err)
	}
	var info core.PayInfo
	if err := store.Decode(rec, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

func (t *Tracker) uid() (string, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.state.User == nil {
		return "", ErrNotSignedIn
	}
	return t.state.User.UID, nil
}

func (t *Tracker) payInfo() (core.PayInfo, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.state.PayInfo == nil {
		return core.PayInfo{}, ErrNoPayInfo
	}
	return *t.state.PayInfo, nil
}

func (t *Tracker) currentPeriod() (core.PayPeriod, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.state.CurrentPayPeriod == nil {
		return core.PayPeriod{}, ErrNoCurrentPeriod
	}
	return *t.state.CurrentPayPeriod, nil
}

func (t *Tracker) masters() services.MasterData {
	t.mu.RLock()
	defer t.mu.RUnlock()
	s := t.state.clone()
	return services.MasterData{Accounts: s.MasterBankAccounts, Expenses: s.MasterExpenses}
}

func (t *Tracker) today() core.Date {
	return core.DateOf(t.now().In(t.loc))
}

func (t *Tracker) update(fn func(*State)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fn(&t.state)
}

func (t *Tracker) emit(ctx context.Context, ev Event) {
	if ev.UserUID == "" {
		if uid, err := t.uid(); err == nil {
			ev.UserUID = uid
		}
	}
	ev.At = t.now().UTC()

	t.obsMu.RLock()
	observers := append([]Observer(nil), t.observers...)
	t.obsMu.RUnlock()
	for _, o := range observers {
		o.Notify(ctx, ev)
	}
}

func (t *Tracker) fail(ctx context.Context, op string, err error) error {
	t.logger.ErrorContext(ctx, "Operation failed", log.FieldOperation, op, log.FieldError, err)
	return err
}

func upsertPeriod(list []core.PayPeriod, p core.PayPeriod) []core.PayPeriod {
	for i := range list {
		if list[i].ID == p.ID {
			list[i] = p
			return list
		}
	}
	list = append(list, p)
	sort.Slice(list, func(i, j int) bool { return list[i].StartDate.Before(list[j].StartDate) })
	return list
}

// CurrentPeriodLabel formats the selected period for display.
func (t *Tracker) CurrentPeriodLabel() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return period.Label(t.state.CurrentPayPeriod)
}
