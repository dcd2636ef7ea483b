package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"paycalc/internal/log"
	"paycalc/internal/store"
)

const (
	// Namespace holds credential documents, apart from any user's data.
	Namespace = "_auth"
	usersColl = "users"

	ProviderPassword = "password"
	ProviderGoogle   = "google"
)

type userRecord struct {
	UID          string    `json:"uid"`
	Email        string    `json:"email"`
	DisplayName  string    `json:"displayName,omitempty"`
	PasswordHash string    `json:"passwordHash,omitempty"`
	Provider     string    `json:"provider"`
	CreatedAt    time.Time `json:"createdAt"`
}

func (u userRecord) identity(provider string) *Identity {
	return &Identity{UID: u.UID, Email: u.Email, DisplayName: u.DisplayName, Provider: provider}
}

// Local keeps bcrypt credentials in a DocumentStore, keyed by email.
type Local struct {
	store     store.DocumentStore
	federated Federated
	sessions  Sessions
	cost      int
	logger    *log.Logger
	now       func() time.Time
}

var _ Authenticator = (*Local)(nil)

type LocalOption func(*Local)

// WithFederated enables SignInWithFederatedProvider.
func WithFederated(f Federated) LocalOption {
	return func(l *Local) { l.federated = f }
}

// WithBcryptCost overrides bcrypt.DefaultCost.
func WithBcryptCost(cost int) LocalOption {
	return func(l *Local) { l.cost = cost }
}

func WithLogger(logger *log.Logger) LocalOption {
	return func(l *Local) { l.logger = logger }
}

func NewLocal(s store.DocumentStore, opts ...LocalOption) *Local {
	l := &Local{
		store: s,
		cost:  bcrypt.DefaultCost,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	l.logger = log.OrDiscard(l.logger).WithComponent(log.ComponentAuth)
	return l
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (l *Local) lookup(ctx context.Context, email string) (*userRecord, error) {
	rec, err := l.store.Get(ctx, Namespace, usersColl, email)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	var u userRecord
	if err := store.Decode(rec, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (l *Local) save(ctx context.Context, email string, u userRecord) error {
	data, err := store.Encode(u)
	if err != nil {
		return err
	}
	if err := l.store.Set(ctx, Namespace, usersColl, email, data); err != nil {
		return fmt.Errorf("save user: %w", err)
	}
	return nil
}

func (l *Local) CreateAccount(ctx context.Context, email, password string) (*Identity, error) {
	email = normalizeEmail(email)
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, newError(CodeInvalidEmail, err)
	}
	if password == "" {
		return nil, newError(CodeMissingPassword, nil)
	}
	if len(password) < MinPasswordLength {
		return nil, newError(CodeWeakPassword, nil)
	}

	existing, err := l.lookup(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, newError(CodeEmailInUse, nil)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), l.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u := userRecord{
		UID:          uuid.NewString(),
		Email:        email,
		PasswordHash: string(hash),
		Provider:     ProviderPassword,
		CreatedAt:    l.now().UTC(),
	}
	if err := l.save(ctx, email, u); err != nil {
		return nil, err
	}

	l.logger.InfoContext(ctx, "Account created", log.FieldUserUID, u.UID)
	id := u.identity(ProviderPassword)
	l.sessions.Set(id)
	return id, nil
}

func (l *Local) SignIn(ctx context.Context, email, password string) (*Identity, error) {
	email = normalizeEmail(email)
	if password == "" {
		return nil, newError(CodeMissingPassword, nil)
	}

	u, err := l.lookup(ctx, email)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, newError(CodeUserNotFound, nil)
	}
	if u.PasswordHash == "" {
		// Accounts created through a federated provider have no password.
		return nil, newError(CodeInvalidCredential, nil)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, newError(CodeInvalidCredential, nil)
	}

	l.logger.InfoContext(ctx, "Signed in", log.FieldOperation, log.OpSignIn, log.FieldUserUID, u.UID)
	id := u.identity(ProviderPassword)
	l.sessions.Set(id)
	return id, nil
}

// SignInWithFederatedProvider authenticates through the configured provider
// and links the result to the account with the same email, creating one on
// first use.
func (l *Local) SignInWithFederatedProvider(ctx context.Context) (*Identity, error) {
	if l.federated == nil {
		return nil, newError(CodeFederatedFailed, errors.New("no federated provider configured"))
	}
	ext, err := l.federated.Authenticate(ctx)
	if err != nil {
		return nil, newError(CodeFederatedFailed, err)
	}
	email := normalizeEmail(ext.Email)
	if email == "" {
		return nil, newError(CodeFederatedFailed, errors.New("provider returned no email"))
	}

	u, err := l.lookup(ctx, email)
	if err != nil {
		return nil, err
	}
	if u == nil {
		u = &userRecord{
			UID:         uuid.NewString(),
			Email:       email,
			DisplayName: ext.DisplayName,
			Provider:    ProviderGoogle,
			CreatedAt:   l.now().UTC(),
		}
		if err := l.save(ctx, email, *u); err != nil {
			return nil, err
		}
	}

	l.logger.InfoContext(ctx, "Signed in with federated provider", log.FieldOperation, log.OpSignIn, log.FieldUserUID, u.UID)
	id := u.identity(ProviderGoogle)
	if id.DisplayName == "" {
		id.DisplayName = ext.DisplayName
	}
	l.sessions.Set(id)
	return id, nil
}

func (l *Local) SignOut(ctx context.Context) error {
	if cur := l.sessions.Current(); cur != nil {
		l.logger.InfoContext(ctx, "Signed out", log.FieldOperation, log.OpSignOut, log.FieldUserUID, cur.UID)
	}
	l.sessions.Set(nil)
	return nil
}

func (l *Local) OnSessionChange(fn func(*Identity)) func() {
	return l.sessions.Subscribe(fn)
}

// Current returns the signed-in identity, or nil.
func (l *Local) Current() *Identity {
	return l.sessions.Current()
}
