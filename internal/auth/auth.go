// Package auth signs users in and tells listeners when the session changes.
package auth

import (
	"context"
	"errors"
	"sync"
)

// Identity is the signed-in user.
type Identity struct {
	UID         string `json:"uid"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName,omitempty"`
	Provider    string `json:"provider"`
}

// Code identifies an authentication failure.
type Code string

const (
	CodeEmailInUse        Code = "auth/email-already-in-use"
	CodeInvalidCredential Code = "auth/invalid-credential"
	CodeWeakPassword      Code = "auth/weak-password"
	CodeUserNotFound      Code = "auth/user-not-found"
	CodeMissingPassword   Code = "auth/missing-password"
	CodeInvalidEmail      Code = "auth/invalid-email"
	CodeFederatedFailed   Code = "auth/federated-sign-in-failed"
)

// UnknownMessage is shown for codes without a message of their own.
const UnknownMessage = "An unknown error occurred"

// MinPasswordLength is the shortest password CreateAccount accepts.
const MinPasswordLength = 6

var messages = map[Code]string{
	CodeEmailInUse:        "Email already in use",
	CodeInvalidCredential: "Invalid credentials",
	CodeWeakPassword:      "Password should be at least 6 characters",
	CodeUserNotFound:      "User not found",
	CodeMissingPassword:   "Password cannot be empty",
	CodeInvalidEmail:      "Invalid email address",
	CodeFederatedFailed:   "Google sign-in failed. Please try again.",
}

// Message returns the user-facing text for code.
func Message(code Code) string {
	if m, ok := messages[code]; ok {
		return m
	}
	return UnknownMessage
}

// MessageFor returns the user-facing text for any error from this package.
func MessageFor(err error) string {
	var ae *Error
	if errors.As(err, &ae) {
		return Message(ae.Code)
	}
	return UnknownMessage
}

// Error is an authentication failure with a stable code.
type Error struct {
	Code Code
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return string(e.Code) + ": " + e.Err.Error()
	}
	return string(e.Code)
}

func (e *Error) Unwrap() error { return e.Err }

func newError(code Code, err error) *Error {
	return &Error{Code: code, Err: err}
}

// Authenticator is the port the tracker signs in through.
type Authenticator interface {
	CreateAccount(ctx context.Context, email, password string) (*Identity, error)
	SignIn(ctx context.Context, email, password string) (*Identity, error)
	SignInWithFederatedProvider(ctx context.Context) (*Identity, error)
	SignOut(ctx context.Context) error
	// OnSessionChange calls fn with the current identity (nil when signed
	// out) right away and again after every change.
	OnSessionChange(fn func(*Identity)) (unsubscribe func())
}

// Federated authenticates against an external identity provider. The
// returned identity carries at least an email; UID may be empty.
type Federated interface {
	Authenticate(ctx context.Context) (*Identity, error)
}

// Sessions tracks the current identity and its listeners.
type Sessions struct {
	mu        sync.Mutex
	current   *Identity
	nextID    int
	listeners map[int]func(*Identity)
}

// Current returns a copy of the signed-in identity, or nil.
func (s *Sessions) Current() *Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyIdentity(s.current)
}

// Set replaces the identity and notifies listeners outside the lock.
func (s *Sessions) Set(id *Identity) {
	s.mu.Lock()
	s.current = copyIdentity(id)
	fns := make([]func(*Identity), 0, len(s.listeners))
	for i := 0; i < s.nextID; i++ {
		if fn, ok := s.listeners[i]; ok {
			fns = append(fns, fn)
		}
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(copyIdentity(id))
	}
}

// Subscribe registers fn and calls it once with the current identity.
func (s *Sessions) Subscribe(fn func(*Identity)) func() {
	s.mu.Lock()
	if s.listeners == nil {
		s.listeners = make(map[int]func(*Identity))
	}
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	current := copyIdentity(s.current)
	s.mu.Unlock()

	fn(current)

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.listeners, id)
			s.mu.Unlock()
		})
	}
}

func copyIdentity(id *Identity) *Identity {
	if id == nil {
		return nil
	}
	c := *id
	return &c
}
