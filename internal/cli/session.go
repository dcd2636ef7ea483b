package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"paycalc/internal/amqp"
	"paycalc/internal/backend"
	"paycalc/internal/config"
	"paycalc/internal/log"
	"paycalc/internal/tracker"
)

var ErrNoCredentials = errors.New("set PAYCALC_EMAIL and PAYCALC_PASSWORD or pass --google")

// SessionOptions tune how a command's session is opened.
type SessionOptions struct {
	// Google signs in through the browser instead of email and password.
	Google bool
	// Anonymous skips sign-in entirely (signup opens the session itself).
	Anonymous bool
	// DryRunExport renders exports into memory.
	DryRunExport bool
	// NoPublish keeps tracker events off the queue. Set by processes that
	// consume the queue themselves.
	NoPublish bool
	// OAuthPrompt receives the Google sign-in URL.
	OAuthPrompt func(authURL string)
	// BcryptCost overrides the password hashing cost.
	BcryptCost int
	Clock      func() time.Time
}

// Session is a tracker bound to a backend for the life of one command.
type Session struct {
	Tracker *tracker.Tracker
	Backend *backend.BackendResult
	Config  *config.Config
	logger  *log.Logger
}

// OpenSession builds the backend described by cfg, attaches the event
// publisher when one is configured and signs the user in.
func OpenSession(ctx context.Context, cfg *config.Config, logger *log.Logger, opts SessionOptions) (*Session, error) {
	logger = log.OrDiscard(logger)

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	bcfg.DryRunExport = opts.DryRunExport
	bcfg.OAuthPrompt = opts.OAuthPrompt
	bcfg.BcryptCost = opts.BcryptCost

	res, err := backend.NewFactory(logger).CreateBackend(ctx, bcfg)
	if err != nil {
		return nil, fmt.Errorf("create backend: %w", err)
	}

	loc, err := cfg.Location()
	if err != nil {
		_ = res.Cleanup()
		return nil, err
	}

	t := tracker.New(tracker.Options{
		Store:    res.Store,
		Auth:     res.Auth,
		Logger:   logger,
		Clock:    opts.Clock,
		Location: loc,
	})
	AttachPublisher(t, res.Publisher, opts)
	t.Init(ctx)

	s := &Session{Tracker: t, Backend: res, Config: cfg, logger: logger.WithComponent(log.ComponentCLI)}
	if opts.Anonymous {
		return s, nil
	}

	if err := s.signIn(ctx, opts.Google); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

// AttachPublisher subscribes p to t unless p is nil or opts.NoPublish is set.
// It reports whether p was attached.
func AttachPublisher(t *tracker.Tracker, p *amqp.Publisher, opts SessionOptions) bool {
	if p == nil || opts.NoPublish {
		return false
	}
	t.Subscribe(p)
	return true
}

func (s *Session) signIn(ctx context.Context, google bool) error {
	if google {
		if !s.Config.GoogleSignInEnabled() {
			return errors.New("Google sign-in is not configured: set GOOGLE_OAUTH_CLIENT_FILE or GOOGLE_OAUTH_CLIENT_JSON")
		}
		return s.Tracker.SignInWithGoogle(ctx)
	}
	if s.Config.UserEmail == "" || s.Config.UserPassword == "" {
		return ErrNoCredentials
	}
	return s.Tracker.SignIn(ctx, s.Config.UserEmail, s.Config.UserPassword)
}

// Close stops the tracker and releases backend resources.
func (s *Session) Close() error {
	s.Tracker.Close()
	if s.Backend.Cleanup == nil {
		return nil
	}
	if err := s.Backend.Cleanup(); err != nil {
		s.logger.Warn("Backend cleanup failed", log.FieldError, err)
		return err
	}
	return nil
}
