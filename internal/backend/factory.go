package backend

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"paycalc/internal/amqp"
	"paycalc/internal/auth"
	googleauth "paycalc/internal/auth/google"
	"paycalc/internal/cache"
	"paycalc/internal/log"
	"paycalc/internal/sheets"
	gsheet "paycalc/internal/sheets/google"
	sheetsmem "paycalc/internal/sheets/memory"
	"paycalc/internal/store"
	"paycalc/internal/store/memory"
	"paycalc/internal/store/sqlite"
)

const (
	defaultCacheSize       = 512
	defaultCacheTTL        = 5 * time.Minute
	defaultCleanupInterval = time.Minute
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	// base is handed to constructors, which tag their own component.
	base   *log.Logger
	logger *log.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) Factory {
	base := log.OrDiscard(logger)
	return &DefaultFactory{
		base:   base,
		logger: base.WithComponent(log.ComponentBackend),
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var closers []func() error
	cleanup := func() error {
		var errs []error
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}
	fail := func(err error) (*BackendResult, error) {
		_ = cleanup()
		return nil, err
	}

	base, closeBase, err := f.createStore(config)
	if err != nil {
		return nil, err
	}
	if closeBase != nil {
		closers = append(closers, closeBase)
	}

	cached, manager := f.wrapCache(base, config)
	closers = append(closers, func() error { manager.Stop(); return nil })

	res := &BackendResult{Store: cached, Cache: manager}

	authOpts := []auth.LocalOption{auth.WithLogger(f.base)}
	if config.BcryptCost > 0 {
		authOpts = append(authOpts, auth.WithBcryptCost(config.BcryptCost))
	}
	if config.googleSignIn() {
		provider, err := f.createGoogleProvider(config)
		if err != nil {
			return fail(err)
		}
		authOpts = append(authOpts, auth.WithFederated(provider))
	}
	res.Auth = auth.NewLocal(cached, authOpts...)

	if config.AMQPURL != "" {
		client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue, f.base)
		if err != nil {
			f.logger.Warn("Failed to initialize AMQP client, continuing without events", log.FieldError, err)
		} else {
			res.Events = client
			res.Publisher = amqp.NewPublisher(client, f.base)
			closers = append(closers, client.Close)
			f.logger.Info("Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
		}
	}

	writer, dryRun, err := f.createSheetWriter(ctx, config)
	if err != nil {
		return fail(err)
	}
	if writer != nil {
		res.Exporter = sheets.NewExporter(writer, config.GoogleSheetPrefix, f.base)
		res.DryRun = dryRun
	}

	f.logger.Info("Initialized backend",
		"type", config.Type,
		"amqp_enabled", res.Events != nil,
		"export_enabled", res.Exporter != nil,
		"google_sign_in", config.googleSignIn())

	res.Cleanup = cleanup
	return res, nil
}

func (f *DefaultFactory) createStore(config Config) (store.DocumentStore, func() error, error) {
	switch config.Type {
	case SQLiteBackend:
		s, err := sqlite.Open(config.SQLiteDBPath, f.base)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize SQLite store: %w", err)
		}
		f.logger.Info("Initialized SQLite store", "db_path", config.SQLiteDBPath)
		return s, s.Close, nil
	case MemoryBackend:
		f.logger.Info("Initialized memory store")
		return memory.New(), nil, nil
	default:
		return nil, nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) wrapCache(next store.DocumentStore, config Config) (*store.Cached, *cache.Manager) {
	size := config.CacheSize
	if size <= 0 {
		size = defaultCacheSize
	}
	ttl := config.CacheTTL
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	interval := config.CacheCleanupInterval
	if interval <= 0 {
		interval = defaultCleanupInterval
	}

	cached := store.NewCached(next, size, ttl, f.base)
	manager := cache.NewManager(f.base)
	manager.Register(cached.Cache())
	manager.StartCleanup(interval)
	return cached, manager
}

func (f *DefaultFactory) createGoogleProvider(config Config) (*googleauth.Provider, error) {
	clientJSON := []byte(config.GoogleOAuthClientJSON)
	if len(clientJSON) == 0 {
		b, err := os.ReadFile(config.GoogleOAuthClientFile)
		if err != nil {
			return nil, fmt.Errorf("read OAuth client file: %w", err)
		}
		clientJSON = b
	}

	codes := &loopbackCodes{
		addr:   net.JoinHostPort("127.0.0.1", strconv.Itoa(config.GoogleOAuthRedirectPort)),
		prompt: config.OAuthPrompt,
	}
	provider, err := googleauth.NewFromJSON(clientJSON, codes.redirectURL(), codes, f.base)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google sign-in: %w", err)
	}
	return provider, nil
}

func (f *DefaultFactory) createSheetWriter(ctx context.Context, config Config) (sheets.SheetWriter, *sheetsmem.Store, error) {
	if config.DryRunExport {
		mem := sheetsmem.New()
		return mem, mem, nil
	}
	if config.GoogleSpreadsheetID == "" {
		return nil, nil, nil
	}
	cli, err := gsheet.New(ctx, config.GoogleSpreadsheetID, []byte(config.GoogleServiceAccountJSON), config.GoogleServiceAccountFile, f.base)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}
	f.logger.Info("Initialized Google Sheets export", "spreadsheet_id", config.GoogleSpreadsheetID)
	return cli, nil, nil
}

// loopbackCodes binds the callback listener only when a sign-in starts.
type loopbackCodes struct {
	addr   string
	prompt func(string)
}

func (l *loopbackCodes) redirectURL() string {
	return "http://" + l.addr + "/callback"
}

func (l *loopbackCodes) AuthCode(ctx context.Context, authURL, state string) (string, error) {
	ln, err := net.Listen("tcp", l.addr)
	if err != nil {
		return "", fmt.Errorf("listen for OAuth callback: %w", err)
	}
	src := &googleauth.LoopbackCodeSource{Listener: ln, Prompt: l.prompt}
	return src.AuthCode(ctx, authURL, state)
}
