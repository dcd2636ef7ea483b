package backend

import (
	"context"
	"time"

	"paycalc/internal/amqp"
	"paycalc/internal/auth"
	"paycalc/internal/cache"
	"paycalc/internal/sheets"
	sheetsmem "paycalc/internal/sheets/memory"
	"paycalc/internal/store"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult holds everything a tracker needs, plus the optional
// integrations. Events, Publisher, Exporter and DryRun are nil when the
// matching integration is not configured.
type BackendResult struct {
	Store store.DocumentStore
	Auth  *auth.Local
	Cache *cache.Manager

	Events    *amqp.Client
	Publisher *amqp.Publisher

	Exporter *sheets.Exporter
	// DryRun is the in-memory writer behind Exporter in dry-run mode.
	DryRun *sheetsmem.Store

	Cleanup CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// SQLite specific
	SQLiteDBPath string

	// Read cache in front of the document store
	CacheSize            int
	CacheTTL             time.Duration
	CacheCleanupInterval time.Duration

	// AMQP, optional
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google sign-in, optional
	GoogleOAuthClientFile   string
	GoogleOAuthClientJSON   string
	GoogleOAuthRedirectPort int
	// OAuthPrompt receives the URL the user must open to sign in.
	OAuthPrompt func(authURL string)

	// Spreadsheet export, optional
	GoogleSpreadsheetID      string
	GoogleSheetPrefix        string
	GoogleServiceAccountFile string
	GoogleServiceAccountJSON string
	// DryRunExport renders exports into memory instead of Google Sheets.
	DryRunExport bool

	// BcryptCost overrides the password hashing cost; zero keeps the default.
	BcryptCost int
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
