package backend

import (
	"fmt"

	"paycalc/internal/config"
)

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	backendType := BackendType(appConfig.DataBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.DataBackend)
	}

	return Config{
		Type: backendType,

		SQLiteDBPath: appConfig.SQLiteDBPath,

		CacheSize:            appConfig.CacheSize,
		CacheTTL:             appConfig.CacheTTL,
		CacheCleanupInterval: appConfig.CacheCleanupInterval,

		AMQPURL:      appConfig.AMQPURL,
		AMQPExchange: appConfig.AMQPExchange,
		AMQPQueue:    appConfig.AMQPQueue,

		GoogleOAuthClientFile:   appConfig.GoogleOAuthClientFile,
		GoogleOAuthClientJSON:   appConfig.GoogleOAuthClientJSON,
		GoogleOAuthRedirectPort: appConfig.GoogleOAuthRedirectPort,

		GoogleSpreadsheetID:      appConfig.GoogleSpreadsheetID,
		GoogleSheetPrefix:        appConfig.GoogleSheetPrefix,
		GoogleServiceAccountFile: appConfig.GoogleServiceAccountFile,
		GoogleServiceAccountJSON: appConfig.GoogleServiceAccountJSON,
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}

	if c.Type == SQLiteBackend && c.SQLiteDBPath == "" {
		return fmt.Errorf("SQLite database path is required for sqlite backend")
	}

	if c.AMQPURL != "" && (c.AMQPExchange == "" || c.AMQPQueue == "") {
		return fmt.Errorf("AMQP exchange and queue are required when AMQP URL is set")
	}

	if c.GoogleSpreadsheetID != "" && !c.DryRunExport {
		if c.GoogleServiceAccountFile == "" && c.GoogleServiceAccountJSON == "" {
			return fmt.Errorf("either GoogleServiceAccountFile or GoogleServiceAccountJSON must be provided for sheets export")
		}
	}

	if c.googleSignIn() && (c.GoogleOAuthRedirectPort < 1 || c.GoogleOAuthRedirectPort > 65535) {
		return fmt.Errorf("invalid OAuth redirect port %d", c.GoogleOAuthRedirectPort)
	}

	return nil
}

func (c Config) googleSignIn() bool {
	return c.GoogleOAuthClientFile != "" || c.GoogleOAuthClientJSON != ""
}

// GetBackendTypes returns all valid backend types
func GetBackendTypes() []BackendType {
	return []BackendType{SQLiteBackend, MemoryBackend}
}

// GetBackendTypeStrings returns all valid backend type strings
func GetBackendTypeStrings() []string {
	types := GetBackendTypes()
	strings := make([]string, len(types))
	for i, t := range types {
		strings[i] = t.String()
	}
	return strings
}
