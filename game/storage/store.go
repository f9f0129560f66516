package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

var (
	ErrNotFound      = errors.New("key not found")
	ErrInvalidKey    = errors.New("invalid key")
	ErrUnknownDriver = errors.New("unknown storage driver")
)

// Store is a string key-value store
type Store interface {
	// Get returns the value stored under key, or ErrNotFound
	Get(ctx context.Context, key string) (string, error)

	// Set stores value under key, replacing any previous value
	Set(ctx context.Context, key, value string) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Keys returns all keys with the given prefix in lexical order
	Keys(ctx context.Context, prefix string) ([]string, error)

	// Close releases any resources held by the store
	Close() error
}

// Supported drivers for Open
const (
	DriverMemory   = "memory"
	DriverFile     = "file"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Open creates a store for the given driver. The dsn is a directory for the
// file driver, a database path for sqlite and a connection string for postgres.
func Open(ctx context.Context, driver, dsn string, logger *zap.Logger) (Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	switch strings.ToLower(driver) {
	case "", DriverMemory:
		return NewMemoryStore(), nil
	case DriverFile:
		if dsn == "" {
			dsn = "data"
		}
		return NewFileStore(dsn)
	case DriverSQLite:
		if dsn == "" {
			dsn = "journal.db"
		}
		return OpenSQLStore(ctx, DialectSQLite, dsn, logger)
	case DriverPostgres:
		if dsn == "" {
			return nil, fmt.Errorf("postgres driver requires a dsn")
		}
		return OpenSQLStore(ctx, DialectPostgres, dsn, logger)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownDriver, driver)
	}
}

func validateKey(key string) error {
	if key == "" {
		return fmt.Errorf("%w: key cannot be empty", ErrInvalidKey)
	}
	return nil
}
