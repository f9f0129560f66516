package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/wricardo/moodjournal/game/storage/migrations"
)

// Dialect selects the SQL flavour used by SQLStore
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// goose keeps its base FS and dialect in package state
var migrateMu sync.Mutex

type queries struct {
	get    string
	set    string
	delete string
	keys   string
}

var dialectQueries = map[Dialect]queries{
	DialectSQLite: {
		get: `SELECT item_value FROM kv WHERE item_key = ?`,
		set: `INSERT INTO kv (item_key, item_value, updated_at) VALUES (?, ?, ?)
ON CONFLICT (item_key) DO UPDATE SET item_value = excluded.item_value, updated_at = excluded.updated_at`,
		delete: `DELETE FROM kv WHERE item_key = ?`,
		keys:   `SELECT item_key FROM kv WHERE item_key LIKE ? ESCAPE '\' ORDER BY item_key`,
	},
	DialectPostgres: {
		get: `SELECT item_value FROM kv WHERE item_key = $1`,
		set: `INSERT INTO kv (item_key, item_value, updated_at) VALUES ($1, $2, $3)
ON CONFLICT (item_key) DO UPDATE SET item_value = excluded.item_value, updated_at = excluded.updated_at`,
		delete: `DELETE FROM kv WHERE item_key = $1`,
		keys:   `SELECT item_key FROM kv WHERE item_key LIKE $1 ESCAPE '\' ORDER BY item_key`,
	},
}

// SQLStore implements Store on top of a single kv table
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
	q       queries
}

// OpenSQLStore opens the database, runs migrations and returns the store
func OpenSQLStore(ctx context.Context, dialect Dialect, dsn string, logger *zap.Logger) (*SQLStore, error) {
	driverName := ""
	switch dialect {
	case DialectSQLite:
		driverName = "sqlite"
	case DialectPostgres:
		driverName = "pgx"
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownDriver, dialect)
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}

	store, err := NewSQLStore(ctx, db, dialect, logger)
	if err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// NewSQLStore wraps an open database, running migrations first
func NewSQLStore(ctx context.Context, db *sql.DB, dialect Dialect, logger *zap.Logger) (*SQLStore, error) {
	q, ok := dialectQueries[dialect]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDriver, dialect)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	if dialect == DialectSQLite {
		// sqlite allows one writer; a single connection also keeps :memory: databases shared
		db.SetMaxOpenConns(1)
	}

	if err := RunMigrations(ctx, db, dialect, logger); err != nil {
		return nil, fmt.Errorf("migration error: %w", err)
	}

	return &SQLStore{db: db, dialect: dialect, q: q}, nil
}

// RunMigrations applies the embedded goose migrations
func RunMigrations(ctx context.Context, db *sql.DB, dialect Dialect, logger *zap.Logger) error {
	migrateMu.Lock()
	defer migrateMu.Unlock()

	goose.SetBaseFS(migrations.Migrations)
	goose.SetLogger(gooseLogger{logger.Sugar()})

	gooseDialect := "postgres"
	if dialect == DialectSQLite {
		gooseDialect = "sqlite3"
	}
	if err := goose.SetDialect(gooseDialect); err != nil {
		return err
	}

	return goose.UpContext(ctx, db, ".")
}

// Get returns the value stored under key
func (s *SQLStore) Get(ctx context.Context, key string) (string, error) {
	if err := validateKey(key); err != nil {
		return "", err
	}

	var value string
	err := s.db.QueryRowContext(ctx, s.q.get, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to query key %q: %w", key, err)
	}
	return value, nil
}

// Set upserts value under key
func (s *SQLStore) Set(ctx context.Context, key, value string) error {
	if err := validateKey(key); err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx, s.q.set, key, value, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to store key %q: %w", key, err)
	}
	return nil
}

// Delete removes key
func (s *SQLStore) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, s.q.delete, key); err != nil {
		return fmt.Errorf("failed to delete key %q: %w", key, err)
	}
	return nil
}

// Keys lists keys with the given prefix
func (s *SQLStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, s.q.keys, escapeLike(prefix)+"%")
	if err != nil {
		return nil, fmt.Errorf("failed to list keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("failed to scan key: %w", err)
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

// Close closes the underlying database
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// escapeLike escapes LIKE wildcards so the prefix matches literally
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// gooseLogger routes goose output through zap at debug level
type gooseLogger struct {
	l *zap.SugaredLogger
}

func (g gooseLogger) Fatalf(format string, v ...interface{}) {
	g.l.Fatalf(format, v...)
}

func (g gooseLogger) Printf(format string, v ...interface{}) {
	g.l.Debugf(strings.TrimSuffix(format, "\n"), v...)
}
