package backends

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"regexp"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq" // PostgreSQL
)

// Supported SQL dialects.
const (
	DialectPostgres = "postgres"
	DialectMySQL    = "mysql"
)

// DefaultTable is the table used when none is configured.
const DefaultTable = "secretcache_entries"

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

type sqlQueries struct {
	get    string
	upsert string
	delete string
	create string
}

// SQLStore stores entries in a single table (cache_key, value, expires_at).
// Expired rows are ignored on read and replaced on write.
type SQLStore struct {
	db      *sql.DB
	dialect string
	table   string
	queries sqlQueries
	now     func() time.Time
}

// NewSQLStore wraps an open database handle.
func NewSQLStore(db *sql.DB, dialect, table string) (*SQLStore, error) {
	if table == "" {
		table = DefaultTable
	}
	if !tableNamePattern.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}

	var q sqlQueries
	switch dialect {
	case DialectPostgres:
		q = sqlQueries{
			get: fmt.Sprintf("SELECT value, expires_at FROM %s WHERE cache_key = $1", table),
			upsert: fmt.Sprintf("INSERT INTO %s (cache_key, value, expires_at) VALUES ($1, $2, $3) "+
				"ON CONFLICT (cache_key) DO UPDATE SET value = EXCLUDED.value, expires_at = EXCLUDED.expires_at", table),
			delete: fmt.Sprintf("DELETE FROM %s WHERE cache_key = $1", table),
			create: fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (cache_key VARCHAR(512) PRIMARY KEY, value BYTEA NOT NULL, expires_at TIMESTAMPTZ NOT NULL)", table),
		}
	case DialectMySQL:
		q = sqlQueries{
			get: fmt.Sprintf("SELECT value, expires_at FROM %s WHERE cache_key = ?", table),
			upsert: fmt.Sprintf("INSERT INTO %s (cache_key, value, expires_at) VALUES (?, ?, ?) "+
				"ON DUPLICATE KEY UPDATE value = VALUES(value), expires_at = VALUES(expires_at)", table),
			delete: fmt.Sprintf("DELETE FROM %s WHERE cache_key = ?", table),
			create: fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (cache_key VARCHAR(512) PRIMARY KEY, value LONGBLOB NOT NULL, expires_at DATETIME(6) NOT NULL)", table),
		}
	default:
		return nil, fmt.Errorf("unsupported SQL dialect: %s", dialect)
	}

	return &SQLStore{
		db:      db,
		dialect: dialect,
		table:   table,
		queries: q,
		now:     time.Now,
	}, nil
}

// NewSQLStoreFactory returns a factory for dialect reading dsn or dsn_env,
// table and create_table.
func NewSQLStoreFactory(dialect string) Factory {
	return func(config map[string]interface{}) (Store, error) {
		dsn := stringOption(config, "dsn")
		if env := stringOption(config, "dsn_env"); env != "" {
			dsn = os.Getenv(env)
		}
		if dsn == "" {
			return nil, fmt.Errorf("%s backend requires dsn or dsn_env", dialect)
		}
		if dialect == DialectMySQL {
			var err error
			if dsn, err = mysqlDSN(dsn); err != nil {
				return nil, err
			}
		}

		db, err := sql.Open(dialect, dsn)
		if err != nil {
			return nil, fmt.Errorf("failed to open database connection: %w", err)
		}
		db.SetMaxOpenConns(intOption(config, "max_open_conns", 4))
		db.SetConnMaxLifetime(30 * time.Minute)

		store, err := NewSQLStore(db, dialect, stringOption(config, "table"))
		if err != nil {
			_ = db.Close()
			return nil, err
		}

		if boolOption(config, "create_table") {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := store.EnsureSchema(ctx); err != nil {
				_ = db.Close()
				return nil, err
			}
		}
		return store, nil
	}
}

// EnsureSchema creates the cache table if it does not exist.
func (s *SQLStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, s.queries.create); err != nil {
		return fmt.Errorf("failed to create table %s: %w", s.table, err)
	}
	return nil
}

// Get implements secretcache.Backend.
func (s *SQLStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var (
		value     []byte
		expiresAt time.Time
	)
	err := s.db.QueryRowContext(ctx, s.queries.get, key).Scan(&value, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("%s get: %w", s.dialect, err)
	}
	if !s.now().Before(expiresAt) {
		return nil, false, nil
	}
	return value, true, nil
}

// Put implements secretcache.Backend.
func (s *SQLStore) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	expiresAt := s.now().Add(ttl).UTC()
	if _, err := s.db.ExecContext(ctx, s.queries.upsert, key, value, expiresAt); err != nil {
		return fmt.Errorf("%s put: %w", s.dialect, err)
	}
	return nil
}

// Delete implements secretcache.Backend.
func (s *SQLStore) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, s.queries.delete, key); err != nil {
		return fmt.Errorf("%s delete: %w", s.dialect, err)
	}
	return nil
}

// Ping implements Store.
func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close implements Store.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// mysqlDSN forces parseTime so expires_at scans into time.Time.
func mysqlDSN(dsn string) (string, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("invalid mysql dsn: %w", err)
	}
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	return cfg.FormatDSN(), nil
}
