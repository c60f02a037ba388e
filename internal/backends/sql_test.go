package backends

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sqlNow = time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)

func newMockSQLStore(t *testing.T, dialect string) (*SQLStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	s, err := NewSQLStore(db, dialect, "")
	require.NoError(t, err)
	s.now = func() time.Time { return sqlNow }
	return s, mock
}

func TestSQLStoreGet(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		dialect string
		query   string
	}{
		{name: "postgres", dialect: DialectPostgres, query: "SELECT value, expires_at FROM secretcache_entries WHERE cache_key = $1"},
		{name: "mysql", dialect: DialectMySQL, query: "SELECT value, expires_at FROM secretcache_entries WHERE cache_key = ?"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()
			s, mock := newMockSQLStore(t, tt.dialect)

			mock.ExpectQuery(regexp.QuoteMeta(tt.query)).
				WithArgs("secret:a").
				WillReturnRows(sqlmock.NewRows([]string{"value", "expires_at"}).
					AddRow([]byte("sealed"), sqlNow.Add(time.Minute)))

			got, ok, err := s.Get(ctx, "secret:a")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, []byte("sealed"), got)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestSQLStoreGetExpiredRow(t *testing.T) {
	t.Parallel()
	s, mock := newMockSQLStore(t, DialectPostgres)

	mock.ExpectQuery("SELECT value, expires_at FROM secretcache_entries").
		WithArgs("secret:a").
		WillReturnRows(sqlmock.NewRows([]string{"value", "expires_at"}).
			AddRow([]byte("sealed"), sqlNow))

	_, ok, err := s.Get(context.Background(), "secret:a")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStoreGetMissingRow(t *testing.T) {
	t.Parallel()
	s, mock := newMockSQLStore(t, DialectPostgres)

	mock.ExpectQuery("SELECT value, expires_at FROM secretcache_entries").
		WithArgs("secret:a").
		WillReturnError(sql.ErrNoRows)

	_, ok, err := s.Get(context.Background(), "secret:a")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSQLStoreGetError(t *testing.T) {
	t.Parallel()
	s, mock := newMockSQLStore(t, DialectMySQL)

	mock.ExpectQuery("SELECT value, expires_at FROM secretcache_entries").
		WithArgs("secret:a").
		WillReturnError(errors.New("connection refused"))

	_, _, err := s.Get(context.Background(), "secret:a")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestSQLStorePut(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		dialect string
		query   string
	}{
		{name: "postgres upsert", dialect: DialectPostgres, query: "ON CONFLICT (cache_key) DO UPDATE SET value = EXCLUDED.value, expires_at = EXCLUDED.expires_at"},
		{name: "mysql upsert", dialect: DialectMySQL, query: "ON DUPLICATE KEY UPDATE value = VALUES(value), expires_at = VALUES(expires_at)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s, mock := newMockSQLStore(t, tt.dialect)

			mock.ExpectExec(regexp.QuoteMeta(tt.query)).
				WithArgs("secret:a", []byte("sealed"), sqlNow.Add(time.Hour)).
				WillReturnResult(sqlmock.NewResult(0, 1))

			require.NoError(t, s.Put(context.Background(), "secret:a", []byte("sealed"), time.Hour))
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestSQLStoreDelete(t *testing.T) {
	t.Parallel()
	s, mock := newMockSQLStore(t, DialectPostgres)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM secretcache_entries WHERE cache_key = $1")).
		WithArgs("secret:a").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, s.Delete(context.Background(), "secret:a"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStoreEnsureSchema(t *testing.T) {
	t.Parallel()
	s, mock := newMockSQLStore(t, DialectMySQL)

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS secretcache_entries")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, s.EnsureSchema(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNewSQLStoreValidation(t *testing.T) {
	t.Parallel()
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	_, err = NewSQLStore(db, "sqlite", "")
	assert.Error(t, err)

	_, err = NewSQLStore(db, DialectPostgres, "entries; DROP TABLE users")
	assert.Error(t, err)

	s, err := NewSQLStore(db, DialectPostgres, "custom_cache")
	require.NoError(t, err)
	assert.Contains(t, s.queries.get, "FROM custom_cache")
}

func TestMySQLDSNForcesParseTime(t *testing.T) {
	t.Parallel()

	dsn, err := mysqlDSN("app:pw@tcp(db:3306)/cache")
	require.NoError(t, err)
	assert.Contains(t, dsn, "parseTime=true")

	_, err = mysqlDSN("not a dsn")
	assert.Error(t, err)
}
