package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mattn/go-sqlite3"

	"github.com/maestroSwift/villarbolsillo/internal/common"
	"github.com/maestroSwift/villarbolsillo/internal/service"
)

// SQLiteStorage implements service.RecordStore on a single SQLite database.
type SQLiteStorage struct {
	db     *sql.DB
	tables map[service.TableName]*recordTable
	dbPath string
	retry  service.RetryOptions
}

// Option configures a SQLiteStorage.
type Option func(*SQLiteStorage)

// WithRetryOptions overrides the retry policy for busy database errors.
func WithRetryOptions(opts service.RetryOptions) Option {
	return func(s *SQLiteStorage) {
		s.retry = opts
	}
}

// NewSQLiteStorage creates a new SQLite storage instance.
func NewSQLiteStorage(dbPath string, opts ...Option) (*SQLiteStorage, error) {
	if err := validateString(dbPath, "dbPath"); err != nil {
		return nil, err
	}

	dsn := dbPath
	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		dsn = dbPath + "?_journal_mode=WAL&_busy_timeout=5000"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite doesn't benefit from multiple connections, and :memory: needs exactly one.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &SQLiteStorage{
		db:     db,
		dbPath: dbPath,
		retry:  common.DefaultRetryOptions(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.tables = make(map[service.TableName]*recordTable, len(service.AllTables))
	for _, name := range service.AllTables {
		s.tables[name] = &recordTable{store: s, name: name}
	}

	return s, nil
}

// Table returns the handle for a named table. Unknown names yield a table
// whose operations fail with ErrUnknownTable.
func (s *SQLiteStorage) Table(name service.TableName) service.Table {
	if t, ok := s.tables[name]; ok {
		return t
	}
	return &recordTable{store: s, name: name}
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// NewCheckpointManager creates a new checkpoint manager for this storage instance.
func (s *SQLiteStorage) NewCheckpointManager() (*CheckpointManager, error) {
	return NewCheckpointManager(s.db, s.dbPath)
}

// withTx runs fn inside a transaction, retrying when SQLite reports the
// database as busy or locked.
func (s *SQLiteStorage) withTx(ctx context.Context, fn func(*sql.Tx) error) error {
	return common.WithRetry(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return classifySQLiteError(fmt.Errorf("failed to begin transaction: %w", err))
		}
		if err := fn(tx); err != nil {
			_ = tx.Rollback()
			return classifySQLiteError(err)
		}
		if err := tx.Commit(); err != nil {
			return classifySQLiteError(fmt.Errorf("failed to commit: %w", err))
		}
		return nil
	}, s.retry)
}

// classifySQLiteError marks busy and locked errors as retryable.
func classifySQLiteError(err error) error {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		if sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked {
			return &common.RetryableError{
				Err:       fmt.Errorf("%w: %w", common.ErrStoreBusy, err),
				Retryable: true,
			}
		}
	}
	return err
}
