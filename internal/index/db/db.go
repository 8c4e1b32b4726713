// Package db provides the embedded SQLite store behind the door43 catalog
// index.
//
// The store plays two roles:
//   - Index: read-only queries over committed state
//   - Library: the transactional write side used by the sync pipeline
//
// Architecture:
//   - Database file: ~/.door43/index.db by default
//   - WAL mode: readers on pooled connections never see an open transaction
//   - Schema: bundled schema.sql, applied by InitSchema
//   - Writes: one *sql.Tx at a time, opened with BeginTransaction
//
// Workflow:
//  1. The sync client calls BeginTransaction
//  2. Parsers upsert entities top-down (languages, projects, resources)
//  3. The client calls EndTransaction(true) on success or EndTransaction(false)
//     on any failure, discarding every write of the run
package db

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// SchemaVersion is stored in PRAGMA user_version by InitSchema.
const SchemaVersion = 1

//go:embed schema.sql
var schemaSQL string

// DB wraps the SQLite connection pool and the single write transaction.
type DB struct {
	conn   *sql.DB
	path   string
	logger *log.Logger

	txMu sync.Mutex
	tx   *sql.Tx
}

// Open creates a new database connection at the specified path.
//
// The database is opened in WAL mode with foreign keys enabled. Write
// transactions take the write lock immediately so a second writer waits on
// busy_timeout instead of failing mid-transaction.
//
// The caller MUST call Close() when done.
//
// Example:
//
//	library, err := db.Open(filepath.Join(home, ".door43", "index.db"))
//	if err != nil {
//	    return err
//	}
//	defer library.Close()
func Open(path string) (*DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// Pragmas go in the DSN so every pooled connection gets them.
	connStr := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)&_pragma=journal_mode(wal)&_txlock=immediate", path)
	conn, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	conn.SetMaxOpenConns(25)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(5 * time.Minute)

	return &DB{
		conn:   conn,
		path:   path,
		logger: log.New(io.Discard, "", 0),
	}, nil
}

// SetLogger sets the logger for data warnings raised while writing.
// Call it before the first transaction.
func (db *DB) SetLogger(logger *log.Logger) {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	db.logger = logger
}

// Path returns the database file path.
func (db *DB) Path() string {
	return db.path
}

// RawDB returns the underlying sql.DB connection.
func (db *DB) RawDB() *sql.DB {
	return db.conn
}

// Close closes the database connection.
// An open transaction is rolled back first. Performs a WAL checkpoint so
// the database file is self-contained afterwards.
func (db *DB) Close() error {
	if db.conn == nil {
		return nil
	}

	db.txMu.Lock()
	if db.tx != nil {
		_ = db.tx.Rollback()
		db.tx = nil
	}
	db.txMu.Unlock()

	if _, err := db.conn.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to checkpoint WAL: %v\n", err)
	}

	if err := db.conn.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	db.conn = nil
	return nil
}

// InitSchema applies the bundled schema. It is idempotent.
//
// A database written by a newer schema version is rejected rather than
// silently downgraded.
func (db *DB) InitSchema(ctx context.Context) error {
	var version int
	if err := db.conn.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	if version > SchemaVersion {
		return fmt.Errorf("database schema version %d is newer than supported version %d", version, SchemaVersion)
	}

	if _, err := db.conn.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	if version != SchemaVersion {
		if _, err := db.conn.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", SchemaVersion)); err != nil {
			return fmt.Errorf("failed to record schema version: %w", err)
		}
	}

	return nil
}

// OpenIndex opens the database at path and applies the schema.
func OpenIndex(ctx context.Context, path string) (*DB, error) {
	db, err := Open(path)
	if err != nil {
		return nil, err
	}
	if err := db.InitSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
