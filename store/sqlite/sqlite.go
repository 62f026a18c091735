/*
Package sqlite provides a SQLite-backed implementation of reporting.TxStore.

PURPOSE:
  Persists vessels, voyages, reports, bunker records, vessel heads and the
  audit log. Every report-engine operation runs inside WithTx, which maps to
  one sql.Tx, so a failed submission or review leaves nothing behind.

KEY TABLES:
  vessels:         Fleet master data (created out of band)
  voyages:         Voyage legs, at most one active per vessel
  reports:         Submitted reports, payload stored as JSON
  bunker_tracking: One ROB snapshot per report
  vessel_heads:    Baseline/latest report pointers per vessel
  audit_log:       Append-only review and voyage history

INDEXES:
  - idx_reports_vessel_voyage: Report lookup by (vessel, voyage)
  - idx_bunker_tracking_vessel_report: Baseline snapshot lookup (hot path)
  - idx_voyages_vessel_active: Active voyage lookup

NUMBERS:
  Decimals are stored as TEXT (decimal.String()) so no precision is lost to
  REAL. Timestamps are RFC3339 with nanoseconds, in UTC.

IDENTIFIERS:
  INTEGER PRIMARY KEY columns are inserted as NULL, which SQLite resolves to
  max(rowid)+1.

WAL MODE:
  File databases are opened with WAL, a busy timeout and IMMEDIATE
  transactions, so concurrent writers queue instead of failing with
  SQLITE_BUSY. ":memory:" is pinned to one connection because each
  connection would otherwise get its own empty database.

MIGRATION:
  Schema lives in migrations/*.sql, embedded and applied with goose on New().

USAGE:
  store, err := sqlite.New(ctx, "./data/voyage.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - reporting/store.go: Interface definitions
  - reporting/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"sync"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"
	"github.com/warp/voyage-ledger/reporting"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Store implements reporting.TxStore using SQLite.
type Store struct {
	queries
	db *sql.DB
	mu sync.Mutex
}

var _ reporting.TxStore = (*Store)(nil)

// New opens (or creates) the database at dbPath and applies migrations.
// Use ":memory:" for an in-memory database.
func New(ctx context.Context, dbPath string) (*Store, error) {
	dsn := dbPath + "?_foreign_keys=on&_busy_timeout=5000&_txlock=immediate"
	if dbPath != ":memory:" {
		dsn += "&_journal_mode=WAL"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if err := migrate(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Store{queries: queries{db: db}, db: db}, nil
}

func migrate(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}
	return goose.UpContext(ctx, db, "migrations")
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// WithTx executes fn within a database transaction. fn must only use the
// passed Store; on a single-connection database, touching s directly
// would wait forever for the connection the transaction holds.
func (s *Store) WithTx(ctx context.Context, fn func(reporting.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&queries{db: sqlTx}); err != nil {
		return err
	}

	return sqlTx.Commit()
}

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{"audit_log", "vessel_heads", "bunker_tracking", "reports", "voyages", "vessels"}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}
	return nil
}
