// Package storage provides the durable backing store for the registrar ledger.
// It speaks plain database/sql so that a local SQLite file and a remote rqlite
// cluster are interchangeable backends.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"          // sqlite3 driver
	_ "github.com/rqlite/gorqlite/stdlib"    // rqlite database/sql driver
	"go.uber.org/zap"

	"github.com/ProvenanceLabs/registrar/pkg/config"
	"github.com/ProvenanceLabs/registrar/pkg/logging"
)

// Store wraps a sql.DB with driver-aware setup and the migration ledger.
type Store struct {
	db     *sql.DB
	driver string
	logger *logging.ColoredLogger
}

// Open opens the configured backend and verifies connectivity.
func Open(cfg config.DatabaseConfig, logger *logging.ColoredLogger) (*Store, error) {
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	var (
		db  *sql.DB
		err error
	)

	switch cfg.Driver {
	case "sqlite3":
		db, err = openSQLite(cfg)
	case "rqlite":
		db, err = sql.Open("rqlite", cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Driver, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", cfg.Driver, err)
	}

	logger.ComponentInfo(logging.ComponentDatabase, "store opened",
		zap.String("driver", cfg.Driver),
		zap.String("dsn", cfg.DSN),
	)

	return &Store{db: db, driver: cfg.Driver, logger: logger}, nil
}

func openSQLite(cfg config.DatabaseConfig) (*sql.DB, error) {
	if dir := filepath.Dir(cfg.DSN); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}

	busy := cfg.BusyTimeout
	if busy <= 0 {
		busy = 5 * time.Second
	}

	params := url.Values{}
	params.Set("_busy_timeout", fmt.Sprintf("%d", busy.Milliseconds()))
	params.Set("_journal_mode", "WAL")
	params.Set("_foreign_keys", "on")

	dsn := fmt.Sprintf("file:%s?%s", cfg.DSN, params.Encode())
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}

	// A single writer keeps the ledger's one-op-at-a-time semantics; SQLite
	// serializes writers anyway, this just avoids SQLITE_BUSY churn.
	db.SetMaxOpenConns(1)
	return db, nil
}

// DB exposes the underlying sql.DB.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Driver returns the configured driver name.
func (s *Store) Driver() string {
	return s.driver
}

// Ping verifies the backend is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
