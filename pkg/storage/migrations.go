package storage

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ProvenanceLabs/registrar/pkg/logging"
)

// migration is a single versioned schema change. Versions are applied in
// order and recorded in schema_migrations; applying twice is a no-op.
type migration struct {
	Version int
	Name    string
	SQL     string
}

var migrations = []migration{
	{
		Version: 1,
		Name:    "users",
		SQL: `CREATE TABLE IF NOT EXISTS users (
			address       TEXT PRIMARY KEY,
			username      TEXT NOT NULL,
			registered_at INTEGER NOT NULL
		)`,
	},
	{
		Version: 2,
		Name:    "entries",
		SQL: `CREATE TABLE IF NOT EXISTS entries (
			id           INTEGER PRIMARY KEY,
			data_hash    TEXT NOT NULL,
			submitter    TEXT NOT NULL,
			ts           INTEGER NOT NULL,
			category     TEXT NOT NULL,
			metadata_uri TEXT NOT NULL DEFAULT ''
		)`,
	},
	{
		Version: 3,
		Name:    "ledger_state",
		SQL: `CREATE TABLE IF NOT EXISTS ledger_state (
			id          INTEGER PRIMARY KEY CHECK (id = 1),
			entry_count INTEGER NOT NULL
		)`,
	},
	{
		Version: 4,
		Name:    "ledger_state_seed",
		SQL:     `INSERT OR IGNORE INTO ledger_state(id, entry_count) VALUES (1, 0)`,
	},
	{
		Version: 5,
		Name:    "events",
		SQL: `CREATE TABLE IF NOT EXISTS events (
			seq        INTEGER PRIMARY KEY AUTOINCREMENT,
			type       TEXT NOT NULL,
			payload    TEXT NOT NULL,
			created_at INTEGER NOT NULL
		)`,
	},
	{
		Version: 6,
		Name:    "auth_nonces",
		SQL: `CREATE TABLE IF NOT EXISTS auth_nonces (
			id         TEXT PRIMARY KEY,
			address    TEXT NOT NULL,
			nonce      TEXT NOT NULL,
			expires_at INTEGER NOT NULL
		)`,
	},
	{
		Version: 7,
		Name:    "auth_nonces_address_idx",
		SQL:     `CREATE INDEX IF NOT EXISTS idx_auth_nonces_address ON auth_nonces(address)`,
	},
}

// Migrate applies any schema migrations not yet recorded in schema_migrations.
func (s *Store) Migrate(ctx context.Context) error {
	if err := s.ensureMigrationsTable(ctx); err != nil {
		return fmt.Errorf("ensure schema_migrations: %w", err)
	}

	applied, err := s.loadAppliedVersions(ctx)
	if err != nil {
		return fmt.Errorf("load applied versions: %w", err)
	}

	for _, m := range migrations {
		if applied[m.Version] {
			continue
		}

		s.logger.ComponentInfo(logging.ComponentDatabase, "applying migration",
			zap.Int("version", m.Version), zap.String("name", m.Name))

		if _, err := s.db.ExecContext(ctx, m.SQL); err != nil {
			return fmt.Errorf("apply migration %d (%s): %w", m.Version, m.Name, err)
		}
		if _, err := s.db.ExecContext(ctx,
			`INSERT OR IGNORE INTO schema_migrations(version) VALUES (?)`, m.Version); err != nil {
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}
	}

	return nil
}

func (s *Store) ensureMigrationsTable(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx,
		`CREATE TABLE IF NOT EXISTS schema_migrations (version INTEGER PRIMARY KEY)`)
	return err
}

func (s *Store) loadAppliedVersions(ctx context.Context) (map[int]bool, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := make(map[int]bool)
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		applied[v] = true
	}
	return applied, rows.Err()
}
