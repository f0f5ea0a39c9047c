// Package postgres persists ledger snapshots to Postgres through the pgx
// database/sql driver.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
	"github.com/ruteri/canary-registry/ledger"
)

const (
	defaultDriver = "pgx"
	defaultDSN    = "postgres://localhost/canary?sslmode=disable"
)

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

// Store keeps the latest ledger snapshot in a JSONB bucket table.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

var _ ledger.Store = (*Store)(nil)

// NewStore connects to dsn (defaultDSN when empty) and ensures the state table exists.
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		dsn = defaultDSN
	}
	openMu.Lock()
	db, err := sqlOpen(defaultDriver, dsn)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if err := ensureStateTable(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func ensureStateTable(ctx context.Context, db *sql.DB) error {
	ddl := `CREATE TABLE IF NOT EXISTS ledger_state (
		bucket TEXT PRIMARY KEY,
		payload JSONB NOT NULL
	)`
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("ensure state table: %w", err)
	}
	return nil
}

type meta struct {
	Checkpoint    uint64 `json:"checkpoint"`
	LastTimestamp uint64 `json:"last_timestamp"`
}

// Load reads the last saved snapshot, or nil when none exists.
func (s *Store) Load(ctx context.Context) (*ledger.Snapshot, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT bucket, payload FROM ledger_state`)
	if err != nil {
		return nil, fmt.Errorf("select state: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var snapshot ledger.Snapshot
	var m meta
	targets := map[string]any{
		"objects":   &snapshot.Objects,
		"sequences": &snapshot.Sequences,
		"meta":      &m,
	}

	found := false
	for rows.Next() {
		var bucket string
		var payload []byte
		if err := rows.Scan(&bucket, &payload); err != nil {
			return nil, fmt.Errorf("scan state: %w", err)
		}
		if len(payload) == 0 {
			continue
		}
		if target, ok := targets[bucket]; ok {
			if err := json.Unmarshal(payload, target); err != nil {
				return nil, fmt.Errorf("decode %s: %w", bucket, err)
			}
			found = true
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate state: %w", err)
	}
	if !found {
		return nil, nil
	}

	snapshot.Checkpoint = m.Checkpoint
	snapshot.LastTimestamp = m.LastTimestamp
	return &snapshot, nil
}

// Save upserts every bucket of the snapshot in one SQL transaction.
func (s *Store) Save(ctx context.Context, snapshot *ledger.Snapshot) (retErr error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	payloads := map[string]any{
		"objects":   snapshot.Objects,
		"sequences": snapshot.Sequences,
		"meta":      meta{Checkpoint: snapshot.Checkpoint, LastTimestamp: snapshot.LastTimestamp},
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()

	for _, bucket := range []string{"objects", "sequences", "meta"} {
		data, err := json.Marshal(payloads[bucket])
		if err != nil {
			return fmt.Errorf("encode %s: %w", bucket, err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO ledger_state(bucket,payload) VALUES($1,$2) ON CONFLICT(bucket) DO UPDATE SET payload=excluded.payload`, bucket, data); err != nil {
			return fmt.Errorf("upsert %s: %w", bucket, err)
		}
	}
	return tx.Commit()
}

// Close closes the connection pool.
func (s *Store) Close() error { return s.db.Close() }

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }
