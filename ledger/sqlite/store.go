// Package sqlite persists ledger snapshots to a single SQLite table.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/ruteri/canary-registry/ledger"
	_ "modernc.org/sqlite" // pure go sqlite driver
)

const defaultPath = "canary-ledger.db"

// Store snapshots the full ledger state as JSON buckets after every
// transaction.
type Store struct {
	db   *sql.DB
	mu   sync.Mutex
	path string
}

var _ ledger.Store = (*Store)(nil)

// NewStore opens (or creates) the database at path.
func NewStore(path string) (*Store, error) {
	if path == "" {
		path = defaultPath
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS state (
		bucket TEXT PRIMARY KEY,
		payload BLOB NOT NULL
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create state table: %w", err)
	}
	return &Store{db: db, path: path}, nil
}

type meta struct {
	Checkpoint    uint64 `json:"checkpoint"`
	LastTimestamp uint64 `json:"last_timestamp"`
}

// Load reads the last saved snapshot. It returns nil when the database is empty.
func (s *Store) Load(ctx context.Context) (*ledger.Snapshot, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT bucket, payload FROM state`)
	if err != nil {
		return nil, fmt.Errorf("select state: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var (
		snapshot ledger.Snapshot
		m        meta
		found    bool
	)
	for rows.Next() {
		var bucket string
		var payload []byte
		if err := rows.Scan(&bucket, &payload); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		found = true
		switch bucket {
		case "objects":
			err = json.Unmarshal(payload, &snapshot.Objects)
		case "sequences":
			err = json.Unmarshal(payload, &snapshot.Sequences)
		case "meta":
			err = json.Unmarshal(payload, &m)
		}
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", bucket, err)
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

// Save replaces the stored snapshot in one SQL transaction.
func (s *Store) Save(ctx context.Context, snapshot *ledger.Snapshot) (retErr error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	buckets, err := encodeBuckets(snapshot)
	if err != nil {
		return err
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

	for _, b := range buckets {
		if _, err := tx.ExecContext(ctx, `INSERT INTO state(bucket,payload) VALUES(?,?) ON CONFLICT(bucket) DO UPDATE SET payload=excluded.payload`, b.name, b.payload); err != nil {
			return fmt.Errorf("upsert %s: %w", b.name, err)
		}
	}
	return tx.Commit()
}

type bucket struct {
	name    string
	payload []byte
}

func encodeBuckets(snapshot *ledger.Snapshot) ([]bucket, error) {
	objects, err := json.Marshal(snapshot.Objects)
	if err != nil {
		return nil, fmt.Errorf("encode objects: %w", err)
	}
	sequences, err := json.Marshal(snapshot.Sequences)
	if err != nil {
		return nil, fmt.Errorf("encode sequences: %w", err)
	}
	m, err := json.Marshal(meta{Checkpoint: snapshot.Checkpoint, LastTimestamp: snapshot.LastTimestamp})
	if err != nil {
		return nil, fmt.Errorf("encode meta: %w", err)
	}
	return []bucket{{"objects", objects}, {"sequences", sequences}, {"meta", m}}, nil
}

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// Path returns the configured database path.
func (s *Store) Path() string { return s.path }
