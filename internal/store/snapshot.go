package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"tradeflow/internal/logger"
	"tradeflow/internal/types"

	_ "modernc.org/sqlite"
)

// SnapshotStore persists JSON snapshots of ideas and orders keyed by entity
// id, so a restarted process can pick up where the previous one stopped.
// Trades and wallets are not snapshotted: trades are replayable from the
// event log and wallet balances belong to the settlement backend.
type SnapshotStore struct {
	mu   sync.Mutex
	db   *sql.DB
	path string
}

// OpenSnapshotStore opens (and migrates) the snapshot database at path.
func OpenSnapshotStore(path string) (*SnapshotStore, error) {
	if path == "" {
		return nil, fmt.Errorf("snapshot store: path cannot be empty")
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, err
	}
	s := &SnapshotStore{db: db, path: path}
	if err := s.migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SnapshotStore) migrate(ctx context.Context) error {
	const schema = `
CREATE TABLE IF NOT EXISTS entity_snapshots (
    entity_id TEXT NOT NULL,
    kind      TEXT NOT NULL,
    payload   TEXT NOT NULL,
    saved_at  INTEGER NOT NULL,
    PRIMARY KEY (entity_id, kind)
);`
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Save writes a full snapshot of the store's ideas and orders, replacing any
// previous snapshot rows for the same ids.
func (s *SnapshotStore) Save(ctx context.Context, es *EntityStore) error {
	if s == nil || s.db == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := time.Now().UTC().UnixMilli()
	upsert := `INSERT INTO entity_snapshots (entity_id, kind, payload, saved_at)
VALUES (?, ?, ?, ?)
ON CONFLICT(entity_id, kind) DO UPDATE SET payload=excluded.payload, saved_at=excluded.saved_at`

	for _, idea := range es.ListIdeas(nil, 0) {
		payload, err := json.Marshal(idea)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, upsert, idea.ID, "idea", string(payload), now); err != nil {
			return err
		}
	}
	for _, order := range es.ListOrders(nil, 0) {
		payload, err := json.Marshal(order)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, upsert, order.ID, "order", string(payload), now); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Load restores snapshotted ideas and orders into the store. Rows that fail
// to decode are skipped with a warning rather than aborting the restore.
func (s *SnapshotStore) Load(ctx context.Context, es *EntityStore) error {
	if s == nil || s.db == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, `SELECT entity_id, kind, payload FROM entity_snapshots`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var id, kind, payload string
		if err := rows.Scan(&id, &kind, &payload); err != nil {
			return err
		}
		switch kind {
		case "idea":
			var idea types.Idea
			if err := json.Unmarshal([]byte(payload), &idea); err != nil {
				logger.Warnf("snapshot: skipping idea %s: %v", id, err)
				continue
			}
			es.AddIdea(idea)
		case "order":
			var order types.Order
			if err := json.Unmarshal([]byte(payload), &order); err != nil {
				logger.Warnf("snapshot: skipping order %s: %v", id, err)
				continue
			}
			es.AddOrder(order)
		}
	}
	return rows.Err()
}

// Close closes the underlying database.
func (s *SnapshotStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
