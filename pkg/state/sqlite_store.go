package state

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver (pure Go)
)

const sqliteSchema = `CREATE TABLE IF NOT EXISTS snapshots (
	key         TEXT PRIMARY KEY,
	snapshot_id TEXT NOT NULL,
	etag        TEXT NOT NULL,
	updated_at  TEXT NOT NULL,
	extra       TEXT NOT NULL,
	snapshot    TEXT NOT NULL
)`

// SQLiteStore keeps snapshots as JSON in a SQLite table.
type SQLiteStore[T any] struct {
	db *sql.DB
}

// OpenSQLiteStore opens (and creates) the database at path. Use ":memory:"
// for a throwaway database.
func OpenSQLiteStore[T any](ctx context.Context, path string) (*SQLiteStore[T], error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("state: open sqlite database: %w", err)
	}
	// A single connection keeps ":memory:" databases alive and serializes
	// writers.
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("state: ping sqlite database: %w", err)
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("state: initialize schema: %w", err)
	}
	return &SQLiteStore[T]{db: db}, nil
}

// Close closes the database.
func (s *SQLiteStore[T]) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *SQLiteStore[T]) Load(ctx context.Context, ref Ref) (T, Meta, bool, error) {
	var zero T
	key, err := ref.Identifier()
	if err != nil {
		return zero, Meta{}, false, err
	}

	var (
		meta                     Meta
		updated, extra, snapshot string
	)
	err = s.db.QueryRowContext(ctx,
		`SELECT snapshot_id, etag, updated_at, extra, snapshot FROM snapshots WHERE key = ?`, key,
	).Scan(&meta.SnapshotID, &meta.ETag, &updated, &extra, &snapshot)
	if errors.Is(err, sql.ErrNoRows) {
		return zero, Meta{}, false, nil
	}
	if err != nil {
		return zero, Meta{}, false, fmt.Errorf("state: load %s: %w", key, err)
	}

	if meta.UpdatedAt, err = time.Parse(time.RFC3339Nano, updated); err != nil {
		return zero, Meta{}, false, fmt.Errorf("state: decode meta of %s: %w", key, err)
	}
	if err := json.Unmarshal([]byte(extra), &meta.Extra); err != nil {
		return zero, Meta{}, false, fmt.Errorf("state: decode meta of %s: %w", key, err)
	}
	var out T
	if err := json.Unmarshal([]byte(snapshot), &out); err != nil {
		return zero, Meta{}, false, fmt.Errorf("state: decode %s: %w", key, err)
	}
	return out, meta, true, nil
}

func (s *SQLiteStore[T]) Save(ctx context.Context, ref Ref, snapshot T, meta Meta) (Meta, error) {
	key, err := ref.Identifier()
	if err != nil {
		return Meta{}, err
	}
	data, err := json.Marshal(snapshot)
	if err != nil {
		return Meta{}, fmt.Errorf("state: encode %s: %w", key, err)
	}
	extra, err := json.Marshal(meta.Extra)
	if err != nil {
		return Meta{}, fmt.Errorf("state: encode meta of %s: %w", key, err)
	}
	updated := meta.UpdatedAt
	if updated.IsZero() {
		updated = time.Now().UTC()
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO snapshots (key, snapshot_id, etag, updated_at, extra, snapshot)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET
		   snapshot_id = excluded.snapshot_id,
		   etag = excluded.etag,
		   updated_at = excluded.updated_at,
		   extra = excluded.extra,
		   snapshot = excluded.snapshot`,
		key, meta.SnapshotID, meta.ETag, updated.Format(time.RFC3339Nano), string(extra), string(data),
	)
	if err != nil {
		return Meta{}, fmt.Errorf("state: save %s: %w", key, err)
	}
	out := cloneMeta(meta)
	out.UpdatedAt = updated
	return out, nil
}
