package annotations

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MrWong99/casescript/internal/script"
)

// Schema is the SQL DDL for the conversation_annotations table. Execute it
// via [PostgresStore.Migrate] or apply it manually during deployment.
const Schema = `
CREATE TABLE IF NOT EXISTS conversation_annotations (
    slot            TEXT NOT NULL,
    conversation_id TEXT NOT NULL,
    position        INTEGER NOT NULL,
    enabled         BOOLEAN NOT NULL DEFAULT true,
    completed       BOOLEAN NOT NULL DEFAULT false,
    seen            JSONB NOT NULL DEFAULT '[]',
    locks           JSONB NOT NULL DEFAULT '[]',
    updated_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
    PRIMARY KEY (slot, conversation_id)
);
CREATE INDEX IF NOT EXISTS idx_conversation_annotations_slot ON conversation_annotations(slot, position);
`

// DB is the database interface used by [PostgresStore]. *pgxpool.Pool,
// *pgx.Conn and pgx.Tx all satisfy it.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// txBeginner is implemented by databases that can open transactions. Save
// runs inside one when the DB supports it.
type txBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// PostgresStore is a [Store] backed by a PostgreSQL database. Seen content
// ids and unlock conditions are stored as JSONB arrays.
type PostgresStore struct {
	db    DB
	close func()
}

// Compile-time interface check.
var _ Store = (*PostgresStore)(nil)

// NewPostgresStore creates a [PostgresStore] that uses the given connection
// or pool. The caller is responsible for calling [PostgresStore.Migrate].
func NewPostgresStore(db DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Open connects a pool to the database at dsn, pings it and migrates the
// schema. Call [PostgresStore.Close] when done.
func Open(ctx context.Context, dsn string) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("annotations: parse dsn: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("annotations: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("annotations: ping: %w", err)
	}
	s := &PostgresStore{db: pool, close: pool.Close}
	if err := s.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the pool opened by [Open]. It is a no-op for stores built
// with [NewPostgresStore].
func (s *PostgresStore) Close() {
	if s.close != nil {
		s.close()
	}
}

// Migrate executes the [Schema] DDL against the database.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("annotations: migrate: %w", err)
	}
	return nil
}

// Save replaces every row of slot with anns.
func (s *PostgresStore) Save(ctx context.Context, slot string, anns []script.Annotations) error {
	if err := ValidateSlot(slot); err != nil {
		return err
	}
	b, ok := s.db.(txBeginner)
	if !ok {
		return save(ctx, s.db, slot, anns)
	}

	tx, err := b.Begin(ctx)
	if err != nil {
		return fmt.Errorf("annotations: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()
	if err := save(ctx, tx, slot, anns); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("annotations: commit: %w", err)
	}
	return nil
}

func save(ctx context.Context, db DB, slot string, anns []script.Annotations) error {
	if _, err := db.Exec(ctx, `DELETE FROM conversation_annotations WHERE slot = $1`, slot); err != nil {
		return fmt.Errorf("annotations: save %q: %w", slot, err)
	}

	const query = `
		INSERT INTO conversation_annotations (
			slot, conversation_id, position, enabled, completed, seen, locks
		) VALUES ($1,$2,$3,$4,$5,$6,$7)`

	for i, a := range anns {
		seenJSON, err := json.Marshal(emptySlice(a.Seen))
		if err != nil {
			return fmt.Errorf("annotations: marshal seen: %w", err)
		}
		locksJSON, err := json.Marshal(emptySlice(a.Locks))
		if err != nil {
			return fmt.Errorf("annotations: marshal locks: %w", err)
		}
		_, err = db.Exec(ctx, query, slot, a.ConversationID, i, a.Enabled, a.Completed, seenJSON, locksJSON)
		if err != nil {
			return fmt.Errorf("annotations: save %q/%q: %w", slot, a.ConversationID, err)
		}
	}
	return nil
}

// Load returns the annotations of slot ordered as saved.
func (s *PostgresStore) Load(ctx context.Context, slot string) ([]script.Annotations, error) {
	const query = `
		SELECT conversation_id, enabled, completed, seen, locks
		FROM conversation_annotations
		WHERE slot = $1
		ORDER BY position`

	rows, err := s.db.Query(ctx, query, slot)
	if err != nil {
		return nil, fmt.Errorf("annotations: load %q: %w", slot, err)
	}
	defer rows.Close()

	var out []script.Annotations
	for rows.Next() {
		var (
			a                   script.Annotations
			seenJSON, locksJSON []byte
		)
		if err := rows.Scan(&a.ConversationID, &a.Enabled, &a.Completed, &seenJSON, &locksJSON); err != nil {
			return nil, fmt.Errorf("annotations: scan: %w", err)
		}
		if err := json.Unmarshal(seenJSON, &a.Seen); err != nil {
			return nil, fmt.Errorf("annotations: unmarshal seen of %q: %w", a.ConversationID, err)
		}
		if err := json.Unmarshal(locksJSON, &a.Locks); err != nil {
			return nil, fmt.Errorf("annotations: unmarshal locks of %q: %w", a.ConversationID, err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("annotations: load %q: %w", slot, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, slot)
	}
	return out, nil
}

// Slots returns every slot with at least one row.
func (s *PostgresStore) Slots(ctx context.Context) ([]string, error) {
	rows, err := s.db.Query(ctx, `SELECT DISTINCT slot FROM conversation_annotations ORDER BY slot`)
	if err != nil {
		return nil, fmt.Errorf("annotations: slots: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var slot string
		if err := rows.Scan(&slot); err != nil {
			return nil, fmt.Errorf("annotations: scan: %w", err)
		}
		out = append(out, slot)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("annotations: slots: %w", err)
	}
	return out, nil
}

// Delete removes every row of slot.
func (s *PostgresStore) Delete(ctx context.Context, slot string) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM conversation_annotations WHERE slot = $1`, slot); err != nil {
		return fmt.Errorf("annotations: delete %q: %w", slot, err)
	}
	return nil
}

// emptySlice returns s unchanged if non-nil, or an empty slice so it
// marshals as [] rather than null.
func emptySlice(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
