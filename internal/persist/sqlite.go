package persist

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/agency1/hippocampus/internal/model"
)

// SQLiteStore keeps the durable map in a SQLite table. Each save rewrites
// the table inside one transaction.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore opens or creates a SQLite database at the given path.
func NewSQLiteStore(dbPath string, logger *slog.Logger) (*SQLiteStore, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("persist: sqlite path is required")
	}
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db, logger: loggerOr(logger)}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	_, err := s.db.Exec(`
	CREATE TABLE IF NOT EXISTS durable_entries (
		key           TEXT PRIMARY KEY,
		payload       TEXT NOT NULL,
		created_at    REAL NOT NULL,
		access_weight INTEGER NOT NULL DEFAULT 0,
		embedding     TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_durable_created ON durable_entries(created_at);
	`)
	return err
}

func (s *SQLiteStore) Load(ctx context.Context) (*Snapshot, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key, payload, created_at, access_weight, embedding FROM durable_entries`)
	if err != nil {
		return nil, fmt.Errorf("load durable entries: %w", err)
	}
	defer rows.Close()

	snap := emptySnapshot(StateLoaded)
	var skipped int
	for rows.Next() {
		var (
			key, payload string
			created      float64
			weight       int
			emb          sql.NullString
		)
		if err := rows.Scan(&key, &payload, &created, &weight, &emb); err != nil {
			return nil, fmt.Errorf("scan durable entry: %w", err)
		}
		e, err := decodeRow(key, payload, created, weight, emb)
		if err != nil {
			s.logger.Warn("skipping undecodable durable row", "key", key, "err", err)
			skipped++
			continue
		}
		snap.Entries[key] = e
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(snap.Entries) == 0 {
		snap.State = StateMissing
		if skipped > 0 {
			snap.State = StateCorrupt
		}
	}
	return snap, nil
}

func decodeRow(key, payload string, created float64, weight int, emb sql.NullString) (*model.Entry, error) {
	p, err := decodePayload(payload)
	if err != nil {
		return nil, err
	}
	r := model.Record{Payload: p, CreatedAt: created, AccessWeight: weight}
	if emb.Valid && emb.String != "" {
		if err := json.Unmarshal([]byte(emb.String), &r.Embedding); err != nil {
			return nil, fmt.Errorf("decode embedding: %w", err)
		}
	}
	return model.FromRecord(key, r), nil
}

func (s *SQLiteStore) Save(ctx context.Context, entries map[string]*model.Entry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM durable_entries`); err != nil {
		return fmt.Errorf("clear durable entries: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO durable_entries (key, payload, created_at, access_weight, embedding) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for key, e := range entries {
		payload, err := encodePayload(e.Payload)
		if err != nil {
			return fmt.Errorf("entry %s: %w", key, err)
		}
		var emb any
		if len(e.Embedding) > 0 {
			b, err := json.Marshal(e.Embedding)
			if err != nil {
				return fmt.Errorf("entry %s: encode embedding: %w", key, err)
			}
			emb = string(b)
		}
		if _, err := stmt.ExecContext(ctx, key, payload, model.EpochSeconds(e.CreatedAt), e.AccessWeight, emb); err != nil {
			return fmt.Errorf("insert %s: %w", key, err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
