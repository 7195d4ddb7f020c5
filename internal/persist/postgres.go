package persist

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/lib/pq"
	"github.com/pgvector/pgvector-go"

	"github.com/agency1/hippocampus/internal/model"
)

// PostgresStore keeps the durable map in PostgreSQL. Payloads are JSONB and
// embeddings use the pgvector column type.
type PostgresStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresStore connects to dsn and ensures the schema exists.
func NewPostgresStore(dsn string, logger *slog.Logger) (*PostgresStore, error) {
	if dsn == "" {
		return nil, fmt.Errorf("persist: postgres dsn is required")
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	s := &PostgresStore{db: db, logger: loggerOr(logger)}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		`CREATE TABLE IF NOT EXISTS durable_entries (
			key           TEXT PRIMARY KEY,
			payload       JSONB NOT NULL,
			created_at    DOUBLE PRECISION NOT NULL,
			access_weight INTEGER NOT NULL DEFAULT 0,
			embedding     vector
		)`,
	}
	for _, q := range stmts {
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			return err
		}
	}
	return nil
}

func (s *PostgresStore) Load(ctx context.Context) (*Snapshot, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key, payload::text, created_at, access_weight, embedding::text FROM durable_entries`)
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
		p, err := decodePayload(payload)
		if err != nil {
			s.logger.Warn("skipping undecodable durable row", "key", key, "err", err)
			skipped++
			continue
		}
		r := model.Record{Payload: p, CreatedAt: created, AccessWeight: weight}
		if emb.Valid {
			var v pgvector.Vector
			if err := v.Scan([]byte(emb.String)); err != nil {
				s.logger.Warn("skipping durable row with bad embedding", "key", key, "err", err)
				skipped++
				continue
			}
			r.Embedding = v.Slice()
		}
		snap.Entries[key] = model.FromRecord(key, r)
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

func (s *PostgresStore) Save(ctx context.Context, entries map[string]*model.Entry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM durable_entries`); err != nil {
		return fmt.Errorf("clear durable entries: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO durable_entries (key, payload, created_at, access_weight, embedding) VALUES ($1, $2::jsonb, $3, $4, $5)`)
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
			emb = pgvector.NewVector(e.Embedding)
		}
		if _, err := stmt.ExecContext(ctx, key, payload, model.EpochSeconds(e.CreatedAt), e.AccessWeight, emb); err != nil {
			return fmt.Errorf("insert %s: %w", key, err)
		}
	}
	return tx.Commit()
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}
