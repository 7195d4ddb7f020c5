// Package persist stores the durable tier. Every backend loads the whole
// map at startup and replaces it wholesale on save.
package persist

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/agency1/hippocampus/internal/model"
)

// State describes where a loaded snapshot came from.
type State int

const (
	// StateLoaded means durable data was read successfully.
	StateLoaded State = iota
	// StateMissing means there was nothing persisted yet.
	StateMissing
	// StateCorrupt means persisted data could not be decoded and the store
	// starts cold.
	StateCorrupt
)

func (s State) String() string {
	switch s {
	case StateLoaded:
		return "loaded"
	case StateMissing:
		return "missing"
	case StateCorrupt:
		return "corrupt"
	default:
		return "unknown"
	}
}

// Snapshot is the result of Load. Entries is never nil.
type Snapshot struct {
	Entries map[string]*model.Entry
	State   State
}

func emptySnapshot(state State) *Snapshot {
	return &Snapshot{Entries: make(map[string]*model.Entry), State: state}
}

// Persister is the durable-tier storage contract.
type Persister interface {
	// Load reads the durable map. Absent or undecodable data yields an empty
	// snapshot with StateMissing or StateCorrupt; only unexpected I/O
	// failures return an error.
	Load(ctx context.Context) (*Snapshot, error)

	// Save replaces the persisted map with entries. A failed save leaves the
	// previously committed state intact.
	Save(ctx context.Context, entries map[string]*model.Entry) error

	// Close releases resources.
	Close() error
}

// Backends lists the accepted Config.Backend values.
var Backends = map[string]bool{
	"json":     true,
	"sqlite":   true,
	"postgres": true,
}

// Config selects a backend.
type Config struct {
	Backend string // json (default), sqlite, postgres
	Path    string // file path for json and sqlite
	DSN     string // connection string for postgres
	Logger  *slog.Logger
}

// Open creates the configured backend.
func Open(cfg Config) (Persister, error) {
	switch cfg.Backend {
	case "", "json":
		return NewFileStore(cfg.Path, cfg.Logger)
	case "sqlite":
		return NewSQLiteStore(cfg.Path, cfg.Logger)
	case "postgres":
		return NewPostgresStore(cfg.DSN, cfg.Logger)
	default:
		return nil, fmt.Errorf("unknown durable backend %q", cfg.Backend)
	}
}

// idSource hands out ULIDs for temp and quarantine file names.
type idSource struct {
	mu      sync.Mutex
	entropy *rand.Rand
}

func newIDSource() *idSource {
	return &idSource{entropy: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

func (s *idSource) next() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), s.entropy).String()
}

func encodePayload(p any) (string, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("encode payload: %w", err)
	}
	return string(b), nil
}

func decodePayload(s string) (any, error) {
	var p any
	if err := decodeJSON([]byte(s), &p); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	return p, nil
}

// decodeJSON unmarshals b into v keeping numbers as json.Number, so integers
// beyond float64 precision survive a round trip.
func decodeJSON(b []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return errors.New("trailing data after JSON value")
	}
	return nil
}

func loggerOr(l *slog.Logger) *slog.Logger {
	if l == nil {
		l = slog.Default()
	}
	return l.With("component", "persist")
}
