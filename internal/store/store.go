// Package store provides the two-tier memory store: a bounded recent buffer
// and a persisted durable map, with similarity search over both.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/agency1/hippocampus/internal/embedding"
	"github.com/agency1/hippocampus/internal/keygen"
	"github.com/agency1/hippocampus/internal/model"
	"github.com/agency1/hippocampus/internal/persist"
)

// Defaults applied by New for zero option values.
const (
	DefaultCapacity     = 100
	DefaultEmbedTimeout = 10 * time.Second
)

// Options configures a MemoryStore.
type Options struct {
	// Persister holds the durable tier. Required.
	Persister persist.Persister

	// Embedder produces entry and query vectors. Nil disables similarity
	// search; entries are still stored and recalled.
	Embedder embedding.Embedder

	// Capacity bounds the recent tier.
	Capacity int

	// EmbedTimeout bounds each embedding request. Negative means no bound.
	EmbedTimeout time.Duration

	Logger *slog.Logger

	// Now is the clock. Defaults to time.Now.
	Now func() time.Time
}

// MemoryStore owns both tiers. One RWMutex guards them: mutations, including
// their durable write, hold it exclusively, so readers see either the state
// before or after a mutation.
type MemoryStore struct {
	mu      sync.RWMutex
	recent  *recentBuffer
	durable map[string]*model.Entry
	dirty   bool
	closed  bool

	loadState    persist.State
	persister    persist.Persister
	embedder     embedding.Embedder
	embedTimeout time.Duration
	logger       *slog.Logger
	now          func() time.Time
}

// New creates a store and loads the durable tier.
func New(ctx context.Context, opts Options) (*MemoryStore, error) {
	if opts.Persister == nil {
		return nil, errors.New("store: persister is required")
	}
	if opts.Capacity < 0 {
		return nil, fmt.Errorf("store: capacity must be positive, got %d", opts.Capacity)
	}
	if opts.Capacity == 0 {
		opts.Capacity = DefaultCapacity
	}
	if opts.EmbedTimeout == 0 {
		opts.EmbedTimeout = DefaultEmbedTimeout
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	snap, err := opts.Persister.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("store: load durable tier: %w", err)
	}

	s := &MemoryStore{
		recent:       newRecentBuffer(opts.Capacity),
		durable:      snap.Entries,
		loadState:    snap.State,
		persister:    opts.Persister,
		embedder:     opts.Embedder,
		embedTimeout: opts.EmbedTimeout,
		logger:       opts.Logger.With("component", "store"),
		now:          opts.Now,
	}
	s.logger.Info("memory store ready",
		"durable_state", snap.State.String(),
		"durable_entries", len(snap.Entries),
		"capacity", opts.Capacity,
		"embeddings", opts.Embedder != nil)
	return s, nil
}

// Store keys payload and inserts it into the durable tier when longTerm is
// set, else into the recent tier. Storing a payload whose key the target tier
// already holds leaves that entry untouched.
//
// The returned key is valid whenever it is non-empty. The error may then
// still carry a *ProviderError (entry kept without an embedding) or a
// *DurabilityError (entry held in memory but not yet persisted).
func (s *MemoryStore) Store(ctx context.Context, payload any, longTerm bool) (string, error) {
	payload = normalizePayload(payload)
	key, err := keygen.Generate(payload)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	tier := model.TierRecent
	if longTerm {
		tier = model.TierDurable
	}

	s.mu.RLock()
	closed, exists := s.closed, s.holds(tier, key)
	s.mu.RUnlock()
	if closed {
		return "", ErrClosed
	}
	if exists {
		return key, nil
	}

	entry := &model.Entry{Key: key, Payload: payload, CreatedAt: s.now()}

	// The provider is called outside the lock so slow embeddings do not
	// stall readers.
	var provErr error
	if text, ok := entry.Text(); ok && s.embedder != nil {
		vec, err := s.embed(ctx, text)
		if err != nil {
			s.logger.Warn("storing entry without embedding", "key", key, "err", err)
			provErr = &ProviderError{Key: key, Err: err}
		} else {
			entry.Embedding = vec
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", ErrClosed
	}
	if s.holds(tier, key) {
		return key, nil
	}

	if !longTerm {
		if evicted := s.recent.push(entry); evicted != nil {
			s.logger.Debug("evicted oldest recent entry", "key", evicted.Key)
		}
		return key, provErr
	}

	s.durable[key] = entry
	return key, errors.Join(provErr, s.saveLocked(ctx, "store"))
}

// normalizePayload stores raw bytes as text so the payload survives the
// JSON durable form unchanged.
func normalizePayload(payload any) any {
	if b, ok := payload.([]byte); ok {
		return string(b)
	}
	return payload
}

func (s *MemoryStore) holds(tier model.Tier, key string) bool {
	if tier == model.TierRecent {
		_, ok := s.recent.get(key)
		return ok
	}
	_, ok := s.durable[key]
	return ok
}

// Recall returns the payload stored under key, checking the recent tier
// first.
func (s *MemoryStore) Recall(key string) (any, bool) {
	e, _, ok := s.Get(key)
	if !ok {
		return nil, false
	}
	return e.Payload, true
}

// Get returns a copy of the entry stored under key and the tier holding it.
func (s *MemoryStore) Get(key string) (*model.Entry, model.Tier, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, tier, ok := s.lookup(key)
	if !ok {
		return nil, "", false
	}
	return e.Clone(), tier, true
}

func (s *MemoryStore) lookup(key string) (*model.Entry, model.Tier, bool) {
	if e, ok := s.recent.get(key); ok {
		return e, model.TierRecent, true
	}
	if e, ok := s.durable[key]; ok {
		return e, model.TierDurable, true
	}
	return nil, "", false
}

// Feedback adjusts the access weight of the entry under key: +1 when
// positive, -1 floored at 0 otherwise. Durable entries are persisted after
// the update. An unknown key is a no-op and reports found == false.
func (s *MemoryStore) Feedback(ctx context.Context, key string, positive bool) (found bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false, ErrClosed
	}

	e, tier, ok := s.lookup(key)
	if !ok {
		return false, nil
	}
	switch {
	case positive:
		e.AccessWeight++
	case e.AccessWeight > 0:
		e.AccessWeight--
	default:
		return true, nil // already at the floor
	}

	if tier == model.TierDurable {
		return true, s.saveLocked(ctx, "feedback")
	}
	return true, nil
}

// Consolidate moves every recent entry older than age into the durable tier
// with a single durable write. On a failed write nothing moves. A recent
// entry whose key is already durable is dropped from the recent tier and the
// durable entry, including its access weight, is kept. It returns the number
// of entries that left the recent tier.
func (s *MemoryStore) Consolidate(ctx context.Context, age time.Duration) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrClosed
	}

	now := s.now()
	var moving, known []*model.Entry
	s.recent.each(func(e *model.Entry) bool {
		if now.Sub(e.CreatedAt) <= age {
			return true
		}
		if _, ok := s.durable[e.Key]; ok {
			known = append(known, e)
		} else {
			moving = append(moving, e)
		}
		return true
	})
	if len(moving)+len(known) == 0 {
		return 0, nil
	}

	if len(moving) > 0 {
		next := make(map[string]*model.Entry, len(s.durable)+len(moving))
		for k, e := range s.durable {
			next[k] = e
		}
		for _, e := range moving {
			next[e.Key] = e
		}
		if err := s.persister.Save(ctx, next); err != nil {
			s.logger.Error("consolidation aborted; entries stay in the recent tier",
				"entries", len(moving), "err", err)
			return 0, &DurabilityError{Op: "consolidate", Err: err}
		}
		s.durable = next
		s.dirty = false
	}

	for _, e := range moving {
		s.recent.remove(e.Key)
	}
	for _, e := range known {
		s.recent.remove(e.Key)
	}
	s.logger.Debug("consolidated recent entries",
		"moved", len(moving), "already_durable", len(known), "durable_entries", len(s.durable))
	return len(moving) + len(known), nil
}

// Flush persists the durable tier if an earlier write failed.
func (s *MemoryStore) Flush(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.dirty {
		return nil
	}
	return s.saveLocked(ctx, "flush")
}

// Close flushes pending durable state and releases the persister. The
// recent tier is volatile and is not persisted.
func (s *MemoryStore) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	var flushErr error
	if s.dirty {
		flushErr = s.saveLocked(ctx, "close")
	}
	if n := s.recent.len(); n > 0 {
		s.logger.Info("discarding unconsolidated recent entries", "entries", n)
	}
	return errors.Join(flushErr, s.persister.Close())
}

// saveLocked writes the durable tier. The caller holds mu.
func (s *MemoryStore) saveLocked(ctx context.Context, op string) error {
	if err := s.persister.Save(ctx, s.durable); err != nil {
		s.dirty = true
		s.logger.Error("durable write failed; in-memory state kept", "op", op, "err", err)
		return &DurabilityError{Op: op, Err: err}
	}
	s.dirty = false
	return nil
}

func (s *MemoryStore) embed(ctx context.Context, text string) (embedding.Vector, error) {
	if s.embedTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.embedTimeout)
		defer cancel()
	}
	return embedding.EmbedText(ctx, s.embedder, text)
}
