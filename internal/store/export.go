package store

import (
	"context"
	"fmt"

	"github.com/agency1/hippocampus/internal/embedding"
	"github.com/agency1/hippocampus/internal/keygen"
	"github.com/agency1/hippocampus/internal/model"
)

// Export returns copies of all durable entries ordered by creation time.
func (s *MemoryStore) Export() []*model.Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*model.Entry, 0, len(s.durable))
	for _, e := range s.durable {
		out = append(out, e.Clone())
	}
	sortEntries(out)
	return out
}

// Import adds entries to the durable tier with one durable write. Entries
// whose key is already durable are skipped; a missing key is derived from
// the payload. It returns the number of entries added.
func (s *MemoryStore) Import(ctx context.Context, entries []*model.Entry) (int, error) {
	prepared := make([]*model.Entry, 0, len(entries))
	for i, e := range entries {
		if e == nil || e.Payload == nil {
			return 0, fmt.Errorf("%w: entry %d has no payload", ErrInvalidPayload, i)
		}
		c := e.Clone()
		c.Payload = normalizePayload(c.Payload)
		if !embedding.Finite(c.Embedding) {
			c.Embedding = nil
		}
		if c.Key == "" {
			key, err := keygen.Generate(c.Payload)
			if err != nil {
				return 0, fmt.Errorf("%w: entry %d: %v", ErrInvalidPayload, i, err)
			}
			c.Key = key
		}
		if c.AccessWeight < 0 {
			c.AccessWeight = 0
		}
		if c.CreatedAt.IsZero() {
			c.CreatedAt = s.now()
		}
		prepared = append(prepared, c)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrClosed
	}

	imported := 0
	for _, e := range prepared {
		if _, ok := s.durable[e.Key]; ok {
			continue
		}
		s.durable[e.Key] = e
		imported++
	}
	if imported == 0 {
		return 0, nil
	}
	return imported, s.saveLocked(ctx, "import")
}
