package store

import (
	"context"
	"sort"

	"github.com/agency1/hippocampus/internal/embedding"
	"github.com/agency1/hippocampus/internal/model"
)

// Search ranks every embedded entry in both tiers by cosine similarity to
// query and returns at most topK matches with similarity >= threshold.
//
// Ordering is deterministic: similarity descending, then access weight
// descending, then scan order (recent tier oldest first, then the durable
// tier by creation time and key).
//
// A failed query embedding yields no matches and a soft *ProviderError.
// Without an embedder there is nothing to rank and the result is empty.
func (s *MemoryStore) Search(ctx context.Context, query string, topK int, threshold float64) ([]model.Match, error) {
	matches := []model.Match{}
	if topK <= 0 || s.embedder == nil {
		return matches, nil
	}

	qv, err := s.embed(ctx, query)
	if err != nil {
		s.logger.Warn("query embedding failed; returning no context", "err", err)
		return matches, &ProviderError{Err: err}
	}

	s.mu.RLock()
	consider := func(tier model.Tier, e *model.Entry) {
		if !e.Searchable() {
			return
		}
		sim := embedding.CosineSimilarity(qv, e.Embedding)
		if sim < threshold {
			return
		}
		matches = append(matches, model.Match{
			Key:          e.Key,
			Tier:         tier,
			Similarity:   sim,
			AccessWeight: e.AccessWeight,
			Payload:      e.Payload,
		})
	}
	s.recent.each(func(e *model.Entry) bool {
		consider(model.TierRecent, e)
		return true
	})
	for _, e := range s.durableInOrder() {
		consider(model.TierDurable, e)
	}
	s.mu.RUnlock()

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Similarity != matches[j].Similarity {
			return matches[i].Similarity > matches[j].Similarity
		}
		return matches[i].AccessWeight > matches[j].AccessWeight
	})
	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

// GetContext returns the payloads of Search, best match first.
func (s *MemoryStore) GetContext(ctx context.Context, query string, topK int, threshold float64) ([]any, error) {
	matches, err := s.Search(ctx, query, topK, threshold)
	payloads := make([]any, len(matches))
	for i, m := range matches {
		payloads[i] = m.Payload
	}
	return payloads, err
}

// durableInOrder returns durable entries by creation time, then key.
// The caller holds mu.
func (s *MemoryStore) durableInOrder() []*model.Entry {
	out := make([]*model.Entry, 0, len(s.durable))
	for _, e := range s.durable {
		out = append(out, e)
	}
	sortEntries(out)
	return out
}
