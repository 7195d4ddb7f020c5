package store

import (
	"sort"
	"time"

	"github.com/agency1/hippocampus/internal/model"
)

// Stats holds tier statistics.
type Stats struct {
	RecentEntries  int    `json:"recent_entries"`
	RecentCapacity int    `json:"recent_capacity"`
	DurableEntries int    `json:"durable_entries"`
	Embedded       int    `json:"embedded"`
	TotalWeight    int    `json:"total_weight"`
	Unflushed      bool   `json:"unflushed"`
	LoadState      string `json:"load_state"`
	Embeddings     bool   `json:"embeddings_enabled"`
}

// Stats returns current tier statistics.
func (s *MemoryStore) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Stats{
		RecentEntries:  s.recent.len(),
		RecentCapacity: s.recent.capacity,
		DurableEntries: len(s.durable),
		Unflushed:      s.dirty,
		LoadState:      s.loadState.String(),
		Embeddings:     s.embedder != nil,
	}
	count := func(e *model.Entry) {
		if e.Searchable() {
			st.Embedded++
		}
		st.TotalWeight += e.AccessWeight
	}
	s.recent.each(func(e *model.Entry) bool {
		count(e)
		return true
	})
	for _, e := range s.durable {
		count(e)
	}
	return st
}

// Listing summarizes one entry without its vector.
type Listing struct {
	Key          string     `json:"key"`
	Tier         model.Tier `json:"tier"`
	CreatedAt    time.Time  `json:"created_at"`
	AccessWeight int        `json:"access_weight"`
	Embedded     bool       `json:"embedded"`
	Payload      any        `json:"payload"`
}

// List returns every entry: the recent tier oldest first, then the durable
// tier by creation time.
func (s *MemoryStore) List() []Listing {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Listing, 0, s.recent.len()+len(s.durable))
	add := func(tier model.Tier, e *model.Entry) {
		out = append(out, Listing{
			Key:          e.Key,
			Tier:         tier,
			CreatedAt:    e.CreatedAt,
			AccessWeight: e.AccessWeight,
			Embedded:     e.Searchable(),
			Payload:      e.Payload,
		})
	}
	s.recent.each(func(e *model.Entry) bool {
		add(model.TierRecent, e)
		return true
	})
	for _, e := range s.durableInOrder() {
		add(model.TierDurable, e)
	}
	return out
}

// Oldest returns the creation time of the oldest recent entry.
func (s *MemoryStore) Oldest() (time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var t time.Time
	var ok bool
	s.recent.each(func(e *model.Entry) bool {
		t, ok = e.CreatedAt, true
		return false
	})
	return t, ok
}

func sortEntries(entries []*model.Entry) {
	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].CreatedAt.Equal(entries[j].CreatedAt) {
			return entries[i].CreatedAt.Before(entries[j].CreatedAt)
		}
		return entries[i].Key < entries[j].Key
	})
}
