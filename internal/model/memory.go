// Package model defines the core memory data types.
package model

import (
	"math"
	"time"
)

// Tier names the part of the store that holds an entry.
type Tier string

const (
	TierRecent  Tier = "recent"
	TierDurable Tier = "durable"
)

// Entry is a single stored memory.
type Entry struct {
	Key          string    `json:"key"`
	Payload      any       `json:"payload"`
	CreatedAt    time.Time `json:"created_at"`
	AccessWeight int       `json:"access_weight"`
	Embedding    []float32 `json:"embedding,omitempty"`
}

// Text returns the payload as text and whether the payload is text at all.
// Only text payloads are eligible for embedding.
func (e *Entry) Text() (string, bool) {
	s, ok := e.Payload.(string)
	return s, ok
}

// Searchable reports whether the entry takes part in similarity search.
func (e *Entry) Searchable() bool {
	return len(e.Embedding) > 0
}

// Clone returns a copy that shares no slice memory with e.
// The payload itself is shared; callers treat payloads as immutable.
func (e *Entry) Clone() *Entry {
	c := *e
	if e.Embedding != nil {
		c.Embedding = make([]float32, len(e.Embedding))
		copy(c.Embedding, e.Embedding)
	}
	return &c
}

// Match is an entry ranked against a query.
type Match struct {
	Key          string  `json:"key"`
	Tier         Tier    `json:"tier"`
	Similarity   float64 `json:"similarity"`
	AccessWeight int     `json:"access_weight"`
	Payload      any     `json:"payload"`
}

// Record is the durable on-disk form of an entry. The key lives outside the
// record as the enclosing map key.
type Record struct {
	Payload      any       `json:"payload"`
	CreatedAt    float64   `json:"created_at"`
	AccessWeight int       `json:"access_weight"`
	Embedding    []float32 `json:"embedding,omitempty"`
}

// ToRecord converts an entry to its durable form.
func (e *Entry) ToRecord() Record {
	return Record{
		Payload:      e.Payload,
		CreatedAt:    EpochSeconds(e.CreatedAt),
		AccessWeight: e.AccessWeight,
		Embedding:    e.Embedding,
	}
}

// FromRecord rebuilds an entry from its durable form.
func FromRecord(key string, r Record) *Entry {
	return &Entry{
		Key:          key,
		Payload:      r.Payload,
		CreatedAt:    FromEpochSeconds(r.CreatedAt),
		AccessWeight: r.AccessWeight,
		Embedding:    r.Embedding,
	}
}

// EpochSeconds converts t to fractional unix seconds.
func EpochSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}

// FromEpochSeconds converts fractional unix seconds to a UTC time,
// rounded to the microsecond.
func FromEpochSeconds(f float64) time.Time {
	sec, frac := math.Modf(f)
	nsec := math.Round(frac*1e6) * 1e3
	return time.Unix(int64(sec), int64(nsec)).UTC()
}
