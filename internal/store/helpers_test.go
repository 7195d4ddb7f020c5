package store

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/agency1/hippocampus/internal/embedding"
	"github.com/agency1/hippocampus/internal/model"
	"github.com/agency1/hippocampus/internal/persist"
)

// keywordEmbedder maps words onto a few fixed concept axes so related texts
// land close together and unrelated ones are orthogonal.
type keywordEmbedder struct {
	mu    sync.Mutex
	calls int
	fail  error
}

var concepts = map[string]int{
	"sky": 0, "blue": 0, "color": 0,
	"water": 1, "wet": 1, "rain": 1,
	"cat": 2, "dog": 2, "pet": 2,
}

func (k *keywordEmbedder) Embed(_ context.Context, text string) (embedding.Vector, error) {
	k.mu.Lock()
	k.calls++
	fail := k.fail
	k.mu.Unlock()
	if fail != nil {
		return nil, fail
	}
	v := make(embedding.Vector, 3)
	for _, w := range strings.Fields(strings.ToLower(strings.Trim(text, "?!."))) {
		if i, ok := concepts[strings.Trim(w, "?!.,")]; ok {
			v[i]++
		}
	}
	return v, nil
}

func (k *keywordEmbedder) Dims() int { return 3 }

func (k *keywordEmbedder) callCount() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.calls
}

func (k *keywordEmbedder) setFail(err error) {
	k.mu.Lock()
	k.fail = err
	k.mu.Unlock()
}

// memPersister is an in-memory Persister that can be told to fail.
type memPersister struct {
	mu     sync.Mutex
	saved  map[string]*model.Entry
	saves  int
	fail   error
	closed bool
}

func (p *memPersister) Load(context.Context) (*persist.Snapshot, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.saved == nil {
		return &persist.Snapshot{Entries: map[string]*model.Entry{}, State: persist.StateMissing}, nil
	}
	return &persist.Snapshot{Entries: cloneMap(p.saved), State: persist.StateLoaded}, nil
}

func (p *memPersister) Save(_ context.Context, entries map[string]*model.Entry) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.saves++
	if p.fail != nil {
		return p.fail
	}
	p.saved = cloneMap(entries)
	return nil
}

func (p *memPersister) Close() error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	return nil
}

func (p *memPersister) setFail(err error) {
	p.mu.Lock()
	p.fail = err
	p.mu.Unlock()
}

func (p *memPersister) snapshot() (map[string]*model.Entry, int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return cloneMap(p.saved), p.saves
}

func cloneMap(in map[string]*model.Entry) map[string]*model.Entry {
	out := make(map[string]*model.Entry, len(in))
	for k, e := range in {
		out[k] = e.Clone()
	}
	return out
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

var errDiskFull = errors.New("no space left on device")

type testEnv struct {
	store *MemoryStore
	emb   *keywordEmbedder
	disk  *memPersister
	clock *fakeClock
}

func newTestStore(t *testing.T, capacity int) *testEnv {
	t.Helper()
	env := &testEnv{emb: &keywordEmbedder{}, disk: &memPersister{}, clock: newFakeClock()}
	s, err := New(context.Background(), Options{
		Persister: env.disk,
		Embedder:  env.emb,
		Capacity:  capacity,
		Now:       env.clock.Now,
	})
	require.NoError(t, err)
	env.store = s
	return env
}
