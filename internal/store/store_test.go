package store

import (
	"context"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agency1/hippocampus/internal/embedding"
	"github.com/agency1/hippocampus/internal/keygen"
	"github.com/agency1/hippocampus/internal/model"
	"github.com/agency1/hippocampus/internal/persist"
)

func TestNew_RequiresPersister(t *testing.T) {
	_, err := New(context.Background(), Options{})
	require.Error(t, err)

	_, err = New(context.Background(), Options{Persister: &memPersister{}, Capacity: -1})
	require.Error(t, err)
}

func TestStore_ReturnsDeterministicKey(t *testing.T) {
	env := newTestStore(t, 10)
	key, err := env.store.Store(context.Background(), "hello world", false)
	require.NoError(t, err)

	want, _ := keygen.Generate("hello world")
	assert.Equal(t, want, key)
	assert.Len(t, key, keygen.KeyLength)
}

func TestStore_RecentEvictsOldest(t *testing.T) {
	ctx := context.Background()
	env := newTestStore(t, 2)

	first, err := env.store.Store(ctx, "hello world", false)
	require.NoError(t, err)
	second, _ := env.store.Store(ctx, "second text", false)
	third, _ := env.store.Store(ctx, "third text", false)

	_, found := env.store.Recall(first)
	assert.False(t, found, "oldest entry should have been evicted")

	p, found := env.store.Recall(second)
	assert.True(t, found)
	assert.Equal(t, "second text", p)
	_, found = env.store.Recall(third)
	assert.True(t, found)

	assert.Equal(t, 2, env.store.Stats().RecentEntries)

	_, saves := env.disk.snapshot()
	assert.Zero(t, saves, "recent-tier stores must not touch the durable tier")
}

func TestStore_CapacityNeverExceeded(t *testing.T) {
	ctx := context.Background()
	env := newTestStore(t, 5)
	for i := 0; i < 50; i++ {
		_, err := env.store.Store(ctx, fmt.Sprintf("entry %d", i), false)
		require.NoError(t, err)
		assert.LessOrEqual(t, env.store.Stats().RecentEntries, 5)
	}
}

func TestStore_LongTermWritesImmediately(t *testing.T) {
	ctx := context.Background()
	env := newTestStore(t, 10)

	key, err := env.store.Store(ctx, "The sky is blue", true)
	require.NoError(t, err)

	saved, saves := env.disk.snapshot()
	assert.Equal(t, 1, saves)
	require.Contains(t, saved, key)
	assert.Equal(t, "The sky is blue", saved[key].Payload)
	assert.Zero(t, saved[key].AccessWeight)
	assert.NotEmpty(t, saved[key].Embedding)

	_, tier, ok := env.store.Get(key)
	require.True(t, ok)
	assert.Equal(t, model.TierDurable, tier)
}

func TestStore_StructuredPayloadHasNoEmbedding(t *testing.T) {
	ctx := context.Background()
	env := newTestStore(t, 10)

	key, err := env.store.Store(ctx, map[string]any{"event": "login", "user": 7}, false)
	require.NoError(t, err)
	assert.Zero(t, env.emb.callCount())

	e, _, ok := env.store.Get(key)
	require.True(t, ok)
	assert.False(t, e.Searchable())
}

func TestStore_InvalidPayload(t *testing.T) {
	env := newTestStore(t, 10)
	_, err := env.store.Store(context.Background(), nil, false)
	assert.ErrorIs(t, err, ErrInvalidPayload)

	_, err = env.store.Store(context.Background(), make(chan int), true)
	assert.ErrorIs(t, err, ErrInvalidPayload)
}

func TestStore_RestoreIsIdempotent(t *testing.T) {
	ctx := context.Background()
	env := newTestStore(t, 10)

	key, _ := env.store.Store(ctx, "Water is wet", true)
	_, err := env.store.Feedback(ctx, key, true)
	require.NoError(t, err)
	calls := env.emb.callCount()
	_, saves := env.disk.snapshot()

	again, err := env.store.Store(ctx, "Water is wet", true)
	require.NoError(t, err)
	assert.Equal(t, key, again)

	e, _, _ := env.store.Get(key)
	assert.Equal(t, 1, e.AccessWeight, "weight must survive a re-store")
	assert.Equal(t, calls, env.emb.callCount(), "no second embedding")
	_, savesAfter := env.disk.snapshot()
	assert.Equal(t, saves, savesAfter)
}

func TestStore_SameContentInBothTiers(t *testing.T) {
	ctx := context.Background()
	env := newTestStore(t, 10)

	k1, _ := env.store.Store(ctx, "dup", false)
	k2, _ := env.store.Store(ctx, "dup", true)
	assert.Equal(t, k1, k2)

	st := env.store.Stats()
	assert.Equal(t, 1, st.RecentEntries)
	assert.Equal(t, 1, st.DurableEntries)

	_, tier, _ := env.store.Get(k1)
	assert.Equal(t, model.TierRecent, tier, "recent tier is checked first")
}

func TestStore_ProviderFailureIsSoft(t *testing.T) {
	ctx := context.Background()
	env := newTestStore(t, 10)
	env.emb.setFail(errors.New("connection refused"))

	key, err := env.store.Store(ctx, "The sky is blue", true)
	require.Error(t, err)
	assert.NotEmpty(t, key)
	assert.True(t, IsSoft(err))

	var pe *ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, key, pe.Key)

	e, _, ok := env.store.Get(key)
	require.True(t, ok)
	assert.False(t, e.Searchable())

	saved, _ := env.disk.snapshot()
	assert.Contains(t, saved, key, "entry persisted without embedding")
}

func TestStore_DurabilityErrorKeepsMemoryState(t *testing.T) {
	ctx := context.Background()
	env := newTestStore(t, 10)
	env.disk.setFail(errDiskFull)

	key, err := env.store.Store(ctx, "The sky is blue", true)
	require.Error(t, err)
	assert.NotEmpty(t, key)
	assert.False(t, IsSoft(err))

	var de *DurabilityError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "store", de.Op)
	assert.ErrorIs(t, err, errDiskFull)

	p, found := env.store.Recall(key)
	assert.True(t, found)
	assert.Equal(t, "The sky is blue", p)
	assert.True(t, env.store.Stats().Unflushed)

	env.disk.setFail(nil)
	require.NoError(t, env.store.Flush(ctx))
	assert.False(t, env.store.Stats().Unflushed)
	saved, _ := env.disk.snapshot()
	assert.Contains(t, saved, key)
}

func TestStore_ProviderAndDurabilityErrorsJoined(t *testing.T) {
	env := newTestStore(t, 10)
	env.emb.setFail(errors.New("timeout"))
	env.disk.setFail(errDiskFull)

	key, err := env.store.Store(context.Background(), "Water is wet", true)
	assert.NotEmpty(t, key)
	var pe *ProviderError
	var de *DurabilityError
	assert.ErrorAs(t, err, &pe)
	assert.ErrorAs(t, err, &de)
	assert.False(t, IsSoft(err))
}

func TestStore_EmbedTimeout(t *testing.T) {
	env := &testEnv{disk: &memPersister{}}
	s, err := New(context.Background(), Options{
		Persister:    env.disk,
		Embedder:     blockingEmbedder{},
		EmbedTimeout: 20 * time.Millisecond,
	})
	require.NoError(t, err)

	start := time.Now()
	key, err := s.Store(context.Background(), "slow provider", false)
	assert.NotEmpty(t, key)
	assert.True(t, IsSoft(err))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 2*time.Second)
}

type blockingEmbedder struct{}

func (blockingEmbedder) Embed(ctx context.Context, _ string) ([]float32, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (blockingEmbedder) Dims() int { return 3 }

func TestRecall_NotFound(t *testing.T) {
	env := newTestStore(t, 10)
	p, found := env.store.Recall("0123456789abcdef0123456789abcdef")
	assert.False(t, found)
	assert.Nil(t, p)
}

func TestGet_ReturnsCopy(t *testing.T) {
	ctx := context.Background()
	env := newTestStore(t, 10)
	key, _ := env.store.Store(ctx, "The sky is blue", false)

	e, _, _ := env.store.Get(key)
	e.AccessWeight = 99
	e.Embedding[0] = 42

	again, _, _ := env.store.Get(key)
	assert.Zero(t, again.AccessWeight)
	assert.NotEqual(t, float32(42), again.Embedding[0])
}

func TestFeedback(t *testing.T) {
	ctx := context.Background()

	for _, tier := range []bool{false, true} {
		t.Run(fmt.Sprintf("long_term=%v", tier), func(t *testing.T) {
			env := newTestStore(t, 10)
			key, err := env.store.Store(ctx, "Water is wet", tier)
			require.NoError(t, err)

			const n = 5
			for i := 0; i < n; i++ {
				found, err := env.store.Feedback(ctx, key, true)
				require.NoError(t, err)
				require.True(t, found)
			}
			e, _, _ := env.store.Get(key)
			assert.Equal(t, n, e.AccessWeight)

			for i := 0; i < 3; i++ {
				env.store.Feedback(ctx, key, false)
			}
			e, _, _ = env.store.Get(key)
			assert.Equal(t, 2, e.AccessWeight)

			for i := 0; i < 10; i++ {
				env.store.Feedback(ctx, key, false)
			}
			e, _, _ = env.store.Get(key)
			assert.Equal(t, 0, e.AccessWeight, "weight is floored at zero")
		})
	}
}

func TestFeedback_DurablePersists(t *testing.T) {
	ctx := context.Background()
	env := newTestStore(t, 10)
	key, _ := env.store.Store(ctx, "The sky is blue", true)
	_, before := env.disk.snapshot()

	_, err := env.store.Feedback(ctx, key, true)
	require.NoError(t, err)

	saved, after := env.disk.snapshot()
	assert.Equal(t, before+1, after)
	assert.Equal(t, 1, saved[key].AccessWeight)

	env.disk.setFail(errDiskFull)
	found, err := env.store.Feedback(ctx, key, true)
	assert.True(t, found)
	var de *DurabilityError
	require.ErrorAs(t, err, &de)
	e, _, _ := env.store.Get(key)
	assert.Equal(t, 2, e.AccessWeight, "in-memory update is never dropped")
}

func TestFeedback_UnknownKeyIsNoop(t *testing.T) {
	env := newTestStore(t, 10)
	found, err := env.store.Feedback(context.Background(), "ffffffffffffffffffffffffffffffff", true)
	assert.NoError(t, err)
	assert.False(t, found)
	_, saves := env.disk.snapshot()
	assert.Zero(t, saves)
}

func TestFeedback_RecentTierWins(t *testing.T) {
	ctx := context.Background()
	env := newTestStore(t, 10)
	key, _ := env.store.Store(ctx, "dup", true)
	env.store.Store(ctx, "dup", false)

	env.store.Feedback(ctx, key, true)

	list := env.store.List()
	require.Len(t, list, 2)
	assert.Equal(t, model.TierRecent, list[0].Tier)
	assert.Equal(t, 1, list[0].AccessWeight)
	assert.Equal(t, 0, list[1].AccessWeight)
}

func TestConsolidate_MovesAgedEntries(t *testing.T) {
	ctx := context.Background()
	env := newTestStore(t, 10)

	old1, _ := env.store.Store(ctx, "old one", false)
	old2, _ := env.store.Store(ctx, "old two", false)
	env.clock.Advance(2 * time.Hour)
	fresh, _ := env.store.Store(ctx, "fresh", false)
	env.store.Feedback(ctx, old1, true)

	moved, err := env.store.Consolidate(ctx, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 2, moved)

	for _, k := range []string{old1, old2} {
		_, tier, ok := env.store.Get(k)
		require.True(t, ok)
		assert.Equal(t, model.TierDurable, tier)
	}
	_, tier, _ := env.store.Get(fresh)
	assert.Equal(t, model.TierRecent, tier)

	saved, saves := env.disk.snapshot()
	assert.Equal(t, 1, saves, "one durable write per consolidate call")
	assert.Len(t, saved, 2)
	assert.Equal(t, 1, saved[old1].AccessWeight)
}

func TestConsolidate_Idempotent(t *testing.T) {
	ctx := context.Background()
	env := newTestStore(t, 10)
	env.store.Store(ctx, "a", false)
	env.store.Store(ctx, "b", false)
	env.clock.Advance(time.Minute)

	moved, err := env.store.Consolidate(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, moved)
	before := env.store.List()
	_, saves := env.disk.snapshot()

	moved, err = env.store.Consolidate(ctx, 0)
	require.NoError(t, err)
	assert.Zero(t, moved)
	assert.Equal(t, before, env.store.List())
	_, savesAfter := env.disk.snapshot()
	assert.Equal(t, saves, savesAfter)
}

func TestConsolidate_AgeMustExceedThreshold(t *testing.T) {
	ctx := context.Background()
	env := newTestStore(t, 10)
	env.store.Store(ctx, "borderline", false)
	env.clock.Advance(time.Hour)

	moved, err := env.store.Consolidate(ctx, time.Hour)
	require.NoError(t, err)
	assert.Zero(t, moved)
}

func TestConsolidate_KeepsDurableWeight(t *testing.T) {
	ctx := context.Background()
	env := newTestStore(t, 10)

	key, _ := env.store.Store(ctx, "water is wet", true)
	for i := 0; i < 5; i++ {
		env.store.Feedback(ctx, key, true)
	}
	_, savesBefore := env.disk.snapshot()

	again, err := env.store.Store(ctx, "water is wet", false)
	require.NoError(t, err)
	require.Equal(t, key, again)
	env.clock.Advance(2 * time.Hour)

	moved, err := env.store.Consolidate(ctx, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, moved)

	e, tier, ok := env.store.Get(key)
	require.True(t, ok)
	assert.Equal(t, model.TierDurable, tier)
	assert.Equal(t, 5, e.AccessWeight)
	assert.Equal(t, 0, env.store.Stats().RecentEntries)

	saved, saves := env.disk.snapshot()
	assert.Equal(t, savesBefore, saves, "durable tier unchanged, no write")
	assert.Equal(t, 5, saved[key].AccessWeight)
}

func TestConsolidate_AllOrNothing(t *testing.T) {
	ctx := context.Background()
	env := newTestStore(t, 10)
	durableKey, _ := env.store.Store(ctx, "already durable", true)
	a, _ := env.store.Store(ctx, "a", false)
	b, _ := env.store.Store(ctx, "b", false)
	env.clock.Advance(time.Hour)

	env.disk.setFail(errDiskFull)
	moved, err := env.store.Consolidate(ctx, time.Minute)
	assert.Zero(t, moved)
	var de *DurabilityError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "consolidate", de.Op)

	st := env.store.Stats()
	assert.Equal(t, 2, st.RecentEntries)
	assert.Equal(t, 1, st.DurableEntries)
	for _, k := range []string{a, b} {
		_, tier, ok := env.store.Get(k)
		require.True(t, ok)
		assert.Equal(t, model.TierRecent, tier)
	}

	env.disk.setFail(nil)
	moved, err = env.store.Consolidate(ctx, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 2, moved)
	saved, _ := env.disk.snapshot()
	assert.Len(t, saved, 3)
	assert.Contains(t, saved, durableKey)
}

func TestClose_FlushesAndRejectsMutations(t *testing.T) {
	ctx := context.Background()
	env := newTestStore(t, 10)
	env.disk.setFail(errDiskFull)
	key, _ := env.store.Store(ctx, "pending", true)
	env.disk.setFail(nil)

	require.NoError(t, env.store.Close(ctx))
	saved, _ := env.disk.snapshot()
	assert.Contains(t, saved, key)
	assert.True(t, env.disk.closed)

	_, err := env.store.Store(ctx, "late", false)
	assert.ErrorIs(t, err, ErrClosed)
	_, err = env.store.Feedback(ctx, key, true)
	assert.ErrorIs(t, err, ErrClosed)
	_, err = env.store.Consolidate(ctx, 0)
	assert.ErrorIs(t, err, ErrClosed)

	_, found := env.store.Recall(key)
	assert.True(t, found, "reads still work after close")
	assert.NoError(t, env.store.Close(ctx))
}

func TestStore_SurvivesRestartWithFileStore(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "durable.json")
	fs, err := persist.NewFileStore(path, nil)
	require.NoError(t, err)

	s, err := New(ctx, Options{Persister: fs, Embedder: &keywordEmbedder{}})
	require.NoError(t, err)
	key, err := s.Store(ctx, "The sky is blue", true)
	require.NoError(t, err)
	s.Feedback(ctx, key, true)
	s.Store(ctx, "volatile", false)
	require.NoError(t, s.Close(ctx))

	fs2, err := persist.NewFileStore(path, nil)
	require.NoError(t, err)
	s2, err := New(ctx, Options{Persister: fs2, Embedder: &keywordEmbedder{}})
	require.NoError(t, err)
	defer s2.Close(ctx)

	e, tier, ok := s2.Get(key)
	require.True(t, ok)
	assert.Equal(t, model.TierDurable, tier)
	assert.Equal(t, 1, e.AccessWeight)
	assert.True(t, e.Searchable())
	assert.Equal(t, "loaded", s2.Stats().LoadState)
	assert.Equal(t, 0, s2.Stats().RecentEntries)

	got, err := s2.GetContext(ctx, "What color is the sky?", 1, 0.3)
	require.NoError(t, err)
	assert.Equal(t, []any{"The sky is blue"}, got)
}

// poisonEmbedder answers "poison" with a NaN vector and defers to the
// keyword embedder otherwise.
type poisonEmbedder struct{ keywordEmbedder }

func (p *poisonEmbedder) Embed(ctx context.Context, text string) (embedding.Vector, error) {
	if strings.Contains(text, "poison") {
		return embedding.Vector{float32(math.NaN()), 1, 0}, nil
	}
	return p.keywordEmbedder.Embed(ctx, text)
}

func TestStore_NonFiniteEmbeddingIsSoft(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "durable.json")
	fs, err := persist.NewFileStore(path, nil)
	require.NoError(t, err)
	s, err := New(ctx, Options{Persister: fs, Embedder: &poisonEmbedder{}})
	require.NoError(t, err)
	defer s.Close(ctx)

	poison, err := s.Store(ctx, "poison blue sky", true)
	require.NotEmpty(t, poison)
	var perr *ProviderError
	require.ErrorAs(t, err, &perr)
	assert.ErrorIs(t, err, embedding.ErrInvalidEmbedding)
	assert.True(t, IsSoft(err))

	e, _, ok := s.Get(poison)
	require.True(t, ok)
	assert.False(t, e.Searchable())

	healthy, err := s.Store(ctx, "healthy blue sky", true)
	require.NoError(t, err, "later durable writes must keep working")
	assert.False(t, s.Stats().Unflushed)

	matches, err := s.Search(ctx, "What color is the sky?", 5, 0.9)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, healthy, matches[0].Key)
	for _, m := range matches {
		assert.False(t, math.IsNaN(m.Similarity))
		assert.GreaterOrEqual(t, m.Similarity, 0.9)
	}

	matches, err = s.Search(ctx, "poison", 5, 0.9)
	assert.Empty(t, matches)
	assert.True(t, IsSoft(err))
}

func TestStore_PayloadsSurviveRestartExactly(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "durable.json")
	open := func() *MemoryStore {
		fs, err := persist.NewFileStore(path, nil)
		require.NoError(t, err)
		s, err := New(ctx, Options{Persister: fs, Embedder: &keywordEmbedder{}})
		require.NoError(t, err)
		return s
	}

	s := open()
	raw, err := s.Store(ctx, []byte("hello"), true)
	require.NoError(t, err)
	textKey, _ := keygen.Generate("hello")
	assert.Equal(t, textKey, raw, "bytes are keyed as text")

	big := map[string]any{"id": int64(9007199254740993)}
	bigKey, err := s.Store(ctx, big, true)
	require.NoError(t, err)
	require.NoError(t, s.Close(ctx))

	s = open()
	defer s.Close(ctx)

	got, ok := s.Recall(raw)
	require.True(t, ok)
	assert.Equal(t, "hello", got)
	e, _, _ := s.Get(raw)
	assert.True(t, e.Searchable())

	got, ok = s.Recall(bigKey)
	require.True(t, ok)
	m, ok := got.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "9007199254740993", fmt.Sprint(m["id"]))

	again, err := s.Store(ctx, big, true)
	require.NoError(t, err)
	assert.Equal(t, bigKey, again)
	assert.Equal(t, 2, s.Stats().DurableEntries)
}

func TestStore_ConcurrentUse(t *testing.T) {
	ctx := context.Background()
	env := newTestStore(t, 20)
	durable, _ := env.store.Store(ctx, "The sky is blue", true)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				key, err := env.store.Store(ctx, fmt.Sprintf("water note %d-%d", g, i), i%10 == 0)
				assert.NoError(t, err)
				env.store.Feedback(ctx, key, true)
				env.store.Feedback(ctx, durable, i%2 == 0)
				env.store.Recall(key)
				res, err := env.store.Search(ctx, "rain water", 5, 0.1)
				assert.NoError(t, err)
				assert.LessOrEqual(t, len(res), 5)
				if i%25 == 0 {
					env.clock.Advance(time.Second)
					_, err := env.store.Consolidate(ctx, 0)
					assert.NoError(t, err)
				}
			}
		}(g)
	}
	wg.Wait()

	st := env.store.Stats()
	assert.LessOrEqual(t, st.RecentEntries, 20)
	saved, _ := env.disk.snapshot()
	assert.Equal(t, st.DurableEntries, len(saved), "persisted map matches memory after last write")
}

func TestExportImport(t *testing.T) {
	ctx := context.Background()
	src := newTestStore(t, 10)
	k1, _ := src.store.Store(ctx, "The sky is blue", true)
	src.clock.Advance(time.Second)
	src.store.Store(ctx, map[string]any{"fact": "water is wet"}, true)
	src.store.Feedback(ctx, k1, true)

	exported := src.store.Export()
	require.Len(t, exported, 2)
	assert.Equal(t, k1, exported[0].Key, "ordered by creation time")

	dst := newTestStore(t, 10)
	n, err := dst.store.Import(ctx, exported)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	e, tier, ok := dst.store.Get(k1)
	require.True(t, ok)
	assert.Equal(t, model.TierDurable, tier)
	assert.Equal(t, 1, e.AccessWeight)

	n, err = dst.store.Import(ctx, exported)
	require.NoError(t, err)
	assert.Zero(t, n, "duplicates are skipped")
	_, saves := dst.disk.snapshot()
	assert.Equal(t, 1, saves)
}

func TestImport_DerivesMissingKey(t *testing.T) {
	env := newTestStore(t, 10)
	n, err := env.store.Import(context.Background(), []*model.Entry{{Payload: "no key", AccessWeight: -3}})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	key, _ := keygen.Generate("no key")
	e, _, ok := env.store.Get(key)
	require.True(t, ok)
	assert.Zero(t, e.AccessWeight)
	assert.Equal(t, env.clock.Now(), e.CreatedAt)

	_, err = env.store.Import(context.Background(), []*model.Entry{{Key: "x"}})
	assert.ErrorIs(t, err, ErrInvalidPayload)
}

func TestIsSoft(t *testing.T) {
	pe := &ProviderError{Err: errors.New("x")}
	de := &DurabilityError{Op: "store", Err: errors.New("y")}

	assert.False(t, IsSoft(nil))
	assert.True(t, IsSoft(pe))
	assert.True(t, IsSoft(fmt.Errorf("wrapped: %w", pe)))
	assert.True(t, IsSoft(errors.Join(pe, nil)))
	assert.False(t, IsSoft(de))
	assert.False(t, IsSoft(errors.Join(pe, de)))
	assert.False(t, IsSoft(errors.New("plain")))
}
