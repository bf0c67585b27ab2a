package randomidx

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mediacarousel/internal/index/store"
)

type stubStore struct {
	batches [][]store.Item
	queries []store.RandomQuery
	fail    bool
}

func (s *stubStore) RandomItems(collectionID string, q store.RandomQuery) ([]store.Item, error) {
	if s.fail {
		return nil, fmt.Errorf("index offline")
	}
	s.queries = append(s.queries, q)
	if len(s.batches) == 0 {
		return nil, nil
	}
	b := s.batches[0]
	s.batches = s.batches[1:]
	return b, nil
}

func (s *stubStore) Close() error                            { return nil }
func (s *stubStore) Backend() string                         { return "stub" }
func (s *stubStore) EnsureCollection(id, root string) error  { return nil }
func (s *stubStore) UpsertItem(c string, it store.Item) error { return nil }
func (s *stubStore) DeleteItem(c, id string) error           { return nil }
func (s *stubStore) ReplaceItemsBatch(c string, items []store.Item, del []string) error {
	return nil
}
func (s *stubStore) CountItems(c string) (int, error) { return 0, nil }
func (s *stubStore) OrderedItems(c string, q store.OrderedQuery) ([]store.Item, error) {
	return nil, nil
}
func (s *stubStore) GetMetadata(c, id string) (store.Item, bool, error) {
	return store.Item{}, false, nil
}

func batch(start, n int) []store.Item {
	out := make([]store.Item, 0, n)
	for i := start; i < start+n; i++ {
		out = append(out, store.Item{ID: fmt.Sprintf("item-%03d", i), Name: fmt.Sprintf("item-%03d", i), MTime: int64(i)})
	}
	return out
}

func newProvider(t *testing.T, st *stubStore) *Provider {
	t.Helper()
	p, err := New(Options{
		Store:          st,
		CollectionID:   "c1",
		BatchSize:      20,
		OrderBy:        "mtime",
		PriorityRecent: true,
		RecentWindow:   time.Hour,
	})
	require.NoError(t, err)
	return p
}

func TestQueryCarriesRecentWindow(t *testing.T) {
	st := &stubStore{batches: [][]store.Item{batch(0, 20)}}
	p := newProvider(t, st)
	require.NoError(t, p.Initialize(context.Background()))

	require.Len(t, st.queries, 1)
	assert.Equal(t, time.Hour, st.queries[0].RecentWindow)
}

func TestInitFetchFailureIsFatal(t *testing.T) {
	p := newProvider(t, &stubStore{fail: true})
	assert.Error(t, p.Initialize(context.Background()))
}

func TestEmptyBatchIsNotFatal(t *testing.T) {
	st := &stubStore{}
	p := newProvider(t, st)
	require.NoError(t, p.Initialize(context.Background()))

	it, err := p.Next(context.Background())
	require.NoError(t, err)
	assert.Nil(t, it)
}

func TestServedIDsAreUnique(t *testing.T) {
	st := &stubStore{batches: [][]store.Item{batch(0, 20), batch(0, 20), batch(0, 20)}}
	p := newProvider(t, st)
	require.NoError(t, p.Initialize(context.Background()))

	seen := map[string]struct{}{}
	for i := 0; i < 20; i++ {
		it, err := p.Next(context.Background())
		require.NoError(t, err)
		if it == nil {
			break
		}
		_, dup := seen[it.ID]
		require.False(t, dup, "id %s served twice", it.ID)
		seen[it.ID] = struct{}{}
	}
}

func TestExhaustionDropsPriorityRecentThenRecovers(t *testing.T) {
	st := &stubStore{batches: [][]store.Item{
		batch(0, 20), // init, all fresh
		batch(0, 20), // refill: fully duplicate, triggers smart retry
		batch(0, 20), // retry without priority-recent: still duplicate
		batch(100, 20), // later refill: fresh, clears the flag
	}}
	p := newProvider(t, st)
	require.NoError(t, p.Initialize(context.Background()))
	require.True(t, st.queries[0].PriorityRecent)

	// Drain below the low-water mark so the next call refills.
	for i := 0; i < 11; i++ {
		it, err := p.Next(context.Background())
		require.NoError(t, err)
		require.NotNil(t, it)
	}

	// This call fetches twice: the priority-recent batch comes back
	// fully duplicate, and the smart retry without the hint does too.
	it, err := p.Next(context.Background())
	require.NoError(t, err)
	require.NotNil(t, it)
	require.Len(t, st.queries, 3)
	assert.True(t, st.queries[1].PriorityRecent)
	assert.False(t, st.queries[2].PriorityRecent)
	assert.True(t, p.Exhausted())

	// Next refill omits priority-recent; its fresh batch resets the flag.
	it, err = p.Next(context.Background())
	require.NoError(t, err)
	require.NotNil(t, it)
	require.Len(t, st.queries, 4)
	assert.False(t, st.queries[3].PriorityRecent)
	assert.False(t, p.Exhausted())
}
