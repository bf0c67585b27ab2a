package sqlite

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mediacarousel/internal/index/store"
)

func openTest(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "index.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func seed(t *testing.T, s *Store, col string, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		require.NoError(t, s.UpsertItem(col, store.Item{
			ID:     fmt.Sprintf("photos/img-%03d.jpg", i),
			Folder: "photos",
			Name:   fmt.Sprintf("img-%03d.jpg", i),
			Kind:   "image",
			MTime:  int64(1000 + i),
		}))
	}
}

func TestUpsertAndCount(t *testing.T) {
	s := openTest(t)
	seed(t, s, "c1", 5)

	n, err := s.CountItems("c1")
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	// Upserting the same ID replaces, never duplicates.
	require.NoError(t, s.UpsertItem("c1", store.Item{
		ID: "photos/img-000.jpg", Folder: "photos", Name: "img-000.jpg", Kind: "image", MTime: 9999,
	}))
	n, err = s.CountItems("c1")
	require.NoError(t, err)
	assert.Equal(t, 5, n)
}

func TestRandomItems_CountAndUniqueness(t *testing.T) {
	s := openTest(t)
	seed(t, s, "c1", 40)

	items, err := s.RandomItems("c1", store.RandomQuery{Count: 10})
	require.NoError(t, err)
	require.Len(t, items, 10)

	seen := map[string]struct{}{}
	for _, it := range items {
		_, dup := seen[it.ID]
		require.False(t, dup)
		seen[it.ID] = struct{}{}
	}
}

func TestRandomItems_PriorityRecentTopsUp(t *testing.T) {
	s := openTest(t)
	now := time.Now().Unix()
	// 3 recent items, 10 old ones.
	for i := 0; i < 3; i++ {
		require.NoError(t, s.UpsertItem("c1", store.Item{
			ID: fmt.Sprintf("new-%d.jpg", i), Name: fmt.Sprintf("new-%d.jpg", i), Kind: "image", MTime: now,
		}))
	}
	for i := 0; i < 10; i++ {
		require.NoError(t, s.UpsertItem("c1", store.Item{
			ID: fmt.Sprintf("old-%d.jpg", i), Name: fmt.Sprintf("old-%d.jpg", i), Kind: "image", MTime: 1000,
		}))
	}

	items, err := s.RandomItems("c1", store.RandomQuery{
		Count: 8, PriorityRecent: true, RecentWindow: time.Hour,
	})
	require.NoError(t, err)
	require.Len(t, items, 8)

	recent := 0
	for _, it := range items {
		if it.MTime == now {
			recent++
		}
	}
	assert.Equal(t, 3, recent)
}

func TestRandomItems_FolderFilter(t *testing.T) {
	s := openTest(t)
	require.NoError(t, s.UpsertItem("c1", store.Item{ID: "a/x.jpg", Folder: "a", Name: "x.jpg", Kind: "image"}))
	require.NoError(t, s.UpsertItem("c1", store.Item{ID: "a/sub/y.jpg", Folder: "a/sub", Name: "y.jpg", Kind: "image"}))
	require.NoError(t, s.UpsertItem("c1", store.Item{ID: "b/z.jpg", Folder: "b", Name: "z.jpg", Kind: "image"}))

	items, err := s.RandomItems("c1", store.RandomQuery{Count: 10, FolderFilter: "a"})
	require.NoError(t, err)
	require.Len(t, items, 2)
	for _, it := range items {
		assert.NotEqual(t, "b/z.jpg", it.ID)
	}
}

func TestOrderedItems_KeysetPaging(t *testing.T) {
	s := openTest(t)
	seed(t, s, "c1", 25)

	q := store.OrderedQuery{Count: 10, OrderBy: "mtime", Direction: "asc"}
	page1, err := s.OrderedItems("c1", q)
	require.NoError(t, err)
	require.Len(t, page1, 10)
	assert.Equal(t, "photos/img-000.jpg", page1[0].ID)

	last := page1[len(page1)-1]
	q.After = &store.Cursor{Value: store.SortValue(last, "mtime"), ID: last.ID}
	page2, err := s.OrderedItems("c1", q)
	require.NoError(t, err)
	require.Len(t, page2, 10)
	assert.Equal(t, "photos/img-010.jpg", page2[0].ID)

	// Values stay monotonic across the page boundary.
	assert.Greater(t, page2[0].MTime, last.MTime)

	last = page2[len(page2)-1]
	q.After = &store.Cursor{Value: store.SortValue(last, "mtime"), ID: last.ID}
	page3, err := s.OrderedItems("c1", q)
	require.NoError(t, err)
	assert.Len(t, page3, 5)
}

func TestOrderedItems_Descending(t *testing.T) {
	s := openTest(t)
	seed(t, s, "c1", 5)

	items, err := s.OrderedItems("c1", store.OrderedQuery{Count: 5, OrderBy: "mtime", Direction: "desc"})
	require.NoError(t, err)
	require.Len(t, items, 5)
	for i := 1; i < len(items); i++ {
		assert.Less(t, items[i].MTime, items[i-1].MTime)
	}
}

func TestOrderedItems_ByName(t *testing.T) {
	s := openTest(t)
	require.NoError(t, s.UpsertItem("c1", store.Item{ID: "b.jpg", Name: "b.jpg", Kind: "image"}))
	require.NoError(t, s.UpsertItem("c1", store.Item{ID: "a.jpg", Name: "a.jpg", Kind: "image"}))

	items, err := s.OrderedItems("c1", store.OrderedQuery{Count: 2, OrderBy: "name", Direction: "asc"})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "a.jpg", items[0].Name)
}

func TestGetMetadata(t *testing.T) {
	s := openTest(t)
	seed(t, s, "c1", 1)

	it, ok, err := s.GetMetadata("c1", "photos/img-000.jpg")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "image", it.Kind)
	assert.Equal(t, int64(1000), it.MTime)

	_, ok, err = s.GetMetadata("c1", "missing.jpg")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestReplaceItemsBatch(t *testing.T) {
	s := openTest(t)
	seed(t, s, "c1", 3)

	err := s.ReplaceItemsBatch("c1",
		[]store.Item{{ID: "photos/extra.jpg", Folder: "photos", Name: "extra.jpg", Kind: "image", MTime: 2000}},
		[]string{"photos/img-000.jpg"},
	)
	require.NoError(t, err)

	n, err := s.CountItems("c1")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	_, ok, err := s.GetMetadata("c1", "photos/img-000.jpg")
	require.NoError(t, err)
	assert.False(t, ok)
}
