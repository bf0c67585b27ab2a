package queue

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mediacarousel/internal/model"
)

func item(id string) model.MediaItem {
	return model.MediaItem{ID: id, DisplayName: id, Kind: model.KindImage}
}

func TestShownSet_AgeOutKeepsRecentThirty(t *testing.T) {
	s := NewShownSet(1000)
	for i := 0; i < 100; i++ {
		s.Add(fmt.Sprintf("id-%03d", i))
	}
	s.AgeOut()

	require.Equal(t, 30, s.Len())
	for i := 0; i < 70; i++ {
		assert.False(t, s.Contains(fmt.Sprintf("id-%03d", i)))
	}
	for i := 70; i < 100; i++ {
		assert.True(t, s.Contains(fmt.Sprintf("id-%03d", i)))
	}
}

func TestShownSet_CapacityForcesAging(t *testing.T) {
	s := NewShownSet(10)
	for i := 0; i < 11; i++ {
		s.Add(fmt.Sprintf("id-%02d", i))
	}
	// Adding the 11th aged out the oldest 70% of the first ten.
	assert.Equal(t, 4, s.Len())
	assert.True(t, s.Contains("id-10"))
	assert.False(t, s.Contains("id-00"))
}

func TestQueue_NoDuplicateIDs(t *testing.T) {
	q := New(Options{MaxSize: 10})
	require.True(t, q.Add(item("a")))
	assert.False(t, q.Add(item("a")))
	assert.Equal(t, 1, q.Len())
}

func TestQueue_GetNextNeverReturnsShown(t *testing.T) {
	q := New(Options{MaxSize: 10, Seed: 1})
	q.Add(item("a"))
	q.Add(item("b"))

	first := q.GetNext()
	require.NotNil(t, first)

	// Re-admitting a shown ID is rejected until it ages out.
	assert.False(t, q.Add(*first))

	second := q.GetNext()
	require.NotNil(t, second)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestQueue_DryTriggersAgeOutThenRefill(t *testing.T) {
	var mu sync.Mutex
	refills := 0
	q := New(Options{MaxSize: 10, Seed: 1, Refill: func() {
		mu.Lock()
		refills++
		mu.Unlock()
	}})

	q.Add(item("a"))
	require.NotNil(t, q.GetNext())

	// Buffer empty: age-out cannot help, refill fires, nil returned.
	assert.Nil(t, q.GetNext())

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return refills == 1
	}, time.Second, 5*time.Millisecond)
}

func TestQueue_AgeOutReleasesWithheld(t *testing.T) {
	q := New(Options{MaxSize: 10, Seed: 1})
	q.Add(item("a"))
	got := q.GetNext()
	require.NotNil(t, got)

	// "a" is shown; a fresh copy cannot be delivered...
	assert.Nil(t, q.GetNext())
	// ...but the dry GetNext aged the shown set, so re-admission works now.
	require.True(t, q.Add(item("a")))
	again := q.GetNext()
	require.NotNil(t, again)
	assert.Equal(t, "a", again.ID)
}

func TestQueue_NeedsRefill(t *testing.T) {
	q := New(Options{MaxSize: 100, HistoryDepth: 10})
	assert.True(t, q.NeedsRefill(0))

	for i := 0; i < 20; i++ {
		q.Add(item(fmt.Sprintf("id-%02d", i)))
	}
	// 20 unshown >= max(10+5, 15).
	assert.False(t, q.NeedsRefill(0))

	// Small collection: threshold is ceil(8*0.5)=4, floored to 5.
	small := New(Options{MaxSize: 100, HistoryDepth: 10})
	for i := 0; i < 6; i++ {
		small.Add(item(fmt.Sprintf("s-%d", i)))
	}
	assert.False(t, small.NeedsRefill(8))
	assert.True(t, small.NeedsRefill(14))
}

func TestQueue_MaxSizeEnforced(t *testing.T) {
	q := New(Options{MaxSize: 3})
	for i := 0; i < 3; i++ {
		require.True(t, q.Add(item(fmt.Sprintf("id-%d", i))))
	}
	assert.False(t, q.Add(item("overflow")))
	assert.Equal(t, 3, q.Len())
}

func TestQueue_ShuffleKeepsContents(t *testing.T) {
	q := New(Options{MaxSize: 50, Seed: 42})
	want := map[string]struct{}{}
	for i := 0; i < 30; i++ {
		id := fmt.Sprintf("id-%02d", i)
		want[id] = struct{}{}
		q.Add(item(id))
	}
	q.Shuffle()

	got := q.Items()
	require.Len(t, got, 30)
	for _, it := range got {
		_, ok := want[it.ID]
		assert.True(t, ok)
	}
}
