package watch

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDebouncerCoalescesFolders(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)

	var mu sync.Mutex
	var fired [][]string
	d.OnFire(func(folders []string) {
		mu.Lock()
		fired = append(fired, folders)
		mu.Unlock()
	})

	d.Push("photos")
	d.Push("photos")
	d.Push("videos")
	d.Push("") // root

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(fired) == 1
	}, time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"", "photos", "videos"}, fired[0])
}

func TestDelayForAdaptive(t *testing.T) {
	d := NewDebouncer(200 * time.Millisecond)
	d.SetDelayFunc(func(count int) time.Duration {
		if count > 10 {
			return 500 * time.Millisecond
		}
		return 50 * time.Millisecond
	})

	assert.Equal(t, 50*time.Millisecond, d.DelayFor(3))
	assert.Equal(t, 500*time.Millisecond, d.DelayFor(100))
}
