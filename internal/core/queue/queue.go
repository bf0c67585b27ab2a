package queue

import (
	"math"
	"math/rand"
	"sync"

	"go.uber.org/zap"

	"mediacarousel/internal/model"
)

type Options struct {
	// MaxSize caps the buffer; admissions beyond it are rejected.
	MaxSize int
	// HistoryDepth is the caller-visible navigation history; the refill
	// threshold derives from it.
	HistoryDepth int
	// ShownCapacity bounds the shown set before forced aging.
	ShownCapacity int
	// Refill, when set, is invoked on a fresh goroutine whenever GetNext
	// runs dry even after aging out the shown set.
	Refill func()

	Logger *zap.Logger
	Seed   int64
}

// Queue is the bounded ordered buffer of discovered items, paired with a
// shown set that withholds recently delivered IDs.
type Queue struct {
	mu sync.Mutex

	maxSize      int
	historyDepth int
	items        []model.MediaItem
	queued       map[string]struct{}
	shown        *ShownSet

	insertsSinceShuffle int
	refill              func()
	refillInFlight      bool
	rng                 *rand.Rand
	log                 *zap.Logger
}

func New(opts Options) *Queue {
	maxSize := opts.MaxSize
	if maxSize <= 0 {
		maxSize = 200
	}
	historyDepth := opts.HistoryDepth
	if historyDepth <= 0 {
		historyDepth = 10
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	seed := opts.Seed
	if seed == 0 {
		seed = rand.Int63()
	}
	return &Queue{
		maxSize:      maxSize,
		historyDepth: historyDepth,
		items:        nil,
		queued:       map[string]struct{}{},
		shown:        NewShownSet(opts.ShownCapacity),
		refill:       opts.Refill,
		rng:          rand.New(rand.NewSource(seed)),
		log:          log,
	}
}

// SetRefill installs the async refill trigger after construction, for
// providers that are wired up in stages.
func (q *Queue) SetRefill(fn func()) {
	if q == nil {
		return
	}
	q.mu.Lock()
	q.refill = fn
	q.mu.Unlock()
}

// Add admits an item. Returns false when the item is already buffered,
// still withheld as shown, or the buffer is full.
func (q *Queue) Add(item model.MediaItem) bool {
	if q == nil || item.ID == "" {
		return false
	}
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) >= q.maxSize {
		return false
	}
	if _, ok := q.queued[item.ID]; ok {
		return false
	}
	if q.shown.Contains(item.ID) {
		return false
	}

	q.items = append(q.items, item)
	q.queued[item.ID] = struct{}{}
	q.insertsSinceShuffle++

	if q.insertsSinceShuffle > q.shuffleThreshold() {
		q.shuffleLocked()
	}
	return true
}

// GetNext delivers the first buffered item not currently withheld. When
// everything buffered has been shown it ages the shown set out once and
// retries; if that still yields nothing it kicks the refill trigger and
// returns nil without blocking.
func (q *Queue) GetNext() *model.MediaItem {
	q.mu.Lock()

	if it := q.takeLocked(); it != nil {
		q.mu.Unlock()
		return it
	}

	q.shown.AgeOut()
	if it := q.takeLocked(); it != nil {
		q.mu.Unlock()
		return it
	}

	fire := q.refill != nil && !q.refillInFlight
	if fire {
		q.refillInFlight = true
	}
	refill := q.refill
	q.mu.Unlock()

	if fire {
		q.log.Debug("queue dry, triggering refill")
		go func() {
			refill()
			q.mu.Lock()
			q.refillInFlight = false
			q.mu.Unlock()
		}()
	}
	return nil
}

func (q *Queue) takeLocked() *model.MediaItem {
	for i := range q.items {
		if q.shown.Contains(q.items[i].ID) {
			continue
		}
		it := q.items[i]
		q.items = append(q.items[:i], q.items[i+1:]...)
		delete(q.queued, it.ID)
		q.shown.Add(it.ID)
		return &it
	}
	return nil
}

// NeedsRefill reports whether the unshown buffer has sunk below the
// refill threshold. totalKnown, when positive and small, relaxes the
// threshold so tiny collections are not asked for an unreachable buffer.
func (q *Queue) NeedsRefill(totalKnown int) bool {
	if q == nil {
		return false
	}
	q.mu.Lock()
	defer q.mu.Unlock()

	unshown := 0
	for i := range q.items {
		if !q.shown.Contains(q.items[i].ID) {
			unshown++
		}
	}

	threshold := q.historyDepth + 5
	if threshold < 15 {
		threshold = 15
	}
	if totalKnown > 0 && totalKnown < 30 {
		threshold = int(math.Ceil(float64(totalKnown) * 0.5))
		if threshold < 5 {
			threshold = 5
		}
	}
	return unshown < threshold
}

// Shuffle runs a Fisher-Yates pass over the buffer.
func (q *Queue) Shuffle() {
	if q == nil {
		return
	}
	q.mu.Lock()
	q.shuffleLocked()
	q.mu.Unlock()
}

func (q *Queue) shuffleLocked() {
	for i := len(q.items) - 1; i > 0; i-- {
		j := q.rng.Intn(i + 1)
		q.items[i], q.items[j] = q.items[j], q.items[i]
	}
	q.insertsSinceShuffle = 0
}

func (q *Queue) shuffleThreshold() int {
	t := len(q.items) / 10
	if t < 10 {
		t = 10
	}
	if t > 1000 {
		t = 1000
	}
	return t
}

func (q *Queue) Len() int {
	if q == nil {
		return 0
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *Queue) ShownLen() int {
	if q == nil {
		return 0
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.shown.Len()
}

// Items returns a copy of the current buffer, front to back.
func (q *Queue) Items() []model.MediaItem {
	if q == nil {
		return nil
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]model.MediaItem(nil), q.items...)
}
