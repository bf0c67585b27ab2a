// Package randomidx serves randomly sampled items from an index
// collection, deduplicating against its buffer and recent history and
// backing off the priority-recent hint once the pool looks exhausted.
package randomidx

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"mediacarousel/internal/core/queue"
	"mediacarousel/internal/index/store"
	"mediacarousel/internal/model"
)

// Refill when fewer than this many buffered items remain unserved.
const lowWater = 10

// A batch with more than this share filtered as duplicate signals the
// pool may be exhausted.
const duplicateRateLimit = 0.8

const exhaustionStreak = 2

type Options struct {
	Store          store.Store
	CollectionID   string
	FolderFilter   string
	BatchSize      int
	OrderBy        string // sort field carried on served items
	PriorityRecent bool
	RecentWindow   time.Duration
	HistoryDepth   int
	Logger         *zap.Logger
}

type Provider struct {
	store          store.Store
	collectionID   string
	folderFilter   string
	batchSize      int
	orderBy        string
	priorityRecent bool
	recentWindow   time.Duration
	logger         *zap.Logger

	mu       sync.Mutex
	buffer   []store.Item
	buffered map[string]struct{}
	history  *queue.ShownSet

	// streak counts consecutive high-duplicate batches; at
	// exhaustionStreak the priority-recent hint is dropped until a
	// batch comes back mostly fresh.
	streak    int
	exhausted bool
}

func New(opts Options) (*Provider, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if opts.CollectionID == "" {
		return nil, fmt.Errorf("collection id is required")
	}
	batch := opts.BatchSize
	if batch <= 0 {
		batch = 50
	}
	history := opts.HistoryDepth
	if history <= 0 {
		history = 500
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Provider{
		store:          opts.Store,
		collectionID:   opts.CollectionID,
		folderFilter:   opts.FolderFilter,
		batchSize:      batch,
		orderBy:        opts.OrderBy,
		priorityRecent: opts.PriorityRecent,
		recentWindow:   opts.RecentWindow,
		logger:         logger,
		buffered:       map[string]struct{}{},
		history:        queue.NewShownSet(history),
	}, nil
}

// Initialize fetches the first batch. A fetch error here is fatal; an
// empty result is not.
func (p *Provider) Initialize(ctx context.Context) error {
	if p == nil || p.store == nil {
		return fmt.Errorf("provider is not constructed")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.fetchLocked(ctx); err != nil {
		return fmt.Errorf("initial batch: %w", err)
	}
	return nil
}

func (p *Provider) Next(ctx context.Context) (*model.MediaItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.buffer) < lowWater {
		if err := p.fetchLocked(ctx); err != nil {
			p.logger.Warn("batch fetch failed", zap.Error(err))
		}
	}
	if len(p.buffer) == 0 {
		return nil, nil
	}

	it := p.buffer[0]
	p.buffer = p.buffer[1:]
	delete(p.buffered, it.ID)
	p.history.Add(it.ID)

	m := store.ToMedia(it, p.orderBy)
	return &m, nil
}

func (p *Provider) Close() error { return nil }

// Exhausted reports whether the priority-recent hint is currently
// suppressed.
func (p *Provider) Exhausted() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.exhausted
}

func (p *Provider) fetchLocked(ctx context.Context) error {
	usePriority := p.priorityRecent && !p.exhausted
	rate, err := p.fetchOnceLocked(ctx, usePriority)
	if err != nil {
		return err
	}
	if rate > duplicateRateLimit && usePriority {
		// Smart retry: the recent window is likely played out, so ask
		// again without the hint before giving up on this cycle.
		if _, err := p.fetchOnceLocked(ctx, false); err != nil {
			return err
		}
	}
	return nil
}

// fetchOnceLocked pulls one batch, folds the fresh items into the
// buffer, and updates the exhaustion state from the duplicate rate.
// Returns the rate, or -1 for an empty batch, which leaves the
// exhaustion state untouched.
func (p *Provider) fetchOnceLocked(ctx context.Context, priorityRecent bool) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	items, err := p.store.RandomItems(p.collectionID, store.RandomQuery{
		Count:          p.batchSize,
		FolderFilter:   p.folderFilter,
		PriorityRecent: priorityRecent,
		RecentWindow:   p.recentWindow,
	})
	if err != nil {
		return 0, err
	}
	if len(items) == 0 {
		return -1, nil
	}

	filtered := 0
	for _, it := range items {
		if _, dup := p.buffered[it.ID]; dup {
			filtered++
			continue
		}
		if p.history.Contains(it.ID) {
			filtered++
			continue
		}
		p.buffer = append(p.buffer, it)
		p.buffered[it.ID] = struct{}{}
	}

	rate := float64(filtered) / float64(len(items))
	if rate > duplicateRateLimit {
		p.streak++
		if p.streak >= exhaustionStreak && !p.exhausted {
			p.exhausted = true
			p.logger.Info("collection looks exhausted, dropping priority-recent hint",
				zap.String("collection", p.collectionID))
		}
	} else {
		p.streak = 0
		p.exhausted = false
	}
	return rate, nil
}
