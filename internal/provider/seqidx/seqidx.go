// Package seqidx walks an index collection in sort order with keyset
// cursors, wrapping to the start when the sequence is exhausted.
package seqidx

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"mediacarousel/internal/index/store"
	"mediacarousel/internal/model"
)

type Options struct {
	Store        store.Store
	CollectionID string
	FolderFilter string
	BatchSize    int
	OrderBy      string
	Direction    string
	// DisableAutoLoop suppresses the wraparound transition, letting a
	// bulk pre-load detect "fits entirely" without looping forever.
	DisableAutoLoop bool
	Logger          *zap.Logger
}

type Provider struct {
	store        store.Store
	collectionID string
	folderFilter string
	batchSize    int
	orderBy      string
	direction    string
	autoLoop     bool
	logger       *zap.Logger

	mu      sync.Mutex
	buffer  []store.Item
	cursor  *store.Cursor
	hasMore bool
	// served guards against re-delivery within one pass; cleared on wrap.
	served map[string]struct{}
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
	orderBy, err := store.ValidOrderBy(opts.OrderBy)
	if err != nil {
		return nil, err
	}
	direction := opts.Direction
	if direction == "" {
		direction = "asc"
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Provider{
		store:        opts.Store,
		collectionID: opts.CollectionID,
		folderFilter: opts.FolderFilter,
		batchSize:    batch,
		orderBy:      orderBy,
		direction:    direction,
		autoLoop:     !opts.DisableAutoLoop,
		logger:       logger,
		hasMore:      true,
		served:       map[string]struct{}{},
	}, nil
}

// Initialize fetches the first page. A fetch error here is fatal.
func (p *Provider) Initialize(ctx context.Context) error {
	if p == nil || p.store == nil {
		return fmt.Errorf("provider is not constructed")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.fetchLocked(ctx); err != nil {
		return fmt.Errorf("initial page: %w", err)
	}
	return nil
}

func (p *Provider) Next(ctx context.Context) (*model.MediaItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.buffer) == 0 && p.hasMore {
		if err := p.fetchLocked(ctx); err != nil {
			// Self-healing: the wraparound machinery retries on the
			// next scheduled refill rather than surfacing here.
			p.logger.Warn("page fetch failed", zap.Error(err))
			p.hasMore = false
		}
	}
	if len(p.buffer) == 0 && !p.hasMore {
		if !p.autoLoop {
			return nil, nil
		}
		p.wrapLocked()
		if err := p.fetchLocked(ctx); err != nil {
			p.logger.Warn("page fetch failed", zap.Error(err))
			p.hasMore = false
		}
	}
	if len(p.buffer) == 0 {
		return nil, nil
	}

	it := p.buffer[0]
	p.buffer = p.buffer[1:]
	p.served[it.ID] = struct{}{}
	p.cursor = &store.Cursor{Value: store.SortValue(it, p.orderBy), ID: it.ID}

	m := store.ToMedia(it, p.orderBy)
	return &m, nil
}

func (p *Provider) Close() error { return nil }

// HasMore reports whether another page may exist before wraparound.
func (p *Provider) HasMore() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.hasMore || len(p.buffer) > 0
}

// Exhaustive reports whether the pages fetched so far already cover the
// whole collection, so a wraparound pass would only repeat them.
func (p *Provider) Exhaustive() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return !p.hasMore
}

// Preload drains the whole collection in order without wrapping, for
// small collections that fit in a single materialized list.
func (p *Provider) Preload(ctx context.Context) ([]model.MediaItem, error) {
	p.mu.Lock()
	p.autoLoop = false
	p.mu.Unlock()

	var out []model.MediaItem
	for {
		it, err := p.Next(ctx)
		if err != nil {
			return out, err
		}
		if it == nil {
			return out, nil
		}
		out = append(out, *it)
	}
}

func (p *Provider) wrapLocked() {
	p.cursor = nil
	p.hasMore = true
	p.served = map[string]struct{}{}
	p.logger.Debug("sequence wrapped", zap.String("collection", p.collectionID))
}

func (p *Provider) fetchLocked(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	items, err := p.store.OrderedItems(p.collectionID, store.OrderedQuery{
		Count:        p.batchSize,
		FolderFilter: p.folderFilter,
		OrderBy:      p.orderBy,
		Direction:    p.direction,
		After:        p.cursor,
	})
	if err != nil {
		return err
	}
	if len(items) < p.batchSize {
		// Last page of the pass.
		p.hasMore = false
	}
	for _, it := range items {
		if _, done := p.served[it.ID]; done {
			continue
		}
		p.buffer = append(p.buffer, it)
	}
	return nil
}
