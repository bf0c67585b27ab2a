package provider

import (
	"context"
	"sync"

	"mediacarousel/internal/model"
)

// preloaded serves a small, fully materialized collection in its sort
// order, wrapping at the end without further index round trips.
type preloaded struct {
	mu    sync.Mutex
	items []model.MediaItem
	pos   int
}

func newPreloaded(items []model.MediaItem) *preloaded {
	return &preloaded{items: items}
}

func (p *preloaded) Initialize(context.Context) error { return nil }

func (p *preloaded) Next(ctx context.Context) (*model.MediaItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.items) == 0 {
		return nil, nil
	}
	it := p.items[p.pos]
	p.pos = (p.pos + 1) % len(p.items)
	return &it, nil
}

func (p *preloaded) Close() error { return nil }
