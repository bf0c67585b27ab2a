package provider

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"mediacarousel/internal/browse"
	"mediacarousel/internal/config"
	"mediacarousel/internal/core/cache"
	"mediacarousel/internal/index/backend"
	"mediacarousel/internal/index/store"
	"mediacarousel/internal/model"
	"mediacarousel/internal/provider/randomidx"
	"mediacarousel/internal/provider/seqidx"
	"mediacarousel/internal/provider/treewalk"
)

const metadataCacheSize = 1024

type RouterOptions struct {
	Config config.Config
	Logger *zap.Logger

	// IndexBackend and IndexPath pick the store implementation when an
	// indexed backend is configured. Empty values fall back to sqlite
	// under the media root.
	IndexBackend string
	IndexPath    string

	// Store and Browser override the defaults, mainly for tests.
	Store   store.Store
	Browser browse.TreeBrowser

	Seed int64
}

// Router picks the delivery engine once, at Initialize, from the
// configured mode and discovery backend. Discovery and metadata
// backends are independent axes: a filesystem walk may still be
// enriched from an index.
type Router struct {
	cfg    config.Config
	logger *zap.Logger
	opts   RouterOptions

	active       Provider
	store        store.Store
	ownsStore    bool
	meta         *cache.Metadata
	collectionID string
}

func NewRouter(opts RouterOptions) (*Router, error) {
	cfg := opts.Config
	if err := cfg.Prepare(); err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{cfg: cfg, logger: logger, opts: opts, collectionID: cfg.RootPath}, nil
}

// Initialize opens the configured backend and constructs the engine.
// An explicitly requested index backend that cannot be opened is a
// hard error, never a silent fallback to the filesystem.
func (r *Router) Initialize(ctx context.Context) error {
	if r == nil {
		return fmt.Errorf("router is not constructed")
	}

	needsIndex := r.cfg.DiscoveryBackend == config.BackendIndexed ||
		r.cfg.MetadataBackend == config.BackendIndexed
	if needsIndex {
		if err := r.openStore(); err != nil {
			return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
		}
	}

	p, err := r.buildProvider()
	if err != nil {
		return err
	}
	if err := p.Initialize(ctx); err != nil {
		if r.cfg.DiscoveryBackend == config.BackendIndexed {
			return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
		}
		return err
	}
	// A sequential first page that already covered the collection means
	// wraparound would only repeat it: materialize the list up front so
	// navigation is order-stable with no further index round trips.
	if sp, ok := p.(*seqidx.Provider); ok && sp.Exhaustive() {
		items, err := sp.Preload(ctx)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
		}
		r.logger.Info("small collection preloaded", zap.Int("items", len(items)))
		p = newPreloaded(items)
	}
	r.active = p

	r.logger.Info("provider ready",
		zap.String("mode", r.cfg.Mode),
		zap.String("discovery", r.cfg.DiscoveryBackend))
	return nil
}

// Resume adopts a previously parked treewalk engine as the active
// provider, reopening the metadata store when the configuration asks
// for index enrichment.
func (r *Router) Resume(ctx context.Context, tw *treewalk.Provider) error {
	if r == nil || tw == nil {
		return fmt.Errorf("nothing to resume")
	}
	if r.cfg.MetadataBackend == config.BackendIndexed {
		if err := r.openStore(); err != nil {
			return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
		}
	}
	if err := tw.Initialize(ctx); err != nil {
		return err
	}
	r.active = tw
	return nil
}

func (r *Router) Next(ctx context.Context) (*model.MediaItem, error) {
	if r == nil || r.active == nil {
		return nil, fmt.Errorf("router is not initialized")
	}
	return r.active.Next(ctx)
}

// Metadata resolves per-item metadata through the LRU when an index is
// attached, and reports ok=false otherwise.
func (r *Router) Metadata(itemID string) (model.Metadata, bool, error) {
	if r == nil || r.store == nil {
		return model.Metadata{}, false, nil
	}
	if it, ok := r.meta.Get(itemID); ok {
		return toMetadata(it), true, nil
	}
	it, ok, err := r.store.GetMetadata(r.collectionID, itemID)
	if err != nil || !ok {
		return model.Metadata{}, false, err
	}
	r.meta.Put(itemID, it)
	return toMetadata(it), true, nil
}

// Treewalk exposes the underlying tree-walk engine when that is the
// active provider, for pause/cancel and registry handoff. Nil for
// index-backed providers.
func (r *Router) Treewalk() *treewalk.Provider {
	tw, _ := r.active.(*treewalk.Provider)
	return tw
}

// ReleaseStore closes the owned metadata store without touching the
// active provider, for teardown paths that park the provider's state.
func (r *Router) ReleaseStore() error {
	if r == nil || !r.ownsStore || r.store == nil {
		return nil
	}
	err := r.store.Close()
	r.store = nil
	r.meta = nil
	r.ownsStore = false
	return err
}

func (r *Router) Close() error {
	var first error
	if r.active != nil {
		first = r.active.Close()
	}
	if r.ownsStore && r.store != nil {
		if err := r.store.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (r *Router) openStore() error {
	if r.opts.Store != nil {
		r.store = r.opts.Store
	} else {
		name := backend.NormalizeName(r.opts.IndexBackend)
		path := backend.NormalizePath(name, r.opts.IndexPath)
		if path == "" {
			path = backend.DefaultPath(r.cfg.RootPath, name)
		}
		s, err := backend.Open(name, path)
		if err != nil {
			return err
		}
		r.store = s
		r.ownsStore = true
	}
	r.meta = cache.NewMetadata(metadataCacheSize)
	return r.store.EnsureCollection(r.collectionID, r.cfg.RootPath)
}

func (r *Router) buildProvider() (Provider, error) {
	if r.cfg.DiscoveryBackend == config.BackendIndexed {
		if r.cfg.Mode == config.ModeSequential {
			return seqidx.New(seqidx.Options{
				Store:        r.store,
				CollectionID: r.collectionID,
				BatchSize:    r.cfg.TargetQueueSize,
				OrderBy:      r.cfg.SortField,
				Direction:    r.cfg.SortDirection,
				Logger:       r.logger,
			})
		}
		return randomidx.New(randomidx.Options{
			Store:          r.store,
			CollectionID:   r.collectionID,
			BatchSize:      r.cfg.TargetQueueSize,
			OrderBy:        r.cfg.SortField,
			PriorityRecent: r.cfg.PriorityRecentFiles,
			RecentWindow:   time.Duration(r.cfg.RecentWindowSeconds) * time.Second,
			HistoryDepth:   r.cfg.RecentHistoryDepth,
			Logger:         r.logger,
		})
	}

	br := r.opts.Browser
	if br == nil {
		var err error
		br, err = browse.NewFSBrowser(r.cfg.RootPath)
		if err != nil {
			return nil, err
		}
	}
	return treewalk.New(treewalk.Options{
		Config:  r.cfg,
		Browser: br,
		Logger:  r.logger,
		Seed:    r.opts.Seed,
	})
}

func toMetadata(it store.Item) model.Metadata {
	return model.Metadata{
		ID:      it.ID,
		Path:    it.ID,
		Name:    it.Name,
		Kind:    model.MediaKind(it.Kind),
		Size:    it.Size,
		MTime:   it.MTime,
		TakenAt: it.TakenAt,
	}
}
