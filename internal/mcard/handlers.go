package mcard

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"mediacarousel/internal/config"
	"mediacarousel/internal/core/watch"
	"mediacarousel/internal/model"
	"mediacarousel/internal/provider"
	"mediacarousel/internal/provider/treewalk"
	"mediacarousel/internal/registry"
)

// session is one consumer's live provider. For filesystem discovery it
// also tracks the treewalk engine so pause/detach can reach the scan.
type session struct {
	root    string
	cfg     config.Config
	router  *provider.Router
	tw      *treewalk.Provider
	watcher *watch.Watcher
}

func (s *session) next(ctx context.Context) (*model.MediaItem, error) {
	if s.router != nil {
		return s.router.Next(ctx)
	}
	return s.tw.Next(ctx)
}

func (s *session) close() {
	if s.watcher != nil {
		_ = s.watcher.Close()
	}
	if s.router != nil {
		_ = s.router.Close()
		return
	}
	if s.tw != nil {
		_ = s.tw.Close()
	}
}

type Handlers struct {
	mu       sync.RWMutex
	sessions map[string]*session
	parked   *registry.Registry
	logger   *zap.Logger
}

func NewHandlers(logger *zap.Logger) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{
		sessions: map[string]*session{},
		parked:   registry.New(0, logger),
		logger:   logger,
	}
}

// Init creates a consumer. A scan parked for the same root within the
// registry TTL is detached and resumed instead of starting over.
func (h *Handlers) Init(ctx context.Context, p InitParams) (InitResult, error) {
	if h == nil {
		return InitResult{}, fmt.Errorf("handlers is nil")
	}
	root := strings.TrimSpace(p.Root)
	if root == "" {
		return InitResult{}, fmt.Errorf("root is required")
	}
	rootAbs, err := filepath.Abs(root)
	if err != nil {
		return InitResult{}, err
	}
	rootAbs = filepath.Clean(rootAbs)
	if st, err := os.Stat(rootAbs); err != nil {
		return InitResult{}, err
	} else if !st.IsDir() {
		return InitResult{}, fmt.Errorf("root is not a directory")
	}

	cfg := config.Config{
		RootPath:               rootAbs,
		TargetQueueSize:        p.Target,
		MaxScanDepth:           p.MaxDepth,
		EstimatedTotalSize:     p.EstimatedTotal,
		PriorityPathPatterns:   p.PriorityPaths,
		PriorityPathMultiplier: p.PriorityMultiplier,
		Mode:                   p.Mode,
		SortField:              p.Sort,
		SortDirection:          p.Direction,
		DiscoveryBackend:       p.Backend,
		MetadataBackend:        p.MetadataBackend,
		PriorityRecentFiles:    p.PriorityRecent,
		RecentWindowSeconds:    p.RecentWindow,
		RecentHistoryDepth:     p.HistoryDepth,
	}
	if err := cfg.Prepare(); err != nil {
		return InitResult{}, err
	}

	h.parked.Sweep()

	ses := &session{root: rootAbs, cfg: cfg}
	r, err := provider.NewRouter(provider.RouterOptions{
		Config:       cfg,
		Logger:       h.logger,
		IndexBackend: p.IndexBackend,
		IndexPath:    p.IndexPath,
	})
	if err != nil {
		return InitResult{}, err
	}

	resumed := false
	if cfg.DiscoveryBackend == config.BackendFilesystem {
		if sc, q, ok := h.parked.Detach(rootAbs); ok {
			tw := treewalk.Resume(sc, q, h.logger)
			if err := r.Resume(ctx, tw); err != nil {
				return InitResult{}, err
			}
			ses.tw = tw
			resumed = true
		}
	}
	if !resumed {
		if err := r.Initialize(ctx); err != nil {
			return InitResult{}, err
		}
		ses.tw = r.Treewalk()
	}
	ses.router = r

	// Live scans get a filesystem watcher so changed folders drop out
	// of the listings cache and are re-listed on the next walk.
	if ses.tw != nil {
		tw := ses.tw
		w, err := watch.NewWatcher(rootAbs, watch.Options{
			AdaptiveDebounce: true,
			OnFolders: func(folders []string) {
				for _, f := range folders {
					tw.Scanner().InvalidateFolder(f)
				}
			},
		})
		if err != nil {
			h.logger.Warn("watcher unavailable", zap.Error(err))
		} else {
			ses.watcher = w
			go func() { _ = w.Run(context.Background()) }()
		}
	}

	id := uuid.NewString()
	h.mu.Lock()
	h.sessions[id] = ses
	h.mu.Unlock()

	h.logger.Info("consumer initialized",
		zap.String("consumer", id),
		zap.String("root", rootAbs),
		zap.Bool("resumed", resumed))
	return InitResult{ConsumerID: id, Resumed: resumed}, nil
}

func (h *Handlers) Next(ctx context.Context, p ConsumerParams) (*model.MediaItem, error) {
	ses, err := h.get(p.ConsumerID)
	if err != nil {
		return nil, err
	}
	return ses.next(ctx)
}

func (h *Handlers) Pause(p ConsumerParams) error {
	ses, err := h.get(p.ConsumerID)
	if err != nil {
		return err
	}
	if ses.tw == nil {
		return fmt.Errorf("consumer has no scan to pause")
	}
	ses.tw.Pause()
	return nil
}

func (h *Handlers) Resume(p ConsumerParams) error {
	ses, err := h.get(p.ConsumerID)
	if err != nil {
		return err
	}
	if ses.tw == nil {
		return fmt.Errorf("consumer has no scan to resume")
	}
	ses.tw.ResumeScan()
	return nil
}

// Detach tears the consumer down. A filesystem scan is parked in the
// reconnection registry so a follow-up Init for the same root picks up
// where it left off; index-backed sessions are simply closed.
func (h *Handlers) Detach(p ConsumerParams) error {
	h.mu.Lock()
	ses := h.sessions[p.ConsumerID]
	delete(h.sessions, p.ConsumerID)
	h.mu.Unlock()
	if ses == nil {
		return fmt.Errorf("consumer not found")
	}

	if ses.tw != nil {
		if ses.watcher != nil {
			_ = ses.watcher.Close()
		}
		h.parked.Park(ses.root, ses.tw.Scanner(), ses.tw.Queue())
		// The scan state outlives the session, the metadata store does
		// not; a resume reopens it from the same path.
		if ses.router != nil {
			_ = ses.router.ReleaseStore()
		}
		return nil
	}
	ses.close()
	return nil
}

// Metadata enriches a served item from the index when the session has a
// metadata backend attached; nil means not found or no index.
func (h *Handlers) Metadata(p MetadataParams) (*model.Metadata, error) {
	ses, err := h.get(p.ConsumerID)
	if err != nil {
		return nil, err
	}
	if p.ItemID == "" {
		return nil, fmt.Errorf("item_id is required")
	}
	if ses.router == nil {
		return nil, nil
	}
	md, ok, err := ses.router.Metadata(p.ItemID)
	if err != nil || !ok {
		return nil, err
	}
	return &md, nil
}

func (h *Handlers) Status(p ConsumerParams) (StatusResult, error) {
	ses, err := h.get(p.ConsumerID)
	if err != nil {
		return StatusResult{}, err
	}

	out := StatusResult{Root: ses.root, Mode: ses.cfg.Mode}
	if ses.tw != nil {
		st := ses.tw.Scanner().State()
		out.QueueLen = ses.tw.Queue().Len()
		out.ShownLen = ses.tw.Queue().ShownLen()
		out.Scanning = st.IsScanning
		out.Discovered = ses.tw.Scanner().Discovered()
		out.EstimatedTotal = st.EstimatedTotal
	}
	return out, nil
}

func (h *Handlers) Close() {
	h.mu.Lock()
	sessions := h.sessions
	h.sessions = map[string]*session{}
	h.mu.Unlock()
	for _, ses := range sessions {
		ses.close()
	}
}

func (h *Handlers) get(id string) (*session, error) {
	if h == nil {
		return nil, fmt.Errorf("handlers is nil")
	}
	h.mu.RLock()
	ses := h.sessions[id]
	h.mu.RUnlock()
	if ses == nil {
		return nil, fmt.Errorf("consumer not found")
	}
	return ses, nil
}
