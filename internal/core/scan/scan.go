// Package scan walks an arbitrarily large hierarchical media tree and
// feeds a bounded queue, without ever holding the whole tree in memory.
package scan

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"mediacarousel/internal/browse"
	"mediacarousel/internal/config"
	"mediacarousel/internal/core/estimate"
	"mediacarousel/internal/core/queue"
	"mediacarousel/internal/core/sampler"
	"mediacarousel/internal/model"
)

// errTargetReached stops a sequential scan once the queue holds the
// target: an intentional latency optimization, the admitted prefix stays
// exhaustive.
var errTargetReached = errors.New("target queue size reached")

// listConcurrency bounds remote listings in flight across the whole
// scan, not per recursion level.
const listConcurrency = 2

// rootDenyList names maintenance folders excluded at the tree root only.
var rootDenyList = map[string]struct{}{
	"@eadir":     {},
	"#recycle":   {},
	"#snapshot":  {},
	"lost+found": {},
	"cache":      {},
	"tmp":        {},
}

type Options struct {
	Browser   browse.TreeBrowser
	Queue     *queue.Queue
	Sampler   *sampler.Sampler
	Estimator *estimate.Estimator

	// Mode is config.ModeRandom or config.ModeSequential.
	Mode string
	// MaxDepth caps recursion: config.UnlimitedDepth for none, 0 for the
	// root only, N for root plus N levels.
	MaxDepth        int
	TargetQueueSize int
	// SortDirection orders sequential traversal, approximating temporal
	// order for date-named folders.
	SortDirection string
	CallTimeout   time.Duration

	Logger *zap.Logger
	Seed   int64
}

// State mirrors the scan lifecycle for consumers and the reconnection
// registry.
type State struct {
	IsScanning     bool
	Cancelled      bool
	StartedAt      time.Time
	EstimatedTotal int
}

type Scanner struct {
	browser   browse.TreeBrowser
	queue     *queue.Queue
	sampler   *sampler.Sampler
	estimator *estimate.Estimator
	control   *Control
	listSem   *semaphore.Weighted

	mode      string
	maxDepth  int
	target    int
	direction string
	timeout   time.Duration
	log       *zap.Logger

	mu         sync.Mutex
	rng        *rand.Rand
	folders    map[string]*model.FolderDescriptor
	listings   map[string]browse.Listing
	discovered int
	scanning   bool
	cancelled  bool
	startedAt  time.Time
}

func New(opts Options) (*Scanner, error) {
	if opts.Browser == nil {
		return nil, fmt.Errorf("browser is required")
	}
	if opts.Queue == nil {
		return nil, fmt.Errorf("queue is required")
	}
	if opts.Sampler == nil {
		opts.Sampler = sampler.New(nil, 0)
	}
	if opts.Estimator == nil {
		opts.Estimator = estimate.New(0)
	}
	mode := opts.Mode
	if mode == "" {
		mode = config.ModeRandom
	}
	target := opts.TargetQueueSize
	if target <= 0 {
		target = 50
	}
	direction := opts.SortDirection
	if direction == "" {
		direction = config.DirectionAsc
	}
	timeout := opts.CallTimeout
	if timeout <= 0 {
		timeout = 180 * time.Second
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Scanner{
		browser:   opts.Browser,
		queue:     opts.Queue,
		sampler:   opts.Sampler,
		estimator: opts.Estimator,
		control:   NewControl(),
		listSem:   semaphore.NewWeighted(listConcurrency),
		mode:      mode,
		maxDepth:  opts.MaxDepth,
		target:    target,
		direction: direction,
		timeout:   timeout,
		log:       log,
		rng:       rand.New(rand.NewSource(seed)),
		folders:   map[string]*model.FolderDescriptor{},
		listings:  map[string]browse.Listing{},
	}, nil
}

// Control returns the pause/cancel signal bound to this scanner, so a
// consumer (or the reconnection registry) can drive it.
func (s *Scanner) Control() *Control { return s.control }

func (s *Scanner) State() State {
	if s == nil {
		return State{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return State{
		IsScanning:     s.scanning,
		Cancelled:      s.cancelled,
		StartedAt:      s.startedAt,
		EstimatedTotal: s.estimator.Estimate(),
	}
}

// Folders returns the cached descriptors, one per scanned folder.
func (s *Scanner) Folders() []*model.FolderDescriptor {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*model.FolderDescriptor, 0, len(s.folders))
	for _, d := range s.folders {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// InvalidateFolder drops a cached descriptor so the next walk relists it.
func (s *Scanner) InvalidateFolder(folder string) {
	if s == nil {
		return
	}
	folder = strings.Trim(folder, "/")
	s.mu.Lock()
	delete(s.folders, folder)
	delete(s.listings, folder)
	s.mu.Unlock()
}

// Run performs one scan pass. A failed root listing is an initialization
// failure; any deeper failure only degrades that subtree's yield. Returns
// ErrPaused or ErrCancelled when the control signal fired, nil otherwise.
func (s *Scanner) Run(ctx context.Context) error {
	if s == nil {
		return fmt.Errorf("scanner is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	s.mu.Lock()
	s.scanning = true
	s.cancelled = false
	if s.startedAt.IsZero() {
		s.startedAt = time.Now()
	}
	s.mu.Unlock()
	s.estimator.SetScanning(true)

	err := s.walk(ctx, "", 0)

	s.mu.Lock()
	s.scanning = false
	s.cancelled = errors.Is(err, ErrCancelled)
	s.mu.Unlock()
	s.estimator.SetScanning(false)

	switch {
	case err == nil:
		// Natural completion: freeze the estimate against late noise.
		s.estimator.Lock()
		s.log.Info("scan complete",
			zap.Int("discovered", s.Discovered()),
			zap.Int("queued", s.queue.Len()))
		return nil
	case errors.Is(err, errTargetReached):
		s.log.Debug("scan stopped early at target", zap.Int("queued", s.queue.Len()))
		return nil
	case errors.Is(err, ErrPaused), errors.Is(err, ErrCancelled):
		return err
	default:
		return err
	}
}

func (s *Scanner) Discovered() int {
	if s == nil {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.discovered
}

func (s *Scanner) walk(ctx context.Context, folder string, depth int) error {
	if err := s.control.Check(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return ErrCancelled
	}

	listing, err := s.list(ctx, folder)
	if err != nil {
		if depth == 0 {
			return fmt.Errorf("list root: %w", err)
		}
		// Subtree failures contribute zero, never crash the scan.
		s.log.Warn("subtree listing failed", zap.String("folder", folder), zap.Error(err))
		return nil
	}

	// Re-check after the call returns: a signal raised while the listing
	// was in flight must not admit files from it.
	if err := s.control.Check(); err != nil {
		return err
	}

	folders := listing.Folders
	if depth == 0 {
		folders = dropDenied(folders)
	}

	if len(listing.Files) > 0 || len(folders) > 0 {
		s.register(folder, depth, listing.Files)
	}

	if err := s.admit(folder, listing.Files); err != nil {
		return err
	}

	if s.maxDepth != config.UnlimitedDepth && depth >= s.maxDepth {
		return nil
	}
	if len(folders) == 0 {
		return nil
	}

	children := make([]string, len(folders))
	copy(children, folders)

	if s.mode == config.ModeSequential {
		sort.Strings(children)
		if s.direction == config.DirectionDesc {
			for i, j := 0, len(children)-1; i < j; i, j = i+1, j-1 {
				children[i], children[j] = children[j], children[i]
			}
		}
		// One subfolder in flight keeps strict traversal order.
		for _, name := range children {
			if err := s.walk(ctx, join(folder, name), depth+1); err != nil {
				return err
			}
		}
		return nil
	}

	s.mu.Lock()
	s.rng.Shuffle(len(children), func(i, j int) {
		children[i], children[j] = children[j], children[i]
	})
	s.mu.Unlock()

	// Random mode overlaps subfolder walks. The listing semaphore,
	// acquired in list, holds the whole scan to two remote calls in
	// flight regardless of tree shape; the group limit only paces
	// goroutine fan-out per folder.
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(listConcurrency)
	for _, name := range children {
		sub := join(folder, name)
		g.Go(func() error {
			return s.walk(gctx, sub, depth+1)
		})
	}
	return g.Wait()
}

func (s *Scanner) register(folder string, depth int, files []browse.FileEntry) {
	items := make([]model.MediaItem, 0, len(files))
	for _, f := range files {
		items = append(items, s.toItem(folder, f))
	}

	s.mu.Lock()
	s.folders[folder] = &model.FolderDescriptor{
		Path:      folder,
		Depth:     depth,
		FileCount: len(files),
		Files:     items,
		Weight:    s.sampler.FolderWeight(folder, len(files)),
	}
	s.discovered += len(files)
	discovered := s.discovered
	s.mu.Unlock()

	s.estimator.Observe(discovered)
}

func (s *Scanner) admit(folder string, files []browse.FileEntry) error {
	if s.mode == config.ModeSequential {
		ordered := make([]browse.FileEntry, len(files))
		copy(ordered, files)
		sort.Slice(ordered, func(i, j int) bool {
			if s.direction == config.DirectionDesc {
				return ordered[i].Name > ordered[j].Name
			}
			return ordered[i].Name < ordered[j].Name
		})
		for _, f := range ordered {
			s.queue.Add(s.toItem(folder, f))
			if s.queue.Len() >= s.target {
				return errTargetReached
			}
		}
		return nil
	}

	for _, f := range files {
		p := s.sampler.AdmissionProbability(folder, s.target, s.estimator.Estimate(), s.queue.Len())
		if s.chance(p) {
			s.queue.Add(s.toItem(folder, f))
		}
	}
	return nil
}

func (s *Scanner) chance(p float64) bool {
	if p >= 1 {
		return true
	}
	if p <= 0 {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64() < p
}

func (s *Scanner) toItem(folder string, f browse.FileEntry) model.MediaItem {
	return model.MediaItem{
		ID:           join(folder, f.Name),
		DisplayName:  f.Name,
		Kind:         f.Kind,
		FolderPath:   folder,
		DiscoveredAt: time.Now(),
		SortKey:      f.Name,
	}
}

// list serves a folder from the descriptor cache when present (so a
// resumed scan re-traverses cheaply), otherwise asks the browser with the
// per-call timeout. A timed-out call is abandoned, never retried here.
func (s *Scanner) list(ctx context.Context, folder string) (browse.Listing, error) {
	s.mu.Lock()
	if l, ok := s.listings[folder]; ok {
		s.mu.Unlock()
		return l, nil
	}
	s.mu.Unlock()

	if err := s.listSem.Acquire(ctx, 1); err != nil {
		return browse.Listing{}, err
	}
	defer s.listSem.Release(1)

	cctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	type result struct {
		listing browse.Listing
		err     error
	}
	ch := make(chan result, 1)
	go func() {
		l, err := s.browser.ListChildren(cctx, folder)
		ch <- result{l, err}
	}()

	select {
	case r := <-ch:
		if r.err != nil {
			return browse.Listing{}, r.err
		}
		s.mu.Lock()
		s.listings[folder] = r.listing
		s.mu.Unlock()
		return r.listing, nil
	case <-cctx.Done():
		return browse.Listing{}, cctx.Err()
	}
}

func dropDenied(folders []string) []string {
	out := folders[:0:0]
	for _, name := range folders {
		if _, deny := rootDenyList[strings.ToLower(name)]; deny {
			continue
		}
		out = append(out, name)
	}
	return out
}

func join(folder string, name string) string {
	if folder == "" {
		return name
	}
	return folder + "/" + name
}
