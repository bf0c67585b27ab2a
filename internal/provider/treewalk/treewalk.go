// Package treewalk serves media straight from a hierarchical scan of
// the tree, with no index involved.
package treewalk

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"mediacarousel/internal/browse"
	"mediacarousel/internal/config"
	"mediacarousel/internal/core/estimate"
	"mediacarousel/internal/core/queue"
	"mediacarousel/internal/core/sampler"
	"mediacarousel/internal/core/scan"
	"mediacarousel/internal/model"
)

type Options struct {
	Config  config.Config
	Browser browse.TreeBrowser
	Logger  *zap.Logger
	Seed    int64
}

// Provider owns one scanner and one queue. The scan runs as a single
// background task; Next only touches the queue.
type Provider struct {
	cfg     config.Config
	browser browse.TreeBrowser
	logger  *zap.Logger

	queue   *queue.Queue
	scanner *scan.Scanner

	runMu   sync.Mutex
	running bool

	stop context.CancelFunc
}

func New(opts Options) (*Provider, error) {
	if opts.Browser == nil {
		return nil, fmt.Errorf("browser is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg := opts.Config

	q := queue.New(queue.Options{
		HistoryDepth: cfg.RecentHistoryDepth,
		Logger:       logger,
		Seed:         opts.Seed,
	})
	sc, err := scan.New(scan.Options{
		Browser:         opts.Browser,
		Queue:           q,
		Sampler:         sampler.New(cfg.PriorityPathPatterns, cfg.PriorityPathMultiplier),
		Estimator:       estimate.New(cfg.EstimatedTotalSize),
		Mode:            cfg.Mode,
		MaxDepth:        cfg.ScanDepth(),
		TargetQueueSize: cfg.TargetQueueSize,
		SortDirection:   cfg.SortDirection,
		CallTimeout:     cfg.ScanTimeout,
		Logger:          logger,
		Seed:            opts.Seed,
	})
	if err != nil {
		return nil, err
	}

	p := &Provider{
		cfg:     cfg,
		browser: opts.Browser,
		logger:  logger,
		queue:   q,
		scanner: sc,
	}
	q.SetRefill(p.refill)
	return p, nil
}

// Resume rebuilds a provider around a scanner and queue recovered from
// a reconnection registry entry. The scan control is rearmed so a
// pause or cancel issued by the previous consumer does not leak in.
func Resume(sc *scan.Scanner, q *queue.Queue, logger *zap.Logger) *Provider {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Provider{logger: logger, queue: q, scanner: sc}
	sc.Control().Rearm()
	q.SetRefill(p.refill)
	return p
}

// Initialize verifies the root is listable, then starts the scan in
// the background. An unlistable root is the one fatal case.
func (p *Provider) Initialize(ctx context.Context) error {
	if p == nil || p.scanner == nil {
		return fmt.Errorf("provider is not constructed")
	}
	if p.browser != nil {
		if _, err := p.browser.ListChildren(ctx, ""); err != nil {
			return fmt.Errorf("list root: %w", err)
		}
	}
	p.startScan()
	return nil
}

func (p *Provider) Next(ctx context.Context) (*model.MediaItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return p.queue.GetNext(), nil
}

func (p *Provider) Scanner() *scan.Scanner { return p.scanner }
func (p *Provider) Queue() *queue.Queue    { return p.queue }

// Pause suspends the scan at its next checkpoint. Resume restarts it,
// reusing cached listings.
func (p *Provider) Pause() { p.scanner.Control().Pause() }

func (p *Provider) ResumeScan() {
	p.scanner.Control().Resume()
	p.startScan()
}

// Cancel discards the scan task; the queue stays servable.
func (p *Provider) Cancel() { p.scanner.Control().Cancel() }

func (p *Provider) Close() error {
	p.scanner.Control().Cancel()
	if p.stop != nil {
		p.stop()
	}
	return nil
}

func (p *Provider) refill() {
	p.scanner.Control().Rearm()
	p.startScan()
}

func (p *Provider) startScan() {
	p.runMu.Lock()
	if p.running {
		p.runMu.Unlock()
		return
	}
	p.running = true
	ctx, cancel := context.WithCancel(context.Background())
	p.stop = cancel
	p.runMu.Unlock()

	go func() {
		err := p.scanner.Run(ctx)
		p.runMu.Lock()
		p.running = false
		p.runMu.Unlock()
		if err != nil && !errors.Is(err, scan.ErrPaused) && !errors.Is(err, scan.ErrCancelled) {
			p.logger.Warn("scan stopped", zap.Error(err))
		}
	}()
}
