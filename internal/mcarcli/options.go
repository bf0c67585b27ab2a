package mcarcli

import (
	"bytes"
	"context"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"mediacarousel/internal/config"
)

type Options struct {
	Root string

	Mode      string
	Sort      string
	Direction string

	Backend      string // discovery: filesystem|indexed
	IndexBackend string // sqlite|bleve
	IndexPath    string

	Target    int
	MaxDepth  int // -1 for unlimited
	Estimated int

	PriorityPaths      []string
	PriorityMultiplier float64

	PriorityRecent bool
	RecentWindow   int
	HistoryDepth   int

	ScanTimeout time.Duration

	Jsonl   bool
	Verbose bool
}

func (o *Options) Prepare() error {
	o.normalize()
	_, err := o.Config()
	return err
}

func (o *Options) normalize() {
	o.Root = strings.TrimSpace(o.Root)
	if o.Root == "" {
		o.Root = "."
	}
	o.Mode = strings.ToLower(strings.TrimSpace(o.Mode))
	o.Backend = strings.ToLower(strings.TrimSpace(o.Backend))
	o.IndexBackend = strings.ToLower(strings.TrimSpace(o.IndexBackend))
}

// Config builds the engine configuration from the flag surface. The
// returned value is already prepared.
func (o *Options) Config() (config.Config, error) {
	cfg := config.Config{
		RootPath:               o.Root,
		TargetQueueSize:        o.Target,
		EstimatedTotalSize:     o.Estimated,
		PriorityPathPatterns:   o.PriorityPaths,
		PriorityPathMultiplier: o.PriorityMultiplier,
		Mode:                   o.Mode,
		SortField:              o.Sort,
		SortDirection:          o.Direction,
		DiscoveryBackend:       o.Backend,
		PriorityRecentFiles:    o.PriorityRecent,
		RecentWindowSeconds:    o.RecentWindow,
		RecentHistoryDepth:     o.HistoryDepth,
		ScanTimeout:            o.ScanTimeout,
	}
	if o.MaxDepth >= 0 {
		depth := o.MaxDepth
		cfg.MaxScanDepth = &depth
	}
	if err := cfg.Prepare(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func (o *Options) Logger() (*zap.Logger, error) {
	if o.Verbose {
		return zap.NewDevelopment()
	}
	c := zap.NewProductionConfig()
	c.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	return c.Build()
}

type optionsKey struct{}

func optionsFrom(cmd *cobra.Command) *Options {
	if cmd == nil {
		return nil
	}
	root := cmd.Root()
	if root == nil {
		root = cmd
	}
	v := root.Context().Value(optionsKey{})
	opts, _ := v.(*Options)
	return opts
}

func withOptionsContext(cmd *cobra.Command, opts *Options) {
	cmd.SetContext(context.WithValue(context.Background(), optionsKey{}, opts))
}

func bindFlags(cmd *cobra.Command, opts *Options) {
	cmd.PersistentFlags().StringVarP(&opts.Root, "root", "r", opts.Root, "media root path")
	cmd.PersistentFlags().StringVarP(&opts.Mode, "mode", "m", opts.Mode, "delivery mode: random|sequential")
	cmd.PersistentFlags().StringVar(&opts.Sort, "sort", opts.Sort, "sort field: mtime|name|taken_at")
	cmd.PersistentFlags().StringVar(&opts.Direction, "direction", opts.Direction, "sort direction: asc|desc")
	cmd.PersistentFlags().StringVarP(&opts.Backend, "backend", "b", opts.Backend, "discovery backend: filesystem|indexed")
	cmd.PersistentFlags().StringVar(&opts.IndexBackend, "index-backend", opts.IndexBackend, "index store: sqlite|bleve")
	cmd.PersistentFlags().StringVarP(&opts.IndexPath, "index", "d", opts.IndexPath, "index path (default: <root>/.mcar)")
	cmd.PersistentFlags().IntVarP(&opts.Target, "target", "t", opts.Target, "target queue size")
	cmd.PersistentFlags().IntVar(&opts.MaxDepth, "max-depth", opts.MaxDepth, "scan depth cap (-1 for unlimited, 0 for root only)")
	cmd.PersistentFlags().IntVar(&opts.Estimated, "estimated-total", opts.Estimated, "user estimate of the collection size (0 for unknown)")
	cmd.PersistentFlags().StringSliceVar(&opts.PriorityPaths, "priority-path", nil, "path substring boosted during sampling (can repeat)")
	cmd.PersistentFlags().Float64Var(&opts.PriorityMultiplier, "priority-multiplier", opts.PriorityMultiplier, "admission boost for priority paths")
	cmd.PersistentFlags().BoolVar(&opts.PriorityRecent, "priority-recent", opts.PriorityRecent, "prefer recently indexed items in random batches")
	cmd.PersistentFlags().IntVar(&opts.RecentWindow, "recent-window", opts.RecentWindow, "recency window in seconds")
	cmd.PersistentFlags().IntVar(&opts.HistoryDepth, "history-depth", opts.HistoryDepth, "recent-delivery history size")
	cmd.PersistentFlags().DurationVar(&opts.ScanTimeout, "scan-timeout", opts.ScanTimeout, "per-call listing timeout")
	cmd.PersistentFlags().BoolVar(&opts.Jsonl, "jsonl", opts.Jsonl, "output as JSONL")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "V", opts.Verbose, "verbose logging")
}

func newDefaultOptions() *Options {
	return &Options{
		Root:     ".",
		MaxDepth: -1,
	}
}

// ExecuteForTest runs a command with captured output, returning the
// output, the normalized options and the execution error.
func ExecuteForTest(cmd *cobra.Command) (string, Options, error) {
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)

	err := cmd.Execute()

	opts := optionsFrom(cmd)
	if opts == nil {
		return out.String(), Options{}, err
	}
	opts.normalize()
	return out.String(), *opts, err
}
