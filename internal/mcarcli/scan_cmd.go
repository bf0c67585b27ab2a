package mcarcli

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"mediacarousel/internal/browse"
	"mediacarousel/internal/core/estimate"
	"mediacarousel/internal/core/queue"
	"mediacarousel/internal/core/sampler"
	"mediacarousel/internal/core/scan"
)

func newScanCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan [path]",
		Short: "Run one full scan and report what it would queue",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := optionsFrom(cmd)
			if opts == nil {
				return fmt.Errorf("options missing")
			}
			if len(args) == 1 {
				opts.Root = args[0]
			}
			root, err := filepath.Abs(opts.Root)
			if err != nil {
				return err
			}
			opts.Root = root

			cfg, err := opts.Config()
			if err != nil {
				return err
			}
			logger, err := opts.Logger()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			br, err := browse.NewFSBrowser(root)
			if err != nil {
				return err
			}

			q := queue.New(queue.Options{
				HistoryDepth: cfg.RecentHistoryDepth,
				Logger:       logger,
			})
			sc, err := scan.New(scan.Options{
				Browser:         br,
				Queue:           q,
				Sampler:         sampler.New(cfg.PriorityPathPatterns, cfg.PriorityPathMultiplier),
				Estimator:       estimate.New(cfg.EstimatedTotalSize),
				Mode:            cfg.Mode,
				MaxDepth:        cfg.ScanDepth(),
				TargetQueueSize: cfg.TargetQueueSize,
				SortDirection:   cfg.SortDirection,
				CallTimeout:     cfg.ScanTimeout,
				Logger:          logger,
			})
			if err != nil {
				return err
			}

			if err := sc.Run(cmd.Context()); err != nil {
				return err
			}

			if opts.Jsonl {
				enc := json.NewEncoder(cmd.OutOrStdout())
				for _, it := range q.Items() {
					if err := enc.Encode(it); err != nil {
						return err
					}
				}
				return nil
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "discovered %d files across %d folders, queued %d\n",
				sc.Discovered(), len(sc.Folders()), q.Len())
			for _, it := range q.Items() {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", it.Kind, it.ID)
			}
			return nil
		},
	}
	return cmd
}
