package mcarcli

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"mediacarousel/internal/browse"
	"mediacarousel/internal/provider"
)

func newNextCommand() *cobra.Command {
	var count int
	var wait time.Duration
	cmd := &cobra.Command{
		Use:   "next [path]",
		Short: "Serve the next item(s) from the configured provider",
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

			r, err := provider.NewRouter(provider.RouterOptions{
				Config:       cfg,
				Logger:       logger,
				IndexBackend: opts.IndexBackend,
				IndexPath:    opts.IndexPath,
			})
			if err != nil {
				return err
			}
			if err := r.Initialize(cmd.Context()); err != nil {
				return err
			}
			defer func() { _ = r.Close() }()

			resolver := browse.FileResolver{Root: root}
			enc := json.NewEncoder(cmd.OutOrStdout())
			deadline := time.Now().Add(wait)

			served := 0
			for served < count {
				it, err := r.Next(cmd.Context())
				if err != nil {
					return err
				}
				if it == nil {
					// A dry queue during a warm-up scan is normal; give
					// the background walk a moment before giving up.
					if time.Now().After(deadline) {
						break
					}
					time.Sleep(50 * time.Millisecond)
					continue
				}
				served++

				if opts.Jsonl {
					if err := enc.Encode(it); err != nil {
						return err
					}
					continue
				}
				url, err := resolver.ResolvePlayableURL(cmd.Context(), it.ID)
				if err != nil {
					url = it.ID
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", it.Kind, it.ID, url)
			}
			if served == 0 {
				_, _ = fmt.Fprintln(cmd.ErrOrStderr(), "no items")
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&count, "count", "n", 1, "number of items to serve")
	cmd.Flags().DurationVar(&wait, "wait", 5*time.Second, "how long to wait for the first items")
	return cmd
}
