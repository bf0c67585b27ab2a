package mcarcli

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"mediacarousel/internal/browse"
	"mediacarousel/internal/core/watch"
	"mediacarousel/internal/index/backend"
	"mediacarousel/internal/index/ingest"
)

func newIndexCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Index management",
	}

	cmd.AddCommand(newIndexBuildCommand())
	cmd.AddCommand(newIndexCountCommand())
	cmd.AddCommand(newIndexWatchCommand())
	return cmd
}

func newIndexBuildCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build [path]",
		Short: "Build (or rebuild) the local media index",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := optionsFrom(cmd)
			if opts == nil {
				return fmt.Errorf("options missing")
			}
			root := opts.Root
			if len(args) == 1 {
				root = args[0]
			}
			root, err := filepath.Abs(root)
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

			name := backend.NormalizeName(opts.IndexBackend)
			path := backend.NormalizePath(name, opts.IndexPath)
			if path == "" {
				path = backend.DefaultPath(root, name)
			}
			st, err := backend.Open(name, path)
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			n, err := ingest.Build(cmd.Context(), br, root, st, ingest.Options{
				CollectionID: root,
				MaxDepth:     opts.MaxDepth,
				Logger:       logger,
			})
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "indexed %d items into %s\n", n, path)
			return nil
		},
	}
	return cmd
}

func newIndexWatchCommand() *cobra.Command {
	var debounce time.Duration
	cmd := &cobra.Command{
		Use:   "watch [path]",
		Short: "Keep the index in sync with filesystem changes",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := optionsFrom(cmd)
			if opts == nil {
				return fmt.Errorf("options missing")
			}
			root := opts.Root
			if len(args) == 1 {
				root = args[0]
			}
			root, err := filepath.Abs(root)
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

			name := backend.NormalizeName(opts.IndexBackend)
			path := backend.NormalizePath(name, opts.IndexPath)
			if path == "" {
				path = backend.DefaultPath(root, name)
			}
			st, err := backend.Open(name, path)
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			w, err := watch.NewWatcher(root, watch.Options{
				Debounce:         debounce,
				AdaptiveDebounce: true,
				OnFolders: func(folders []string) {
					for _, f := range folders {
						if err := ingest.RefreshFolder(cmd.Context(), br, f, st, root); err != nil {
							logger.Warn("folder refresh failed",
								zap.String("folder", f), zap.Error(err))
							continue
						}
						logger.Info("folder refreshed", zap.String("folder", f))
					}
				},
			})
			if err != nil {
				return err
			}
			defer func() { _ = w.Close() }()

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "watching %s\n", root)
			return w.Run(cmd.Context())
		},
	}
	cmd.Flags().DurationVar(&debounce, "debounce", 0, "change coalescing delay (default 200ms)")
	return cmd
}

func newIndexCountCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "count [path]",
		Short: "Count indexed items for a root",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := optionsFrom(cmd)
			if opts == nil {
				return fmt.Errorf("options missing")
			}
			root := opts.Root
			if len(args) == 1 {
				root = args[0]
			}
			root, err := filepath.Abs(root)
			if err != nil {
				return err
			}

			name := backend.NormalizeName(opts.IndexBackend)
			path := backend.NormalizePath(name, opts.IndexPath)
			if path == "" {
				path = backend.DefaultPath(root, name)
			}
			st, err := backend.Open(name, path)
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			n, err := st.CountItems(root)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%d\n", n)
			return nil
		},
	}
	return cmd
}
