// Package ingest builds and refreshes index collections from a media
// tree, one folder listing at a time.
package ingest

import (
	"context"
	"fmt"
	"path"
	"strings"

	"go.uber.org/zap"

	"mediacarousel/internal/browse"
	"mediacarousel/internal/config"
	"mediacarousel/internal/index/store"
)

type Options struct {
	CollectionID string
	MaxDepth     int
	Logger       *zap.Logger
}

// Build walks the whole tree and upserts every media file into the
// store. Returns the number of items ingested.
func Build(ctx context.Context, br browse.TreeBrowser, root string, st store.Store, opts Options) (int, error) {
	if br == nil {
		return 0, fmt.Errorf("browser is required")
	}
	if st == nil {
		return 0, fmt.Errorf("store is required")
	}
	collectionID := strings.TrimSpace(opts.CollectionID)
	if collectionID == "" {
		collectionID = root
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	maxDepth := opts.MaxDepth
	if maxDepth == 0 {
		maxDepth = config.UnlimitedDepth
	}

	if err := st.EnsureCollection(collectionID, root); err != nil {
		return 0, err
	}

	in := &ingester{
		browser:      br,
		store:        st,
		collectionID: collectionID,
		maxDepth:     maxDepth,
		logger:       logger,
	}
	if err := in.walk(ctx, "", 0); err != nil {
		return in.count, err
	}
	logger.Info("ingest complete",
		zap.String("collection", collectionID),
		zap.Int("items", in.count))
	return in.count, nil
}

// RefreshFolder re-lists a single folder and replaces its direct items,
// deleting entries for files that no longer exist.
func RefreshFolder(ctx context.Context, br browse.TreeBrowser, folder string, st store.Store, collectionID string) error {
	if br == nil || st == nil {
		return fmt.Errorf("browser and store are required")
	}
	listing, err := br.ListChildren(ctx, folder)
	if err != nil {
		return fmt.Errorf("list %q: %w", folder, err)
	}

	items := folderItems(folder, listing)
	keep := make(map[string]struct{}, len(items))
	for _, it := range items {
		keep[it.ID] = struct{}{}
	}

	existing, err := st.OrderedItems(collectionID, store.OrderedQuery{
		Count:        maxFolderItems,
		FolderFilter: folder,
		OrderBy:      "name",
	})
	if err != nil {
		return err
	}
	var deleteIDs []string
	for _, it := range existing {
		if it.Folder != folder {
			continue // subfolder item, not ours to touch
		}
		if _, ok := keep[it.ID]; !ok {
			deleteIDs = append(deleteIDs, it.ID)
		}
	}

	return st.ReplaceItemsBatch(collectionID, items, deleteIDs)
}

const maxFolderItems = 100000

type ingester struct {
	browser      browse.TreeBrowser
	store        store.Store
	collectionID string
	maxDepth     int
	logger       *zap.Logger
	count        int
}

func (in *ingester) walk(ctx context.Context, folder string, depth int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	listing, err := in.browser.ListChildren(ctx, folder)
	if err != nil {
		if depth == 0 {
			return fmt.Errorf("list root: %w", err)
		}
		in.logger.Warn("skipping unreadable folder",
			zap.String("folder", folder), zap.Error(err))
		return nil
	}

	items := folderItems(folder, listing)
	if len(items) > 0 {
		if err := in.store.ReplaceItemsBatch(in.collectionID, items, nil); err != nil {
			return err
		}
		in.count += len(items)
	}

	if in.maxDepth != config.UnlimitedDepth && depth >= in.maxDepth {
		return nil
	}
	for _, sub := range listing.Folders {
		if err := in.walk(ctx, path.Join(folder, sub), depth+1); err != nil {
			return err
		}
	}
	return nil
}

func folderItems(folder string, listing browse.Listing) []store.Item {
	out := make([]store.Item, 0, len(listing.Files))
	for _, f := range listing.Files {
		mtime := f.MTime.Unix()
		out = append(out, store.Item{
			ID:     path.Join(folder, f.Name),
			Folder: folder,
			Name:   f.Name,
			Kind:   string(f.Kind),
			Size:   f.Size,
			MTime:  mtime,
			// taken_at falls back to mtime until richer metadata is extracted
			TakenAt: mtime,
		})
	}
	return out
}
