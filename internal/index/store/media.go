package store

import (
	"time"

	"mediacarousel/internal/model"
)

// ToMedia converts an indexed item into the queue-facing media type.
// SortKey carries the item's value for the given sort field so callers
// can advance a cursor from the served item alone.
func ToMedia(it Item, orderBy string) model.MediaItem {
	return model.MediaItem{
		ID:           it.ID,
		DisplayName:  it.Name,
		Kind:         model.MediaKind(it.Kind),
		FolderPath:   it.Folder,
		DiscoveredAt: time.Now(),
		SortKey:      SortValue(it, orderBy),
	}
}
