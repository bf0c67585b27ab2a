// Package store defines the indexed query service contract the indexed
// providers consume, with interchangeable sqlite and bleve backends.
package store

import (
	"fmt"
	"time"
)

type Item struct {
	CollectionID string
	// ID is the root-relative slash path; stable across backends.
	ID      string
	Folder  string
	Name    string
	Kind    string
	Size    int64
	MTime   int64
	TakenAt int64
}

// Cursor is the opaque "last seen sort value" pagination token. Nil means
// start of sequence; requests return items strictly after (Value, ID).
type Cursor struct {
	Value string
	ID    string
}

type RandomQuery struct {
	Count        int
	FolderFilter string
	// PriorityRecent asks for recently indexed items first, topping up
	// from the full pool when the recent window runs short.
	PriorityRecent bool
	RecentWindow   time.Duration
}

type OrderedQuery struct {
	Count        int
	FolderFilter string
	OrderBy      string // mtime | name | taken_at
	Direction    string // asc | desc
	After        *Cursor
}

type Store interface {
	Close() error
	Backend() string

	EnsureCollection(id string, root string) error
	UpsertItem(collectionID string, it Item) error
	DeleteItem(collectionID string, id string) error
	ReplaceItemsBatch(collectionID string, items []Item, deleteIDs []string) error
	CountItems(collectionID string) (int, error)

	RandomItems(collectionID string, q RandomQuery) ([]Item, error)
	OrderedItems(collectionID string, q OrderedQuery) ([]Item, error)
	GetMetadata(collectionID string, id string) (Item, bool, error)
}

// SortValue renders the item's value of a sort field as a string that
// orders lexicographically, suitable for cursors across backends.
func SortValue(it Item, orderBy string) string {
	switch orderBy {
	case "name":
		return it.Name
	case "taken_at":
		return fmt.Sprintf("%020d", it.TakenAt)
	default:
		return fmt.Sprintf("%020d", it.MTime)
	}
}

// ValidOrderBy normalizes a sort field, defaulting to mtime.
func ValidOrderBy(orderBy string) (string, error) {
	switch orderBy {
	case "", "mtime":
		return "mtime", nil
	case "name", "taken_at":
		return orderBy, nil
	default:
		return "", fmt.Errorf("invalid order field %q (expected: mtime|name|taken_at)", orderBy)
	}
}
