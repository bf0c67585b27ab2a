package model

import (
	"path"
	"strings"
	"time"
)

type MediaKind string

const (
	KindImage MediaKind = "image"
	KindVideo MediaKind = "video"
)

// MediaItem is one displayable entry. Immutable once produced; owned by
// whichever queue currently buffers it.
type MediaItem struct {
	ID           string    `json:"id"`
	DisplayName  string    `json:"display_name"`
	Kind         MediaKind `json:"kind"`
	FolderPath   string    `json:"folder_path"`
	DiscoveredAt time.Time `json:"discovered_at"`
	SortKey      string    `json:"sort_key,omitempty"`
}

// FolderDescriptor is produced once per scanned folder, cached for a
// scanner's lifetime and replaced wholesale on rescan.
type FolderDescriptor struct {
	Path      string
	Depth     int
	FileCount int
	Files     []MediaItem
	Weight    float64
}

type Metadata struct {
	ID      string    `json:"id"`
	Path    string    `json:"path"`
	Name    string    `json:"name"`
	Kind    MediaKind `json:"kind"`
	Size    int64     `json:"size"`
	MTime   int64     `json:"mtime"`
	TakenAt int64     `json:"taken_at,omitempty"`
}

var imageExts = map[string]struct{}{
	".jpg": {}, ".jpeg": {}, ".png": {}, ".gif": {}, ".webp": {},
	".bmp": {}, ".heic": {}, ".heif": {}, ".tiff": {}, ".avif": {},
}

var videoExts = map[string]struct{}{
	".mp4": {}, ".mkv": {}, ".avi": {}, ".mov": {}, ".webm": {},
	".m4v": {}, ".mpg": {}, ".mpeg": {}, ".wmv": {}, ".ts": {},
}

// KindOf reports the media kind for a path and whether the extension is a
// supported media type at all.
func KindOf(p string) (MediaKind, bool) {
	ext := strings.ToLower(path.Ext(p))
	if _, ok := imageExts[ext]; ok {
		return KindImage, true
	}
	if _, ok := videoExts[ext]; ok {
		return KindVideo, true
	}
	return "", false
}
