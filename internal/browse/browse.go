// Package browse implements the remote-tree collaborators the discovery
// engine walks: a TreeBrowser listing one folder at a time and a
// MediaResolver turning item IDs into playable URLs.
package browse

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	gitignore "github.com/go-git/go-git/v5/plumbing/format/gitignore"

	"mediacarousel/internal/model"
)

const ignoreFile = ".mediaignore"

type FileEntry struct {
	Name  string
	Kind  model.MediaKind
	Size  int64
	MTime time.Time
}

type Listing struct {
	Files   []FileEntry
	Folders []string
}

// TreeBrowser lists the children of one folder of the media tree. Paths
// are slash-separated and relative to the tree root; "" is the root.
// Listing may fail or time out; callers treat that as an empty subtree.
type TreeBrowser interface {
	ListChildren(ctx context.Context, folder string) (Listing, error)
}

// FSBrowser walks a billy filesystem: osfs in production, memfs in tests.
// Hidden entries and .mediaignore matches are never listed.
type FSBrowser struct {
	fs      billy.Filesystem
	matcher gitignore.Matcher
}

func NewFSBrowser(root string) (*FSBrowser, error) {
	root = filepath.Clean(root)
	if strings.TrimSpace(root) == "" {
		return nil, fmt.Errorf("root is required")
	}
	if st, err := os.Stat(root); err != nil {
		return nil, fmt.Errorf("media root: %w", err)
	} else if !st.IsDir() {
		return nil, fmt.Errorf("media root %s is not a directory", root)
	}
	return NewBillyBrowser(osfs.New(root))
}

func NewBillyBrowser(fs billy.Filesystem) (*FSBrowser, error) {
	if fs == nil {
		return nil, fmt.Errorf("filesystem is required")
	}
	b := &FSBrowser{fs: fs}
	b.matcher = loadIgnore(fs)
	return b, nil
}

func (b *FSBrowser) ListChildren(ctx context.Context, folder string) (Listing, error) {
	if b == nil || b.fs == nil {
		return Listing{}, fmt.Errorf("browser is not initialized")
	}
	if err := ctx.Err(); err != nil {
		return Listing{}, err
	}

	folder = strings.Trim(path.Clean("/"+folder), "/")
	dir := folder
	if dir == "" {
		dir = "."
	}

	infos, err := b.fs.ReadDir(dir)
	if err != nil {
		return Listing{}, err
	}

	var out Listing
	for _, info := range infos {
		name := info.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}
		rel := name
		if folder != "" {
			rel = folder + "/" + name
		}
		if b.ignored(rel, info.IsDir()) {
			continue
		}

		if info.IsDir() {
			out.Folders = append(out.Folders, name)
			continue
		}
		kind, ok := model.KindOf(name)
		if !ok {
			continue
		}
		out.Files = append(out.Files, FileEntry{
			Name:  name,
			Kind:  kind,
			Size:  info.Size(),
			MTime: info.ModTime(),
		})
	}

	sort.Slice(out.Files, func(i, j int) bool { return out.Files[i].Name < out.Files[j].Name })
	sort.Strings(out.Folders)
	return out, nil
}

func (b *FSBrowser) ignored(rel string, isDir bool) bool {
	if b.matcher == nil {
		return false
	}
	return b.matcher.Match(strings.Split(rel, "/"), isDir)
}

// loadIgnore reads .mediaignore at the tree root, gitignore syntax. A
// missing or unreadable file means no extra exclusions.
func loadIgnore(fs billy.Filesystem) gitignore.Matcher {
	f, err := fs.Open(ignoreFile)
	if err != nil {
		return nil
	}
	defer f.Close()

	raw, err := io.ReadAll(f)
	if err != nil {
		return nil
	}
	var patterns []gitignore.Pattern
	for _, line := range strings.Split(string(raw), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, gitignore.ParsePattern(line, nil))
	}
	if len(patterns) == 0 {
		return nil
	}
	return gitignore.NewMatcher(patterns)
}

// MediaResolver turns an item ID into a playable URL, consumed lazily per
// displayed item.
type MediaResolver interface {
	ResolvePlayableURL(ctx context.Context, itemID string) (string, error)
}

// FileResolver serves file:// URLs for items identified by their
// root-relative path.
type FileResolver struct {
	Root string
}

func (r FileResolver) ResolvePlayableURL(_ context.Context, itemID string) (string, error) {
	if strings.TrimSpace(itemID) == "" {
		return "", fmt.Errorf("item id is required")
	}
	abs := filepath.Join(r.Root, filepath.FromSlash(itemID))
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}
	return u.String(), nil
}
