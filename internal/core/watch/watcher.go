// Package watch follows a media root with fsnotify and reports changed
// folders, debounced, so scanners and indexes can invalidate just the
// affected subtrees.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"mediacarousel/internal/model"
)

// indexDir holds index sidecar files under the media root; changes
// there must never feed back into the watcher.
const indexDir = ".mcar"

type Options struct {
	Debounce         time.Duration
	AdaptiveDebounce bool
	DebounceMin      time.Duration
	DebounceMax      time.Duration

	// OnFolders receives root-relative folder paths ("" is the root)
	// whose direct contents changed.
	OnFolders func(folders []string)
}

type Watcher struct {
	rootAbs   string
	debouncer *Debouncer
	debounce  time.Duration

	watcher   *fsnotify.Watcher
	closeOnce sync.Once
	closed    chan struct{}
}

func NewWatcher(root string, opts Options) (*Watcher, error) {
	rootAbs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	rootAbs = filepath.Clean(rootAbs)
	if strings.TrimSpace(rootAbs) == "" {
		return nil, fmt.Errorf("root is required")
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = 200 * time.Millisecond
	}
	minDelay := opts.DebounceMin
	if minDelay <= 0 {
		minDelay = 50 * time.Millisecond
	}
	maxDelay := opts.DebounceMax
	if maxDelay <= 0 {
		maxDelay = 500 * time.Millisecond
	}
	if maxDelay < minDelay {
		maxDelay = minDelay
	}

	w := &Watcher{
		rootAbs:   rootAbs,
		debouncer: NewDebouncer(debounce),
		debounce:  debounce,
		watcher:   fsw,
		closed:    make(chan struct{}),
	}
	if opts.AdaptiveDebounce {
		w.debouncer.SetDelayFunc(func(count int) time.Duration {
			switch {
			case count <= 10:
				return minDelay
			case count <= 100:
				return minDelay * 2
			case count <= 500:
				return minDelay * 4
			default:
				return maxDelay
			}
		})
	}
	if opts.OnFolders != nil {
		w.debouncer.OnFire(opts.OnFolders)
	}

	if err := w.addExistingDirs(); err != nil {
		_ = fsw.Close()
		return nil, err
	}
	return w, nil
}

func (w *Watcher) Debounce() time.Duration {
	if w == nil {
		return 0
	}
	return w.debounce
}

func (w *Watcher) Close() error {
	if w == nil {
		return nil
	}
	w.closeOnce.Do(func() { close(w.closed) })
	if w.watcher == nil {
		return nil
	}
	return w.watcher.Close()
}

func (w *Watcher) Run(ctx context.Context) error {
	if w == nil || w.watcher == nil {
		return fmt.Errorf("watcher is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-w.closed:
			return nil
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(ev)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			return err
		}
	}
}

func (w *Watcher) addExistingDirs() error {
	return filepath.WalkDir(w.rootAbs, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p == w.rootAbs {
			return w.watcher.Add(p)
		}
		rel, ok := w.toRel(p)
		if !ok || skipDir(rel) {
			return filepath.SkipDir
		}
		return w.watcher.Add(p)
	})
}

func (w *Watcher) handleEvent(ev fsnotify.Event) {
	rel, ok := w.toRel(ev.Name)
	if !ok || skipDir(rel) {
		return
	}

	if ev.Op&(fsnotify.Create|fsnotify.Rename) != 0 {
		if st, err := os.Stat(ev.Name); err == nil && st.IsDir() {
			_ = w.addDirRecursive(ev.Name)
			w.debouncer.Push(parentFolder(rel))
			return
		}
	}

	if _, media := model.KindOf(rel); !media && ev.Op&fsnotify.Remove == 0 {
		return
	}
	w.debouncer.Push(parentFolder(rel))
}

func (w *Watcher) toRel(abs string) (string, bool) {
	if strings.TrimSpace(abs) == "" {
		return "", false
	}
	abs = filepath.Clean(abs)
	rel, err := filepath.Rel(w.rootAbs, abs)
	if err != nil {
		return "", false
	}
	if rel == "." || strings.HasPrefix(rel, "..") {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

func (w *Watcher) addDirRecursive(absDir string) error {
	absDir = filepath.Clean(absDir)
	return filepath.WalkDir(absDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		rel, ok := w.toRel(p)
		if !ok {
			return nil
		}
		if skipDir(rel) {
			return filepath.SkipDir
		}
		return w.watcher.Add(p)
	})
}

func parentFolder(rel string) string {
	dir := path.Dir(rel)
	if dir == "." {
		return ""
	}
	return dir
}

func skipDir(rel string) bool {
	for _, part := range strings.Split(rel, "/") {
		if part == indexDir || strings.HasPrefix(part, ".") {
			return true
		}
	}
	return false
}
