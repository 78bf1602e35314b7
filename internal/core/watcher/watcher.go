// # internal/core/watcher/watcher.go
package watcher

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"pathref/internal/shared/observability"
	"pathref/internal/shared/util"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/gobwas/glob"
)

// Watcher reports batches of changed files under a set of roots. Writes are
// limited to source and build files; creations and removals of any file are
// reported. Directories are watched recursively; new directories are picked up
// as they appear.
type Watcher struct {
	fsWatcher    *fsnotify.Watcher
	debounce     time.Duration
	excludeDirs  []glob.Glob
	excludeFiles []glob.Glob
	filterMu     sync.RWMutex
	extensions   map[string]bool
	names        map[string]bool
	onChange     func([]string)
	callbackMu   sync.Mutex

	pending   map[string]struct{}
	pendingMu sync.Mutex
	timer     *time.Timer
	closeOnce sync.Once
}

func NewWatcher(debounce time.Duration, excludeDirs, excludeFiles []string, onChange func([]string)) (*Watcher, error) {
	if onChange == nil {
		return nil, os.ErrInvalid
	}
	dirs, err := util.CompileGlobs(excludeDirs)
	if err != nil {
		return nil, err
	}
	files, err := util.CompileGlobs(excludeFiles)
	if err != nil {
		return nil, err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &Watcher{
		fsWatcher:    fsw,
		debounce:     debounce,
		excludeDirs:  dirs,
		excludeFiles: files,
		names:        map[string]bool{"go.mod": true},
		onChange:     onChange,
		pending:      make(map[string]struct{}),
	}, nil
}

// SetFilters limits reported files to the given extensions (".go") and exact
// base names ("go.mod"). With no extensions every file is reported.
func (w *Watcher) SetFilters(extensions, names []string) {
	ext := make(map[string]bool, len(extensions))
	for _, e := range extensions {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		ext[e] = true
	}
	nm := make(map[string]bool, len(names))
	for _, n := range names {
		n = strings.ToLower(strings.TrimSpace(n))
		if n != "" {
			nm[n] = true
		}
	}
	w.filterMu.Lock()
	w.extensions = ext
	w.names = nm
	w.filterMu.Unlock()
}

func (w *Watcher) SetDebounce(debounce time.Duration) {
	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()
	w.debounce = debounce
}

// Watch registers roots and starts the event loop. The loop stops when ctx
// is done or the watcher is closed.
func (w *Watcher) Watch(ctx context.Context, roots []string) error {
	for _, root := range roots {
		if err := w.watchRecursive(root); err != nil {
			return err
		}
	}
	go w.run(ctx)
	return nil
}

// AddRoots registers more roots with a running watcher. Roots already
// watched are left as they are.
func (w *Watcher) AddRoots(roots []string) error {
	for _, root := range roots {
		if info, err := os.Stat(root); err != nil || !info.IsDir() {
			continue
		}
		if err := w.watchRecursive(root); err != nil {
			return err
		}
	}
	return nil
}

func (w *Watcher) watchRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && w.shouldExcludeDir(path) {
			return filepath.SkipDir
		}
		return w.fsWatcher.Add(path)
	})
}

func (w *Watcher) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			_ = w.Close()
			return
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			observability.WatcherEventsTotal.Inc()
			w.handle(event)
		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			slog.Error("watcher error", "error", err)
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if w.shouldExcludeDir(event.Name) {
				return
			}
			if err := w.watchRecursive(event.Name); err != nil {
				slog.Warn("failed to watch new directory", "path", event.Name, "error", err)
				return
			}
			w.enqueueExisting(event.Name)
			w.schedule(event.Name)
			return
		}
	}
	if w.ignoredFile(event.Name) {
		return
	}
	switch {
	case event.Has(fsnotify.Create) || event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename):
		// Any file appearing or disappearing can change what a path literal
		// resolves to, so the extension filter only applies to writes.
		w.schedule(event.Name)
	case event.Has(fsnotify.Write) && !w.shouldExcludeFile(event.Name):
		w.schedule(event.Name)
	}
}

func (w *Watcher) schedule(path string) {
	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()

	w.pending[path] = struct{}{}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.flush)
}

func (w *Watcher) flush() {
	w.pendingMu.Lock()
	paths := make([]string, 0, len(w.pending))
	for path := range w.pending {
		paths = append(paths, path)
	}
	w.pending = make(map[string]struct{})
	w.pendingMu.Unlock()

	if len(paths) == 0 {
		return
	}
	sort.Strings(paths)
	w.callbackMu.Lock()
	defer w.callbackMu.Unlock()
	w.onChange(paths)
}

func (w *Watcher) shouldExcludeDir(path string) bool {
	return util.MatchAny(w.excludeDirs, filepath.Base(path))
}

func (w *Watcher) ignoredFile(path string) bool {
	return util.MatchAny(w.excludeFiles, strings.ToLower(filepath.Base(path)))
}

// shouldExcludeFile reports whether content changes to path are dropped.
func (w *Watcher) shouldExcludeFile(path string) bool {
	if w.ignoredFile(path) {
		return true
	}
	base := strings.ToLower(filepath.Base(path))
	w.filterMu.RLock()
	defer w.filterMu.RUnlock()
	if w.names[base] {
		return false
	}
	if len(w.extensions) == 0 {
		return false
	}
	return !w.extensions[filepath.Ext(base)]
}

func (w *Watcher) enqueueExisting(root string) {
	_ = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if !w.ignoredFile(path) {
			w.schedule(path)
		}
		return nil
	})
}

func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		w.pendingMu.Lock()
		if w.timer != nil {
			w.timer.Stop()
		}
		w.pendingMu.Unlock()
		err = w.fsWatcher.Close()
	})
	return err
}
