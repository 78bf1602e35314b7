package app

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"pathref/internal/core/config"
	"pathref/internal/core/ports"
	"pathref/internal/core/watcher"
	"pathref/internal/data/history"
	"pathref/internal/engine/literal"
	"pathref/internal/engine/provider"
	"pathref/internal/engine/roots"
	"pathref/internal/engine/vfs"
	"pathref/internal/engine/workspace"
	"pathref/internal/shared/util"

	"github.com/gobwas/glob"
)

// App ties the workspace model to the root resolver, the literal extractor
// and the reference provider, and keeps the results of the last scan.
type App struct {
	fs      *vfs.FSResolver
	history ports.HistoryStore

	engineMu sync.RWMutex
	state    *engineState
	// rebuildMu serializes config reloads and go.mod driven rebuilds.
	rebuildMu sync.Mutex

	resultsMu sync.RWMutex
	results   map[string]*provider.FileResult
	last      ports.ScanResult

	updateMu sync.RWMutex
	onUpdate func(ports.WatchUpdate)

	watchMu       sync.Mutex
	activeWatcher *watcher.Watcher
}

// engineState is everything derived from one config. It is replaced as a
// whole and never mutated after construction.
type engineState struct {
	cfg          *config.Config
	extractor    *literal.Extractor
	excludeDirs  []glob.Glob
	excludeFiles []glob.Glob
	workspace    *workspace.Workspace
	resolver     *roots.Resolver
	provider     *provider.Provider
}

func New(cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	a := &App{
		fs:      vfs.NewFSResolver(cfg.Caches.Archives),
		results: make(map[string]*provider.FileResult),
	}
	state, err := a.buildEngine(cfg, nil)
	if err != nil {
		return nil, err
	}
	a.state = state

	if cfg.DB.Enabled {
		store, err := history.Open(cfg.DB.Path)
		if err != nil {
			return nil, err
		}
		a.history = store
	}
	return a, nil
}

// SetHistoryStore replaces the scan history backend. A nil store disables
// history.
func (a *App) SetHistoryStore(store ports.HistoryStore) {
	a.history = store
}

func (a *App) SetUpdateHandler(handler func(ports.WatchUpdate)) {
	a.updateMu.Lock()
	defer a.updateMu.Unlock()
	a.onUpdate = handler
}

func (a *App) emitUpdate(update ports.WatchUpdate) {
	a.updateMu.RLock()
	handler := a.onUpdate
	a.updateMu.RUnlock()
	if handler != nil {
		handler(update)
	}
}

// buildEngine derives a complete engine state from cfg. The literal
// extractor of prev, and with it the literal cache, is kept when the
// language set is unchanged.
func (a *App) buildEngine(cfg *config.Config, prev *engineState) (*engineState, error) {
	var extractor *literal.Extractor
	if prev != nil &&
		slices.Equal(prev.cfg.References.Languages, cfg.References.Languages) &&
		prev.cfg.Caches.Literals == cfg.Caches.Literals {
		extractor = prev.extractor
	} else {
		loader, err := literal.NewGrammarLoader(cfg.References.Languages)
		if err != nil {
			return nil, err
		}
		extractor = literal.NewExtractor(loader, cfg.Caches.Literals)
	}
	excludeDirs, err := util.CompileGlobs(cfg.Exclude.Dirs)
	if err != nil {
		return nil, fmt.Errorf("exclude dirs: %w", err)
	}
	excludeFiles, err := util.CompileGlobs(cfg.Exclude.Files)
	if err != nil {
		return nil, fmt.Errorf("exclude files: %w", err)
	}

	ws, err := buildWorkspace(cfg)
	if err != nil {
		return nil, err
	}
	resolver := roots.NewResolver(a.fs, vfs.PrefixIndexFor(ws))
	slog.Debug("workspace built", "modules", ws.Len())

	return &engineState{
		cfg:          cfg,
		extractor:    extractor,
		excludeDirs:  excludeDirs,
		excludeFiles: excludeFiles,
		workspace:    ws,
		resolver:     resolver,
		provider:     provider.New(ws, resolver, a.fs, extractor, cfg.References.IsSoft()),
	}, nil
}

// rebuild swaps in an engine built from cfg and extends the file watcher to
// any new roots. A nil cfg rebuilds from the config active at that moment.
// The current engine stays active when the build fails.
func (a *App) rebuild(cfg *config.Config) error {
	a.rebuildMu.Lock()
	defer a.rebuildMu.Unlock()

	prev := a.engine()
	if cfg == nil {
		cfg = prev.cfg
	}
	next, err := a.buildEngine(cfg, prev)
	if err != nil {
		return err
	}
	a.engineMu.Lock()
	a.state = next
	a.engineMu.Unlock()

	a.refreshWatcher(prev.cfg, next)
	return nil
}

func buildWorkspace(cfg *config.Config) (*workspace.Workspace, error) {
	ws, err := workspace.FromConfig(cfg)
	if err != nil {
		return nil, err
	}
	if cfg.Discovery.GoModules {
		searchRoots := cfg.Discovery.Roots
		if len(searchRoots) == 0 && cfg.Paths.ProjectRoot != "" {
			searchRoots = []string{cfg.Paths.ProjectRoot}
		}
		discovered, err := workspace.DiscoverGoModules(searchRoots, cfg.Exclude.Dirs)
		if err != nil {
			return nil, err
		}
		for _, name := range ws.Merge(discovered) {
			slog.Debug("discovered module already declared in config", "module", name)
		}
	}
	if err := ws.Validate(); err != nil {
		return nil, err
	}
	return ws, nil
}

// ReloadConfig replaces the config and rebuilds the workspace, literal
// extractor and exclude patterns. The previous config stays active when the
// rebuild fails. History, archive cache and watcher exclude settings only
// change on restart.
func (a *App) ReloadConfig(cfg *config.Config) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}
	return a.rebuild(cfg)
}

// Config returns the active config. Callers must not modify it.
func (a *App) Config() *config.Config {
	return a.engine().cfg
}

func (a *App) engine() *engineState {
	a.engineMu.RLock()
	defer a.engineMu.RUnlock()
	return a.state
}

// Close stops the file watcher and releases the history store and archive
// readers.
func (a *App) Close(context.Context) error {
	var firstErr error
	a.watchMu.Lock()
	w := a.activeWatcher
	a.watchMu.Unlock()
	if w != nil {
		if err := w.Close(); err != nil {
			firstErr = err
		}
	}
	if a.history != nil {
		if err := a.history.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	a.fs.Close()
	return firstErr
}
