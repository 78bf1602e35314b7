package app

import (
	"context"
	"log/slog"
	"slices"

	"pathref/internal/core/config"
	"pathref/internal/core/watcher"
)

// StartWatcher watches the module source roots (and discovery roots) and
// feeds batches of changes to HandleChanges until ctx is done.
func (a *App) StartWatcher(ctx context.Context) error {
	st := a.engine()
	w, err := watcher.NewWatcher(
		st.cfg.Watch.Debounce,
		st.cfg.Exclude.Dirs,
		st.cfg.Exclude.Files,
		a.HandleChanges,
	)
	if err != nil {
		return err
	}
	w.SetFilters(st.extractor.SupportedExtensions(), []string{"go.mod"})

	a.watchMu.Lock()
	a.activeWatcher = w
	a.watchMu.Unlock()

	return w.Watch(ctx, watchRoots(st))
}

// refreshWatcher applies a rebuilt engine to the running watcher: new roots
// are added and the debounce follows the config. Roots that went away stay
// watched until restart.
func (a *App) refreshWatcher(prev *config.Config, next *engineState) {
	a.watchMu.Lock()
	w := a.activeWatcher
	a.watchMu.Unlock()
	if w == nil {
		return
	}

	w.SetDebounce(next.cfg.Watch.Debounce)
	w.SetFilters(next.extractor.SupportedExtensions(), []string{"go.mod"})
	if err := w.AddRoots(watchRoots(next)); err != nil {
		slog.Warn("failed to watch new roots", "error", err)
	}
	for _, key := range restartOnly(prev, next.cfg) {
		slog.Warn("config change takes effect after restart", "key", key)
	}
}

func watchRoots(st *engineState) []string {
	paths := append([]string(nil), scanRoots(st.workspace)...)
	if st.cfg.Discovery.GoModules {
		paths = append(paths, st.cfg.Discovery.Roots...)
	}
	return uniqueRoots(paths)
}

// restartOnly lists the changed settings a running App cannot apply.
func restartOnly(prev, next *config.Config) []string {
	var keys []string
	if !slices.Equal(prev.Exclude.Dirs, next.Exclude.Dirs) || !slices.Equal(prev.Exclude.Files, next.Exclude.Files) {
		keys = append(keys, "exclude (watcher)")
	}
	if prev.DB != next.DB {
		keys = append(keys, "db")
	}
	if prev.Caches.Archives != next.Caches.Archives {
		keys = append(keys, "caches.archives")
	}
	po, no := prev.Observability, next.Observability
	if po.Enabled != no.Enabled || po.Address != no.Address || po.OTLPEndpoint != no.OTLPEndpoint ||
		po.RateLimit != no.RateLimit || po.Burst != no.Burst || !slices.Equal(po.TrustedProxies, no.TrustedProxies) {
		keys = append(keys, "observability")
	}
	return keys
}
