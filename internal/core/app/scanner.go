package app

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"pathref/internal/core/ports"
	"pathref/internal/data/history"
	"pathref/internal/engine/provider"
	"pathref/internal/engine/roots"
	"pathref/internal/engine/workspace"
	"pathref/internal/shared/observability"
	"pathref/internal/shared/util"

	"go.opentelemetry.io/otel/trace"
)

// Scan resolves the references of every supported file under the source
// roots of every module, replacing the previous results.
func (a *App) Scan(ctx context.Context) (ports.ScanResult, error) {
	ctx, span := observability.Tracer.Start(ctx, "app.Scan")
	defer span.End()

	start := time.Now()
	st := a.engine()

	files, err := collectFiles(st)
	if err != nil {
		return ports.ScanResult{}, err
	}
	span.SetAttributes(observability.AttrRootCount.Int(len(files)))

	results, warnings, err := processFiles(ctx, st.provider, files)
	if err != nil {
		return ports.ScanResult{}, err
	}

	a.resultsMu.Lock()
	a.results = make(map[string]*provider.FileResult, len(results))
	for _, r := range results {
		a.results[r.Path] = r
	}
	a.resultsMu.Unlock()

	result := summarize(st.workspace, st.resolver, results)
	result.Timestamp = start.UTC()
	result.Duration = time.Since(start)
	result.Warnings = warnings

	if a.history != nil {
		id, err := a.history.SaveScan(st.cfg.DB.Project, historyRecord(result, results))
		if err != nil {
			slog.Warn("failed to record scan history", "error", err)
			result.Warnings = append(result.Warnings, "history: "+err.Error())
		} else {
			result.ScanID = id
		}
	}

	a.resultsMu.Lock()
	a.last = result
	a.resultsMu.Unlock()

	slog.Info("scan complete",
		"files", result.FilesScanned,
		"references", result.References,
		"unresolved", result.Unresolved,
		"stale_roots", len(result.StaleRoots),
		"duration", result.Duration,
	)
	return result, nil
}

// collectFiles walks the source roots of every module and returns the
// supported files, sorted and deduplicated.
func collectFiles(st *engineState) ([]string, error) {
	seen := make(map[string]bool)
	var files []string

	for _, root := range scanRoots(st.workspace) {
		info, err := os.Stat(root)
		if err != nil || !info.IsDir() {
			continue
		}
		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				slog.Warn("skipping unreadable path", "path", path, "error", err)
				if d != nil && d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if d.IsDir() {
				if path != root && util.MatchAny(st.excludeDirs, d.Name()) {
					return filepath.SkipDir
				}
				return nil
			}
			if seen[path] || util.MatchAny(st.excludeFiles, d.Name()) || !st.extractor.Supports(path) {
				return nil
			}
			seen[path] = true
			files = append(files, path)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	sort.Strings(files)
	return files, nil
}

// scanRoots returns the on-disk source roots of ws with nested roots
// folded into their outermost ancestor.
func scanRoots(ws *workspace.Workspace) []string {
	var paths []string
	for _, m := range ws.Modules() {
		for _, src := range m.SourceRoots {
			if strings.Contains(src.Path, "://") {
				continue
			}
			paths = append(paths, filepath.Clean(src.Path))
		}
	}
	return uniqueRoots(paths)
}

func uniqueRoots(paths []string) []string {
	sorted := append([]string(nil), paths...)
	sort.Strings(sorted)
	out := make([]string, 0, len(sorted))
	for _, p := range sorted {
		covered := false
		for _, kept := range out {
			if util.HasPathPrefix(p, kept) {
				covered = true
				break
			}
		}
		if !covered {
			out = append(out, p)
		}
	}
	return out
}

func processFiles(ctx context.Context, prov *provider.Provider, files []string) ([]*provider.FileResult, []string, error) {
	workers := runtime.GOMAXPROCS(0)
	if workers > len(files) {
		workers = len(files)
	}

	type outcome struct {
		idx    int
		result *provider.FileResult
		err    error
	}

	jobs := make(chan int)
	outcomes := make(chan outcome, len(files))
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				r, err := prov.ReferencesForFile(ctx, files[idx])
				outcomes <- outcome{idx: idx, result: r, err: err}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for i := range files {
			select {
			case <-ctx.Done():
				return
			case jobs <- i:
			}
		}
	}()
	wg.Wait()
	close(outcomes)

	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	ordered := make([]*provider.FileResult, len(files))
	var warnings []string
	for o := range outcomes {
		if o.err != nil {
			slog.Warn("failed to resolve file references", "path", files[o.idx], "error", o.err)
			warnings = append(warnings, files[o.idx]+": "+o.err.Error())
			continue
		}
		ordered[o.idx] = o.result
	}

	results := make([]*provider.FileResult, 0, len(files))
	for _, r := range ordered {
		if r != nil {
			results = append(results, r)
		}
	}
	sort.Strings(warnings)
	return results, warnings, nil
}

func summarize(ws *workspace.Workspace, resolver *roots.Resolver, results []*provider.FileResult) ports.ScanResult {
	result := ports.ScanResult{
		Modules:      ws.Len(),
		FilesScanned: len(results),
	}
	for _, m := range ws.Modules() {
		own := &workspace.Module{Name: m.Name, SourceRoots: m.SourceRoots, LibraryRoots: m.LibraryRoots}
		_, stats := resolver.Compute(own, true)
		result.Roots += stats.SourceRoots + stats.LibraryRoots
		result.StaleRoots = append(result.StaleRoots, stats.Stale...)
	}
	for _, r := range results {
		result.Literals += len(r.Sets)
		for _, set := range r.Sets {
			result.References += len(set.Set.References)
		}
		result.Unresolved += len(r.Diagnostics)
	}
	return result
}

func historyRecord(result ports.ScanResult, files []*provider.FileResult) history.Scan {
	scan := history.Scan{
		Timestamp:       result.Timestamp,
		ModuleCount:     result.Modules,
		RootCount:       result.Roots,
		StaleRootCount:  len(result.StaleRoots),
		FileCount:       result.FilesScanned,
		LiteralCount:    result.Literals,
		ReferenceCount:  result.References,
		UnresolvedCount: result.Unresolved,
	}
	for _, f := range files {
		for _, d := range f.Diagnostics {
			scan.Unresolved = append(scan.Unresolved, history.UnresolvedRef{
				Path:    d.Path,
				Line:    d.Line,
				Column:  d.Column,
				Literal: d.Literal,
				Segment: d.Text,
				Module:  f.Module,
			})
		}
	}
	return scan
}

// HandleChanges refreshes the results for changed files. A changed go.mod
// rebuilds the workspace and rescans everything. A file or directory that
// appeared or disappeared can change how literals elsewhere resolve, so it
// re-resolves every cached file as well.
func (a *App) HandleChanges(paths []string) {
	ctx, span := observability.Tracer.Start(context.Background(), "app.HandleChanges", trace.WithAttributes(
		observability.AttrRootCount.Int(len(paths)),
	))
	defer span.End()

	st := a.engine()
	if st.cfg.Discovery.GoModules && slices.ContainsFunc(paths, isGoMod) {
		if err := a.rebuild(nil); err != nil {
			slog.Error("failed to rebuild workspace", "error", err)
			return
		}
		if _, err := a.Scan(ctx); err != nil {
			slog.Error("rescan failed", "error", err)
			return
		}
		a.emitUpdate(ports.WatchUpdate{Changed: paths, WorkspaceRebuilt: true, Snapshot: a.snapshot()})
		return
	}

	refresh, structural := a.classifyChanges(st, paths)
	if structural {
		refresh = append(refresh, a.cachedPaths()...)
		slices.Sort(refresh)
		refresh = slices.Compact(refresh)
	}
	span.SetAttributes(observability.AttrStructural.Bool(structural))

	live := make([]string, 0, len(refresh))
	for _, p := range refresh {
		if _, err := os.Stat(p); err != nil {
			a.resultsMu.Lock()
			delete(a.results, p)
			a.resultsMu.Unlock()
			continue
		}
		if st.workspace.ModuleForFile(p) == nil || util.MatchAny(st.excludeFiles, filepath.Base(p)) {
			continue
		}
		live = append(live, p)
	}

	results, _, err := processFiles(ctx, st.provider, live)
	if err != nil {
		slog.Error("failed to refresh references", "error", err)
		return
	}
	a.resultsMu.Lock()
	for _, r := range results {
		a.results[r.Path] = r
	}
	a.resultsMu.Unlock()

	snap := a.snapshot()
	result := summarize(st.workspace, st.resolver, snap.Files)
	result.Timestamp = time.Now().UTC()
	a.resultsMu.Lock()
	a.last = result
	a.resultsMu.Unlock()
	snap.Result = result

	slog.Debug("references refreshed", "changed", len(paths), "refreshed", len(live), "structural", structural)
	a.emitUpdate(ports.WatchUpdate{Changed: paths, Snapshot: snap})
}

func isGoMod(path string) bool {
	return filepath.Base(path) == "go.mod"
}

// classifyChanges returns the changed source files as absolute paths and
// whether any path was created or removed rather than edited. Non-source
// paths only reach here on creation or removal.
func (a *App) classifyChanges(st *engineState, paths []string) ([]string, bool) {
	var sources []string
	structural := false
	for _, p := range paths {
		if abs, err := filepath.Abs(p); err == nil {
			p = abs
		}
		if isGoMod(p) || !st.extractor.Supports(p) {
			structural = true
			continue
		}
		_, statErr := os.Stat(p)
		a.resultsMu.RLock()
		_, known := a.results[p]
		a.resultsMu.RUnlock()
		if (statErr == nil) != known {
			structural = true
		}
		sources = append(sources, p)
	}
	return sources, structural
}

func (a *App) cachedPaths() []string {
	a.resultsMu.RLock()
	defer a.resultsMu.RUnlock()
	paths := make([]string, 0, len(a.results))
	for p := range a.results {
		paths = append(paths, p)
	}
	return paths
}

func (a *App) snapshot() ports.Snapshot {
	a.resultsMu.RLock()
	defer a.resultsMu.RUnlock()

	files := make([]*provider.FileResult, 0, len(a.results))
	for _, r := range a.results {
		files = append(files, r)
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return ports.Snapshot{Result: a.last, Files: files}
}
