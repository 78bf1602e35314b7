package app

import (
	"context"
	"time"

	"pathref/internal/core/errors"
	"pathref/internal/core/ports"
	"pathref/internal/data/history"
	"pathref/internal/engine/provider"
	"pathref/internal/shared/observability"

	"go.opentelemetry.io/otel/trace"
)

var _ ports.ReferenceService = (*App)(nil)

func (a *App) Modules(ctx context.Context) ([]ports.ModuleSummary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	mods := a.engine().workspace.Modules()
	out := make([]ports.ModuleSummary, 0, len(mods))
	for _, m := range mods {
		s := ports.ModuleSummary{
			Name:         m.Name,
			SourceRoots:  make([]string, 0, len(m.SourceRoots)),
			LibraryRoots: append([]string{}, m.LibraryRoots...),
			Dependencies: make([]string, 0, len(m.Dependencies)),
		}
		for _, src := range m.SourceRoots {
			s.SourceRoots = append(s.SourceRoots, src.Path)
		}
		for _, dep := range m.Dependencies {
			s.Dependencies = append(s.Dependencies, dep.Name)
		}
		out = append(out, s)
	}
	return out, nil
}

// Roots computes the default contexts of the named module.
func (a *App) Roots(ctx context.Context, req ports.RootsRequest) (ports.RootsResult, error) {
	_, span := observability.Tracer.Start(ctx, "app.Roots", trace.WithAttributes(
		observability.AttrModule.String(req.Module),
		observability.AttrLibraries.Bool(req.IncludeLibraries),
	))
	defer span.End()

	if err := ctx.Err(); err != nil {
		return ports.RootsResult{}, err
	}
	st := a.engine()
	m := st.workspace.Module(req.Module)
	if m == nil {
		err := errors.Newf(errors.CodeNotFound, "unknown module %q", req.Module)
		return ports.RootsResult{}, errors.AddContext(err, errors.CtxModule, req.Module)
	}
	list, stats := st.resolver.Compute(m, req.IncludeLibraries)
	span.SetAttributes(observability.AttrRootCount.Int(len(list)))
	return ports.RootsResult{Module: m.Name, Roots: list, Stats: stats}, nil
}

// FileReferences resolves one file on demand without touching the cached
// scan results.
func (a *App) FileReferences(ctx context.Context, path string) (*provider.FileResult, error) {
	return a.engine().provider.ReferencesForFile(ctx, path)
}

// Summary returns the result of the last scan or change batch.
func (a *App) Summary() ports.ScanResult {
	a.resultsMu.RLock()
	defer a.resultsMu.RUnlock()
	return a.last
}

func (a *App) Snapshot(ctx context.Context) (ports.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return ports.Snapshot{}, err
	}
	return a.snapshot(), nil
}

// History returns recorded scans of the configured project since the given
// time. It fails with NOT_SUPPORTED when history is disabled.
func (a *App) History(ctx context.Context, since time.Time) ([]history.Scan, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if a.history == nil {
		return nil, errors.New(errors.CodeNotSupported, "scan history is disabled")
	}
	return a.history.LoadScans(a.Config().DB.Project, since)
}

// Unresolved returns the unresolved references stored with a scan.
func (a *App) Unresolved(ctx context.Context, scanID string) ([]history.UnresolvedRef, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if a.history == nil {
		return nil, errors.New(errors.CodeNotSupported, "scan history is disabled")
	}
	return a.history.UnresolvedForScan(scanID)
}
