package roots

import (
	"log/slog"
	"time"

	"pathref/internal/engine/vfs"
	"pathref/internal/engine/workspace"
	"pathref/internal/shared/observability"
)

type Kind int

const (
	PlainDirectory Kind = iota
	PackagePrefixedDirectory
)

func (k Kind) String() string {
	switch k {
	case PackagePrefixedDirectory:
		return "package_prefixed"
	default:
		return "plain"
	}
}

// Root is one default resolution context. Prefix is set only for
// PackagePrefixedDirectory roots.
type Root struct {
	Kind    Kind
	Dir     vfs.Directory
	Prefix  string
	Module  string
	Library bool
}

func (r Root) Path() string {
	return r.Dir.String()
}

// StaleRoot is a declared root that did not resolve to a directory.
type StaleRoot struct {
	Module string
	ID     string
	Kind   string // "library" or "source"
}

// Stats describes one ComputeRoots call.
type Stats struct {
	ScannedModules int
	LibraryRoots   int
	SourceRoots    int
	Stale          []StaleRoot
}

// Resolver computes resolution contexts. It holds no per-query state and is
// safe for concurrent use as long as the modules passed in are not mutated
// during a call.
type Resolver struct {
	dirs     vfs.DirectoryResolver
	packages vfs.PackageNamer
}

func NewResolver(dirs vfs.DirectoryResolver, packages vfs.PackageNamer) *Resolver {
	return &Resolver{dirs: dirs, packages: packages}
}

// ComputeRoots returns the library roots of module (when includeLibraries is
// set) followed by the source roots of module and each of its transitive
// dependencies, self first. Roots that no longer resolve are left out.
// A nil module yields an empty result.
func (r *Resolver) ComputeRoots(module *workspace.Module, includeLibraries bool) []Root {
	roots, _ := r.Compute(module, includeLibraries)
	return roots
}

// Compute is ComputeRoots with the per-call Stats.
func (r *Resolver) Compute(module *workspace.Module, includeLibraries bool) ([]Root, Stats) {
	var stats Stats
	if module == nil {
		return []Root{}, stats
	}

	start := time.Now()
	defer func() {
		observability.RootsComputedTotal.Inc()
		observability.RootResolutionDuration.Observe(time.Since(start).Seconds())
	}()

	scan := append([]*workspace.Module{module}, workspace.TransitiveDependencies(module)...)
	stats.ScannedModules = len(scan)

	result := make([]Root, 0)
	if includeLibraries {
		for _, id := range module.LibraryRoots {
			dir, ok := r.dirs.ResolveDirectory(id)
			if !ok {
				stats.Stale = append(stats.Stale, r.stale(module.Name, id, "library"))
				continue
			}
			result = append(result, Root{Kind: PlainDirectory, Dir: dir, Module: module.Name, Library: true})
			stats.LibraryRoots++
		}
	}

	for _, m := range scan {
		for _, src := range m.SourceRoots {
			dir, ok := r.dirs.ResolveDirectory(src.Path)
			if !ok {
				stats.Stale = append(stats.Stale, r.stale(m.Name, src.Path, "source"))
				continue
			}
			root := Root{Kind: PlainDirectory, Dir: dir, Module: m.Name}
			if name := r.packageName(m.Name, dir); name != "" {
				root.Kind = PackagePrefixedDirectory
				root.Prefix = name
			}
			result = append(result, root)
			stats.SourceRoots++
		}
	}
	return result, stats
}

func (r *Resolver) packageName(module string, dir vfs.Directory) string {
	if named, ok := r.packages.(vfs.ModulePackageNamer); ok {
		return named.PackageNameIn(module, dir)
	}
	return r.packages.PackageName(dir)
}

func (r *Resolver) stale(module, id, kind string) StaleRoot {
	slog.Debug("skipping stale root", "module", module, "root", id, "kind", kind)
	observability.StaleRootsTotal.WithLabelValues(kind).Inc()
	return StaleRoot{Module: module, ID: id, Kind: kind}
}
