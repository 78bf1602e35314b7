package vfs

import (
	"path/filepath"
	"strings"

	"pathref/internal/engine/workspace"
	"pathref/internal/shared/util"
)

// PrefixIndex names packages from configured source roots. A source root
// directory carries its configured prefix; a directory below a root gets the
// prefix joined with its relative path components by ".".
type PrefixIndex struct {
	roots []indexedRoot
}

type indexedRoot struct {
	workspace.SourceRoot
	module string
}

func NewPrefixIndex(roots []workspace.SourceRoot) *PrefixIndex {
	idx := &PrefixIndex{}
	for _, r := range roots {
		idx.add("", r)
	}
	return idx
}

// PrefixIndexFor indexes every source root of every module in ws.
func PrefixIndexFor(ws *workspace.Workspace) *PrefixIndex {
	idx := &PrefixIndex{}
	for _, m := range ws.Modules() {
		for _, r := range m.SourceRoots {
			idx.add(m.Name, r)
		}
	}
	return idx
}

func (p *PrefixIndex) add(module string, r workspace.SourceRoot) {
	p.roots = append(p.roots, indexedRoot{
		SourceRoot: workspace.SourceRoot{Path: filepath.Clean(r.Path), PackagePrefix: r.PackagePrefix},
		module:     module,
	})
}

func (p *PrefixIndex) PackageName(dir Directory) string {
	return p.PackageNameIn("", dir)
}

// PackageNameIn names dir as seen from module. The innermost enclosing root
// wins; when several modules declare that same directory, the root of module
// is preferred over the first declaration.
func (p *PrefixIndex) PackageNameIn(module string, dir Directory) string {
	if dir.InArchive() || dir.Path == "" {
		return ""
	}
	target := filepath.Clean(dir.Path)

	var (
		best  indexedRoot
		found bool
	)
	for _, r := range p.roots {
		if !util.HasPathPrefix(target, r.Path) {
			continue
		}
		switch {
		case !found, len(r.Path) > len(best.Path):
			best, found = r, true
		case len(r.Path) == len(best.Path) && module != "" && r.module == module && best.module != module:
			best = r
		}
	}
	if !found {
		return ""
	}

	rel, err := filepath.Rel(best.Path, target)
	if err != nil || rel == "." {
		return best.PackagePrefix
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	if best.PackagePrefix != "" {
		parts = append([]string{best.PackagePrefix}, parts...)
	}
	return strings.Join(parts, ".")
}
