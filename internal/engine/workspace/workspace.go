package workspace

import (
	"path/filepath"

	"pathref/internal/core/errors"
	"pathref/internal/shared/util"
)

// Module is a named compilation unit. Dependencies keep their declared order.
type Module struct {
	Name         string
	SourceRoots  []SourceRoot
	LibraryRoots []string
	Dependencies []*Module
}

// SourceRoot is a directory treated as the base of a package hierarchy.
type SourceRoot struct {
	Path          string
	PackagePrefix string
}

// DependsOn reports whether dep is a direct dependency of m.
func (m *Module) DependsOn(dep *Module) bool {
	for _, d := range m.Dependencies {
		if d == dep {
			return true
		}
	}
	return false
}

func (m *Module) addDependency(dep *Module) {
	if dep == nil || dep == m || m.DependsOn(dep) {
		return
	}
	m.Dependencies = append(m.Dependencies, dep)
}

// Workspace is the registry of modules in declaration order.
type Workspace struct {
	modules []*Module
	byName  map[string]*Module
}

func New() *Workspace {
	return &Workspace{byName: make(map[string]*Module)}
}

// Add registers m. Module names are unique within a workspace.
func (w *Workspace) Add(m *Module) error {
	if m == nil || m.Name == "" {
		return errors.New(errors.CodeValidationError, "module name must not be empty")
	}
	if _, exists := w.byName[m.Name]; exists {
		return errors.AddContext(errors.Newf(errors.CodeConflict, "duplicate module name %q", m.Name), errors.CtxModule, m.Name)
	}
	w.modules = append(w.modules, m)
	w.byName[m.Name] = m
	return nil
}

// Link appends the module named to as a dependency of the module named from.
// Linking the same pair twice is a no-op.
func (w *Workspace) Link(from, to string) error {
	src, ok := w.byName[from]
	if !ok {
		return errors.AddContext(errors.Newf(errors.CodeNotFound, "module %q not found", from), errors.CtxModule, from)
	}
	dst, ok := w.byName[to]
	if !ok {
		err := errors.Newf(errors.CodeValidationError, "module %q depends on unknown module %q", from, to)
		return errors.AddContext(err, errors.CtxModule, from)
	}
	src.addDependency(dst)
	return nil
}

func (w *Workspace) Module(name string) *Module {
	return w.byName[name]
}

// Modules returns the registered modules in declaration order.
func (w *Workspace) Modules() []*Module {
	out := make([]*Module, len(w.modules))
	copy(out, w.modules)
	return out
}

func (w *Workspace) Len() int {
	return len(w.modules)
}

// ModuleForFile returns the module owning path: the one whose source root is
// the longest prefix of path. Returns nil when no source root contains it.
func (w *Workspace) ModuleForFile(path string) *Module {
	path = filepath.Clean(path)

	var (
		owner   *Module
		longest = -1
	)
	for _, m := range w.modules {
		for _, root := range m.SourceRoots {
			if !util.HasPathPrefix(path, root.Path) {
				continue
			}
			if n := len(filepath.Clean(root.Path)); n > longest {
				owner = m
				longest = n
			}
		}
	}
	return owner
}

// Validate checks that every dependency edge points at a registered module.
func (w *Workspace) Validate() error {
	for _, m := range w.modules {
		for _, dep := range m.Dependencies {
			if dep == nil {
				return errors.AddContext(errors.New(errors.CodeValidationError, "nil dependency"), errors.CtxModule, m.Name)
			}
			if registered, ok := w.byName[dep.Name]; !ok || registered != dep {
				err := errors.Newf(errors.CodeValidationError, "module %q depends on unregistered module %q", m.Name, dep.Name)
				return errors.AddContext(err, errors.CtxModule, m.Name)
			}
		}
	}
	return nil
}

// TransitiveDependencies returns every module reachable from m through
// dependency edges, excluding m itself. The order is depth-first pre-order
// over declared dependency order; each module appears once even when the
// graph has shared ancestors or cycles. A fresh slice is built per call.
func TransitiveDependencies(m *Module) []*Module {
	if m == nil {
		return nil
	}
	visited := map[*Module]bool{m: true}
	var out []*Module

	var visit func(*Module)
	visit = func(cur *Module) {
		for _, dep := range cur.Dependencies {
			if dep == nil || visited[dep] {
				continue
			}
			visited[dep] = true
			out = append(out, dep)
			visit(dep)
		}
	}
	visit(m)
	return out
}
