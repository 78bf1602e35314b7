package workspace

import (
	"pathref/internal/core/config"
)

// FromConfig builds a workspace from the [[modules]] entries of cfg.
// Paths are taken as-is; callers absolutize them first.
func FromConfig(cfg *config.Config) (*Workspace, error) {
	ws := New()
	for _, entry := range cfg.Modules {
		m := &Module{
			Name:         entry.Name,
			LibraryRoots: append([]string(nil), entry.LibraryRoots...),
		}
		for _, root := range entry.SourceRoots {
			m.SourceRoots = append(m.SourceRoots, SourceRoot{
				Path:          root.Path,
				PackagePrefix: root.PackagePrefix,
			})
		}
		if err := ws.Add(m); err != nil {
			return nil, err
		}
	}

	for _, entry := range cfg.Modules {
		for _, dep := range entry.Dependencies {
			if err := ws.Link(entry.Name, dep); err != nil {
				return nil, err
			}
		}
	}
	return ws, nil
}

// Merge adds modules that are not yet registered, keeping existing ones.
// Dependencies of merged modules that point at a skipped module are
// redirected to the registered module of the same name. It returns the
// names that were skipped.
func (w *Workspace) Merge(mods []*Module) []string {
	var (
		skipped []string
		added   []*Module
		replace = make(map[*Module]*Module)
	)
	for _, m := range mods {
		if existing, ok := w.byName[m.Name]; ok {
			skipped = append(skipped, m.Name)
			replace[m] = existing
			continue
		}
		w.modules = append(w.modules, m)
		w.byName[m.Name] = m
		added = append(added, m)
	}

	if len(replace) == 0 {
		return skipped
	}
	for _, m := range added {
		for i, dep := range m.Dependencies {
			if existing, ok := replace[dep]; ok {
				m.Dependencies[i] = existing
			}
		}
	}
	return skipped
}
