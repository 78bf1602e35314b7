package workspace

import (
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"pathref/internal/core/errors"
	"pathref/internal/shared/util"

	"golang.org/x/mod/modfile"
)

// DiscoverGoModules walks roots and turns every go.mod into a Module rooted
// at its directory. Directories whose base name matches one of excludeDirs
// (glob patterns) are not entered. A require entry naming another discovered
// module, or a local replace pointing at a discovered module directory,
// becomes a dependency edge. Results are in walk order.
func DiscoverGoModules(roots []string, excludeDirs []string) ([]*Module, error) {
	excludes, err := util.CompileGlobs(excludeDirs)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeValidationError, "compile exclude patterns")
	}

	var found []*goModule
	seenDirs := make(map[string]bool)
	for _, root := range roots {
		root = filepath.Clean(root)
		walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				if path == root {
					return err
				}
				slog.Debug("skipping unreadable path during discovery", "path", path, "error", err)
				return nil
			}
			if d.IsDir() {
				if path != root && util.MatchAny(excludes, d.Name()) {
					return filepath.SkipDir
				}
				return nil
			}
			if d.Name() != "go.mod" {
				return nil
			}
			dir := filepath.Dir(path)
			if seenDirs[dir] {
				return nil
			}
			gm, err := parseGoMod(path)
			if err != nil {
				slog.Warn("ignoring malformed go.mod", "path", path, "error", err)
				return nil
			}
			seenDirs[dir] = true
			found = append(found, gm)
			return nil
		})
		if walkErr != nil {
			return nil, errors.AddContext(errors.Wrap(walkErr, errors.CodeNotFound, "walk discovery root"), errors.CtxRoot, root)
		}
	}

	return linkGoModules(found), nil
}

type goModule struct {
	module *Module
	dir    string
	file   *modfile.File
}

func parseGoMod(path string) (*goModule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	file, err := modfile.Parse(path, data, nil)
	if err != nil {
		return nil, err
	}
	if file.Module == nil || file.Module.Mod.Path == "" {
		return nil, errors.New(errors.CodeValidationError, "missing module directive")
	}
	dir := filepath.Dir(path)
	return &goModule{
		module: &Module{
			Name:        file.Module.Mod.Path,
			SourceRoots: []SourceRoot{{Path: dir}},
		},
		dir:  dir,
		file: file,
	}, nil
}

func linkGoModules(found []*goModule) []*Module {
	byPath := make(map[string]*Module, len(found))
	byDir := make(map[string]*Module, len(found))
	for _, gm := range found {
		if _, dup := byPath[gm.module.Name]; dup {
			slog.Warn("duplicate go module path", "module", gm.module.Name, "dir", gm.dir)
			continue
		}
		byPath[gm.module.Name] = gm.module
		byDir[gm.dir] = gm.module
	}

	out := make([]*Module, 0, len(found))
	for _, gm := range found {
		if byPath[gm.module.Name] != gm.module {
			continue
		}
		for _, req := range gm.file.Require {
			if dep, ok := byPath[req.Mod.Path]; ok {
				gm.module.addDependency(dep)
			}
		}
		for _, rep := range gm.file.Replace {
			if !modfile.IsDirectoryPath(rep.New.Path) {
				continue
			}
			target := rep.New.Path
			if !filepath.IsAbs(target) {
				target = filepath.Join(gm.dir, target)
			}
			if dep, ok := byDir[filepath.Clean(target)]; ok {
				gm.module.addDependency(dep)
			}
		}
		out = append(out, gm.module)
	}
	return out
}
