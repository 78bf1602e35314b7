package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"pathref/internal/core/config"
	"pathref/internal/core/errors"
	"pathref/internal/core/ports"
	"pathref/internal/data/history"
	"pathref/internal/engine/provider"
	"pathref/internal/engine/roots"
	"pathref/internal/engine/vfs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeService struct {
	modules   []ports.ModuleSummary
	roots     map[string]ports.RootsResult
	snapshot  ports.Snapshot
	scans     []history.Scan
	scanCalls int
	lastRoots ports.RootsRequest
}

func (f *fakeService) Scan(ctx context.Context) (ports.ScanResult, error) {
	f.scanCalls++
	return ports.ScanResult{Duration: 3 * time.Millisecond}, nil
}

func (f *fakeService) Modules(ctx context.Context) ([]ports.ModuleSummary, error) {
	return f.modules, nil
}

func (f *fakeService) Roots(ctx context.Context, req ports.RootsRequest) (ports.RootsResult, error) {
	f.lastRoots = req
	res, ok := f.roots[req.Module]
	if !ok {
		return ports.RootsResult{}, errors.Newf(errors.CodeNotFound, "module %q not found", req.Module)
	}
	return res, nil
}

func (f *fakeService) FileReferences(ctx context.Context, path string) (*provider.FileResult, error) {
	return &provider.FileResult{Path: path, Module: "app"}, nil
}

func (f *fakeService) Snapshot(ctx context.Context) (ports.Snapshot, error) {
	return f.snapshot, nil
}

func (f *fakeService) History(ctx context.Context, since time.Time) ([]history.Scan, error) {
	var out []history.Scan
	for _, s := range f.scans {
		if !s.Timestamp.Before(since) {
			out = append(out, s)
		}
	}
	return out, nil
}

func newFakeService() *fakeService {
	return &fakeService{
		modules: []ports.ModuleSummary{
			{Name: "app", SourceRoots: []string{"/w/app/src"}, Dependencies: []string{"core"}},
			{Name: "core", SourceRoots: []string{"/w/core/src"}},
		},
		roots: map[string]ports.RootsResult{
			"app": {
				Module: "app",
				Roots: []roots.Root{
					{Kind: roots.PlainDirectory, Dir: vfs.Directory{Path: "/w/app/src"}, Module: "app"},
					{Kind: roots.PackagePrefixedDirectory, Dir: vfs.Directory{Path: "/w/core/src"}, Prefix: "org.core", Module: "core"},
				},
				Stats: roots.Stats{ScannedModules: 2, SourceRoots: 2},
			},
		},
	}
}

func TestParseOptions(t *testing.T) {
	opts, err := parseOptions([]string{"--roots", "app", "--libraries", "--verbose", "./project"})
	require.NoError(t, err)

	assert.Equal(t, defaultConfigPath, opts.configPath)
	assert.Equal(t, "app", opts.roots)
	assert.True(t, opts.libraries)
	assert.True(t, opts.verbose)
	assert.Equal(t, 20, opts.limit)
	assert.Equal(t, []string{"./project"}, opts.args)
	assert.True(t, opts.singleShot())

	_, err = parseOptions([]string{"--no-such-flag"})
	assert.Error(t, err)
}

func TestValidateOptions(t *testing.T) {
	tests := []struct {
		name string
		opts cliOptions
		want string
	}{
		{"roots and refs", cliOptions{roots: "app", refs: "a.go"}, "cannot be combined"},
		{"refs and ui", cliOptions{refs: "a.go", ui: true}, "cannot be combined"},
		{"libraries without roots", cliOptions{libraries: true}, "--libraries requires --roots"},
		{"since without history", cliOptions{since: "2026-01-01"}, "require --history"},
		{"negative limit", cliOptions{limit: -1}, "--limit"},
		{"two positional args", cliOptions{args: []string{"a", "b"}}, "at most one"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.opts.validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	assert.NoError(t, cliOptions{roots: "app", libraries: true}.validate())
	assert.NoError(t, cliOptions{history: true, since: "2026-01-01"}.validate())
}

func TestParseSince(t *testing.T) {
	got, err := parseSince("2026-03-04")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC), got)

	got, err = parseSince("2026-03-04T10:00:00+02:00")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 4, 8, 0, 0, 0, time.UTC), got)

	got, err = parseSince("  ")
	require.NoError(t, err)
	assert.True(t, got.IsZero())

	_, err = parseSince("yesterday")
	assert.Error(t, err)
}

func TestLoadConfigDiscoversDefaultLocation(t *testing.T) {
	cwd := t.TempDir()
	path := filepath.Join(cwd, "data", "config", "pathref.toml")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("[db]\nproject = \"demo\"\n"), 0o644))

	cfg, got, err := loadConfig(defaultConfigPath, cwd)
	require.NoError(t, err)
	assert.Equal(t, path, got)
	assert.Equal(t, "demo", cfg.DB.Project)
}

func TestLoadConfigFallsBackToDiscovery(t *testing.T) {
	cfg, got, err := loadConfig(defaultConfigPath, t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.True(t, cfg.Discovery.GoModules)
}

func TestLoadConfigExplicitPathMustExist(t *testing.T) {
	_, _, err := loadConfig(filepath.Join(t.TempDir(), "missing.toml"), t.TempDir())
	assert.Error(t, err)
}

func TestPrepareConfigAbsolutizesPaths(t *testing.T) {
	root := t.TempDir()
	cfg, err := config.Parse(`
[paths]
project_root = "` + filepath.ToSlash(root) + `"

[[modules]]
name = "app"
library_roots = ["lib", "jar://remote.jar!/"]

[[modules.source_roots]]
path = "src"
`)
	require.NoError(t, err)

	paths, err := prepareConfig(cfg, t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, root, cfg.Paths.ProjectRoot)
	assert.Equal(t, filepath.Join(root, "src"), cfg.Modules[0].SourceRoots[0].Path)
	assert.Equal(t, filepath.Join(root, "lib"), cfg.Modules[0].LibraryRoots[0])
	assert.Equal(t, "jar://remote.jar!/", cfg.Modules[0].LibraryRoots[1])
	assert.Equal(t, paths.DBPath, cfg.DB.Path)
	assert.True(t, filepath.IsAbs(cfg.DB.Path))
}

func TestRunSingleCommandRoots(t *testing.T) {
	svc := newFakeService()
	var out bytes.Buffer

	done, code := runSingleCommand(context.Background(), svc, cliOptions{roots: "app", libraries: true}, "/w", &out)
	assert.True(t, done)
	assert.Equal(t, 0, code)
	assert.True(t, svc.lastRoots.IncludeLibraries)
	assert.Contains(t, out.String(), "Roots of app (2 modules scanned)")
	assert.Contains(t, out.String(), "package org.core")

	done, code = runSingleCommand(context.Background(), svc, cliOptions{roots: "ghost"}, "/w", &out)
	assert.True(t, done)
	assert.Equal(t, 1, code)
}

func TestRunSingleCommandRefsResolvesRelativePath(t *testing.T) {
	var out bytes.Buffer
	done, code := runSingleCommand(context.Background(), newFakeService(), cliOptions{refs: "src/main.go"}, "/w", &out)
	assert.True(t, done)
	assert.Equal(t, 0, code)
	assert.Contains(t, out.String(), filepath.Join("/w", "src", "main.go"))
}

func TestRunSingleCommandNoMode(t *testing.T) {
	done, _ := runSingleCommand(context.Background(), newFakeService(), cliOptions{once: true}, "/w", &bytes.Buffer{})
	assert.False(t, done)
}

func TestRunHistoryMode(t *testing.T) {
	svc := newFakeService()
	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	svc.scans = []history.Scan{
		{ID: "s1", Timestamp: base, ReferenceCount: 10, UnresolvedCount: 4},
		{ID: "s2", Timestamp: base.Add(time.Hour), ReferenceCount: 12, UnresolvedCount: 1, StaleRootCount: 1},
	}

	var out bytes.Buffer
	require.NoError(t, runHistoryMode(context.Background(), cliOptions{history: true}, svc, &out))
	assert.Contains(t, out.String(), "History: 2 scans")
	assert.Contains(t, out.String(), "unresolved=1 (-3)")
	assert.Contains(t, out.String(), "DeltaUnresolved")

	out.Reset()
	require.NoError(t, runHistoryMode(context.Background(), cliOptions{history: true, since: "2026-06-01"}, svc, &out))
	assert.Contains(t, out.String(), "no scans matched")

	path := filepath.Join(t.TempDir(), "out", "history.json")
	out.Reset()
	require.NoError(t, runHistoryMode(context.Background(), cliOptions{history: true, historyTSV: path}, svc, &out))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"s2"`)
	assert.NotContains(t, out.String(), "DeltaUnresolved")
}

func TestResolveLogPath(t *testing.T) {
	t.Setenv("XDG_STATE_HOME", "/tmp/state")
	assert.Equal(t, filepath.Join("/tmp/state", "pathref", "pathref.log"), resolveLogPath())
}

func TestProjectName(t *testing.T) {
	cfg := config.DefaultConfig()
	assert.Equal(t, "repo", projectName(cfg, config.ResolvedPaths{ProjectRoot: "/src/repo"}))
	cfg.DB.Project = "named"
	assert.Equal(t, "named", projectName(cfg, config.ResolvedPaths{ProjectRoot: "/src/repo"}))
}
