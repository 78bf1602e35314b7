// # internal/core/watcher/watcher_test.go
package watcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestNewWatcher_RejectsNilCallback(t *testing.T) {
	w, err := NewWatcher(100*time.Millisecond, nil, nil, nil)
	if err == nil {
		t.Fatal("expected error for nil callback")
	}
	if !errors.Is(err, os.ErrInvalid) {
		t.Fatalf("expected os.ErrInvalid, got %v", err)
	}
	if w != nil {
		t.Fatal("expected nil watcher when callback is invalid")
	}
}

func TestNewWatcher_RejectsBadGlob(t *testing.T) {
	if _, err := NewWatcher(time.Millisecond, []string{"[unterminated"}, nil, func([]string) {}); err == nil {
		t.Fatal("expected invalid pattern error")
	}
}

func waitFor(t *testing.T, ch <-chan []string, want string) {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		select {
		case paths := <-ch:
			for _, p := range paths {
				if p == want {
					return
				}
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s", want)
		}
	}
}

func TestWatcher_ReportsChanges(t *testing.T) {
	tmpDir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(tmpDir, "vendor"), 0o755); err != nil {
		t.Fatal(err)
	}

	changed := make(chan []string, 16)
	w, err := NewWatcher(50*time.Millisecond, []string{"vendor"}, []string{"*.tmp"}, func(paths []string) {
		changed <- paths
	})
	if err != nil {
		t.Fatal(err)
	}
	w.SetFilters([]string{".go", "py"}, []string{"go.mod"})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Watch(ctx, []string{tmpDir}); err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	goFile := filepath.Join(tmpDir, "main.go")
	if err := os.WriteFile(goFile, []byte("package main"), 0o644); err != nil {
		t.Fatal(err)
	}
	waitFor(t, changed, goFile)

	modFile := filepath.Join(tmpDir, "go.mod")
	if err := os.WriteFile(modFile, []byte("module x\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	waitFor(t, changed, modFile)

	subdir := filepath.Join(tmpDir, "pkg")
	if err := os.MkdirAll(subdir, 0o755); err != nil {
		t.Fatal(err)
	}
	time.Sleep(100 * time.Millisecond)
	nested := filepath.Join(subdir, "tool.py")
	if err := os.WriteFile(nested, []byte("x = 'a'"), 0o644); err != nil {
		t.Fatal(err)
	}
	waitFor(t, changed, nested)
}

func TestWatcher_ReportsCreatedAndRemovedTargets(t *testing.T) {
	tmpDir := t.TempDir()
	changed := make(chan []string, 16)
	w, err := NewWatcher(50*time.Millisecond, nil, []string{"*.tmp"}, func(paths []string) {
		changed <- paths
	})
	if err != nil {
		t.Fatal(err)
	}
	w.SetFilters([]string{".go"}, []string{"go.mod"})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Watch(ctx, []string{tmpDir}); err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	target := filepath.Join(tmpDir, "settings.json")
	if err := os.WriteFile(target, []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}
	waitFor(t, changed, target)

	if err := os.Remove(target); err != nil {
		t.Fatal(err)
	}
	waitFor(t, changed, target)

	dir := filepath.Join(tmpDir, "conf")
	if err := os.Mkdir(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	waitFor(t, changed, dir)
}

func TestWatcher_ShouldExcludeFile(t *testing.T) {
	w, err := NewWatcher(time.Millisecond, nil, []string{"*.tmp"}, func([]string) {})
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	if !w.ignoredFile("/p/x.tmp") || w.ignoredFile("/p/README.md") {
		t.Fatal("only exclude globs should make a file ignored")
	}
	if w.shouldExcludeFile("/p/a.md") {
		t.Fatal("no extension filter should admit every file")
	}
	w.SetFilters([]string{"go"}, []string{"go.mod"})

	cases := map[string]bool{
		"/p/main.go":   false,
		"/p/go.mod":    false,
		"/p/README.md": true,
		"/p/x.tmp":     true,
		"/p/MAIN.GO":   false,
	}
	for path, want := range cases {
		if got := w.shouldExcludeFile(path); got != want {
			t.Errorf("shouldExcludeFile(%q) = %v, want %v", path, got, want)
		}
	}
}

func TestWatcher_CloseIsIdempotent(t *testing.T) {
	w, err := NewWatcher(time.Millisecond, nil, nil, func([]string) {})
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("second close returned %v", err)
	}
}

func TestWatcher_AddRootsWhileRunning(t *testing.T) {
	first := t.TempDir()
	second := t.TempDir()
	changed := make(chan []string, 16)
	w, err := NewWatcher(20*time.Millisecond, nil, nil, func(paths []string) {
		changed <- paths
	})
	if err != nil {
		t.Fatal(err)
	}
	w.SetFilters([]string{".go"}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Watch(ctx, []string{first}); err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	if err := w.AddRoots([]string{second, filepath.Join(second, "missing")}); err != nil {
		t.Fatal(err)
	}
	w.SetFilters([]string{".go", ".py"}, nil)
	w.SetDebounce(10 * time.Millisecond)

	file := filepath.Join(second, "tool.py")
	if err := os.WriteFile(file, []byte("x = 1"), 0o644); err != nil {
		t.Fatal(err)
	}
	waitFor(t, changed, file)
}
