package vfs

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"pathref/internal/engine/workspace"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeArchive(t *testing.T, path string, files map[string]string) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	for name, body := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
}

func TestResolveDirectoryPlain(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "src"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "file.txt"), []byte("x"), 0o644))

	r := NewFSResolver(4)

	dir, ok := r.ResolveDirectory(filepath.Join(root, "src"))
	require.True(t, ok)
	assert.Equal(t, Directory{Path: filepath.Join(root, "src")}, dir)

	dir, ok = r.ResolveDirectory("file://" + filepath.ToSlash(filepath.Join(root, "src")))
	require.True(t, ok)
	assert.Equal(t, filepath.Join(root, "src"), dir.Path)

	_, ok = r.ResolveDirectory(filepath.Join(root, "missing"))
	assert.False(t, ok)
	_, ok = r.ResolveDirectory(filepath.Join(root, "file.txt"))
	assert.False(t, ok, "regular files are not directories")
	_, ok = r.ResolveDirectory("  ")
	assert.False(t, ok)
}

func TestResolveDirectoryArchive(t *testing.T) {
	root := t.TempDir()
	jar := filepath.Join(root, "lib.jar")
	writeArchive(t, jar, map[string]string{
		"com/example/Foo.class":    "",
		"META-INF/MANIFEST.MF":     "Manifest-Version: 1.0",
		"resources/config/app.yml": "a: b",
	})

	r := NewFSResolver(4)

	dir, ok := r.ResolveDirectory("jar://" + filepath.ToSlash(jar) + "!/")
	require.True(t, ok)
	assert.True(t, dir.InArchive())
	assert.Equal(t, "", dir.Entry)

	dir, ok = r.ResolveDirectory("zip://" + filepath.ToSlash(jar) + "!/resources/config")
	require.True(t, ok)
	assert.Equal(t, "resources/config", dir.Entry)

	dir, ok = r.ResolveDirectory(jar)
	require.True(t, ok, "archive files resolve to their root")
	assert.Equal(t, "", dir.Entry)

	_, ok = r.ResolveDirectory("jar://" + filepath.ToSlash(jar) + "!/com/example/Foo.class")
	assert.False(t, ok, "file entries are not directories")
	_, ok = r.ResolveDirectory("jar://" + filepath.ToSlash(jar) + "!/nope")
	assert.False(t, ok)
	_, ok = r.ResolveDirectory("jar://" + filepath.ToSlash(filepath.Join(root, "gone.jar")) + "!/")
	assert.False(t, ok)

	bogus := filepath.Join(root, "bogus.zip")
	require.NoError(t, os.WriteFile(bogus, []byte("not a zip"), 0o644))
	_, ok = r.ResolveDirectory(bogus)
	assert.False(t, ok)
}

func TestChildAndChildren(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "a", "b"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "a", "z.txt"), []byte("z"), 0o644))

	r := NewFSResolver(4)
	dir, ok := r.ResolveDirectory(root)
	require.True(t, ok)

	a, ok := r.Child(dir, "a")
	require.True(t, ok)
	assert.True(t, a.IsDir)

	aDir, _ := a.AsDirectory()
	items := r.Children(aDir)
	require.Len(t, items, 2)
	assert.Equal(t, "b", items[0].Name)
	assert.True(t, items[0].IsDir)
	assert.Equal(t, "z.txt", items[1].Name)
	assert.False(t, items[1].IsDir)

	up, ok := r.Child(aDir, "..")
	require.True(t, ok)
	assert.Equal(t, filepath.Clean(root), up.Path)

	same, ok := r.Child(aDir, ".")
	require.True(t, ok)
	assert.Equal(t, aDir.Path, same.Path)

	_, ok = r.Child(aDir, "missing")
	assert.False(t, ok)
}

func TestArchiveChildren(t *testing.T) {
	jar := filepath.Join(t.TempDir(), "lib.zip")
	writeArchive(t, jar, map[string]string{
		"web/index.html":   "<html/>",
		"web/css/site.css": "",
		"web/img/":         "",
		"top.txt":          "",
	})

	r := NewFSResolver(1)
	dir, ok := r.ResolveDirectory(jar)
	require.True(t, ok)

	web, ok := r.Child(dir, "web")
	require.True(t, ok)
	require.True(t, web.IsDir)

	webDir, _ := web.AsDirectory()
	var got []string
	for _, item := range r.Children(webDir) {
		got = append(got, item.Name)
	}
	assert.Equal(t, []string{"css", "img", "index.html"}, got)

	css, ok := r.Child(webDir, "css")
	require.True(t, ok)
	cssDir, _ := css.AsDirectory()
	file, ok := r.Child(cssDir, "site.css")
	require.True(t, ok)
	assert.False(t, file.IsDir)
	assert.Equal(t, "web/css/site.css", file.Entry)

	up, ok := r.Child(webDir, "..")
	require.True(t, ok)
	assert.Equal(t, "", up.Entry)
	_, ok = r.Child(dir, "..")
	assert.False(t, ok, "cannot climb above the archive root")

	r.Close()
	_, ok = r.Child(dir, "top.txt")
	assert.True(t, ok, "index is rebuilt after Close")
}

func TestArchiveKeepsDottedNames(t *testing.T) {
	jar := filepath.Join(t.TempDir(), "lib.jar")
	writeArchive(t, jar, map[string]string{
		"lib/a..b.txt":     "",
		"lib/v1..2/x.conf": "",
	})

	r := NewFSResolver(1)
	lib, ok := r.ResolveDirectory("jar://" + filepath.ToSlash(jar) + "!/lib")
	require.True(t, ok)

	file, ok := r.Child(lib, "a..b.txt")
	require.True(t, ok)
	assert.False(t, file.IsDir)

	dir, ok := r.Child(lib, "v1..2")
	require.True(t, ok)
	assert.True(t, dir.IsDir)
}

func TestPrefixIndex(t *testing.T) {
	idx := NewPrefixIndex([]workspace.SourceRoot{
		{Path: "/repo/java", PackagePrefix: "com.foo"},
		{Path: "/repo/plain"},
		{Path: "/repo/java/generated", PackagePrefix: "gen"},
	})

	assert.Equal(t, "com.foo", idx.PackageName(Directory{Path: "/repo/java"}))
	assert.Equal(t, "com.foo.bar.baz", idx.PackageName(Directory{Path: "/repo/java/bar/baz"}))
	assert.Equal(t, "gen", idx.PackageName(Directory{Path: "/repo/java/generated"}))
	assert.Equal(t, "", idx.PackageName(Directory{Path: "/repo/plain"}))
	assert.Equal(t, "util", idx.PackageName(Directory{Path: "/repo/plain/util"}))
	assert.Equal(t, "", idx.PackageName(Directory{Path: "/elsewhere"}))
	assert.Equal(t, "", idx.PackageName(Directory{Archive: "/x.jar"}))
}

func TestPrefixIndexFor(t *testing.T) {
	ws := workspace.New()
	require.NoError(t, ws.Add(&workspace.Module{
		Name:        "app",
		SourceRoots: []workspace.SourceRoot{{Path: "/repo/src", PackagePrefix: "org.app"}},
	}))
	idx := PrefixIndexFor(ws)
	assert.Equal(t, "org.app", idx.PackageName(Directory{Path: "/repo/src/"}))
}

func TestPrefixIndexSharedRoot(t *testing.T) {
	ws := workspace.New()
	require.NoError(t, ws.Add(&workspace.Module{
		Name:        "core",
		SourceRoots: []workspace.SourceRoot{{Path: "/repo/shared", PackagePrefix: "org.core"}},
	}))
	require.NoError(t, ws.Add(&workspace.Module{
		Name:        "app",
		SourceRoots: []workspace.SourceRoot{{Path: "/repo/shared", PackagePrefix: "org.app"}},
	}))
	idx := PrefixIndexFor(ws)

	assert.Equal(t, "org.core", idx.PackageName(Directory{Path: "/repo/shared"}))
	assert.Equal(t, "org.core", idx.PackageNameIn("core", Directory{Path: "/repo/shared"}))
	assert.Equal(t, "org.app", idx.PackageNameIn("app", Directory{Path: "/repo/shared"}))
	assert.Equal(t, "org.app.util", idx.PackageNameIn("app", Directory{Path: "/repo/shared/util"}))
	assert.Equal(t, "org.core", idx.PackageNameIn("other", Directory{Path: "/repo/shared"}))
}

func TestDirectoryString(t *testing.T) {
	assert.Equal(t, "/a/b", Directory{Path: "/a/b"}.String())
	assert.Equal(t, "jar:///x/lib.jar!/com/foo", Directory{Archive: "/x/lib.jar", Entry: "com/foo"}.String())
}
