package reference

import (
	"os"
	"path/filepath"
	"testing"

	"pathref/internal/engine/roots"
	"pathref/internal/engine/vfs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tree(t *testing.T, files ...string) string {
	t.Helper()
	base := t.TempDir()
	for _, f := range files {
		full := filepath.Join(base, filepath.FromSlash(f))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte("x"), 0o644))
	}
	return base
}

func plain(path string) roots.Root {
	return roots.Root{Kind: roots.PlainDirectory, Dir: vfs.Directory{Path: path}}
}

func TestNewSetSegments(t *testing.T) {
	s := NewSet(`/a//b\c.txt`, 1, nil, true, vfs.NewFSResolver(1))

	require.Len(t, s.References, 3)
	assert.Equal(t, "a", s.References[0].Text)
	assert.Equal(t, Range{Start: 2, End: 3}, s.References[0].Range)
	assert.Equal(t, "b", s.References[1].Text)
	assert.Equal(t, Range{Start: 5, End: 6}, s.References[1].Range)
	assert.Equal(t, "c.txt", s.References[2].Text)
	assert.Equal(t, 2, s.References[2].Index)
	assert.True(t, s.AbsolutePathReference())
}

func TestMapRanges(t *testing.T) {
	s := NewSet("ab/cd", 1, nil, true, vfs.NewFSResolver(1))
	// as if "ab" were written with a three byte escape in front of it
	s.MapRanges(func(i int) int { return 1 + i + 3 })

	assert.Equal(t, Range{Start: 4, End: 6}, s.References[0].Range)
	assert.Equal(t, Range{Start: 7, End: 9}, s.References[1].Range)
}

func TestResolveAcrossContexts(t *testing.T) {
	first := tree(t, "conf/app.yml")
	second := tree(t, "conf/db.yml", "conf/app.yml")
	fs := vfs.NewFSResolver(1)

	s := NewSet("conf/app.yml", 1, []roots.Root{plain(first), plain(second)}, false, fs)
	s.Resolve()

	require.True(t, s.Resolved())
	last := s.LastTargets()
	require.Len(t, last, 2)
	assert.Equal(t, filepath.Join(first, "conf", "app.yml"), last[0].Item.Path)
	assert.Equal(t, 0, last[0].Context)
	assert.Equal(t, 1, last[1].Context)
	assert.Empty(t, s.Diagnostics())
}

func TestResolveLeadingSlashUsesContexts(t *testing.T) {
	base := tree(t, "static/logo.png")
	s := NewSet("/static/logo.png", 1, []roots.Root{plain(base)}, false, vfs.NewFSResolver(1))
	assert.True(t, s.Resolved())
}

func TestResolveDotSegments(t *testing.T) {
	base := tree(t, "a/x.txt", "b/y.txt")
	s := NewSet("./a/../b/y.txt", 1, []roots.Root{plain(base)}, false, vfs.NewFSResolver(1))
	assert.True(t, s.Resolved())
	assert.Equal(t, filepath.Join(base, "b", "y.txt"), s.LastTargets()[0].Item.Path)
}

func TestResolvePackagePrefixedContext(t *testing.T) {
	base := tree(t, "res/messages.properties")
	root := roots.Root{Kind: roots.PackagePrefixedDirectory, Dir: vfs.Directory{Path: base}, Prefix: "com.foo"}
	fs := vfs.NewFSResolver(1)

	s := NewSet("com/foo/res/messages.properties", 1, []roots.Root{root}, false, fs)
	require.True(t, s.Resolved())
	assert.True(t, s.References[0].Targets[0].Virtual)
	assert.False(t, s.References[1].Targets[0].Virtual)
	assert.Equal(t, base, s.References[1].Targets[0].Item.Path)

	direct := NewSet("res/messages.properties", 1, []roots.Root{root}, false, fs)
	assert.False(t, direct.Resolved(), "prefix components must be consumed first")
}

func TestDiagnosticsAndSoftness(t *testing.T) {
	base := tree(t, "a/x.txt")
	fs := vfs.NewFSResolver(1)

	hard := NewSet("a/missing/deeper.txt", 1, []roots.Root{plain(base)}, false, fs)
	diags := hard.Diagnostics()
	require.Len(t, diags, 1)
	assert.Equal(t, "missing", diags[0].Text)
	assert.Equal(t, 1, diags[0].Index)
	assert.Equal(t, Range{Start: 3, End: 10}, diags[0].Range)
	assert.True(t, hard.References[0].Resolved())
	assert.False(t, hard.References[2].Resolved())

	soft := NewSet("a/missing", 1, []roots.Root{plain(base)}, true, fs)
	assert.Empty(t, soft.Diagnostics())
	assert.False(t, soft.Resolved())
}

func TestResolveFileInTheMiddleFails(t *testing.T) {
	base := tree(t, "a/x.txt")
	s := NewSet("a/x.txt/more", 1, []roots.Root{plain(base)}, false, vfs.NewFSResolver(1))
	s.Resolve()
	assert.True(t, s.References[1].Resolved())
	assert.False(t, s.References[2].Resolved())
}

func TestEmptyContextLeavesEverythingUnresolved(t *testing.T) {
	s := NewSet("a/b", 1, nil, false, vfs.NewFSResolver(1))
	s.Resolve()
	for _, ref := range s.References {
		assert.False(t, ref.Resolved())
	}
	assert.Len(t, s.Diagnostics(), 1)
}

func TestVariants(t *testing.T) {
	first := tree(t, "img/a.png", "img/b.png", "css/site.css")
	second := tree(t, "img/c.png", "js/app.js")
	prefixed := roots.Root{Kind: roots.PackagePrefixedDirectory, Dir: vfs.Directory{Path: tree(t, "z.txt")}, Prefix: "org.x"}
	fs := vfs.NewFSResolver(1)

	s := NewSet("img/", 1, []roots.Root{plain(first), plain(second), prefixed}, true, fs)

	assert.Equal(t, []string{"css", "img", "js", "org"}, s.Variants(0))
	assert.Equal(t, []string{"a.png", "b.png", "c.png"}, s.Variants(1))
	assert.Nil(t, s.Variants(2))
	assert.Nil(t, s.Variants(-1))

	p := NewSet("org/x/", 1, []roots.Root{prefixed}, true, fs)
	assert.Equal(t, []string{"x"}, p.Variants(1))
	assert.Equal(t, []string{"z.txt"}, p.Variants(2))
}
