package literal

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"pathref/internal/core/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestExtractor(t *testing.T, langs ...string) *Extractor {
	t.Helper()
	loader, err := NewGrammarLoader(langs)
	require.NoError(t, err)
	return NewExtractor(loader, 16)
}

func texts(literals []Literal) []string {
	out := make([]string, 0, len(literals))
	for _, l := range literals {
		out = append(out, l.Text)
	}
	return out
}

func TestExtractGo(t *testing.T) {
	src := "package main\n\nimport \"fmt\"\n\nfunc main() {\n\tfmt.Println(\"assets/logo.png\")\n\t_ = `raw/path.txt`\n\t_ = \"esc\\tape\"\n}\n"
	e := newTestExtractor(t, "go")

	lits, err := e.Extract("main.go", []byte(src))
	require.NoError(t, err)
	assert.Equal(t, []string{"fmt", "assets/logo.png", "raw/path.txt", "esc\tape"}, texts(lits))

	logo := lits[1]
	assert.Equal(t, 1, logo.Offset)
	assert.Equal(t, "go", logo.Language)
	assert.Equal(t, Location{File: "main.go", Line: 6, Column: 14}, logo.Location)
	assert.Equal(t, `"assets/logo.png"`, src[logo.Start:logo.End])
}

func TestExtractPython(t *testing.T) {
	src := `open('data/in.txt')
x = f"{name}/x"
y = r"raw\path"
z = b"bytes"
w = """triple"""
`
	e := newTestExtractor(t, "python")

	lits, err := e.Extract("script.py", []byte(src))
	require.NoError(t, err)
	assert.Equal(t, []string{"data/in.txt", `raw\path`, "triple"}, texts(lits))
	assert.Equal(t, []int{1, 2, 3}, []int{lits[0].Offset, lits[1].Offset, lits[2].Offset})
}

func TestExtractJavaScript(t *testing.T) {
	src := "import x from \"./mod.js\";\nconst t = `tmpl/${a}`;\nconst u = `plain/tpl`;\nconst s = 'a\\'b';\n"
	e := newTestExtractor(t, "javascript")

	lits, err := e.Extract("app.js", []byte(src))
	require.NoError(t, err)
	assert.Equal(t, []string{"./mod.js", "plain/tpl", "a'b"}, texts(lits))
}

func TestExtractJava(t *testing.T) {
	src := `class A {
    String p = "conf/app.properties";
    String q = "line\n";
}
`
	e := newTestExtractor(t, "java")

	lits, err := e.Extract("A.java", []byte(src))
	require.NoError(t, err)
	assert.Equal(t, []string{"conf/app.properties", "line\n"}, texts(lits))
	assert.Equal(t, 2, lits[0].Location.Line)
}

func TestExtractRust(t *testing.T) {
	src := `fn main() {
    let a = "src/lib.rs";
    let b = r#"raw/"quoted""#;
    let c = b"bytes";
}
`
	e := newTestExtractor(t, "rust")

	lits, err := e.Extract("main.rs", []byte(src))
	require.NoError(t, err)
	assert.Equal(t, []string{"src/lib.rs", `raw/"quoted"`}, texts(lits))
	assert.Equal(t, 3, lits[1].Offset)
}

func TestExtractUnsupported(t *testing.T) {
	e := newTestExtractor(t, "go")
	_, err := e.Extract("notes.txt", []byte("hello"))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeNotSupported))
	assert.False(t, e.Supports("script.py"))
	assert.True(t, e.Supports("x.GO"))
}

func TestNewGrammarLoaderUnknownLanguage(t *testing.T) {
	_, err := NewGrammarLoader([]string{"cobol"})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeNotSupported))
}

func TestGrammarLoaderDefaults(t *testing.T) {
	loader, err := NewGrammarLoader(nil)
	require.NoError(t, err)
	assert.Len(t, loader.Languages(), len(DefaultLanguages()))
	assert.Equal(t, "tsx", loader.Language("view.tsx"))
	assert.Contains(t, loader.SupportedExtensions(), ".htm")
}

func TestAccept(t *testing.T) {
	assert.True(t, Accept("a.go", []byte("package a\n")))
	assert.False(t, Accept("A.class", nil))
	assert.False(t, Accept("mod.pyc", nil))
	assert.False(t, Accept("gen.go", []byte("// Code generated by protoc-gen-go. DO NOT EDIT.\n\npackage gen\n")))
	assert.True(t, Accept("doc.go", []byte("package doc\n\n// Code generated files are skipped.\n")))
}

func TestExtractFileCachesAndRejects(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "main.go")
	require.NoError(t, os.WriteFile(path, []byte("package main\n\nvar p = \"a/b\"\n"), 0o644))

	e := newTestExtractor(t, "go")
	first, err := e.ExtractFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"a/b"}, texts(first))

	first[0].Text = "mutated"
	second, err := e.ExtractFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"a/b"}, texts(second), "cached results are copied")

	gen := filepath.Join(dir, "gen.go")
	require.NoError(t, os.WriteFile(gen, []byte("// Code generated by hand. DO NOT EDIT.\npackage main\nvar g = \"x/y\"\n"), 0o644))
	lits, err := e.ExtractFile(gen)
	require.NoError(t, err)
	assert.Empty(t, lits)

	_, err = e.ExtractFile(filepath.Join(dir, "missing.go"))
	assert.True(t, errors.IsCode(err, errors.CodeNotFound))
}

func decoded(s string) string {
	out, _ := unescape(s)
	return out
}

func TestUnescape(t *testing.T) {
	assert.Equal(t, "plain", decoded("plain"))
	assert.Equal(t, "a\nb\t\"c\"\\", decoded(`a\nb\t\"c\"\\`))
	assert.Equal(t, `\q`, decoded(`\q`))
	assert.Equal(t, `trailing\`, decoded(`trailing\`))

	_, index := unescape("plain")
	assert.Nil(t, index)

	out, index := unescape(`a\tb/c`)
	assert.Equal(t, "a\tb/c", out)
	assert.Equal(t, []int{0, 1, 3, 4, 5, 6}, index)
}

func TestUnquoteGo(t *testing.T) {
	out, index, ok := unquoteGo(`"conf\x2fapp.json"`)
	require.True(t, ok)
	assert.Equal(t, "conf/app.json", out)
	// "a" of app.json sits after the four-byte escape
	assert.Equal(t, 8, index[5])
	assert.Equal(t, len(`conf\x2fapp.json`), index[len(out)])

	out, index, ok = unquoteGo("`raw/path`")
	require.True(t, ok)
	assert.Equal(t, "raw/path", out)
	assert.Nil(t, index)

	out, _, ok = unquoteGo(`"\u00e9/x"`)
	require.True(t, ok)
	assert.Equal(t, "é/x", out)

	_, _, ok = unquoteGo(`"bad\q"`)
	assert.False(t, ok)
}

func TestElementOffsetAfterEscape(t *testing.T) {
	src := "package main\n\nvar _ = \"dir\\tname/file.txt\"\n"
	e := newTestExtractor(t, "go")

	lits, err := e.Extract("main.go", []byte(src))
	require.NoError(t, err)
	require.Len(t, lits, 1)
	lit := lits[0]
	assert.Equal(t, "dir\tname/file.txt", lit.Text)

	slash := strings.IndexByte(lit.Text, '/')
	element := src[lit.Start:lit.End]
	assert.Equal(t, byte('/'), element[lit.ElementOffset(slash)])
	assert.Equal(t, len(element)-1, lit.ElementOffset(len(lit.Text)))
}
