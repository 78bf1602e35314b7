// # internal/engine/literal/languages.go
package literal

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"pathref/internal/core/errors"

	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_css "github.com/tree-sitter/tree-sitter-css/bindings/go"
	tree_sitter_go "github.com/tree-sitter/tree-sitter-go/bindings/go"
	tree_sitter_html "github.com/tree-sitter/tree-sitter-html/bindings/go"
	tree_sitter_java "github.com/tree-sitter/tree-sitter-java/bindings/go"
	tree_sitter_javascript "github.com/tree-sitter/tree-sitter-javascript/bindings/go"
	tree_sitter_python "github.com/tree-sitter/tree-sitter-python/bindings/go"
	tree_sitter_rust "github.com/tree-sitter/tree-sitter-rust/bindings/go"
	tree_sitter_typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"
)

type LanguageSpec struct {
	Name       string
	Extensions []string
}

func DefaultLanguages() map[string]LanguageSpec {
	return map[string]LanguageSpec{
		"css":        {Name: "css", Extensions: []string{".css"}},
		"go":         {Name: "go", Extensions: []string{".go"}},
		"html":       {Name: "html", Extensions: []string{".html", ".htm"}},
		"java":       {Name: "java", Extensions: []string{".java"}},
		"javascript": {Name: "javascript", Extensions: []string{".js", ".jsx", ".mjs", ".cjs"}},
		"python":     {Name: "python", Extensions: []string{".py", ".pyi"}},
		"rust":       {Name: "rust", Extensions: []string{".rs"}},
		"tsx":        {Name: "tsx", Extensions: []string{".tsx"}},
		"typescript": {Name: "typescript", Extensions: []string{".ts", ".mts", ".cts"}},
	}
}

// GrammarLoader holds the compiled-in tree-sitter grammars for the enabled
// languages and maps file extensions onto them.
type GrammarLoader struct {
	languages  map[string]*sitter.Language
	extensions map[string]string
}

// NewGrammarLoader loads the grammars of enabled. An empty list enables
// every known language.
func NewGrammarLoader(enabled []string) (*GrammarLoader, error) {
	known := DefaultLanguages()
	if len(enabled) == 0 {
		for name := range known {
			enabled = append(enabled, name)
		}
		sort.Strings(enabled)
	}

	gl := &GrammarLoader{
		languages:  make(map[string]*sitter.Language, len(enabled)),
		extensions: make(map[string]string),
	}
	for _, name := range enabled {
		spec, ok := known[name]
		if !ok {
			return nil, errors.AddContext(errors.Newf(errors.CodeNotSupported, "unknown language %q", name), errors.CtxLanguage, name)
		}
		grammar, err := grammarFor(name)
		if err != nil {
			return nil, err
		}
		gl.languages[name] = grammar
		for _, ext := range spec.Extensions {
			gl.extensions[ext] = name
		}
	}
	return gl, nil
}

func grammarFor(name string) (*sitter.Language, error) {
	switch name {
	case "css":
		return sitter.NewLanguage(tree_sitter_css.Language()), nil
	case "go":
		return sitter.NewLanguage(tree_sitter_go.Language()), nil
	case "html":
		return sitter.NewLanguage(tree_sitter_html.Language()), nil
	case "java":
		return sitter.NewLanguage(tree_sitter_java.Language()), nil
	case "javascript":
		return sitter.NewLanguage(tree_sitter_javascript.Language()), nil
	case "python":
		return sitter.NewLanguage(tree_sitter_python.Language()), nil
	case "rust":
		return sitter.NewLanguage(tree_sitter_rust.Language()), nil
	case "tsx":
		return sitter.NewLanguage(tree_sitter_typescript.LanguageTSX()), nil
	case "typescript":
		return sitter.NewLanguage(tree_sitter_typescript.LanguageTypescript()), nil
	}
	return nil, fmt.Errorf("language %q is enabled but runtime grammar loading is not implemented", name)
}

// Language returns the language id for path, or "" when unsupported.
func (gl *GrammarLoader) Language(path string) string {
	return gl.extensions[strings.ToLower(filepath.Ext(path))]
}

func (gl *GrammarLoader) Grammar(lang string) *sitter.Language {
	return gl.languages[lang]
}

func (gl *GrammarLoader) Languages() []string {
	out := make([]string, 0, len(gl.languages))
	for name := range gl.languages {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func (gl *GrammarLoader) SupportedExtensions() []string {
	out := make([]string, 0, len(gl.extensions))
	for ext := range gl.extensions {
		out = append(out, ext)
	}
	sort.Strings(out)
	return out
}
