package literal

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"pathref/internal/core/errors"
	"pathref/internal/shared/observability"
	"pathref/internal/shared/util"
)

var generatedHeader = regexp.MustCompile(`(?m)^(//|#) Code generated .* DO NOT EDIT\.$`)

var compiledExtensions = map[string]bool{
	".class": true,
	".pyc":   true,
	".pyo":   true,
	".o":     true,
	".obj":   true,
	".so":    true,
}

// Accept reports whether a file may act as a literal source. Compiled
// counterparts and generated files are rejected.
func Accept(path string, content []byte) bool {
	if compiledExtensions[strings.ToLower(filepath.Ext(path))] {
		return false
	}
	return !generatedHeader.Match(content)
}

// Extractor pulls plain string literals out of source files.
type Extractor struct {
	loader *GrammarLoader
	pools  poolSet

	enginesMu sync.Mutex
	engines   map[string]*ExtractorEngine

	cache *util.LRUCache[string, []Literal]
}

func NewExtractor(loader *GrammarLoader, cacheSize int) *Extractor {
	return &Extractor{
		loader:  loader,
		engines: make(map[string]*ExtractorEngine),
		cache:   util.NewLRUCache[string, []Literal](cacheSize),
	}
}

func (e *Extractor) Language(path string) string {
	return e.loader.Language(path)
}

func (e *Extractor) Supports(path string) bool {
	return e.loader.Language(path) != ""
}

func (e *Extractor) SupportedExtensions() []string {
	return e.loader.SupportedExtensions()
}

// ExtractFile reads path and returns its literals. Results are cached by
// path, size and modification time. Rejected files yield no literals.
func (e *Extractor) ExtractFile(path string) ([]Literal, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeNotFound, "stat source file"), errors.CtxPath, path)
	}
	key := fmt.Sprintf("%s|%d|%d", path, info.Size(), info.ModTime().UnixNano())
	if cached, ok := e.cache.Get(key); ok {
		return append([]Literal(nil), cached...), nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeNotFound, "read source file"), errors.CtxPath, path)
	}

	var literals []Literal
	if Accept(path, content) {
		literals, err = e.Extract(path, content)
		if err != nil {
			return nil, err
		}
	}
	e.cache.Put(key, literals)
	return append([]Literal(nil), literals...), nil
}

// Extract parses content as the language of path.
func (e *Extractor) Extract(path string, content []byte) ([]Literal, error) {
	lang := e.loader.Language(path)
	if lang == "" {
		return nil, errors.AddContext(errors.New(errors.CodeNotSupported, "unsupported language"), errors.CtxPath, path)
	}
	grammar := e.loader.Grammar(lang)

	start := time.Now()
	pool := e.pools.get(lang, grammar)
	sp := pool.Get()
	defer pool.Put(sp)
	tree := sp.Parse(content, nil)
	if tree == nil {
		return nil, errors.AddContext(errors.New(errors.CodeInternal, "parse failed"), errors.CtxPath, path)
	}
	defer tree.Close()

	ctx := &ExtractionContext{Source: content, Path: path, Language: lang}
	e.engine(lang).Walk(ctx, tree.RootNode())

	observability.ParsingDuration.WithLabelValues(lang).Observe(time.Since(start).Seconds())
	observability.LiteralsExtractedTotal.WithLabelValues(lang).Add(float64(len(ctx.Literals)))
	return ctx.Literals, nil
}

func (e *Extractor) engine(lang string) *ExtractorEngine {
	e.enginesMu.Lock()
	defer e.enginesMu.Unlock()
	eng, ok := e.engines[lang]
	if !ok {
		eng = NewExtractorEngine(handlersFor(lang))
		e.engines[lang] = eng
	}
	return eng
}
