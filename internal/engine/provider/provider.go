package provider

import (
	"context"
	"path/filepath"
	"strings"

	"pathref/internal/core/errors"
	"pathref/internal/engine/literal"
	"pathref/internal/engine/reference"
	"pathref/internal/engine/roots"
	"pathref/internal/engine/workspace"
	"pathref/internal/shared/observability"

	"go.opentelemetry.io/otel/trace"
)

// LiteralSource yields the string literals of a file.
type LiteralSource interface {
	ExtractFile(path string) ([]literal.Literal, error)
}

// LiteralReferences pairs a literal with its resolved reference chain.
type LiteralReferences struct {
	Literal literal.Literal
	Set     *reference.Set
}

// Diagnostic is an unresolved, non-soft reference located in a file.
type Diagnostic struct {
	Path    string
	Line    int
	Column  int
	Literal string
	reference.Diagnostic
}

type FileResult struct {
	Path        string
	Module      string
	Sets        []LiteralReferences
	Diagnostics []Diagnostic
}

// Provider turns path-like string literals into file references resolved
// against the roots visible from the literal's module.
type Provider struct {
	workspace *workspace.Workspace
	roots     *roots.Resolver
	fs        reference.FS
	literals  LiteralSource
	soft      bool
}

func New(ws *workspace.Workspace, resolver *roots.Resolver, fs reference.FS, literals LiteralSource, soft bool) *Provider {
	return &Provider{
		workspace: ws,
		roots:     resolver,
		fs:        fs,
		literals:  literals,
		soft:      soft,
	}
}

// ReferencesForLiteral resolves lit against the default contexts of module,
// library roots included. A nil module leaves every reference unresolved.
func (p *Provider) ReferencesForLiteral(lit literal.Literal, module *workspace.Module, soft bool) *reference.Set {
	contexts := p.roots.ComputeRoots(module, true)
	set := reference.NewSet(lit.Text, lit.Offset, contexts, soft, p.fs)
	set.MapRanges(lit.ElementOffset)
	set.Resolve()
	return set
}

// ReferencesForFile extracts every literal of path and keeps those that
// look like paths or resolve against a context.
func (p *Provider) ReferencesForFile(ctx context.Context, path string) (*FileResult, error) {
	ctx, span := observability.Tracer.Start(ctx, "provider.ReferencesForFile", trace.WithAttributes(
		observability.AttrFile.String(path),
	))
	defer span.End()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeValidationError, "resolve path"), errors.CtxPath, path)
	}

	lits, err := p.literals.ExtractFile(abs)
	if err != nil {
		return nil, errors.AddContext(err, errors.CtxOperation, "extract_literals")
	}

	module := p.workspace.ModuleForFile(abs)
	result := &FileResult{Path: abs}
	if module != nil {
		result.Module = module.Name
		span.SetAttributes(observability.AttrModule.String(module.Name))
	}

	contexts := p.roots.ComputeRoots(module, true)
	span.SetAttributes(observability.AttrRootCount.Int(len(contexts)))

	for _, lit := range lits {
		if !candidate(lit.Text) {
			continue
		}
		set := reference.NewSet(lit.Text, lit.Offset, contexts, p.soft, p.fs)
		set.MapRanges(lit.ElementOffset)
		set.Resolve()
		if !looksLikePath(lit.Text) && !set.Resolved() {
			continue
		}
		result.Sets = append(result.Sets, LiteralReferences{Literal: lit, Set: set})
		for _, d := range set.Diagnostics() {
			result.Diagnostics = append(result.Diagnostics, Diagnostic{
				Path:       abs,
				Line:       lit.Location.Line,
				Column:     lit.Location.Column + d.Range.Start,
				Literal:    lit.Text,
				Diagnostic: d,
			})
		}
	}
	return result, nil
}

// candidate filters out literals that can never be file paths.
func candidate(text string) bool {
	if text == "" || len(text) > 1024 {
		return false
	}
	if strings.ContainsAny(text, "\n\r\t") || strings.Contains(text, "://") {
		return false
	}
	return strings.Trim(text, "/\\.") != ""
}

func looksLikePath(text string) bool {
	if strings.ContainsAny(text, "/\\") {
		return true
	}
	if strings.ContainsRune(text, ' ') {
		return false
	}
	ext := filepath.Ext(text)
	if len(ext) < 2 || len(ext) > 6 || len(ext) == len(text) {
		return false
	}
	return strings.ContainsAny(strings.ToLower(ext[1:]), "abcdefghijklmnopqrstuvwxyz")
}
