package literal

import (
	sitter "github.com/tree-sitter/go-tree-sitter"
)

// NodeHandler processes one node. Returning true stops the walker from
// descending into the node's children.
type NodeHandler func(ctx *ExtractionContext, node *sitter.Node) bool

// ExtractionContext carries the source being walked and the literals found.
type ExtractionContext struct {
	Source   []byte
	Path     string
	Language string
	Literals []Literal
}

// ExtractorEngine walks the syntax tree and dispatches handlers by node kind.
type ExtractorEngine struct {
	handlers map[string]NodeHandler
}

func NewExtractorEngine(handlers map[string]NodeHandler) *ExtractorEngine {
	return &ExtractorEngine{handlers: handlers}
}

func (e *ExtractorEngine) Walk(ctx *ExtractionContext, node *sitter.Node) {
	if node == nil {
		return
	}
	if handler, ok := e.handlers[node.Kind()]; ok && handler(ctx, node) {
		return
	}
	for i := uint(0); i < node.ChildCount(); i++ {
		e.Walk(ctx, node.Child(i))
	}
}

func (c *ExtractionContext) Text(node *sitter.Node) string {
	if node == nil {
		return ""
	}
	return string(c.Source[node.StartByte():node.EndByte()])
}

func (c *ExtractionContext) Location(node *sitter.Node) Location {
	return Location{
		File:   c.Path,
		Line:   int(node.StartPosition().Row) + 1,
		Column: int(node.StartPosition().Column) + 1,
	}
}

func (c *ExtractionContext) emit(node *sitter.Node, value string, offset int) {
	c.emitMapped(node, value, offset, nil)
}

// emitMapped records a decoded literal together with the offset index
// produced by its decoder.
func (c *ExtractionContext) emitMapped(node *sitter.Node, value string, offset int, index []int) {
	c.Literals = append(c.Literals, Literal{
		Text:     value,
		Offset:   offset,
		Start:    int(node.StartByte()),
		End:      int(node.EndByte()),
		Location: c.Location(node),
		Language: c.Language,
		index:    index,
	})
}

func hasChildKind(node *sitter.Node, kind string) bool {
	for i := uint(0); i < node.ChildCount(); i++ {
		if node.Child(i).Kind() == kind {
			return true
		}
	}
	return false
}
