package literal

import (
	"strconv"
	"strings"
	"unicode/utf8"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

func handlersFor(lang string) map[string]NodeHandler {
	switch lang {
	case "go":
		return map[string]NodeHandler{
			"interpreted_string_literal": goString,
			"raw_string_literal":         goString,
		}
	case "python":
		return map[string]NodeHandler{"string": pythonString}
	case "java":
		return map[string]NodeHandler{"string_literal": javaString}
	case "javascript", "typescript", "tsx":
		return map[string]NodeHandler{
			"string":          quotedString,
			"template_string": templateString,
		}
	case "rust":
		return map[string]NodeHandler{
			"string_literal":     rustString,
			"raw_string_literal": rustRawString,
		}
	case "html":
		return map[string]NodeHandler{"quoted_attribute_value": attributeValue}
	case "css":
		return map[string]NodeHandler{"string_value": quotedString}
	}
	return nil
}

func goString(ctx *ExtractionContext, node *sitter.Node) bool {
	if value, index, ok := unquoteGo(ctx.Text(node)); ok {
		ctx.emitMapped(node, value, 1, index)
	}
	return true
}

// unquoteGo decodes a Go string literal like strconv.Unquote and records
// the source offset, relative to the opening quote's end, of every decoded
// byte.
func unquoteGo(text string) (string, []int, bool) {
	if len(text) < 2 || text[0] != text[len(text)-1] {
		return "", nil, false
	}
	body := text[1 : len(text)-1]
	switch text[0] {
	case '`':
		if !strings.ContainsRune(body, '\r') {
			return body, nil, true
		}
		var b strings.Builder
		index := make([]int, 0, len(body)+1)
		for i := 0; i < len(body); i++ {
			if body[i] == '\r' {
				continue
			}
			b.WriteByte(body[i])
			index = append(index, i)
		}
		return b.String(), append(index, len(body)), true
	case '"':
		if strings.ContainsRune(body, '\n') {
			return "", nil, false
		}
		if !strings.ContainsRune(body, '\\') {
			return body, nil, true
		}
	default:
		return "", nil, false
	}

	var (
		b     strings.Builder
		buf   [utf8.UTFMax]byte
		index = make([]int, 0, len(body)+1)
	)
	for rest := body; len(rest) > 0; {
		at := len(body) - len(rest)
		r, multibyte, tail, err := strconv.UnquoteChar(rest, '"')
		if err != nil {
			return "", nil, false
		}
		consumed := len(rest) - len(tail)
		n := 1
		if r < utf8.RuneSelf || !multibyte {
			buf[0] = byte(r)
		} else {
			n = utf8.EncodeRune(buf[:], r)
		}
		for k := 0; k < n; k++ {
			if consumed == n {
				index = append(index, at+k)
			} else {
				index = append(index, at)
			}
		}
		b.Write(buf[:n])
		rest = tail
	}
	return b.String(), append(index, len(body)), true
}

func pythonString(ctx *ExtractionContext, node *sitter.Node) bool {
	if hasChildKind(node, "interpolation") {
		return true
	}
	text := ctx.Text(node)
	i := 0
	for i < len(text) && strings.IndexByte("rRbBuUfF", text[i]) >= 0 {
		i++
	}
	prefix := strings.ToLower(text[:i])
	if strings.Contains(prefix, "b") {
		return true
	}

	delim := 1
	if strings.HasPrefix(text[i:], `"""`) || strings.HasPrefix(text[i:], `'''`) {
		delim = 3
	}
	start := i + delim
	end := len(text) - delim
	if end < start {
		return true
	}
	body := text[start:end]
	var index []int
	if !strings.Contains(prefix, "r") {
		body, index = unescape(body)
	}
	ctx.emitMapped(node, body, start, index)
	return true
}

func javaString(ctx *ExtractionContext, node *sitter.Node) bool {
	text := ctx.Text(node)
	if strings.HasPrefix(text, `"""`) && len(text) >= 6 {
		body := text[3 : len(text)-3]
		offset := 3
		if nl := strings.IndexByte(body, '\n'); nl >= 0 && strings.TrimSpace(body[:nl]) == "" {
			body = body[nl+1:]
			offset += nl + 1
		}
		value, index := unescape(body)
		ctx.emitMapped(node, value, offset, index)
		return true
	}
	return quotedString(ctx, node)
}

// quotedString handles single-delimiter literals such as "x" or 'x'.
func quotedString(ctx *ExtractionContext, node *sitter.Node) bool {
	if body, ok := stripQuotes(ctx.Text(node)); ok {
		value, index := unescape(body)
		ctx.emitMapped(node, value, 1, index)
	}
	return true
}

func templateString(ctx *ExtractionContext, node *sitter.Node) bool {
	if hasChildKind(node, "template_substitution") {
		return true
	}
	return quotedString(ctx, node)
}

func rustString(ctx *ExtractionContext, node *sitter.Node) bool {
	text := ctx.Text(node)
	if strings.HasPrefix(text, "b") || strings.HasPrefix(text, "c") {
		return true
	}
	return quotedString(ctx, node)
}

func rustRawString(ctx *ExtractionContext, node *sitter.Node) bool {
	text := ctx.Text(node)
	if !strings.HasPrefix(text, "r") {
		return true
	}
	hashes := 0
	for 1+hashes < len(text) && text[1+hashes] == '#' {
		hashes++
	}
	start := 1 + hashes + 1
	end := len(text) - (hashes + 1)
	if end < start {
		return true
	}
	ctx.emit(node, text[start:end], start)
	return true
}

func attributeValue(ctx *ExtractionContext, node *sitter.Node) bool {
	if body, ok := stripQuotes(ctx.Text(node)); ok {
		ctx.emit(node, body, 1)
	}
	return true
}

func stripQuotes(text string) (string, bool) {
	if len(text) < 2 {
		return "", false
	}
	open, close := text[0], text[len(text)-1]
	if open != close || strings.IndexByte("\"'`", open) < 0 {
		return "", false
	}
	return text[1 : len(text)-1], true
}

// unescape decodes the common backslash escapes. Unknown sequences are kept
// verbatim. index[i] is the offset in s of the source of decoded byte i, and
// index[len(decoded)] is len(s); it is nil when s has no escapes.
func unescape(s string) (string, []int) {
	if !strings.Contains(s, `\`) {
		return s, nil
	}
	var b strings.Builder
	b.Grow(len(s))
	index := make([]int, 0, len(s)+1)
	put := func(at int, c byte) {
		b.WriteByte(c)
		index = append(index, at)
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i+1 == len(s) {
			put(i, c)
			continue
		}
		at := i
		i++
		switch s[i] {
		case 'n':
			put(at, '\n')
		case 't':
			put(at, '\t')
		case 'r':
			put(at, '\r')
		case '0':
			put(at, 0)
		case '\\', '\'', '"', '/', '`':
			put(at, s[i])
		case '\n':
			// line continuation
		default:
			put(at, '\\')
			put(i, s[i])
		}
	}
	return b.String(), append(index, len(s))
}
