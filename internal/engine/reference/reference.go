package reference

import (
	"fmt"
	"sort"
	"strings"

	"pathref/internal/engine/roots"
	"pathref/internal/engine/vfs"
	"pathref/internal/shared/observability"
)

// FS is the directory navigation a Set needs.
type FS interface {
	Child(dir vfs.Directory, name string) (vfs.Item, bool)
	Children(dir vfs.Directory) []vfs.Item
}

// Range is a half-open byte range relative to the start of the literal
// element, so Start already includes the literal's value offset.
type Range struct {
	Start int
	End   int
}

// Target is one place a segment resolved to. Virtual targets are package
// prefix components of a prefixed context; Item then holds the context root.
type Target struct {
	Item    vfs.Item
	Virtual bool
	Context int
}

func (t Target) Location() string {
	if t.Virtual {
		return t.Item.Directory.String() + "#" + t.Item.Name
	}
	return t.Item.Directory.String()
}

// Reference is one path segment of a literal.
type Reference struct {
	Index   int
	Text    string
	Range   Range
	Soft    bool
	Targets []Target
}

func (r *Reference) Resolved() bool {
	return len(r.Targets) > 0
}

// Diagnostic reports an unresolved, non-soft reference.
type Diagnostic struct {
	Index   int
	Text    string
	Range   Range
	Message string
}

// Set is the chain of segment references built from one literal.
type Set struct {
	Text       string
	Offset     int
	Contexts   []roots.Root
	Soft       bool
	References []*Reference

	fs       FS
	resolved bool
}

// NewSet splits text on '/' and '\' into references. Empty segments are
// dropped, so a leading separator still resolves against the contexts.
func NewSet(text string, offset int, contexts []roots.Root, soft bool, fs FS) *Set {
	s := &Set{
		Text:     text,
		Offset:   offset,
		Contexts: contexts,
		Soft:     soft,
		fs:       fs,
	}

	start := 0
	for i := 0; i <= len(text); i++ {
		if i < len(text) && text[i] != '/' && text[i] != '\\' {
			continue
		}
		if i > start {
			s.References = append(s.References, &Reference{
				Index: len(s.References),
				Text:  text[start:i],
				Range: Range{Start: offset + start, End: offset + i},
				Soft:  soft,
			})
		}
		start = i + 1
	}
	return s
}

// MapRanges rewrites every reference range through pos, which maps an
// offset into Text to an offset inside the literal element. Decoders that
// expand escape sequences use it to keep ranges on the source bytes.
func (s *Set) MapRanges(pos func(int) int) {
	for _, ref := range s.References {
		ref.Range = Range{
			Start: pos(ref.Range.Start - s.Offset),
			End:   pos(ref.Range.End - s.Offset),
		}
	}
}

// AbsolutePathReference reports that a leading separator still resolves
// against the default contexts rather than the filesystem root.
func (s *Set) AbsolutePathReference() bool {
	return true
}

// Resolve fills the Targets of every reference. Calling it again is a no-op.
func (s *Set) Resolve() {
	if s.resolved {
		return
	}
	s.resolved = true

	// With no contexts every reference stays unresolved.
	seen := make([]map[string]bool, len(s.References))
	for i := range seen {
		seen[i] = make(map[string]bool)
	}
	for ci, root := range s.Contexts {
		s.walk(ci, root, len(s.References), func(i int, t Target) {
			loc := t.Location()
			if seen[i][loc] {
				return
			}
			seen[i][loc] = true
			s.References[i].Targets = append(s.References[i].Targets, t)
		})
	}

	for _, ref := range s.References {
		if !ref.Resolved() {
			observability.ReferencesUnresolvedTotal.Inc()
		}
	}
}

// Resolved reports whether every reference has at least one target.
func (s *Set) Resolved() bool {
	s.Resolve()
	for _, ref := range s.References {
		if !ref.Resolved() {
			return false
		}
	}
	return len(s.References) > 0
}

// LastTargets returns the targets of the final segment.
func (s *Set) LastTargets() []Target {
	s.Resolve()
	if len(s.References) == 0 {
		return nil
	}
	return s.References[len(s.References)-1].Targets
}

// Diagnostics reports the first unresolved reference of the chain unless
// the set is soft. Later segments fail as a consequence and are not repeated.
func (s *Set) Diagnostics() []Diagnostic {
	s.Resolve()
	for _, ref := range s.References {
		if ref.Resolved() {
			continue
		}
		if ref.Soft {
			return nil
		}
		return []Diagnostic{{
			Index:   ref.Index,
			Text:    ref.Text,
			Range:   ref.Range,
			Message: fmt.Sprintf("cannot resolve file or directory %q", ref.Text),
		}}
	}
	return nil
}

// Variants lists completion candidates for segment i: every name available
// after resolving segments 0..i-1 in each context. i may equal the number of
// references to complete a trailing separator.
func (s *Set) Variants(i int) []string {
	if i < 0 || i > len(s.References) {
		return nil
	}
	names := make(map[string]bool)
	for ci, root := range s.Contexts {
		pos, ok := s.walk(ci, root, i, nil)
		if !ok {
			continue
		}
		if len(pos.pending) > 0 {
			names[pos.pending[0]] = true
			continue
		}
		for _, item := range s.fs.Children(pos.dir) {
			names[item.Name] = true
		}
	}
	out := make([]string, 0, len(names))
	for name := range names {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

type position struct {
	dir     vfs.Directory
	pending []string
}

// walk resolves references [0, upTo) against one context. It returns the
// directory position reached, and false when a segment failed or landed on
// a file.
func (s *Set) walk(ci int, root roots.Root, upTo int, visit func(int, Target)) (position, bool) {
	pos := position{dir: root.Dir}
	if root.Kind == roots.PackagePrefixedDirectory && root.Prefix != "" {
		pos.pending = strings.Split(root.Prefix, ".")
	}
	rootItem := vfs.Item{Directory: root.Dir, IsDir: true}

	for i := 0; i < upTo; i++ {
		name := s.References[i].Text

		if len(pos.pending) > 0 {
			if name != "." {
				if name != pos.pending[0] {
					return pos, false
				}
				pos.pending = pos.pending[1:]
			}
			if visit != nil {
				target := Target{Item: rootItem, Virtual: len(pos.pending) > 0 || name == ".", Context: ci}
				target.Item.Name = name
				visit(i, target)
			}
			continue
		}

		item, ok := s.fs.Child(pos.dir, name)
		if !ok {
			return pos, false
		}
		if visit != nil {
			visit(i, Target{Item: item, Context: ci})
		}
		if !item.IsDir {
			return pos, false
		}
		pos.dir = item.Directory
	}
	return pos, true
}
