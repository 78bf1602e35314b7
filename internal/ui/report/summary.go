package report

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"pathref/internal/core/ports"
	"pathref/internal/engine/provider"
	"pathref/internal/engine/roots"
)

// Diagnostics flattens the diagnostics of every file in path order.
func Diagnostics(files []*provider.FileResult) []provider.Diagnostic {
	var out []provider.Diagnostic
	for _, f := range files {
		out = append(out, f.Diagnostics...)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Path != out[j].Path {
			return out[i].Path < out[j].Path
		}
		if out[i].Line != out[j].Line {
			return out[i].Line < out[j].Line
		}
		return out[i].Column < out[j].Column
	})
	return out
}

// WriteSummary prints a plain-text summary of a scan. At most limit
// unresolved references are listed; limit <= 0 lists all of them.
func WriteSummary(w io.Writer, snap ports.Snapshot, limit int) error {
	r := snap.Result
	var b strings.Builder

	fmt.Fprintf(&b, "Modules:     %d\n", r.Modules)
	fmt.Fprintf(&b, "Roots:       %d (%d stale)\n", r.Roots, len(r.StaleRoots))
	fmt.Fprintf(&b, "Files:       %d\n", r.FilesScanned)
	fmt.Fprintf(&b, "Literals:    %d\n", r.Literals)
	fmt.Fprintf(&b, "References:  %d\n", r.References)
	fmt.Fprintf(&b, "Unresolved:  %d\n", r.Unresolved)
	if r.Duration > 0 {
		fmt.Fprintf(&b, "Duration:    %s\n", r.Duration.Round(1e6))
	}
	if r.ScanID != "" {
		fmt.Fprintf(&b, "Scan ID:     %s\n", r.ScanID)
	}

	if len(r.StaleRoots) > 0 {
		b.WriteString("\nStale roots:\n")
		for _, s := range r.StaleRoots {
			fmt.Fprintf(&b, "  %s (%s) %s\n", s.Module, s.Kind, s.ID)
		}
	}

	diags := Diagnostics(snap.Files)
	if len(diags) > 0 {
		b.WriteString("\nUnresolved references:\n")
		for i, d := range diags {
			if limit > 0 && i == limit {
				fmt.Fprintf(&b, "  ... %d more\n", len(diags)-limit)
				break
			}
			fmt.Fprintf(&b, "  %s:%d:%d %q in %q\n", d.Path, d.Line, d.Column, d.Text, d.Literal)
		}
	}

	if len(r.Warnings) > 0 {
		b.WriteString("\nWarnings:\n")
		for _, w := range r.Warnings {
			fmt.Fprintf(&b, "  %s\n", w)
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// WriteRoots prints one root per line, marking library and prefixed roots.
func WriteRoots(w io.Writer, res ports.RootsResult) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Roots of %s (%d modules scanned):\n", res.Module, res.Stats.ScannedModules)
	for i, root := range res.Roots {
		fmt.Fprintf(&b, "%3d. %s%s\n", i+1, root.Path(), rootTags(root))
	}
	for _, s := range res.Stats.Stale {
		fmt.Fprintf(&b, "  stale %s root of %s: %s\n", s.Kind, s.Module, s.ID)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func rootTags(root roots.Root) string {
	var tags []string
	if root.Library {
		tags = append(tags, "library")
	}
	if root.Kind == roots.PackagePrefixedDirectory {
		tags = append(tags, "package "+root.Prefix)
	}
	if root.Module != "" && !root.Library {
		tags = append(tags, "module "+root.Module)
	}
	if len(tags) == 0 {
		return ""
	}
	return "  [" + strings.Join(tags, ", ") + "]"
}

// WriteFileReferences prints every reference set of one file result.
func WriteFileReferences(w io.Writer, res *provider.FileResult) error {
	var b strings.Builder
	module := res.Module
	if module == "" {
		module = "(no module)"
	}
	fmt.Fprintf(&b, "%s  %s\n", res.Path, module)
	for _, lr := range res.Sets {
		status := "ok"
		if !lr.Set.Resolved() {
			status = "unresolved"
		}
		fmt.Fprintf(&b, "  %d:%d %q %s\n", lr.Literal.Location.Line, lr.Literal.Location.Column, lr.Literal.Text, status)
		for _, ref := range lr.Set.References {
			targets := make([]string, 0, len(ref.Targets))
			for _, t := range ref.Targets {
				targets = append(targets, t.Location())
			}
			if len(targets) == 0 {
				targets = append(targets, "-")
			}
			fmt.Fprintf(&b, "      %-20s %s\n", ref.Text, strings.Join(targets, ", "))
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}
