package report

import (
	"time"

	"pathref/internal/core/ports"
	"pathref/internal/engine/provider"
	"pathref/internal/engine/roots"
)

type RootJSON struct {
	Module  string `json:"module"`
	Kind    string `json:"kind"`
	Path    string `json:"path"`
	Prefix  string `json:"prefix,omitempty"`
	Library bool   `json:"library"`
}

type StaleRootJSON struct {
	Module string `json:"module"`
	ID     string `json:"id"`
	Kind   string `json:"kind"`
}

type SegmentJSON struct {
	Text    string   `json:"text"`
	Start   int      `json:"start"`
	End     int      `json:"end"`
	Soft    bool     `json:"soft"`
	Targets []string `json:"targets"`
}

type LiteralJSON struct {
	Text     string        `json:"text"`
	Line     int           `json:"line"`
	Column   int           `json:"column"`
	Resolved bool          `json:"resolved"`
	Segments []SegmentJSON `json:"segments"`
}

type DiagnosticJSON struct {
	Path    string `json:"path"`
	Line    int    `json:"line"`
	Column  int    `json:"column"`
	Literal string `json:"literal"`
	Segment string `json:"segment"`
	Message string `json:"message"`
}

type FileJSON struct {
	Path       string           `json:"path"`
	Module     string           `json:"module"`
	Literals   []LiteralJSON    `json:"literals"`
	Unresolved []DiagnosticJSON `json:"unresolved"`
}

type ScanJSON struct {
	ScanID       string          `json:"scan_id,omitempty"`
	Timestamp    time.Time       `json:"timestamp"`
	Modules      int             `json:"modules"`
	Roots        int             `json:"roots"`
	FilesScanned int             `json:"files_scanned"`
	Literals     int             `json:"literals"`
	References   int             `json:"references"`
	Unresolved   int             `json:"unresolved"`
	StaleRoots   []StaleRootJSON `json:"stale_roots"`
	Warnings     []string        `json:"warnings,omitempty"`
}

type SnapshotJSON struct {
	Scan  ScanJSON   `json:"scan"`
	Files []FileJSON `json:"files"`
}

func RootsToJSON(list []roots.Root) []RootJSON {
	out := make([]RootJSON, 0, len(list))
	for _, r := range list {
		out = append(out, RootJSON{
			Module:  r.Module,
			Kind:    r.Kind.String(),
			Path:    r.Path(),
			Prefix:  r.Prefix,
			Library: r.Library,
		})
	}
	return out
}

func StaleRootsToJSON(list []roots.StaleRoot) []StaleRootJSON {
	out := make([]StaleRootJSON, 0, len(list))
	for _, s := range list {
		out = append(out, StaleRootJSON{Module: s.Module, ID: s.ID, Kind: s.Kind})
	}
	return out
}

func FileToJSON(res *provider.FileResult) FileJSON {
	out := FileJSON{
		Path:       res.Path,
		Module:     res.Module,
		Literals:   make([]LiteralJSON, 0, len(res.Sets)),
		Unresolved: make([]DiagnosticJSON, 0, len(res.Diagnostics)),
	}
	for _, lr := range res.Sets {
		lit := LiteralJSON{
			Text:     lr.Literal.Text,
			Line:     lr.Literal.Location.Line,
			Column:   lr.Literal.Location.Column,
			Resolved: lr.Set.Resolved(),
			Segments: make([]SegmentJSON, 0, len(lr.Set.References)),
		}
		for _, ref := range lr.Set.References {
			seg := SegmentJSON{
				Text:    ref.Text,
				Start:   ref.Range.Start,
				End:     ref.Range.End,
				Soft:    ref.Soft,
				Targets: make([]string, 0, len(ref.Targets)),
			}
			for _, t := range ref.Targets {
				seg.Targets = append(seg.Targets, t.Location())
			}
			lit.Segments = append(lit.Segments, seg)
		}
		out.Literals = append(out.Literals, lit)
	}
	for _, d := range res.Diagnostics {
		out.Unresolved = append(out.Unresolved, DiagnosticJSON{
			Path:    d.Path,
			Line:    d.Line,
			Column:  d.Column,
			Literal: d.Literal,
			Segment: d.Text,
			Message: d.Message,
		})
	}
	return out
}

func ScanToJSON(r ports.ScanResult) ScanJSON {
	return ScanJSON{
		ScanID:       r.ScanID,
		Timestamp:    r.Timestamp,
		Modules:      r.Modules,
		Roots:        r.Roots,
		FilesScanned: r.FilesScanned,
		Literals:     r.Literals,
		References:   r.References,
		Unresolved:   r.Unresolved,
		StaleRoots:   StaleRootsToJSON(r.StaleRoots),
		Warnings:     r.Warnings,
	}
}

func SnapshotToJSON(snap ports.Snapshot) SnapshotJSON {
	out := SnapshotJSON{Scan: ScanToJSON(snap.Result), Files: make([]FileJSON, 0, len(snap.Files))}
	for _, f := range snap.Files {
		out.Files = append(out.Files, FileToJSON(f))
	}
	return out
}
