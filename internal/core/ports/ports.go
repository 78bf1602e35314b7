package ports

import (
	"context"
	"time"

	"pathref/internal/data/history"
	"pathref/internal/engine/provider"
	"pathref/internal/engine/roots"
)

// HistoryStore abstracts scan persistence.
type HistoryStore interface {
	SaveScan(projectKey string, scan history.Scan) (string, error)
	LoadScans(projectKey string, since time.Time) ([]history.Scan, error)
	UnresolvedForScan(id string) ([]history.UnresolvedRef, error)
	Close() error
}

// ScanResult summarizes a completed scan.
type ScanResult struct {
	ScanID       string
	Timestamp    time.Time
	Duration     time.Duration
	Modules      int
	Roots        int
	FilesScanned int
	Literals     int
	References   int
	Unresolved   int
	StaleRoots   []roots.StaleRoot
	Warnings     []string
}

// Snapshot is the current scan state: the summary and every file result.
type Snapshot struct {
	Result ScanResult
	Files  []*provider.FileResult
}

// RootsRequest asks for the default contexts of one module.
type RootsRequest struct {
	Module           string
	IncludeLibraries bool
}

type RootsResult struct {
	Module string
	Roots  []roots.Root
	Stats  roots.Stats
}

// ModuleSummary is the read-only view of one workspace module.
type ModuleSummary struct {
	Name         string   `json:"name"`
	SourceRoots  []string `json:"source_roots"`
	LibraryRoots []string `json:"library_roots"`
	Dependencies []string `json:"dependencies"`
}

// WatchUpdate is emitted after the app has processed a batch of changes.
type WatchUpdate struct {
	Changed          []string
	WorkspaceRebuilt bool
	Snapshot         Snapshot
}

// ReferenceService is the driving-port surface used by the CLI, TUI and
// HTTP adapters.
type ReferenceService interface {
	Scan(ctx context.Context) (ScanResult, error)
	Modules(ctx context.Context) ([]ModuleSummary, error)
	Roots(ctx context.Context, req RootsRequest) (RootsResult, error)
	FileReferences(ctx context.Context, path string) (*provider.FileResult, error)
	Snapshot(ctx context.Context) (Snapshot, error)
	History(ctx context.Context, since time.Time) ([]history.Scan, error)
}
