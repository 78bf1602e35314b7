package history

import "time"

const SchemaVersion = 2

// Scan summarizes one full reference scan of a project.
type Scan struct {
	ID              string
	ProjectKey      string
	Timestamp       time.Time
	ModuleCount     int
	RootCount       int
	StaleRootCount  int
	FileCount       int
	LiteralCount    int
	ReferenceCount  int
	UnresolvedCount int
	Unresolved      []UnresolvedRef
}

// UnresolvedRef is one unresolved, non-soft reference recorded with a scan.
type UnresolvedRef struct {
	Path    string
	Line    int
	Column  int
	Literal string
	Segment string
	Module  string
}
