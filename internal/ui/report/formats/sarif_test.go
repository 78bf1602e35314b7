// # internal/ui/report/formats/sarif_test.go
package formats

import (
	"encoding/json"
	"strings"
	"testing"

	"pathref/internal/engine/provider"
	"pathref/internal/engine/reference"
	"pathref/internal/engine/roots"
)

func TestGenerateSARIF_EmptyResults(t *testing.T) {
	data, err := GenerateSARIF("", nil, nil)
	if err != nil {
		t.Fatalf("GenerateSARIF returned error: %v", err)
	}
	var report sarifReport
	if err := json.Unmarshal(data, &report); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if report.Schema != sarifSchema {
		t.Errorf("$schema = %q, want %q", report.Schema, sarifSchema)
	}
	if report.Version != sarifVersion {
		t.Errorf("version = %q, want %q", report.Version, sarifVersion)
	}
	if len(report.Runs) != 1 {
		t.Fatalf("len(runs) = %d, want 1", len(report.Runs))
	}
	if len(report.Runs[0].Results) != 0 || len(report.Runs[0].Tool.Driver.Rules) != 0 {
		t.Errorf("expected no results and no rules, got %+v", report.Runs[0])
	}
}

func TestGenerateSARIF_UnresolvedReference(t *testing.T) {
	diags := []provider.Diagnostic{{
		Path:    "/project/app/main.go",
		Line:    6,
		Column:  15,
		Literal: "missing/file.txt",
		Diagnostic: reference.Diagnostic{
			Text:    "missing",
			Range:   reference.Range{Start: 1, End: 8},
			Message: `Cannot resolve directory "missing"`,
		},
	}}
	data, err := GenerateSARIF("/project", diags, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var report sarifReport
	if err := json.Unmarshal(data, &report); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	results := report.Runs[0].Results
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	r := results[0]
	if r.RuleID != ruleIDUnresolved || r.Level != "error" {
		t.Errorf("unexpected rule/level: %s/%s", r.RuleID, r.Level)
	}
	if !strings.Contains(r.Message.Text, "missing/file.txt") {
		t.Errorf("message %q should name the literal", r.Message.Text)
	}
	loc := r.Locations[0].PhysicalLocation
	if loc.ArtifactLocation.URI != "app/main.go" {
		t.Errorf("uri = %q, want app/main.go", loc.ArtifactLocation.URI)
	}
	if loc.Region == nil || loc.Region.StartLine != 6 || loc.Region.StartColumn != 15 || loc.Region.EndColumn != 22 {
		t.Errorf("unexpected region: %+v", loc.Region)
	}
	if len(report.Runs[0].Tool.Driver.Rules) != 1 || report.Runs[0].Tool.Driver.Name != "pathref" {
		t.Errorf("unexpected driver: %+v", report.Runs[0].Tool.Driver)
	}
}

func TestGenerateSARIF_StaleRoots(t *testing.T) {
	stale := []roots.StaleRoot{
		{Module: "app", ID: "/project/libs/gone", Kind: "library"},
		{Module: "core", ID: "jar:///opt/x.jar!/", Kind: "library"},
	}
	data, err := GenerateSARIF("/project", nil, stale)
	if err != nil {
		t.Fatal(err)
	}
	var report sarifReport
	if err := json.Unmarshal(data, &report); err != nil {
		t.Fatal(err)
	}
	results := report.Runs[0].Results
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].RuleID != ruleIDStaleRoot || results[0].Level != "warning" {
		t.Errorf("unexpected result: %+v", results[0])
	}
	if got := results[0].Locations[0].PhysicalLocation.ArtifactLocation.URI; got != "libs/gone" {
		t.Errorf("uri = %q", got)
	}
	if got := results[1].Locations[0].PhysicalLocation.ArtifactLocation.URI; got != "jar:///opt/x.jar!/" {
		t.Errorf("url-style id should be kept, got %q", got)
	}
}

func TestRelativeURI(t *testing.T) {
	cases := []struct {
		root, path, want string
	}{
		{"/project", "/project/a/b.go", "a/b.go"},
		{"/project", "/elsewhere/c.go", "/elsewhere/c.go"},
		{"", "/project/a.go", "/project/a.go"},
		{"/project", "rel/x.go", "rel/x.go"},
	}
	for _, tc := range cases {
		if got := relativeURI(tc.root, tc.path); got != tc.want {
			t.Errorf("relativeURI(%q, %q) = %q, want %q", tc.root, tc.path, got, tc.want)
		}
	}
}
