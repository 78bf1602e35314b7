// # internal/ui/report/formats/sarif.go
package formats

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"pathref/internal/engine/provider"
	"pathref/internal/engine/roots"
	"pathref/internal/shared/version"
)

// SARIF v2.1.0 schema – see https://schemastore.azurewebsites.net/schemas/json/sarif-2.1.0-rtm.5.json

const (
	sarifSchema  = "https://schemastore.azurewebsites.net/schemas/json/sarif-2.1.0-rtm.5.json"
	sarifVersion = "2.1.0"

	ruleIDUnresolved = "PREF001"
	ruleIDStaleRoot  = "PREF002"
)

type sarifReport struct {
	Schema  string     `json:"$schema"`
	Version string     `json:"version"`
	Runs    []sarifRun `json:"runs"`
}

type sarifRun struct {
	Tool    sarifTool     `json:"tool"`
	Results []sarifResult `json:"results"`
}

type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}

type sarifDriver struct {
	Name    string      `json:"name"`
	Version string      `json:"version"`
	Rules   []sarifRule `json:"rules"`
}

type sarifRule struct {
	ID               string                 `json:"id"`
	Name             string                 `json:"name"`
	ShortDescription sarifMessage           `json:"shortDescription"`
	DefaultConfig    sarifRuleDefaultConfig `json:"defaultConfiguration"`
}

type sarifRuleDefaultConfig struct {
	Level string `json:"level"`
}

type sarifResult struct {
	RuleID    string          `json:"ruleId"`
	Level     string          `json:"level"`
	Message   sarifMessage    `json:"message"`
	Locations []sarifLocation `json:"locations,omitempty"`
}

type sarifMessage struct {
	Text string `json:"text"`
}

type sarifLocation struct {
	PhysicalLocation sarifPhysicalLocation `json:"physicalLocation"`
}

type sarifPhysicalLocation struct {
	ArtifactLocation sarifArtifactLocation `json:"artifactLocation"`
	Region           *sarifRegion          `json:"region,omitempty"`
}

type sarifArtifactLocation struct {
	URI       string `json:"uri"`
	URIBaseID string `json:"uriBaseId"`
}

type sarifRegion struct {
	StartLine   int `json:"startLine,omitempty"`
	StartColumn int `json:"startColumn,omitempty"`
	EndColumn   int `json:"endColumn,omitempty"`
}

// GenerateSARIF builds a SARIF v2.1.0 document with one PREF001 result per
// unresolved reference and one PREF002 result per stale root. File URIs are
// made relative to projectRoot.
func GenerateSARIF(projectRoot string, diagnostics []provider.Diagnostic, stale []roots.StaleRoot) ([]byte, error) {
	rules := buildSARIFRules(diagnostics, stale)
	results := make([]sarifResult, 0, len(diagnostics)+len(stale))

	for _, d := range diagnostics {
		loc := fileLocation(projectRoot, d.Path)
		if d.Line > 0 {
			loc.PhysicalLocation.Region = &sarifRegion{
				StartLine:   d.Line,
				StartColumn: d.Column,
				EndColumn:   d.Column + (d.Range.End - d.Range.Start),
			}
		}
		msg := d.Message
		if msg == "" {
			msg = fmt.Sprintf("Cannot resolve %q", d.Text)
		}
		results = append(results, sarifResult{
			RuleID:    ruleIDUnresolved,
			Level:     "error",
			Message:   sarifMessage{Text: fmt.Sprintf("%s in %q", msg, d.Literal)},
			Locations: []sarifLocation{loc},
		})
	}

	for _, s := range stale {
		results = append(results, sarifResult{
			RuleID:    ruleIDStaleRoot,
			Level:     "warning",
			Message:   sarifMessage{Text: fmt.Sprintf("Module %q declares a %s root that does not resolve: %s", s.Module, s.Kind, s.ID)},
			Locations: []sarifLocation{fileLocation(projectRoot, s.ID)},
		})
	}

	report := sarifReport{
		Schema:  sarifSchema,
		Version: sarifVersion,
		Runs: []sarifRun{
			{
				Tool: sarifTool{
					Driver: sarifDriver{
						Name:    "pathref",
						Version: version.Version,
						Rules:   rules,
					},
				},
				Results: results,
			},
		},
	}
	return json.MarshalIndent(report, "", "  ")
}

// buildSARIFRules returns only the rules that have findings.
func buildSARIFRules(diagnostics []provider.Diagnostic, stale []roots.StaleRoot) []sarifRule {
	rules := make([]sarifRule, 0, 2)
	if len(diagnostics) > 0 {
		rules = append(rules, sarifRule{
			ID:               ruleIDUnresolved,
			Name:             "UnresolvedFileReference",
			ShortDescription: sarifMessage{Text: "A path segment in a string literal does not resolve against any root of its module."},
			DefaultConfig:    sarifRuleDefaultConfig{Level: "error"},
		})
	}
	if len(stale) > 0 {
		rules = append(rules, sarifRule{
			ID:               ruleIDStaleRoot,
			Name:             "StaleRoot",
			ShortDescription: sarifMessage{Text: "A declared source or library root no longer resolves to a directory."},
			DefaultConfig:    sarifRuleDefaultConfig{Level: "warning"},
		})
	}
	return rules
}

func fileLocation(projectRoot, path string) sarifLocation {
	return sarifLocation{
		PhysicalLocation: sarifPhysicalLocation{
			ArtifactLocation: sarifArtifactLocation{
				URI:       relativeURI(projectRoot, path),
				URIBaseID: "%SRCROOT%",
			},
		},
	}
}

// relativeURI converts an absolute file path to a forward-slash relative URI
// anchored at projectRoot. URL-style ids and paths outside projectRoot are
// returned unchanged apart from slashes.
func relativeURI(projectRoot, filePath string) string {
	if strings.Contains(filePath, "://") {
		return filePath
	}
	if projectRoot != "" && filepath.IsAbs(filePath) {
		rel, err := filepath.Rel(projectRoot, filePath)
		if err == nil && !strings.HasPrefix(rel, "..") {
			filePath = rel
		}
	}
	return filepath.ToSlash(filePath)
}
