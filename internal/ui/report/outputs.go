package report

import (
	"encoding/json"
	"log/slog"

	"pathref/internal/core/config"
	"pathref/internal/core/ports"
	"pathref/internal/shared/util"
	"pathref/internal/ui/report/formats"
)

// WriteOutputs writes the configured TSV, SARIF and JSON reports for snap.
// Empty paths are skipped. It returns the paths written.
func WriteOutputs(out config.Output, projectRoot string, snap ports.Snapshot) ([]string, error) {
	var written []string

	if out.TSV != "" {
		tsv, err := formats.GenerateReferencesTSV(snap.Files)
		if err != nil {
			return written, err
		}
		path := config.ResolveRelative(projectRoot, out.TSV)
		if err := util.WriteFileWithDirs(path, []byte(tsv), 0o644); err != nil {
			return written, err
		}
		written = append(written, path)
	}

	if out.SARIF != "" {
		data, err := formats.GenerateSARIF(projectRoot, Diagnostics(snap.Files), snap.Result.StaleRoots)
		if err != nil {
			return written, err
		}
		path := config.ResolveRelative(projectRoot, out.SARIF)
		if err := util.WriteFileWithDirs(path, data, 0o644); err != nil {
			return written, err
		}
		written = append(written, path)
	}

	if out.JSON != "" {
		data, err := json.MarshalIndent(SnapshotToJSON(snap), "", "  ")
		if err != nil {
			return written, err
		}
		path := config.ResolveRelative(projectRoot, out.JSON)
		if err := util.WriteFileWithDirs(path, data, 0o644); err != nil {
			return written, err
		}
		written = append(written, path)
	}

	for _, p := range written {
		slog.Debug("wrote report", "path", p)
	}
	return written, nil
}
