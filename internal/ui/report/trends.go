package report

import (
	"encoding/json"
	"fmt"
	"strings"

	"pathref/internal/data/history"
)

// RenderHistoryTSV renders recorded scans, oldest first, with the change in
// unresolved references against the previous scan.
func RenderHistoryTSV(scans []history.Scan) ([]byte, error) {
	var buf strings.Builder

	buf.WriteString("Timestamp\tScanID\tModules\tRoots\tStaleRoots\tFiles\tLiterals\tReferences\tUnresolved\tDeltaUnresolved\n")
	for i, scan := range scans {
		delta := 0
		if i > 0 {
			delta = scan.UnresolvedCount - scans[i-1].UnresolvedCount
		}
		buf.WriteString(fmt.Sprintf("%s\t%s\t%d\t%d\t%d\t%d\t%d\t%d\t%d\t%+d\n",
			scan.Timestamp.Format("2006-01-02T15:04:05Z07:00"),
			scan.ID,
			scan.ModuleCount,
			scan.RootCount,
			scan.StaleRootCount,
			scan.FileCount,
			scan.LiteralCount,
			scan.ReferenceCount,
			scan.UnresolvedCount,
			delta,
		))
	}
	return []byte(buf.String()), nil
}

func RenderHistoryJSON(scans []history.Scan) ([]byte, error) {
	return json.MarshalIndent(scans, "", "  ")
}
