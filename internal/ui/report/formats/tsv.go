// # internal/ui/report/formats/tsv.go
package formats

import (
	"fmt"
	"strings"

	"pathref/internal/engine/provider"
	"pathref/internal/engine/roots"
)

// GenerateReferencesTSV writes one row per path segment of every reference
// set. Unresolved segments have an empty Target; a segment with several
// targets gets one row per target.
func GenerateReferencesTSV(files []*provider.FileResult) (string, error) {
	var buf strings.Builder

	buf.WriteString("File\tModule\tLine\tColumn\tLiteral\tSegment\tSoft\tTarget\n")
	for _, f := range files {
		for _, lr := range f.Sets {
			for _, ref := range lr.Set.References {
				column := lr.Literal.Location.Column + ref.Range.Start
				if !ref.Resolved() {
					buf.WriteString(fmt.Sprintf("%s\t%s\t%d\t%d\t%s\t%s\t%t\t\n",
						f.Path, f.Module, lr.Literal.Location.Line, column,
						escapeTSV(lr.Literal.Text), escapeTSV(ref.Text), ref.Soft))
					continue
				}
				for _, target := range ref.Targets {
					buf.WriteString(fmt.Sprintf("%s\t%s\t%d\t%d\t%s\t%s\t%t\t%s\n",
						f.Path, f.Module, lr.Literal.Location.Line, column,
						escapeTSV(lr.Literal.Text), escapeTSV(ref.Text), ref.Soft, target.Location()))
				}
			}
		}
	}
	return buf.String(), nil
}

func GenerateRootsTSV(list []roots.Root) (string, error) {
	var buf strings.Builder

	buf.WriteString("Module\tKind\tLibrary\tPrefix\tPath\n")
	for _, r := range list {
		buf.WriteString(fmt.Sprintf("%s\t%s\t%t\t%s\t%s\n", r.Module, r.Kind, r.Library, r.Prefix, r.Path()))
	}
	return buf.String(), nil
}

func escapeTSV(s string) string {
	return strings.NewReplacer("\t", `\t`, "\n", `\n`, "\r", `\r`).Replace(s)
}
