package api

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
)

//go:embed openapi.json
var contractJSON []byte

// LoadContract parses and validates the embedded OpenAPI document.
func LoadContract() (*openapi3.T, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(contractJSON)
	if err != nil {
		return nil, fmt.Errorf("load api contract: %w", err)
	}
	if err := doc.Validate(context.Background()); err != nil {
		return nil, fmt.Errorf("validate api contract: %w", err)
	}
	return doc, nil
}

// checkRoutes fails when a served route has no matching operation in doc.
func checkRoutes(doc *openapi3.T, list []route) error {
	for _, rt := range list {
		if !rt.documented {
			continue
		}
		item := doc.Paths.Find(rt.path)
		if item == nil {
			return fmt.Errorf("route %s %s is not in the api contract", rt.method, rt.path)
		}
		op := item.GetOperation(strings.ToUpper(rt.method))
		if op == nil {
			return fmt.Errorf("route %s %s is not in the api contract", rt.method, rt.path)
		}
		if op.OperationID != rt.operation {
			return fmt.Errorf("route %s %s: operation %q, contract says %q", rt.method, rt.path, rt.operation, op.OperationID)
		}
	}
	return nil
}
