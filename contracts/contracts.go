// Package contracts embeds the public OpenAPI documents.
package contracts

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/getkin/kin-openapi/openapi3"
)

//go:embed domains.yaml
var domainsYAML []byte

// DomainsYAML returns the raw domains contract.
func DomainsYAML() []byte {
	return append([]byte(nil), domainsYAML...)
}

// LoadDomains parses and validates the domains contract.
func LoadDomains(ctx context.Context) (*openapi3.T, error) {
	loader := openapi3.NewLoader()
	loader.Context = ctx

	spec, err := loader.LoadFromData(domainsYAML)
	if err != nil {
		return nil, fmt.Errorf("load domains contract: %w", err)
	}
	if err := spec.Validate(ctx); err != nil {
		return nil, fmt.Errorf("validate domains contract: %w", err)
	}
	return spec, nil
}
