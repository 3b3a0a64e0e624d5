package contracts

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadDomains(t *testing.T) {
	t.Parallel()

	spec, err := LoadDomains(context.Background())
	require.NoError(t, err)
	require.Empty(t, spec.Servers)

	for _, path := range []string{
		"/api/domains/push",
		"/api/domains/verify",
		"/api/domains/check",
		"/api/domains/status",
		"/api/domains/instructions",
		"/api/domains/logs",
	} {
		require.NotNil(t, spec.Paths.Find(path), path)
	}
}

func TestDomainsYAMLIsCopied(t *testing.T) {
	t.Parallel()

	raw := DomainsYAML()
	require.NotEmpty(t, raw)
	raw[0] = 'x'
	require.NotEqual(t, raw[0], DomainsYAML()[0])
}
