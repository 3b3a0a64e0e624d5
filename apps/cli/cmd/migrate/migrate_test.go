package migrate

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMigrateRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	cmd := Command()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(nil)

	err := cmd.Execute()
	require.Error(t, err)
	require.Contains(t, err.Error(), "DATABASE_URL is required")
}

func TestMigrateRejectsMalformedURL(t *testing.T) {
	cmd := Command()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--database-url", "::not-a-url::", "--jobs=false"})

	err := cmd.Execute()
	require.Error(t, err)
	require.Contains(t, err.Error(), "init pool")
}
