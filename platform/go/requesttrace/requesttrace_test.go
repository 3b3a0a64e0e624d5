package requesttrace

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func ptr(s string) *string { return &s }

func TestIntoContextAndFromContext(t *testing.T) {
	audit := AuditInfo{ActorKind: ActorKindCustomer, CustomerID: ptr("c1"), RequestID: "req-abc"}

	ctx := IntoContext(context.Background(), audit)

	got, ok := FromContext(ctx)
	require.True(t, ok)
	require.Equal(t, audit, got)
}

func TestFromContextMissing(t *testing.T) {
	_, ok := FromContext(context.Background())
	require.False(t, ok)

	audit := FromContextOrAnonymous(context.Background())
	require.Equal(t, ActorKindAnonymous, audit.ActorKind)
}

func TestForCustomer(t *testing.T) {
	audit, err := ForCustomer(" c1 ", "req-xyz")
	require.NoError(t, err)
	require.Equal(t, ActorKindCustomer, audit.ActorKind)
	require.Equal(t, "c1", *audit.CustomerID)
	require.Equal(t, "req-xyz", audit.RequestID)

	_, err = ForCustomer("  ", "req-1")
	require.Error(t, err)
}

func TestSystem(t *testing.T) {
	audit := System("job-7")
	require.Equal(t, ActorKindSystem, audit.ActorKind)
	require.Nil(t, audit.CustomerID)
	require.Equal(t, "job-7", audit.RequestID)
}
