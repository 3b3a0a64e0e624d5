package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestDomainStoreLifecycle(t *testing.T) {
	t.Parallel()

	pool := newMigratedTestPool(t)
	store, err := NewDomainStore(pool)
	require.NoError(t, err)
	ctx := context.Background()

	name := "acme-" + uuid.NewString()[:8] + ".io"
	created := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	row, err := store.Insert(ctx, name, "10.0.0.1", strPtr("c1"), created)
	require.NoError(t, err)
	require.Equal(t, name, row.Name)
	require.False(t, row.IsVerified)
	require.Nil(t, row.VerificationToken)
	require.Equal(t, created, row.CreatedAt)

	_, err = store.Insert(ctx, name, "10.0.0.2", strPtr("c1"), created)
	require.ErrorIs(t, err, ErrConflict)

	// Same name for another customer is an independent record.
	other, err := store.Insert(ctx, name, "10.0.0.3", strPtr("c2"), created)
	require.NoError(t, err)
	require.NotEqual(t, row.ID, other.ID)

	found, err := store.Find(ctx, name, strPtr("c2"))
	require.NoError(t, err)
	require.Equal(t, other.ID, found.ID)

	// Without a customer the lookup matches on name alone.
	found, err = store.Find(ctx, name, nil)
	require.NoError(t, err)
	require.Equal(t, name, found.Name)

	_, err = store.Find(ctx, name, strPtr("c3"))
	require.ErrorIs(t, err, ErrNotFound)

	token := "ab" + uuid.NewString()
	expires := created.Add(24 * time.Hour)
	updated, err := store.Update(ctx, row.ID, DomainPatch{Token: &token, TokenExpiresAt: &expires, UpdatedAt: created.Add(time.Minute)})
	require.NoError(t, err)
	require.Equal(t, token, *updated.VerificationToken)
	require.Equal(t, expires, *updated.TokenExpiresAt)
	require.Equal(t, created.Add(time.Minute), updated.UpdatedAt)

	verified := true
	updated, err = store.Update(ctx, row.ID, DomainPatch{ClearToken: true, IsVerified: &verified, ExpectedIP: strPtr("10.0.0.1")})
	require.NoError(t, err)
	require.Nil(t, updated.VerificationToken)
	require.Nil(t, updated.TokenExpiresAt)
	require.True(t, updated.IsVerified)

	_, err = store.Update(ctx, row.ID, DomainPatch{IsVerified: &verified, ExpectedIP: strPtr("10.9.9.9")})
	require.ErrorIs(t, err, ErrConflict)

	_, err = store.Update(ctx, uuid.New(), DomainPatch{IsVerified: &verified})
	require.ErrorIs(t, err, ErrNotFound)

	_, err = store.Update(ctx, row.ID, DomainPatch{Token: &token})
	require.Error(t, err)
}

func TestDomainStoreNullCustomerIsUnique(t *testing.T) {
	t.Parallel()

	pool := newMigratedTestPool(t)
	store, err := NewDomainStore(pool)
	require.NoError(t, err)
	ctx := context.Background()

	name := "null-" + uuid.NewString()[:8] + ".io"
	_, err = store.Insert(ctx, name, "10.0.0.1", nil, time.Time{})
	require.NoError(t, err)

	_, err = store.Insert(ctx, name, "10.0.0.1", nil, time.Time{})
	require.ErrorIs(t, err, ErrConflict)

	// Empty string is a distinct customer from no customer.
	_, err = store.Insert(ctx, name, "10.0.0.1", strPtr(""), time.Time{})
	require.NoError(t, err)
}

func TestDomainStoreLogs(t *testing.T) {
	t.Parallel()

	pool := newMigratedTestPool(t)
	store, err := NewDomainStore(pool)
	require.NoError(t, err)
	ctx := context.Background()

	row, err := store.Insert(ctx, "logs-"+uuid.NewString()[:8]+".io", "10.0.0.1", strPtr("c1"), time.Time{})
	require.NoError(t, err)

	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	steps := []string{"token_generated", "txt_record", "cname_record", "completed"}
	for i, step := range steps {
		require.NoError(t, store.AppendLog(ctx, VerificationLogRow{
			DomainID:   row.ID,
			CustomerID: "c1",
			Step:       step,
			Status:     "success",
			Details:    strPtr(step),
			CreatedAt:  base.Add(time.Duration(i) * time.Second),
		}))
	}

	logs, err := store.ListLogs(ctx, row.ID)
	require.NoError(t, err)
	require.Len(t, logs, len(steps))
	for i, entry := range logs {
		require.Equal(t, steps[i], entry.Step)
		require.Equal(t, row.ID, entry.DomainID)
	}

	require.NoError(t, store.Ping(ctx))
}

func TestMigrateIsIdempotent(t *testing.T) {
	t.Parallel()

	pool := newMigratedTestPool(t)
	ctx := context.Background()

	require.NoError(t, Migrate(ctx, pool, nil))
	version, err := MigrationVersion(ctx, pool)
	require.NoError(t, err)
	require.EqualValues(t, 2, version)
}
