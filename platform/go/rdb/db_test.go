package rdb

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOpenFromURLRejectsUnknownScheme(t *testing.T) {
	_, err := OpenFromURL("postgres://localhost/db")
	require.ErrorContains(t, err, "unsupported db scheme")
}

func TestOpenFromURLMigratesAndPings(t *testing.T) {
	db, err := OpenFromURL("sqlite:" + filepath.Join(t.TempDir(), "domains.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(db) })

	require.NoError(t, AutoMigrate(db))
	require.True(t, db.Migrator().HasTable(&DomainRecord{}))
	require.True(t, db.Migrator().HasTable(&VerificationLogRecord{}))

	store, err := NewDomainStore(db)
	require.NoError(t, err)
	require.NoError(t, store.Ping(context.Background()))
}

func TestCustomerKeyDistinguishesAbsentFromEmpty(t *testing.T) {
	empty := ""
	require.Equal(t, "", customerKey(nil))
	require.Equal(t, "=", customerKey(&empty))

	id := "c1"
	require.Equal(t, "=c1", customerKey(&id))
}
