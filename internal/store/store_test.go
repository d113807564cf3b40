package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := Open(filepath.Join(t.TempDir(), "lnaddy.db"))
	require.NoError(t, err)

	return s
}

func TestCreateAndLookup(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	link, err := s.CreatePayLink(ctx, &PayLink{
		Username:    "alice",
		Wallet:      "W",
		Description: "Coffee",
		Min:         1,
		Max:         100,
	})
	require.NoError(t, err)
	require.NotEmpty(t, link.ID)

	byID, err := s.GetPayLink(ctx, link.ID)
	require.NoError(t, err)
	require.Equal(t, "alice", byID.Username)

	byUsername, err := s.GetAddressData(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, link.ID, byUsername.ID)
}

func TestLookupMissing(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	link, err := s.GetPayLink(ctx, "nope")
	require.NoError(t, err)
	require.Nil(t, link)

	link, err = s.GetAddressData(ctx, "nobody")
	require.NoError(t, err)
	require.Nil(t, link)

	link, err = s.IncrementPayLink(ctx, "nope")
	require.NoError(t, err)
	require.Nil(t, link)
}

func TestIncrementServedMeta(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	link, err := s.CreatePayLink(ctx, &PayLink{Username: "bob"})
	require.NoError(t, err)
	require.Zero(t, link.ServedMeta)

	const n = 5
	for i := 0; i < n; i++ {
		updated, err := s.IncrementPayLink(ctx, link.ID)
		require.NoError(t, err)
		require.Equal(t, int64(i+1), updated.ServedMeta)
	}

	// A plain read must not change the counter.
	link, err = s.GetPayLink(ctx, link.ID)
	require.NoError(t, err)
	require.Equal(t, int64(n), link.ServedMeta)
}
