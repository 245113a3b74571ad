package sqlitestore_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/jrsteele09/go-prayer-journal/internal/errors"
	"github.com/jrsteele09/go-prayer-journal/sessions"
	"github.com/jrsteele09/go-prayer-journal/sessions/sqlitestore"
	"github.com/jrsteele09/go-prayer-journal/token"
	"github.com/stretchr/testify/require"
)

func TestStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "journal.db")

	store, err := sqlitestore.Open(ctx, path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	_, err = store.Load(ctx)
	require.ErrorIs(t, err, errors.ErrNoSession)

	first := &sessions.Session{
		ID:      token.New("id-1", time.UnixMilli(1800000000000)),
		Profile: map[string]any{"name": "Jane"},
	}
	require.NoError(t, store.Save(ctx, first))

	second := &sessions.Session{
		ID:      token.New("id-2", time.UnixMilli(1800000000000)),
		Access:  token.New("access-2", time.UnixMilli(1800000000001)),
		Profile: map[string]any{"name": "John"},
	}
	require.NoError(t, store.Save(ctx, second))

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, "id-2", loaded.ID.Value)
	require.Equal(t, "John", loaded.Profile["name"])

	require.NoError(t, store.Remove(ctx))
	_, err = store.Load(ctx)
	require.ErrorIs(t, err, errors.ErrNoSession)
}

func TestStore_SharedBetweenHandles(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "journal.db")

	a, err := sqlitestore.Open(ctx, path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	b, err := sqlitestore.Open(ctx, path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })

	require.NoError(t, a.Save(ctx, &sessions.Session{ID: token.New("shared", time.UnixMilli(1800000000000))}))

	loaded, err := b.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, "shared", loaded.ID.Value)
}
