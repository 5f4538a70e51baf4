package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirStore_PutAndRemove(t *testing.T) {
	store, err := NewDirStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "quotes/abc.pdf", []byte("data")))

	data, err := os.ReadFile(filepath.Join(store.Root(), "quotes", "abc.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "data", string(data))

	require.NoError(t, store.Remove(ctx, "quotes/abc.pdf"))
	_, err = os.Stat(filepath.Join(store.Root(), "quotes", "abc.pdf"))
	assert.True(t, os.IsNotExist(err))
}

func TestDirStore_RemoveMissingKeyIsIdempotent(t *testing.T) {
	store, err := NewDirStore(t.TempDir())
	require.NoError(t, err)

	assert.NoError(t, store.Remove(context.Background(), "quotes/missing.pdf"))
}

func TestDirStore_KeysStayUnderRoot(t *testing.T) {
	store, err := NewDirStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "../escape.pdf", []byte("data")))

	// The cleaned key lands inside the root, never beside it.
	_, err = os.Stat(filepath.Join(store.Root(), "escape.pdf"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(filepath.Dir(store.Root()), "escape.pdf"))
	assert.True(t, os.IsNotExist(err))
}
