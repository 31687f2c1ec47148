package object

import (
	"bytes"
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewLocalStore(afero.NewMemMapFs(), "/objects")

	payload := []byte{0x00, 0xff, 0x10, 0x7f}
	require.NoError(t, store.Put(ctx, "upload/1-abc-blob.bin", bytes.NewReader(payload), int64(len(payload)), "application/octet-stream"))

	got, err := store.Get(ctx, "upload/1-abc-blob.bin")
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestLocalStoreZeroLength(t *testing.T) {
	ctx := context.Background()
	store := NewLocalStore(afero.NewMemMapFs(), "/objects")

	require.NoError(t, store.Put(ctx, "upload/empty.txt", bytes.NewReader(nil), 0, "text/plain"))

	got, err := store.Get(ctx, "upload/empty.txt")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestLocalStoreMissingKey(t *testing.T) {
	store := NewLocalStore(afero.NewMemMapFs(), "/objects")

	_, err := store.Get(context.Background(), "upload/nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLocalStoreDeleteAndList(t *testing.T) {
	ctx := context.Background()
	store := NewLocalStore(afero.NewMemMapFs(), "/objects")

	for _, key := range []string{"autorag/a.md", "autorag/b.md", "upload/c.txt"} {
		require.NoError(t, store.Put(ctx, key, bytes.NewReader([]byte(key)), int64(len(key)), ""))
	}

	keys, err := store.List(ctx, "autorag/")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"autorag/a.md", "autorag/b.md"}, keys)

	require.NoError(t, store.Delete(ctx, "autorag/a.md"))
	require.NoError(t, store.Delete(ctx, "autorag/a.md"))

	keys, err = store.List(ctx, "autorag/")
	require.NoError(t, err)
	assert.Equal(t, []string{"autorag/b.md"}, keys)
}

func TestLocalStoreKeysStayInsideRoot(t *testing.T) {
	fsys := afero.NewMemMapFs()
	store := NewLocalStore(fsys, "/objects")

	require.NoError(t, store.Put(context.Background(), "../../etc/passwd", bytes.NewReader([]byte("x")), 1, ""))

	exists, err := afero.Exists(fsys, "/objects/etc/passwd")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestLocalStoreListEmptyRoot(t *testing.T) {
	store := NewLocalStore(afero.NewMemMapFs(), "/objects")

	keys, err := store.List(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, keys)
}
