package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlobStoreRoundTrip(t *testing.T) {
	store := NewBlobStore()
	ctx := context.Background()

	ok, err := store.Exists(ctx, "images/a/b.jpg")
	require.NoError(t, err)
	assert.False(t, ok)

	uri, err := store.Put(ctx, "images/a/b.jpg", "image/jpeg", []byte("abc"))
	require.NoError(t, err)
	assert.Equal(t, "memory://images/a/b.jpg", uri)

	ok, err = store.Exists(ctx, "images/a/b.jpg")
	require.NoError(t, err)
	assert.True(t, ok)

	data, ok := store.Get("images/a/b.jpg")
	require.True(t, ok)
	assert.Equal(t, []byte("abc"), data)
}

func TestBlobStoreSeed(t *testing.T) {
	store := NewBlobStore()
	store.Seed("images/x/y.webp", []byte("webp"))

	ok, err := store.Exists(context.Background(), "images/x/y.webp")
	require.NoError(t, err)
	assert.True(t, ok)
}
