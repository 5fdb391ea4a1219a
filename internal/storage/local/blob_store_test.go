// Package local_test tests the local filesystem blob store.
package local_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/namhuunam/ophim-crawler/internal/storage/local"
)

func TestNew(t *testing.T) {
	t.Run("ValidConfig", func(t *testing.T) {
		tempDir := t.TempDir()
		cfg := local.Config{BaseDir: tempDir}
		store, err := local.New(cfg)
		require.NoError(t, err)
		assert.NotNil(t, store)
	})

	t.Run("MissingBaseDir", func(t *testing.T) {
		cfg := local.Config{}
		_, err := local.New(cfg)
		assert.Error(t, err)
	})

	t.Run("BaseDirIsNotADirectory", func(t *testing.T) {
		tempFile, err := os.CreateTemp("", "testfile")
		require.NoError(t, err)
		t.Cleanup(func() {
			removeErr := os.Remove(tempFile.Name())
			if removeErr != nil && !os.IsNotExist(removeErr) {
				t.Fatalf("failed to remove temp file: %v", removeErr)
			}
		})

		cfg := local.Config{BaseDir: tempFile.Name()}
		_, err = local.New(cfg)
		assert.Error(t, err)
	})
}

func TestPut(t *testing.T) {
	tempDir := t.TempDir()
	cfg := local.Config{BaseDir: tempDir, PublicBaseURL: "http://localhost:8080/storage/"}
	store, err := local.New(cfg)
	require.NoError(t, err)

	t.Run("ValidPut", func(t *testing.T) {
		path := "images/test-movie/thumb.jpg"
		data := []byte("jpegdata")
		url, err := store.Put(context.Background(), path, "image/jpeg", data)
		require.NoError(t, err)
		assert.Equal(t, "http://localhost:8080/storage/images/test-movie/thumb.jpg", url)

		// Verify the file was written correctly.
		// #nosec G304 -- test reads from the controlled temp directory.
		written, err := os.ReadFile(filepath.Join(tempDir, path))
		require.NoError(t, err)
		assert.Equal(t, data, written)
	})

	t.Run("EmptyPath", func(t *testing.T) {
		_, err := store.Put(context.Background(), "", "image/jpeg", []byte("x"))
		assert.Error(t, err)
	})

	t.Run("PathTraversal", func(t *testing.T) {
		_, err := store.Put(context.Background(), "../escape.jpg", "image/jpeg", []byte("x"))
		assert.Error(t, err)
	})
}

func TestExists(t *testing.T) {
	tempDir := t.TempDir()
	store, err := local.New(local.Config{BaseDir: tempDir})
	require.NoError(t, err)

	ok, err := store.Exists(context.Background(), "images/x/poster.webp")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = store.Put(context.Background(), "images/x/poster.webp", "image/webp", []byte("webp"))
	require.NoError(t, err)

	ok, err = store.Exists(context.Background(), "images/x/poster.webp")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestPublicURLWithoutBase(t *testing.T) {
	tempDir := t.TempDir()
	store, err := local.New(local.Config{BaseDir: tempDir})
	require.NoError(t, err)

	url := store.PublicURL("images/x/thumb.jpg")
	assert.Equal(t, "file://"+filepath.Join(tempDir, "images/x/thumb.jpg"), url)
}
