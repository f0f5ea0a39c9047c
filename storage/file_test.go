package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/ruteri/canary-registry/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileBackend_StoreFetch(t *testing.T) {
	dir := t.TempDir()
	backend, err := NewFileBackend(dir, nil)
	require.NoError(t, err)

	ctx := context.Background()
	payload := []byte("module canary::lure { }")

	id, err := backend.Store(ctx, payload, interfaces.ArtifactType)
	require.NoError(t, err)
	assert.Equal(t, interfaces.ComputeID(payload), id)
	assert.FileExists(t, filepath.Join(dir, "artifacts", id.String()))

	data, err := backend.Fetch(ctx, id, interfaces.ArtifactType)
	require.NoError(t, err)
	assert.Equal(t, payload, data)

	// Namespaces are separate.
	_, err = backend.Fetch(ctx, id, interfaces.ExplanationType)
	assert.ErrorIs(t, err, interfaces.ErrContentNotFound)

	// Storing twice is idempotent.
	again, err := backend.Store(ctx, payload, interfaces.ArtifactType)
	require.NoError(t, err)
	assert.Equal(t, id, again)

	assert.True(t, backend.Available(ctx))
	assert.Equal(t, "file://"+dir, backend.LocationURI())
}

func TestFileBackend_CorruptedFile(t *testing.T) {
	dir := t.TempDir()
	backend, err := NewFileBackend(dir, nil)
	require.NoError(t, err)

	id, err := backend.Store(context.Background(), []byte("original"), interfaces.ExplanationType)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "explanations", id.String()), []byte("tampered"), 0o644))

	_, err = backend.Fetch(context.Background(), id, interfaces.ExplanationType)
	assert.ErrorIs(t, err, interfaces.ErrContentNotFound)
}

func TestStorageBackendFactory(t *testing.T) {
	factory := NewStorageBackendFactory(nil)
	dir := t.TempDir()

	locations, err := ParseLocations([]string{"file://" + dir, " ", "ipfs://127.0.0.1:5001/canary?timeout=5s"})
	require.NoError(t, err)
	require.Len(t, locations, 2)

	backend, err := factory.StorageBackendFor(locations[0])
	require.NoError(t, err)
	assert.IsType(t, &FileBackend{}, backend)

	backend, err = factory.StorageBackendFor(locations[1])
	require.NoError(t, err)
	assert.Equal(t, "ipfs-127.0.0.1-5001", backend.Name())

	_, err = ParseLocations([]string{"github://owner/repo"})
	assert.ErrorIs(t, err, interfaces.ErrInvalidLocationURI)

	_, err = factory.StorageBackendFor(interfaces.StorageBackendLocation{Raw: "ftp://x", Scheme: "ftp"})
	assert.ErrorIs(t, err, interfaces.ErrInvalidLocationURI)

	multi, err := factory.CreateMultiBackend(locations[:1])
	require.NoError(t, err)
	id, err := multi.Store(context.Background(), []byte("payload"), interfaces.ArtifactType)
	require.NoError(t, err)
	data, err := multi.Fetch(context.Background(), id, interfaces.ArtifactType)
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), data)

	_, err = factory.CreateMultiBackend(nil)
	assert.Error(t, err)
}
