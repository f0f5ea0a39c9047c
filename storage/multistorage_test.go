package storage

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/ruteri/canary-registry/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockStorageBackend is a testify mock of interfaces.StorageBackend.
type MockStorageBackend struct {
	mock.Mock
	name string
}

func (m *MockStorageBackend) Fetch(ctx context.Context, id interfaces.ContentID, contentType interfaces.ContentType) ([]byte, error) {
	args := m.Called(ctx, id, contentType)
	data, _ := args.Get(0).([]byte)
	return data, args.Error(1)
}

func (m *MockStorageBackend) Store(ctx context.Context, data []byte, contentType interfaces.ContentType) (interfaces.ContentID, error) {
	args := m.Called(ctx, data, contentType)
	id, _ := args.Get(0).(interfaces.ContentID)
	return id, args.Error(1)
}

func (m *MockStorageBackend) Available(ctx context.Context) bool {
	return m.Called(ctx).Bool(0)
}

func (m *MockStorageBackend) Name() string        { return m.name }
func (m *MockStorageBackend) LocationURI() string { return "mock://" + m.name }

// offlineBackend hides a working backend behind an availability switch.
type offlineBackend struct {
	interfaces.StorageBackend
	offline bool
}

func (b *offlineBackend) Available(ctx context.Context) bool {
	return !b.offline && b.StorageBackend.Available(ctx)
}

var quietLog = slog.New(slog.NewTextHandler(io.Discard, nil))

func newReplicas(t *testing.T, n int) []*FileBackend {
	t.Helper()
	replicas := make([]*FileBackend, n)
	for i := range replicas {
		backend, err := NewFileBackend(t.TempDir(), quietLog)
		require.NoError(t, err)
		replicas[i] = backend
	}
	return replicas
}

var (
	decompiledSource = []byte("module 0xa1::lure {\n    public fun bait(): u64 { 42 }\n}\n")
	explanationText  = []byte("The lure module exposes a single constant getter and holds no funds.")
)

func TestMultiStorage_ArtifactAndExplanationLocators(t *testing.T) {
	ctx := context.Background()
	replicas := newReplicas(t, 2)
	multi := NewMultiStorageBackend([]interfaces.StorageBackend{replicas[0], replicas[1]}, quietLog)

	sourceID, err := multi.Store(ctx, decompiledSource, interfaces.ArtifactType)
	require.NoError(t, err)
	explanationID, err := multi.Store(ctx, explanationText, interfaces.ExplanationType)
	require.NoError(t, err)

	// the locators written into a record resolve back to the payloads
	recordLoc, explanationLoc := sourceID.Locator(), explanationID.Locator()
	gotSourceID, err := interfaces.ContentIDFromLocator(recordLoc)
	require.NoError(t, err)
	gotExplanationID, err := interfaces.ContentIDFromLocator(explanationLoc)
	require.NoError(t, err)
	assert.Equal(t, interfaces.ComputeID(decompiledSource), gotSourceID)
	assert.Equal(t, interfaces.ComputeID(explanationText), gotExplanationID)

	source, err := multi.Fetch(ctx, gotSourceID, interfaces.ArtifactType)
	require.NoError(t, err)
	assert.Equal(t, decompiledSource, source)

	explanation, err := multi.Fetch(ctx, gotExplanationID, interfaces.ExplanationType)
	require.NoError(t, err)
	assert.Equal(t, explanationText, explanation)

	for _, replica := range replicas {
		data, err := replica.Fetch(ctx, sourceID, interfaces.ArtifactType)
		require.NoError(t, err, replica.Name())
		assert.Equal(t, decompiledSource, data)

		_, err = replica.Fetch(ctx, sourceID, interfaces.ExplanationType)
		assert.ErrorIs(t, err, interfaces.ErrContentNotFound, replica.Name())
	}

	_, err = interfaces.ContentIDFromLocator("not-a-locator")
	assert.Error(t, err)
}

func TestMultiStorage_FetchFallsBackToReplica(t *testing.T) {
	ctx := context.Background()
	replicas := newReplicas(t, 2)

	// only the second replica holds the explanation
	id, err := replicas[1].Store(ctx, explanationText, interfaces.ExplanationType)
	require.NoError(t, err)

	multi := NewMultiStorageBackend([]interfaces.StorageBackend{replicas[0], replicas[1]}, quietLog)
	data, err := multi.Fetch(ctx, id, interfaces.ExplanationType)
	require.NoError(t, err)
	assert.Equal(t, explanationText, data)

	primary := &offlineBackend{StorageBackend: replicas[1], offline: true}
	multi = NewMultiStorageBackend([]interfaces.StorageBackend{primary, replicas[0]}, quietLog)
	_, err = multi.Fetch(ctx, id, interfaces.ExplanationType)
	assert.ErrorIs(t, err, interfaces.ErrContentNotFound)

	primary.offline = false
	data, err = multi.Fetch(ctx, id, interfaces.ExplanationType)
	require.NoError(t, err)
	assert.Equal(t, explanationText, data)
}

func TestMultiStorage_StoreToleratesFailedReplica(t *testing.T) {
	ctx := context.Background()
	replica := newReplicas(t, 1)[0]

	broken := &MockStorageBackend{name: "ipfs-broken"}
	broken.On("Available", mock.Anything).Return(true)
	broken.On("Store", mock.Anything, decompiledSource, interfaces.ArtifactType).
		Return(interfaces.ContentID{}, errors.New("connection reset"))

	multi := NewMultiStorageBackend([]interfaces.StorageBackend{broken, replica}, quietLog)
	id, err := multi.Store(ctx, decompiledSource, interfaces.ArtifactType)
	require.NoError(t, err)
	assert.Equal(t, interfaces.ComputeID(decompiledSource), id)
	broken.AssertExpectations(t)

	data, err := replica.Fetch(ctx, id, interfaces.ArtifactType)
	require.NoError(t, err)
	assert.Equal(t, decompiledSource, data)
}

func TestMultiStorage_StoreFailsWhenNoReplicaAccepts(t *testing.T) {
	ctx := context.Background()

	first := &MockStorageBackend{name: "s3-canary"}
	first.On("Available", mock.Anything).Return(true)
	first.On("Store", mock.Anything, mock.Anything, interfaces.ExplanationType).
		Return(interfaces.ContentID{}, errors.New("access denied"))
	second := &MockStorageBackend{name: "ipfs-canary"}
	second.On("Available", mock.Anything).Return(false)

	multi := NewMultiStorageBackend([]interfaces.StorageBackend{first, second}, quietLog)
	_, err := multi.Store(ctx, explanationText, interfaces.ExplanationType)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "s3-canary: access denied")
	second.AssertNotCalled(t, "Store", mock.Anything, mock.Anything, mock.Anything)

	offline := NewMultiStorageBackend([]interfaces.StorageBackend{second}, quietLog)
	_, err = offline.Store(ctx, explanationText, interfaces.ExplanationType)
	assert.ErrorIs(t, err, interfaces.ErrBackendUnavailable)
}

func TestMultiStorage_FetchErrors(t *testing.T) {
	ctx := context.Background()
	id := interfaces.ComputeID(decompiledSource)

	missing := newReplicas(t, 2)
	multi := NewMultiStorageBackend([]interfaces.StorageBackend{missing[0], missing[1]}, quietLog)
	_, err := multi.Fetch(ctx, id, interfaces.ArtifactType)
	assert.ErrorIs(t, err, interfaces.ErrContentNotFound)

	down := &MockStorageBackend{name: "ipfs-canary"}
	down.On("Available", mock.Anything).Return(false)
	multi = NewMultiStorageBackend([]interfaces.StorageBackend{down}, quietLog)
	_, err = multi.Fetch(ctx, id, interfaces.ArtifactType)
	assert.ErrorIs(t, err, interfaces.ErrBackendUnavailable)
	down.AssertNotCalled(t, "Fetch", mock.Anything, mock.Anything, mock.Anything)
}

func TestMultiStorage_AvailabilityAndLocation(t *testing.T) {
	ctx := context.Background()
	replica := newReplicas(t, 1)[0]
	offline := &offlineBackend{StorageBackend: replica, offline: true}

	assert.False(t, NewMultiStorageBackend(nil, quietLog).Available(ctx))
	assert.False(t, NewMultiStorageBackend([]interfaces.StorageBackend{offline}, quietLog).Available(ctx))

	multi := NewMultiStorageBackend([]interfaces.StorageBackend{offline, replica}, quietLog)
	assert.True(t, multi.Available(ctx))
	assert.Equal(t, "multi:["+replica.LocationURI()+","+replica.LocationURI()+"]", multi.LocationURI())
}
