package mapbuilder

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cortexmap/cortex/internal/mapmodel"
)

func setupTestDataDir(t *testing.T) string {
	dir, err := os.MkdirTemp("", "cortex-store-test-*")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })
	return dir
}

func TestStoreSaveLoadRoundTrip(t *testing.T) {
	dir := setupTestDataDir(t)
	store := NewStore(dir, zap.NewNop())

	b := New("example.com")
	b.AddNode(NodeObservation{URL: "https://example.com/", PageType: mapmodel.PageTypeHome, Features: feature(mapmodel.PageTypeHome)})
	m, err := b.Seal(false)
	require.NoError(t, err)

	require.NoError(t, store.Save(m))
	assert.FileExists(t, store.pathFor("example.com"))

	loaded, err := store.Load("example.com")
	require.NoError(t, err)
	assert.Equal(t, m.URL, loaded.URL)
	assert.Equal(t, m.DomainHash, loaded.DomainHash)
}

func TestStoreLoadMissingDomain(t *testing.T) {
	dir := setupTestDataDir(t)
	store := NewStore(dir, zap.NewNop())

	_, err := store.Load("never-mapped.example")
	assert.Error(t, err)
}

func TestStoreDeleteIsIdempotent(t *testing.T) {
	dir := setupTestDataDir(t)
	store := NewStore(dir, zap.NewNop())

	assert.NoError(t, store.Delete("not-there.example"))

	b := New("example.com")
	b.AddNode(NodeObservation{URL: "https://example.com/", PageType: mapmodel.PageTypeHome, Features: feature(mapmodel.PageTypeHome)})
	m, err := b.Seal(false)
	require.NoError(t, err)
	require.NoError(t, store.Save(m))

	require.NoError(t, store.Delete("example.com"))
	assert.NoFileExists(t, store.pathFor("example.com"))
	assert.NoError(t, store.Delete("example.com"))
}
