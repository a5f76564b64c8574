package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestStore(t *testing.T) (*DiskStore, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := NewDiskStore(dir, false, zap.NewNop())
	require.NoError(t, err)
	return store, dir
}

func TestDiskStoreSaveAndURL(t *testing.T) {
	store, dir := newTestStore(t)

	err := store.Save(context.Background(), "a.jpg", "image/jpeg", strings.NewReader("jpeg-bytes"))
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "a.jpg"))
	require.NoError(t, err)
	assert.Equal(t, "jpeg-bytes", string(data))
	assert.Equal(t, "/uploads/a.jpg", store.URL("a.jpg"))
}

func TestDiskStoreRemove(t *testing.T) {
	store, dir := newTestStore(t)

	require.NoError(t, store.Save(context.Background(), "a.jpg", "image/jpeg", strings.NewReader("x")))
	require.NoError(t, store.Remove(context.Background(), "a.jpg"))
	_, err := os.Stat(filepath.Join(dir, "a.jpg"))
	assert.True(t, os.IsNotExist(err))
}

func TestDiskStoreRemoveMissingFile(t *testing.T) {
	store, _ := newTestStore(t)
	assert.NoError(t, store.Remove(context.Background(), "never-existed.png"))
}

func TestNewDiskStoreCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "uploads")
	_, err := NewDiskStore(dir, false, zap.NewNop())
	require.NoError(t, err)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
