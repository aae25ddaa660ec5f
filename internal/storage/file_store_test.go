package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestStore(t *testing.T) *LocalFileStore {
	t.Helper()
	base := t.TempDir()
	store, err := NewLocalFileStore(filepath.Join(base, "tmp"), filepath.Join(base, "uploads"), zap.NewNop())
	require.NoError(t, err)
	return store
}

func TestSaveTempAndPromote(t *testing.T) {
	store := newTestStore(t)

	tempPath, err := store.SaveTemp("invoice.pdf", []byte("pdf bytes"))
	require.NoError(t, err)
	assert.FileExists(t, tempPath)
	assert.Contains(t, filepath.Base(tempPath), "invoice.pdf")

	finalPath, err := store.Promote(tempPath, "invoice.pdf")
	require.NoError(t, err)
	assert.FileExists(t, finalPath)
	assert.NoFileExists(t, tempPath)

	content, err := os.ReadFile(finalPath)
	require.NoError(t, err)
	assert.Equal(t, []byte("pdf bytes"), content)
}

func TestSaveTemp_UniquePaths(t *testing.T) {
	store := newTestStore(t)

	a, err := store.SaveTemp("same.pdf", []byte("a"))
	require.NoError(t, err)
	b, err := store.SaveTemp("same.pdf", []byte("b"))
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestSaveTemp_SanitizesTraversal(t *testing.T) {
	store := newTestStore(t)

	path, err := store.SaveTemp("../../etc/passwd", []byte("x"))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(path, store.tempDir))
	assert.NotContains(t, filepath.Base(path), "..")
}

func TestDelete_BestEffort(t *testing.T) {
	store := newTestStore(t)

	tempPath, err := store.SaveTemp("gone.pdf", []byte("x"))
	require.NoError(t, err)

	store.Delete(tempPath)
	assert.NoFileExists(t, tempPath)

	// Deleting a missing file is silent
	store.Delete(tempPath)
	store.Delete("")
}
