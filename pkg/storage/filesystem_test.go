package storage

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorageSaveOpenDelete(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	rel, err := store.Save("plans/p1/roadmap.csv", []byte("date,lesson\n"))
	require.NoError(t, err)
	assert.Equal(t, "plans/p1/roadmap.csv", rel)

	f, err := store.Open(rel)
	require.NoError(t, err)
	body, err := io.ReadAll(f)
	require.NoError(t, err)
	require.NoError(t, f.Close())
	assert.Equal(t, "date,lesson\n", string(body))

	require.NoError(t, store.Delete(rel))
	require.NoError(t, store.Delete(rel))
	_, err = store.Open(rel)
	assert.Error(t, err)
}

func TestLocalStorageRejectsEscapingPaths(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	for _, name := range []string{"../outside.csv", "/etc/passwd", "", "a/../../b.csv"} {
		_, err := store.Save(name, []byte("x"))
		assert.Error(t, err, name)
	}
}

func TestLocalStorageCleanupOlderThan(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStorage(dir)
	require.NoError(t, err)

	_, err = store.Save("old/roadmap.pdf", []byte("old"))
	require.NoError(t, err)
	_, err = store.Save("new/roadmap.pdf", []byte("new"))
	require.NoError(t, err)
	_, err = store.Save("plans/p1/e1/roadmap.csv", []byte("old"))
	require.NoError(t, err)
	_, err = store.Save("plans/p1/e2/roadmap.csv", []byte("new"))
	require.NoError(t, err)
	past := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(dir, "old", "roadmap.pdf"), past, past))
	require.NoError(t, os.Chtimes(filepath.Join(dir, "plans", "p1", "e1", "roadmap.csv"), past, past))

	deleted, err := store.CleanupOlderThan(24 * time.Hour)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"old/roadmap.pdf", "plans/p1/e1/roadmap.csv"}, deleted)
	_, err = os.Stat(filepath.Join(dir, "new", "roadmap.pdf"))
	assert.NoError(t, err)

	// Directories emptied by the cleanup go too; populated ones stay.
	_, err = os.Stat(filepath.Join(dir, "old"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(dir, "plans", "p1", "e1"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(dir, "plans", "p1", "e2", "roadmap.csv"))
	assert.NoError(t, err)
	_, err = os.Stat(dir)
	assert.NoError(t, err)
}

func TestLocalStorageDeletePrunesEmptyDirectories(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStorage(dir)
	require.NoError(t, err)

	_, err = store.Save("plans/p1/e1/roadmap.pdf", []byte("x"))
	require.NoError(t, err)
	require.NoError(t, store.Delete("plans/p1/e1/roadmap.pdf"))

	_, err = os.Stat(filepath.Join(dir, "plans"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(dir)
	assert.NoError(t, err)
}
