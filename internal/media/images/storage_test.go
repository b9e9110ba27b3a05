package images

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()
	s, err := NewStorage(filepath.Join(t.TempDir(), "data"))
	require.NoError(t, err)
	return s
}

func TestNewStorage_CreatesDirectory(t *testing.T) {
	base := filepath.Join(t.TempDir(), "nested", "data")
	s, err := NewStorage(base)
	require.NoError(t, err)

	info, err := os.Stat(s.BasePath())
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestNewStorage_EmptyPath(t *testing.T) {
	_, err := NewStorage("")
	assert.Error(t, err)
}

func TestStorage_SaveAndExists(t *testing.T) {
	s := newTestStorage(t)

	path, err := s.Save("cat.jpg", []byte("jpeg bytes"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(s.BasePath(), "cat.jpg"), path)
	assert.True(t, s.Exists("cat.jpg"))
	assert.False(t, s.Exists("dog.jpg"))
}

func TestStorage_RejectsPathTraversal(t *testing.T) {
	s := newTestStorage(t)

	_, err := s.Save("../escape.jpg", []byte("data"))
	assert.Error(t, err)

	_, err = s.Path("sub/dir.jpg")
	assert.Error(t, err)

	_, err = s.Path(".hidden")
	assert.Error(t, err)
}

func TestStorage_Rename(t *testing.T) {
	s := newTestStorage(t)

	_, err := s.Save("temp.jpg", []byte("data"))
	require.NoError(t, err)

	newPath, err := s.Rename("temp.jpg", "a_cat_on_a_couch.jpg")
	require.NoError(t, err)
	assert.True(t, s.Exists("a_cat_on_a_couch.jpg"))
	assert.False(t, s.Exists("temp.jpg"))
	assert.Equal(t, filepath.Join(s.BasePath(), "a_cat_on_a_couch.jpg"), newPath)
}

func TestStorage_Delete(t *testing.T) {
	s := newTestStorage(t)

	_, err := s.Save("gone.jpg", []byte("data"))
	require.NoError(t, err)

	require.NoError(t, s.Delete("gone.jpg"))
	assert.False(t, s.Exists("gone.jpg"))

	// Deleting a missing file is not an error.
	assert.NoError(t, s.Delete("gone.jpg"))
}

func TestStorage_SaveEmptyData(t *testing.T) {
	s := newTestStorage(t)

	_, err := s.Save("empty.jpg", nil)
	assert.Error(t, err)
}
