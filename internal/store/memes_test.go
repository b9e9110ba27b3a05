package store

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memevault/memevault-server/internal/domain"
	apperrors "github.com/memevault/memevault-server/internal/errors"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s, err := New(t.TempDir(), logger)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testMeme(id, filename string) *domain.Meme {
	now := time.Now().UTC()
	return &domain.Meme{
		ID:        id,
		Filename:  filename,
		Path:      "/data/" + filename,
		Caption:   "a cat sitting on a couch",
		Format:    "jpeg",
		Width:     800,
		Height:    600,
		SizeBytes: 12345,
		BlurHash:  "LEHV6nWB2yk8pyo0adR*.7kCMdnj",
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestStore_CreateAndGetMeme(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	m := testMeme("meme-1", "a_cat_on_a_couch.jpg")
	require.NoError(t, s.CreateMeme(ctx, m))

	got, err := s.GetMeme(ctx, "meme-1")
	require.NoError(t, err)
	assert.Equal(t, m.Filename, got.Filename)
	assert.Equal(t, m.Caption, got.Caption)
	assert.Equal(t, m.Width, got.Width)
}

func TestStore_CreateMemeDuplicate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	m := testMeme("meme-1", "a.jpg")
	require.NoError(t, s.CreateMeme(ctx, m))

	err := s.CreateMeme(ctx, m)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrAlreadyExists))
}

func TestStore_GetMemeNotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetMeme(context.Background(), "meme-missing")
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))
}

func TestStore_GetMemeByFilename(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateMeme(ctx, testMeme("meme-1", "a_dog.jpg")))

	got, err := s.GetMemeByFilename(ctx, "a_dog.jpg")
	require.NoError(t, err)
	assert.Equal(t, "meme-1", got.ID)

	_, err = s.GetMemeByFilename(ctx, "missing.jpg")
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))
}

func TestStore_UpdateMemeReindexesFilename(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	m := testMeme("meme-1", "uuid-blob.jpg")
	require.NoError(t, s.CreateMeme(ctx, m))

	m.Filename = "a_cat_on_a_couch.jpg"
	m.Caption = "a cat on a couch"
	require.NoError(t, s.UpdateMeme(ctx, m))

	got, err := s.GetMemeByFilename(ctx, "a_cat_on_a_couch.jpg")
	require.NoError(t, err)
	assert.Equal(t, "meme-1", got.ID)

	// The old filename must no longer resolve.
	_, err = s.GetMemeByFilename(ctx, "uuid-blob.jpg")
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))
}

func TestStore_UpdateMemeNotFound(t *testing.T) {
	s := newTestStore(t)

	err := s.UpdateMeme(context.Background(), testMeme("meme-ghost", "x.jpg"))
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))
}

func TestStore_DeleteMeme(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateMeme(ctx, testMeme("meme-1", "a.jpg")))
	require.NoError(t, s.DeleteMeme(ctx, "meme-1"))

	_, err := s.GetMeme(ctx, "meme-1")
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))

	// Index entry is cleaned up too.
	_, err = s.GetMemeByFilename(ctx, "a.jpg")
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))

	// Deleting again reports not found.
	err = s.DeleteMeme(ctx, "meme-1")
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))
}

func TestStore_ListMemes(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Now().UTC()
	for i := range 5 {
		m := testMeme(fmt.Sprintf("meme-%d", i), fmt.Sprintf("img_%d.jpg", i))
		m.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, s.CreateMeme(ctx, m))
	}

	memes, err := s.ListMemes(ctx, 0, 0)
	require.NoError(t, err)
	require.Len(t, memes, 5)

	// Newest first.
	assert.Equal(t, "meme-4", memes[0].ID)
	assert.Equal(t, "meme-0", memes[4].ID)
}

func TestStore_ListMemesPagination(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Now().UTC()
	for i := range 5 {
		m := testMeme(fmt.Sprintf("meme-%d", i), fmt.Sprintf("img_%d.jpg", i))
		m.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, s.CreateMeme(ctx, m))
	}

	page, err := s.ListMemes(ctx, 2, 1)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "meme-3", page[0].ID)
	assert.Equal(t, "meme-2", page[1].ID)

	empty, err := s.ListMemes(ctx, 10, 100)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestStore_CountMemes(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	count, err := s.CountMemes(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	require.NoError(t, s.CreateMeme(ctx, testMeme("meme-1", "a.jpg")))
	require.NoError(t, s.CreateMeme(ctx, testMeme("meme-2", "b.jpg")))

	count, err = s.CountMemes(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestStore_HasFilename(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateMeme(ctx, testMeme("meme-1", "a.jpg")))

	ok, err := s.HasFilename(ctx, "a.jpg")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.HasFilename(ctx, "b.jpg")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_CancelledContext(t *testing.T) {
	s := newTestStore(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Error(t, s.CreateMeme(ctx, testMeme("meme-1", "a.jpg")))
	_, err := s.GetMeme(ctx, "meme-1")
	assert.Error(t, err)
}
