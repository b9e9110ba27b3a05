package service

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/memevault/memevault-server/internal/errors"
	"github.com/memevault/memevault-server/internal/media/images"
	"github.com/memevault/memevault-server/internal/search"
	"github.com/memevault/memevault-server/internal/store"
)

// stubCaptioner returns a fixed caption, or an error when set.
type stubCaptioner struct {
	caption string
	err     error
	calls   int
}

func (c *stubCaptioner) Caption(_ context.Context, _ string) (string, error) {
	c.calls++
	if c.err != nil {
		return "", c.err
	}
	return c.caption, nil
}

type testEnv struct {
	svc       *MemeService
	store     *store.Store
	index     *search.MemeIndex
	storage   *images.Storage
	captioner *stubCaptioner
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	st, err := store.New(filepath.Join(t.TempDir(), "catalog"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	idx, err := search.NewMemeIndex(search.Options{DataPath: t.TempDir(), Logger: logger})
	require.NoError(t, err)
	t.Cleanup(func() { idx.Close() })

	storage, err := images.NewStorage(filepath.Join(t.TempDir(), "data"))
	require.NoError(t, err)

	cap := &stubCaptioner{caption: "A cat ON the couch!"}
	return &testEnv{
		svc:       NewMemeService(logger, st, idx, storage, cap),
		store:     st,
		index:     idx,
		storage:   storage,
		captioner: cap,
	}
}

// pngBytes returns an encoded solid-color PNG.
func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: uint8(x % 256), B: uint8(y % 256), A: 255})
		}
	}

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// seedFile drops a PNG into the data directory under the given name and
// returns its path.
func seedFile(t *testing.T, env *testEnv, name string) string {
	t.Helper()
	path, err := env.storage.Save(name, pngBytes(t, 40, 30))
	require.NoError(t, err)
	return path
}

func TestMemeService_Process(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	path := seedFile(t, env, "incoming.png")
	require.NoError(t, env.svc.Process(ctx, path))

	// The file was renamed after the sanitized caption.
	assert.True(t, env.storage.Exists("a_cat_on_the_couch.png"))
	assert.False(t, env.storage.Exists("incoming.png"))

	// And cataloged with its metadata.
	m, err := env.store.GetMemeByFilename(ctx, "a_cat_on_the_couch.png")
	require.NoError(t, err)
	assert.Equal(t, "A cat ON the couch!", m.Caption)
	assert.Equal(t, "png", m.Format)
	assert.Equal(t, 40, m.Width)
	assert.Equal(t, 30, m.Height)
	assert.Positive(t, m.SizeBytes)
	assert.NotEmpty(t, m.BlurHash)
	assert.True(t, strings.HasPrefix(m.ID, "meme-"))

	// And indexed for search.
	params := search.DefaultParams()
	params.Query = "couch"
	result, err := env.svc.Search(ctx, params)
	require.NoError(t, err)
	require.NotEmpty(t, result.Hits)
	assert.Equal(t, m.ID, result.Hits[0].ID)
}

func TestMemeService_ProcessSkipsCatalogedFilename(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	path := seedFile(t, env, "incoming.png")
	require.NoError(t, env.svc.Process(ctx, path))
	require.Equal(t, 1, env.captioner.calls)

	// The rename raises a second creation event for the new name; that
	// activation must exit without captioning again.
	renamed, err := env.storage.Path("a_cat_on_the_couch.png")
	require.NoError(t, err)
	require.NoError(t, env.svc.Process(ctx, renamed))

	assert.Equal(t, 1, env.captioner.calls)
	count, err := env.store.CountMemes(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestMemeService_ProcessCaptionFailure(t *testing.T) {
	env := newTestEnv(t)
	env.captioner.err = errors.New("model not loaded")
	ctx := context.Background()

	path := seedFile(t, env, "incoming.png")
	err := env.svc.Process(ctx, path)
	require.Error(t, err)

	// The file keeps its original name and is not cataloged.
	assert.True(t, env.storage.Exists("incoming.png"))
	count, err := env.store.CountMemes(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestMemeService_ProcessNonImage(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	path, err := env.storage.Save("broken.png", []byte("not a png"))
	require.NoError(t, err)

	require.Error(t, env.svc.Process(ctx, path))
	assert.Equal(t, 0, env.captioner.calls, "undecodable files must not be captioned")
}

func TestMemeService_ProcessCollisionSuffix(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	first := seedFile(t, env, "first.png")
	require.NoError(t, env.svc.Process(ctx, first))

	second := seedFile(t, env, "second.png")
	require.NoError(t, env.svc.Process(ctx, second))

	assert.True(t, env.storage.Exists("a_cat_on_the_couch.png"))
	assert.True(t, env.storage.Exists("a_cat_on_the_couch_1.png"))

	count, err := env.store.CountMemes(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestMemeService_ProcessEmptyCaptionFallsBack(t *testing.T) {
	env := newTestEnv(t)
	env.captioner.caption = "!!!" // sanitizes to nothing
	ctx := context.Background()

	path := seedFile(t, env, "incoming.png")
	require.NoError(t, env.svc.Process(ctx, path))

	assert.True(t, env.storage.Exists("meme.png"))
}

func TestMemeService_Upload(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	filename, err := env.svc.Upload(ctx, bytes.NewReader(pngBytes(t, 20, 20)))
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(filename, ".jpg"))
	assert.True(t, env.storage.Exists(filename))

	// The stored file is a real JPEG.
	path, err := env.storage.Path(filename)
	require.NoError(t, err)
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	cfg, err := jpeg.DecodeConfig(f)
	require.NoError(t, err)
	assert.Equal(t, 20, cfg.Width)
}

func TestMemeService_UploadRejectsNonImage(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.Upload(context.Background(), strings.NewReader("just text"))
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrValidation))
}

func TestMemeService_Delete(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	path := seedFile(t, env, "incoming.png")
	require.NoError(t, env.svc.Process(ctx, path))

	m, err := env.store.GetMemeByFilename(ctx, "a_cat_on_the_couch.png")
	require.NoError(t, err)

	require.NoError(t, env.svc.Delete(ctx, m.ID))

	assert.False(t, env.storage.Exists(m.Filename))
	_, err = env.svc.Get(ctx, m.ID)
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))

	params := search.DefaultParams()
	params.Query = "couch"
	result, err := env.svc.Search(ctx, params)
	require.NoError(t, err)
	assert.Empty(t, result.Hits)
}

func TestMemeService_DeleteNotFound(t *testing.T) {
	env := newTestEnv(t)

	err := env.svc.Delete(context.Background(), "meme-ghost")
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))
}

func TestMemeService_ListAndCount(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, env.svc.Process(ctx, seedFile(t, env, "one.png")))
	env.captioner.caption = "a dog in a hat"
	require.NoError(t, env.svc.Process(ctx, seedFile(t, env, "two.png")))

	memes, err := env.svc.List(ctx, 0, 0)
	require.NoError(t, err)
	assert.Len(t, memes, 2)

	count, err := env.svc.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestMemeService_Reindex(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, env.svc.Process(ctx, seedFile(t, env, "one.png")))
	env.captioner.caption = "a dog in a hat"
	require.NoError(t, env.svc.Process(ctx, seedFile(t, env, "two.png")))

	n, err := env.svc.Reindex(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	params := search.DefaultParams()
	params.Query = "dog"
	result, err := env.svc.Search(ctx, params)
	require.NoError(t, err)
	assert.NotEmpty(t, result.Hits)
}

func TestMemeService_ImagePath(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, env.svc.Process(ctx, seedFile(t, env, "one.png")))
	m, err := env.store.GetMemeByFilename(ctx, "a_cat_on_the_couch.png")
	require.NoError(t, err)

	path, err := env.svc.ImagePath(ctx, m.ID)
	require.NoError(t, err)
	assert.FileExists(t, path)

	// Missing file surfaces as not found.
	require.NoError(t, os.Remove(path))
	_, err = env.svc.ImagePath(ctx, m.ID)
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))
}
