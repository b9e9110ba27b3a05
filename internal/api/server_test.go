package api

import (
	"bytes"
	"context"
	"encoding/json/v2"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memevault/memevault-server/internal/config"
	"github.com/memevault/memevault-server/internal/media/images"
	"github.com/memevault/memevault-server/internal/monitor"
	"github.com/memevault/memevault-server/internal/pool"
	"github.com/memevault/memevault-server/internal/search"
	"github.com/memevault/memevault-server/internal/service"
	"github.com/memevault/memevault-server/internal/store"
	"github.com/memevault/memevault-server/internal/watcher"
)

// stubCaptioner returns a fixed caption.
type stubCaptioner struct {
	caption string
}

func (c *stubCaptioner) Caption(_ context.Context, _ string) (string, error) {
	return c.caption, nil
}

type apiTestEnv struct {
	server  *Server
	svc     *service.MemeService
	store   *store.Store
	storage *images.Storage
}

// testEnvelope mirrors the response envelope for decoding in tests.
type testEnvelope[T any] struct {
	V       int    `json:"v"`
	Success bool   `json:"success"`
	Data    T      `json:"data"`
	Error   string `json:"error"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details"`
}

func newTestServer(t *testing.T, cfg *config.Config) *apiTestEnv {
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

	svc := service.NewMemeService(logger, st, idx, storage, &stubCaptioner{caption: "a cat on the couch"})

	tracker := monitor.NewTracker(100)
	p := pool.New(logger, 2, 16)
	t.Cleanup(p.Stop)

	disp := monitor.NewDispatcher(logger, tracker, svc.Process, 16)
	disp.Start()
	t.Cleanup(disp.Stop)

	verify := func(path string) error {
		_, err := images.Verify(path)
		return err
	}
	mon := monitor.New(logger, monitor.Config{
		Directory:    storage.BasePath(),
		Extensions:   []string{".jpg", ".jpeg", ".png"},
		Debounce:     20 * time.Millisecond,
		WatchMode:    watcher.ModePolling,
		PollInterval: 25 * time.Millisecond,
	}, tracker, p, disp, verify)
	t.Cleanup(mon.Stop)

	return &apiTestEnv{
		server:  NewServer(cfg, st, idx, svc, mon, logger),
		svc:     svc,
		store:   st,
		storage: storage,
	}
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Name:        "MemeVault Test",
			UploadRPS:   100,
			UploadBurst: 100,
		},
	}
}

func (env *apiTestEnv) do(t *testing.T, method, path string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	env.server.ServeHTTP(rec, req)
	return rec
}

func decodeEnvelope[T any](t *testing.T, rec *httptest.ResponseRecorder) testEnvelope[T] {
	t.Helper()

	var env testEnvelope[T]
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), "body: %s", rec.Body.String())
	return env
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 180, G: uint8(x % 256), B: uint8(y % 256), A: 255})
		}
	}

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// seedMeme pushes a file through the full pipeline and returns its ID.
func seedMeme(t *testing.T, env *apiTestEnv, name string) string {
	t.Helper()

	path, err := env.storage.Save(name, pngBytes(t, 40, 30))
	require.NoError(t, err)
	require.NoError(t, env.svc.Process(context.Background(), path))

	memes, err := env.svc.List(context.Background(), 1, 0)
	require.NoError(t, err)
	require.NotEmpty(t, memes)
	return memes[0].ID
}

func multipartBody(t *testing.T, field, filename string, data []byte) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestHealthCheck(t *testing.T) {
	env := newTestServer(t, testConfig())

	rec := env.do(t, http.MethodGet, "/health", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeEnvelope[HealthResponse](t, rec)
	assert.Equal(t, 1, resp.V)
	assert.True(t, resp.Success)

	// Monitor is stopped, so overall health is degraded.
	assert.Equal(t, "degraded", resp.Data.Status)
	assert.Equal(t, "healthy", resp.Data.Components["catalog"].Status)
	assert.Equal(t, "healthy", resp.Data.Components["search"].Status)
	assert.Equal(t, "degraded", resp.Data.Components["monitor"].Status)
}

func TestListMemes_Empty(t *testing.T) {
	env := newTestServer(t, testConfig())

	rec := env.do(t, http.MethodGet, "/api/v1/memes", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeEnvelope[ListMemesResponse](t, rec)
	assert.True(t, resp.Success)
	assert.Equal(t, 0, resp.Data.Total)
	assert.Empty(t, resp.Data.Memes)
}

func TestMemeLifecycle(t *testing.T) {
	env := newTestServer(t, testConfig())
	id := seedMeme(t, env, "incoming.png")

	// List shows the cataloged meme.
	rec := env.do(t, http.MethodGet, "/api/v1/memes", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	list := decodeEnvelope[ListMemesResponse](t, rec)
	require.Len(t, list.Data.Memes, 1)
	assert.Equal(t, id, list.Data.Memes[0].ID)
	assert.Equal(t, "a cat on the couch", list.Data.Memes[0].Caption)

	// Get by ID.
	rec = env.do(t, http.MethodGet, "/api/v1/memes/"+id, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	got := decodeEnvelope[MemeResponse](t, rec)
	assert.Equal(t, "a_cat_on_the_couch.png", got.Data.Filename)
	assert.Equal(t, 40, got.Data.Width)

	// The image streams with caching headers.
	rec = env.do(t, http.MethodGet, "/api/v1/memes/"+id+"/image", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "public, max-age=86400", rec.Header().Get("Cache-Control"))
	assert.NotZero(t, rec.Body.Len())

	// Delete removes it everywhere.
	rec = env.do(t, http.MethodDelete, "/api/v1/memes/"+id, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/v1/memes/"+id, nil, "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	errResp := decodeEnvelope[struct{}](t, rec)
	assert.False(t, errResp.Success)
	assert.Equal(t, "NOT_FOUND", errResp.Code)
}

func TestGetMeme_NotFound(t *testing.T) {
	env := newTestServer(t, testConfig())

	rec := env.do(t, http.MethodGet, "/api/v1/memes/meme-ghost", nil, "")
	require.Equal(t, http.StatusNotFound, rec.Code)

	resp := decodeEnvelope[struct{}](t, rec)
	assert.False(t, resp.Success)
	assert.Equal(t, "NOT_FOUND", resp.Code)
	assert.NotEmpty(t, resp.Error)
}

func TestSearchMemes(t *testing.T) {
	env := newTestServer(t, testConfig())
	id := seedMeme(t, env, "incoming.png")

	rec := env.do(t, http.MethodGet, "/api/v1/search?q=couch", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeEnvelope[SearchMemesResponse](t, rec)
	require.NotEmpty(t, resp.Data.Hits)
	assert.Equal(t, id, resp.Data.Hits[0].ID)
	assert.Equal(t, "couch", resp.Data.Query)

	require.Contains(t, resp.Data.Hits[0].Highlights, "caption")
	fragments := resp.Data.Hits[0].Highlights["caption"]
	require.NotEmpty(t, fragments)
	assert.Contains(t, fragments[0], "couch")
}

func TestSearchMemes_ValidatesParams(t *testing.T) {
	env := newTestServer(t, testConfig())

	rec := env.do(t, http.MethodGet, "/api/v1/search?q=cat&limit=500", nil, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	resp := decodeEnvelope[struct{}](t, rec)
	assert.False(t, resp.Success)
	assert.Equal(t, "VALIDATION", resp.Code)
	assert.NotNil(t, resp.Details)

	rec = env.do(t, http.MethodGet, "/api/v1/search?sort=bogus", nil, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReindex(t *testing.T) {
	env := newTestServer(t, testConfig())
	seedMeme(t, env, "incoming.png")

	rec := env.do(t, http.MethodPost, "/api/v1/search/reindex", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeEnvelope[ReindexResponse](t, rec)
	assert.Equal(t, 1, resp.Data.Indexed)
}

func TestMonitorEndpoints(t *testing.T) {
	env := newTestServer(t, testConfig())

	rec := env.do(t, http.MethodGet, "/api/v1/monitor/status", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	status := decodeEnvelope[MonitorStatusResponse](t, rec)
	assert.False(t, status.Data.Running)

	rec = env.do(t, http.MethodPost, "/api/v1/monitor/start", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	status = decodeEnvelope[MonitorStatusResponse](t, rec)
	assert.True(t, status.Data.Running)

	// Starting again is a no-op.
	rec = env.do(t, http.MethodPost, "/api/v1/monitor/start", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/v1/monitor/stop", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	status = decodeEnvelope[MonitorStatusResponse](t, rec)
	assert.False(t, status.Data.Running)
}

func TestUploadMeme(t *testing.T) {
	env := newTestServer(t, testConfig())

	body, contentType := multipartBody(t, "file", "funny.png", pngBytes(t, 20, 20))
	rec := env.do(t, http.MethodPost, "/api/v1/memes/upload", body, contentType)
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		Success bool              `json:"success"`
		Data    map[string]string `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	require.True(t, strings.HasSuffix(resp.Data["filename"], ".jpg"))
	assert.True(t, env.storage.Exists(resp.Data["filename"]))
}

func TestUploadMeme_RejectsNonImage(t *testing.T) {
	env := newTestServer(t, testConfig())

	body, contentType := multipartBody(t, "file", "notes.txt", []byte("just text"))
	rec := env.do(t, http.MethodPost, "/api/v1/memes/upload", body, contentType)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUploadMeme_MissingFileField(t *testing.T) {
	env := newTestServer(t, testConfig())

	body, contentType := multipartBody(t, "attachment", "funny.png", pngBytes(t, 10, 10))
	rec := env.do(t, http.MethodPost, "/api/v1/memes/upload", body, contentType)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUploadMeme_RateLimited(t *testing.T) {
	cfg := testConfig()
	cfg.Server.UploadRPS = 0.001
	cfg.Server.UploadBurst = 1
	env := newTestServer(t, cfg)

	body, contentType := multipartBody(t, "file", "one.png", pngBytes(t, 10, 10))
	rec := env.do(t, http.MethodPost, "/api/v1/memes/upload", body, contentType)
	require.Equal(t, http.StatusCreated, rec.Code)

	body, contentType = multipartBody(t, "file", "two.png", pngBytes(t, 10, 10))
	rec = env.do(t, http.MethodPost, "/api/v1/memes/upload", body, contentType)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}
