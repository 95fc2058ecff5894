package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PragmaticsGhost/scripper/internal/catalog"
	"github.com/PragmaticsGhost/scripper/internal/pipeline"
	"github.com/PragmaticsGhost/scripper/internal/source"
)

type fakeProcessor struct {
	batch     *pipeline.BatchResult
	err       error
	gotRef    source.Reference
	onProcess func(ref source.Reference)
}

func (f *fakeProcessor) Process(_ context.Context, ref source.Reference) (*pipeline.BatchResult, error) {
	f.gotRef = ref
	if f.onProcess != nil {
		f.onProcess(ref)
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.batch, nil
}

type testEnv struct {
	handler http.Handler
	proc    *fakeProcessor
	dir     string
	token   string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dir := t.TempDir()
	cat, err := catalog.New(dir)
	require.NoError(t, err)

	proc := &fakeProcessor{batch: &pipeline.BatchResult{}}
	auth := NewAuthenticator(testSecret, testPassword)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	srv := New(proc, cat, auth, log)
	mux := http.NewServeMux()
	srv.RegisterRoutes(mux)

	token, err := auth.Login(testPassword)
	require.NoError(t, err)

	return &testEnv{handler: mux, proc: proc, dir: dir, token: token}
}

func (e *testEnv) do(t *testing.T, method, path string, body any, authed bool) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	r := httptest.NewRequest(method, path, &buf)
	r.RemoteAddr = "192.0.2.1:50000"
	if body != nil {
		r.Header.Set("Content-Type", "application/json")
	}
	if authed {
		r.Header.Set("Authorization", "Bearer "+e.token)
	}
	w := httptest.NewRecorder()
	e.handler.ServeHTTP(w, r)
	return w
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
	return v
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/health", nil, false)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decodeBody[map[string]string](t, w)["status"])
}

func TestLoginEndpoint(t *testing.T) {
	env := newTestEnv(t)

	t.Run("success", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/api/login", map[string]string{"password": testPassword}, false)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.NotEmpty(t, decodeBody[loginResponse](t, w).Token)
	})

	t.Run("wrong password", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/api/login", map[string]string{"password": "nope"}, false)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "Invalid credentials", decodeBody[errorResponse](t, w).Error)
	})

	t.Run("missing password", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/api/login", map[string]string{}, false)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Password is required", decodeBody[errorResponse](t, w).Error)
	})
}

func TestAuthRequired(t *testing.T) {
	env := newTestEnv(t)

	for _, tc := range []struct {
		method, path string
	}{
		{http.MethodPost, "/api/download"},
		{http.MethodGet, "/api/downloads"},
		{http.MethodGet, "/api/downloads/track.mp3"},
		{http.MethodDelete, "/api/downloads/track.mp3"},
	} {
		w := env.do(t, tc.method, tc.path, nil, false)
		assert.Equal(t, http.StatusUnauthorized, w.Code, "%s %s", tc.method, tc.path)
	}
}

func TestDownload_SingleTrack(t *testing.T) {
	env := newTestEnv(t)
	env.proc.batch = &pipeline.BatchResult{
		Total: 1,
		Results: []pipeline.TrackResult{
			{Success: true, Title: "Midnight", Artist: "Someone", Filename: "Midnight.mp3"},
		},
	}
	env.proc.onProcess = func(source.Reference) {
		err := os.WriteFile(filepath.Join(env.dir, "Midnight.mp3"), []byte("\xff\xfbdata"), 0o644)
		require.NoError(t, err)
	}

	w := env.do(t, http.MethodPost, "/api/download",
		map[string]string{"url": "https://soundcloud.com/someone/midnight"}, true)
	require.Equal(t, http.StatusOK, w.Code)

	resp := decodeBody[downloadResponse](t, w)
	assert.True(t, resp.Success)
	assert.Equal(t, 1, resp.Total)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "Midnight.mp3", resp.Results[0].Filename)
	assert.Equal(t, source.KindTrack, env.proc.gotRef.Kind)

	// The new file is visible in the listing.
	w = env.do(t, http.MethodGet, "/api/downloads", nil, true)
	require.Equal(t, http.StatusOK, w.Code)
	list := decodeBody[listResponse](t, w)
	require.Len(t, list.Files, 1)
	assert.Equal(t, "Midnight.mp3", list.Files[0].Filename)
}

func TestDownload_PlaylistWithFailedMember(t *testing.T) {
	env := newTestEnv(t)
	env.proc.batch = &pipeline.BatchResult{
		Total: 3,
		Results: []pipeline.TrackResult{
			{Success: true, Title: "One", Artist: "A", Filename: "One.mp3"},
			{Success: false, Title: "Unknown", Error: "Failed to process track"},
			{Success: true, Title: "Three", Artist: "A", Filename: "Three.mp3"},
		},
	}

	w := env.do(t, http.MethodPost, "/api/download",
		map[string]string{"url": "https://soundcloud.com/a/sets/album"}, true)
	require.Equal(t, http.StatusOK, w.Code)

	resp := decodeBody[downloadResponse](t, w)
	assert.True(t, resp.Success)
	assert.Equal(t, 3, resp.Total)
	require.Len(t, resp.Results, 3)
	assert.False(t, resp.Results[1].Success)
	assert.Equal(t, "Failed to process track", resp.Results[1].Error)
	assert.Equal(t, source.KindPlaylist, env.proc.gotRef.Kind)
}

func TestDownload_BadRequests(t *testing.T) {
	env := newTestEnv(t)

	t.Run("missing url", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/api/download", map[string]string{}, true)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "URL is required", decodeBody[errorResponse](t, w).Error)
	})

	t.Run("non-soundcloud url", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/api/download",
			map[string]string{"url": "https://example.com/track"}, true)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Only SoundCloud URLs are supported", decodeBody[errorResponse](t, w).Error)
	})
}

func TestDownload_PipelineFailure(t *testing.T) {
	env := newTestEnv(t)
	env.proc.err = errors.New("yt-dlp exited with status 1")

	w := env.do(t, http.MethodPost, "/api/download",
		map[string]string{"url": "https://soundcloud.com/someone/broken"}, true)
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	// Internal failure detail must not reach the client.
	resp := decodeBody[errorResponse](t, w)
	assert.Equal(t, "Download failed. Please check the URL and try again.", resp.Error)
}

func TestGetDownload(t *testing.T) {
	env := newTestEnv(t)
	content := []byte("\xff\xfbaudio")
	require.NoError(t, os.WriteFile(filepath.Join(env.dir, "track.mp3"), content, 0o644))

	t.Run("found", func(t *testing.T) {
		w := env.do(t, http.MethodGet, "/api/downloads/track.mp3", nil, true)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "audio/mpeg", w.Header().Get("Content-Type"))
		assert.Contains(t, w.Header().Get("Content-Disposition"), "track.mp3")
		assert.Equal(t, content, w.Body.Bytes())
	})

	t.Run("missing", func(t *testing.T) {
		w := env.do(t, http.MethodGet, "/api/downloads/other.mp3", nil, true)
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "File not found", decodeBody[errorResponse](t, w).Error)
	})
}

func TestDeleteDownload(t *testing.T) {
	env := newTestEnv(t)
	path := filepath.Join(env.dir, "track.mp3")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	w := env.do(t, http.MethodDelete, "/api/downloads/track.mp3", nil, true)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decodeBody[deleteResponse](t, w).Success)

	_, err := os.Stat(path)
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestDeleteDownload_TraversalRejected(t *testing.T) {
	env := newTestEnv(t)

	// A file outside the catalog that a traversal attempt would target.
	outside := filepath.Join(filepath.Dir(env.dir), "passwd")
	require.NoError(t, os.WriteFile(outside, []byte("root"), 0o644))

	w := env.do(t, http.MethodDelete, "/api/downloads/..%2F..%2Fetc%2Fpasswd", nil, true)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid filename", decodeBody[errorResponse](t, w).Error)

	w = env.do(t, http.MethodDelete, "/api/downloads/..%2Fpasswd", nil, true)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	_, err := os.Stat(outside)
	assert.NoError(t, err, "file outside the catalog must survive")
}

func TestLoginRateLimit(t *testing.T) {
	env := newTestEnv(t)

	var last int
	for i := 0; i < loginRateMax+1; i++ {
		w := env.do(t, http.MethodPost, "/api/login", map[string]string{"password": "nope"}, false)
		last = w.Code
	}
	assert.Equal(t, http.StatusTooManyRequests, last)
}
