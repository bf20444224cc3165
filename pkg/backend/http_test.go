package backend

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/traffisense/core/config"
	"github.com/traffisense/core/errors"
	"github.com/traffisense/core/testutil"
)

func TestUploadSendsMultipartFile(t *testing.T) {
	video := testutil.WriteVideo(t, t.TempDir(), "cam 1.mp4")

	var gotName, gotAgent string
	var gotSize int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/upload", r.URL.Path)
		f, hdr, err := r.FormFile("file")
		if !assert.NoError(t, err) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		defer f.Close()
		n, _ := io.Copy(io.Discard, f)
		gotName, gotSize, gotAgent = hdr.Filename, n, r.UserAgent()
		_ = json.NewEncoder(w).Encode(map[string]string{"filename": hdr.Filename, "path": "uploads/" + hdr.Filename})
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL+"/", time.Second)
	defer c.Close()

	res, err := c.Upload(context.Background(), video)
	require.NoError(t, err)
	assert.Equal(t, "cam 1.mp4", res.JobID)
	assert.Equal(t, "uploads/cam 1.mp4", res.Path)
	assert.Equal(t, "cam 1.mp4", gotName)
	assert.Positive(t, gotSize)
	assert.Contains(t, gotAgent, "traffisense/")
	assert.Equal(t, srv.URL, c.BaseURL())
}

func TestUploadErrorPayloadIsRejected(t *testing.T) {
	video := testutil.WriteVideo(t, t.TempDir(), "a.mp4")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		_, _ = w.Write([]byte(`{"error":"disk full"}`))
	}))
	defer srv.Close()

	_, err := NewHTTPClient(srv.URL, time.Second).Upload(context.Background(), video)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeUploadRejected))
	assert.Contains(t, err.Error(), "disk full")
}

func TestUploadHTTPStatusIsRejected(t *testing.T) {
	video := testutil.WriteVideo(t, t.TempDir(), "a.mp4")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		w.WriteHeader(http.StatusRequestEntityTooLarge)
		_, _ = w.Write([]byte(`{"detail":"too big"}`))
	}))
	defer srv.Close()

	_, err := NewHTTPClient(srv.URL, time.Second).Upload(context.Background(), video)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeUploadRejected))
	tsErr, ok := errors.As(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusRequestEntityTooLarge, tsErr.Details["status"])
	assert.Contains(t, err.Error(), "too big")
}

func TestUploadUnreachable(t *testing.T) {
	video := testutil.WriteVideo(t, t.TempDir(), "a.mp4")
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	_, err := NewHTTPClient(srv.URL, time.Second).Upload(context.Background(), video)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeUploadUnreachable))
}

func TestUploadMissingFile(t *testing.T) {
	_, err := NewHTTPClient("http://127.0.0.1:1", time.Second).
		Upload(context.Background(), filepath.Join(t.TempDir(), "missing.mp4"))
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput))
}

func TestHealth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}))
	defer srv.Close()

	c := New(&config.Config{Backend: config.BackendConfig{URL: srv.URL}})
	status, err := c.Health(context.Background())
	require.NoError(t, err)
	assert.True(t, status.OK())
	assert.True(t, c.IsRunning())
}

func TestHealthDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, time.Second)
	_, err := c.Health(context.Background())
	assert.True(t, errors.Is(err, errors.ErrCodeBackendUnavailable))
	assert.False(t, c.IsRunning())
}
