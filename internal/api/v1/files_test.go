package api

import (
	"encoding/base64"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServeFile(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	env.addFiles(t, "001", "video_0001.jpg", "occlusion_colored_video_0001.png", "notes.bin")

	tests := []struct {
		target      string
		contentType string
		body        string
	}{
		{"/file/001/video_0001.jpg", "image/jpeg", "video_0001.jpg"},
		{"/api/v1/file/001/occlusion_colored_video_0001.png", "image/png", "occlusion_colored_video_0001.png"},
		{"/file/001/notes.bin", "application/octet-stream", "notes.bin"},
	}
	for _, tt := range tests {
		rec := env.do(t, http.MethodGet, tt.target, nil)
		require.Equal(t, http.StatusOK, rec.Code, tt.target)
		assert.Equal(t, tt.contentType, rec.Header().Get(echo.HeaderContentType), tt.target)
		assert.Equal(t, tt.body, rec.Body.String(), tt.target)
	}
}

func TestServeFileErrors(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	env.addFiles(t, "001", "video_0001.jpg")

	// A sibling of the data root that must never be served.
	secret := filepath.Join(filepath.Dir(env.root), "secret.txt")
	require.NoError(t, os.WriteFile(secret, []byte("secret"), 0o600))

	requireError(t, env.do(t, http.MethodGet, "/file/001/missing.jpg", nil), http.StatusNotFound)
	requireError(t, env.do(t, http.MethodGet, "/file/999/video_0001.jpg", nil), http.StatusNotFound)

	// Directories cannot be read as files.
	require.NoError(t, os.MkdirAll(filepath.Join(env.root, "001", "nested"), 0o750))
	requireError(t, env.do(t, http.MethodGet, "/file/001/nested", nil), http.StatusNotFound)

	rec := env.do(t, http.MethodGet, "/file/../secret.txt", nil)
	requireError(t, rec, http.StatusBadRequest)
	assert.NotContains(t, rec.Body.String(), `"secret"`)
}

func TestServeFileSymlinkEscape(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	env.addFiles(t, "001", "video_0001.jpg")

	outside := filepath.Join(filepath.Dir(env.root), "outside.jpg")
	require.NoError(t, os.WriteFile(outside, []byte("outside"), 0o600))
	if err := os.Symlink(outside, filepath.Join(env.root, "001", "link.jpg")); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	requireError(t, env.do(t, http.MethodGet, "/file/001/link.jpg", nil), http.StatusBadRequest)
}

func TestGetPatientImageData(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	env.seedTwoPatients(t)
	frame := env.frameOf(t, "002")

	rec := env.do(t, http.MethodGet, "/file/002", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var data ImageData
	decode(t, rec, &data)
	assert.Equal(t, frame.ID, data.ID)
	assert.Equal(t, "video_0002.jpg", data.Filename)
	assert.Equal(t, "002", data.PatientNumber)
	assert.Equal(t, "image/jpeg", data.ContentType)

	raw, err := base64.StdEncoding.DecodeString(data.Data)
	require.NoError(t, err)
	assert.Equal(t, "video_0002.jpg", string(raw))

	requireError(t, env.do(t, http.MethodGet, "/file/404", nil), http.StatusNotFound)
}
