package securefs

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContentTypeFor(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"video_0001.jpg":  "image/jpeg",
		"video_0001.JPEG": "image/jpeg",
		"mask.png":        "image/png",
		"anim.gif":        "image/gif",
		"overlay.svg":     "image/svg+xml",
		"notes.txt":       DefaultContentType,
		"no-extension":    DefaultContentType,
		"archive.tar.gz":  DefaultContentType,
	}
	for name, want := range tests {
		assert.Equal(t, want, ContentTypeFor(name), name)
	}
}

func TestLoaderLoad(t *testing.T) {
	t.Parallel()
	sfs, _ := setupDataRoot(t)
	loader := NewLoader(sfs)

	content, err := loader.Load(t.Context(), "042", "video_0001.jpg")
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", content.ContentType)
	assert.Equal(t, []byte("frame"), content.Data)
	assert.Equal(t, filepath.Join(sfs.BaseDir(), "042", "video_0001.jpg"), content.Path)
}

func TestLoaderErrors(t *testing.T) {
	t.Parallel()
	sfs, _ := setupDataRoot(t)
	loader := NewLoader(sfs)

	_, err := loader.Load(t.Context(), "042", "missing.png")
	require.ErrorIs(t, err, ErrNotFound)

	_, err = loader.Load(t.Context(), "042", "../../secret.txt")
	require.ErrorIs(t, err, ErrInvalidPath)

	require.NoError(t, os.MkdirAll(filepath.Join(sfs.BaseDir(), "042", "nested"), 0o750))
	_, err = loader.Load(t.Context(), "042", "nested")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestLoaderLoadInline(t *testing.T) {
	t.Parallel()
	sfs, _ := setupDataRoot(t)
	payload := []byte{0x89, 'P', 'N', 'G', 0x00, 0xff}
	require.NoError(t, os.WriteFile(filepath.Join(sfs.BaseDir(), "042", "saliency_colored_video_0001.png"), payload, 0o600))

	inline, err := NewLoader(sfs).LoadInline(t.Context(), "042", "saliency_colored_video_0001.png")
	require.NoError(t, err)
	assert.Equal(t, "image/png", inline.ContentType)
	assert.Equal(t, base64.StdEncoding.EncodeToString(payload), inline.Data)
}
