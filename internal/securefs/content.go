package securefs

import (
	"context"
	"encoding/base64"
	"path/filepath"
	"strings"

	"github.com/labstack/gommon/bytes"

	"github.com/xailab/xai-review/internal/logger"
)

// contentTypes is the fixed extension table. No magic-byte sniffing is done.
var contentTypes = map[string]string{
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"gif":  "image/gif",
	"svg":  "image/svg+xml",
}

// DefaultContentType is used for any extension missing from the table.
const DefaultContentType = "application/octet-stream"

// ContentTypeFor returns the content type for a file name based on its extension.
func ContentTypeFor(name string) string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	if ct, ok := contentTypes[ext]; ok {
		return ct
	}
	return DefaultContentType
}

// Content is a fully buffered file.
type Content struct {
	Path        string
	ContentType string
	Data        []byte
}

// InlineContent is a file encoded for embedding in JSON.
type InlineContent struct {
	ContentType string `json:"content_type"`
	Data        string `json:"data"`
}

// Loader reads patient files through a SecureFS.
type Loader struct {
	fs *SecureFS
}

// NewLoader returns a Loader bound to sfs.
func NewLoader(sfs *SecureFS) *Loader {
	return &Loader{fs: sfs}
}

// Load resolves root/patient/filename and reads it.
func (l *Loader) Load(ctx context.Context, patient, filename string) (*Content, error) {
	resolved, err := l.fs.Resolve(patient, filename)
	if err != nil {
		return nil, err
	}

	data, err := l.fs.ReadFile(resolved)
	if err != nil {
		return nil, err
	}

	GetLogger().WithContext(ctx).Debug("Loaded file",
		logger.String("patient", patient),
		logger.String("filename", filename),
		logger.String("size", bytes.Format(int64(len(data)))))

	return &Content{
		Path:        resolved,
		ContentType: ContentTypeFor(filename),
		Data:        data,
	}, nil
}

// LoadInline is Load followed by standard base64 encoding of the bytes.
func (l *Loader) LoadInline(ctx context.Context, patient, filename string) (*InlineContent, error) {
	content, err := l.Load(ctx, patient, filename)
	if err != nil {
		return nil, err
	}
	return &InlineContent{
		ContentType: content.ContentType,
		Data:        base64.StdEncoding.EncodeToString(content.Data),
	}, nil
}
