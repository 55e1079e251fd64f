package storage

import (
	"context"
	"io"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Object describes bytes that were persisted by a Store
type Object struct {
	Key       string // backend-relative name, e.g. "3f0c...e1.jpg"
	Reference string // URL viewers load the image from
	Size      int64
	Checksum  string // hex sha256 of the stored bytes
}

// Store persists uploaded image bytes and hands back an opaque reference.
// Save must leave nothing behind when it fails or ctx is cancelled.
// Stored images are never removed by the wall; a reset only empties the gallery.
type Store interface {
	Save(ctx context.Context, filenameHint string, r io.Reader) (Object, error)
}

// maxExtLen bounds the extension kept from a client-supplied filename
const maxExtLen = 8

// BuildObjectKey returns a unique object name that keeps the extension of the
// client's filename when it looks sane.
func BuildObjectKey(filenameHint string) string {
	return uuid.New().String() + sanitizeExt(filenameHint)
}

func sanitizeExt(filenameHint string) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(filenameHint)))
	if len(ext) < 2 || len(ext) > maxExtLen {
		return ""
	}
	for _, r := range ext[1:] {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return ""
		}
	}
	return ext
}

// ctxReader fails reads once ctx is done so a stalled copy stops promptly
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
