package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
)

// LocalStore keeps images on the local filesystem, served under URLPrefix
type LocalStore struct {
	dir       string
	urlPrefix string
}

// NewLocalStore creates the upload directory if needed
func NewLocalStore(dir, urlPrefix string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload dir: %w", err)
	}
	return &LocalStore{
		dir:       dir,
		urlPrefix: strings.TrimSuffix(urlPrefix, "/"),
	}, nil
}

// Dir returns the directory images are written to
func (s *LocalStore) Dir() string {
	return s.dir
}

// Save streams r to a temporary file and renames it into place once complete
func (s *LocalStore) Save(ctx context.Context, filenameHint string, r io.Reader) (Object, error) {
	key := BuildObjectKey(filenameHint)
	absPath := filepath.Join(s.dir, key)
	tmp := absPath + ".part"

	f, err := os.Create(tmp)
	if err != nil {
		return Object{}, fmt.Errorf("failed to create file: %w", err)
	}

	hasher := sha256.New()
	n, err := io.Copy(io.MultiWriter(f, hasher), ctxReader{ctx: ctx, r: r})
	if err == nil {
		err = f.Sync()
	}
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		_ = os.Remove(tmp)
		return Object{}, fmt.Errorf("failed to write %s: %w", key, err)
	}

	if err := os.Rename(tmp, absPath); err != nil {
		_ = os.Remove(tmp)
		return Object{}, fmt.Errorf("failed to finalize %s: %w", key, err)
	}

	obj := Object{
		Key:       key,
		Reference: s.urlPrefix + "/" + key,
		Size:      n,
		Checksum:  hex.EncodeToString(hasher.Sum(nil)),
	}

	log.Debug().
		Str("key", key).
		Int64("size", n).
		Msg("stored image locally")

	return obj, nil
}
