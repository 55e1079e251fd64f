package storage

import (
	"context"
	"fmt"

	"github.com/mcdev12/fotowall/go/internal/config"
	"github.com/rs/zerolog/log"
)

// NewStoreFromConfig builds the Store selected by cfg.Backend
func NewStoreFromConfig(ctx context.Context, cfg config.StorageConfig) (Store, error) {
	switch cfg.Backend {
	case "local", "":
		store, err := NewLocalStore(cfg.UploadDir, cfg.URLPrefix)
		if err != nil {
			return nil, err
		}
		log.Info().Str("dir", cfg.UploadDir).Msg("using local image storage")
		return store, nil

	case "s3":
		if cfg.S3Bucket == "" {
			return nil, fmt.Errorf("S3_BUCKET is required for s3 storage")
		}
		region := cfg.S3Region
		if region == "" {
			region = "us-east-1"
		}
		store, err := NewS3Store(ctx, S3Config{
			Bucket:    cfg.S3Bucket,
			Region:    region,
			Endpoint:  cfg.S3Endpoint,
			PublicURL: cfg.S3PublicURL,
			Prefix:    cfg.S3Prefix,
		})
		if err != nil {
			return nil, err
		}
		log.Info().Str("bucket", cfg.S3Bucket).Str("region", region).Msg("using s3 image storage")
		return store, nil

	default:
		return nil, fmt.Errorf("unsupported storage backend: %s", cfg.Backend)
	}
}
