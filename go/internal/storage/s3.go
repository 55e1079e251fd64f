package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"mime"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"
)

// S3Config holds configuration for S3Store
type S3Config struct {
	Bucket    string
	Region    string
	Endpoint  string // Optional custom endpoint (MinIO, LocalStack, ...)
	PublicURL string // Optional base URL objects are served from
	Prefix    string // Optional key prefix, e.g. "wall/"
}

// S3Store keeps images in an S3-compatible bucket
type S3Store struct {
	uploader *manager.Uploader
	bucket   string
	prefix   string
	baseURL  string
}

// NewS3Store creates an S3-backed image store
func NewS3Store(ctx context.Context, cfg S3Config) (*S3Store, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return newS3Store(client, cfg), nil
}

func newS3Store(client *s3.Client, cfg S3Config) *S3Store {
	return &S3Store{
		uploader: manager.NewUploader(client, func(u *manager.Uploader) {
			u.PartSize = 10 * 1024 * 1024
		}),
		bucket:  cfg.Bucket,
		prefix:  cfg.Prefix,
		baseURL: objectBaseURL(cfg),
	}
}

// objectBaseURL picks where viewers fetch objects from
func objectBaseURL(cfg S3Config) string {
	switch {
	case cfg.PublicURL != "":
		return strings.TrimSuffix(cfg.PublicURL, "/")
	case cfg.Endpoint != "":
		return strings.TrimSuffix(cfg.Endpoint, "/") + "/" + cfg.Bucket
	default:
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
	}
}

// Save uploads r under a fresh key. A failed multipart upload is aborted by the uploader.
func (s *S3Store) Save(ctx context.Context, filenameHint string, r io.Reader) (Object, error) {
	name := BuildObjectKey(filenameHint)
	key := s.prefix + name

	contentType := mime.TypeByExtension(path.Ext(name))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	hasher := sha256.New()
	counter := &countingReader{r: io.TeeReader(ctxReader{ctx: ctx, r: r}, hasher)}

	_, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        counter,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return Object{}, fmt.Errorf("s3 upload failed for %s: %w", key, err)
	}

	log.Debug().
		Str("bucket", s.bucket).
		Str("key", key).
		Int64("size", counter.n).
		Msg("stored image in s3")

	return Object{
		Key:       name,
		Reference: s.baseURL + "/" + key,
		Size:      counter.n,
		Checksum:  hex.EncodeToString(hasher.Sum(nil)),
	}, nil
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
