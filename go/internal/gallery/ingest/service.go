package ingest

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/mcdev12/fotowall/go/internal/models"
	"github.com/mcdev12/fotowall/go/internal/storage"
	"github.com/rs/zerolog/log"
)

var (
	// ErrNoContent is returned when a submission carries no image bytes
	ErrNoContent = errors.New("no image content")
	// ErrStorage wraps any failure to persist image bytes
	ErrStorage = errors.New("failed to store image")
)

// Recorder records a persisted image in the gallery and broadcasts it
type Recorder interface {
	Append(reference string) models.ImageRecord
}

// Config holds configuration for the ingestion service
type Config struct {
	StorageTimeout time.Duration
}

// DefaultConfig returns default ingestion configuration
func DefaultConfig() Config {
	return Config{
		StorageTimeout: 30 * time.Second,
	}
}

// Service accepts new images, persists them and hands them to the gallery
type Service struct {
	store    storage.Store
	recorder Recorder
	config   Config
}

// NewService creates a new ingestion service
func NewService(store storage.Store, recorder Recorder, config Config) *Service {
	if config.StorageTimeout <= 0 {
		config.StorageTimeout = DefaultConfig().StorageTimeout
	}
	return &Service{
		store:    store,
		recorder: recorder,
		config:   config,
	}
}

// Submit persists body and records it in the gallery. Nothing is recorded or
// broadcast unless the bytes were stored successfully.
func (s *Service) Submit(ctx context.Context, body io.Reader, filenameHint string) (models.ImageRecord, error) {
	if body == nil {
		return models.ImageRecord{}, ErrNoContent
	}

	br := bufio.NewReader(body)
	if _, err := br.Peek(1); err != nil {
		if errors.Is(err, io.EOF) {
			return models.ImageRecord{}, ErrNoContent
		}
		return models.ImageRecord{}, fmt.Errorf("%w: %w", ErrStorage, err)
	}

	storeCtx, cancel := context.WithTimeout(ctx, s.config.StorageTimeout)
	defer cancel()

	start := time.Now()
	obj, err := s.store.Save(storeCtx, filenameHint, br)
	if err != nil {
		log.Warn().
			Err(err).
			Str("filename", filenameHint).
			Dur("elapsed", time.Since(start)).
			Msg("image storage failed")
		return models.ImageRecord{}, fmt.Errorf("%w: %w", ErrStorage, err)
	}

	record := s.recorder.Append(obj.Reference)

	log.Info().
		Int64("image_id", record.ID).
		Str("key", obj.Key).
		Int64("size", obj.Size).
		Str("checksum", obj.Checksum).
		Dur("elapsed", time.Since(start)).
		Msg("image ingested")

	return record, nil
}
