package main

import (
	"context"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/fotowall/go/internal/config"
	"github.com/mcdev12/fotowall/go/internal/gallery"
	"github.com/mcdev12/fotowall/go/internal/gallery/gateway"
	"github.com/mcdev12/fotowall/go/internal/gallery/ingest"
	"github.com/mcdev12/fotowall/go/internal/gallery/relay"
	"github.com/mcdev12/fotowall/go/internal/ratelimit"
	"github.com/mcdev12/fotowall/go/internal/share"
	"github.com/mcdev12/fotowall/go/internal/storage"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

type Services struct {
	Objects storage.Store
	Gateway *gateway.Service
	Ingest  *ingest.Service
	Upload  *ingest.Handler
	Share   *share.Handler
	Limiter ratelimit.Limiter

	// optional, nil when not configured
	Relay     *relay.Worker
	publisher *relay.JetStreamPublisher
	memory    *ratelimit.MemoryLimiter
	redis     *redis.Client
}

func setupServices(ctx context.Context, cfg *config.Config) (*Services, error) {
	// Wire up dependency chain
	// Clock → Gallery store → Broadcast hub → Ingestion
	clock := clockwork.NewRealClock()
	s := &Services{}

	objects, err := storage.NewStoreFromConfig(ctx, cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("failed to set up storage: %w", err)
	}
	s.Objects = objects

	var sinks []gateway.EventSink
	if cfg.NATS.URL != "" {
		jsCfg := relay.DefaultJetStreamConfig()
		jsCfg.URL = cfg.NATS.URL
		jsCfg.StreamName = cfg.NATS.StreamName
		jsCfg.SubjectPrefix = cfg.NATS.SubjectPrefix

		publisher, err := relay.NewJetStreamPublisher(ctx, jsCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to set up event relay: %w", err)
		}
		s.publisher = publisher
		s.Relay = relay.NewWorker(publisher, relay.DefaultConfig())
		sinks = append(sinks, s.Relay)
	}

	gatewayCfg := gateway.DefaultConfig()
	gatewayCfg.HubConfig.SendBuffer = cfg.Gateway.SendBuffer
	s.Gateway = gateway.NewService(gatewayCfg, gallery.NewStore(clock), clock, sinks...)

	s.Ingest = ingest.NewService(objects, s.Gateway.Hub(), ingest.Config{
		StorageTimeout: cfg.Storage.Timeout,
	})
	s.Upload = ingest.NewHandler(s.Ingest, cfg.MaxUploadBytes())

	if cfg.Redis.URL != "" {
		client, err := ratelimit.NewRedisClient(ctx, cfg.Redis.URL)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.redis = client
		s.Limiter = ratelimit.NewRedisLimiter(client, clock, cfg.Upload.RatePerMinute, time.Minute)
	} else {
		s.memory = ratelimit.NewMemoryLimiter(clock, cfg.Upload.RatePerMinute, cfg.Upload.Burst)
		s.Limiter = s.memory
	}

	s.Share = share.NewHandler(cfg.PublicURL, cfg.Port)

	return s, nil
}

// Start launches the background workers; they stop when ctx is cancelled
func (s *Services) Start(ctx context.Context) {
	go func() {
		if err := s.Gateway.Start(ctx); err != nil {
			log.Error().Err(err).Msg("gateway service failed")
		}
	}()

	if s.Relay != nil {
		if err := s.Relay.Start(ctx); err != nil {
			log.Error().Err(err).Msg("relay worker failed to start")
		}
	}

	if s.memory != nil {
		go s.memory.Run(ctx)
	}
}

// Close releases external connections
func (s *Services) Close() {
	if s.Relay != nil {
		if err := s.Relay.Stop(); err != nil {
			log.Warn().Err(err).Msg("relay worker stop")
		}
	}
	if s.publisher != nil {
		s.publisher.Close()
	}
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			log.Warn().Err(err).Msg("redis close")
		}
	}
}

// health reports the state of the wall and its optional backends
func (s *Services) health() map[string]interface{} {
	stats := s.Gateway.GetStats()
	out := map[string]interface{}{
		"status":   "ok",
		"sessions": stats.Sessions,
		"images":   stats.Images,
	}
	if s.publisher != nil {
		out["nats_connected"] = s.publisher.Connected()
		out["relay"] = s.Relay.Stats()
	}
	return out
}
